package store

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/jackc/pgx/v5"
)

const (
	selectAllProducts = "SELECT " + productColumns + " FROM products"

	selectProductByID = selectAllProducts + " WHERE id = $1"

	selectProductsByCategory = selectAllProducts + " WHERE category = $1"

	updateProductStock = "UPDATE products SET units_in_stock = $1 WHERE id = $2"
)

var _ ProductStore = (*PgStore)(nil)

// PgStore implements ProductStore using PostgreSQL as the data store.
// It keeps no state besides the connection handle and is safe for concurrent use
// when the handle is, as *pgxpool.Pool is.
type PgStore struct {
	db DBTX
}

// NewPgStore creates a new instance of ProductStore over a pgx connection handle.
func NewPgStore(db DBTX) *PgStore {
	return &PgStore{db: db}
}

// FindAll retrieves every product.
// It returns a slice of products, which may be empty if no products exist.
func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	products, err := p.query(ctx, selectAllProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id string) (*Product, error) {
	rows, err := p.db.Query(ctx, selectProductByID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return &product, nil
}

// FindByCategory retrieves the products of one category, matched exactly.
func (p *PgStore) FindByCategory(ctx context.Context, category string) ([]Product, error) {
	products, err := p.query(ctx, selectProductsByCategory, category)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by category: %w", err)
	}
	return products, nil
}

// UpdateStock assigns units_in_stock; it does not add to the current value.
func (p *PgStore) UpdateStock(ctx context.Context, id string, count int64) (int64, error) {
	tag, err := p.db.Exec(ctx, updateProductStock, count, id)
	if err != nil {
		return 0, fmt.Errorf("failed to update product stock: %w", err)
	}
	return tag.RowsAffected(), nil
}

// query runs a select and maps all rows. A mapping failure discards the rows
// already mapped.
func (p *PgStore) query(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, err
	}
	return products, nil
}
