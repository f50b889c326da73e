// Package store provides access to the products table.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Product is one row of the products table. Values are copies; the database
// remains the owner of the canonical state.
type Product struct {
	ID           string
	Name         string
	Description  string
	UnitPrice    decimal.Decimal
	Category     string
	Manufacturer string
	Condition    string
	UnitsInStock int64
	UnitsInOrder int64
	Discounted   bool
}

// ProductStore is an interface for product storage operations.
type ProductStore interface {
	// FindAll returns every product in storage order. There is no ORDER BY, so the
	// order is not guaranteed to be stable between calls.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]Product, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindByCategory returns the products whose category equals the argument exactly.
	// Returns an empty slice if no products match.
	FindByCategory(ctx context.Context, category string) ([]Product, error)

	// UpdateStock sets units_in_stock of the product to count and returns the number
	// of rows affected. An unknown ID affects zero rows and is not an error.
	UpdateStock(ctx context.Context, id string, count int64) (int64, error)
}

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
