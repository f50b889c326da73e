package store

import (
	"fmt"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// productColumns lists every column scanProduct requires, in table order.
const productColumns = "id, name, description, unit_price, category, manufacturer, condition, units_in_stock, units_in_order, discounted"

// productRow mirrors the products table column by column. Non-pointer fields make
// pgx reject NULLs instead of substituting zero values.
type productRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Description  string         `db:"description"`
	UnitPrice    pgtype.Numeric `db:"unit_price"`
	Category     string         `db:"category"`
	Manufacturer string         `db:"manufacturer"`
	Condition    string         `db:"condition"`
	UnitsInStock int64          `db:"units_in_stock"`
	UnitsInOrder int64          `db:"units_in_order"`
	Discounted   bool           `db:"discounted"`
}

// scanProduct maps the current row to a Product. It fails with ErrRowMapping when a
// column is missing, unexpected, NULL or of the wrong type.
func scanProduct(row pgx.CollectableRow) (Product, error) {
	r, err := pgx.RowToStructByName[productRow](row)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %w", perrors.ErrRowMapping, err)
	}
	price, err := numericToDecimal(r.UnitPrice)
	if err != nil {
		return Product{}, fmt.Errorf("%w: product %s: %w", perrors.ErrRowMapping, r.ID, err)
	}
	return Product{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		UnitPrice:    price,
		Category:     r.Category,
		Manufacturer: r.Manufacturer,
		Condition:    r.Condition,
		UnitsInStock: r.UnitsInStock,
		UnitsInOrder: r.UnitsInOrder,
		Discounted:   r.Discounted,
	}, nil
}

// numericToDecimal converts a finite, non-NULL numeric into a decimal without
// going through float64.
func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Decimal{}, fmt.Errorf("unit_price is NULL")
	}
	if n.NaN {
		return decimal.Decimal{}, fmt.Errorf("unit_price is NaN")
	}
	if n.InfinityModifier != pgtype.Finite {
		return decimal.Decimal{}, fmt.Errorf("unit_price is infinite")
	}
	if n.Int == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}
