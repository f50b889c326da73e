package store

import (
	"context"
	"os"
	"testing"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/abgdnv/catalog/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ProductStoreSuite runs PgStore against a migrated PostgreSQL container.
type ProductStoreSuite struct {
	suite.Suite
	pg    *testutil.Postgres
	store ProductStore
	ctx   context.Context
}

func (s *ProductStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.pg, err = testutil.StartPostgres(s.ctx)
	require.NoError(s.T(), err, "Failed to start PostgreSQL")
	s.store = NewPgStore(s.pg.Pool)
}

func (s *ProductStoreSuite) TearDownSuite() {
	if s.pg != nil {
		s.pg.Terminate(s.ctx)
	}
}

// SetupTest starts every test from an empty table.
func (s *ProductStoreSuite) SetupTest() {
	require.NoError(s.T(), s.pg.Truncate(s.ctx), "Failed to truncate products table")
}

func TestProductStoreIntegration(t *testing.T) {
	if os.Getenv(testutil.SkipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + testutil.SkipIntegrationTests + " env var")
	}
	suite.Run(t, new(ProductStoreSuite))
}

func (s *ProductStoreSuite) seed(rows ...testutil.ProductRow) {
	s.T().Helper()
	require.NoError(s.T(), s.pg.InsertProducts(s.ctx, rows...), "seed failed")
}

var (
	book = testutil.ProductRow{
		ID: "P1", Name: "The Go Programming Language", Description: "Donovan and Kernighan",
		UnitPrice: "39.99", Category: "Books", Manufacturer: "Addison-Wesley", Condition: "new",
		UnitsInStock: 5, UnitsInOrder: 2, Discounted: false,
	}
	phone = testutil.ProductRow{
		ID: "P2", Name: "Pixel 8", Description: "Android phone",
		UnitPrice: "599.00", Category: "Phones", Manufacturer: "Google", Condition: "refurbished",
		UnitsInStock: 40, UnitsInOrder: 0, Discounted: true,
	}
	usedBook = testutil.ProductRow{
		ID: "P3", Name: "Structure and Interpretation of Computer Programs", Description: "",
		UnitPrice: "0.00", Category: "Books", Manufacturer: "MIT Press", Condition: "used",
		UnitsInStock: 0, UnitsInOrder: 7, Discounted: true,
	}
)

func toProduct(r testutil.ProductRow) Product {
	return Product{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		UnitPrice:    decimal.RequireFromString(r.UnitPrice),
		Category:     r.Category,
		Manufacturer: r.Manufacturer,
		Condition:    r.Condition,
		UnitsInStock: r.UnitsInStock,
		UnitsInOrder: r.UnitsInOrder,
		Discounted:   r.Discounted,
	}
}

// assertProductsMatch compares ignoring order; prices are compared numerically since
// decimal.Decimal keeps the scale reported by the database.
func (s *ProductStoreSuite) assertProductsMatch(expected []testutil.ProductRow, actual []Product) {
	s.T().Helper()
	require.Len(s.T(), actual, len(expected))
	byID := make(map[string]Product, len(actual))
	for _, p := range actual {
		byID[p.ID] = p
	}
	for _, r := range expected {
		got, ok := byID[r.ID]
		require.True(s.T(), ok, "product %s missing", r.ID)
		s.assertProductEqual(toProduct(r), got)
	}
}

func (s *ProductStoreSuite) assertProductEqual(expected, actual Product) {
	s.T().Helper()
	assert.True(s.T(), expected.UnitPrice.Equal(actual.UnitPrice), "unit price: expected %s, got %s", expected.UnitPrice, actual.UnitPrice)
	expected.UnitPrice, actual.UnitPrice = decimal.Zero, decimal.Zero
	assert.Equal(s.T(), expected, actual)
}

func (s *ProductStoreSuite) TestFindAll_Empty() {
	products, err := s.store.FindAll(s.ctx)

	require.NoError(s.T(), err)
	assert.NotNil(s.T(), products)
	assert.Empty(s.T(), products)
}

func (s *ProductStoreSuite) TestFindAll_RoundTrip() {
	s.seed(book, phone, usedBook)

	products, err := s.store.FindAll(s.ctx)

	require.NoError(s.T(), err)
	s.assertProductsMatch([]testutil.ProductRow{book, phone, usedBook}, products)
}

func (s *ProductStoreSuite) TestFindByID() {
	s.seed(book, phone)

	product, err := s.store.FindByID(s.ctx, phone.ID)

	require.NoError(s.T(), err)
	require.NotNil(s.T(), product)
	s.assertProductEqual(toProduct(phone), *product)
}

func (s *ProductStoreSuite) TestFindByID_NotFound() {
	s.seed(book)

	product, err := s.store.FindByID(s.ctx, "missing")

	require.ErrorIs(s.T(), err, perrors.ErrProductNotFound)
	assert.Nil(s.T(), product)
}

func (s *ProductStoreSuite) TestFindByCategory() {
	s.seed(book, phone, usedBook)

	tests := []struct {
		name     string
		category string
		expected []testutil.ProductRow
	}{
		{name: "two books", category: "Books", expected: []testutil.ProductRow{book, usedBook}},
		{name: "one phone", category: "Phones", expected: []testutil.ProductRow{phone}},
		{name: "case sensitive", category: "books", expected: nil},
		{name: "unknown", category: "Garden", expected: nil},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			products, err := s.store.FindByCategory(s.ctx, tt.category)

			require.NoError(s.T(), err)
			s.assertProductsMatch(tt.expected, products)
		})
	}
}

func (s *ProductStoreSuite) TestUpdateStock_ThenLookup() {
	s.seed(book)

	for _, n := range []int64{0, 1, 12, 1_000_000} {
		rows, err := s.store.UpdateStock(s.ctx, book.ID, n)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), int64(1), rows)

		product, err := s.store.FindByID(s.ctx, book.ID)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), n, product.UnitsInStock)
	}
}

// TestUpdateStock_BooksScenario sets P1 from 5 to 12 and checks nothing else moved.
func (s *ProductStoreSuite) TestUpdateStock_BooksScenario() {
	s.seed(book, phone)

	rows, err := s.store.UpdateStock(s.ctx, "P1", 12)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(1), rows)

	product, err := s.store.FindByID(s.ctx, "P1")
	require.NoError(s.T(), err)
	expected := toProduct(book)
	expected.UnitsInStock = 12
	s.assertProductEqual(expected, *product)

	other, err := s.store.FindByID(s.ctx, phone.ID)
	require.NoError(s.T(), err)
	s.assertProductEqual(toProduct(phone), *other)
}

func (s *ProductStoreSuite) TestUpdateStock_UnknownID() {
	s.seed(book, phone)

	rows, err := s.store.UpdateStock(s.ctx, "missing", 99)

	require.NoError(s.T(), err)
	assert.Zero(s.T(), rows)
	products, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	s.assertProductsMatch([]testutil.ProductRow{book, phone}, products)
}

func (s *ProductStoreSuite) TestUpdateStock_NegativeRejectedByTable() {
	s.seed(book)

	_, err := s.store.UpdateStock(s.ctx, book.ID, -1)

	require.Error(s.T(), err)
	product, err := s.store.FindByID(s.ctx, book.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), book.UnitsInStock, product.UnitsInStock)
}

func (s *ProductStoreSuite) TestFindAll_CanceledContext() {
	s.seed(book)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	products, err := s.store.FindAll(ctx)

	require.Error(s.T(), err)
	assert.Nil(s.T(), products)
}
