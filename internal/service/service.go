// Package service provides the catalog queries and the stock update over the product store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/abgdnv/catalog/internal/store"
	"github.com/abgdnv/catalog/pkg/messaging"
	"github.com/abgdnv/catalog/pkg/messaging/events"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// ProductService defines the catalog operations.
type ProductService interface {
	// GetAllProducts returns every product.
	// Returns an empty slice if no products exist.
	GetAllProducts(ctx context.Context) ([]ProductDto, error)

	// GetProductsByCategory returns the products whose category equals category exactly.
	// Returns ErrInvalidFilter for an empty category.
	GetProductsByCategory(ctx context.Context, category string) ([]ProductDto, error)

	// GetProductsByParams returns the products matching every given filter key.
	// Returns ErrInvalidFilter for an unknown key.
	GetProductsByParams(ctx context.Context, params map[string][]string) ([]ProductDto, error)

	// GetProductByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	GetProductByID(ctx context.Context, id string) (*ProductDto, error)

	// UpdateStock assigns the units in stock of a product and returns the affected row count.
	// Returns ErrInvalidStock for a negative count. An unknown ID yields zero rows.
	UpdateStock(ctx context.Context, id string, count int64) (int64, error)
}

var _ ProductService = (*Service)(nil)

// Service implements ProductService on top of a store.ProductStore.
type Service struct {
	repository   store.ProductStore
	publisher    messaging.Publisher
	logger       *slog.Logger
	stockCounter metric.Int64Counter
	now          func() time.Time
}

// NewService creates a new instance of ProductService. publisher may be nil, in which
// case stock updates are not announced.
func NewService(repo store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("catalog")
	stockCounter, err := meter.Int64Counter("catalog_stock_updates", metric.WithDescription("Total number of stock update requests"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_stock_updates counter: %v", err))
	}
	return &Service{
		repository:   repo,
		publisher:    publisher,
		logger:       logger,
		stockCounter: stockCounter,
		now:          time.Now,
	}
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Category     string          `json:"category"`
	Manufacturer string          `json:"manufacturer"`
	Condition    string          `json:"condition"`
	UnitsInStock int64           `json:"units_in_stock"`
	UnitsInOrder int64           `json:"units_in_order"`
	Discounted   bool            `json:"discounted"`
}

// StockUpdateDto is the body of a stock update request.
type StockUpdateDto struct {
	UnitsInStock *int64 `json:"units_in_stock" validate:"required,min=0"`
}

// GetAllProducts retrieves every product and returns them as ProductDTOs.
func (s *Service) GetAllProducts(ctx context.Context) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return toDtos(products), nil
}

// GetProductsByCategory retrieves the products of one category.
func (s *Service) GetProductsByCategory(ctx context.Context, category string) ([]ProductDto, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category must not be empty", perrors.ErrInvalidFilter)
	}
	products, err := s.repository.FindByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products by category %s: %w", category, err)
	}
	return toDtos(products), nil
}

// GetProductsByParams filters the full product list in memory.
func (s *Service) GetProductsByParams(ctx context.Context, params map[string][]string) ([]ProductDto, error) {
	filter, err := newFilter(params)
	if err != nil {
		return nil, err
	}
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	matched := make([]store.Product, 0, len(products))
	for _, p := range products {
		if filter.matches(p) {
			matched = append(matched, p)
		}
	}
	return toDtos(matched), nil
}

// GetProductByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) GetProductByID(ctx context.Context, id string) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	dto := toDto(*product)
	return &dto, nil
}

// UpdateStock assigns units in stock and announces the change when a row was updated.
// A failed announcement is logged; the update itself is already committed.
func (s *Service) UpdateStock(ctx context.Context, id string, count int64) (int64, error) {
	if count < 0 {
		return 0, fmt.Errorf("%w: got %d", perrors.ErrInvalidStock, count)
	}
	rows, err := s.repository.UpdateStock(ctx, id, count)
	if err != nil {
		return 0, fmt.Errorf("failed to update stock of product %s: %w", id, err)
	}
	s.stockCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("matched", rows > 0)))

	if rows > 0 && s.publisher != nil {
		carrier := make(propagation.MapCarrier)
		otel.GetTextMapPropagator().Inject(ctx, carrier)
		event := events.StockUpdatedEvent{
			Carrier:      carrier,
			ProductID:    id,
			UnitsInStock: count,
			UpdatedAt:    s.now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish StockUpdatedEvent", "product_id", id, "error", err)
		}
	}
	return rows, nil
}

func toDtos(products []store.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i, p := range products {
		dtos[i] = toDto(p)
	}
	return dtos
}

// toDto converts a store.Product to a ProductDto.
func toDto(p store.Product) ProductDto {
	return ProductDto{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		UnitPrice:    p.UnitPrice,
		Category:     p.Category,
		Manufacturer: p.Manufacturer,
		Condition:    p.Condition,
		UnitsInStock: p.UnitsInStock,
		UnitsInOrder: p.UnitsInOrder,
		Discounted:   p.Discounted,
	}
}
