package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/abgdnv/catalog/internal/store"
	"github.com/abgdnv/catalog/pkg/messaging"
	"github.com/abgdnv/catalog/pkg/messaging/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// mockProductStore is a mock implementation of the ProductStore interface
type mockProductStore struct {
	products []store.Product
	product  *store.Product
	rows     int64
	error    error

	calls        int
	lastCategory string
	lastID       string
	lastCount    int64
}

func (m *mockProductStore) FindAll(_ context.Context) ([]store.Product, error) {
	m.calls++
	return m.products, m.error
}

func (m *mockProductStore) FindByID(_ context.Context, id string) (*store.Product, error) {
	m.calls++
	m.lastID = id
	return m.product, m.error
}

func (m *mockProductStore) FindByCategory(_ context.Context, category string) ([]store.Product, error) {
	m.calls++
	m.lastCategory = category
	return m.products, m.error
}

func (m *mockProductStore) UpdateStock(_ context.Context, id string, count int64) (int64, error) {
	m.calls++
	m.lastID = id
	m.lastCount = count
	return m.rows, m.error
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event messaging.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var (
	goBook = store.Product{
		ID: "P1", Name: "The Go Programming Language", UnitPrice: decimal.RequireFromString("39.99"),
		Category: "Books", Manufacturer: "Addison-Wesley", Condition: "new", UnitsInStock: 5,
	}
	usedBook = store.Product{
		ID: "P2", Name: "SICP", UnitPrice: decimal.RequireFromString("12.50"),
		Category: "Books", Manufacturer: "MIT Press", Condition: "used", UnitsInStock: 1,
	}
	phone = store.Product{
		ID: "P3", Name: "Pixel 8", UnitPrice: decimal.RequireFromString("599.00"),
		Category: "Phones", Manufacturer: "Google", Condition: "refurbished", UnitsInStock: 40, Discounted: true,
	}
	catalog = []store.Product{goBook, usedBook, phone}
)

func ids(dtos []ProductDto) []string {
	out := make([]string, len(dtos))
	for i, d := range dtos {
		out[i] = d.ID
	}
	return out
}

func Test_ProductService_GetAllProducts(t *testing.T) {
	ErrStoreError := errors.New("store error")
	testCases := []struct {
		name        string
		mockStore   *mockProductStore
		expected    []ProductDto
		expectError error
	}{
		{
			name:      "Success - products found",
			mockStore: &mockProductStore{products: []store.Product{goBook}},
			expected:  []ProductDto{toDto(goBook)},
		},
		{
			name:      "Success - no products",
			mockStore: &mockProductStore{products: []store.Product{}},
			expected:  []ProductDto{},
		},
		{
			name:        "Error - store error",
			mockStore:   &mockProductStore{error: ErrStoreError},
			expectError: ErrStoreError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := NewService(tc.mockStore, nil, discardLogger())
			// when
			found, err := service.GetAllProducts(context.Background())
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, found)
		})
	}
}

func Test_ProductService_GetProductsByCategory(t *testing.T) {
	ErrStoreError := errors.New("store error")
	testCases := []struct {
		name        string
		mockStore   *mockProductStore
		category    string
		expected    []string
		expectError error
		storeCalled bool
	}{
		{
			name:        "Success - category delegated to store",
			mockStore:   &mockProductStore{products: []store.Product{goBook, usedBook}},
			category:    "Books",
			expected:    []string{"P1", "P2"},
			storeCalled: true,
		},
		{
			name:        "Success - no match",
			mockStore:   &mockProductStore{products: []store.Product{}},
			category:    "Garden",
			expected:    []string{},
			storeCalled: true,
		},
		{
			name:        "Error - empty category",
			mockStore:   &mockProductStore{},
			category:    "",
			expectError: perrors.ErrInvalidFilter,
		},
		{
			name:        "Error - store error",
			mockStore:   &mockProductStore{error: ErrStoreError},
			category:    "Books",
			expectError: ErrStoreError,
			storeCalled: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := NewService(tc.mockStore, nil, discardLogger())
			// when
			found, err := service.GetProductsByCategory(context.Background(), tc.category)
			// then
			assert.Equal(t, tc.storeCalled, tc.mockStore.calls > 0)
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.category, tc.mockStore.lastCategory)
			assert.Equal(t, tc.expected, ids(found))
		})
	}
}

func Test_ProductService_GetProductsByParams(t *testing.T) {
	testCases := []struct {
		name        string
		params      map[string][]string
		expected    []string
		expectError error
	}{
		{name: "empty map returns all", params: map[string][]string{}, expected: []string{"P1", "P2", "P3"}},
		{name: "nil map returns all", params: nil, expected: []string{"P1", "P2", "P3"}},
		{name: "single key", params: map[string][]string{"category": {"Books"}}, expected: []string{"P1", "P2"}},
		{name: "values are ORed", params: map[string][]string{"condition": {"used", "refurbished"}}, expected: []string{"P2", "P3"}},
		{
			name:     "keys are ANDed",
			params:   map[string][]string{"category": {"Books"}, "condition": {"new"}},
			expected: []string{"P1"},
		},
		{name: "brand aliases manufacturer", params: map[string][]string{"brand": {"Google"}}, expected: []string{"P3"}},
		{
			name:     "brand and manufacturer merge",
			params:   map[string][]string{"brand": {"Google"}, "manufacturer": {"MIT Press"}},
			expected: []string{"P2", "P3"},
		},
		{name: "case sensitive", params: map[string][]string{"category": {"books"}}, expected: []string{}},
		{name: "empty value list matches nothing", params: map[string][]string{"category": {}}, expected: []string{}},
		{name: "unknown key", params: map[string][]string{"color": {"red"}}, expectError: perrors.ErrInvalidFilter},
		{name: "key is case sensitive", params: map[string][]string{"Category": {"Books"}}, expectError: perrors.ErrInvalidFilter},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mockStore := &mockProductStore{products: catalog}
			service := NewService(mockStore, nil, discardLogger())
			// when
			found, err := service.GetProductsByParams(context.Background(), tc.params)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, found)
				assert.Zero(t, mockStore.calls, "store must not be queried for an invalid filter")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ids(found))
		})
	}
}

func Test_ProductService_GetProductsByParams_StoreError(t *testing.T) {
	// given
	ErrStoreError := errors.New("store error")
	service := NewService(&mockProductStore{error: ErrStoreError}, nil, discardLogger())
	// when
	found, err := service.GetProductsByParams(context.Background(), map[string][]string{"category": {"Books"}})
	// then
	assert.ErrorIs(t, err, ErrStoreError)
	assert.Nil(t, found)
}

func Test_ProductService_GetProductByID(t *testing.T) {
	ErrStoreError := errors.New("connection reset")
	testCases := []struct {
		name        string
		mockStore   *mockProductStore
		productID   string
		expected    *ProductDto
		expectError error
	}{
		{
			name:      "Success - product found",
			mockStore: &mockProductStore{product: &phone},
			productID: "P3",
			expected: &ProductDto{
				ID: "P3", Name: "Pixel 8", UnitPrice: decimal.RequireFromString("599.00"),
				Category: "Phones", Manufacturer: "Google", Condition: "refurbished", UnitsInStock: 40, Discounted: true,
			},
		},
		{
			name:        "Error - product not found",
			mockStore:   &mockProductStore{error: perrors.ErrProductNotFound},
			productID:   "missing",
			expectError: perrors.ErrProductNotFound,
		},
		{
			name:        "Error - store error is not a missing product",
			mockStore:   &mockProductStore{error: ErrStoreError},
			productID:   "P3",
			expectError: ErrStoreError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := NewService(tc.mockStore, nil, discardLogger())
			// when
			found, err := service.GetProductByID(context.Background(), tc.productID)
			// then
			assert.Equal(t, tc.productID, tc.mockStore.lastID)
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				if !errors.Is(tc.expectError, perrors.ErrProductNotFound) {
					assert.NotErrorIs(t, err, perrors.ErrProductNotFound)
				}
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, found)
		})
	}
}

func Test_ProductService_UpdateStock(t *testing.T) {
	ErrStoreError := errors.New("store error")
	ErrPublishError := errors.New("nats down")
	updatedAt := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		name          string
		mockStore     *mockProductStore
		count         int64
		publishError  error
		expectPublish bool
		expected      int64
		expectError   error
		expectLog     string
	}{
		{
			name:          "Success - row updated and announced",
			mockStore:     &mockProductStore{rows: 1},
			count:         12,
			expectPublish: true,
			expected:      1,
		},
		{
			name:      "Success - unknown id is a no-op",
			mockStore: &mockProductStore{rows: 0},
			count:     12,
			expected:  0,
		},
		{
			name:          "Success - zero stock",
			mockStore:     &mockProductStore{rows: 1},
			count:         0,
			expectPublish: true,
			expected:      1,
		},
		{
			name:          "Success - publish failure is only logged",
			mockStore:     &mockProductStore{rows: 1},
			count:         3,
			publishError:  ErrPublishError,
			expectPublish: true,
			expected:      1,
			expectLog:     "Failed to publish StockUpdatedEvent",
		},
		{
			name:        "Error - negative count",
			mockStore:   &mockProductStore{rows: 1},
			count:       -1,
			expectError: perrors.ErrInvalidStock,
		},
		{
			name:        "Error - store error",
			mockStore:   &mockProductStore{error: ErrStoreError},
			count:       7,
			expectError: ErrStoreError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var logs bytes.Buffer
			publisher := new(mockPublisher)
			expectedEvent := events.StockUpdatedEvent{ProductID: "P1", UnitsInStock: tc.count, UpdatedAt: updatedAt}
			if tc.expectPublish {
				publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e messaging.Event) bool {
					ev, ok := e.(events.StockUpdatedEvent)
					if !ok {
						return false
					}
					return ev.ProductID == expectedEvent.ProductID &&
						ev.UnitsInStock == expectedEvent.UnitsInStock &&
						ev.UpdatedAt.Equal(expectedEvent.UpdatedAt)
				})).Return(tc.publishError).Once()
			}
			service := NewService(tc.mockStore, publisher, slog.New(slog.NewTextHandler(&logs, nil)))
			service.now = func() time.Time { return updatedAt }
			// when
			rows, err := service.UpdateStock(context.Background(), "P1", tc.count)
			// then
			publisher.AssertExpectations(t)
			if !tc.expectPublish {
				publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			}
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Zero(t, rows)
				if errors.Is(tc.expectError, perrors.ErrInvalidStock) {
					assert.Zero(t, tc.mockStore.calls, "store must not be called for a negative count")
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, rows)
			assert.Equal(t, "P1", tc.mockStore.lastID)
			assert.Equal(t, tc.count, tc.mockStore.lastCount)
			if tc.expectLog != "" {
				assert.Contains(t, logs.String(), tc.expectLog)
			}
		})
	}
}

func Test_ProductService_UpdateStock_WithoutPublisher(t *testing.T) {
	// given
	service := NewService(&mockProductStore{rows: 1}, nil, discardLogger())
	// when
	rows, err := service.UpdateStock(context.Background(), "P1", 4)
	// then
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
}

func Test_ProductService_UpdateStock_CountsRequests(t *testing.T) {
	// given
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	mockStore := &mockProductStore{rows: 1}
	service := NewService(mockStore, nil, discardLogger())

	// when
	_, err := service.UpdateStock(context.Background(), "P1", 1)
	require.NoError(t, err)
	mockStore.rows = 0
	_, err = service.UpdateStock(context.Background(), "missing", 1)
	require.NoError(t, err)
	_, err = service.UpdateStock(context.Background(), "P1", -5)
	require.Error(t, err)

	// then
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	counts := map[bool]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "catalog_stock_updates" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("matched"))
				counts[v.AsBool()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[bool]int64{true: 1, false: 1}, counts)
}
