// Package rest provides HTTP handlers for the catalog.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	perrors "github.com/abgdnv/catalog/internal/errors"
	"github.com/abgdnv/catalog/internal/service"
	"github.com/abgdnv/catalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// StockUpdateResult reports how many rows a stock update touched.
type StockUpdateResult struct {
	Updated int64 `json:"updated"`
}

// NewHandler creates a new Handler over the catalog service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the catalog.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Get("/category/{category}", h.FindByCategory)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/stock", h.UpdateStock)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindAll lists every product, or the products matching the query parameters when any are given.
// Repeated values of one parameter mean OR.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	query := r.URL.Query()

	var (
		list []service.ProductDto
		err  error
	)
	if len(query) == 0 {
		mLogger.DebugContext(r.Context(), "Received request to find all products")
		list, err = h.service.GetAllProducts(r.Context())
	} else {
		params := parseFilterParams(query)
		mLogger.DebugContext(r.Context(), "Received request to find products by params", "params", params)
		list, err = h.service.GetProductsByParams(r.Context(), params)
	}
	if err != nil {
		if errors.Is(err, perrors.ErrInvalidFilter) {
			mLogger.WarnContext(r.Context(), "Invalid product filter", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByCategory lists the products of one category.
func (h *Handler) FindByCategory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	category, err := pathParam(r, "category")
	if err != nil {
		mLogger.WarnContext(r.Context(), "Malformed category in path", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid category")
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find products by category", "category", category)
	list, err := h.service.GetProductsByCategory(r.Context(), category)
	if err != nil {
		if errors.Is(err, perrors.ErrInvalidFilter) {
			mLogger.WarnContext(r.Context(), "Invalid category", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving products by category", "category", category, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch products of category %s", category))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved products by category", "category", category, "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, err := pathParam(r, "id")
	if err != nil {
		mLogger.WarnContext(r.Context(), "Malformed product ID in path", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid product ID")
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve product with ID %s", id))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Name", found.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// UpdateStock assigns the units in stock of a product. An unknown ID is not an error
// and reports zero updated rows.
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, err := pathParam(r, "id")
	if err != nil {
		mLogger.WarnContext(r.Context(), "Malformed product ID in path", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid product ID")
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to update stock for product", "ID", id)
	var stockUpdateDTO service.StockUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&stockUpdateDTO); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(stockUpdateDTO); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}

	updated, err := h.service.UpdateStock(r.Context(), id, *stockUpdateDTO.UnitsInStock)
	if err != nil {
		if errors.Is(err, perrors.ErrInvalidStock) {
			mLogger.WarnContext(r.Context(), "Invalid stock value", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
			return
		}
		mLogger.ErrorContext(r.Context(), "Error updating stock for product", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to update stock for product with ID %s", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Stock update applied", "ID", id, "NewStock", *stockUpdateDTO.UnitsInStock, "updated", updated)
	web.RespondJSON(w, mLogger, http.StatusOK, StockUpdateResult{Updated: updated})
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

// pathParam returns a decoded URL parameter. chi matches against the escaped path
// when the request carries one, so segments like "Home%2FGarden" arrive undecoded.
func pathParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}

// parseFilterParams keeps values verbatim and drops empty ones, so ?category=
// keeps the key with no values. Repeating a key is the only way to give several values.
func parseFilterParams(query map[string][]string) map[string][]string {
	params := make(map[string][]string, len(query))
	for key, raw := range query {
		values := make([]string, 0, len(raw))
		for _, v := range raw {
			if v != "" {
				values = append(values, v)
			}
		}
		params[key] = values
	}
	return params
}
