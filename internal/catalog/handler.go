package catalog

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/exotic-pets/exotic-pets/internal/platform/httpx"
	"github.com/exotic-pets/exotic-pets/internal/shared"
)

// Handler exposes the merge layer over HTTP for the presentation layer.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the catalog HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// Routes mounts the catalog endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Get("/products/featured", h.FeaturedProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Put("/products/{id}/stock", h.UpdateStock)
	r.Get("/cache/stats", h.CacheStats)
	r.Delete("/cache", h.ClearCache)
}

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	products, err := h.service.GetProducts(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

// FeaturedProducts handles GET /products/featured.
func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.GetFeaturedProducts(r.Context())
	if err != nil {
		h.logger.Error("featured products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

// GetProduct handles GET /products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.logger.Info("get product", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

type stockUpdateRequest struct {
	Stock *float64 `json:"stock"`
}

// UpdateStock handles PUT /products/{id}/stock.
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload stockUpdateRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil || payload.Stock == nil {
		httpx.RespondError(w, fmt.Errorf("stock must be a number: %w", shared.ErrInvalidInput))
		return
	}
	stock := *payload.Stock
	if stock != float64(int(stock)) {
		httpx.RespondError(w, fmt.Errorf("stock must be an integer: %w", shared.ErrInvalidInput))
		return
	}

	result, err := h.service.UpdateStock(r.Context(), id, int(stock))
	if err != nil {
		h.logger.Warn("update stock", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// CacheStats handles GET /cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.CacheStats())
}

// ClearCache handles DELETE /cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func parseFilters(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	filters := Filters{
		Category:   q.Get("category"),
		Search:     q.Get("search"),
		Difficulty: q.Get("difficulty"),
		Size:       q.Get("size"),
		Color:      q.Get("color"),
	}

	if raw := q.Get("featured"); raw != "" {
		featured := raw == "true"
		filters.Featured = &featured
	}
	if raw := q.Get("inStock"); raw != "" {
		inStock := raw == "true"
		filters.InStock = &inStock
	}
	if raw := q.Get("minPrice"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Filters{}, fmt.Errorf("minPrice must be numeric: %w", shared.ErrInvalidInput)
		}
		filters.MinPrice = &value
	}
	if raw := q.Get("maxPrice"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Filters{}, fmt.Errorf("maxPrice must be numeric: %w", shared.ErrInvalidInput)
		}
		filters.MaxPrice = &value
	}
	if raw := q.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return Filters{}, fmt.Errorf("limit must be a non-negative integer: %w", shared.ErrInvalidInput)
		}
		filters.Limit = value
	}
	if raw := q.Get("skip"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return Filters{}, fmt.Errorf("skip must be a non-negative integer: %w", shared.ErrInvalidInput)
		}
		filters.Skip = value
	}
	return filters, nil
}
