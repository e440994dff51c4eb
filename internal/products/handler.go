package products

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/exotic-pets/exotic-pets/internal/platform/httpx"
	"github.com/exotic-pets/exotic-pets/internal/shared"
)

// Handler exposes the transactional store over HTTP. The merge layer
// consumes these endpoints through its upstream client.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// Routes mounts the product endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Put("/products/{id}/stock", h.UpdateStock)
	r.Post("/products/{id}/stock/adjust", h.AdjustStock)
	r.Get("/categories", h.Categories)
	r.Get("/stats", h.Stats)
}

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	items, err := h.service.List(r.Context(), query)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

// GetProduct handles GET /products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Info("get product", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

type stockRequest struct {
	Stock *float64 `json:"stock"`
}

// UpdateStock handles PUT /products/{id}/stock.
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload stockRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil || payload.Stock == nil {
		httpx.RespondError(w, fmt.Errorf("stock must be a number: %w", shared.ErrInvalidInput))
		return
	}

	result, err := h.service.UpdateStock(r.Context(), id, *payload.Stock)
	if err != nil {
		h.logger.Warn("update stock", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type adjustRequest struct {
	Delta *float64 `json:"delta"`
}

// AdjustStock handles POST /products/{id}/stock/adjust.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload adjustRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil || payload.Delta == nil {
		httpx.RespondError(w, fmt.Errorf("delta must be a number: %w", shared.ErrInvalidInput))
		return
	}

	result, err := h.service.AdjustStock(r.Context(), id, *payload.Delta)
	if err != nil {
		h.logger.Warn("adjust stock", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// Categories handles GET /categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("catalog stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func parseQuery(r *http.Request) (Query, error) {
	q := r.URL.Query()
	query := Query{
		Category:   q.Get("category"),
		Search:     q.Get("search"),
		Difficulty: q.Get("difficulty"),
		Size:       q.Get("size"),
		Color:      q.Get("color"),
	}

	if raw := q.Get("featured"); raw != "" {
		featured := raw == "true"
		query.Featured = &featured
	}
	if raw := q.Get("inStock"); raw != "" {
		inStock := raw == "true"
		query.InStock = &inStock
	}
	if raw := q.Get("minPrice"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Query{}, fmt.Errorf("minPrice must be numeric: %w", shared.ErrInvalidInput)
		}
		query.MinPrice = &value
	}
	if raw := q.Get("maxPrice"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Query{}, fmt.Errorf("maxPrice must be numeric: %w", shared.ErrInvalidInput)
		}
		query.MaxPrice = &value
	}
	if raw := q.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return Query{}, fmt.Errorf("limit must be a non-negative integer: %w", shared.ErrInvalidInput)
		}
		query.Limit = value
	}
	if raw := q.Get("skip"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return Query{}, fmt.Errorf("skip must be a non-negative integer: %w", shared.ErrInvalidInput)
		}
		query.Skip = value
	}
	return query, nil
}
