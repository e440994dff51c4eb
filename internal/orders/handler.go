package orders

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/exotic-pets/exotic-pets/internal/platform/httpx"
	"github.com/exotic-pets/exotic-pets/internal/shared"
)

// Handler exposes the order endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	invoiceDir string
}

func NewHandler(logger *slog.Logger, service *Service, invoiceDir string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, invoiceDir: invoiceDir}
}

// Routes mounts the order endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Post("/orders/{id}/status", h.Transition)
	r.Post("/orders/{id}/cancel", h.Cancel)
	r.Post("/orders/{id}/invoice", h.RequestInvoice)
	r.Get("/orders/{id}/invoice", h.DownloadInvoice)
}

// Create handles POST /orders. The Idempotency-Key header deduplicates
// retried submissions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("invalid order payload: %w", shared.ErrInvalidInput))
		return
	}

	order, err := h.service.Create(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.logger.Warn("create order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

// List handles GET /orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Email: q.Get("email")}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	if raw := q.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			httpx.RespondError(w, fmt.Errorf("limit must be a non-negative integer: %w", shared.ErrInvalidInput))
			return
		}
		filter.Limit = value
	}
	if raw := q.Get("offset"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			httpx.RespondError(w, fmt.Errorf("offset must be a non-negative integer: %w", shared.ErrInvalidInput))
			return
		}
		filter.Offset = value
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

// Get handles GET /orders/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Info("get order", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type transitionRequest struct {
	Status Status `json:"status"`
}

// Transition handles POST /orders/{id}/status.
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload transitionRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil || payload.Status == "" {
		httpx.RespondError(w, fmt.Errorf("status required: %w", shared.ErrInvalidInput))
		return
	}

	order, err := h.service.Transition(r.Context(), id, payload.Status)
	if err != nil {
		h.logger.Warn("transition order", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// Cancel handles POST /orders/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.logger.Warn("cancel order", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

// RequestInvoice handles POST /orders/{id}/invoice.
func (h *Handler) RequestInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.RequestInvoice(r.Context(), id); err != nil {
		h.logger.Warn("request invoice", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// DownloadInvoice handles GET /orders/{id}/invoice. The PDF exists only after
// the background job has run; until then the endpoint responds 404.
func (h *Handler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Info("download invoice", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if h.invoiceDir == "" {
		httpx.RespondError(w, fmt.Errorf("invoice storage not configured: %w", shared.ErrNotFound))
		return
	}
	path := filepath.Join(h.invoiceDir, order.Number+".pdf")
	if _, err := os.Stat(path); err != nil {
		httpx.RespondError(w, fmt.Errorf("invoice for order %s not generated: %w", order.Number, shared.ErrNotFound))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", order.Number+".pdf"))
	http.ServeFile(w, r, path)
}
