package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/exotic-pets/exotic-pets/internal/catalog"
	"github.com/exotic-pets/exotic-pets/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	NextNumber(ctx context.Context, date time.Time) (string, error)
}

// CatalogPort is the slice of the merge layer the order flow needs. Stock
// moves through relative adjustments so concurrent orders never clobber each
// other, and the per-product cache entry is evicted on every change.
type CatalogPort interface {
	GetProduct(ctx context.Context, id string) (catalog.MergedProduct, error)
	AdjustStock(ctx context.Context, id string, delta int) (catalog.StockUpdate, error)
}

// IdempotencyPort guards against duplicate order submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// InvoicePort enqueues invoice generation after an order is accepted.
type InvoicePort interface {
	EnqueueInvoice(ctx context.Context, orderID string) error
}

const orderCurrency = "COP"

// Service coordinates order intake and fulfilment transitions.
type Service struct {
	repo        RepositoryPort
	catalog     CatalogPort
	idempotency IdempotencyPort
	invoices    InvoicePort
	validate    *validator.Validate
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. The idempotency and invoice ports are optional.
func NewService(repo RepositoryPort, cat CatalogPort, idem IdempotencyPort, invoices InvoicePort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		catalog:     cat,
		idempotency: idem,
		invoices:    invoices,
		validate:    validator.New(),
		logger:      logger,
		now:         time.Now,
	}
}

// Create validates the request, captures authoritative prices, persists the
// order and decrements stock per line.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, idemKey string) (Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return Order{}, fmt.Errorf("orders: %v: %w", err, shared.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ProductID] {
			return Order{}, fmt.Errorf("orders: duplicate line for product %s: %w", item.ProductID, shared.ErrInvalidInput)
		}
		seen[item.ProductID] = true
	}

	insertedKey := false
	if s.idempotency != nil && idemKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "orders"); err != nil {
			return Order{}, err
		}
		insertedKey = true
	}

	order, err := s.create(ctx, req)
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return Order{}, err
	}
	return order, nil
}

func (s *Service) create(ctx context.Context, req CreateOrderRequest) (Order, error) {
	now := s.now().UTC()
	order := Order{
		ID:            uuid.NewString(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		ShippingCity:  req.ShippingCity,
		ShippingLine:  req.ShippingLine,
		Status:        StatusPending,
		Currency:      orderCurrency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Authoritative prices come from the transactional store, never from
	// whatever the client submitted. The stock guard lives in the store's
	// atomic adjustment below, not in this read, which may be cached.
	for _, line := range req.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return Order{}, fmt.Errorf("orders: verify product %s: %w", line.ProductID, err)
		}
		item := OrderItem{
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
			LineTotal:   product.Price * float64(line.Quantity),
		}
		order.Items = append(order.Items, item)
		order.Subtotal += item.LineTotal
	}
	order.Total = order.Subtotal

	// Claim stock line by line with atomic relative decrements. A line that
	// cannot be covered releases every claim made so far.
	var claimed []OrderItem
	for _, item := range order.Items {
		if _, err := s.catalog.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			s.releaseStock(ctx, order.ID, claimed)
			return Order{}, fmt.Errorf("orders: reserve stock for %s: %w", item.ProductID, err)
		}
		claimed = append(claimed, item)
	}

	number, err := s.repo.NextNumber(ctx, now)
	if err != nil {
		s.releaseStock(ctx, order.ID, claimed)
		return Order{}, fmt.Errorf("orders: allocate number: %w", err)
	}
	order.Number = number

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, item := range order.Items {
			if err := tx.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.releaseStock(ctx, order.ID, claimed)
		return Order{}, err
	}

	if s.invoices != nil {
		if err := s.invoices.EnqueueInvoice(ctx, order.ID); err != nil {
			s.logger.Error("orders: enqueue invoice failed", slog.String("order", order.ID), slog.Any("error", err))
		}
	}
	return order, nil
}

// Get returns a single order with items.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	if id == "" {
		return Order{}, fmt.Errorf("orders: id required: %w", shared.ErrInvalidInput)
	}
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	if filter.Status != nil && !ValidStatus(*filter.Status) {
		return nil, fmt.Errorf("orders: unknown status %q: %w", *filter.Status, shared.ErrInvalidInput)
	}
	return s.repo.List(ctx, filter)
}

// Transition moves an order along the fulfilment chain.
func (s *Service) Transition(ctx context.Context, id string, next Status) (Order, error) {
	if !ValidStatus(next) {
		return Order{}, fmt.Errorf("orders: unknown status %q: %w", next, shared.ErrInvalidInput)
	}
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(order.Status, next) {
		return Order{}, fmt.Errorf("orders: cannot move %s from %s to %s: %w",
			id, order.Status, next, shared.ErrInvalidTransition)
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return Order{}, err
	}
	order.Status = next
	return order, nil
}

// Cancel aborts an order and restores stock for each line.
func (s *Service) Cancel(ctx context.Context, id string) (Order, error) {
	order, err := s.Transition(ctx, id, StatusCancelled)
	if err != nil {
		return Order{}, err
	}
	s.releaseStock(ctx, id, order.Items)
	return order, nil
}

// releaseStock hands claimed quantities back to the store. Failures are
// logged and left to the low-stock sweep to surface; the order outcome is
// already decided by the time this runs.
func (s *Service) releaseStock(ctx context.Context, orderID string, items []OrderItem) {
	for _, item := range items {
		if _, err := s.catalog.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("orders: stock release failed",
				slog.String("order", orderID), slog.String("product", item.ProductID), slog.Any("error", err))
		}
	}
}

// errInvoiceDisabled is returned when no invoice port is wired.
var errInvoiceDisabled = errors.New("orders: invoicing not configured")

// RequestInvoice re-enqueues invoice generation for an existing order.
func (s *Service) RequestInvoice(ctx context.Context, id string) error {
	if s.invoices == nil {
		return errInvoiceDisabled
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.invoices.EnqueueInvoice(ctx, id)
}
