package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/exotic-pets/exotic-pets/internal/orders"
)

// OrderReader fetches the order being invoiced.
type OrderReader interface {
	Get(ctx context.Context, id string) (orders.Order, error)
}

// Mailer sends the invoice to the customer. Optional.
type Mailer interface {
	SendInvoice(ctx context.Context, to, orderNumber string, pdf []byte) error
}

// Generator produces and stores invoice PDFs for orders.
type Generator struct {
	orders   OrderReader
	renderer *Renderer
	mailer   Mailer
	dir      string
	logger   *slog.Logger
	now      func() time.Time
}

// NewGenerator builds a Generator writing PDFs under dir.
func NewGenerator(reader OrderReader, renderer *Renderer, mailer Mailer, dir string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		orders:   reader,
		renderer: renderer,
		mailer:   mailer,
		dir:      dir,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate renders the invoice for orderID, writes it to disk and mails it.
// It returns the path of the stored PDF.
func (g *Generator) Generate(ctx context.Context, orderID string) (string, error) {
	order, err := g.orders.Get(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("invoice: load order %s: %w", orderID, err)
	}

	doc := DocumentFromOrder(order, g.now().UTC())
	result, err := g.renderer.Render(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("invoice: render order %s: %w", orderID, err)
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("invoice: prepare storage dir: %w", err)
	}
	path := filepath.Join(g.dir, fmt.Sprintf("%s.pdf", order.Number))
	if err := os.WriteFile(path, result.PDF, 0o644); err != nil {
		return "", fmt.Errorf("invoice: store pdf for order %s: %w", orderID, err)
	}

	if g.mailer != nil {
		if err := g.mailer.SendInvoice(ctx, order.CustomerEmail, order.Number, result.PDF); err != nil {
			// The invoice is already persisted, delivery can be retried.
			g.logger.Error("invoice: send failed", slog.String("order", orderID), slog.Any("error", err))
		}
	}
	return path, nil
}

// DocumentFromOrder maps an order into a renderable invoice document.
func DocumentFromOrder(order orders.Order, issuedAt time.Time) Document {
	doc := Document{
		OrderID:       order.ID,
		Number:        order.Number,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		ShippingCity:  order.ShippingCity,
		ShippingLine:  order.ShippingLine,
		Subtotal:      order.Subtotal,
		Total:         order.Total,
		IssuedAt:      issuedAt,
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, Line{
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		})
	}
	return doc
}
