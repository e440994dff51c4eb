// Package jobs defines the background task types and the Asynq worker that
// processes them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceGenerate renders and stores the invoice PDF for an order.
	TaskInvoiceGenerate = "invoice:generate"
	// TaskCatalogWarmup pre-populates the merged catalog cache.
	TaskCatalogWarmup = "catalog:warmup"
	// TaskLowStockScan looks for products running low and alerts operations.
	TaskLowStockScan = "stock:lowscan"
)

// InvoiceGeneratePayload identifies the order to invoice.
type InvoiceGeneratePayload struct {
	OrderID string `json:"orderId"`
}

// NewInvoiceGenerateTask constructs an invoice generation task.
func NewInvoiceGenerateTask(payload InvoiceGeneratePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceGenerate, data), nil
}

// CatalogWarmupPayload selects which slices of the catalog to warm.
type CatalogWarmupPayload struct {
	Categories []string `json:"categories,omitempty"`
}

// NewCatalogWarmupTask constructs a catalog warmup task.
func NewCatalogWarmupTask(payload CatalogWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, data), nil
}

// LowStockScanPayload configures the low stock sweep.
type LowStockScanPayload struct {
	Threshold int `json:"threshold,omitempty"`
}

// NewLowStockScanTask constructs a low stock scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
