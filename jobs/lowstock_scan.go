package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/exotic-pets/exotic-pets/internal/jobs"
	"github.com/exotic-pets/exotic-pets/internal/products"
)

const defaultLowStockThreshold = 5

// ProductLister is the slice of the product store the scan reads from.
type ProductLister interface {
	List(ctx context.Context, query products.Query) ([]products.Product, error)
}

// AlertMailer delivers the low stock summary.
type AlertMailer interface {
	SendLowStockAlert(ctx context.Context, to string, lines []string) error
}

// LowStockScanJob sweeps the product store for items at or below the
// configured threshold and alerts operations.
type LowStockScanJob struct {
	Products  ProductLister
	Mailer    AlertMailer
	AlertTo   string
	Threshold int
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(lister ProductLister, mailer AlertMailer, alertTo string, threshold int, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{
		Products:  lister,
		Mailer:    mailer,
		AlertTo:   alertTo,
		Threshold: threshold,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// Handle processes low stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Products == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	threshold := payload.Threshold
	if threshold <= 0 {
		threshold = j.Threshold
	}
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}

	tracker := j.metrics().Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()

	// The storefront caps listings at 50, the sweep must not.
	items, err := j.Products.List(ctx, products.Query{Limit: 1000})
	if err != nil {
		resultErr = err
		logger.Error("list products", slog.Any("error", err))
		return resultErr
	}

	var lines []string
	for _, item := range items {
		if item.Stock <= threshold {
			lines = append(lines, fmt.Sprintf("%s (%s): %d", item.Name, item.ContentfulID, item.Stock))
		}
	}
	if len(lines) == 0 {
		logger.Info("low stock scan completed", slog.Int("flagged", 0))
		return resultErr
	}

	if j.Mailer != nil && j.AlertTo != "" {
		if err := j.Mailer.SendLowStockAlert(ctx, j.AlertTo, lines); err != nil {
			resultErr = err
			logger.Error("send low stock alert", slog.Any("error", err))
			return resultErr
		}
	}
	logger.Info("low stock scan completed", slog.Int("flagged", len(lines)))
	return resultErr
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
