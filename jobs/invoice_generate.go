package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/exotic-pets/exotic-pets/internal/invoice"
	jobmetrics "github.com/exotic-pets/exotic-pets/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// InvoiceGenerateJob renders the invoice PDF for a completed order.
type InvoiceGenerateJob struct {
	Generator *invoice.Generator
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewInvoiceGenerateJob wires dependencies for the invoice handler.
func NewInvoiceGenerateJob(gen *invoice.Generator, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoiceGenerateJob {
	return &InvoiceGenerateJob{Generator: gen, Logger: logger, Metrics: metrics}
}

// Handle processes invoice generation tasks.
func (j *InvoiceGenerateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Generator == nil {
		return errors.New("invoice generate: handler not configured")
	}
	var payload InvoiceGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OrderID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskInvoiceGenerate)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("order", payload.OrderID))
	path, err := j.Generator.Generate(ctx, payload.OrderID)
	if err != nil {
		resultErr = err
		logger.Error("invoice generation failed", slog.Any("error", err))
		return resultErr
	}
	logger.Info("invoice generated", slog.String("path", path))
	return resultErr
}

func (j *InvoiceGenerateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoiceGenerate))
	}
	return slog.Default().With(slog.String("job", TaskInvoiceGenerate))
}

func (j *InvoiceGenerateJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
