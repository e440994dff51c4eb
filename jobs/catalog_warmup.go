package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/exotic-pets/exotic-pets/internal/catalog"
	jobmetrics "github.com/exotic-pets/exotic-pets/internal/jobs"
)

// CatalogWarmer is the slice of the merge layer the warmup job drives.
type CatalogWarmer interface {
	GetFeaturedProducts(ctx context.Context) ([]catalog.MergedProduct, error)
	GetProductsByCategory(ctx context.Context, category string) ([]catalog.MergedProduct, error)
}

// CatalogWarmupJob pre-populates the merged catalog cache so storefront
// traffic lands on warm entries after a deploy or cache flush.
type CatalogWarmupJob struct {
	Catalog CatalogWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCatalogWarmupJob wires dependencies for the warmup handler.
func NewCatalogWarmupJob(cat CatalogWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogWarmupJob {
	return &CatalogWarmupJob{Catalog: cat, Logger: logger, Metrics: metrics}
}

// Handle processes catalog warmup tasks.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	var payload CatalogWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskCatalogWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	started := time.Now()

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	featured, err := j.Catalog.GetFeaturedProducts(warmCtx)
	if err != nil {
		resultErr = err
		logger.Error("warm featured products", slog.Any("error", err))
		return resultErr
	}
	warmed := len(featured)

	for _, category := range payload.Categories {
		items, err := j.Catalog.GetProductsByCategory(warmCtx, category)
		if err != nil {
			resultErr = err
			logger.Error("warm category", slog.String("category", category), slog.Any("error", err))
			return resultErr
		}
		warmed += len(items)
	}

	logger.Info("catalog warmup completed",
		slog.Int("products", warmed),
		slog.Int("categories", len(payload.Categories)),
		slog.Duration("duration", time.Since(started)))
	return resultErr
}

func (j *CatalogWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCatalogWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCatalogWarmup))
}

func (j *CatalogWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
