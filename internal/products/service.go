package products

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/exotic-pets/exotic-pets/internal/shared"
)

const statsCacheKey = "products:stats"

// Service exposes the transactional product operations backed by the
// document store.
type Service struct {
	repo   Repository
	stats  *StatsCache
	logger *slog.Logger
}

func NewService(repo Repository, stats *StatsCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, stats: stats, logger: logger}
}

// List returns active products matching the query.
func (s *Service) List(ctx context.Context, query Query) ([]Product, error) {
	if query.MinPrice != nil && *query.MinPrice < 0 {
		return nil, fmt.Errorf("products: min price must be non-negative: %w", shared.ErrInvalidInput)
	}
	if query.MaxPrice != nil && *query.MaxPrice < 0 {
		return nil, fmt.Errorf("products: max price must be non-negative: %w", shared.ErrInvalidInput)
	}
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MinPrice > *query.MaxPrice {
		return nil, fmt.Errorf("products: min price exceeds max price: %w", shared.ErrInvalidInput)
	}
	if query.Limit < 0 || query.Skip < 0 {
		return nil, fmt.Errorf("products: limit and skip must be non-negative: %w", shared.ErrInvalidInput)
	}
	return s.repo.List(ctx, query)
}

// Get fetches a single product by its contentful id and records the view.
func (s *Service) Get(ctx context.Context, contentfulID string) (Product, error) {
	if contentfulID == "" {
		return Product{}, fmt.Errorf("products: contentful id required: %w", shared.ErrInvalidInput)
	}
	product, err := s.repo.GetByContentfulID(ctx, contentfulID)
	if err != nil {
		return Product{}, err
	}
	if err := s.repo.IncrementViewCount(ctx, contentfulID); err != nil {
		// View counting is best effort and must not fail the read.
		s.logger.Warn("products: increment view count failed", "contentfulId", contentfulID, "error", err)
	} else {
		product.ViewCount++
	}
	return product, nil
}

// UpdateStock sets the absolute stock level for a product.
func (s *Service) UpdateStock(ctx context.Context, contentfulID string, stock float64) (StockResult, error) {
	if contentfulID == "" {
		return StockResult{}, fmt.Errorf("products: contentful id required: %w", shared.ErrInvalidInput)
	}
	if stock < 0 {
		return StockResult{}, fmt.Errorf("products: stock must be non-negative: %w", shared.ErrInvalidInput)
	}
	if stock != math.Trunc(stock) {
		return StockResult{}, fmt.Errorf("products: stock must be a whole number: %w", shared.ErrInvalidInput)
	}
	result, err := s.repo.UpdateStock(ctx, contentfulID, int(stock))
	if err != nil {
		return StockResult{}, err
	}
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx, statsCacheKey); err != nil {
			s.logger.Warn("products: stats cache invalidation failed", "error", err)
		}
	}
	return result, nil
}

// AdjustStock applies a relative stock change. Deltas come from order
// placement (negative) and cancellation (positive); the store enforces the
// insufficient-stock guard atomically.
func (s *Service) AdjustStock(ctx context.Context, contentfulID string, delta float64) (StockResult, error) {
	if contentfulID == "" {
		return StockResult{}, fmt.Errorf("products: contentful id required: %w", shared.ErrInvalidInput)
	}
	if delta == 0 {
		return StockResult{}, fmt.Errorf("products: delta must be non-zero: %w", shared.ErrInvalidInput)
	}
	if delta != math.Trunc(delta) {
		return StockResult{}, fmt.Errorf("products: delta must be a whole number: %w", shared.ErrInvalidInput)
	}
	result, err := s.repo.AdjustStock(ctx, contentfulID, int(delta))
	if err != nil {
		return StockResult{}, err
	}
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx, statsCacheKey); err != nil {
			s.logger.Warn("products: stats cache invalidation failed", "error", err)
		}
	}
	return result, nil
}

// Categories lists the distinct categories of active products.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

// Stats aggregates catalog-wide statistics, served through the cache.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.stats.FetchJSON(ctx, statsCacheKey, &stats, func(ctx context.Context) (interface{}, error) {
		return s.repo.Stats(ctx)
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}
