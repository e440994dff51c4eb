package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/exotic-pets/exotic-pets/internal/observability"
	"github.com/exotic-pets/exotic-pets/internal/shared"
)

// ServiceConfig groups tunables for the merge layer.
type ServiceConfig struct {
	// CacheTTL bounds the lifetime of merged results. Defaults to 5 minutes.
	CacheTTL time.Duration
	// EnrichConcurrency bounds parallel editorial lookups for list queries.
	EnrichConcurrency int
}

// Service is the hybrid merge layer. It is a stateless request/merge/cache
// pipeline whose only mutable state is the cache it owns.
type Service struct {
	products    ProductStore
	editorial   EditorialStore
	cache       *Cache
	logger      *slog.Logger
	metrics     *observability.Metrics
	enrichLimit int
}

// NewService wires the merge layer. The cache is constructed here, once per
// service instance.
func NewService(products ProductStore, editorial EditorialStore, cfg ServiceConfig, logger *slog.Logger, metrics *observability.Metrics) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	limit := cfg.EnrichConcurrency
	if limit < 1 {
		limit = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		products:    products,
		editorial:   editorial,
		cache:       NewCache(ttl),
		logger:      logger,
		metrics:     metrics,
		enrichLimit: limit,
	}
}

func productCacheKey(id string) string {
	return "product_" + id
}

// GetProduct returns the merged view for a single product. The transactional
// record is mandatory; editorial enrichment is best effort.
func (s *Service) GetProduct(ctx context.Context, id string) (MergedProduct, error) {
	if id == "" {
		return MergedProduct{}, fmt.Errorf("catalog: product id required: %w", shared.ErrInvalidInput)
	}

	key := productCacheKey(id)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.CacheEvent("hit")
		return cached.(MergedProduct), nil
	}
	s.metrics.CacheEvent("miss")

	record, err := s.products.GetProduct(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.metrics.UpstreamError("products")
		}
		return MergedProduct{}, fmt.Errorf("catalog: get product %s: %w", id, err)
	}

	merged := merge(record, s.enrich(ctx, record))
	s.cache.Set(key, merged)
	return merged, nil
}

// GetProducts returns merged views for every product matching the filters.
// Editorial lookups run concurrently with settle-all semantics: one failed
// lookup degrades that record to transactional-only and never affects its
// siblings. Order is preserved as returned by the transactional store.
func (s *Service) GetProducts(ctx context.Context, filters Filters) ([]MergedProduct, error) {
	key := filters.Signature()
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.CacheEvent("hit")
		return cached.([]MergedProduct), nil
	}
	s.metrics.CacheEvent("miss")

	records, err := s.products.ListProducts(ctx, filters)
	if err != nil {
		s.metrics.UpstreamError("products")
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}

	merged := make([]MergedProduct, len(records))
	// No errgroup.WithContext here: a failed lookup must not cancel sibling
	// lookups, and enrich never returns an error.
	var g errgroup.Group
	g.SetLimit(s.enrichLimit)
	for i, record := range records {
		g.Go(func() error {
			merged[i] = merge(record, s.enrich(ctx, record))
			return nil
		})
	}
	_ = g.Wait()

	s.cache.Set(key, merged)
	return merged, nil
}

// GetFeaturedProducts is sugar for GetProducts with the featured filter.
func (s *Service) GetFeaturedProducts(ctx context.Context) ([]MergedProduct, error) {
	featured := true
	return s.GetProducts(ctx, Filters{Featured: &featured})
}

// GetProductsByCategory is sugar for GetProducts with a category filter.
func (s *Service) GetProductsByCategory(ctx context.Context, category string) ([]MergedProduct, error) {
	return s.GetProducts(ctx, Filters{Category: category})
}

// SearchProducts is sugar for GetProducts with a search term.
func (s *Service) SearchProducts(ctx context.Context, term string) ([]MergedProduct, error) {
	return s.GetProducts(ctx, Filters{Search: term})
}

// UpdateStock writes the new quantity through to the transactional store and
// evicts the single-product cache entry. List entries expire on their own
// TTL, so a list view may show stale stock for up to one window.
func (s *Service) UpdateStock(ctx context.Context, id string, stock int) (StockUpdate, error) {
	if id == "" {
		return StockUpdate{}, fmt.Errorf("catalog: product id required: %w", shared.ErrInvalidInput)
	}
	if stock < 0 {
		return StockUpdate{}, fmt.Errorf("catalog: stock must be non-negative: %w", shared.ErrInvalidInput)
	}

	result, err := s.products.UpdateStock(ctx, id, stock)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.metrics.UpstreamError("products")
		}
		return StockUpdate{}, fmt.Errorf("catalog: update stock %s: %w", id, err)
	}

	s.cache.Delete(productCacheKey(id))
	s.metrics.CacheEvent("evict")
	return result, nil
}

// AdjustStock applies a relative stock change in the transactional store and
// evicts the single-product cache entry. The store enforces the
// insufficient-stock guard atomically, so concurrent adjustments never lose
// updates to a stale cached read.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (StockUpdate, error) {
	if id == "" {
		return StockUpdate{}, fmt.Errorf("catalog: product id required: %w", shared.ErrInvalidInput)
	}
	if delta == 0 {
		return StockUpdate{}, fmt.Errorf("catalog: delta must be non-zero: %w", shared.ErrInvalidInput)
	}

	result, err := s.products.AdjustStock(ctx, id, delta)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrInsufficientStock) {
			s.metrics.UpstreamError("products")
		}
		return StockUpdate{}, fmt.Errorf("catalog: adjust stock %s: %w", id, err)
	}

	s.cache.Delete(productCacheKey(id))
	s.metrics.CacheEvent("evict")
	return result, nil
}

// ClearCache drops every cached entry.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// CacheStats reports the cache footprint.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// enrich resolves the editorial record for one product: direct key lookup
// first, then fallback by exact name. Any editorial failure is logged and
// converted into "no enrichment available".
func (s *Service) enrich(ctx context.Context, record ProductRecord) *EditorialRecord {
	entry, err := s.editorial.GetEntry(ctx, record.ContentfulID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.metrics.UpstreamError("editorial")
			s.logger.Warn("editorial key lookup failed",
				slog.String("product", record.ContentfulID),
				slog.Any("error", err))
		}
		entry = nil
	}
	if entry != nil {
		return entry
	}
	if record.Name == "" {
		return nil
	}

	// Name collisions are not disambiguated: the store's first match wins.
	s.logger.Warn("editorial key miss, falling back to name lookup",
		slog.String("product", record.ContentfulID),
		slog.String("name", record.Name))
	entry, err = s.editorial.FindByName(ctx, record.Name)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.metrics.UpstreamError("editorial")
			s.logger.Warn("editorial name lookup failed",
				slog.String("name", record.Name),
				slog.Any("error", err))
		}
		return nil
	}
	return entry
}
