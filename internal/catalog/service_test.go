package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/exotic-pets/exotic-pets/internal/shared"
)

type fakeProductStore struct {
	mu          sync.Mutex
	records     []ProductRecord
	getCalls    int
	listCalls   int
	stockCalls  int
	unavailable bool
}

func (f *fakeProductStore) find(id string) (ProductRecord, bool) {
	for _, record := range f.records {
		if record.ContentfulID == id {
			return record, true
		}
	}
	return ProductRecord{}, false
}

func (f *fakeProductStore) GetProduct(ctx context.Context, id string) (ProductRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.unavailable {
		return ProductRecord{}, fmt.Errorf("connection refused: %w", shared.ErrUpstreamUnavailable)
	}
	record, ok := f.find(id)
	if !ok {
		return ProductRecord{}, shared.ErrNotFound
	}
	return record, nil
}

func (f *fakeProductStore) ListProducts(ctx context.Context, filters Filters) ([]ProductRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.unavailable {
		return nil, fmt.Errorf("connection refused: %w", shared.ErrUpstreamUnavailable)
	}
	var matched []ProductRecord
	for _, record := range f.records {
		if filters.Category != "" && record.Category != filters.Category {
			continue
		}
		if filters.Featured != nil && record.Featured != *filters.Featured {
			continue
		}
		if filters.InStock != nil && record.InStock != *filters.InStock {
			continue
		}
		if filters.MinPrice != nil && record.Price < *filters.MinPrice {
			continue
		}
		if filters.MaxPrice != nil && record.Price > *filters.MaxPrice {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(record.Name), strings.ToLower(filters.Search)) {
			continue
		}
		matched = append(matched, record)
	}
	return matched, nil
}

func (f *fakeProductStore) UpdateStock(ctx context.Context, id string, stock int) (StockUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stockCalls++
	for i := range f.records {
		if f.records[i].ContentfulID == id {
			f.records[i].Stock = stock
			f.records[i].InStock = stock > 0
			return StockUpdate{Success: true, ContentfulID: id, NewStock: stock, InStock: stock > 0}, nil
		}
	}
	return StockUpdate{}, shared.ErrNotFound
}

func (f *fakeProductStore) AdjustStock(ctx context.Context, id string, delta int) (StockUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stockCalls++
	for i := range f.records {
		if f.records[i].ContentfulID == id {
			if delta < 0 && f.records[i].Stock < -delta {
				return StockUpdate{}, fmt.Errorf("stock %d short of %d: %w", f.records[i].Stock, -delta, shared.ErrInsufficientStock)
			}
			f.records[i].Stock += delta
			f.records[i].InStock = f.records[i].Stock > 0
			return StockUpdate{Success: true, ContentfulID: id, NewStock: f.records[i].Stock, InStock: f.records[i].InStock}, nil
		}
	}
	return StockUpdate{}, shared.ErrNotFound
}

type fakeEditorialStore struct {
	mu        sync.Mutex
	byKey     map[string]*EditorialRecord
	byName    map[string]*EditorialRecord
	failAll   bool
	failKeys  map[string]bool
	delays    map[string]time.Duration
	keyCalls  int
	nameCalls int
}

func newFakeEditorialStore() *fakeEditorialStore {
	return &fakeEditorialStore{
		byKey:    make(map[string]*EditorialRecord),
		byName:   make(map[string]*EditorialRecord),
		failKeys: make(map[string]bool),
		delays:   make(map[string]time.Duration),
	}
}

func (f *fakeEditorialStore) GetEntry(ctx context.Context, key string) (*EditorialRecord, error) {
	f.mu.Lock()
	f.keyCalls++
	delay := f.delays[key]
	fail := f.failAll || f.failKeys[key]
	entry := f.byKey[key]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return nil, fmt.Errorf("cms timeout: %w", shared.ErrUpstreamUnavailable)
	}
	if entry == nil {
		return nil, shared.ErrNotFound
	}
	return entry, nil
}

func (f *fakeEditorialStore) FindByName(ctx context.Context, name string) (*EditorialRecord, error) {
	f.mu.Lock()
	f.nameCalls++
	fail := f.failAll
	entry := f.byName[name]
	f.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("cms timeout: %w", shared.ErrUpstreamUnavailable)
	}
	if entry == nil {
		return nil, shared.ErrNotFound
	}
	return entry, nil
}

func fixtureRecords() []ProductRecord {
	return []ProductRecord{
		{ContentfulID: "gecko-leopardo", Name: "Gecko Leopardo", Category: "Reptiles", Price: 180000, Stock: 4, InStock: true, SKU: "REP-001", Rating: 4.8, ReviewCount: 32, TotalSales: 120, Featured: true},
		{ContentfulID: "piton-bola", Name: "Pitón Bola", Category: "Reptiles", Price: 450000, Stock: 2, InStock: true, SKU: "REP-002", Rating: 4.6, ReviewCount: 18, TotalSales: 45},
		{ContentfulID: "iguana-verde", Name: "Iguana Verde", Category: "Reptiles", Price: 950000, Stock: 1, InStock: true, SKU: "REP-003"},
		{ContentfulID: "rana-azul", Name: "Rana Flecha Azul", Category: "Anfibios", Price: 320000, Stock: 6, InStock: true, SKU: "ANF-001", Featured: true},
		{ContentfulID: "tarantula-rosa", Name: "Tarántula Rosa", Category: "Arácnidos", Price: 95000, Stock: 0, InStock: false, SKU: "ARA-001"},
		{ContentfulID: "cacatua-blanca", Name: "Cacatúa Blanca", Category: "Aves", Price: 2800000, Stock: 3, InStock: true, SKU: "AVE-001"},
	}
}

func newTestService(t *testing.T, products *fakeProductStore, editorial *fakeEditorialStore, cfg ServiceConfig) *Service {
	t.Helper()
	return NewService(products, editorial, cfg, nil, nil)
}

func TestGetProductPreservesTransactionalFields(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	editorial := newFakeEditorialStore()
	svc := newTestService(t, products, editorial, ServiceConfig{})

	merged, err := svc.GetProduct(context.Background(), "gecko-leopardo")
	require.NoError(t, err)
	require.Equal(t, "Gecko Leopardo", merged.Name)
	require.Equal(t, "Reptiles", merged.Category)
	require.Equal(t, 180000.0, merged.Price)
	require.Equal(t, 4, merged.Stock)
	require.True(t, merged.InStock)
	require.Equal(t, "REP-001", merged.SKU)
	require.Equal(t, 4.8, merged.Rating)
	require.Equal(t, 120, merged.TotalSales)
	require.Nil(t, merged.Enrichment)
}

func TestGetProductEditorialPrecedence(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	editorial := newFakeEditorialStore()
	editorial.byKey["gecko-leopardo"] = &EditorialRecord{
		Description:      "Un gecko dócil ideal para principiantes.",
		Badge:            "Popular",
		BadgeColor:       "bg-green-500",
		Features:         []string{"Nocturno", "Fácil cuidado"},
		Images:           &ImageAsset{URL: "https://images.exoticpets.co/gecko1.jpg", Alt: "Gecko leopardo adulto"},
		CareInstructions: "Terrario de 60cm, 28-32°C.",
	}
	svc := newTestService(t, products, editorial, ServiceConfig{})

	merged, err := svc.GetProduct(context.Background(), "gecko-leopardo")
	require.NoError(t, err)
	require.NotNil(t, merged.Enrichment)
	require.Equal(t, "Un gecko dócil ideal para principiantes.", merged.Enrichment.Description)
	require.Equal(t, "Popular", merged.Enrichment.Badge)
	require.Equal(t, "bg-green-500", merged.Enrichment.BadgeColor)
	require.Equal(t, []string{"Nocturno", "Fácil cuidado"}, merged.Enrichment.Features)
	require.Equal(t, "https://images.exoticpets.co/gecko1.jpg", merged.Enrichment.Images.URL)
	// Transactional fields stay authoritative.
	require.Equal(t, 180000.0, merged.Price)
	require.Equal(t, 4, merged.Stock)
}

func TestGetProductEditorialUnavailableDegrades(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	editorial := newFakeEditorialStore()
	editorial.failAll = true
	svc := newTestService(t, products, editorial, ServiceConfig{})

	merged, err := svc.GetProduct(context.Background(), "piton-bola")
	require.NoError(t, err, "editorial outage must not fail the request")
	require.Equal(t, "Pitón Bola", merged.Name)
	require.Nil(t, merged.Enrichment)
}

func TestGetProductFallbackByName(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	editorial := newFakeEditorialStore()
	editorial.byName["Rana Flecha Azul"] = &EditorialRecord{
		Description: "Dardo venenoso de coloración intensa.",
		Badge:       "Exótico",
	}
	svc := newTestService(t, products, editorial, ServiceConfig{})

	merged, err := svc.GetProduct(context.Background(), "rana-azul")
	require.NoError(t, err)
	require.NotNil(t, merged.Enrichment)
	require.Equal(t, "Dardo venenoso de coloración intensa.", merged.Enrichment.Description)
	require.Equal(t, 1, editorial.keyCalls)
	require.Equal(t, 1, editorial.nameCalls)
}

func TestGetProductNotFound(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})

	_, err := svc.GetProduct(context.Background(), "no-such-product")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetProductTransactionalOutageIsFatal(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords(), unavailable: true}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})

	_, err := svc.GetProduct(context.Background(), "gecko-leopardo")
	require.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
}

func TestGetProductCachedWithinTTL(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	editorial := newFakeEditorialStore()
	editorial.byKey["gecko-leopardo"] = &EditorialRecord{Description: "cached"}
	svc := newTestService(t, products, editorial, ServiceConfig{CacheTTL: 5 * time.Minute})

	now := time.Now()
	svc.cache.now = func() time.Time { return now }

	_, err := svc.GetProduct(context.Background(), "gecko-leopardo")
	require.NoError(t, err)
	_, err = svc.GetProduct(context.Background(), "gecko-leopardo")
	require.NoError(t, err)
	require.Equal(t, 1, products.getCalls, "second call within TTL must hit the cache")
	require.Equal(t, 1, editorial.keyCalls)

	now = now.Add(5*time.Minute + time.Second)
	_, err = svc.GetProduct(context.Background(), "gecko-leopardo")
	require.NoError(t, err)
	require.Equal(t, 2, products.getCalls, "expired entry must trigger a fresh fetch pair")
	require.Equal(t, 2, editorial.keyCalls)
}

func TestUpdateStockIdempotentAndEvicts(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})
	ctx := context.Background()

	// Prime the single-product cache entry.
	_, err := svc.GetProduct(ctx, "piton-bola")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := svc.UpdateStock(ctx, "piton-bola", 5)
		require.NoError(t, err)
		require.True(t, result.Success)
		require.Equal(t, 5, result.NewStock)
		require.True(t, result.InStock)
	}

	// The eviction forces the next read through to the store.
	merged, err := svc.GetProduct(ctx, "piton-bola")
	require.NoError(t, err)
	require.Equal(t, 5, merged.Stock)
	require.Equal(t, 2, products.getCalls)
}

func TestAdjustStockEvictsAndReturnsNewLevel(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})
	ctx := context.Background()

	// Prime the single-product cache entry.
	_, err := svc.GetProduct(ctx, "gecko-leopardo")
	require.NoError(t, err)

	result, err := svc.AdjustStock(ctx, "gecko-leopardo", -3)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.NewStock)

	merged, err := svc.GetProduct(ctx, "gecko-leopardo")
	require.NoError(t, err)
	require.Equal(t, 1, merged.Stock)
	require.Equal(t, 2, products.getCalls, "eviction must force a fresh read")
}

func TestAdjustStockInsufficient(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})

	_, err := svc.AdjustStock(context.Background(), "iguana-verde", -2)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	_, err = svc.AdjustStock(context.Background(), "iguana-verde", 0)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestUpdateStockRejectsNegative(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})

	_, err := svc.UpdateStock(context.Background(), "piton-bola", -1)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	require.Equal(t, 0, products.stockCalls, "invalid input must not reach the store")
}

func TestUpdateStockUnknownProduct(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})

	_, err := svc.UpdateStock(context.Background(), "no-such-product", 3)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateStockDoesNotEvictListEntries(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})
	ctx := context.Background()

	_, err := svc.GetProducts(ctx, Filters{Category: "Reptiles"})
	require.NoError(t, err)

	_, err = svc.UpdateStock(ctx, "piton-bola", 9)
	require.NoError(t, err)

	// The list entry survives: staleness up to one TTL window is accepted.
	_, err = svc.GetProducts(ctx, Filters{Category: "Reptiles"})
	require.NoError(t, err)
	require.Equal(t, 1, products.listCalls)
}

func TestGetProductsEmptyMatchIsNotAnError(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})

	merged, err := svc.GetProducts(context.Background(), Filters{Category: "Peces"})
	require.NoError(t, err)
	require.Empty(t, merged)
}

func TestGetProductsCachedBySignature(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})
	ctx := context.Background()

	_, err := svc.GetProducts(ctx, Filters{Category: "Reptiles"})
	require.NoError(t, err)
	_, err = svc.GetProducts(ctx, Filters{Category: "Reptiles"})
	require.NoError(t, err)
	require.Equal(t, 1, products.listCalls)

	_, err = svc.GetProducts(ctx, Filters{Category: "Aves"})
	require.NoError(t, err)
	require.Equal(t, 2, products.listCalls, "a different filter set is a different cache key")
}

func TestGetProductsScenarioReptilesPriceRange(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	editorial := newFakeEditorialStore()
	editorial.byKey["gecko-leopardo"] = &EditorialRecord{Description: "Gecko descripción"}
	editorial.byKey["piton-bola"] = &EditorialRecord{Description: "Pitón descripción"}
	svc := newTestService(t, products, editorial, ServiceConfig{})

	minPrice, maxPrice := 100000.0, 500000.0
	merged, err := svc.GetProducts(context.Background(), Filters{
		Category: "Reptiles",
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
	})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	require.Equal(t, "gecko-leopardo", merged[0].ContentfulID)
	require.Equal(t, "piton-bola", merged[1].ContentfulID)
	require.Equal(t, "Gecko descripción", merged[0].Enrichment.Description)
	require.Equal(t, "Pitón descripción", merged[1].Enrichment.Description)
}

func TestGetProductsEnrichmentFailSoftPerItem(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	editorial := newFakeEditorialStore()
	for _, record := range fixtureRecords() {
		editorial.byKey[record.ContentfulID] = &EditorialRecord{Description: record.Name}
	}
	editorial.failKeys["iguana-verde"] = true
	svc := newTestService(t, products, editorial, ServiceConfig{})

	merged, err := svc.GetProducts(context.Background(), Filters{})
	require.NoError(t, err)
	require.Len(t, merged, 6)
	for _, product := range merged {
		if product.ContentfulID == "iguana-verde" {
			require.Nil(t, product.Enrichment, "failed lookup degrades that record only")
			continue
		}
		require.NotNil(t, product.Enrichment, "sibling lookups must not be affected")
	}
}

func TestGetProductsEnrichmentRunsConcurrently(t *testing.T) {
	records := fixtureRecords()
	products := &fakeProductStore{records: records}
	editorial := newFakeEditorialStore()
	const delay = 60 * time.Millisecond
	for _, record := range records {
		editorial.byKey[record.ContentfulID] = &EditorialRecord{Description: record.Name}
		editorial.delays[record.ContentfulID] = delay
	}
	svc := newTestService(t, products, editorial, ServiceConfig{EnrichConcurrency: len(records)})

	start := time.Now()
	merged, err := svc.GetProducts(context.Background(), Filters{})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, merged, len(records))
	// Sequential lookups would take at least len(records)*delay.
	require.Less(t, elapsed, time.Duration(len(records))*delay/2,
		"enrichment latency must be bounded by the slowest lookup, not the sum")
}

func TestSugarOperations(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})
	ctx := context.Background()

	featured, err := svc.GetFeaturedProducts(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 2)

	reptiles, err := svc.GetProductsByCategory(ctx, "Reptiles")
	require.NoError(t, err)
	require.Len(t, reptiles, 3)

	found, err := svc.SearchProducts(ctx, "tarántula")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "tarantula-rosa", found[0].ContentfulID)
}

func TestClearCacheAndStats(t *testing.T) {
	products := &fakeProductStore{records: fixtureRecords()}
	svc := newTestService(t, products, newFakeEditorialStore(), ServiceConfig{})
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, "gecko-leopardo")
	require.NoError(t, err)
	_, err = svc.GetProducts(ctx, Filters{Category: "Aves"})
	require.NoError(t, err)

	stats := svc.CacheStats()
	require.Equal(t, 2, stats.Size)
	require.Contains(t, stats.Keys, "product_gecko-leopardo")

	svc.ClearCache()
	require.Equal(t, 0, svc.CacheStats().Size)
}
