package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/exotic-pets/exotic-pets/internal/catalog"
	"github.com/exotic-pets/exotic-pets/internal/products"
)

type fakeWarmer struct {
	featuredCalls int
	categories    []string
}

func (f *fakeWarmer) GetFeaturedProducts(ctx context.Context) ([]catalog.MergedProduct, error) {
	f.featuredCalls++
	return []catalog.MergedProduct{{}}, nil
}

func (f *fakeWarmer) GetProductsByCategory(ctx context.Context, category string) ([]catalog.MergedProduct, error) {
	f.categories = append(f.categories, category)
	return []catalog.MergedProduct{{}, {}}, nil
}

func TestCatalogWarmupHandle(t *testing.T) {
	warmer := &fakeWarmer{}
	job := NewCatalogWarmupJob(warmer, nil, nil)

	task, err := NewCatalogWarmupTask(CatalogWarmupPayload{Categories: []string{"Reptiles", "Aves"}})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, warmer.featuredCalls)
	require.Equal(t, []string{"Reptiles", "Aves"}, warmer.categories)
}

func TestCatalogWarmupSkipsBadPayload(t *testing.T) {
	job := NewCatalogWarmupJob(&fakeWarmer{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskCatalogWarmup, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeLister struct {
	items []products.Product
}

func (f *fakeLister) List(ctx context.Context, query products.Query) ([]products.Product, error) {
	return f.items, nil
}

type fakeAlertMailer struct {
	to    string
	lines []string
	calls int
}

func (f *fakeAlertMailer) SendLowStockAlert(ctx context.Context, to string, lines []string) error {
	f.calls++
	f.to = to
	f.lines = lines
	return nil
}

func TestLowStockScanFlagsOnlyBelowThreshold(t *testing.T) {
	lister := &fakeLister{items: []products.Product{
		{ContentfulID: "gecko-leopardo", Name: "Gecko Leopardo", Stock: 2},
		{ContentfulID: "piton-bola", Name: "Pitón Bola", Stock: 40},
	}}
	mailer := &fakeAlertMailer{}
	job := NewLowStockScanJob(lister, mailer, "ops@exotic-pets.co", 5, nil, nil)

	task, err := NewLowStockScanTask(LowStockScanPayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, mailer.calls)
	require.Equal(t, "ops@exotic-pets.co", mailer.to)
	require.Len(t, mailer.lines, 1)
	require.Contains(t, mailer.lines[0], "Gecko Leopardo")
}

func TestLowStockScanNoAlertWhenHealthy(t *testing.T) {
	lister := &fakeLister{items: []products.Product{
		{ContentfulID: "piton-bola", Name: "Pitón Bola", Stock: 40},
	}}
	mailer := &fakeAlertMailer{}
	job := NewLowStockScanJob(lister, mailer, "ops@exotic-pets.co", 5, nil, nil)

	task, err := NewLowStockScanTask(LowStockScanPayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Zero(t, mailer.calls)
}

type fakeWarmupEnqueuer struct {
	payloads []CatalogWarmupPayload
	err      error
}

func (f *fakeWarmupEnqueuer) EnqueueCatalogWarmup(ctx context.Context, payload CatalogWarmupPayload) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, payload)
	return &asynq.TaskInfo{}, nil
}

func TestWarmupTriggerEnqueues(t *testing.T) {
	enqueuer := &fakeWarmupEnqueuer{}
	handler := NewHandler(nil, enqueuer, slog.Default())
	router := chi.NewRouter()
	handler.MountRoutes(router)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"categories":["Reptiles"]}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/warmup", body))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enqueuer.payloads, 1)
	require.Equal(t, []string{"Reptiles"}, enqueuer.payloads[0].Categories)
}

func TestWarmupTriggerEmptyBody(t *testing.T) {
	enqueuer := &fakeWarmupEnqueuer{}
	handler := NewHandler(nil, enqueuer, slog.Default())
	router := chi.NewRouter()
	handler.MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/warmup", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enqueuer.payloads, 1)
	require.Empty(t, enqueuer.payloads[0].Categories)
}

func TestWarmupTriggerWithoutEnqueuer(t *testing.T) {
	handler := NewHandler(nil, nil, slog.Default())
	router := chi.NewRouter()
	handler.MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/warmup", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInvoiceTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewInvoiceGenerateTask(InvoiceGeneratePayload{OrderID: "order-1"})
	require.NoError(t, err)
	require.Equal(t, TaskInvoiceGenerate, task.Type())

	var payload InvoiceGeneratePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "order-1", payload.OrderID)
}
