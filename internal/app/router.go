package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/exotic-pets/exotic-pets/internal/catalog"
	"github.com/exotic-pets/exotic-pets/internal/observability"
	"github.com/exotic-pets/exotic-pets/internal/orders"
	"github.com/exotic-pets/exotic-pets/internal/products"
	"github.com/exotic-pets/exotic-pets/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	ProductsHandler *products.Handler
	CatalogHandler  *catalog.Handler
	OrdersHandler   *orders.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics

	// HealthCheck pings the primary datastore. Nil means liveness only.
	HealthCheck func(ctx context.Context) error
}

// NewRouter constructs the chi.Router with application defaults.
//
// The transactional store is mounted under /api so the merge layer can be
// pointed at this same process in single-binary deployments, while the
// merged storefront surface lives under /api/catalog.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.HealthCheck == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		if err := params.HealthCheck(req.Context()); err != nil {
			if params.Logger != nil {
				params.Logger.Warn("health check", slog.Any("error", err))
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","database":"unreachable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","database":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if params.ProductsHandler != nil {
			params.ProductsHandler.Routes(api)
		}
		if params.CatalogHandler != nil {
			api.Route("/catalog", func(cat chi.Router) {
				params.CatalogHandler.Routes(cat)
			})
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.Routes(api)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", func(jr chi.Router) {
				params.JobHandler.MountRoutes(jr)
			})
		}
	})

	return r
}
