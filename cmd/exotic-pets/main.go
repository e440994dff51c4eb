package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/exotic-pets/exotic-pets/internal/app"
	"github.com/exotic-pets/exotic-pets/internal/catalog"
	"github.com/exotic-pets/exotic-pets/internal/observability"
	"github.com/exotic-pets/exotic-pets/internal/orders"
	"github.com/exotic-pets/exotic-pets/internal/platform/cache"
	"github.com/exotic-pets/exotic-pets/internal/platform/db"
	platformmongo "github.com/exotic-pets/exotic-pets/internal/platform/mongo"
	"github.com/exotic-pets/exotic-pets/internal/products"
	"github.com/exotic-pets/exotic-pets/internal/shared"
	"github.com/exotic-pets/exotic-pets/internal/upstream/editorial"
	"github.com/exotic-pets/exotic-pets/internal/upstream/productapi"
	"github.com/exotic-pets/exotic-pets/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	mongoClient, err := platformmongo.New(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("connect mongo", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect", slog.Any("error", err))
		}
	}()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	productRepo := products.NewRepository(mongoClient.Database(cfg.MongoDatabase))
	statsCache := products.NewStatsCache(redisClient, cfg.StatsCacheTTL)
	productService := products.NewService(productRepo, statsCache, logger)
	productsHandler := products.NewHandler(logger, productService)

	productStore := productapi.NewClient(cfg.ProductAPIURL, cfg.UpstreamTimeout)
	editorialStore := editorial.NewClient(editorial.Config{
		BaseURL:     cfg.EditorialBaseURL,
		SpaceID:     cfg.EditorialSpaceID,
		Environment: cfg.EditorialEnvironment,
		AccessToken: cfg.EditorialAccessToken,
		ContentType: cfg.EditorialContentType,
		Timeout:     cfg.UpstreamTimeout,
	})
	catalogService := catalog.NewService(productStore, editorialStore, catalog.ServiceConfig{
		CacheTTL:          cfg.CatalogCacheTTL,
		EnrichConcurrency: cfg.EnrichConcurrency,
	}, logger, metrics)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(pool)
	orderRepo := orders.NewRepository(pool)
	orderService := orders.NewService(orderRepo, catalogService, idempotencyStore, jobClient, logger)
	ordersHandler := orders.NewHandler(logger, orderService, cfg.InvoiceStorageDir)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		ProductsHandler: productsHandler,
		CatalogHandler:  catalogHandler,
		OrdersHandler:   ordersHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
		HealthCheck: func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
