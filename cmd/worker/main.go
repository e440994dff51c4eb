package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/exotic-pets/exotic-pets/internal/app"
	"github.com/exotic-pets/exotic-pets/internal/catalog"
	"github.com/exotic-pets/exotic-pets/internal/invoice"
	"github.com/exotic-pets/exotic-pets/internal/mailer"
	"github.com/exotic-pets/exotic-pets/internal/orders"
	"github.com/exotic-pets/exotic-pets/internal/platform/db"
	platformmongo "github.com/exotic-pets/exotic-pets/internal/platform/mongo"
	"github.com/exotic-pets/exotic-pets/internal/products"
	"github.com/exotic-pets/exotic-pets/internal/upstream/editorial"
	"github.com/exotic-pets/exotic-pets/internal/upstream/productapi"
	"github.com/exotic-pets/exotic-pets/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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
	}, logger, nil)

	smtp := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, logger)

	pdfClient := invoice.NewGotenbergClient(cfg.GotenbergURL)
	renderer, err := invoice.NewRenderer(pdfClient)
	if err != nil {
		logger.Error("init invoice renderer", slog.Any("error", err))
		os.Exit(1)
	}
	orderRepo := orders.NewRepository(pool)
	generator := invoice.NewGenerator(orderRepo, renderer, smtp, cfg.InvoiceStorageDir, logger)
	invoiceJob := jobs.NewInvoiceGenerateJob(generator, logger, nil)

	warmupJob := jobs.NewCatalogWarmupJob(catalogService, logger, nil)

	productRepo := products.NewRepository(mongoClient.Database(cfg.MongoDatabase))
	lowStockJob := jobs.NewLowStockScanJob(productRepo, smtp, cfg.AlertEmail, cfg.LowStockThreshold, logger, nil)

	warmupTask, err := jobs.NewCatalogWarmupTask(jobs.CatalogWarmupPayload{Categories: cfg.WarmupCategories})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	lowStockTask, err := jobs.NewLowStockScanTask(jobs.LowStockScanPayload{Threshold: cfg.LowStockThreshold})
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceGenerate, Handler: invoiceJob.Handle},
			{Type: jobs.TaskCatalogWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 6 * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
