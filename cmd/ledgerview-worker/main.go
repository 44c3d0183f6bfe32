package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ledgerview/internal/amqp"
	"ledgerview/internal/config"
	applog "ledgerview/internal/log"
	"ledgerview/internal/services"
	"ledgerview/internal/splitwise"
	"ledgerview/internal/storage"
	"ledgerview/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentWorker,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)

	logger.Info("Starting ledgerview-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.SplitwiseToken == "" {
		logger.Error("SPLITWISE_ACCESS_TOKEN is required for the import worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	client := splitwise.NewClient(cfg.SplitwiseToken, splitwise.WithBaseURL(cfg.SplitwiseBaseURL))
	syncWorker := worker.NewSyncWorker(client, repo, cfg.SyncLimit)

	if last, err := repo.LastSyncRun(context.Background()); err == nil {
		logger.Info("Last import", "request_id", last.RequestID, "imported", last.Imported, "finished_at", last.FinishedAt)
	} else if !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("Could not read last import", applog.FieldError, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := services.NewImportScheduler(func(ctx context.Context, requestID string, limit int) error {
		_, err := syncWorker.Import(ctx, requestID, limit)
		return err
	}, services.ImportSchedulerConfig{
		Interval:   cfg.SyncInterval,
		Limit:      cfg.SyncLimit,
		RunOnStart: true,
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeSyncRequests(gctx, syncWorker.HandleSyncRequest)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return scheduler.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
