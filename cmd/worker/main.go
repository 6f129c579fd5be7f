package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/conciliacao/internal/config"
	"github.com/MrJamesThe3rd/conciliacao/internal/database"
	"github.com/MrJamesThe3rd/conciliacao/internal/jobs"
	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	reconciliationStore "github.com/MrJamesThe3rd/conciliacao/internal/reconciliation/store"
	"github.com/MrJamesThe3rd/conciliacao/internal/report"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Redis.Addr == "" {
		return errors.New("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	logger := slog.Default().With("component", "worker")

	engine := reconciliation.NewEngine(reconciliationStore.New(db),
		reconciliation.WithThresholds(cfg.Thresholds()),
		reconciliation.WithWorkers(cfg.Reconciliation.ScoringWorkers),
		reconciliation.WithCommitRetries(cfg.Reconciliation.CommitRetries),
		reconciliation.WithInvalidator(report.NewRedisCache(rdb, cfg.Redis.CacheTTL)),
		reconciliation.WithLogger(logger),
	)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.Redis.Addr},
		Concurrency: cfg.Reconciliation.WorkerConcurrency,
		Logger:      logger,
		Run:         jobs.NewRunJob(engine, logger),
	})
	if err != nil {
		return err
	}

	logger.Info("starting worker", "concurrency", cfg.Reconciliation.WorkerConcurrency)

	return worker.Run(ctx)
}
