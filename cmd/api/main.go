package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/conciliacao/internal/category"
	categoryStore "github.com/MrJamesThe3rd/conciliacao/internal/category/store"
	"github.com/MrJamesThe3rd/conciliacao/internal/config"
	"github.com/MrJamesThe3rd/conciliacao/internal/database"
	apiHttp "github.com/MrJamesThe3rd/conciliacao/internal/http"
	categoryHandler "github.com/MrJamesThe3rd/conciliacao/internal/http/category"
	reconciliationHandler "github.com/MrJamesThe3rd/conciliacao/internal/http/reconciliation"
	statementHandler "github.com/MrJamesThe3rd/conciliacao/internal/http/statement"
	txHandler "github.com/MrJamesThe3rd/conciliacao/internal/http/transaction"
	"github.com/MrJamesThe3rd/conciliacao/internal/importer"
	"github.com/MrJamesThe3rd/conciliacao/internal/jobs"
	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	reconciliationStore "github.com/MrJamesThe3rd/conciliacao/internal/reconciliation/store"
	"github.com/MrJamesThe3rd/conciliacao/internal/report"
	reportStore "github.com/MrJamesThe3rd/conciliacao/internal/report/store"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	statementStore "github.com/MrJamesThe3rd/conciliacao/internal/statement/store"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
	txStore "github.com/MrJamesThe3rd/conciliacao/internal/transaction/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rules, err := category.LoadRules(cfg.Categories.RulesFile)
	if err != nil {
		return err
	}

	var cache report.Cache = report.NopCache{}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()

		cache = report.NewRedisCache(rdb, cfg.Redis.CacheTTL)
	}

	logger := slog.Default()

	var (
		categoryService    = category.NewService(categoryStore.New(db), rules)
		transactionService = transaction.NewService(txStore.New(db))
		engine             = reconciliation.NewEngine(reconciliationStore.New(db),
			reconciliation.WithThresholds(cfg.Thresholds()),
			reconciliation.WithWorkers(cfg.Reconciliation.ScoringWorkers),
			reconciliation.WithCommitRetries(cfg.Reconciliation.CommitRetries),
			reconciliation.WithInvalidator(cache),
			reconciliation.WithLogger(logger),
		)
	)

	var hook statement.IngestHook = engine

	if cfg.Reconciliation.Async {
		if cfg.Redis.Addr == "" {
			return errors.New("RECONCILE_ASYNC requires REDIS_ADDR")
		}

		client, closeClient := jobs.NewRedisClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr})
		defer closeClient()

		hook = client
	}

	var (
		statementService = statement.NewService(statementStore.New(db), categoryService,
			statement.WithIngestHook(hook),
			statement.WithInvalidator(cache),
			statement.WithLogger(logger),
		)
		reportService = report.NewService(reportStore.New(db), statementService, engine, report.WithCache(cache))
		importService = importer.NewService()
	)

	router := apiHttp.New(
		apiHttp.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			JWTSecret:      cfg.Auth.JWTSecret,
			Timeout:        cfg.Server.Timeout,
		},
		statementHandler.NewHandler(statementService, importService, engine),
		reconciliationHandler.NewHandler(engine, reportService, cfg.Server.RunRateLimit),
		txHandler.NewHandler(transactionService),
		categoryHandler.NewHandler(categoryService),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", srv.Addr, "async_ingest", cfg.Reconciliation.Async)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
