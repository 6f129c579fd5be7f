package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker wraps the asynq server processing reconciliation tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Concurrency int
	Logger      *slog.Logger
	Run         *RunJob
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Run == nil {
		return nil, errors.New("worker: run job not configured")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueReconciliation: 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReconciliationRun, cfg.Run.Handle)

	return &Worker{server: srv, mux: mux, logger: cfg.Logger}, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- w.server.Run(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("shutting down worker")
		w.server.Shutdown()

		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
