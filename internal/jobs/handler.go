package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
)

// Runner executes a reconciliation run.
type Runner interface {
	Run(ctx context.Context, params reconciliation.RunParams) (*reconciliation.Summary, error)
}

// RunJob handles TaskReconciliationRun tasks.
type RunJob struct {
	runner Runner
	logger *slog.Logger
}

func NewRunJob(runner Runner, logger *slog.Logger) *RunJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &RunJob{runner: runner, logger: logger.With("job", TaskReconciliationRun)}
}

// Handle runs the requested policy. Malformed payloads and validation
// failures are not retried.
func (j *RunJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload RunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		j.logger.Error("failed to decode payload", "error", err)
		return fmt.Errorf("decoding payload: %v: %w", err, asynq.SkipRetry)
	}

	summary, err := j.runner.Run(ctx, payload.params())
	if errors.Is(err, reconciliation.ErrValidation) {
		j.logger.Error("rejected reconciliation run", "condominium_id", payload.CondominiumID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err != nil {
		return fmt.Errorf("running %s: %w", payload.Policy, err)
	}

	j.logger.Info("reconciliation run finished",
		"condominium_id", payload.CondominiumID,
		"policy", summary.Policy,
		"reconciled", summary.Reconciled,
		"failed", summary.Failed,
	)

	return nil
}
