package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
)

const (
	// QueueReconciliation receives reconciliation runs.
	QueueReconciliation = "reconciliation"
	// TaskReconciliationRun runs one reconciliation policy for a condominium.
	TaskReconciliationRun = "reconciliation:run"

	maxRetry = 3
)

// RunPayload is the body of a TaskReconciliationRun task.
type RunPayload struct {
	CondominiumID uuid.UUID             `json:"condominium_id"`
	AccountID     *uuid.UUID            `json:"account_id,omitempty"`
	Policy        reconciliation.Policy `json:"policy"`
}

func (p RunPayload) params() reconciliation.RunParams {
	return reconciliation.RunParams{
		CondominiumID: p.CondominiumID,
		AccountID:     p.AccountID,
		Policy:        p.Policy,
	}
}

// NewRunTask builds a reconciliation task. Suggestion-only runs write nothing,
// so queueing them is rejected.
func NewRunTask(payload RunPayload) (*asynq.Task, error) {
	if payload.CondominiumID == uuid.Nil {
		return nil, fmt.Errorf("%w: condominium id is required", reconciliation.ErrValidation)
	}

	if _, err := reconciliation.ParsePolicy(string(payload.Policy)); err != nil {
		return nil, err
	}

	if !payload.Policy.Writes() {
		return nil, fmt.Errorf("%w: policy %q cannot run in the background", reconciliation.ErrValidation, payload.Policy)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskReconciliationRun, body, asynq.Queue(QueueReconciliation), asynq.MaxRetry(maxRetry)), nil
}
