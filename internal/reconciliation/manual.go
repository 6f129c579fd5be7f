package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/scoring"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

type ManualParams struct {
	LineID        uuid.UUID
	TransactionID uuid.UUID
	Actor         string
	Notes         string
}

// ReconcileManual links a line to a transaction chosen by a user. The score is
// forced to the maximum and the audit entry records the actor.
func (e *Engine) ReconcileManual(ctx context.Context, params ManualParams) (*statement.Line, error) {
	params.Actor = strings.TrimSpace(params.Actor)

	switch {
	case params.LineID == uuid.Nil:
		return nil, fmt.Errorf("%w: statement line id is required", ErrValidation)
	case params.TransactionID == uuid.Nil:
		return nil, fmt.Errorf("%w: transaction id is required", ErrValidation)
	case params.Actor == "":
		return nil, fmt.Errorf("%w: actor is required", ErrValidation)
	}

	line, err := e.repo.GetLine(ctx, params.LineID)
	if err != nil {
		return nil, err
	}

	tx, err := e.repo.GetTransaction(ctx, params.TransactionID)
	if err != nil {
		return nil, err
	}

	if tx.CondominiumID != line.CondominiumID {
		return nil, fmt.Errorf("%w: transaction belongs to another condominium", ErrValidation)
	}

	if !tx.Status.Reconcilable() {
		return nil, fmt.Errorf("%w: transaction status %q cannot be reconciled", ErrValidation, tx.Status)
	}

	if line.Reconciled() {
		return nil, ErrLineTaken
	}

	if tx.Reconciled() {
		return nil, ErrTransactionTaken
	}

	at := e.now()
	calculated := scoring.Advanced(line, tx)

	payload := map[string]any{
		"transacao_id":    tx.ID.String(),
		"score":           scoring.MaxScore,
		"score_calculado": calculated.Score,
		"metodo":          string(statement.MethodManual),
	}
	if params.Notes != "" {
		payload["observacoes"] = params.Notes
	}

	event := statement.Event{
		Type:    statement.EventManualReconciled,
		Payload: payload,
		Actor:   params.Actor,
		At:      at,
	}

	err = e.repo.Commit(ctx, CommitParams{
		LineID:        line.ID,
		TransactionID: tx.ID,
		Score:         scoring.MaxScore,
		Method:        statement.MethodManual,
		Actor:         params.Actor,
		At:            at,
		Event:         event,
	})
	if err != nil {
		return nil, fmt.Errorf("committing manual reconciliation: %w", err)
	}

	e.invalidate(ctx, line.CondominiumID)

	updated := statement.AppendEvent(*line, event)
	updated.Match = &statement.Match{
		TransactionID: tx.ID,
		Score:         scoring.MaxScore,
		At:            at,
		By:            params.Actor,
		Method:        statement.MethodManual,
	}

	return &updated, nil
}

type UnreconcileParams struct {
	LineID uuid.UUID
	Actor  string
	Notes  string
}

// Unreconcile reverts both sides of a match and logs the reversal. A line that
// is already unreconciled is returned unchanged.
func (e *Engine) Unreconcile(ctx context.Context, params UnreconcileParams) (*statement.Line, error) {
	params.Actor = strings.TrimSpace(params.Actor)

	switch {
	case params.LineID == uuid.Nil:
		return nil, fmt.Errorf("%w: statement line id is required", ErrValidation)
	case params.Actor == "":
		return nil, fmt.Errorf("%w: actor is required", ErrValidation)
	}

	line, err := e.repo.GetLine(ctx, params.LineID)
	if err != nil {
		return nil, err
	}

	if !line.Reconciled() {
		return line, nil
	}

	at := e.now()
	prev := line.Match

	payload := map[string]any{
		"transacao_id":    prev.TransactionID.String(),
		"score_anterior":  prev.Score,
		"metodo_anterior": string(prev.Method),
	}
	if params.Notes != "" {
		payload["observacoes"] = params.Notes
	}

	event := statement.Event{
		Type:    statement.EventUnreconciled,
		Payload: payload,
		Actor:   params.Actor,
		At:      at,
	}

	err = e.repo.Revert(ctx, RevertParams{
		LineID:        line.ID,
		TransactionID: prev.TransactionID,
		At:            at,
		Event:         event,
	})
	if errors.Is(err, ErrConflict) {
		// Someone else changed the line first; report its current state.
		return e.repo.GetLine(ctx, params.LineID)
	}

	if err != nil {
		return nil, fmt.Errorf("reverting reconciliation: %w", err)
	}

	e.invalidate(ctx, line.CondominiumID)

	updated := statement.AppendEvent(*line, event)
	updated.Match = nil

	return &updated, nil
}
