package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/report"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Counts reads the dashboard aggregates. Recent reconciliations are counted
// from the audit log, so a line reconciled, reverted and reconciled again
// within the window counts twice.
func (s *Store) Counts(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID, since time.Time) (report.Counts, error) {
	var c report.Counts

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE l.reconciled)
		FROM statement_lines l
		WHERE l.condominium_id = $1 AND ($2::uuid IS NULL OR l.account_id = $2)`,
		condominiumID, accountID,
	).Scan(&c.Total, &c.Reconciled)
	if err != nil {
		return c, fmt.Errorf("counting statement lines: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions t
		WHERE t.condominium_id = $1 AND t.reconciled = false AND t.status IN ($2, $3)`,
		condominiumID, transaction.StatusPending, transaction.StatusApproved,
	).Scan(&c.PendingTransactions)
	if err != nil {
		return c, fmt.Errorf("counting pending transactions: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM statement_events e
		JOIN statement_lines l ON l.id = e.statement_line_id
		WHERE l.condominium_id = $1 AND ($2::uuid IS NULL OR l.account_id = $2)
		  AND e.type IN ($3, $4)
		  AND e.created_at >= $5`,
		condominiumID, accountID, statement.EventAutoReconciled, statement.EventManualReconciled, since,
	).Scan(&c.ReconciledLast30Days)
	if err != nil {
		return c, fmt.Errorf("counting recent reconciliations: %w", err)
	}

	return c, nil
}
