package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	statementstore "github.com/MrJamesThe3rd/conciliacao/internal/statement/store"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
	transactionstore "github.com/MrJamesThe3rd/conciliacao/internal/transaction/store"
)

const uniqueViolation = "23505"

type Store struct {
	db    *sql.DB
	lines *statementstore.Store
	txs   *transactionstore.Store
}

func New(db *sql.DB) *Store {
	return &Store{
		db:    db,
		lines: statementstore.New(db),
		txs:   transactionstore.New(db),
	}
}

func (s *Store) GetLine(ctx context.Context, id uuid.UUID) (*statement.Line, error) {
	return s.lines.GetLine(ctx, id)
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return s.txs.GetTransaction(ctx, id)
}

func (s *Store) ListUnreconciledLines(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) ([]*statement.Line, error) {
	query := `SELECT ` + statementstore.SelectColumns + `
		FROM statement_lines l
		WHERE l.condominium_id = $1 AND l.reconciled = false`
	args := []any{condominiumID}

	if accountID != nil {
		query += ` AND l.account_id = $2`

		args = append(args, *accountID)
	}

	query += ` ORDER BY l.date ASC, l.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing unreconciled lines: %w", err)
	}
	defer rows.Close()

	var lines []*statement.Line

	for rows.Next() {
		line, err := statementstore.ScanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning statement line: %w", err)
		}

		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statement lines: %w", err)
	}

	return lines, nil
}

func (s *Store) ListCandidateTransactions(ctx context.Context, condominiumID uuid.UUID) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionstore.SelectColumns + `
		FROM transactions t
		WHERE t.condominium_id = $1
		  AND t.reconciled = false
		  AND t.status IN ($2, $3)
		ORDER BY t.due_date ASC, t.id ASC`

	rows, err := s.db.QueryContext(ctx, query, condominiumID, transaction.StatusPending, transaction.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("listing candidate transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := transactionstore.ScanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

// Commit links a line and a transaction in one SQL transaction. Each update
// only applies while its row is still unreconciled, so two concurrent runs can
// never both claim the same row.
func (s *Store) Commit(ctx context.Context, p reconciliation.CommitParams) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	var by *string
	if p.Actor != "" {
		by = &p.Actor
	}

	res, err := dbTx.ExecContext(ctx, `
		UPDATE statement_lines
		SET reconciled = true,
		    transaction_id = $2,
		    confidence_score = $3,
		    reconciled_at = $4,
		    reconciled_by = $5,
		    reconcile_method = $6,
		    updated_at = $4
		WHERE id = $1 AND reconciled = false`,
		p.LineID, p.TransactionID, p.Score, p.At, by, p.Method)
	if err != nil {
		if isUniqueViolation(err) {
			return reconciliation.ErrTransactionTaken
		}

		return fmt.Errorf("reconciling statement line: %w", err)
	}

	if err := expectOne(ctx, dbTx, res, "statement_lines", p.LineID, statement.ErrNotFound, reconciliation.ErrLineTaken); err != nil {
		return err
	}

	res, err = dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET reconciled = true,
		    statement_line_id = $2,
		    reconciled_at = $3,
		    updated_at = $3
		WHERE id = $1 AND reconciled = false AND status IN ($4, $5)`,
		p.TransactionID, p.LineID, p.At, transaction.StatusPending, transaction.StatusApproved)
	if err != nil {
		return fmt.Errorf("reconciling transaction: %w", err)
	}

	if err := expectOne(ctx, dbTx, res, "transactions", p.TransactionID, transaction.ErrNotFound, reconciliation.ErrTransactionTaken); err != nil {
		return err
	}

	if err := statementstore.InsertEvent(ctx, dbTx, p.LineID, p.Event); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing reconciliation: %w", err)
	}

	return nil
}

// Revert unlinks a line from its transaction in one SQL transaction, only while
// the two rows still point at each other.
func (s *Store) Revert(ctx context.Context, p reconciliation.RevertParams) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `
		UPDATE statement_lines
		SET reconciled = false,
		    transaction_id = NULL,
		    confidence_score = 0,
		    reconciled_at = NULL,
		    reconciled_by = NULL,
		    reconcile_method = NULL,
		    updated_at = $3
		WHERE id = $1 AND transaction_id = $2`,
		p.LineID, p.TransactionID, p.At)
	if err != nil {
		return fmt.Errorf("reverting statement line: %w", err)
	}

	if err := expectOne(ctx, dbTx, res, "statement_lines", p.LineID, statement.ErrNotFound, reconciliation.ErrConflict); err != nil {
		return err
	}

	if _, err := dbTx.ExecContext(ctx, `
		UPDATE transactions
		SET reconciled = false,
		    statement_line_id = NULL,
		    reconciled_at = NULL,
		    updated_at = $3
		WHERE id = $1 AND statement_line_id = $2`,
		p.TransactionID, p.LineID, p.At); err != nil {
		return fmt.Errorf("reverting transaction: %w", err)
	}

	if err := statementstore.InsertEvent(ctx, dbTx, p.LineID, p.Event); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing revert: %w", err)
	}

	return nil
}

// expectOne turns a conditional update that touched no row into notFound when
// the row does not exist, or into taken when its state no longer matched.
func expectOne(ctx context.Context, dbTx *sql.Tx, res sql.Result, table string, id uuid.UUID, notFound, taken error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}

	if n == 1 {
		return nil
	}

	var exists bool
	if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking %s row: %w", table, err)
	}

	if !exists {
		return notFound
	}

	return taken
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
