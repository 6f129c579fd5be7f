package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Scanner is satisfied by both *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// SelectColumns lists the columns expected by ScanTransaction, in order.
const SelectColumns = `
	t.id, t.condominium_id, t.type, t.status, t.amount, t.due_date, t.payment_id, t.description,
	t.statement_line_id, t.reconciled_at, t.created_at, t.updated_at
`

// ScanTransaction reads a transaction row from the scanner.
func ScanTransaction(s Scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr, statusStr string

	var lineID *uuid.UUID

	var reconciledAt sql.NullTime

	if err := s.Scan(
		&tx.ID, &tx.CondominiumID, &typeStr, &statusStr, &tx.Amount, &tx.DueDate, &tx.PaymentID, &tx.Description,
		&lineID, &reconciledAt, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Status = transaction.Status(statusStr)

	if lineID != nil {
		tx.Match = &transaction.Match{
			StatementLineID: *lineID,
			At:              reconciledAt.Time,
		}
	}

	return &tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (condominium_id, type, status, amount, due_date, payment_id, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		tx.CondominiumID,
		tx.Type,
		tx.Status,
		tx.Amount,
		tx.DueDate,
		tx.PaymentID,
		tx.Description,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + SelectColumns + ` FROM transactions t WHERE t.id = $1`

	tx, err := ScanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + SelectColumns + ` FROM transactions t WHERE 1 = 1`

	var args []any

	argIdx := 1

	if filter.CondominiumID != nil {
		query += fmt.Sprintf(" AND t.condominium_id = $%d", argIdx)

		args = append(args, *filter.CondominiumID)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.Reconciled != nil {
		query += fmt.Sprintf(" AND t.reconciled = $%d", argIdx)

		args = append(args, *filter.Reconciled)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.due_date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.due_date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
	}

	query += " ORDER BY t.due_date ASC, t.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := ScanTransaction(rows)
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

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status transaction.Status) error {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	res, err := s.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}
