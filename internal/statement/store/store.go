package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
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

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SelectColumns lists the columns expected by ScanLine, in order.
const SelectColumns = `
	l.id, l.account_id, l.condominium_id, l.document, l.date, l.class, l.amount, l.history,
	l.pix_id, l.boleto_nosso_numero, l.balance, l.category,
	l.transaction_id, l.confidence_score, l.reconciled_at, l.reconciled_by, l.reconcile_method,
	l.created_at, l.updated_at
`

// ScanLine reads a statement line row from the scanner.
func ScanLine(s Scanner) (*statement.Line, error) {
	var l statement.Line

	var classStr string

	var pixID, nossoNumero, reconciledBy, method sql.NullString

	var balance sql.NullInt64

	var txID *uuid.UUID

	var score float64

	var reconciledAt sql.NullTime

	if err := s.Scan(
		&l.ID, &l.AccountID, &l.CondominiumID, &l.Document, &l.Date, &classStr, &l.Amount, &l.History,
		&pixID, &nossoNumero, &balance, &l.Category,
		&txID, &score, &reconciledAt, &reconciledBy, &method,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}

	l.Class = statement.Class(classStr)

	if pixID.Valid {
		l.Pix = &statement.Pix{TransactionID: pixID.String}
	}

	if nossoNumero.Valid {
		l.Boleto = &statement.Boleto{NossoNumero: nossoNumero.String}
	}

	if balance.Valid {
		l.Balance = &balance.Int64
	}

	if txID != nil {
		l.Match = &statement.Match{
			TransactionID: *txID,
			Score:         score,
			At:            reconciledAt.Time,
			By:            reconciledBy.String,
			Method:        statement.Method(method.String),
		}
	}

	return &l, nil
}

// InsertEvent appends an audit entry for a line.
func InsertEvent(ctx context.Context, db Execer, lineID uuid.UUID, e statement.Event) error {
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding event payload: %w", err)
	}

	var actor *string
	if e.Actor != "" {
		actor = &e.Actor
	}

	query := `
		INSERT INTO statement_events (statement_line_id, type, payload, actor, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := db.ExecContext(ctx, query, lineID, e.Type, raw, actor, e.At); err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

func (s *Store) GetLine(ctx context.Context, id uuid.UUID) (*statement.Line, error) {
	query := `SELECT ` + SelectColumns + ` FROM statement_lines l WHERE l.id = $1`

	line, err := ScanLine(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, statement.ErrNotFound
		}

		return nil, fmt.Errorf("getting statement line: %w", err)
	}

	events, err := s.listEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	line.Events = events

	return line, nil
}

func (s *Store) listEvents(ctx context.Context, lineID uuid.UUID) ([]statement.Event, error) {
	query := `
		SELECT type, payload, actor, created_at
		FROM statement_events
		WHERE statement_line_id = $1
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, lineID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []statement.Event

	for rows.Next() {
		var (
			e       statement.Event
			typ     string
			payload []byte
			actor   sql.NullString
		)

		if err := rows.Scan(&typ, &payload, &actor, &e.At); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		e.Type = statement.EventType(typ)
		e.Actor = actor.String

		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decoding event payload: %w", err)
			}
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return events, nil
}

func buildWhere(filter statement.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.CondominiumID != nil {
		add("l.condominium_id = $%d", *filter.CondominiumID)
	}

	if filter.AccountID != nil {
		add("l.account_id = $%d", *filter.AccountID)
	}

	if filter.Reconciled != nil {
		add("l.reconciled = $%d", *filter.Reconciled)
	}

	if filter.StartDate != nil {
		add("l.date >= $%d", *filter.StartDate)
	}

	if filter.EndDate != nil {
		add("l.date <= $%d", *filter.EndDate)
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) ListLines(ctx context.Context, filter statement.ListFilter) ([]*statement.Line, int, error) {
	where, args := buildWhere(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM statement_lines l`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting statement lines: %w", err)
	}

	query := `SELECT ` + SelectColumns + ` FROM statement_lines l` + where +
		fmt.Sprintf(" ORDER BY l.date DESC, l.id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	rows, err := s.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing statement lines: %w", err)
	}
	defer rows.Close()

	var lines []*statement.Line

	for rows.Next() {
		line, err := ScanLine(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning statement line: %w", err)
		}

		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating statement lines: %w", err)
	}

	return lines, total, nil
}

// UpdateCategory sets the category and appends the audit entry in one transaction.
func (s *Store) UpdateCategory(ctx context.Context, id uuid.UUID, category string, event statement.Event) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`UPDATE statement_lines SET category = $1, updated_at = $2 WHERE id = $3`,
		category, event.At, id)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return statement.ErrNotFound
	}

	if err := InsertEvent(ctx, dbTx, id, event); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func importLockKey(accountID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("statement-import"))
	h.Write([]byte{0})
	h.Write(accountID[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

// BeginImport opens a transaction holding an advisory lock for the account, so
// concurrent imports of the same account serialize their dedup check and insert.
func (s *Store) BeginImport(ctx context.Context, accountID uuid.UUID) (statement.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(accountID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) ExistingDocuments(ctx context.Context, accountID uuid.UUID, documents []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(documents) == 0 {
		return existing, nil
	}

	query := `
		SELECT document
		FROM statement_lines
		WHERE account_id = $1 AND document = ANY($2)
	`

	rows, err := itx.tx.QueryContext(ctx, query, accountID, documents)
	if err != nil {
		return nil, fmt.Errorf("finding existing documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		existing[doc] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return existing, nil
}

func (itx *importTx) CreateLines(ctx context.Context, lines []*statement.Line) error {
	query := `
		INSERT INTO statement_lines (
			account_id, condominium_id, document, date, class, amount, history,
			pix_id, boleto_nosso_numero, balance, category, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	now := time.Now()

	for _, l := range lines {
		var pixID, nossoNumero *string
		if l.Pix != nil {
			pixID = &l.Pix.TransactionID
		}

		if l.Boleto != nil {
			nossoNumero = &l.Boleto.NossoNumero
		}

		err := itx.tx.QueryRowContext(ctx, query,
			l.AccountID,
			l.CondominiumID,
			l.Document,
			l.Date,
			l.Class,
			l.Amount,
			l.History,
			pixID,
			nossoNumero,
			l.Balance,
			l.Category,
			now,
		).Scan(&l.ID, &l.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating statement line %s: %w", l.Document, err)
		}
	}

	return nil
}
