package reconciliation_test

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

// memRepo is a stateful in-memory Repository with the same compare-and-swap
// semantics as the Postgres store.
type memRepo struct {
	mu     sync.Mutex
	lines  map[uuid.UUID]*statement.Line
	txs    map[uuid.UUID]*transaction.Transaction
	events map[uuid.UUID][]statement.Event

	commits int

	// beforeCommit runs under the lock ahead of each commit and may change
	// state or return an error to fail the commit.
	beforeCommit func(r *memRepo, p reconciliation.CommitParams) error
}

func newMemRepo() *memRepo {
	return &memRepo{
		lines:  make(map[uuid.UUID]*statement.Line),
		txs:    make(map[uuid.UUID]*transaction.Transaction),
		events: make(map[uuid.UUID][]statement.Event),
	}
}

func (r *memRepo) addLine(l *statement.Line) *statement.Line {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}

	r.lines[l.ID] = l

	return l
}

func (r *memRepo) addTx(tx *transaction.Transaction) *transaction.Transaction {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	if tx.Status == "" {
		tx.Status = transaction.StatusPending
	}

	r.txs[tx.ID] = tx

	return tx
}

// line returns a snapshot of the stored line.
func (r *memRepo) line(id uuid.UUID) *statement.Line {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *r.lines[id]

	return &c
}

func (r *memRepo) tx(id uuid.UUID) *transaction.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *r.txs[id]

	return &c
}

func (r *memRepo) eventTypes(lineID uuid.UUID) []statement.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	var types []statement.EventType
	for _, e := range r.events[lineID] {
		types = append(types, e.Type)
	}

	return types
}

func (r *memRepo) ListUnreconciledLines(_ context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) ([]*statement.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*statement.Line

	for _, l := range r.lines {
		if l.CondominiumID != condominiumID || l.Reconciled() {
			continue
		}

		if accountID != nil && l.AccountID != *accountID {
			continue
		}

		c := *l
		out = append(out, &c)
	}

	slices.SortFunc(out, func(a, b *statement.Line) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID.String(), b.ID.String()))
	})

	return out, nil
}

func (r *memRepo) ListCandidateTransactions(_ context.Context, condominiumID uuid.UUID) ([]*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*transaction.Transaction

	for _, tx := range r.txs {
		if tx.CondominiumID != condominiumID || tx.Reconciled() || !tx.Status.Reconcilable() {
			continue
		}

		c := *tx
		out = append(out, &c)
	}

	slices.SortFunc(out, func(a, b *transaction.Transaction) int {
		return cmp.Or(a.DueDate.Compare(b.DueDate), cmp.Compare(a.ID.String(), b.ID.String()))
	})

	return out, nil
}

func (r *memRepo) GetLine(_ context.Context, id uuid.UUID) (*statement.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lines[id]
	if !ok {
		return nil, statement.ErrNotFound
	}

	c := *l
	c.Events = slices.Clone(r.events[id])

	return &c, nil
}

func (r *memRepo) GetTransaction(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}

	c := *tx

	return &c, nil
}

func (r *memRepo) Commit(_ context.Context, p reconciliation.CommitParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.beforeCommit != nil {
		if err := r.beforeCommit(r, p); err != nil {
			return err
		}
	}

	l, ok := r.lines[p.LineID]
	if !ok {
		return statement.ErrNotFound
	}

	tx, ok := r.txs[p.TransactionID]
	if !ok {
		return transaction.ErrNotFound
	}

	if l.Reconciled() {
		return reconciliation.ErrLineTaken
	}

	if tx.Reconciled() || !tx.Status.Reconcilable() {
		return reconciliation.ErrTransactionTaken
	}

	l.Match = &statement.Match{
		TransactionID: tx.ID,
		Score:         p.Score,
		At:            p.At,
		By:            p.Actor,
		Method:        p.Method,
	}
	tx.Match = &transaction.Match{StatementLineID: l.ID, At: p.At}
	r.events[l.ID] = append(r.events[l.ID], p.Event)
	r.commits++

	return nil
}

func (r *memRepo) Revert(_ context.Context, p reconciliation.RevertParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.lines[p.LineID]
	if !ok {
		return statement.ErrNotFound
	}

	tx, ok := r.txs[p.TransactionID]
	if !ok || l.Match == nil || l.Match.TransactionID != tx.ID {
		return reconciliation.ErrConflict
	}

	l.Match = nil
	tx.Match = nil
	r.events[l.ID] = append(r.events[l.ID], p.Event)

	return nil
}
