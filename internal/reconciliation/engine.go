package reconciliation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/conciliacao/internal/scoring"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

//go:generate mockgen -source=engine.go -destination=repository_mock.go -package=reconciliation
type Repository interface {
	// ListUnreconciledLines returns lines ordered by movement date then id.
	ListUnreconciledLines(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) ([]*statement.Line, error)
	// ListCandidateTransactions returns unreconciled pending or approved
	// transactions ordered by due date then id.
	ListCandidateTransactions(ctx context.Context, condominiumID uuid.UUID) ([]*transaction.Transaction, error)

	GetLine(ctx context.Context, id uuid.UUID) (*statement.Line, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)

	// Commit links both sides only if both are still unreconciled, returning
	// ErrLineTaken or ErrTransactionTaken otherwise.
	Commit(ctx context.Context, p CommitParams) error
	// Revert unlinks both sides only if they are still linked to each other,
	// returning ErrConflict otherwise.
	Revert(ctx context.Context, p RevertParams) error
}

// Invalidator drops cached aggregates for a condominium.
type Invalidator interface {
	Invalidate(ctx context.Context, condominiumID uuid.UUID) error
}

type Engine struct {
	repo        Repository
	thresholds  Thresholds
	workers     int
	retries     int
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Engine)

func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// WithWorkers bounds the goroutines scoring a batch.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCommitRetries bounds how many times a line is re-matched after its
// chosen transaction was taken by a concurrent run.
func WithCommitRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.retries = n
		}
	}
}

func WithInvalidator(inv Invalidator) Option {
	return func(e *Engine) { e.invalidator = inv }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:       repo,
		thresholds: DefaultThresholds(),
		workers:    4,
		retries:    3,
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type RunParams struct {
	CondominiumID uuid.UUID
	AccountID     *uuid.UUID
	Policy        Policy
}

// Run applies a policy to every unreconciled line of the condominium,
// optionally scoped to one account.
func (e *Engine) Run(ctx context.Context, params RunParams) (*Summary, error) {
	if params.CondominiumID == uuid.Nil {
		return nil, fmt.Errorf("%w: condominium id is required", ErrValidation)
	}

	if _, err := ParsePolicy(string(params.Policy)); err != nil {
		return nil, err
	}

	lines, err := e.repo.ListUnreconciledLines(ctx, params.CondominiumID, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("listing unreconciled lines: %w", err)
	}

	txs, err := e.repo.ListCandidateTransactions(ctx, params.CondominiumID)
	if err != nil {
		return nil, fmt.Errorf("listing candidate transactions: %w", err)
	}

	txs = slices.DeleteFunc(txs, func(tx *transaction.Transaction) bool {
		return tx.Reconciled() || !tx.Status.Reconcilable()
	})

	summary := &Summary{Policy: params.Policy, Processed: len(lines)}
	if len(lines) == 0 || len(txs) == 0 {
		return summary, nil
	}

	matrix, err := e.scoreAll(ctx, lines, txs, params.Policy.scorer())
	if err != nil {
		return nil, err
	}

	if !params.Policy.Writes() {
		summary.Suggestions = e.suggest(lines, txs, matrix)
		return summary, nil
	}

	e.commitAll(ctx, params.Policy, lines, txs, matrix, summary)

	if summary.Reconciled > 0 {
		e.invalidate(ctx, params.CondominiumID)
	}

	e.logger.Info("reconciliation run finished",
		"condominium_id", params.CondominiumID,
		"policy", params.Policy,
		"processed", summary.Processed,
		"reconciled", summary.Reconciled,
		"review", summary.Review,
		"conflicts", summary.Conflicts,
		"failed", summary.Failed,
	)

	return summary, nil
}

// RunIngestPass runs the importacao policy for one account. It is called
// after an import commits.
func (e *Engine) RunIngestPass(ctx context.Context, condominiumID, accountID uuid.UUID) error {
	_, err := e.Run(ctx, RunParams{
		CondominiumID: condominiumID,
		AccountID:     &accountID,
		Policy:        PolicyIngest,
	})

	return err
}

// Suggest returns the top candidates per line without writing anything.
func (e *Engine) Suggest(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) ([]Suggestion, error) {
	summary, err := e.Run(ctx, RunParams{
		CondominiumID: condominiumID,
		AccountID:     accountID,
		Policy:        PolicySuggestions,
	})
	if err != nil {
		return nil, err
	}

	return summary.Suggestions, nil
}

func (e *Engine) scoreAll(
	ctx context.Context,
	lines []*statement.Line,
	txs []*transaction.Transaction,
	score func(*statement.Line, *transaction.Transaction) scoring.Result,
) ([][]scoring.Result, error) {
	matrix := make([][]scoring.Result, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			row := make([]scoring.Result, len(txs))
			for j, tx := range txs {
				row[j] = score(line, tx)
			}

			matrix[i] = row

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring candidates: %w", err)
	}

	return matrix, nil
}

func (e *Engine) suggest(lines []*statement.Line, txs []*transaction.Transaction, matrix [][]scoring.Result) []Suggestion {
	var out []Suggestion

	for i, line := range lines {
		var candidates []Candidate

		for j, tx := range txs {
			r := matrix[i][j]
			if r.Score >= e.thresholds.Suggestion {
				candidates = append(candidates, newCandidate(line, tx, r))
			}
		}

		if len(candidates) == 0 {
			continue
		}

		// Stable sort keeps store order among equal scores.
		slices.SortStableFunc(candidates, func(a, b Candidate) int {
			return cmp.Compare(b.Score, a.Score)
		})

		if n := e.thresholds.MaxSuggestions; n > 0 && len(candidates) > n {
			candidates = candidates[:n]
		}

		out = append(out, Suggestion{Line: line, Candidates: candidates})
	}

	return out
}

func (e *Engine) commitAll(
	ctx context.Context,
	policy Policy,
	lines []*statement.Line,
	txs []*transaction.Transaction,
	matrix [][]scoring.Result,
	summary *Summary,
) {
	taken := make([]bool, len(txs))

	for i, line := range lines {
		if ctx.Err() != nil {
			summary.Failed += len(lines) - i
			return
		}

		e.commitLine(ctx, policy, line, txs, matrix[i], taken, summary)
	}
}

func (e *Engine) commitLine(
	ctx context.Context,
	policy Policy,
	line *statement.Line,
	txs []*transaction.Transaction,
	row []scoring.Result,
	taken []bool,
	summary *Summary,
) {
	for attempt := 0; ; attempt++ {
		j, ok := e.pick(policy, row, taken)
		if !ok {
			return
		}

		if row[j].Score < e.commitThreshold(policy) {
			if policy == PolicyComplete && row[j].Score >= e.thresholds.Review {
				summary.Review++
				summary.Suggestions = append(summary.Suggestions, Suggestion{
					Line:       line,
					Candidates: []Candidate{newCandidate(line, txs[j], row[j])},
				})
			}

			return
		}

		candidate := newCandidate(line, txs[j], row[j])

		err := e.commit(ctx, candidate, policy.method(), "")
		switch {
		case err == nil:
			taken[j] = true
			summary.Reconciled++
			summary.Matches = append(summary.Matches, candidate)

			return
		case errors.Is(err, ErrLineTaken):
			summary.Conflicts++
			return
		case errors.Is(err, ErrTransactionTaken):
			summary.Conflicts++
			taken[j] = true

			if attempt >= e.retries {
				summary.Failed++
				return
			}
		default:
			e.logger.Error("failed to commit reconciliation",
				"line_id", line.ID, "transaction_id", txs[j].ID, "error", err)
			summary.Failed++

			return
		}
	}
}

// pick returns the transaction index the policy would take for a line. The
// complete and ingest policies take the highest score, the conservative
// policy takes the first score at or above its threshold. Ties go to the
// earliest transaction in store order.
func (e *Engine) pick(policy Policy, row []scoring.Result, taken []bool) (int, bool) {
	best := -1

	for j, r := range row {
		if taken[j] {
			continue
		}

		if policy == PolicyConservative {
			if r.Score >= e.thresholds.Conservative {
				return j, true
			}

			continue
		}

		if best < 0 || r.Score > row[best].Score {
			best = j
		}
	}

	return best, best >= 0
}

func (e *Engine) commitThreshold(policy Policy) float64 {
	switch policy {
	case PolicyComplete:
		return e.thresholds.Complete
	case PolicyConservative:
		return e.thresholds.Conservative
	}

	return e.thresholds.Ingest
}

func (e *Engine) commit(ctx context.Context, c Candidate, method statement.Method, actor string) error {
	at := e.now()

	reasons := make([]string, len(c.Reasons))
	for i, r := range c.Reasons {
		reasons[i] = string(r)
	}

	return e.repo.Commit(ctx, CommitParams{
		LineID:        c.Line.ID,
		TransactionID: c.Transaction.ID,
		Score:         c.Score,
		Method:        method,
		Actor:         actor,
		At:            at,
		Event: statement.Event{
			Type: statement.ReconciledEventType(method),
			Payload: map[string]any{
				"transacao_id": c.Transaction.ID.String(),
				"score":        c.Score,
				"metodo":       string(method),
				"motivos":      reasons,
			},
			Actor: actor,
			At:    at,
		},
	})
}

func (e *Engine) invalidate(ctx context.Context, condominiumID uuid.UUID) {
	if e.invalidator == nil {
		return
	}

	if err := e.invalidator.Invalidate(ctx, condominiumID); err != nil {
		e.logger.Warn("failed to invalidate cache", "condominium_id", condominiumID, "error", err)
	}
}

func newCandidate(line *statement.Line, tx *transaction.Transaction, r scoring.Result) Candidate {
	return Candidate{Line: line, Transaction: tx, Score: r.Score, Reasons: r.Reasons}
}
