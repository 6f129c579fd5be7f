// Package report serves the read side of reconciliation: the dashboard
// counters, the pending line list and the suggestion-only run.
package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

// RecentWindow is how far back reconciliations count as recent on the dashboard.
const RecentWindow = 30 * 24 * time.Hour

//go:generate mockgen -source=report.go -destination=repository_mock.go -package=report
type Repository interface {
	Counts(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID, since time.Time) (Counts, error)
}

// LineLister pages through statement lines.
type LineLister interface {
	List(ctx context.Context, filter statement.ListFilter) (*statement.Page, error)
}

// Suggester runs the suggestion-only policy.
type Suggester interface {
	Suggest(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) ([]reconciliation.Suggestion, error)
}

// Counts are the raw aggregates behind a Dashboard.
type Counts struct {
	Total                int
	Reconciled           int
	PendingTransactions  int
	ReconciledLast30Days int
}

type Dashboard struct {
	Total                int     `json:"total"`
	ReconciledCount      int     `json:"reconciled_count"`
	UnreconciledCount    int     `json:"unreconciled_count"`
	PendingTransactions  int     `json:"pending_transactions"`
	PercentReconciled    float64 `json:"percent_reconciled"`
	ReconciledLast30Days int     `json:"reconciled_last_30_days"`
}

func newDashboard(c Counts) Dashboard {
	d := Dashboard{
		Total:                c.Total,
		ReconciledCount:      c.Reconciled,
		UnreconciledCount:    c.Total - c.Reconciled,
		PendingTransactions:  c.PendingTransactions,
		ReconciledLast30Days: c.ReconciledLast30Days,
	}

	if c.Total > 0 {
		d.PercentReconciled = math.Round(float64(c.Reconciled)*10000/float64(c.Total)) / 100
	}

	return d
}

type Service struct {
	repo      Repository
	lines     LineLister
	suggester Suggester
	cache     Cache
	now       func() time.Time
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, lines LineLister, suggester Suggester, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		lines:     lines,
		suggester: suggester,
		cache:     NopCache{},
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Dashboard(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) (*Dashboard, error) {
	if condominiumID == uuid.Nil {
		return nil, fmt.Errorf("%w: condominium id is required", reconciliation.ErrValidation)
	}

	var d Dashboard

	err := s.cache.FetchJSON(ctx, condominiumID, dashboardKey(accountID), &d, func(ctx context.Context) (any, error) {
		c, err := s.repo.Counts(ctx, condominiumID, accountID, s.now().Add(-RecentWindow))
		if err != nil {
			return nil, fmt.Errorf("counting lines: %w", err)
		}

		return newDashboard(c), nil
	})
	if err != nil {
		return nil, err
	}

	return &d, nil
}

// Pending pages through the unreconciled lines of a condominium.
func (s *Service) Pending(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID, page, limit int) (*statement.Page, error) {
	if condominiumID == uuid.Nil {
		return nil, fmt.Errorf("%w: condominium id is required", reconciliation.ErrValidation)
	}

	return s.lines.List(ctx, statement.ListFilter{
		CondominiumID: &condominiumID,
		AccountID:     accountID,
		Reconciled:    new(false),
		Page:          page,
		Limit:         limit,
	})
}

func (s *Service) Suggestions(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) ([]reconciliation.Suggestion, error) {
	return s.suggester.Suggest(ctx, condominiumID, accountID)
}

func dashboardKey(accountID *uuid.UUID) string {
	if accountID == nil {
		return "dashboard:-"
	}

	return "dashboard:" + accountID.String()
}
