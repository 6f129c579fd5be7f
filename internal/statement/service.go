package statement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=statement
type Repository interface {
	GetLine(ctx context.Context, id uuid.UUID) (*Line, error)
	ListLines(ctx context.Context, filter ListFilter) ([]*Line, int, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, category string, event Event) error

	BeginImport(ctx context.Context, accountID uuid.UUID) (ImportTx, error)
}

// ImportTx holds the per-account import lock until Commit or Rollback.
type ImportTx interface {
	ExistingDocuments(ctx context.Context, accountID uuid.UUID, documents []string) (map[string]bool, error)
	CreateLines(ctx context.Context, lines []*Line) error
	Commit() error
	Rollback() error
}

// Categorizer assigns categories from a line's history and learns manual corrections.
type Categorizer interface {
	Categorize(ctx context.Context, history string) (string, error)
	Learn(ctx context.Context, rawPattern, category string) error
}

// IngestHook runs the automatic reconciliation pass after new lines are committed.
type IngestHook interface {
	RunIngestPass(ctx context.Context, condominiumID, accountID uuid.UUID) error
}

// Invalidator drops cached aggregates for a condominium.
type Invalidator interface {
	Invalidate(ctx context.Context, condominiumID uuid.UUID) error
}

type Service struct {
	repo        Repository
	categorizer Categorizer
	hook        IngestHook
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Service)

func WithIngestHook(h IngestHook) Option {
	return func(s *Service) { s.hook = h }
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, categorizer Categorizer, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		categorizer: categorizer,
		logger:      slog.Default(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type ListFilter struct {
	CondominiumID *uuid.UUID
	AccountID     *uuid.UUID
	Reconciled    *bool
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	Limit         int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Normalized fills in paging defaults.
func (f ListFilter) Normalized() ListFilter {
	if f.Page <= 0 {
		f.Page = 1
	}

	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}

	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}

	return f
}

// Offset is the number of rows skipped for the filter's page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type Page struct {
	Lines      []*Line
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*Page, error) {
	filter = filter.Normalized()

	lines, total, err := s.repo.ListLines(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &Page{
		Lines:      lines,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Line, error) {
	return s.repo.GetLine(ctx, id)
}

// SetCategory overrides a line's category, records the change in its audit
// log and teaches the categorizer the new mapping.
func (s *Service) SetCategory(ctx context.Context, id uuid.UUID, category, actor string) (*Line, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrValidation)
	}

	line, err := s.repo.GetLine(ctx, id)
	if err != nil {
		return nil, err
	}

	event := Event{
		Type: EventManualCategorized,
		Payload: map[string]any{
			"categoria_anterior": line.Category,
			"categoria":          category,
		},
		Actor: actor,
		At:    s.now(),
	}

	if err := s.repo.UpdateCategory(ctx, id, category, event); err != nil {
		return nil, fmt.Errorf("updating category: %w", err)
	}

	if line.History != "" {
		if err := s.categorizer.Learn(ctx, line.History, category); err != nil {
			s.logger.Warn("failed to learn category mapping", "line_id", id, "error", err)
		}
	}

	updated := AppendEvent(*line, event)
	updated.Category = category

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, line.CondominiumID); err != nil {
			s.logger.Warn("failed to invalidate cache", "condominium_id", line.CondominiumID, "error", err)
		}
	}

	return &updated, nil
}
