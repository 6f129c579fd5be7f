package view

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/importer"
	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/report"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

// Actor is recorded in the audit trail for changes made from the terminal.
const Actor = "tui"

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// Scope is the condominium, and optionally the account, every screen works on.
type Scope struct {
	CondominiumID uuid.UUID
	AccountID     *uuid.UUID
}

func (s Scope) String() string {
	if s.AccountID == nil {
		return s.CondominiumID.String() + " (all accounts)"
	}

	return s.CondominiumID.String() + " / " + s.AccountID.String()
}

type Reports interface {
	Dashboard(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) (*report.Dashboard, error)
	Pending(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID, page, limit int) (*statement.Page, error)
	Suggestions(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) ([]reconciliation.Suggestion, error)
}

type Reconciler interface {
	Run(ctx context.Context, params reconciliation.RunParams) (*reconciliation.Summary, error)
	ReconcileManual(ctx context.Context, params reconciliation.ManualParams) (*statement.Line, error)
}

type Statements interface {
	Import(ctx context.Context, params statement.ImportParams) (*statement.ImportResult, error)
	SetCategory(ctx context.Context, id uuid.UUID, category, actor string) (*statement.Line, error)
}

type Parser interface {
	Parse(format importer.Format, r io.Reader) ([]statement.ParsedRow, error)
}
