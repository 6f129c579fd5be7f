package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/scoring"
)

type SuggestionsModel struct {
	CommonModel
	reports    Reports
	reconciler Reconciler
	scope      Scope

	table       table.Model
	suggestions []reconciliation.Suggestion

	loading bool
	err     error
	status  string
}

func NewSuggestionsModel(reports Reports, reconciler Reconciler, scope Scope) SuggestionsModel {
	return SuggestionsModel{
		reports:    reports,
		reconciler: reconciler,
		scope:      scope,
		table: newTable([]table.Column{
			{Title: "Date", Width: 10},
			{Title: "Amount", Width: 12},
			{Title: "History", Width: 32},
			{Title: "Best candidate", Width: 32},
			{Title: "Score", Width: 6},
			{Title: "Why", Width: 30},
		}),
		loading: true,
	}
}

func (m SuggestionsModel) Title() string { return "Suggestions" }
func (m SuggestionsModel) ShortHelp() string {
	return "Enter: reconcile with best candidate | r: refresh | Esc: back"
}

func (m SuggestionsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m SuggestionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case suggestionsMsg:
		m.loading = false
		m.err = msg.err
		m.suggestions = m.suggestions[:0]

		for _, s := range msg.suggestions {
			if len(s.Candidates) > 0 {
				m.suggestions = append(m.suggestions, s)
			}
		}

		m.refreshTable()

		return m, nil

	case reconcileResultMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
			return m, nil
		}

		m.status = successStyle.Render("Reconciled line " + msg.document)
		m.loading = true

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "enter":
			return m, m.reconcileCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m SuggestionsModel) View() string {
	switch {
	case m.loading:
		return lipgloss.NewStyle().Padding(2).Render("Scoring unreconciled lines...")
	case m.err != nil:
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case len(m.suggestions) == 0:
		return lipgloss.NewStyle().Padding(2).Render("No suggestions for " + m.scope.String() + "\n\n(Esc to go back)")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%d lines with candidates", len(m.suggestions)),
		tableStyle.Render(m.table.View()),
		m.ShortHelp(),
	)

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *SuggestionsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.suggestions))

	for _, s := range m.suggestions {
		best := s.Candidates[0]
		rows = append(rows, table.Row{
			FormatDate(s.Line.Date),
			FormatLineAmount(s.Line),
			s.Line.History,
			best.Transaction.Description,
			FormatScore(best.Score),
			formatReasons(best.Reasons),
		})
	}

	m.table.SetRows(rows)
}

func formatReasons(reasons []scoring.Reason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}

	return strings.Join(parts, ", ")
}

type suggestionsMsg struct {
	suggestions []reconciliation.Suggestion
	err         error
}

func (m SuggestionsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		s, err := m.reports.Suggestions(ctx, m.scope.CondominiumID, m.scope.AccountID)

		return suggestionsMsg{suggestions: s, err: err}
	}
}

type reconcileResultMsg struct {
	document string
	err      error
}

func (m SuggestionsModel) reconcileCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.suggestions) {
		return nil
	}

	s := m.suggestions[idx]
	params := reconciliation.ManualParams{
		LineID:        s.Line.ID,
		TransactionID: s.Candidates[0].Transaction.ID,
		Actor:         Actor,
		Notes:         "accepted suggestion (score " + FormatScore(s.Candidates[0].Score) + ")",
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.reconciler.ReconcileManual(ctx, params)

		return reconcileResultMsg{document: s.Line.Document, err: err}
	}
}
