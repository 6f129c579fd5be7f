package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
)

const runTimeout = 5 * time.Minute

type runState int

const (
	runStateForm runState = iota
	runStateRunning
	runStateResult
)

type RunModel struct {
	CommonModel
	reconciler Reconciler
	scope      Scope

	state  runState
	form   *huh.Form
	policy reconciliation.Policy

	summary *reconciliation.Summary
	err     error
}

func NewRunModel(reconciler Reconciler, scope Scope) RunModel {
	var (
		policy  = reconciliation.PolicyComplete
		confirm = true
	)

	m := RunModel{reconciler: reconciler, scope: scope, policy: policy}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[reconciliation.Policy]().
				Key("policy").
				Title("Policy").
				Options(
					huh.NewOption("Complete: commit strong matches, flag the rest for review", reconciliation.PolicyComplete),
					huh.NewOption("Conservative: commit only near-certain matches", reconciliation.PolicyConservative),
					huh.NewOption("Import: the pass that follows a statement import", reconciliation.PolicyIngest),
				).
				Value(&policy),
			huh.NewConfirm().
				Key("confirm").
				Title("Commit matches now?").
				Affirmative("Run").
				Negative("Cancel").
				Value(&confirm),
		),
	).WithWidth(70).WithShowHelp(false)

	return m
}

func (m RunModel) Title() string { return "Run Reconciliation" }

func (m RunModel) ShortHelp() string {
	if m.state == runStateResult {
		return "Esc: back"
	}

	return "Enter: select | Esc: back"
}

func (m RunModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

	case runResultMsg:
		m.state = runStateResult
		m.summary = msg.summary
		m.err = msg.err

		return m, nil
	}

	if m.state != runStateForm {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !m.form.GetBool("confirm") {
		return m, Back
	}

	if p, ok := m.form.Get("policy").(reconciliation.Policy); ok {
		m.policy = p
	}

	m.state = runStateRunning

	return m, m.runCmd()
}

func (m RunModel) View() string {
	style := lipgloss.NewStyle().Padding(2)

	switch m.state {
	case runStateForm:
		return style.Render("Reconcile " + m.scope.String() + "\n\n" + m.form.View())
	case runStateRunning:
		return style.Render(fmt.Sprintf("Running %s...", m.policy))
	}

	if m.err != nil {
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	return style.Render(renderSummary(m.summary) + "\n\n(Esc to go back)")
}

func renderSummary(s *reconciliation.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Policy: %s\n\n", s.Policy)
	fmt.Fprintf(&b, "Processed:  %d\n", s.Processed)
	fmt.Fprintf(&b, "Reconciled: %s\n", successStyle.Render(fmt.Sprint(s.Reconciled)))
	fmt.Fprintf(&b, "For review: %d\n", s.Review)
	fmt.Fprintf(&b, "Conflicts:  %d\n", s.Conflicts)
	fmt.Fprintf(&b, "Failed:     %d\n", s.Failed)

	if len(s.Matches) > 0 {
		b.WriteString("\nMatches:\n")

		for i, c := range s.Matches {
			if i == 10 {
				fmt.Fprintf(&b, "  ... and %d more\n", len(s.Matches)-i)
				break
			}

			fmt.Fprintf(&b, "  %s  %10s  %-30s -> %s (%s)\n",
				FormatDate(c.Line.Date),
				FormatLineAmount(c.Line),
				truncate(c.Line.History, 30),
				truncate(c.Transaction.Description, 30),
				FormatScore(c.Score),
			)
		}
	}

	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

type runResultMsg struct {
	summary *reconciliation.Summary
	err     error
}

func (m RunModel) runCmd() tea.Cmd {
	params := reconciliation.RunParams{
		CondominiumID: m.scope.CondominiumID,
		AccountID:     m.scope.AccountID,
		Policy:        m.policy,
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		summary, err := m.reconciler.Run(ctx, params)

		return runResultMsg{summary: summary, err: err}
	}
}
