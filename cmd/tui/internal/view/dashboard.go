package view

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/conciliacao/internal/report"
)

type DashboardModel struct {
	CommonModel
	reports Reports
	scope   Scope

	dashboard *report.Dashboard
	loading   bool
	err       error
}

func NewDashboardModel(reports Reports, scope Scope) DashboardModel {
	return DashboardModel{reports: reports, scope: scope, loading: true}
}

func (m DashboardModel) Title() string     { return "Dashboard" }
func (m DashboardModel) ShortHelp() string { return "r: refresh | Esc: back" }

func (m DashboardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardMsg:
		m.loading = false
		m.dashboard = msg.dashboard
		m.err = msg.err

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	return m, nil
}

func (m DashboardModel) View() string {
	style := lipgloss.NewStyle().Padding(2)

	switch {
	case m.loading:
		return style.Render("Loading dashboard...")
	case m.err != nil:
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
	}

	d := m.dashboard

	body := fmt.Sprintf(
		"Statement lines:       %d\n"+
			"Reconciled:            %d\n"+
			"Unreconciled:          %d\n"+
			"Pending transactions:  %d\n"+
			"Reconciled (30 days):  %d\n\n"+
			"Progress: %s",
		d.Total,
		d.ReconciledCount,
		d.UnreconciledCount,
		d.PendingTransactions,
		d.ReconciledLast30Days,
		activeStyle.Render(fmt.Sprintf("%.2f%%", d.PercentReconciled)),
	)

	return style.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			"Dashboard for "+m.scope.String(),
			"",
			panelStyle.Render(body),
			"",
			m.ShortHelp(),
		),
	)
}

type dashboardMsg struct {
	dashboard *report.Dashboard
	err       error
}

func (m DashboardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		d, err := m.reports.Dashboard(ctx, m.scope.CondominiumID, m.scope.AccountID)

		return dashboardMsg{dashboard: d, err: err}
	}
}
