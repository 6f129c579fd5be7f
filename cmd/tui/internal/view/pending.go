package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

const pendingPageSize = 100

type pendingState int

const (
	pendingStateBrowse pendingState = iota
	pendingStateEdit
)

// PendingModel lists unreconciled lines and lets the user fix their category.
type PendingModel struct {
	CommonModel
	reports    Reports
	statements Statements
	scope      Scope

	state pendingState
	table table.Model
	page  *statement.Page
	form  *huh.Form

	pageNo  int
	loading bool
	err     error
	status  string
}

func NewPendingModel(reports Reports, statements Statements, scope Scope) PendingModel {
	return PendingModel{
		reports:    reports,
		statements: statements,
		scope:      scope,
		table: newTable([]table.Column{
			{Title: "Date", Width: 10},
			{Title: "Document", Width: 16},
			{Title: "Amount", Width: 12},
			{Title: "History", Width: 40},
			{Title: "Category", Width: 24},
		}),
		pageNo:  1,
		loading: true,
	}
}

func (m PendingModel) Title() string { return "Pending Lines" }
func (m PendingModel) ShortHelp() string {
	if m.state == pendingStateEdit {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | c: category | n/p: next/prev page | r: refresh"
}

func (m PendingModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m PendingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pendingMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.page = msg.page
		m.refreshTable()

		return m, nil

	case categorySaveMsg:
		m.status = ""
		if msg.err != nil {
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
		}

		m.state = pendingStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == pendingStateEdit {
		return m.updateEdit(msg)
	}

	return m.updateBrowse(msg)
}

func (m PendingModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "c":
			return m.enterEditMode()
		case "n":
			if m.page != nil && m.pageNo < m.page.TotalPages {
				m.pageNo++
				m.loading = true

				return m, m.loadCmd()
			}
		case "p":
			if m.pageNo > 1 {
				m.pageNo--
				m.loading = true

				return m, m.loadCmd()
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m PendingModel) selected() *statement.Line {
	if m.page == nil {
		return nil
	}

	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.page.Lines) {
		return nil
	}

	return m.page.Lines[idx]
}

func (m PendingModel) enterEditMode() (tea.Model, tea.Cmd) {
	line := m.selected()
	if line == nil {
		return m, nil
	}

	category := line.Category
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("category").
				Title("Category").
				Value(&category).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("category cannot be empty")
					}

					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = pendingStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m PendingModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = pendingStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd()
}

func (m PendingModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading pending lines...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := fmt.Sprintf("%d unreconciled lines | page %s",
		m.page.Total,
		activeStyle.Render(fmt.Sprintf("%d/%d", m.page.Page, max(m.page.TotalPages, 1))),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableStyle.Render(m.table.View()),
		m.ShortHelp(),
	)

	if line := m.selected(); m.state == pendingStateEdit && m.form != nil && line != nil {
		panel := panelStyle.Width(48).Render(
			fmt.Sprintf("Edit Category\n\nHistory: %s\n\n%s", line.History, m.form.View()),
		)

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *PendingModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.page.Lines))

	for _, l := range m.page.Lines {
		rows = append(rows, table.Row{
			FormatDate(l.Date),
			l.Document,
			FormatLineAmount(l),
			l.History,
			l.Category,
		})
	}

	m.table.SetRows(rows)
}

type pendingMsg struct {
	page *statement.Page
	err  error
}

func (m PendingModel) loadCmd() tea.Cmd {
	pageNo := m.pageNo

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		page, err := m.reports.Pending(ctx, m.scope.CondominiumID, m.scope.AccountID, pageNo, pendingPageSize)

		return pendingMsg{page: page, err: err}
	}
}

type categorySaveMsg struct {
	err error
}

func (m PendingModel) saveCmd() tea.Cmd {
	line := m.selected()
	if line == nil {
		return nil
	}

	category := strings.TrimSpace(m.form.GetString("category"))

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := m.statements.SetCategory(ctx, line.ID, category, Actor)

		return categorySaveMsg{err: err}
	}
}
