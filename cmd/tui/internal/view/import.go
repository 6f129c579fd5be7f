package view

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/importer"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateForm importState = iota
	importStateFilePick
	importStateImporting
	importStateResult
)

type ImportModel struct {
	CommonModel
	statements Statements
	parser     Parser
	scope      Scope

	state      importState
	form       *huh.Form
	filePicker filepicker.Model

	account string
	format  importer.Format

	result *statement.ImportResult
	status string
	err    error
}

func NewImportModel(statements Statements, parser Parser, scope Scope) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt", ".ofx"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	var account string
	if scope.AccountID != nil {
		account = scope.AccountID.String()
	}

	return newImportModel(statements, parser, scope, fp, account)
}

func newImportModel(statements Statements, parser Parser, scope Scope, fp filepicker.Model, account string) ImportModel {
	format := importer.FormatAuto

	m := ImportModel{
		statements: statements,
		parser:     parser,
		scope:      scope,
		filePicker: fp,
		account:    account,
		format:     format,
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("account").
				Title("Account ID").
				Value(&account).
				Validate(func(s string) error {
					if _, err := uuid.Parse(strings.TrimSpace(s)); err != nil {
						return errors.New("must be a UUID")
					}

					return nil
				}),
			huh.NewSelect[importer.Format]().
				Key("format").
				Title("Format").
				Options(
					huh.NewOption("Detect from content", importer.FormatAuto),
					huh.NewOption("CSV / TXT", importer.FormatCSV),
					huh.NewOption("OFX", importer.FormatOFX),
				).
				Value(&format),
		),
	).WithWidth(50).WithShowHelp(false)

	return m
}

func (m ImportModel) Title() string { return "Import Statement" }

func (m ImportModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

	case importResultMsg:
		m.state = importStateResult
		m.result = msg.result
		m.err = msg.err

		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		return m, nil
	}

	switch m.state {
	case importStateForm:
		return m.updateForm(msg)
	case importStateFilePick:
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.state = importStateImporting
			m.status = fmt.Sprintf("Importing from %s...", path)

			return m, m.importCmd(path)
		}

		return m, cmd
	}

	return m, nil
}

func (m ImportModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.account = strings.TrimSpace(m.form.GetString("account"))
	if f, ok := m.form.Get("format").(importer.Format); ok {
		m.format = f
	}

	m.state = importStateFilePick

	return m, m.filePicker.Init()
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick, importStateResult:
		// Start over keeping the chosen account.
		next := newImportModel(m.statements, m.parser, m.scope, m.filePicker, m.account)

		return next, next.Init()
	}

	return m, Back
}

func (m ImportModel) View() string {
	style := lipgloss.NewStyle().Padding(2)

	switch m.state {
	case importStateForm:
		return style.Render("Import into " + m.scope.CondominiumID.String() + "\n\n" + m.form.View())
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select statement file (%s):\n\n%s", formatLabel(m.format), m.filePicker.View()),
		)
	case importStateImporting:
		return style.Render(m.status)
	}

	if m.err != nil {
		return style.Render(errorStyle.Render(m.status) + "\n\n(Esc to go back)")
	}

	return style.Render(renderImportResult(m.result) + "\n\n(Esc to go back)")
}

func formatLabel(f importer.Format) string {
	if f == importer.FormatAuto {
		return "auto"
	}

	return string(f)
}

func renderImportResult(r *statement.ImportResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rows:       %d\n", r.Total)
	fmt.Fprintf(&b, "Imported:   %s\n", successStyle.Render(fmt.Sprint(r.Inserted)))
	fmt.Fprintf(&b, "Duplicates: %d\n", r.Duplicate)
	fmt.Fprintf(&b, "Errors:     %d", r.Errored)

	shown := 0

	for _, d := range r.Detail {
		if d.Status != statement.RowError {
			continue
		}

		if shown == 0 {
			b.WriteString("\n\nRejected rows:")
		}

		if shown == 10 {
			fmt.Fprintf(&b, "\n  ... and %d more", r.Errored-shown)
			break
		}

		fmt.Fprintf(&b, "\n  row %d: %s", d.Row, errorStyle.Render(d.Error))
		shown++
	}

	return panelStyle.Render(b.String())
}

type importResultMsg struct {
	result *statement.ImportResult
	err    error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	format := m.format
	params := statement.ImportParams{
		AccountID:     uuid.MustParse(m.account),
		CondominiumID: m.scope.CondominiumID,
	}

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		rows, err := m.parser.Parse(format, f)
		if err != nil {
			return importResultMsg{err: err}
		}

		params.Rows = rows

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.statements.Import(ctx, params)

		return importResultMsg{result: result, err: err}
	}
}
