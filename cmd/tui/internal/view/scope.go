package view

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// ScopeMsg is sent once the user picks a new scope.
type ScopeMsg struct {
	Scope Scope
}

type ScopeModel struct {
	CommonModel
	form *huh.Form
}

func NewScopeModel(current Scope) ScopeModel {
	var condominium, account string

	if current.CondominiumID != uuid.Nil {
		condominium = current.CondominiumID.String()
	}

	if current.AccountID != nil {
		account = current.AccountID.String()
	}

	m := ScopeModel{}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("condominium").
				Title("Condominium ID").
				Value(&condominium).
				Validate(func(s string) error {
					if _, err := uuid.Parse(strings.TrimSpace(s)); err != nil {
						return errors.New("must be a UUID")
					}

					return nil
				}),
			huh.NewInput().
				Key("account").
				Title("Account ID").
				Description("Leave empty for every account").
				Value(&account).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}

					if _, err := uuid.Parse(strings.TrimSpace(s)); err != nil {
						return errors.New("must be a UUID or empty")
					}

					return nil
				}),
		),
	).WithWidth(50).WithShowHelp(false)

	return m
}

func (m ScopeModel) Title() string     { return "Scope" }
func (m ScopeModel) ShortHelp() string { return "Enter: next | Esc: back" }

func (m ScopeModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ScopeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	scope := Scope{CondominiumID: uuid.MustParse(strings.TrimSpace(m.form.GetString("condominium")))}

	if s := strings.TrimSpace(m.form.GetString("account")); s != "" {
		scope.AccountID = new(uuid.MustParse(s))
	}

	return m, func() tea.Msg { return ScopeMsg{Scope: scope} }
}

func (m ScopeModel) View() string {
	return lipgloss.NewStyle().Padding(2).Render("Choose the condominium to work on\n\n" + m.form.View())
}
