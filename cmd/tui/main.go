package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/conciliacao/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/conciliacao/internal/category"
	categoryStore "github.com/MrJamesThe3rd/conciliacao/internal/category/store"
	"github.com/MrJamesThe3rd/conciliacao/internal/config"
	"github.com/MrJamesThe3rd/conciliacao/internal/database"
	"github.com/MrJamesThe3rd/conciliacao/internal/importer"
	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	reconciliationStore "github.com/MrJamesThe3rd/conciliacao/internal/reconciliation/store"
	"github.com/MrJamesThe3rd/conciliacao/internal/report"
	reportStore "github.com/MrJamesThe3rd/conciliacao/internal/report/store"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	statementStore "github.com/MrJamesThe3rd/conciliacao/internal/statement/store"
)

type model struct {
	reports    *report.Service
	engine     *reconciliation.Engine
	statements *statement.Service
	parser     *importer.Service

	scope  view.Scope
	active view.View // nil on the menu
	next   func(view.Scope) view.View
}

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.DB.Migrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	rules, err := category.LoadRules(cfg.Categories.RulesFile)
	if err != nil {
		slog.Error("failed to load category rules", "error", err)
		os.Exit(1)
	}

	var cache report.Cache = report.NopCache{}
	if cfg.Redis.Addr != "" {
		cache = report.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}), cfg.Redis.CacheTTL)
	}

	// Slog output would corrupt the terminal UI.
	quiet := slog.New(slog.DiscardHandler)

	engine := reconciliation.NewEngine(reconciliationStore.New(db),
		reconciliation.WithThresholds(cfg.Thresholds()),
		reconciliation.WithWorkers(cfg.Reconciliation.ScoringWorkers),
		reconciliation.WithCommitRetries(cfg.Reconciliation.CommitRetries),
		reconciliation.WithInvalidator(cache),
		reconciliation.WithLogger(quiet),
	)

	statements := statement.NewService(statementStore.New(db), category.NewService(categoryStore.New(db), rules),
		statement.WithIngestHook(engine),
		statement.WithInvalidator(cache),
		statement.WithLogger(quiet),
	)

	return model{
		reports:    report.NewService(reportStore.New(db), statements, engine, report.WithCache(cache)),
		engine:     engine,
		statements: statements,
		parser:     importer.NewService(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case view.BackMsg:
		m.active = nil
		m.next = nil

		return m, nil

	case view.ScopeMsg:
		m.scope = msg.Scope
		m.active = nil

		if m.next != nil {
			return m.open(m.next)
		}

		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.active == nil {
			return m.updateMenu(msg)
		}
	}

	if m.active == nil {
		return m, nil
	}

	updated, cmd := m.active.Update(msg)
	m.active = updated.(view.View)

	return m, cmd
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "s":
		return m.openScope(nil)
	case "1":
		return m.open(func(s view.Scope) view.View { return view.NewDashboardModel(m.reports, s) })
	case "2":
		return m.open(func(s view.Scope) view.View { return view.NewRunModel(m.engine, s) })
	case "3":
		return m.open(func(s view.Scope) view.View { return view.NewSuggestionsModel(m.reports, m.engine, s) })
	case "4":
		return m.open(func(s view.Scope) view.View { return view.NewPendingModel(m.reports, m.statements, s) })
	case "5":
		return m.open(func(s view.Scope) view.View { return view.NewImportModel(m.statements, m.parser, s) })
	}

	return m, nil
}

// open shows a screen, asking for the scope first when none is set.
func (m model) open(build func(view.Scope) view.View) (tea.Model, tea.Cmd) {
	if m.scope.CondominiumID == uuid.Nil {
		return m.openScope(build)
	}

	m.next = nil
	m.active = build(m.scope)

	return m, m.active.Init()
}

func (m model) openScope(next func(view.Scope) view.View) (tea.Model, tea.Cmd) {
	m.next = next
	m.active = view.NewScopeModel(m.scope)

	return m, m.active.Init()
}

func (m model) View() string {
	if m.active != nil {
		return m.active.View()
	}

	scope := "none (press s)"
	if m.scope.CondominiumID != uuid.Nil {
		scope = m.scope.String()
	}

	return lipgloss.NewStyle().Padding(2).Render(
		"Conciliação\n\n" +
			"Scope: " + scope + "\n\n" +
			"1. Dashboard\n" +
			"2. Run Reconciliation\n" +
			"3. Review Suggestions\n" +
			"4. Pending Lines\n" +
			"5. Import Statement\n" +
			"s. Change Scope\n\n" +
			"q. Quit",
	)
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
