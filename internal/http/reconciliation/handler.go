package reconciliation

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/http/respond"
	statementhttp "github.com/MrJamesThe3rd/conciliacao/internal/http/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/report"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

type Runner interface {
	Run(ctx context.Context, params reconciliation.RunParams) (*reconciliation.Summary, error)
}

type Reports interface {
	Dashboard(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) (*report.Dashboard, error)
	Pending(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID, page, limit int) (*statement.Page, error)
	Suggestions(ctx context.Context, condominiumID uuid.UUID, accountID *uuid.UUID) ([]reconciliation.Suggestion, error)
}

type Handler struct {
	runner       Runner
	reports      Reports
	runRateLimit int
}

// NewHandler builds the reconciliation endpoints. runRateLimit caps run
// requests per client IP per minute; zero disables the limit.
func NewHandler(runner Runner, reports Reports, runRateLimit int) *Handler {
	return &Handler{runner: runner, reports: reports, runRateLimit: runRateLimit}
}

func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		if h.runRateLimit > 0 {
			r.Use(httprate.Limit(h.runRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}

		r.Post("/run", h.run)
	})

	r.Get("/dashboard", h.dashboard)
	r.Get("/pending", h.pending)
	r.Get("/suggestions", h.suggestions)
}

type runRequest struct {
	CondominiumID string `json:"condominium_id" validate:"required,uuid"`
	AccountID     string `json:"account_id" validate:"omitempty,uuid"`
	Policy        string `json:"policy" validate:"required,oneof=completa conservadora sugestoes importacao"`
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	params := reconciliation.RunParams{
		CondominiumID: uuid.MustParse(req.CondominiumID),
		Policy:        reconciliation.Policy(req.Policy),
	}

	if req.AccountID != "" {
		params.AccountID = new(uuid.MustParse(req.AccountID))
	}

	summary, err := h.runner.Run(r.Context(), params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, newSummaryResponse(summary))
}

func scope(r *http.Request) (uuid.UUID, *uuid.UUID, error) {
	condominiumID, err := respond.RequiredQueryUUID(r, "condominium_id")
	if err != nil {
		return uuid.Nil, nil, err
	}

	accountID, err := respond.QueryUUID(r, "account_id")
	if err != nil {
		return uuid.Nil, nil, err
	}

	return condominiumID, accountID, nil
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	condominiumID, accountID, err := scope(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	d, err := h.reports.Dashboard(r.Context(), condominiumID, accountID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, d)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	condominiumID, accountID, err := scope(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	page, err := respond.QueryInt(r, "page")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	limit, err := respond.QueryInt(r, "limit")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	p, err := h.reports.Pending(r.Context(), condominiumID, accountID, page, limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, statementhttp.NewPageResponse(p))
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	condominiumID, accountID, err := scope(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	suggestions, err := h.reports.Suggestions(r.Context(), condominiumID, accountID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, newSuggestionResponses(suggestions))
}
