package category

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrJamesThe3rd/conciliacao/internal/http/respond"
)

type Service interface {
	Categorize(ctx context.Context, history string) (string, error)
	Learn(ctx context.Context, rawPattern, category string) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.With(middleware.AllowContentType("application/json")).Post("/", h.learn)
}

type suggestResponse struct {
	History  string `json:"historico"`
	Category string `json:"categoria"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	history := r.URL.Query().Get("historico")
	if history == "" {
		respond.BadRequest(w, "historico query parameter is required")
		return
	}

	// A failed learned-mapping lookup still yields the keyword-rule category.
	category, err := h.svc.Categorize(r.Context(), history)
	if err != nil {
		slog.Warn("failed to look up learned category", "error", err)
	}

	respond.JSON(w, http.StatusOK, suggestResponse{History: history, Category: category})
}

type learnRequest struct {
	RawPattern string `json:"raw_pattern" validate:"required,max=200"`
	Category   string `json:"category" validate:"required,max=100"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Learn(r.Context(), req.RawPattern, req.Category); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
