package statement

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/http/auth"
	"github.com/MrJamesThe3rd/conciliacao/internal/http/respond"
	"github.com/MrJamesThe3rd/conciliacao/internal/importer"
	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

const maxUploadSize = 10 << 20

type Service interface {
	List(ctx context.Context, filter statement.ListFilter) (*statement.Page, error)
	Get(ctx context.Context, id uuid.UUID) (*statement.Line, error)
	SetCategory(ctx context.Context, id uuid.UUID, category, actor string) (*statement.Line, error)
	Import(ctx context.Context, params statement.ImportParams) (*statement.ImportResult, error)
}

type Parser interface {
	Parse(format importer.Format, r io.Reader) ([]statement.ParsedRow, error)
}

type Reconciler interface {
	ReconcileManual(ctx context.Context, params reconciliation.ManualParams) (*statement.Line, error)
	Unreconcile(ctx context.Context, params reconciliation.UnreconcileParams) (*statement.Line, error)
}

type Handler struct {
	svc        Service
	parser     Parser
	reconciler Reconciler
}

func NewHandler(svc Service, parser Parser, reconciler Reconciler) *Handler {
	return &Handler{svc: svc, parser: parser, reconciler: reconciler}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/import", h.importFile)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			r.Post("/reconcile", h.reconcile)
			r.Post("/unreconcile", h.unreconcile)
			r.Patch("/category", h.setCategory)
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	page, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, NewPageResponse(page))
}

func listFilter(r *http.Request) (statement.ListFilter, error) {
	var (
		f   statement.ListFilter
		err error
	)

	if f.CondominiumID, err = respond.QueryUUID(r, "condominium_id"); err != nil {
		return f, err
	}

	if f.AccountID, err = respond.QueryUUID(r, "account_id"); err != nil {
		return f, err
	}

	if f.Reconciled, err = respond.QueryBool(r, "reconciled"); err != nil {
		return f, err
	}

	if f.StartDate, err = respond.QueryDate(r, "start_date"); err != nil {
		return f, err
	}

	if f.EndDate, err = respond.QueryDate(r, "end_date"); err != nil {
		return f, err
	}

	if f.Page, err = respond.QueryInt(r, "page"); err != nil {
		return f, err
	}

	if f.Limit, err = respond.QueryInt(r, "limit"); err != nil {
		return f, err
	}

	return f, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	line, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, NewLineResponse(line))
}

type importForm struct {
	AccountID     string `json:"account_id" validate:"required,uuid"`
	CondominiumID string `json:"condominium_id" validate:"required,uuid"`
	Format        string `json:"format" validate:"omitempty,oneof=csv ofx txt"`
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respond.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	form := importForm{
		AccountID:     r.FormValue("account_id"),
		CondominiumID: r.FormValue("condominium_id"),
		Format:        r.FormValue("format"),
	}
	if err := respond.Validate(form); err != nil {
		respond.Error(w, r, err)
		return
	}

	format, err := importer.ParseFormat(form.Format)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	rows, err := h.parser.Parse(format, file)
	if err != nil {
		respond.Error(w, r, fmt.Errorf("%w: %v", respond.ErrBadRequest, err))
		return
	}

	result, err := h.svc.Import(r.Context(), statement.ImportParams{
		AccountID:     uuid.MustParse(form.AccountID),
		CondominiumID: uuid.MustParse(form.CondominiumID),
		Rows:          rows,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toImportResponse(result))
}

type reconcileRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,uuid"`
	Notes         string `json:"notes" validate:"max=1000"`
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req reconcileRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	line, err := h.reconciler.ReconcileManual(r.Context(), reconciliation.ManualParams{
		LineID:        id,
		TransactionID: uuid.MustParse(req.TransactionID),
		Actor:         auth.ActorFrom(r.Context()),
		Notes:         req.Notes,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, NewLineResponse(line))
}

type unreconcileRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func (h *Handler) unreconcile(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req unreconcileRequest
	if r.ContentLength != 0 {
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
	}

	line, err := h.reconciler.Unreconcile(r.Context(), reconciliation.UnreconcileParams{
		LineID: id,
		Actor:  auth.ActorFrom(r.Context()),
		Notes:  req.Notes,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, NewLineResponse(line))
}

type categoryRequest struct {
	Category string `json:"category" validate:"required,max=100"`
}

func (h *Handler) setCategory(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req categoryRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	line, err := h.svc.SetCategory(r.Context(), id, req.Category, auth.ActorFrom(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, NewLineResponse(line))
}
