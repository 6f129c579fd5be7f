package transaction

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/http/respond"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

type Service interface {
	Create(ctx context.Context, params transaction.CreateParams) (*transaction.Transaction, error)
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status transaction.Status) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/", h.create)
		r.Patch("/{id}/status", h.updateStatus)
	})
}

type createTransactionRequest struct {
	CondominiumID string    `json:"condominium_id" validate:"required,uuid"`
	Type          string    `json:"type" validate:"required,oneof=receita despesa"`
	Status        string    `json:"status" validate:"omitempty,oneof=pendente aprovado pago cancelado"`
	Amount        int64     `json:"amount" validate:"gt=0"`
	DueDate       time.Time `json:"due_date" validate:"required"`
	PaymentID     string    `json:"payment_id" validate:"max=200"`
	Description   string    `json:"description" validate:"max=500"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), transaction.CreateParams{
		CondominiumID: uuid.MustParse(req.CondominiumID),
		Type:          transaction.Type(req.Type),
		Status:        transaction.Status(req.Status),
		Amount:        req.Amount,
		DueDate:       req.DueDate,
		PaymentID:     req.PaymentID,
		Description:   req.Description,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		filter transaction.ListFilter
		err    error
	)

	if filter.CondominiumID, err = respond.QueryUUID(r, "condominium_id"); err != nil {
		respond.Error(w, r, err)
		return
	}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(transaction.Status(s))
	}

	if filter.Reconciled, err = respond.QueryBool(r, "reconciled"); err != nil {
		respond.Error(w, r, err)
		return
	}

	if filter.StartDate, err = respond.QueryDate(r, "start_date"); err != nil {
		respond.Error(w, r, err)
		return
	}

	if filter.EndDate, err = respond.QueryDate(r, "end_date"); err != nil {
		respond.Error(w, r, err)
		return
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pendente aprovado pago cancelado"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.UpdateStatus(r.Context(), id, transaction.Status(req.Status)); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
