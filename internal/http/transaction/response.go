package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

type transactionResponse struct {
	ID              uuid.UUID          `json:"id"`
	CondominiumID   uuid.UUID          `json:"condominium_id"`
	Type            transaction.Type   `json:"type"`
	Status          transaction.Status `json:"status"`
	Amount          int64              `json:"amount"`
	DueDate         string             `json:"due_date"`
	PaymentID       string             `json:"payment_id,omitempty"`
	Description     string             `json:"description"`
	Reconciled      bool               `json:"reconciled"`
	StatementLineID *uuid.UUID         `json:"statement_line_id,omitempty"`
	ReconciledAt    *time.Time         `json:"reconciled_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:            tx.ID,
		CondominiumID: tx.CondominiumID,
		Type:          tx.Type,
		Status:        tx.Status,
		Amount:        tx.Amount,
		DueDate:       tx.DueDate.Format(time.DateOnly),
		PaymentID:     tx.PaymentID,
		Description:   tx.Description,
		Reconciled:    tx.Reconciled(),
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
	}

	if tx.Match != nil {
		resp.StatementLineID = &tx.Match.StatementLineID
		resp.ReconciledAt = &tx.Match.At
	}

	return resp
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
