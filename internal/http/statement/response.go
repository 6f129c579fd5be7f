package statement

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

// LineResponse is the JSON form of a statement line.
type LineResponse struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	CondominiumID uuid.UUID       `json:"condominium_id"`
	Document      string          `json:"documento"`
	Date          string          `json:"data"`
	Class         statement.Class `json:"classificacao"`
	Amount        int64           `json:"valor"`
	History       string          `json:"historico"`
	PixID         string          `json:"pix_id,omitempty"`
	NossoNumero   string          `json:"nosso_numero,omitempty"`
	Balance       *int64          `json:"saldo,omitempty"`
	Category      string          `json:"categoria"`
	Reconciled    bool            `json:"conciliado"`
	Match         *matchResponse  `json:"conciliacao,omitempty"`
	Events        []eventResponse `json:"eventos,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
}

type matchResponse struct {
	TransactionID uuid.UUID        `json:"transacao_id"`
	Score         float64          `json:"score"`
	At            time.Time        `json:"conciliado_em"`
	By            string           `json:"conciliado_por,omitempty"`
	Method        statement.Method `json:"metodo"`
}

type eventResponse struct {
	Type    statement.EventType `json:"tipo"`
	Payload map[string]any      `json:"payload"`
	Actor   string              `json:"ator,omitempty"`
	At      time.Time           `json:"timestamp"`
}

type PageResponse struct {
	Lines      []LineResponse `json:"linhas"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

type rowResponse struct {
	Row      int                 `json:"linha"`
	Document string              `json:"documento,omitempty"`
	Status   statement.RowStatus `json:"status"`
	Error    string              `json:"erro,omitempty"`
	LineID   *uuid.UUID          `json:"id,omitempty"`
}

type importResponse struct {
	Total     int           `json:"total"`
	Inserted  int           `json:"importados"`
	Duplicate int           `json:"duplicados"`
	Errored   int           `json:"erros"`
	Detail    []rowResponse `json:"detalhes"`
}

func NewLineResponse(l *statement.Line) LineResponse {
	resp := LineResponse{
		ID:            l.ID,
		AccountID:     l.AccountID,
		CondominiumID: l.CondominiumID,
		Document:      l.Document,
		Date:          l.Date.Format(time.DateOnly),
		Class:         l.Class,
		Amount:        l.Amount,
		History:       l.History,
		Balance:       l.Balance,
		Category:      l.Category,
		Reconciled:    l.Reconciled(),
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}

	if l.Pix != nil {
		resp.PixID = l.Pix.TransactionID
	}

	if l.Boleto != nil {
		resp.NossoNumero = l.Boleto.NossoNumero
	}

	if m := l.Match; m != nil {
		resp.Match = &matchResponse{
			TransactionID: m.TransactionID,
			Score:         m.Score,
			At:            m.At,
			By:            m.By,
			Method:        m.Method,
		}
	}

	for _, e := range l.Events {
		resp.Events = append(resp.Events, eventResponse{
			Type:    e.Type,
			Payload: e.Payload,
			Actor:   e.Actor,
			At:      e.At,
		})
	}

	return resp
}

func newLineResponses(lines []*statement.Line) []LineResponse {
	resp := make([]LineResponse, len(lines))
	for i, l := range lines {
		resp[i] = NewLineResponse(l)
	}

	return resp
}

// NewPageResponse is shared with the pending-lines endpoint.
func NewPageResponse(p *statement.Page) PageResponse {
	return PageResponse{
		Lines:      newLineResponses(p.Lines),
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}
}

func toImportResponse(r *statement.ImportResult) importResponse {
	resp := importResponse{
		Total:     r.Total,
		Inserted:  r.Inserted,
		Duplicate: r.Duplicate,
		Errored:   r.Errored,
		Detail:    make([]rowResponse, len(r.Detail)),
	}

	for i, d := range r.Detail {
		resp.Detail[i] = rowResponse{
			Row:      d.Row,
			Document: d.Document,
			Status:   d.Status,
			Error:    d.Error,
			LineID:   d.LineID,
		}
	}

	return resp
}
