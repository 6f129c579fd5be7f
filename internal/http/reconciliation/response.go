package reconciliation

import (
	"github.com/google/uuid"

	statementhttp "github.com/MrJamesThe3rd/conciliacao/internal/http/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/reconciliation"
	"github.com/MrJamesThe3rd/conciliacao/internal/scoring"
)

type candidateResponse struct {
	LineID        uuid.UUID        `json:"linha_id"`
	TransactionID uuid.UUID        `json:"transacao_id"`
	Description   string           `json:"descricao,omitempty"`
	Amount        int64            `json:"valor"`
	DueDate       string           `json:"vencimento"`
	Score         float64          `json:"score"`
	Reasons       []scoring.Reason `json:"motivos"`
}

type suggestionResponse struct {
	Line       statementhttp.LineResponse `json:"linha"`
	Candidates []candidateResponse        `json:"candidatos"`
}

type summaryResponse struct {
	Policy      reconciliation.Policy `json:"politica"`
	Processed   int                   `json:"processadas"`
	Reconciled  int                   `json:"conciliadas"`
	Review      int                   `json:"revisao"`
	Failed      int                   `json:"falhas"`
	Conflicts   int                   `json:"conflitos"`
	Matches     []candidateResponse   `json:"conciliacoes"`
	Suggestions []suggestionResponse  `json:"sugestoes,omitempty"`
}

func newCandidateResponse(c reconciliation.Candidate) candidateResponse {
	resp := candidateResponse{
		Score:   c.Score,
		Reasons: c.Reasons,
	}

	if c.Line != nil {
		resp.LineID = c.Line.ID
	}

	if tx := c.Transaction; tx != nil {
		resp.TransactionID = tx.ID
		resp.Description = tx.Description
		resp.Amount = tx.Amount
		resp.DueDate = tx.DueDate.Format("2006-01-02")
	}

	if resp.Reasons == nil {
		resp.Reasons = []scoring.Reason{}
	}

	return resp
}

func newCandidateResponses(cs []reconciliation.Candidate) []candidateResponse {
	resp := make([]candidateResponse, len(cs))
	for i, c := range cs {
		resp[i] = newCandidateResponse(c)
	}

	return resp
}

func newSuggestionResponses(ss []reconciliation.Suggestion) []suggestionResponse {
	resp := make([]suggestionResponse, len(ss))
	for i, s := range ss {
		resp[i] = suggestionResponse{
			Line:       statementhttp.NewLineResponse(s.Line),
			Candidates: newCandidateResponses(s.Candidates),
		}
	}

	return resp
}

func newSummaryResponse(s *reconciliation.Summary) summaryResponse {
	return summaryResponse{
		Policy:      s.Policy,
		Processed:   s.Processed,
		Reconciled:  s.Reconciled,
		Review:      s.Review,
		Failed:      s.Failed,
		Conflicts:   s.Conflicts,
		Matches:     newCandidateResponses(s.Matches),
		Suggestions: newSuggestionResponses(s.Suggestions),
	}
}
