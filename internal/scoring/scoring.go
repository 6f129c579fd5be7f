// Package scoring rates how likely a bank statement line and an internal
// transaction describe the same money movement. Every function here is pure.
package scoring

import (
	"strings"
	"time"

	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

// MaxScore is the upper bound of every confidence score.
const MaxScore = 100.0

// Weights is the maximum contribution of each signal.
type Weights struct {
	Amount     float64
	Date       float64
	Identifier float64
	Text       float64
}

// DefaultWeights is the four-signal weighting used for suggestions.
func DefaultWeights() Weights {
	return Weights{Amount: 40, Date: 25, Identifier: 30, Text: 5}
}

// BasicWeights drops the text signal and moves its share onto the date.
func BasicWeights() Weights {
	return Weights{Amount: 40, Date: 30, Identifier: 30}
}

// Reason explains why a pair scored.
type Reason string

const (
	ReasonExactValue         Reason = "valor_exato"
	ReasonCloseValue         Reason = "valor_proximo"
	ReasonExactDate          Reason = "data_exata"
	ReasonCloseDate          Reason = "data_proxima"
	ReasonPixMatch           Reason = "pix_id"
	ReasonBoletoMatch        Reason = "boleto_id"
	ReasonSimilarDescription Reason = "descricao_similar"
)

// Result breaks a score down by signal.
type Result struct {
	Score      float64
	Amount     float64
	Date       float64
	Identifier float64
	Text       float64
	Reasons    []Reason
}

// Score rates a pair with the given weights.
func Score(line *statement.Line, tx *transaction.Transaction, w Weights) Result {
	var r Result

	amountFactor := AmountFactor(line.Amount, tx.Amount)
	r.Amount = w.Amount * amountFactor

	switch {
	case amountFactor == 1:
		r.Reasons = append(r.Reasons, ReasonExactValue)
	case amountFactor > 0:
		r.Reasons = append(r.Reasons, ReasonCloseValue)
	}

	dateFactor := DateFactor(DaysBetween(line, tx))
	r.Date = w.Date * dateFactor

	switch {
	case dateFactor == 1:
		r.Reasons = append(r.Reasons, ReasonExactDate)
	case dateFactor > 0:
		r.Reasons = append(r.Reasons, ReasonCloseDate)
	}

	if reason, ok := identifierMatch(line, tx.PaymentID); ok {
		r.Identifier = w.Identifier
		r.Reasons = append(r.Reasons, reason)
	}

	if w.Text > 0 {
		if sim := TextSimilarity(line.History, tx.Description); sim > 0 {
			r.Text = w.Text * sim
			r.Reasons = append(r.Reasons, ReasonSimilarDescription)
		}
	}

	r.Score = min(r.Amount+r.Date+r.Identifier+r.Text, MaxScore)

	return r
}

// Advanced is the four-signal score with default weights.
func Advanced(line *statement.Line, tx *transaction.Transaction) Result {
	return Score(line, tx, DefaultWeights())
}

// Basic is the amount, date and identifier score used by automatic runs.
func Basic(line *statement.Line, tx *transaction.Transaction) Result {
	return Score(line, tx, BasicWeights())
}

// AmountFactor grades the relative difference between the bank value and the
// amount due. Tier bounds are exclusive: a 1% difference is already 0.8.
func AmountFactor(lineAmount, dueAmount int64) float64 {
	diff := abs(lineAmount - dueAmount)

	if dueAmount <= 0 {
		if diff == 0 {
			return 1
		}

		return 0
	}

	// diff/due < p/100 evaluated as diff*100 < p*due to stay exact on the bounds.
	switch {
	case diff*100 < dueAmount:
		return 1
	case diff*100 < 5*dueAmount:
		return 0.8
	case diff*100 < 10*dueAmount:
		return 0.5
	}

	return 0
}

// DateFactor grades the absolute day distance between movement and due date.
func DateFactor(days int) float64 {
	switch {
	case days <= 1:
		return 1
	case days <= 3:
		return 0.8
	case days <= 7:
		return 0.5
	case days <= 15:
		return 0.2
	}

	return 0
}

// DaysBetween is the absolute number of calendar days between the line's
// movement date and the transaction's due date.
func DaysBetween(line *statement.Line, tx *transaction.Transaction) int {
	hours := civilDay(line.Date).Sub(civilDay(tx.DueDate)).Hours()

	return abs(int(hours / 24))
}

func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func identifierMatch(line *statement.Line, paymentID string) (Reason, bool) {
	paymentID = strings.ToLower(strings.TrimSpace(paymentID))
	if paymentID == "" {
		return "", false
	}

	if line.Pix != nil && idMatches(line.Pix.TransactionID, paymentID) {
		return ReasonPixMatch, true
	}

	if line.Boleto != nil && idMatches(line.Boleto.NossoNumero, paymentID) {
		return ReasonBoletoMatch, true
	}

	return "", false
}

func idMatches(id, paymentID string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return false
	}

	return strings.Contains(paymentID, id) || strings.Contains(id, paymentID)
}

// TextSimilarity is the Jaccard ratio of the lowercased word sets of a and b.
func TextSimilarity(a, b string) float64 {
	wa, wb := words(a), words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	intersection := 0

	for w := range wa {
		if wb[w] {
			intersection++
		}
	}

	union := len(wa) + len(wb) - intersection

	return float64(intersection) / float64(union)
}

func words(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}

	return set
}

func abs[T int64 | int](n T) T {
	if n < 0 {
		return -n
	}

	return n
}
