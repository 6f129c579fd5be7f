package statement

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateParams is a parsed statement row before normalization. Amount is
// signed: positive values are credits.
type CreateParams struct {
	Document    string
	Date        time.Time
	Amount      int64
	History     string
	PixID       string
	NossoNumero string
	Balance     *int64
}

// ParsedRow is one data row of an import file. Err is set when the row could
// not be parsed; the rest of the batch is unaffected.
type ParsedRow struct {
	Number int
	Params CreateParams
	Err    error
}

// Normalize turns parsed params into a statement line owned by the given
// account and condominium.
func Normalize(p CreateParams, accountID, condominiumID uuid.UUID) (*Line, error) {
	return normalize(p, accountID, condominiumID, 0)
}

// normalize is Normalize for the occurrence-th row of a file sharing the same
// date, amount and history, counted from zero.
func normalize(p CreateParams, accountID, condominiumID uuid.UUID, occurrence int) (*Line, error) {
	if p.Date.IsZero() {
		return nil, fmt.Errorf("%w: missing date", ErrValidation)
	}

	if p.Amount == 0 {
		return nil, fmt.Errorf("%w: missing amount", ErrValidation)
	}

	history := strings.TrimSpace(p.History)

	line := &Line{
		AccountID:     accountID,
		CondominiumID: condominiumID,
		Document:      strings.TrimSpace(p.Document),
		Date:          day(p.Date),
		Class:         ClassCredit,
		Amount:        p.Amount,
		History:       history,
		Balance:       p.Balance,
	}

	if p.Amount < 0 {
		line.Class = ClassDebit
		line.Amount = -p.Amount
	}

	if line.Document == "" {
		line.Document = SyntheticDocument(line.Date, p.Amount, history, occurrence)
	}

	lower := strings.ToLower(history)

	if id := strings.TrimSpace(p.PixID); id != "" {
		line.Pix = &Pix{TransactionID: id}
	} else if strings.Contains(lower, "pix") {
		line.Pix = &Pix{TransactionID: line.Document}
	}

	if nn := strings.TrimSpace(p.NossoNumero); nn != "" {
		line.Boleto = &Boleto{NossoNumero: nn}
	} else if strings.Contains(lower, "boleto") {
		line.Boleto = &Boleto{NossoNumero: line.Document}
	}

	return line, nil
}

// SyntheticDocument derives a stable import key for rows that carry no
// document id, so that re-importing the same file still deduplicates.
// Occurrence tells apart identical movements within one file; the first one
// is 0.
func SyntheticDocument(date time.Time, signedAmount int64, history string, occurrence int) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%s", date.Format(time.DateOnly), signedAmount, strings.ToLower(history))

	if occurrence > 0 {
		fmt.Fprintf(h, "|%d", occurrence)
	}

	return fmt.Sprintf("gen-%016x", h.Sum64())
}

// occurrences counts rows without a document id that share the key fields.
type occurrences map[string]int

func (o occurrences) next(p CreateParams) int {
	if strings.TrimSpace(p.Document) != "" || p.Date.IsZero() {
		return 0
	}

	key := SyntheticDocument(day(p.Date), p.Amount, strings.TrimSpace(p.History), 0)
	n := o[key]
	o[key] = n + 1

	return n
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
