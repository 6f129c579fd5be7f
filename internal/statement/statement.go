package statement

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("statement line not found")
	ErrValidation = errors.New("invalid statement import")
)

// Class is the direction of a bank movement.
type Class string

const (
	ClassCredit Class = "credito"
	ClassDebit  Class = "debito"
)

// Method records how a reconciliation was committed.
type Method string

const (
	MethodAutomatic    Method = "automatico"
	MethodConservative Method = "automatico_conservador"
	MethodManual       Method = "manual"
)

// Pix holds the structured PIX data found on a statement line.
type Pix struct {
	TransactionID string
}

// Boleto holds the structured boleto data found on a statement line.
type Boleto struct {
	NossoNumero string
}

// Match is the reconciled state of a line. A line is reconciled exactly when
// it carries a Match, so the transaction link and a positive score always
// travel together.
type Match struct {
	TransactionID uuid.UUID
	Score         float64
	At            time.Time
	By            string // actor id, empty for automatic runs
	Method        Method
}

// Line is one row of an imported bank statement.
type Line struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	CondominiumID uuid.UUID
	Document      string // import key, unique per account
	Date          time.Time
	Class         Class
	Amount        int64 // absolute value in cents
	History       string
	Pix           *Pix
	Boleto        *Boleto
	Balance       *int64
	Category      string
	Match         *Match  // nil while unreconciled
	Events        []Event // loaded by GetLine only
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

func (l *Line) Reconciled() bool {
	return l.Match != nil
}

// Score returns the confidence score of the current match, 0 when unreconciled.
func (l *Line) Score() float64 {
	if l.Match == nil {
		return 0
	}

	return l.Match.Score
}
