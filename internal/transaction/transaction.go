package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("transaction not found")
	ErrValidation = errors.New("invalid transaction")
)

// Type represents the direction of a transaction (receita or despesa).
type Type string

const (
	TypeIncome  Type = "receita"
	TypeExpense Type = "despesa"
)

// Status represents the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pendente"
	StatusApproved  Status = "aprovado"
	StatusPaid      Status = "pago"
	StatusCancelled Status = "cancelado"
)

// Reconcilable reports whether transactions in this status may be matched
// against a bank statement line.
func (s Status) Reconcilable() bool {
	return s == StatusPending || s == StatusApproved
}

// Match links a transaction to the statement line that confirmed it.
type Match struct {
	StatementLineID uuid.UUID
	At              time.Time
}

// Transaction is an internally generated financial obligation awaiting
// confirmation against the bank.
type Transaction struct {
	ID            uuid.UUID
	CondominiumID uuid.UUID
	Type          Type
	Status        Status
	Amount        int64 // valor_final in cents
	DueDate       time.Time
	PaymentID     string
	Description   string
	Match         *Match // nil while unreconciled
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

func (t *Transaction) Reconciled() bool {
	return t.Match != nil
}
