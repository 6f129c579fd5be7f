// Package reconciliation pairs unreconciled statement lines with internal
// transactions and commits the pairs under one of several confidence policies.
package reconciliation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliacao/internal/scoring"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

var (
	ErrValidation = errors.New("invalid reconciliation request")
	ErrConflict   = errors.New("reconciliation conflict")

	// ErrLineTaken and ErrTransactionTaken tell which side of a commit lost the
	// race. Both match ErrConflict with errors.Is.
	ErrLineTaken        = fmt.Errorf("%w: statement line already reconciled", ErrConflict)
	ErrTransactionTaken = fmt.Errorf("%w: transaction already reconciled", ErrConflict)
)

// Policy selects the scorer and thresholds applied by a run.
type Policy string

const (
	PolicyComplete     Policy = "completa"
	PolicyConservative Policy = "conservadora"
	PolicySuggestions  Policy = "sugestoes"
	PolicyIngest       Policy = "importacao"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyComplete, PolicyConservative, PolicySuggestions, PolicyIngest:
		return p, nil
	}

	return "", fmt.Errorf("%w: unknown policy %q", ErrValidation, s)
}

// Writes reports whether runs under the policy commit matches.
func (p Policy) Writes() bool {
	return p != PolicySuggestions
}

func (p Policy) method() statement.Method {
	if p == PolicyConservative {
		return statement.MethodConservative
	}

	return statement.MethodAutomatic
}

func (p Policy) scorer() func(*statement.Line, *transaction.Transaction) scoring.Result {
	if p == PolicySuggestions {
		return scoring.Advanced
	}

	return scoring.Basic
}

// Thresholds are the score cut-offs of every policy.
type Thresholds struct {
	Ingest         float64 // importacao: commit at or above
	Complete       float64 // completa: commit at or above
	Review         float64 // completa: suggest for review at or above
	Conservative   float64 // conservadora: first candidate at or above wins
	Suggestion     float64 // sugestoes: list at or above
	MaxSuggestions int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Ingest:         80,
		Complete:       85,
		Review:         60,
		Conservative:   95,
		Suggestion:     30,
		MaxSuggestions: 3,
	}
}

// Candidate is a scored (line, transaction) pair.
type Candidate struct {
	Line        *statement.Line
	Transaction *transaction.Transaction
	Score       float64
	Reasons     []scoring.Reason
}

// Suggestion lists the best candidates found for one line.
type Suggestion struct {
	Line       *statement.Line
	Candidates []Candidate
}

// Summary is the outcome of a run. It is returned even when individual
// commits fail.
type Summary struct {
	Policy      Policy
	Processed   int
	Reconciled  int
	Review      int
	Failed      int
	Conflicts   int
	Matches     []Candidate
	Suggestions []Suggestion
}

// CommitParams describes one atomic reconciliation write.
type CommitParams struct {
	LineID        uuid.UUID
	TransactionID uuid.UUID
	Score         float64
	Method        statement.Method
	Actor         string
	At            time.Time
	Event         statement.Event
}

// RevertParams describes one atomic un-reconciliation write.
type RevertParams struct {
	LineID        uuid.UUID
	TransactionID uuid.UUID
	At            time.Time
	Event         statement.Event
}
