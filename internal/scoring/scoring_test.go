package scoring_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/conciliacao/internal/scoring"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
	"github.com/MrJamesThe3rd/conciliacao/internal/transaction"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func exampleLine() *statement.Line {
	return &statement.Line{
		ID:      uuid.New(),
		Date:    date(2024, 3, 10),
		Class:   statement.ClassCredit,
		Amount:  45000,
		History: "PIX RECEBIDO JOAO SILVA",
		Pix:     &statement.Pix{TransactionID: "ABC123"},
	}
}

func exampleTx() *transaction.Transaction {
	return &transaction.Transaction{
		ID:          uuid.New(),
		Status:      transaction.StatusApproved,
		Amount:      45000,
		DueDate:     date(2024, 3, 10),
		PaymentID:   "ABC123",
		Description: "Taxa condominio Joao Silva",
	}
}

func TestAdvanced_AcceptExample(t *testing.T) {
	r := scoring.Advanced(exampleLine(), exampleTx())

	assert.Equal(t, 40.0, r.Amount)
	assert.Equal(t, 25.0, r.Date)
	assert.Equal(t, 30.0, r.Identifier)
	assert.Greater(t, r.Text, 0.0)
	assert.InDelta(t, 5.0/3.0, r.Text, 1e-9)
	assert.GreaterOrEqual(t, r.Score, 95.0)
	assert.ElementsMatch(t, []scoring.Reason{
		scoring.ReasonExactValue,
		scoring.ReasonExactDate,
		scoring.ReasonPixMatch,
		scoring.ReasonSimilarDescription,
	}, r.Reasons)
}

func TestAdvanced_RejectExample(t *testing.T) {
	line := exampleLine()
	line.Amount = 54000 // 20% above the amount due
	line.Date = date(2024, 3, 30)

	r := scoring.Advanced(line, exampleTx())

	assert.Zero(t, r.Amount)
	assert.Zero(t, r.Date)
	assert.LessOrEqual(t, r.Score, 35.0)
	assert.GreaterOrEqual(t, r.Score, 30.0)
}

func TestBasic_UnambiguousPairAgreesWithAdvanced(t *testing.T) {
	basic := scoring.Basic(exampleLine(), exampleTx())
	advanced := scoring.Advanced(exampleLine(), exampleTx())

	assert.Equal(t, 100.0, basic.Score)
	assert.Zero(t, basic.Text)
	assert.GreaterOrEqual(t, advanced.Score, 95.0)
}

func TestScore_Deterministic(t *testing.T) {
	line, tx := exampleLine(), exampleTx()
	line.Amount = 45300
	line.Date = date(2024, 3, 13)

	first := scoring.Advanced(line, tx)
	for range 50 {
		assert.Equal(t, first, scoring.Advanced(line, tx))
	}

	// Scoring other pairs in between must not influence the result.
	_ = scoring.Basic(exampleLine(), exampleTx())
	assert.Equal(t, first, scoring.Advanced(line, tx))
}

func TestAmountFactor_Boundaries(t *testing.T) {
	type testCase struct {
		name string
		line int64
		due  int64
		want float64
	}

	tests := []testCase{
		{name: "Exact", line: 10000, due: 10000, want: 1},
		{name: "JustBelow1Percent", line: 10099, due: 10000, want: 1},
		{name: "Exactly1Percent", line: 10100, due: 10000, want: 0.8},
		{name: "Exactly1PercentBelow", line: 9900, due: 10000, want: 0.8},
		{name: "JustBelow5Percent", line: 10499, due: 10000, want: 0.8},
		{name: "Exactly5Percent", line: 10500, due: 10000, want: 0.5},
		{name: "JustBelow10Percent", line: 10999, due: 10000, want: 0.5},
		{name: "Exactly10Percent", line: 11000, due: 10000, want: 0},
		{name: "FarAway", line: 20000, due: 10000, want: 0},
		{name: "ZeroDueExact", line: 0, due: 0, want: 1},
		{name: "ZeroDueMismatch", line: 5, due: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoring.AmountFactor(tt.line, tt.due))
		})
	}
}

func TestDateFactor_Boundaries(t *testing.T) {
	type testCase struct {
		days int
		want float64
	}

	tests := []testCase{
		{days: 0, want: 1},
		{days: 1, want: 1},
		{days: 2, want: 0.8},
		{days: 3, want: 0.8},
		{days: 4, want: 0.5},
		{days: 7, want: 0.5},
		{days: 8, want: 0.2},
		{days: 15, want: 0.2},
		{days: 16, want: 0},
		{days: 400, want: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, scoring.DateFactor(tt.days), "days=%d", tt.days)
	}
}

func TestDaysBetween_IgnoresTimeOfDayAndDirection(t *testing.T) {
	line := exampleLine()
	tx := exampleTx()

	line.Date = time.Date(2024, 3, 12, 23, 59, 0, 0, time.UTC)
	tx.DueDate = time.Date(2024, 3, 10, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 2, scoring.DaysBetween(line, tx))

	line.Date, tx.DueDate = tx.DueDate, line.Date
	assert.Equal(t, 2, scoring.DaysBetween(line, tx))

	line.Date = date(2024, 2, 28)
	tx.DueDate = date(2024, 3, 1)
	assert.Equal(t, 2, scoring.DaysBetween(line, tx), "leap day counts")
}

func TestScore_MonotonicInAmount(t *testing.T) {
	tx := exampleTx()
	prev := scoring.MaxScore + 1

	for diff := int64(0); diff <= 9000; diff += 50 {
		line := exampleLine()
		line.Amount = tx.Amount + diff

		got := scoring.Advanced(line, tx).Score
		assert.LessOrEqual(t, got, prev, "diff=%d", diff)
		prev = got
	}
}

func TestScore_MonotonicInDate(t *testing.T) {
	tx := exampleTx()
	prev := scoring.MaxScore + 1

	for days := range 30 {
		line := exampleLine()
		line.Date = tx.DueDate.AddDate(0, 0, -days)

		got := scoring.Basic(line, tx).Score
		assert.LessOrEqual(t, got, prev, "days=%d", days)
		prev = got
	}
}

func TestScore_Identifier(t *testing.T) {
	type testCase struct {
		name       string
		line       func() *statement.Line
		paymentID  string
		wantReason scoring.Reason
		wantMatch  bool
	}

	tests := []testCase{
		{
			name:       "PixExact",
			line:       exampleLine,
			paymentID:  "ABC123",
			wantReason: scoring.ReasonPixMatch,
			wantMatch:  true,
		},
		{
			name:       "PixSubstringOfPaymentID",
			line:       exampleLine,
			paymentID:  "pay_abc123_2024",
			wantReason: scoring.ReasonPixMatch,
			wantMatch:  true,
		},
		{
			name: "BoletoNossoNumero",
			line: func() *statement.Line {
				l := exampleLine()
				l.Pix = nil
				l.Boleto = &statement.Boleto{NossoNumero: "00012345"}
				return l
			},
			paymentID:  "00012345",
			wantReason: scoring.ReasonBoletoMatch,
			wantMatch:  true,
		},
		{
			name:      "NoPaymentID",
			line:      exampleLine,
			paymentID: "",
		},
		{
			name:      "Different",
			line:      exampleLine,
			paymentID: "ZZZ999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := exampleTx()
			tx.PaymentID = tt.paymentID

			r := scoring.Advanced(tt.line(), tx)
			if !tt.wantMatch {
				assert.Zero(t, r.Identifier)
				assert.NotContains(t, r.Reasons, scoring.ReasonPixMatch)
				assert.NotContains(t, r.Reasons, scoring.ReasonBoletoMatch)

				return
			}

			assert.Equal(t, 30.0, r.Identifier)
			assert.Contains(t, r.Reasons, tt.wantReason)
		})
	}
}

func TestTextSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0/3.0, scoring.TextSimilarity("PIX RECEBIDO JOAO SILVA", "Taxa condominio Joao Silva"), 1e-9)
	assert.Equal(t, 1.0, scoring.TextSimilarity("a b", "B A"))
	assert.Zero(t, scoring.TextSimilarity("", "anything"))
	assert.Zero(t, scoring.TextSimilarity("foo", "bar"))
}

func TestScore_CappedAt100(t *testing.T) {
	w := scoring.Weights{Amount: 60, Date: 60, Identifier: 60, Text: 60}
	r := scoring.Score(exampleLine(), exampleTx(), w)
	require.Equal(t, scoring.MaxScore, r.Score)
}
