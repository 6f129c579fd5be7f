package field_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/conciliacao/internal/importer/field"
)

func TestAmount(t *testing.T) {
	type testCase struct {
		input string
		want  int64
	}

	tests := []testCase{
		{input: "450,00", want: 45000},
		{input: "1.234,56", want: 123456},
		{input: "-588,74", want: -58874},
		{input: "R$ 1.000,10", want: 100010},
		{input: "1234.56", want: 123456},
		{input: "-120.5", want: -12050},
		{input: "150,00 D", want: -15000},
		{input: "150,00 C", want: 15000},
		{input: "(99,90)", want: -9990},
		{input: "0,005", want: 1},
		{input: "1,234.56", want: 123456},
		{input: "1.234", want: 123400},
		{input: "-1.234.567", want: -123456700},
		{input: "1,234,567", want: 123456700},
		{input: "1.5", want: 150},
		{input: "12.3456", want: 1235},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := field.Amount(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmount_Errors(t *testing.T) {
	_, err := field.Amount("  ")
	assert.ErrorIs(t, err, field.ErrEmpty)

	_, err = field.Amount("abc")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, field.ErrEmpty)
}

func TestDecimalAmount(t *testing.T) {
	tests := map[string]int64{
		"450.00":   45000,
		"-1234,56": -123456,
		"1.234":    123,
		"-150.000": -15000,
	}

	for input, want := range tests {
		got, err := field.DecimalAmount(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := field.DecimalAmount("")
	assert.ErrorIs(t, err, field.ErrEmpty)

	_, err = field.DecimalAmount("1.234,56")
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, input := range []string{"10/03/2024", "10-03-2024", "2024-03-10", "10/03/24", "10.03.2024", "10/03/2024 14:22"} {
		got, err := field.Date(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestDate_Errors(t *testing.T) {
	_, err := field.Date("")
	assert.ErrorIs(t, err, field.ErrEmpty)

	_, err = field.Date("31/02/2024")
	assert.Error(t, err)
}
