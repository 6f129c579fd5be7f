// Package field parses the cell values found in Brazilian bank exports.
package field

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrEmpty = errors.New("empty value")

var hundred = decimal.NewFromInt(100)

// dotThousands matches Brazilian thousands grouping without decimals, e.g. "1.234".
var dotThousands = regexp.MustCompile(`^[-+]?\d{1,3}(\.\d{3})+$`)

// Amount parses a monetary value into signed cents. It accepts the Brazilian
// layout ("1.234,56" or "1.234"), the plain and US layouts ("1234.56",
// "1,234.56"), an optional "R$" prefix, parentheses or a trailing "D" for
// debits and a trailing "C" for credits. When both separators appear the last
// one is the decimal separator.
func Amount(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return 0, ErrEmpty
	}

	negative := false

	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = clean[1 : len(clean)-1]
	}

	upper := strings.ToUpper(clean)

	switch {
	case strings.HasSuffix(upper, "D"):
		negative = true
		clean = clean[:len(clean)-1]
	case strings.HasSuffix(upper, "C"):
		clean = clean[:len(clean)-1]
	}

	clean = strings.TrimSpace(clean)
	clean = strings.TrimPrefix(clean, "R$")
	clean = strings.ReplaceAll(clean, " ", "")

	d, err := decimal.NewFromString(normalizeSeparators(clean))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	cents := d.Mul(hundred).Round(0).IntPart()
	if negative && cents > 0 {
		cents = -cents
	}

	return cents, nil
}

// DecimalAmount parses a number with no thousands grouping, where a single
// "." or "," marks the decimals, into signed cents.
func DecimalAmount(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return 0, ErrEmpty
	}

	d, err := decimal.NewFromString(strings.Replace(clean, ",", ".", 1))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	return d.Mul(hundred).Round(0).IntPart(), nil
}

// normalizeSeparators rewrites an amount so that "." is the only separator
// left and it marks the decimals.
func normalizeSeparators(s string) string {
	comma := strings.LastIndexByte(s, ',')
	dot := strings.LastIndexByte(s, '.')

	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.ReplaceAll(s, ",", ".")
		}

		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}

		return strings.ReplaceAll(s, ",", ".")
	case dotThousands.MatchString(s):
		return strings.ReplaceAll(s, ".", "")
	}

	return s
}

var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02/01/06",
	"02.01.2006",
}

// Date parses the day-first and ISO layouts used by bank exports. The result
// is midnight UTC.
func Date(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmpty
	}

	// Some exports append the time of day.
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
