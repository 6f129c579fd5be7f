// Package delimited parses bank statements exported as delimited text with a
// header row. The delimiter (";" or ",") and the column layout are detected
// from the header.
package delimited

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/MrJamesThe3rd/conciliacao/internal/importer/field"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

var ErrNoHeader = errors.New("no header row with date and amount columns found")

const sniffLines = 20

type column int

const (
	colDate column = iota
	colAmount
	colDebit
	colCredit
	colHistory
	colDocument
	colPix
	colNossoNumero
	colBalance
)

// aliases maps a normalized header (lowercase, no accents) to its column.
var aliases = map[string]column{
	"data":                 colDate,
	"data mov.":            colDate,
	"data movimento":       colDate,
	"data lancamento":      colDate,
	"dt. movimento":        colDate,
	"date":                 colDate,
	"valor":                colAmount,
	"valor (r$)":           colAmount,
	"montante":             colAmount,
	"movimento":            colAmount,
	"amount":               colAmount,
	"debito":               colDebit,
	"credito":              colCredit,
	"historico":            colHistory,
	"descricao":            colHistory,
	"lancamento":           colHistory,
	"memo":                 colHistory,
	"documento":            colDocument,
	"doc":                  colDocument,
	"n. documento":         colDocument,
	"numero documento":     colDocument,
	"nr. documento":        colDocument,
	"fitid":                colDocument,
	"pix":                  colPix,
	"id pix":               colPix,
	"pix id":               colPix,
	"end to end":           colPix,
	"e2e":                  colPix,
	"nosso numero":         colNossoNumero,
	"boleto":               colNossoNumero,
	"saldo":                colBalance,
	"saldo apos":           colBalance,
	"saldo do dia":         colBalance,
	"saldo apos movimento": colBalance,
}

// layout holds the index of each detected column.
type layout map[column]int

func (l layout) has(c column) bool {
	_, ok := l[c]
	return ok
}

func (l layout) valid() bool {
	return l.has(colDate) && (l.has(colAmount) || (l.has(colDebit) && l.has(colCredit)))
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads UTF-8 delimited text. Rows before the header are ignored.
// Row errors are reported per row and never abort the file.
func (p *Parser) Parse(r io.Reader) ([]statement.ParsedRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = DetectDelimiter(string(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		rows []statement.ParsedRow
		cols layout
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var pe *csv.ParseError
			if cols == nil || !errors.As(err, &pe) {
				return nil, fmt.Errorf("read csv: %w", err)
			}

			rows = append(rows, statement.ParsedRow{Number: pe.StartLine, Err: err})

			continue
		}

		lineNo, _ := reader.FieldPos(0)

		if cols == nil {
			if l := detectLayout(record); l.valid() {
				cols = l
			}

			continue
		}

		if blank(record) {
			continue
		}

		row, ok := parseRow(cols, record)
		if !ok {
			continue
		}

		row.Number = lineNo
		rows = append(rows, row)
	}

	if cols == nil {
		return nil, ErrNoHeader
	}

	return rows, nil
}

// DetectDelimiter picks ";" or "," by counting both outside quotes on the
// first lines of the file.
func DetectDelimiter(data string) rune {
	semi, comma := 0, 0

	lines := strings.SplitN(data, "\n", sniffLines+1)
	lines = lines[:min(len(lines), sniffLines)]

	for _, line := range lines {
		inQuotes := false

		for _, c := range line {
			switch {
			case c == '"':
				inQuotes = !inQuotes
			case inQuotes:
			case c == ';':
				semi++
			case c == ',':
				comma++
			}
		}
	}

	if comma > semi {
		return ','
	}

	return ';'
}

func detectLayout(record []string) layout {
	l := make(layout)

	for i, cell := range record {
		if c, ok := aliases[normalizeHeader(cell)]; ok {
			if _, dup := l[c]; !dup {
				l[c] = i
			}
		}
	}

	return l
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeHeader(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}

	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// parseRow converts one data row. It returns false for rows that carry no
// movement, such as daily balance lines.
func parseRow(cols layout, record []string) (statement.ParsedRow, bool) {
	history := cell(record, cols, colHistory)

	amount, err := rowAmount(cols, record)
	if errors.Is(err, field.ErrEmpty) && isBalanceLine(history) {
		return statement.ParsedRow{}, false
	}

	var row statement.ParsedRow

	if err != nil {
		row.Err = fmt.Errorf("amount: %w", err)
		row.Params.Document = cell(record, cols, colDocument)

		return row, true
	}

	date, err := field.Date(cell(record, cols, colDate))
	if err != nil {
		row.Err = fmt.Errorf("date: %w", err)
		row.Params.Document = cell(record, cols, colDocument)

		return row, true
	}

	row.Params = statement.CreateParams{
		Document:    cell(record, cols, colDocument),
		Date:        date,
		Amount:      amount,
		History:     history,
		PixID:       cell(record, cols, colPix),
		NossoNumero: cell(record, cols, colNossoNumero),
	}

	if s := cell(record, cols, colBalance); s != "" {
		if b, err := field.Amount(s); err == nil {
			row.Params.Balance = &b
		}
	}

	return row, true
}

func rowAmount(cols layout, record []string) (int64, error) {
	if cols.has(colAmount) {
		return field.Amount(cell(record, cols, colAmount))
	}

	if s := cell(record, cols, colDebit); s != "" {
		cents, err := field.Amount(s)
		if err != nil {
			return 0, err
		}

		if cents != 0 {
			return -abs(cents), nil
		}
	}

	cents, err := field.Amount(cell(record, cols, colCredit))
	if err != nil {
		return 0, err
	}

	return abs(cents), nil
}

func isBalanceLine(history string) bool {
	h := strings.ToLower(history)
	return h == "" || strings.HasPrefix(h, "saldo")
}

func cell(record []string, cols layout, c column) string {
	idx, ok := cols[c]
	if !ok || idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}
