// Package ofx reads the transaction blocks of OFX bank statements. Both the
// SGML flavour (no closing tags on leaf elements) and the XML flavour are
// accepted; everything outside <STMTTRN> blocks is ignored.
package ofx

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/conciliacao/internal/importer/field"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse returns one row per <STMTTRN> block, numbered from 1 in file order.
func (p *Parser) Parse(r io.Reader) ([]statement.ParsedRow, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		rows    []statement.ParsedRow
		current map[string]string
	)

	for scanner.Scan() {
		for _, tag := range splitTags(scanner.Text()) {
			name, value := tag.name, tag.value

			switch {
			case name == "STMTTRN":
				current = make(map[string]string)
			case name == "/STMTTRN":
				if current != nil {
					rows = append(rows, toRow(len(rows)+1, current))
					current = nil
				}
			case current != nil && !strings.HasPrefix(name, "/"):
				current[name] = value
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ofx: %w", err)
	}

	return rows, nil
}

type tag struct {
	name  string
	value string
}

// splitTags breaks a line such as "<TRNAMT>-10.00</TRNAMT><MEMO>x" into
// its tags and the text that follows each one.
func splitTags(line string) []tag {
	var tags []tag

	for {
		start := strings.IndexByte(line, '<')
		if start < 0 {
			return tags
		}

		end := strings.IndexByte(line[start:], '>')
		if end < 0 {
			return tags
		}

		end += start

		name := strings.ToUpper(strings.TrimSpace(line[start+1 : end]))
		rest := line[end+1:]

		next := strings.IndexByte(rest, '<')
		value := rest
		if next >= 0 {
			value = rest[:next]
		}

		tags = append(tags, tag{name: name, value: strings.TrimSpace(value)})
		line = rest
	}
}

func toRow(number int, fields map[string]string) statement.ParsedRow {
	row := statement.ParsedRow{Number: number}
	row.Params.Document = fields["FITID"]

	date, err := parseDate(fields["DTPOSTED"])
	if err != nil {
		row.Err = fmt.Errorf("DTPOSTED: %w", err)
		return row
	}

	amount, err := field.DecimalAmount(fields["TRNAMT"])
	if err != nil {
		row.Err = fmt.Errorf("TRNAMT: %w", err)
		return row
	}

	history := fields["MEMO"]
	if history == "" {
		history = fields["NAME"]
	}

	if row.Params.Document == "" {
		row.Params.Document = fields["CHECKNUM"]
	}

	row.Params.Date = date
	row.Params.Amount = amount
	row.Params.History = history

	return row
}

// parseDate reads the leading YYYYMMDD of an OFX datetime such as
// "20240310120000[-3:BRT]".
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}

	t, err := time.Parse("20060102", s[:8])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}

	return t, nil
}
