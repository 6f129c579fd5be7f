package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/MrJamesThe3rd/conciliacao/internal/encoding"
	"github.com/MrJamesThe3rd/conciliacao/internal/importer/delimited"
	"github.com/MrJamesThe3rd/conciliacao/internal/importer/ofx"
	"github.com/MrJamesThe3rd/conciliacao/internal/statement"
)

type Format string

const (
	FormatAuto Format = ""
	FormatCSV  Format = "csv"
	FormatOFX  Format = "ofx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatCSV, FormatOFX:
		return f, nil
	case "txt":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

type Parser interface {
	Parse(r io.Reader) ([]statement.ParsedRow, error)
}

type Service struct {
	parsers map[Format]Parser
	logger  *slog.Logger
}

func NewService() *Service {
	return &Service{
		parsers: map[Format]Parser{
			FormatCSV: delimited.NewParser(),
			FormatOFX: ofx.NewParser(),
		},
		logger: slog.Default(),
	}
}

// Parse converts the file to UTF-8 and hands it to the parser for format.
// FormatAuto picks OFX when the file contains a <STMTTRN> or <OFX> tag and
// delimited text otherwise.
func (s *Service) Parse(format Format, r io.Reader) ([]statement.ParsedRow, error) {
	utf8, charset, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	br := bufio.NewReaderSize(utf8, sniffSize)

	if format == FormatAuto {
		format = sniff(br)
	}

	parser, ok := s.parsers[format]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	rows, err := parser.Parse(br)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", format, err)
	}

	s.logger.Debug("parsed statement file", "format", format, "charset", charset, "rows", len(rows))

	return rows, nil
}

const sniffSize = 8 * 1024

func sniff(br *bufio.Reader) Format {
	head, _ := br.Peek(sniffSize)
	upper := bytes.ToUpper(head)

	if bytes.Contains(upper, []byte("<OFX")) || bytes.Contains(upper, []byte("<STMTTRN")) ||
		bytes.HasPrefix(upper, []byte("OFXHEADER")) {
		return FormatOFX
	}

	return FormatCSV
}
