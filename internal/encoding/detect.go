// Package encoding normalizes bank export files to UTF-8. Brazilian banks
// still ship statements in Latin-1 or Windows-1252 as often as in UTF-8.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset is the detected encoding of an input.
type Charset string

const (
	UTF8        Charset = "UTF-8"
	UTF8BOM     Charset = "UTF-8-BOM"
	UTF16LE     Charset = "UTF-16LE"
	UTF16BE     Charset = "UTF-16BE"
	ISO88591    Charset = "ISO-8859-1"
	ISO885915   Charset = "ISO-8859-15"
	Windows1252 Charset = "windows-1252"
)

const sniffLen = 4096

// Detect guesses the charset of a sample taken from the start of a file.
// Byte order marks win, valid UTF-8 is kept, and anything chardet cannot
// place is read as Windows-1252.
func Detect(sample []byte) Charset {
	switch {
	case bytes.HasPrefix(sample, []byte{0xEF, 0xBB, 0xBF}):
		return UTF8BOM
	case bytes.HasPrefix(sample, []byte{0xFF, 0xFE}):
		return UTF16LE
	case bytes.HasPrefix(sample, []byte{0xFE, 0xFF}):
		return UTF16BE
	case validUTF8Prefix(sample):
		return UTF8
	}

	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		return Windows1252
	}

	switch Charset(result.Charset) {
	case UTF8:
		return UTF8
	case ISO88591:
		return ISO88591
	case ISO885915:
		return ISO885915
	}

	return Windows1252
}

// validUTF8Prefix accepts a sample cut in the middle of a multi-byte rune.
func validUTF8Prefix(sample []byte) bool {
	if utf8.Valid(sample) {
		return true
	}

	for cut := 1; cut < utf8.UTFMax && cut < len(sample); cut++ {
		if utf8.Valid(sample[:len(sample)-cut]) && !utf8.FullRune(sample[len(sample)-cut:]) {
			return true
		}
	}

	return false
}

func (c Charset) decoder() *xencoding.Decoder {
	switch c {
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case ISO88591:
		return charmap.ISO8859_1.NewDecoder()
	case ISO885915:
		return charmap.ISO8859_15.NewDecoder()
	case Windows1252:
		return charmap.Windows1252.NewDecoder()
	}

	return nil
}

// NewUTF8Reader returns a reader yielding r's content as UTF-8, along with the
// charset it was decoded from.
func NewUTF8Reader(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, sniffLen)

	sample, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	charset := Detect(sample)

	if charset == UTF8BOM {
		_, _ = br.Discard(3)
		return br, charset, nil
	}

	dec := charset.decoder()
	if dec == nil {
		return br, charset, nil
	}

	return transform.NewReader(br, dec), charset, nil
}
