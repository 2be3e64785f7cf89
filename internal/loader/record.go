package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type fieldState int

const (
	fieldStart fieldState = iota
	inField
	inQuotedField
	quoteInQuotedField
)

// syntaxError reports a table that cannot be split into records.
type syntaxError struct {
	Line int
	Msg  string
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// recordReader splits a delimited stream into records the way data-frame readers
// do. The quote character opens a quoted field only at the start of a field and
// is plain text anywhere else. Text following a closing quote is appended to the
// field. A doubled quote inside a quoted field is one literal quote. Blank lines
// are skipped and \r\n is read as \n.
type recordReader struct {
	r         *bufio.Reader
	quote     rune
	delimiter rune
	line      int
	field     strings.Builder
}

func newRecordReader(r io.Reader, opts Options) *recordReader {
	// BOMOverride drops a leading UTF-8 byte order mark and decodes UTF-16 input
	// that announces itself with one.
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	return &recordReader{
		r:         bufio.NewReader(decoded),
		quote:     opts.Quote,
		delimiter: opts.Delimiter,
		line:      1,
	}
}

func (rr *recordReader) next() (rune, error) {
	c, _, err := rr.r.ReadRune()
	if err != nil {
		return 0, err
	}
	if c == '\r' {
		if n, _, err := rr.r.ReadRune(); err == nil && n != '\n' {
			_ = rr.r.UnreadRune()
		}
		c = '\n'
	}
	if c == '\n' {
		rr.line++
	}
	return c, nil
}

// Read returns the next record and the line it starts on. It returns io.EOF once
// the input is exhausted.
func (rr *recordReader) Read() ([]string, int, error) {
	c, err := rr.next()
	for err == nil && c == '\n' {
		c, err = rr.next()
	}
	if err != nil {
		return nil, 0, err
	}

	start := rr.line
	var record []string
	rr.field.Reset()
	state := fieldStart

	for {
		switch state {
		case fieldStart:
			switch c {
			case rr.quote:
				state = inQuotedField
			case rr.delimiter:
				record = rr.endField(record)
			case '\n':
				return rr.endField(record), start, nil
			default:
				rr.field.WriteRune(c)
				state = inField
			}
		case inField:
			switch c {
			case rr.delimiter:
				record = rr.endField(record)
				state = fieldStart
			case '\n':
				return rr.endField(record), start, nil
			default:
				rr.field.WriteRune(c)
			}
		case inQuotedField:
			if c == rr.quote {
				state = quoteInQuotedField
			} else {
				rr.field.WriteRune(c)
			}
		case quoteInQuotedField:
			switch c {
			case rr.quote:
				rr.field.WriteRune(c)
				state = inQuotedField
			case rr.delimiter:
				record = rr.endField(record)
				state = fieldStart
			case '\n':
				return rr.endField(record), start, nil
			default:
				rr.field.WriteRune(c)
				state = inField
			}
		}

		c, err = rr.next()
		if errors.Is(err, io.EOF) {
			if state == inQuotedField {
				return nil, start, &syntaxError{
					Line: start,
					Msg:  fmt.Sprintf("quoted field opened with %q is never closed", rr.quote),
				}
			}
			return rr.endField(record), start, nil
		}
		if err != nil {
			return nil, start, err
		}
	}
}

func (rr *recordReader) endField(record []string) []string {
	record = append(record, rr.field.String())
	rr.field.Reset()
	return record
}
