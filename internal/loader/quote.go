package loader

import (
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// quoteSwap exchanges the configured quote character with the double quote so the
// standard CSV writer can emit tables quoted with any character. The mapping is
// its own inverse: applying it to each field and then to the stream restores the
// original text.
type quoteSwap struct {
	quote rune
}

func (s quoteSwap) identity() bool {
	return s.quote == '"'
}

func (s quoteSwap) mapRune(r rune) rune {
	switch r {
	case s.quote:
		return '"'
	case '"':
		return s.quote
	}
	return r
}

func (s quoteSwap) mapString(v string) string {
	if s.identity() {
		return v
	}
	return strings.Map(s.mapRune, v)
}

func (s quoteSwap) transformer() transform.Transformer {
	if s.identity() {
		return transform.Nop
	}
	return runes.Map(s.mapRune)
}

func newCSVWriter(w io.Writer, opts Options) (*csv.Writer, *transform.Writer, quoteSwap) {
	swap := quoteSwap{quote: opts.Quote}
	tw := transform.NewWriter(w, swap.transformer())

	cw := csv.NewWriter(tw)
	cw.Comma = swap.mapRune(opts.Delimiter)
	return cw, tw, swap
}
