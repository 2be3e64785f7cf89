package canonical

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"crowdtags/pkg/model"
)

const (
	itemSeparator = ", "
	keySeparator  = ": "
	hexDigits     = "0123456789abcdef"
)

func writeAction(b *strings.Builder, action model.Action) {
	b.WriteByte('{')
	for i, tag := range action.Tags() {
		if i > 0 {
			b.WriteString(itemSeparator)
		}
		writeString(b, tag)
		b.WriteString(keySeparator)
		writePhraseList(b, action[tag])
	}
	b.WriteByte('}')
}

func writePhraseList(b *strings.Builder, phrases model.PhraseList) {
	b.WriteByte('[')
	for i, phrase := range phrases {
		if i > 0 {
			b.WriteString(itemSeparator)
		}
		writePhrase(b, phrase)
	}
	b.WriteByte(']')
}

func writePhrase(b *strings.Builder, phrase model.Phrase) {
	b.WriteByte('[')
	for i, word := range phrase {
		if i > 0 {
			b.WriteString(itemSeparator)
		}
		writeString(b, word)
	}
	b.WriteByte(']')
}

// writeString emits s as an ASCII-only JSON string. Only printable ASCII other
// than quote and backslash is written verbatim.
func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			i++
			switch c {
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			default:
				if c < 0x20 || c == 0x7f {
					writeEscape(b, rune(c))
				} else {
					b.WriteByte(c)
				}
			}
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			writeEscape(b, hi)
			writeEscape(b, lo)
			continue
		}
		writeEscape(b, r)
	}
	b.WriteByte('"')
}

func writeEscape(b *strings.Builder, r rune) {
	b.WriteString(`\u`)
	b.WriteByte(hexDigits[r>>12&0xf])
	b.WriteByte(hexDigits[r>>8&0xf])
	b.WriteByte(hexDigits[r>>4&0xf])
	b.WriteByte(hexDigits[r&0xf])
}
