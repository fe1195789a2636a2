package recording

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// textDecoder turns a byte stream into valid UTF-8 text.
// A multi-byte sequence split across two reads is held back until the rest
// arrives; invalid bytes become U+FFFD.
type textDecoder struct {
	dec     *encoding.Decoder
	pending []byte
}

func newTextDecoder() *textDecoder {
	return &textDecoder{dec: unicode.UTF8.NewDecoder()}
}

func (d *textDecoder) decode(b []byte) string {
	if len(d.pending) > 0 {
		b = append(d.pending, b...)
		d.pending = nil
	}
	if n := incompleteSuffix(b); n > 0 {
		d.pending = append([]byte(nil), b[len(b)-n:]...)
		b = b[:len(b)-n]
	}
	return d.convert(b)
}

// flush returns whatever partial sequence is still held back.
func (d *textDecoder) flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	s := d.convert(d.pending)
	d.pending = nil
	return s
}

func (d *textDecoder) convert(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := d.dec.Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(out)
}

// incompleteSuffix returns the length of a truncated UTF-8 sequence at the
// end of b, or 0 when b ends on a rune boundary.
func incompleteSuffix(b []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if !utf8.RuneStart(b[len(b)-i]) {
			continue
		}
		if utf8.FullRune(b[len(b)-i:]) {
			return 0
		}
		return i
	}
	return 0
}

// crlfNormalizer rewrites every LF that does not follow a CR into CRLF.
// It remembers the last byte so a CR at the end of one chunk pairs with an
// LF at the start of the next.
type crlfNormalizer struct {
	prevCR bool
}

func (n *crlfNormalizer) normalize(s string) string {
	if s == "" {
		return s
	}
	if !strings.Contains(s, "\n") {
		n.prevCR = s[len(s)-1] == '\r'
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + strings.Count(s, "\n"))
	prev := n.prevCR
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' && !prev {
			b.WriteByte('\r')
		}
		b.WriteByte(c)
		prev = c == '\r'
	}
	n.prevCR = prev
	return b.String()
}
