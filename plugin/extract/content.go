package extract

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf16"
)

type tokenKind int

const (
	tokString tokenKind = iota
	tokNumber
	tokOperator
	tokArrayStart
	tokArrayEnd
	tokArray
	tokName
	tokOther
)

type token struct {
	kind  tokenKind
	str   []byte
	num   float64
	op    string
	items []token
}

// kerningSpace is the TJ displacement, in thousandths of a text space unit,
// beyond which a gap is treated as a word break.
const kerningSpace = -200

// GlyphDecoder maps the raw bytes of a string shown in the named font
// resource to text.
type GlyphDecoder func(font string, raw []byte) string

// ScanContent extracts the text shown by a decoded PDF page content stream.
// It follows the text-showing operators (Tj, TJ, ' and ") and turns
// line-positioning operators into line breaks. Strings are decoded with
// decode under the font selected by the last Tf; a nil decode reads them
// as Latin-1 or BOM-marked UTF-16.
func ScanContent(content []byte, decode GlyphDecoder) string {
	var (
		w        = textWriter{decode: decode}
		operands []token
		array    []token
		inArray  bool
	)
	s := &contentScanner{data: content}

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokArrayStart:
			inArray = true
			array = array[:0]
		case tokArrayEnd:
			if inArray {
				inArray = false
				operands = append(operands, token{kind: tokArray, items: append([]token(nil), array...)})
			}
		case tokOperator:
			if inArray {
				continue
			}
			apply(&w, tok.op, operands)
			operands = operands[:0]
			if tok.op == "ID" {
				s.skipInlineImage()
			}
		default:
			if inArray {
				array = append(array, tok)
			} else {
				operands = append(operands, tok)
			}
		}
	}
	return w.String()
}

func apply(w *textWriter, op string, operands []token) {
	last := func(kind tokenKind) (token, bool) {
		if len(operands) == 0 || operands[len(operands)-1].kind != kind {
			return token{}, false
		}
		return operands[len(operands)-1], true
	}

	switch op {
	case "Tf":
		if len(operands) >= 2 && operands[len(operands)-2].kind == tokName {
			w.font = operands[len(operands)-2].op
		}
	case "Tj":
		if t, ok := last(tokString); ok {
			w.show(t.str)
		}
	case "'", `"`:
		w.lineBreak()
		if t, ok := last(tokString); ok {
			w.show(t.str)
		}
	case "TJ":
		t, ok := last(tokArray)
		if !ok {
			return
		}
		for _, item := range t.items {
			switch item.kind {
			case tokString:
				w.show(item.str)
			case tokNumber:
				if item.num < kerningSpace {
					w.space()
				}
			}
		}
	case "Td", "TD":
		if len(operands) >= 2 && operands[1].kind == tokNumber && operands[1].num != 0 {
			w.lineBreak()
		} else {
			w.space()
		}
	case "T*", "ET":
		w.lineBreak()
	case "Tm":
		w.space()
	}
}

// textWriter accumulates text, deferring separators until the next glyphs
// so that runs of positioning operators collapse.
type textWriter struct {
	b       strings.Builder
	pending byte
	font    string
	decode  GlyphDecoder
}

func (w *textWriter) show(raw []byte) {
	if w.decode != nil {
		w.text(w.decode(w.font, raw))
		return
	}
	w.text(decodePDFString(raw))
}

func (w *textWriter) text(s string) {
	if s == "" {
		return
	}
	if w.pending != 0 && w.b.Len() > 0 {
		w.b.WriteByte(w.pending)
	}
	w.pending = 0
	w.b.WriteString(s)
}

func (w *textWriter) space() {
	if w.pending == 0 {
		w.pending = ' '
	}
}

func (w *textWriter) lineBreak() {
	w.pending = '\n'
}

func (w *textWriter) String() string {
	lines := strings.Split(w.b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// decodePDFString decodes UTF-16BE strings marked with a byte order mark and
// reads everything else as Latin-1.
func decodePDFString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
		units := make([]uint16, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(units))
	}
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\t' || c == '\n' || c == '\r':
			sb.WriteByte(' ')
		case c < 0x20 || c == 0x7F:
		default:
			sb.WriteRune(rune(c))
		}
	}
	return sb.String()
}

type contentScanner struct {
	data []byte
	pos  int
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *contentScanner) next() (token, bool) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isWhitespace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			s.pos++
			return token{kind: tokString, str: s.literal()}, true
		case c == '<':
			if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
				s.pos += 2
				return token{kind: tokOther}, true
			}
			s.pos++
			return token{kind: tokString, str: s.hex()}, true
		case c == '>':
			s.pos++
			if s.pos < len(s.data) && s.data[s.pos] == '>' {
				s.pos++
			}
			return token{kind: tokOther}, true
		case c == '[':
			s.pos++
			return token{kind: tokArrayStart}, true
		case c == ']':
			s.pos++
			return token{kind: tokArrayEnd}, true
		case c == '/':
			s.pos++
			return token{kind: tokName, op: s.regular()}, true
		case c == '{' || c == '}' || c == ')':
			s.pos++
		default:
			word := s.regular()
			if n, err := strconv.ParseFloat(word, 64); err == nil {
				return token{kind: tokNumber, num: n}, true
			}
			return token{kind: tokOperator, op: word}, true
		}
	}
	return token{}, false
}

func (s *contentScanner) regular() string {
	start := s.pos
	for s.pos < len(s.data) && !isWhitespace(s.data[s.pos]) && !isDelimiter(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal reads a parenthesized string; the opening paren is consumed.
func (s *contentScanner) literal() []byte {
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			if s.pos >= len(s.data) {
				return out
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

// hex reads a hex string; the opening angle bracket is consumed.
func (s *contentScanner) hex() []byte {
	var digits []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		if isHexDigit(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexValue(digits[2*i])<<4 | hexValue(digits[2*i+1])
	}
	return out
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// skipInlineImage moves past the binary data of an inline image, up to and
// including its EI operator.
func (s *contentScanner) skipInlineImage() {
	if s.pos < len(s.data) && isWhitespace(s.data[s.pos]) {
		s.pos++
	}
	for i := s.pos; i+1 < len(s.data); i++ {
		if !bytes.HasPrefix(s.data[i:], []byte("EI")) {
			continue
		}
		before := i == 0 || isWhitespace(s.data[i-1])
		after := i+2 == len(s.data) || isWhitespace(s.data[i+2])
		if before && after {
			s.pos = i + 2
			return
		}
	}
	s.pos = len(s.data)
}
