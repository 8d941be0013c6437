package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// fontTable resolves the font resources of each page so that shown strings
// can be mapped through the font's encoding and ToUnicode CMap.
//
// The reader reports malformed objects by panicking, so every call into it
// recovers and degrades to Latin-1 decoding.
type fontTable struct {
	reader *pdf.Reader
}

func openFontTable(data []byte) (ft *fontTable, err error) {
	defer func() {
		if r := recover(); r != nil {
			ft, err = nil, fmt.Errorf("pdf font reader: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &fontTable{reader: reader}, nil
}

// decoder returns the glyph decoder for page num (1-based), or nil when the
// page has no usable font resources.
func (ft *fontTable) decoder(num int) GlyphDecoder {
	if ft == nil {
		return nil
	}
	page, ok := ft.page(num)
	if !ok {
		return nil
	}

	encoders := make(map[string]pdf.TextEncoding)
	for _, name := range pageFonts(page) {
		if enc := fontEncoder(page, name); enc != nil {
			encoders[name] = enc
		}
	}
	if len(encoders) == 0 {
		return nil
	}

	return func(font string, raw []byte) string {
		enc, ok := encoders[font]
		if !ok {
			return decodePDFString(raw)
		}
		return decodeGlyphs(enc, raw)
	}
}

func (ft *fontTable) page(num int) (page pdf.Page, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	page = ft.reader.Page(num)
	return page, !page.V.IsNull()
}

func pageFonts(page pdf.Page) (names []string) {
	defer func() {
		if recover() != nil {
			names = nil
		}
	}()
	return page.Fonts()
}

// fontEncoder builds the encoder of one font resource; fonts whose CMap
// cannot be parsed are skipped.
func fontEncoder(page pdf.Page, name string) (enc pdf.TextEncoding) {
	defer func() {
		if recover() != nil {
			enc = nil
		}
	}()
	return page.Font(name).Encoder()
}

// decodeGlyphs maps raw through enc. Output that is not valid UTF-8, as
// produced for fonts with an unrecognized encoding, is read as Latin-1.
// Unmapped codes are dropped.
func decodeGlyphs(enc pdf.TextEncoding, raw []byte) (text string) {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return decodePDFString(raw)
	}
	defer func() {
		if recover() != nil {
			text = decodePDFString(raw)
		}
	}()

	decoded := enc.Decode(string(raw))
	if !utf8.ValidString(decoded) {
		return decodePDFString(raw)
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case r == utf8.RuneError, r < 0x20, r == 0x7F:
			return -1
		}
		return r
	}, decoded)
}
