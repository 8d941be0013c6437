package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "simple Tj",
			content: "BT /F1 12 Tf 100 700 Td (Hello world) Tj ET",
			want:    "Hello world",
		},
		{
			name:    "lines via Td and T*",
			content: "BT (one) Tj 0 -12 Td (two) Tj T* (three) Tj ET",
			want:    "one\ntwo\nthree",
		},
		{
			name:    "same line Td adds a space",
			content: "BT (left) Tj 50 0 Td (right) Tj ET",
			want:    "left right",
		},
		{
			name:    "TJ kerning",
			content: "BT [(Hel) -20 (lo) -400 (world)] TJ ET",
			want:    "Hello world",
		},
		{
			name:    "quote operators",
			content: "BT (a) Tj (b) ' 1 2 (c) \" ET",
			want:    "a\nb\nc",
		},
		{
			name:    "escapes and nesting",
			content: `BT (paren \(x\) and (nested) \\ \101\102) Tj ET`,
			want:    `paren (x) and (nested) \ AB`,
		},
		{
			name:    "hex string",
			content: "BT <48656C6C6F> Tj ET",
			want:    "Hello",
		},
		{
			name:    "utf-16 hex string",
			content: "BT <FEFF00480069> Tj ET",
			want:    "Hi",
		},
		{
			name:    "dictionaries comments and marked content",
			content: "% comment (ignored) Tj\n/Span << /ActualText (x) >> BDC BT (kept) Tj ET EMC",
			want:    "kept",
		},
		{
			name:    "inline image is skipped",
			content: "BI /W 1 /H 1 /BPC 8 /CS /G ID \x00(Tj)\xff EI BT (after) Tj ET",
			want:    "after",
		},
		{
			name:    "no text",
			content: "0 0 m 100 100 l S",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScanContent([]byte(tt.content), nil))
		})
	}
}

func TestScanContent_FontDecoder(t *testing.T) {
	var fonts []string
	decode := func(font string, raw []byte) string {
		fonts = append(fonts, font)
		if font == "F2" {
			return strings.ToUpper(string(raw))
		}
		return string(raw)
	}

	content := "BT /F1 12 Tf (plain) Tj /F2 10 Tf 0 -12 Td [(sh) -10 (out)] TJ ET"
	assert.Equal(t, "plain\nSHOUT", ScanContent([]byte(content), decode))
	assert.Equal(t, []string{"F1", "F2", "F2"}, fonts)
}

func TestDecodePDFString(t *testing.T) {
	assert.Equal(t, "café", decodePDFString([]byte{'c', 'a', 'f', 0xE9}))
	assert.Equal(t, "a b", decodePDFString([]byte("a\nb")))
	assert.Equal(t, "ab", decodePDFString([]byte{'a', 0x01, 'b'}))
}
