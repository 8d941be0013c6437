package summary

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	citationRe    = regexp.MustCompile(`\[\d+\]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	pageRe        = regexp.MustCompile(`Page \d+ of \d+`)
	urlRe         = regexp.MustCompile(`https?://\S+`)
	spaceBeforeRe = regexp.MustCompile(`\s+([.,!?])`)
)

// CleanText removes numeric citations, page footers and links, and
// collapses whitespace to single spaces.
func CleanText(text string) string {
	text = citationRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = pageRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// FixSpacing removes whitespace left before sentence punctuation.
func FixSpacing(text string) string {
	return strings.TrimSpace(spaceBeforeRe.ReplaceAllString(text, "$1"))
}

// SplitSentences splits text after '.', '!' or '?' followed by whitespace,
// and after full-width terminators unconditionally.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		end := i + utf8.RuneLen(r)
		switch r {
		case '。', '！', '？':
		case '.', '!', '?':
			if end < len(text) {
				next, _ := utf8.DecodeRuneInString(text[end:])
				if !unicode.IsSpace(next) {
					continue
				}
			}
		default:
			continue
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// KeySentences keeps the n longest sentences of text in their original
// order. Text with at most n sentences is returned joined as is.
func KeySentences(text string, n int) string {
	sentences := SplitSentences(text)
	if n <= 0 || len(sentences) <= n {
		return strings.Join(sentences, " ")
	}

	idx := make([]int, len(sentences))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return len(sentences[idx[a]]) > len(sentences[idx[b]])
	})
	top := idx[:n]
	sort.Ints(top)

	picked := make([]string, n)
	for i, j := range top {
		picked[i] = sentences[j]
	}
	return strings.Join(picked, " ")
}

// Chunk groups sentences into pieces of at most maxChars bytes. A single
// sentence longer than maxChars is split on word boundaries.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	add := func(piece string) {
		if current.Len() > 0 && current.Len()+1+len(piece) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(piece)
	}

	for _, sentence := range SplitSentences(text) {
		if len(sentence) <= maxChars {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			for len(word) > maxChars {
				cut := runeBoundary(word, maxChars)
				flush()
				chunks = append(chunks, word[:cut])
				word = word[cut:]
			}
			add(word)
		}
	}
	flush()
	return chunks
}

// runeBoundary returns the largest index <= n that starts a rune in s.
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return n
}
