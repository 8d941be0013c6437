package summary

import (
	"strings"
	"unicode/utf8"
)

// FallbackSummarize provides a three-level extractive summary.
func FallbackSummarize(req *SummarizeRequest) (*SummarizeResponse, error) {
	maxLen := req.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}

	// Level 1: the first paragraph when it fits.
	firstPara := extractFirstParagraph(req.Content)
	if firstPara != "" && utf8.RuneCountInString(firstPara) <= maxLen {
		return &SummarizeResponse{Summary: firstPara, Source: SourceFallbackFirstPara}, nil
	}

	// Level 2: the first sentence when it fits.
	if firstSentence := extractFirstSentence(req.Content); firstSentence != "" && utf8.RuneCountInString(firstSentence) <= maxLen {
		return &SummarizeResponse{Summary: firstSentence, Source: SourceFallbackFirstSentence}, nil
	}

	// Level 3: rune-safe truncation.
	source := firstPara
	if source == "" {
		source = strings.TrimSpace(req.Content)
	}
	return &SummarizeResponse{
		Summary: truncateRunes(source, maxLen),
		Source:  SourceFallbackTruncate,
	}, nil
}

func extractFirstParagraph(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func extractFirstSentence(content string) string {
	firstLine := extractFirstParagraph(content)
	if firstLine == "" {
		return ""
	}
	if sentences := SplitSentences(firstLine); len(sentences) > 0 {
		return sentences[0]
	}
	return firstLine
}

// truncateRunes cuts s to maxLen runes, preferring the last word boundary.
func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)[:maxLen]
	cut := string(runes)
	if idx := strings.LastIndexByte(cut, ' '); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
