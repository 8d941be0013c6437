// Package summary turns documents into short abstracts with an LLM, falling
// back to extractive heuristics when no model is reachable.
package summary

import (
	"context"
	"time"
)

// Summarizer produces a summary for one document.
type Summarizer interface {
	Summarize(ctx context.Context, req *SummarizeRequest) (*SummarizeResponse, error)
}

// SummarizeRequest is one summarization job.
type SummarizeRequest struct {
	Content string
	MaxLen  int // upper bound in runes for fallback summaries, default 200
}

// SummarizeResponse carries the summary and where it came from.
type SummarizeResponse struct {
	Summary string
	Source  string // see the Source constants
	Latency time.Duration
}

// Summary sources.
const (
	SourceEmpty                 = "empty"
	SourceLLM                   = "llm"
	SourceLLMChunked            = "llm_chunked"
	SourceFallbackFirstPara     = "fallback_first_para"
	SourceFallbackFirstSentence = "fallback_first_sentence"
	SourceFallbackTruncate      = "fallback_truncate"
)
