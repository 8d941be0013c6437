package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/textsummarizer/ai/core/llm"
)

// Defaults of the summarization pipeline.
const (
	DefaultMaxChars     = 3000
	DefaultKeySentences = 8
	DefaultConcurrency  = 4
)

// Pipeline cleans a document, preselects its key sentences and summarizes
// them with the LLM, chunking long input and merging the partial results.
type Pipeline struct {
	llm          llm.Service
	prompts      *Prompts
	maxChars     int
	keySentences int
	concurrency  int
	fallback     bool
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPrompts replaces the built-in prompts.
func WithPrompts(p *Prompts) Option {
	return func(s *Pipeline) { s.prompts = p }
}

// WithMaxChars sets the chunk size in bytes.
func WithMaxChars(n int) Option {
	return func(s *Pipeline) { s.maxChars = n }
}

// WithKeySentences sets how many sentences are preselected.
func WithKeySentences(n int) Option {
	return func(s *Pipeline) { s.keySentences = n }
}

// WithConcurrency bounds parallel chunk requests.
func WithConcurrency(n int) Option {
	return func(s *Pipeline) { s.concurrency = n }
}

// WithFallback controls whether LLM failures degrade to an extractive
// summary (true, the default) or are returned to the caller.
func WithFallback(on bool) Option {
	return func(s *Pipeline) { s.fallback = on }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Pipeline) { s.logger = l }
}

// NewPipeline creates a summarizer. llmSvc may be nil, in which case every
// request uses the extractive fallback.
func NewPipeline(llmSvc llm.Service, opts ...Option) *Pipeline {
	p := &Pipeline{
		llm:          llmSvc,
		prompts:      DefaultPrompts(),
		maxChars:     DefaultMaxChars,
		keySentences: DefaultKeySentences,
		concurrency:  DefaultConcurrency,
		fallback:     true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Summarize(ctx context.Context, req *SummarizeRequest) (*SummarizeResponse, error) {
	start := time.Now()

	cleaned := CleanText(req.Content)
	if cleaned == "" {
		return &SummarizeResponse{Source: SourceEmpty}, nil
	}

	if p.llm == nil {
		return p.fallbackFor(req, start)
	}

	preselected := KeySentences(cleaned, p.keySentences)

	var (
		summary string
		source  = SourceLLM
		err     error
	)
	if len(preselected) <= p.maxChars {
		summary, err = p.ask(ctx, p.prompts.Final, wordBudget(len(preselected)), preselected)
	} else {
		source = SourceLLMChunked
		summary, err = p.summarizeChunks(ctx, preselected)
	}
	if err != nil {
		if !p.fallback || ctx.Err() != nil {
			return nil, err
		}
		p.logger.Warn("summary: LLM failed, using fallback", "error", err)
		return p.fallbackFor(req, start)
	}

	summary = FixSpacing(summary)
	p.logger.Debug("summary: generated",
		"source", source,
		"input_length", len(req.Content),
		"summary_length", len(summary),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &SummarizeResponse{
		Summary: summary,
		Source:  source,
		Latency: time.Since(start),
	}, nil
}

func (p *Pipeline) summarizeChunks(ctx context.Context, text string) (string, error) {
	chunks := Chunk(text, p.maxChars)
	partials := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.concurrency))
	for i, chunk := range chunks {
		g.Go(func() error {
			out, err := p.ask(gctx, p.prompts.Chunk, min(200, max(50, len(chunk)/2)), chunk)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			partials[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	combined := strings.Join(partials, " ")
	return p.ask(ctx, p.prompts.Final, 250, combined)
}

func (p *Pipeline) ask(ctx context.Context, template string, maxWords int, text string) (string, error) {
	content, _, err := p.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(p.prompts.System),
		llm.UserMessage(render(template, maxWords, text)),
	})
	if err != nil {
		return "", err
	}
	summary := parseSummary(content)
	if summary == "" {
		return "", fmt.Errorf("LLM returned an empty summary")
	}
	return summary, nil
}

func (p *Pipeline) fallbackFor(req *SummarizeRequest, start time.Time) (*SummarizeResponse, error) {
	resp, err := FallbackSummarize(req)
	if err != nil {
		return nil, err
	}
	resp.Summary = FixSpacing(resp.Summary)
	resp.Latency = time.Since(start)
	return resp, nil
}

// wordBudget scales the summary length with the input, between 80 and 250.
func wordBudget(inputLen int) int {
	return min(250, max(80, inputLen/2))
}

// parseSummary accepts {"summary": ...} JSON, optionally inside a markdown
// code fence, and falls back to the raw reply.
func parseSummary(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result struct {
		Summary json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal([]byte(content), &result); err == nil && len(result.Summary) > 0 {
		var s string
		if err := json.Unmarshal(result.Summary, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var parts []string
		if err := json.Unmarshal(result.Summary, &parts); err == nil {
			return strings.TrimSpace(strings.Join(parts, " "))
		}
	}

	if idx := strings.Index(content, `"summary"`); idx >= 0 {
		start := strings.Index(content[idx:], ":") + idx + 1
		if end := strings.LastIndex(content[start:], "}"); end > 0 {
			return strings.Trim(content[start:start+end], "\"\n ")
		}
	}

	return content
}
