package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/textsummarizer/ai/configloader"
	"github.com/hrygo/textsummarizer/ai/core/llm"
	"github.com/hrygo/textsummarizer/ai/summary"
	"github.com/hrygo/textsummarizer/internal/profile"
	"github.com/hrygo/textsummarizer/plugin/client"
	"github.com/hrygo/textsummarizer/plugin/extract"
	"github.com/hrygo/textsummarizer/session"
)

// newPipeline builds the in-process summarizer. The returned LLM service is
// nil when no provider is configured.
func newPipeline(p *profile.Profile) (*summary.Pipeline, llm.Service, error) {
	var llmSvc llm.Service
	if p.IsLLMEnabled() {
		svc, err := llm.NewService(&llm.Config{
			Provider: p.LLMProvider,
			Model:    p.LLMModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  p.LLMTimeout,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create LLM service")
		}
		llmSvc = svc
	} else {
		slog.Warn("LLM not configured, summaries will be extractive",
			"hint", "set SUMMARIZER_LLM_PROVIDER and SUMMARIZER_LLM_API_KEY")
	}

	opts := []summary.Option{
		summary.WithMaxChars(p.SummaryMaxChars),
		summary.WithConcurrency(p.SummaryConcurrency),
		summary.WithFallback(!p.StrictLLM),
	}
	if p.PromptsFile != "" {
		prompts, err := summary.LoadPrompts(configloader.NewLoader("."), p.PromptsFile)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, summary.WithPrompts(prompts))
	}
	return summary.NewPipeline(llmSvc, opts...), llmSvc, nil
}

// newBackend returns the summarizer and extractor a client session uses:
// either the HTTP backend or, with direct, the in-process pipeline.
func newBackend(ctx context.Context, p *profile.Profile, direct bool) (session.Summarizer, session.Extractor, error) {
	if !direct {
		c := client.New(p.BackendURL, client.WithTimeout(time.Duration(p.LLMTimeout+30)*time.Second))
		checkBackend(ctx, c, p.Version)
		return c, c, nil
	}

	pipeline, _, err := newPipeline(p)
	if err != nil {
		return nil, nil, err
	}
	return summary.Direct{Summarizer: pipeline, MaxLen: p.SummaryMaxLen}, extract.NewService(), nil
}

// checkBackend logs whether the backend is reachable and runs a release this
// client can talk to. Requests still go out either way; failures surface on
// the records.
func checkBackend(ctx context.Context, c *client.Client, clientVersion string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	backend, err := c.CheckVersion(ctx, clientVersion)
	switch {
	case err == nil:
		slog.Debug("backend: reachable", "version", backend)
	case errors.Is(err, client.ErrIncompatibleBackend), errors.Is(err, client.ErrOutdatedBackend):
		slog.Warn("backend: version mismatch", "backend", backend, "client", clientVersion, "error", err)
	default:
		slog.Warn("backend: unreachable", "error", err)
	}
}
