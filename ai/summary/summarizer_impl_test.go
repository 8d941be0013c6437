package summary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/textsummarizer/ai/configloader"
	"github.com/hrygo/textsummarizer/ai/core/llm"
)

type fakeLLM struct {
	mu      sync.Mutex
	calls   []string
	reply   func(prompt string) (string, error)
	current atomic.Int32
	peak    atomic.Int32
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message) (string, *llm.CallStats, error) {
	n := f.current.Add(1)
	defer f.current.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	prompt := messages[len(messages)-1].Content
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()

	out, err := f.reply(prompt)
	return out, &llm.CallStats{}, err
}

func (f *fakeLLM) Warmup(context.Context) {}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestPipeline_SingleCall(t *testing.T) {
	fake := &fakeLLM{reply: func(string) (string, error) {
		return "```json\n{\"summary\": \"A fox runs .\"}\n```", nil
	}}
	p := NewPipeline(fake)

	resp, err := p.Summarize(context.Background(), &SummarizeRequest{
		Content: "The quick brown fox[1] jumps over the lazy dog. It runs away.",
	})
	require.NoError(t, err)
	assert.Equal(t, "A fox runs.", resp.Summary)
	assert.Equal(t, SourceLLM, resp.Source)
	require.Equal(t, 1, fake.callCount())
	assert.NotContains(t, fake.calls[0], "[1]")
	assert.Contains(t, fake.calls[0], "at most 80 words")
}

func TestPipeline_Chunked(t *testing.T) {
	fake := &fakeLLM{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "this part of a longer document") {
			return `{"summary": "partial"}`, nil
		}
		return `{"summary": "final"}`, nil
	}}
	p := NewPipeline(fake, WithMaxChars(100), WithKeySentences(50), WithConcurrency(2))

	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("This sentence is filler text used for chunking. ")
	}

	resp, err := p.Summarize(context.Background(), &SummarizeRequest{Content: b.String()})
	require.NoError(t, err)
	assert.Equal(t, "final", resp.Summary)
	assert.Equal(t, SourceLLMChunked, resp.Source)

	chunks := len(Chunk(KeySentences(CleanText(b.String()), 50), 100))
	assert.Equal(t, chunks+1, fake.callCount())
	assert.LessOrEqual(t, fake.peak.Load(), int32(2))
	last := fake.calls[len(fake.calls)-1]
	assert.Contains(t, last, "partial partial")
}

func TestPipeline_FallbackOnLLMError(t *testing.T) {
	fake := &fakeLLM{reply: func(string) (string, error) { return "", errors.New("upstream down") }}
	content := "First paragraph stays.\nSecond paragraph goes."

	resp, err := NewPipeline(fake).Summarize(context.Background(), &SummarizeRequest{Content: content})
	require.NoError(t, err)
	assert.Equal(t, SourceFallbackFirstPara, resp.Source)
	assert.Equal(t, "First paragraph stays.", resp.Summary)

	_, err = NewPipeline(fake, WithFallback(false)).Summarize(context.Background(), &SummarizeRequest{Content: content})
	assert.Error(t, err)
}

func TestPipeline_WithoutLLM(t *testing.T) {
	resp, err := NewPipeline(nil).Summarize(context.Background(), &SummarizeRequest{Content: "Only line here."})
	require.NoError(t, err)
	assert.Equal(t, "Only line here.", resp.Summary)
}

func TestPipeline_EmptyInput(t *testing.T) {
	fake := &fakeLLM{reply: func(string) (string, error) { return "x", nil }}
	resp, err := NewPipeline(fake).Summarize(context.Background(), &SummarizeRequest{Content: "  [3] "})
	require.NoError(t, err)
	assert.Empty(t, resp.Summary)
	assert.Equal(t, SourceEmpty, resp.Source)
	assert.Zero(t, fake.callCount())
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "json", in: `{"summary": "plain"}`, want: "plain"},
		{name: "fenced json", in: "```json\n{\"summary\": \"fenced\"}\n```", want: "fenced"},
		{name: "list", in: `{"summary": ["a", "b"]}`, want: "a b"},
		{name: "broken json", in: `{"summary": "unterminated }`, want: "unterminated"},
		{name: "raw text", in: "  just text  ", want: "just text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSummary(tt.in))
		})
	}
}

func TestLoadPrompts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompts.yaml"), []byte("final: \"Shorten to {{max_words}} words: {{text}}\"\n"), 0o644))

	p, err := LoadPrompts(configloader.NewLoader(dir), "prompts.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Shorten to 80 words: hi", render(p.Final, 80, "hi"))
	assert.Equal(t, DefaultPrompts().System, p.System)

	_, err = LoadPrompts(configloader.NewLoader(dir), "missing.yaml")
	assert.Error(t, err)
}

func TestDirect(t *testing.T) {
	d := Direct{Summarizer: NewPipeline(nil)}
	out, err := d.Summarize(context.Background(), "One line.")
	require.NoError(t, err)
	assert.Equal(t, "One line.", out)
}
