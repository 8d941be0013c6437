package summary

import (
	"strconv"
	"strings"

	"github.com/hrygo/textsummarizer/ai/configloader"
)

// Prompts are the message templates sent to the LLM. The placeholders
// {{max_words}} and {{text}} are substituted per call.
type Prompts struct {
	System string `yaml:"system"`
	Chunk  string `yaml:"chunk"`
	Final  string `yaml:"final"`
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	return &Prompts{
		System: `You are a careful summarization assistant. Given a document, write a concise abstract.

Rules:
1. Keep the core points and key facts.
2. Write in the same language as the document.
3. Do not add claims that are not in the document.
4. Do not prefix the answer with "Summary:" or similar.
5. Reply with JSON only: {"summary": "..."}`,
		Chunk: `Summarize this part of a longer document in at most {{max_words}} words:

{{text}}

Reply with JSON only: {"summary": "..."}`,
		Final: `Summarize the following text in at most {{max_words}} words:

{{text}}

Reply with JSON only: {"summary": "..."}`,
	}
}

// LoadPrompts reads templates from a YAML file through loader. Missing
// fields keep their defaults.
func LoadPrompts(loader *configloader.Loader, path string) (*Prompts, error) {
	p := DefaultPrompts()
	if err := loader.Load(path, p); err != nil {
		return nil, err
	}
	return p, nil
}

func render(template string, maxWords int, text string) string {
	return strings.NewReplacer(
		"{{max_words}}", strconv.Itoa(maxWords),
		"{{text}}", text,
	).Replace(template)
}
