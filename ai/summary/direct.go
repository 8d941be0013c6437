package summary

import "context"

// Direct adapts a Summarizer to the session store, summarizing in-process
// instead of through the HTTP backend.
type Direct struct {
	Summarizer Summarizer
	MaxLen     int
}

// Summarize implements session.Summarizer.
func (d Direct) Summarize(ctx context.Context, text string) (any, error) {
	resp, err := d.Summarizer.Summarize(ctx, &SummarizeRequest{Content: text, MaxLen: d.MaxLen})
	if err != nil {
		return nil, err
	}
	return resp.Summary, nil
}
