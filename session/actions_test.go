package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClipboard struct {
	text string
	err  error
}

func (c *memClipboard) WriteText(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in      string
		want    Field
		wantErr bool
	}{
		{in: "original", want: FieldOriginal},
		{in: "O", want: FieldOriginal},
		{in: " summary ", want: FieldSummary},
		{in: "s", want: FieldSummary},
		{in: "title", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseField(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_Copy(t *testing.T) {
	ctx := context.Background()
	sum := newGatedSummarizer()
	s := newTestStore(sum, nil)
	id, _ := s.Submit(ctx, "the original", "")

	cb := &memClipboard{}
	require.ErrorIs(t, s.Copy(id, FieldSummary, cb), ErrNotReady)
	require.NoError(t, s.Copy(id, FieldOriginal, cb))
	assert.Equal(t, "the original", cb.text)

	sum.release("the original", "the summary", nil)
	waitIdle(t, s)

	require.NoError(t, s.Copy(id, FieldSummary, cb))
	assert.Equal(t, "the summary", cb.text)

	assert.ErrorIs(t, s.Copy("missing", FieldOriginal, cb), ErrNotFound)

	failing := &memClipboard{err: errors.New("no display")}
	assert.Error(t, s.Copy(id, FieldOriginal, failing))
}

func TestStore_TextOnErrorRecord(t *testing.T) {
	ctx := context.Background()
	sum := newGatedSummarizer()
	s := newTestStore(sum, nil)
	id, _ := s.Submit(ctx, "text", "")
	sum.release("text", nil, errors.New("fail"))
	waitIdle(t, s)

	_, err := s.Text(id, FieldSummary)
	assert.ErrorIs(t, err, ErrSummarizeFailed)
	assert.NotErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, s.Copy(id, FieldSummary, &memClipboard{}), ErrSummarizeFailed)
	orig, err := s.Text(id, FieldOriginal)
	require.NoError(t, err)
	assert.Equal(t, "text", orig)
}
