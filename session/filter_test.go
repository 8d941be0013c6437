package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFilter_Empty(t *testing.T) {
	f, err := CompileFilter("   ")
	require.NoError(t, err)
	assert.Nil(t, f)

	ok, err := f.Match(Record{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompileFilter_Invalid(t *testing.T) {
	tests := []string{
		`status ==`,
		`unknown_var == "x"`,
		`title`,
	}
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := CompileFilter(expr)
			assert.Error(t, err)
		})
	}
}

func TestFilter_Match(t *testing.T) {
	rec := Record{
		ID:           "abc",
		Title:        "report.pdf - 3/14/2025, 3:09:26 PM",
		Status:       StatusDone,
		OriginalText: "long original text",
		SummaryText:  "short",
		CreatedAt:    fixedNow,
	}

	tests := []struct {
		expr string
		want bool
	}{
		{expr: `status == "done"`, want: true},
		{expr: `status == "pending"`, want: false},
		{expr: `title.contains("report")`, want: true},
		{expr: `title.startsWith("notes")`, want: false},
		{expr: `size(original) > size(summary)`, want: true},
		{expr: `id == "abc" && summary != ""`, want: true},
		{expr: `created > timestamp("2025-01-01T00:00:00Z")`, want: true},
		{expr: `created < timestamp("2024-01-01T00:00:00Z")`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			require.NoError(t, err)
			got, err := f.Match(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(summarizerFunc(func(_ context.Context, text string) (any, error) {
		if text == "bad" {
			return nil, errors.New("fail")
		}
		return "ok", nil
	}), nil, WithClock(func() time.Time { return fixedNow }))

	s.Submit(ctx, "good", "a.txt")
	s.Submit(ctx, "bad", "b.txt")
	s.Submit(ctx, "good too", "")
	waitIdle(t, s)

	all, err := s.List(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	f, err := CompileFilter(`status == "error"`)
	require.NoError(t, err)
	failed, err := s.List(f)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad", failed[0].OriginalText)

	f, err = CompileFilter(`title.contains(".txt")`)
	require.NoError(t, err)
	named, err := s.List(f)
	require.NoError(t, err)
	require.Len(t, named, 2)
	assert.Equal(t, "bad", named[0].OriginalText)
	assert.Equal(t, "good", named[1].OriginalText)
}
