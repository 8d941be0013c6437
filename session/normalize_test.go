package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type named struct{ s string }

func (n named) String() string { return "named:" + n.s }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   string
	}{
		{name: "nil", result: nil, want: ""},
		{name: "plain string", result: "A fox runs.", want: "A fox runs."},
		{name: "string slice", result: []string{"a", "b"}, want: "a b"},
		{name: "any slice", result: []any{"x", "y", "z"}, want: "x y z"},
		{name: "empty list", result: []any{}, want: ""},
		{name: "nested list", result: []any{"a", []any{"b", "c"}}, want: "a b c"},
		{name: "raw json list", result: json.RawMessage(`["one","two"]`), want: "one two"},
		{name: "raw json string", result: json.RawMessage(`"only"`), want: "only"},
		{name: "stringer", result: named{s: "v"}, want: "named:v"},
		{name: "number", result: 42, want: "42"},
		{name: "object", result: map[string]any{"k": "v"}, want: `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.result))
		})
	}
}
