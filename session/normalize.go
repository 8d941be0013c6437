package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Normalize converts a heterogeneous summarization result into display text.
//
// Lists are joined with single spaces, strings pass through, nil becomes the
// empty string and every other value is serialized.
func Normalize(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = Normalize(item)
		}
		return strings.Join(parts, " ")
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return string(v)
		}
		return Normalize(decoded)
	case fmt.Stringer:
		return v.String()
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(data)
}
