package session

import (
	"fmt"
	"strings"
)

// Field selects which text of a record an action works on.
type Field string

const (
	FieldOriginal Field = "original"
	FieldSummary  Field = "summary"
)

// ParseField accepts "original" or "summary" and their first letters.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "original", "o", "orig":
		return FieldOriginal, nil
	case "summary", "s", "sum":
		return FieldSummary, nil
	}
	return "", fmt.Errorf("unknown field %q (want original or summary)", s)
}

// SummaryOf returns the summary of rec. It fails with ErrSummarizeFailed
// when the last request failed and with ErrNotReady while one is in flight.
func SummaryOf(rec Record) (string, error) {
	switch rec.Status {
	case StatusDone:
		return rec.SummaryText, nil
	case StatusError:
		return "", ErrSummarizeFailed
	}
	return "", ErrNotReady
}

// Text returns the selected text of a record.
func (s *Store) Text(id string, field Field) (string, error) {
	rec, ok := s.Get(id)
	if !ok {
		return "", ErrNotFound
	}
	if field == FieldOriginal {
		return rec.OriginalText, nil
	}
	return SummaryOf(rec)
}

// Copy places the selected text of a record on the clipboard.
func (s *Store) Copy(id string, field Field, cb Clipboard) error {
	text, err := s.Text(id, field)
	if err != nil {
		return err
	}
	if err := cb.WriteText(text); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	return nil
}
