package session

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// Filter is a compiled CEL predicate over records.
//
// Available variables: id, title, status, original, summary (strings) and
// created (timestamp). Example: status == "done" && title.contains("report").
type Filter struct {
	expr string
	prg  cel.Program
}

// CompileFilter parses and type-checks expr. An empty expression matches
// every record and returns a nil Filter.
func CompileFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("original", cel.StringType),
		cel.Variable("summary", cel.StringType),
		cel.Variable("created", cel.TimestampType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}

	checked, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter expression: %s", expr)
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("filter must evaluate to a bool: %s", expr)
	}

	prg, err := env.Program(checked)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build filter program: %s", expr)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// Match evaluates the filter against one record. A nil Filter matches all.
func (f *Filter) Match(rec Record) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{
		"id":       rec.ID,
		"title":    rec.Title,
		"status":   string(rec.Status),
		"original": rec.OriginalText,
		"summary":  rec.SummaryText,
		"created":  rec.CreatedAt,
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to evaluate filter: %s", f.expr)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("filter must evaluate to a bool: %s", f.expr)
	}
	return matched, nil
}

// List returns the records matching f in collection order.
func (s *Store) List(f *Filter) ([]Record, error) {
	all := s.Records()
	if f == nil {
		return all, nil
	}
	out := make([]Record, 0, len(all))
	for _, rec := range all {
		ok, err := f.Match(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
