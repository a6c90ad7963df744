package rules

import (
	"fmt"
	"strings"

	"github.com/archipelago-tracker/core/internal/domain"
)

// callable wraps a builtin or helper so attribute evaluation can return
// it without invoking it, matching the "if the result is a callable,
// return the callable without invoking" rule for bare attribute nodes.
type callable struct {
	name   string
	invoke func(args ...any) (any, error)
}

// builtins maps the sentinel `builtins` object's attributes to Python
// built-in stand-ins. Only the handful actually referenced by rule ASTs
// are implemented; anything else is undefined.
var builtinNames = map[string]struct{}{
	"len": {}, "zip": {}, "range": {}, "all": {}, "any": {}, "bool": {},
}

func builtin(name string) (*callable, bool) {
	if _, ok := builtinNames[name]; !ok {
		return nil, false
	}
	return &callable{name: name, invoke: func(args ...any) (any, error) {
		return callBuiltin(name, args...)
	}}, true
}

func callBuiltin(name string, args ...any) (any, error) {
	switch name {
	case "len":
		if len(args) != 1 {
			return 0, fmt.Errorf("len: expected 1 arg")
		}
		return lengthOf(args[0]), nil
	case "bool":
		if len(args) != 1 {
			return false, nil
		}
		return truthy(args[0]), nil
	case "all":
		if len(args) != 1 {
			return true, nil
		}
		for _, v := range iterableOf(args[0]) {
			if !truthy(v) {
				return false, nil
			}
		}
		return true, nil
	case "any":
		if len(args) != 1 {
			return false, nil
		}
		for _, v := range iterableOf(args[0]) {
			if truthy(v) {
				return true, nil
			}
		}
		return false, nil
	case "zip":
		return zipAll(args...), nil
	case "range":
		return rangeOf(args...), nil
	default:
		return nil, fmt.Errorf("unsupported builtin %q", name)
	}
}

func lengthOf(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	case string:
		return len(t)
	default:
		return 0
	}
}

func iterableOf(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			out = append(out, e)
		}
		return out
	default:
		return nil
	}
}

func zipAll(lists ...any) []any {
	cols := make([][]any, len(lists))
	shortest := -1
	for i, l := range lists {
		cols[i] = iterableOf(l)
		if shortest == -1 || len(cols[i]) < shortest {
			shortest = len(cols[i])
		}
	}
	if shortest <= 0 {
		return nil
	}
	out := make([]any, 0, shortest)
	for i := 0; i < shortest; i++ {
		row := make([]any, len(cols))
		for c := range cols {
			row[c] = cols[c][i]
		}
		out = append(out, row)
	}
	return out
}

func rangeOf(args ...any) []any {
	start, stop, step := 0, 0, 1
	switch len(args) {
	case 1:
		stop = asIntOr(args[0], 0)
	case 2:
		start = asIntOr(args[0], 0)
		stop = asIntOr(args[1], 0)
	case 3:
		start = asIntOr(args[0], 0)
		stop = asIntOr(args[1], 0)
		step = asIntOr(args[2], 1)
	default:
		return nil
	}
	if step == 0 {
		return nil
	}
	out := []any{}
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out
}

func asIntOr(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// buildPath renders a function_call's function node as the dotted path
// a randomizer's rules JSON describes it with, collapsing any subscript
// segment to "...[...]" (its literal index is never part of the
// routing decision, only whether a subscript occurred at all).
func buildPath(r *domain.Rule) string {
	if r == nil {
		return ""
	}
	switch r.Kind {
	case domain.RuleName:
		return r.Name
	case domain.RuleAttribute:
		base := buildPath(r.Object)
		if base == "" {
			return r.Attr
		}
		return base + "." + r.Attr
	case domain.RuleSubscript:
		base := buildPath(r.Container)
		return base + "[...]"
	default:
		return ""
	}
}

func firstSegment(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}

func lastSegment(path string) string {
	clean := strings.TrimSuffix(path, "[...]")
	if i := strings.LastIndex(clean, "."); i >= 0 {
		return clean[i+1:]
	}
	return clean
}
