package rules

import "github.com/expr-lang/expr"

// bridgeCache holds the one fixed expr-lang template ("C[K]") the
// interpreter uses for generic dynamic indexing. It never sees the
// full rule AST — only "index this container by this key", which is
// as far as this interpreter leans on expr-lang. Everything else
// (function_call path routing, comparisons, boolean composites) is
// plain Go dispatch in interpreter.go.
var bridgeCache = newProgramCache(4)

// indexDynamic evaluates container[key] for an arbitrary Go value —
// map, slice, or otherwise — via a single cached expr-lang program.
// The second return is false for a nil container or any runtime
// failure (missing key, out-of-range index, non-indexable value),
// which callers treat as "undefined" rather than an error.
func indexDynamic(container, key any) (any, bool) {
	if container == nil {
		return nil, false
	}

	env := map[string]any{"C": container, "K": key}
	program, err := bridgeCache.compileAndCache("C[K]", env)
	if err != nil {
		return nil, false
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, false
	}
	return out, true
}
