// Package rules implements the access-rule AST interpreter: a single
// evaluate(rule, ctx) dispatch over the closed node-kind set a
// randomizer's rules JSON carries, with a narrow expr-lang-backed
// fallback for the Python-shaped attribute/subscript indexing nodes.
package rules

import (
	"log/slog"
	"strings"

	"github.com/archipelago-tracker/core/internal/domain"
	"github.com/archipelago-tracker/core/internal/helpers"
	"github.com/archipelago-tracker/core/internal/inventory"
	"github.com/archipelago-tracker/core/internal/staticdata"
	"github.com/archipelago-tracker/core/internal/state"
)

// maxEvalDepth caps nested helper/state_method/function_call dispatch,
// mirroring the helper registry's own recursion guard so a cyclic rule
// document cannot hang evaluation.
const maxEvalDepth = 64

// Context is everything one evaluate call needs. CanReach is supplied
// by whichever caller owns the current reachability picture — the
// reachability engine's BFS for region-internal rule checks, or the
// live engine's CanReach (recomputing first if stale) for
// statemanager's ad-hoc queries — so this
// package never imports the reachability engine itself.
type Context struct {
	Inventory *inventory.Inventory
	State     *state.State
	Static    *staticdata.StaticData
	Helpers   *helpers.Registry
	Player    int
	CanReach  func(name, kind string, player int) bool
	Self      any

	Trace *Trace
}

// Trace optionally records one entry per evaluated node, for
// diagnostics (evaluateRuleRemote / UI rule debugging).
type Trace struct {
	Entries []TraceEntry
}

// TraceEntry is one recorded evaluation step.
type TraceEntry struct {
	Kind   string
	Result any
}

func (t *Trace) record(kind string, result any) {
	if t == nil {
		return
	}
	t.Entries = append(t.Entries, TraceEntry{Kind: kind, Result: result})
}

// Evaluate runs the interpreter on a rule tree. A nil rule evaluates to
// true — an absent access_rule gates nothing.
func Evaluate(rule *domain.Rule, ctx *Context) (any, error) {
	if rule == nil {
		return true, nil
	}
	return evaluate(rule, ctx, 0)
}

// EvaluateBool runs Evaluate and coerces the result to a boolean with
// Python-style truthiness, for callers in a strictly boolean position
// (access rules, region rules).
func EvaluateBool(rule *domain.Rule, ctx *Context) bool {
	v, err := Evaluate(rule, ctx)
	if err != nil {
		return false
	}
	return truthy(v)
}

func evaluate(rule *domain.Rule, ctx *Context, depth int) (any, error) {
	if rule == nil {
		return true, nil
	}
	if depth > maxEvalDepth {
		slog.Warn("rule evaluation depth exceeded, failing to false", "kind", rule.Kind)
		return false, nil
	}

	var result any
	var err error

	switch rule.Kind {
	case domain.RuleConstant:
		result = rule.Value

	case domain.RuleAnd:
		result, err = evalAnd(rule, ctx, depth)

	case domain.RuleOr:
		result, err = evalOr(rule, ctx, depth)

	case domain.RuleItemCheck:
		result = evalItemCheck(rule, ctx, depth)

	case domain.RuleCountCheck:
		result = evalCountCheck(rule, ctx, depth)

	case domain.RuleGroupCheck:
		result = evalGroupCheck(rule, ctx, depth)

	case domain.RuleStateFlag:
		result = ctx.State.HasFlag(rule.Flag)

	case domain.RuleHelper:
		result = evalDispatch(rule.HelperName, rule.Args, ctx, depth)

	case domain.RuleStateMethod:
		result = evalDispatch(rule.MethodName, rule.Args, ctx, depth)

	case domain.RuleAttribute:
		result = evalAttribute(rule, ctx, depth)

	case domain.RuleSubscript:
		result = evalSubscript(rule, ctx, depth)

	case domain.RuleFunctionCall:
		result = evalFunctionCall(rule, ctx, depth)

	case domain.RuleComparison:
		result, err = evalComparison(rule, ctx, depth)

	case domain.RuleName:
		result = evalName(rule, ctx)

	default:
		slog.Warn("unknown rule kind, failing to false", "kind", int(rule.Kind))
		result = false
	}

	ctx.Trace.record(kindName(rule.Kind), result)
	return result, err
}

func evalAnd(rule *domain.Rule, ctx *Context, depth int) (any, error) {
	for _, c := range rule.Conditions {
		v, err := evaluate(c, ctx, depth+1)
		if err != nil {
			return false, err
		}
		if !truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func evalOr(rule *domain.Rule, ctx *Context, depth int) (any, error) {
	for _, c := range rule.Conditions {
		v, err := evaluate(c, ctx, depth+1)
		if err != nil {
			return false, err
		}
		if truthy(v) {
			return true, nil
		}
	}
	return false, nil
}

func evalItemCheck(rule *domain.Rule, ctx *Context, depth int) bool {
	name, ok := resolveName(rule.Item, rule.ValueRule, ctx, depth)
	if !ok {
		return false
	}
	return view(ctx).Has(name)
}

func evalCountCheck(rule *domain.Rule, ctx *Context, depth int) bool {
	name, ok := resolveName(rule.Item, rule.ValueRule, ctx, depth)
	if !ok {
		return false
	}
	count := resolveCount(rule, ctx, depth)
	return ctx.Inventory.Count(name) >= count
}

func evalGroupCheck(rule *domain.Rule, ctx *Context, depth int) bool {
	group, ok := resolveName(rule.Item, rule.ValueRule, ctx, depth)
	if !ok {
		return false
	}
	count := resolveCount(rule, ctx, depth)
	return ctx.Inventory.CountGroup(group) >= count
}

// resolveName resolves an item/group name that may be given either as
// a literal string or as a nested rule that must evaluate to one.
func resolveName(literal string, nested *domain.Rule, ctx *Context, depth int) (string, bool) {
	if nested != nil {
		v, err := evaluate(nested, ctx, depth+1)
		if err != nil {
			return "", false
		}
		s, ok := v.(string)
		return s, ok && s != ""
	}
	if literal == "" {
		return "", false
	}
	return literal, true
}

// resolveCount resolves an optional count that may be a literal, a
// nested rule, or absent (default 1).
func resolveCount(rule *domain.Rule, ctx *Context, depth int) int {
	if rule.CountRule != nil {
		v, err := evaluate(rule.CountRule, ctx, depth+1)
		if err == nil {
			if n, ok := toInt(v); ok {
				return n
			}
		}
		return 1
	}
	if rule.HasCount {
		return rule.Count
	}
	return 1
}

// evalDispatch is the shared helper/state_method path: evaluate args,
// look the name up in the registry, and fail to false (with a log
// entry) on any miss — identical policy for both node kinds.
func evalDispatch(name string, argRules []*domain.Rule, ctx *Context, depth int) any {
	args := evalArgs(argRules, ctx, depth)
	v, found, err := ctx.Helpers.Call(depth+1, name, view(ctx), ctx.Static, args...)
	if err != nil {
		slog.Warn("helper call failed, failing to false", "helper", name, "err", err)
		return false
	}
	if !found {
		slog.Warn("unknown helper, failing to false", "helper", name)
		return false
	}
	return v
}

func evalArgs(argRules []*domain.Rule, ctx *Context, depth int) []any {
	args := make([]any, 0, len(argRules))
	for _, a := range argRules {
		v, err := evaluate(a, ctx, depth+1)
		if err != nil {
			v = false
		}
		args = append(args, v)
	}
	return args
}

func evalAttribute(rule *domain.Rule, ctx *Context, depth int) any {
	if rule.Object != nil && rule.Object.Kind == domain.RuleName && rule.Object.Name == "builtins" {
		if c, ok := builtin(rule.Attr); ok {
			return c
		}
		return false
	}

	obj, err := evaluate(rule.Object, ctx, depth+1)
	if err != nil {
		return false
	}
	if v, ok := indexDynamic(obj, rule.Attr); ok {
		return v
	}
	if v, found, err := ctx.Helpers.Call(depth+1, "getattr", view(ctx), ctx.Static, obj, rule.Attr); found && err == nil {
		return v
	}
	return false
}

func evalSubscript(rule *domain.Rule, ctx *Context, depth int) any {
	container, err := evaluate(rule.Container, ctx, depth+1)
	if err != nil || container == nil {
		return false
	}
	index, err := evaluate(rule.Index, ctx, depth+1)
	if err != nil {
		return false
	}
	if v, ok := indexDynamic(container, index); ok {
		return v
	}
	return false
}

func evalFunctionCall(rule *domain.Rule, ctx *Context, depth int) any {
	path := buildPath(rule.Function)
	args := evalArgs(rule.Args, ctx, depth)

	if strings.HasPrefix(path, "state.multiworld.") {
		kind := multiworldKind(lastSegment(path))
		if kind != "" {
			name, _ := argString(args, 0)
			player := ctx.Player
			if p, ok := argInt(args, 1); ok {
				player = p
			}
			return ctx.CanReach(name, kind, player)
		}
	}

	if strings.HasSuffix(path, ".can_defeat") || strings.HasSuffix(path, ".defeat_rule") {
		return true
	}

	if strings.Contains(path, ".can_reach") {
		return ctx.CanReach(firstSegment(path), "Region", ctx.Player)
	}

	name := lastSegment(path)
	if name == "" {
		return false
	}
	v, found, err := ctx.Helpers.Call(depth+1, name, view(ctx), ctx.Static, args...)
	if err != nil || !found {
		if !found {
			slog.Warn("unknown function_call helper, failing to false", "name", name, "path", path)
		}
		return false
	}
	return v
}

func multiworldKind(lastSeg string) string {
	switch lastSeg {
	case "get_region":
		return "Region"
	case "get_location":
		return "Location"
	case "get_entrance":
		return "Entrance"
	default:
		return ""
	}
}

func argString(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func argInt(args []any, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	return toInt(args[i])
}

func evalComparison(rule *domain.Rule, ctx *Context, depth int) (any, error) {
	left, err := evaluate(rule.Left, ctx, depth+1)
	if err != nil {
		return false, err
	}
	right, err := evaluate(rule.Right, ctx, depth+1)
	if err != nil {
		return false, err
	}
	return compare(rule.Op, left, right), nil
}

func compare(op domain.CompareOp, left, right any) bool {
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if lok && rok {
		switch op {
		case domain.CompareGtE:
			return lf >= rf
		case domain.CompareGt:
			return lf > rf
		case domain.CompareLtE:
			return lf <= rf
		case domain.CompareLt:
			return lf < rf
		case domain.CompareEq:
			return lf == rf
		}
	}
	if op == domain.CompareEq {
		return left == right
	}
	return false
}

func evalName(rule *domain.Rule, ctx *Context) any {
	switch rule.Name {
	case "state":
		return ctx.State
	case "player":
		return ctx.Player
	case "self":
		return ctx.Self
	}
	if v, ok := ctx.State.Setting(rule.Name); ok {
		return v
	}
	return view(ctx).Has(rule.Name)
}

func kindName(k domain.RuleKind) string {
	switch k {
	case domain.RuleConstant:
		return "constant"
	case domain.RuleName:
		return "name"
	case domain.RuleAttribute:
		return "attribute"
	case domain.RuleSubscript:
		return "subscript"
	case domain.RuleFunctionCall:
		return "function_call"
	case domain.RuleItemCheck:
		return "item_check"
	case domain.RuleCountCheck:
		return "count_check"
	case domain.RuleGroupCheck:
		return "group_check"
	case domain.RuleStateFlag:
		return "state_flag"
	case domain.RuleHelper:
		return "helper"
	case domain.RuleStateMethod:
		return "state_method"
	case domain.RuleComparison:
		return "comparison"
	case domain.RuleAnd:
		return "and"
	case domain.RuleOr:
		return "or"
	default:
		return "unknown"
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
