package staticdata

import (
	"encoding/json"
	"fmt"

	"github.com/archipelago-tracker/core/internal/domain"
)

// ruleJSON mirrors the wire shape of one rule AST node. Every kind
// only populates the fields it needs; the randomizer's own serialiser
// is permissive about omitting the rest, so every field here is
// optional.
type ruleJSON struct {
	Kind string `json:"kind"`

	Value any `json:"value,omitempty"`
	Name  string `json:"name,omitempty"`

	Object *ruleJSON `json:"object,omitempty"`
	Attr   string    `json:"attr,omitempty"`

	Container *ruleJSON `json:"container,omitempty"`
	Index     *ruleJSON `json:"index,omitempty"`

	Function *ruleJSON   `json:"function,omitempty"`
	Args     []*ruleJSON `json:"args,omitempty"`

	Item      string    `json:"item,omitempty"`
	ValueRule *ruleJSON `json:"value_rule,omitempty"`
	Count     *int      `json:"count,omitempty"`
	CountRule *ruleJSON `json:"count_rule,omitempty"`

	Flag string `json:"flag,omitempty"`

	Op    string    `json:"op,omitempty"`
	Left  *ruleJSON `json:"left,omitempty"`
	Right *ruleJSON `json:"right,omitempty"`

	Conditions []*ruleJSON `json:"conditions,omitempty"`
}

var ruleKinds = map[string]domain.RuleKind{
	"constant":      domain.RuleConstant,
	"name":          domain.RuleName,
	"attribute":     domain.RuleAttribute,
	"subscript":     domain.RuleSubscript,
	"function_call": domain.RuleFunctionCall,
	"item_check":    domain.RuleItemCheck,
	"count_check":   domain.RuleCountCheck,
	"group_check":   domain.RuleGroupCheck,
	"state_flag":    domain.RuleStateFlag,
	"helper":        domain.RuleHelper,
	"state_method":  domain.RuleStateMethod,
	"comparison":    domain.RuleComparison,
	"and":           domain.RuleAnd,
	"or":            domain.RuleOr,
}

// toDomain converts a parsed ruleJSON tree into a domain.Rule tree.
// Unknown kinds become domain.RuleUnknown rather than an error:
// evaluating an unknown kind fails to false, it does not reject the
// whole rules load.
func (r *ruleJSON) toDomain() *domain.Rule {
	if r == nil {
		return nil
	}

	kind, ok := ruleKinds[r.Kind]
	if !ok {
		kind = domain.RuleUnknown
	}

	out := &domain.Rule{
		Kind:       kind,
		Value:      r.Value,
		Name:       r.Name,
		Object:     r.Object.toDomain(),
		Attr:       r.Attr,
		Container:  r.Container.toDomain(),
		Index:      r.Index.toDomain(),
		Function:   r.Function.toDomain(),
		Item:       r.Item,
		ValueRule:  r.ValueRule.toDomain(),
		CountRule:  r.CountRule.toDomain(),
		Flag:       r.Flag,
		HelperName: r.Name,
		MethodName: r.Name,
		Op:         domain.CompareOp(r.Op),
		Left:       r.Left.toDomain(),
		Right:      r.Right.toDomain(),
	}
	if r.Count != nil {
		out.Count = *r.Count
		out.HasCount = true
	}
	for _, a := range r.Args {
		out.Args = append(out.Args, a.toDomain())
	}
	for _, c := range r.Conditions {
		out.Conditions = append(out.Conditions, c.toDomain())
	}
	return out
}

// ParseRule decodes one JSON rule document into a domain.Rule tree.
// Used directly by evaluateRuleRemote, which receives a single rule
// rather than a whole rules document.
func ParseRule(raw json.RawMessage) (*domain.Rule, error) {
	if len(raw) == 0 {
		return domain.Const(true), nil
	}
	var rj ruleJSON
	if err := json.Unmarshal(raw, &rj); err != nil {
		return nil, fmt.Errorf("parse rule: %w", err)
	}
	return rj.toDomain(), nil
}
