package staticdata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archipelago-tracker/core/internal/domain"
)

func TestParseRuleEmptyReturnsConstTrue(t *testing.T) {
	rule, err := ParseRule(nil)
	require.NoError(t, err)
	require.Equal(t, domain.RuleConstant, rule.Kind)
	require.Equal(t, true, rule.Value)
}

func TestParseRuleItemCheck(t *testing.T) {
	rule, err := ParseRule([]byte(`{"kind": "item_check", "item": "Sword"}`))
	require.NoError(t, err)
	require.Equal(t, domain.RuleItemCheck, rule.Kind)
	require.Equal(t, "Sword", rule.Item)
}

func TestParseRuleCountCheckWithExplicitCount(t *testing.T) {
	rule, err := ParseRule([]byte(`{"kind": "count_check", "item": "Sword", "count": 3}`))
	require.NoError(t, err)
	require.True(t, rule.HasCount)
	require.Equal(t, 3, rule.Count)
}

func TestParseRuleCountCheckWithoutCountLeavesHasCountFalse(t *testing.T) {
	rule, err := ParseRule([]byte(`{"kind": "count_check", "item": "Sword"}`))
	require.NoError(t, err)
	require.False(t, rule.HasCount, "HasCount must be false when count is omitted from the wire rule")
}

func TestParseRuleAndNestsConditions(t *testing.T) {
	rule, err := ParseRule([]byte(`{
		"kind": "and",
		"conditions": [
			{"kind": "item_check", "item": "Sword"},
			{"kind": "item_check", "item": "Shield"}
		]
	}`))
	require.NoError(t, err)
	require.Equal(t, domain.RuleAnd, rule.Kind)
	require.Len(t, rule.Conditions, 2)
	require.Equal(t, "Sword", rule.Conditions[0].Item)
	require.Equal(t, "Shield", rule.Conditions[1].Item)
}

func TestParseRuleComparisonNestsLeftAndRight(t *testing.T) {
	rule, err := ParseRule([]byte(`{
		"kind": "comparison",
		"op": "GtE",
		"left": {"kind": "constant", "value": 3},
		"right": {"kind": "constant", "value": 2}
	}`))
	require.NoError(t, err)
	require.Equal(t, domain.CompareGtE, rule.Op)
	require.NotNil(t, rule.Left)
	require.NotNil(t, rule.Right)
}

func TestParseRuleUnknownKindBecomesRuleUnknown(t *testing.T) {
	rule, err := ParseRule([]byte(`{"kind": "something_made_up"}`))
	require.NoError(t, err, "ParseRule must not error on an unknown kind")
	require.Equal(t, domain.RuleUnknown, rule.Kind)
}

func TestParseRuleFunctionCallCarriesArgs(t *testing.T) {
	rule, err := ParseRule([]byte(`{
		"kind": "function_call",
		"function": {"kind": "name", "name": "can_reach"},
		"args": [{"kind": "constant", "value": "Cave"}]
	}`))
	require.NoError(t, err)
	require.NotNil(t, rule.Function)
	require.Equal(t, "can_reach", rule.Function.Name)
	require.Len(t, rule.Args, 1)
}

func TestParseRuleRejectsMalformedJSON(t *testing.T) {
	_, err := ParseRule([]byte(`not json`))
	require.Error(t, err, "ParseRule must reject malformed JSON")
}
