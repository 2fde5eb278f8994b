package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Precedence(t *testing.T) {
	e := NewEngine()
	e.AddRule(Rule{Role: "user", Action: wildcard, Resource: wildcard, Effect: Allow, Priority: 1})
	e.AddRule(Rule{Role: "user", Action: "write", Resource: "secrets", Effect: Deny, Priority: 100})

	assert.Equal(t, Allow, e.Evaluate("user", "read", "config"))
	assert.Equal(t, Deny, e.Evaluate("user", "write", "secrets"))
	assert.Equal(t, NoMatch, e.Evaluate("guest", "read", "x"))
}

func TestEvaluate_TieBreaksByInsertionOrder(t *testing.T) {
	e := NewEngine()
	e.AddRule(Rule{Role: "user", Action: "read", Resource: "x", Effect: Deny, Priority: 5})
	e.AddRule(Rule{Role: "user", Action: "read", Resource: "x", Effect: Allow, Priority: 5})

	require.Equal(t, Deny, e.Evaluate("user", "read", "x"))
}

func TestEvaluate_RebuildsAfterAddRule(t *testing.T) {
	e := NewEngine()
	e.AddRule(Rule{Role: "a", Action: "x", Resource: "y", Effect: Allow, Priority: 1})
	assert.Equal(t, Allow, e.Evaluate("a", "x", "y"))

	e.AddRule(Rule{Role: "a", Action: "x", Resource: "y", Effect: Deny, Priority: 10})
	assert.Equal(t, Deny, e.Evaluate("a", "x", "y"))
}

func TestAddRule_Idempotence(t *testing.T) {
	r := Rule{Role: "a", Action: "x", Resource: "y", Effect: Allow, Priority: 1}
	once := NewEngine()
	once.AddRule(r)

	twice := NewEngine()
	twice.AddRule(r)
	twice.AddRule(r)

	assert.Equal(t, once.Evaluate("a", "x", "y"), twice.Evaluate("a", "x", "y"))
}

func TestRuleCountAndRoles(t *testing.T) {
	e := NewEngine()
	e.AddRule(Rule{Role: "b", Action: "x", Resource: "y", Effect: Allow, Priority: 1})
	e.AddRule(Rule{Role: "a", Action: "x", Resource: "y", Effect: Allow, Priority: 1})
	e.AddRule(Rule{Role: wildcard, Action: "x", Resource: "y", Effect: Allow, Priority: 1})

	assert.Equal(t, 3, e.RuleCount())
	assert.Equal(t, []string{"a", "b"}, e.Roles())
}

func TestIsAllowed(t *testing.T) {
	e := NewEngine()
	e.AddRule(Rule{Role: "a", Action: "x", Resource: "y", Effect: Allow, Priority: 1})
	assert.True(t, e.IsAllowed("a", "x", "y"))
	assert.False(t, e.IsAllowed("a", "x", "z"))
}
