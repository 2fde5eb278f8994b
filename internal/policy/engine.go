package policy

import "sort"

// Engine holds an insertion-ordered list of rules plus a lazily rebuilt
// sorted view. Evaluation rebuilds the sorted view before scanning whenever
// the rule set has changed since the last evaluation; the sort is stable on
// priority so insertion order breaks ties.
//
// Engine is not safe for concurrent mutation: external synchronization is
// the caller's responsibility when rules change mid-evaluation.
type Engine struct {
	rules  []Rule
	sorted []Rule
	dirty  bool
}

// NewEngine returns an empty policy engine.
func NewEngine() *Engine {
	return &Engine{}
}

// AddRule appends a rule and marks the sorted view dirty.
func (e *Engine) AddRule(r Rule) {
	e.rules = append(e.rules, r)
	e.dirty = true
}

// RuleCount returns the number of rules currently held.
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// Roles returns the distinct non-wildcard roles referenced by any rule,
// sorted for deterministic output.
func (e *Engine) Roles() []string {
	seen := make(map[string]struct{})
	for _, r := range e.rules {
		if r.Role != wildcard {
			seen[r.Role] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for role := range seen {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) rebuild() {
	if !e.dirty {
		return
	}
	e.sorted = make([]Rule, len(e.rules))
	copy(e.sorted, e.rules)
	sort.SliceStable(e.sorted, func(i, j int) bool {
		return e.sorted[i].Priority > e.sorted[j].Priority
	})
	e.dirty = false
}

// Evaluate rebuilds the sorted view if dirty, then scans rules in
// priority-descending, insertion-ascending order and returns the effect of
// the first match, or NoMatch if none match.
func (e *Engine) Evaluate(role, action, resource string) Effect {
	e.rebuild()
	for _, r := range e.sorted {
		if r.matches(role, action, resource) {
			return r.Effect
		}
	}
	return NoMatch
}

// IsAllowed is sugar for Evaluate(...) == Allow.
func (e *Engine) IsAllowed(role, action, resource string) bool {
	return e.Evaluate(role, action, resource) == Allow
}
