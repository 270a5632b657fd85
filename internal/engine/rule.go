package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

// DefaultPriority is the priority of rules that do not set one.
const DefaultPriority = 100

// Condition decides whether a rule fires.
type Condition func(ctx context.Context, s *Scope) (bool, error)

// Action is the body of a rule that fired.
type Action func(ctx context.Context, s *Scope) error

// Hook runs around evaluation. Before and After hooks run once per Execute;
// BeforeEach and AfterEach hooks run around every step, whichever rule it is.
type Hook func(ctx context.Context, s *Scope) error

// Rule is a prioritized condition/action pair as supplied by the caller.
//
// A Rule is dropped from the table when Disabled is set or when When or
// Then is nil. Hooks are collected from every rule that is not Disabled,
// including rules dropped for lacking When or Then.
type Rule struct {
	// Name identifies the rule in sequences and errors.
	// Defaults to "rule-<n>", n being the rule's position among kept rules.
	Name string

	// Priority orders evaluation, lower first. nil means the engine default.
	Priority *int

	// Disabled excludes the rule and its hooks.
	Disabled bool

	When Condition
	Then Action

	Before     Hook
	BeforeEach Hook
	AfterEach  Hook
	After      Hook
}

// Priority returns a pointer to p for use in Rule literals.
func Priority(p int) *int {
	return &p
}

// RuleInfo is the normalized metadata of a rule in the table.
type RuleInfo struct {
	Name     string
	Priority int
	// Index is the rule's position in evaluation order.
	Index int
}

type tableRule struct {
	info RuleInfo
	when Condition
	then Action
}

type hookSet struct {
	before     []Hook
	beforeEach []Hook
	afterEach  []Hook
	after      []Hook
}

// buildTable filters, names and sorts rules. The input slice is not modified.
func buildTable(rules []Rule, defaultPriority int) ([]tableRule, hookSet) {
	var hooks hookSet
	table := make([]tableRule, 0, len(rules))

	for _, r := range rules {
		if r.Disabled {
			continue
		}
		if r.Before != nil {
			hooks.before = append(hooks.before, r.Before)
		}
		if r.BeforeEach != nil {
			hooks.beforeEach = append(hooks.beforeEach, r.BeforeEach)
		}
		if r.AfterEach != nil {
			hooks.afterEach = append(hooks.afterEach, r.AfterEach)
		}
		if r.After != nil {
			hooks.after = append(hooks.after, r.After)
		}
		if r.When == nil || r.Then == nil {
			continue
		}

		info := RuleInfo{Name: r.Name, Priority: defaultPriority}
		if info.Name == "" {
			info.Name = fmt.Sprintf("rule-%d", len(table))
		}
		if r.Priority != nil {
			info.Priority = *r.Priority
		}
		table = append(table, tableRule{info: info, when: r.When, then: r.Then})
	}

	slices.SortStableFunc(table, func(a, b tableRule) int {
		return cmp.Compare(a.info.Priority, b.info.Priority)
	})
	for i := range table {
		table[i].info.Index = i
	}
	return table, hooks
}
