package engine

import (
	"github.com/roach88/fixpoint/internal/fact"
)

// Scope is the binding set a condition, action or hook runs against.
// A fresh Scope is built for every step, so assigning to its fields never
// leaks into later steps; writes through Fact and Result do.
type Scope struct {
	// Fact is the tracked fact. Writes through it are observed.
	Fact fact.Value

	// Result is the accumulator binding.
	Result *Result

	// Rule describes the rule being evaluated. Zero in Before/After hooks.
	Rule RuleInfo

	// Env holds the configured environment bindings, copied per step.
	Env map[string]any

	run *run
}

// Stop ends the evaluation after the current step. Remaining rules are not
// considered, even if the current action changed the fact.
func (s *Scope) Stop() { s.run.stop = true }

// Next is reserved and currently has no effect.
func (s *Scope) Next() {}

// Stopped reports whether Stop has been called during this Execute call.
func (s *Scope) Stopped() bool { return s.run.stop }

// Record returns the fact as a record, or nil if it is not one.
func (s *Scope) Record() fact.RecordValue {
	r, _ := s.Fact.(fact.RecordValue)
	return r
}

// List returns the fact as a list, or nil if it is not one.
func (s *Scope) List() fact.ListValue {
	l, _ := s.Fact.(fact.ListValue)
	return l
}

// Map returns the fact as a keyed container, or nil if it is not one.
func (s *Scope) Map() fact.MapValue {
	m, _ := s.Fact.(fact.MapValue)
	return m
}

// Set returns the fact as a unique-element container, or nil if it is not one.
func (s *Scope) Set() fact.SetValue {
	set, _ := s.Fact.(fact.SetValue)
	return set
}
