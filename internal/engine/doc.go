// Package engine implements the forward-chaining evaluation loop.
//
// An Engine is built once from a list of rules and options. Execute runs
// the rules against one fact until a fixed point: no rule both matches and
// changes the fact. Chain runs a sequence of facts, optionally threading
// one result accumulator through all of them.
//
// ARCHITECTURE:
//
// Rule Table:
// Built at construction. Disabled rules and rules without a condition or an
// action are dropped silently; survivors are named, given a priority and
// stably sorted by ascending priority. The table never changes afterwards.
//
// Evaluation Loop:
//  1. The fact is cloned (package snapshot) and tracked (package track)
//  2. Rules are evaluated in table order against a fresh Scope per step
//  3. A rule whose condition holds is recorded in the sequence and its
//     action runs
//  4. Stop() ends the loop; a modification restarts it at the first rule
//     unless modifications are ignored; otherwise evaluation moves on
//  5. The fact and the result are untracked into plain data
//
// Conditions and actions receive a context.Context and may block. Steps
// never overlap: each one completes before the next begins, and no
// goroutines are started.
//
// CRITICAL PATTERNS:
//
// Termination:
// The loop terminates only when rule actions stop producing net-new
// changes. An action that flips a value back and forth restarts forever.
// WithMaxSteps bounds the number of steps for callers that need a guard.
//
// Isolation:
// The caller's fact and seed are never mutated. The tracked fact and the
// accumulator belong to one Execute call and escape only as untracked copies.
package engine
