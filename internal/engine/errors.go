package engine

import (
	"errors"
	"fmt"
)

// Phase names the part of a step that was running when an error occurred.
type Phase string

const (
	PhaseCondition  Phase = "condition"
	PhaseAction     Phase = "action"
	PhaseBefore     Phase = "before"
	PhaseBeforeEach Phase = "beforeEach"
	PhaseAfterEach  Phase = "afterEach"
	PhaseAfter      Phase = "after"
)

// EvaluationError reports a condition, action or hook that failed.
// The remaining steps of the Execute call are abandoned.
//
// Rule is empty for Before and After hooks, which do not belong to a step.
type EvaluationError struct {
	// Rule is the name of the rule whose step failed.
	Rule string

	// Phase is the part of the step that failed.
	Phase Phase

	// Err is the underlying error. A panic is reported as *PanicError.
	Err error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("%s hook: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("rule %q %s: %v", e.Rule, e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *EvaluationError) Unwrap() error { return e.Err }

// PanicError carries a value recovered from a panicking procedure.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ChainError reports which fact of a chain failed.
type ChainError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	return fmt.Sprintf("chain fact %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *ChainError) Unwrap() error { return e.Err }

// IsEvaluationError returns true if the error is, or wraps, an EvaluationError.
func IsEvaluationError(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}

// FailedRule returns the rule and phase of a wrapped EvaluationError.
// ok is false when err does not wrap one.
func FailedRule(err error) (rule string, phase Phase, ok bool) {
	var ee *EvaluationError
	if !errors.As(err, &ee) {
		return "", "", false
	}
	return ee.Rule, ee.Phase, true
}

// IsPanic returns true if the error wraps a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
