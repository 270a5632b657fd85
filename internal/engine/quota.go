package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts evaluation steps within one Execute call and fails
// once a limit is passed. The engine has no quota by default; non-terminating
// rule sets are the caller's concern unless WithMaxSteps is set.
//
// A step is one rule evaluation, whether or not the rule fired. A restart
// does not reset the count, which is what makes the quota catch oscillating
// rule sets.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates an enforcer allowing maxSteps steps.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step for rule and returns *StepsExceededError if the
// limit is now passed.
func (q *QuotaEnforcer) Check(rule string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Rule:  rule,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the number of steps counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when an Execute call runs out of steps.
type StepsExceededError struct {
	Rule  string // Rule that would have been evaluated next
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("exceeded max steps at rule %q: %d steps > %d limit", e.Rule, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
