package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fixpoint/internal/fact"
	"github.com/roach88/fixpoint/internal/procedure"
	"github.com/roach88/fixpoint/internal/store"
)

// AssertionError is returned when an assertion fails.
// It carries the fired rules to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Fired    []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Fired) > 0 {
		fmt.Fprintf(&buf, "\nFired rules:\n")
		for i, rule := range e.Fired {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, rule)
		}
	}
	return buf.String()
}

func assertFired(result *Result, a Assertion) error {
	fired := result.fired()
	if slices.Contains(fired, a.Rule) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFired,
		Expected: fmt.Sprintf("rule %s fired", a.Rule),
		Actual:   "not found in firings",
		Fired:    fired,
	}
}

func assertNotFired(result *Result, a Assertion) error {
	fired := result.fired()
	if n := count(fired, a.Rule); n > 0 {
		return &AssertionError{
			Type:     AssertNotFired,
			Expected: fmt.Sprintf("rule %s never fired", a.Rule),
			Actual:   fmt.Sprintf("fired %d time(s)", n),
			Fired:    fired,
		}
	}
	return nil
}

// assertFiredOrder checks that the rules first fired in the given order.
// Other firings may come in between.
func assertFiredOrder(result *Result, a Assertion) error {
	fired := result.fired()
	positions := make(map[string]int)
	for i, rule := range fired {
		if _, ok := positions[rule]; !ok {
			positions[rule] = i + 1
		}
	}

	for _, rule := range a.Rules {
		if positions[rule] == 0 {
			return &AssertionError{
				Type:     AssertFiredOrder,
				Expected: fmt.Sprintf("all rules fired: %v", a.Rules),
				Actual:   fmt.Sprintf("missing rule: %s", rule),
				Fired:    fired,
			}
		}
	}
	for i := 1; i < len(a.Rules); i++ {
		prev, curr := a.Rules[i-1], a.Rules[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertFiredOrder,
				Expected: fmt.Sprintf("rules in order: %v", a.Rules),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Fired: fired,
			}
		}
	}
	return nil
}

// assertFiredCount checks the firing count recorded in the run log.
func assertFiredCount(ctx context.Context, st *store.Store, result *Result, a Assertion) error {
	counts, err := st.RuleCounts(ctx)
	if err != nil {
		return fmt.Errorf("fired_count: %w", err)
	}
	got := 0
	for _, c := range counts {
		if c.Rule == a.Rule {
			got = c.Count
		}
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertFiredCount,
			Expected: fmt.Sprintf("%d firing(s) of %s", a.Count, a.Rule),
			Actual:   fmt.Sprintf("%d firing(s)", got),
			Fired:    result.fired(),
		}
	}
	return nil
}

// assertFactValue checks the value at a path of the final fact. For a
// chain the last fact is used.
func assertFactValue(result *Result, a Assertion) error {
	want, err := decodeNode(&a.Value)
	if err != nil {
		return fmt.Errorf("fact_value: %w", err)
	}

	final := result.Output
	if l, ok := final.(*fact.List); ok && result.Chain {
		if l.Len() == 0 {
			final = nil
		} else {
			final = l.At(l.Len() - 1)
		}
	}

	got, ok := procedure.Lookup(final, a.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertFactValue,
			Expected: fmt.Sprintf("%s = %s", a.Path, render(want)),
			Actual:   "path not found",
		}
	}
	if !fact.Equal(want, got) {
		return &AssertionError{
			Type:     AssertFactValue,
			Expected: fmt.Sprintf("%s = %s", a.Path, render(want)),
			Actual:   fmt.Sprintf("%s = %s", a.Path, render(got)),
		}
	}
	return nil
}

func count(rules []string, name string) int {
	n := 0
	for _, r := range rules {
		if r == name {
			n++
		}
	}
	return n
}

// render formats v as canonical JSON for messages.
func render(v fact.Value) string {
	data, err := fact.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", fact.ToGo(v))
	}
	return string(data)
}

// AssertionContext provides the run log to assertions that query it.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertFired:
			err = assertFired(result, a)
		case AssertNotFired:
			err = assertNotFired(result, a)
		case AssertFiredOrder:
			err = assertFiredOrder(result, a)
		case AssertFiredCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: fired_count requires the run log", i)
			} else {
				err = assertFiredCount(actx.Ctx, actx.Store, result, a)
			}
		case AssertFactValue:
			err = assertFactValue(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

// checkExpect compares the outcome with the scenario's expect block.
func checkExpect(s *Scenario, result *Result) []string {
	exp := s.Expect
	var errs []string

	if exp.Error != "" {
		switch {
		case result.Err == nil:
			errs = append(errs, fmt.Sprintf("expected error containing %q, evaluation succeeded", exp.Error))
		case !strings.Contains(result.Err.Error(), exp.Error):
			errs = append(errs, fmt.Sprintf("expected error containing %q, got: %v", exp.Error, result.Err))
		}
		return errs
	}
	if result.Err != nil {
		return []string{fmt.Sprintf("evaluation failed: %v", result.Err)}
	}

	if exp.Result.Kind != 0 {
		errs = append(errs, compareNode("result", &exp.Result, result.Accumulated)...)
	}
	if exp.Fact.Kind != 0 {
		errs = append(errs, compareNode("fact", &exp.Fact, result.Output)...)
	}
	if exp.Sequence != nil && !slices.Equal(exp.Sequence, result.Sequences[0]) {
		errs = append(errs, fmt.Sprintf("sequence mismatch\n  Expected: %v\n  Actual: %v", exp.Sequence, result.Sequences[0]))
	}
	if exp.Sequences != nil && !slices.EqualFunc(exp.Sequences, result.Sequences, func(a, b []string) bool { return slices.Equal(a, b) }) {
		errs = append(errs, fmt.Sprintf("sequences mismatch\n  Expected: %v\n  Actual: %v", exp.Sequences, result.Sequences))
	}
	if exp.Steps != nil && *exp.Steps != result.Steps {
		errs = append(errs, fmt.Sprintf("steps mismatch: expected %d, got %d", *exp.Steps, result.Steps))
	}
	return errs
}

func compareNode(what string, n *yaml.Node, got fact.Value) []string {
	want, err := decodeNode(n)
	if err != nil {
		return []string{fmt.Sprintf("expect.%s: %v", what, err)}
	}
	if !fact.Equal(want, got) {
		return []string{fmt.Sprintf("%s mismatch\n  Expected: %s\n  Actual: %s", what, render(want), render(got))}
	}
	return nil
}
