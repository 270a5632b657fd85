package harness

import (
	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/fact"
)

// TraceEvent is one evaluated rule.
type TraceEvent struct {
	// Fact is the position of the fact within a chain, 0 for a single fact.
	Fact     int    `json:"fact"`
	Seq      int    `json:"seq"`
	Rule     string `json:"rule"`
	Fired    bool   `json:"fired"`
	Modified bool   `json:"modified,omitempty"`
	Restart  bool   `json:"restart,omitempty"`
	Stopped  bool   `json:"stopped,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every step in evaluation order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// Chain is true when the facts were evaluated as a chain.
	Chain bool `json:"chain"`

	// Sequences holds the fired rule names, one list per fact.
	Sequences [][]string `json:"sequences"`

	// Output is the final fact, or the list of final facts of a chain.
	Output fact.Value `json:"-"`

	// Accumulated is the final accumulator; for an unthreaded chain the
	// list of per-fact accumulators.
	Accumulated fact.Value `json:"-"`

	// Steps is the total step count.
	Steps int `json:"steps"`

	// Err is the evaluation error, nil when evaluation succeeded.
	Err error `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Sequences: [][]string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// recordStep appends an engine step. A step numbered 1 after earlier steps
// starts the next fact of a chain.
func (r *Result) recordStep(s engine.Step) {
	idx := 0
	if n := len(r.Trace); n > 0 {
		idx = r.Trace[n-1].Fact
		if s.Seq == 1 {
			idx++
		}
	}
	r.Trace = append(r.Trace, TraceEvent{
		Fact:     idx,
		Seq:      s.Seq,
		Rule:     s.Rule,
		Fired:    s.Fired,
		Modified: s.Modified,
		Restart:  s.Restart,
		Stopped:  s.Stopped,
	})
}

// fired returns the names of rules that fired, in order, across all facts.
func (r *Result) fired() []string {
	var out []string
	for _, seq := range r.Sequences {
		out = append(out, seq...)
	}
	return out
}
