package store

import (
	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/fact"
)

// ExecuteRun builds the log entry of a completed Execute call.
func ExecuteRun(id, rulesetHash string, input fact.Value, out *engine.Outcome) Run {
	return Run{
		ID:          id,
		Kind:        KindExecute,
		RulesetHash: rulesetHash,
		Input:       input,
		Output:      out.Fact,
		Result:      out.Result,
		Steps:       out.Steps,
		Firings:     FiringsFromSequences(out.Sequence),
	}
}

// ChainRun builds the log entry of a completed Chain call. Output is the
// list of final facts; Result is the threaded accumulator, or the list of
// per-fact accumulators when the chain was not threaded.
func ChainRun(id, rulesetHash string, input fact.Value, out *engine.ChainResult) Run {
	result := out.Result
	if !out.Threaded {
		result = fact.NewList(out.Results...)
	}
	return Run{
		ID:          id,
		Kind:        KindChain,
		RulesetHash: rulesetHash,
		Input:       input,
		Output:      fact.NewList(out.Facts...),
		Result:      result,
		Steps:       out.Steps,
		Firings:     FiringsFromSequences(out.Sequences...),
	}
}

// FailedRun builds the log entry of a call that returned err.
func FailedRun(id string, kind RunKind, rulesetHash string, input fact.Value, err error) Run {
	return Run{
		ID:          id,
		Kind:        kind,
		RulesetHash: rulesetHash,
		Input:       input,
		Error:       err.Error(),
	}
}
