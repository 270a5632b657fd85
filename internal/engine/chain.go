package engine

import (
	"context"

	"github.com/roach88/fixpoint/internal/fact"
)

// ChainResult aggregates the outcomes of a Chain call, one entry per fact
// in input order.
type ChainResult struct {
	Facts     []fact.Value
	Sequences [][]string

	// Threaded is true when a seed was supplied. Result then holds the one
	// accumulator shared by all facts and Results is nil; otherwise Results
	// holds one accumulator per fact and Result is nil.
	Threaded bool
	Result   fact.Value
	Results  []fact.Value

	// Steps is the total number of steps over all facts.
	Steps int
}

// Chain evaluates facts one after another.
//
// A list fact (or a tracked list) is a sequence of facts; anything else is
// evaluated as a single fact through Execute. When seed is non-nil it seeds
// the first fact's accumulator and each fact's final accumulator seeds the
// next. When seed is nil every fact starts from a fresh accumulator.
//
// Facts never overlap: each Execute returns before the next begins. The
// first failure aborts the chain and is returned as *ChainError.
func (e *Engine) Chain(ctx context.Context, facts fact.Value, seed fact.Value) (*ChainResult, error) {
	items := []fact.Value{facts}
	if l, ok := fact.Resolve(facts).(*fact.List); ok {
		items = l.Values()
	}

	out := &ChainResult{
		Facts:     make([]fact.Value, 0, len(items)),
		Sequences: make([][]string, 0, len(items)),
		Threaded:  seed != nil,
	}
	acc := seed
	for i, item := range items {
		var itemSeed fact.Value
		if out.Threaded {
			itemSeed = acc
		}
		o, err := e.Execute(ctx, item, itemSeed)
		if err != nil {
			return nil, &ChainError{Index: i, Err: err}
		}
		out.Facts = append(out.Facts, o.Fact)
		out.Sequences = append(out.Sequences, o.Sequence)
		out.Steps += o.Steps
		if out.Threaded {
			acc = o.Result
		} else {
			out.Results = append(out.Results, o.Result)
		}
	}
	if out.Threaded {
		out.Result = acc
	}

	e.logger.Debug("chain complete", "facts", len(items), "threaded", out.Threaded)
	return out, nil
}
