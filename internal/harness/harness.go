package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/fact"
	"github.com/roach88/fixpoint/internal/procedure"
	"github.com/roach88/fixpoint/internal/ruleset"
	"github.com/roach88/fixpoint/internal/store"
	"github.com/roach88/fixpoint/internal/testutil"
)

// Harness is the scenario execution context.
type Harness struct {
	store  *store.Store
	ids    *testutil.SequenceGenerator
	logger *slog.Logger
}

// Run executes a scenario against the real engine and returns the result.
//
// Each scenario runs in a fresh in-memory run log with sequential run IDs.
// Failures to load, compile or decode return an error; an evaluation error
// is part of the result and fails the scenario unless expect.error names it.
//
// Execution flow:
//  1. Load the rule set and build the engine with the scenario's config
//  2. Decode facts and seed
//  3. Execute (or Chain) and log the run
//  4. Check expectations and assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		ids:    testutil.NewSequenceGenerator("run"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	rs, errs := ruleset.Load(scenario.Rules, ruleset.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load rules: %w", errs[0])
	}

	result := NewResult()
	eng, err := procedure.Build(rs, scenario.Config,
		[]engine.EngineOption{engine.WithTrace(result.recordStep)},
		procedure.WithLogger(h.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	facts, err := decodeNode(&scenario.Facts)
	if err != nil {
		return nil, fmt.Errorf("facts: %w", err)
	}
	seed, err := decodeNode(&scenario.Seed)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	run, err := h.execute(ctx, eng, rs.Hash, scenario.Chain, facts, seed, result)
	if err != nil {
		return nil, err
	}
	if _, err := h.store.WriteRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to log run: %w", err)
	}

	h.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"run", run.ID,
		"steps", result.Steps,
		"failed", result.Err != nil,
	)

	for _, msg := range checkExpect(scenario, result) {
		result.AddError(msg)
	}
	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// execute evaluates facts and fills result. The returned run is the log
// entry for the evaluation, failed or not.
func (h *Harness) execute(ctx context.Context, eng *engine.Engine, hash string, chain bool, facts, seed fact.Value, result *Result) (store.Run, error) {
	id := h.ids.Generate()
	result.Chain = chain

	if chain {
		out, err := eng.Chain(ctx, facts, seed)
		if err != nil {
			result.Err = err
			return store.FailedRun(id, store.KindChain, hash, facts, err), nil
		}
		run := store.ChainRun(id, hash, facts, out)
		result.Sequences = out.Sequences
		result.Output = run.Output
		result.Accumulated = run.Result
		result.Steps = out.Steps
		return run, nil
	}

	out, err := eng.Execute(ctx, facts, seed)
	if err != nil {
		result.Err = err
		return store.FailedRun(id, store.KindExecute, hash, facts, err), nil
	}
	result.Sequences = [][]string{out.Sequence}
	result.Output = out.Fact
	result.Accumulated = out.Result
	result.Steps = out.Steps
	return store.ExecuteRun(id, hash, facts, out), nil
}

// decodeNode converts a scenario node to a fact value. An absent node is
// undefined.
func decodeNode(n *yaml.Node) (fact.Value, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	return fact.FromYAMLNode(n)
}
