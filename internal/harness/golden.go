package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/fixpoint/internal/fact"
)

// Snapshot renders a result as canonical JSON for golden comparison:
// the scenario name, every trace event, the firing sequences, the step
// count and the final facts and accumulator.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		m := map[string]any{
			"fact":  ev.Fact,
			"seq":   ev.Seq,
			"rule":  ev.Rule,
			"fired": ev.Fired,
		}
		if ev.Modified {
			m["modified"] = true
		}
		if ev.Restart {
			m["restart"] = true
		}
		if ev.Stopped {
			m["stopped"] = true
		}
		trace[i] = m
	}

	sequences := make([]any, len(result.Sequences))
	for i, seq := range result.Sequences {
		names := make([]any, len(seq))
		for j, name := range seq {
			names[j] = name
		}
		sequences[i] = names
	}

	snap := map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
		"sequences":     sequences,
		"steps":         result.Steps,
	}
	if result.Err != nil {
		snap["error"] = result.Err.Error()
	} else {
		snap["output"] = fact.Value(orNull(result.Output))
		snap["result"] = fact.Value(orNull(result.Accumulated))
	}

	v, err := fact.FromGo(snap)
	if err != nil {
		return nil, err
	}
	return fact.MarshalCanonical(v)
}

func orNull(v fact.Value) fact.Value {
	if v == nil {
		return fact.Null{}
	}
	return v
}

// GoldenPath returns the golden file of a scenario file: golden/<name>.golden
// next to it.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// WriteGolden stores the snapshot of result at path.
func WriteGolden(path, scenarioName string, result *Result) error {
	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return fmt.Errorf("failed to snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// MatchGolden reports whether the snapshot of result equals the golden
// file at path.
func MatchGolden(path, scenarioName string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	got, err := Snapshot(scenarioName, result)
	if err != nil {
		return false, fmt.Errorf("failed to snapshot: %w", err)
	}
	return string(want) == string(got), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
