package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/fixpoint/internal/fact"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates an execute run with minimal required fields.
func createTestRun(id string, rules ...string) Run {
	return Run{
		ID:          id,
		Kind:        KindExecute,
		RulesetHash: "test-hash",
		Input:       fact.NewRecord(fact.F("year", fact.String("three"))),
		Output: fact.NewRecord(
			fact.F("year", fact.String("three")),
			fact.F("needsJob", fact.Bool(true)),
		),
		Result:  fact.String("accountant"),
		Steps:   len(rules) + 1,
		Firings: FiringsFromSequences(rules),
	}
}
