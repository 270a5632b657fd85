package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixpoint/internal/engine"
)

func TestGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"accountant", "ledger"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Error(t *testing.T) {
	r := NewResult()
	r.Err = &engine.EvaluationError{Rule: "r", Phase: engine.PhaseAction, Err: assert.AnError}

	data, err := Snapshot("failing", r)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"error":"rule \"r\" action:`)
	assert.NotContains(t, s, `"output"`)
	assert.Contains(t, s, `"scenario_name":"failing"`)
}

func TestSnapshot_Deterministic(t *testing.T) {
	result, err := Run(loadTestScenario(t, "accountant"))
	require.NoError(t, err)

	first, err := Snapshot("accountant", result)
	require.NoError(t, err)
	second, err := Snapshot("accountant", result)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "checkout.golden"),
		GoldenPath(filepath.Join("scenarios", "checkout.yaml")))
}

func TestWriteAndMatchGolden(t *testing.T) {
	result, err := Run(loadTestScenario(t, "accountant"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "golden", "accountant.golden")
	_, err = MatchGolden(path, "accountant", result)
	require.Error(t, err)

	require.NoError(t, WriteGolden(path, "accountant", result))
	ok, err := MatchGolden(path, "accountant", result)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	ok, err = MatchGolden(path, "accountant", result)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteGolden_MatchesCheckedIn(t *testing.T) {
	result, err := Run(loadTestScenario(t, "ledger"))
	require.NoError(t, err)

	ok, err := MatchGolden(filepath.Join("testdata", "golden", "ledger.golden"), "ledger", result)
	require.NoError(t, err)
	assert.True(t, ok)
}
