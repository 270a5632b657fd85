package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedHistory logs two successful runs and one failed run.
func seedHistory(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rules := writeFile(t, dir, "rules.yaml", accountantRules)
	student := writeFile(t, dir, "student.yaml", "year: three\n")
	other := writeFile(t, dir, "other.yaml", "year: one\n")
	broken := writeFile(t, dir, "broken.yaml", `rules:
  - name: append-name
    when: "true"
    then: push('name', 'x')
`)
	db := filepath.Join(dir, "runs.db")

	cmd := runCommand("text")
	_, _, err := execute(cmd, "--db", db, rules, student)
	require.NoError(t, err)
	_, _, err = execute(cmd, "--db", db, rules, other)
	require.NoError(t, err)
	_, _, err = execute(cmd, "--db", db, broken, student)
	require.Error(t, err)
	return db
}

func TestHistory_List(t *testing.T) {
	db := seedHistory(t)

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "run-3")
	assert.Contains(t, out, "8 step(s)  ok")
	assert.Contains(t, out, "failed")
}

func TestHistory_ListJSON(t *testing.T) {
	db := seedHistory(t)

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "run-1", resp.Data[0].ID)
	assert.Equal(t, "execute", resp.Data[0].Kind)
	assert.Equal(t, 8, resp.Data[0].Steps)
	assert.Empty(t, resp.Data[0].Created, "sequential IDs carry no timestamp")
	assert.Equal(t, 3, resp.Data[1].Steps)
	assert.NotEmpty(t, resp.Data[2].Error)
}

func TestHistory_Run(t *testing.T) {
	db := seedHistory(t)

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "--run", "run-1")
	require.NoError(t, err)

	var resp struct {
		Data RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	d := resp.Data
	assert.Equal(t, "run-1", d.ID)
	assert.JSONEq(t, `{"year":"three"}`, string(d.Input))
	assert.JSONEq(t, `{"year":"three","needsJob":true,"lives":"on campus"}`, string(d.Output))
	assert.JSONEq(t, `"accountant"`, string(d.Result))
	require.Len(t, d.Firings, 7)
	assert.Equal(t, FiringOutput{Seq: 1, Fact: 0, Rule: "needs-job"}, d.Firings[0])
}

func TestHistory_RunText(t *testing.T) {
	db := seedHistory(t)

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--run", "run-3")
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-3 (execute, 0 step(s))")
	assert.Contains(t, out, "Error: ")
	assert.NotContains(t, out, "Firings:")
}

func TestHistory_Stats(t *testing.T) {
	db := seedHistory(t)

	out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "--stats")
	require.NoError(t, err)

	var resp struct {
		Data []RuleStat `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []RuleStat{
		{Rule: "needs-job", Count: 3},
		{Rule: "is-accountant", Count: 2},
		{Rule: "on-campus", Count: 2},
	}, resp.Data)
}

func TestHistory_Errors(t *testing.T) {
	db := seedHistory(t)

	t.Run("unknown run", func(t *testing.T) {
		out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--run", "run-9")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "Error ["+ErrCodeRunNotFound+"]")
	})

	t.Run("missing database", func(t *testing.T) {
		out, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "none.db"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "database not found")
	})

	t.Run("missing flag", func(t *testing.T) {
		_, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required flag")
	})

	t.Run("exclusive flags", func(t *testing.T) {
		_, _, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--run", "run-1", "--stats")
		require.Error(t, err)
	})
}
