package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixpoint/internal/engine"
)

func intp(n int) *int { return &n }

func boolp(b bool) *bool { return &b }

func TestParse_AllFields(t *testing.T) {
	f, err := Parse([]byte(`
default_priority: 50
ignore_modifications: true
result_shape: list
max_steps: 1000
environment:
  threshold: 10
  region: eu
`))
	require.NoError(t, err)

	assert.Equal(t, 50, *f.DefaultPriority)
	assert.True(t, *f.IgnoreModifications)
	assert.Equal(t, "list", f.ResultShape)
	assert.Equal(t, 1000, *f.MaxSteps)
	assert.Equal(t, map[string]any{"threshold": 10, "region": "eu"}, f.Environment)
	assert.Equal(t, engine.ShapeList, f.Shape())
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, &File{}, f)
	assert.Equal(t, engine.ShapeComposite, f.Shape())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"unknown key", "max_step: 3\n", "field max_step not found"},
		{"bad shape", "result_shape: tree\n", "result_shape"},
		{"negative steps", "max_steps: -1\n", "max_steps"},
		{"wrong type", "default_priority: high\n", "failed to parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixpoint.yaml")
	require.NoError(t, os.WriteFile(path, []byte("result_shape: value\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "value", f.ResultShape)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestMerge(t *testing.T) {
	base := &File{
		DefaultPriority: intp(10),
		ResultShape:     "list",
		Environment:     map[string]any{"a": 1, "b": 2},
	}
	over := &File{
		IgnoreModifications: boolp(true),
		ResultShape:         "set",
		Environment:         map[string]any{"b": 3},
	}

	got := Merge(base, over)
	assert.Equal(t, 10, *got.DefaultPriority)
	assert.True(t, *got.IgnoreModifications)
	assert.Equal(t, "set", got.ResultShape)
	assert.Nil(t, got.MaxSteps)
	assert.Equal(t, map[string]any{"a": 1, "b": 3}, got.Environment)

	// Inputs are not modified.
	assert.Equal(t, 2, base.Environment["b"])

	assert.Equal(t, &File{}, Merge(nil, nil))
}

func TestOptions(t *testing.T) {
	f := &File{
		DefaultPriority:     intp(7),
		IgnoreModifications: boolp(true),
		ResultShape:         "value",
		MaxSteps:            intp(20),
		Environment:         map[string]any{"k": "v"},
	}
	opts, err := f.Options()
	require.NoError(t, err)

	c := engine.New(nil, opts...).Config()
	assert.Equal(t, engine.Config{
		DefaultPriority:     7,
		IgnoreModifications: true,
		Environment:         map[string]any{"k": "v"},
		ResultShape:         engine.ShapeValue,
		MaxSteps:            20,
	}, c)
}

func TestOptions_UnsetKeepsDefaults(t *testing.T) {
	opts, err := (&File{}).Options()
	require.NoError(t, err)
	assert.Empty(t, opts)

	var nilFile *File
	opts, err = nilFile.Options()
	require.NoError(t, err)
	assert.Nil(t, opts)
}

func TestOptions_Invalid(t *testing.T) {
	_, err := (&File{ResultShape: "nope"}).Options()
	assert.Error(t, err)
}
