package ruleset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accountantCUE = `
package rules

rule: "is-accountant": {
	when: "fact.needsJob == true"
	then: "setResult('accountant')"
}

rule: "needs-job": {
	priority: 10
	when:     "fact.year == 'three'"
	then: ["set('needsJob', true)"]
}

rule: "on-campus": {
	priority: 10
	enabled:  false
	when:     "fact.year == 'three'"
	then: ["set('lives', 'on campus')", "stop()"]
	after_each: "next()"
}

config: {
	result_shape: "value"
	max_steps:    100
	environment: region: "eu"
}
`

func writeCUE(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func TestLoadCUE_Rules(t *testing.T) {
	dir := writeCUE(t, map[string]string{"rules.cue": accountantCUE})

	rs, errs := LoadCUE(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.Len(t, rs.Rules, 3)

	// Declaration order is kept.
	assert.Equal(t, "is-accountant", rs.Rules[0].Name)
	assert.Equal(t, "needs-job", rs.Rules[1].Name)
	assert.Equal(t, "on-campus", rs.Rules[2].Name)

	assert.Nil(t, rs.Rules[0].Priority)
	assert.Equal(t, Statements{"setResult('accountant')"}, rs.Rules[0].Then)
	assert.True(t, rs.Rules[0].IsEnabled())

	require.NotNil(t, rs.Rules[1].Priority)
	assert.Equal(t, 10, *rs.Rules[1].Priority)
	assert.Equal(t, "fact.year == 'three'", rs.Rules[1].When)

	assert.False(t, rs.Rules[2].IsEnabled())
	assert.Equal(t, Statements{"set('lives', 'on campus')", "stop()"}, rs.Rules[2].Then)
	assert.Equal(t, Statements{"next()"}, rs.Rules[2].AfterEach)
	assert.True(t, rs.Rules[2].HasHooks())
	assert.True(t, rs.Rules[1].Pos.IsValid())

	require.NotNil(t, rs.Config)
	assert.Equal(t, "value", rs.Config.ResultShape)
	assert.Equal(t, 100, *rs.Config.MaxSteps)
	assert.Equal(t, "eu", rs.Config.Environment["region"])

	assert.Len(t, rs.Hash, 64)
	assert.Equal(t, dir, rs.Source)
}

func TestLoadCUE_HashTracksContent(t *testing.T) {
	a := writeCUE(t, map[string]string{"rules.cue": accountantCUE})
	b := writeCUE(t, map[string]string{"rules.cue": accountantCUE})
	c := writeCUE(t, map[string]string{"rules.cue": accountantCUE + "\n// changed\n"})

	ra, errs := LoadCUE(a, LoadModeFailFast)
	require.Empty(t, errs)
	rb, errs := LoadCUE(b, LoadModeFailFast)
	require.Empty(t, errs)
	rc, errs := LoadCUE(c, LoadModeFailFast)
	require.Empty(t, errs)

	assert.Equal(t, ra.Hash, rb.Hash)
	assert.NotEqual(t, ra.Hash, rc.Hash)
}

func TestLoadCUE_DirectoryErrors(t *testing.T) {
	_, errs := LoadCUE(filepath.Join(t.TempDir(), "missing"), LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNotFound, ErrorCode(errs[0]))

	_, errs = LoadCUE(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNoFiles, ErrorCode(errs[0]))

	file := filepath.Join(t.TempDir(), "x.cue")
	require.NoError(t, os.WriteFile(file, []byte("package rules\n"), 0644))
	_, errs = LoadCUE(file, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not a directory")
}

func TestLoadCUE_SyntaxError(t *testing.T) {
	dir := writeCUE(t, map[string]string{"bad.cue": "package rules\n\nrule: {{{\n"})

	_, errs := LoadCUE(dir, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeLoadFailed, ErrorCode(errs[0]))
}

func TestLoadCUE_MissingRuleField(t *testing.T) {
	dir := writeCUE(t, map[string]string{"rules.cue": "package rules\n\nconfig: max_steps: 3\n"})

	rs, errs := LoadCUE(dir, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `missing "rule" field`)
	require.NotNil(t, rs)
	assert.Equal(t, 3, *rs.Config.MaxSteps)
}

func TestLoadCUE_CollectAll(t *testing.T) {
	dir := writeCUE(t, map[string]string{"rules.cue": `
package rules

rule: a: { priority: "high", when: "true", then: "stop()" }
rule: b: { when: "true", then: "stop()" }
rule: c: { when: 42, then: "stop()" }
`})

	rs, errs := LoadCUE(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	require.Len(t, rs.Rules, 1)
	assert.Equal(t, "b", rs.Rules[0].Name)

	var ce *CompileError
	require.True(t, errors.As(errs[0], &ce))
	assert.Equal(t, "priority", ce.Field)
	assert.True(t, ce.Pos.IsValid())
	assert.Equal(t, ErrCodeInvalidType, ErrorCode(errs[0]))
	assert.Equal(t, ErrCodeMissingWhen, ErrorCode(errs[1]))

	_, errs = LoadCUE(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestCompileRule_UnknownField(t *testing.T) {
	v := cuecontext.New().CompileString(`rule: x: { when: "true", then: "stop()", priorty: 1 }`)
	_, err := CompileRule(v.LookupPath(cue.ParsePath("rule.x")))

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "priorty", ce.Field)
	assert.Contains(t, ce.Message, `unknown rule field "priorty"`)
}

func TestCompileRule_StatementTypes(t *testing.T) {
	v := cuecontext.New().CompileString(`rule: x: { when: "true", then: [1] }`)
	_, err := CompileRule(v.LookupPath(cue.ParsePath("rule.x")))
	assert.ErrorContains(t, err, "then[0] must be a string")

	v = cuecontext.New().CompileString(`rule: x: { when: "true", before: {a: 1} }`)
	_, err = CompileRule(v.LookupPath(cue.ParsePath("rule.x")))
	assert.ErrorContains(t, err, "before must be a string or a list of strings")
}

func TestCompileRule_MissingFieldsLeftForValidate(t *testing.T) {
	v := cuecontext.New().CompileString(`rule: "empty": {}`)
	def, err := CompileRule(v.LookupPath(cue.ParsePath(`rule."empty"`)))
	require.NoError(t, err)
	assert.Equal(t, "empty", def.Name)
	assert.Empty(t, def.When)
	assert.Empty(t, def.Then)
}

func TestLoadCUE_BadConfig(t *testing.T) {
	dir := writeCUE(t, map[string]string{"rules.cue": `
package rules

rule: a: { when: "true", then: "stop()" }
config: result_shape: "tree"
`})

	rs, errs := LoadCUE(dir, LoadModeCollectAll)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeInvalidConfig, ErrorCode(errs[0]))
	assert.Len(t, rs.Rules, 1)
}

func TestLoadCUESource(t *testing.T) {
	rs, errs := LoadCUESource("inline.cue", []byte(`rule: a: { when: "true", then: "stop()" }`))
	require.Empty(t, errs)
	require.Len(t, rs.Rules, 1)
	assert.Equal(t, "inline.cue", rs.Source)
	assert.Len(t, rs.Hash, 64)

	_, errs = LoadCUESource("broken.cue", []byte(`rule: a: {`))
	require.Len(t, errs, 1)
}
