package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixpoint/internal/config"
)

func TestValidate_Valid(t *testing.T) {
	rs, err := ParseYAML([]byte(accountantYAML))
	require.NoError(t, err)
	assert.Empty(t, Validate(rs))
}

func TestValidate_Errors(t *testing.T) {
	rs := &RuleSet{Rules: []RuleDef{
		{Name: "a", When: "true", Then: Statements{"stop()"}},
		{Name: "a", When: "true", Then: Statements{"stop()"}, Line: 9},
		{When: "true", Then: Statements{"stop()"}},
		{Name: "empty-when", When: "  ", Then: Statements{"stop()"}},
		{Name: "no-then", When: "true"},
		{Name: "blank-hook", When: "true", Then: Statements{"stop()"}, After: Statements{""}},
	}}

	errs := Validate(rs)
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{
		ErrCodeDuplicateName,
		ErrCodeMissingName,
		ErrCodeMissingWhen,
		ErrCodeMissingThen,
		ErrCodeMissingThen,
	}, codes)

	assert.Equal(t, "rule.a", errs[0].Field)
	assert.Equal(t, 9, errs[0].Line)
	assert.Equal(t, `[E105] line 9: rule.a: duplicate rule name "a" (first declared as rules[0])`, errs[0].Error())
	assert.Equal(t, "rules[2]", errs[1].Field)
	assert.Equal(t, "rule.blank-hook.after[0]", errs[4].Field)
}

func TestValidate_Config(t *testing.T) {
	rs := &RuleSet{
		Rules:  []RuleDef{{Name: "a", When: "true", Then: Statements{"stop()"}}},
		Config: &config.File{ResultShape: "pyramid"},
	}
	errs := Validate(rs)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeInvalidConfig, errs[0].Code)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, ErrorCode(&LoadError{Code: ErrCodeNotFound}))
	assert.Equal(t, ErrCodeDuplicateName, ErrorCode(ValidationError{Code: ErrCodeDuplicateName}))
	assert.Equal(t, ErrCodeMissingThen, ErrorCode(&CompileError{Field: "then"}))
	assert.Equal(t, ErrCodeGeneric, ErrorCode(&CompileError{Field: "cue"}))
	assert.Equal(t, ErrCodeGeneric, ErrorCode(assert.AnError))
}
