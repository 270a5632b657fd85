package ruleset

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes - shared with the CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No rule files found
	ErrCodeLoadFailed  = "E004" // CUE or YAML load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Rule validation errors
	ErrCodeMissingName   = "E101" // Rule has no name
	ErrCodeMissingWhen   = "E102" // Rule has no condition
	ErrCodeMissingThen   = "E103" // Rule has no action statements
	ErrCodeInvalidType   = "E104" // Field has the wrong type
	ErrCodeDuplicateName = "E105" // Two rules share a name
	ErrCodeInvalidExpr   = "E110" // Expression does not compile
	ErrCodeInvalidConfig = "E120" // Config block is invalid
)

// LoadError represents an error that occurred during rule set loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CompileError represents a rule field that could not be read, with its
// source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents a rule that loaded but cannot be used as
// written.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ErrorCode returns the code carried by a LoadError, CompileError or
// ValidationError, or ErrCodeGeneric.
func ErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		return fieldCode(ce.Field)
	}
	return ErrCodeGeneric
}

// fieldCode maps a rule field to the error code reported for it.
func fieldCode(field string) string {
	switch field {
	case "name":
		return ErrCodeMissingName
	case "when":
		return ErrCodeMissingWhen
	case "then":
		return ErrCodeMissingThen
	case "priority", "enabled", "before", "before_each", "after_each", "after":
		return ErrCodeInvalidType
	case "config":
		return ErrCodeInvalidConfig
	default:
		return ErrCodeGeneric
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
