package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/fact"
	"github.com/roach88/fixpoint/internal/ruleset"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Evaluation, validation or scenario failure
	ExitCommandError = 2 // Command error (invalid paths, unreadable facts, database errors)
)

// Error codes for failures the rule set loader does not report.
const (
	ErrCodeFactLoad       = "E201" // Fact or seed file could not be read
	ErrCodeEvaluation     = "E202" // A condition, action or hook failed
	ErrCodeStepsExceeded  = "E203" // max_steps reached
	ErrCodeStore          = "E204" // Run log could not be opened or written
	ErrCodeConfig         = "E205" // --config file is invalid
	ErrCodeRunNotFound    = "E206" // history --run names an unknown run
	ErrCodeWatchFailed    = "E207" // File watcher could not be started
	ErrCodeScenarioFailed = "E301" // One or more scenarios failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	ErrCode string // E-code for output (optional)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// codedError wraps err with an exit code and an E-code.
func codedError(code int, errCode, message string, err error) *ExitError {
	return &ExitError{Code: code, ErrCode: errCode, Message: message, Err: err}
}

// errorCode returns the E-code carried by err, or ErrCodeGeneric.
func errorCode(err error) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.ErrCode != "" {
		return exitErr.ErrCode
	}
	return ruleset.ErrorCode(err)
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an
// ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// evaluationCode classifies an engine error for output.
func evaluationCode(err error) string {
	if engine.IsStepsExceededError(err) {
		return ErrCodeStepsExceeded
	}
	return ErrCodeEvaluation
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// newFormatter returns the formatter for a command's output streams.
func newFormatter(opts *RootOptions, w, errW io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    w,
		ErrWriter: errW,
		Verbose:   opts.Verbose,
	}
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
	RunID  string    `json:"run_id,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E202", etc.
	Message string `json:"message"`           // human-readable message
	Rule    string `json:"rule,omitempty"`    // failing rule of an evaluation error
	Phase   string `json:"phase,omitempty"`   // failing phase of an evaluation error
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// EvaluationError outputs an engine failure, naming the rule and phase
// when the error carries them.
func (f *OutputFormatter) EvaluationError(err error, runID string) error {
	code := evaluationCode(err)
	rule, phase, _ := engine.FailedRule(err)
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			RunID:  runID,
			Error: &CLIError{
				Code:    code,
				Message: err.Error(),
				Rule:    rule,
				Phase:   string(phase),
			},
		})
	}

	fmt.Fprintf(f.Writer, "✗ Evaluation failed [%s]: %v\n", code, err)
	if runID != "" {
		fmt.Fprintf(f.Writer, "Run: %s\n", runID)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// rawValue renders v as canonical JSON for embedding in a response.
// Values without a canonical form (functions, cycles) fall back to a
// quoted description.
func rawValue(v fact.Value) json.RawMessage {
	data, err := fact.MarshalCanonical(v)
	if err != nil {
		quoted, _ := json.Marshal(fmt.Sprintf("<%v>", err))
		return quoted
	}
	return data
}

// outputValue prints a result alone: the bare JSON value in text mode,
// the data field of the response in JSON mode.
func outputValue(f *OutputFormatter, v json.RawMessage) error {
	if f.Format == "json" {
		return f.Success(v)
	}
	fmt.Fprintf(f.Writer, "%s\n", v)
	return nil
}

// reportError outputs a command error and returns it for the exit code.
func reportError(f *OutputFormatter, err error) error {
	_ = f.Error(errorCode(err), err.Error(), nil)
	return err
}
