package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fixpoint/internal/procedure"
	"github.com/roach88/fixpoint/internal/ruleset"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                      `json:"valid"`
	Rules  int                       `json:"rules"`
	Errors []ruleset.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules>",
		Short: "Validate a rule set without evaluating it",
		Long: `Validate a CUE rule package or YAML rule file.

Checks the rule schema (names, conditions, statements, config block) and
compiles every expression, reporting all problems rather than the first.

Exit codes:
  0 - Rule set is valid
  1 - Validation errors
  2 - Command error (path not found, unreadable files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	rs, loadErrors := ruleset.Load(rulesPath, ruleset.LoadModeCollectAll)

	// Handle load errors (path not found, no files, etc.)
	if rs == nil && len(loadErrors) > 0 {
		var loadErr *ruleset.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ruleset.ErrorCode(loadErrors[0]), loadErrors[0].Error())
	}

	formatter.VerboseLog("Loaded %d rule(s) from %s", len(rs.Rules), rs.Source)

	// Rules that failed to load are reported alongside validation errors.
	var validationErrors []ruleset.ValidationError
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, toValidationError(err))
	}
	validationErrors = append(validationErrors, procedure.Validate(rs)...)

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(rs.Rules), validationErrors)
	}
	return outputValidateSuccess(formatter, len(rs.Rules))
}

// toValidationError converts a loader error into a ValidationError,
// keeping its code and line.
func toValidationError(err error) ruleset.ValidationError {
	var ve ruleset.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	out := ruleset.ValidationError{Field: "load", Message: err.Error(), Code: ruleset.ErrorCode(err)}
	var ce *ruleset.CompileError
	if errors.As(err, &ce) {
		out.Field = ce.Field
		out.Message = ce.Message
		if ce.Pos.IsValid() {
			out.Line = ce.Pos.Line()
		}
	}
	var le *ruleset.LoadError
	if errors.As(err, &le) {
		out.Message = le.Message
		if le.Pos.IsValid() {
			out.Line = le.Pos.Line()
		}
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, rules int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Rules: rules})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d rule(s) valid\n", rules)
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Load failures are command-level errors (exit code 2)
	return codedError(ExitCommandError, code, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, rules int, errs []ruleset.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Rules:  rules,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return codedError(ExitFailure, errs[0].Code, fmt.Sprintf("validation failed with %d error(s)", len(errs)), nil)
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return codedError(ExitFailure, errs[0].Code, fmt.Sprintf("validation failed with %d error(s)", len(errs)), nil)
}
