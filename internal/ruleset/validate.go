package ruleset

import (
	"fmt"
	"strings"
)

// Validate checks loaded rule definitions.
// Returns all errors found (does not fail-fast).
//
// Disabled rules are checked too: enabling a rule later should not surface
// errors that were already there.
func Validate(rs *RuleSet) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int)

	for i, def := range rs.Rules {
		field := ruleField(i, def)

		// E101: YAML rules need an explicit name; CUE rules take it from the label
		if strings.TrimSpace(def.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "name is required",
				Code:    ErrCodeMissingName,
				Line:    def.Line,
			})
		} else if first, dup := seen[def.Name]; dup {
			// E105: names identify rules in sequences and logs
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate rule name %q (first declared as rules[%d])", def.Name, first),
				Code:    ErrCodeDuplicateName,
				Line:    def.Line,
			})
		} else {
			seen[def.Name] = i
		}

		// E102/E103: the engine would silently drop a rule without them
		if strings.TrimSpace(def.When) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".when",
				Message: "when is required and must be non-empty",
				Code:    ErrCodeMissingWhen,
				Line:    def.Line,
			})
		}
		if len(def.Then) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".then",
				Message: "then requires at least one statement",
				Code:    ErrCodeMissingThen,
				Line:    def.Line,
			})
		}

		for _, list := range []struct {
			name  string
			stmts Statements
		}{
			{"then", def.Then},
			{"before", def.Before},
			{"before_each", def.BeforeEach},
			{"after_each", def.AfterEach},
			{"after", def.After},
		} {
			for j, s := range list.stmts {
				if strings.TrimSpace(s) == "" {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("%s.%s[%d]", field, list.name, j),
						Message: "statement is empty",
						Code:    ErrCodeMissingThen,
						Line:    def.Line,
					})
				}
			}
		}
	}

	if err := rs.Config.Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "config",
			Message: err.Error(),
			Code:    ErrCodeInvalidConfig,
		})
	}

	return errs
}

// ruleField names a rule in validation output.
func ruleField(i int, def RuleDef) string {
	if def.Name != "" {
		return fmt.Sprintf("rule.%s", def.Name)
	}
	return fmt.Sprintf("rules[%d]", i)
}
