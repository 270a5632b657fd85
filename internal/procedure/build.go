package procedure

import (
	"fmt"
	"log/slog"

	"github.com/roach88/fixpoint/internal/config"
	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/ruleset"
)

// InvalidError lists everything wrong with a rule set that Build refused.
type InvalidError struct {
	Source string
	Errors []ruleset.ValidationError
}

func (e *InvalidError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s: %v", e.Source, e.Errors[0])
	}
	return fmt.Sprintf("%s: %d validation errors, first: %v", e.Source, len(e.Errors), e.Errors[0])
}

// Validate runs the structural checks of ruleset.Validate followed by
// expression compilation.
func Validate(rs *ruleset.RuleSet, opts ...Option) []ruleset.ValidationError {
	errs := ruleset.Validate(rs)
	return append(errs, Check(rs.Rules, opts...)...)
}

// Build validates and compiles rs into an engine. The engine settings are
// the rule set's config block with override laid over it; extra engine
// options apply last.
func Build(rs *ruleset.RuleSet, override *config.File, extra []engine.EngineOption, opts ...Option) (*engine.Engine, error) {
	if errs := Validate(rs, opts...); len(errs) > 0 {
		return nil, &InvalidError{Source: rs.Source, Errors: errs}
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	rules, err := Compile(rs.Rules, opts...)
	if err != nil {
		return nil, err
	}

	engineOpts, err := config.Merge(rs.Config, override).Options()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	engineOpts = append(engineOpts, engine.WithLogger(o.logger))
	engineOpts = append(engineOpts, extra...)

	e := engine.New(rules, engineOpts...)
	o.logger.Debug("rule set compiled",
		"source", rs.Source,
		"rules", len(e.Rules()),
		"hash", rs.Hash,
	)
	return e, nil
}
