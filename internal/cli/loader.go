package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/fixpoint/internal/config"
	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/fact"
	"github.com/roach88/fixpoint/internal/procedure"
	"github.com/roach88/fixpoint/internal/ruleset"
)

// EngineFlags are the flags shared by every command that evaluates facts.
type EngineFlags struct {
	Config string // YAML config laid over the rule set's own config block
	Seed   string // accumulator seed: a JSON/YAML file or an inline value
}

// loaded is a compiled rule set ready to evaluate.
type loaded struct {
	ruleset *ruleset.RuleSet
	engine  *engine.Engine
}

// loadEngine loads, validates and compiles the rule set at rulesPath.
//
// Load and validation failures are command errors carrying the loader's
// E-code of the first problem.
func loadEngine(rulesPath string, flags EngineFlags, extra ...engine.EngineOption) (*loaded, error) {
	rs, errs := ruleset.Load(rulesPath, ruleset.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, codedError(ExitCommandError, ruleset.ErrorCode(errs[0]), "failed to load rules", errs[0])
	}

	var override *config.File
	if flags.Config != "" {
		f, err := config.Load(flags.Config)
		if err != nil {
			return nil, codedError(ExitCommandError, ErrCodeConfig, "failed to load config", err)
		}
		override = f
	}

	eng, err := procedure.Build(rs, override, extra)
	if err != nil {
		code := ruleset.ErrCodeGeneric
		var invalid *procedure.InvalidError
		if errors.As(err, &invalid) && len(invalid.Errors) > 0 {
			code = invalid.Errors[0].Code
		}
		return nil, codedError(ExitCommandError, code, "failed to build engine", err)
	}
	return &loaded{ruleset: rs, engine: eng}, nil
}

// loadFacts reads a fact file. .json files are decoded as JSON, anything
// else as YAML.
func loadFacts(path string) (fact.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, codedError(ExitCommandError, ErrCodeFactLoad, "failed to read facts", err)
	}
	v, err := decodeFacts(path, data)
	if err != nil {
		return nil, codedError(ExitCommandError, ErrCodeFactLoad, "failed to decode "+path, err)
	}
	return v, nil
}

func decodeFacts(path string, data []byte) (fact.Value, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return fact.DecodeJSON(data)
	}
	return fact.DecodeYAML(data)
}

// loadSeed resolves the --seed flag. An existing file is loaded like a
// fact file; otherwise the flag value itself is decoded as YAML, which
// also accepts JSON. An empty flag means no seed.
func loadSeed(seed string) (fact.Value, error) {
	if seed == "" {
		return nil, nil
	}
	if info, err := os.Stat(seed); err == nil && !info.IsDir() {
		return loadFacts(seed)
	}
	v, err := fact.DecodeYAML([]byte(seed))
	if err != nil {
		return nil, codedError(ExitCommandError, ErrCodeFactLoad, "failed to decode seed", err)
	}
	return v, nil
}
