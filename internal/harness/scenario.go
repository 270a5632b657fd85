package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fixpoint/internal/config"
)

// Scenario defines one rule set run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is the rule file or CUE directory to load.
	Rules string `yaml:"rules"`

	// Config is laid over the rule set's own config block.
	Config *config.File `yaml:"config,omitempty"`

	// Facts is the input fact, or the list of facts when Chain is set.
	Facts yaml.Node `yaml:"facts"`

	// Seed initializes the accumulator. For a chain it also makes the
	// chain threaded.
	Seed yaml.Node `yaml:"seed,omitempty"`

	// Chain evaluates Facts through Engine.Chain.
	Chain bool `yaml:"chain,omitempty"`

	Expect Expect `yaml:"expect,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect holds exact expectations on the outcome. Unset fields are not
// checked.
type Expect struct {
	// Result is the final accumulator (per-fact list for an unthreaded chain).
	Result yaml.Node `yaml:"result,omitempty"`

	// Fact is the final fact, or the list of final facts of a chain.
	Fact yaml.Node `yaml:"fact,omitempty"`

	// Sequence is the fired rule names of a single fact.
	Sequence []string `yaml:"sequence,omitempty"`

	// Sequences is the fired rule names of a chain, one list per fact.
	Sequences [][]string `yaml:"sequences,omitempty"`

	// Steps is the total step count.
	Steps *int `yaml:"steps,omitempty"`

	// Error is a substring of the expected evaluation error.
	Error string `yaml:"error,omitempty"`
}

// Assertion checks one property of the run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Rule is the rule name (fired, not_fired, fired_count).
	Rule string `yaml:"rule,omitempty"`

	// Rules is the expected firing order (fired_order).
	Rules []string `yaml:"rules,omitempty"`

	// Count is the expected number of firings (fired_count).
	Count int `yaml:"count,omitempty"`

	// Path addresses a value in the final fact (fact_value).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value at Path (fact_value).
	Value yaml.Node `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertFired      = "fired"
	AssertNotFired   = "not_fired"
	AssertFiredOrder = "fired_order"
	AssertFiredCount = "fired_count"
	AssertFactValue  = "fact_value"
)

// LoadScenario reads a scenario file. A relative rules path is resolved
// against the scenario's directory.
//
// Unknown fields are rejected so that a typo such as "assertion:" does not
// silently disable checks.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario file, resolving a relative rules
// path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Rules != "" && !filepath.IsAbs(s.Rules) && basePath != "" {
		s.Rules = filepath.Join(basePath, s.Rules)
	}
	if _, err := os.Stat(s.Rules); err != nil {
		return nil, fmt.Errorf("invalid scenario: rules not found: %s", s.Rules)
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario document. The rules path
// is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Rules == "" {
		return fmt.Errorf("rules is required")
	}
	if s.Facts.Kind == 0 {
		return fmt.Errorf("facts is required")
	}
	if s.Chain && s.Facts.Kind != yaml.SequenceNode {
		return fmt.Errorf("chain scenarios need a list of facts")
	}
	if err := s.Config.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if s.Chain && len(s.Expect.Sequence) > 0 {
		return fmt.Errorf("expect.sequence is for single facts; use expect.sequences")
	}
	if !s.Chain && len(s.Expect.Sequences) > 0 {
		return fmt.Errorf("expect.sequences is for chains; use expect.sequence")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFired, AssertNotFired:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for %s", index, a.Type)
		}
	case AssertFiredOrder:
		if len(a.Rules) == 0 {
			return fmt.Errorf("assertions[%d]: rules list is required for fired_order", index)
		}
	case AssertFiredCount:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for fired_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for fired_count", index)
		}
	case AssertFactValue:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for fact_value", index)
		}
		if a.Value.Kind == 0 {
			return fmt.Errorf("assertions[%d]: value is required for fact_value", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
