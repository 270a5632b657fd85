package ruleset

import (
	"fmt"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fixpoint/internal/config"
)

// RuleDef is a rule as written in a rule file.
type RuleDef struct {
	Name string `yaml:"name"`

	// Priority orders evaluation, lower first. nil means the engine default.
	Priority *int `yaml:"priority,omitempty"`

	// Enabled defaults to true. A disabled rule and its hooks are skipped.
	Enabled *bool `yaml:"enabled,omitempty"`

	// When is a boolean expression.
	When string `yaml:"when"`

	// Then lists statements run in order when When holds.
	Then Statements `yaml:"then"`

	Before     Statements `yaml:"before,omitempty"`
	BeforeEach Statements `yaml:"before_each,omitempty"`
	AfterEach  Statements `yaml:"after_each,omitempty"`
	After      Statements `yaml:"after,omitempty"`

	// Pos is where a CUE rule was declared.
	Pos token.Pos `yaml:"-"`

	// Line is where a YAML rule was declared.
	Line int `yaml:"-"`
}

// IsEnabled reports whether the rule takes part in evaluation.
func (d RuleDef) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// HasHooks reports whether the rule declares any hook statements.
func (d RuleDef) HasHooks() bool {
	return len(d.Before)+len(d.BeforeEach)+len(d.AfterEach)+len(d.After) > 0
}

// Statements is a list of expression statements. In files it may be
// written as a single string or as a list of strings.
type Statements []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (s *Statements) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*s = Statements{n.Value}
		return nil
	case yaml.SequenceNode:
		out := make(Statements, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: statement must be a string", item.Line)
			}
			out = append(out, item.Value)
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("line %d: statements must be a string or a list of strings", n.Line)
	}
}

// RuleSet is the result of loading a rule file or directory.
type RuleSet struct {
	// Source is the path the rule set was loaded from.
	Source string

	// Rules are in declaration order.
	Rules []RuleDef

	// Config is the config block shipped with the rules, nil when absent.
	Config *config.File

	// Hash identifies the rule set content. It is the domain-separated
	// digest of the source files, in load order.
	Hash string
}
