package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fixpoint/internal/config"
	"github.com/roach88/fixpoint/internal/fact"
)

// yamlFile is the document layout of a YAML rule set.
type yamlFile struct {
	Config *config.File `yaml:"config,omitempty"`
	Rules  []RuleDef    `yaml:"rules"`
}

// LoadYAML reads a YAML rule set. Unknown keys are rejected so that a typo
// such as "priorty" does not silently fall back to a default.
func LoadYAML(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("failed to read rules file: %v", err)}
	}
	rs, err := ParseYAML(data)
	if err != nil {
		return nil, err
	}
	rs.Source = path
	return rs, nil
}

// ParseYAML decodes YAML rule set content.
func ParseYAML(data []byte) (*RuleSet, error) {
	var doc yamlFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: "empty rules document"}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	if err := doc.Config.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("config: %v", err)}
	}

	rs := &RuleSet{
		Config: doc.Config,
		Hash:   fact.DigestBytes(fact.DomainRuleSet, data),
		Rules:  make([]RuleDef, 0, len(doc.Rules)),
	}
	lines := ruleLines(data)
	for i, def := range doc.Rules {
		if i < len(lines) {
			def.Line = lines[i]
		}
		rs.Rules = append(rs.Rules, def)
	}
	return rs, nil
}

// ruleLines returns the line of every item of the top-level rules list.
func ruleLines(data []byte) []int {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "rules" {
			continue
		}
		var lines []int
		for _, item := range doc.Content[i+1].Content {
			lines = append(lines, item.Line)
		}
		return lines
	}
	return nil
}
