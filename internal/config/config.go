// Package config reads engine settings from YAML files and CUE config
// blocks and turns them into engine options.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fixpoint/internal/engine"
)

// File is the on-disk form of engine.Config. Unset fields keep the engine
// default, which is what lets a command-line config file override only
// part of the config block shipped with a rule set.
type File struct {
	// DefaultPriority applies to rules without a priority.
	DefaultPriority *int `yaml:"default_priority,omitempty" json:"default_priority,omitempty"`

	// IgnoreModifications turns evaluation into a single forward pass.
	IgnoreModifications *bool `yaml:"ignore_modifications,omitempty" json:"ignore_modifications,omitempty"`

	// ResultShape is one of composite, list, map, set or value.
	ResultShape string `yaml:"result_shape,omitempty" json:"result_shape,omitempty"`

	// MaxSteps bounds the steps of one execution. Zero means unlimited.
	MaxSteps *int `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`

	// Environment is bound into every rule's scope.
	Environment map[string]any `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// Load reads a YAML config file.
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes YAML config content. An empty document is an empty File.
func Parse(data []byte) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks values the decoder cannot.
func (f *File) Validate() error {
	if f == nil {
		return nil
	}
	if _, err := engine.ParseShape(f.ResultShape); err != nil {
		return fmt.Errorf("result_shape: %w", err)
	}
	if f.MaxSteps != nil && *f.MaxSteps < 0 {
		return fmt.Errorf("max_steps: must be >= 0, got %d", *f.MaxSteps)
	}
	return nil
}

// Merge returns base overridden by every field set in over.
// Environment maps are merged key by key. Either argument may be nil.
func Merge(base, over *File) *File {
	out := &File{}
	for _, f := range []*File{base, over} {
		if f == nil {
			continue
		}
		if f.DefaultPriority != nil {
			out.DefaultPriority = f.DefaultPriority
		}
		if f.IgnoreModifications != nil {
			out.IgnoreModifications = f.IgnoreModifications
		}
		if f.ResultShape != "" {
			out.ResultShape = f.ResultShape
		}
		if f.MaxSteps != nil {
			out.MaxSteps = f.MaxSteps
		}
		if len(f.Environment) > 0 {
			if out.Environment == nil {
				out.Environment = make(map[string]any, len(f.Environment))
			}
			maps.Copy(out.Environment, f.Environment)
		}
	}
	return out
}

// Options converts the file into engine options. Only fields that are set
// produce an option.
func (f *File) Options() ([]engine.EngineOption, error) {
	if f == nil {
		return nil, nil
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var opts []engine.EngineOption
	if f.DefaultPriority != nil {
		opts = append(opts, engine.WithDefaultPriority(*f.DefaultPriority))
	}
	if f.IgnoreModifications != nil {
		opts = append(opts, engine.WithIgnoreModifications(*f.IgnoreModifications))
	}
	if f.ResultShape != "" {
		shape, _ := engine.ParseShape(f.ResultShape)
		opts = append(opts, engine.WithResultShape(shape))
	}
	if f.MaxSteps != nil {
		opts = append(opts, engine.WithMaxSteps(*f.MaxSteps))
	}
	if f.Environment != nil {
		opts = append(opts, engine.WithEnvironment(f.Environment))
	}
	return opts, nil
}

// Shape returns the configured result shape, composite when unset.
func (f *File) Shape() engine.Shape {
	if f == nil {
		return engine.ShapeComposite
	}
	s, _ := engine.ParseShape(f.ResultShape)
	return s
}
