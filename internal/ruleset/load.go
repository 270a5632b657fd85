package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a rule set from path. A directory is loaded as a CUE package;
// a .yaml or .yml file as a YAML rule set.
func Load(path string, mode LoadMode) (*RuleSet, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules path: %v", err)}}
	}
	if info.IsDir() {
		return LoadCUE(path, mode)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		rs, err := LoadYAML(path)
		if err != nil {
			return nil, []error{err}
		}
		return rs, nil
	case ".cue":
		return nil, []error{&LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("CUE rules are loaded per package: pass the directory %s", filepath.Dir(path)),
		}}
	default:
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("unsupported rules file %s (want a CUE directory or .yaml)", path)}}
	}
}

// Watched returns the files whose changes affect the rule set at path.
func Watched(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return FindCUEFiles(path)
	}
	return []string{path}, nil
}
