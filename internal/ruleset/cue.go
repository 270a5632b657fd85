package ruleset

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/fixpoint/internal/config"
	"github.com/roach88/fixpoint/internal/fact"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// ruleFields are the fields a CUE rule may declare.
var ruleFields = []string{"priority", "enabled", "when", "then", "before", "before_each", "after_each", "after"}

// LoadCUE loads the CUE package in dir and compiles its "rule" and
// "config" fields.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadCUE(dir string, mode LoadMode) (*RuleSet, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}
	hash, err := hashFiles(cueFiles)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: err.Error()}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		le := &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
		if ce, ok := formatCUEError(err).(*CompileError); ok {
			le.Pos = ce.Pos
		}
		return nil, []error{le}
	}

	return compileValue(value, dir, hash, mode)
}

// LoadCUESource compiles a rule set from CUE source held in memory.
// name is used in positions and as the Source of the result.
func LoadCUESource(name string, src []byte) (*RuleSet, []error) {
	value := cuecontext.New().CompileBytes(src, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return compileValue(value, name, fact.DigestBytes(fact.DomainRuleSet, src), LoadModeCollectAll)
}

func compileValue(value cue.Value, source, hash string, mode LoadMode) (*RuleSet, []error) {
	var errs []error
	rs := &RuleSet{Source: source, Hash: hash}

	if cfgVal := value.LookupPath(cue.ParsePath("config")); cfgVal.Exists() {
		cfg, err := CompileConfig(cfgVal)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return rs, errs
			}
		}
		rs.Config = cfg
	}

	rulesVal := value.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no rules found: missing \"rule\" field"})
		return rs, errs
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating rules: %v", err)})
		return rs, errs
	}
	for iter.Next() {
		def, err := CompileRule(iter.Value())
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return rs, errs
			}
			continue
		}
		rs.Rules = append(rs.Rules, def)
	}
	return rs, errs
}

// CompileRule parses one CUE rule value into a RuleDef.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value should be the rule struct itself, e.g.:
//
//	v := ctx.CompileString(`rule: "my-rule": { when: "true", then: "stop()" }`)
//	def, err := CompileRule(v.LookupPath(cue.ParsePath(`rule."my-rule"`)))
//
// Missing fields are left empty for Validate to report; fields of the
// wrong type and unknown fields are errors.
func CompileRule(v cue.Value) (RuleDef, error) {
	if err := v.Err(); err != nil {
		return RuleDef{}, formatCUEError(err)
	}

	def := RuleDef{Pos: v.Pos()}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		def.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	iter, err := v.Fields()
	if err != nil {
		return RuleDef{}, &CompileError{Field: "rule", Message: "rule must be a struct", Pos: v.Pos()}
	}
	for iter.Next() {
		if label := iter.Label(); !slices.Contains(ruleFields, label) {
			return RuleDef{}, &CompileError{
				Field:   label,
				Message: fmt.Sprintf("unknown rule field %q in rule %q", label, def.Name),
				Pos:     iter.Value().Pos(),
			}
		}
	}

	if pv := v.LookupPath(cue.ParsePath("priority")); pv.Exists() {
		p, err := pv.Int64()
		if err != nil {
			return RuleDef{}, &CompileError{Field: "priority", Message: "priority must be an integer", Pos: pv.Pos()}
		}
		n := int(p)
		def.Priority = &n
	}

	if ev := v.LookupPath(cue.ParsePath("enabled")); ev.Exists() {
		b, err := ev.Bool()
		if err != nil {
			return RuleDef{}, &CompileError{Field: "enabled", Message: "enabled must be a boolean", Pos: ev.Pos()}
		}
		def.Enabled = &b
	}

	if wv := v.LookupPath(cue.ParsePath("when")); wv.Exists() {
		s, err := wv.String()
		if err != nil {
			return RuleDef{}, &CompileError{Field: "when", Message: "when must be an expression string", Pos: wv.Pos()}
		}
		def.When = s
	}

	for _, f := range []struct {
		name string
		dst  *Statements
	}{
		{"then", &def.Then},
		{"before", &def.Before},
		{"before_each", &def.BeforeEach},
		{"after_each", &def.AfterEach},
		{"after", &def.After},
	} {
		stmts, err := parseStatements(v, f.name)
		if err != nil {
			return RuleDef{}, err
		}
		*f.dst = stmts
	}

	return def, nil
}

// parseStatements reads a field holding a string or a list of strings.
func parseStatements(v cue.Value, field string) (Statements, error) {
	sv := v.LookupPath(cue.ParsePath(field))
	if !sv.Exists() {
		return nil, nil
	}
	if s, err := sv.String(); err == nil {
		return Statements{s}, nil
	}

	list, err := sv.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s must be a string or a list of strings", field),
			Pos:     sv.Pos(),
		}
	}
	var out Statements
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("%s[%s] must be a string", field, list.Label()),
				Pos:     list.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileConfig decodes a CUE config block.
func CompileConfig(v cue.Value) (*config.File, error) {
	var f config.File
	if err := v.Decode(&f); err != nil {
		return nil, &CompileError{Field: "config", Message: err.Error(), Pos: v.Pos()}
	}
	if err := f.Validate(); err != nil {
		return nil, &CompileError{Field: "config", Message: err.Error(), Pos: v.Pos()}
	}
	return &f, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// hashFiles digests the content of files in order. Each file contributes
// its length so that moving bytes between files changes the digest.
func hashFiles(paths []string) (string, error) {
	var buf []byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", p, err)
		}
		buf = fmt.Appendf(buf, "%d:", len(data))
		buf = append(buf, data...)
	}
	return fact.DigestBytes(fact.DomainRuleSet, buf), nil
}
