package procedure

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/builtin"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/fact"
	"github.com/roach88/fixpoint/internal/ruleset"
)

// Error reports a failure to compile or run one expression of a rule.
type Error struct {
	Rule  string
	Field string // "when", "then[0]", "before_each[1]", ...
	Err   error
}

func (e *Error) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("rule %q %s: %v", e.Rule, e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type options struct {
	logger   *slog.Logger
	envNames []string
}

// Option configures Compile.
type Option func(*options)

// WithLogger sets the logger the log builtin writes to. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithEnvNames declares environment bindings that hold functions, so that
// calling them is not reported as an unknown function.
func WithEnvNames(names ...string) Option {
	return func(o *options) {
		o.envNames = append(o.envNames, names...)
	}
}

// Compile turns rule definitions into engine rules. Every expression is
// compiled up front; the first failure is returned as *Error.
func Compile(defs []ruleset.RuleDef, opts ...Option) ([]engine.Rule, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &compiler{logger: o.logger, known: knownFunctions(o.envNames)}

	rules := make([]engine.Rule, 0, len(defs))
	for _, def := range defs {
		r, err := c.rule(def)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Check compiles every expression and reports each failure as an E110
// validation error instead of stopping at the first one.
func Check(defs []ruleset.RuleDef, opts ...Option) []ruleset.ValidationError {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	known := knownFunctions(o.envNames)

	var errs []ruleset.ValidationError
	for i, def := range defs {
		where := fmt.Sprintf("rules[%d]", i)
		if def.Name != "" {
			where = "rule." + def.Name
		}
		for _, src := range sources(def) {
			if strings.TrimSpace(src.text) == "" {
				continue
			}
			if _, err := compileExpr(src.text, known); err != nil {
				errs = append(errs, ruleset.ValidationError{
					Field:   where + "." + src.field,
					Message: err.Error(),
					Code:    ruleset.ErrCodeInvalidExpr,
					Line:    def.Line,
				})
			}
		}
	}
	return errs
}

type source struct {
	field string
	text  string
}

// sources lists the expressions of def in evaluation order.
func sources(def ruleset.RuleDef) []source {
	out := []source{{field: "when", text: def.When}}
	for _, group := range []struct {
		name  string
		stmts ruleset.Statements
	}{
		{"then", def.Then},
		{"before", def.Before},
		{"before_each", def.BeforeEach},
		{"after_each", def.AfterEach},
		{"after", def.After},
	} {
		for i, s := range group.stmts {
			out = append(out, source{field: fmt.Sprintf("%s[%d]", group.name, i), text: s})
		}
	}
	return out
}

func knownFunctions(envNames []string) map[string]bool {
	known := make(map[string]bool, len(builtinNames)+len(builtin.Names)+len(envNames))
	for _, n := range builtin.Names {
		known[n] = true
	}
	for _, n := range builtinNames {
		known[n] = true
	}
	for _, n := range envNames {
		known[n] = true
	}
	return known
}

// compileExpr compiles src without a static environment. Our builtins take
// precedence over expr's functions of the same name.
func compileExpr(src string, known map[string]bool) (*vm.Program, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	v := &callVisitor{known: known}
	ast.Walk(&tree.Node, v)
	if len(v.unknown) > 0 {
		return nil, fmt.Errorf("unknown function %s", strings.Join(v.unknown, ", "))
	}

	opts := []expr.Option{expr.AllowUndefinedVariables()}
	for _, name := range builtinNames {
		opts = append(opts, expr.DisableBuiltin(name))
	}
	return expr.Compile(src, opts...)
}

// callVisitor collects calls to plain identifiers that nothing defines.
type callVisitor struct {
	known   map[string]bool
	unknown []string
}

func (v *callVisitor) Visit(node *ast.Node) {
	call, ok := (*node).(*ast.CallNode)
	if !ok {
		return
	}
	id, ok := call.Callee.(*ast.IdentifierNode)
	if !ok || v.known[id.Value] || slices.Contains(v.unknown, id.Value) {
		return
	}
	v.unknown = append(v.unknown, id.Value)
}

type compiler struct {
	logger *slog.Logger
	known  map[string]bool
}

type statement struct {
	field   string
	program *vm.Program
}

func (c *compiler) rule(def ruleset.RuleDef) (engine.Rule, error) {
	r := engine.Rule{
		Name:     def.Name,
		Priority: def.Priority,
		Disabled: !def.IsEnabled(),
	}

	if def.When != "" {
		prog, err := compileExpr(def.When, c.known)
		if err != nil {
			return r, &Error{Rule: def.Name, Field: "when", Err: err}
		}
		r.When = c.condition(def.Name, prog)
	}

	var err error
	if r.Then, err = c.statements(def.Name, "then", def.Then); err != nil {
		return r, err
	}
	hooks := []struct {
		name  string
		stmts ruleset.Statements
		dst   *engine.Hook
	}{
		{"before", def.Before, &r.Before},
		{"before_each", def.BeforeEach, &r.BeforeEach},
		{"after_each", def.AfterEach, &r.AfterEach},
		{"after", def.After, &r.After},
	}
	for _, h := range hooks {
		action, err := c.statements(def.Name, h.name, h.stmts)
		if err != nil {
			return r, err
		}
		if action != nil {
			*h.dst = engine.Hook(action)
		}
	}
	return r, nil
}

func (c *compiler) condition(name string, prog *vm.Program) engine.Condition {
	return func(_ context.Context, s *engine.Scope) (bool, error) {
		out, err := expr.Run(prog, c.env(s))
		if err != nil {
			return false, &Error{Rule: name, Field: "when", Err: err}
		}
		switch b := out.(type) {
		case nil:
			return false, nil
		case bool:
			return b, nil
		}
		return false, &Error{Rule: name, Field: "when", Err: fmt.Errorf("condition returned %T, want bool", out)}
	}
}

// statements compiles a statement list into an action. An empty list
// yields nil.
func (c *compiler) statements(name, group string, stmts ruleset.Statements) (engine.Action, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	compiled := make([]statement, 0, len(stmts))
	for i, src := range stmts {
		field := fmt.Sprintf("%s[%d]", group, i)
		prog, err := compileExpr(src, c.known)
		if err != nil {
			return nil, &Error{Rule: name, Field: field, Err: err}
		}
		compiled = append(compiled, statement{field: field, program: prog})
	}

	return func(ctx context.Context, s *engine.Scope) error {
		for _, st := range compiled {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := expr.Run(st.program, c.env(s)); err != nil {
				return &Error{Rule: name, Field: st.field, Err: err}
			}
		}
		return nil
	}, nil
}

// env builds the environment of one expression run. Builtins shadow
// environment entries of the same name.
func (c *compiler) env(s *engine.Scope) map[string]any {
	env := make(map[string]any, len(s.Env)+len(builtinNames)+4)
	maps.Copy(env, s.Env)
	env["env"] = s.Env
	view := fact.NewNativeView()
	env["fact"] = view.ToGo(s.Fact)
	env["result"] = view.ToGo(s.Result.Get())
	env["rule"] = map[string]any{
		"name":     s.Rule.Name,
		"priority": s.Rule.Priority,
		"index":    s.Rule.Index,
	}
	b := &builtins{s: s, view: view, logger: c.logger}
	b.bind(env)
	return env
}
