package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/fixpoint/internal/fact"
	"github.com/roach88/fixpoint/internal/snapshot"
	"github.com/roach88/fixpoint/internal/track"
)

// Config holds the engine settings that options and configuration files set.
type Config struct {
	// DefaultPriority applies to rules without a Priority.
	DefaultPriority int

	// IgnoreModifications turns the loop into a single forward pass:
	// changes to the fact no longer restart evaluation.
	IgnoreModifications bool

	// Environment is injected into every Scope.
	Environment map[string]any

	// ResultShape selects the accumulator form.
	ResultShape Shape

	// MaxSteps bounds steps per Execute call. Zero means unlimited.
	MaxSteps int
}

// DefaultConfig returns the settings used when no option overrides them.
func DefaultConfig() Config {
	return Config{DefaultPriority: DefaultPriority, ResultShape: ShapeComposite}
}

// Engine evaluates a fixed rule table.
//
// Thread-safety model:
//   - The rule table and configuration never change after New
//   - Execute and Chain may be called from several goroutines at once;
//     each call owns its fact, tracker and accumulator
//   - Within a call, steps run one at a time on the caller's goroutine
type Engine struct {
	rules  []tableRule
	hooks  hookSet
	config Config
	logger *slog.Logger
	trace  TraceFunc
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(c Config) EngineOption {
	return func(e *Engine) {
		e.config = c
	}
}

// WithDefaultPriority sets the priority of rules that do not set one.
// Default: 100 (DefaultPriority).
func WithDefaultPriority(p int) EngineOption {
	return func(e *Engine) {
		e.config.DefaultPriority = p
	}
}

// WithIgnoreModifications disables restarts on modification.
func WithIgnoreModifications(ignore bool) EngineOption {
	return func(e *Engine) {
		e.config.IgnoreModifications = ignore
	}
}

// WithEnvironment sets the bindings injected into every Scope.
// The map is copied.
func WithEnvironment(env map[string]any) EngineOption {
	return func(e *Engine) {
		e.config.Environment = maps.Clone(env)
	}
}

// WithResultShape selects the accumulator form. Default: ShapeComposite.
func WithResultShape(s Shape) EngineOption {
	return func(e *Engine) {
		e.config.ResultShape = s
	}
}

// WithMaxSteps bounds the steps of each Execute call.
//
// Default: 0, no limit. Use WithMaxSteps(10) for testing quota enforcement.
func WithMaxSteps(maxSteps int) EngineOption {
	return func(e *Engine) {
		e.config.MaxSteps = maxSteps
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTrace registers fn to receive every evaluated step.
func WithTrace(fn TraceFunc) EngineOption {
	return func(e *Engine) {
		e.trace = fn
	}
}

// New builds an Engine from rules.
//
// Options are applied first so that the rule table sees the effective
// default priority. Malformed rules are excluded without error.
// The rules slice is not retained.
func New(rules []Rule, opts ...EngineOption) *Engine {
	e := &Engine{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rules, e.hooks = buildTable(rules, e.config.DefaultPriority)
	return e
}

// Rules returns the rule table in evaluation order.
func (e *Engine) Rules() []RuleInfo {
	infos := make([]RuleInfo, len(e.rules))
	for i, r := range e.rules {
		infos[i] = r.info
	}
	return infos
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	c := e.config
	c.Environment = maps.Clone(c.Environment)
	return c
}

// Outcome is the result of one Execute call. All values are plain,
// untracked data owned by the caller.
type Outcome struct {
	Fact     fact.Value
	Result   fact.Value
	Sequence []string
	Steps    int
}

// run is the per-call evaluation context.
type run struct {
	fact     fact.Value
	tracker  *track.Tracker
	result   *Result
	stop     bool
	sequence []string
	steps    int
	quota    *QuotaEnforcer
}

// Execute evaluates the rule table against a copy of f until no rule both
// matches and modifies the fact, a rule calls Stop, or an error occurs.
//
// seed initializes the accumulator (see Result); nil means no seed. Neither
// f nor seed is mutated.
//
// Errors from conditions, actions and hooks, including panics, abort the
// call and are returned as *EvaluationError. Cancellation of ctx is checked
// between steps; an in-flight procedure is never interrupted by the engine.
func (e *Engine) Execute(ctx context.Context, f fact.Value, seed fact.Value) (*Outcome, error) {
	cloner := snapshot.NewCloner()
	r := &run{tracker: track.New(), sequence: []string{}}
	r.fact = r.tracker.Track(cloner.Clone(f))
	r.result = newResult(e.config.ResultShape, cloner.Clone(seed))
	if e.config.MaxSteps > 0 {
		r.quota = NewQuotaEnforcer(e.config.MaxSteps)
	}

	if err := e.runHooks(ctx, e.hooks.before, PhaseBefore, e.outerScope(r)); err != nil {
		return nil, err
	}
	r.tracker.Reset()

	for i := 0; i < len(e.rules) && !r.stop; {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("execute interrupted before rule %q: %w", e.rules[i].info.Name, err)
		}
		if r.quota != nil {
			if err := r.quota.Check(e.rules[i].info.Name); err != nil {
				return nil, err
			}
		}

		next, err := e.step(ctx, r, i)
		if err != nil {
			return nil, err
		}
		i = next
	}

	if err := e.runHooks(ctx, e.hooks.after, PhaseAfter, e.outerScope(r)); err != nil {
		return nil, err
	}

	u := track.NewUntracker()
	out := &Outcome{
		Fact:     u.Untrack(r.fact),
		Result:   u.Untrack(r.result.acc),
		Sequence: r.sequence,
		Steps:    r.steps,
	}
	e.logger.Debug("execute complete",
		"fired", len(out.Sequence),
		"steps", out.Steps,
		"stopped", r.stop,
	)
	return out, nil
}

// step evaluates the rule at index i and returns the next index.
// Returning len(e.rules) ends the loop.
func (e *Engine) step(ctx context.Context, r *run, i int) (int, error) {
	rule := e.rules[i]
	r.steps++
	s := &Scope{
		Fact:   r.fact,
		Result: r.result,
		Rule:   rule.info,
		Env:    maps.Clone(e.config.Environment),
		run:    r,
	}

	if err := e.runHooks(ctx, e.hooks.beforeEach, PhaseBeforeEach, s); err != nil {
		return 0, err
	}

	var fired bool
	err := invoke(rule.info.Name, PhaseCondition, func() error {
		ok, err := rule.when(ctx, s)
		fired = ok
		return err
	})
	if err != nil {
		return 0, err
	}

	if fired {
		r.sequence = append(r.sequence, rule.info.Name)
		e.logger.Debug("rule fired", "rule", rule.info.Name, "priority", rule.info.Priority, "step", r.steps)
		if err := invoke(rule.info.Name, PhaseAction, func() error { return rule.then(ctx, s) }); err != nil {
			return 0, err
		}
	}

	if err := e.runHooks(ctx, e.hooks.afterEach, PhaseAfterEach, s); err != nil {
		return 0, err
	}

	st := Step{
		Seq:      r.steps,
		Rule:     rule.info.Name,
		Index:    i,
		Fired:    fired,
		Modified: r.tracker.Modified(),
		Stopped:  r.stop,
	}
	next := i + 1
	switch {
	case r.stop:
		next = len(e.rules)
	case r.tracker.Modified() && !e.config.IgnoreModifications:
		r.tracker.Reset()
		st.Restart = true
		next = 0
		e.logger.Debug("fact modified, restarting", "rule", rule.info.Name, "step", r.steps)
	}
	if e.trace != nil {
		e.trace(st)
	}
	return next, nil
}

// outerScope is the Scope for Before and After hooks.
func (e *Engine) outerScope(r *run) *Scope {
	return &Scope{
		Fact:   r.fact,
		Result: r.result,
		Env:    maps.Clone(e.config.Environment),
		run:    r,
	}
}

func (e *Engine) runHooks(ctx context.Context, hooks []Hook, phase Phase, s *Scope) error {
	for _, h := range hooks {
		if err := invoke(s.Rule.Name, phase, func() error { return h(ctx, s) }); err != nil {
			return err
		}
	}
	return nil
}

// invoke runs fn, converting an error or a panic into *EvaluationError.
func invoke(rule string, phase Phase, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &EvaluationError{Rule: rule, Phase: phase, Err: &PanicError{Value: p}}
		}
	}()
	if err := fn(); err != nil {
		return &EvaluationError{Rule: rule, Phase: phase, Err: err}
	}
	return nil
}
