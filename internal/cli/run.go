package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	EngineFlags
	Database string
	Trace    bool
	Value    bool // print only the accumulator

	// IDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs store.IDGenerator
}

// RunOutput is the result of evaluating one fact.
type RunOutput struct {
	RunID    string          `json:"run_id,omitempty"`
	Sequence []string        `json:"sequence"`
	Steps    int             `json:"steps"`
	Fact     json.RawMessage `json:"fact"`
	Result   json.RawMessage `json:"result"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <rules> <fact-file>",
		Short: "Evaluate one fact",
		Long: `Evaluate a fact against a rule set until it reaches a fixed point.

<rules> is a CUE package directory or a YAML rule file. The fact file is
decoded as JSON when it ends in .json and as YAML otherwise.

With --db the run, its firings and the final fact are appended to a SQLite
run log (created if it doesn't exist).

Examples:
  fixpoint run ./rules student.yaml
  fixpoint run ./rules.yaml order.json --seed '{total: 0}'
  fixpoint run ./rules student.yaml --db ./runs.db --format json
  fixpoint run ./rules student.yaml --value`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(opts, args[0], args[1], cmd)
		},
	}

	addEngineFlags(cmd, &opts.EngineFlags)
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the run to this SQLite run log")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print every evaluated step to stderr")
	cmd.Flags().BoolVar(&opts.Value, "value", false, "print only the result")

	return cmd
}

func addEngineFlags(cmd *cobra.Command, flags *EngineFlags) {
	cmd.Flags().StringVar(&flags.Config, "config", "", "YAML config laid over the rule set's config block")
	cmd.Flags().StringVar(&flags.Seed, "seed", "", "accumulator seed (file or inline JSON/YAML value)")
}

func runExecute(opts *RunOptions, rulesPath, factPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var extra []engine.EngineOption
	if opts.Trace {
		extra = append(extra, engine.WithTrace(stepPrinter(formatter.GetErrWriter(), false)))
	}
	l, err := loadEngine(rulesPath, opts.EngineFlags, extra...)
	if err != nil {
		return reportError(formatter, err)
	}
	facts, err := loadFacts(factPath)
	if err != nil {
		return reportError(formatter, err)
	}
	seed, err := loadSeed(opts.Seed)
	if err != nil {
		return reportError(formatter, err)
	}

	runs, err := openRunLog(opts.Database, opts.IDs)
	if err != nil {
		return reportError(formatter, err)
	}
	defer runs.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	formatter.VerboseLog("Evaluating %s against %d rule(s)", factPath, len(l.engine.Rules()))
	id := runs.nextID()
	out, err := l.engine.Execute(ctx, facts, seed)
	if err != nil {
		if _, logErr := runs.write(ctx, store.FailedRun(id, store.KindExecute, l.ruleset.Hash, facts, err)); logErr != nil {
			return reportError(formatter, logErr)
		}
		_ = formatter.EvaluationError(err, id)
		return codedError(ExitFailure, evaluationCode(err), "evaluation failed", err)
	}

	run := store.ExecuteRun(id, l.ruleset.Hash, facts, out)
	if _, err := runs.write(ctx, run); err != nil {
		return reportError(formatter, err)
	}

	result := RunOutput{
		RunID:    id,
		Sequence: out.Sequence,
		Steps:    out.Steps,
		Fact:     rawValue(out.Fact),
		Result:   rawValue(out.Result),
	}
	if opts.Value {
		return outputValue(formatter, result.Result)
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputRunText(formatter.Writer, result)
	return nil
}

func outputRunText(w io.Writer, r RunOutput) {
	fmt.Fprintf(w, "✓ %d rule(s) fired in %d step(s)\n", len(r.Sequence), r.Steps)
	if len(r.Sequence) > 0 {
		fmt.Fprintf(w, "Sequence: %s\n", strings.Join(r.Sequence, ", "))
	}
	fmt.Fprintf(w, "Fact: %s\n", r.Fact)
	fmt.Fprintf(w, "Result: %s\n", r.Result)
	if r.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", r.RunID)
	}
}

// stepPrinter returns a trace callback that writes one line per step.
// For a chain each line is prefixed with the position of the fact; step 1
// after earlier steps starts the next fact.
func stepPrinter(w io.Writer, chain bool) engine.TraceFunc {
	fact, started := 0, false
	return func(s engine.Step) {
		if chain && started && s.Seq == 1 {
			fact++
		}
		started = true

		line := fmt.Sprintf("step %d %s", s.Seq, s.Rule)
		if chain {
			line = fmt.Sprintf("[%d] %s", fact, line)
		}
		for _, f := range []struct {
			set  bool
			name string
		}{{s.Fired, "fired"}, {s.Modified, "modified"}, {s.Restart, "restart"}, {s.Stopped, "stopped"}} {
			if f.set {
				line += " " + f.name
			}
		}
		fmt.Fprintln(w, line)
	}
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
