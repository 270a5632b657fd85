package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/store"
)

// ChainOptions holds flags for the chain command.
type ChainOptions struct {
	*RootOptions
	EngineFlags
	Database string
	Trace    bool
	Value    bool // print only the accumulator

	// IDs allows overriding the run ID generator (for testing).
	IDs store.IDGenerator
}

// ChainOutput is the result of evaluating a list of facts.
type ChainOutput struct {
	RunID     string          `json:"run_id,omitempty"`
	Threaded  bool            `json:"threaded"`
	Sequences [][]string      `json:"sequences"`
	Steps     int             `json:"steps"`
	Facts     json.RawMessage `json:"facts"`
	Result    json.RawMessage `json:"result"`
}

// NewChainCommand creates the chain command.
func NewChainCommand(rootOpts *RootOptions) *cobra.Command {
	return newChainCommand(&ChainOptions{RootOptions: rootOpts})
}

func newChainCommand(opts *ChainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <rules> <facts-file>",
		Short: "Evaluate a list of facts in order",
		Long: `Evaluate every fact of a list, one after another.

Without --seed each fact starts from a fresh accumulator and the output
holds one result per fact. With --seed the accumulator is threaded: the
seed starts the first fact and each fact's final accumulator starts the
next.

A file holding a single fact (not a list) is evaluated as a chain of one.

Examples:
  fixpoint chain ./rules ledger.yaml --seed 0
  fixpoint chain ./rules.yaml orders.json --db ./runs.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(opts, args[0], args[1], cmd)
		},
	}

	addEngineFlags(cmd, &opts.EngineFlags)
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the run to this SQLite run log")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print every evaluated step to stderr")
	cmd.Flags().BoolVar(&opts.Value, "value", false, "print only the result")

	return cmd
}

func runChain(opts *ChainOptions, rulesPath, factsPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var extra []engine.EngineOption
	if opts.Trace {
		extra = append(extra, engine.WithTrace(stepPrinter(formatter.GetErrWriter(), true)))
	}
	l, err := loadEngine(rulesPath, opts.EngineFlags, extra...)
	if err != nil {
		return reportError(formatter, err)
	}
	facts, err := loadFacts(factsPath)
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

	id := runs.nextID()
	out, err := l.engine.Chain(ctx, facts, seed)
	if err != nil {
		if _, logErr := runs.write(ctx, store.FailedRun(id, store.KindChain, l.ruleset.Hash, facts, err)); logErr != nil {
			return reportError(formatter, logErr)
		}
		_ = formatter.EvaluationError(err, id)
		return codedError(ExitFailure, evaluationCode(err), "evaluation failed", err)
	}

	run := store.ChainRun(id, l.ruleset.Hash, facts, out)
	if _, err := runs.write(ctx, run); err != nil {
		return reportError(formatter, err)
	}

	result := ChainOutput{
		RunID:     id,
		Threaded:  out.Threaded,
		Sequences: out.Sequences,
		Steps:     out.Steps,
		Facts:     rawValue(run.Output),
		Result:    rawValue(run.Result),
	}
	if opts.Value {
		return outputValue(formatter, result.Result)
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputChainText(formatter.Writer, result)
	return nil
}

func outputChainText(w io.Writer, r ChainOutput) {
	fmt.Fprintf(w, "✓ %d fact(s) evaluated in %d step(s)\n", len(r.Sequences), r.Steps)
	for i, seq := range r.Sequences {
		fmt.Fprintf(w, "  [%d] %s\n", i, strings.Join(seq, ", "))
	}
	fmt.Fprintf(w, "Facts: %s\n", r.Facts)
	if r.Threaded {
		fmt.Fprintf(w, "Result: %s\n", r.Result)
	} else {
		fmt.Fprintf(w, "Results: %s\n", r.Result)
	}
	if r.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", r.RunID)
	}
}
