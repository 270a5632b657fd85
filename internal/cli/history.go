package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fixpoint/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - show one run with its firings
	Stats    bool   // show firing counts per rule instead of runs
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	Created string `json:"created,omitempty"`
	Steps   int    `json:"steps"`
	Ruleset string `json:"ruleset_hash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FiringOutput is one fired rule of a run.
type FiringOutput struct {
	Seq  int64  `json:"seq"`
	Fact int    `json:"fact"`
	Rule string `json:"rule"`
}

// RunDetail is a run with its facts, accumulator and firings.
type RunDetail struct {
	RunSummary
	Input   json.RawMessage `json:"input"`
	Output  json.RawMessage `json:"output"`
	Result  json.RawMessage `json:"result"`
	Firings []FiringOutput  `json:"firings"`
}

// RuleStat is the firing count of one rule across the log.
type RuleStat struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the run log",
		Long: `Query the SQLite run log written by run and chain --db.

Without flags every run is listed in the order it was logged. --run shows
one run with its input, final fact, accumulator and fired rules. --stats
counts firings per rule across all runs.

Examples:
  fixpoint history --db ./runs.db
  fixpoint history --db ./runs.db --run 0190a5f2-...
  fixpoint history --db ./runs.db --stats --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run and its firings")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "count firings per rule")
	cmd.MarkFlagsMutuallyExclusive("run", "stats")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	// Opening would create an empty log; a missing file is a typo.
	if _, err := os.Stat(opts.Database); err != nil {
		return reportError(formatter, codedError(ExitCommandError, ErrCodeStore, "database not found", err))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return reportError(formatter, codedError(ExitCommandError, ErrCodeStore, "failed to open database", err))
	}
	defer st.Close()

	ctx := cmd.Context()
	switch {
	case opts.Stats:
		counts, err := st.RuleCounts(ctx)
		if err != nil {
			return reportError(formatter, codedError(ExitCommandError, ErrCodeStore, "failed to count firings", err))
		}
		stats := make([]RuleStat, len(counts))
		for i, c := range counts {
			stats[i] = RuleStat{Rule: c.Rule, Count: c.Count}
		}
		if opts.Format == "json" {
			return formatter.Success(stats)
		}
		outputStatsText(formatter.Writer, stats)
		return nil

	case opts.RunID != "":
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return reportError(formatter, codedError(ExitCommandError, ErrCodeRunNotFound, "unknown run", err))
		}
		if err != nil {
			return reportError(formatter, codedError(ExitCommandError, ErrCodeStore, "failed to read run", err))
		}
		firings, err := st.ReadFirings(ctx, run.ID)
		if err != nil {
			return reportError(formatter, codedError(ExitCommandError, ErrCodeStore, "failed to read firings", err))
		}
		detail := buildRunDetail(run, firings)
		if opts.Format == "json" {
			return formatter.Success(detail)
		}
		outputRunDetailText(formatter.Writer, detail)
		return nil

	default:
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			return reportError(formatter, codedError(ExitCommandError, ErrCodeStore, "failed to read runs", err))
		}
		summaries := make([]RunSummary, len(runs))
		for i, r := range runs {
			summaries[i] = summarize(r)
		}
		if opts.Format == "json" {
			return formatter.Success(summaries)
		}
		outputRunsText(formatter.Writer, summaries)
		return nil
	}
}

func summarize(r store.Run) RunSummary {
	s := RunSummary{
		ID:      r.ID,
		Seq:     r.Seq,
		Kind:    string(r.Kind),
		Steps:   r.Steps,
		Ruleset: r.RulesetHash,
		Error:   r.Error,
	}
	if t, ok := r.Created(); ok {
		s.Created = t.Format(time.RFC3339)
	}
	return s
}

func buildRunDetail(r store.Run, firings []store.Firing) RunDetail {
	d := RunDetail{
		RunSummary: summarize(r),
		Input:      rawValue(r.Input),
		Output:     rawValue(r.Output),
		Result:     rawValue(r.Result),
		Firings:    make([]FiringOutput, len(firings)),
	}
	for i, f := range firings {
		d.Firings[i] = FiringOutput{Seq: f.Seq, Fact: f.FactIndex, Rule: f.Rule}
	}
	return d
}

func outputRunsText(w io.Writer, runs []RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs logged.")
		return
	}
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%4d  %s  %-7s  %3d step(s)  %s", r.Seq, r.ID, r.Kind, r.Steps, status)
		if r.Created != "" {
			fmt.Fprintf(w, "  %s", r.Created)
		}
		fmt.Fprintln(w)
	}
}

func outputRunDetailText(w io.Writer, d RunDetail) {
	fmt.Fprintf(w, "Run %s (%s, %d step(s))\n", d.ID, d.Kind, d.Steps)
	if d.Created != "" {
		fmt.Fprintf(w, "Created: %s\n", d.Created)
	}
	if d.Ruleset != "" {
		fmt.Fprintf(w, "Rule set: %s\n", d.Ruleset)
	}
	fmt.Fprintf(w, "Input: %s\n", d.Input)
	if d.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", d.Error)
		return
	}
	fmt.Fprintf(w, "Output: %s\n", d.Output)
	fmt.Fprintf(w, "Result: %s\n", d.Result)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Firings:")
	if len(d.Firings) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, f := range d.Firings {
		fmt.Fprintf(w, "  [%d] fact %d: %s\n", f.Seq, f.Fact, f.Rule)
	}
}

func outputStatsText(w io.Writer, stats []RuleStat) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No firings logged.")
		return
	}
	for _, s := range stats {
		fmt.Fprintf(w, "%6d  %s\n", s.Count, s.Rule)
	}
}
