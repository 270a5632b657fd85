package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/fixpoint/internal/ruleset"
	"github.com/roach88/fixpoint/internal/store"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	EngineFlags
	Database string

	// Debounce is how long the watcher waits after the last change before
	// re-running. Editors often write a file several times per save.
	Debounce time.Duration

	// IDs allows overriding the run ID generator (for testing).
	IDs store.IDGenerator
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return newWatchCommand(&WatchOptions{RootOptions: rootOpts})
}

func newWatchCommand(opts *WatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <rules> <fact-file>",
		Short: "Re-run a fact whenever the rules or the fact change",
		Long: `Evaluate a fact, then evaluate it again every time one of the rule
files, the fact file or the --config file changes.

Failures are reported and watching continues. Press Ctrl-C to stop.

Example:
  fixpoint watch ./rules student.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], args[1], cmd)
		},
	}

	addEngineFlags(cmd, &opts.EngineFlags)
	cmd.Flags().StringVar(&opts.Database, "db", "", "append every run to this SQLite run log")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before re-running")

	return cmd
}

func runWatch(opts *WatchOptions, rulesPath, factPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ctx, stop := signalContext(cmd)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return reportError(formatter, codedError(ExitCommandError, ErrCodeWatchFailed, "failed to create watcher", err))
	}
	defer watcher.Close()

	watched, err := newWatchSet(rulesPath, factPath, opts.Config)
	if err != nil {
		return reportError(formatter, codedError(ExitCommandError, ErrCodeWatchFailed, "failed to list watched files", err))
	}
	// Directories are watched rather than files so that editors that
	// replace a file on save keep being noticed.
	for dir := range watched.dirs() {
		if err := watcher.Add(dir); err != nil {
			return reportError(formatter, codedError(ExitCommandError, ErrCodeWatchFailed, "failed to watch "+dir, err))
		}
	}

	rerun := func() {
		runOpts := &RunOptions{
			RootOptions: opts.RootOptions,
			EngineFlags: opts.EngineFlags,
			Database:    opts.Database,
			IDs:         opts.IDs,
		}
		// Failures have been reported; keep watching.
		if err := runExecute(runOpts, rulesPath, factPath, cmd); err != nil {
			slog.Debug("watched run failed", "error", err)
		}
	}

	rerun()
	formatter.VerboseLog("Watching %d file(s)", len(watched.files))

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched.relevant(event) {
				continue
			}
			slog.Debug("change detected", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(opts.Debounce)
			} else {
				timer.Reset(opts.Debounce)
			}
			pending = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)

		case <-pending:
			pending = nil
			fmt.Fprintln(formatter.GetErrWriter(), "-- change detected, re-running")
			rerun()
		}
	}
}

// watchSet is the set of files whose changes trigger a re-run.
type watchSet struct {
	files map[string]struct{}

	// cueDir is the rules directory of a CUE rule set. Any .cue file in it
	// is relevant, including ones created after watching started.
	cueDir string
}

func newWatchSet(rulesPath, factPath, configPath string) (*watchSet, error) {
	files, err := ruleset.Watched(rulesPath)
	if err != nil {
		return nil, err
	}
	files = append(files, factPath)
	if configPath != "" {
		files = append(files, configPath)
	}

	ws := &watchSet{files: make(map[string]struct{}, len(files))}
	for _, f := range files {
		ws.files[filepath.Clean(f)] = struct{}{}
	}
	if info, err := os.Stat(rulesPath); err == nil && info.IsDir() {
		ws.cueDir = filepath.Clean(rulesPath)
	}
	return ws, nil
}

// dirs returns the directories to register with the watcher.
func (ws *watchSet) dirs() map[string]struct{} {
	dirs := make(map[string]struct{})
	for f := range ws.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	if ws.cueDir != "" {
		dirs[ws.cueDir] = struct{}{}
	}
	return dirs
}

// relevant reports whether event touches a watched file.
func (ws *watchSet) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	if _, ok := ws.files[name]; ok {
		return true
	}
	return ws.cueDir != "" && filepath.Ext(name) == ".cue" && filepath.Dir(name) == ws.cueDir
}
