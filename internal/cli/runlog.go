package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/fixpoint/internal/store"
)

// runLog appends evaluations to the SQLite run log. A nil *runLog records
// nothing, which is what commands get without --db.
type runLog struct {
	st  *store.Store
	ids store.IDGenerator
}

// openRunLog opens the database at path, creating it if needed. An empty
// path returns nil.
func openRunLog(path string, ids store.IDGenerator) (*runLog, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, codedError(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	return &runLog{st: st, ids: ids}, nil
}

// nextID returns the ID for the next run, or "" when nothing is recorded.
func (l *runLog) nextID() string {
	if l == nil {
		return ""
	}
	return l.ids.Generate()
}

// write appends run and returns its ID.
func (l *runLog) write(ctx context.Context, run store.Run) (string, error) {
	if l == nil {
		return "", nil
	}
	if _, err := l.st.WriteRun(ctx, run); err != nil {
		return "", codedError(ExitCommandError, ErrCodeStore, "failed to log run", err)
	}
	slog.Debug("run logged", "run", run.ID, "kind", run.Kind, "firings", len(run.Firings))
	return run.ID, nil
}

func (l *runLog) Close() {
	if l == nil {
		return
	}
	if err := l.st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
