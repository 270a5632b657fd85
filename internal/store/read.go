package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by ReadRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, kind, ruleset_hash, input, input_hash, output, output_hash, result, result_hash, steps, error`

// ReadRuns returns all runs ordered by seq.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the run with the given ID, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ReadFirings returns the firings of a run in firing order.
//
// Returns an empty slice (not nil) if the run fired nothing or does not exist.
func (s *Store) ReadFirings(ctx context.Context, runID string) ([]Firing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, fact_index, rule
		FROM firings
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []Firing{}
	for rows.Next() {
		var f Firing
		if err := rows.Scan(&f.Seq, &f.FactIndex, &f.Rule); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	return firings, nil
}

// RuleCounts returns how often each rule fired across the whole log,
// most frequent first, ties broken by name.
func (s *Store) RuleCounts(ctx context.Context) ([]RuleCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, COUNT(*) AS n
		FROM firings
		GROUP BY rule
		ORDER BY n DESC, rule COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rule counts: %w", err)
	}
	defer rows.Close()

	counts := []RuleCount{}
	for rows.Next() {
		var c RuleCount
		if err := rows.Scan(&c.Rule, &c.Count); err != nil {
			return nil, fmt.Errorf("scan rule count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule counts: %w", err)
	}
	return counts, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r                     Run
		kind                  string
		input, output, result string
	)
	err := row.Scan(
		&r.ID,
		&r.Seq,
		&kind,
		&r.RulesetHash,
		&input,
		&r.InputHash,
		&output,
		&r.OutputHash,
		&result,
		&r.ResultHash,
		&r.Steps,
		&r.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Kind = RunKind(kind)

	if r.Input, err = decodeValue(input); err != nil {
		return Run{}, fmt.Errorf("run %s input: %w", r.ID, err)
	}
	if r.Output, err = decodeValue(output); err != nil {
		return Run{}, fmt.Errorf("run %s output: %w", r.ID, err)
	}
	if r.Result, err = decodeValue(result); err != nil {
		return Run{}, fmt.Errorf("run %s result: %w", r.ID, err)
	}
	return r, nil
}
