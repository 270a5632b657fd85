package store

import (
	"context"
	"fmt"

	"github.com/roach88/fixpoint/internal/fact"
)

// WriteRun appends a run and its firings in one transaction and returns
// the seq assigned to it.
//
// Input, Output and Result are stored as canonical JSON. A value that has
// no canonical form (a cycle, an opaque value, NaN) fails the write before
// anything is inserted. Writing an ID that already exists is an error.
func (s *Store) WriteRun(ctx context.Context, r Run) (int64, error) {
	input, err := encodeValue(fact.DomainFact, r.Input)
	if err != nil {
		return 0, fmt.Errorf("write run: input: %w", err)
	}
	output, err := encodeValue(fact.DomainFact, r.Output)
	if err != nil {
		return 0, fmt.Errorf("write run: output: %w", err)
	}
	result, err := encodeValue(fact.DomainResult, r.Result)
	if err != nil {
		return 0, fmt.Errorf("write run: result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, kind, ruleset_hash, input, input_hash, output, output_hash, result, result_hash, steps, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		seq,
		string(r.Kind),
		r.RulesetHash,
		input.json,
		input.digest,
		output.json,
		output.digest,
		result.json,
		result.digest,
		r.Steps,
		r.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("write run %s: %w", r.ID, err)
	}

	for _, f := range r.Firings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO firings (run_id, seq, fact_index, rule)
			VALUES (?, ?, ?, ?)
		`, r.ID, f.Seq, f.FactIndex, f.Rule)
		if err != nil {
			return 0, fmt.Errorf("write run %s: firing %d: %w", r.ID, f.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}
