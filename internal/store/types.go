package store

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/fixpoint/internal/fact"
)

// RunKind distinguishes single executions from chains.
type RunKind string

const (
	KindExecute RunKind = "execute"
	KindChain   RunKind = "chain"
)

// Run is one logged Execute or Chain call.
//
// For a chain, Input is the list of facts, Output the list of final facts
// and Result either the threaded accumulator or the list of per-fact
// accumulators.
type Run struct {
	ID          string
	Seq         int64
	Kind        RunKind
	RulesetHash string

	Input  fact.Value
	Output fact.Value
	Result fact.Value

	// Digests are computed by WriteRun and filled by the read methods.
	InputHash  string
	OutputHash string
	ResultHash string

	Steps int

	// Error is the failure message of a run that did not complete.
	Error string

	// Firings is written by WriteRun. Read methods leave it nil; use
	// ReadFirings.
	Firings []Firing
}

// Firing records one rule that fired during a run.
type Firing struct {
	Seq int64
	// FactIndex is the position of the fact within a chain, 0 for Execute.
	FactIndex int
	Rule      string
}

// RuleCount is the number of firings of one rule across all runs.
type RuleCount struct {
	Rule  string
	Count int
}

// FiringsFromSequences numbers the firing sequences of a chain (or the
// single sequence of an execution) into Firings.
func FiringsFromSequences(sequences ...[]string) []Firing {
	var out []Firing
	for i, seq := range sequences {
		for _, rule := range seq {
			out = append(out, Firing{Seq: int64(len(out) + 1), FactIndex: i, Rule: rule})
		}
	}
	return out
}

// Created returns the creation time embedded in a UUIDv7 run ID.
// ok is false for IDs that are not UUIDv7.
func (r Run) Created() (t time.Time, ok bool) {
	id, err := uuid.Parse(r.ID)
	if err != nil || id.Version() != 7 {
		return time.Time{}, false
	}
	ms := int64(binary.BigEndian.Uint64(id[:8]) >> 16)
	return time.UnixMilli(ms).UTC(), true
}
