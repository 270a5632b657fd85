// Package track observes writes to a fact graph.
//
// A Tracker wraps container nodes in decorators that forward reads and
// intercept writes. Any write that changes observable state raises a single
// modified flag; writes that store what is already there are suppressed so
// they cannot cause spurious restarts of the evaluation loop.
//
// Children are wrapped lazily when read. The Tracker keeps an identity map
// from node to decorator, so a node reached along several paths, or through
// a cycle, always yields the same decorator and is never wrapped twice.
package track

import (
	"github.com/roach88/fixpoint/internal/fact"
	"github.com/roach88/fixpoint/internal/snapshot"
)

// Mutable is the capability every decorator provides: it is a fact value,
// it stands in for a node, and it reports to a Tracker.
type Mutable interface {
	fact.Value
	fact.Unwrapper
	Tracker() *Tracker
}

// Tracker owns the modified flag for one evaluation.
// A Tracker is not safe for concurrent use.
type Tracker struct {
	modified   bool
	decorators map[fact.Value]Mutable
}

// New returns a Tracker with a clear flag.
func New() *Tracker {
	return &Tracker{decorators: make(map[fact.Value]Mutable)}
}

// Modified reports whether any observed write changed state since the last Reset.
func (t *Tracker) Modified() bool { return t.modified }

// Reset clears the modified flag.
func (t *Tracker) Reset() { t.modified = false }

func (t *Tracker) touch() { t.modified = true }

// Track returns the decorator for v when v is a container, and v otherwise.
// Decorators belonging to this Tracker are returned as is; those belonging
// to another Tracker are unwrapped and re-tracked here.
func (t *Tracker) Track(v fact.Value) fact.Value {
	if m, ok := v.(Mutable); ok && m.Tracker() == t {
		return m
	}
	node := fact.Resolve(v)
	if node == nil {
		return v
	}
	if d, ok := t.decorators[node]; ok {
		return d
	}

	var d Mutable
	switch n := node.(type) {
	case *fact.Record:
		d = &Record{t: t, node: n}
	case *fact.List:
		d = &List{t: t, node: n}
	case *fact.Map:
		d = &Map{t: t, node: n}
	case *fact.Set:
		d = &Set{t: t, node: n}
	default:
		return node
	}
	t.decorators[node] = d
	return d
}

// store prepares a value for writing into a node: decorators never end up
// inside the underlying graph.
func store(v fact.Value) fact.Value {
	return fact.Resolve(v)
}

// Untracker turns tracked graphs back into plain data. Values untracked by
// the same Untracker keep the aliasing they had between them.
type Untracker struct {
	cloner *snapshot.Cloner
}

// NewUntracker returns an Untracker with an empty identity map.
func NewUntracker() *Untracker {
	return &Untracker{cloner: snapshot.NewCloner()}
}

// Untrack returns plain data of the same kinds as v with no decorators and
// no link back to any Tracker.
func (u *Untracker) Untrack(v fact.Value) fact.Value {
	return u.cloner.Clone(v)
}

// Untrack is shorthand for NewUntracker().Untrack(v).
func Untrack(v fact.Value) fact.Value {
	return NewUntracker().Untrack(v)
}
