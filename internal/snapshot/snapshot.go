// Package snapshot makes structural copies of fact graphs.
//
// A copy shares no mutable substructure with its source, and aliasing is
// preserved: every node reachable along several paths, including through a
// cycle, maps to exactly one node in the copy.
package snapshot

import (
	"regexp"

	"github.com/roach88/fixpoint/internal/fact"
)

// Cloner copies fact graphs. The identity map persists across calls, so
// several roots cloned with one Cloner keep the aliasing they had between
// them. A Cloner is not safe for concurrent use.
type Cloner struct {
	seen map[fact.Value]fact.Value
}

// NewCloner returns a Cloner with an empty identity map.
func NewCloner() *Cloner {
	return &Cloner{seen: make(map[fact.Value]fact.Value)}
}

// Clone returns a deep copy of v using a fresh identity map.
func Clone(v fact.Value) fact.Value {
	return NewCloner().Clone(v)
}

// Clone returns the copy of v.
//
// Decorators are resolved to their node first, so the copy never contains
// a decorator. Scalars, Opaque values and Value implementations outside the
// fact package are atomic and returned unchanged. Every other node gets a
// destination of the same kind, registered before its children are copied.
func (c *Cloner) Clone(v fact.Value) fact.Value {
	v = fact.Resolve(v)
	if v == nil {
		return nil
	}
	if dst, ok := c.seen[v]; ok {
		return dst
	}

	switch src := v.(type) {
	case *fact.Bytes:
		dst := fact.NewBytes(src.Bytes())
		c.seen[v] = dst
		return dst
	case *fact.Pattern:
		dst := fact.PatternOf(regexp.MustCompile(src.Source()))
		c.seen[v] = dst
		return dst
	case fact.Time:
		return fact.NewTime(src.Time)
	case *fact.List:
		dst := fact.NewList()
		c.seen[v] = dst
		for _, item := range src.Values() {
			dst.Append(c.Clone(item))
		}
		return dst
	case *fact.Record:
		dst := fact.NewRecord()
		c.seen[v] = dst
		for _, k := range src.Keys() {
			field, _ := src.Get(k)
			dst.Set(k, c.Clone(field))
		}
		return dst
	case *fact.Map:
		dst := fact.NewMap()
		c.seen[v] = dst
		for _, k := range src.Keys() {
			val, _ := src.Get(k)
			dst.Set(k, c.Clone(val))
		}
		return dst
	case *fact.Set:
		dst := fact.NewSet()
		c.seen[v] = dst
		for _, item := range src.Values() {
			dst.Add(c.Clone(item))
		}
		return dst
	default:
		return v
	}
}
