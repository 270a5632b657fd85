package track

import "github.com/roach88/fixpoint/internal/fact"

// Record decorates a *fact.Record.
type Record struct {
	t    *Tracker
	node *fact.Record
}

var _ fact.RecordValue = (*Record)(nil)

func (r *Record) Kind() fact.Kind     { return fact.KindRecord }
func (r *Record) Unwrap() fact.Value  { return r.node }
func (r *Record) Tracker() *Tracker   { return r.t }
func (r *Record) Len() int            { return r.node.Len() }
func (r *Record) Keys() []string      { return r.node.Keys() }
func (r *Record) Has(key string) bool { return r.node.Has(key) }

// Get returns the field, tracked.
func (r *Record) Get(key string) (fact.Value, bool) {
	v, ok := r.node.Get(key)
	return r.t.Track(v), ok
}

// Set stores v under key. Storing the value already held is not a change;
// storing undefined under an absent key is not a change either.
func (r *Record) Set(key string, v fact.Value) {
	v = store(v)
	old, ok := r.node.Get(key)
	if (ok && fact.Same(old, v)) || (!ok && v == nil) {
		return
	}
	r.node.Set(key, v)
	r.t.touch()
}

func (r *Record) Delete(key string) bool {
	if !r.node.Delete(key) {
		return false
	}
	r.t.touch()
	return true
}

func (r *Record) Clear() {
	if r.node.Len() == 0 {
		return
	}
	r.node.Clear()
	r.t.touch()
}
