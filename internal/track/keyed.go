package track

import "github.com/roach88/fixpoint/internal/fact"

// Map decorates a *fact.Map.
type Map struct {
	t    *Tracker
	node *fact.Map
}

var _ fact.MapValue = (*Map)(nil)

func (m *Map) Kind() fact.Kind         { return fact.KindMap }
func (m *Map) Unwrap() fact.Value      { return m.node }
func (m *Map) Tracker() *Tracker       { return m.t }
func (m *Map) Len() int                { return m.node.Len() }
func (m *Map) Has(key fact.Value) bool { return m.node.Has(key) }

// Keys returns the keys, tracked.
func (m *Map) Keys() []fact.Value {
	ks := m.node.Keys()
	for i, k := range ks {
		ks[i] = m.t.Track(k)
	}
	return ks
}

// Get returns the entry value, tracked.
func (m *Map) Get(key fact.Value) (fact.Value, bool) {
	v, ok := m.node.Get(key)
	return m.t.Track(v), ok
}

// Set stores v under key. A present key already holding v is not a change.
func (m *Map) Set(key, v fact.Value) {
	key, v = store(key), store(v)
	if old, ok := m.node.Get(key); ok && fact.Same(old, v) {
		return
	}
	m.node.Set(key, v)
	m.t.touch()
}

func (m *Map) Delete(key fact.Value) bool {
	if !m.node.Delete(key) {
		return false
	}
	m.t.touch()
	return true
}

func (m *Map) Clear() {
	if m.node.Len() == 0 {
		return
	}
	m.node.Clear()
	m.t.touch()
}

// Set decorates a *fact.Set.
type Set struct {
	t    *Tracker
	node *fact.Set
}

var _ fact.SetValue = (*Set)(nil)

func (s *Set) Kind() fact.Kind       { return fact.KindSet }
func (s *Set) Unwrap() fact.Value    { return s.node }
func (s *Set) Tracker() *Tracker     { return s.t }
func (s *Set) Len() int              { return s.node.Len() }
func (s *Set) Has(v fact.Value) bool { return s.node.Has(v) }

// Values returns the members, tracked.
func (s *Set) Values() []fact.Value {
	vs := s.node.Values()
	for i, v := range vs {
		vs[i] = s.t.Track(v)
	}
	return vs
}

func (s *Set) Add(v fact.Value) bool {
	if !s.node.Add(store(v)) {
		return false
	}
	s.t.touch()
	return true
}

func (s *Set) Delete(v fact.Value) bool {
	if !s.node.Delete(v) {
		return false
	}
	s.t.touch()
	return true
}

func (s *Set) Clear() {
	if s.node.Len() == 0 {
		return
	}
	s.node.Clear()
	s.t.touch()
}
