package fact

import (
	"math"
	"slices"
)

// RecordValue is the read/write surface shared by *Record and its decorators.
type RecordValue interface {
	Value
	Len() int
	Keys() []string
	Get(key string) (Value, bool)
	Has(key string) bool
	Set(key string, v Value)
	Delete(key string) bool
	Clear()
}

// ListValue is the read/write surface shared by *List and its decorators.
type ListValue interface {
	Value
	Len() int
	At(i int) Value
	Values() []Value
	SetAt(i int, v Value)
	Append(vs ...Value)
	Insert(i int, v Value)
	RemoveAt(i int) Value
	Clear()
}

// MapValue is the read/write surface shared by *Map and its decorators.
type MapValue interface {
	Value
	Len() int
	Keys() []Value
	Get(key Value) (Value, bool)
	Has(key Value) bool
	Set(key, v Value)
	Delete(key Value) bool
	Clear()
}

// SetValue is the read/write surface shared by *Set and its decorators.
type SetValue interface {
	Value
	Len() int
	Values() []Value
	Has(v Value) bool
	Add(v Value) bool
	Delete(v Value) bool
	Clear()
}

// Pair is a field for record construction.
type Pair struct {
	Key   string
	Value Value
}

// F is shorthand for a record field.
// Example: NewRecord(F("year", String("three")), F("age", Int(20)))
func F(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// Record is a string-keyed object. Field order is insertion order.
type Record struct {
	keys   []string
	fields map[string]Value
}

// NewRecord builds a record from fields. Later duplicates overwrite earlier ones.
func NewRecord(pairs ...Pair) *Record {
	r := &Record{fields: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		r.Set(p.Key, p.Value)
	}
	return r
}

func (*Record) Kind() Kind { return KindRecord }

func (r *Record) Len() int { return len(r.keys) }

// Keys returns field names in insertion order.
func (r *Record) Keys() []string { return slices.Clone(r.keys) }

func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.fields[key]
	return v, ok
}

func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

func (r *Record) Set(key string, v Value) {
	if r.fields == nil {
		r.fields = make(map[string]Value)
	}
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = v
}

func (r *Record) Delete(key string) bool {
	if _, ok := r.fields[key]; !ok {
		return false
	}
	delete(r.fields, key)
	r.keys = slices.DeleteFunc(r.keys, func(k string) bool { return k == key })
	return true
}

func (r *Record) Clear() {
	r.keys = nil
	r.fields = make(map[string]Value)
}

// List is an ordered sequence.
type List struct {
	items []Value
}

// NewList builds a list from vs.
func NewList(vs ...Value) *List {
	return &List{items: slices.Clone(vs)}
}

func (*List) Kind() Kind { return KindList }

func (l *List) Len() int { return len(l.items) }

// At returns the element at i, or nil when i is out of range.
func (l *List) At(i int) Value {
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

func (l *List) Values() []Value { return slices.Clone(l.items) }

// SetAt stores v at i, growing the list with undefined elements if needed.
func (l *List) SetAt(i int, v Value) {
	if i < 0 {
		return
	}
	for len(l.items) <= i {
		l.items = append(l.items, nil)
	}
	l.items[i] = v
}

func (l *List) Append(vs ...Value) { l.items = append(l.items, vs...) }

// Insert places v before index i. i is clamped to [0, Len()].
func (l *List) Insert(i int, v Value) {
	i = min(max(i, 0), len(l.items))
	l.items = slices.Insert(l.items, i, v)
}

// RemoveAt deletes and returns the element at i, or nil when out of range.
func (l *List) RemoveAt(i int) Value {
	if i < 0 || i >= len(l.items) {
		return nil
	}
	v := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	return v
}

func (l *List) Clear() { l.items = nil }

// Entry is a key/value pair for map construction.
type Entry struct {
	Key   Value
	Value Value
}

// E is shorthand for a map entry.
func E(key, value Value) Entry {
	return Entry{Key: key, Value: value}
}

// Map is a keyed container whose keys are arbitrary comparable Values.
// Keys match as described by KeyOf. Entry order is insertion order.
type Map struct {
	keys    []Value
	entries map[any]mapEntry
}

type mapEntry struct {
	key   Value
	value Value
}

// NewMap builds a map from entries.
func NewMap(entries ...Entry) *Map {
	m := &Map{entries: make(map[any]mapEntry, len(entries))}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

func (*Map) Kind() Kind { return KindMap }

func (m *Map) Len() int { return len(m.keys) }

func (m *Map) Keys() []Value { return slices.Clone(m.keys) }

func (m *Map) Get(key Value) (Value, bool) {
	e, ok := m.entries[KeyOf(key)]
	return e.value, ok
}

func (m *Map) Has(key Value) bool {
	_, ok := m.entries[KeyOf(key)]
	return ok
}

// Set stores v under key. An existing entry with a matching key keeps its
// original key value and position.
func (m *Map) Set(key, v Value) {
	key = Resolve(key)
	k := KeyOf(key)
	if m.entries == nil {
		m.entries = make(map[any]mapEntry)
	}
	e, ok := m.entries[k]
	if !ok {
		m.keys = append(m.keys, key)
		e.key = key
	}
	e.value = v
	m.entries[k] = e
}

func (m *Map) Delete(key Value) bool {
	k := KeyOf(key)
	e, ok := m.entries[k]
	if !ok {
		return false
	}
	delete(m.entries, k)
	m.keys = slices.DeleteFunc(m.keys, func(x Value) bool { return x == e.key })
	return true
}

func (m *Map) Clear() {
	m.keys = nil
	m.entries = make(map[any]mapEntry)
}

// Set is a unique-element container. Membership follows KeyOf, so
// containers are members by identity. Iteration order is insertion order.
type Set struct {
	items   []Value
	members map[any]Value
}

// NewSet builds a set from vs, dropping duplicates.
func NewSet(vs ...Value) *Set {
	s := &Set{members: make(map[any]Value, len(vs))}
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

func (*Set) Kind() Kind { return KindSet }

func (s *Set) Len() int { return len(s.items) }

func (s *Set) Values() []Value { return slices.Clone(s.items) }

func (s *Set) Has(v Value) bool {
	_, ok := s.members[KeyOf(v)]
	return ok
}

// Add inserts v and reports whether it was not already present.
func (s *Set) Add(v Value) bool {
	v = Resolve(v)
	k := KeyOf(v)
	if s.members == nil {
		s.members = make(map[any]Value)
	}
	if _, ok := s.members[k]; ok {
		return false
	}
	s.members[k] = v
	s.items = append(s.items, v)
	return true
}

// Delete removes v and reports whether it was present.
func (s *Set) Delete(v Value) bool {
	k := KeyOf(v)
	stored, ok := s.members[k]
	if !ok {
		return false
	}
	delete(s.members, k)
	s.items = slices.DeleteFunc(s.items, func(x Value) bool { return x == stored })
	return true
}

func (s *Set) Clear() {
	s.items = nil
	s.members = make(map[any]Value)
}

// nanKey stands in for every NaN so that NaN matches itself.
type nanKey struct{}

// timeKey identifies an instant regardless of location.
type timeKey struct {
	sec  int64
	nsec int
}

// KeyOf returns the lookup key Maps and Sets use for v.
//
// Keys follow same-value-zero: NaN matches NaN, -0 matches 0, an integral
// Float matches the equal Int, and Times match by instant. Containers match
// by identity.
func KeyOf(v Value) any {
	v = Resolve(v)
	switch val := v.(type) {
	case Float:
		f := float64(val)
		switch {
		case math.IsNaN(f):
			return nanKey{}
		case f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64:
			return Int(int64(f))
		}
		return val
	case Time:
		return timeKey{sec: val.Unix(), nsec: val.Nanosecond()}
	}
	return v
}
