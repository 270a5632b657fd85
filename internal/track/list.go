package track

import "github.com/roach88/fixpoint/internal/fact"

// List decorates a *fact.List. Operations that change the length always
// count as a change.
type List struct {
	t    *Tracker
	node *fact.List
}

var _ fact.ListValue = (*List)(nil)

func (l *List) Kind() fact.Kind    { return fact.KindList }
func (l *List) Unwrap() fact.Value { return l.node }
func (l *List) Tracker() *Tracker  { return l.t }
func (l *List) Len() int           { return l.node.Len() }

// At returns the element at i, tracked.
func (l *List) At(i int) fact.Value { return l.t.Track(l.node.At(i)) }

// Values returns the elements, tracked.
func (l *List) Values() []fact.Value {
	vs := l.node.Values()
	for i, v := range vs {
		vs[i] = l.t.Track(v)
	}
	return vs
}

func (l *List) SetAt(i int, v fact.Value) {
	if i < 0 {
		return
	}
	v = store(v)
	if i < l.node.Len() && fact.Same(l.node.At(i), v) {
		return
	}
	l.node.SetAt(i, v)
	l.t.touch()
}

func (l *List) Append(vs ...fact.Value) {
	if len(vs) == 0 {
		return
	}
	for _, v := range vs {
		l.node.Append(store(v))
	}
	l.t.touch()
}

func (l *List) Insert(i int, v fact.Value) {
	l.node.Insert(i, store(v))
	l.t.touch()
}

// RemoveAt deletes the element at i and returns it, tracked.
func (l *List) RemoveAt(i int) fact.Value {
	if i < 0 || i >= l.node.Len() {
		return nil
	}
	v := l.node.RemoveAt(i)
	l.t.touch()
	return l.t.Track(v)
}

func (l *List) Clear() {
	if l.node.Len() == 0 {
		return
	}
	l.node.Clear()
	l.t.touch()
}
