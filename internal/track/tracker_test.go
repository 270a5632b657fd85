package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixpoint/internal/fact"
	"github.com/roach88/fixpoint/internal/snapshot"
)

func TestTrack_Scalars(t *testing.T) {
	tr := New()
	assert.Equal(t, fact.Int(1), tr.Track(fact.Int(1)))
	assert.Nil(t, tr.Track(nil))
	b := fact.NewBytes([]byte("x"))
	assert.Same(t, b, tr.Track(b))
}

func TestTrack_NeverDoubleWraps(t *testing.T) {
	tr := New()
	r := fact.NewRecord()

	first := tr.Track(r)
	second := tr.Track(r)
	third := tr.Track(first)

	assert.Same(t, first, second)
	assert.Same(t, first, third)
	assert.Same(t, r, first.(Mutable).Unwrap())
}

func TestTrack_ForeignDecoratorRetracked(t *testing.T) {
	a, b := New(), New()
	r := fact.NewRecord()

	wa := a.Track(r)
	wb := b.Track(wa)

	assert.Same(t, b, wb.(Mutable).Tracker())
	assert.Same(t, r, wb.(Mutable).Unwrap())
}

func TestTrack_ReadsAreTransparent(t *testing.T) {
	src := fact.NewRecord(
		fact.F("name", fact.String("x")),
		fact.F("nested", fact.NewRecord(fact.F("n", fact.Int(1)))),
	)
	tr := New()
	w := tr.Track(src).(*Record)

	name, ok := w.Get("name")
	require.True(t, ok)
	assert.Equal(t, fact.String("x"), name)

	nested, _ := w.Get("nested")
	require.IsType(t, &Record{}, nested)
	n, _ := nested.(*Record).Get("n")
	assert.Equal(t, fact.Int(1), n)

	assert.True(t, fact.Equal(src, w))
	assert.False(t, tr.Modified(), "reads never set the flag")
}

func TestTrack_CyclesStayFinite(t *testing.T) {
	src := fact.NewRecord()
	src.Set("self", src)

	tr := New()
	w := tr.Track(src).(*Record)
	self, _ := w.Get("self")
	assert.Same(t, w, self)

	again, _ := self.(*Record).Get("self")
	assert.Same(t, w, again)
}

func TestTrack_SharedNodesShareDecorator(t *testing.T) {
	shared := fact.NewList(fact.Int(1))
	src := fact.NewRecord(fact.F("a", shared), fact.F("b", shared))

	tr := New()
	w := tr.Track(src).(*Record)
	a, _ := w.Get("a")
	b, _ := w.Get("b")
	assert.Same(t, a, b)
}

func TestTracker_Reset(t *testing.T) {
	tr := New()
	w := tr.Track(fact.NewRecord()).(*Record)
	w.Set("x", fact.Int(1))
	require.True(t, tr.Modified())

	tr.Reset()
	assert.False(t, tr.Modified())
}

func TestUntrack_PlainData(t *testing.T) {
	src := fact.NewRecord(fact.F("tags", fact.NewSet(fact.String("a"))))
	tr := New()
	w := tr.Track(src).(*Record)
	tags, _ := w.Get("tags")
	tags.(*Set).Add(fact.String("b"))

	out := Untrack(w)
	require.IsType(t, &fact.Record{}, out)
	outTags, _ := out.(*fact.Record).Get("tags")
	require.IsType(t, &fact.Set{}, outTags)
	assert.Equal(t, 2, outTags.(*fact.Set).Len())

	// The result is detached from the tracker.
	tr.Reset()
	outTags.(*fact.Set).Add(fact.String("c"))
	assert.False(t, tr.Modified())
}

func TestUntrack_RoundTripEqualsClone(t *testing.T) {
	x := fact.NewRecord(
		fact.F("list", fact.NewList(fact.Int(1), fact.NewRecord(fact.F("k", fact.String("v"))))),
		fact.F("map", fact.NewMap(fact.E(fact.Int(1), fact.NewSet(fact.Bool(true))))),
	)
	cloned := snapshot.Clone(x)

	assert.True(t, fact.Equal(cloned, Untrack(New().Track(cloned))))
}

func TestUntracker_SharedAcrossRoots(t *testing.T) {
	shared := fact.NewRecord()
	tr := New()
	a := tr.Track(fact.NewList(shared))
	b := tr.Track(fact.NewRecord(fact.F("ref", shared)))

	u := NewUntracker()
	ua := u.Untrack(a).(*fact.List)
	ub := u.Untrack(b).(*fact.Record)

	ref, _ := ub.Get("ref")
	assert.Same(t, ua.At(0), ref)
}
