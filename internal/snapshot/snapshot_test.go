package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixpoint/internal/fact"
)

func sampleFact() *fact.Record {
	return fact.NewRecord(
		fact.F("name", fact.String("ada")),
		fact.F("tags", fact.NewSet(fact.String("a"), fact.String("b"))),
		fact.F("scores", fact.NewList(fact.Int(1), fact.Float(2.5))),
		fact.F("lookup", fact.NewMap(fact.E(fact.Int(1), fact.NewRecord(fact.F("x", fact.Bool(true)))))),
		fact.F("raw", fact.NewBytes([]byte("xyz"))),
		fact.F("when", fact.NewTime(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))),
		fact.F("re", fact.MustPattern(`^a`)),
	)
}

func TestClone_StructurallyEqual(t *testing.T) {
	src := sampleFact()
	dst := Clone(src)

	assert.True(t, fact.Equal(src, dst))
	assert.NotSame(t, src, dst)
}

func TestClone_SharesNoMutableState(t *testing.T) {
	src := sampleFact()
	dst := Clone(src).(*fact.Record)

	dstTags, _ := dst.Get("tags")
	dstTags.(*fact.Set).Add(fact.String("c"))
	dstLookup, _ := dst.Get("lookup")
	inner, _ := dstLookup.(*fact.Map).Get(fact.Int(1))
	inner.(*fact.Record).Set("x", fact.Bool(false))

	srcTags, _ := src.Get("tags")
	assert.False(t, srcTags.(*fact.Set).Has(fact.String("c")))
	srcLookup, _ := src.Get("lookup")
	srcInner, _ := srcLookup.(*fact.Map).Get(fact.Int(1))
	x, _ := srcInner.(*fact.Record).Get("x")
	assert.Equal(t, fact.Bool(true), x)

	srcRaw, _ := src.Get("raw")
	dstRaw, _ := dst.Get("raw")
	assert.NotSame(t, srcRaw, dstRaw)
	srcRe, _ := src.Get("re")
	dstRe, _ := dst.Get("re")
	assert.NotSame(t, srcRe, dstRe)
	assert.Equal(t, srcRe.(*fact.Pattern).Source(), dstRe.(*fact.Pattern).Source())
}

func TestClone_PreservesCycles(t *testing.T) {
	src := fact.NewRecord(fact.F("id", fact.Int(1)))
	src.Set("self", src)
	list := fact.NewList(src)
	src.Set("list", list)
	list.Append(list)

	dst := Clone(src).(*fact.Record)

	self, _ := dst.Get("self")
	assert.Same(t, dst, self, "self reference points at the copy")
	assert.NotSame(t, src, self)

	dstList, _ := dst.Get("list")
	assert.Same(t, dst, dstList.(*fact.List).At(0))
	assert.Same(t, dstList, dstList.(*fact.List).At(1))
}

func TestClone_PreservesAliasing(t *testing.T) {
	shared := fact.NewList(fact.Int(1))
	src := fact.NewRecord(fact.F("a", shared), fact.F("b", shared))

	dst := Clone(src).(*fact.Record)
	a, _ := dst.Get("a")
	b, _ := dst.Get("b")

	assert.Same(t, a, b)
	assert.NotSame(t, shared, a)
}

func TestClone_OpaqueIsShared(t *testing.T) {
	op := fact.NewOpaque(func() {})
	src := fact.NewRecord(fact.F("fn", op))

	dst := Clone(src).(*fact.Record)
	fn, _ := dst.Get("fn")
	assert.Same(t, op, fn)
}

func TestClone_Idempotent(t *testing.T) {
	src := sampleFact()
	once := Clone(src)
	twice := Clone(once)
	assert.True(t, fact.Equal(once, twice))
}

func TestCloner_SharedAcrossRoots(t *testing.T) {
	shared := fact.NewRecord()
	a := fact.NewList(shared)
	b := fact.NewRecord(fact.F("ref", shared))

	c := NewCloner()
	ca := c.Clone(a).(*fact.List)
	cb := c.Clone(b).(*fact.Record)

	ref, _ := cb.Get("ref")
	require.NotNil(t, ref)
	assert.Same(t, ca.At(0), ref)
}

func TestClone_Scalars(t *testing.T) {
	assert.Nil(t, Clone(nil))
	assert.Equal(t, fact.Int(3), Clone(fact.Int(3)))
	assert.Equal(t, fact.Null{}, Clone(fact.Null{}))
}
