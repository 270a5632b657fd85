package procedure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixpoint/internal/fact"
)

func TestSplitPath(t *testing.T) {
	assert.Nil(t, splitPath(""))
	assert.Equal(t, []string{"a"}, splitPath("a"))
	assert.Equal(t, []string{"a", "0", "b"}, splitPath("a.0.b"))
}

func TestLookup(t *testing.T) {
	root := sample()

	v, ok := lookup(root, nil)
	require.True(t, ok)
	assert.Same(t, root, v)

	_, ok = lookup(root, splitPath("items.5"))
	assert.False(t, ok)
	_, ok = lookup(root, splitPath("items.-1"))
	assert.False(t, ok)
	_, ok = lookup(root, splitPath("name.length"))
	assert.False(t, ok)
}

func TestMapKey(t *testing.T) {
	m := fact.NewMap(
		fact.E(fact.String("1"), fact.String("str")),
		fact.E(fact.Int(1), fact.String("int")),
		fact.E(fact.Int(2), fact.String("two")),
	)
	assert.Equal(t, fact.String("1"), mapKey(m, "1"))
	assert.Equal(t, fact.Int(2), mapKey(m, "2"))
	assert.Equal(t, fact.String("3"), mapKey(m, "3"))
}

func TestMapKey_FloatKey(t *testing.T) {
	m := fact.NewMap(fact.E(fact.Float(4), fact.String("four")))
	k := mapKey(m, "4")
	v, ok := m.Get(k)
	require.True(t, ok)
	assert.Equal(t, fact.String("four"), v)

	out := once(t, fact.NewRecord(fact.F("m", m)), "set('m.4', 'vier')")
	got := field(t, out, "m").(*fact.Map)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, []fact.Value{fact.Float(4)}, got.Keys())
}

func TestAssign_ListIndex(t *testing.T) {
	l := fact.NewList()
	require.NoError(t, assign(l, "2", fact.Int(1)))
	assert.Equal(t, 3, l.Len())

	err := assign(l, "x", fact.Int(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a non-negative integer")
}

func TestAssign_Scalar(t *testing.T) {
	err := assign(fact.String("s"), "k", fact.Int(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot set")
}

func TestDeleteKey(t *testing.T) {
	l := fact.NewList(fact.Int(1))
	ok, err := deleteKey(l, "4")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = deleteKey(fact.Int(1), "x")
	require.Error(t, err)
}

func TestIndexOf(t *testing.T) {
	vs := []fact.Value{fact.Int(1), fact.NewList(fact.String("a"))}
	assert.Equal(t, 0, indexOf(vs, fact.Float(1)))
	assert.Equal(t, 1, indexOf(vs, fact.NewList(fact.String("a"))))
	assert.Equal(t, -1, indexOf(vs, fact.String("a")))
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "undefined", kindName(nil))
	assert.Equal(t, "set", kindName(fact.NewSet()))
}

func TestLookupExported(t *testing.T) {
	v, ok := Lookup(sample(), "meta.level")
	require.True(t, ok)
	assert.Equal(t, fact.Int(1), v)

	_, ok = Lookup(sample(), "meta.nope")
	assert.False(t, ok)
}
