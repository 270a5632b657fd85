package fact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_PreservesOrderAndNumbers(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"b": 1, "a": 2.5, "c": [true, null, "x"], "d": 1e2}`))
	require.NoError(t, err)

	r, ok := v.(*Record)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a", "c", "d"}, r.Keys())

	b, _ := r.Get("b")
	assert.Equal(t, Int(1), b)
	a, _ := r.Get("a")
	assert.Equal(t, Float(2.5), a)
	d, _ := r.Get("d")
	assert.Equal(t, Float(100), d)

	c, _ := r.Get("c")
	assert.Equal(t, []Value{Bool(true), Null{}, String("x")}, c.(*List).Values())
}

func TestDecodeJSON_Errors(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"a": 1} {"b": 2}`))
	assert.Error(t, err)

	_, err = DecodeJSON([]byte(`{"a": `))
	assert.Error(t, err)
}

func TestDecodeYAML_Shapes(t *testing.T) {
	src := `
year: three
tags: !!set
  ? red
  ? blue
lookup: !map
  1: one
  two: 2
raw: !!binary aGk=
when: 2024-01-02T03:04:05Z
re: !pattern '^a+$'
ratio: 0.5
count: 3
none: null
`
	v, err := DecodeYAML([]byte(src))
	require.NoError(t, err)
	r := v.(*Record)

	assert.Equal(t, []string{"year", "tags", "lookup", "raw", "when", "re", "ratio", "count", "none"}, r.Keys())

	tags, _ := r.Get("tags")
	require.IsType(t, &Set{}, tags)
	assert.True(t, tags.(*Set).Has(String("red")))
	assert.True(t, tags.(*Set).Has(String("blue")))

	lookup, _ := r.Get("lookup")
	require.IsType(t, &Map{}, lookup)
	one, ok := lookup.(*Map).Get(Int(1))
	require.True(t, ok)
	assert.Equal(t, String("one"), one)

	raw, _ := r.Get("raw")
	assert.Equal(t, []byte("hi"), raw.(*Bytes).Bytes())

	when, _ := r.Get("when")
	assert.True(t, when.(Time).Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	re, _ := r.Get("re")
	assert.True(t, re.(*Pattern).MatchString("aaa"))

	ratio, _ := r.Get("ratio")
	assert.Equal(t, Float(0.5), ratio)
	count, _ := r.Get("count")
	assert.Equal(t, Int(3), count)
	none, _ := r.Get("none")
	assert.Equal(t, Null{}, none)
}

func TestDecodeYAML_AliasesShareNodes(t *testing.T) {
	src := `
home: &addr {city: Oslo}
work: *addr
`
	v, err := DecodeYAML([]byte(src))
	require.NoError(t, err)
	r := v.(*Record)

	home, _ := r.Get("home")
	work, _ := r.Get("work")
	assert.Same(t, home, work)
}

func TestDecodeYAML_Empty(t *testing.T) {
	v, err := DecodeYAML([]byte(""))
	require.NoError(t, err)
	assert.Nil(t, v)
}
