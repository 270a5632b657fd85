package procedure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixpoint/internal/engine"
	"github.com/roach88/fixpoint/internal/fact"
	"github.com/roach88/fixpoint/internal/ruleset"
)

// once runs stmts a single time against f and returns the final fact.
func once(t *testing.T, f fact.Value, stmts ...string) fact.Value {
	t.Helper()
	defs := []ruleset.RuleDef{{When: "true", Then: append(ruleset.Statements(stmts), "stop()")}}
	out, err := execute(t, defs, f)
	require.NoError(t, err)
	return out.Fact
}

func sample() *fact.Record {
	return fact.NewRecord(
		fact.F("name", fact.String("ada")),
		fact.F("tags", fact.NewSet(fact.String("a"), fact.String("b"))),
		fact.F("items", fact.NewList(fact.Int(1), fact.Int(2))),
		fact.F("meta", fact.NewRecord(fact.F("level", fact.Int(1)))),
		fact.F("counts", fact.NewMap(
			fact.E(fact.String("x"), fact.Int(1)),
			fact.E(fact.Int(7), fact.String("seven")),
		)),
	)
}

func field(t *testing.T, v fact.Value, path string) fact.Value {
	t.Helper()
	got, ok := lookup(v, splitPath(path))
	require.True(t, ok, "path %q", path)
	return got
}

func TestBuiltin_Get(t *testing.T) {
	out := once(t, sample(),
		"set('copy', get('meta.level'))",
		"set('second', get('items.1'))",
		"set('seven', get('counts.7'))",
		"set('none', get('meta.absent') == nil)",
	)
	assert.Equal(t, fact.Int(1), field(t, out, "copy"))
	assert.Equal(t, fact.Int(2), field(t, out, "second"))
	assert.Equal(t, fact.String("seven"), field(t, out, "seven"))
	assert.Equal(t, fact.Bool(true), field(t, out, "none"))
}

func TestBuiltin_Has(t *testing.T) {
	out := once(t, sample(),
		"set('r1', has('meta.level'))",
		"set('r2', has('meta.absent'))",
		"set('r3', has('tags', 'a'))",
		"set('r4', has('tags', 'z'))",
		"set('r5', has('items', 2))",
		"set('r6', has('counts', 'x'))",
		"set('r7', has('meta', 'level'))",
	)
	want := map[string]bool{"r1": true, "r2": false, "r3": true, "r4": false, "r5": true, "r6": true, "r7": true}
	for k, v := range want {
		assert.Equal(t, fact.Bool(v), field(t, out, k), k)
	}
}

func TestBuiltin_SetNested(t *testing.T) {
	out := once(t, sample(),
		"set('meta.level', 2)",
		"set('items.3', 9)",
		"set('counts.x', 5)",
		"set('obj', {a: [1, 2]})",
	)
	assert.Equal(t, fact.Int(2), field(t, out, "meta.level"))
	assert.Equal(t, 4, field(t, out, "items").(*fact.List).Len())
	assert.Equal(t, fact.Int(5), field(t, out, "counts.x"))
	assert.True(t, fact.Equal(fact.NewList(fact.Int(1), fact.Int(2)), field(t, out, "obj.a")))
}

func TestBuiltin_SetMissingParent(t *testing.T) {
	defs := []ruleset.RuleDef{{When: "true", Then: ruleset.Statements{"set('nope.x', 1)"}}}
	_, err := execute(t, defs, sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope" not found`)
}

func TestBuiltin_SetEqualValueIsNotAChange(t *testing.T) {
	// Without the equality check this rule would restart forever.
	defs := []ruleset.RuleDef{{When: "true", Then: ruleset.Statements{"set('meta', {level: 1})"}}}
	out, err := execute(t, defs, sample())
	require.NoError(t, err)
	assert.Equal(t, []string{"rule-0"}, out.Sequence)
}

func TestBuiltin_Unset(t *testing.T) {
	out := once(t, sample(),
		"set('gone', unset('name'))",
		"set('again', unset('name'))",
		"unset('items.0')",
		"unset('counts.7')",
	)
	rec := out.(*fact.Record)
	assert.False(t, rec.Has("name"))
	assert.Equal(t, fact.Bool(true), field(t, out, "gone"))
	assert.Equal(t, fact.Bool(false), field(t, out, "again"))
	assert.True(t, fact.Equal(fact.NewList(fact.Int(2)), field(t, out, "items")))
	assert.Equal(t, 1, field(t, out, "counts").(*fact.Map).Len())
}

func TestBuiltin_SetOperations(t *testing.T) {
	out := once(t, sample(),
		"set('added', add('tags', 'c'))",
		"set('dup', add('tags', 'a'))",
		"set('removed', remove('tags', 'b'))",
		"set('missing', remove('tags', 'zz'))",
	)
	want := fact.NewSet(fact.String("a"), fact.String("c"))
	assert.True(t, fact.Equal(want, field(t, out, "tags")))
	assert.Equal(t, fact.Bool(true), field(t, out, "added"))
	assert.Equal(t, fact.Bool(false), field(t, out, "dup"))
	assert.Equal(t, fact.Bool(true), field(t, out, "removed"))
	assert.Equal(t, fact.Bool(false), field(t, out, "missing"))
}

func TestBuiltin_AddStructuralMember(t *testing.T) {
	f := fact.NewRecord(fact.F("pairs", fact.NewSet(fact.NewList(fact.Int(1), fact.Int(2)))))
	out := once(t, f, "add('pairs', [1, 2])", "add('pairs', [3])", "remove('pairs', [1, 2])")
	assert.True(t, fact.Equal(fact.NewSet(fact.NewList(fact.Int(3))), field(t, out, "pairs")))
}

func TestBuiltin_ListOperations(t *testing.T) {
	out := once(t, sample(),
		"set('n', push('items', 3, 4))",
		"remove('items', 1)",
		"remove('counts', 'x')",
	)
	assert.Equal(t, fact.Int(4), field(t, out, "n"))
	assert.True(t, fact.Equal(fact.NewList(fact.Int(2), fact.Int(3), fact.Int(4)), field(t, out, "items")))
	assert.Equal(t, 1, field(t, out, "counts").(*fact.Map).Len())
}

func TestBuiltin_Clear(t *testing.T) {
	out := once(t, sample(), "clear('tags')", "clear('items')", "clear('meta')", "clear('counts')")
	assert.Equal(t, 0, field(t, out, "tags").(*fact.Set).Len())
	assert.Equal(t, 0, field(t, out, "items").(*fact.List).Len())
	assert.Equal(t, 0, field(t, out, "meta").(*fact.Record).Len())
	assert.Equal(t, 0, field(t, out, "counts").(*fact.Map).Len())
}

func TestBuiltin_ArgumentErrors(t *testing.T) {
	tests := []struct {
		stmt    string
		wantMsg string
	}{
		{"set('x')", "set: want 2 argument(s), got 1"},
		{"get(1)", "path must be a string"},
		{"push()", "push: want at least 1 argument(s)"},
		{"has('name', 1, 2)", "has: want 1 to 2 arguments"},
		{"add('items', 1)", "not a set"},
		{"clear('name')", "not a container"},
		{"remove('name', 1)", "not a set, list or map"},
		{"stop(1)", "stop: want 0 argument(s)"},
		{"set('', 1)", "names the fact itself"},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			defs := []ruleset.RuleDef{{When: "true", Then: ruleset.Statements{tt.stmt}}}
			_, err := execute(t, defs, sample())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestBuiltin_NextHasNoEffect(t *testing.T) {
	out := once(t, sample(), "next()", "set('after', true)")
	assert.Equal(t, fact.Bool(true), field(t, out, "after"))
}

func TestBuiltin_WriteBackCyclicValue(t *testing.T) {
	inner := fact.NewRecord(fact.F("name", fact.String("ada")))
	inner.Set("self", inner)
	in := fact.NewRecord(fact.F("node", inner))

	defs := []ruleset.RuleDef{{
		Name: "copy",
		When: "!has('copy')",
		Then: ruleset.Statements{"set('copy', fact.node)", "setResult(fact.copy.self.self.name)"},
	}}
	out, err := execute(t, defs, in, engine.WithResultShape(engine.ShapeValue))
	require.NoError(t, err)

	assert.Equal(t, []string{"copy"}, out.Sequence)
	assert.Equal(t, 2, out.Steps)
	assert.Equal(t, fact.String("ada"), out.Result)

	node := field(t, out.Fact, "node")
	cp := field(t, out.Fact, "copy")
	assert.Same(t, node, cp, "the written value aliases the node it was read from")
	self, _ := cp.(*fact.Record).Get("self")
	assert.Same(t, cp, self)
}

func TestBuiltin_WriteBackSetIsNotAChange(t *testing.T) {
	defs := []ruleset.RuleDef{{Name: "keep", When: "true", Then: ruleset.Statements{"set('tags', fact.tags)"}}}
	out, err := execute(t, defs, sample())
	require.NoError(t, err)

	assert.Equal(t, []string{"keep"}, out.Sequence)
	assert.Equal(t, 1, out.Steps, "rewriting a set with itself does not restart")
	tags := field(t, out.Fact, "tags")
	require.IsType(t, &fact.Set{}, tags)
	assert.True(t, fact.Equal(fact.NewSet(fact.String("a"), fact.String("b")), tags))
}

func TestBuiltin_WriteBackKeepsContainerKind(t *testing.T) {
	defs := []ruleset.RuleDef{{
		Name: "alias",
		When: "!has('alias')",
		Then: ruleset.Statements{"set('alias', fact.tags)", "set('pairs', fact.counts)", "setResult(fact.tags)"},
	}}
	out, err := execute(t, defs, sample(), engine.WithResultShape(engine.ShapeValue))
	require.NoError(t, err)

	tags := field(t, out.Fact, "tags")
	assert.Same(t, tags, field(t, out.Fact, "alias"))
	assert.IsType(t, &fact.Map{}, field(t, out.Fact, "pairs"))
	assert.IsType(t, &fact.Set{}, out.Result)

	// New containers built by the expression are plain lists.
	doubled := once(t, sample(), "set('doubled', map(fact.items, # * 2))")
	assert.True(t, fact.Equal(fact.NewList(fact.Int(2), fact.Int(4)), field(t, doubled, "doubled")))
}
