package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixpoint/internal/fact"
)

// sumRule adds the fact's "n" field to a value-shaped accumulator.
func sumRule() Rule {
	return Rule{
		Name: "sum",
		When: func(_ context.Context, s *Scope) (bool, error) { return field(s, "n") != nil, nil },
		Then: func(_ context.Context, s *Scope) error {
			total, _ := s.Result.Value().(fact.Int)
			n, _ := field(s, "n").(fact.Int)
			s.Result.Set(total + n)
			return nil
		},
	}
}

func facts(ns ...int) *fact.List {
	l := fact.NewList()
	for _, n := range ns {
		l.Append(fact.NewRecord(fact.F("n", fact.Int(n))))
	}
	return l
}

func TestChain_Threaded(t *testing.T) {
	e := New([]Rule{sumRule()}, WithResultShape(ShapeValue))

	out, err := e.Chain(context.Background(), facts(1, 2, 3), fact.Int(0))
	require.NoError(t, err)
	assert.True(t, out.Threaded)
	assert.Equal(t, fact.Int(6), out.Result)
	assert.Nil(t, out.Results)
	assert.Len(t, out.Facts, 3)
	assert.Equal(t, [][]string{{"sum"}, {"sum"}, {"sum"}}, out.Sequences)
	assert.Equal(t, 3, out.Steps)
}

func TestChain_Unthreaded(t *testing.T) {
	e := New([]Rule{sumRule()}, WithResultShape(ShapeValue))

	out, err := e.Chain(context.Background(), facts(1, 2, 3), nil)
	require.NoError(t, err)
	assert.False(t, out.Threaded)
	assert.Nil(t, out.Result)
	assert.Equal(t, []fact.Value{fact.Int(1), fact.Int(2), fact.Int(3)}, out.Results)
}

func TestChain_SingleFact(t *testing.T) {
	e := New([]Rule{sumRule()}, WithResultShape(ShapeValue))

	out, err := e.Chain(context.Background(), fact.NewRecord(fact.F("n", fact.Int(4))), fact.Int(1))
	require.NoError(t, err)
	assert.Len(t, out.Facts, 1)
	assert.Equal(t, fact.Int(5), out.Result)
}

func TestChain_InputUntouched(t *testing.T) {
	e := New([]Rule{{When: fieldIs("seen", nil), Then: setField("seen", fact.Bool(true))}})
	in := facts(1, 2)

	out, err := e.Chain(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, fact.Bool(true), get(t, out.Facts[1], "seen"))
	assert.Nil(t, get(t, in.At(1), "seen"))
}

func TestChain_ErrorReportsIndex(t *testing.T) {
	boom := errors.New("boom")
	e := New([]Rule{{
		Name: "picky",
		When: func(_ context.Context, s *Scope) (bool, error) {
			if field(s, "n") == fact.Int(2) {
				return false, boom
			}
			return false, nil
		},
		Then: noop,
	}})

	_, err := e.Chain(context.Background(), facts(1, 2, 3), nil)
	require.Error(t, err)

	var ce *ChainError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Index)
	assert.ErrorIs(t, err, boom)
	rule, phase, ok := FailedRule(err)
	assert.True(t, ok)
	assert.Equal(t, "picky", rule)
	assert.Equal(t, PhaseCondition, phase)
}

func TestChain_Empty(t *testing.T) {
	out, err := New(nil).Chain(context.Background(), fact.NewList(), fact.Int(0))
	require.NoError(t, err)
	assert.Empty(t, out.Facts)
	assert.Equal(t, fact.Int(0), out.Result)
}
