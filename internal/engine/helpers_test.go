package engine

import (
	"context"
	"testing"

	"github.com/roach88/fixpoint/internal/fact"
)

// field reads a record field from the scope's fact.
func field(s *Scope, key string) fact.Value {
	v, _ := s.Record().Get(key)
	return v
}

func fieldIs(key string, want fact.Value) Condition {
	return func(_ context.Context, s *Scope) (bool, error) {
		return fact.Equal(field(s, key), want), nil
	}
}

func always(_ context.Context, _ *Scope) (bool, error) { return true, nil }

func never(_ context.Context, _ *Scope) (bool, error) { return false, nil }

func setField(key string, v fact.Value) Action {
	return func(_ context.Context, s *Scope) error {
		s.Record().Set(key, v)
		return nil
	}
}

func noop(_ context.Context, _ *Scope) error { return nil }

func get(t testing.TB, v fact.Value, key string) fact.Value {
	t.Helper()
	out, _ := v.(*fact.Record).Get(key)
	return out
}
