package testutil

import (
	"testing"

	"github.com/roach88/fixpoint/internal/fact"
)

// JSON decodes a JSON document into a fact, failing the test on error.
// Field order is preserved.
func JSON(t testing.TB, src string) fact.Value {
	t.Helper()
	v, err := fact.DecodeJSON([]byte(src))
	if err != nil {
		t.Fatalf("decode JSON fact: %v", err)
	}
	return v
}

// YAML decodes a YAML document into a fact, failing the test on error.
func YAML(t testing.TB, src string) fact.Value {
	t.Helper()
	v, err := fact.DecodeYAML([]byte(src))
	if err != nil {
		t.Fatalf("decode YAML fact: %v", err)
	}
	return v
}

// Canonical returns the canonical JSON of v as a string, failing the test
// if v has no canonical form. Useful for readable equality assertions.
func Canonical(t testing.TB, v fact.Value) string {
	t.Helper()
	data, err := fact.MarshalCanonical(v)
	if err != nil {
		t.Fatalf("marshal canonical: %v", err)
	}
	return string(data)
}
