package procedure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/fixpoint/internal/fact"
)

// splitPath splits a dotted path. The empty path has no segments.
func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

// Lookup returns the value at a dotted path under root, the way the get
// builtin resolves it.
func Lookup(root fact.Value, path string) (fact.Value, bool) {
	return lookup(root, splitPath(path))
}

// lookup walks segs from root. ok is false when a segment is missing.
func lookup(root fact.Value, segs []string) (fact.Value, bool) {
	v := root
	for _, seg := range segs {
		next, ok := child(v, seg)
		if !ok {
			return nil, false
		}
		v = next
	}
	return v, true
}

func child(v fact.Value, seg string) (fact.Value, bool) {
	switch c := v.(type) {
	case fact.RecordValue:
		return c.Get(seg)
	case fact.MapValue:
		return c.Get(mapKey(c, seg))
	case fact.ListValue:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= c.Len() {
			return nil, false
		}
		return c.At(i), true
	}
	return nil, false
}

// mapKey picks the key a segment addresses: the string key when present,
// otherwise an existing integer key (integral float keys included),
// otherwise the string key.
func mapKey(m fact.MapValue, seg string) fact.Value {
	if m.Has(fact.String(seg)) {
		return fact.String(seg)
	}
	if n, err := strconv.ParseInt(seg, 10, 64); err == nil && m.Has(fact.Int(n)) {
		return fact.Int(n)
	}
	return fact.String(seg)
}

// parent resolves everything but the last segment of path and returns the
// container and the last segment.
func parent(root fact.Value, path string) (fact.Value, string, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, "", fmt.Errorf("the empty path names the fact itself")
	}
	for i := range segs[:len(segs)-1] {
		if _, ok := lookup(root, segs[:i+1]); !ok {
			return nil, "", fmt.Errorf("path %q: %q not found", path, strings.Join(segs[:i+1], "."))
		}
	}
	p, _ := lookup(root, segs[:len(segs)-1])
	return p, segs[len(segs)-1], nil
}

// target resolves path to an existing value.
func target(root fact.Value, path string) (fact.Value, error) {
	v, ok := lookup(root, splitPath(path))
	if !ok {
		return nil, fmt.Errorf("path %q not found", path)
	}
	return v, nil
}

// assign stores v under key in container c. Writing a value structurally
// equal to the current one is skipped so that re-deriving a field does not
// count as a change.
func assign(c fact.Value, key string, v fact.Value) error {
	switch t := c.(type) {
	case fact.RecordValue:
		if cur, ok := t.Get(key); ok && fact.Equal(cur, v) {
			return nil
		}
		t.Set(key, v)
	case fact.MapValue:
		k := mapKey(t, key)
		if cur, ok := t.Get(k); ok && fact.Equal(cur, v) {
			return nil
		}
		t.Set(k, v)
	case fact.ListValue:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 {
			return fmt.Errorf("list index %q is not a non-negative integer", key)
		}
		if i < t.Len() && fact.Equal(t.At(i), v) {
			return nil
		}
		t.SetAt(i, v)
	default:
		return fmt.Errorf("cannot set %q on %s", key, kindName(c))
	}
	return nil
}

// deleteKey removes key from container c and reports whether it was there.
func deleteKey(c fact.Value, key string) (bool, error) {
	switch t := c.(type) {
	case fact.RecordValue:
		return t.Delete(key), nil
	case fact.MapValue:
		return t.Delete(mapKey(t, key)), nil
	case fact.ListValue:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= t.Len() {
			return false, nil
		}
		t.RemoveAt(i)
		return true, nil
	default:
		return false, fmt.Errorf("cannot unset %q on %s", key, kindName(c))
	}
}

// indexOf returns the position of the first value structurally equal to v,
// or -1.
func indexOf(values []fact.Value, v fact.Value) int {
	for i, m := range values {
		if fact.Equal(m, v) {
			return i
		}
	}
	return -1
}

func kindName(v fact.Value) string {
	if v == nil {
		return "undefined"
	}
	return fact.Resolve(v).Kind().String()
}
