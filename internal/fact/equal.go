package fact

import "bytes"

// Equal reports whether a and b are structurally equal.
//
// Decorators are looked through. Int and Float compare numerically. Record
// and Map comparisons ignore entry order; Set membership is matched
// structurally. Cyclic graphs terminate: a pair of nodes already under
// comparison is assumed equal.
func Equal(a, b Value) bool {
	return equal(a, b, make(map[[2]Value]struct{}))
}

func equal(a, b Value, visiting map[[2]Value]struct{}) bool {
	a, b = Resolve(a), Resolve(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ai, ok := a.(Int); ok {
		if bi, ok := b.(Int); ok {
			return ai == bi
		}
	}
	if n, ok := numeric(a); ok {
		m, ok := numeric(b)
		return ok && (n == m || (n != n && m != m))
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Kind().IsContainer() {
		if a == b {
			return true
		}
		pair := [2]Value{a, b}
		if _, ok := visiting[pair]; ok {
			return true
		}
		visiting[pair] = struct{}{}
	}

	switch av := a.(type) {
	case Null:
		return true
	case Bool, String:
		return a == b
	case Time:
		return av.Equal(b.(Time).Time)
	case *Bytes:
		return bytes.Equal(av.b, b.(*Bytes).b)
	case *Pattern:
		return av.Source() == b.(*Pattern).Source()
	case *Opaque:
		return a == b
	case *List:
		bv := b.(*List)
		if len(av.items) != len(bv.items) {
			return false
		}
		for i := range av.items {
			if !equal(av.items[i], bv.items[i], visiting) {
				return false
			}
		}
		return true
	case *Record:
		bv := b.(*Record)
		if len(av.keys) != len(bv.keys) {
			return false
		}
		for _, k := range av.keys {
			w, ok := bv.fields[k]
			if !ok || !equal(av.fields[k], w, visiting) {
				return false
			}
		}
		return true
	case *Map:
		bv := b.(*Map)
		if len(av.keys) != len(bv.keys) {
			return false
		}
		for _, k := range av.keys {
			w, ok := bv.entries[KeyOf(k)]
			if !ok || !equal(av.entries[KeyOf(k)].value, w.value, visiting) {
				return false
			}
		}
		return true
	case *Set:
		return equalSets(av, b.(*Set), visiting)
	default:
		return a == b
	}
}

// equalSets matches every member of a to a distinct member of b.
// Scalars are found by lookup; containers need a structural search.
func equalSets(a, b *Set, visiting map[[2]Value]struct{}) bool {
	if len(a.items) != len(b.items) {
		return false
	}
	used := make([]bool, len(b.items))
	for _, x := range a.items {
		found := false
		for j, y := range b.items {
			if used[j] {
				continue
			}
			if equal(x, y, visiting) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func numeric(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}
