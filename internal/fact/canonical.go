package fact

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for a fact graph.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Undefined record fields are omitted; undefined list slots become null
//
// Shapes JSON has no word for are lowered: a Map whose keys are all strings
// becomes an object, any other Map an array of [key, value] pairs sorted by
// key encoding; a Set becomes an array sorted by element encoding; Bytes are
// base64; Time is RFC 3339; Pattern is its source text.
//
// Cycles, Opaque values and non-finite floats are errors. Shared (acyclic)
// substructure is emitted once per reference.
func MarshalCanonical(v Value) ([]byte, error) {
	enc := &canonicalEncoder{active: make(map[Value]struct{})}
	return enc.marshal(v)
}

type canonicalEncoder struct {
	active map[Value]struct{}
}

func (e *canonicalEncoder) marshal(v Value) ([]byte, error) {
	v = Resolve(v)
	if v == nil {
		return []byte("null"), nil
	}
	if v.Kind().IsContainer() {
		if _, ok := e.active[v]; ok {
			return nil, fmt.Errorf("cycle through %s", v.Kind())
		}
		e.active[v] = struct{}{}
		defer delete(e.active, v)
	}

	switch val := v.(type) {
	case Null:
		return []byte("null"), nil
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case Float:
		return marshalCanonicalFloat(float64(val))
	case String:
		return marshalCanonicalString(string(val))
	case Time:
		return marshalCanonicalString(val.UTC().Format(time.RFC3339Nano))
	case *Bytes:
		return marshalCanonicalString(base64.StdEncoding.EncodeToString(val.b))
	case *Pattern:
		return marshalCanonicalString(val.Source())
	case *Opaque:
		return nil, fmt.Errorf("opaque value %T has no canonical form", val.V)
	case *List:
		return e.marshalArray(val.items, false)
	case *Set:
		return e.marshalArray(val.items, true)
	case *Record:
		return e.marshalRecord(val)
	case *Map:
		return e.marshalMap(val)
	default:
		return nil, fmt.Errorf("unsupported value for canonical JSON: %T", v)
	}
}

// marshalCanonicalFloat renders integral floats without a fraction so that
// Int(2) and Float(2) share one encoding, matching the numeric equality of Equal.
func marshalCanonicalFloat(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float %v has no canonical form", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
	}
	return json.Marshal(f)
}

func (e *canonicalEncoder) marshalArray(items []Value, sorted bool) ([]byte, error) {
	parts := make([][]byte, len(items))
	for i, elem := range items {
		b, err := e.marshal(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		parts[i] = b
	}
	if sorted {
		slices.SortFunc(parts, bytes.Compare)
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, p := range parts {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(p)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (e *canonicalEncoder) marshalRecord(r *Record) ([]byte, error) {
	keys := make([]string, 0, len(r.keys))
	for _, k := range r.keys {
		if r.fields[k] != nil {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := e.marshal(r.fields[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *canonicalEncoder) marshalMap(m *Map) ([]byte, error) {
	stringKeys := true
	for _, k := range m.keys {
		if _, ok := k.(String); !ok {
			stringKeys = false
			break
		}
	}
	if stringKeys {
		r := &Record{fields: make(map[string]Value, len(m.keys))}
		for _, k := range m.keys {
			r.Set(string(k.(String)), m.entries[KeyOf(k)].value)
		}
		return e.marshalRecord(r)
	}

	type pair struct{ key, val []byte }
	pairs := make([]pair, 0, len(m.keys))
	for _, k := range m.keys {
		kb, err := e.marshal(k)
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		vb, err := e.marshal(m.entries[KeyOf(k)].value)
		if err != nil {
			return nil, fmt.Errorf("map value for %s: %w", kb, err)
		}
		pairs = append(pairs, pair{kb, vb})
	}
	slices.SortFunc(pairs, func(a, b pair) int { return bytes.Compare(a.key, b.key) })

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		buf.Write(p.key)
		buf.WriteByte(',')
		buf.Write(p.val)
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// compareKeysRFC8785 orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison is by UTF-8 bytes, which differs above U+FFFF.
func compareKeysRFC8785(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// marshalCanonicalString emits an NFC-normalized JSON string in which only
// control characters, backslash and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return unescapeLineSeparators(out), nil
}

// unescapeLineSeparators undoes encoding/json's \u2028 and \u2029 escapes.
// An escape preceded by an odd run of backslashes is literal text and stays.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			run := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				run++
			}
			if run%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}
