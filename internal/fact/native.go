package fact

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"
)

// NativeView converts between fact values and plain Go data for consumers
// that work on native data, such as expression evaluators.
//
// A view remembers the fact node behind every native container it produced.
// FromGo on the same view maps such a container back to its node, so data
// read through the view and written back keeps its identity and kind: a Set
// comes back as the same Set, not as a List, and cyclic structure is never
// walked again.
type NativeView struct {
	nodes map[nativeKey]Value
}

// nativeKey identifies a native container by its backing storage. Slices
// include length and capacity so that a reslice is a different container.
type nativeKey struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
	cap  int
}

func keyOfNative(x any) (nativeKey, bool) {
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return nativeKey{}, false
		}
		return nativeKey{kind: reflect.Map, ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Cap() == 0 {
			return nativeKey{}, false
		}
		return nativeKey{kind: reflect.Slice, ptr: rv.Pointer(), len: rv.Len(), cap: rv.Cap()}, true
	}
	return nativeKey{}, false
}

// NewNativeView returns an empty view.
func NewNativeView() *NativeView {
	return &NativeView{nodes: make(map[nativeKey]Value)}
}

// ToGo returns a plain Go view of v. See NativeView.ToGo.
func ToGo(v Value) any {
	return NewNativeView().ToGo(v)
}

// ToGo returns a plain Go view of v.
//
// Records become map[string]any, Lists and Sets []any, Maps map[any]any.
// A node reached twice maps to the same native container, so shared and
// cyclic structure stays finite. Container map keys are kept as the fact
// node itself because native maps and slices cannot be map keys.
//
// Each call converts afresh; earlier views of a node that has since
// changed still map back to that node.
func (nv *NativeView) ToGo(v Value) any {
	return nv.toGo(v, make(map[Value]any))
}

func (nv *NativeView) remember(native any, node Value) {
	if k, ok := keyOfNative(native); ok {
		nv.nodes[k] = node
	}
}

func (nv *NativeView) toGo(v Value, seen map[Value]any) any {
	v = Resolve(v)
	if v == nil {
		return nil
	}
	if v.Kind().IsContainer() {
		if n, ok := seen[v]; ok {
			return n
		}
	}

	switch val := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Time:
		return val.Time
	case *Bytes:
		return val.Bytes()
	case *Pattern:
		return val.re
	case *Opaque:
		nv.remember(val.V, val)
		return val.V
	case *List:
		// Capacity is at least one so that every container has its own
		// backing array to be recognised by.
		out := make([]any, len(val.items), max(len(val.items), 1))
		seen[v] = out
		nv.remember(out, v)
		for i, item := range val.items {
			out[i] = nv.toGo(item, seen)
		}
		return out
	case *Set:
		out := make([]any, len(val.items), max(len(val.items), 1))
		seen[v] = out
		nv.remember(out, v)
		for i, item := range val.items {
			out[i] = nv.toGo(item, seen)
		}
		return out
	case *Record:
		out := make(map[string]any, len(val.keys))
		seen[v] = out
		nv.remember(out, v)
		for _, k := range val.keys {
			out[k] = nv.toGo(val.fields[k], seen)
		}
		return out
	case *Map:
		out := make(map[any]any, len(val.keys))
		seen[v] = out
		nv.remember(out, v)
		for _, k := range val.keys {
			key := any(k)
			if !k.Kind().IsContainer() && k.Kind() != KindBytes {
				key = nv.toGo(k, seen)
			}
			out[key] = nv.toGo(val.entries[KeyOf(k)].value, seen)
		}
		return out
	default:
		return v
	}
}

// FromGo converts native Go data into a fact graph. See NativeView.FromGo.
func FromGo(x any) (Value, error) {
	return NewNativeView().FromGo(x)
}

// FromGo converts native Go data into a fact graph.
//
// Containers this view produced map back to their original node. Values
// that already implement Value pass through unchanged. map[string]T becomes
// a Record with keys in sorted order since Go maps are unordered; other
// maps become Maps. Slices and arrays become Lists. Functions, channels and
// structs that have no fact shape are wrapped in Opaque. Native containers
// reached twice become one node, so cyclic input yields a cyclic graph.
func (nv *NativeView) FromGo(x any) (Value, error) {
	return nv.fromGo(x, make(map[nativeKey]Value))
}

func (nv *NativeView) fromGo(x any, visited map[nativeKey]Value) (Value, error) {
	key, keyed := keyOfNative(x)
	if keyed {
		if node, ok := nv.nodes[key]; ok {
			return node, nil
		}
		if node, ok := visited[key]; ok {
			return node, nil
		}
	}

	switch val := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case string:
		return String(val), nil
	case time.Time:
		return NewTime(val), nil
	case []byte:
		return NewBytes(val), nil
	case *regexp.Regexp:
		return PatternOf(val), nil
	case []any:
		list := NewList()
		if keyed {
			visited[key] = list
		}
		for i, item := range val {
			v, err := nv.fromGo(item, visited)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list.Append(v)
		}
		return list, nil
	case map[string]any:
		rec := NewRecord()
		if keyed {
			visited[key] = rec
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			v, err := nv.fromGo(val[k], visited)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			rec.Set(k, v)
		}
		return rec, nil
	}
	return nv.fromReflect(reflect.ValueOf(x), key, keyed, visited)
}

func (nv *NativeView) fromReflect(rv reflect.Value, key nativeKey, keyed bool, visited map[nativeKey]Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := NewList()
		if keyed {
			visited[key] = list
		}
		for i := 0; i < rv.Len(); i++ {
			v, err := nv.fromGo(rv.Index(i).Interface(), visited)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list.Append(v)
		}
		return list, nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			rec := NewRecord()
			if keyed {
				visited[key] = rec
			}
			keys := rv.MapKeys()
			slices.SortFunc(keys, func(a, b reflect.Value) int { return strings.Compare(a.String(), b.String()) })
			for _, k := range keys {
				v, err := nv.fromGo(rv.MapIndex(k).Interface(), visited)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", k.String(), err)
				}
				rec.Set(k.String(), v)
			}
			return rec, nil
		}
		m := NewMap()
		if keyed {
			visited[key] = m
		}
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
		})
		for _, k := range keys {
			kv, err := nv.fromGo(k.Interface(), visited)
			if err != nil {
				return nil, fmt.Errorf("map key: %w", err)
			}
			v, err := nv.fromGo(rv.MapIndex(k).Interface(), visited)
			if err != nil {
				return nil, fmt.Errorf("map value: %w", err)
			}
			m.Set(kv, v)
		}
		return m, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		if rv.Kind() == reflect.Interface {
			return nv.fromGo(rv.Elem().Interface(), visited)
		}
	}
	if !rv.IsValid() {
		return Null{}, nil
	}
	return NewOpaque(rv.Interface()), nil
}
