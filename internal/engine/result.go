package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/fixpoint/internal/fact"
)

// Shape selects the form of the result accumulator.
type Shape int

const (
	// ShapeComposite is a record holding a scalar "value" field plus an
	// "array" list, a "set" and a "map", all usable at once.
	ShapeComposite Shape = iota
	ShapeList
	ShapeMap
	ShapeSet
	// ShapeValue makes the accumulator a single value.
	ShapeValue
)

// Field names of the composite accumulator.
const (
	FieldValue = "value"
	FieldArray = "array"
	FieldSet   = "set"
	FieldMap   = "map"
)

var shapeNames = map[Shape]string{
	ShapeComposite: "composite",
	ShapeList:      "list",
	ShapeMap:       "map",
	ShapeSet:       "set",
	ShapeValue:     "value",
}

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape maps a shape name to a Shape. The empty string is composite.
func ParseShape(name string) (Shape, error) {
	if name == "" {
		return ShapeComposite, nil
	}
	for s, n := range shapeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown result shape %q (want composite, list, map, set or value)", name)
}

// ErrShapeMismatch is returned by Result operations the accumulator's
// shape cannot serve.
var ErrShapeMismatch = errors.New("result shape mismatch")

// Result is the accumulator binding handed to rules. It is owned by one
// Execute call; values read from it are not tracked and writing to them
// never restarts the loop.
type Result struct {
	shape Shape
	acc   fact.Value
}

// newResult builds the accumulator from an already cloned seed.
func newResult(shape Shape, seed fact.Value) *Result {
	seed = fact.Resolve(seed)
	r := &Result{shape: shape}

	switch shape {
	case ShapeList:
		if l, ok := seed.(*fact.List); ok {
			r.acc = l
		} else {
			r.acc = fact.NewList()
		}
	case ShapeMap:
		if m, ok := seed.(*fact.Map); ok {
			r.acc = m
		} else {
			r.acc = fact.NewMap()
		}
	case ShapeSet:
		if s, ok := seed.(*fact.Set); ok {
			r.acc = s
		} else {
			r.acc = fact.NewSet()
		}
	case ShapeValue:
		r.acc = seed
	default:
		r.acc = newComposite(seed)
	}
	return r
}

func newComposite(seed fact.Value) *fact.Record {
	c := fact.NewRecord(
		fact.F(FieldValue, nil),
		fact.F(FieldArray, fact.NewList()),
		fact.F(FieldSet, fact.NewSet()),
		fact.F(FieldMap, fact.NewMap()),
	)
	switch s := seed.(type) {
	case nil:
	case *fact.Set:
		c.Set(FieldSet, s)
	case *fact.Map:
		c.Set(FieldMap, s)
	case *fact.List:
		c.Set(FieldArray, s)
	case *fact.Record:
		for _, k := range s.Keys() {
			v, _ := s.Get(k)
			c.Set(k, v)
		}
	default:
		c.Set(FieldValue, s)
	}
	return c
}

// Shape returns the configured shape.
func (r *Result) Shape() Shape { return r.shape }

// Get returns the whole accumulator.
func (r *Result) Get() fact.Value { return r.acc }

// Value returns the scalar part: the "value" field of a composite
// accumulator, the accumulator itself otherwise.
func (r *Result) Value() fact.Value {
	if c, ok := r.composite(); ok {
		v, _ := c.Get(FieldValue)
		return v
	}
	return r.acc
}

// Set assigns the result. A composite accumulator stores v in its "value"
// field and keeps its other fields; any other shape is replaced by v.
func (r *Result) Set(v fact.Value) {
	v = fact.Resolve(v)
	if c, ok := r.composite(); ok {
		c.Set(FieldValue, v)
		return
	}
	r.acc = v
}

// Append adds vs to the list accumulator or the composite "array" field.
func (r *Result) Append(vs ...fact.Value) error {
	l, err := r.part(ShapeList, FieldArray)
	if err != nil {
		return err
	}
	list, ok := l.(*fact.List)
	if !ok {
		return fmt.Errorf("%w: append needs a list, have %s", ErrShapeMismatch, kindOf(l))
	}
	for _, v := range vs {
		list.Append(fact.Resolve(v))
	}
	return nil
}

// Put stores key/v in the map accumulator or the composite "map" field.
func (r *Result) Put(key, v fact.Value) error {
	m, err := r.part(ShapeMap, FieldMap)
	if err != nil {
		return err
	}
	keyed, ok := m.(*fact.Map)
	if !ok {
		return fmt.Errorf("%w: put needs a map, have %s", ErrShapeMismatch, kindOf(m))
	}
	keyed.Set(key, fact.Resolve(v))
	return nil
}

// Add inserts v into the set accumulator or the composite "set" field.
func (r *Result) Add(v fact.Value) error {
	s, err := r.part(ShapeSet, FieldSet)
	if err != nil {
		return err
	}
	set, ok := s.(*fact.Set)
	if !ok {
		return fmt.Errorf("%w: add needs a set, have %s", ErrShapeMismatch, kindOf(s))
	}
	set.Add(v)
	return nil
}

func (r *Result) composite() (*fact.Record, bool) {
	if r.shape != ShapeComposite {
		return nil, false
	}
	c, ok := r.acc.(*fact.Record)
	return c, ok
}

// part returns the accumulator itself when it has the given shape, or the
// named field of a composite accumulator.
func (r *Result) part(shape Shape, field string) (fact.Value, error) {
	if r.shape == shape {
		return r.acc, nil
	}
	if c, ok := r.composite(); ok {
		v, _ := c.Get(field)
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s result has no %s", ErrShapeMismatch, r.shape, field)
}

func kindOf(v fact.Value) string {
	if v == nil {
		return "undefined"
	}
	return v.Kind().String()
}
