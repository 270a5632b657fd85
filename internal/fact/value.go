package fact

import (
	"fmt"
	"regexp"
	"slices"
	"time"
)

// Kind identifies the shape of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
	KindBytes
	KindPattern
	KindOpaque
	KindList
	KindRecord
	KindMap
	KindSet
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindTime:    "time",
	KindBytes:   "bytes",
	KindPattern: "pattern",
	KindOpaque:  "opaque",
	KindList:    "list",
	KindRecord:  "record",
	KindMap:     "map",
	KindSet:     "set",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsContainer reports whether values of this kind hold other values.
func (k Kind) IsContainer() bool {
	return k == KindList || k == KindRecord || k == KindMap || k == KindSet
}

// Value is a node of a fact graph.
//
// A nil Value means "undefined". Implementations must be comparable with ==:
// scalars compare by value, containers by identity (they are pointer types),
// which is what lets one node appear in several places of a graph.
type Value interface {
	Kind() Kind
}

// Unwrapper is implemented by decorators that stand in for a node.
// Equality, cloning and serialization look through decorators via Resolve.
type Unwrapper interface {
	Unwrap() Value
}

// Resolve strips decorators until the underlying node is reached.
func Resolve(v Value) Value {
	for {
		u, ok := v.(Unwrapper)
		if !ok {
			return v
		}
		next := u.Unwrap()
		if next == v {
			return v
		}
		v = next
	}
}

// Null is an explicit null, distinct from an undefined (nil) Value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }

// Bool is a boolean scalar.
type Bool bool

func (Bool) Kind() Kind { return KindBool }

// Int is an integer scalar.
type Int int64

func (Int) Kind() Kind { return KindInt }

// Float is a floating point scalar.
type Float float64

func (Float) Kind() Kind { return KindFloat }

// String is a text scalar.
type String string

func (String) Kind() Kind { return KindString }

// Time is a date scalar.
type Time struct {
	time.Time
}

// NewTime wraps t.
func NewTime(t time.Time) Time { return Time{Time: t} }

func (Time) Kind() Kind { return KindTime }

// Bytes is an immutable byte buffer. The buffer is copied on the way in and
// on the way out so two Bytes values never share storage.
type Bytes struct {
	b []byte
}

// NewBytes copies b into a new buffer value.
func NewBytes(b []byte) *Bytes {
	return &Bytes{b: slices.Clone(b)}
}

func (*Bytes) Kind() Kind { return KindBytes }

// Bytes returns a copy of the buffer.
func (b *Bytes) Bytes() []byte { return slices.Clone(b.b) }

// Len returns the buffer length.
func (b *Bytes) Len() int { return len(b.b) }

// Pattern is a compiled regular expression that remembers its source.
type Pattern struct {
	re *regexp.Regexp
}

// CompilePattern compiles src.
func CompilePattern(src string) (*Pattern, error) {
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", src, err)
	}
	return &Pattern{re: re}, nil
}

// MustPattern is like CompilePattern but panics on error.
// Use only in tests or with literal sources.
func MustPattern(src string) *Pattern {
	p, err := CompilePattern(src)
	if err != nil {
		panic(err)
	}
	return p
}

// PatternOf wraps an already compiled expression.
func PatternOf(re *regexp.Regexp) *Pattern { return &Pattern{re: re} }

func (*Pattern) Kind() Kind { return KindPattern }

// Source returns the expression text.
func (p *Pattern) Source() string { return p.re.String() }

// Regexp returns the compiled expression.
func (p *Pattern) Regexp() *regexp.Regexp { return p.re }

// MatchString reports whether s contains a match.
func (p *Pattern) MatchString(s string) bool { return p.re.MatchString(s) }

// Opaque carries a value the engine never looks into, such as a function.
// It is shared, never copied.
type Opaque struct {
	V any
}

// NewOpaque wraps v.
func NewOpaque(v any) *Opaque { return &Opaque{V: v} }

func (*Opaque) Kind() Kind { return KindOpaque }

// Same reports whether storing b where a is stored would be a no-op.
// Containers compare by identity; Time compares by instant; NaN is the same
// as NaN so that rewriting it does not count as a change.
func Same(a, b Value) bool {
	a, b = Resolve(a), Resolve(b)
	switch av := a.(type) {
	case Time:
		bv, ok := b.(Time)
		return ok && av.Equal(bv.Time)
	case Float:
		bv, ok := b.(Float)
		if !ok {
			return false
		}
		return av == bv || (av != av && bv != bv)
	}
	return a == b
}
