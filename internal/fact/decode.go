package fact

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YAML tags understood by DecodeYAML beyond the core schema.
const (
	TagMap     = "!map"
	TagPattern = "!pattern"
	TagSet     = "!!set"
)

// DecodeJSON parses a single JSON document into a fact graph.
//
// Object key order is preserved. Integral numbers become Int, other numbers
// Float. Trailing data after the document is an error.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON document")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return decodeJSONNumber(t)
	case json.Delim:
		switch t {
		case '[':
			list := NewList()
			for dec.More() {
				elem, err := decodeJSONValue(dec)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", list.Len(), err)
				}
				list.Append(elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		case '{':
			rec := NewRecord()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				rec.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return rec, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

func decodeJSONNumber(n json.Number) (Value, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", s, err)
	}
	return Float(f), nil
}

// DecodeYAML parses a single YAML document into a fact graph.
//
// Mappings become Records unless tagged !map, in which case keys are decoded
// as values and the result is a Map. !!set mappings become Sets of their
// keys. !!binary, !!timestamp and !pattern scalars become Bytes, Time and
// Pattern. Anchors and aliases produce shared nodes, so a YAML fact can
// carry aliasing.
func DecodeYAML(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return FromYAMLNode(&doc)
}

// FromYAMLNode converts a decoded yaml.v3 node tree into a fact graph.
func FromYAMLNode(n *yaml.Node) (Value, error) {
	d := &yamlDecoder{anchors: make(map[*yaml.Node]Value)}
	return d.decode(n)
}

type yamlDecoder struct {
	anchors map[*yaml.Node]Value
}

func (d *yamlDecoder) decode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.decode(n.Content[0])
	case yaml.AliasNode:
		if v, ok := d.anchors[n.Alias]; ok {
			return v, nil
		}
		return d.decode(n.Alias)
	case yaml.ScalarNode:
		v, err := decodeYAMLScalar(n)
		if err != nil {
			return nil, err
		}
		d.anchors[n] = v
		return v, nil
	case yaml.SequenceNode:
		list := NewList()
		d.anchors[n] = list
		for i, c := range n.Content {
			v, err := d.decode(c)
			if err != nil {
				return nil, fmt.Errorf("line %d: [%d]: %w", n.Line, i, err)
			}
			list.Append(v)
		}
		return list, nil
	case yaml.MappingNode:
		return d.decodeMapping(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func (d *yamlDecoder) decodeMapping(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case TagSet:
		set := NewSet()
		d.anchors[n] = set
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := d.decode(n.Content[i])
			if err != nil {
				return nil, err
			}
			set.Add(v)
		}
		return set, nil
	case TagMap:
		m := NewMap()
		d.anchors[n] = m
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := d.decode(n.Content[i])
			if err != nil {
				return nil, err
			}
			v, err := d.decode(n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("line %d: map value: %w", n.Content[i+1].Line, err)
			}
			m.Set(k, v)
		}
		return m, nil
	}

	rec := NewRecord()
	d.anchors[n] = rec
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: record key must be a scalar (tag the mapping %s for value keys)", key.Line, TagMap)
		}
		v, err := d.decode(n.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.Value, err)
		}
		rec.Set(key.Value, v)
	}
	return rec, nil
}

func decodeYAMLScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case TagPattern:
		return CompilePattern(n.Value)
	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: binary: %w", n.Line, err)
		}
		return NewBytes(b), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, fmt.Errorf("line %d: timestamp: %w", n.Line, err)
		}
		return NewTime(t), nil
	case "!!null":
		return Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case "!!int":
		i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64)
		if err != nil {
			var v int64
			if derr := n.Decode(&v); derr != nil {
				return nil, fmt.Errorf("line %d: int: %w", n.Line, err)
			}
			i = v
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: float: %w", n.Line, err)
		}
		return Float(f), nil
	default:
		return String(n.Value), nil
	}
}
