package store

import (
	"fmt"

	"github.com/roach88/fixpoint/internal/fact"
)

// encodedValue is a value ready for storage: canonical JSON and its digest.
type encodedValue struct {
	json   string
	digest string
}

// encodeValue converts v to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal values store identical text.
func encodeValue(domain string, v fact.Value) (encodedValue, error) {
	data, err := fact.MarshalCanonical(v)
	if err != nil {
		return encodedValue{}, err
	}
	return encodedValue{json: string(data), digest: fact.DigestBytes(domain, data)}, nil
}

// decodeValue parses stored canonical JSON. Integers come back as fact.Int,
// so values above 2^53 keep their precision.
func decodeValue(data string) (fact.Value, error) {
	if data == "" {
		return nil, nil
	}
	v, err := fact.DecodeJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode stored value: %w", err)
	}
	if _, ok := v.(fact.Null); ok {
		return nil, nil
	}
	return v, nil
}
