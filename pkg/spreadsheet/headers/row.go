package headers

import (
	"bytes"
	"encoding/json"
)

// Row maps normalized keys to cell values and iterates in header order.
type Row[T any] struct {
	keys   []string
	values map[string]T
}

func newRow[T any](size int) Row[T] {
	return Row[T]{keys: make([]string, 0, size), values: make(map[string]T, size)}
}

// set stores v under key. A repeated key keeps its first position.
func (r *Row[T]) set(key string, v T) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r Row[T]) Get(key string) (T, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in header order.
func (r Row[T]) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of keys present.
func (r Row[T]) Len() int {
	return len(r.keys)
}

// Map returns a copy of the row as a plain map.
func (r Row[T]) Map() map[string]T {
	m := make(map[string]T, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the row as an object with keys in header order.
func (r Row[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
