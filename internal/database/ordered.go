package database

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedMap is a string-keyed map that remembers insertion order and keeps
// it through a JSON round trip. It encodes as a plain JSON object.
type OrderedMap[T any] struct {
	keys   []string
	values map[string]T
}

func NewOrderedMap[T any]() *OrderedMap[T] {
	return &OrderedMap[T]{values: make(map[string]T)}
}

func (m *OrderedMap[T]) Len() int {
	return len(m.keys)
}

func (m *OrderedMap[T]) Get(key string) (T, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap[T]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Set inserts or replaces key. A new key goes to the end; an existing key
// keeps its position.
func (m *OrderedMap[T]) Set(key string, v T) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *OrderedMap[T]) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Values returns a copy of the values in insertion order.
func (m *OrderedMap[T]) Values() []T {
	out := make([]T, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

// Last returns up to n values from the end, oldest first.
func (m *OrderedMap[T]) Last(n int) []T {
	if n <= 0 {
		return nil
	}
	start := len(m.keys) - n
	if start < 0 {
		start = 0
	}
	out := make([]T, 0, len(m.keys)-start)
	for _, k := range m.keys[start:] {
		out = append(out, m.values[k])
	}
	return out
}

func (m *OrderedMap[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *OrderedMap[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]T)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)

		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		if m.Has(key) {
			return fmt.Errorf("duplicate key %q", key)
		}
		m.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	return nil
}
