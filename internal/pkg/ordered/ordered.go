// Package ordered provides a string-keyed map that remembers insertion order.
//
// Mandrill reads merge variables and template content as lists of
// {name, content} pairs, so the order callers add keys in is the order the
// pairs go out on the wire. Go maps cannot express that, hence Map.
package ordered

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

// Pair is a single key/value entry.
type Pair[V any] struct {
	Key   string
	Value V
}

// P builds a Pair. Handy for map literals: ordered.New(ordered.P("a", 1)).
func P[V any](key string, value V) Pair[V] {
	return Pair[V]{Key: key, Value: value}
}

// Map is an insertion-ordered map. The zero value is ready to use.
// Setting an existing key replaces its value and keeps its position.
type Map[V any] struct {
	keys   []string
	values map[string]V
}

// New creates a Map holding the given pairs in order.
func New[V any](pairs ...Pair[V]) *Map[V] {
	m := &Map[V]{}
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Set stores value under key.
func (m *Map[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	var zero V
	if m == nil || m.values == nil {
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key, if present.
func (m *Map[V]) Delete(key string) {
	if m == nil || m.values == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries. A nil Map has length 0.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map[V]) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// All iterates entries in insertion order.
func (m *Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy. Cloning nil yields an empty Map.
func (m *Map[V]) Clone() *Map[V] {
	out := &Map[V]{}
	for k, v := range m.All() {
		out.Set(k, v)
	}
	return out
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m *Map[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, v := range m.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		i++
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the order keys appear in the
// document. Duplicate keys keep their first position and the last value.
// A JSON null leaves the map empty.
func (m *Map[V]) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.values = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ordered: expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ordered: expected object key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("ordered: decoding %q: %w", key, err)
		}
		var value V
		if err := decodeValue(raw, &value); err != nil {
			return fmt.Errorf("ordered: decoding %q: %w", key, err)
		}
		m.Set(key, value)
	}

	_, err = dec.Token()
	return err
}

// decodeValue keeps numbers as json.Number when V is an interface type so
// integers survive a decode/encode round trip unchanged.
func decodeValue[V any](raw json.RawMessage, dst *V) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}
