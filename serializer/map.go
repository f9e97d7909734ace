/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package serializer

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Map is a string-keyed map that remembers insertion order. It marshals to a JSON
// object with keys in that order.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty Map
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Set assigns key; a new key goes to the end
func (m *Map) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value of key
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in order
func (m *Map) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Len returns the number of keys
func (m *Map) Len() int {
	return len(m.keys)
}

// SortKeys reorders the keys alphabetically
func (m *Map) SortKeys() {
	sort.Strings(m.keys)
}

// Plain converts m to nested map[string]any and []any values
func (m *Map) Plain() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = plain(m.values[k])
	}
	return out
}

func plain(v any) any {
	switch tv := v.(type) {
	case *Map:
		if tv == nil {
			return nil
		}
		return tv.Plain()
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}

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
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
