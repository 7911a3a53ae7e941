package lang

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NameMap maps a language tag to a display string. Keys keep the order in
// which they were inserted or decoded, so the first value is stable.
type NameMap struct {
	keys   []string
	values map[string]string
}

// NameMapOf builds a NameMap from alternating tag/value pairs.
func NameMapOf(pairs ...string) NameMap {
	var m NameMap
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Set stores value under tag. Re-setting a tag keeps its original position.
func (m *NameMap) Set(tag, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[tag]; !ok {
		m.keys = append(m.keys, tag)
	}
	m.values[tag] = value
}

// Get returns the value stored under tag, matched case-insensitively.
func (m NameMap) Get(tag string) (string, bool) {
	if v, ok := m.values[tag]; ok {
		return v, true
	}
	for _, k := range m.keys {
		if strings.EqualFold(k, tag) {
			return m.values[k], true
		}
	}
	return "", false
}

// First returns the first value in insertion order.
func (m NameMap) First() (string, bool) {
	if len(m.keys) == 0 {
		return "", false
	}
	return m.values[m.keys[0]], true
}

// Len returns the number of entries.
func (m NameMap) Len() int { return len(m.keys) }

// Keys returns the tags in insertion order.
func (m NameMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns the display strings in insertion order.
func (m NameMap) Values() []string {
	out := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

// UnmarshalJSON decodes a JSON object while keeping key order. Non-string
// values are skipped; null decodes to an empty map.
func (m *NameMap) UnmarshalJSON(data []byte) error {
	*m = NameMap{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("lang: expected object for name map, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		m.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m NameMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML renders the map as an ordered list of "tag: value" strings.
func (m NameMap) MarshalYAML() (interface{}, error) {
	out := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, k+": "+m.values[k])
	}
	return out, nil
}
