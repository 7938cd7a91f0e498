package pkgjson

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Entry is one key of a Map. A dependency entry whose version is not a
// string (typically null) is unpinned: its version has to be resolved from
// an ancestor package.
type Entry struct {
	Key    string
	Value  string
	Pinned bool
}

// Map is an ordered string map such as a dependency field or a bin object.
type Map struct {
	entries []Entry
	index   map[string]int
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

func mapFromResult(v gjson.Result) *Map {
	m := NewMap()
	v.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String {
			m.Set(key.String(), value.String())
		} else {
			m.SetUnpinned(key.String())
		}
		return true
	})
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.index[key]
	return ok
}

// Get returns the entry stored at key.
func (m *Map) Get(key string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	i, ok := m.index[key]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// Set stores a pinned value.
func (m *Map) Set(key, value string) {
	m.put(Entry{Key: key, Value: value, Pinned: true})
}

// SetUnpinned stores a null value.
func (m *Map) SetUnpinned(key string) {
	m.put(Entry{Key: key})
}

func (m *Map) put(e Entry) {
	if i, ok := m.index[e.Key]; ok {
		m.entries[i] = e
		return
	}
	m.index[e.Key] = len(m.entries)
	m.entries = append(m.entries, e)
}

// Entries returns the entries in insertion order.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	return append([]Entry(nil), m.entries...)
}

func (m *Map) encode() (string, error) {
	out := []byte("{}")
	for _, e := range m.Entries() {
		raw := []byte("null")
		if e.Pinned {
			raw, _ = json.Marshal(e.Value)
		}
		var err error
		out, err = sjson.SetRawBytes(out, escapeKey(e.Key), raw)
		if err != nil {
			return "", err
		}
	}
	return string(out), nil
}
