// Package pkgjson models package.json documents as ordered field lists so
// that emitted manifests keep the key order of their inputs.
package pkgjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Dependency fields, in the priority order used when looking up versions.
const (
	Dependencies         = "dependencies"
	PeerDependencies     = "peerDependencies"
	OptionalDependencies = "optionalDependencies"
)

// DependencyFields lists the fields that declare a dependency.
var DependencyFields = []string{Dependencies, OptionalDependencies, PeerDependencies}

var errNotObject = errors.New("package.json must contain a JSON object")

type field struct {
	key string
	raw string
}

// Document is an ordered package.json object. Overwriting a key keeps its
// position, new keys are appended.
type Document struct {
	fields []field
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Parse decodes a package.json file.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, errNotObject
	}
	doc := New()
	res.ForEach(func(key, value gjson.Result) bool {
		doc.SetRaw(key.String(), value.Raw)
		return true
	})
	return doc, nil
}

func (d *Document) index(key string) int {
	for i, f := range d.fields {
		if f.key == key {
			return i
		}
	}
	return -1
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	return d.index(key) >= 0
}

// Get returns the value stored at key. The result does not exist when the
// key is absent.
func (d *Document) Get(key string) gjson.Result {
	if i := d.index(key); i >= 0 {
		return gjson.Parse(d.fields[i].raw)
	}
	return gjson.Result{}
}

// String returns the value at key if it is a JSON string.
func (d *Document) String(key string) (string, bool) {
	v := d.Get(key)
	if v.Type != gjson.String {
		return "", false
	}
	return v.String(), true
}

// Bool returns the value at key if it is a JSON boolean.
func (d *Document) Bool(key string) bool {
	v := d.Get(key)
	return v.IsBool() && v.Bool()
}

// SetRaw stores an already encoded JSON value.
func (d *Document) SetRaw(key, raw string) {
	if i := d.index(key); i >= 0 {
		d.fields[i].raw = raw
		return
	}
	d.fields = append(d.fields, field{key: key, raw: raw})
}

// Set encodes value and stores it at key.
func (d *Document) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	d.SetRaw(key, string(raw))
	return nil
}

// SetString stores a string value.
func (d *Document) SetString(key, value string) {
	raw, _ := json.Marshal(value)
	d.SetRaw(key, string(raw))
}

// Delete removes key if present.
func (d *Document) Delete(key string) {
	if i := d.index(key); i >= 0 {
		d.fields = append(d.fields[:i], d.fields[i+1:]...)
	}
}

// Keys returns the keys in document order.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.key
	}
	return keys
}

// Clone returns an independent copy.
func (d *Document) Clone() *Document {
	return &Document{fields: append([]field(nil), d.fields...)}
}

// Merge copies every field of other into d, overwriting in place.
func (d *Document) Merge(other *Document) {
	for _, f := range other.fields {
		d.SetRaw(f.key, f.raw)
	}
}

// Map returns the object at key as an ordered map, or nil when the key is
// absent or not an object.
func (d *Document) Map(key string) *Map {
	v := d.Get(key)
	if !v.IsObject() {
		return nil
	}
	return mapFromResult(v)
}

// SetMap stores m at key.
func (d *Document) SetMap(key string, m *Map) error {
	raw, err := m.encode()
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	d.SetRaw(key, raw)
	return nil
}

// Marshal renders the document as indented JSON with a trailing newline.
func (d *Document) Marshal() ([]byte, error) {
	out := []byte("{}")
	var err error
	for _, f := range d.fields {
		out, err = sjson.SetRawBytes(out, escapeKey(f.key), []byte(f.raw))
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", f.key, err)
		}
	}
	return pretty.Pretty(out), nil
}

// escapeKey turns an object key into a single-component sjson path.
func escapeKey(key string) string {
	var sb strings.Builder
	sb.Grow(len(key) + 4)
	if key != "" && isDigits(key) {
		sb.WriteByte(':')
	}
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case '\\', '.', '*', '?', '|', '#', '@', ':', '!', '=', '<', '>', '%':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
