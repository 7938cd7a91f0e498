// Package sourcemap reads, adjusts and writes version 3 source maps. Only
// the "mappings" field is rewritten; every other field is kept verbatim.
package sourcemap

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Map is a parsed source map.
type Map struct {
	raw      []byte
	Mappings []Mapping
}

// Parse decodes a source map document.
func Parse(data []byte) (*Map, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("source map is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New("source map must be a JSON object")
	}
	if doc.Get("sections").Exists() {
		return nil, errors.New("indexed source maps are not supported")
	}
	if v := doc.Get("version"); v.Exists() && v.Int() != 3 {
		return nil, fmt.Errorf("unsupported source map version %d", v.Int())
	}
	mappings, err := DecodeMappings(doc.Get("mappings").String())
	if err != nil {
		return nil, fmt.Errorf("invalid mappings: %w", err)
	}
	return &Map{raw: data, Mappings: mappings}, nil
}

// Marshal re-encodes the map with the current mappings.
func (m *Map) Marshal() ([]byte, error) {
	return sjson.SetBytes(m.raw, "mappings", EncodeMappings(m.Mappings))
}
