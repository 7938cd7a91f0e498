package sourcemap

import (
	"fmt"
	"sort"
	"strings"
)

// Mapping is one decoded segment of a source map. Fields is 1 for a
// segment with only a generated column, 4 with a source location and 5
// when a name is attached too.
type Mapping struct {
	GenLine    int
	GenColumn  int
	Fields     int
	Source     int
	OrigLine   int
	OrigColumn int
	Name       int
}

// DecodeMappings parses a v3 "mappings" string. Lines are 0-based.
func DecodeMappings(s string) ([]Mapping, error) {
	var out []Mapping
	var line, col, source, origLine, origCol, name int

	for len(s) > 0 {
		switch s[0] {
		case ';':
			line++
			col = 0
			s = s[1:]
			continue
		case ',':
			s = s[1:]
			continue
		}

		var values [5]int
		n := 0
		for len(s) > 0 && s[0] != ',' && s[0] != ';' {
			if n == len(values) {
				return nil, fmt.Errorf("segment on line %d has more than 5 fields", line)
			}
			v, rest, err := decodeVLQ(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			values[n] = v
			n++
			s = rest
		}
		if n != 1 && n != 4 && n != 5 {
			return nil, fmt.Errorf("segment on line %d has %d fields", line, n)
		}

		col += values[0]
		m := Mapping{GenLine: line, GenColumn: col, Fields: n}
		if n >= 4 {
			source += values[1]
			origLine += values[2]
			origCol += values[3]
			m.Source, m.OrigLine, m.OrigColumn = source, origLine, origCol
		}
		if n == 5 {
			name += values[4]
			m.Name = name
		}
		out = append(out, m)
	}
	return out, nil
}

// EncodeMappings renders mappings as a v3 "mappings" string. The input is
// sorted by generated position first.
func EncodeMappings(mappings []Mapping) string {
	sorted := append([]Mapping(nil), mappings...)
	sortMappings(sorted)

	var sb strings.Builder
	var line, col, source, origLine, origCol, name int
	first := true
	for _, m := range sorted {
		for line < m.GenLine {
			sb.WriteByte(';')
			line++
			col = 0
			first = true
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false

		encodeVLQ(&sb, m.GenColumn-col)
		col = m.GenColumn
		if m.Fields >= 4 {
			encodeVLQ(&sb, m.Source-source)
			encodeVLQ(&sb, m.OrigLine-origLine)
			encodeVLQ(&sb, m.OrigColumn-origCol)
			source, origLine, origCol = m.Source, m.OrigLine, m.OrigColumn
		}
		if m.Fields == 5 {
			encodeVLQ(&sb, m.Name-name)
			name = m.Name
		}
	}
	return sb.String()
}

func sortMappings(mappings []Mapping) {
	sort.SliceStable(mappings, func(i, j int) bool {
		if mappings[i].GenLine != mappings[j].GenLine {
			return mappings[i].GenLine < mappings[j].GenLine
		}
		return mappings[i].GenColumn < mappings[j].GenColumn
	})
}
