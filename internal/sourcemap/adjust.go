package sourcemap

import "sort"

// Position is a 0-based line and a column in UTF-16 code units.
type Position struct {
	Line   int
	Column int
}

func (p Position) before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Column < o.Column)
}

// Replacement describes generated code [Start, End) that was replaced by
// NewLength code units of text without line breaks.
type Replacement struct {
	Start     Position
	End       Position
	NewLength int
}

// Adjust moves mappings so they describe the code after the replacements
// were applied. Both sequences are walked once in generated order:
// mappings before the next replacement are shifted by the running deltas,
// mappings inside a replaced span collapse onto its start, and every
// replacement passed updates the line delta by the lines it removed and
// the column delta of its last line by how far its end moved.
func Adjust(mappings []Mapping, replacements []Replacement) []Mapping {
	sorted := append([]Mapping(nil), mappings...)
	sortMappings(sorted)
	reps := append([]Replacement(nil), replacements...)
	sort.SliceStable(reps, func(i, j int) bool { return reps[i].Start.before(reps[j].Start) })

	var (
		lineDelta int
		colLine   = -1
		colDelta  int
		r         int
	)
	shift := func(p Position) Position {
		if p.Line == colLine {
			p.Column += colDelta
		}
		p.Line += lineDelta
		return p
	}

	out := make([]Mapping, 0, len(sorted))
	for _, m := range sorted {
		pos := Position{Line: m.GenLine, Column: m.GenColumn}

		for r < len(reps) && !pos.before(reps[r].End) {
			rep := reps[r]
			newEnd := shift(rep.Start).Column + rep.NewLength
			lineDelta -= rep.End.Line - rep.Start.Line
			colLine = rep.End.Line
			colDelta = newEnd - rep.End.Column
			r++
		}

		if r < len(reps) && !pos.before(reps[r].Start) {
			pos = reps[r].Start
		}
		pos = shift(pos)
		m.GenLine, m.GenColumn = pos.Line, pos.Column
		out = append(out, m)
	}
	return out
}
