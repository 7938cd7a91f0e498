package imports

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/jakzo/things/internal/core"
)

// Position is a location in a file: 1-based line, 0-based column counted
// in UTF-16 code units as source maps do.
type Position struct {
	Line   int
	Column int
}

// Import is one static module specifier found in a file.
type Import struct {
	// Start and End are the byte offsets of the literal, quotes included.
	Start int
	End   int

	// Loc holds the same span as line and column positions.
	Loc struct {
		Start Position
		End   Position
	}

	// Specifier is the literal's value, Path the specifier after the
	// Resolver ran.
	Specifier string
	Path      string

	// Quote is the delimiter of the literal: ', " or `.
	Quote byte
}

// Resolver maps a specifier before it is interpreted, for example to
// expand path aliases. It must return the specifier unchanged when it does
// not apply.
type Resolver func(specifier string) string

// sourceExtensions are scanned for imports; everything else is copied.
var sourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".mts": true, ".cts": true,
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".node": true,
}

// IsSourceFile reports whether the file may contain imports. Type
// declaration files are excluded.
func IsSourceFile(name string) bool {
	if strings.HasSuffix(name, ".d.ts") || strings.HasSuffix(name, ".d.mts") || strings.HasSuffix(name, ".d.cts") {
		return false
	}
	return sourceExtensions[filepath.Ext(name)]
}

// Scan returns the static imports of a file sorted by start offset, plus
// one DynamicSpecifierWarning for every import() or require() call whose
// argument is not a static string.
func Scan(file string, src []byte, resolve Resolver) ([]Import, []error) {
	if resolve == nil {
		resolve = func(s string) string { return s }
	}
	s := &scan{
		file:   file,
		toks:   tokenize(string(src)),
		lines:  newLineIndex(string(src)),
		seen:   make(map[int]bool),
		lookup: resolve,
	}
	s.run()
	sort.Slice(s.imports, func(i, j int) bool { return s.imports[i].Start < s.imports[j].Start })
	return s.imports, s.warnings
}

type scan struct {
	file     string
	toks     []token
	lines    *lineIndex
	seen     map[int]bool
	lookup   Resolver
	imports  []Import
	warnings []error
}

func (s *scan) at(i int) token {
	if i >= 0 && i < len(s.toks) {
		return s.toks[i]
	}
	return token{kind: tokPunct, start: -1}
}

func (s *scan) isPunct(i int, text string) bool {
	t := s.at(i)
	return t.kind == tokPunct && t.start >= 0 && t.text == text
}

func (s *scan) isIdent(i int, text string) bool {
	t := s.at(i)
	return t.kind == tokIdent && t.text == text
}

func isStatic(t token) bool {
	return t.kind == tokString || t.kind == tokTemplate
}

// isMember reports whether token i is accessed as a property.
func (s *scan) isMember(i int) bool {
	return s.isPunct(i-1, ".") || s.isPunct(i-1, "?.")
}

func (s *scan) run() {
	for i, t := range s.toks {
		if t.kind != tokIdent || s.isMember(i) {
			continue
		}
		switch t.text {
		case "import":
			s.importAt(i)
		case "export":
			s.exportAt(i)
		case "require":
			if s.isPunct(i+1, "(") && !s.isIdent(i-1, "function") {
				s.callAt(i)
			}
		}
	}
}

func (s *scan) importAt(i int) {
	next := s.at(i + 1)
	switch {
	case s.isPunct(i+1, "("):
		s.callAt(i)
		return
	case s.isPunct(i+1, "."):
		return
	case next.kind == tokString:
		s.record(next)
		return
	}
	// import a, { b as c } from "x"; import type T from "x"
	for j := i + 1; j < len(s.toks); j++ {
		t := s.toks[j]
		switch {
		case t.kind == tokPunct && (t.text == ";" || t.text == "="):
			return
		case t.kind == tokIdent && t.text == "from" && s.at(j+1).kind == tokString:
			s.record(s.at(j + 1))
			return
		case t.kind == tokString || t.kind == tokTemplate || t.kind == tokTemplateHead:
			return
		case t.kind == tokIdent && (t.text == "import" || t.text == "export") && !s.isMember(j):
			return
		}
	}
}

func (s *scan) exportAt(i int) {
	j := i + 1
	if s.isIdent(j, "type") {
		j++
	}
	switch {
	case s.isPunct(j, "*"):
		// export * from "x"; export * as ns from "x"
		for k := j + 1; k < j+4 && k < len(s.toks); k++ {
			if s.isIdent(k, "from") && s.at(k+1).kind == tokString {
				s.record(s.at(k + 1))
				return
			}
		}
	case s.isPunct(j, "{"):
		depth := 0
		for k := j; k < len(s.toks); k++ {
			switch {
			case s.isPunct(k, "{"):
				depth++
			case s.isPunct(k, "}"):
				depth--
				if depth == 0 {
					if s.isIdent(k+1, "from") && s.at(k+2).kind == tokString {
						s.record(s.at(k + 2))
					}
					return
				}
			case s.toks[k].kind == tokString || s.isPunct(k, ";"):
				return
			}
		}
	}
}

// callAt handles import(...) and require(...) where token i is the callee
// and token i+1 the opening parenthesis.
func (s *scan) callAt(i int) {
	arg := s.at(i + 2)
	if s.isPunct(i+2, ")") {
		return
	}
	if isStatic(arg) && (s.isPunct(i+3, ")") || s.isPunct(i+3, ",")) {
		s.record(arg)
		return
	}
	pos := s.lines.position(s.toks[i].start)
	s.warnings = append(s.warnings, &core.DynamicSpecifierWarning{
		File:   s.file,
		Line:   pos.Line,
		Column: pos.Column,
		Call:   s.toks[i].text + "()",
	})
}

func (s *scan) record(t token) {
	if s.seen[t.start] {
		return
	}
	s.seen[t.start] = true
	imp := Import{
		Start:     t.start,
		End:       t.end,
		Specifier: t.text,
		Path:      s.lookup(t.text),
		Quote:     t.quote,
	}
	imp.Loc.Start = s.lines.position(t.start)
	imp.Loc.End = s.lines.position(t.end)
	s.imports = append(s.imports, imp)
}
