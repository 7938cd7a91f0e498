package imports

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokPunct
	tokString
	// tokTemplate is a template literal without substitutions.
	tokTemplate
	// tokTemplateHead starts a template literal with substitutions.
	tokTemplateHead
	// tokTemplateTail continues a template literal after a substitution.
	tokTemplateTail
	tokNumber
	tokRegex
)

type token struct {
	kind  tokenKind
	start int
	end   int
	// text is the identifier or punctuator, the cooked value of a string
	// literal or the raw value of a template literal.
	text  string
	quote byte
}

// regexKeywords may be followed by a regular expression literal.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

type lexer struct {
	src    string
	pos    int
	tokens []token
	// braces tracks open '{' (false) and '${' (true) so the closing brace
	// of a substitution resumes the template literal.
	braces []bool
}

func tokenize(src string) []token {
	l := &lexer{src: src}
	l.run()
	return l.tokens
}

func (l *lexer) emit(kind tokenKind, start int, text string, quote byte) {
	l.tokens = append(l.tokens, token{kind: kind, start: start, end: l.pos, text: text, quote: quote})
}

func (l *lexer) peekAt(i int) byte {
	if i < len(l.src) {
		return l.src[i]
	}
	return 0
}

func (l *lexer) run() {
	if strings.HasPrefix(l.src, "#!") {
		l.skipLine()
	}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n' || c == '\r' || c == ' ' || c == '\t' || c == '\f' || c == '\v':
			l.pos++
		case c == '/' && l.peekAt(l.pos+1) == '/':
			l.skipLine()
		case c == '/' && l.peekAt(l.pos+1) == '*':
			l.skipBlockComment()
		case c == '\'' || c == '"':
			l.lexString(c)
		case c == '`':
			l.pos++
			l.lexTemplate(l.pos - 1)
		case c == '/':
			if l.regexAllowed() && l.lexRegex() {
				continue
			}
			l.pos++
			l.emit(tokPunct, l.pos-1, "/", 0)
		case isDigit(c) || (c == '.' && isDigit(l.peekAt(l.pos+1))):
			l.lexNumber()
		case isIdentStart(c) || c >= utf8.RuneSelf:
			if !l.lexIdent() {
				_, size := utf8.DecodeRuneInString(l.src[l.pos:])
				l.pos += size
			}
		default:
			l.lexPunct()
		}
	}
}

func (l *lexer) skipLine() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
		l.pos++
	}
}

func (l *lexer) skipBlockComment() {
	end := strings.Index(l.src[l.pos+2:], "*/")
	if end < 0 {
		l.pos = len(l.src)
		return
	}
	l.pos += 2 + end + 2
}

// lexString scans a quoted string. An unescaped line break ends the
// attempt without a token, which keeps stray quotes in JSX text from
// swallowing the rest of the file.
func (l *lexer) lexString(quote byte) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			raw := l.src[start+1 : l.pos-1]
			l.emit(tokString, start, unescape(raw), quote)
			return
		case '\\':
			l.pos += 2
			if c := l.peekAt(l.pos - 1); c == '\r' && l.peekAt(l.pos) == '\n' {
				l.pos++
			}
		case '\n', '\r':
			return
		default:
			l.pos++
		}
	}
	l.pos = len(l.src)
}

// lexTemplate scans template characters starting at l.pos, where start is
// the offset of the opening backtick or closing brace.
func (l *lexer) lexTemplate(start int) {
	head := l.src[start] == '`'
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
		case '`':
			l.pos++
			if head {
				l.emit(tokTemplate, start, l.src[start+1:l.pos-1], '`')
			} else {
				l.emit(tokTemplateTail, start, "", '`')
			}
			return
		case '$':
			if l.peekAt(l.pos+1) == '{' {
				l.pos += 2
				if head {
					l.emit(tokTemplateHead, start, "", '`')
				} else {
					l.emit(tokTemplateTail, start, "", '`')
				}
				l.braces = append(l.braces, true)
				return
			}
			l.pos++
		default:
			l.pos++
		}
	}
	l.pos = len(l.src)
}

func (l *lexer) regexAllowed() bool {
	if len(l.tokens) == 0 {
		return true
	}
	prev := l.tokens[len(l.tokens)-1]
	switch prev.kind {
	case tokIdent:
		return regexKeywords[prev.text]
	case tokPunct:
		return prev.text != ")" && prev.text != "]" && prev.text != "}"
	case tokTemplateHead:
		return true
	case tokTemplateTail:
		return strings.HasSuffix(l.src[prev.start:prev.end], "${")
	default:
		return false
	}
}

func (l *lexer) lexRegex() bool {
	start := l.pos
	i := l.pos + 1
	inClass := false
	for i < len(l.src) {
		c := l.src[i]
		switch {
		case c == '\n' || c == '\r':
			return false
		case c == '\\':
			i += 2
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			i++
			for i < len(l.src) && isIdentPart(l.src[i]) {
				i++
			}
			l.pos = i
			l.emit(tokRegex, start, l.src[start:i], 0)
			return true
		}
		i++
	}
	return false
}

func (l *lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isIdentPart(c) || c == '.' {
			l.pos++
			continue
		}
		prev := l.src[l.pos-1]
		if (c == '+' || c == '-') && (prev == 'e' || prev == 'E') && !strings.HasPrefix(strings.ToLower(l.src[start:l.pos]), "0x") {
			l.pos++
			continue
		}
		break
	}
	l.emit(tokNumber, start, l.src[start:l.pos], 0)
}

func (l *lexer) lexIdent() bool {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c < utf8.RuneSelf {
			if !isIdentPart(c) && !(c == '\\' && l.peekAt(l.pos+1) == 'u') {
				break
			}
			l.pos++
			continue
		}
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) && r != '\u200c' && r != '\u200d' {
			break
		}
		l.pos += size
	}
	if l.pos == start {
		return false
	}
	l.emit(tokIdent, start, l.src[start:l.pos], 0)
	return true
}

func (l *lexer) lexPunct() {
	start := l.pos
	for _, p := range []string{"...", "?.", "=>"} {
		if strings.HasPrefix(l.src[l.pos:], p) && !(p == "?." && isDigit(l.peekAt(l.pos+2))) {
			l.pos += len(p)
			l.emit(tokPunct, start, p, 0)
			return
		}
	}
	c := l.src[l.pos]
	l.pos++
	switch c {
	case '{':
		l.braces = append(l.braces, false)
	case '}':
		if n := len(l.braces); n > 0 {
			template := l.braces[n-1]
			l.braces = l.braces[:n-1]
			if template {
				l.lexTemplate(start)
				return
			}
		}
	}
	l.emit(tokPunct, start, string(c), 0)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c == '#' || c == '\\' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) && c != '#' && c != '\\' || isDigit(c)
}

// lineIndex converts byte offsets to line and UTF-16 column positions.
type lineIndex struct {
	src    string
	starts []int
}

func newLineIndex(src string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		case 0xE2:
			// U+2028 and U+2029 are encoded as E2 80 A8 and E2 80 A9.
			if i+2 < len(src) && src[i+1] == 0x80 && (src[i+2] == 0xA8 || src[i+2] == 0xA9) {
				i += 2
				starts = append(starts, i+1)
			}
		}
	}
	return &lineIndex{src: src, starts: starts}
}

// position returns the 1-based line and the 0-based column, in UTF-16
// code units, of a byte offset.
func (li *lineIndex) position(offset int) Position {
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	return Position{Line: line + 1, Column: utf16Len(li.src[li.starts[line]:offset])}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
