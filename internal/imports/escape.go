package imports

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Escape renders s as the body of a JavaScript string literal delimited by
// quote (', " or `). Output is pure ASCII, matching what jsesc produces
// with its default options.
func Escape(s string, quote byte) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	for i, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r < utf8.RuneSelf && byte(r) == quote:
			sb.WriteByte('\\')
			sb.WriteByte(quote)
		case quote == '`' && r == '$' && strings.HasPrefix(s[i+1:], "{"):
			sb.WriteString(`\$`)
		case r == '\b':
			sb.WriteString(`\b`)
		case r == '\f':
			sb.WriteString(`\f`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == 0 && !startsWithDigit(s[i+1:]):
			sb.WriteString(`\0`)
		case r == utf8.RuneError && isInvalidAt(s, i):
			fmt.Fprintf(&sb, `\x%02X`, s[i])
		case r < 0x20 || r == 0x7F:
			fmt.Fprintf(&sb, `\x%02X`, r)
		case r < utf8.RuneSelf:
			sb.WriteRune(r)
		case r <= 0xFF:
			fmt.Fprintf(&sb, `\x%02X`, r)
		case r <= 0xFFFF:
			fmt.Fprintf(&sb, `\u%04X`, r)
		default:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, `\u%04X\u%04X`, hi, lo)
		}
	}
	return sb.String()
}

// Quote wraps the escaped form of s in quote.
func Quote(s string, quote byte) string {
	return string(quote) + Escape(s, quote) + string(quote)
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func isInvalidAt(s string, i int) bool {
	r, size := utf8.DecodeRuneInString(s[i:])
	return r == utf8.RuneError && size == 1
}

// unescape returns the cooked value of a string literal body. Malformed
// escapes are kept verbatim.
func unescape(raw string) string {
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}
	var sb strings.Builder
	sb.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch e := raw[i]; e {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '9' {
				sb.WriteString(`\0`)
			} else {
				sb.WriteByte(0)
			}
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			if i+2 < len(raw) {
				if v, err := strconv.ParseUint(raw[i+1:i+3], 16, 8); err == nil {
					sb.WriteRune(rune(v))
					i += 2
					continue
				}
			}
			sb.WriteString(`\x`)
		case 'u':
			r, n := unescapeUnicode(raw[i+1:])
			if n == 0 {
				sb.WriteString(`\u`)
				continue
			}
			i += n
			if utf16.IsSurrogate(r) && strings.HasPrefix(raw[i+1:], `\u`) {
				if lo, m := unescapeUnicode(raw[i+3:]); m > 0 {
					if combined := utf16.DecodeRune(r, lo); combined != utf8.RuneError {
						sb.WriteRune(combined)
						i += 2 + m
						continue
					}
				}
			}
			sb.WriteRune(r)
		default:
			// Line separators after a backslash are line continuations.
			if strings.HasPrefix(raw[i:], "\u2028") || strings.HasPrefix(raw[i:], "\u2029") {
				i += 2
				continue
			}
			sb.WriteByte(e)
		}
	}
	return sb.String()
}

// unescapeUnicode parses the part of a \u escape after the "u": either
// four hex digits or a braced code point. It returns the rune and the
// number of bytes consumed, zero when malformed.
func unescapeUnicode(s string) (rune, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0
		}
		v, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil || v > 0x10FFFF {
			return 0, 0
		}
		return rune(v), end + 1
	}
	if len(s) < 4 {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[:4], 16, 32)
	if err != nil {
		return 0, 0
	}
	return rune(v), 4
}
