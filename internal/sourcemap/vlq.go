package sourcemap

import (
	"errors"
	"strings"
)

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Values = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(base64Chars); i++ {
		t[base64Chars[i]] = int8(i)
	}
	return t
}()

var errInvalidVLQ = errors.New("invalid base64 VLQ")

// decodeVLQ reads one value from s and returns it with the remaining input.
func decodeVLQ(s string) (int, string, error) {
	var result, shift int
	for i := 0; i < len(s); i++ {
		digit := base64Values[s[i]]
		if digit < 0 {
			return 0, s, errInvalidVLQ
		}
		result += int(digit&31) << shift
		if digit&32 == 0 {
			if result&1 == 1 {
				return -(result >> 1), s[i+1:], nil
			}
			return result >> 1, s[i+1:], nil
		}
		shift += 5
		if shift > 60 {
			return 0, s, errInvalidVLQ
		}
	}
	return 0, s, errInvalidVLQ
}

func encodeVLQ(sb *strings.Builder, value int) {
	v := value << 1
	if value < 0 {
		v = (-value << 1) | 1
	}
	for {
		digit := v & 31
		v >>= 5
		if v > 0 {
			digit |= 32
		}
		sb.WriteByte(base64Chars[digit])
		if v == 0 {
			return
		}
	}
}
