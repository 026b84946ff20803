package httpparser

import (
	"strings"
)

// percentDecode decodes %XX escapes. When plusAsSpace is true (query
// strings and x-www-form-urlencoded bodies) '+' decodes to a literal
// space. Invalid escapes are passed through verbatim rather than
// rejected — the wire formats this parser accepts are generated by
// browsers and HTTP clients, not adversarial byte streams that need
// strict RFC policing here.
func percentDecode(s string, plusAsSpace bool) string {
	needsDecode := strings.Contains(s, "%") || (plusAsSpace && strings.Contains(s, "+"))
	if !needsDecode {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+' && plusAsSpace:
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(hexVal(s[i+1])<<4 | hexVal(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
