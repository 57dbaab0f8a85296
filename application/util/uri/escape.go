package uri

import (
	"strings"

	"github.com/pkg/errors"
)

type encodeMode uint

const (
	encodePathSegment encodeMode = 1 + iota
	encodeQueryComponent
)

func hex(c byte) (h [2]byte) {
	const hexSet = "0123456789ABCDEF"
	h[0] = hexSet[c>>4]
	h[1] = hexSet[c&0xF]
	return
}

func unhex(h [2]byte) (c byte) {
	return (hexToNum(h[0]) << 4) | hexToNum(h[1])
}

func hexToNum(h byte) byte {
	switch {
	case '0' <= h && h <= '9':
		return h - '0'
	case 'a' <= h && h <= 'f':
		return h - 'a' + 10
	case 'A' <= h && h <= 'F':
		return h - 'A' + 10
	}
	return 0
}

func escape(s string, mode encodeMode) string {
	b := new(strings.Builder)
	b.Grow(len(s))

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		switch {
		case c == ' ' && mode == encodeQueryComponent:
			b.WriteByte('+')
		case shouldEscape(c, mode):
			hex := hex(c)
			b.Write([]byte{'%', hex[0], hex[1]})
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func shouldEscape(c byte, mode encodeMode) bool {
	if isUnreserved(c) {
		return false
	}

	switch mode {
	case encodePathSegment:
		// '/' must stay escaped inside a single segment.
		// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.3
		return !(isSubDelim(c) || c == ':' || c == '@')
	case encodeQueryComponent:
		// Delimiters of key-value pairs are always escaped.
		return true
	}

	return true
}

// QueryEscape escapes s so it can be placed as a key or value of a query string or form body.
func QueryEscape(s string) string { return escape(s, encodeQueryComponent) }

// PathEscape escapes s so it can be placed as a single path segment.
func PathEscape(s string) string { return escape(s, encodePathSegment) }

// QueryUnescape decodes a query string or form component.
// '+' becomes a space, and malformed percent sequences are kept as they are.
func QueryUnescape(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}

	b := new(strings.Builder)
	b.Grow(len(s))

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && idx+2 < len(s) && isPercentEncoded(s[idx:idx+3]):
			b.WriteByte(unhex([2]byte{s[idx+1], s[idx+2]}))
			idx += 2
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// PathUnescape decodes a path segment. Unlike [QueryUnescape] it keeps '+' and
// rejects malformed percent sequences.
func PathUnescape(s string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	b := new(strings.Builder)
	b.Grow(len(s))

	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		if c == '%' {
			if idx+2 >= len(s) || !isPercentEncoded(s[idx:idx+3]) {
				bad := s[idx:min(len(s), idx+3)]
				return "", errors.Errorf("percent encoding not properly applied: %q", bad)
			}
			b.WriteByte(unhex([2]byte{s[idx+1], s[idx+2]}))
			idx += 2
			continue
		}
		b.WriteByte(c)
	}

	return b.String(), nil
}
