package http

import (
	"slices"
	"strings"

	"http-fixture/application/util/uri"
)

// ParseQuery decodes an "&" separated list of key-value pairs.
// It is used for both query strings and urlencoded form bodies.
// A pair without "=" maps to an empty value and the last duplicate key wins.
//
// Reference: https://url.spec.whatwg.org/#urlencoded-parsing
func ParseQuery(s string) map[string]string {
	params := make(map[string]string)

	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		params[uri.QueryUnescape(key)] = uri.QueryUnescape(value)
	}

	return params
}

// EncodeQuery encodes params sorted by key.
func EncodeQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(uri.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(uri.QueryEscape(params[k]))
	}

	return b.String()
}
