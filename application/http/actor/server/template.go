package server

import (
	"strings"

	"http-fixture/application/util/uri"
)

// template is a route path whose ":name" segments capture one path segment each.
type template struct {
	method   string
	segments []string
	handle   HandleFunc
}

func isTemplate(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if len(seg) > 1 && seg[0] == ':' {
			return true
		}
	}
	return false
}

func newTemplate(method, path string, handle HandleFunc) template {
	return template{
		method:   method,
		segments: strings.Split(path, "/"),
		handle:   handle,
	}
}

// match matches a raw request path.
// Captured segments are percent-decoded and must not be empty.
func (t template) match(method, rawPath string) (map[string]string, bool) {
	if t.method != method {
		return nil, false
	}

	segments := strings.Split(rawPath, "/")
	if len(segments) != len(t.segments) {
		return nil, false
	}

	params := make(map[string]string)
	for i, seg := range segments {
		decoded, err := uri.PathUnescape(seg)
		if err != nil {
			return nil, false
		}

		want := t.segments[i]
		if len(want) > 1 && want[0] == ':' {
			if decoded == "" {
				return nil, false
			}
			params[want[1:]] = decoded
			continue
		}

		if decoded != want {
			return nil, false
		}
	}

	return params, true
}
