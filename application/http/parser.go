package http

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"http-fixture/application/util/uri"

	"github.com/pkg/errors"
	"golang.org/x/net/http/httpguts"
)

// ParseError reports a request that cannot be parsed.
type ParseError struct {
	msg   string
	cause error
}

func newParseError(cause error, format string, args ...any) *ParseError {
	return &ParseError{msg: fmt.Sprintf(format, args...), cause: cause}
}

func (e *ParseError) Error() string {
	if e.cause == nil {
		return "parsing request: " + e.msg
	}
	return "parsing request: " + e.msg + ": " + e.cause.Error()
}

func (e *ParseError) Unwrap() error { return e.cause }

// IsParseError reports whether err has a [ParseError] in its chain.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ParseRequest parses a buffer holding a request line, a complete header block and
// the body, if any. A body longer than the declared Content-Length is truncated.
func ParseRequest(raw []byte) (*Request, error) {
	line, rest, _ := cutLine(raw)

	method, target, version, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	r := &Request{
		Method:  method,
		Version: version,
		Headers: make(map[string]string),
		Query:   make(map[string]string),
		Cookies: make(map[string]string),
		Form:    make(map[string]string),
	}

	rawPath, query, hasQuery := strings.Cut(target, "?")
	r.RawPath = rawPath
	r.Path = rawPath
	if decoded, err := uri.PathUnescape(rawPath); err == nil {
		r.Path = decoded
	}
	if hasQuery {
		r.Query = ParseQuery(query)
	}

	for {
		var found bool
		line, rest, found = cutLine(rest)
		if len(line) == 0 {
			break
		}

		field, err := ParseField(line)
		if err != nil {
			return nil, newParseError(err, "malformed header")
		}
		if !httpguts.ValidHeaderFieldName(field.Name) {
			return nil, newParseError(nil, "invalid header name %q", field.Name)
		}
		r.Headers[strings.ToLower(field.Name)] = field.Value

		if !found {
			// Header block ended without an empty line.
			break
		}
	}

	r.Body = rest
	if cl, ok := r.Headers["content-length"]; ok {
		n, err := parseContentLength(cl)
		if err != nil {
			return nil, err
		}
		if len(r.Body) > n {
			r.Body = r.Body[:n]
		}
	}
	if r.Body == nil {
		r.Body = []byte{}
	}

	if cookie, ok := r.Headers["cookie"]; ok {
		r.Cookies = ParseCookies(cookie)
	}

	if isFormEncoded(r.Headers["content-type"]) {
		r.Form = ParseQuery(string(r.Body))
	}

	return r, nil
}

func parseRequestLine(line []byte) (method, target, version string, err error) {
	fields := strings.Fields(string(line))
	if len(fields) != 3 {
		return "", "", "", newParseError(nil, "malformed request line %q", line)
	}

	method, target, version = fields[0], fields[1], fields[2]

	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-9.1
	if !httpguts.ValidHeaderFieldName(method) {
		return "", "", "", newParseError(nil, "invalid method %q", method)
	}

	if _, err := ParseVersion([]byte(version)); err != nil {
		return "", "", "", newParseError(err, "invalid version")
	}

	return method, target, version, nil
}

func parseContentLength(v string) (int, error) {
	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6
	n, err := strconv.ParseUint(strings.Trim(v, OWS), 10, 31)
	if err != nil {
		return 0, newParseError(err, "invalid content-length %q", v)
	}
	return int(n), nil
}

// DeclaredContentLength scans a header block for Content-Length, ignoring the field name's case.
// Like [ParseRequest], it honors the last occurrence. It returns 0 when the field is absent.
func DeclaredContentLength(head []byte) (int, error) {
	_, rest, _ := cutLine(head)

	declared, seen := "", false
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = cutLine(rest)
		if len(line) == 0 {
			break
		}

		name, value, found := bytes.Cut(line, []byte{':'})
		if found && strings.EqualFold(string(name), "content-length") {
			declared, seen = string(value), true
		}
	}

	if !seen {
		return 0, nil
	}
	return parseContentLength(declared)
}
