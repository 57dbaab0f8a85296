package http

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrMalformedResponse = errors.New("malformed response")

// ParseResponse parses a complete response as received by a client.
// Header names are lowercased and every Set-Cookie value is kept in order.
// A body longer than the declared Content-Length is truncated.
func ParseResponse(raw []byte) (*Response, error) {
	line, rest, _ := cutLine(raw)

	code, reason, err := parseStatusLine(line)
	if err != nil {
		return nil, err
	}

	r := &Response{
		StatusCode:    code,
		StatusMessage: reason,
		Headers:       make(map[string]string),
	}

	for {
		var found bool
		line, rest, found = cutLine(rest)
		if len(line) == 0 {
			break
		}

		field, err := ParseField(line)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedResponse, err.Error())
		}

		name := strings.ToLower(field.Name)
		if name == "set-cookie" {
			r.Cookies = append(r.Cookies, field.Value)
		}
		r.Headers[name] = field.Value

		if !found {
			break
		}
	}

	r.body = rest
	if cl, ok := r.Headers["content-length"]; ok {
		n, err := strconv.ParseUint(cl, 10, 31)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedResponse, "invalid content-length %q", cl)
		}
		if uint64(len(r.body)) > n {
			r.body = r.body[:n]
		}
	}

	return r, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4
func parseStatusLine(line []byte) (code int, reason string, err error) {
	version, rest, _ := bytes.Cut(line, []byte{SP})
	if _, err := ParseVersion(version); err != nil {
		return 0, "", errors.Wrap(ErrMalformedResponse, err.Error())
	}

	codeText, reasonText, _ := bytes.Cut(rest, []byte{SP})
	if len(codeText) != 3 {
		return 0, "", errors.Wrapf(ErrMalformedResponse, "invalid status code %q", codeText)
	}

	code, err = strconv.Atoi(string(codeText))
	if err != nil {
		return 0, "", errors.Wrapf(ErrMalformedResponse, "invalid status code %q", codeText)
	}

	return code, string(reasonText), nil
}
