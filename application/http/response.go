package http

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"http-fixture/application/http/status"
)

// Response is an HTTP response under construction.
// Its body can only be replaced through [Response.SetBody],
// which keeps the Content-Length header in sync.
type Response struct {
	StatusCode    int
	StatusMessage string

	// Headers keep the case they were set with.
	// Use [Response.SetHeader] to replace a field regardless of its case.
	Headers map[string]string
	// Cookies are raw Set-Cookie values in insertion order.
	Cookies []string

	body []byte
}

// NewResponse creates an empty response with the reason phrase of code.
func NewResponse(code int) *Response {
	return &Response{
		StatusCode:    code,
		StatusMessage: status.Text(code),
		Headers:       make(map[string]string),
	}
}

func (r *Response) SetStatus(code int) *Response {
	r.StatusCode = code
	r.StatusMessage = status.Text(code)
	return r
}

// SetHeader sets a header, replacing any field with the same name in a different case.
func (r *Response) SetHeader(name, value string) *Response {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}

	for k := range r.Headers {
		if k != name && strings.EqualFold(k, name) {
			delete(r.Headers, k)
		}
	}
	r.Headers[name] = value

	return r
}

// Header returns the value of the named header, ignoring case.
func (r *Response) Header(name string) string {
	v, _ := r.lookupHeader(name)
	return v
}

func (r *Response) HasHeader(name string) bool {
	_, ok := r.lookupHeader(name)
	return ok
}

func (r *Response) lookupHeader(name string) (string, bool) {
	if v, ok := r.Headers[name]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Clone returns a copy whose headers and cookies can be changed without touching r.
// The body is shared.
func (r *Response) Clone() *Response {
	c := *r
	c.Headers = maps.Clone(r.Headers)
	c.Cookies = slices.Clone(r.Cookies)
	return &c
}

func (r *Response) SetCookie(name, value string, opts CookieOptions) *Response {
	r.Cookies = append(r.Cookies, FormatSetCookie(name, value, opts))
	return r
}

// SetBody replaces the body and overwrites Content-Length.
func (r *Response) SetBody(body []byte) *Response {
	r.body = body
	return r.SetHeader("Content-Length", strconv.Itoa(len(body)))
}

func (r *Response) Body() []byte { return r.body }

func (r *Response) SetJSON(body []byte) *Response {
	r.SetHeader("Content-Type", "application/json")
	return r.SetBody(body)
}

func (r *Response) SetHTML(html []byte) *Response {
	r.SetHeader("Content-Type", "text/html; charset=utf-8")
	return r.SetBody(html)
}

// Redirect points the client to location.
// A zero code means 302 Found.
func (r *Response) Redirect(location string, code int) *Response {
	if code == 0 {
		code = status.Found.Code
	}
	r.SetStatus(code)
	return r.SetHeader("Location", location)
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
