package http

import "strings"

const FormContentType = "application/x-www-form-urlencoded"

// Request is a parsed HTTP request.
// Every derived map is computed once by [ParseRequest] and never re-derived
// from Headers or Body afterwards.
type Request struct {
	Method string
	// Path is the percent-decoded target path without the query.
	Path string
	// RawPath is the target path as it was received.
	RawPath string
	Version string

	// Headers are keyed by lowercase field names. The last field with a given name wins.
	Headers map[string]string
	Query   map[string]string
	Cookies map[string]string
	// Form is only populated for application/x-www-form-urlencoded bodies.
	Form map[string]string
	Body []byte

	// PathParams are captured by the router from ":name" segments of a route template.
	PathParams map[string]string
}

// Header returns the value of the named header, ignoring case.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

func (r *Request) HasHeader(name string) bool {
	_, ok := r.Headers[strings.ToLower(name)]
	return ok
}

func (r *Request) Cookie(name string) string    { return r.Cookies[name] }
func (r *Request) Param(name string) string     { return r.Query[name] }
func (r *Request) FormValue(name string) string { return r.Form[name] }
func (r *Request) PathParam(name string) string { return r.PathParams[name] }

func isFormEncoded(contentType string) bool {
	return strings.Contains(contentType, FormContentType)
}
