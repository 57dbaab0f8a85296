// Package uri implements the percent-encoding rules of Uniform Resource Identifier (URI)
// used by query strings, form bodies and path segments.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986#section-2.1
//
// - https://url.spec.whatwg.org/#application/x-www-form-urlencoded
package uri
