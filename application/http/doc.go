// Package http implements the HTTP/1.1 message model used by the fixture server and client,
// together with the wire codec for it.
// Bodies are always delimited by Content-Length and every connection carries a single exchange.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
//
// - https://datatracker.ietf.org/doc/html/rfc6265
package http
