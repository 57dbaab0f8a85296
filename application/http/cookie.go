package http

import (
	"slices"
	"strconv"
	"strings"
)

// CookieOptions are the attributes rendered into a Set-Cookie value.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-4.1
type CookieOptions struct {
	// MaxAge in seconds. Zero or less renders a session cookie.
	MaxAge   int
	Path     string
	Domain   string
	Secure   bool
	HttpOnly bool
	// SameSite is omitted when empty.
	SameSite string
}

func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		Path:     "/",
		HttpOnly: true,
		SameSite: "Lax",
	}
}

// FormatSetCookie renders a Set-Cookie header value.
func FormatSetCookie(name, value string, opts CookieOptions) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)

	if opts.MaxAge > 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(opts.MaxAge))
	}
	if opts.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(opts.Path)
	}
	if opts.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(opts.Domain)
	}
	if opts.Secure {
		b.WriteString("; Secure")
	}
	if opts.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if opts.SameSite != "" {
		b.WriteString("; SameSite=")
		b.WriteString(opts.SameSite)
	}

	return b.String()
}

// ParseCookies parses the value of a Cookie header.
// Pairs without "=" are ignored.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc6265#section-5.4
func ParseCookies(header string) map[string]string {
	cookies := make(map[string]string)

	for _, pair := range strings.Split(header, ";") {
		pair = strings.Trim(pair, OWS)

		name, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		cookies[name] = value
	}

	return cookies
}

// ParseSetCookie returns the name and value of a Set-Cookie header value, dropping its attributes.
func ParseSetCookie(header string) (name, value string, ok bool) {
	pair, _, _ := strings.Cut(header, ";")
	name, value, ok = strings.Cut(strings.Trim(pair, OWS), "=")
	if !ok || name == "" {
		return "", "", false
	}

	return name, value, true
}

// FormatCookies renders cookies as a Cookie header value, sorted by name.
func FormatCookies(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	slices.Sort(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+cookies[name])
	}

	return strings.Join(pairs, "; ")
}
