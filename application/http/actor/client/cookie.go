package client

import (
	"maps"
	"strings"

	"http-fixture/application/http"
)

// cookieJar keeps cookies for the lifetime of a client.
// Domain, path and expiry attributes are ignored.
type cookieJar struct {
	cookies map[string]string
}

func (j *cookieJar) store(setCookies []string) {
	for _, sc := range setCookies {
		name, value, ok := http.ParseSetCookie(sc)
		if !ok {
			continue
		}
		j.cookies[name] = value
	}
}

func (c *Client) Cookies() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.jar.cookies)
}

// SetCookies replaces every cookie of the jar.
func (c *Client) SetCookies(cookies map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.jar.cookies = make(map[string]string, len(cookies))
	maps.Copy(c.jar.cookies, cookies)
}

func (c *Client) ClearCookies() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.jar.cookies)
}

func (c *Client) cookieHeader() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return http.FormatCookies(c.jar.cookies)
}

func (c *Client) storeCookies(setCookies []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jar.store(setCookies)
}

// CookiesFrom collects the cookies set by response.
func CookiesFrom(response *http.Response) map[string]string {
	jar := cookieJar{cookies: make(map[string]string)}
	jar.store(response.Cookies)
	return jar.cookies
}

// WithCookies returns a copy of headers carrying cookies in its Cookie header.
// An existing Cookie header, in any case, is replaced.
func WithCookies(headers map[string]string, cookies map[string]string) map[string]string {
	merged := make(map[string]string, len(headers)+1)
	for name, value := range headers {
		if strings.EqualFold(name, "Cookie") {
			continue
		}
		merged[name] = value
	}

	if len(cookies) > 0 {
		merged["Cookie"] = http.FormatCookies(cookies)
	}

	return merged
}
