package client

import (
	"testing"

	"http-fixture/application/http"

	"github.com/stretchr/testify/assert"
)

func TestWithCookies(t *testing.T) {
	headers := map[string]string{"cookie": "old=1", "Accept": "*/*"}

	merged := WithCookies(headers, map[string]string{"b": "2", "a": "1"})

	assert.Equal(t, map[string]string{"Accept": "*/*", "Cookie": "a=1; b=2"}, merged)
	assert.Equal(t, "old=1", headers["cookie"], "input must not be modified")

	assert.Equal(t, map[string]string{"Accept": "*/*"}, WithCookies(headers, nil))
}

func TestCookiesFrom(t *testing.T) {
	res := http.NewResponse(200)
	res.SetCookie("a", "1", http.DefaultCookieOptions())
	res.SetCookie("a", "2", http.CookieOptions{})
	res.Cookies = append(res.Cookies, "; broken")

	assert.Equal(t, map[string]string{"a": "2"}, CookiesFrom(res))
}
