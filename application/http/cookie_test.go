package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSetCookie(t *testing.T) {
	testcases := []struct {
		desc     string
		opts     CookieOptions
		expected string
	}{
		{
			desc:     "defaults",
			opts:     DefaultCookieOptions(),
			expected: "sid=abc; Path=/; HttpOnly; SameSite=Lax",
		},
		{
			desc:     "no attributes",
			opts:     CookieOptions{},
			expected: "sid=abc",
		},
		{
			desc: "every attribute",
			opts: CookieOptions{
				MaxAge:   3600,
				Path:     "/app",
				Domain:   "example.com",
				Secure:   true,
				HttpOnly: true,
				SameSite: "Strict",
			},
			expected: "sid=abc; Max-Age=3600; Path=/app; Domain=example.com; Secure; HttpOnly; SameSite=Strict",
		},
		{
			desc:     "non-positive max-age omitted",
			opts:     CookieOptions{MaxAge: -1, Secure: true},
			expected: "sid=abc; Secure",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatSetCookie("sid", "abc", tc.opts))
		})
	}
}

func TestSetCookieOrder(t *testing.T) {
	res := NewResponse(200)
	res.SetCookie("a", "1", CookieOptions{})
	res.SetCookie("b", "2", CookieOptions{})

	assert.Equal(t, []string{"a=1", "b=2"}, res.Cookies)
}

func TestParseCookies(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected map[string]string
	}{
		{
			desc:     "two pairs",
			input:    "x=1; y=2",
			expected: map[string]string{"x": "1", "y": "2"},
		},
		{
			desc:     "tabs and empty values",
			input:    "\tx=;y=a=b ",
			expected: map[string]string{"x": "", "y": "a=b"},
		},
		{
			desc:     "pair without equal sign ignored",
			input:    "flag; x=1",
			expected: map[string]string{"x": "1"},
		},
		{
			desc:     "empty",
			input:    "",
			expected: map[string]string{},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseCookies(tc.input))
		})
	}
}

func TestParseSetCookie(t *testing.T) {
	name, value, ok := ParseSetCookie("sid=abc; Path=/; HttpOnly")
	assert.True(t, ok)
	assert.Equal(t, "sid", name)
	assert.Equal(t, "abc", value)

	_, _, ok = ParseSetCookie("; Path=/")
	assert.False(t, ok)
}

func TestFormatCookies(t *testing.T) {
	assert.Equal(t, "a=1; b=2", FormatCookies(map[string]string{"b": "2", "a": "1"}))
	assert.Equal(t, "", FormatCookies(nil))
}
