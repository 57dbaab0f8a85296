package http

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ParserTestSuite struct {
	suite.Suite
}

func TestParserTestSuite(t *testing.T) {
	suite.Run(t, new(ParserTestSuite))
}

func (s *ParserTestSuite) TestParseRequest() {
	raw := "" +
		"POST /users/a%20b?a=1&b=2&flag HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"X-Custom:   spaced value \t\r\n" +
		"Cookie: x=1; y=2\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		"name=J+D&x=%21"

	r, err := ParseRequest([]byte(raw))
	s.Require().NoError(err)

	s.Equal("POST", r.Method)
	s.Equal("/users/a b", r.Path)
	s.Equal("/users/a%20b", r.RawPath)
	s.Equal("HTTP/1.1", r.Version)
	s.Equal(map[string]string{"a": "1", "b": "2", "flag": ""}, r.Query)
	s.Equal(map[string]string{"x": "1", "y": "2"}, r.Cookies)
	s.Equal("spaced value", r.Header("x-custom"))
	s.Equal(r.Header("Content-Type"), r.Header("content-type"))
	s.True(r.HasHeader("HOST"))
	s.False(r.HasHeader("accept"))
	s.Equal([]byte("name=J+D&x=%2"), r.Body)
	s.Equal("J D", r.FormValue("name"))
	s.Equal("1", r.Cookie("x"))
	s.Equal("", r.Cookie("z"))
	s.Equal("2", r.Param("b"))
}

func (s *ParserTestSuite) TestParseRequestVariants() {
	testcases := []struct {
		desc    string
		raw     string
		check   func(r *Request)
		wantErr bool
	}{
		{
			desc: "no headers no body",
			raw:  "GET / HTTP/1.1\r\n\r\n",
			check: func(r *Request) {
				s.Equal("/", r.Path)
				s.Empty(r.Headers)
				s.Empty(r.Query)
				s.Empty(r.Body)
			},
		},
		{
			desc: "sole LF line terminators",
			raw:  "GET /ping HTTP/1.0\nHost: a\n\nbody",
			check: func(r *Request) {
				s.Equal("/ping", r.Path)
				s.Equal("a", r.Header("host"))
				s.Equal([]byte("body"), r.Body)
			},
		},
		{
			desc: "last duplicate header wins",
			raw:  "GET / HTTP/1.1\r\nX-A: 1\r\nx-a: 2\r\n\r\n",
			check: func(r *Request) {
				s.Equal("2", r.Header("X-A"))
			},
		},
		{
			desc: "form only parsed for urlencoded content type",
			raw:  "POST / HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: 3\r\n\r\na=1",
			check: func(r *Request) {
				s.Empty(r.Form)
				s.Equal([]byte("a=1"), r.Body)
			},
		},
		{
			desc: "malformed percent in path kept raw",
			raw:  "GET /100% HTTP/1.1\r\n\r\n",
			check: func(r *Request) {
				s.Equal("/100%", r.Path)
			},
		},
		{
			desc: "header block without empty line",
			raw:  "GET / HTTP/1.1\r\nHost: a",
			check: func(r *Request) {
				s.Equal("a", r.Header("host"))
				s.Empty(r.Body)
			},
		},
		{
			desc:    "missing version",
			raw:     "GET /\r\n\r\n",
			wantErr: true,
		},
		{
			desc:    "empty input",
			raw:     "",
			wantErr: true,
		},
		{
			desc:    "invalid version",
			raw:     "GET / HTTX/1.1\r\n\r\n",
			wantErr: true,
		},
		{
			desc:    "invalid method",
			raw:     "G(T / HTTP/1.1\r\n\r\n",
			wantErr: true,
		},
		{
			desc:    "header without colon",
			raw:     "GET / HTTP/1.1\r\nHost\r\n\r\n",
			wantErr: true,
		},
		{
			desc:    "whitespace before colon",
			raw:     "GET / HTTP/1.1\r\nHost : a\r\n\r\n",
			wantErr: true,
		},
		{
			desc:    "invalid content-length",
			raw:     "POST / HTTP/1.1\r\nContent-Length: abc\r\n\r\n",
			wantErr: true,
		},
		{
			desc:    "negative content-length",
			raw:     "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			r, err := ParseRequest([]byte(tc.raw))
			if tc.wantErr {
				s.Error(err)
				s.True(IsParseError(err))
				return
			}

			s.Require().NoError(err)
			tc.check(r)
		})
	}
}

func (s *ParserTestSuite) TestDuplicateContentLengthAgreesWithParser() {
	raw := "POST / HTTP/1.1\r\nContent-Length: 0\r\nContent-Length: 5\r\n\r\nhello"

	n, err := DeclaredContentLength([]byte(raw))
	s.Require().NoError(err)

	r, err := ParseRequest([]byte(raw))
	s.Require().NoError(err)
	s.Equal(r.Header("Content-Length"), strconv.Itoa(n))
	s.Equal([]byte("hello"), r.Body)
}

func (s *ParserTestSuite) TestDeclaredContentLength() {
	testcases := []struct {
		desc     string
		head     string
		expected int
		wantErr  bool
	}{
		{
			desc:     "absent",
			head:     "GET / HTTP/1.1\r\nHost: a\r\n\r\n",
			expected: 0,
		},
		{
			desc:     "canonical case",
			head:     "POST / HTTP/1.1\r\nContent-Length: 12\r\n\r\n",
			expected: 12,
		},
		{
			desc:     "lower case with spaces",
			head:     "POST / HTTP/1.1\r\ncontent-length:   7 \r\n\r\n",
			expected: 7,
		},
		{
			desc:     "not confused by other fields",
			head:     "POST / HTTP/1.1\r\nX-Content-Length: 3\r\n\r\n",
			expected: 0,
		},
		{
			desc:     "last occurrence wins",
			head:     "POST / HTTP/1.1\r\nContent-Length: 0\r\ncontent-length: 5\r\n\r\n",
			expected: 5,
		},
		{
			desc:    "unparsable",
			head:    "POST / HTTP/1.1\r\nContent-Length: x\r\n\r\n",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			n, err := DeclaredContentLength([]byte(tc.head))
			if tc.wantErr {
				s.True(IsParseError(err))
				return
			}

			s.NoError(err)
			s.Equal(tc.expected, n)
		})
	}
}
