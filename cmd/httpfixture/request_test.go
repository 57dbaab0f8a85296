package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"http-fixture/application/http"
	"http-fixture/application/http/actor/server"
	"http-fixture/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
)

type RequestTestSuite struct {
	suite.Suite

	server *server.Server
	done   chan error
	base   string
}

func TestRequestTestSuite(t *testing.T) {
	suite.Run(t, new(RequestTestSuite))
}

func (s *RequestTestSuite) SetupTest() {
	router := server.NewRouter(afero.NewMemMapFs())
	router.Post("/echo", func(r *http.Request) *http.Response {
		res := http.NewResponse(201).SetBody([]byte(r.Header("X-Name") + ":" + string(r.Body)))
		res.SetCookie("seen", "1", http.CookieOptions{})
		return res
	})

	lis, err := tcp.Listen("127.0.0.1:0")
	s.Require().NoError(err)
	s.base = "http://" + lis.Addr()

	s.server = server.New(lis, router, slog.New(slog.DiscardHandler), clock.NewMock(), server.Options{})
	s.done = make(chan error, 1)
	go func() { s.done <- s.server.Start(context.Background()) }()
	s.Require().Eventually(s.server.IsRunning, time.Second, time.Millisecond)
}

func (s *RequestTestSuite) TearDownTest() {
	s.NoError(s.server.Stop())
	s.NoError(<-s.done)
}

func (s *RequestTestSuite) run(args ...string) (string, error) {
	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"request"}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *RequestTestSuite) TestPost() {
	out, err := s.run("-X", "post", "-H", "X-Name: fixture", "-d", "hello", s.base+"/echo")
	s.Require().NoError(err)

	s.Contains(out, "201 Created\n")
	s.Contains(out, "content-length: 13\n")
	s.Contains(out, "date: Thu, 01 Jan 1970 00:00:00 GMT\n")
	s.Contains(out, "set-cookie: seen=1\n")
	s.True(bytes.HasSuffix([]byte(out), []byte("\n\nfixture:hello")))
}

func (s *RequestTestSuite) TestNotFoundIsPrinted() {
	out, err := s.run(s.base + "/missing")
	s.Require().NoError(err)
	s.Contains(out, "404 Not Found\n")
}

func (s *RequestTestSuite) TestInvalidHeader() {
	_, err := s.run("-H", "no colon", s.base+"/echo")
	s.Error(err)
}

func (s *RequestTestSuite) TestMissingURL() {
	_, err := s.run()
	s.Error(err)
}
