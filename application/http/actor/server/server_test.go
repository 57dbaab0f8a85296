package server

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"http-fixture/application/http"
	"http-fixture/transport"
	"http-fixture/transport/pipe"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
)

const serverAddr = "server"

type ServerTestSuite struct {
	suite.Suite

	clock     *clock.Mock
	transport *pipe.Transport
	recorder  *tracetest.SpanRecorder

	router *Router
	server *Server
	opts   Options

	done chan error
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.transport = pipe.NewTransport(s.clock)
	s.recorder = tracetest.NewSpanRecorder()
	s.router = NewRouter(afero.NewMemMapFs())
	s.opts = Options{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.recorder)),
	}
	s.done = make(chan error, 1)
}

func (s *ServerTestSuite) TearDownTest() {
	if s.server != nil {
		s.NoError(s.server.Stop())
		s.NoError(<-s.done)
		s.False(s.server.IsRunning())
		s.server = nil
	}

	goleak.VerifyNone(s.T())
}

func (s *ServerTestSuite) start() {
	lis, err := s.transport.Listen(serverAddr)
	s.Require().NoError(err)

	s.server = New(lis, s.router, slog.New(slog.DiscardHandler), s.clock, s.opts)
	go func() { s.done <- s.server.Start(context.Background()) }()

	s.Require().Eventually(s.server.IsRunning, time.Second, time.Millisecond)
}

func (s *ServerTestSuite) roundTrip(raw string) *http.Response {
	stream, err := s.transport.Dial(context.Background(), serverAddr)
	s.Require().NoError(err)
	defer stream.Close()

	s.Require().NoError(stream.Send([]byte(raw)))

	b, err := stream.RecvAll()
	s.Require().NoError(err)

	res, err := http.ParseResponse(b)
	s.Require().NoError(err)
	return res
}

func (s *ServerTestSuite) TestPingPong() {
	s.router.Get("/ping", func(*http.Request) *http.Response {
		return http.NewResponse(200).SetBody([]byte("pong"))
	})
	s.start()

	res := s.roundTrip("GET /ping HTTP/1.1\r\nHost: fixture\r\n\r\n")

	s.Equal(200, res.StatusCode)
	s.Equal("OK", res.StatusMessage)
	s.Equal([]byte("pong"), res.Body())
	s.Equal("4", res.Header("Content-Length"))
	s.Equal("http-fixture/1.0", res.Header("Server"))
	s.Equal("Thu, 01 Jan 1970 00:00:00 GMT", res.Header("Date"))
}

func (s *ServerTestSuite) TestRequestBody() {
	s.router.Post("/echo", func(r *http.Request) *http.Response {
		return http.NewResponse(201).SetBody(append([]byte(r.FormValue("name")+":"), r.Body...))
	})
	s.start()

	res := s.roundTrip("" +
		"POST /echo HTTP/1.1\r\n" +
		"content-length: 10\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"\r\n" +
		"name=a+b&x")

	s.Equal(201, res.StatusCode)
	s.Equal("a b:name=a+b&x", string(res.Body()))
}

func (s *ServerTestSuite) TestConcurrentRequests() {
	s.router.Get("/ping", func(*http.Request) *http.Response {
		return http.NewResponse(200).SetBody([]byte("pong"))
	})
	s.start()

	const n = 8
	codes := make(chan int, n)
	for range n {
		go func() {
			stream, err := s.transport.Dial(context.Background(), serverAddr)
			if err != nil {
				codes <- 0
				return
			}
			defer stream.Close()

			if err := stream.Send([]byte("GET /ping HTTP/1.1\r\n\r\n")); err != nil {
				codes <- 0
				return
			}
			b, _ := stream.RecvAll()
			res, err := http.ParseResponse(b)
			if err != nil {
				codes <- 0
				return
			}
			codes <- res.StatusCode
		}()
	}

	for range n {
		s.Equal(200, <-codes)
	}
}

func (s *ServerTestSuite) TestHandlerPanicKeepsServing() {
	s.router.Get("/boom", func(*http.Request) *http.Response {
		var m map[string]int
		m["x"]++
		return nil
	})
	s.router.Get("/ping", func(*http.Request) *http.Response {
		return http.NewResponse(200).SetBody([]byte("pong"))
	})
	s.start()

	res := s.roundTrip("GET /boom HTTP/1.1\r\n\r\n")
	s.Equal(500, res.StatusCode)

	res = s.roundTrip("GET /ping HTTP/1.1\r\n\r\n")
	s.Equal(200, res.StatusCode)
	s.True(s.server.IsRunning())
}

func (s *ServerTestSuite) TestBadRequest() {
	s.start()

	testcases := []struct {
		desc string
		raw  string
		code int
	}{
		{
			desc: "malformed request line",
			raw:  "BROKEN\r\n\r\n",
			code: 400,
		},
		{
			desc: "bad content-length",
			raw:  "POST / HTTP/1.1\r\nContent-Length: nope\r\n\r\n",
			code: 400,
		},
		{
			desc: "header without colon",
			raw:  "GET / HTTP/1.1\r\nbroken\r\n\r\n",
			code: 400,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			res := s.roundTrip(tc.raw)
			s.Equal(tc.code, res.StatusCode)
			s.Equal("Bad Request", res.StatusMessage)
		})
	}
}

func (s *ServerTestSuite) TestPayloadTooLarge() {
	s.opts.MaxBodyLength = 4
	s.start()

	res := s.roundTrip("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\n")
	s.Equal(413, res.StatusCode)
	s.Equal("Payload Too Large", res.StatusMessage)
}

func (s *ServerTestSuite) TestHeaderTooLarge() {
	s.opts.MaxHeaderLength = 64
	s.start()

	stream, err := s.transport.Dial(context.Background(), serverAddr)
	s.Require().NoError(err)
	defer stream.Close()

	// The server stops reading once the limit is exceeded, so the send only ends at close.
	sent := make(chan error, 1)
	go func() {
		sent <- stream.Send([]byte("GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 2000) + "\r\n\r\n"))
	}()

	b, err := stream.RecvAll()
	s.Require().NoError(err)

	res, err := http.ParseResponse(b)
	s.Require().NoError(err)
	s.Equal(431, res.StatusCode)
	s.Equal("Request Header Fields Too Large", res.StatusMessage)
	s.Equal("request head exceeds 64 bytes", string(res.Body()))

	s.ErrorIs(<-sent, transport.ErrConnClosed)
}

func (s *ServerTestSuite) TestHeaderWithinLimit() {
	s.opts.MaxHeaderLength = 64
	s.router.Get("/ping", func(*http.Request) *http.Response {
		return http.NewResponse(200).SetBody([]byte("pong"))
	})
	s.start()

	res := s.roundTrip("GET /ping HTTP/1.1\r\nHost: fixture\r\n\r\n")
	s.Equal(200, res.StatusCode)
}

func (s *ServerTestSuite) TestReadTimeout() {
	s.opts.ReadTimeout = time.Second
	s.start()

	stream, err := s.transport.Dial(context.Background(), serverAddr)
	s.Require().NoError(err)
	defer stream.Close()

	received := make(chan []byte, 1)
	go func() {
		b, _ := stream.RecvAll()
		received <- b
	}()

	var b []byte
	s.Require().Eventually(func() bool {
		s.clock.Add(time.Second)
		select {
		case b = <-received:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	res, err := http.ParseResponse(b)
	s.Require().NoError(err)
	s.Equal(408, res.StatusCode)
}

func (s *ServerTestSuite) TestClosedBeforeRequest() {
	s.start()

	stream, err := s.transport.Dial(context.Background(), serverAddr)
	s.Require().NoError(err)
	s.NoError(stream.Close())
}

func (s *ServerTestSuite) TestStartTwice() {
	s.start()

	s.ErrorIs(s.server.Start(context.Background()), ErrServerRunning)
	s.True(s.server.IsRunning())
}

func (s *ServerTestSuite) TestStartCanceled() {
	lis, err := s.transport.Listen(serverAddr)
	s.Require().NoError(err)
	defer lis.Close()

	srv := New(lis, s.router, slog.New(slog.DiscardHandler), s.clock, s.opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	s.Require().Eventually(srv.IsRunning, time.Second, time.Millisecond)
	cancel()

	s.NoError(<-done)
	s.False(srv.IsRunning())
}

func (s *ServerTestSuite) TestSpan() {
	s.router.Get("/ping", func(*http.Request) *http.Response {
		return http.NewResponse(200).SetBody([]byte("pong"))
	})
	s.start()

	s.roundTrip("GET /ping HTTP/1.1\r\n\r\n")

	s.Require().Eventually(func() bool { return len(s.recorder.Ended()) == 1 }, time.Second, time.Millisecond)

	span := s.recorder.Ended()[0]
	s.Equal("GET /ping", span.Name())
	s.Contains(span.Attributes(), attribute.String("http.request.method", "GET"))
	s.Contains(span.Attributes(), attribute.String("url.path", "/ping"))
	s.Contains(span.Attributes(), attribute.Int("http.response.status_code", 200))
}

// failingListener fails every Accept until it is closed.
type failingListener struct {
	accepts atomic.Int32

	closed chan struct{}
	once   sync.Once
}

func (l *failingListener) Accept(context.Context) (transport.Stream, error) {
	l.accepts.Add(1)
	select {
	case <-l.closed:
		return nil, transport.ErrListenerClosed
	default:
		return nil, errors.New("accept: too many open files")
	}
}

func (l *failingListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (s *ServerTestSuite) TestAcceptErrorsBackOff() {
	lis := &failingListener{closed: make(chan struct{})}
	srv := New(lis, s.router, slog.New(slog.DiscardHandler), s.clock, s.opts)

	done := make(chan error, 1)
	go func() { done <- srv.Start(context.Background()) }()

	s.Require().Eventually(func() bool { return lis.accepts.Load() == 1 }, time.Second, time.Millisecond)
	s.Never(func() bool { return lis.accepts.Load() > 1 }, 20*time.Millisecond, time.Millisecond)

	s.Require().Eventually(func() bool {
		s.clock.Add(minAcceptRetryDelay)
		return lis.accepts.Load() >= 2
	}, time.Second, time.Millisecond)

	s.NoError(srv.Stop())

	s.Require().Eventually(func() bool {
		s.clock.Add(maxAcceptRetryDelay)
		select {
		case err := <-done:
			s.NoError(err)
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestAcceptRetryDelay(t *testing.T) {
	testcases := []struct {
		desc     string
		prev     time.Duration
		expected time.Duration
	}{
		{desc: "first failure", prev: 0, expected: minAcceptRetryDelay},
		{desc: "doubles", prev: 40 * time.Millisecond, expected: 80 * time.Millisecond},
		{desc: "capped", prev: 800 * time.Millisecond, expected: maxAcceptRetryDelay},
		{desc: "stays capped", prev: maxAcceptRetryDelay, expected: maxAcceptRetryDelay},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			if got := acceptRetryDelay(tc.prev); got != tc.expected {
				t.Errorf("acceptRetryDelay(%v) = %v, want %v", tc.prev, got, tc.expected)
			}
		})
	}
}
