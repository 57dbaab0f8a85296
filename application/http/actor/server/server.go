package server

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"http-fixture/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "http-fixture/application/http/actor/server"

var ErrServerRunning = errors.New("server is already running")

// Server accepts connections and answers exactly one request on each of them.
type Server struct {
	l      transport.Listener
	router *Router

	running atomic.Bool
	connSeq atomic.Uint64

	logger *slog.Logger
	opts   Options
	clock  clock.Clock
	tracer trace.Tracer
}

func New(
	l transport.Listener,
	router *Router,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) *Server {
	if opts.Encode.ServerName == "" {
		opts.Encode.ServerName = "http-fixture/1.0"
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Server{
		l:      l,
		router: router,
		logger: logger,
		opts:   opts,
		clock:  clock,
		tracer: tp.Tracer(tracerName),
	}
}

// Start seals the router and runs the accept loop until [Server.Stop] is called or ctx is done.
// Every connection is served by its own goroutine, which is not awaited.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerRunning
	}
	defer s.running.Store(false)

	table := s.router.Seal()
	connCtx := context.WithoutCancel(ctx)

	s.logger.Info("server started")
	defer s.logger.Info("server stopped")

	var delay time.Duration
	for s.running.Load() {
		stream, err := s.l.Accept(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrListenerClosed) || ctx.Err() != nil || !s.running.Load() {
				return nil
			}

			delay = acceptRetryDelay(delay)
			s.logger.Error(
				"unexpected error when accepting connection",
				"error", err.Error(),
				"retry_in", delay,
			)

			select {
			case <-ctx.Done():
				return nil
			case <-s.clock.After(delay):
			}
			continue
		}
		delay = 0

		c := &conn{
			stream: stream,
			table:  table,
			logger: s.logger.With("conn", s.connSeq.Add(1)),
			opts:   s.opts,
			clock:  s.clock,
			tracer: s.tracer,
		}
		go c.serve(connCtx)
	}

	return nil
}

const (
	minAcceptRetryDelay = 5 * time.Millisecond
	maxAcceptRetryDelay = time.Second
)

// acceptRetryDelay doubles the previous delay up to [maxAcceptRetryDelay].
func acceptRetryDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptRetryDelay
	}
	return min(2*prev, maxAcceptRetryDelay)
}

// Stop ends the accept loop by closing the listener.
// Connections in flight are left alone.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	return s.l.Close()
}

func (s *Server) IsRunning() bool { return s.running.Load() }

// Router returns the router of the server.
func (s *Server) Router() *Router { return s.router }
