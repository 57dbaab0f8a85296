// Package transport defines the byte-stream capability the HTTP engine is written against.
//
// Concrete transports (TCP, TLS, proxies, subprocess pipes) live outside the engine.
// They only need to hand over a [Stream], or an [io.ReadWriteCloser] wrapped with [NewStream].
package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed       = errors.New("connection is closed")
	ErrListenerClosed   = errors.New("listener is closed")
	ErrDeadLineExceeded = errors.New("deadline exceeded")
	ErrAddrInUse        = errors.New("address already in use")
	ErrConnRefused      = errors.New("connection refused")
	ErrLimitReached     = errors.New("limit reached before delimiter")
)

// Stream is a bidirectional byte stream.
type Stream interface {
	Send(b []byte) error
	// SendLine sends b followed by a single LF.
	SendLine(b []byte) error

	// Recv blocks until n bytes arrived or the stream ended.
	// It only returns fewer than n bytes when the peer is gone.
	Recv(n int) ([]byte, error)
	// RecvUntil returns everything up to and including delim.
	// If the stream ends first, the bytes read so far are returned along with the error.
	RecvUntil(delim []byte) ([]byte, error)
	RecvLine() ([]byte, error)
	// RecvAll reads until the peer closes.
	RecvAll() ([]byte, error)

	IsAlive() bool
	Close() error
}

// Deadliner is implemented by streams that support read deadlines.
type Deadliner interface {
	SetReadDeadline(t time.Time) error
}

// LimitedReceiver is implemented by streams that can bound [Stream.RecvUntil].
type LimitedReceiver interface {
	// RecvUntilLimit fails with [ErrLimitReached] when delim isn't found within limit bytes.
	// The stream stays usable after that error.
	RecvUntilLimit(delim []byte, limit int) ([]byte, error)
}

type Listener interface {
	// Accept blocks until a peer connects, ctx is done or the listener is closed.
	Accept(ctx context.Context) (Stream, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, addr string) (Stream, error)
}
