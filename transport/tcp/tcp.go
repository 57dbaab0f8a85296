// Package tcp adapts the standard library's TCP sockets to [transport.Listener] and [transport.Dialer].
package tcp

import (
	"context"
	"net"
	"time"

	"http-fixture/transport"

	"github.com/pkg/errors"
)

type Listener struct {
	ln net.Listener
}

var _ transport.Listener = (*Listener)(nil)

func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", addr)
	}
	return &Listener{ln: ln}, nil
}

func (l *Listener) Addr() string { return l.ln.Addr().String() }

// Accept only checks ctx before blocking. Use Close to unblock a pending Accept.
func (l *Listener) Accept(ctx context.Context) (transport.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := l.ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, transport.ErrListenerClosed
		}
		return nil, errors.Wrap(err, "accepting connection")
	}

	return transport.NewStream(conn), nil
}

func (l *Listener) Close() error { return l.ln.Close() }

type Dialer struct {
	Timeout time.Duration
}

var _ transport.Dialer = Dialer{}

func (d Dialer) Dial(ctx context.Context, addr string) (transport.Stream, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}
	return transport.NewStream(conn), nil
}
