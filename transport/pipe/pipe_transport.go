package pipe

import (
	"context"
	"sync"

	"http-fixture/transport"

	"github.com/benbjohnson/clock"
)

type dialRequest struct {
	conn     *Conn
	accepted chan struct{}
}

// Transport routes dials to listeners by name.
type Transport struct {
	listeners map[string]*Listener
	clock     clock.Clock

	mu sync.Mutex
}

var _ transport.Dialer = (*Transport)(nil)

func NewTransport(clock clock.Clock) *Transport {
	return &Transport{
		listeners: make(map[string]*Listener),
		clock:     clock,
	}
}

func (pt *Transport) Dial(ctx context.Context, addr string) (transport.Stream, error) {
	pt.mu.Lock()
	listener, ok := pt.listeners[addr]
	pt.mu.Unlock()

	if !ok {
		return nil, transport.ErrConnRefused
	}

	c1, c2 := New("dialer", addr, pt.clock)

	req := dialRequest{
		conn:     c2,
		accepted: make(chan struct{}, 1),
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case listener.requests <- req:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case <-req.accepted:
	}

	return transport.NewStream(c1), nil
}

func (pt *Transport) Listen(addr string) (*Listener, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, ok := pt.listeners[addr]; ok {
		return nil, transport.ErrAddrInUse
	}

	pl := &Listener{
		addr:      addr,
		transport: pt,
		requests:  make(chan dialRequest),
		closed:    make(chan struct{}),
	}
	pt.listeners[addr] = pl

	return pl, nil
}

type Listener struct {
	addr      string
	transport *Transport

	requests chan dialRequest
	closed   chan struct{}
	once     sync.Once
}

var _ transport.Listener = (*Listener)(nil)

func (pl *Listener) Accept(ctx context.Context) (transport.Stream, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.closed:
		return nil, transport.ErrListenerClosed
	case req := <-pl.requests:
		req.accepted <- struct{}{}
		return transport.NewStream(req.conn), nil
	}
}

func (pl *Listener) Close() error {
	err := transport.ErrListenerClosed
	pl.once.Do(func() {
		err = nil
		close(pl.closed)

		pl.transport.mu.Lock()
		delete(pl.transport.listeners, pl.addr)
		pl.transport.mu.Unlock()
	})
	return err
}
