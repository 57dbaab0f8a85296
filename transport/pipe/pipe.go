// Package pipe provides synchronous in-memory connections.
// They stand in for network sockets in tests.
package pipe

import (
	"sync"
	"time"

	"http-fixture/transport"

	"github.com/benbjohnson/clock"
)

// Conn is one end of a synchronous, unbuffered pipe.
// A Write blocks until the counterpart has read every byte.
type Conn struct {
	name string

	stream chan []byte // stream that this end reads from.
	nc     chan int    // counterpart's read count will be sent here.

	writeMu sync.Mutex

	closed chan struct{}
	once   sync.Once

	rdeadLine *chanDeadLine
	wdeadLine *chanDeadLine

	counterpart *Conn
}

// New creates a connected pair.
func New(name1, name2 string, clock clock.Clock) (c1, c2 *Conn) {
	c1 = newConn(name1, clock)
	c2 = newConn(name2, clock)
	c1.counterpart, c2.counterpart = c2, c1
	return
}

func newConn(name string, clock clock.Clock) *Conn {
	return &Conn{
		name:      name,
		stream:    make(chan []byte),
		nc:        make(chan int),
		closed:    make(chan struct{}),
		rdeadLine: newChanDeadLine(clock),
		wdeadLine: newChanDeadLine(clock),
	}
}

func (p *Conn) Name() string       { return p.name }
func (p *Conn) RemoteName() string { return p.counterpart.name }

func (p *Conn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *Conn) Read(b []byte) (n int, err error) {
	if err := p.checkOK(p.rdeadLine); err != nil {
		return 0, err
	}

	select {
	case received := <-p.stream:
		n := copy(b, received)
		p.counterpart.nc <- n
		return n, nil
	case <-p.closed:
		return 0, transport.ErrConnClosed
	case <-p.counterpart.closed:
		return 0, transport.ErrConnClosed
	case <-p.rdeadLine.wait():
		return 0, transport.ErrDeadLineExceeded
	}
}

func (p *Conn) Write(b []byte) (n int, err error) {
	if err := p.checkOK(p.wdeadLine); err != nil {
		return 0, err
	}

	if len(b) == 0 {
		return 0, nil
	}

	// Serialize write operations to prevent interleaving write.
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	nn := 0
	for len(b) > 0 {
		select {
		case p.counterpart.stream <- b:
			n := <-p.nc
			b = b[n:]
			nn += n
		case <-p.closed:
			return nn, transport.ErrConnClosed
		case <-p.counterpart.closed:
			return nn, transport.ErrConnClosed
		case <-p.wdeadLine.wait():
			return nn, transport.ErrDeadLineExceeded
		}
	}

	return nn, nil
}

func (p *Conn) checkOK(d *chanDeadLine) error {
	switch {
	case isClosed(p.closed):
		return transport.ErrConnClosed
	case isClosed(p.counterpart.closed):
		return transport.ErrConnClosed
	case isClosed(d.wait()):
		return transport.ErrDeadLineExceeded
	}
	return nil
}

func (p *Conn) SetReadDeadline(t time.Time) error  { p.rdeadLine.set(t); return nil }
func (p *Conn) SetWriteDeadline(t time.Time) error { p.wdeadLine.set(t); return nil }

type chanDeadLine struct {
	clock clock.Clock

	t *clock.Timer
	m sync.Mutex

	closed chan struct{}
}

func newChanDeadLine(clock clock.Clock) *chanDeadLine {
	return &chanDeadLine{
		clock:  clock,
		closed: make(chan struct{}),
	}
}

func (d *chanDeadLine) set(t time.Time) {
	d.m.Lock()
	defer d.m.Unlock()

	if d.t != nil {
		d.t.Stop()
	}
	d.t = nil

	if isClosed(d.closed) {
		d.closed = make(chan struct{})
	}

	if t.IsZero() {
		// zero value means no limit.
		return
	}

	closed := d.closed
	if !t.After(d.clock.Now()) {
		close(closed)
		return
	}

	d.t = d.clock.AfterFunc(d.clock.Until(t), func() {
		close(closed)
	})
}

func (d *chanDeadLine) wait() <-chan struct{} {
	d.m.Lock()
	defer d.m.Unlock()
	return d.closed
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c: // c will only fire at closed state.
		return true
	default:
		return false
	}
}
