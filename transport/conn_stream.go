package transport

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	iolib "http-fixture/lib/io"

	"github.com/pkg/errors"
)

// ConnStream adapts a raw connection into a [Stream].
type ConnStream struct {
	conn io.ReadWriteCloser
	r    *iolib.UntilReader

	writeMu sync.Mutex

	// Set once the peer is gone or Close was called.
	dead      atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var (
	_ Stream          = (*ConnStream)(nil)
	_ Deadliner       = (*ConnStream)(nil)
	_ LimitedReceiver = (*ConnStream)(nil)
)

func NewStream(conn io.ReadWriteCloser) *ConnStream {
	return &ConnStream{
		conn: conn,
		r:    iolib.NewUntilReader(conn),
	}
}

func (s *ConnStream) Send(b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := iolib.WriteFull(s.conn, b); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *ConnStream) SendLine(b []byte) error {
	line := make([]byte, 0, len(b)+1)
	line = append(line, b...)
	line = append(line, '\n')
	return s.Send(line)
}

func (s *ConnStream) Recv(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}

	b, err := iolib.ReadAtMost(s.r, uint(n))
	if err != nil {
		if isEOF(err) && len(b) > 0 {
			s.dead.Store(true)
			return b, nil
		}
		return b, s.fail(err)
	}

	if len(b) < n {
		// LimitReader only stops early at EOF.
		s.dead.Store(true)
	}

	return b, nil
}

func (s *ConnStream) RecvUntil(delim []byte) ([]byte, error) {
	b, err := s.r.ReadUntil(delim)
	if err != nil {
		return b, s.fail(err)
	}
	return b, nil
}

func (s *ConnStream) RecvUntilLimit(delim []byte, limit int) ([]byte, error) {
	if limit <= 0 {
		return s.RecvUntil(delim)
	}

	b, err := s.r.ReadUntilLimit(delim, uint(limit))
	if err != nil {
		if errors.Is(err, iolib.ErrLimitReached) {
			return nil, errors.Wrapf(ErrLimitReached, "%d bytes", limit)
		}
		return b, s.fail(err)
	}
	return b, nil
}

func (s *ConnStream) RecvLine() ([]byte, error) {
	return s.RecvUntil([]byte{'\n'})
}

func (s *ConnStream) RecvAll() ([]byte, error) {
	b, err := io.ReadAll(s.r)
	s.dead.Store(true)
	if err != nil && !isEOF(err) {
		return b, errors.Wrap(err, "reading until close")
	}
	return b, nil
}

func (s *ConnStream) IsAlive() bool { return !s.dead.Load() }

func (s *ConnStream) Close() error {
	s.closeOnce.Do(func() {
		s.dead.Store(true)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// SetReadDeadline forwards to the underlying connection when it supports deadlines.
func (s *ConnStream) SetReadDeadline(t time.Time) error {
	d, ok := s.conn.(interface{ SetReadDeadline(time.Time) error })
	if !ok {
		return nil
	}
	return d.SetReadDeadline(t)
}

// fail marks the stream dead on terminal errors and normalizes them to [ErrConnClosed].
func (s *ConnStream) fail(err error) error {
	if isEOF(err) {
		s.dead.Store(true)
		return errors.Wrap(ErrConnClosed, err.Error())
	}
	if isTimeout(err) {
		return errors.Wrap(ErrDeadLineExceeded, err.Error())
	}
	return err
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, ErrConnClosed) ||
		errors.Is(err, net.ErrClosed)
}

func isTimeout(err error) bool {
	if errors.Is(err, ErrDeadLineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
