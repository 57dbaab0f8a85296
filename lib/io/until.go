package iolib

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// UntilReader buffers an underlying reader so that callers can read up to a delimiter
// without losing the bytes that arrived after it.
type UntilReader struct {
	r io.Reader

	buf *bytes.Buffer
}

func NewUntilReader(r io.Reader) *UntilReader {
	return &UntilReader{r: r, buf: bytes.NewBuffer(nil)}
}

// Read drains buffered bytes first, then reads from the underlying reader.
func (ur *UntilReader) Read(p []byte) (n int, err error) {
	if ur.buf.Len() > 0 {
		return ur.buf.Read(p)
	}

	return ur.r.Read(p)
}

var (
	ErrZeroLenDelim = errors.New("delim has zero length")
	ErrLimitReached = errors.New("limit reached before delim")
)

// ReadUntil reads until delim is found. The output includes delim.
// If the underlying reader fails before delim, everything read so far is returned with the error.
func (ur *UntilReader) ReadUntil(delim []byte) ([]byte, error) {
	return ur.ReadUntilLimit(delim, 0)
}

// ReadUntilLimit works like [UntilReader.ReadUntil] but fails with [ErrLimitReached]
// when the output would be longer than limit bytes. Zero means no limit.
func (ur *UntilReader) ReadUntilLimit(delim []byte, limit uint) ([]byte, error) {
	if len(delim) == 0 {
		return nil, ErrZeroLenDelim
	}

	// Only the tail that could still hold a partial delim needs rescanning.
	scanned := 0
	temp := make([]byte, 1024)

	for {
		if idx := bytes.Index(ur.buf.Bytes()[scanned:], delim); idx >= 0 {
			end := scanned + idx + len(delim)
			if limit > 0 && uint(end) > limit {
				return nil, ErrLimitReached
			}
			found := bytes.Clone(ur.buf.Bytes()[:end])
			ur.buf.Next(end)
			return found, nil
		}

		scanned = max(0, ur.buf.Len()-len(delim)+1)

		if limit > 0 && uint(ur.buf.Len()) > limit {
			return nil, ErrLimitReached
		}

		n, err := ur.r.Read(temp)
		ur.buf.Write(temp[:n])

		if err != nil && n == 0 {
			// Underlying reader returned error before delim.
			b := bytes.Clone(ur.buf.Bytes())
			ur.buf.Reset()
			return b, err
		}
	}
}
