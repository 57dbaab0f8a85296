package iolib

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteFull(t *testing.T) {
	data := []byte("Hello, World!")
	var buf bytes.Buffer

	written, err := WriteFull(&buf, data)
	assert.NoError(t, err)
	assert.Equal(t, uint(len(data)), written)
	assert.Equal(t, data, buf.Bytes())
}

// shortWriter accepts at most two bytes per call.
type shortWriter struct{ buf bytes.Buffer }

func (s *shortWriter) Write(p []byte) (int, error) {
	return s.buf.Write(p[:min(2, len(p))])
}

func TestWriteFullShortWrites(t *testing.T) {
	w := &shortWriter{}

	written, err := WriteFull(w, []byte("abcde"))
	assert.NoError(t, err)
	assert.Equal(t, uint(5), written)
	assert.Equal(t, "abcde", w.buf.String())
}
