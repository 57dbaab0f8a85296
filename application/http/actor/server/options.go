package server

import (
	"time"

	"http-fixture/application/http"

	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	// ReadTimeout bounds reading a request.
	// It only applies to streams implementing [transport.Deadliner].
	ReadTimeout time.Duration

	// MaxHeaderLength rejects request heads longer than this many bytes with 431.
	// It only applies to streams implementing [transport.LimitedReceiver]. Zero means no limit.
	MaxHeaderLength int

	// MaxBodyLength rejects requests declaring a larger Content-Length with 413.
	// Zero means no limit.
	MaxBodyLength int

	Encode http.EncodeOptions

	// TracerProvider creates the span of every request.
	// The global provider is used when nil.
	TracerProvider trace.TracerProvider
}
