package client

import (
	"time"

	"http-fixture/application/http"

	"github.com/spf13/afero"
)

const (
	DefaultUserAgent    = "http-fixture/1.0"
	DefaultMaxRedirects = 5
)

type Options struct {
	// UserAgent is sent unless the call provides its own.
	UserAgent string

	// FollowRedirects makes the client follow 3xx responses carrying a Location.
	FollowRedirects bool
	// MaxRedirects bounds the number of redirects followed.
	// DefaultMaxRedirects is used when zero.
	MaxRedirects int

	// Timeout bounds a whole exchange, redirects included.
	// Zero means no limit apart from the caller's context.
	Timeout time.Duration

	// FileSystem receives the files written by Download.
	// The OS filesystem is used when nil.
	FileSystem afero.Fs

	Encode http.EncodeOptions
}
