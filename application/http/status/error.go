package status

import (
	"strconv"

	"github.com/pkg/errors"
)

// Error makes the server answer with Status instead of the generic 400.
// Its cause, when set, becomes the plain text body of that answer.
type Error struct {
	Status Status
	cause  error
}

func NewError(cause error, status Status) Error {
	return Error{Status: status, cause: cause}
}

// Errorf creates an [Error] whose cause is formatted according to format.
func Errorf(status Status, format string, args ...any) Error {
	return Error{Status: status, cause: errors.Errorf(format, args...)}
}

// FromError finds the first [Error] in the chain of err.
func FromError(err error) (Error, bool) {
	var se Error
	if errors.As(err, &se) {
		return se, true
	}
	return Error{}, false
}

func (e Error) Error() string {
	head := strconv.Itoa(e.Status.Code) + " " + e.Status.ReasonPhrase
	if e.cause == nil {
		return head
	}
	return head + ": " + e.cause.Error()
}

// Detail is the text shown to the peer: the cause if any, the reason phrase otherwise.
func (e Error) Detail() string {
	if e.cause == nil {
		return e.Status.ReasonPhrase
	}
	return e.cause.Error()
}

func (e Error) Unwrap() error { return e.cause }
