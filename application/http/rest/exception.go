// Package rest maps resources onto REST routes and translates handler errors into JSON envelopes.
// It also provides a client building authenticated requests against such APIs.
package rest

import (
	"fmt"

	"http-fixture/application/http"
	"http-fixture/application/http/status"
)

// Exception is an error carrying an HTTP status.
// Handlers return it to answer with a JSON error envelope,
// and [Client] returns it for every non-2xx response.
type Exception struct {
	StatusCode    int
	StatusMessage string
	// Message is the detail of a handler error or the body of a received response.
	Message string
}

// NewException creates an exception with the reason phrase of code.
func NewException(code int, message string) *Exception {
	return &Exception{
		StatusCode:    code,
		StatusMessage: status.Text(code),
		Message:       message,
	}
}

func exceptionFrom(res *http.Response) *Exception {
	return &Exception{
		StatusCode:    res.StatusCode,
		StatusMessage: res.StatusMessage,
		Message:       string(res.Body()),
	}
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.StatusMessage, e.Message)
}
