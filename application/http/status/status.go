// Package status holds the fixed table of HTTP status codes and their reason phrases.
package status

type Status struct {
	Code         int
	ReasonPhrase string
}

// Successful 2XX
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.3
var (
	OK        = add(Status{200, "OK"})
	Created   = add(Status{201, "Created"})
	Accepted  = add(Status{202, "Accepted"})
	NoContent = add(Status{204, "No Content"})
)

// Redirection 3xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.4
var (
	MovedPermanently  = add(Status{301, "Moved Permanently"})
	Found             = add(Status{302, "Found"})
	SeeOther          = add(Status{303, "See Other"})
	NotModified       = add(Status{304, "Not Modified"})
	TemporaryRedirect = add(Status{307, "Temporary Redirect"})
	PermanentRedirect = add(Status{308, "Permanent Redirect"})
)

// Client Error 4xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.5
var (
	BadRequest           = add(Status{400, "Bad Request"})
	Unauthorized         = add(Status{401, "Unauthorized"})
	Forbidden            = add(Status{403, "Forbidden"})
	NotFound             = add(Status{404, "Not Found"})
	MethodNotAllowed     = add(Status{405, "Method Not Allowed"})
	RequestTimeout       = add(Status{408, "Request Timeout"})
	Conflict             = add(Status{409, "Conflict"})
	PayloadTooLarge      = add(Status{413, "Payload Too Large"})
	UnsupportedMediaType = add(Status{415, "Unsupported Media Type"})
	UnprocessableContent = add(Status{422, "Unprocessable Content"})
	TooManyRequests      = add(Status{429, "Too Many Requests"})               // Reference: https://datatracker.ietf.org/doc/html/rfc6585#section-4
	HeaderFieldsTooLarge = add(Status{431, "Request Header Fields Too Large"}) // Reference: https://datatracker.ietf.org/doc/html/rfc6585#section-5
)

// Server Error 5xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.6
var (
	InternalServerError = add(Status{500, "Internal Server Error"})
	NotImplemented      = add(Status{501, "Not Implemented"})
	BadGateway          = add(Status{502, "Bad Gateway"})
	ServiceUnavailable  = add(Status{503, "Service Unavailable"})
)

// UnknownText is the reason phrase of codes missing from the table.
const UnknownText = "Unknown"

var sm = make(map[int]*Status)

func add(status Status) Status {
	sm[status.Code] = &status
	return status
}

func FromCode(code int) (status Status, ok bool) {
	s, ok := sm[code]
	if !ok {
		return Status{Code: code, ReasonPhrase: UnknownText}, false
	}

	return *s, true
}

// Text returns the reason phrase of code, or [UnknownText].
func Text(code int) string {
	s, _ := FromCode(code)
	return s.ReasonPhrase
}
