package http

import (
	"bufio"
	"bytes"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"http-fixture/application/http/status"

	"github.com/pkg/errors"
	"golang.org/x/net/http/httpguts"
)

// DateFormat is the IMF-fixdate layout of the Date header.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.7
const DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

type EncodeOptions struct {
	// ServerName is sent as the Server header of every response.
	ServerName string
}

var DefaultEncodeOptions = EncodeOptions{
	ServerName: "http-fixture/1.0",
}

type MessageEncoder struct {
	bw   *bufio.Writer
	opts EncodeOptions
}

func (me *MessageEncoder) writeLine(line []byte) error {
	if _, err := me.bw.Write(line); err != nil {
		return errors.Wrap(err, "writing line")
	}

	if _, err := me.bw.Write(CRLF); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

func (me *MessageEncoder) encodeFields(fields []Field) error {
	for _, field := range fields {
		if !httpguts.ValidHeaderFieldName(field.Name) {
			return errors.Errorf("invalid header name %q", field.Name)
		}
		if !httpguts.ValidHeaderFieldValue(field.Value) {
			return errors.Errorf("invalid value for header %q", field.Name)
		}

		if err := me.writeLine(field.Text()); err != nil {
			return errors.Wrap(err, "writing field")
		}
	}

	// Write a empty line as all the headers are written.
	if err := me.writeLine(nil); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

func (me *MessageEncoder) encodeBody(body []byte) error {
	if len(body) > 0 {
		if _, err := me.bw.Write(body); err != nil {
			return errors.Wrap(err, "writing body")
		}
	}

	if err := me.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing message")
	}

	return nil
}

type ResponseEncoder struct{ MessageEncoder }

func NewResponseEncoder(w io.Writer, opts EncodeOptions) *ResponseEncoder {
	return &ResponseEncoder{
		MessageEncoder{
			bw:   bufio.NewWriter(w),
			opts: opts,
		},
	}
}

// Encode writes the status line, Date and Server headers, the response headers sorted by name,
// one Set-Cookie line per cookie and the body.
// Date and Server are only generated when the response doesn't carry them.
func (re *ResponseEncoder) Encode(response *Response, now time.Time) error {
	if err := re.encodeStatusLine(response); err != nil {
		return errors.Wrap(err, "encoding status line")
	}

	fields := make([]Field, 0, len(response.Headers)+len(response.Cookies)+2)
	if !response.HasHeader("Date") {
		fields = append(fields, Field{"Date", now.UTC().Format(DateFormat)})
	}
	if !response.HasHeader("Server") && re.opts.ServerName != "" {
		fields = append(fields, Field{"Server", re.opts.ServerName})
	}
	fields = append(fields, sortedFields(response.Headers)...)
	for _, cookie := range response.Cookies {
		fields = append(fields, Field{"Set-Cookie", cookie})
	}

	if err := re.encodeFields(fields); err != nil {
		return errors.Wrap(err, "encoding headers")
	}

	if err := re.encodeBody(response.body); err != nil {
		return errors.Wrap(err, "encoding response body")
	}

	return nil
}

func (re *ResponseEncoder) encodeStatusLine(response *Response) error {
	reason := response.StatusMessage
	if reason == "" {
		reason = status.Text(response.StatusCode)
	}

	buf := bytes.NewBuffer(nil)
	buf.Write(Version11.Text())
	buf.WriteByte(SP)
	buf.WriteString(strconv.Itoa(response.StatusCode))
	buf.WriteByte(SP)
	buf.WriteString(reason)

	if err := re.writeLine(buf.Bytes()); err != nil {
		return errors.Wrap(err, "writing line")
	}

	return nil
}

// SerializeResponse renders response with [DefaultEncodeOptions].
func SerializeResponse(response *Response, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewResponseEncoder(&buf, DefaultEncodeOptions).Encode(response, now); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OutboundRequest is a request built by a client.
type OutboundRequest struct {
	Method string
	// Target is the origin-form target, path and query.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.1
	Target  string
	Headers []Field
	Body    []byte
}

type RequestEncoder struct{ MessageEncoder }

func NewRequestEncoder(w io.Writer, opts EncodeOptions) *RequestEncoder {
	return &RequestEncoder{
		MessageEncoder{
			bw:   bufio.NewWriter(w),
			opts: opts,
		},
	}
}

func (re *RequestEncoder) Encode(request OutboundRequest) error {
	if !httpguts.ValidHeaderFieldName(request.Method) {
		return errors.Errorf("invalid method %q", request.Method)
	}
	if request.Target == "" || strings.ContainsAny(request.Target, " \r\n") {
		return errors.Errorf("invalid request target %q", request.Target)
	}

	buf := bytes.NewBuffer(nil)
	buf.WriteString(request.Method)
	buf.WriteByte(SP)
	buf.WriteString(request.Target)
	buf.WriteByte(SP)
	buf.Write(Version11.Text())

	if err := re.writeLine(buf.Bytes()); err != nil {
		return errors.Wrap(err, "encoding request line")
	}

	if err := re.encodeFields(request.Headers); err != nil {
		return errors.Wrap(err, "encoding headers")
	}

	if err := re.encodeBody(request.Body); err != nil {
		return errors.Wrap(err, "encoding request body")
	}

	return nil
}

func sortedFields(headers map[string]string) []Field {
	fields := make([]Field, 0, len(headers))
	for name, value := range headers {
		fields = append(fields, Field{name, value})
	}
	slices.SortFunc(fields, func(a, b Field) int { return strings.Compare(a.Name, b.Name) })
	return fields
}
