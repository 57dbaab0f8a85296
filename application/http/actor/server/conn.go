package server

import (
	"bytes"
	"context"
	"log/slog"

	"http-fixture/application/http"
	"http-fixture/application/http/status"
	"http-fixture/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrBodyTooShort = errors.New("body shorter than declared content-length")

type conn struct {
	stream transport.Stream
	table  *Table

	logger *slog.Logger
	opts   Options
	clock  clock.Clock
	tracer trace.Tracer
}

// serve reads one request, dispatches it and writes the response.
// The stream is closed on every path.
func (c *conn) serve(ctx context.Context) {
	defer func() {
		c.logger.Debug("closing connection")
		if err := c.stream.Close(); err != nil {
			c.logger.Error("error when closing connection", "error", err)
		}
	}()

	request, err := c.readRequest()
	if err != nil {
		if errors.Is(err, transport.ErrConnClosed) {
			c.logger.Debug("connection closed before a request was read", "error", err)
			return
		}

		c.logger.Warn("failed to read request", "error", err)
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-9
		c.writeResponse(statusErrToResponse(toStatusError(err)))
		return
	}

	_, span := c.tracer.Start(ctx, request.Method+" "+request.Path,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", request.Method),
			attribute.String("url.path", request.Path),
		),
	)
	defer span.End()

	response, err := c.table.Dispatch(request)
	if err != nil {
		c.logger.Error("unexpected error while handling request",
			"method", request.Method,
			"path", request.Path,
			"error", err,
		)
		span.RecordError(err)
		response = statusErrToResponse(status.NewError(nil, status.InternalServerError))
	}

	span.SetAttributes(attribute.Int("http.response.status_code", response.StatusCode))
	if response.StatusCode >= 500 {
		span.SetStatus(codes.Error, response.StatusMessage)
	}

	c.writeResponse(response)
}

func (c *conn) readRequest() (*http.Request, error) {
	if timeout := c.opts.ReadTimeout; timeout > 0 {
		if d, ok := c.stream.(transport.Deadliner); ok {
			if err := d.SetReadDeadline(c.clock.Now().Add(timeout)); err != nil {
				return nil, errors.Wrap(err, "setting read deadline")
			}
		}
	}

	head, err := c.recvHead()
	if err != nil {
		return nil, err
	}

	length, err := http.DeclaredContentLength(head)
	if err != nil {
		return nil, err
	}

	if max := c.opts.MaxBodyLength; max > 0 && length > max {
		return nil, status.Errorf(status.PayloadTooLarge, "declared length %d exceeds %d", length, max)
	}

	raw := head
	if length > 0 {
		body, err := c.stream.Recv(length)
		if err != nil {
			return nil, errors.Wrap(err, "reading body")
		}
		if len(body) < length {
			return nil, errors.Wrapf(transport.ErrConnClosed, "%s: got %d of %d bytes", ErrBodyTooShort, len(body), length)
		}
		raw = append(raw, body...)
	}

	return http.ParseRequest(raw)
}

func (c *conn) recvHead() ([]byte, error) {
	limit := c.opts.MaxHeaderLength
	lr, ok := c.stream.(transport.LimitedReceiver)
	if limit <= 0 || !ok {
		head, err := c.stream.RecvUntil(http.HeaderTerminator)
		return head, errors.Wrap(err, "reading header block")
	}

	head, err := lr.RecvUntilLimit(http.HeaderTerminator, limit)
	if errors.Is(err, transport.ErrLimitReached) {
		return nil, status.Errorf(status.HeaderFieldsTooLarge, "request head exceeds %d bytes", limit)
	}
	return head, errors.Wrap(err, "reading header block")
}

func (c *conn) writeResponse(response *http.Response) {
	var buf bytes.Buffer
	enc := http.NewResponseEncoder(&buf, c.opts.Encode)
	if err := enc.Encode(response, c.clock.Now()); err != nil {
		c.logger.Error("failed to encode response", "error", err)

		buf.Reset()
		fallback := statusErrToResponse(status.NewError(nil, status.InternalServerError))
		if err := http.NewResponseEncoder(&buf, c.opts.Encode).Encode(fallback, c.clock.Now()); err != nil {
			return
		}
	}

	if err := c.stream.Send(buf.Bytes()); err != nil {
		c.logger.Error("failed to send response", "error", err)
	}
}

// toStatusError converts error into [status.Error].
// It assumes that error is returned when reading request,
// so if it isn't any specific error, it will return error with [status.BadRequest].
func toStatusError(err error) status.Error {
	if se, ok := status.FromError(err); ok {
		return se
	}

	if errors.Is(err, transport.ErrDeadLineExceeded) {
		return status.NewError(nil, status.RequestTimeout)
	}

	return status.NewError(err, status.BadRequest)
}

func statusErrToResponse(se status.Error) *http.Response {
	res := http.NewResponse(se.Status.Code)
	return res.SetHeader("Content-Type", "text/plain").SetBody([]byte(se.Detail()))
}
