// Package client implements an HTTP/1.1 client performing one exchange per connection.
package client

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"http-fixture/application/http"
	"http-fixture/application/http/status"
	"http-fixture/transport"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrTooManyRedirects  = errors.New("too many redirects")
)

// Client sends requests over streams obtained from a [transport.Dialer].
// It is safe for concurrent use.
type Client struct {
	dialer transport.Dialer

	logger *slog.Logger
	opts   Options

	mu  sync.Mutex
	jar cookieJar
}

func New(dialer transport.Dialer, logger *slog.Logger, opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.FileSystem == nil {
		opts.FileSystem = afero.NewOsFs()
	}

	return &Client{
		dialer: dialer,
		logger: logger,
		opts:   opts,
		jar:    cookieJar{cookies: make(map[string]string)},
	}
}

// Do sends a request to an absolute http or https URL.
// Non-2xx responses are not errors.
func (c *Client) Do(
	ctx context.Context,
	method, rawURL string,
	headers map[string]string,
	body []byte,
) (*http.Response, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing url %q", rawURL)
	}

	for redirects := 0; ; redirects++ {
		res, err := c.roundTrip(ctx, method, u, headers, body)
		if err != nil {
			return nil, err
		}

		location := res.Header("Location")
		if !c.opts.FollowRedirects || !isRedirect(res.StatusCode) || location == "" {
			return res, nil
		}

		if redirects >= c.opts.MaxRedirects {
			return nil, errors.Wrapf(ErrTooManyRedirects, "stopped after %d redirects", redirects)
		}

		next, err := u.Parse(location)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing redirect location %q", location)
		}

		c.logger.Debug("following redirect", "from", u.String(), "to", next.String(), "status", res.StatusCode)

		u = next
		method, body = redirectMethod(method, res.StatusCode), redirectBody(method, res.StatusCode, body)
	}
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.4
func isRedirect(code int) bool {
	switch code {
	case status.MovedPermanently.Code, status.Found.Code, status.SeeOther.Code,
		status.TemporaryRedirect.Code, status.PermanentRedirect.Code:
		return true
	}
	return false
}

func redirectMethod(method string, code int) string {
	switch code {
	case status.SeeOther.Code:
		if method != "HEAD" {
			return "GET"
		}
	case status.MovedPermanently.Code, status.Found.Code:
		if method == "POST" {
			return "GET"
		}
	}
	return method
}

func redirectBody(method string, code int, body []byte) []byte {
	if redirectMethod(method, code) != method {
		return nil
	}
	return body
}

func (c *Client) roundTrip(
	ctx context.Context,
	method string,
	u *url.URL,
	headers map[string]string,
	body []byte,
) (*http.Response, error) {
	addr, err := dialAddr(u)
	if err != nil {
		return nil, err
	}

	request := http.OutboundRequest{
		Method:  method,
		Target:  u.RequestURI(),
		Headers: c.buildFields(u, method, headers, body),
		Body:    body,
	}

	var buf bytes.Buffer
	if err := http.NewRequestEncoder(&buf, c.opts.Encode).Encode(request); err != nil {
		return nil, errors.Wrap(err, "encoding request")
	}

	stream, err := c.dialer.Dial(ctx, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}
	defer stream.Close()

	// Unblocks the reads below once ctx is done.
	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()

	if err := stream.Send(buf.Bytes()); err != nil {
		return nil, c.ctxErr(ctx, errors.Wrap(err, "sending request"))
	}

	raw, err := stream.RecvAll()
	if err != nil {
		return nil, c.ctxErr(ctx, errors.Wrap(err, "receiving response"))
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	response, err := http.ParseResponse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parsing response")
	}

	c.storeCookies(response.Cookies)

	c.logger.Debug("request done",
		"method", method,
		"url", u.String(),
		"status", response.StatusCode,
	)

	return response, nil
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), err.Error())
	}
	return err
}

// buildFields orders the header of a request:
// Host, User-Agent and Cookie defaults overridden by headers, then Content-Length and Connection.
func (c *Client) buildFields(u *url.URL, method string, headers map[string]string, body []byte) []http.Field {
	fields := []http.Field{
		{Name: "Host", Value: u.Host},
		{Name: "User-Agent", Value: c.opts.UserAgent},
	}
	if cookie := c.cookieHeader(); cookie != "" {
		fields = append(fields, http.Field{Name: "Cookie", Value: cookie})
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		if strings.EqualFold(name, "Content-Length") || strings.EqualFold(name, "Connection") {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		idx := slices.IndexFunc(fields, func(f http.Field) bool { return strings.EqualFold(f.Name, name) })
		if idx >= 0 {
			fields[idx] = http.Field{Name: name, Value: headers[name]}
			continue
		}
		fields = append(fields, http.Field{Name: name, Value: headers[name]})
	}

	if len(body) > 0 || hasBodySemantics(method) {
		fields = append(fields, http.Field{Name: "Content-Length", Value: strconv.Itoa(len(body))})
	}
	fields = append(fields, http.Field{Name: "Connection", Value: "close"})

	return fields
}

func hasBodySemantics(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

func dialAddr(u *url.URL) (string, error) {
	var port string
	switch u.Scheme {
	case "http":
		port = "80"
	case "https":
		port = "443"
	default:
		return "", errors.Wrapf(ErrUnsupportedScheme, "%q", u.Scheme)
	}

	if u.Hostname() == "" {
		return "", errors.Errorf("missing host in %q", u.String())
	}
	if p := u.Port(); p != "" {
		port = p
	}

	return net.JoinHostPort(u.Hostname(), port), nil
}

func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, "GET", rawURL, headers, nil)
}

func (c *Client) Post(ctx context.Context, rawURL string, body []byte, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, "POST", rawURL, headers, body)
}

// PostForm sends form urlencoded.
func (c *Client) PostForm(ctx context.Context, rawURL string, form map[string]string, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, "POST", rawURL, withContentType(headers, http.FormContentType), []byte(http.EncodeQuery(form)))
}

func (c *Client) PostJSON(ctx context.Context, rawURL string, json []byte, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, "POST", rawURL, withContentType(headers, "application/json"), json)
}

func (c *Client) Put(ctx context.Context, rawURL string, body []byte, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, "PUT", rawURL, headers, body)
}

func (c *Client) Delete(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, "DELETE", rawURL, headers, nil)
}

func (c *Client) Head(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, "HEAD", rawURL, headers, nil)
}

func (c *Client) Patch(ctx context.Context, rawURL string, body []byte, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, "PATCH", rawURL, headers, body)
}

func (c *Client) Options(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, "OPTIONS", rawURL, headers, nil)
}

// Download fetches url and writes its body to path.
func (c *Client) Download(ctx context.Context, rawURL, path string) error {
	res, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return err
	}
	if !res.OK() {
		return errors.Errorf("downloading %s: %d %s", rawURL, res.StatusCode, res.StatusMessage)
	}

	if err := afero.WriteFile(c.opts.FileSystem, path, res.Body(), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

func withContentType(headers map[string]string, contentType string) map[string]string {
	merged := make(map[string]string, len(headers)+1)
	for name, value := range headers {
		if strings.EqualFold(name, "Content-Type") {
			continue
		}
		merged[name] = value
	}
	merged["Content-Type"] = contentType
	return merged
}
