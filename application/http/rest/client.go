package rest

import (
	"context"
	"encoding/base64"
	"maps"
	"strconv"
	"strings"
	"sync"

	"http-fixture/application/http"
	"http-fixture/application/util/uri"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

// Doer sends a request and returns the response whatever its status.
// [client.Client] implements it.
type Doer interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*http.Response, error)
}

type AuthType int

const (
	AuthNone AuthType = iota
	AuthBearer
	AuthBasic
	AuthAPIKey
)

const DefaultAPIKeyHeader = "X-API-Key"

type ClientOptions struct {
	// MaxRetries retries requests that failed before a response arrived.
	// Responses, whatever their status, are never retried.
	MaxRetries uint64
	// NewBackOff spaces the retries of one call.
	// An exponential backoff is used when nil.
	NewBackOff func() backoff.BackOff

	// Breaker guards every call with a circuit breaker when set.
	// Unless IsSuccessful is set, only transport errors and 5xx responses count as failures.
	Breaker *gobreaker.Settings
}

// Client calls a REST API below a base URL.
// Authentication and default headers are applied to every call.
type Client struct {
	baseURL string
	http    Doer

	opts    ClientOptions
	breaker *gobreaker.CircuitBreaker

	mu       sync.RWMutex
	defaults map[string]string
	authType AuthType
	authKey  string
	authVal  string
}

// NewClient creates a client for baseURL. One trailing slash of baseURL is dropped.
func NewClient(baseURL string, doer Doer, opts ClientOptions) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     doer,
		opts:     opts,
		defaults: make(map[string]string),
	}

	if opts.Breaker != nil {
		settings := *opts.Breaker
		if settings.IsSuccessful == nil {
			settings.IsSuccessful = isBreakerSuccess
		}
		c.breaker = gobreaker.NewCircuitBreaker(settings)
	}

	return c
}

func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var exc *Exception
	return errors.As(err, &exc) && exc.StatusCode < 500
}

func (c *Client) HTTPClient() Doer { return c.http }

func (c *Client) SetAuthBearer(token string) {
	c.setAuth(AuthBearer, "Authorization", "Bearer "+token)
}

func (c *Client) SetAuthBasic(username, password string) {
	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	c.setAuth(AuthBasic, "Authorization", "Basic "+credentials)
}

// SetAuthAPIKey sends key in header, or in [DefaultAPIKeyHeader] when header is empty.
func (c *Client) SetAuthAPIKey(key, header string) {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	c.setAuth(AuthAPIKey, header, key)
}

func (c *Client) ClearAuth() { c.setAuth(AuthNone, "", "") }

func (c *Client) setAuth(t AuthType, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authType, c.authKey, c.authVal = t, key, value
}

func (c *Client) AuthType() AuthType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authType
}

// SetHeader sets a header sent with every call.
func (c *Client) SetHeader(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	setHeader(c.defaults, name, value)
}

// BuildHeaders merges the default headers, the authentication header and additional,
// in that order. Later sources win, ignoring the case of names.
func (c *Client) BuildHeaders(additional map[string]string) map[string]string {
	c.mu.RLock()
	headers := maps.Clone(c.defaults)
	if c.authType != AuthNone {
		setHeader(headers, c.authKey, c.authVal)
	}
	c.mu.RUnlock()

	for name, value := range additional {
		setHeader(headers, name, value)
	}

	return headers
}

// BuildURL appends endpoint to the base URL, adding the missing leading slash.
func (c *Client) BuildURL(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

func setHeader(headers map[string]string, name, value string) {
	for k := range headers {
		if k != name && strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
	headers[name] = value
}

func (c *Client) call(
	ctx context.Context,
	method, endpoint string,
	headers map[string]string,
	body []byte,
	isJSON bool,
) (*http.Response, error) {
	full := c.BuildHeaders(headers)
	if isJSON {
		setHeader(full, "Content-Type", "application/json")
	}
	url := c.BuildURL(endpoint)

	attempt := func() (*http.Response, error) {
		var res *http.Response

		op := func() error {
			var err error
			res, err = c.http.Do(ctx, method, url, full, body)
			return err
		}

		if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
			return nil, err
		}

		if !res.OK() {
			return res, exceptionFrom(res)
		}
		return res, nil
	}

	if c.breaker == nil {
		return attempt()
	}

	var res *http.Response
	_, err := c.breaker.Execute(func() (any, error) {
		var err error
		res, err = attempt()
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.StopBackOff{}
	if c.opts.MaxRetries > 0 {
		if c.opts.NewBackOff != nil {
			b = c.opts.NewBackOff()
		} else {
			b = backoff.NewExponentialBackOff()
		}
		b = backoff.WithMaxRetries(b, c.opts.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}

func (c *Client) Get(ctx context.Context, endpoint string, headers map[string]string) ([]byte, error) {
	return body(c.call(ctx, "GET", endpoint, headers, nil, false))
}

func (c *Client) Post(ctx context.Context, endpoint string, json []byte, headers map[string]string) ([]byte, error) {
	return body(c.call(ctx, "POST", endpoint, headers, json, true))
}

func (c *Client) Put(ctx context.Context, endpoint string, json []byte, headers map[string]string) ([]byte, error) {
	return body(c.call(ctx, "PUT", endpoint, headers, json, true))
}

func (c *Client) Patch(ctx context.Context, endpoint string, json []byte, headers map[string]string) ([]byte, error) {
	return body(c.call(ctx, "PATCH", endpoint, headers, json, true))
}

func (c *Client) Delete(ctx context.Context, endpoint string, headers map[string]string) ([]byte, error) {
	return body(c.call(ctx, "DELETE", endpoint, headers, nil, false))
}

func body(res *http.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return res.Body(), nil
}

// List fetches a collection. query is encoded sorted by key.
func (c *Client) List(ctx context.Context, resource string, query map[string]string, headers map[string]string) ([]byte, error) {
	endpoint := "/" + resource
	if len(query) > 0 {
		endpoint += "?" + http.EncodeQuery(query)
	}
	return c.Get(ctx, endpoint, headers)
}

// itemPath addresses one resource. id is escaped as a single path segment.
func itemPath(resource, id string) string {
	return "/" + resource + "/" + uri.PathEscape(id)
}

func (c *Client) Retrieve(ctx context.Context, resource, id string, headers map[string]string) ([]byte, error) {
	return c.Get(ctx, itemPath(resource, id), headers)
}

func (c *Client) Create(ctx context.Context, resource string, json []byte, headers map[string]string) ([]byte, error) {
	return c.Post(ctx, "/"+resource, json, headers)
}

func (c *Client) Update(ctx context.Context, resource, id string, json []byte, headers map[string]string) ([]byte, error) {
	return c.Put(ctx, itemPath(resource, id), json, headers)
}

func (c *Client) PartialUpdate(ctx context.Context, resource, id string, json []byte, headers map[string]string) ([]byte, error) {
	return c.Patch(ctx, itemPath(resource, id), json, headers)
}

func (c *Client) Destroy(ctx context.Context, resource, id string, headers map[string]string) error {
	_, err := c.Delete(ctx, itemPath(resource, id), headers)
	return err
}

// PaginatedResponse is a page of a collection.
// Total comes from the x-total-count response header and is zero without it.
type PaginatedResponse struct {
	Data    []byte
	Page    int
	PerPage int
	Total   int
}

// GetPaginated fetches endpoint with page and per_page query parameters appended.
func (c *Client) GetPaginated(
	ctx context.Context,
	endpoint string,
	page, perPage int,
	headers map[string]string,
) (*PaginatedResponse, error) {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	endpoint += sep + "page=" + strconv.Itoa(page) + "&per_page=" + strconv.Itoa(perPage)

	res, err := c.call(ctx, "GET", endpoint, headers, nil, false)
	if err != nil {
		return nil, err
	}

	result := &PaginatedResponse{
		Data:    res.Body(),
		Page:    page,
		PerPage: perPage,
	}

	if total := res.Header("x-total-count"); total != "" {
		n, err := strconv.Atoi(strings.TrimSpace(total))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing x-total-count %q", total)
		}
		result.Total = n
	}

	return result, nil
}
