package server

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"http-fixture/application/http"
	"http-fixture/application/http/status"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// HandleFunc produces the response of a routed request.
type HandleFunc func(request *http.Request) *http.Response

// Middleware inspects a request before routing and may mutate the response under construction.
// Returning false stops the pipeline and sends the response as it is.
type Middleware func(request *http.Request, response *http.Response) bool

// NotFoundRoute is the route consulted when nothing else matched.
// A request for "GET /404" is therefore always answered by this handler.
const NotFoundRoute = "/404"

const notFoundHTML = "<html><body><h1>404 Not Found</h1></body></html>"

var ErrRouterSealed = errors.New("router is sealed")

// Router collects routes, middlewares and static directories.
// Registration must happen before [Router.Seal], which a [Server] calls on start.
// Registering on a sealed router panics with [ErrRouterSealed].
type Router struct {
	routes      map[string]HandleFunc
	templates   []template
	middlewares []Middleware
	static      map[string]string

	fs afero.Fs

	sealOnce sync.Once
	table    *Table
}

// NewRouter creates a router serving static files from fs.
// The OS filesystem is used when fs is nil.
func NewRouter(fs afero.Fs) *Router {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Router{
		routes: make(map[string]HandleFunc),
		static: make(map[string]string),
		fs:     fs,
	}
}

func routeKey(method, path string) string { return method + " " + path }

func (r *Router) mustNotBeSealed() {
	if r.table != nil {
		panic(ErrRouterSealed)
	}
}

// Handle registers handle for method and path.
// Segments of path starting with ':' capture the matching request segment as a path parameter.
// Routes without parameters take precedence over the ones with them.
func (r *Router) Handle(method, path string, handle HandleFunc) {
	r.mustNotBeSealed()

	if isTemplate(path) {
		r.templates = append(r.templates, newTemplate(method, path, handle))
		return
	}
	r.routes[routeKey(method, path)] = handle
}

func (r *Router) Get(path string, handle HandleFunc)    { r.Handle("GET", path, handle) }
func (r *Router) Post(path string, handle HandleFunc)   { r.Handle("POST", path, handle) }
func (r *Router) Put(path string, handle HandleFunc)    { r.Handle("PUT", path, handle) }
func (r *Router) Delete(path string, handle HandleFunc) { r.Handle("DELETE", path, handle) }
func (r *Router) Patch(path string, handle HandleFunc)  { r.Handle("PATCH", path, handle) }

// Use appends a middleware. Middlewares run in registration order.
func (r *Router) Use(mw Middleware) {
	r.mustNotBeSealed()
	r.middlewares = append(r.middlewares, mw)
}

// ServeStatic serves files under dir for request paths starting with prefix.
// Prefixes are tried in lexicographic order, so overlapping prefixes should be avoided.
func (r *Router) ServeStatic(prefix, dir string) {
	r.mustNotBeSealed()
	r.static[prefix] = dir
}

// Seal freezes the registrations into an immutable [Table].
// Subsequent calls return the same table.
func (r *Router) Seal() *Table {
	r.sealOnce.Do(func() {
		prefixes := slices.Sorted(maps.Keys(r.static))
		static := make([]staticRoute, 0, len(prefixes))
		for _, prefix := range prefixes {
			static = append(static, staticRoute{prefix: prefix, dir: r.static[prefix]})
		}

		r.table = &Table{
			routes:      maps.Clone(r.routes),
			templates:   slices.Clone(r.templates),
			middlewares: slices.Clone(r.middlewares),
			static:      static,
			fs:          r.fs,
		}
	})

	return r.table
}

// Table is the sealed, read-only form of a [Router].
// It is safe for concurrent use.
type Table struct {
	routes      map[string]HandleFunc
	templates   []template
	middlewares []Middleware
	static      []staticRoute

	fs afero.Fs
}

// Dispatch runs the middlewares, then the first of these to match:
// an exact route, a route template, a static file, the [NotFoundRoute] handler.
// Without any of them it responds 404 with a fixed HTML page.
//
// A panicking handler or middleware, and a handler returning nil, yield an error.
func (t *Table) Dispatch(request *http.Request) (res *http.Response, err error) {
	defer func() {
		if e := recover(); e != nil {
			res, err = nil, errors.Errorf("handler panicked: %v", e)
		}
	}()

	pre := http.NewResponse(status.OK.Code)
	for _, mw := range t.middlewares {
		if !mw(request, pre) {
			return pre, nil
		}
	}

	if handle, ok := t.route(request); ok {
		return finalize(handle(request), pre)
	}

	if res := t.serveStatic(request.Path); res.StatusCode != status.NotFound.Code {
		return merge(res, pre), nil
	}

	if handle, ok := t.routes[routeKey("GET", NotFoundRoute)]; ok {
		return finalize(handle(request), pre)
	}

	res = http.NewResponse(status.NotFound.Code).SetHTML([]byte(notFoundHTML))
	return merge(res, pre), nil
}

func (t *Table) route(request *http.Request) (HandleFunc, bool) {
	if handle, ok := t.routes[routeKey(request.Method, request.Path)]; ok {
		return handle, true
	}

	for _, tmpl := range t.templates {
		if params, ok := tmpl.match(request.Method, request.RawPath); ok {
			request.PathParams = params
			return tmpl.handle, true
		}
	}

	return nil, false
}

func finalize(res, pre *http.Response) (*http.Response, error) {
	if res == nil {
		return nil, errors.New("nil response is forbidden")
	}
	return merge(res, pre), nil
}

// merge carries headers and cookies set by middlewares over to a copy of res.
// Headers already set on res are kept and the body framing of res is never touched.
// Handlers may return the same response for many requests, so res itself is left alone.
func merge(res, pre *http.Response) *http.Response {
	if len(pre.Headers) == 0 && len(pre.Cookies) == 0 {
		return res
	}

	res = res.Clone()
	for name, value := range pre.Headers {
		if strings.EqualFold(name, "Content-Length") {
			continue
		}
		if !res.HasHeader(name) {
			res.SetHeader(name, value)
		}
	}
	if len(pre.Cookies) > 0 {
		res.Cookies = append(slices.Clone(pre.Cookies), res.Cookies...)
	}
	return res
}
