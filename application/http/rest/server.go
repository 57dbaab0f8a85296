package rest

import (
	"log/slog"

	"http-fixture/application/http"
	"http-fixture/application/http/actor/server"
	"http-fixture/application/http/status"

	"github.com/pkg/errors"
)

// Handler answers a JSON route.
// Returning an [*Exception] responds with its status and a JSON error envelope.
// Any other error goes through the error handler of the [Server].
type Handler func(request *http.Request) (*http.Response, error)

// ResourceHandler answers a route addressing a single resource by id.
type ResourceHandler func(request *http.Request, id string) (*http.Response, error)

// DestroyHandler deletes a resource. Success is answered with 204 and no body.
type DestroyHandler func(request *http.Request, id string) error

// ErrorHandler turns an unexpected handler error into a response.
type ErrorHandler func(request *http.Request, err error) *http.Response

// Resource holds the handlers of a resource. Nil handlers leave their route unregistered.
//
//	List          GET    /name
//	Create        POST   /name
//	Retrieve      GET    /name/:id
//	Update        PUT    /name/:id
//	PartialUpdate PATCH  /name/:id
//	Destroy       DELETE /name/:id
type Resource struct {
	List          Handler
	Create        Handler
	Retrieve      ResourceHandler
	Update        ResourceHandler
	PartialUpdate ResourceHandler
	Destroy       DestroyHandler
}

// IDParam is the path parameter holding the id of a resource.
const IDParam = "id"

// Server registers JSON routes on a [server.Router].
// Like the router, it must be fully configured before the HTTP server starts.
type Server struct {
	router *server.Router
	logger *slog.Logger

	notFound Handler
	onError  ErrorHandler
}

// NewServer installs JSON handlers for unknown routes and unexpected errors on router.
func NewServer(router *server.Router, logger *slog.Logger) *Server {
	s := &Server{
		router: router,
		logger: logger,
	}

	s.notFound = func(*http.Request) (*http.Response, error) {
		return errorEnvelope(
			status.NotFound.Code,
			status.NotFound.ReasonPhrase,
			"The requested resource was not found",
		), nil
	}
	s.onError = s.defaultOnError

	router.Get(server.NotFoundRoute, s.wrap(func(r *http.Request) (*http.Response, error) {
		return s.notFound(r)
	}))

	return s
}

func (s *Server) defaultOnError(_ *http.Request, err error) *http.Response {
	return errorEnvelope(
		status.InternalServerError.Code,
		status.InternalServerError.ReasonPhrase,
		err.Error(),
	)
}

func (s *Server) Router() *server.Router { return s.router }

func (s *Server) Get(path string, h Handler)    { s.router.Get(path, s.wrap(h)) }
func (s *Server) Post(path string, h Handler)   { s.router.Post(path, s.wrap(h)) }
func (s *Server) Put(path string, h Handler)    { s.router.Put(path, s.wrap(h)) }
func (s *Server) Delete(path string, h Handler) { s.router.Delete(path, s.wrap(h)) }
func (s *Server) Patch(path string, h Handler)  { s.router.Patch(path, s.wrap(h)) }

func (s *Server) Use(mw server.Middleware) { s.router.Use(mw) }

// EnableCORS adds the Access-Control-Allow headers to every response.
func (s *Server) EnableCORS(origin, methods, headers string) {
	s.Use(server.CORS(origin, methods, headers))
}

// OnNotFound replaces the handler answering unmatched requests.
func (s *Server) OnNotFound(h Handler) { s.notFound = h }

// OnError replaces the handler of unexpected errors.
func (s *Server) OnError(h ErrorHandler) { s.onError = h }

// Resource registers the routes of the handlers set in r under "/" + name.
func (s *Server) Resource(name string, r Resource) {
	base := "/" + name
	item := base + "/:" + IDParam

	if r.List != nil {
		s.Get(base, r.List)
	}
	if r.Create != nil {
		s.Post(base, r.Create)
	}
	if r.Retrieve != nil {
		s.Get(item, withID(r.Retrieve))
	}
	if r.Update != nil {
		s.Put(item, withID(r.Update))
	}
	if r.PartialUpdate != nil {
		s.Patch(item, withID(r.PartialUpdate))
	}
	if r.Destroy != nil {
		destroy := r.Destroy
		s.Delete(item, func(req *http.Request) (*http.Response, error) {
			if err := destroy(req, req.PathParam(IDParam)); err != nil {
				return nil, err
			}
			return JSONResponse(status.NoContent.Code, nil), nil
		})
	}
}

func withID(h ResourceHandler) Handler {
	return func(r *http.Request) (*http.Response, error) {
		return h(r, r.PathParam(IDParam))
	}
}

// wrap converts a handler into a router handler answering every failure with JSON.
func (s *Server) wrap(h Handler) server.HandleFunc {
	return func(request *http.Request) (response *http.Response) {
		defer func() {
			if e := recover(); e != nil {
				response = s.handleError(request, errors.Errorf("handler panicked: %v", e))
			}
		}()

		res, err := h(request)
		if err != nil {
			return s.handleError(request, err)
		}
		if res == nil {
			return s.handleError(request, errors.New("nil response is forbidden"))
		}

		return res
	}
}

func (s *Server) handleError(request *http.Request, err error) *http.Response {
	var exc *Exception
	if errors.As(err, &exc) {
		statusMessage := exc.StatusMessage
		if statusMessage == "" {
			statusMessage = status.Text(exc.StatusCode)
		}
		return errorEnvelope(exc.StatusCode, statusMessage, exc.Message)
	}

	s.logger.Error("unexpected error while handling request",
		"method", request.Method,
		"path", request.Path,
		"error", err,
	)

	if res := s.onError(request, err); res != nil {
		return res
	}
	return s.defaultOnError(request, err)
}
