package router

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/jwt"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
)

// Handler returns a payload sent as JSON, a Redirect, a Binary or an error.
// A nil payload answers 204.
type Handler func(r *Request) (any, error)

type Config struct {
	Config config.Config
	// UUID generates correlation ids.
	UUID uid.StringID
	// JWT signs the session cookie.
	JWT        jwt.JWT
	Instrument instrument.Instrumentation
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 2 * time.Second

// Router wraps httprouter with the middleware every endpoint runs through:
// recover, client IP, correlation id, observability, maintenance and session.
type Router struct {
	hr  *httprouter.Router
	mws []Middleware

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

func NewRouter(cfg Config) *Router {
	ro := &Router{
		hr: &httprouter.Router{
			RedirectTrailingSlash:  true,
			RedirectFixedPath:      true,
			HandleMethodNotAllowed: true,
			HandleOPTIONS:          true,
			SaveMatchedRoutePath:   true,
			NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, errorResponse{Message: "endpoint not found"}, http.StatusNotFound)
			}),
			MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, errorResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed)
			}),
		},
		checks: make(map[string]HealthCheck),
	}

	sessionless := map[string]map[string]struct{}{
		http.MethodGet: {"/": {}, "/health": {}},
	}
	ro.mws = []Middleware{
		middlewareRecoverer,
		middlewareIP,
		middlewareCorrelationID(cfg.UUID),
		middlewareObservability(cfg.Config, cfg.Instrument),
		middlewareMaintenance(cfg.Config),
		middlewareSession(cfg.Config, cfg.JWT, cfg.UUID, sessionless),
	}

	welcome := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"message": "Welcome to API Wapilot"}, http.StatusOK)
	})
	ro.hr.Handler(http.MethodGet, "/", Chain(welcome, ro.mws...))
	ro.hr.Handler(http.MethodGet, "/health", Chain(http.HandlerFunc(ro.health), ro.mws...))

	return ro
}

// AddHealthCheck makes /health answer 503 while fn fails.
func (r *Router) AddHealthCheck(name string, fn HealthCheck) {
	r.mu.Lock()
	r.checks[name] = fn
	r.mu.Unlock()
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), healthTimeout)
	defer cancel()

	r.mu.RLock()
	checks := make(map[string]HealthCheck, len(r.checks))
	for name, fn := range r.checks {
		checks[name] = fn
	}
	r.mu.RUnlock()

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(checks))
	for name, fn := range checks {
		if err := fn(ctx); err != nil {
			results[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	writeJSON(w, map[string]any{"status": status, "checks": results}, code)
}

func (r *Router) GET(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodGet, path, h, mws)
}

// GETRaw registers a handler that owns the response writer, e.g. a stream.
func (r *Router) GETRaw(path string, h http.Handler, mws ...Middleware) {
	r.hr.Handler(http.MethodGet, path, Chain(h, slices.Concat(r.mws, mws)...))
}

func (r *Router) POST(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodPost, path, h, mws)
}

func (r *Router) PUT(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodPut, path, h, mws)
}

func (r *Router) PATCH(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodPatch, path, h, mws)
}

func (r *Router) DELETE(path string, h Handler, mws ...Middleware) {
	r.handle(http.MethodDelete, path, h, mws)
}

func (r *Router) handle(method, path string, h Handler, mws []Middleware) {
	endpoint := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if rec, ok := w.(interface{ SetError(error) }); ok {
				rec.SetError(err)
			}
			writeError(w, err)
			return
		}
		writeOK(w, resp)
	})

	r.hr.Handler(method, path, Chain(endpoint, slices.Concat(r.mws, mws)...))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}
