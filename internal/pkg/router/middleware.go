package router

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/shandysiswandi/wapilot/internal/pkg/instrument"
	"github.com/shandysiswandi/wapilot/internal/pkg/stacktrace"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
	"go.uber.org/atomic"
)

const (
	// HeaderCorrelationID is the canonical header used to track requests end-to-end.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is an accepted alternative header name used by some proxies.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:err113,errorlint // sentinel is compared as is
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			slog.ErrorContext(r.Context(), "panic on the server", "because", rvr, "stack", stacktrace.Frames())

			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// middlewareIP replaces RemoteAddr with the client address reported by the
// proxy in front of the service.
func middlewareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := clientIP(r); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	for _, h := range []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"} {
		v, _, _ := strings.Cut(r.Header.Get(h), ",")
		if v = strings.TrimSpace(v); net.ParseIP(v) != nil {
			return v
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return ""
}

func correlationID(r *http.Request) string {
	for _, h := range []string{HeaderCorrelationID, HeaderRequestID} {
		v := strings.TrimSpace(r.Header.Get(h))
		if v == "" || strings.ContainsAny(v, "\r\n") {
			continue
		}
		return v[:min(len(v), maxCorrelationIDLen)]
	}
	return ""
}

func middlewareCorrelationID(ids uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := correlationID(r)
			if cid == "" && ids != nil {
				cid = ids.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}

type maintenance struct {
	exact      map[string]struct{}
	prefixes   []string
	retryAfter string
}

func loadMaintenance(cfg config.Config) *maintenance {
	m := &maintenance{exact: make(map[string]struct{})}
	if cfg == nil {
		return m
	}

	for _, endpoint := range cfg.GetArray("app.maintenance.endpoints") {
		if p, ok := strings.CutSuffix(endpoint, "*"); ok {
			m.prefixes = append(m.prefixes, p)
			continue
		}
		m.exact[endpoint] = struct{}{}
	}
	if secs := cfg.GetInt("app.maintenance.retry_after_seconds"); secs > 0 {
		m.retryAfter = strconv.Itoa(secs)
	}
	return m
}

func (m *maintenance) blocks(route string) bool {
	if _, ok := m.exact[route]; ok {
		return true
	}
	return slices.ContainsFunc(m.prefixes, func(p string) bool { return strings.HasPrefix(route, p) })
}

// middlewareMaintenance answers 503 for the routes in app.maintenance.endpoints.
// An entry ending in "*" blocks every route under that prefix, e.g.
// "/api/v1/connect/*" while the backend is being migrated. The list follows
// config reloads.
func middlewareMaintenance(cfg config.Config) Middleware {
	current := atomic.NewPointer(loadMaintenance(cfg))
	if cfg != nil {
		cfg.OnChange(func() { current.Store(loadMaintenance(cfg)) })
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := current.Load()
			if !m.blocks(matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}

			if m.retryAfter != "" {
				w.Header().Set("Retry-After", m.retryAfter)
			}
			writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
		})
	}
}
