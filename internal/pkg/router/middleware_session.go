package router

import (
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/wapilot/internal/pkg/config"
	"github.com/shandysiswandi/wapilot/internal/pkg/jwt"
	"github.com/shandysiswandi/wapilot/internal/pkg/session"
	"github.com/shandysiswandi/wapilot/internal/pkg/uid"
)

// DefaultSessionCookie is used when session.cookie.name is not configured.
const DefaultSessionCookie = "wapilot_sid"

type sessionCookie struct {
	name   string
	domain string
	secure bool
	maxAge int
}

func newSessionCookie(cfg config.Config) sessionCookie {
	c := sessionCookie{name: DefaultSessionCookie}
	if cfg == nil {
		return c
	}
	if v := cfg.GetString("session.cookie.name"); v != "" {
		c.name = v
	}
	c.domain = cfg.GetString("session.cookie.domain")
	c.secure = cfg.GetBool("session.cookie.secure")
	c.maxAge = int(cfg.GetMinute("session.ttl_minutes").Seconds())
	return c
}

// middlewareSession resolves the browser session from its signed cookie and
// starts a new session when the cookie is missing, expired or forged. The
// cookie is SameSite=Lax so it survives the top-level redirect back from an
// OAuth provider.
func middlewareSession(cfg config.Config, tokens jwt.JWT, ids uid.StringID, skip map[string]map[string]struct{}) Middleware {
	cookie := newSessionCookie(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s, ok := skip[r.Method]; ok {
				if _, found := s[matchedRoutePath(r)]; found {
					next.ServeHTTP(w, r)
					return
				}
			}

			var sid string
			if c, err := r.Cookie(cookie.name); err == nil {
				if claims, err := tokens.Verify(c.Value); err == nil {
					sid = claims.SessionID()
				} else {
					slog.DebugContext(r.Context(), "session cookie rejected", "error", err)
				}
			}

			if sid == "" {
				sid = ids.Generate()
				token, err := tokens.Generate(sid)
				if err != nil {
					slog.ErrorContext(r.Context(), "failed to sign session cookie", "error", err)
					writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cookie.name,
					Value:    token,
					Path:     "/",
					Domain:   cookie.domain,
					MaxAge:   cookie.maxAge,
					Secure:   cookie.secure,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(session.WithID(r.Context(), sid)))
		})
	}
}
