package authz

import (
	"net/http"

	"github.com/laocinema/lao-cinema-api/internal/auth"
	"github.com/laocinema/lao-cinema-api/internal/httputil"
	"github.com/laocinema/lao-cinema-api/internal/logging"
)

// Middleware guards routes by the role of the authenticated principal.
// It must run after auth.Middleware.RequireAuth or OptionalAuth.
type Middleware struct {
	enforcer *Enforcer
}

func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Require rejects requests whose role lacks action on object
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.GetPrincipalFromContext(r.Context())
			if !ok || principal.User == nil {
				httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
				return
			}

			allowed, err := m.enforcer.Allowed(principal.User.Role, object, action)
			if err != nil {
				logging.GetLoggerFromContext(r.Context()).Error("authorization check failed", "error", err)
				httputil.RespondInternalError(w)
				return
			}
			if !allowed {
				logging.GetLoggerFromContext(r.Context()).Warn("permission denied",
					"role", principal.User.Role,
					"object", object,
					"action", action,
				)
				httputil.RespondErrorWithCode(w, "insufficient permissions", httputil.CodeForbidden, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
