package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/aqanja/blog-api/internal/platform/httpx"
	"github.com/aqanja/blog-api/internal/shared"
)

// HeaderAuthToken is the custom credential header. It wins over Authorization.
const HeaderAuthToken = "X-Auth-Token"

// ErrAdminRequired is returned by the admin guard.
var ErrAdminRequired = shared.NewError(shared.KindForbidden, "Access denied. Admin privileges required.")

// Middleware wires the authentication and admin guards.
type Middleware struct {
	Verifier Verifier
	Logger   *slog.Logger
}

// NewMiddleware constructs the guards.
func NewMiddleware(verifier Verifier, logger *slog.Logger) Middleware {
	return Middleware{Verifier: verifier, Logger: logger}
}

// TokenFromRequest extracts the raw credential.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(HeaderAuthToken)); token != "" {
		return token
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		header = header[7:]
	}
	return strings.TrimSpace(header)
}

// Authenticate rejects requests without a valid credential and attaches the
// principal to the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.Verifier.Verify(TokenFromRequest(r))
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("authentication rejected",
					slog.String("path", r.URL.Path),
					slog.String("kind", shared.KindOf(err).String()),
					slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin passes only admins. It must be mounted after Authenticate.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := shared.PrincipalFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		if !principal.IsAdmin {
			if m.Logger != nil {
				m.Logger.Warn("admin guard denied", slog.Int64("user_id", principal.ID), slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}
