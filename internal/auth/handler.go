package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aqanja/blog-api/internal/platform/httpx"
	"github.com/aqanja/blog-api/internal/shared"
)

// Handler exposes the identity of the current caller.
type Handler struct {
	logger *slog.Logger
	guard  Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, guard Middleware) *Handler {
	return &Handler{logger: logger, guard: guard}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Authenticate).Get("/user", h.currentUser)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, principal)
}
