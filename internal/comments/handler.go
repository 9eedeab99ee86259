package comments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aqanja/blog-api/internal/auth"
	"github.com/aqanja/blog-api/internal/platform/httpx"
	"github.com/aqanja/blog-api/internal/shared"
)

// Handler wires HTTP endpoints for comments.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   auth.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers comment routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticate, h.guard.RequireAdmin)
		r.Get("/admin/pending", h.listPending)
		r.Put("/admin/approve/{id}", h.approve)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticate)
		r.Post("/", h.create)
		r.Delete("/{id}", h.delete)
	})
	r.Get("/{slug}", h.listPublic)
}

func (h *Handler) listPublic(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListPending(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.logger.Debug("decode comment body", slog.Any("error", err))
		httpx.RespondError(w, shared.NewValidationError(shared.FieldError{Field: "body", Message: "Invalid JSON body"}))
		return
	}
	created, err := h.service.Create(r.Context(), principal, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, created)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, "Comment deleted successfully")
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Approve(r.Context(), principal, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, "Comment approved successfully")
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
