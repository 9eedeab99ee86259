package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aqanja/blog-api/internal/auth"
	"github.com/aqanja/blog-api/internal/comments"
	"github.com/aqanja/blog-api/internal/observability"
	"github.com/aqanja/blog-api/internal/platform/db"
	"github.com/aqanja/blog-api/internal/platform/httpx"
	"github.com/aqanja/blog-api/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	DB              db.Pinger
	AuthHandler     *auth.Handler
	CommentsHandler *comments.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
	Clock           func() time.Time
}

var errDatabaseNotConfigured = errors.New("database not configured")

type statusResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type dbErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := params.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.NotFound(httpx.NotFound)
	r.MethodNotAllowed(httpx.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, statusResponse{Status: "ok", Timestamp: now()})
		})

		r.Get("/db-test", func(w http.ResponseWriter, r *http.Request) {
			if err := pingDB(r.Context(), params.DB); err != nil {
				logger.Error("database check", slog.Any("error", err))
				body := dbErrorResponse{Error: "Database connection failed"}
				if !params.Config.IsProduction() {
					body.Details = err.Error()
				}
				httpx.JSON(w, http.StatusInternalServerError, body)
				return
			}
			httpx.JSON(w, http.StatusOK, statusResponse{Status: "Database connected", Timestamp: now()})
		})

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.CommentsHandler != nil {
			r.Route("/comments", params.CommentsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func pingDB(ctx context.Context, pinger db.Pinger) error {
	if pinger == nil {
		return errDatabaseNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pinger.Ping(ctx)
}
