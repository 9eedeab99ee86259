package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aqanja/blog-api/internal/comments"
)

// Metrics collects Prometheus metrics for the API process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	moderation      *Moderation
}

// NewMetrics initialises the registry with HTTP and moderation collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_http_requests_total",
		Help: "HTTP requests partitioned by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(requests, duration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		moderation:      newModeration(registry),
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency keyed by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Moderation returns the comment lifecycle counters. Nil-safe.
func (m *Metrics) Moderation() *Moderation {
	if m == nil {
		return nil
	}
	return m.moderation
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

// Moderation counts comment state transitions. It satisfies comments.Recorder.
type Moderation struct {
	created  *prometheus.CounterVec
	deleted  *prometheus.CounterVec
	approved prometheus.Counter
}

func newModeration(registerer prometheus.Registerer) *Moderation {
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_comments_created_total",
		Help: "Comments created partitioned by initial state.",
	}, []string{"state"})
	deleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_comments_deleted_total",
		Help: "Comments deleted partitioned by actor role.",
	}, []string{"actor"})
	approved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blog_comments_approved_total",
		Help: "Moderator approvals applied.",
	})
	registerer.MustRegister(created, deleted, approved)
	return &Moderation{created: created, deleted: deleted, approved: approved}
}

func (m *Moderation) CommentCreated(state comments.State) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(string(state)).Inc()
}

func (m *Moderation) CommentDeleted(byAdmin bool) {
	if m == nil {
		return
	}
	actor := "author"
	if byAdmin {
		actor = "admin"
	}
	m.deleted.WithLabelValues(actor).Inc()
}

func (m *Moderation) CommentApproved() {
	if m == nil {
		return
	}
	m.approved.Inc()
}

var _ comments.Recorder = (*Moderation)(nil)
