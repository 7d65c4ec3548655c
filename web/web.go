// Package web exposes the schema registry over a JSON HTTP API.
package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkowalczyk/schemasync/adapters/metrics"
	"github.com/mkowalczyk/schemasync/app"
	"github.com/mkowalczyk/schemasync/ports"
)

// Handler serves the HTTP API.
type Handler struct {
	docs     ports.DocumentStore
	repo     ports.RepositoryStore
	health   *app.HealthService
	sync     *app.SyncService
	mutation *app.MutationService
	logger   zerolog.Logger
	metrics  *metrics.Collector
	registry *prometheus.Registry

	// DefaultBranch is the storage context used when the request does
	// not name one.
	DefaultBranch string
	// AdminTokenHash is a bcrypt hash guarding mutating endpoints.
	// Empty disables auth.
	AdminTokenHash string
	// AuthHeader carries the admin token. Defaults to X-Admin-Token.
	AuthHeader string
	// PreserveValues is the default resync behavior for fields whose
	// type is unchanged.
	PreserveValues bool
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Documents  ports.DocumentStore
	Repository ports.RepositoryStore
	Health     *app.HealthService
	Sync       *app.SyncService
	Mutation   *app.MutationService
	Logger     zerolog.Logger
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
}

// NewHandler creates the API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		docs:       deps.Documents,
		repo:       deps.Repository,
		health:     deps.Health,
		sync:       deps.Sync,
		mutation:   deps.Mutation,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		registry:   deps.Registry,
		AuthHeader: "X-Admin-Token",
	}
}

// Router builds the chi router with all API routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if h.metrics != nil {
		r.Use(NewMetricsMiddleware(h.metrics))
	}

	r.Get("/health", h.Liveness)
	r.Get("/version", Version)

	if h.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/documents", h.ListDocuments)
		r.Get("/documents/{name}", h.GetDocument)
		r.Get("/documents/{name}/health", h.DocumentHealth)
		r.Get("/schema-health", h.SchemaHealth)
		r.Get("/repository", h.GetRepository)
		r.Get("/repository/categories", h.GetCategories)
		r.Get("/changes", h.ListChanges)
		r.Get("/changes/{id}", h.GetChange)

		// Mutating routes require the admin token.
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Put("/documents/{name}", h.PutDocument)
			r.Post("/documents/{name}/resync", h.ResyncDocument)
			r.Post("/resync", h.ResyncAll)
			r.Put("/parameters/{name}", h.PutParameter)
			r.Post("/changes/{id}/confirm", h.ConfirmChange)
			r.Post("/changes/{id}/cancel", h.CancelChange)
		})
	})

	return r
}

// storageContext resolves the branch for a request. The query
// parameter wins over the configured default.
func (h *Handler) storageContext(r *http.Request) ports.StorageContext {
	if branch := r.URL.Query().Get("branch"); branch != "" {
		return ports.StorageContext{Branch: branch}
	}
	return ports.StorageContext{Branch: h.DefaultBranch}
}

// AuthMiddleware compares the request's admin token with the
// configured bcrypt hash. With no hash configured every request
// passes.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.AdminTokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := r.Header.Get(h.AuthHeader)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing admin token")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(h.AdminTokenHash), []byte(token)) != nil {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewLoggingMiddleware logs HTTP requests.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// NewMetricsMiddleware records request counts and latency.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Use the route pattern, not the raw path, to keep label
			// cardinality bounded.
			path := chi.RouteContext(r.Context()).RoutePattern()
			if path == "" {
				path = "unmatched"
			}
			m.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}
