// Package chi serves the public search API and the operator surface.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumenpress/searchsync/internal/domain"
	"github.com/lumenpress/searchsync/internal/logger"
	"github.com/lumenpress/searchsync/internal/metrics"
	"github.com/lumenpress/searchsync/internal/search"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest        = "bad_request"
	codeUnauthorized      = "unauthorized"
	codeEngineUnavailable = "engine_unavailable"
	codeInternalError     = "internal_error"
)

// errorResponse is the JSON error body. Raw internal error text never
// reaches the client.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthChecker classifies current engine health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) domain.HealthReport
}

// Server is the HTTP API server.
type Server struct {
	search *search.Service
	health HealthChecker
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(svc *search.Service, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{search: svc, health: health, logger: logger}
}

// Router builds the route tree. Health and metrics bypass auth so probes
// and scrapers need no credentials.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chirouter.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/search", s.handleSearch)
	r.Get("/suggest", s.handleSuggest)
	r.Get("/admin/dashboard", s.handleDashboard)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// handleSearch handles GET /search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := search.Query{
		Text:     q.Get("q"),
		Kind:     q.Get("kind"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Sort:     q.Get("sort"),
		UserID:   q.Get("user_id"),
	}

	var err error
	if query.Page, err = intParam(q.Get("page"), 1); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "page must be an integer")
		return
	}
	if query.PerPage, err = intParam(q.Get("per_page"), 0); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "per_page must be an integer")
		return
	}
	if query.Sort != "" && query.Sort != "newest" {
		writeError(w, http.StatusBadRequest, codeBadRequest, `sort must be "newest" or omitted`)
		return
	}

	results, err := s.search.Search(r.Context(), query)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleSuggest handles GET /suggest.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be an integer")
		return
	}

	titles, err := s.search.Suggest(r.Context(), q.Get("q"), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": titles})
}

// handleDashboard handles GET /admin/dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.search.Dashboard(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// handleHealth handles GET /health. Unhealthy maps to 503 so load
// balancers can act on the status code alone.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.CheckHealth(r.Context())

	status := http.StatusOK
	if report.Status == domain.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// handleServiceError logs with the request-scoped logger so failure lines
// carry the request id.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, codeEngineUnavailable, "request timed out")
	case errors.Is(err, domain.ErrEngineUnavailable), errors.Is(err, domain.ErrTransport):
		log.Warn("engine error", zap.Error(err))
		writeError(w, http.StatusBadGateway, codeEngineUnavailable, "search engine unavailable")
	default:
		log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// ServeConfig holds the listener settings.
type ServeConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Serve runs the server until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func Serve(ctx context.Context, cfg ServeConfig, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	log.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

// requestLogger emits one canonical log line per request, propagates
// X-Request-ID back to the caller, and stores a request-scoped logger in
// the context for handlers.
func requestLogger(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := middleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLog := log.With(zap.String("request_id", requestID))
			r = r.WithContext(logger.WithContext(r.Context(), reqLog))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			reqLog.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
