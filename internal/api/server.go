// Package api serves the time-log core over HTTP for dashboard clients.
//
// Endpoints:
//
//   - GET  /api/v1/health - liveness and mode
//   - GET  /api/v1/issues - issues assigned to the caller
//   - GET  /api/v1/issues/{key}/worklogs - worklogs of one issue
//   - POST /api/v1/issues/{key}/worklogs - log work against an issue
//   - GET  /api/v1/timelogs?period= - aggregated time logs
//   - GET  /api/v1/reports/{period}?format=&user= - report download
//   - GET  /metrics - Prometheus metrics
//
// Callers authenticate with "Authorization: Bearer <access token>". The token
// becomes the request's session; JIRA_ACCESS_TOKEN is used when the header is
// absent. Reads follow the dashboard contract and degrade to empty lists when
// Jira fails.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chambrid/jira-timelog/internal/collect"
	"github.com/chambrid/jira-timelog/pkg/client"
	"github.com/chambrid/jira-timelog/pkg/config"
	"github.com/chambrid/jira-timelog/pkg/metrics"
	"github.com/chambrid/jira-timelog/pkg/session"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BuildInfo contains build-time information
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 60 * time.Second
	idleTimeout  = 120 * time.Second
)

// Backend is what the server reads from and writes to
type Backend struct {
	Client client.Client
	Source collect.Source
	Demo   bool
}

// Server represents the API server
type Server struct {
	config    *config.Config
	buildInfo BuildInfo
	backend   Backend
	failsoft  *client.FailSoft
	log       logr.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	started   time.Time

	httpServer *http.Server
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, info BuildInfo, backend Backend, log logr.Logger, m *metrics.Metrics) *Server {
	log = log.WithName("api")
	return &Server{
		config:    cfg,
		buildInfo: info,
		backend:   backend,
		failsoft:  client.NewFailSoft(backend.Client, log, m),
		log:       log,
		metrics:   m,
		now:       time.Now,
		started:   time.Now(),
	}
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s.withMiddleware(mux)
}

// Start starts the API server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort),
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	s.log.Info("🚀 Starting API server", "addr", s.httpServer.Addr, "demo", s.backend.Demo)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("🛑 Stopping API server")
	return s.httpServer.Shutdown(ctx)
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	mux.Handle("GET /api/v1/issues", s.requireSession(s.handleListIssues))
	mux.Handle("GET /api/v1/issues/{key}/worklogs", s.requireSession(s.handleListWorklogs))
	mux.Handle("POST /api/v1/issues/{key}/worklogs", s.requireSession(s.handleAddWorklog))
	mux.Handle("GET /api/v1/timelogs", s.requireSession(s.handleTimeLogs))
	mux.Handle("GET /api/v1/reports/{period}", s.requireSession(s.handleReport))

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
}

// withMiddleware applies middleware to the handler
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return s.withCORS(s.withRequestID(s.withLogging(s.withSession(next))))
}

type requestIDKey struct{}

// withRequestID tags every request with an id echoed in X-Request-ID and the
// response envelope
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// withSession turns the bearer token into the request's session
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := session.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = s.config.AccessToken
		}
		if token != "" {
			sess := session.New(token, s.config.UserName, s.config.AccountID)
			r = r.WithContext(session.WithSession(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	})
}

// requireSession rejects requests without a token outside demo mode
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.backend.Demo {
			if _, ok := session.FromContext(r.Context()); !ok {
				s.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", "send Authorization: Bearer <access token>")
				return
			}
		}
		next(w, r)
	})
}

// withLogging adds request logging middleware
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.log.V(1).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start),
			"request_id", requestID(r))
	})
}

// withCORS adds CORS middleware
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MetaInfo represents response metadata
type MetaInfo struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{
		Success: statusCode < 400,
		Data:    data,
		Meta: &MetaInfo{
			RequestID: requestID(r),
			Timestamp: s.now(),
			Version:   s.buildInfo.Version,
		},
	}

	if statusCode >= 400 {
		if errInfo, ok := data.(*ErrorInfo); ok {
			response.Error = errInfo
		} else {
			response.Error = &ErrorInfo{
				Code:    "INTERNAL_ERROR",
				Message: "Internal server error",
			}
		}
		response.Data = nil
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Error(err, "failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message, details string) {
	s.writeJSON(w, r, statusCode, &ErrorInfo{
		Code:    code,
		Message: message,
		Details: details,
	})
}
