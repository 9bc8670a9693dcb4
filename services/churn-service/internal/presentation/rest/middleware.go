package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bibbank/bib/pkg/auth"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every HTTP request with method, path, status, duration, and remote address.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Churn   *ChurnHandler
	Health  *HealthHandler
	Metrics http.Handler
	// Validator enables bearer-token authentication when non-nil.
	Validator auth.TokenValidator
	Logger    *slog.Logger
}

// publicPaths are served without authentication.
var publicPaths = []string{"/", "/healthz", "/readyz", "/metrics"}

// NewRouter builds the service's HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	cfg.Churn.RegisterRoutes(mux)
	cfg.Health.RegisterRoutes(mux)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	var handler http.Handler = mux
	if cfg.Validator != nil {
		handler = auth.HTTPMiddleware(cfg.Validator, publicPaths)(handler)
	}
	return LoggingMiddleware(cfg.Logger)(handler)
}
