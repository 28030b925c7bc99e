package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/logging"
	"github.com/virtengine/virtengine-sub011/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs each request and records HTTP metrics.
type LoggingMiddleware struct {
	logger  *logging.Logger
	metrics *metrics.Metrics
	router  string
}

// NewLoggingMiddleware creates a request logging/metrics middleware tagged
// with the owning router's name (used as the metrics label).
func NewLoggingMiddleware(logger *logging.Logger, m *metrics.Metrics, router string) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger, metrics: m, router: router}
}

// Handler wraps next, logging completion and recording duration/status.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		if m.metrics != nil {
			m.metrics.RecordHTTPRequest(m.router, r.Method, r.URL.Path, strconv.Itoa(rec.status), duration)
		}
		if m.logger != nil {
			m.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
				"router":      m.router,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rec.status,
				"duration_ms": duration.Milliseconds(),
			}).Info("http request")
		}
	})
}
