package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/virtengine/virtengine-sub011/internal/httputil"
)

// ReadinessSource reports per-component readiness, matching core.Runtime's
// Readiness() map so /readyz can fail per-dependency instead of
// all-or-nothing.
type ReadinessSource interface {
	Readiness() map[string]bool
}

// NewOpsRouter builds the unauthenticated internal ops router (spec §4.7
// "/healthz, /readyz, /metrics on a separate internal listener"), modeled
// on the teacher's chi-based internal admin mux.
func NewOpsRouter(readiness ReadinessSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(readiness))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReadyz(readiness ReadinessSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := readiness.Readiness()
		allReady := true
		for _, ready := range components {
			if !ready {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, map[string]interface{}{
			"ready":      allReady,
			"components": components,
		})
	}
}
