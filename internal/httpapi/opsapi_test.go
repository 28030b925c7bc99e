package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeReadiness struct {
	components map[string]bool
}

func (f fakeReadiness) Readiness() map[string]bool {
	return f.components
}

func TestHealthz_AlwaysOK(t *testing.T) {
	router := NewOpsRouter(fakeReadiness{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_AllReadyReturnsOK(t *testing.T) {
	router := NewOpsRouter(fakeReadiness{components: map[string]bool{"monitor": true, "outbox-flusher-usage": true}})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_OneComponentNotReadyReturns503(t *testing.T) {
	router := NewOpsRouter(fakeReadiness{components: map[string]bool{"monitor": true, "chain-client": false}})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics_ExposesPrometheusFormat(t *testing.T) {
	router := NewOpsRouter(fakeReadiness{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
