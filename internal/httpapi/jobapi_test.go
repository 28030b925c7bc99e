package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/domain"
)

type fakeLifecycleEngine struct {
	jobs      map[string]domain.Job
	submitErr error
	cancelErr error
}

func newFakeLifecycleEngine() *fakeLifecycleEngine {
	return &fakeLifecycleEngine{jobs: make(map[string]domain.Job)}
}

func (f *fakeLifecycleEngine) Submit(ctx context.Context, job domain.Job) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	job.State = domain.JobSubmitted
	f.jobs[job.JobID] = job
	return nil
}

func (f *fakeLifecycleEngine) Job(jobID string) (domain.Job, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return domain.Job{}, apierrors.NotFound("job", jobID)
	}
	return job, nil
}

func (f *fakeLifecycleEngine) Cancel(ctx context.Context, jobID, approverID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	job := f.jobs[jobID]
	job.State = domain.JobCancelled
	f.jobs[jobID] = job
	return nil
}

const testJWTSigningKey = "test-signing-key"

func bearerToken(t *testing.T, customerAddress string) string {
	t.Helper()
	claims := Claims{
		StandardClaims:  jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
		CustomerAddress: customerAddress,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSigningKey))
	require.NoError(t, err)
	return "Bearer " + signed
}

func setupJobRouter(engine *fakeLifecycleEngine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewJobAPI(engine, NewJWTVerifier(testJWTSigningKey)).Register(r)
	return r
}

func TestHandleSubmit_AuthenticatedCustomerSubmitsJob(t *testing.T) {
	engine := newFakeLifecycleEngine()
	router := setupJobRouter(engine)

	body, err := json.Marshal(map[string]interface{}{
		"jobId":      "job-1",
		"offeringId": "offering-1",
		"escrowId":   "escrow-1",
		"workload":   map[string]interface{}{"image": "slurm/runner:latest"},
		"resources":  map[string]interface{}{"nodes": 2},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hpc/jobs", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "customer-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "customer-1", engine.jobs["job-1"].CustomerAddress)
}

func TestHandleSubmit_MissingBearerTokenIsUnauthorized(t *testing.T) {
	engine := newFakeLifecycleEngine()
	router := setupJobRouter(engine)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hpc/jobs", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGet_JobOwnedByAnotherCustomerIsForbidden(t *testing.T) {
	engine := newFakeLifecycleEngine()
	engine.jobs["job-1"] = domain.Job{JobID: "job-1", CustomerAddress: "customer-1"}
	router := setupJobRouter(engine)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/hpc/jobs/job-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "customer-2"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleCancel_OwnerCanCancel(t *testing.T) {
	engine := newFakeLifecycleEngine()
	engine.jobs["job-1"] = domain.Job{JobID: "job-1", CustomerAddress: "customer-1", State: domain.JobQueued}
	router := setupJobRouter(engine)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hpc/jobs/job-1/cancel", nil)
	req.Header.Set("Authorization", bearerToken(t, "customer-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.JobCancelled, engine.jobs["job-1"].State)
}
