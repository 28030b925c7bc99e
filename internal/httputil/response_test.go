package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
)

func TestWriteError_UsesServiceErrorStatusAndCode(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	WriteError(w, req, apierrors.NotFound("job", "job-123"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RES_4001")
}

func TestWriteError_DefaultsUnknownErrorsTo500(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	WriteError(w, req, assertErr("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type plainErr string

func (e plainErr) Error() string { return string(e) }

func assertErr(msg string) error { return plainErr(msg) }

func TestDecodeJSON_RejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var v map[string]interface{}
	err := DecodeJSON(req, &v)
	require.Error(t, err)
}
