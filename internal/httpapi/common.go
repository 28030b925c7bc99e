package httpapi

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/httputil"
	"github.com/virtengine/virtengine-sub011/internal/signing"
)

// bodySignatureHeader carries the base64 ed25519 signature over the raw
// request body (spec §4.7 "all node-agent endpoints require a signature
// over the request body under the node's registered key").
const bodySignatureHeader = "X-Body-Signature"

// readRawBody reads and buffers the request body, then restores it so a
// subsequent c.ShouldBindJSON still works. Call this before any binding.
func readRawBody(c *gin.Context) ([]byte, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, apierrors.InvalidInput("body", "unreadable request body")
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, nil
}

// verifySignatureBytes verifies raw against the X-Body-Signature header
// under publicKey, writing a 401 response and returning false on failure.
// Callers must have already captured raw via readRawBody before any
// ShouldBindJSON call consumes the body.
func verifySignatureBytes(c *gin.Context, raw []byte, publicKey ed25519.PublicKey) bool {
	sigB64 := c.GetHeader(bodySignatureHeader)
	if sigB64 == "" {
		writeGinError(c, apierrors.Unauthorized("missing "+bodySignatureHeader+" header"))
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		writeGinError(c, apierrors.Unauthorized("malformed body signature"))
		return false
	}

	verifier := signing.DefaultVerifier{}
	if !verifier.Verify(publicKey, raw, sig) {
		writeGinError(c, apierrors.BadSignature(nil))
		return false
	}
	return true
}

// writeGinError renders err through the shared apierrors/httputil taxonomy
// on a gin context.
func writeGinError(c *gin.Context, err error) {
	status := apierrors.HTTPStatus(err)
	svcErr := apierrors.As(err)

	resp := httputil.ErrorResponse{Code: string(apierrors.CodeInternal), Message: "internal error"}
	if svcErr != nil {
		resp.Code = string(svcErr.Code)
		resp.Message = svcErr.Message
		resp.Details = svcErr.Details
	}
	c.AbortWithStatusJSON(status, resp)
}

// writeHTTPError renders err on a plain net/http response (used by the
// chi ops router and gorilla/mux callback router).
func writeHTTPError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err)
}
