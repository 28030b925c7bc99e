// Package httputil provides JSON request/response helpers shared by the
// chi-based ops router and gorilla/mux-based marketplace-callback router
// (the gin-based routers use gin's own c.JSON equivalents).
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/logging"
)

// ErrorResponse is the wire shape for error replies (spec §7).
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as the standard ErrorResponse shape, using
// apierrors.HTTPStatus/Code/Message when err is a *apierrors.ServiceError,
// or a generic 500 otherwise. traceID is attached for 5xx correlation.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierrors.HTTPStatus(err)
	svcErr := apierrors.As(err)

	resp := ErrorResponse{Code: string(apierrors.CodeInternal), Message: "internal error"}
	if svcErr != nil {
		resp.Code = string(svcErr.Code)
		resp.Message = svcErr.Message
		resp.Details = svcErr.Details
	}
	if status >= http.StatusInternalServerError {
		if traceID, ok := r.Context().Value(logging.TraceIDKey).(string); ok {
			resp.TraceID = traceID
		}
	}
	WriteJSON(w, status, resp)
}

// DecodeJSON decodes the request body into v, returning a ServiceError on
// malformed input.
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierrors.InvalidInput("body", err.Error())
	}
	return nil
}
