// Package apierrors provides the unified error taxonomy described in spec §7:
// validation, authorization/policy, resource/state-conflict, and transient
// infrastructure errors, each carrying a stable code and HTTP status.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	// Validation errors (3xxx) — caller-supplied data violates a constraint.
	CodeInvalidInput      Code = "VAL_3001"
	CodeMissingParameter  Code = "VAL_3002"
	CodeInvalidFormat     Code = "VAL_3003"
	CodeOutOfRange        Code = "VAL_3004"
	CodeInvalidTransition Code = "VAL_3005"

	// Authorization/policy errors (2xxx).
	CodeForbidden         Code = "AUTHZ_2001"
	CodeOwnershipRequired Code = "AUTHZ_2002"
	CodeQuotaExceeded     Code = "AUTHZ_2003"
	CodeUnauthorized      Code = "AUTHZ_2004"

	// Resource / state-conflict errors (4xxx).
	CodeNotFound      Code = "RES_4001"
	CodeAlreadyExists Code = "RES_4002"
	CodeConflict      Code = "RES_4003"
	CodeReplay        Code = "RES_4004"

	// Transient infrastructure errors (5xxx).
	CodeInternal         Code = "SVC_5001"
	CodeStoreUnavailable Code = "SVC_5002"
	CodeUpstreamError    Code = "SVC_5003"
	CodeTimeout          Code = "SVC_5004"
	CodeRateLimited      Code = "SVC_5005"

	// Cryptographic errors (6xxx).
	CodeBadSignature       Code = "CRYPTO_6001"
	CodeVerificationFailed Code = "CRYPTO_6002"

	// Fatal errors (9xxx) — invariant broken, operator intervention required.
	CodeFatalCorruption Code = "FATAL_9001"
)

// ServiceError is a structured error with a stable code, message and HTTP status.
type ServiceError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches a key/value detail and returns the same error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a ServiceError.
func New(code Code, message string, httpStatus int) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap wraps an existing error with a ServiceError.
func Wrap(code Code, message string, httpStatus int, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// Constructors for common cases.

func InvalidInput(field, reason string) *ServiceError {
	return New(CodeInvalidInput, "invalid input", http.StatusBadRequest).
		WithDetails("field", field).WithDetails("reason", reason)
}

func MissingParameter(param string) *ServiceError {
	return New(CodeMissingParameter, "missing required parameter", http.StatusBadRequest).
		WithDetails("parameter", param)
}

func InvalidTransition(from, to string) *ServiceError {
	return New(CodeInvalidTransition, "invalid state transition", http.StatusConflict).
		WithDetails("from", from).WithDetails("to", to)
}

func Forbidden(message string) *ServiceError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func Unauthorized(message string) *ServiceError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func NotFound(resource, id string) *ServiceError {
	return New(CodeNotFound, "resource not found", http.StatusNotFound).
		WithDetails("resource", resource).WithDetails("id", id)
}

func Conflict(message string) *ServiceError {
	return New(CodeConflict, message, http.StatusConflict)
}

// Replay returns a 2xx-shaped state-conflict: per §7, duplicates/replays
// never surface as plain errors to HTTP handlers — they reference the
// existing record. Callers that truly must reject (sequence replay) use this
// to signal "no new effect happened" while still returning 409 at the wire.
func Replay(message string) *ServiceError {
	return New(CodeReplay, message, http.StatusConflict)
}

func Internal(message string, err error) *ServiceError {
	return Wrap(CodeInternal, message, http.StatusInternalServerError, err)
}

func StoreUnavailable(err error) *ServiceError {
	return Wrap(CodeStoreUnavailable, "store unavailable", http.StatusServiceUnavailable, err)
}

func UpstreamError(service string, err error) *ServiceError {
	return Wrap(CodeUpstreamError, "upstream call failed", http.StatusBadGateway, err).
		WithDetails("service", service)
}

func Timeout(operation string) *ServiceError {
	return New(CodeTimeout, "operation timed out", http.StatusGatewayTimeout).
		WithDetails("operation", operation)
}

func RateLimited() *ServiceError {
	return New(CodeRateLimited, "rate limit exceeded", http.StatusTooManyRequests)
}

func BadSignature(err error) *ServiceError {
	return Wrap(CodeBadSignature, "signature verification failed", http.StatusUnauthorized, err)
}

func FatalCorruption(message string, err error) *ServiceError {
	return Wrap(CodeFatalCorruption, message, http.StatusInternalServerError, err)
}

// IsServiceError reports whether err is (or wraps) a *ServiceError.
func IsServiceError(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr)
}

// As extracts a *ServiceError from the error chain, if present.
func As(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// HTTPStatus returns the HTTP status for an error, defaulting to 500.
func HTTPStatus(err error) int {
	if svcErr := As(err); svcErr != nil {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
