package httputil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ignite/whisperbox/internal/pkg/logger"
)

// maxBodyBytes bounds request bodies. Message content is capped far below this.
const maxBodyBytes = 64 << 10

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("httputil: JSON encode failed", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response with the given data.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a JSON error response. Use for client errors (4xx).
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorWithCode writes a JSON error carrying a machine-readable code and
// optional details.
func ErrorWithCode(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	ErrorWithCode(w, http.StatusBadRequest, "validation_error", message, nil)
}

// Unauthorized writes a 401 error.
func Unauthorized(w http.ResponseWriter) {
	ErrorWithCode(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
}

// Forbidden writes a 403 error.
func Forbidden(w http.ResponseWriter, message string) {
	ErrorWithCode(w, http.StatusForbidden, "forbidden", message, nil)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	ErrorWithCode(w, http.StatusNotFound, "not_found", message, nil)
}

// ServiceUnavailable writes a 503 error. The cause is logged, never returned.
func ServiceUnavailable(w http.ResponseWriter, err error) {
	logger.Error("httputil: backend unavailable", "error", err)
	ErrorWithCode(w, http.StatusServiceUnavailable, "backend_unavailable", "service temporarily unavailable", nil)
}

// InternalError writes a 500 error. Logs the real error but returns a
// generic message to the client.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("httputil: internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal server error")
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails. An empty body
// leaves dst untouched and is accepted.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && err != io.EOF {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
