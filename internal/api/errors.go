package api

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the JSON error body of every failed request.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func newError(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message}
}

func errBadRequest(message string) *APIError {
	return newError(http.StatusBadRequest, "INVALID_REQUEST", message)
}

func errNotFound(message string) *APIError {
	return newError(http.StatusNotFound, "NOT_FOUND", message)
}

func errUnprocessable(message string) *APIError {
	return newError(http.StatusUnprocessableEntity, "UNPROCESSABLE", message)
}

func errConflict(message string) *APIError {
	return newError(http.StatusConflict, "CONFLICT", message)
}

func errInternal() *APIError {
	return newError(http.StatusInternalServerError, "INTERNAL", "internal error")
}

func errUnavailable(message string) *APIError {
	return newError(http.StatusServiceUnavailable, "UNAVAILABLE", message)
}
