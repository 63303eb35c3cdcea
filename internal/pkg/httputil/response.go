package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the standard error envelope for all API errors. Error
// carries a machine-readable code (VALIDATION_ERROR, RATE_LIMITED, ...);
// Message carries the human-readable reason, when one is safe to expose.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[httputil] JSON encode error: %v", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes a JSON error envelope with a code and human message.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Success: false, Error: code, Message: message})
}

// BadRequest writes a 400 VALIDATION_ERROR response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

// Unauthorized writes a 401 UNAUTHORIZED response with no detail.
func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "")
}

// TooManyRequests writes a 429 RATE_LIMITED response.
func TooManyRequests(w http.ResponseWriter, message string) {
	Error(w, http.StatusTooManyRequests, "RATE_LIMITED", message)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, "NOT_FOUND", message)
}

// InternalError writes a 500 error. Logs the real error but returns a
// generic message to the client (never leak internals).
func InternalError(w http.ResponseWriter, err error) {
	log.Printf("[httputil] internal error: %v", err)
	Error(w, http.StatusInternalServerError, "UNKNOWN_ERROR", "An unexpected error occurred.")
}

// DatabaseError writes a 500 DATABASE_ERROR. The write failed but is safe
// for the client to retry.
func DatabaseError(w http.ResponseWriter, err error) {
	log.Printf("[httputil] database error: %v", err)
	Error(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to process request. Please try again.")
}
