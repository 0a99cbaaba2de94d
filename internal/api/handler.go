// Package api provides HTTP handlers for the PrepWise API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/prepwise/prepwise/internal/shared"
	"github.com/prepwise/prepwise/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain error kinds onto HTTP status codes. SQLite lock
// contention is checked first because those errors arrive wrapped in the
// external kind; callers get a 503 and decide whether to re-invoke.
func statusFor(err error) int {
	switch {
	case shared.IsSQLiteConflictError(err):
		return http.StatusServiceUnavailable
	case shared.IsInvalidInput(err):
		return http.StatusBadRequest
	case shared.IsNotFound(err):
		return http.StatusNotFound
	case shared.IsExternal(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
