// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/aqanja/blog-api/internal/shared"
)

// ProblemDetail represents RFC7807 problem details. Message carries the
// caller-safe text the frontend displays.
type ProblemDetail struct {
	Type    string              `json:"type,omitempty"`
	Title   string              `json:"title"`
	Status  int                 `json:"status"`
	Message string              `json:"message,omitempty"`
	Errors  []shared.FieldError `json:"errors,omitempty"`
}

// MessageResponse is the body returned by mutating endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Message sends a 200 response with a single message field.
func Message(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, MessageResponse{Message: message})
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, message string) {
	JSON(w, status, ProblemDetail{
		Title:   title,
		Status:  status,
		Message: message,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

// NotFound answers unmatched routes with the requested path.
func NotFound(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusNotFound, map[string]string{
		"error": "Not found",
		"path":  r.URL.Path,
	})
}

// MethodNotAllowed answers routes that exist under a different method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), r.Method+" "+r.URL.Path)
}
