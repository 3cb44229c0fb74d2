// Package response provides JSON response helpers for API handlers.
package response

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/HeadupandFace/cbt-companion-app/internal/pkg/errors"
)

// Message is the body of simple acknowledgement responses.
type Message struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
	NextURL  string `json:"next_url,omitempty"`
}

// JSON writes data as a JSON body with the given status code.
// The browser client reads fields at the top level, so there is no envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"Failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes an error response of the form {"error": "..."}.
func Error(w http.ResponseWriter, err error) {
	apiErr := apierrors.AsAPIError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	json.NewEncoder(w).Encode(apiErr)
}

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// OKMessage writes a 200 OK acknowledgement.
func OKMessage(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, Message{Message: message})
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, apierrors.ErrBadRequest.WithMessage(message))
}

// Unauthorized writes a 401 Unauthorized error response.
func Unauthorized(w http.ResponseWriter) {
	Error(w, apierrors.ErrUnauthorized)
}

// InternalError writes a 500 error response with a user-facing message.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, apierrors.NewInternalError(message))
}
