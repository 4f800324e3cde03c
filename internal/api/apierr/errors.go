package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mcoot/globaldex/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodePlayerNotRegistered = "PLAYER_NOT_REGISTERED"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeQueueFull           = "QUEUE_FULL"
	CodeStillProcessing     = "STILL_PROCESSING"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeShuttingDown        = "SHUTTING_DOWN"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	if he.status == http.StatusTooManyRequests || he.status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrValidation):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, validationMessage(err)}}
	case errors.Is(err, model.ErrPlayerNotRegistered):
		return &httpError{http.StatusBadRequest, APIError{CodePlayerNotRegistered, "Player not registered"}}
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrQueueFull):
		return &httpError{http.StatusTooManyRequests, APIError{CodeQueueFull, "Queue is full; try again shortly"}}
	case errors.Is(err, model.ErrProcessingTimeout):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStillProcessing, "Request is queued but still processing; please retry"}}
	case errors.Is(err, model.ErrStoreUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStoreUnavailable, "Store is unavailable"}}
	case errors.Is(err, model.ErrQueueClosed):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeShuttingDown, "Server is shutting down"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// validationMessage strips the sentinel prefix from a wrapped validation error
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), model.ErrValidation.Error()+": ")
	if msg == "" || msg == model.ErrValidation.Error() {
		return "Invalid request"
	}
	return msg
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
