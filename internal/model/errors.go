package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Input errors
	ErrValidation = errors.New("validation failed")

	// Player errors
	ErrPlayerNotFound      = errors.New("player not found")
	ErrPlayerNotRegistered = errors.New("player not registered")

	// Admission errors
	ErrQueueFull         = errors.New("queue is full")
	ErrQueueClosed       = errors.New("queue is closed")
	ErrProcessingTimeout = errors.New("intent is still processing")

	// Storage errors
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError wraps ErrValidation with a field-level message
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
