package errors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the engine's failure taxonomy. Services return
// these (usually wrapped with fmt.Errorf and %w) and callers branch
// with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrZoneInactive      = errors.New("zone inactive")
	ErrSlotUnavailable   = errors.New("no slot available")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrChainSubmission   = errors.New("chain submission failed")
	ErrChainTimeout      = errors.New("chain confirmation timed out")
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// StatusCode maps an engine error to the HTTP status the API layer
// should answer with. Unknown errors map to 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrZoneInactive), errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrChainSubmission), errors.Is(err, ErrChainTimeout):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Helper for common errors
var (
	ErrUnauthorized = func(msg string) *HTTPError { return NewHTTPError(http.StatusUnauthorized, msg) }
)
