package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents an rnupgrade error code.
type ErrorCode string

const (
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"         // 400
	ErrNotFound              ErrorCode = "NOT_FOUND"               // 404
	ErrFileNotFound          ErrorCode = "FILE_NOT_FOUND"          // 404
	ErrDiffUnavailable       ErrorCode = "DIFF_UNAVAILABLE"        // 404
	ErrContextTooLarge       ErrorCode = "CONTEXT_TOO_LARGE"       // 413
	ErrMalformedFunctionCall ErrorCode = "MALFORMED_FUNCTION_CALL" // 422
	ErrRateLimited           ErrorCode = "RATE_LIMITED"            // 429
	ErrUnknownProvider       ErrorCode = "UNKNOWN_PROVIDER_ERROR"  // 502
	ErrInternal              ErrorCode = "INTERNAL"                // 500
)

// UpgradeError represents a structured error with code, status, and details.
type UpgradeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// RetryAfter is the provider-supplied reset hint for RATE_LIMITED errors.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *UpgradeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *UpgradeError {
	return &UpgradeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing stored record (run, session).
func NewNotFound(identifier string) *UpgradeError {
	return &UpgradeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a target path missing on disk.
func NewFileNotFound(path string) *UpgradeError {
	return &UpgradeError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: "file not found",
		Details: map[string]any{"path": path},
	}
}

// NewDiffUnavailable creates a 404 error when no diff exists for a version pair.
func NewDiffUnavailable(from, to, url string) *UpgradeError {
	return &UpgradeError{
		Code:    ErrDiffUnavailable,
		Status:  404,
		Message: fmt.Sprintf("no diff available from %s to %s (tried %s)", from, to, url),
		Details: map[string]any{"from": from, "to": to, "url": url},
	}
}

// NewAlreadyOnVersion creates a DIFF_UNAVAILABLE error for an identical version pair.
func NewAlreadyOnVersion(version string) *UpgradeError {
	return &UpgradeError{
		Code:    ErrDiffUnavailable,
		Status:  404,
		Message: fmt.Sprintf("already on version %s, no diff to apply", version),
		Details: map[string]any{"from": version, "to": version},
	}
}

// NewContextTooLarge creates a 413 error when the prompt exceeds the model limit.
func NewContextTooLarge(msg string) *UpgradeError {
	return &UpgradeError{
		Code:    ErrContextTooLarge,
		Status:  413,
		Message: msg,
	}
}

// NewMalformedFunctionCall creates a 422 error for unusable structured model output.
func NewMalformedFunctionCall(name, reason string) *UpgradeError {
	return &UpgradeError{
		Code:    ErrMalformedFunctionCall,
		Status:  422,
		Message: fmt.Sprintf("malformed function call %q: %s", name, reason),
		Details: map[string]any{"function": name, "reason": reason},
	}
}

// NewRateLimited creates a 429 error. retryAfter may be zero when the
// provider gave no reset hint.
func NewRateLimited(msg string, retryAfter time.Duration) *UpgradeError {
	return &UpgradeError{
		Code:       ErrRateLimited,
		Status:     429,
		Message:    msg,
		RetryAfter: retryAfter,
	}
}

// NewUnknownProvider creates a 502 error for any other provider failure.
func NewUnknownProvider(status int, msg string) *UpgradeError {
	return &UpgradeError{
		Code:    ErrUnknownProvider,
		Status:  502,
		Message: msg,
		Details: map[string]any{"provider_status": status},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The original error is kept in Details for logging only.
func NewInternal(err error) *UpgradeError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &UpgradeError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) an UpgradeError with the given code.
func Is(err error, code ErrorCode) bool {
	var uErr *UpgradeError
	if errors.As(err, &uErr) {
		return uErr.Code == code
	}
	return false
}

// As returns the UpgradeError in err's chain, if any.
func As(err error) (*UpgradeError, bool) {
	var uErr *UpgradeError
	if errors.As(err, &uErr) {
		return uErr, true
	}
	return nil, false
}
