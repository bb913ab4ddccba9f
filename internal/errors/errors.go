// Package errors provides error classification for Sable.
//
// Every failure that crosses a component boundary is an *AppError carrying
// a category, so the agent loop can branch on retry/fallback/terminate
// without inspecting vendor-specific details.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ============================================================
// Error Categories
// ============================================================

// Category defines the type of error for handling decisions.
type Category int

const (
	// CategoryTransient errors are retryable (rate limits, 5xx, timeouts)
	CategoryTransient Category = iota

	// CategoryPermanent errors are not retryable (bad request, unauthorized)
	CategoryPermanent

	// CategoryUser errors are due to caller input (validation, unknown tool)
	CategoryUser

	// CategorySystem errors are system-level (storage, config)
	CategorySystem

	// CategoryRateLimit errors are rate-limit rejections with a retry hint
	CategoryRateLimit
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryUser:
		return "user"
	case CategorySystem:
		return "system"
	case CategoryRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// ============================================================
// AppError
// ============================================================

// AppError is the main error type for all Sable errors.
type AppError struct {
	// Code is a unique error code for programmatic handling
	Code string

	// Message is a user-safe error message; never contains vendor detail
	Message string

	// Category determines how the error should be handled
	Category Category

	// Inner is the underlying error
	Inner error

	// Retryable indicates if the operation can be retried
	Retryable bool

	// Context is additional debugging information (never shown to users)
	Context map[string]any

	// RetryAfter is the suggested delay before retry
	RetryAfter time.Duration
}

// Error returns the error message.
func (e *AppError) Error() string {
	var sb strings.Builder

	if e.Code != "" {
		sb.WriteString("[")
		sb.WriteString(e.Code)
		sb.WriteString("] ")
	}

	sb.WriteString(e.Message)

	if e.Inner != nil {
		innerMsg := e.Inner.Error()
		if innerMsg != "" && innerMsg != e.Message {
			sb.WriteString(": ")
			sb.WriteString(innerMsg)
		}
	}

	return sb.String()
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Inner
}

// Is checks if the target error is contained in this error.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Inner, target)
}

// ============================================================
// Constructors
// ============================================================

// New creates a new AppError.
func New(code, message string, category Category) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
	}
}

// Wrap wraps an existing error with context.
func Wrap(err error, code, message string, category Category) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:      code,
			Message:   message,
			Category:  category,
			Inner:     appErr,
			Retryable: appErr.Retryable,
			Context:   appErr.Context,
		}
	}

	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
		Inner:    err,
	}
}

// Transient creates a retryable transient error.
func Transient(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  CategoryTransient,
		Retryable: true,
	}
}

// Permanent creates a non-retryable permanent error.
func Permanent(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  CategoryPermanent,
		Retryable: false,
	}
}

// User creates a caller input error.
func User(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  CategoryUser,
		Retryable: false,
	}
}

// System creates a system-level error.
func System(code, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  CategorySystem,
		Retryable: false,
	}
}

// RateLimited creates a rate limit error with a suggested retry delay.
func RateLimited(code, message string, retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Category:   CategoryRateLimit,
		Retryable:  true,
		RetryAfter: retryAfter,
	}
}

// WithContext attaches a key/value pair for debugging.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ============================================================
// Error Codes
// ============================================================

const (
	// Provider errors
	CodeProviderRateLimit    = "PROVIDER_RATE_LIMIT"
	CodeProviderOverloaded   = "PROVIDER_OVERLOADED"
	CodeProviderUnavailable  = "PROVIDER_UNAVAILABLE"
	CodeProviderTimeout      = "PROVIDER_TIMEOUT"
	CodeProviderBadRequest   = "PROVIDER_BAD_REQUEST"
	CodeProviderUnauthorized = "PROVIDER_UNAUTHORIZED"
	CodeProviderExhausted    = "PROVIDER_CREDIT_EXHAUSTED"
	CodeProviderParse        = "PROVIDER_PARSE_ERROR"

	// Tool errors
	CodeToolNotFound        = "TOOL_NOT_FOUND"
	CodeToolExecutionFailed = "TOOL_EXECUTION_FAILED"
	CodeToolInvalidParams   = "TOOL_INVALID_PARAMS"

	// Cache errors
	CodeCacheUnavailable = "CACHE_UNAVAILABLE"

	// Usage log errors
	CodeUsageStoreFailed = "USAGE_STORE_FAILED"

	// Config errors
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeConfigNotFound = "CONFIG_NOT_FOUND"

	// Classifier errors
	CodeClassifyFallback = "CLASSIFY_FALLBACK_FAILED"
)

// ============================================================
// Helpers
// ============================================================

// GetCategory extracts the category from an error.
// Returns CategoryTransient for non-AppError errors (safe default: retry).
func GetCategory(err error) Category {
	if err == nil {
		return CategoryTransient
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}

	return CategoryTransient
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	// Unknown errors default to retryable
	return true
}

// GetRetryAfter returns the suggested retry duration.
func GetRetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.RetryAfter
	}

	return 0
}

// UserMessage returns the user-safe message for an error, falling back to a
// generic apology for errors that never got classified.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}

	return "Something went wrong. Please try again."
}

// Errorf is a convenience wrapper mirroring fmt.Errorf for plain errors.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
