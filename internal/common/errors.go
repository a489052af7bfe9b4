// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Classification errors.
	ErrNoRecords = errors.New("no records to classify")

	// Depreciation errors.
	ErrTableNotFound = errors.New("depreciation table not found")

	// External service errors.
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrAuthentication = errors.New("authentication failed")
	ErrCircuitOpen    = errors.New("circuit breaker open")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ServiceErrorCategory is the machine-readable category on an external
// service error.
type ServiceErrorCategory string

// Service error categories.
const (
	CategoryAuth      ServiceErrorCategory = "auth"
	CategoryRateLimit ServiceErrorCategory = "rate-limit"
	CategoryNetwork   ServiceErrorCategory = "network"
	CategoryOther     ServiceErrorCategory = "other"
)

// ServiceError wraps a failure from the external classification service
// with its category, so callers can decide on retry and breaker behavior
// without string matching.
type ServiceError struct {
	Err      error
	Category ServiceErrorCategory
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("external service error (%s): %v", e.Category, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a categorized external service error.
func NewServiceError(category ServiceErrorCategory, err error) error {
	return &ServiceError{Category: category, Err: err}
}

// CategoryOf extracts the service error category, defaulting to "other".
func CategoryOf(err error) ServiceErrorCategory {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Category
	}
	if errors.Is(err, ErrRateLimit) {
		return CategoryRateLimit
	}
	if errors.Is(err, ErrAuthentication) {
		return CategoryAuth
	}
	return CategoryOther
}

// IsAuthError reports whether the error is an authentication failure.
// Authentication failures must never be retried.
func IsAuthError(err error) bool {
	return CategoryOf(err) == CategoryAuth
}

// IsRateLimit reports whether the error is a throttling response.
// Rate limits are retried but never counted against the circuit breaker.
func IsRateLimit(err error) bool {
	return CategoryOf(err) == CategoryRateLimit
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if IsAuthError(err) {
		return false
	}

	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Category == CategoryNetwork || svcErr.Category == CategoryRateLimit || svcErr.Category == CategoryOther
	}

	return false
}
