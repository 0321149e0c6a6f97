// Package errors provides standardized error handling for the approval
// workflow. Token and state errors are user-visible and never retried;
// storage errors fail the triggering request; delivery errors are logged and
// absorbed by the caller.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyUsed        ErrorCode = "ALREADY_USED"
	ErrCodeExpired            ErrorCode = "EXPIRED"
	ErrCodeValidation         ErrorCode = "VALIDATION"
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeDeliveryFailed     ErrorCode = "DELIVERY_FAILURE"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from any error, defaulting to INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTokenNotFoundError signals that no token matches the presented secret.
// The message deliberately does not distinguish unknown tokens from unknown
// deals.
func NewTokenNotFoundError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Invalid approval link",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDealNotFoundError signals a missing deal row. With referential integrity
// intact this indicates a data fault, not a user mistake.
func NewDealNotFoundError(dealID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Deal not found",
		Details:   fmt.Sprintf("dealId: %s", dealID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyUsedError signals a consumed single-use token.
func NewAlreadyUsedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyUsed,
		Message:   "Approval link has already been used",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExpiredError signals a token past its validity window.
func NewExpiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeExpired,
		Message:   "Approval link has expired",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError signals malformed creation input.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageUnavailableError signals that the persistence collaborator failed.
// Fatal for the triggering request; not retried inline.
func NewStorageUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageUnavailable,
		Message:   "Storage unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError signals an email or webhook send failure. Callers
// log and absorb it; it never surfaces as a workflow failure. err may be nil
// when the transport only reports a boolean outcome.
func NewDeliveryFailedError(channel string, err error) *StandardError {
	details := fmt.Sprintf("channel: %s", channel)
	if err != nil {
		details = fmt.Sprintf("channel: %s, error: %s", channel, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Notification delivery failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
