// Package errors defines the ledger error taxonomy. Every rejected call maps
// to exactly one named code; the HTTP layer renders codes to status codes and
// wire strings.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents internal error codes for ledger operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Client errors (4xx equivalent)
	ErrCodeZeroIdentifier   ErrorCode = 1000
	ErrCodeAlreadySubmitted ErrorCode = 1001
	ErrCodeAlreadySet       ErrorCode = 1002
	ErrCodeAlreadyExists    ErrorCode = 1003
	ErrCodeCapacityExceeded ErrorCode = 1004
	ErrCodeUnknownSession   ErrorCode = 1005
	ErrCodeInvalidLength    ErrorCode = 1006
	ErrCodeInvalidIndex     ErrorCode = 1007
	ErrCodeInvalidRequest   ErrorCode = 1008

	// Authorization errors
	ErrCodeUnauthorized ErrorCode = 1100

	// Lifecycle errors
	ErrCodePaused        ErrorCode = 1200
	ErrCodeReentrantCall ErrorCode = 1201

	// Server errors (5xx equivalent)
	ErrCodeInternal      ErrorCode = 2000
	ErrCodeJournalFailed ErrorCode = 2001
	ErrCodeArchiveFailed ErrorCode = 2002
)

// LedgerError represents a structured error with code and context
type LedgerError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps internal error codes to HTTP status codes
func (e *LedgerError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeOK:
		return http.StatusOK
	case ErrCodeZeroIdentifier, ErrCodeInvalidLength, ErrCodeInvalidIndex, ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeAlreadySubmitted, ErrCodeAlreadySet, ErrCodeAlreadyExists, ErrCodeReentrantCall:
		return http.StatusConflict
	case ErrCodeCapacityExceeded:
		return http.StatusTooManyRequests
	case ErrCodeUnknownSession:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodePaused:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// APICode returns the wire-level error code string for HTTP responses
func (e *LedgerError) APICode() string {
	switch e.Code {
	case ErrCodeZeroIdentifier:
		return "ZERO_IDENTIFIER"
	case ErrCodeAlreadySubmitted:
		return "ALREADY_SUBMITTED"
	case ErrCodeAlreadySet:
		return "ALREADY_SET"
	case ErrCodeAlreadyExists:
		return "ALREADY_EXISTS"
	case ErrCodeCapacityExceeded:
		return "CAPACITY_EXCEEDED"
	case ErrCodeUnknownSession:
		return "UNKNOWN_SESSION"
	case ErrCodeInvalidLength:
		return "INVALID_LENGTH"
	case ErrCodeInvalidIndex:
		return "INVALID_INDEX"
	case ErrCodeInvalidRequest:
		return "INVALID_REQUEST"
	case ErrCodeUnauthorized:
		return "UNAUTHORIZED"
	case ErrCodePaused:
		return "PAUSED"
	case ErrCodeReentrantCall:
		return "REENTRANT_CALL"
	case ErrCodeJournalFailed:
		return "JOURNAL_FAILED"
	case ErrCodeArchiveFailed:
		return "ARCHIVE_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}

// NewLedgerError creates a new LedgerError
func NewLedgerError(code ErrorCode, message string, cause error) *LedgerError {
	return &LedgerError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *LedgerError) WithDetail(key string, value interface{}) *LedgerError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func ZeroIdentifier(field string) *LedgerError {
	return NewLedgerError(ErrCodeZeroIdentifier, fmt.Sprintf("%s is the zero identifier", field), nil).
		WithDetail("field", field)
}

func AlreadySubmitted(requestID string) *LedgerError {
	return NewLedgerError(ErrCodeAlreadySubmitted, fmt.Sprintf("prompt already submitted for request %s", requestID), nil).
		WithDetail("request_id", requestID)
}

func AlreadySet(requestID string) *LedgerError {
	return NewLedgerError(ErrCodeAlreadySet, fmt.Sprintf("response already set for request %s", requestID), nil).
		WithDetail("request_id", requestID)
}

func AlreadyExists(sessionID string) *LedgerError {
	return NewLedgerError(ErrCodeAlreadyExists, fmt.Sprintf("session %s already exists", sessionID), nil).
		WithDetail("session_id", sessionID)
}

func CapacityExceeded(resource string, current, limit int) *LedgerError {
	return NewLedgerError(ErrCodeCapacityExceeded, fmt.Sprintf("%s capacity exceeded: %d/%d", resource, current, limit), nil).
		WithDetail("resource", resource).
		WithDetail("current", current).
		WithDetail("limit", limit)
}

func UnknownSession(sessionID string) *LedgerError {
	return NewLedgerError(ErrCodeUnknownSession, fmt.Sprintf("session %s does not exist", sessionID), nil).
		WithDetail("session_id", sessionID)
}

func InvalidLength(message string) *LedgerError {
	return NewLedgerError(ErrCodeInvalidLength, message, nil)
}

func InvalidIndex(index, length int) *LedgerError {
	return NewLedgerError(ErrCodeInvalidIndex, fmt.Sprintf("index %d out of range [0,%d)", index, length), nil).
		WithDetail("index", index).
		WithDetail("length", length)
}

func InvalidRequest(message string) *LedgerError {
	return NewLedgerError(ErrCodeInvalidRequest, message, nil)
}

func Unauthorized(role string) *LedgerError {
	return NewLedgerError(ErrCodeUnauthorized, fmt.Sprintf("caller is not the %s", role), nil).
		WithDetail("role", role)
}

func Paused() *LedgerError {
	return NewLedgerError(ErrCodePaused, "ledger is paused", nil)
}

func ReentrantCall() *LedgerError {
	return NewLedgerError(ErrCodeReentrantCall, "reentrant call into guarded operation", nil)
}

func InternalError(message string, cause error) *LedgerError {
	return NewLedgerError(ErrCodeInternal, message, cause)
}

func JournalFailed(message string, cause error) *LedgerError {
	return NewLedgerError(ErrCodeJournalFailed, message, cause)
}

func ArchiveFailed(message string, cause error) *LedgerError {
	return NewLedgerError(ErrCodeArchiveFailed, message, cause)
}

// IsLedgerError checks if an error is a LedgerError
func IsLedgerError(err error) bool {
	_, ok := err.(*LedgerError)
	return ok
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if le, ok := err.(*LedgerError); ok {
		return le.Code
	}
	return ErrCodeInternal
}

// APICode returns the wire-level error code string for any error
func APICode(err error) string {
	if le, ok := err.(*LedgerError); ok {
		return le.APICode()
	}
	return "INTERNAL_ERROR"
}

// HTTPStatus returns the HTTP status for any error
func HTTPStatus(err error) int {
	if le, ok := err.(*LedgerError); ok {
		return le.HTTPStatus()
	}
	return http.StatusInternalServerError
}
