package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Domain errors
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeValidationError ErrorCode = "VALIDATION_ERROR"

	// Authorization errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"

	// Application errors
	ErrCodeMissingConfig      ErrorCode = "MISSING_CONFIG"
	ErrCodeProjectNotFound    ErrorCode = "PROJECT_NOT_FOUND"
	ErrCodeJobNotFound        ErrorCode = "JOB_NOT_FOUND"
	ErrCodeSemanticLayerError ErrorCode = "SEMANTIC_LAYER_ERROR"

	// Infrastructure errors
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	ErrCodeStorageError     ErrorCode = "STORAGE_ERROR"
	ErrCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and context
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Status  int // HTTP status code
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Status:  getHTTPStatus(code),
	}
}

// WrapError wraps an existing error with an error code and message
func WrapError(code ErrorCode, message string, err error) *AppError {
	return NewAppError(code, message, err)
}

// Forbidden is shorthand for a FORBIDDEN error without a cause
func Forbidden(message string) *AppError {
	if message == "" {
		message = "You don't have access to this resource"
	}
	return NewAppError(ErrCodeForbidden, message, nil)
}

// MissingConfig is shorthand for a MISSING_CONFIG error without a cause
func MissingConfig(message string) *AppError {
	if message == "" {
		message = "No semantic layer connection is configured for this project"
	}
	return NewAppError(ErrCodeMissingConfig, message, nil)
}

// getHTTPStatus maps error codes to HTTP status codes
func getHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound, ErrCodeProjectNotFound, ErrCodeJobNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput, ErrCodeValidationError:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeMissingConfig:
		return http.StatusUnprocessableEntity
	case ErrCodeSemanticLayerError, ErrCodeConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an AppError from an error chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}

func hasCode(err error, codes ...ErrorCode) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	for _, code := range codes {
		if appErr.Code == code {
			return true
		}
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound, ErrCodeProjectNotFound, ErrCodeJobNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidationError, ErrCodeInvalidInput)
}

// IsForbidden checks if the error is an authorization error
func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

// IsMissingConfig checks if the error signals missing semantic layer configuration
func IsMissingConfig(err error) bool {
	return hasCode(err, ErrCodeMissingConfig)
}
