package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semlayer/semlayer/core/shared/errors"
)

func TestNewAppError(t *testing.T) {
	tests := []struct {
		name           string
		code           errors.ErrorCode
		message        string
		err            error
		expectedStatus int
	}{
		{
			name:           "not found error",
			code:           errors.ErrCodeNotFound,
			message:        "resource not found",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "validation error",
			code:           errors.ErrCodeValidationError,
			message:        "invalid input",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "forbidden error",
			code:           errors.ErrCodeForbidden,
			message:        "no access",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing config error",
			code:           errors.ErrCodeMissingConfig,
			message:        "not configured",
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "semantic layer error",
			code:           errors.ErrCodeSemanticLayerError,
			message:        "upstream failed",
			err:            stderrors.New("timeout"),
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "internal error",
			code:           errors.ErrCodeInternalError,
			message:        "internal error",
			err:            stderrors.New("underlying error"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := errors.NewAppError(tt.code, tt.message, tt.err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, tt.expectedStatus, appErr.Status)
			if tt.err != nil {
				assert.Equal(t, tt.err, appErr.Unwrap())
				assert.Contains(t, appErr.Error(), tt.err.Error())
			}
		})
	}
}

func TestPredicates_FollowWrappedErrors(t *testing.T) {
	forbidden := fmt.Errorf("get views: %w", errors.Forbidden(""))
	missing := fmt.Errorf("select client: %w", errors.MissingConfig("semantic layer not configured"))

	assert.True(t, errors.IsForbidden(forbidden))
	assert.False(t, errors.IsMissingConfig(forbidden))
	assert.True(t, errors.IsMissingConfig(missing))
	assert.False(t, errors.IsForbidden(missing))
	assert.False(t, errors.IsForbidden(stderrors.New("plain")))
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"not found error", errors.NewAppError(errors.ErrCodeNotFound, "not found", nil), true},
		{"project not found", errors.NewAppError(errors.ErrCodeProjectNotFound, "project not found", nil), true},
		{"job not found", errors.NewAppError(errors.ErrCodeJobNotFound, "job not found", nil), true},
		{"other error", errors.NewAppError(errors.ErrCodeInternalError, "internal error", nil), false},
		{"non-app error", stderrors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, errors.IsNotFound(tt.err))
		})
	}
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, errors.IsValidationError(errors.NewAppError(errors.ErrCodeValidationError, "validation failed", nil)))
	assert.True(t, errors.IsValidationError(errors.NewAppError(errors.ErrCodeInvalidInput, "invalid input", nil)))
	assert.False(t, errors.IsValidationError(errors.NewAppError(errors.ErrCodeInternalError, "internal error", nil)))
}

func TestForbidden_DefaultMessage(t *testing.T) {
	err := errors.Forbidden("")
	assert.Equal(t, "You don't have access to this resource", err.Message)
	assert.Equal(t, http.StatusForbidden, err.Status)
}
