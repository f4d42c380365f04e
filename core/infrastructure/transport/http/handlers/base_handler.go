package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	"github.com/semlayer/semlayer/core/infrastructure/transport/http/dto"
	"github.com/semlayer/semlayer/core/infrastructure/transport/http/middleware"
	"github.com/semlayer/semlayer/core/shared/errors"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	logger interfaces.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(tag string) *BaseHandler {
	return &BaseHandler{
		logger: logging.New(tag),
	}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// WriteSuccess wraps results in the ok envelope
func (h *BaseHandler) WriteSuccess(w http.ResponseWriter, results any) {
	h.WriteJSON(w, http.StatusOK, dto.OKResponse{Status: dto.StatusOK, Results: results})
}

// WriteError maps err to its status code and writes the error envelope.
// Internal errors are logged and their cause is not returned to the caller.
func (h *BaseHandler) WriteError(w http.ResponseWriter, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewAppError(errors.ErrCodeInternalError, "Unexpected error", err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Errorf("%v", err)
	}

	h.WriteJSON(w, appErr.Status, dto.ErrorResponse{
		Status: dto.StatusError,
		Error: dto.ErrorBody{
			Name:       errorName(appErr.Code),
			StatusCode: appErr.Status,
			Message:    appErr.Message,
		},
	})
}

// sessionUser returns the authenticated user or writes a 401
func (h *BaseHandler) sessionUser(w http.ResponseWriter, r *http.Request) (domain.SessionUser, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, errors.NewAppError(errors.ErrCodeUnauthorized, "Not authenticated", nil))
	}
	return user, ok
}

// errorName turns an error code into a PascalCase error name:
// FORBIDDEN becomes ForbiddenError, MISSING_CONFIG becomes MissingConfigError.
func errorName(code errors.ErrorCode) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.ToLower(string(code)), "_") {
		if part == "" || part == "error" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString("Error")
	return b.String()
}
