package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/semlayer/semlayer/core/application/results"
	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/transport/http/dto"
	"github.com/semlayer/semlayer/core/infrastructure/transport/http/middleware"
)

// SemanticLayerHandler serves the semantic viewer endpoints of a project
type SemanticLayerHandler struct {
	*BaseHandler
	service interfaces.SemanticLayerService
}

// NewSemanticLayerHandler creates a new semantic layer handler
func NewSemanticLayerHandler(service interfaces.SemanticLayerService) *SemanticLayerHandler {
	return &SemanticLayerHandler{
		BaseHandler: NewBaseHandler("http:semantic-layer"),
		service:     service,
	}
}

// GetViews handles GET .../semantic-layer/views
func (h *SemanticLayerHandler) GetViews(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sessionUser(w, r)
	if !ok {
		return
	}

	views, err := h.service.GetViews(r.Context(), user, chi.URLParam(r, "projectUuid"))
	if err != nil {
		h.WriteError(w, err)
		return
	}
	h.WriteSuccess(w, views)
}

// QueryFields handles POST .../semantic-layer/views/{view}/query-fields
func (h *SemanticLayerHandler) QueryFields(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sessionUser(w, r)
	if !ok {
		return
	}

	var req dto.QueryFieldsRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, err)
		return
	}

	fields, err := h.service.GetFields(r.Context(), user, chi.URLParam(r, "projectUuid"), chi.URLParam(r, "view"), req.Selected())
	if err != nil {
		h.WriteError(w, err)
		return
	}
	h.WriteSuccess(w, fields)
}

// GetSQL handles POST .../semantic-layer/sql
func (h *SemanticLayerHandler) GetSQL(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sessionUser(w, r)
	if !ok {
		return
	}

	var query domain.SemanticLayerQuery
	if err := middleware.DecodeJSON(r, &query); err != nil {
		h.WriteError(w, err)
		return
	}

	sql, err := h.service.GetSQL(r.Context(), user, chi.URLParam(r, "projectUuid"), query)
	if err != nil {
		h.WriteError(w, err)
		return
	}
	h.WriteSuccess(w, dto.SQLResponse{SQL: sql})
}

// RunQuery handles POST .../semantic-layer/run
func (h *SemanticLayerHandler) RunQuery(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sessionUser(w, r)
	if !ok {
		return
	}

	var req dto.RunQueryRequest
	if err := middleware.DecodeJSON(r, &req); err != nil {
		h.WriteError(w, err)
		return
	}

	jobID, err := h.service.GetStreamingResults(r.Context(), user, chi.URLParam(r, "projectUuid"), req.SemanticLayerQuery, req.Format)
	if err != nil {
		h.WriteError(w, err)
		return
	}
	h.WriteSuccess(w, dto.RunQueryResponse{JobID: jobID})
}

// GetResults handles GET .../semantic-layer/results/{fileId} and streams
// the stored file back without buffering it
func (h *SemanticLayerHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sessionUser(w, r)
	if !ok {
		return
	}

	fileID := chi.URLParam(r, "fileId")
	rc, err := h.service.GetResultsFile(r.Context(), user, chi.URLParam(r, "projectUuid"), fileID)
	if err != nil {
		h.WriteError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", results.ContentTypeFor(fileID))
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileID+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WithContext(r.Context()).Warnf("Results download of %s interrupted: %v", fileID, err)
	}
}
