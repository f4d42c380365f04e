package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/transport/http/dto"
)

// SchedulerHandler reports scheduler job progress
type SchedulerHandler struct {
	*BaseHandler
	scheduler interfaces.Scheduler
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler interfaces.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{
		BaseHandler: NewBaseHandler("http:scheduler"),
		scheduler:   scheduler,
	}
}

// GetJobStatus handles GET /api/v1/schedulers/job/{jobId}/status
func (h *SchedulerHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sessionUser(w, r)
	if !ok {
		return
	}

	job, err := h.scheduler.GetJobStatus(r.Context(), user, chi.URLParam(r, "jobId"))
	if err != nil {
		h.WriteError(w, err)
		return
	}

	h.WriteSuccess(w, dto.JobStatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Details:   job.Details,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.UTC().Format(time.RFC3339),
	})
}
