package interfaces

import (
	"context"
	"io"

	"github.com/semlayer/semlayer/core/domain"
)

// JobHandler runs one job and returns its outcome
type JobHandler func(ctx context.Context, job *domain.SchedulerJob) (domain.SchedulerJobDetails, error)

// Scheduler queues asynchronous jobs
type Scheduler interface {
	// SubmitStreamingResults stores a scheduled job and returns its id
	SubmitStreamingResults(ctx context.Context, payload domain.StreamingResultsPayload) (string, error)

	// GetJobStatus returns the job if user created it
	GetJobStatus(ctx context.Context, user domain.SessionUser, jobID string) (*domain.SchedulerJob, error)
}

// SemanticLayerService is the entry point used by the transports
type SemanticLayerService interface {
	GetViews(ctx context.Context, user domain.SessionUser, projectUUID string) ([]domain.SemanticLayerView, error)
	GetFields(ctx context.Context, user domain.SessionUser, projectUUID, view string, selected domain.SemanticLayerSelectedFields) ([]domain.SemanticLayerField, error)
	GetSQL(ctx context.Context, user domain.SessionUser, projectUUID string, query domain.SemanticLayerQuery) (string, error)
	GetStreamingResults(ctx context.Context, user domain.SessionUser, projectUUID string, query domain.SemanticLayerQuery, format domain.ResultsFormat) (string, error)
	GetResultsFile(ctx context.Context, user domain.SessionUser, projectUUID, fileID string) (io.ReadCloser, error)
}
