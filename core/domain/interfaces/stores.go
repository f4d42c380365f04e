package interfaces

import (
	"context"
	"io"

	"github.com/semlayer/semlayer/core/domain"
)

// ProjectStore resolves projects and their semantic layer connection
type ProjectStore interface {
	// Get returns the project or a NOT_FOUND error
	Get(ctx context.Context, projectUUID string) (*domain.Project, error)

	// List returns the projects of an organization
	List(ctx context.Context, organizationUUID string) ([]domain.ProjectSummary, error)

	Close() error
}

// JobStore persists scheduler jobs
type JobStore interface {
	Create(ctx context.Context, job *domain.SchedulerJob) error
	Update(ctx context.Context, job *domain.SchedulerJob) error

	// Get returns the job or a JOB_NOT_FOUND error
	Get(ctx context.Context, jobID string) (*domain.SchedulerJob, error)

	Close() error
}

// ResultsStorage stores result files and hands out URLs to them
type ResultsStorage interface {
	// Upload writes r under name and returns a URL the caller can download it from
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)

	// Open reads a stored file back
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
