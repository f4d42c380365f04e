package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/infrastructure/jobs"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

var owner = domain.SessionUser{UserUUID: "user-1", OrganizationUUID: "org-1"}

func payload() domain.StreamingResultsPayload {
	return domain.StreamingResultsPayload{
		ProjectUUID: "project-1",
		User:        owner,
		Query:       domain.SemanticLayerQuery{Metrics: []string{"revenue"}},
		Format:      domain.ResultsFormatJSONL,
	}
}

func waitForStatus(t *testing.T, s *Scheduler, jobID string) *domain.SchedulerJob {
	t.Helper()
	var job *domain.SchedulerJob
	require.Eventually(t, func() bool {
		var err error
		job, err = s.GetJobStatus(context.Background(), owner, jobID)
		return err == nil && job.Status.Done()
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestScheduler_CompletesJob(t *testing.T) {
	s := New(jobs.NewMemoryJobStore(time.Hour), Config{Workers: 2})
	started := make(chan domain.SchedulerJobStatus, 1)
	s.Handle(domain.JobTypeSemanticLayerStreamingResults, func(ctx context.Context, job *domain.SchedulerJob) (domain.SchedulerJobDetails, error) {
		if current, err := s.store.Get(ctx, job.ID); err == nil {
			started <- current.Status
		}
		return domain.SchedulerJobDetails{FileURL: "file://results.jsonl", RowCount: 7}, nil
	})
	s.Start(context.Background())
	defer s.Stop(context.Background())

	jobID, err := s.SubmitStreamingResults(context.Background(), payload())
	require.NoError(t, err)

	job := waitForStatus(t, s, jobID)
	assert.Equal(t, domain.SchedulerJobStatusStarted, <-started)
	assert.Equal(t, domain.SchedulerJobStatusCompleted, job.Status)
	assert.Equal(t, "file://results.jsonl", job.Details.FileURL)
	assert.Equal(t, 7, job.Details.RowCount)
	assert.Empty(t, job.Details.Error)
}

func TestScheduler_RecordsFailure(t *testing.T) {
	s := New(jobs.NewMemoryJobStore(time.Hour), Config{Workers: 1})
	s.Handle(domain.JobTypeSemanticLayerStreamingResults, func(context.Context, *domain.SchedulerJob) (domain.SchedulerJobDetails, error) {
		return domain.SchedulerJobDetails{}, apperrors.WrapError(apperrors.ErrCodeSemanticLayerError, "failed to stream results", errors.New("warehouse offline"))
	})
	s.Start(context.Background())
	defer s.Stop(context.Background())

	jobID, err := s.SubmitStreamingResults(context.Background(), payload())
	require.NoError(t, err)

	job := waitForStatus(t, s, jobID)
	assert.Equal(t, domain.SchedulerJobStatusError, job.Status)
	assert.Equal(t, "failed to stream results: warehouse offline", job.Details.Error)
}

func TestScheduler_JobTimeout(t *testing.T) {
	s := New(jobs.NewMemoryJobStore(time.Hour), Config{Workers: 1, JobTimeout: 20 * time.Millisecond})
	s.Handle(domain.JobTypeSemanticLayerStreamingResults, func(ctx context.Context, _ *domain.SchedulerJob) (domain.SchedulerJobDetails, error) {
		<-ctx.Done()
		return domain.SchedulerJobDetails{}, ctx.Err()
	})
	s.Start(context.Background())
	defer s.Stop(context.Background())

	jobID, err := s.SubmitStreamingResults(context.Background(), payload())
	require.NoError(t, err)

	job := waitForStatus(t, s, jobID)
	assert.Equal(t, domain.SchedulerJobStatusError, job.Status)
	assert.Contains(t, job.Details.Error, "timed out")
}

func TestScheduler_UnknownJobType(t *testing.T) {
	s := New(jobs.NewMemoryJobStore(time.Hour), Config{})
	s.Start(context.Background())
	defer s.Stop(context.Background())

	jobID, err := s.SubmitStreamingResults(context.Background(), payload())
	require.NoError(t, err)

	job := waitForStatus(t, s, jobID)
	assert.Equal(t, domain.SchedulerJobStatusError, job.Status)
	assert.Contains(t, job.Details.Error, "no handler registered")
}

func TestScheduler_JobStatusOnlyForCreator(t *testing.T) {
	s := New(jobs.NewMemoryJobStore(time.Hour), Config{})

	jobID, err := s.SubmitStreamingResults(context.Background(), payload())
	require.NoError(t, err)

	job, err := s.GetJobStatus(context.Background(), owner, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulerJobStatusScheduled, job.Status)

	_, err = s.GetJobStatus(context.Background(), domain.SessionUser{UserUUID: "user-2"}, jobID)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = s.GetJobStatus(context.Background(), owner, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestScheduler_QueueFull(t *testing.T) {
	s := New(jobs.NewMemoryJobStore(time.Hour), Config{QueueSize: 1})

	_, err := s.SubmitStreamingResults(context.Background(), payload())
	require.NoError(t, err)

	_, err = s.SubmitStreamingResults(context.Background(), payload())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestScheduler_StopWaitsForWorkers(t *testing.T) {
	s := New(jobs.NewMemoryJobStore(time.Hour), Config{Workers: 1})
	running := make(chan struct{})
	s.Handle(domain.JobTypeSemanticLayerStreamingResults, func(ctx context.Context, _ *domain.SchedulerJob) (domain.SchedulerJobDetails, error) {
		close(running)
		<-ctx.Done()
		return domain.SchedulerJobDetails{}, ctx.Err()
	})
	s.Start(context.Background())

	jobID, err := s.SubmitStreamingResults(context.Background(), payload())
	require.NoError(t, err)
	<-running

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	job, err := s.GetJobStatus(context.Background(), owner, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulerJobStatusError, job.Status)
}

func TestScheduler_ShutdownFailsQueuedJobs(t *testing.T) {
	s := New(jobs.NewMemoryJobStore(time.Hour), Config{Workers: 1})
	var calls atomic.Int32
	running := make(chan struct{})
	s.Handle(domain.JobTypeSemanticLayerStreamingResults, func(ctx context.Context, _ *domain.SchedulerJob) (domain.SchedulerJobDetails, error) {
		if calls.Add(1) == 1 {
			close(running)
		}
		<-ctx.Done()
		return domain.SchedulerJobDetails{}, ctx.Err()
	})
	startCtx, cancelStart := context.WithCancel(context.Background())
	s.Start(startCtx)

	first, err := s.SubmitStreamingResults(context.Background(), payload())
	require.NoError(t, err)
	<-running

	var queued []string
	for i := 0; i < 3; i++ {
		jobID, err := s.SubmitStreamingResults(context.Background(), payload())
		require.NoError(t, err)
		queued = append(queued, jobID)
	}

	cancelStart()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	job, err := s.GetJobStatus(context.Background(), owner, first)
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulerJobStatusError, job.Status)

	for _, jobID := range queued {
		job, err := s.GetJobStatus(context.Background(), owner, jobID)
		require.NoError(t, err)
		assert.Equal(t, domain.SchedulerJobStatusError, job.Status, jobID)
		assert.Equal(t, ErrStopped.Error(), job.Details.Error)
	}
	assert.Equal(t, int32(1), calls.Load())
}
