package jobs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/domain/interfaces"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

func newJob() *domain.SchedulerJob {
	return &domain.SchedulerJob{
		ID:     uuid.NewString(),
		Type:   domain.JobTypeSemanticLayerStreamingResults,
		Status: domain.SchedulerJobStatusScheduled,
		Payload: domain.StreamingResultsPayload{
			ProjectUUID: "project-1",
			User:        domain.SessionUser{UserUUID: "user-1"},
			Query:       domain.SemanticLayerQuery{Metrics: []string{"revenue"}},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// exerciseStore runs the behaviour shared by every JobStore
func exerciseStore(t *testing.T, store interfaces.JobStore) {
	ctx := context.Background()
	job := newJob()

	require.NoError(t, store.Create(ctx, job))
	assert.Error(t, store.Create(ctx, job), "duplicate ids are rejected")

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulerJobStatusScheduled, got.Status)
	assert.Equal(t, "user-1", got.Payload.User.UserUUID)

	got.Status = domain.SchedulerJobStatusCompleted
	got.Details = domain.SchedulerJobDetails{FileURL: "file://x", RowCount: 3}
	require.NoError(t, store.Update(ctx, got))

	got, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulerJobStatusCompleted, got.Status)
	assert.Equal(t, 3, got.Details.RowCount)

	_, err = store.Get(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	err = store.Update(ctx, &domain.SchedulerJob{ID: "missing"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryJobStore(t *testing.T) {
	exerciseStore(t, NewMemoryJobStore(time.Hour))
}

func TestMemoryJobStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryJobStore(time.Minute)
	store.now = func() time.Time { return now }

	job := newJob()
	require.NoError(t, store.Create(context.Background(), job))

	now = now.Add(30 * time.Second)
	_, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Get(context.Background(), job.ID)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, store.Create(context.Background(), newJob()))
	assert.Len(t, store.jobs, 1, "expired jobs are swept on create")
}

func TestMemoryJobStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryJobStore(0)
	job := newJob()
	require.NoError(t, store.Create(context.Background(), job))

	got, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	got.Status = domain.SchedulerJobStatusError

	again, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SchedulerJobStatusScheduled, again.Status)
}

func TestRedisJobStore(t *testing.T) {
	url := os.Getenv("SEMLAYER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SEMLAYER_TEST_REDIS_URL not set")
	}
	client, err := NewRedisClient(context.Background(), url)
	require.NoError(t, err)

	store := NewRedisJobStore(client, time.Minute)
	defer store.Close()
	exerciseStore(t, store)
}
