package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/semlayer/semlayer/core/domain"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

type memoryEntry struct {
	job       domain.SchedulerJob
	expiresAt time.Time
}

// MemoryJobStore keeps jobs in process memory until they expire
type MemoryJobStore struct {
	ttl  time.Duration
	now  func() time.Time
	mu   sync.RWMutex
	jobs map[string]memoryEntry
}

// NewMemoryJobStore creates a store whose entries live for ttl after their
// last update. A zero ttl keeps jobs forever.
func NewMemoryJobStore(ttl time.Duration) *MemoryJobStore {
	return &MemoryJobStore{ttl: ttl, now: time.Now, jobs: make(map[string]memoryEntry)}
}

func (m *MemoryJobStore) expiry() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *MemoryJobStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

// Create stores a new job and drops expired ones
func (m *MemoryJobStore) Create(_ context.Context, job *domain.SchedulerJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	for id, e := range m.jobs {
		if m.expired(e) {
			delete(m.jobs, id)
		}
	}
	m.jobs[job.ID] = memoryEntry{job: *job, expiresAt: m.expiry()}
	return nil
}

// Update replaces a stored job
func (m *MemoryJobStore) Update(_ context.Context, job *domain.SchedulerJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.jobs[job.ID]
	if !ok || m.expired(e) {
		return jobNotFound(job.ID)
	}
	m.jobs[job.ID] = memoryEntry{job: *job, expiresAt: m.expiry()}
	return nil
}

// Get returns a copy of the job
func (m *MemoryJobStore) Get(_ context.Context, jobID string) (*domain.SchedulerJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[jobID]
	if !ok || m.expired(e) {
		return nil, jobNotFound(jobID)
	}
	job := e.job
	return &job, nil
}

// Close is a no-op
func (m *MemoryJobStore) Close() error { return nil }

func jobNotFound(jobID string) error {
	return apperrors.NewAppError(apperrors.ErrCodeJobNotFound, fmt.Sprintf("job %s not found", jobID), nil)
}
