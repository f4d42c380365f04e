package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/semlayer/semlayer/core/domain"
	"github.com/semlayer/semlayer/core/domain/interfaces"
	"github.com/semlayer/semlayer/core/infrastructure/logging"
	"github.com/semlayer/semlayer/core/observability"
	sharedctx "github.com/semlayer/semlayer/core/shared/context"
	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

// Config controls the worker pool
type Config struct {
	Workers    int           `yaml:"workers" validate:"gte=0"`
	QueueSize  int           `yaml:"queue_size" validate:"gte=0"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

const (
	DefaultWorkers    = 4
	DefaultQueueSize  = 100
	DefaultJobTimeout = 10 * time.Minute
)

// WithDefaults fills zero values
func (c Config) WithDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	return c
}

var (
	// ErrQueueFull is returned when no worker can accept the job in time
	ErrQueueFull = errors.New("scheduler queue is full")
	// ErrStopped is recorded on queued jobs that never started before shutdown
	ErrStopped = errors.New("scheduler stopped before the job started")
)

// Scheduler stores jobs and runs them on a bounded pool of workers
type Scheduler struct {
	store    interfaces.JobStore
	cfg      Config
	queue    chan string
	handlers map[domain.SchedulerJobType]interfaces.JobHandler

	mu      sync.RWMutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a scheduler. Call Start before submitting jobs.
func New(store interfaces.JobStore, cfg Config) *Scheduler {
	cfg = cfg.WithDefaults()
	return &Scheduler{
		store:    store,
		cfg:      cfg,
		queue:    make(chan string, cfg.QueueSize),
		handlers: make(map[domain.SchedulerJobType]interfaces.JobHandler),
	}
}

// Handle registers the handler for a job type
func (s *Scheduler) Handle(jobType domain.SchedulerJobType, handler interfaces.JobHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = handler
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	done := s.done
	s.mu.Unlock()

	log := logging.New("scheduler")
	log.Debugf("Starting %d worker(s)", s.cfg.Workers)

	go func() {
		defer close(done)
		g := new(errgroup.Group)
		g.SetLimit(s.cfg.Workers)
		for {
			select {
			case <-ctx.Done():
				_ = g.Wait()
				if n := s.drain(); n > 0 {
					log.Warnf("Failed %d queued job(s) on shutdown", n)
				}
				log.Debugf("Workers stopped")
				return
			case jobID := <-s.queue:
				g.Go(func() error {
					s.run(ctx, jobID)
					return nil
				})
			}
		}
	}()
}

// Stop cancels running jobs and waits for the workers to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitStreamingResults stores a scheduled streaming-results job and queues it
func (s *Scheduler) SubmitStreamingResults(ctx context.Context, payload domain.StreamingResultsPayload) (string, error) {
	now := time.Now().UTC()
	job := &domain.SchedulerJob{
		ID:        uuid.NewString(),
		Type:      domain.JobTypeSemanticLayerStreamingResults,
		Status:    domain.SchedulerJobStatusScheduled,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return "", apperrors.WrapError(apperrors.ErrCodeInternalError, "failed to store job", err)
	}

	select {
	case s.queue <- job.ID:
	default:
		s.fail(context.WithoutCancel(ctx), job, ErrQueueFull)
		return "", apperrors.WrapError(apperrors.ErrCodeInternalError, "failed to queue job", ErrQueueFull)
	}

	logging.New("scheduler").WithContext(ctx).Debugf("Scheduled job %s for project %s", job.ID, payload.ProjectUUID)
	return job.ID, nil
}

// GetJobStatus returns the job to the user that created it
func (s *Scheduler) GetJobStatus(ctx context.Context, user domain.SessionUser, jobID string) (*domain.SchedulerJob, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Payload.User.UserUUID == "" || job.Payload.User.UserUUID != user.UserUUID {
		return nil, apperrors.Forbidden("")
	}
	return job, nil
}

// drain marks every job still waiting in the queue as failed
func (s *Scheduler) drain() int {
	n := 0
	for {
		select {
		case jobID := <-s.queue:
			ctx := sharedctx.WithJobID(context.Background(), jobID)
			job, err := s.store.Get(ctx, jobID)
			if err != nil {
				logging.New("scheduler").WithContext(ctx).Errorf("Failed to load queued job: %v", err)
				continue
			}
			s.fail(ctx, job, ErrStopped)
			n++
		default:
			return n
		}
	}
}

func (s *Scheduler) run(ctx context.Context, jobID string) {
	ctx = sharedctx.WithJobID(ctx, jobID)
	log := logging.New("scheduler").WithContext(ctx)
	persist := context.WithoutCancel(ctx)

	job, err := s.store.Get(persist, jobID)
	if err != nil {
		log.Errorf("Failed to load job: %v", err)
		return
	}
	ctx = sharedctx.WithProjectUUID(ctx, job.Payload.ProjectUUID)
	ctx = sharedctx.WithUserUUID(ctx, job.Payload.User.UserUUID)
	log = logging.New("scheduler").WithContext(ctx)
	persist = context.WithoutCancel(ctx)

	if ctx.Err() != nil {
		s.fail(persist, job, ErrStopped)
		return
	}

	s.mu.RLock()
	handler, ok := s.handlers[job.Type]
	s.mu.RUnlock()
	if !ok {
		s.fail(persist, job, fmt.Errorf("no handler registered for job type %q", job.Type))
		return
	}

	job.Status = domain.SchedulerJobStatusStarted
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(persist, job); err != nil {
		log.Errorf("Failed to mark job started: %v", err)
		return
	}
	log.Debugf("Job started")

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	details, err := handler(jobCtx, job)
	defer func() {
		observability.RecordJob(persist, string(job.Type), string(job.Status), float64(time.Since(start).Milliseconds()))
	}()
	if err != nil {
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("job timed out after %s: %w", s.cfg.JobTimeout, err)
		}
		s.fail(persist, job, err)
		return
	}

	job.Status = domain.SchedulerJobStatusCompleted
	job.Details = details
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(persist, job); err != nil {
		log.Errorf("Failed to mark job completed: %v", err)
		return
	}
	log.Successf("Job completed with %d row(s)", details.RowCount)
}

func (s *Scheduler) fail(ctx context.Context, job *domain.SchedulerJob, cause error) {
	log := logging.New("scheduler").WithContext(ctx)
	log.Warnf("Job %s failed: %v", job.ID, cause)

	job.Status = domain.SchedulerJobStatusError
	job.Details = domain.SchedulerJobDetails{Error: errorMessage(cause)}
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, job); err != nil {
		log.Errorf("Failed to mark job failed: %v", err)
	}
}

// errorMessage prefers the user-facing message of application errors
func errorMessage(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		if appErr.Err != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Err)
		}
		return appErr.Message
	}
	return err.Error()
}
