// Package scheduler runs per-school ledger maintenance in the background.
//
// A CronTrigger fires once a day, asks a SchoolProvider for the schools with
// open fee records and submits one Job per school to the Scheduler, whose
// worker pool hands each job to a JobExecutor.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is one school's maintenance run
type Job struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewJob creates a new job instance
func NewJob(schoolID uuid.UUID, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		SchoolID:   schoolID,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start(now time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete(now time.Time) {
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(now time.Time, err string) {
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry
func (j *Job) ScheduleRetry(now time.Time, delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	nextRetry := now.Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// JobExecutor executes one job
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	QueueSize         int
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 2,
		JobTimeout:        10 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
		QueueSize:         1000,
	}
}

// Scheduler runs submitted jobs on a fixed pool of workers
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	clock    shared.Clock
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, executor JobExecutor, clock shared.Clock, logger *zap.Logger) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = defaults.MaxConcurrentJobs
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		clock:    clock,
		logger:   logger,
		jobs:     make(chan *Job, config.QueueSize),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Ledger scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler. Queued jobs that have not started are dropped.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Ledger scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Ledger scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the worker pool is up
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob submits a job for execution
func (s *Scheduler) SubmitJob(job *Job) error {
	if !s.IsRunning() {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("school_id", job.SchoolID.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// ScheduleSchool submits a job for one school
func (s *Scheduler) ScheduleSchool(schoolID uuid.UUID) error {
	return s.SubmitJob(NewJob(schoolID, s.config.RetryAttempts))
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.Start(s.clock.Now())
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("school_id", job.SchoolID.String()),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.executor.Execute(jobCtx, job); err != nil {
		job.Fail(s.clock.Now(), err.Error())
		log.Error("Job failed", zap.Error(err))

		if job.ShouldRetry() {
			job.ScheduleRetry(s.clock.Now(), s.config.RetryDelay)
			log.Info("Job scheduled for retry",
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
			)
			s.retryLater(job)
		}
		return
	}

	job.Complete(s.clock.Now())
	log.Debug("Job completed")
}

func (s *Scheduler) retryLater(job *Job) {
	wait := job.NextRetryAt.Sub(s.clock.Now())
	time.AfterFunc(wait, func() {
		if err := s.SubmitJob(job); err != nil {
			s.logger.Warn("Failed to re-queue job",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	})
}
