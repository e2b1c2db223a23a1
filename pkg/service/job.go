package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/graph-insight/pkg/config"
	"github.com/gilchrisn/graph-insight/pkg/louvain"
	"github.com/gilchrisn/graph-insight/pkg/metrics"
	"github.com/gilchrisn/graph-insight/pkg/models"
)

var (
	// ErrJobNotFound is returned for an unknown or expired job id.
	ErrJobNotFound = errors.New("job not found")

	// ErrUnknownJobKind is returned when a submission names no known kind.
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrInvalidParameters is returned when a submission fails validation.
	ErrInvalidParameters = errors.New("invalid parameters")
)

// JobService handles background job processing
type JobService struct {
	jobs     map[string]*models.Job
	cancels  map[string]context.CancelFunc
	workers  chan struct{}
	graphs   *GraphService
	metrics  *metrics.Registry
	mutex    sync.RWMutex
	jobTTL   time.Duration
	timeout  time.Duration
	interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewJobService creates a new job service and starts its cleanup loop.
func NewJobService(graphs *GraphService, cfg config.JobConfig, reg *metrics.Registry) *JobService {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	service := &JobService{
		jobs:     make(map[string]*models.Job),
		cancels:  make(map[string]context.CancelFunc),
		workers:  make(chan struct{}, cfg.MaxWorkers),
		graphs:   graphs,
		metrics:  reg,
		jobTTL:   cfg.ResultTTL,
		timeout:  cfg.JobTimeout,
		interval: cfg.CleanupInterval,
		stop:     make(chan struct{}),
	}

	service.wg.Add(1)
	go service.cleanupLoop()

	return service
}

func validateParameters(kind models.JobKind, p models.JobParameters) error {
	positive := func(name string, v *int) error {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidParameters, name)
		}
		return nil
	}
	nonNegative := func(name string, v *float64) error {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidParameters, name)
		}
		return nil
	}

	switch kind {
	case models.JobLouvain:
		return errors.Join(
			positive("maxLevels", p.MaxLevels),
			positive("maxIterations", p.MaxIterations),
			nonNegative("minModularityGain", p.MinModularityGain),
			nonNegative("tolerance", p.Tolerance),
		)
	case models.JobPaths:
		return positive("sampleSize", p.SampleSize)
	case models.JobDegrees:
		return errors.Join(positive("sampleSize", p.SampleSize), positive("topK", p.TopK))
	}
	return fmt.Errorf("%w: %q", ErrUnknownJobKind, kind)
}

// Submit creates and queues a new job
func (s *JobService) Submit(kind models.JobKind, params models.JobParameters) (models.Job, error) {
	if err := validateParameters(kind, params); err != nil {
		return models.Job{}, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	jobID := uuid.New().String()
	now := time.Now()
	job := &models.Job{
		ID:         jobID,
		Kind:       kind,
		Parameters: params,
		Status:     models.JobStatusQueued,
		Progress: models.JobProgress{
			Percentage: 0,
			Message:    "Queued",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	s.jobs[jobID] = job
	s.cancels[jobID] = cancel

	log.Info().
		Str("job_id", jobID).
		Str("kind", string(kind)).
		Msg("Job submitted")

	s.wg.Add(1)
	go s.processJob(ctx, jobID)

	return *job, nil
}

// Get returns a snapshot of a job.
func (s *JobService) Get(jobID string) (models.Job, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return models.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return *job, nil
}

// List returns snapshots of every known job.
func (s *JobService) List() []models.Job {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	jobs := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// Cancel stops a queued or running job. Finished jobs are left untouched.
func (s *JobService) Cancel(jobID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status.Final() {
		return nil
	}

	s.finishLocked(job, models.JobStatusCancelled, "Cancelled")
	s.cancels[jobID]()

	log.Info().
		Str("job_id", jobID).
		Msg("Job cancelled")

	return nil
}

// Close cancels outstanding jobs and waits for every goroutine to exit.
func (s *JobService) Close() {
	s.mutex.Lock()
	for id, job := range s.jobs {
		if !job.Status.Final() {
			s.finishLocked(job, models.JobStatusCancelled, "Service stopped")
			s.cancels[id]()
		}
	}
	s.mutex.Unlock()

	close(s.stop)
	s.wg.Wait()
}

// processJob processes a job in the background
func (s *JobService) processJob(ctx context.Context, jobID string) {
	defer s.wg.Done()

	// Acquire worker slot
	select {
	case s.workers <- struct{}{}:
	case <-ctx.Done():
		s.failJob(jobID, ctx.Err())
		return
	}
	defer func() { <-s.workers }()

	s.mutex.RLock()
	job, exists := s.jobs[jobID]
	s.mutex.RUnlock()
	if !exists {
		log.Error().Str("job_id", jobID).Msg("Job not found during processing")
		return
	}

	if !s.startJob(jobID) {
		return
	}
	if s.metrics != nil {
		s.metrics.JobsRunning.Inc()
		defer s.metrics.JobsRunning.Dec()
	}

	log.Info().
		Str("job_id", jobID).
		Str("kind", string(job.Kind)).
		Msg("Job processing started")

	start := time.Now()
	result, err := s.execute(ctx, jobID, job.Kind, job.Parameters)
	if err != nil {
		s.failJob(jobID, err)
		return
	}
	result.ProcessingTimeMS = time.Since(start).Milliseconds()
	s.completeJob(jobID, result)
}

// execute runs the analysis behind a job kind.
func (s *JobService) execute(ctx context.Context, jobID string, kind models.JobKind, p models.JobParameters) (*models.JobResult, error) {
	switch kind {
	case models.JobLouvain:
		progress := &jobProgress{
			service:   s,
			jobID:     jobID,
			maxLevels: s.graphs.LouvainConfig(p).MaxLevels(),
		}
		res, err := s.graphs.Communities(ctx, p, progress)
		if err != nil {
			return nil, err
		}
		report := s.graphs.Report(res)
		return &models.JobResult{Louvain: &report}, nil

	case models.JobPaths:
		s.updateJobStatus(jobID, 10, "Sampling shortest paths")
		n := 0
		if p.SampleSize != nil {
			n = *p.SampleSize
		}
		sample, err := s.graphs.SamplePaths(ctx, n, p.RandomSeed)
		if err != nil {
			return nil, err
		}
		return &models.JobResult{Paths: &sample}, nil

	case models.JobDegrees:
		s.updateJobStatus(jobID, 10, "Sampling degrees")
		n, k := 0, 0
		if p.SampleSize != nil {
			n = *p.SampleSize
		}
		if p.TopK != nil {
			k = *p.TopK
		}
		summary := models.DegreeSummary{
			Sample: s.graphs.DegreeSample(n, p.RandomSeed),
			Top:    s.graphs.TopDegrees(k),
		}
		return &models.JobResult{Degrees: &summary}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownJobKind, kind)
}

// startJob moves a queued job to running. It reports false if the job was
// cancelled while waiting for a slot.
func (s *JobService) startJob(jobID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != models.JobStatusQueued {
		return false
	}
	now := time.Now()
	job.Status = models.JobStatusRunning
	job.Progress.Message = "Starting..."
	job.StartedAt = &now
	job.UpdatedAt = now
	return true
}

// updateJobStatus updates the progress of a running job
func (s *JobService) updateJobStatus(jobID string, percentage int, message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != models.JobStatusRunning {
		return
	}

	job.Progress.Percentage = percentage
	job.Progress.Message = message
	job.UpdatedAt = time.Now()

	log.Debug().
		Str("job_id", jobID).
		Int("percentage", percentage).
		Str("message", message).
		Msg("Job status updated")
}

// finishLocked moves job to a final status. The caller holds the lock.
func (s *JobService) finishLocked(job *models.Job, status models.JobStatus, message string) {
	now := time.Now()
	job.Status = status
	job.Progress.Message = message
	job.CompletedAt = &now
	job.UpdatedAt = now
	if s.metrics != nil {
		s.metrics.RecordJob(string(job.Kind), string(status))
	}
}

// completeJob marks a job as completed with results
func (s *JobService) completeJob(jobID string, result *models.JobResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status.Final() {
		return
	}

	job.Progress.Percentage = 100
	job.Result = result
	s.finishLocked(job, models.JobStatusCompleted, "Complete")
	s.cancels[jobID]()

	log.Info().
		Str("job_id", jobID).
		Str("kind", string(job.Kind)).
		Int64("processing_time_ms", result.ProcessingTimeMS).
		Msg("Job completed successfully")
}

// failJob marks a job as failed, unless it was already cancelled
func (s *JobService) failJob(jobID string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status.Final() {
		return
	}

	job.Error = err.Error()
	s.finishLocked(job, models.JobStatusFailed, "Failed")
	s.cancels[jobID]()

	log.Error().
		Str("job_id", jobID).
		Err(err).
		Msg("Job failed")
}

// cleanupLoop periodically cleans up old jobs
func (s *JobService) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stop:
			return
		}
	}
}

// cleanup removes finished jobs last updated before now minus the TTL
func (s *JobService) cleanup(now time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := now.Add(-s.jobTTL)
	cleaned := 0

	for jobID, job := range s.jobs {
		if job.Status.Final() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, jobID)
			delete(s.cancels, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		log.Info().
			Int("cleaned_jobs", cleaned).
			Msg("Job cleanup completed")
	}
	return cleaned
}

// jobProgress turns Louvain level reports into job progress.
type jobProgress struct {
	service   *JobService
	jobID     string
	maxLevels int
}

var _ louvain.Observer = (*jobProgress)(nil)

func (p *jobProgress) ObserveLevel(level, moves int, modularity float64) {
	pct := min(99, (level+1)*100/max(p.maxLevels, 1))
	p.service.updateJobStatus(p.jobID, pct,
		fmt.Sprintf("Level %d: %d moves, modularity %.4f", level, moves, modularity))
}

func (p *jobProgress) ObserveRun(*louvain.Result, time.Duration) {}
