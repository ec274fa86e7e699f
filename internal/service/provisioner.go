// Package service provides the business logic layer for the directory-wizard provisioning system.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/data"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	"github.com/miked5167/directory-wizard/internal/domain/saga"
	"github.com/miked5167/directory-wizard/internal/observability/metrics"
	"github.com/miked5167/directory-wizard/internal/observability/statsd"
)

// Event subjects published on the provisioning bus.
const (
	SubjectJobQueued    = "provisioning.jobs.queued"
	SubjectJobRunning   = "provisioning.jobs.running"
	SubjectJobStep      = "provisioning.jobs.step_completed"
	SubjectJobCompleted = "provisioning.jobs.completed"
	SubjectJobFailed    = "provisioning.jobs.failed"
	SubjectJobCancelled = "provisioning.jobs.cancelled"
)

// JobEvent is the payload published for job lifecycle transitions.
type JobEvent struct {
	JobID    string        `json:"job_id"`
	TenantID string        `json:"tenant_id"`
	Type     model.JobType `json:"type"`
	Step     string        `json:"step,omitempty"`
	Progress int           `json:"progress,omitempty"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
}

// ProvisionerConfig holds tunables for saga execution.
type ProvisionerConfig struct {
	// StepTimeout bounds each step invocation; a timeout is treated as a
	// step failure and enters the normal compensation path. Zero disables
	// the per-step deadline.
	StepTimeout time.Duration
	// MaxConcurrent caps the number of sagas executing at once.
	MaxConcurrent int64
}

// DefaultProvisionerConfig returns a ProvisionerConfig with sensible defaults.
func DefaultProvisionerConfig() ProvisionerConfig {
	return ProvisionerConfig{
		StepTimeout:   2 * time.Minute,
		MaxConcurrent: 8,
	}
}

// ProvisionerServiceOptions groups dependencies for ProvisionerService.
type ProvisionerServiceOptions struct {
	Jobs     core.ProvisioningJobRepository // Required: job record store
	Registry *saga.Registry                 // Required: ordered step registry
	Deps     ProvisionerServiceDeps         // Optional: ambient dependencies
}

// ProvisionerServiceDeps groups the optional ambient dependencies.
type ProvisionerServiceDeps struct {
	Config       *ProvisionerConfig
	Logger       *slog.Logger
	Metrics      statsd.Sink
	Bus          core.BusPublisher
	TimeProvider data.TimeProvider
}

// ProvisionerService is the provisioning saga engine.
//
// It launches jobs (create record, detach execution, return immediately),
// executes the registered steps in order with per-step progress persistence,
// compensates completed steps in reverse order when a step fails, and
// services record-based cancellation. Nothing below the launch boundary
// throws outward; failures are communicated through the job record.
type ProvisionerService struct {
	jobs        core.ProvisioningJobRepository
	registry    *saga.Registry
	logger      *slog.Logger
	metrics     statsd.Sink
	bus         core.BusPublisher
	timeNow     data.TimeProvider
	stepTimeout time.Duration
	sem         *semaphore.Weighted
	inflight    sync.WaitGroup
}

// NewProvisionerService constructs a new ProvisionerService.
func NewProvisionerService(opts ProvisionerServiceOptions) (*ProvisionerService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job repository is required")
	}
	if opts.Registry == nil || opts.Registry.Len() == 0 {
		return nil, errors.New("step registry is required")
	}

	cfg := DefaultProvisionerConfig()
	if opts.Deps.Config != nil {
		cfg = *opts.Deps.Config
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultProvisionerConfig().MaxConcurrent
	}

	logger := opts.Deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tp := opts.Deps.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	return &ProvisionerService{
		jobs:        opts.Jobs,
		registry:    opts.Registry,
		logger:      logger.With("component", "provisioner"),
		metrics:     opts.Deps.Metrics,
		bus:         opts.Deps.Bus,
		timeNow:     tp,
		stepTimeout: cfg.StepTimeout,
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
	}, nil
}

// CreateJob inserts a QUEUED job record and hands it to the executor on a
// detached goroutine. The caller gets the job back immediately and observes
// everything else by polling the status projection.
//
// At most one QUEUED/RUNNING job may exist per tenant; a second launch
// returns a Conflict error.
func (s *ProvisionerService) CreateJob(
	ctx context.Context,
	tenantID string,
	jobType model.JobType,
) (*model.ProvisioningJob, error) {
	req := &model.CreateJobRequest{TenantID: tenantID, Type: jobType}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	job, err := s.jobs.Create(ctx, req, s.registry.Len())
	if err != nil {
		return nil, fmt.Errorf("create provisioning job: %w", err)
	}

	s.publish(ctx, SubjectJobQueued, JobEvent{
		JobID:    job.ID,
		TenantID: job.TenantID,
		Type:     job.Type,
		At:       s.timeNow.Now(),
	})

	s.inflight.Add(1)
	// Execution is decoupled from the request: the saga runs on a background
	// context so a caller disconnect cannot abort it mid-sequence.
	go s.runSaga(context.Background(), job)

	return job, nil
}

// CancelJob marks a QUEUED or RUNNING job CANCELLED. Jobs already terminal
// are left untouched and report false. Cancellation is cooperative: a
// running executor observes the record between steps and stops cleanly.
func (s *ProvisionerService) CancelJob(ctx context.Context, jobID string) (bool, error) {
	cancelled, err := s.jobs.MarkCancelled(ctx, jobID, s.timeNow.Now())
	if err != nil {
		return false, fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	if cancelled {
		s.logger.InfoContext(ctx, "job cancelled", "job_id", jobID)
		s.publish(ctx, SubjectJobCancelled, JobEvent{JobID: jobID, At: s.timeNow.Now()})
	}
	return cancelled, nil
}

// Wait blocks until all in-flight sagas have finished. Used for graceful
// shutdown and deterministic tests.
func (s *ProvisionerService) Wait() {
	s.inflight.Wait()
}

// runSaga is the detached execution boundary. Any error or panic escaping
// the executor is converted into a FAILED terminal write here; execution
// failures are never silently dropped.
func (s *ProvisionerService) runSaga(ctx context.Context, job *model.ProvisioningJob) {
	defer s.inflight.Done()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.markFailed(ctx, job, fmt.Sprintf("acquire execution slot: %v", err), "")
		return
	}
	defer s.sem.Release(1)

	start := s.timeNow.Now()

	// Registered before the recover handler so step-set scratch state is
	// released only after the run has fully settled, compensation included.
	defer s.registry.Settled(job.ID, job.TenantID)

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "saga panicked", "job_id", job.ID, "panic", r)
			s.markFailed(ctx, job, fmt.Sprintf("internal error: %v", r), "")
			metrics.EmitSaga(s.metrics, metrics.SagaMetric{
				JobType:  string(job.Type),
				Result:   metrics.ResultError,
				Duration: time.Since(start),
			})
		}
	}()

	if err := s.execute(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "saga aborted outside step execution",
			"job_id", job.ID, "error", err)
		s.markFailed(ctx, job, err.Error(), "")
		metrics.EmitSaga(s.metrics, metrics.SagaMetric{
			JobType:  string(job.Type),
			Result:   metrics.ResultError,
			Duration: time.Since(start),
		})
	}
}

// execute runs the saga state machine: QUEUED -> RUNNING -> terminal.
// Step failures are handled internally (compensation + FAILED write); the
// returned error covers only unexpected failures outside step execution.
func (s *ProvisionerService) execute(ctx context.Context, job *model.ProvisioningJob) error {
	start := s.timeNow.Now()

	started, err := s.jobs.MarkRunning(ctx, job.ID, start)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	if !started {
		// Not QUEUED anymore: cancelled before pickup, already terminal, or
		// the record vanished. A vanished record is benign; the saga
		// proceeds and every further write becomes a no-op.
		proceed := s.shouldProceedUnstarted(ctx, job.ID)
		if !proceed {
			return nil
		}
		s.logger.WarnContext(ctx, "job record missing at start; continuing with no-op persistence",
			"job_id", job.ID)
	}

	s.publish(ctx, SubjectJobRunning, JobEvent{
		JobID:    job.ID,
		TenantID: job.TenantID,
		Type:     job.Type,
		At:       start,
	})

	steps := s.registry.Steps()
	completed := make([]saga.Step, 0, len(steps))

	for i, step := range steps {
		if i > 0 && s.isCancelled(ctx, job.ID) {
			s.logger.InfoContext(ctx, "saga stopped by cancellation",
				"job_id", job.ID, "next_step", step.Name)
			metrics.EmitSaga(s.metrics, metrics.SagaMetric{
				JobType:  string(job.Type),
				Result:   metrics.ResultCancelled,
				Duration: time.Since(start),
			})
			return nil
		}

		result, stepErr := s.executeStep(ctx, step, job)
		if stepErr != nil {
			s.logger.ErrorContext(ctx, "step failed",
				"job_id", job.ID, "step", step.Name, "error", stepErr)
			s.compensate(ctx, completed, job)
			s.markFailed(ctx, job, stepErr.Error(), step.Name)
			metrics.EmitSaga(s.metrics, metrics.SagaMetric{
				JobType:  string(job.Type),
				Result:   metrics.ResultError,
				Duration: time.Since(start),
			})
			return nil
		}

		recorded, recordErr := s.jobs.RecordStepCompleted(ctx, core.RecordStepCompletedParams{
			JobID:        job.ID,
			StepName:     step.Name,
			Refs:         result.Refs,
			Compensation: result.Compensation,
		})
		if recordErr != nil {
			return fmt.Errorf("record step %s: %w", step.Name, recordErr)
		}
		if !recorded {
			if i == len(steps)-1 {
				// The final step writes the terminal state itself, so this
				// per-step write finding no RUNNING row is the normal outcome.
				s.logger.DebugContext(ctx, "record already terminal; progress write skipped",
					"job_id", job.ID, "step", step.Name)
			} else {
				s.logger.WarnContext(ctx, "job record gone or no longer running; progress write skipped",
					"job_id", job.ID, "step", step.Name)
			}
		}

		completed = append(completed, step)

		s.publish(ctx, SubjectJobStep, JobEvent{
			JobID:    job.ID,
			TenantID: job.TenantID,
			Type:     job.Type,
			Step:     step.Name,
			Progress: model.ComputeProgress(len(completed), len(steps)),
			At:       s.timeNow.Now(),
		})
	}

	// The finalize step wrote the COMPLETED terminal state itself.
	s.publish(ctx, SubjectJobCompleted, JobEvent{
		JobID:    job.ID,
		TenantID: job.TenantID,
		Type:     job.Type,
		Progress: 100,
		At:       s.timeNow.Now(),
	})
	metrics.EmitSaga(s.metrics, metrics.SagaMetric{
		JobType:  string(job.Type),
		Result:   metrics.ResultSuccess,
		Duration: time.Since(start),
	})
	return nil
}

// executeStep invokes one step with the configured deadline, converting
// panics into step failures so a misbehaving step enters the normal
// compensation path instead of killing the saga goroutine.
func (s *ProvisionerService) executeStep(
	ctx context.Context,
	step saga.Step,
	job *model.ProvisioningJob,
) (result saga.StepResult, err error) {
	stepCtx := ctx
	if s.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, s.stepTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v", step.Name, r)
		}
	}()

	start := s.timeNow.Now()
	result, err = step.Execute(stepCtx, job.ID, job.TenantID)
	elapsed := time.Since(start)

	outcome := metrics.ResultSuccess
	if err != nil {
		outcome = metrics.ResultError
	}
	metrics.EmitStep(s.metrics, metrics.StepMetric{
		JobType:  string(job.Type),
		Step:     step.Name,
		Result:   outcome,
		Duration: elapsed,
		Err:      err,
	})

	return result, err
}

// compensate undoes the already-completed steps in reverse order.
// Compensation is best-effort: one failing (or panicking) compensation is
// logged and swallowed, the remaining ones still run, and the job outcome
// stays FAILED either way.
func (s *ProvisionerService) compensate(ctx context.Context, completed []saga.Step, job *model.ProvisioningJob) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}

		s.logger.InfoContext(ctx, "compensating step", "job_id", job.ID, "step", step.Name)
		if err := s.compensateStep(ctx, step, job); err != nil {
			s.logger.ErrorContext(ctx, "compensation failed",
				"job_id", job.ID, "step", step.Name, "error", err)
			metrics.EmitStep(s.metrics, metrics.StepMetric{
				JobType: string(job.Type),
				Step:    step.Name,
				Result:  metrics.ResultCompensation,
				Err:     err,
			})
		}
	}
}

func (s *ProvisionerService) compensateStep(
	ctx context.Context,
	step saga.Step,
	job *model.ProvisioningJob,
) (err error) {
	compCtx := ctx
	if s.stepTimeout > 0 {
		var cancel context.CancelFunc
		compCtx, cancel = context.WithTimeout(ctx, s.stepTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensation panicked: %v", r)
		}
	}()

	return step.Compensate(compCtx, job.ID, job.TenantID)
}

// markFailed writes the FAILED terminal state, tolerating a vanished record.
func (s *ProvisionerService) markFailed(ctx context.Context, job *model.ProvisioningJob, reason, stepName string) {
	failed, err := s.jobs.MarkFailed(ctx, core.MarkFailedParams{
		JobID:       job.ID,
		ErrorMsg:    reason,
		CurrentStep: stepName,
		CompletedAt: s.timeNow.Now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "terminal failure write failed",
			"job_id", job.ID, "error", err)
		return
	}
	if !failed {
		s.logger.WarnContext(ctx, "job record gone or already terminal; failure write skipped",
			"job_id", job.ID)
		return
	}

	s.publish(ctx, SubjectJobFailed, JobEvent{
		JobID:    job.ID,
		TenantID: job.TenantID,
		Type:     job.Type,
		Step:     stepName,
		Error:    reason,
		At:       s.timeNow.Now(),
	})
}

// shouldProceedUnstarted decides what to do when the RUNNING transition
// found no QUEUED row: proceed only when the record is gone entirely.
func (s *ProvisionerService) shouldProceedUnstarted(ctx context.Context, jobID string) bool {
	current, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return true
		}
		s.logger.ErrorContext(ctx, "reload job after missed start", "job_id", jobID, "error", err)
		return false
	}
	s.logger.InfoContext(ctx, "job not startable", "job_id", jobID, "status", current.Status)
	return false
}

// isCancelled reports whether the record was cancelled out-of-band.
// A vanished record does not stop the saga.
func (s *ProvisionerService) isCancelled(ctx context.Context, jobID string) bool {
	current, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return false
	}
	return current.Status == model.JobStatusCancelled
}

func (s *ProvisionerService) publish(ctx context.Context, subject string, evt JobEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, evt); err != nil {
		s.logger.DebugContext(ctx, "event publish failed", "subject", subject, "error", err)
	}
}
