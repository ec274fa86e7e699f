package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/data"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
)

// StatusServiceOptions groups dependencies for StatusService.
type StatusServiceOptions struct {
	Jobs   core.ProvisioningJobRepository // Required
	Logger *slog.Logger                   // Optional
}

// StatusService projects job records into the polling view.
type StatusService struct {
	jobs   core.ProvisioningJobRepository
	logger *slog.Logger
}

// NewStatusService constructs a new StatusService.
func NewStatusService(opts StatusServiceOptions) (*StatusService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job repository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusService{
		jobs:   opts.Jobs,
		logger: logger.With("component", "status"),
	}, nil
}

// GetStatus returns the status projection for a job. Result is populated
// only for COMPLETED jobs, ErrorMessage only for FAILED ones; an unknown
// id yields a typed not-found error.
func (s *StatusService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusView, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("job_id", "job id is required")
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("job %s not found", jobID))
		}
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}

	view := &model.JobStatusView{
		JobID:          job.ID,
		TenantID:       job.TenantID,
		Type:           job.Type,
		Status:         job.Status,
		Progress:       job.Progress,
		CurrentStep:    job.CurrentStep,
		StepsTotal:     job.StepsTotal,
		StepsCompleted: job.StepsCompleted,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}

	switch job.Status {
	case model.JobStatusCompleted:
		view.Result = s.decodeResult(ctx, job)
	case model.JobStatusFailed:
		view.ErrorMessage = job.ErrorMessage
	}

	return view, nil
}

// decodeResult pulls the finalize step's result payload out of the
// external refs. A malformed payload is logged and surfaced as nil rather
// than failing the status read.
func (s *StatusService) decodeResult(ctx context.Context, job *model.ProvisioningJob) *model.JobResult {
	raw, ok := job.ExternalRefs[model.RefResult]
	if !ok {
		return nil
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "unencodable job result ref", "job_id", job.ID, "error", err)
		return nil
	}

	var result model.JobResult
	if err := json.Unmarshal(buf, &result); err != nil {
		s.logger.WarnContext(ctx, "malformed job result ref", "job_id", job.ID, "error", err)
		return nil
	}
	return &result
}
