// Package data provides PostgreSQL-backed repositories for the directory-wizard provisioning system.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/data/pgxutil"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
)

// Shared sentinel errors for data-layer repositories.
var (
	// ErrJobNotFound is returned when a provisioning job is not found.
	ErrJobNotFound = errors.New("provisioning job not found")
	// ErrTenantNotFound is returned when a tenant is not found.
	ErrTenantNotFound = errors.New("tenant not found")
)

// RepoConfig holds configuration options for data-layer repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// ProvisioningJobRepo provides database operations for provisioning job records.
type ProvisioningJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewProvisioningJobRepo creates a new ProvisioningJobRepo instance with the
// given database connection and configuration.
func NewProvisioningJobRepo(db *sql.DB, cfg RepoConfig) *ProvisioningJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ProvisioningJobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger,
	}
}

const jobColumns = `
  id,
  tenant_id,
  type,
  status,
  progress,
  current_step,
  steps_total,
  steps_completed,
  external_refs,
  compensation_data,
  error_message,
  started_at,
  completed_at,
  created_at,
  updated_at
`

// Create inserts a new QUEUED job record. The transactional pre-check gives
// racing launches a descriptive Conflict; the unique partial index on active
// jobs is the guard that actually stops two concurrent launches from both
// inserting, surfacing through MapDBError as the same Conflict.
func (r *ProvisioningJobRepo) Create(
	ctx context.Context,
	req *model.CreateJobRequest,
	stepsTotal int,
) (*model.ProvisioningJob, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if validateErr := req.Validate(); validateErr != nil {
		return nil, apperrors.Validation(validateErr.Error())
	}
	if stepsTotal <= 0 {
		return nil, apperrors.Validation("steps total must be positive")
	}

	var job *model.ProvisioningJob
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var insertErr error
			job, insertErr = r.insertJobInTx(ctx, tx, req, stepsTotal)
			return insertErr
		},
	})
	if txErr != nil {
		return nil, apperrors.MapDBError(txErr)
	}

	return job, nil
}

func (r *ProvisioningJobRepo) insertJobInTx(
	ctx context.Context,
	tx pgx.Tx,
	req *model.CreateJobRequest,
	stepsTotal int,
) (*model.ProvisioningJob, error) {
	var active bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM provisioning_jobs
			WHERE tenant_id = $1 AND status IN ('QUEUED', 'RUNNING')
			FOR UPDATE
		)`, req.TenantID).Scan(&active); err != nil {
		return nil, fmt.Errorf("check active jobs: %w", err)
	}
	if active {
		return nil, apperrors.Conflictf("tenant %s already has an active provisioning job", req.TenantID)
	}

	rows, err := tx.Query(ctx, `
		INSERT INTO provisioning_jobs (tenant_id, type, status, steps_total)
		VALUES ($1, $2, 'QUEUED', $3)
		RETURNING `+jobColumns,
		req.TenantID, req.Type, stepsTotal)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	job, collectErr := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[jobRow])
	if collectErr != nil {
		return nil, fmt.Errorf("collect job: %w", collectErr)
	}
	return job.toModel()
}

// GetByID retrieves a provisioning job by its id.
func (r *ProvisioningJobRepo) GetByID(ctx context.Context, id string) (*model.ProvisioningJob, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM provisioning_jobs WHERE id = $1`, id)

	job, err := scanJobFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// MarkRunning transitions a QUEUED job to RUNNING and stamps started_at once.
func (r *ProvisioningJobRepo) MarkRunning(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE provisioning_jobs
		SET status = 'RUNNING',
		    started_at = COALESCE(started_at, $2),
		    updated_at = $3
		WHERE id = $1 AND status = 'QUEUED'`,
		id, startedAt, r.timeProvider.Now())
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return rowUpdated(res)
}

// RecordStepCompleted persists the outcome of one successful step: counter
// increment, recomputed progress, current step name and additive ref merges.
// Progress and steps_completed can only move forward; the GREATEST guard makes
// a stale write harmless.
func (r *ProvisioningJobRepo) RecordStepCompleted(
	ctx context.Context,
	params core.RecordStepCompletedParams,
) (bool, error) {
	refs, err := marshalRefs(params.Refs)
	if err != nil {
		return false, fmt.Errorf("marshal external refs: %w", err)
	}
	comp, err := marshalRefs(params.Compensation)
	if err != nil {
		return false, fmt.Errorf("marshal compensation data: %w", err)
	}

	res, execErr := r.DB.ExecContext(ctx, `
		UPDATE provisioning_jobs
		SET steps_completed = steps_completed + 1,
		    progress = GREATEST(progress,
		        LEAST(100, ROUND((steps_completed + 1)::numeric / steps_total * 100)::int)),
		    current_step = $2,
		    external_refs = external_refs || $3::jsonb,
		    compensation_data = compensation_data || $4::jsonb,
		    updated_at = $5
		WHERE id = $1 AND status = 'RUNNING'`,
		params.JobID, params.StepName, refs, comp, r.timeProvider.Now())
	if execErr != nil {
		return false, apperrors.MapDBError(execErr)
	}
	return rowUpdated(res)
}

// MergeExternalRefs additively merges refs into the record without touching counters.
func (r *ProvisioningJobRepo) MergeExternalRefs(ctx context.Context, id string, refs model.RefMap) (bool, error) {
	if len(refs) == 0 {
		return true, nil
	}
	payload, err := marshalRefs(refs)
	if err != nil {
		return false, fmt.Errorf("marshal external refs: %w", err)
	}

	res, execErr := r.DB.ExecContext(ctx, `
		UPDATE provisioning_jobs
		SET external_refs = external_refs || $2::jsonb,
		    updated_at = $3
		WHERE id = $1`,
		id, payload, r.timeProvider.Now())
	if execErr != nil {
		return false, apperrors.MapDBError(execErr)
	}
	return rowUpdated(res)
}

// MarkCompleted writes the terminal COMPLETED state. Only a RUNNING job can
// complete; the write is idempotent against repeats and stale executors.
func (r *ProvisioningJobRepo) MarkCompleted(ctx context.Context, params core.MarkCompletedParams) (bool, error) {
	refs, err := marshalRefs(params.Refs)
	if err != nil {
		return false, fmt.Errorf("marshal external refs: %w", err)
	}

	res, execErr := r.DB.ExecContext(ctx, `
		UPDATE provisioning_jobs
		SET status = 'COMPLETED',
		    progress = 100,
		    steps_completed = steps_total,
		    current_step = COALESCE(NULLIF($3, ''), current_step),
		    external_refs = external_refs || $2::jsonb,
		    completed_at = COALESCE(completed_at, $4),
		    updated_at = $5
		WHERE id = $1 AND status = 'RUNNING'`,
		params.JobID, refs, params.CurrentStep, params.CompletedAt, r.timeProvider.Now())
	if execErr != nil {
		return false, apperrors.MapDBError(execErr)
	}
	return rowUpdated(res)
}

// MarkFailed writes the terminal FAILED state with the triggering reason.
func (r *ProvisioningJobRepo) MarkFailed(ctx context.Context, params core.MarkFailedParams) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE provisioning_jobs
		SET status = 'FAILED',
		    error_message = $2,
		    current_step = COALESCE(NULLIF($3, ''), current_step),
		    completed_at = COALESCE(completed_at, $4),
		    updated_at = $5
		WHERE id = $1 AND status IN ('QUEUED', 'RUNNING')`,
		params.JobID, params.ErrorMsg, params.CurrentStep, params.CompletedAt, r.timeProvider.Now())
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return rowUpdated(res)
}

// MarkCancelled transitions a QUEUED or RUNNING job to CANCELLED.
// Jobs already in a terminal state are left untouched and report false.
func (r *ProvisioningJobRepo) MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE provisioning_jobs
		SET status = 'CANCELLED',
		    completed_at = COALESCE(completed_at, $2),
		    updated_at = $3
		WHERE id = $1 AND status IN ('QUEUED', 'RUNNING')`,
		id, at, r.timeProvider.Now())
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return rowUpdated(res)
}

// ActiveJobExistsForTenant reports whether the tenant currently has a QUEUED or RUNNING job.
func (r *ProvisioningJobRepo) ActiveJobExistsForTenant(ctx context.Context, tenantID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM provisioning_jobs
			WHERE tenant_id = $1 AND status IN ('QUEUED', 'RUNNING')
		)`, tenantID).Scan(&exists)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return exists, nil
}

// Delete removes a job record. Used by cleanup tooling and test harnesses;
// the executor never deletes records.
func (r *ProvisioningJobRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM provisioning_jobs WHERE id = $1`, id)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

func rowUpdated(res sql.Result) (bool, error) {
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return ra > 0, nil
}

func marshalRefs(refs model.RefMap) ([]byte, error) {
	if len(refs) == 0 {
		return []byte(`{}`), nil
	}
	return json.Marshal(refs)
}

// jobRow mirrors the provisioning_jobs columns for scanning.
type jobRow struct {
	ID               string          `db:"id"`
	TenantID         string          `db:"tenant_id"`
	Type             string          `db:"type"`
	Status           string          `db:"status"`
	Progress         int             `db:"progress"`
	CurrentStep      string          `db:"current_step"`
	StepsTotal       int             `db:"steps_total"`
	StepsCompleted   int             `db:"steps_completed"`
	ExternalRefs     json.RawMessage `db:"external_refs"`
	CompensationData json.RawMessage `db:"compensation_data"`
	ErrorMessage     *string         `db:"error_message"`
	StartedAt        *time.Time      `db:"started_at"`
	CompletedAt      *time.Time      `db:"completed_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (row *jobRow) toModel() (*model.ProvisioningJob, error) {
	externalRefs, err := unmarshalRefs(row.ExternalRefs)
	if err != nil {
		return nil, fmt.Errorf("unmarshal external refs: %w", err)
	}
	compensation, err := unmarshalRefs(row.CompensationData)
	if err != nil {
		return nil, fmt.Errorf("unmarshal compensation data: %w", err)
	}

	return &model.ProvisioningJob{
		ID:               row.ID,
		TenantID:         row.TenantID,
		Type:             model.JobType(row.Type),
		Status:           model.JobStatus(row.Status),
		Progress:         row.Progress,
		CurrentStep:      row.CurrentStep,
		StepsTotal:       row.StepsTotal,
		StepsCompleted:   row.StepsCompleted,
		ExternalRefs:     externalRefs,
		CompensationData: compensation,
		ErrorMessage:     row.ErrorMessage,
		StartedAt:        row.StartedAt,
		CompletedAt:      row.CompletedAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

type jobRowScanner interface {
	Scan(dest ...any) error
}

func scanJobFromRow(scanner jobRowScanner) (*model.ProvisioningJob, error) {
	var row jobRow
	var errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime

	if err := scanner.Scan(
		&row.ID,
		&row.TenantID,
		&row.Type,
		&row.Status,
		&row.Progress,
		&row.CurrentStep,
		&row.StepsTotal,
		&row.StepsCompleted,
		&row.ExternalRefs,
		&row.CompensationData,
		&errorMessage,
		&startedAt,
		&completedAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if errorMessage.Valid {
		v := errorMessage.String
		row.ErrorMessage = &v
	}
	if startedAt.Valid {
		v := startedAt.Time
		row.StartedAt = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		row.CompletedAt = &v
	}

	return row.toModel()
}

func unmarshalRefs(raw json.RawMessage) (model.RefMap, error) {
	refs := model.RefMap{}
	if len(raw) == 0 {
		return refs, nil
	}
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}
