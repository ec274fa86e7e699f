// Package model defines the core data types and structures used throughout the directory-wizard provisioning system.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// JobType represents the kind of provisioning attempt a job records.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a provisioning job.
type JobStatus string

const (
	// JobTypeCreate is the first publish of a tenant's directory.
	JobTypeCreate JobType = "CREATE"
	// JobTypeUpdate republishes after content changes.
	JobTypeUpdate JobType = "UPDATE"
	// JobTypeDelete tears a published directory down.
	JobTypeDelete JobType = "DELETE"
	// JobTypeRepublish re-runs the full pipeline without content changes.
	JobTypeRepublish JobType = "REPUBLISH"

	// JobStatusQueued indicates a job has been created but not yet picked up.
	JobStatusQueued JobStatus = "QUEUED"
	// JobStatusRunning indicates the saga is executing steps.
	JobStatusRunning JobStatus = "RUNNING"
	// JobStatusCompleted indicates every step finished successfully.
	JobStatusCompleted JobStatus = "COMPLETED"
	// JobStatusFailed indicates a step failed and compensation has run.
	JobStatusFailed JobStatus = "FAILED"
	// JobStatusCancelled indicates an external cancel request was honored.
	JobStatusCancelled JobStatus = "CANCELLED"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env and request parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToUpper(strings.TrimSpace(string(text)))
	jt := JobType(v)
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	return t == JobTypeCreate || t == JobTypeUpdate || t == JobTypeDelete || t == JobTypeRepublish
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusRunning || s == JobStatusCompleted ||
		s == JobStatusFailed || s == JobStatusCancelled
}

// Terminal returns true once a job can no longer change status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// RefMap is an open-ended key/value container accumulated by steps.
// Values must be JSON-serializable; merges are additive only.
type RefMap map[string]any

// Merge returns a copy of m with the entries of other layered on top.
// Neither input is mutated; a nil receiver is treated as empty.
func (m RefMap) Merge(other RefMap) RefMap {
	if len(other) == 0 && m != nil {
		return m
	}
	out := make(RefMap, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ProvisioningJob is the durable record of one provisioning attempt.
// The record is independent of the tenant's own lifecycle: the tenant may be
// deleted while the job is mid-run and the job must tolerate that.
type ProvisioningJob struct {
	ID               string     `json:"id"                          db:"id"`
	TenantID         string     `json:"tenant_id"                   db:"tenant_id"`
	Type             JobType    `json:"type"                        db:"type"`
	Status           JobStatus  `json:"status"                      db:"status"`
	Progress         int        `json:"progress"                    db:"progress"`
	CurrentStep      string     `json:"current_step"                db:"current_step"`
	StepsTotal       int        `json:"steps_total"                 db:"steps_total"`
	StepsCompleted   int        `json:"steps_completed"             db:"steps_completed"`
	ExternalRefs     RefMap     `json:"external_refs"               db:"external_refs"`
	CompensationData RefMap     `json:"compensation_data,omitempty" db:"compensation_data"`
	ErrorMessage     *string    `json:"error_message,omitempty"     db:"error_message"`
	StartedAt        *time.Time `json:"started_at,omitempty"        db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"      db:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"                  db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"                  db:"updated_at"`
}

// ComputeProgress derives the percentage for completed out of total steps.
// Standard rounding: 0.5 rounds up.
func ComputeProgress(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	if completed <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// CreateJobRequest represents a request to create a new provisioning job.
type CreateJobRequest struct {
	TenantID string  `json:"tenant_id"`
	Type     JobType `json:"type"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.TenantID) == "" {
		return errors.New("tenant id is required")
	}
	if !r.Type.Valid() {
		return errors.New("invalid job type")
	}
	return nil
}

// JobResult is the caller-facing completion payload exposed on COMPLETED jobs.
// It is derived from the job's external refs by the status projection.
type JobResult struct {
	TenantURL string `json:"tenantUrl"`
	AdminURL  string `json:"adminUrl"`
}

// Well-known external ref keys shared between steps and the status projection.
const (
	// RefTenantSlug is written by the validation step and read back by the
	// deploy compensation when in-memory run state is unavailable.
	RefTenantSlug = "tenant_slug"
	// RefBuildID is written by the site generation step.
	RefBuildID = "build_id"
	// RefArtifactKeys is the list of object keys uploaded by the deploy step.
	RefArtifactKeys = "artifact_keys"
	// RefDeploymentURL is produced by the deploy step and reused by the
	// domain configuration step.
	RefDeploymentURL = "deployment_url"
	// RefIndexName is written by the search indexing step.
	RefIndexName = "index_name"
	// RefDomain is written by the domain configuration step.
	RefDomain = "domain"
	// RefResult holds the final JobResult written by the finalize step.
	RefResult = "result"
)

// JobStatusView is the status projection returned to pollers.
// Terminal-only fields stay nil until the job finishes.
type JobStatusView struct {
	JobID          string     `json:"job_id"`
	TenantID       string     `json:"tenant_id"`
	Type           JobType    `json:"type"`
	Status         JobStatus  `json:"status"`
	Progress       int        `json:"progress"`
	CurrentStep    string     `json:"current_step,omitempty"`
	StepsTotal     int        `json:"steps_total"`
	StepsCompleted int        `json:"steps_completed"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Result         *JobResult `json:"result,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
}
