// Package core provides the business logic contracts for the directory-wizard provisioning system.
package core

import (
	"context"
	"time"

	"github.com/miked5167/directory-wizard/internal/domain/model"
)

// This file contains repository and collaborator interface definitions
// (ports in hexagonal architecture). Service implementations depend on
// these interfaces, not concrete implementations.
//
// Mutations against the job record return (bool, error):
//   - (true, nil): row found and updated
//   - (false, nil): row no longer exists; callers in the executor treat
//     this as a logged no-op because the record may be deleted out-of-band
//     while the saga is mid-flight
//   - (false, err): update failed

// RecordStepCompletedParams groups the fields persisted after a successful step.
type RecordStepCompletedParams struct {
	JobID        string
	StepName     string
	Refs         model.RefMap
	Compensation model.RefMap
}

// MarkCompletedParams groups the terminal-success write issued by the
// finalize step. CurrentStep, when set, records the step that performed it.
type MarkCompletedParams struct {
	JobID       string
	Refs        model.RefMap
	CurrentStep string
	CompletedAt time.Time
}

// MarkFailedParams groups the terminal-failure write. CurrentStep, when
// set, records the step whose failure triggered the transition.
type MarkFailedParams struct {
	JobID       string
	ErrorMsg    string
	CurrentStep string
	CompletedAt time.Time
}

// ProvisioningJobRepository defines the interface for job record operations.
type ProvisioningJobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest, stepsTotal int) (*model.ProvisioningJob, error)
	GetByID(ctx context.Context, id string) (*model.ProvisioningJob, error)

	// MarkRunning transitions QUEUED -> RUNNING and stamps started_at once.
	MarkRunning(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// RecordStepCompleted atomically increments steps_completed, recomputes
	// progress, sets current_step and additively merges refs. Progress and
	// steps_completed never regress.
	RecordStepCompleted(ctx context.Context, params RecordStepCompletedParams) (bool, error)

	// MergeExternalRefs additively merges refs without touching counters.
	MergeExternalRefs(ctx context.Context, id string, refs model.RefMap) (bool, error)

	// MarkCompleted writes the terminal COMPLETED state with progress=100.
	MarkCompleted(ctx context.Context, params MarkCompletedParams) (bool, error)

	// MarkFailed writes the terminal FAILED state with the error message.
	MarkFailed(ctx context.Context, params MarkFailedParams) (bool, error)

	// MarkCancelled transitions QUEUED/RUNNING -> CANCELLED; returns false
	// without mutation for jobs already terminal.
	MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error)

	// ActiveJobExistsForTenant reports whether the tenant has a QUEUED or
	// RUNNING job. Used to enforce single-active-job-per-tenant at launch.
	ActiveJobExistsForTenant(ctx context.Context, tenantID string) (bool, error)

	// Delete removes a job record. The executor never calls this; it exists
	// for cleanup tooling and test harnesses.
	Delete(ctx context.Context, id string) error
}

// TenantRepository defines the interface for tenant data operations.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*model.Tenant, error)

	// MarkPublished flips the tenant to PUBLISHED and records its URLs.
	// This is the single external write the saga makes outside its own record.
	MarkPublished(ctx context.Context, params model.MarkPublishedParams) (bool, error)
}

// ArtifactFile is one file of a generated site artifact.
type ArtifactFile struct {
	Path        string
	Body        []byte
	ContentType string
}

// SiteArtifact is the output of the site generation step.
type SiteArtifact struct {
	BuildID string
	Files   []ArtifactFile
}

// SiteGenerator renders a tenant's listing into a static site artifact.
type SiteGenerator interface {
	Generate(ctx context.Context, tenant *model.Tenant) (*SiteArtifact, error)
}

// DeployParams groups the inputs for a CDN deployment.
type DeployParams struct {
	TenantSlug string
	Artifact   *SiteArtifact
}

// DeployResult describes a finished CDN deployment.
type DeployResult struct {
	URL  string
	Keys []string
}

// ArtifactDeployer pushes a site artifact to the content-delivery origin.
type ArtifactDeployer interface {
	Deploy(ctx context.Context, params DeployParams) (*DeployResult, error)

	// DeleteBuild removes a previously deployed build. Best-effort undo
	// used by the deploy step's compensation.
	DeleteBuild(ctx context.Context, tenantSlug, buildID string) error
}

// SearchIndexer builds the search index for a tenant's listing.
type SearchIndexer interface {
	IndexTenant(ctx context.Context, tenant *model.Tenant) (string, error)
}

// ConfigureDomainParams groups the inputs for custom domain configuration.
type ConfigureDomainParams struct {
	TenantSlug    string
	CustomDomain  string
	DeploymentURL string
}

// DomainConfigurer points a tenant's domain at its deployment.
type DomainConfigurer interface {
	Configure(ctx context.Context, params ConfigureDomainParams) (string, error)
}

// BusPublisher publishes provisioning lifecycle events. Implementations are
// best-effort; publish failures never affect saga outcome.
type BusPublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}
