package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/data"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
)

// stubJobRepo is an in-memory ProvisioningJobRepository mirroring the SQL
// guard semantics: status-gated transitions, additive ref merges, monotonic
// progress, and (false, nil) for rows that no longer qualify.
type stubJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.ProvisioningJob
	seq  int

	createErr error
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{jobs: make(map[string]*model.ProvisioningJob)}
}

func (r *stubJobRepo) Create(_ context.Context, req *model.CreateJobRequest, stepsTotal int) (*model.ProvisioningJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, j := range r.jobs {
		if j.TenantID == req.TenantID && !j.Status.Terminal() {
			return nil, apperrors.Conflictf("tenant %s already has an active provisioning job", req.TenantID)
		}
	}

	r.seq++
	now := time.Now().UTC()
	job := &model.ProvisioningJob{
		ID:               fmt.Sprintf("job-%d", r.seq),
		TenantID:         req.TenantID,
		Type:             req.Type,
		Status:           model.JobStatusQueued,
		StepsTotal:       stepsTotal,
		ExternalRefs:     model.RefMap{},
		CompensationData: model.RefMap{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.jobs[job.ID] = job
	return cloneJob(job), nil
}

func (r *stubJobRepo) GetByID(_ context.Context, id string) (*model.ProvisioningJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (r *stubJobRepo) MarkRunning(_ context.Context, id string, startedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != model.JobStatusQueued {
		return false, nil
	}
	job.Status = model.JobStatusRunning
	if job.StartedAt == nil {
		t := startedAt
		job.StartedAt = &t
	}
	return true, nil
}

func (r *stubJobRepo) RecordStepCompleted(_ context.Context, params core.RecordStepCompletedParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[params.JobID]
	if !ok || job.Status != model.JobStatusRunning {
		return false, nil
	}
	job.StepsCompleted++
	if p := model.ComputeProgress(job.StepsCompleted, job.StepsTotal); p > job.Progress {
		job.Progress = p
	}
	job.CurrentStep = params.StepName
	job.ExternalRefs = job.ExternalRefs.Merge(params.Refs)
	job.CompensationData = job.CompensationData.Merge(params.Compensation)
	return true, nil
}

func (r *stubJobRepo) MergeExternalRefs(_ context.Context, id string, refs model.RefMap) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, nil
	}
	job.ExternalRefs = job.ExternalRefs.Merge(refs)
	return true, nil
}

func (r *stubJobRepo) MarkCompleted(_ context.Context, params core.MarkCompletedParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[params.JobID]
	if !ok || job.Status != model.JobStatusRunning {
		return false, nil
	}
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.StepsCompleted = job.StepsTotal
	if params.CurrentStep != "" {
		job.CurrentStep = params.CurrentStep
	}
	job.ExternalRefs = job.ExternalRefs.Merge(params.Refs)
	t := params.CompletedAt
	job.CompletedAt = &t
	return true, nil
}

func (r *stubJobRepo) MarkFailed(_ context.Context, params core.MarkFailedParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[params.JobID]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = model.JobStatusFailed
	msg := params.ErrorMsg
	job.ErrorMessage = &msg
	if params.CurrentStep != "" {
		job.CurrentStep = params.CurrentStep
	}
	if job.CompletedAt == nil {
		t := params.CompletedAt
		job.CompletedAt = &t
	}
	return true, nil
}

func (r *stubJobRepo) MarkCancelled(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = model.JobStatusCancelled
	if job.CompletedAt == nil {
		t := at
		job.CompletedAt = &t
	}
	return true, nil
}

func (r *stubJobRepo) ActiveJobExistsForTenant(_ context.Context, tenantID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.TenantID == tenantID && !j.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubJobRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

func (r *stubJobRepo) put(job *model.ProvisioningJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(job)
}

func cloneJob(j *model.ProvisioningJob) *model.ProvisioningJob {
	out := *j
	out.ExternalRefs = model.RefMap{}.Merge(j.ExternalRefs)
	out.CompensationData = model.RefMap{}.Merge(j.CompensationData)
	return &out
}

// stubTenantRepo is an in-memory TenantRepository. With publishGone set,
// MarkPublished reports (false, nil) as if the tenant row vanished.
type stubTenantRepo struct {
	mu          sync.Mutex
	tenants     map[string]*model.Tenant
	publishGone bool
}

func newStubTenantRepo(tenants ...*model.Tenant) *stubTenantRepo {
	r := &stubTenantRepo{tenants: make(map[string]*model.Tenant)}
	for _, t := range tenants {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *stubTenantRepo) GetByID(_ context.Context, id string) (*model.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, data.ErrTenantNotFound
	}
	out := *t
	return &out, nil
}

func (r *stubTenantRepo) MarkPublished(_ context.Context, params model.MarkPublishedParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[params.TenantID]
	if !ok || r.publishGone {
		return false, nil
	}
	t.Status = model.TenantStatusPublished
	site, admin := params.SiteURL, params.AdminURL
	t.SiteURL = &site
	t.AdminURL = &admin
	now := time.Now().UTC()
	t.PublishedAt = &now
	return true, nil
}

// stepJournal records step-level calls in order, for ordering assertions.
type stepJournal struct {
	mu      sync.Mutex
	entries []string
}

func (j *stepJournal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *stepJournal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

// capturedEvent is one bus publish observed by captureBus.
type capturedEvent struct {
	Subject string
	Event   JobEvent
}

// captureBus is a BusPublisher that records everything published.
type captureBus struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (b *captureBus) Publish(_ context.Context, subject string, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	evt, _ := v.(JobEvent)
	b.events = append(b.events, capturedEvent{Subject: subject, Event: evt})
	return nil
}

func (b *captureBus) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Subject)
	}
	return out
}
