package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/data"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	"github.com/miked5167/directory-wizard/internal/domain/saga"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
	"github.com/miked5167/directory-wizard/internal/service"
)

// memJobRepo is a minimal in-memory job store for handler tests.
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.ProvisioningJob
	seq  int
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: make(map[string]*model.ProvisioningJob)}
}

func (r *memJobRepo) Create(_ context.Context, req *model.CreateJobRequest, stepsTotal int) (*model.ProvisioningJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.TenantID == req.TenantID && !j.Status.Terminal() {
			return nil, apperrors.Conflictf("tenant %s already has an active provisioning job", req.TenantID)
		}
	}
	r.seq++
	job := &model.ProvisioningJob{
		ID:           "job-" + req.TenantID,
		TenantID:     req.TenantID,
		Type:         req.Type,
		Status:       model.JobStatusQueued,
		StepsTotal:   stepsTotal,
		ExternalRefs: model.RefMap{},
	}
	r.jobs[job.ID] = job
	copied := *job
	return &copied, nil
}

func (r *memJobRepo) GetByID(_ context.Context, id string) (*model.ProvisioningJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *memJobRepo) MarkRunning(_ context.Context, id string, startedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != model.JobStatusQueued {
		return false, nil
	}
	job.Status = model.JobStatusRunning
	job.StartedAt = &startedAt
	return true, nil
}

func (r *memJobRepo) RecordStepCompleted(_ context.Context, params core.RecordStepCompletedParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[params.JobID]
	if !ok || job.Status != model.JobStatusRunning {
		return false, nil
	}
	job.StepsCompleted++
	job.Progress = model.ComputeProgress(job.StepsCompleted, job.StepsTotal)
	job.CurrentStep = params.StepName
	return true, nil
}

func (r *memJobRepo) MergeExternalRefs(_ context.Context, id string, refs model.RefMap) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, nil
	}
	job.ExternalRefs = job.ExternalRefs.Merge(refs)
	return true, nil
}

func (r *memJobRepo) MarkCompleted(_ context.Context, params core.MarkCompletedParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[params.JobID]
	if !ok || job.Status != model.JobStatusRunning {
		return false, nil
	}
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	if params.CurrentStep != "" {
		job.CurrentStep = params.CurrentStep
	}
	job.ExternalRefs = job.ExternalRefs.Merge(params.Refs)
	return true, nil
}

func (r *memJobRepo) MarkFailed(_ context.Context, params core.MarkFailedParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[params.JobID]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = model.JobStatusFailed
	msg := params.ErrorMsg
	job.ErrorMessage = &msg
	return true, nil
}

func (r *memJobRepo) MarkCancelled(_ context.Context, id string, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = model.JobStatusCancelled
	return true, nil
}

func (r *memJobRepo) ActiveJobExistsForTenant(_ context.Context, tenantID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.TenantID == tenantID && !j.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memJobRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *memJobRepo, *service.ProvisionerService) {
	t.Helper()
	repo := newMemJobRepo()

	gate := make(chan struct{})
	t.Cleanup(func() { close(gate) })
	registry := saga.MustNewRegistry(saga.Step{
		Name: "hold",
		Execute: func(context.Context, string, string) (saga.StepResult, error) {
			<-gate
			return saga.StepResult{}, nil
		},
	})

	provisioner, err := service.NewProvisionerService(service.ProvisionerServiceOptions{
		Jobs:     repo,
		Registry: registry,
	})
	require.NoError(t, err)
	status, err := service.NewStatusService(service.StatusServiceOptions{Jobs: repo})
	require.NoError(t, err)

	router := NewRouter(RouterServices{Provisioner: provisioner, Status: status})
	return router, repo, provisioner
}

func TestProvisionEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenant-1/provision", strings.NewReader(`{"type":"UPDATE"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var job model.ProvisioningJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "tenant-1", job.TenantID)
	assert.Equal(t, model.JobTypeUpdate, job.Type)
	assert.Equal(t, model.JobStatusQueued, job.Status)
}

func TestProvisionEndpoint_DefaultsToCreate(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenant-1/provision", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var job model.ProvisioningJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, model.JobTypeCreate, job.Type)
}

func TestProvisionEndpoint_ActiveJobConflict(t *testing.T) {
	router, _, _ := newTestRouter(t)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/tenants/tenant-1/provision", nil))
	require.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/tenants/tenant-1/provision", nil))
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "conflict")
}

func TestProvisionEndpoint_BadBody(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tenants/tenant-1/provision", strings.NewReader(`{"type":"DESTROY"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/tenants/tenant-1/provision", strings.NewReader(`{"unknown":1}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestStatusEndpoint(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tenants/tenant-1/provision", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job-tenant-1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view model.JobStatusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "job-tenant-1", view.JobID)
	assert.Equal(t, "tenant-1", view.TenantID)

	// Unknown job id maps to 404.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_ = repo
}

func TestCancelEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tenants/tenant-1/provision", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/job-tenant-1/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cancelled":true}`, rec.Body.String())

	// Second cancel is a no-op.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/job-tenant-1/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cancelled":false}`, rec.Body.String())

	// Unknown job cancels to false, not an error.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/nope/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cancelled":false}`, rec.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
