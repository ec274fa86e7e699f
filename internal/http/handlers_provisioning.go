// Package httpx provides the HTTP API for the directory-wizard provisioning system.
package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/miked5167/directory-wizard/internal/domain/model"
	"github.com/miked5167/directory-wizard/internal/service"
)

// ProvisionHandlers provides HTTP handlers for provisioning operations.
type ProvisionHandlers struct {
	Provisioner *service.ProvisionerService
	Status      *service.StatusService
}

type provisionRequest struct {
	Type model.JobType `json:"type"`
}

// Provision handles POST /api/tenants/{id}/provision. The body is optional;
// an empty body launches a CREATE job. Returns 202 with the queued job.
func (h *ProvisionHandlers) Provision(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if tenantID == "" {
		WriteError(w, ErrorParams{
			Code: http.StatusBadRequest, ErrCode: "invalid_path",
			Err: errors.New("tenant id is required"),
		})
		return
	}

	req := provisionRequest{Type: model.JobTypeCreate}
	if r.Body != nil && r.ContentLength != 0 {
		if !DecodeJSON(w, r, &req) {
			return
		}
	}

	job, err := h.Provisioner.CreateJob(r.Context(), tenantID, req.Type)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// GetStatus handles GET /api/jobs/{id}/status.
func (h *ProvisionHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.Status.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// Cancel handles POST /api/jobs/{id}/cancel. Cancelling a job that is
// already terminal (or unknown) reports cancelled=false rather than an error.
func (h *ProvisionHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{
			Code: http.StatusBadRequest, ErrCode: "invalid_path",
			Err: errors.New("job id is required"),
		})
		return
	}

	cancelled, err := h.Provisioner.CancelJob(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cancelResponse{Cancelled: cancelled})
}

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}
