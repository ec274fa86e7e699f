package testutil

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/miked5167/directory-wizard/internal/domain/model"
)

// TenantBuilder provides a fluent interface for building Tenant rows in tests.
type TenantBuilder struct {
	tenant *model.Tenant
}

// NewTenant creates a TenantBuilder with sensible defaults.
func NewTenant() *TenantBuilder {
	slug := "acme-" + uuid.NewString()[:8]
	return &TenantBuilder{
		tenant: &model.Tenant{
			Slug:    slug,
			Name:    "Acme Directory",
			Listing: json.RawMessage(`{"title":"Acme Directory","categories":[{"name":"Plumbers","slug":"plumbers","entries":[{"name":"Pipe Pros","phone":"555-0100"}]}]}`),
			Status:  model.TenantStatusDraft,
		},
	}
}

// WithSlug sets the tenant slug.
func (b *TenantBuilder) WithSlug(slug string) *TenantBuilder {
	b.tenant.Slug = slug
	return b
}

// WithName sets the tenant display name.
func (b *TenantBuilder) WithName(name string) *TenantBuilder {
	b.tenant.Name = name
	return b
}

// WithCustomDomain sets a custom domain.
func (b *TenantBuilder) WithCustomDomain(domain string) *TenantBuilder {
	b.tenant.CustomDomain = &domain
	return b
}

// WithListing sets the listing document.
func (b *TenantBuilder) WithListing(listing string) *TenantBuilder {
	b.tenant.Listing = json.RawMessage(listing)
	return b
}

// WithStatus sets the tenant status.
func (b *TenantBuilder) WithStatus(status model.TenantStatus) *TenantBuilder {
	b.tenant.Status = status
	return b
}

// Build returns the constructed tenant.
func (b *TenantBuilder) Build() *model.Tenant {
	return b.tenant
}

// Insert writes the tenant into the database and returns it with its id.
func (b *TenantBuilder) Insert(t TestingTB, db *sql.DB) *model.Tenant {
	t.Helper()

	row := db.QueryRowContext(context.Background(), `
		INSERT INTO tenants (slug, name, custom_domain, listing, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		b.tenant.Slug, b.tenant.Name, b.tenant.CustomDomain, b.tenant.Listing, b.tenant.Status)
	if err := row.Scan(&b.tenant.ID); err != nil {
		t.Fatalf("Failed to insert test tenant: %v", err)
	}
	return b.tenant
}

// JobRequestBuilder provides a fluent interface for building
// CreateJobRequest values in tests.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			TenantID: uuid.NewString(),
			Type:     model.JobTypeCreate,
		},
	}
}

// WithTenantID sets the tenant id.
func (b *JobRequestBuilder) WithTenantID(id string) *JobRequestBuilder {
	b.req.TenantID = id
	return b
}

// WithType sets the job type.
func (b *JobRequestBuilder) WithType(jobType model.JobType) *JobRequestBuilder {
	b.req.Type = jobType
	return b
}

// Build returns the constructed request.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}
