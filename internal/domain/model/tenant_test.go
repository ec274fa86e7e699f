package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantValidateForProvisioning(t *testing.T) {
	valid := func() *Tenant {
		return &Tenant{
			ID:      "tenant-1",
			Slug:    "acme-plumbing",
			Name:    "Acme Plumbing",
			Listing: json.RawMessage(`{"categories":[]}`),
			Status:  TenantStatusDraft,
		}
	}

	assert.NoError(t, valid().ValidateForProvisioning())

	var nilTenant *Tenant
	assert.ErrorContains(t, nilTenant.ValidateForProvisioning(), "tenant is required")

	tests := []struct {
		name    string
		mutate  func(*Tenant)
		wantErr string
	}{
		{"empty slug", func(tn *Tenant) { tn.Slug = "" }, "slug is required"},
		{"uppercase slug", func(tn *Tenant) { tn.Slug = "Acme" }, "lowercase"},
		{"slug with spaces", func(tn *Tenant) { tn.Slug = "acme plumbing" }, "lowercase"},
		{"leading hyphen", func(tn *Tenant) { tn.Slug = "-acme" }, "lowercase"},
		{"empty name", func(tn *Tenant) { tn.Name = "  " }, "name is required"},
		{"nil listing", func(tn *Tenant) { tn.Listing = nil }, "listing data is required"},
		{"null listing", func(tn *Tenant) { tn.Listing = json.RawMessage(`null`) }, "listing data is required"},
		{"invalid json", func(tn *Tenant) { tn.Listing = json.RawMessage(`{oops`) }, "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tn := valid()
			tt.mutate(tn)
			assert.ErrorContains(t, tn.ValidateForProvisioning(), tt.wantErr)
		})
	}
}

func TestTenantStatusValid(t *testing.T) {
	assert.True(t, TenantStatusDraft.Valid())
	assert.True(t, TenantStatusPublished.Valid())
	assert.False(t, TenantStatus("LIVE").Valid())
}
