package model

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
)

// TenantStatus represents the externally-visible publication state of a tenant.
type TenantStatus string

const (
	// TenantStatusDraft indicates the directory has never been published or was unpublished.
	TenantStatusDraft TenantStatus = "DRAFT"
	// TenantStatusPublished indicates the directory is live.
	TenantStatusPublished TenantStatus = "PUBLISHED"
)

// Valid returns true if the TenantStatus is valid.
func (s TenantStatus) Valid() bool {
	return s == TenantStatusDraft || s == TenantStatusPublished
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Tenant is one directory owner. Provisioning jobs reference a tenant by id
// but do not own it; the tenant row may be deleted while a job is running.
type Tenant struct {
	ID           string          `json:"id"                      db:"id"`
	Slug         string          `json:"slug"                    db:"slug"`
	Name         string          `json:"name"                    db:"name"`
	CustomDomain *string         `json:"custom_domain,omitempty" db:"custom_domain"`
	Listing      json.RawMessage `json:"listing"                 db:"listing"`
	Status       TenantStatus    `json:"status"                  db:"status"`
	SiteURL      *string         `json:"site_url,omitempty"      db:"site_url"`
	AdminURL     *string         `json:"admin_url,omitempty"     db:"admin_url"`
	PublishedAt  *time.Time      `json:"published_at,omitempty"  db:"published_at"`
	CreatedAt    time.Time       `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"              db:"updated_at"`
}

// ValidateForProvisioning checks the preconditions the first saga step relies on.
func (t *Tenant) ValidateForProvisioning() error {
	if t == nil {
		return errors.New("tenant is required")
	}
	if strings.TrimSpace(t.Slug) == "" {
		return errors.New("tenant slug is required")
	}
	if !slugPattern.MatchString(t.Slug) {
		return errors.New("tenant slug must be lowercase alphanumeric with hyphens")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("tenant name is required")
	}
	if len(t.Listing) == 0 || string(t.Listing) == "null" {
		return errors.New("tenant listing data is required")
	}
	if !json.Valid(t.Listing) {
		return errors.New("tenant listing data is not valid JSON")
	}
	return nil
}

// MarkPublishedParams groups the fields written when a tenant goes live.
type MarkPublishedParams struct {
	TenantID string
	SiteURL  string
	AdminURL string
}
