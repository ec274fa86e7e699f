package config

import (
	"strings"
	"time"
)

// ProvisionerConfig controls the provisioning saga engine.
type ProvisionerConfig struct {
	// StepTimeout bounds each saga step; a timeout fails the step and
	// triggers compensation.
	StepTimeout time.Duration `env:"PROVISIONER_STEP_TIMEOUT" envDefault:"2m"`

	// MaxConcurrentJobs caps how many sagas execute at once.
	MaxConcurrentJobs int64 `env:"PROVISIONER_MAX_CONCURRENT_JOBS" envDefault:"8"`

	// AdminBaseURL is the root of the tenant admin console, used in the
	// published admin URLs.
	AdminBaseURL string `env:"PROVISIONER_ADMIN_BASE_URL" envDefault:"http://localhost:8080/admin"`
}

// Sanitize applies guardrails to provisioner configuration values.
func (c *ProvisionerConfig) Sanitize() {
	if c.StepTimeout < 0 {
		c.StepTimeout = 0
	}
	if c.MaxConcurrentJobs < 1 {
		c.MaxConcurrentJobs = 1
	}
	c.AdminBaseURL = strings.TrimRight(strings.TrimSpace(c.AdminBaseURL), "/")
}

// StorageConfig contains settings for the S3-compatible artifact origin.
type StorageConfig struct {
	Endpoint       string `env:"S3_ENDPOINT"         envDefault:""`
	Region         string `env:"S3_REGION"           envDefault:"us-east-1"`
	AccessKey      string `env:"S3_ACCESS_KEY"       envDefault:""`
	SecretKey      string `env:"S3_SECRET_KEY"       envDefault:""`
	Bucket         string `env:"S3_BUCKET"           envDefault:"directory-sites"`
	SiteBaseDomain string `env:"SITE_BASE_DOMAIN"    envDefault:"sites.localhost"`
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"true"`
	DisableTLS     bool   `env:"S3_DISABLE_TLS"      envDefault:"false"`
}

// Sanitize normalises storage configuration values.
func (c *StorageConfig) Sanitize() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.SiteBaseDomain = strings.TrimSpace(strings.TrimPrefix(c.SiteBaseDomain, "."))
}

// SearchConfig controls search index construction.
type SearchConfig struct {
	// Projection is the JMESPath expression that flattens a tenant's
	// listing into searchable documents. Empty selects the built-in default.
	Projection string `env:"PROJECTION" envDefault:""`
}

// Sanitize normalises search configuration values.
func (c *SearchConfig) Sanitize() {
	c.Projection = strings.TrimSpace(c.Projection)
}

// DomainsConfig contains the custom-domain control plane settings.
// With no BaseURL configured, domain configuration becomes a no-op.
type DomainsConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:""`
	Token   string        `env:"TOKEN"    envDefault:""`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"15s"`
}

// Sanitize normalises domain configuration values.
func (c *DomainsConfig) Sanitize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// Enabled reports whether a control plane is configured.
func (c *DomainsConfig) Enabled() bool {
	return c.BaseURL != ""
}

// BusConfig contains NATS event bus settings. With no URL configured,
// lifecycle events are not published.
type BusConfig struct {
	URL  string `env:"URL"  envDefault:""`
	Name string `env:"NAME" envDefault:"directory-wizard"`
}

// Enabled reports whether event publishing is configured.
func (c *BusConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}
