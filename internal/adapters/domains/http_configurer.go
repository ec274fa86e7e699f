// Package domains points tenant custom domains at their deployments via an
// external edge control plane.
package domains

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/miked5167/directory-wizard/internal/core"
)

const defaultTimeout = 15 * time.Second

// HTTPConfigurer implements core.DomainConfigurer against a REST control
// plane (one POST per domain registration, idempotent on the remote side).
type HTTPConfigurer struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// Options groups dependencies for NewHTTPConfigurer.
type Options struct {
	BaseURL string        // Required: control plane root, e.g. "https://edge.example.com"
	Token   string        // Optional: bearer token
	Timeout time.Duration // Optional: defaults to 15s
	Client  *http.Client  // Optional: override for tests
	Logger  *slog.Logger
}

// NewHTTPConfigurer creates a control-plane backed domain configurer.
func NewHTTPConfigurer(opts Options) (*HTTPConfigurer, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base url is required")
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPConfigurer{
		baseURL: base,
		token:   opts.Token,
		client:  client,
		logger:  logger.With("component", "domains"),
	}, nil
}

type registerRequest struct {
	Domain string `json:"domain"`
	Target string `json:"target"`
	Tenant string `json:"tenant"`
}

type registerResponse struct {
	Domain string `json:"domain"`
	Status string `json:"status"`
}

// Configure registers the custom domain with the edge and returns the
// domain as the control plane canonicalized it.
func (c *HTTPConfigurer) Configure(ctx context.Context, params core.ConfigureDomainParams) (string, error) {
	if params.CustomDomain == "" {
		return "", errors.New("custom domain is required")
	}

	body, err := json.Marshal(registerRequest{
		Domain: params.CustomDomain,
		Target: params.DeploymentURL,
		Tenant: params.TenantSlug,
	})
	if err != nil {
		return "", fmt.Errorf("encode domain request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/domains", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build domain request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("register domain %s: %w", params.CustomDomain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("register domain %s: control plane returned %d: %s",
			params.CustomDomain, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode domain response: %w", err)
	}
	if out.Domain == "" {
		out.Domain = params.CustomDomain
	}

	c.logger.InfoContext(ctx, "domain configured",
		"tenant_slug", params.TenantSlug, "domain", out.Domain, "status", out.Status)
	return out.Domain, nil
}

// NoopConfigurer satisfies core.DomainConfigurer for deployments without an
// edge control plane; it accepts the domain without any remote call.
type NoopConfigurer struct{}

// Configure returns the requested domain unchanged.
func (NoopConfigurer) Configure(_ context.Context, params core.ConfigureDomainParams) (string, error) {
	return params.CustomDomain, nil
}
