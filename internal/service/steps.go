package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/data"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	"github.com/miked5167/directory-wizard/internal/domain/saga"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
)

// Canonical step names, in execution order.
const (
	StepValidateTenant  = "validate_tenant"
	StepGenerateSite    = "generate_site"
	StepDeploySite      = "deploy_site"
	StepBuildIndex      = "build_search_index"
	StepConfigureDomain = "configure_domain"
	StepFinalize        = "finalize"
)

// StepSetOptions groups dependencies for the reference provisioning step set.
type StepSetOptions struct {
	Jobs      core.ProvisioningJobRepository // Required: finalize writes the terminal state
	Tenants   core.TenantRepository          // Required
	Generator core.SiteGenerator             // Required
	Deployer  core.ArtifactDeployer          // Required
	Indexer   core.SearchIndexer             // Required
	Domains   core.DomainConfigurer          // Required
	Deps      StepSetDeps                    // Optional
}

// StepSetDeps groups the optional ambient dependencies for the step set.
type StepSetDeps struct {
	Logger       *slog.Logger
	TimeProvider data.TimeProvider
	AdminBaseURL string
}

// stepEnv carries the shared collaborators plus the in-memory state a run
// accumulates between steps. Large intermediates (the rendered artifact,
// the deploy result) never round-trip through the job record; only their
// identifiers do.
type stepEnv struct {
	jobs         core.ProvisioningJobRepository
	tenants      core.TenantRepository
	generator    core.SiteGenerator
	deployer     core.ArtifactDeployer
	indexer      core.SearchIndexer
	domains      core.DomainConfigurer
	logger       *slog.Logger
	timeNow      data.TimeProvider
	adminBaseURL string

	mu   sync.Mutex
	runs map[string]*runState // keyed by job id
}

// runState is the in-memory scratch space for one saga run.
type runState struct {
	tenantSlug string
	artifact   *core.SiteArtifact
	deployment *core.DeployResult
}

// BuildRegistry assembles the six-step tenant provisioning sequence:
// validate, generate, deploy (compensatable), index, configure domain,
// finalize. The finalize step writes the COMPLETED terminal state itself,
// so a saga that runs every step to the end needs no further executor write.
// The registry carries a settle hook that releases the run's scratch state
// once the executor reports the saga settled.
func BuildRegistry(opts StepSetOptions) (*saga.Registry, error) {
	env, err := newStepEnv(opts)
	if err != nil {
		return nil, err
	}
	return env.registry()
}

func newStepEnv(opts StepSetOptions) (*stepEnv, error) {
	switch {
	case opts.Jobs == nil:
		return nil, errors.New("job repository is required")
	case opts.Tenants == nil:
		return nil, errors.New("tenant repository is required")
	case opts.Generator == nil:
		return nil, errors.New("site generator is required")
	case opts.Deployer == nil:
		return nil, errors.New("artifact deployer is required")
	case opts.Indexer == nil:
		return nil, errors.New("search indexer is required")
	case opts.Domains == nil:
		return nil, errors.New("domain configurer is required")
	}

	logger := opts.Deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.Deps.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	adminBase := strings.TrimRight(opts.Deps.AdminBaseURL, "/")
	if adminBase == "" {
		adminBase = "https://admin.directory-wizard.dev"
	}

	return &stepEnv{
		jobs:         opts.Jobs,
		tenants:      opts.Tenants,
		generator:    opts.Generator,
		deployer:     opts.Deployer,
		indexer:      opts.Indexer,
		domains:      opts.Domains,
		logger:       logger.With("component", "steps"),
		timeNow:      tp,
		adminBaseURL: adminBase,
		runs:         make(map[string]*runState),
	}, nil
}

func (e *stepEnv) registry() (*saga.Registry, error) {
	reg, err := saga.NewRegistry(
		saga.Step{Name: StepValidateTenant, Execute: e.validateTenant},
		saga.Step{Name: StepGenerateSite, Execute: e.generateSite},
		saga.Step{Name: StepDeploySite, Execute: e.deploySite, Compensate: e.undeploySite},
		saga.Step{Name: StepBuildIndex, Execute: e.buildSearchIndex},
		saga.Step{Name: StepConfigureDomain, Execute: e.configureDomain},
		saga.Step{Name: StepFinalize, Execute: e.finalize},
	)
	if err != nil {
		return nil, err
	}
	return reg.WithSettle(func(jobID, _ string) { e.dropRun(jobID) }), nil
}

func (e *stepEnv) run(jobID string) *runState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.runs[jobID]
	if !ok {
		st = &runState{}
		e.runs[jobID] = st
	}
	return st
}

func (e *stepEnv) dropRun(jobID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.runs, jobID)
}

// peekRun returns the run state without creating one.
func (e *stepEnv) peekRun(jobID string) *runState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs[jobID]
}

func (e *stepEnv) loadTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	tenant, err := e.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, data.ErrTenantNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("tenant %s not found", tenantID))
		}
		return nil, fmt.Errorf("load tenant %s: %w", tenantID, err)
	}
	return tenant, nil
}

// validateTenant checks the tenant exists and carries publishable data.
func (e *stepEnv) validateTenant(ctx context.Context, jobID, tenantID string) (saga.StepResult, error) {
	tenant, err := e.loadTenant(ctx, tenantID)
	if err != nil {
		return saga.StepResult{}, err
	}
	if err := tenant.ValidateForProvisioning(); err != nil {
		return saga.StepResult{}, apperrors.Validation(err.Error())
	}

	e.run(jobID).tenantSlug = tenant.Slug
	return saga.StepResult{Refs: model.RefMap{model.RefTenantSlug: tenant.Slug}}, nil
}

// generateSite renders the listing into a static artifact.
func (e *stepEnv) generateSite(ctx context.Context, jobID, tenantID string) (saga.StepResult, error) {
	tenant, err := e.loadTenant(ctx, tenantID)
	if err != nil {
		return saga.StepResult{}, err
	}

	artifact, err := e.generator.Generate(ctx, tenant)
	if err != nil {
		return saga.StepResult{}, fmt.Errorf("generate site: %w", err)
	}
	if artifact == nil || len(artifact.Files) == 0 {
		return saga.StepResult{}, errors.New("generate site: empty artifact")
	}

	e.run(jobID).artifact = artifact
	return saga.StepResult{Refs: model.RefMap{model.RefBuildID: artifact.BuildID}}, nil
}

// deploySite pushes the artifact to the CDN origin. Its compensation
// deletes the uploaded build again.
func (e *stepEnv) deploySite(ctx context.Context, jobID, tenantID string) (saga.StepResult, error) {
	st := e.run(jobID)
	if st.artifact == nil {
		return saga.StepResult{}, errors.New("deploy site: no artifact from generation")
	}

	deployed, err := e.deployer.Deploy(ctx, core.DeployParams{
		TenantSlug: st.tenantSlug,
		Artifact:   st.artifact,
	})
	if err != nil {
		return saga.StepResult{}, fmt.Errorf("deploy site: %w", err)
	}

	st.deployment = deployed
	return saga.StepResult{
		Refs: model.RefMap{
			model.RefDeploymentURL: deployed.URL,
			model.RefArtifactKeys:  deployed.Keys,
		},
		Compensation: model.RefMap{model.RefBuildID: st.artifact.BuildID},
	}, nil
}

// undeploySite deletes the uploaded build. The in-memory run state is the
// fast path; when it is gone the persisted compensation data still carries
// the build id alongside the tenant slug ref, so rollback survives losing
// the scratch state.
func (e *stepEnv) undeploySite(ctx context.Context, jobID, tenantID string) error {
	var slug, buildID string
	if st := e.peekRun(jobID); st != nil {
		slug = st.tenantSlug
		if st.artifact != nil {
			buildID = st.artifact.BuildID
		}
	}

	if slug == "" || buildID == "" {
		job, err := e.jobs.GetByID(ctx, jobID)
		if err != nil {
			if errors.Is(err, data.ErrJobNotFound) {
				return nil
			}
			return fmt.Errorf("load job %s for undeploy: %w", jobID, err)
		}
		if slug == "" {
			slug, _ = job.ExternalRefs[model.RefTenantSlug].(string)
		}
		if buildID == "" {
			buildID, _ = job.CompensationData[model.RefBuildID].(string)
		}
	}

	if slug == "" || buildID == "" {
		e.logger.WarnContext(ctx, "no build recorded; undeploy skipped",
			"job_id", jobID, "tenant_id", tenantID)
		return nil
	}
	return e.deployer.DeleteBuild(ctx, slug, buildID)
}

// buildSearchIndex projects the listing into the search store.
func (e *stepEnv) buildSearchIndex(ctx context.Context, jobID, tenantID string) (saga.StepResult, error) {
	tenant, err := e.loadTenant(ctx, tenantID)
	if err != nil {
		return saga.StepResult{}, err
	}

	indexName, err := e.indexer.IndexTenant(ctx, tenant)
	if err != nil {
		return saga.StepResult{}, fmt.Errorf("build search index: %w", err)
	}
	return saga.StepResult{Refs: model.RefMap{model.RefIndexName: indexName}}, nil
}

// configureDomain points the tenant's custom domain at the deployment.
// Tenants without a custom domain pass through as a no-op.
func (e *stepEnv) configureDomain(ctx context.Context, jobID, tenantID string) (saga.StepResult, error) {
	tenant, err := e.loadTenant(ctx, tenantID)
	if err != nil {
		return saga.StepResult{}, err
	}
	if tenant.CustomDomain == nil || strings.TrimSpace(*tenant.CustomDomain) == "" {
		e.logger.DebugContext(ctx, "no custom domain configured", "tenant_id", tenantID)
		return saga.StepResult{}, nil
	}

	st := e.run(jobID)
	deploymentURL := ""
	if st.deployment != nil {
		deploymentURL = st.deployment.URL
	}

	domain, err := e.domains.Configure(ctx, core.ConfigureDomainParams{
		TenantSlug:    tenant.Slug,
		CustomDomain:  *tenant.CustomDomain,
		DeploymentURL: deploymentURL,
	})
	if err != nil {
		return saga.StepResult{}, fmt.Errorf("configure domain: %w", err)
	}
	return saga.StepResult{Refs: model.RefMap{model.RefDomain: domain}}, nil
}

// finalize publishes the tenant and writes the COMPLETED terminal state.
// The executor's own per-step write after this step is a benign no-op
// because the record is already terminal.
func (e *stepEnv) finalize(ctx context.Context, jobID, tenantID string) (saga.StepResult, error) {
	st := e.run(jobID)
	if st.deployment == nil {
		return saga.StepResult{}, errors.New("finalize: no deployment recorded")
	}

	siteURL := st.deployment.URL
	adminURL := fmt.Sprintf("%s/tenants/%s", e.adminBaseURL, st.tenantSlug)

	published, err := e.tenants.MarkPublished(ctx, model.MarkPublishedParams{
		TenantID: tenantID,
		SiteURL:  siteURL,
		AdminURL: adminURL,
	})
	if err != nil {
		return saga.StepResult{}, fmt.Errorf("finalize: publish tenant: %w", err)
	}
	if !published {
		return saga.StepResult{}, apperrors.NotFound(fmt.Sprintf("tenant %s disappeared before publication", tenantID))
	}

	result := model.JobResult{TenantURL: siteURL, AdminURL: adminURL}
	completed, err := e.jobs.MarkCompleted(ctx, core.MarkCompletedParams{
		JobID:       jobID,
		Refs:        model.RefMap{model.RefResult: result},
		CurrentStep: StepFinalize,
		CompletedAt: e.timeNow.Now(),
	})
	if err != nil {
		return saga.StepResult{}, fmt.Errorf("finalize: complete job: %w", err)
	}
	if !completed {
		e.logger.WarnContext(ctx, "job record gone or not running; completion write skipped", "job_id", jobID)
	}

	return saga.StepResult{}, nil
}
