package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	"github.com/miked5167/directory-wizard/internal/mocks"
)

type mockFixture struct {
	jobs      *stubJobRepo
	generator *mocks.MockSiteGenerator
	deployer  *mocks.MockArtifactDeployer
	indexer   *mocks.MockSearchIndexer
	domains   *mocks.MockDomainConfigurer
	svc       *ProvisionerService
}

func newMockFixture(t *testing.T, tenants ...*model.Tenant) *mockFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &mockFixture{
		jobs:      newStubJobRepo(),
		generator: mocks.NewMockSiteGenerator(ctrl),
		deployer:  mocks.NewMockArtifactDeployer(ctrl),
		indexer:   mocks.NewMockSearchIndexer(ctrl),
		domains:   mocks.NewMockDomainConfigurer(ctrl),
	}

	registry, err := BuildRegistry(StepSetOptions{
		Jobs:      f.jobs,
		Tenants:   newStubTenantRepo(tenants...),
		Generator: f.generator,
		Deployer:  f.deployer,
		Indexer:   f.indexer,
		Domains:   f.domains,
		Deps:      StepSetDeps{AdminBaseURL: "https://admin.example.com"},
	})
	require.NoError(t, err)

	f.svc, err = NewProvisionerService(ProvisionerServiceOptions{
		Jobs:     f.jobs,
		Registry: registry,
	})
	require.NoError(t, err)
	return f
}

func TestProvisioning_ArtifactFlowsFromGenerateToDeploy(t *testing.T) {
	tenant := draftTenant("tenant-1", "acme")
	f := newMockFixture(t, tenant)

	artifact := &core.SiteArtifact{
		BuildID: "build-42",
		Files:   []core.ArtifactFile{{Path: "index.html", Body: []byte("<html></html>")}},
	}

	gomock.InOrder(
		f.generator.EXPECT().Generate(gomock.Any(), tenant).Return(artifact, nil),
		f.deployer.EXPECT().
			Deploy(gomock.Any(), core.DeployParams{TenantSlug: "acme", Artifact: artifact}).
			Return(&core.DeployResult{URL: "https://acme.sites.example.com"}, nil),
		f.indexer.EXPECT().IndexTenant(gomock.Any(), tenant).Return("tenants-acme", nil),
	)

	job, err := f.svc.CreateJob(context.Background(), "tenant-1", model.JobTypeCreate)
	require.NoError(t, err)
	f.svc.Wait()

	final, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Equal(t, StepFinalize, final.CurrentStep)
	assert.Equal(t, "build-42", final.ExternalRefs[model.RefBuildID])
}

func TestProvisioning_IndexFailureDeletesDeployedBuild(t *testing.T) {
	tenant := draftTenant("tenant-1", "acme")
	f := newMockFixture(t, tenant)

	artifact := &core.SiteArtifact{
		BuildID: "build-42",
		Files:   []core.ArtifactFile{{Path: "index.html", Body: []byte("<html></html>")}},
	}

	f.generator.EXPECT().Generate(gomock.Any(), tenant).Return(artifact, nil)
	f.deployer.EXPECT().Deploy(gomock.Any(), gomock.Any()).
		Return(&core.DeployResult{URL: "https://acme.sites.example.com"}, nil)
	f.indexer.EXPECT().IndexTenant(gomock.Any(), tenant).
		Return("", errors.New("redis unavailable"))
	f.deployer.EXPECT().DeleteBuild(gomock.Any(), "acme", "build-42").Return(nil)

	job, err := f.svc.CreateJob(context.Background(), "tenant-1", model.JobTypeCreate)
	require.NoError(t, err)
	f.svc.Wait()

	final, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "redis unavailable")
}

func TestProvisioning_CustomDomainReceivesDeploymentURL(t *testing.T) {
	tenant := draftTenant("tenant-1", "acme")
	domain := "directory.acme.example"
	tenant.CustomDomain = &domain
	f := newMockFixture(t, tenant)

	f.generator.EXPECT().Generate(gomock.Any(), tenant).
		Return(&core.SiteArtifact{
			BuildID: "build-42",
			Files:   []core.ArtifactFile{{Path: "index.html", Body: []byte("<html></html>")}},
		}, nil)
	f.deployer.EXPECT().Deploy(gomock.Any(), gomock.Any()).
		Return(&core.DeployResult{URL: "https://acme.sites.example.com"}, nil)
	f.indexer.EXPECT().IndexTenant(gomock.Any(), tenant).Return("tenants-acme", nil)
	f.domains.EXPECT().
		Configure(gomock.Any(), core.ConfigureDomainParams{
			TenantSlug:    "acme",
			CustomDomain:  domain,
			DeploymentURL: "https://acme.sites.example.com",
		}).
		Return(domain, nil)

	job, err := f.svc.CreateJob(context.Background(), "tenant-1", model.JobTypeCreate)
	require.NoError(t, err)
	f.svc.Wait()

	final, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Equal(t, domain, final.ExternalRefs[model.RefDomain])
}
