// Package mocks provides generated mock implementations for testing the provisioning saga.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// step collaborator ports. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	deployer := mocks.NewMockArtifactDeployer(ctrl)
//	deployer.EXPECT().Deploy(gomock.Any(), gomock.Any()).Return(result, nil)
package mocks

// Generate mocks for the step collaborator ports from internal/core. These are the
// external-system seams the saga steps act through: site generation, CDN deployment,
// search indexing and custom domain configuration.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=collaborators_mock.go github.com/miked5167/directory-wizard/internal/core SiteGenerator,ArtifactDeployer,SearchIndexer,DomainConfigurer
