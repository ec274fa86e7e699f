package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/miked5167/directory-wizard/config"
	"github.com/miked5167/directory-wizard/internal/adapters/bus"
	"github.com/miked5167/directory-wizard/internal/adapters/cdn"
	"github.com/miked5167/directory-wizard/internal/adapters/domains"
	"github.com/miked5167/directory-wizard/internal/adapters/search"
	"github.com/miked5167/directory-wizard/internal/adapters/sitegen"
	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/data"
	"github.com/miked5167/directory-wizard/internal/observability/statsd"
	"github.com/miked5167/directory-wizard/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Provisioner *service.ProvisionerService
	Status      *service.StatusService

	Jobs    *data.ProvisioningJobRepo
	Tenants *data.TenantRepo

	Bus         *bus.Publisher
	MetricsSink *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs    *data.ProvisioningJobRepo
	Tenants *data.TenantRepo
}

// buildMetricsSink configures the StatsD client when metrics are enabled.
// A nil sink is valid everywhere it is consumed.
func buildMetricsSink(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, logger *slog.Logger) *serviceRepositories {
	cfg := data.RepoConfig{Logger: logger}
	return &serviceRepositories{
		Jobs:    data.NewProvisioningJobRepo(db, cfg),
		Tenants: data.NewTenantRepo(db, cfg),
	}
}

// sagaAdapters groups the external-system adapters the saga steps act through.
type sagaAdapters struct {
	Generator core.SiteGenerator
	Deployer  core.ArtifactDeployer
	Indexer   core.SearchIndexer
	Domains   core.DomainConfigurer
}

func buildSagaAdapters(
	ctx context.Context,
	cfg *config.AppConfig,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
) (sagaAdapters, error) {
	generator, err := sitegen.New(sitegen.Options{Logger: logger})
	if err != nil {
		return sagaAdapters{}, fmt.Errorf("site generator: %w", err)
	}

	deployer, err := cdn.NewS3Deployer(ctx, cdn.Options{
		Config: cdn.Config{
			Endpoint:       cfg.Storage.Endpoint,
			Region:         cfg.Storage.Region,
			AccessKey:      cfg.Storage.AccessKey,
			SecretKey:      cfg.Storage.SecretKey,
			Bucket:         cfg.Storage.Bucket,
			SiteBaseDomain: cfg.Storage.SiteBaseDomain,
			ForcePathStyle: cfg.Storage.ForcePathStyle,
			DisableTLS:     cfg.Storage.DisableTLS,
		},
		Logger: logger,
	})
	if err != nil {
		return sagaAdapters{}, fmt.Errorf("artifact deployer: %w", err)
	}

	indexer, err := search.NewRedisIndexer(search.Options{
		Client:     redisClient,
		Projection: cfg.Search.Projection,
		Logger:     logger,
	})
	if err != nil {
		return sagaAdapters{}, fmt.Errorf("search indexer: %w", err)
	}

	var configurer core.DomainConfigurer
	if cfg.Domains.Enabled() {
		configurer, err = domains.NewHTTPConfigurer(domains.Options{
			BaseURL: cfg.Domains.BaseURL,
			Token:   cfg.Domains.Token,
			Timeout: cfg.Domains.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return sagaAdapters{}, fmt.Errorf("domain configurer: %w", err)
		}
	} else {
		logger.Info("no domain control plane configured, custom domains pass through unregistered")
		configurer = domains.NoopConfigurer{}
	}

	return sagaAdapters{
		Generator: generator,
		Deployer:  deployer,
		Indexer:   indexer,
		Domains:   configurer,
	}, nil
}

// buildEventBus connects the NATS publisher when a URL is configured.
// A nil publisher disables lifecycle event emission.
func buildEventBus(cfg config.BusConfig, logger *slog.Logger) (*bus.Publisher, error) {
	if !cfg.Enabled() {
		logger.Info("event bus disabled, lifecycle events will not be published")
		return nil, nil
	}
	publisher, err := bus.Connect(bus.Options{
		URL:    cfg.URL,
		Name:   cfg.Name,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect event bus: %w", err)
	}
	return publisher, nil
}

// BuildServices wires repositories, adapters and the saga engine from config.
// The caller owns shutdown: drain the provisioner, then Close the container.
func BuildServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, fmt.Errorf("service deps and config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metricsSink := buildMetricsSink(logger, deps.Config.Observability.Metrics)
	repos := buildRepositories(deps.DB, logger)

	adapters, err := buildSagaAdapters(ctx, deps.Config, deps.RedisClient, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	publisher, err := buildEventBus(deps.Config.Bus, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	registry, err := service.BuildRegistry(service.StepSetOptions{
		Jobs:      repos.Jobs,
		Tenants:   repos.Tenants,
		Generator: adapters.Generator,
		Deployer:  adapters.Deployer,
		Indexer:   adapters.Indexer,
		Domains:   adapters.Domains,
		Deps: service.StepSetDeps{
			Logger:       logger,
			AdminBaseURL: deps.Config.Provisioner.AdminBaseURL,
		},
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build step registry: %w", err)
	}

	provisionerDeps := service.ProvisionerServiceDeps{
		Config: &service.ProvisionerConfig{
			StepTimeout:   deps.Config.Provisioner.StepTimeout,
			MaxConcurrent: deps.Config.Provisioner.MaxConcurrentJobs,
		},
		Logger:  logger,
		Metrics: metricsSink,
	}
	if publisher != nil {
		provisionerDeps.Bus = publisher
	}

	provisioner, err := service.NewProvisionerService(service.ProvisionerServiceOptions{
		Jobs:     repos.Jobs,
		Registry: registry,
		Deps:     provisionerDeps,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build provisioner service: %w", err)
	}

	status, err := service.NewStatusService(service.StatusServiceOptions{
		Jobs:   repos.Jobs,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build status service: %w", err)
	}

	return ServiceContainer{
		Provisioner: provisioner,
		Status:      status,
		Jobs:        repos.Jobs,
		Tenants:     repos.Tenants,
		Bus:         publisher,
		MetricsSink: metricsSink,
	}, nil
}

// Close releases connections owned by the container. Safe on a zero container.
func (c *ServiceContainer) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if c.Bus != nil {
		c.Bus.Close()
	}
	if c.MetricsSink != nil {
		if err := c.MetricsSink.Close(); err != nil {
			logger.Error("close statsd client failed", "error", err)
		}
	}
}
