// Package cdn deploys generated site artifacts to an S3-compatible origin.
package cdn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/miked5167/directory-wizard/internal/core"
)

// deleteBatchSize is the S3 DeleteObjects per-request limit.
const deleteBatchSize = 1000

// Config holds connection settings for the artifact origin. Endpoint may
// point at AWS proper or any S3-compatible store (MinIO, SeaweedFS).
type Config struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string
	SiteBaseDomain string // e.g. "sites.example.com"; tenants publish at https://<slug>.<domain>
	ForcePathStyle bool
	DisableTLS     bool
}

// S3Deployer implements core.ArtifactDeployer backed by an S3 bucket.
type S3Deployer struct {
	api    *s3.Client
	bucket string
	domain string
	logger *slog.Logger
}

// Options groups dependencies for NewS3Deployer.
type Options struct {
	Config Config
	Logger *slog.Logger
}

// NewS3Deployer creates an S3-backed deployer.
func NewS3Deployer(ctx context.Context, opts Options) (*S3Deployer, error) {
	cfg := opts.Config
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if cfg.SiteBaseDomain == "" {
		return nil, errors.New("site base domain is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if cfg.DisableTLS {
			scheme = "http"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &S3Deployer{
		api:    api,
		bucket: cfg.Bucket,
		domain: cfg.SiteBaseDomain,
		logger: logger.With("component", "cdn"),
	}, nil
}

// Deploy uploads every artifact file under sites/<slug>/<buildID>/ and
// returns the public URL the build serves from.
func (d *S3Deployer) Deploy(ctx context.Context, params core.DeployParams) (*core.DeployResult, error) {
	if params.Artifact == nil || len(params.Artifact.Files) == 0 {
		return nil, errors.New("artifact has no files")
	}
	if params.TenantSlug == "" {
		return nil, errors.New("tenant slug is required")
	}

	prefix := buildPrefix(params.TenantSlug, params.Artifact.BuildID)
	keys := make([]string, 0, len(params.Artifact.Files))

	for _, f := range params.Artifact.Files {
		key := prefix + f.Path
		_, err := d.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:       aws.String(d.bucket),
			Key:          aws.String(key),
			Body:         bytes.NewReader(f.Body),
			ContentType:  aws.String(f.ContentType),
			CacheControl: aws.String("public, max-age=60"),
		})
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", key, err)
		}
		keys = append(keys, key)
	}

	url := fmt.Sprintf("https://%s.%s", params.TenantSlug, d.domain)
	d.logger.InfoContext(ctx, "build deployed",
		"tenant_slug", params.TenantSlug, "build_id", params.Artifact.BuildID,
		"objects", len(keys), "url", url)

	return &core.DeployResult{URL: url, Keys: keys}, nil
}

// DeleteBuild removes every object under the build's prefix. Used as the
// deploy step's compensation; callers treat failures as best-effort.
func (d *S3Deployer) DeleteBuild(ctx context.Context, tenantSlug, buildID string) error {
	if tenantSlug == "" || buildID == "" {
		return errors.New("tenant slug and build id are required")
	}

	prefix := buildPrefix(tenantSlug, buildID)
	paginator := s3.NewListObjectsV2Paginator(d.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(prefix),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list build objects: %w", err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		batch := make([]s3types.ObjectIdentifier, 0, min(len(page.Contents), deleteBatchSize))
		for _, obj := range page.Contents {
			batch = append(batch, s3types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = d.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(d.bucket),
			Delete: &s3types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete build objects: %w", err)
		}
		deleted += len(batch)
	}

	d.logger.InfoContext(ctx, "build deleted",
		"tenant_slug", tenantSlug, "build_id", buildID, "objects", deleted)
	return nil
}

// buildPrefix namespaces every tenant build under a shared root so the
// bucket can also hold non-site objects without key collisions.
func buildPrefix(tenantSlug, buildID string) string {
	return fmt.Sprintf("sites/%s/%s/", tenantSlug, buildID)
}
