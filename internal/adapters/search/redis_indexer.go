// Package search builds tenant search indexes in Redis from listing data.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/redis/go-redis/v9"

	"github.com/miked5167/directory-wizard/internal/domain/model"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
)

// DefaultProjection flattens the listing document into per-category doc
// groups. Deployments with bespoke listing schemas override it in config.
const DefaultProjection = `categories[].{category: name, slug: slug, entries: entries[].{name: name, description: description, phone: phone, website: website, address: address}}`

const keyPrefix = "search:index:"

// RedisIndexer implements core.SearchIndexer over a Redis hash per tenant.
// Each hash field is one searchable document; the whole index is rebuilt
// atomically on every provisioning run.
type RedisIndexer struct {
	client     redis.UniversalClient
	projection string
	logger     *slog.Logger
}

// Options groups dependencies for NewRedisIndexer.
type Options struct {
	Client     redis.UniversalClient // Required
	Projection string                // Optional: JMESPath over the listing, defaults to DefaultProjection
	Logger     *slog.Logger          // Optional
}

// NewRedisIndexer creates a Redis-backed search indexer.
func NewRedisIndexer(opts Options) (*RedisIndexer, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}

	expr := opts.Projection
	if expr == "" {
		expr = DefaultProjection
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("compile search projection: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisIndexer{
		client:     opts.Client,
		projection: expr,
		logger:     logger.With("component", "search"),
	}, nil
}

// IndexTenant projects the tenant's listing through the configured JMESPath
// expression and writes the resulting documents into Redis, replacing any
// previous index for the tenant. Returns the index name.
func (idx *RedisIndexer) IndexTenant(ctx context.Context, tenant *model.Tenant) (string, error) {
	if tenant == nil {
		return "", apperrors.Validation("tenant is required")
	}

	var doc any
	if err := json.Unmarshal(tenant.Listing, &doc); err != nil {
		return "", apperrors.Wrapf(err, apperrors.ErrCodeValidation,
			"tenant %s listing is not indexable", tenant.ID)
	}

	projected, err := jmespath.Search(idx.projection, doc)
	if err != nil {
		return "", fmt.Errorf("project listing: %w", err)
	}

	groups, _ := projected.([]any)
	indexName := "tenants-" + tenant.Slug
	key := keyPrefix + tenant.Slug

	pipe := idx.client.TxPipeline()
	pipe.Del(ctx, key)
	docs := 0
	for i, group := range groups {
		payload, marshalErr := json.Marshal(group)
		if marshalErr != nil {
			return "", fmt.Errorf("encode search doc: %w", marshalErr)
		}
		pipe.HSet(ctx, key, fmt.Sprintf("doc:%d", i), payload)
		docs++
	}
	pipe.HSet(ctx, key, "meta", fmt.Sprintf(`{"index":%q,"docs":%d}`, indexName, docs))

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("write search index: %w", err)
	}

	idx.logger.InfoContext(ctx, "search index built",
		"tenant_id", tenant.ID, "index", indexName, "docs", docs)
	return indexName, nil
}

// DeleteIndex drops a tenant's search index. Used by teardown tooling.
func (idx *RedisIndexer) DeleteIndex(ctx context.Context, tenantSlug string) error {
	return idx.client.Del(ctx, keyPrefix+tenantSlug).Err()
}
