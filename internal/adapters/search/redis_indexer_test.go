package search

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miked5167/directory-wizard/internal/domain/model"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
	"github.com/miked5167/directory-wizard/internal/testutil"
)

const testListing = `{
	"title": "Springfield Trades",
	"categories": [
		{"name": "Plumbers", "slug": "plumbers", "entries": [
			{"name": "Pipe Kings", "phone": "555-0100"},
			{"name": "Drain Surgeons"}
		]},
		{"name": "Electricians", "slug": "electricians", "entries": [
			{"name": "Sparks Co", "website": "https://sparks.test"}
		]}
	]
}`

func indexTenant(listing string) *model.Tenant {
	return &model.Tenant{
		ID:      "t-1",
		Slug:    "acme",
		Name:    "Acme Directory",
		Listing: json.RawMessage(listing),
	}
}

func TestNewRedisIndexer_Validation(t *testing.T) {
	_, err := NewRedisIndexer(Options{})
	require.Error(t, err)

	client := testutil.SetupTestRedis(t)
	_, err = NewRedisIndexer(Options{Client: client, Projection: "categories[}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "projection")
}

func TestIndexTenant_BuildsIndex(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	idx, err := NewRedisIndexer(Options{Client: client})
	require.NoError(t, err)

	ctx := context.Background()
	name, err := idx.IndexTenant(ctx, indexTenant(testListing))
	require.NoError(t, err)
	assert.Equal(t, "tenants-acme", name)

	fields, err := client.HGetAll(ctx, "search:index:acme").Result()
	require.NoError(t, err)
	// one doc group per category, plus meta
	require.Len(t, fields, 3)

	var plumbers struct {
		Category string `json:"category"`
		Slug     string `json:"slug"`
		Entries  []struct {
			Name  string `json:"name"`
			Phone string `json:"phone"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(fields["doc:0"]), &plumbers))
	assert.Equal(t, "Plumbers", plumbers.Category)
	assert.Equal(t, "plumbers", plumbers.Slug)
	require.Len(t, plumbers.Entries, 2)
	assert.Equal(t, "Pipe Kings", plumbers.Entries[0].Name)
	assert.Equal(t, "555-0100", plumbers.Entries[0].Phone)

	var meta struct {
		Index string `json:"index"`
		Docs  int    `json:"docs"`
	}
	require.NoError(t, json.Unmarshal([]byte(fields["meta"]), &meta))
	assert.Equal(t, "tenants-acme", meta.Index)
	assert.Equal(t, 2, meta.Docs)
}

func TestIndexTenant_ReplacesPreviousIndex(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	idx, err := NewRedisIndexer(Options{Client: client})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = idx.IndexTenant(ctx, indexTenant(testListing))
	require.NoError(t, err)

	smaller := `{"categories": [{"name": "Plumbers", "slug": "plumbers", "entries": []}]}`
	_, err = idx.IndexTenant(ctx, indexTenant(smaller))
	require.NoError(t, err)

	fields, err := client.HGetAll(ctx, "search:index:acme").Result()
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.NotContains(t, fields, "doc:1")
}

func TestIndexTenant_EmptyProjectionStillWritesMeta(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	idx, err := NewRedisIndexer(Options{Client: client})
	require.NoError(t, err)

	ctx := context.Background()
	name, err := idx.IndexTenant(ctx, indexTenant(`{"title": "no categories"}`))
	require.NoError(t, err)
	assert.Equal(t, "tenants-acme", name)

	fields, err := client.HGetAll(ctx, "search:index:acme").Result()
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Contains(t, fields["meta"], `"docs":0`)
}

func TestIndexTenant_RejectsBadInput(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	idx, err := NewRedisIndexer(Options{Client: client})
	require.NoError(t, err)

	_, err = idx.IndexTenant(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = idx.IndexTenant(context.Background(), indexTenant(`not json`))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestDeleteIndex(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	idx, err := NewRedisIndexer(Options{Client: client})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = idx.IndexTenant(ctx, indexTenant(testListing))
	require.NoError(t, err)

	require.NoError(t, idx.DeleteIndex(ctx, "acme"))

	exists, err := client.Exists(ctx, "search:index:acme").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
