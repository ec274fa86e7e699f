package sitegen

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
)

func testTenant(listing string) *model.Tenant {
	return &model.Tenant{
		ID:      "t-1",
		Slug:    "acme",
		Name:    "Acme Directory",
		Listing: json.RawMessage(listing),
		Status:  model.TenantStatusDraft,
	}
}

func fileByPath(t *testing.T, artifact *core.SiteArtifact, path string) core.ArtifactFile {
	t.Helper()
	for _, f := range artifact.Files {
		if f.Path == path {
			return f
		}
	}
	t.Fatalf("artifact has no file %q", path)
	return core.ArtifactFile{}
}

func TestGenerate_RendersListing(t *testing.T) {
	gen, err := New(Options{})
	require.NoError(t, err)

	tenant := testTenant(`{
		"title": "Springfield Trades",
		"description": "Local tradespeople",
		"categories": [
			{"name": "Plumbers", "slug": "plumbers", "entries": [
				{"name": "Pipe Kings", "phone": "555-0100", "website": "https://pipekings.test"}
			]},
			{"name": "Electricians", "slug": "electricians", "entries": []}
		]
	}`)

	artifact, err := gen.Generate(context.Background(), tenant)
	require.NoError(t, err)
	require.NotEmpty(t, artifact.BuildID)
	require.Len(t, artifact.Files, 4)

	index := fileByPath(t, artifact, "index.html")
	assert.Equal(t, "text/html; charset=utf-8", index.ContentType)
	assert.Contains(t, string(index.Body), "<title>Springfield Trades</title>")
	assert.Contains(t, string(index.Body), `href="/categories/plumbers.html"`)
	assert.Contains(t, string(index.Body), "Acme Directory")

	plumbers := fileByPath(t, artifact, "categories/plumbers.html")
	assert.Contains(t, string(plumbers.Body), "Pipe Kings")
	assert.Contains(t, string(plumbers.Body), `tel:555-0100`)

	data := fileByPath(t, artifact, "data/listing.json")
	assert.Equal(t, "application/json", data.ContentType)
	assert.JSONEq(t, string(tenant.Listing), string(data.Body))
}

func TestGenerate_TitleFallsBackToTenantName(t *testing.T) {
	gen, err := New(Options{})
	require.NoError(t, err)

	artifact, err := gen.Generate(context.Background(), testTenant(`{"categories": []}`))
	require.NoError(t, err)

	index := fileByPath(t, artifact, "index.html")
	assert.Contains(t, string(index.Body), "<title>Acme Directory</title>")
}

func TestGenerate_SkipsCategoriesWithoutSlug(t *testing.T) {
	gen, err := New(Options{})
	require.NoError(t, err)

	artifact, err := gen.Generate(context.Background(), testTenant(`{
		"title": "x",
		"categories": [{"name": "No Slug", "entries": []}]
	}`))
	require.NoError(t, err)

	// index.html and data/listing.json only
	require.Len(t, artifact.Files, 2)
}

func TestGenerate_FreshBuildIDPerRun(t *testing.T) {
	gen, err := New(Options{})
	require.NoError(t, err)

	tenant := testTenant(`{"title": "x", "categories": []}`)
	first, err := gen.Generate(context.Background(), tenant)
	require.NoError(t, err)
	second, err := gen.Generate(context.Background(), tenant)
	require.NoError(t, err)

	assert.NotEqual(t, first.BuildID, second.BuildID)
}

func TestGenerate_EscapesListingContent(t *testing.T) {
	gen, err := New(Options{})
	require.NoError(t, err)

	artifact, err := gen.Generate(context.Background(), testTenant(`{
		"title": "<script>alert(1)</script>",
		"categories": []
	}`))
	require.NoError(t, err)

	index := fileByPath(t, artifact, "index.html")
	assert.NotContains(t, string(index.Body), "<script>alert(1)</script>")
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	gen, err := New(Options{})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = gen.Generate(context.Background(), testTenant(`not json`))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
