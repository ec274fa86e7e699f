// Package sitegen renders a tenant's listing data into a static site artifact.
package sitegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/google/uuid"

	"github.com/miked5167/directory-wizard/internal/core"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
)

// listing is the subset of the tenant's listing document the templates need.
// Unknown fields pass through untouched into the JSON payload.
type listing struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Categories  []category `json:"categories"`
}

type category struct {
	Name    string  `json:"name"`
	Slug    string  `json:"slug"`
	Entries []entry `json:"entries"`
}

type entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Address     string `json:"address"`
}

type indexData struct {
	TenantName string
	Listing    listing
}

// Generator renders static directory sites with html/template.
type Generator struct {
	logger *slog.Logger
	tmpl   *template.Template
}

// Options configures a Generator.
type Options struct {
	Logger *slog.Logger
}

// New creates a Generator with the built-in directory templates.
func New(opts Options) (*Generator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.New("site").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse site templates: %w", err)
	}
	if _, err := tmpl.New("category").Parse(categoryTemplate); err != nil {
		return nil, fmt.Errorf("parse site templates: %w", err)
	}

	return &Generator{logger: logger.With("component", "sitegen"), tmpl: tmpl}, nil
}

// Generate renders tenant.Listing into a file set rooted at index.html.
// The artifact gets a fresh build id each run so deployments never collide.
func (g *Generator) Generate(ctx context.Context, tenant *model.Tenant) (*core.SiteArtifact, error) {
	if tenant == nil {
		return nil, apperrors.Validation("tenant is required")
	}

	var data listing
	if err := json.Unmarshal(tenant.Listing, &data); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "tenant %s listing is not renderable", tenant.ID)
	}
	if data.Title == "" {
		data.Title = tenant.Name
	}

	buildID := uuid.NewString()
	files := make([]core.ArtifactFile, 0, len(data.Categories)+2)

	var index bytes.Buffer
	if err := g.tmpl.ExecuteTemplate(&index, "site", indexData{TenantName: tenant.Name, Listing: data}); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	files = append(files, core.ArtifactFile{
		Path:        "index.html",
		Body:        index.Bytes(),
		ContentType: "text/html; charset=utf-8",
	})

	for _, cat := range data.Categories {
		if cat.Slug == "" {
			continue
		}
		var page bytes.Buffer
		if err := g.tmpl.ExecuteTemplate(&page, "category", cat); err != nil {
			return nil, fmt.Errorf("render category %s: %w", cat.Slug, err)
		}
		files = append(files, core.ArtifactFile{
			Path:        fmt.Sprintf("categories/%s.html", cat.Slug),
			Body:        page.Bytes(),
			ContentType: "text/html; charset=utf-8",
		})
	}

	// The raw listing rides along for client-side search.
	files = append(files, core.ArtifactFile{
		Path:        "data/listing.json",
		Body:        append([]byte(nil), tenant.Listing...),
		ContentType: "application/json",
	})

	g.logger.DebugContext(ctx, "site generated",
		"tenant_id", tenant.ID, "build_id", buildID, "files", len(files))

	return &core.SiteArtifact{BuildID: buildID, Files: files}, nil
}

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Listing.Title}}</title>
{{if .Listing.Description}}<meta name="description" content="{{.Listing.Description}}">{{end}}
</head>
<body>
<header><h1>{{.Listing.Title}}</h1></header>
<main>
<ul class="categories">
{{range .Listing.Categories}}<li><a href="/categories/{{.Slug}}.html">{{.Name}}</a> ({{len .Entries}})</li>
{{end}}</ul>
</main>
<footer>{{.TenantName}}</footer>
</body>
</html>
`

const categoryTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Name}}</title>
</head>
<body>
<header><h1>{{.Name}}</h1> <a href="/">Home</a></header>
<main>
<ul class="entries">
{{range .Entries}}<li>
<h2>{{.Name}}</h2>
{{if .Description}}<p>{{.Description}}</p>{{end}}
{{if .Address}}<address>{{.Address}}</address>{{end}}
{{if .Phone}}<a href="tel:{{.Phone}}">{{.Phone}}</a>{{end}}
{{if .Website}}<a href="{{.Website}}" rel="nofollow">Website</a>{{end}}
</li>
{{end}}</ul>
</main>
</body>
</html>
`
