// Package devseed populates a development database with demo tenants so the
// provisioning flow can be exercised immediately after startup.
package devseed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/miked5167/directory-wizard/internal/data"
	"github.com/miked5167/directory-wizard/internal/domain/model"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
)

type seedTenant struct {
	Slug         string
	Name         string
	CustomDomain string
	Listing      string
}

var demoTenants = []seedTenant{
	{
		Slug: "springfield-trades",
		Name: "Springfield Trades",
		Listing: `{
			"title": "Springfield Trades",
			"description": "Local tradespeople in Springfield",
			"categories": [
				{"name": "Plumbers", "slug": "plumbers", "entries": [
					{"name": "Pipe Kings", "phone": "555-0100", "website": "https://pipekings.test"},
					{"name": "Drain Surgeons", "phone": "555-0101"}
				]},
				{"name": "Electricians", "slug": "electricians", "entries": [
					{"name": "Sparks Co", "website": "https://sparks.test"}
				]}
			]
		}`,
	},
	{
		Slug:         "shelbyville-eats",
		Name:         "Shelbyville Eats",
		CustomDomain: "eats.shelbyville.example",
		Listing: `{
			"title": "Shelbyville Eats",
			"categories": [
				{"name": "Diners", "slug": "diners", "entries": [
					{"name": "The Gilded Truffle", "address": "1 Main St"}
				]}
			]
		}`,
	},
}

// Run inserts the demo tenants, skipping any slug that already exists.
// Intended for dev mode only; never called in production wiring.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	repo := data.NewTenantRepo(db, data.RepoConfig{Logger: logger})

	failures := 0
	for _, seed := range demoTenants {
		created, err := createTenant(ctx, repo, seed)
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed tenant", "slug", seed.Slug, "error", err)
			failures++
			continue
		}
		msg := "tenant already exists"
		if created {
			msg = "seeded tenant"
		}
		logger.InfoContext(ctx, msg, "slug", seed.Slug)
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func createTenant(ctx context.Context, repo *data.TenantRepo, seed seedTenant) (bool, error) {
	tenant := &model.Tenant{
		Slug:    seed.Slug,
		Name:    seed.Name,
		Listing: json.RawMessage(seed.Listing),
	}
	if seed.CustomDomain != "" {
		d := seed.CustomDomain
		tenant.CustomDomain = &d
	}

	if _, err := repo.Create(ctx, tenant); err != nil {
		if apperrors.IsConflict(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
