package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/miked5167/directory-wizard/internal/domain/model"
	apperrors "github.com/miked5167/directory-wizard/internal/errors"
)

// TenantRepo provides database operations for tenant records.
type TenantRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewTenantRepo creates a new TenantRepo instance.
func NewTenantRepo(db *sql.DB, cfg RepoConfig) *TenantRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &TenantRepo{DB: db, timeProvider: tp}
}

const tenantColumns = `
  id,
  slug,
  name,
  custom_domain,
  listing,
  status,
  site_url,
  admin_url,
  published_at,
  created_at,
  updated_at
`

// Create inserts a new tenant in DRAFT state.
func (r *TenantRepo) Create(ctx context.Context, tenant *model.Tenant) (*model.Tenant, error) {
	if tenant == nil {
		return nil, errors.New("tenant is required")
	}
	listing := tenant.Listing
	if len(listing) == 0 {
		listing = json.RawMessage(`{}`)
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO tenants (slug, name, custom_domain, listing)
		VALUES ($1, $2, $3, $4)
		RETURNING `+tenantColumns,
		tenant.Slug, tenant.Name, tenant.CustomDomain, []byte(listing))

	created, err := scanTenantFromRow(row)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return created, nil
}

// GetByID retrieves a tenant by its id.
func (r *TenantRepo) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)

	tenant, err := scanTenantFromRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return tenant, nil
}

// MarkPublished flips the tenant to PUBLISHED and records its live URLs.
// published_at is stamped on the first publish only.
func (r *TenantRepo) MarkPublished(ctx context.Context, params model.MarkPublishedParams) (bool, error) {
	now := r.timeProvider.Now()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE tenants
		SET status = 'PUBLISHED',
		    site_url = $2,
		    admin_url = $3,
		    published_at = COALESCE(published_at, $4),
		    updated_at = $4
		WHERE id = $1`,
		params.TenantID, params.SiteURL, params.AdminURL, now)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return rowUpdated(res)
}

// MarkDraft reverts the tenant to DRAFT and clears its live URLs.
// The original published_at stamp survives an unpublish/republish cycle.
func (r *TenantRepo) MarkDraft(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE tenants
		SET status = 'DRAFT',
		    site_url = NULL,
		    admin_url = NULL,
		    updated_at = $2
		WHERE id = $1`,
		id, r.timeProvider.Now())
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return rowUpdated(res)
}

// Delete removes a tenant. Running jobs referencing the tenant are
// intentionally left alone; the executor tolerates the missing row.
func (r *TenantRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return rowUpdated(res)
}

func scanTenantFromRow(scanner jobRowScanner) (*model.Tenant, error) {
	tenant := &model.Tenant{}
	var customDomain, siteURL, adminURL sql.NullString
	var publishedAt sql.NullTime
	var listing []byte

	if err := scanner.Scan(
		&tenant.ID,
		&tenant.Slug,
		&tenant.Name,
		&customDomain,
		&listing,
		&tenant.Status,
		&siteURL,
		&adminURL,
		&publishedAt,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tenant.Listing = json.RawMessage(listing)
	if customDomain.Valid {
		v := customDomain.String
		tenant.CustomDomain = &v
	}
	if siteURL.Valid {
		v := siteURL.String
		tenant.SiteURL = &v
	}
	if adminURL.Valid {
		v := adminURL.String
		tenant.AdminURL = &v
	}
	if publishedAt.Valid {
		v := publishedAt.Time
		tenant.PublishedAt = &v
	}

	return tenant, nil
}
