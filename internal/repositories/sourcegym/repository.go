package sourcegym

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/openmat/gymlink/pkg/database"
	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

const columns = "org, external_id, name, city, state, country, country_code, address, website, responsible, master_gym_id, created_at, updated_at"

// Repository handles source gym persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new source gym repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// q returns the transaction open on ctx, or the pool.
func (r *Repository) q(ctx context.Context) database.Querier {
	return database.QuerierFromContext(ctx, r.db)
}

// Upsert inserts or refreshes a source gym keyed by (org, external_id).
// The master_gym_id link is never touched here so a re-sync cannot undo
// a resolution.
func (r *Repository) Upsert(ctx context.Context, gym *models.SourceGym) (*models.SourceGym, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcegym.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	gym.UpdatedAt = now
	if gym.CreatedAt.IsZero() {
		gym.CreatedAt = now
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("source_gyms")
	ib.Cols("org", "external_id", "name", "city", "state", "country", "country_code", "address", "website", "responsible", "created_at", "updated_at")
	ib.Values(gym.Org, gym.ExternalID, gym.Name, gym.City, gym.State, gym.Country, gym.CountryCode, gym.Address, gym.Website, gym.Responsible, gym.CreatedAt, gym.UpdatedAt)

	ub := ib.OnConflict("org", "external_id")
	ub.Set(
		ub.Assign("name", database.Excluded("name")),
		ub.Assign("city", database.Excluded("city")),
		ub.Assign("state", database.Excluded("state")),
		ub.Assign("country", database.Excluded("country")),
		ub.Assign("country_code", database.Excluded("country_code")),
		ub.Assign("address", database.Excluded("address")),
		ub.Assign("website", database.Excluded("website")),
		ub.Assign("responsible", database.Excluded("responsible")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()
	if _, err := r.q(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"org":         gym.Org,
			"external_id": gym.ExternalID,
		}).Error("Failed to upsert source gym")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert source gym")
	}

	return r.Get(ctx, gym.Org, gym.ExternalID)
}

// Get retrieves a source gym by its (org, external_id) identity
func (r *Repository) Get(ctx context.Context, org models.Org, externalID string) (*models.SourceGym, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcegym.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("source_gyms")
	sb.Where(
		sb.Equal("org", org),
		sb.Equal("external_id", externalID),
	)

	query, args := sb.Build()
	var gym models.SourceGym
	if err := r.q(ctx).GetContext(ctx, &gym, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("source gym %s/%s not found", org, externalID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get source gym")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get source gym")
	}

	return &gym, nil
}

// ListByOrg retrieves every source gym reported by one federation
func (r *Repository) ListByOrg(ctx context.Context, org models.Org) ([]models.SourceGym, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcegym.Repository.ListByOrg")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("source_gyms")
	sb.Where(sb.Equal("org", org))
	sb.OrderBy("external_id")

	query, args := sb.Build()
	var gyms []models.SourceGym
	if err := r.q(ctx).SelectContext(ctx, &gyms, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list source gyms by org")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list source gyms")
	}

	return gyms, nil
}

// ListLinked retrieves every source gym linked to a master gym
func (r *Repository) ListLinked(ctx context.Context, masterGymID string) ([]models.SourceGym, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcegym.Repository.ListLinked")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("source_gyms")
	sb.Where(sb.Equal("master_gym_id", masterGymID))
	sb.OrderBy("org", "external_id")

	query, args := sb.Build()
	var gyms []models.SourceGym
	if err := r.q(ctx).SelectContext(ctx, &gyms, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list linked source gyms")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list linked source gyms")
	}

	return gyms, nil
}

// ListAllLinked retrieves every linked source gym across all orgs.
// This is the match candidate pool for a sync run.
func (r *Repository) ListAllLinked(ctx context.Context) ([]models.SourceGym, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcegym.Repository.ListAllLinked")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("source_gyms")
	sb.Where("master_gym_id IS NOT NULL")
	sb.OrderBy("org", "external_id")

	query, args := sb.Build()
	var gyms []models.SourceGym
	if err := r.q(ctx).SelectContext(ctx, &gyms, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list linked source gyms")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list linked source gyms")
	}

	return gyms, nil
}

// SetMasterGymID links a source gym to a master gym
func (r *Repository) SetMasterGymID(ctx context.Context, org models.Org, externalID string, masterGymID string) error {
	ctx, span := tracing.StartSpan(ctx, "sourcegym.Repository.SetMasterGymID")
	defer span.End()

	return r.updateLink(ctx, org, externalID, &masterGymID)
}

// ClearMasterGymID unlinks a source gym from its master gym
func (r *Repository) ClearMasterGymID(ctx context.Context, org models.Org, externalID string) error {
	ctx, span := tracing.StartSpan(ctx, "sourcegym.Repository.ClearMasterGymID")
	defer span.End()

	return r.updateLink(ctx, org, externalID, nil)
}

func (r *Repository) updateLink(ctx context.Context, org models.Org, externalID string, masterGymID *string) error {
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("source_gyms")
	sb.Set(
		sb.Assign("master_gym_id", masterGymID),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("org", org),
		sb.Equal("external_id", externalID),
	)

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"org":         org,
			"external_id": externalID,
		}).Error("Failed to update source gym link")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update source gym link")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("source gym %s/%s not found", org, externalID))
	}

	return nil
}
