package venuecache

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

const columns = "venue_key, venue_name, city, lat, lng, confidence, manual_override, fetched_at, updated_at"

// Repository handles venue geocode cache persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new venue cache repository
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

// Get retrieves a cache entry by venue key. A miss is (nil, nil).
func (r *Repository) Get(ctx context.Context, venueKey string) (*models.VenueCacheEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "venuecache.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("venue_cache")
	sb.Where(sb.Equal("venue_key", venueKey))

	query, args := sb.Build()
	var entry models.VenueCacheEntry
	if err := r.q(ctx).GetContext(ctx, &entry, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get venue cache entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get venue cache entry")
	}

	return &entry, nil
}

// Upsert writes a geocode result. An entry under manual override is
// never replaced by a fresh provider result.
func (r *Repository) Upsert(ctx context.Context, entry *models.VenueCacheEntry) (*models.VenueCacheEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "venuecache.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	entry.UpdatedAt = now
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = now
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("venue_cache")
	ib.Cols("venue_key", "venue_name", "city", "lat", "lng", "confidence", "manual_override", "fetched_at", "updated_at")
	ib.Values(entry.VenueKey, entry.VenueName, entry.City, entry.Lat, entry.Lng, entry.Confidence, false, entry.FetchedAt, entry.UpdatedAt)

	ub := ib.OnConflict("venue_key")
	ub.Set(
		ub.Assign("lat", database.Excluded("lat")),
		ub.Assign("lng", database.Excluded("lng")),
		ub.Assign("confidence", database.Excluded("confidence")),
		ub.Assign("fetched_at", database.Excluded("fetched_at")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)
	ub.Where("venue_cache.manual_override = FALSE")

	query, args := ib.Build()
	if _, err := r.q(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"venue_key": entry.VenueKey,
		}).Error("Failed to upsert venue cache entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert venue cache entry")
	}

	return r.mustGet(ctx, entry.VenueKey)
}

// SetManualOverride pins an entry to operator-supplied coordinates.
// Overridden entries report high confidence and are immune to refresh.
func (r *Repository) SetManualOverride(ctx context.Context, venueKey string, lat, lng float64) (*models.VenueCacheEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "venuecache.Repository.SetManualOverride")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("venue_cache")
	sb.Set(
		sb.Assign("lat", lat),
		sb.Assign("lng", lng),
		sb.Assign("confidence", models.GeocodeConfidenceHigh),
		sb.Assign("manual_override", true),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("venue_key", venueKey))

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"venue_key": venueKey,
		}).Error("Failed to set venue manual override")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to set venue manual override")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("venue %s not found", venueKey))
	}

	return r.mustGet(ctx, venueKey)
}

func (r *Repository) mustGet(ctx context.Context, venueKey string) (*models.VenueCacheEntry, error) {
	entry, err := r.Get(ctx, venueKey)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("venue %s not found", venueKey))
	}
	return entry, nil
}
