package mastergym

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/openmat/gymlink/pkg/database"
	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

const columns = "id, canonical_name, search_key, city, country, address, website, created_at, updated_at"

// Repository handles master gym persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new master gym repository
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

// Create inserts a master gym. The search key is derived from the
// canonical name here, never taken from the caller.
func (r *Repository) Create(ctx context.Context, master *models.MasterGym) (*models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "mastergym.Repository.Create")
	defer span.End()

	if master.ID == "" {
		master.ID = uuid.New().String()
	}
	master.SearchKey = strings.ToLower(master.CanonicalName)
	master.CreatedAt = time.Now().UTC()
	master.UpdatedAt = master.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("master_gyms")
	sb.Cols("id", "canonical_name", "search_key", "city", "country", "address", "website", "created_at", "updated_at")
	sb.Values(master.ID, master.CanonicalName, master.SearchKey, master.City, master.Country, master.Address, master.Website, master.CreatedAt, master.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.q(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"master_gym_id": master.ID,
		}).Error("Failed to create master gym")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create master gym")
	}

	return master, nil
}

// Get retrieves a master gym by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "mastergym.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("master_gyms")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var master models.MasterGym
	if err := r.q(ctx).GetContext(ctx, &master, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("master gym %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get master gym")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get master gym")
	}

	return &master, nil
}

// List retrieves master gyms ordered by canonical name
func (r *Repository) List(ctx context.Context, limit int, offset int) ([]models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "mastergym.Repository.List")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("master_gyms")
	sb.OrderBy("canonical_name")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var masters []models.MasterGym
	if err := r.q(ctx).SelectContext(ctx, &masters, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list master gyms")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list master gyms")
	}

	return masters, nil
}

// SearchByPrefix retrieves master gyms whose search key starts with the
// given prefix, case-insensitively.
func (r *Repository) SearchByPrefix(ctx context.Context, prefix string, limit int) ([]models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "mastergym.Repository.SearchByPrefix")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("master_gyms")
	sb.Where(sb.Like("search_key", escapeLike(strings.ToLower(prefix))+"%"))
	sb.OrderBy("search_key")
	sb.Limit(limit)

	query, args := sb.Build()
	var masters []models.MasterGym
	if err := r.q(ctx).SelectContext(ctx, &masters, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search master gyms")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search master gyms")
	}

	return masters, nil
}

// Rename updates the canonical name and re-derives the search key in
// the same statement so the two can never drift apart.
func (r *Repository) Rename(ctx context.Context, id string, canonicalName string) (*models.MasterGym, error) {
	ctx, span := tracing.StartSpan(ctx, "mastergym.Repository.Rename")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("master_gyms")
	sb.Set(
		sb.Assign("canonical_name", canonicalName),
		sb.Assign("search_key", strings.ToLower(canonicalName)),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"master_gym_id": id,
		}).Error("Failed to rename master gym")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to rename master gym")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("master gym %s not found", id))
	}

	return r.Get(ctx, id)
}

// escapeLike escapes LIKE wildcards so a literal prefix stays literal.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
