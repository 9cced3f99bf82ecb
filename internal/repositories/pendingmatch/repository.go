package pendingmatch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/openmat/gymlink/pkg/database"
	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

const columns = "id, org, source_external_id, source_name, candidate_master_gym_id, submitted_name, score, status, created_at, updated_at, resolved_at, resolved_by"

// Repository handles pending match persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new pending match repository
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

// Create inserts a pending match. A duplicate of the same unresolved
// (org, source, candidate) triple keeps whichever score is higher
// instead of queueing twice.
func (r *Repository) Create(ctx context.Context, match *models.PendingMatch) (*models.PendingMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingmatch.Repository.Create")
	defer span.End()

	if match.ID == "" {
		match.ID = uuid.New().String()
	}
	match.Status = models.PendingMatchStatusPending
	match.CreatedAt = time.Now().UTC()
	match.UpdatedAt = match.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("pending_matches")
	sb.Cols("id", "org", "source_external_id", "source_name", "candidate_master_gym_id", "submitted_name", "score", "status", "created_at", "updated_at")
	sb.Values(match.ID, match.Org, match.SourceExternalID, match.SourceName, match.CandidateMasterGymID, match.SubmittedName, match.Score, match.Status, match.CreatedAt, match.UpdatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (org, source_external_id, candidate_master_gym_id) WHERE status = 'pending' DO UPDATE SET score = GREATEST(pending_matches.score, EXCLUDED.score), updated_at = EXCLUDED.updated_at"

	if _, err := r.q(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"org":                match.Org,
			"source_external_id": match.SourceExternalID,
		}).Error("Failed to create pending match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create pending match")
	}

	return match, nil
}

// GetByID retrieves a pending match by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.PendingMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingmatch.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("pending_matches")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var match models.PendingMatch
	if err := r.q(ctx).GetContext(ctx, &match, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pending match %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get pending match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get pending match")
	}

	return &match, nil
}

// ListPending retrieves unresolved matches for review, highest score
// first.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]models.PendingMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingmatch.Repository.ListPending")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("pending_matches")
	sb.Where(sb.Equal("status", models.PendingMatchStatusPending))
	sb.OrderBy("score DESC", "created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var matches []models.PendingMatch
	if err := r.q(ctx).SelectContext(ctx, &matches, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending matches")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending matches")
	}

	return matches, nil
}

// Resolve transitions a pending match to approved or rejected. The
// status guard in the WHERE clause makes resolution single-shot: a
// second reviewer hitting an already-resolved match gets a conflict.
func (r *Repository) Resolve(ctx context.Context, id string, status string, resolvedBy string) (*models.PendingMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "pendingmatch.Repository.Resolve")
	defer span.End()

	if status != models.PendingMatchStatusApproved && status != models.PendingMatchStatusRejected {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid resolution status %q", status))
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("pending_matches")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolved_at", now),
		sb.Assign("resolved_by", resolvedBy),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("status", models.PendingMatchStatusPending),
	)

	query, args := sb.Build()
	result, err := r.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"pending_match_id": id,
		}).Error("Failed to resolve pending match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve pending match")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("pending match %s already resolved as %s", id, existing.Status))
	}

	return r.GetByID(ctx, id)
}
