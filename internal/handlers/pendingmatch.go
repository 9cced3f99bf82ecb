package handlers

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/openmat/gymlink/internal/repositories"
	"github.com/openmat/gymlink/pkg/database"
	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/registry"
	"github.com/openmat/gymlink/pkg/tracing"
)

// MatchEmitter publishes match lifecycle events.
type MatchEmitter interface {
	EmitMatchPending(ctx context.Context, match *models.PendingMatch)
	EmitMatchResolved(ctx context.Context, match *models.PendingMatch, reviewedBy string)
}

// PendingMatchHandler handles the match review queue API requests
type PendingMatchHandler struct {
	db       database.DB
	pending  repositories.PendingMatchRepo
	sources  repositories.SourceGymRepo
	registry *registry.Service
	emitter  MatchEmitter
}

// NewPendingMatchHandler creates a new pending match handler
func NewPendingMatchHandler(db database.DB, pending repositories.PendingMatchRepo, sources repositories.SourceGymRepo, reg *registry.Service, emitter MatchEmitter) *PendingMatchHandler {
	return &PendingMatchHandler{
		db:       db,
		pending:  pending,
		sources:  sources,
		registry: reg,
		emitter:  emitter,
	}
}

// SubmitMatchRequest is a free-text gym claim from user onboarding: the
// submitter names their gym and the review queue decides where it lands.
type SubmitMatchRequest struct {
	Org           models.Org `json:"org" validate:"required"`
	ExternalID    string     `json:"external_id" validate:"required"`
	SubmittedName string     `json:"submitted_name" validate:"required"`
}

// RegisterRoutes registers the pending match routes
func (h *PendingMatchHandler) RegisterRoutes(g *echo.Group) {
	matches := g.Group("/matches")
	matches.GET("", h.ListPending)
	matches.POST("", h.Submit)
	matches.GET("/:id", h.Get)
	matches.POST("/:id/resolve", h.Resolve)
}

// ListPending handles GET /matches
func (h *PendingMatchHandler) ListPending(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pendingmatch_handler.ListPending")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	matches, err := h.pending.ListPending(ctx, limit)
	if err != nil {
		return err
	}

	return SuccessResponse(c, matches)
}

// Get handles GET /matches/:id
func (h *PendingMatchHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pendingmatch_handler.Get")
	defer span.End()

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}

	match, err := h.pending.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, match)
}

// Submit handles POST /matches. The claimed source gym must exist; the
// queued match carries the submitted free-text name and no candidate.
func (h *PendingMatchHandler) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pendingmatch_handler.Submit")
	defer span.End()

	var req SubmitMatchRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}
	if !req.Org.IsValid() {
		return BadRequest("unknown org")
	}

	gym, err := h.sources.Get(ctx, req.Org, req.ExternalID)
	if err != nil {
		return err
	}

	match := &models.PendingMatch{
		Org:              gym.Org,
		SourceExternalID: gym.ExternalID,
		SourceName:       gym.Name,
		SubmittedName:    &req.SubmittedName,
	}

	created, err := h.pending.Create(ctx, match)
	if err != nil {
		return err
	}

	if h.emitter != nil {
		h.emitter.EmitMatchPending(ctx, created)
	}

	return CreatedResponse(c, created)
}

// Resolve handles POST /matches/:id/resolve. The link target is
// validated before the pending row is claimed, and the claim and the
// link commit in one transaction; a failed link releases the claim so
// the match can be resolved again.
func (h *PendingMatchHandler) Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "pendingmatch_handler.Resolve")
	defer span.End()

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}

	reviewer, err := GetReviewer(c)
	if err != nil {
		return err
	}

	var req models.ResolvePendingMatchRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	approve := req.MasterGymID != "" || req.CreateNew
	status := models.PendingMatchStatusRejected
	if approve {
		status = models.PendingMatchStatusApproved
	}

	var gym *models.SourceGym
	if approve {
		match, err := h.pending.GetByID(ctx, id)
		if err != nil {
			return err
		}
		gym, err = h.sources.Get(ctx, match.Org, match.SourceExternalID)
		if err != nil {
			return err
		}
		if !req.CreateNew {
			if _, err := h.registry.GetMaster(ctx, req.MasterGymID); err != nil {
				return err
			}
		}
	}

	txCtx, tx, err := h.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	resolved, err := h.pending.Resolve(txCtx, id, status, reviewer)
	if err != nil {
		return err
	}

	if approve {
		if req.CreateNew {
			if _, err := h.registry.CreateMasterFromSource(txCtx, gym); err != nil {
				return err
			}
		} else {
			if err := h.registry.LinkGym(txCtx, resolved.Org, resolved.SourceExternalID, req.MasterGymID, resolved.Score); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	if h.emitter != nil {
		h.emitter.EmitMatchResolved(ctx, resolved, reviewer)
	}

	return SuccessResponse(c, resolved)
}
