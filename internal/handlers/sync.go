package handlers

import (
	"net/http"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/openmat/gymlink/internal/repositories"
	"github.com/openmat/gymlink/pkg/gymsync"
	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

// SyncHandler handles sync pipeline API requests
type SyncHandler struct {
	orchestrator *gymsync.Orchestrator
	sources      repositories.SourceGymRepo

	mu         sync.RWMutex
	lastReport *models.SyncReport
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(orchestrator *gymsync.Orchestrator, sources repositories.SourceGymRepo) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		sources:      sources,
	}
}

// RegisterRoutes registers the sync routes
func (h *SyncHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sync", h.Run)
	g.GET("/sync/last", h.LastReport)
	sources := g.Group("/sources")
	sources.GET("/:org", h.ListSource)
	sources.GET("/:org/:external_id", h.GetSource)
}

// Run handles POST /sync. The run executes inline and returns the
// aggregated report; sources that failed are inside the report, not an
// HTTP error.
func (h *SyncHandler) Run(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "sync_handler.Run")
	defer span.End()

	report := h.orchestrator.SyncAll(ctx)

	h.mu.Lock()
	h.lastReport = report
	h.mu.Unlock()

	return SuccessResponse(c, report)
}

// LastReport handles GET /sync/last. Only runs triggered through this
// instance's API are remembered.
func (h *SyncHandler) LastReport(c echo.Context) error {
	_, span := tracing.StartSpan(c.Request().Context(), "sync_handler.LastReport")
	defer span.End()

	h.mu.RLock()
	report := h.lastReport
	h.mu.RUnlock()

	if report == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no sync run has completed yet")
	}
	return SuccessResponse(c, report)
}

// ListSource handles GET /sources/:org
func (h *SyncHandler) ListSource(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "sync_handler.ListSource")
	defer span.End()

	org, err := ParseOrg(c, "org")
	if err != nil {
		return err
	}

	gyms, err := h.sources.ListByOrg(ctx, org)
	if err != nil {
		return err
	}

	return SuccessResponse(c, gyms)
}

// GetSource handles GET /sources/:org/:external_id
func (h *SyncHandler) GetSource(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "sync_handler.GetSource")
	defer span.End()

	org, err := ParseOrg(c, "org")
	if err != nil {
		return err
	}
	externalID, err := RequireParam(c, "external_id")
	if err != nil {
		return err
	}

	gym, err := h.sources.Get(ctx, org, externalID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, gym)
}
