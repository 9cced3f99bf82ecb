package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/registry"
	"github.com/openmat/gymlink/pkg/tracing"
)

// GraphSourceReader reads link state from the graph projection.
type GraphSourceReader interface {
	LinkedSources(ctx context.Context, masterGymID string) ([]models.SourceRef, error)
}

// MasterGymHandler handles master gym registry API requests
type MasterGymHandler struct {
	registry *registry.Service
	graph    GraphSourceReader
}

// NewMasterGymHandler creates a new master gym handler. graph may be
// nil when the projection is disabled.
func NewMasterGymHandler(registry *registry.Service, graph GraphSourceReader) *MasterGymHandler {
	return &MasterGymHandler{
		registry: registry,
		graph:    graph,
	}
}

// LinkGymRequest is the request body for linking a source gym
type LinkGymRequest struct {
	Org        models.Org `json:"org" validate:"required"`
	ExternalID string     `json:"external_id" validate:"required"`
}

// RegisterRoutes registers the master gym routes
func (h *MasterGymHandler) RegisterRoutes(g *echo.Group) {
	masters := g.Group("/masters")
	masters.POST("", h.Create)
	masters.GET("", h.List)
	masters.GET("/search", h.Search)
	masters.GET("/:id", h.Get)
	masters.PUT("/:id/name", h.Rename)
	masters.GET("/:id/sources", h.ListSources)
	masters.GET("/:id/sources/graph", h.ListSourcesGraph)
	masters.POST("/:id/sources", h.LinkSource)
	masters.DELETE("/:id/sources/:org/:external_id", h.UnlinkSource)
}

// Create handles POST /masters
func (h *MasterGymHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mastergym_handler.Create")
	defer span.End()

	var req models.CreateMasterGymRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	master, err := h.registry.CreateMaster(ctx, &req)
	if err != nil {
		return err
	}

	return CreatedResponse(c, master)
}

// List handles GET /masters
func (h *MasterGymHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mastergym_handler.List")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	masters, err := h.registry.ListMasters(ctx, limit, offset)
	if err != nil {
		return err
	}

	return SuccessResponse(c, masters)
}

// Search handles GET /masters/search
func (h *MasterGymHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mastergym_handler.Search")
	defer span.End()

	prefix := c.QueryParam("q")
	if prefix == "" {
		return BadRequest("q is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	masters, err := h.registry.SearchMasters(ctx, prefix, limit)
	if err != nil {
		return err
	}

	return SuccessResponse(c, masters)
}

// Get handles GET /masters/:id
func (h *MasterGymHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mastergym_handler.Get")
	defer span.End()

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}

	master, err := h.registry.GetMaster(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, master)
}

// Rename handles PUT /masters/:id/name
func (h *MasterGymHandler) Rename(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mastergym_handler.Rename")
	defer span.End()

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}

	var req models.RenameMasterGymRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	master, err := h.registry.RenameMaster(ctx, id, &req)
	if err != nil {
		return err
	}

	return SuccessResponse(c, master)
}

// ListSources handles GET /masters/:id/sources
func (h *MasterGymHandler) ListSources(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mastergym_handler.ListSources")
	defer span.End()

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}

	sources, err := h.registry.ListLinkedSources(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, sources)
}

// ListSourcesGraph handles GET /masters/:id/sources/graph. It reads
// the link edges from the graph projection instead of postgres, so
// drift between the two shows up here.
func (h *MasterGymHandler) ListSourcesGraph(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mastergym_handler.ListSourcesGraph")
	defer span.End()

	if h.graph == nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "graph projection is not enabled")
	}

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.registry.GetMaster(ctx, id); err != nil {
		return err
	}

	refs, err := h.graph.LinkedSources(ctx, id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, refs)
}

// LinkSource handles POST /masters/:id/sources
func (h *MasterGymHandler) LinkSource(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mastergym_handler.LinkSource")
	defer span.End()

	id, err := RequireParam(c, "id")
	if err != nil {
		return err
	}

	var req LinkGymRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}
	if !req.Org.IsValid() {
		return BadRequest("unknown org")
	}

	// Manual links carry full confidence.
	if err := h.registry.LinkGym(ctx, req.Org, req.ExternalID, id, 100); err != nil {
		return err
	}

	return NoContentResponse(c)
}

// UnlinkSource handles DELETE /masters/:id/sources/:org/:external_id
func (h *MasterGymHandler) UnlinkSource(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "mastergym_handler.UnlinkSource")
	defer span.End()

	org, err := ParseOrg(c, "org")
	if err != nil {
		return err
	}
	externalID, err := RequireParam(c, "external_id")
	if err != nil {
		return err
	}

	if err := h.registry.UnlinkGym(ctx, org, externalID); err != nil {
		return err
	}

	return NoContentResponse(c)
}
