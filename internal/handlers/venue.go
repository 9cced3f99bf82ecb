package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/openmat/gymlink/internal/repositories"
	"github.com/openmat/gymlink/pkg/geocode"
	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

// VenueHandler handles venue geocode API requests
type VenueHandler struct {
	resolver *geocode.Resolver
	cache    repositories.VenueCacheRepo
}

// NewVenueHandler creates a new venue handler
func NewVenueHandler(resolver *geocode.Resolver, cache repositories.VenueCacheRepo) *VenueHandler {
	return &VenueHandler{
		resolver: resolver,
		cache:    cache,
	}
}

// OverrideVenueRequest pins a venue to operator-supplied coordinates
type OverrideVenueRequest struct {
	VenueName string  `json:"venue_name" validate:"required"`
	City      string  `json:"city" validate:"required"`
	Lat       float64 `json:"lat" validate:"min=-90,max=90"`
	Lng       float64 `json:"lng" validate:"min=-180,max=180"`
}

// RegisterRoutes registers the venue routes
func (h *VenueHandler) RegisterRoutes(g *echo.Group) {
	venues := g.Group("/venues")
	venues.GET("/resolve", h.Resolve)
	venues.PUT("/override", h.Override)
}

// Resolve handles GET /venues/resolve
func (h *VenueHandler) Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "venue_handler.Resolve")
	defer span.End()

	venueName := c.QueryParam("name")
	if venueName == "" {
		return BadRequest("name is required")
	}
	city := c.QueryParam("city")
	country := c.QueryParam("country")

	entry, err := h.resolver.Resolve(ctx, venueName, city, country)
	if err != nil {
		return err
	}

	return SuccessResponse(c, entry)
}

// Override handles PUT /venues/override
func (h *VenueHandler) Override(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "venue_handler.Override")
	defer span.End()

	var req OverrideVenueRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}

	key := models.VenueKey(req.VenueName, req.City)
	entry, err := h.cache.SetManualOverride(ctx, key, req.Lat, req.Lng)
	if err != nil {
		return err
	}

	return SuccessResponse(c, entry)
}
