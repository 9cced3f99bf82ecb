package handlers

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	appctx "github.com/openmat/gymlink/pkg/context"
	"github.com/openmat/gymlink/pkg/models"
)

var validate = validator.New()

// ParseOrg parses a federation identifier from a path parameter
func ParseOrg(c echo.Context, param string) (models.Org, error) {
	org := models.Org(c.Param(param))
	if !org.IsValid() {
		return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown org %q", string(org))
	}
	return org, nil
}

// RequireParam returns a non-empty path parameter
func RequireParam(c echo.Context, param string) (string, error) {
	value := c.Param(param)
	if value == "" {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "missing "+param)
	}
	return value, nil
}

// GetReviewer extracts the acting user's identity from context. Match
// resolutions are audited, so the header is mandatory on those routes.
func GetReviewer(c echo.Context) (string, error) {
	userID := appctx.GetUserID(c.Request().Context())
	if userID == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "X-User-ID header is required")
	}
	return userID, nil
}

// SuccessResponse returns a 200 OK with data
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse returns a 201 Created with data
func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

// NoContentResponse returns a 204 No Content
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// BadRequest returns a 400 Bad Request error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}
