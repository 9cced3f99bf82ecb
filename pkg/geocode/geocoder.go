// Package geocode resolves venue names to coordinates through a
// cache-backed geocoding provider.
package geocode

import (
	"context"

	"github.com/openmat/gymlink/pkg/models"
)

// Result is a provider geocode answer.
type Result struct {
	Lat        float64
	Lng        float64
	Confidence models.GeocodeConfidence
}

// Geocoder resolves a venue name plus city (and optional country) to
// coordinates. A lookup that reaches the provider but matches nothing
// returns ErrNotFound.
type Geocoder interface {
	Geocode(ctx context.Context, venueName, city, country string) (*Result, error)
}
