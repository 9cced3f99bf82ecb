package models

import (
	"strings"
	"time"
)

// GeocodeConfidence is the coarse precision tag on a resolved venue.
type GeocodeConfidence string

const (
	GeocodeConfidenceHigh   GeocodeConfidence = "high"
	GeocodeConfidenceLow    GeocodeConfidence = "low"
	GeocodeConfidenceFailed GeocodeConfidence = "failed"
)

// VenueCacheEntry is a memoized geocode result keyed by the normalized
// (venue name, city) pair. Failed lookups are cached too, so an
// unfetchable venue does not burn provider quota on every sync; they
// are retried once their entry ages past the resolver's failed-entry TTL.
type VenueCacheEntry struct {
	VenueKey       string            `json:"venue_key" db:"venue_key"`
	VenueName      string            `json:"venue_name" db:"venue_name"`
	City           string            `json:"city" db:"city"`
	Lat            float64           `json:"lat" db:"lat"`
	Lng            float64           `json:"lng" db:"lng"`
	Confidence     GeocodeConfidence `json:"confidence" db:"confidence"`
	ManualOverride bool              `json:"manual_override" db:"manual_override"`
	FetchedAt      time.Time         `json:"fetched_at" db:"fetched_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// VenueKey builds the normalized cache key for a venue lookup.
func VenueKey(venueName, city string) string {
	return strings.ToLower(strings.TrimSpace(venueName)) + "|" + strings.ToLower(strings.TrimSpace(city))
}
