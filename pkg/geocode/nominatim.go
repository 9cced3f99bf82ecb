package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/tracing"
)

// ErrNotFound means the provider answered but matched no place.
var ErrNotFound = errors.New("no geocode result for venue")

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// NominatimConfig holds nominatim client configuration.
type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Nominatim is a geocoder backed by the OpenStreetMap nominatim API.
type Nominatim struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    ectologger.Logger
}

// NewNominatim creates a nominatim geocoder
func NewNominatim(cfg NominatimConfig, logger ectologger.Logger) *Nominatim {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Nominatim{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

type nominatimResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	PlaceRank   int     `json:"place_rank"`
	Importance  float64 `json:"importance"`
}

// Geocode queries the search endpoint with "venue, city, country" and
// maps the best hit's place rank to a confidence tier. Street-level or
// finer (rank >= 26) is high, anything coarser is low.
func (n *Nominatim) Geocode(ctx context.Context, venueName, city, country string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "geocode.Nominatim.Geocode")
	defer span.End()

	query := venueName
	if city != "" {
		query = fmt.Sprintf("%s, %s", query, city)
	}
	if country != "" {
		query = fmt.Sprintf("%s, %s", query, country)
	}

	endpoint := fmt.Sprintf("%s/search?limit=3&format=jsonv2&q=%s", n.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build nominatim request")
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	res, err := n.client.Do(req)
	if err != nil {
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"query": query,
		}).Error("Nominatim request failed")
		return nil, errors.Wrap(err, "nominatim request failed")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("nominatim returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read nominatim response")
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, errors.Wrap(err, "failed to decode nominatim response")
	}

	if len(results) == 0 {
		return nil, ErrNotFound
	}

	best := results[0]
	lat, err := strconv.ParseFloat(best.Lat, 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid latitude in nominatim response")
	}
	lng, err := strconv.ParseFloat(best.Lon, 64)
	if err != nil {
		return nil, errors.Wrap(err, "invalid longitude in nominatim response")
	}

	confidence := confidenceForRank(best.PlaceRank)

	n.logger.WithContext(ctx).WithFields(map[string]any{
		"query":      query,
		"lat":        lat,
		"lng":        lng,
		"confidence": confidence,
	}).Debug("Geocoded venue")

	return &Result{Lat: lat, Lng: lng, Confidence: confidence}, nil
}

func confidenceForRank(placeRank int) models.GeocodeConfidence {
	if placeRank >= 26 {
		return models.GeocodeConfidenceHigh
	}
	return models.GeocodeConfidenceLow
}
