package geocode

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/openmat/gymlink/internal/repositories"
	"github.com/openmat/gymlink/pkg/models"
	"github.com/openmat/gymlink/pkg/resolve"
	"github.com/openmat/gymlink/pkg/tracing"
)

// ResolverConfig holds venue resolver configuration. FailedTTL bounds
// how long a cached failure suppresses provider retries.
type ResolverConfig struct {
	FailedTTL time.Duration
}

// DefaultResolverConfig returns sensible defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		FailedTTL: 7 * 24 * time.Hour,
	}
}

// Resolver answers venue coordinate lookups cache-first. Successful
// results and failures are both cached; a failure entry is retried
// against the provider once it ages past FailedTTL, a success entry is
// served forever unless an operator overrides it.
type Resolver struct {
	cache    repositories.VenueCacheRepo
	geocoder Geocoder
	cfg      ResolverConfig
	logger   ectologger.Logger
	now      func() time.Time
}

// NewResolver creates a venue resolver
func NewResolver(cache repositories.VenueCacheRepo, geocoder Geocoder, cfg ResolverConfig, logger ectologger.Logger) *Resolver {
	return &Resolver{
		cache:    cache,
		geocoder: geocoder,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve returns the cached or freshly geocoded entry for a venue.
// Provider misses come back as a cached entry with failed confidence,
// not an error.
func (r *Resolver) Resolve(ctx context.Context, venueName, city, country string) (*models.VenueCacheEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "geocode.Resolver.Resolve")
	defer span.End()

	key := models.VenueKey(venueName, city)

	entry, err := resolve.Through(ctx, r.cacheAdapter(), key, r.fresh, func(ctx context.Context) (*models.VenueCacheEntry, error) {
		return r.fetch(ctx, key, venueName, city, country)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *Resolver) fresh(entry *models.VenueCacheEntry) bool {
	if entry.ManualOverride || entry.Confidence != models.GeocodeConfidenceFailed {
		return true
	}
	return r.now().UTC().Sub(entry.FetchedAt) < r.cfg.FailedTTL
}

func (r *Resolver) fetch(ctx context.Context, key, venueName, city, country string) (*models.VenueCacheEntry, error) {
	result, err := r.geocoder.Geocode(ctx, venueName, city, country)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	entry := &models.VenueCacheEntry{
		VenueKey:  key,
		VenueName: venueName,
		City:      city,
		FetchedAt: r.now().UTC(),
	}
	if err != nil {
		entry.Confidence = models.GeocodeConfidenceFailed
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"venue_key": key,
		}).Warn("Venue geocode matched nothing, caching failure")
	} else {
		entry.Lat = result.Lat
		entry.Lng = result.Lng
		entry.Confidence = result.Confidence
	}

	return entry, nil
}

type venueCacheAdapter struct {
	resolver *Resolver
}

func (r *Resolver) cacheAdapter() resolve.Cache[string, *models.VenueCacheEntry] {
	return &venueCacheAdapter{resolver: r}
}

func (a *venueCacheAdapter) Lookup(ctx context.Context, key string) (*models.VenueCacheEntry, bool, error) {
	entry, err := a.resolver.cache.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return entry, entry != nil, nil
}

func (a *venueCacheAdapter) Store(ctx context.Context, key string, entry *models.VenueCacheEntry) error {
	stored, err := a.resolver.cache.Upsert(ctx, entry)
	if err != nil {
		a.resolver.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"venue_key": key,
		}).Warn("Failed to store venue cache entry")
		return err
	}
	*entry = *stored
	return nil
}
