// Package resolve provides a small cache-or-compute helper used by the
// venue geocode resolver.
package resolve

import "context"

// Cache is the lookup/store surface Through works against. Lookup
// returning (zero, false, nil) is a miss.
type Cache[K comparable, V any] interface {
	Lookup(ctx context.Context, key K) (V, bool, error)
	Store(ctx context.Context, key K, value V) error
}

// Through returns the cached value for key, computing and storing it on
// a miss. fresh decides whether a hit is still usable; a stale hit is
// recomputed like a miss. A failed Store does not discard a computed
// value.
func Through[K comparable, V any](ctx context.Context, cache Cache[K, V], key K, fresh func(V) bool, compute func(ctx context.Context) (V, error)) (V, error) {
	value, ok, err := cache.Lookup(ctx, key)
	if err != nil {
		return value, err
	}
	if ok && (fresh == nil || fresh(value)) {
		return value, nil
	}

	computed, err := compute(ctx)
	if err != nil {
		return computed, err
	}

	if storeErr := cache.Store(ctx, key, computed); storeErr != nil {
		return computed, nil
	}
	return computed, nil
}
