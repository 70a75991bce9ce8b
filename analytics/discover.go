package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/outreach-analytics/cache"
)

const cacheKindDates = "dates"

// =============================================================================
// EXISTENCE DISCOVERER - Which days actually have data?
// =============================================================================

// Discoverer answers which calendar days in a range have a stored record.
// The store is sparse: field operations do not run every day, so the nominal
// range and the existing-dates list routinely differ.
type Discoverer struct {
	Store  DocumentStore
	Dates  *cache.Cache[[]DateKey]
	Logger *zap.Logger
}

// NewDiscoverer wires a Discoverer with a dates cache on the given substrate.
func NewDiscoverer(store DocumentStore, sub cache.Substrate, ttl time.Duration, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		Store:  store,
		Dates:  cache.New[[]DateKey](sub, ttl),
		Logger: logger,
	}
}

// ExistingDates returns the ascending list of dates in [a, b] (either order)
// that have a stored daily summary. Successful answers are cached under the
// window key, so a repeat request within the TTL costs zero range queries.
//
// Fail-open policy: on a range-query failure the discoverer logs a warning
// and returns an empty list, uncached so the next request retries the store.
// Downstream treats the window as having zero data; a reporting path must
// degrade, never abort.
func (d *Discoverer) ExistingDates(ctx context.Context, a, b DateKey) []DateKey {
	r := NormalizeRange(a, b)
	key := cache.Key(cacheKindDates, string(r.Start), string(r.End))

	if d.Dates != nil {
		if dates, ok := d.Dates.Get(key); ok {
			return dates
		}
	}

	dates, err := d.Store.ListSummaryDates(ctx, r.Start, r.End)
	if err != nil {
		d.logger().Warn("existing-dates range query failed, treating window as empty",
			zap.String("start", string(r.Start)),
			zap.String("end", string(r.End)),
			zap.Error(err))
		return nil
	}

	if d.Dates != nil {
		d.Dates.Set(key, dates)
	}
	return dates
}

// Invalidate drops the cached dates list for a window (forced refresh).
func (d *Discoverer) Invalidate(r DateRange) {
	if d.Dates != nil {
		d.Dates.Delete(cache.Key(cacheKindDates, string(r.Start), string(r.End)))
	}
}

func (d *Discoverer) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
