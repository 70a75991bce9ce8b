/*
fetch.go - Batched retrieval of daily summaries and member detail records

PURPOSE:
  Given the list of dates that actually exist, retrieve each day's summary
  document and per-member detail rows in bounded-size chunks: one chunk in
  flight at a time, full parallelism within a chunk. Summary and detail
  retrieval for a window run in parallel with each other.

CACHING:
  Successful window results are written through the TTL cache keyed by
  (kind, start, end). A cache hit on a prior request for the same window
  short-circuits the store entirely.

FAILURE POLICY:
  A point-read failure for an individual date is logged and skipped; that day
  contributes zero to totals and is not retried. Cancellation of the request
  context fails the whole fetch: a partial window must never be written to
  the cache, where it would serve healthy requests until the TTL elapses.

SEE ALSO:
  - discover.go: Produces the existing-dates input
  - cache/cache.go: TTL semantics
*/
package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fieldops/outreach-analytics/cache"
)

// DefaultChunkSize bounds how many point-reads run concurrently. The store
// tolerates a couple dozen parallel reads comfortably; beyond that latency
// wins flatten out.
const DefaultChunkSize = 20

// Cache key kinds. Key construction is centralized in cache.Key.
const (
	cacheKindSummaries = "summaries"
	cacheKindDetails   = "details"
)

// =============================================================================
// FETCHER
// =============================================================================

// Fetcher retrieves window data through the TTL cache.
type Fetcher struct {
	Store     DocumentStore
	Summaries *cache.Cache[map[DateKey]DailySummary]
	Details   *cache.Cache[[]MemberDailyRecord]
	ChunkSize int
	Logger    *zap.Logger
}

// NewFetcher wires a Fetcher with caches on the given substrate.
func NewFetcher(store DocumentStore, sub cache.Substrate, ttl time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Store:     store,
		Summaries: cache.New[map[DateKey]DailySummary](sub, ttl),
		Details:   cache.New[[]MemberDailyRecord](sub, ttl),
		ChunkSize: DefaultChunkSize,
		Logger:    logger,
	}
}

// FetchWindow retrieves the summaries map and the flattened, date-annotated
// detail records for a window. dates is the existing-dates list for
// [r.Start, r.End]; the range itself keys the cache so identical windows
// within the TTL cost zero store reads.
func (f *Fetcher) FetchWindow(ctx context.Context, r DateRange, dates []DateKey) (map[DateKey]DailySummary, []MemberDailyRecord, error) {
	sumKey := cache.Key(cacheKindSummaries, string(r.Start), string(r.End))
	detKey := cache.Key(cacheKindDetails, string(r.Start), string(r.End))

	summaries, sumHit := f.Summaries.Get(sumKey)
	details, detHit := f.Details.Get(detKey)
	if sumHit && detHit {
		return summaries, details, nil
	}

	// Summary and detail retrieval are independent reads; overlap them.
	g, gctx := errgroup.WithContext(ctx)
	if !sumHit {
		g.Go(func() error {
			var err error
			summaries, err = f.fetchSummaries(gctx, dates)
			return err
		})
	}
	if !detHit {
		g.Go(func() error {
			var err error
			details, err = f.fetchDetails(gctx, dates)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		// Only cancellation reaches here; individual read failures are
		// swallowed per the skip policy.
		return nil, nil, err
	}

	if !sumHit {
		f.Summaries.Set(sumKey, summaries)
	}
	if !detHit {
		f.Details.Set(detKey, details)
	}
	return summaries, details, nil
}

// Invalidate drops the cached results for a window (forced refresh).
func (f *Fetcher) Invalidate(r DateRange) {
	f.Summaries.Delete(cache.Key(cacheKindSummaries, string(r.Start), string(r.End)))
	f.Details.Delete(cache.Key(cacheKindDetails, string(r.Start), string(r.End)))
}

// =============================================================================
// CHUNKED POINT-READS
// =============================================================================

func (f *Fetcher) fetchSummaries(ctx context.Context, dates []DateKey) (map[DateKey]DailySummary, error) {
	summaries := make(map[DateKey]DailySummary, len(dates))
	var mu sync.Mutex

	err := f.eachChunk(ctx, dates, func(ctx context.Context, date DateKey) {
		s, err := f.Store.GetDailySummary(ctx, date)
		if err != nil {
			// Reads that failed because the request was cancelled are not
			// skipped dates; eachChunk surfaces the cancellation itself.
			if ctx.Err() == nil {
				f.logger().Warn("summary point-read failed, skipping date",
					zap.String("date", string(date)), zap.Error(err))
			}
			return
		}
		if s == nil {
			return
		}
		s.Date = date
		mu.Lock()
		summaries[date] = *s
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (f *Fetcher) fetchDetails(ctx context.Context, dates []DateKey) ([]MemberDailyRecord, error) {
	perDate := make(map[DateKey][]MemberDailyRecord, len(dates))
	var mu sync.Mutex

	err := f.eachChunk(ctx, dates, func(ctx context.Context, date DateKey) {
		records, err := f.Store.ListMemberRecords(ctx, date)
		if err != nil {
			if ctx.Err() == nil {
				f.logger().Warn("detail scan failed, skipping date",
					zap.String("date", string(date)), zap.Error(err))
			}
			return
		}
		// Annotate each record with its source date before flattening.
		for i := range records {
			records[i].Date = date
		}
		mu.Lock()
		perDate[date] = records
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	// Flatten in date order for deterministic downstream iteration.
	ordered := make([]DateKey, 0, len(perDate))
	for date := range perDate {
		ordered = append(ordered, date)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var flat []MemberDailyRecord
	for _, date := range ordered {
		flat = append(flat, perDate[date]...)
	}
	return flat, nil
}

// eachChunk runs fn over dates in fixed-size chunks: the chunk's reads run in
// parallel, chunks themselves run one at a time. Cancellation is checked
// between chunks and again after the last one, so a request cancelled while a
// chunk is in flight surfaces as an error instead of a truncated result. The
// skip policy covers store faults only, never cancellation.
func (f *Fetcher) eachChunk(ctx context.Context, dates []DateKey, fn func(context.Context, DateKey)) error {
	size := f.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	for start := 0; start < len(dates); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + size
		if end > len(dates) {
			end = len(dates)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, date := range dates[start:end] {
			date := date
			g.Go(func() error {
				fn(gctx, date)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
