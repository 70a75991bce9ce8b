package analytics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/outreach-analytics/analytics"
	"github.com/fieldops/outreach-analytics/analytics/store"
	"github.com/fieldops/outreach-analytics/cache"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

// seedWeek loads five days of data (Jan 6-10) with one legacy day, a roster,
// and a two-zone topology.
func seedWeek(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	members := []analytics.MemberIdentity{
		{ID: "m-1", Name: "Asha Verma", Assembly: "East", Phone: "9876500001"},
		{ID: "m-2", Name: "Ravi Kumar", Assembly: "West", Phone: "9876500002"},
	}
	for _, m := range members {
		require.NoError(t, mem.PutMember(ctx, m))
	}

	require.NoError(t, mem.PutZone(ctx, analytics.Zone{
		ID: "z-north", Name: "North Zone", Assemblies: []string{"East", "West"},
	}))

	for i := 0; i < 5; i++ {
		date := analytics.DateKey("2025-01-06").AddDays(i)
		records := []analytics.MemberDailyRecord{
			{MemberID: "m-1", Phone: "9876500001", Assembly: "East", TotalPunches: 12, UniqueEntries: 10, DoubleEntries: 1, TripleAndMoreEntries: 1},
			{MemberID: "m-2", Assembly: "West", TotalPunches: 4, UniqueEntries: 4},
		}
		require.NoError(t, mem.PutMemberRecords(ctx, date, records))

		s := analytics.DailySummary{
			Date:                date,
			TotalParam2Values:   40,
			MatchedCount:        30,
			UnidentifiableCount: 5,
			IncorrectCount:      3,
			NoMatchCount:        2,
		}
		if i > 0 {
			// Day one is legacy: no pre-computed totals.
			s.TotalPunches = intPtr(16)
			s.UniqueEntries = intPtr(14)
			s.DoubleEntries = intPtr(1)
			s.TripleAndMoreEntries = intPtr(1)
		}
		require.NoError(t, mem.PutDailySummary(ctx, s))
	}
	return mem
}

func newTestEngine(mem *store.Memory) *analytics.Engine {
	return analytics.NewEngine(mem, mem, mem, cache.NewMemory(), analytics.EngineConfig{}, nil)
}

// =============================================================================
// REPORT ASSEMBLY TESTS
// =============================================================================

func TestBuildReport_CumulativeOverall(t *testing.T) {
	// GIVEN: Five seeded days, one of them legacy
	// WHEN: A cumulative report spans them
	// THEN: Hybrid totals combine both paths, the parts-sum identity holds,
	//       and no sub-segments are emitted

	engine := newTestEngine(seedWeek(t))
	report, err := engine.BuildReport(context.Background(), "2025-01-06", "2025-01-10", analytics.SplitCumulative)
	require.NoError(t, err)

	assert.NotEmpty(t, report.Header.GenerationID)
	assert.Equal(t, analytics.DateKey("2025-01-06"), report.Header.StartDate)
	assert.Nil(t, report.Segments)

	m := report.Overall.Metrics
	assert.Equal(t, 5, m.TotalDatesWithData)
	assert.Equal(t, 4, m.DatesFromPrecomputed)
	assert.Equal(t, 1, m.DatesFromDetails)
	// 4 pre-computed days at 16 plus one legacy day recomputed to 16.
	assert.Equal(t, 80, m.TotalPunches)

	s := report.Overall.Summary
	assert.Equal(t, s.UniqueEntries+s.DuplicateCalls, s.TotalCallsFromParts)
	// Matched 150 of 200 across the window.
	assert.Equal(t, 75.0, s.MatchedPercentage)
	// Day one has no totals at all; matched variants are absent everywhere.
	assert.Contains(t, s.MissingFields, "matched_total_punches")
	assert.NotContains(t, s.MissingFields, "total_punches")
	// Day one's records carry no phone for m-2 plus day one assemblies exist.
	assert.Equal(t, 5, s.RecordsMissingPhone)
}

func TestBuildReport_GroupsMembersIntoZones(t *testing.T) {
	engine := newTestEngine(seedWeek(t))
	report, err := engine.BuildReport(context.Background(), "2025-01-06", "2025-01-10", analytics.SplitCumulative)
	require.NoError(t, err)

	require.Len(t, report.Overall.Assembly, 2)
	assert.Equal(t, "East", report.Overall.Assembly[0].Assembly)
	assert.Equal(t, 60, report.Overall.Assembly[0].TotalPunches)

	require.Len(t, report.Overall.Zones, 1)
	z := report.Overall.Zones[0]
	assert.Equal(t, "North Zone", z.ZoneName)
	// Both assemblies clear the default threshold of 10.
	assert.Len(t, z.Performing, 2)
	assert.Empty(t, z.Underperforming)

	// Identity enrichment reached the grouped members.
	assert.Equal(t, "Asha Verma", z.Performing[0].Members[0].Name)
}

func TestBuildReport_DaySplitEmitsOneSegmentPerDay(t *testing.T) {
	engine := newTestEngine(seedWeek(t))
	report, err := engine.BuildReport(context.Background(), "2025-01-06", "2025-01-08", analytics.SplitDay)
	require.NoError(t, err)

	require.Len(t, report.Segments, 3)
	assert.Equal(t, "2025-01-06", report.Segments[0].Label)
	assert.Equal(t, 1, report.Segments[0].Metrics.TotalDatesWithData)
	// The overall segment still spans the full range.
	assert.Equal(t, 3, report.Overall.Metrics.TotalDatesWithData)
}

func TestBuildReport_DiscrepancySurfacedNotCorrected(t *testing.T) {
	// GIVEN: A day whose authoritative total disagrees with its parts
	// WHEN: Reported
	// THEN: The authoritative figure stands and the gap is flagged

	ctx := context.Background()
	mem := store.NewMemory()
	s := summaryWithTotals("2025-02-01", 25, 14, 1, 1) // parts sum to 16
	require.NoError(t, mem.PutDailySummary(ctx, s))

	engine := newTestEngine(mem)
	report, err := engine.BuildReport(ctx, "2025-02-01", "2025-02-01", analytics.SplitCumulative)
	require.NoError(t, err)

	sum := report.Overall.Summary
	assert.Equal(t, 25, sum.TotalPunches)
	assert.Equal(t, 16, sum.TotalCallsFromParts)
	assert.True(t, sum.HasDiscrepancy)
	assert.Equal(t, 9, sum.Discrepancy)
}

func TestBuildReport_EmptyWindow(t *testing.T) {
	// A window with no data reports zeros, no missing fields, no error.
	engine := newTestEngine(store.NewMemory())
	report, err := engine.BuildReport(context.Background(), "2025-03-01", "2025-03-07", analytics.SplitCumulative)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Overall.Metrics.TotalDatesWithData)
	assert.Empty(t, report.Overall.Summary.MissingFields)
	assert.Equal(t, 0.0, report.Overall.Summary.MatchedPercentage)
	assert.False(t, report.Overall.Summary.HasDiscrepancy)
}

func TestBuildReport_ReversedBoundsNormalize(t *testing.T) {
	engine := newTestEngine(seedWeek(t))
	report, err := engine.BuildReport(context.Background(), "2025-01-10", "2025-01-06", analytics.SplitCumulative)
	require.NoError(t, err)
	assert.Equal(t, analytics.DateKey("2025-01-06"), report.Header.StartDate)
	assert.Equal(t, 5, report.Overall.Metrics.TotalDatesWithData)
}

func TestBuildReport_InvalidInput(t *testing.T) {
	engine := newTestEngine(store.NewMemory())

	_, err := engine.BuildReport(context.Background(), "01/02/2025", "2025-01-10", analytics.SplitCumulative)
	require.Error(t, err)
	assert.True(t, analytics.IsClientError(err))
	assert.ErrorIs(t, err, analytics.ErrInvalidDateKey)

	_, err = engine.BuildReport(context.Background(), "2025-01-01", "2025-01-10", analytics.SplitMode("weekly"))
	require.Error(t, err)
	assert.ErrorIs(t, err, analytics.ErrInvalidSplitMode)
}

// =============================================================================
// FAIL-OPEN TESTS
// =============================================================================

func TestBuildReport_RangeQueryFailureYieldsEmptyReport(t *testing.T) {
	// GIVEN: A store whose existing-dates query fails outright
	// WHEN: A report is requested
	// THEN: The report is empty but the request succeeds

	faulty := &store.Faulty{Memory: seedWeek(t), FailRangeQuery: true}
	mem := faulty.Memory
	engine := analytics.NewEngine(faulty, mem, mem, cache.NewMemory(), analytics.EngineConfig{}, nil)

	report, err := engine.BuildReport(context.Background(), "2025-01-06", "2025-01-10", analytics.SplitCumulative)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Overall.Metrics.TotalDatesWithData)
}

func TestBuildReport_ZoneFailureFallsToUnmapped(t *testing.T) {
	week := seedWeek(t)
	faulty := &store.Faulty{Memory: week, FailZones: analytics.ErrStoreUnavailable}
	engine := analytics.NewEngine(week, week, faulty, cache.NewMemory(), analytics.EngineConfig{}, nil)

	report, err := engine.BuildReport(context.Background(), "2025-01-06", "2025-01-10", analytics.SplitCumulative)
	require.NoError(t, err)
	require.Len(t, report.Overall.Zones, 1)
	assert.Equal(t, analytics.UnmappedZoneID, report.Overall.Zones[0].ZoneID)
}

// =============================================================================
// DRILL-DOWN AND COVERAGE
// =============================================================================

func TestMemberDrilldown_ActiveMember(t *testing.T) {
	engine := newTestEngine(seedWeek(t))
	mr, err := engine.MemberDrilldown(context.Background(), "m-1", "2025-01-06", "2025-01-10")
	require.NoError(t, err)

	assert.Equal(t, "Asha Verma", mr.Identity.Name)
	assert.Equal(t, 60, mr.Rollup.TotalPunches)
	assert.Len(t, mr.Days, 5)
	for _, day := range mr.Days {
		assert.Equal(t, "m-1", day.MemberID)
	}
}

func TestMemberDrilldown_InactiveKnownMember(t *testing.T) {
	// GIVEN: A roster member with no activity in the window
	// WHEN: Drilled down
	// THEN: Directory identity with a zero-valued rollup

	mem := seedWeek(t)
	require.NoError(t, mem.PutMember(context.Background(), analytics.MemberIdentity{
		ID: "m-9", Name: "Kiran Das", Assembly: "East",
	}))

	engine := newTestEngine(mem)
	mr, err := engine.MemberDrilldown(context.Background(), "m-9", "2025-01-06", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, "Kiran Das", mr.Identity.Name)
	assert.Zero(t, mr.Rollup.TotalPunches)
	assert.Empty(t, mr.Days)
}

func TestMemberDrilldown_UnknownMember(t *testing.T) {
	engine := newTestEngine(seedWeek(t))
	_, err := engine.MemberDrilldown(context.Background(), "nobody", "2025-01-06", "2025-01-10")
	assert.ErrorIs(t, err, analytics.ErrMemberNotFound)
}

// rosterCountingStore counts full roster scans.
type rosterCountingStore struct {
	*store.Memory
	rosterScans int
}

func (r *rosterCountingStore) ListRoster(ctx context.Context) ([]analytics.MemberIdentity, error) {
	r.rosterScans++
	return r.Memory.ListRoster(ctx)
}

func TestRosterCoverage_ScansRosterOnce(t *testing.T) {
	// GIVEN: A coverage request needing both enrichment and roster matching
	// WHEN: It runs
	// THEN: The directory sees exactly one full roster scan

	counting := &rosterCountingStore{Memory: seedWeek(t)}
	engine := analytics.NewEngine(counting.Memory, counting, counting.Memory, cache.NewMemory(), analytics.EngineConfig{}, nil)

	_, err := engine.RosterCoverage(context.Background(), "2025-01-06", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.rosterScans)
}

func TestRosterCoverage_FullRoster(t *testing.T) {
	mem := seedWeek(t)
	require.NoError(t, mem.PutMember(context.Background(), analytics.MemberIdentity{
		ID: "m-9", Name: "Kiran Das", Assembly: "East",
	}))

	engine := newTestEngine(mem)
	coverage, err := engine.RosterCoverage(context.Background(), "2025-01-06", "2025-01-10")
	require.NoError(t, err)
	require.Len(t, coverage, 3)

	active := 0
	for _, entry := range coverage {
		if entry.Active {
			active++
		}
	}
	assert.Equal(t, 2, active)
}

// =============================================================================
// CACHE SURFACES
// =============================================================================

func TestEngine_ExistingDatesNeverNil(t *testing.T) {
	engine := newTestEngine(store.NewMemory())
	dates, err := engine.ExistingDates(context.Background(), "2025-01-01", "2025-01-07")
	require.NoError(t, err)
	assert.NotNil(t, dates)
	assert.Empty(t, dates)
}

func TestEngine_FlushAndStats(t *testing.T) {
	engine := newTestEngine(seedWeek(t))
	_, err := engine.BuildReport(context.Background(), "2025-01-06", "2025-01-10", analytics.SplitCumulative)
	require.NoError(t, err)

	stats := engine.CacheStats()
	assert.Equal(t, 3, stats.Entries, "dates, summaries and details entries for the window")

	removed := engine.FlushCaches()
	assert.Equal(t, 3, removed)
	assert.Equal(t, 0, engine.CacheStats().Entries)
}

// rangeCountingStore counts existing-dates range queries.
type rangeCountingStore struct {
	*store.Memory
	rangeQueries int
}

func (r *rangeCountingStore) ListSummaryDates(ctx context.Context, from, to analytics.DateKey) ([]analytics.DateKey, error) {
	r.rangeQueries++
	return r.Memory.ListSummaryDates(ctx, from, to)
}

func TestBuildReport_RepeatWithinTTLIssuesNoRangeQueries(t *testing.T) {
	// GIVEN: A cumulative report already built once
	// WHEN: The identical request repeats within the TTL
	// THEN: The store sees zero additional range queries

	counting := &rangeCountingStore{Memory: seedWeek(t)}
	engine := analytics.NewEngine(counting, counting.Memory, counting.Memory, cache.NewMemory(), analytics.EngineConfig{}, nil)

	_, err := engine.BuildReport(context.Background(), "2025-01-06", "2025-01-10", analytics.SplitCumulative)
	require.NoError(t, err)
	require.Equal(t, 1, counting.rangeQueries)

	_, err = engine.BuildReport(context.Background(), "2025-01-06", "2025-01-10", analytics.SplitCumulative)
	require.NoError(t, err)
	assert.Equal(t, 1, counting.rangeQueries, "repeat request must be served entirely from cache")
}

func TestBuildReport_RefreshInvalidatesDatesCache(t *testing.T) {
	counting := &rangeCountingStore{Memory: seedWeek(t)}
	engine := analytics.NewEngine(counting, counting.Memory, counting.Memory, cache.NewMemory(), analytics.EngineConfig{}, nil)

	_, err := engine.BuildReport(context.Background(), "2025-01-06", "2025-01-10", analytics.SplitCumulative)
	require.NoError(t, err)

	require.NoError(t, engine.InvalidateRange("2025-01-06", "2025-01-10", analytics.SplitCumulative))

	_, err = engine.BuildReport(context.Background(), "2025-01-06", "2025-01-10", analytics.SplitCumulative)
	require.NoError(t, err)
	assert.Equal(t, 2, counting.rangeQueries, "forced refresh must requery the store")
}

func TestEngine_InvalidateRangeValidatesInput(t *testing.T) {
	engine := newTestEngine(store.NewMemory())
	err := engine.InvalidateRange("bad", "2025-01-10", analytics.SplitDay)
	assert.True(t, analytics.IsClientError(err))
	assert.NoError(t, engine.InvalidateRange("2025-01-01", "2025-01-10", analytics.SplitDay))
}
