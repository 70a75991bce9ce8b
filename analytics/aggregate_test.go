package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/outreach-analytics/analytics"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func intPtr(v int) *int { return &v }

func summaryWithTotals(date analytics.DateKey, total, unique, double, triple int) analytics.DailySummary {
	return analytics.DailySummary{
		Date:                 date,
		TotalParam2Values:    100,
		MatchedCount:         80,
		UnidentifiableCount:  10,
		IncorrectCount:       5,
		NoMatchCount:         5,
		TotalPunches:         intPtr(total),
		UniqueEntries:        intPtr(unique),
		DoubleEntries:        intPtr(double),
		TripleAndMoreEntries: intPtr(triple),
	}
}

func legacySummary(date analytics.DateKey) analytics.DailySummary {
	return analytics.DailySummary{
		Date:                date,
		TotalParam2Values:   100,
		MatchedCount:        80,
		UnidentifiableCount: 10,
		IncorrectCount:      5,
		NoMatchCount:        5,
	}
}

func detailRecord(date analytics.DateKey, memberID string, total int) analytics.MemberDailyRecord {
	return analytics.MemberDailyRecord{
		Date:          date,
		MemberID:      memberID,
		TotalPunches:  total,
		UniqueEntries: total,
	}
}

// =============================================================================
// HYBRID AGGREGATION TESTS
// =============================================================================

func TestAggregate_PrecomputedTotalsWin(t *testing.T) {
	// GIVEN: A day whose summary carries all four totals, plus detail rows
	//        that sum to a different figure
	// WHEN: The window is aggregated
	// THEN: The summary's totals are used, the detail sum is ignored

	r := analytics.DateRange{Start: "2025-01-01", End: "2025-01-01"}
	summaries := map[analytics.DateKey]analytics.DailySummary{
		"2025-01-01": summaryWithTotals("2025-01-01", 50, 40, 7, 3),
	}
	details := []analytics.MemberDailyRecord{
		detailRecord("2025-01-01", "m-1", 999), // deliberately disagrees
	}

	m := analytics.Aggregator{}.Aggregate(r, summaries, details)

	assert.Equal(t, 50, m.TotalPunches)
	assert.Equal(t, 40, m.UniqueEntries)
	assert.Equal(t, 7, m.DoubleEntries)
	assert.Equal(t, 3, m.TripleAndMoreEntries)
	assert.Equal(t, 1, m.DatesFromPrecomputed)
	assert.Equal(t, 0, m.DatesFromDetails)
}

func TestAggregate_PartialTotalsFallBackToDetails(t *testing.T) {
	// GIVEN: A summary with only some of the four totals present
	// WHEN: The window is aggregated
	// THEN: Partial presence does not count; the day is recomputed from details

	s := legacySummary("2025-01-01")
	s.TotalPunches = intPtr(50)
	s.UniqueEntries = intPtr(40)
	// double/triple missing

	r := analytics.DateRange{Start: "2025-01-01", End: "2025-01-01"}
	summaries := map[analytics.DateKey]analytics.DailySummary{"2025-01-01": s}
	details := []analytics.MemberDailyRecord{
		{Date: "2025-01-01", MemberID: "m-1", TotalPunches: 12, UniqueEntries: 9, DoubleEntries: 2, TripleAndMoreEntries: 1},
		{Date: "2025-01-01", MemberID: "m-2", TotalPunches: 8, UniqueEntries: 8},
	}

	m := analytics.Aggregator{}.Aggregate(r, summaries, details)

	assert.Equal(t, 20, m.TotalPunches)
	assert.Equal(t, 17, m.UniqueEntries)
	assert.Equal(t, 2, m.DoubleEntries)
	assert.Equal(t, 1, m.TripleAndMoreEntries)
	assert.Equal(t, 0, m.DatesFromPrecomputed)
	assert.Equal(t, 1, m.DatesFromDetails)
}

func TestAggregate_MixedDaysUseBothPaths(t *testing.T) {
	// GIVEN: One pre-computed day and one legacy day in the same window
	// WHEN: Aggregated
	// THEN: Each day contributes via its own path and both are counted

	r := analytics.DateRange{Start: "2025-01-01", End: "2025-01-03"}
	summaries := map[analytics.DateKey]analytics.DailySummary{
		"2025-01-01": summaryWithTotals("2025-01-01", 30, 25, 4, 1),
		"2025-01-03": legacySummary("2025-01-03"),
	}
	details := []analytics.MemberDailyRecord{
		detailRecord("2025-01-01", "m-1", 999), // ignored, day is pre-computed
		detailRecord("2025-01-03", "m-1", 10),
		detailRecord("2025-01-03", "m-2", 5),
	}

	m := analytics.Aggregator{}.Aggregate(r, summaries, details)

	assert.Equal(t, 45, m.TotalPunches)
	assert.Equal(t, 1, m.DatesFromPrecomputed)
	assert.Equal(t, 1, m.DatesFromDetails)
	// Three calendar days requested, two with data.
	assert.Equal(t, 2, m.TotalDatesWithData)
	// Matching counts sum over every day with a summary.
	assert.Equal(t, 200, m.TotalParam2Values)
	assert.Equal(t, 160, m.MatchedCount)
}

func TestAggregate_EmptyWindow(t *testing.T) {
	// An empty window yields zeros, not errors.
	r := analytics.DateRange{Start: "2025-01-01", End: "2025-01-07"}
	m := analytics.Aggregator{}.Aggregate(r, nil, nil)

	assert.Equal(t, 0, m.TotalDatesWithData)
	assert.Equal(t, 0, m.TotalPunches)
	assert.Empty(t, m.Members)
}

// =============================================================================
// MEMBER ROLLUP TESTS
// =============================================================================

func TestRollup_MergesAcrossDays(t *testing.T) {
	// GIVEN: The same member active on three days
	// WHEN: Rolled up
	// THEN: Counts sum, active days count distinct dates, average rounds to
	//       one decimal place

	r := analytics.DateRange{Start: "2025-01-01", End: "2025-01-03"}
	details := []analytics.MemberDailyRecord{
		{Date: "2025-01-01", MemberID: "m-1", Phone: "9876500001", TotalPunches: 4, UniqueEntries: 4},
		{Date: "2025-01-02", MemberID: "m-1", TotalPunches: 5, UniqueEntries: 5},
		{Date: "2025-01-03", MemberID: "m-1", TotalPunches: 5, UniqueEntries: 5},
	}

	m := analytics.Aggregator{}.Aggregate(r, nil, details)
	require.Len(t, m.Members, 1)

	ru := m.Members[0]
	assert.Equal(t, "m-1", ru.MemberID)
	assert.Equal(t, 14, ru.TotalPunches)
	assert.Equal(t, 3, ru.ActiveDays)
	assert.Equal(t, "9876500001", ru.Phone)
	// 14/3 = 4.666... rounds to 4.7
	assert.Equal(t, 4.7, ru.AvgPunchesPerActiveDay)
	assert.False(t, ru.HighPerformer)
}

func TestRollup_HighPerformerThresholdIsExclusive(t *testing.T) {
	// Average exactly at the threshold does not qualify; above it does.
	r := analytics.DateRange{Start: "2025-01-01", End: "2025-01-02"}
	details := []analytics.MemberDailyRecord{
		{Date: "2025-01-01", MemberID: "at", TotalPunches: 10},
		{Date: "2025-01-01", MemberID: "above", TotalPunches: 11},
	}

	m := analytics.Aggregator{}.Aggregate(r, nil, details)
	require.Len(t, m.Members, 2)

	byID := map[string]analytics.MemberRollup{}
	for _, ru := range m.Members {
		byID[ru.MemberID] = ru
	}
	assert.False(t, byID["at"].HighPerformer, "avg == threshold must not qualify")
	assert.True(t, byID["above"].HighPerformer)
}

func TestRollup_SortedByPunchesThenID(t *testing.T) {
	r := analytics.DateRange{Start: "2025-01-01", End: "2025-01-01"}
	details := []analytics.MemberDailyRecord{
		detailRecord("2025-01-01", "m-b", 5),
		detailRecord("2025-01-01", "m-c", 9),
		detailRecord("2025-01-01", "m-a", 5),
	}

	m := analytics.Aggregator{}.Aggregate(r, nil, details)
	require.Len(t, m.Members, 3)
	assert.Equal(t, "m-c", m.Members[0].MemberID)
	assert.Equal(t, "m-a", m.Members[1].MemberID, "ties break by member id ascending")
	assert.Equal(t, "m-b", m.Members[2].MemberID)
}
