/*
aggregate.go - Hybrid summary-vs-detail aggregation

PURPOSE:
  Computes window-wide totals and per-member rollups. Per date, the summary's
  pre-computed punch totals are authoritative when all four are present; for
  legacy days lacking them, that day's contribution is recomputed by summing
  its MemberDailyRecords. The two paths are kept separate so each can be unit
  tested on its own.

NUMERIC SEMANTICS:
  All sums are plain integer accumulation over non-negative counts. The only
  rounding in the engine is on derived percentage/average fields, which round
  to one decimal place via shopspring/decimal.

SEE ALSO:
  - types.go:  AggregatedMetrics, MemberRollup
  - report.go: Consumes the aggregation per segment
*/
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultHighPerformerThreshold is the average-punches-per-active-day cutoff
// above which a member counts as a high performer.
const DefaultHighPerformerThreshold = 10.0

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes AggregatedMetrics for a window. The zero value uses
// the default high-performer threshold.
type Aggregator struct {
	HighPerformerThreshold float64
}

// Aggregate computes the hybrid window aggregation. summaries holds the
// fetched per-day documents, details the flattened date-annotated member
// rows for the same window.
func (a Aggregator) Aggregate(r DateRange, summaries map[DateKey]DailySummary, details []MemberDailyRecord) AggregatedMetrics {
	m := AggregatedMetrics{
		StartDate:          r.Start,
		EndDate:            r.End,
		TotalDatesWithData: len(summaries),
	}

	// Index detail rows by date once; the fallback path needs per-date sums.
	byDate := make(map[DateKey][]MemberDailyRecord)
	for _, rec := range details {
		byDate[rec.Date] = append(byDate[rec.Date], rec)
	}

	for _, date := range sortedDates(summaries) {
		s := summaries[date]

		m.TotalParam2Values += s.TotalParam2Values
		m.MatchedCount += s.MatchedCount
		m.UnidentifiableCount += s.UnidentifiableCount
		m.IncorrectCount += s.IncorrectCount
		m.NoMatchCount += s.NoMatchCount

		if s.HasPrecomputedTotals() {
			a.addPrecomputed(&m, s)
		} else {
			a.addFromDetails(&m, byDate[date])
		}
	}

	m.Members = a.rollupMembers(details)
	return m
}

// addPrecomputed adds one day's authoritative summary totals.
func (a Aggregator) addPrecomputed(m *AggregatedMetrics, s DailySummary) {
	m.TotalPunches += *s.TotalPunches
	m.UniqueEntries += *s.UniqueEntries
	m.DoubleEntries += *s.DoubleEntries
	m.TripleAndMoreEntries += *s.TripleAndMoreEntries
	m.DatesFromPrecomputed++
}

// addFromDetails recomputes one legacy day's contribution from its member
// detail rows.
func (a Aggregator) addFromDetails(m *AggregatedMetrics, records []MemberDailyRecord) {
	for _, rec := range records {
		m.TotalPunches += rec.TotalPunches
		m.UniqueEntries += rec.UniqueEntries
		m.DoubleEntries += rec.DoubleEntries
		m.TripleAndMoreEntries += rec.TripleAndMoreEntries
	}
	m.DatesFromDetails++
}

// =============================================================================
// PER-MEMBER ROLLUPS
// =============================================================================

// rollupMembers merges a member's records across the window. The source never
// merges records across dates; that is this engine's job. Output is sorted
// descending by total punches, member id ascending on ties.
func (a Aggregator) rollupMembers(details []MemberDailyRecord) []MemberRollup {
	type acc struct {
		rollup     *MemberRollup
		activeDays map[DateKey]struct{}
		voteIndex  map[string]int
	}

	byMember := make(map[string]*acc)
	var order []string

	for _, rec := range details {
		entry, ok := byMember[rec.MemberID]
		if !ok {
			entry = &acc{
				rollup: &MemberRollup{
					MemberID: rec.MemberID,
					Phone:    rec.Phone,
				},
				activeDays: make(map[DateKey]struct{}),
				voteIndex:  make(map[string]int),
			}
			byMember[rec.MemberID] = entry
			order = append(order, rec.MemberID)
		}

		ru := entry.rollup
		ru.TotalPunches += rec.TotalPunches
		ru.UniqueEntries += rec.UniqueEntries
		ru.DoubleEntries += rec.DoubleEntries
		ru.TripleAndMoreEntries += rec.TripleAndMoreEntries
		entry.activeDays[rec.Date] = struct{}{}

		if ru.Phone == "" {
			ru.Phone = rec.Phone
		}
		if rec.Assembly != "" {
			if i, seen := entry.voteIndex[rec.Assembly]; seen {
				ru.assemblyVotes[i].count++
			} else {
				entry.voteIndex[rec.Assembly] = len(ru.assemblyVotes)
				ru.assemblyVotes = append(ru.assemblyVotes, assemblyVote{assembly: rec.Assembly, count: 1})
			}
		}
	}

	threshold := a.HighPerformerThreshold
	if threshold <= 0 {
		threshold = DefaultHighPerformerThreshold
	}

	rollups := make([]MemberRollup, 0, len(order))
	for _, id := range order {
		entry := byMember[id]
		ru := entry.rollup
		ru.ActiveDays = len(entry.activeDays)
		ru.AvgPunchesPerActiveDay = averagePerDay(ru.TotalPunches, ru.ActiveDays)
		ru.HighPerformer = ru.AvgPunchesPerActiveDay > threshold
		rollups = append(rollups, *ru)
	}

	sort.SliceStable(rollups, func(i, j int) bool {
		if rollups[i].TotalPunches != rollups[j].TotalPunches {
			return rollups[i].TotalPunches > rollups[j].TotalPunches
		}
		return rollups[i].MemberID < rollups[j].MemberID
	})
	return rollups
}

// averagePerDay rounds total/days to one decimal place. Zero active days
// yields zero, not a division error.
func averagePerDay(total, days int) float64 {
	if days == 0 {
		return 0
	}
	avg := decimal.NewFromInt(int64(total)).
		Div(decimal.NewFromInt(int64(days))).
		Round(1)
	f, _ := avg.Float64()
	return f
}

func sortedDates(summaries map[DateKey]DailySummary) []DateKey {
	dates := make([]DateKey, 0, len(summaries))
	for d := range summaries {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}
