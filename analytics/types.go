/*
Package analytics provides the aggregation and reporting engine for the
field-operations punch dashboard.

PURPOSE:
  Volunteers log daily "punch" calls against an outreach roster. This package
  turns the raw date-keyed records into range-based reports: it discovers which
  days actually have data, fetches them with bounded concurrency, reconciles
  pre-computed daily summaries against raw per-member detail rows, groups
  members into assemblies and assemblies into zones, and segments a requested
  range into day/month/cumulative windows.

KEY CONCEPTS IN THIS FILE (types.go):
  - DailySummary:      One pre-computed document per day (counts, optional
                       authoritative punch totals)
  - MemberDailyRecord: One row per member per day (punch breakdown)
  - MemberIdentity:    Directory entry mapping a member id to display metadata
  - MemberRollup:      A member's aggregated activity across a window
  - AssemblyGroup/ZoneGroup: The two grouping levels of a report segment
  - Report/ReportSegment:    The JSON-serializable output consumed by renderers

DESIGN PRINCIPLES:
  1. Read-only: this engine never writes to the document store. Daily records
     are finalized before they are queried.
  2. Fail-open: a missing day, an unreachable store, or an unknown member
     degrades the report, it never aborts it.
  3. Optional schema fields are modeled as pointers with an explicit
     HasPrecomputedTotals check, never blind access.

SEE ALSO:
  - aggregate.go: Hybrid summary-vs-detail aggregation
  - report.go:    Segment orchestration and report assembly
  - store.go:     External collaborator interfaces
*/
package analytics

import (
	"fmt"
	"time"
)

// =============================================================================
// DAILY SUMMARY - One pre-computed document per calendar day
// =============================================================================

// DailySummary is the per-day summary document written by the (external)
// ingestion process. The four *Entries pointer fields are only present in
// newer data; older days must fall back to summing MemberDailyRecords.
type DailySummary struct {
	Date DateKey `json:"date"`

	// Matching counts, present on every summary.
	TotalParam2Values   int `json:"total_param2_values"`
	MatchedCount        int `json:"matched_count"`
	UnidentifiableCount int `json:"unidentifiable_count"`
	IncorrectCount      int `json:"incorrect_count"`
	NoMatchCount        int `json:"no_match_count"`

	// Pre-computed punch totals. Authoritative when all four are present.
	TotalPunches         *int `json:"total_punches,omitempty"`
	UniqueEntries        *int `json:"unique_entries,omitempty"`
	DoubleEntries        *int `json:"double_entries,omitempty"`
	TripleAndMoreEntries *int `json:"triple_and_more_entries,omitempty"`

	// Matched-only variants of the above, also optional.
	MatchedTotalPunches         *int `json:"matched_total_punches,omitempty"`
	MatchedUniqueEntries        *int `json:"matched_unique_entries,omitempty"`
	MatchedDoubleEntries        *int `json:"matched_double_entries,omitempty"`
	MatchedTripleAndMoreEntries *int `json:"matched_triple_and_more_entries,omitempty"`
}

// HasPrecomputedTotals reports whether this day carries the full authoritative
// set of punch totals. Partial presence does not count: either the ingestion
// wrote all four, or the aggregator must recompute from detail records.
func (s *DailySummary) HasPrecomputedTotals() bool {
	return s.TotalPunches != nil &&
		s.UniqueEntries != nil &&
		s.DoubleEntries != nil &&
		s.TripleAndMoreEntries != nil
}

// =============================================================================
// MEMBER DAILY RECORD - One row per member per day
// =============================================================================

// MemberDailyRecord is a single member's punch activity for a single day.
// Date is annotated by the fetcher when the record is read out of the per-day
// sub-collection; the stored row itself is not date-stamped.
type MemberDailyRecord struct {
	Date     DateKey `json:"date"`
	MemberID string  `json:"member_id"`
	Phone    string  `json:"phone"`
	Assembly string  `json:"assembly,omitempty"` // only present in newer data

	TotalPunches         int `json:"total_punches"`
	UniqueEntries        int `json:"unique_entries"`
	DoubleEntries        int `json:"double_entries"`
	TripleAndMoreEntries int `json:"triple_and_more_entries"`
}

// =============================================================================
// MEMBER IDENTITY - Roster directory entry
// =============================================================================

// MemberIdentity is a read-only roster directory entry. LegacyID is a
// secondary identifier carried over from an older roster system; it is empty
// for members created after the migration.
type MemberIdentity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Assembly string `json:"assembly"`
	Phone    string `json:"phone"`
	LegacyID string `json:"legacy_id,omitempty"`
}

// Placeholder identity values substituted when a member cannot be resolved.
const (
	UnknownAssembly  = "Unknown Assembly"
	UnknownPhone     = "N/A"
	UnmappedZoneID   = "unmapped"
	UnmappedZoneName = "Unmapped Zone"
)

// PlaceholderIdentity builds the deterministic fallback identity for an
// unresolvable member id.
func PlaceholderIdentity(memberID string) MemberIdentity {
	return MemberIdentity{
		ID:       memberID,
		Name:     fmt.Sprintf("Member-%s", shortID(memberID)),
		Assembly: UnknownAssembly,
		Phone:    UnknownPhone,
	}
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// =============================================================================
// ZONE TOPOLOGY
// =============================================================================

// Zone is one entry of the external zone-to-assembly topology map.
type Zone struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Assemblies []string `json:"assemblies"`
}

// =============================================================================
// MEMBER ROLLUP - A member's aggregated activity across a window
// =============================================================================

// MemberRollup is one member's punch activity summed over a report window.
// Assembly is the modal assembly across the member's records in the window,
// assigned by the grouper; assemblyVotes carries the raw tallies until then.
type MemberRollup struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Assembly string `json:"assembly"`
	Phone    string `json:"phone"`

	TotalPunches         int `json:"total_punches"`
	UniqueEntries        int `json:"unique_entries"`
	DoubleEntries        int `json:"double_entries"`
	TripleAndMoreEntries int `json:"triple_and_more_entries"`

	// ActiveDays is the number of distinct days with at least one record.
	ActiveDays int `json:"active_days"`

	// AvgPunchesPerActiveDay = TotalPunches / ActiveDays, one decimal place.
	AvgPunchesPerActiveDay float64 `json:"avg_punches_per_active_day"`

	// HighPerformer is true when AvgPunchesPerActiveDay exceeds the
	// configured threshold (default 10).
	HighPerformer bool `json:"high_performer"`

	// assemblyVotes tallies how often each assembly label appeared on this
	// member's records, in first-encounter order for deterministic ties.
	assemblyVotes []assemblyVote
}

type assemblyVote struct {
	assembly string
	count    int
}

// =============================================================================
// AGGREGATED METRICS - Range-wide totals for one window
// =============================================================================

// AggregatedMetrics is the hybrid aggregation result for one window: totals
// use authoritative per-day summary figures where present and detail-record
// sums where not.
type AggregatedMetrics struct {
	StartDate DateKey `json:"start_date"`
	EndDate   DateKey `json:"end_date"`

	// TotalDatesWithData counts the days in the window that actually had a
	// stored summary. Sparse ranges are normal, never an error.
	TotalDatesWithData int `json:"total_dates_with_data"`

	TotalPunches         int `json:"total_punches"`
	UniqueEntries        int `json:"unique_entries"`
	DoubleEntries        int `json:"double_entries"`
	TripleAndMoreEntries int `json:"triple_and_more_entries"`

	TotalParam2Values   int `json:"total_param2_values"`
	MatchedCount        int `json:"matched_count"`
	UnidentifiableCount int `json:"unidentifiable_count"`
	IncorrectCount      int `json:"incorrect_count"`
	NoMatchCount        int `json:"no_match_count"`

	// DatesFromPrecomputed / DatesFromDetails record which aggregation path
	// each day took, for provenance.
	DatesFromPrecomputed int `json:"dates_from_precomputed"`
	DatesFromDetails     int `json:"dates_from_details"`

	Members []MemberRollup `json:"members"`
}

// =============================================================================
// GROUPING LEVELS
// =============================================================================

// AssemblyGroup is one assembly's members for a window, sorted descending by
// total punches. Built fresh per segment, never persisted.
type AssemblyGroup struct {
	Assembly     string         `json:"assembly"`
	TotalPunches int            `json:"total_punches"`
	Members      []MemberRollup `json:"members"`
}

// ZoneGroup partitions a zone's assemblies into performing and
// underperforming buckets at an inclusive punch-count threshold.
type ZoneGroup struct {
	ZoneID          string          `json:"zone_id"`
	ZoneName        string          `json:"zone_name"`
	Threshold       int             `json:"threshold"`
	Performing      []AssemblyGroup `json:"performing"`
	Underperforming []AssemblyGroup `json:"underperforming"`
}

// =============================================================================
// REPORT SUMMARY - Derived invariant fields for one window
// =============================================================================

// ReportSummary sums the optional numeric summary fields across a window and
// derives the reconciliation figures the dashboard surfaces. Sums here come
// from the DailySummary documents only (missing fields count as zero); the
// hybrid totals live in AggregatedMetrics.
type ReportSummary struct {
	TotalPunches         int `json:"total_punches"`
	UniqueEntries        int `json:"unique_entries"`
	DoubleEntries        int `json:"double_entries"`
	TripleAndMoreEntries int `json:"triple_and_more_entries"`

	MatchedTotalPunches         int `json:"matched_total_punches"`
	MatchedUniqueEntries        int `json:"matched_unique_entries"`
	MatchedDoubleEntries        int `json:"matched_double_entries"`
	MatchedTripleAndMoreEntries int `json:"matched_triple_and_more_entries"`

	// DuplicateCalls = DoubleEntries + TripleAndMoreEntries.
	DuplicateCalls int `json:"duplicate_calls"`

	// TotalCallsFromParts = UniqueEntries + DuplicateCalls.
	TotalCallsFromParts int `json:"total_calls_from_parts"`

	// MatchedPercentage = MatchedCount / TotalParam2Values * 100, one decimal
	// place, 0 when the denominator is zero.
	MatchedPercentage float64 `json:"matched_percentage"`

	// HasDiscrepancy is set when the authoritative TotalPunches disagrees
	// with TotalCallsFromParts. The authoritative figure remains ground
	// truth; the gap is surfaced, never silently reconciled.
	HasDiscrepancy bool `json:"has_discrepancy"`
	Discrepancy    int  `json:"discrepancy"`

	// MissingFields lists optional summary fields absent from every summary
	// in the window, for provenance.
	MissingFields []string `json:"missing_fields"`

	// Data-quality counters over the window's detail records.
	RecordsMissingPhone    int `json:"records_missing_phone"`
	RecordsMissingAssembly int `json:"records_missing_assembly"`
}

// =============================================================================
// REPORT - The JSON object handed to external renderers
// =============================================================================

// SplitMode selects how a requested range is segmented.
type SplitMode string

const (
	SplitCumulative SplitMode = "cumulative"
	SplitDay        SplitMode = "day"
	SplitMonth      SplitMode = "month"
)

// Valid reports whether the mode is one of the three known values.
func (m SplitMode) Valid() bool {
	switch m {
	case SplitCumulative, SplitDay, SplitMonth:
		return true
	}
	return false
}

// ReportSegment carries a full aggregation for one window. The overall
// segment always spans the entire requested range regardless of split mode.
type ReportSegment struct {
	Label     string            `json:"label"`
	StartDate DateKey           `json:"start_date"`
	EndDate   DateKey           `json:"end_date"`
	Metrics   AggregatedMetrics `json:"metrics"`
	Summary   ReportSummary     `json:"summary"`
	Assembly  []AssemblyGroup   `json:"assembly_groups"`
	Zones     []ZoneGroup       `json:"zone_groups"`
}

// ReportHeader describes the report as a whole.
type ReportHeader struct {
	Title        string    `json:"title"`
	GenerationID string    `json:"generation_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	StartDate    DateKey   `json:"start_date"`
	EndDate      DateKey   `json:"end_date"`
	SplitMode    SplitMode `json:"split_mode"`
}

// Report is the full engine output. Segments is nil for cumulative mode; the
// overall segment always covers the full range.
type Report struct {
	Header   ReportHeader    `json:"header"`
	Overall  ReportSegment   `json:"overall"`
	Segments []ReportSegment `json:"segments,omitempty"`
}
