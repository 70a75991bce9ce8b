/*
report.go - Report orchestration and assembly

PURPOSE:
  The Engine ties the pipeline together per segment window:

    Segmenter -> Discoverer -> Fetcher (through the TTL cache)
              -> Aggregator -> Resolver -> Grouper -> ReportSummary

  and assembles the final Report: header + overall segment (always the full
  requested range) + per-window segments when split mode is not cumulative.

RECONCILIATION:
  The ReportSummary carries the derived figures the dashboard audits:
  duplicate calls, the unique+duplicate parts-sum, the matched percentage,
  and any discrepancy between the authoritative total_punches sum and the
  parts-sum. Discrepancies are logged and surfaced as first-class report
  fields; the authoritative figure remains ground truth when present. They
  are never silently corrected and never fatal.

SEE ALSO:
  - segment.go: Window production
  - aggregate.go: Hybrid totals
*/
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fieldops/outreach-analytics/cache"
)

// =============================================================================
// ENGINE
// =============================================================================

// EngineConfig carries the tunables of the report pipeline. Zero values fall
// back to the package defaults.
type EngineConfig struct {
	Title                  string
	CacheTTL               time.Duration
	ChunkSize              int
	PerformingThreshold    int
	HighPerformerThreshold float64
}

// Engine builds reports. Construct with NewEngine.
type Engine struct {
	discoverer *Discoverer
	fetcher    *Fetcher
	resolver   *Resolver
	aggregator Aggregator
	grouper    Grouper
	topology   ZoneTopology
	title      string
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// NewEngine wires the pipeline onto the external collaborators. logger may be
// nil (no-op logging).
func NewEngine(store DocumentStore, directory IdentityDirectory, topology ZoneTopology, sub cache.Substrate, cfg EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	title := cfg.Title
	if title == "" {
		title = "Outreach Performance Report"
	}

	fetcher := NewFetcher(store, sub, cfg.CacheTTL, logger)
	if cfg.ChunkSize > 0 {
		fetcher.ChunkSize = cfg.ChunkSize
	}

	return &Engine{
		discoverer: NewDiscoverer(store, sub, cfg.CacheTTL, logger),
		fetcher:    fetcher,
		resolver:   &Resolver{Directory: directory, Logger: logger},
		aggregator: Aggregator{HighPerformerThreshold: cfg.HighPerformerThreshold},
		grouper:    Grouper{PerformingThreshold: cfg.PerformingThreshold},
		topology:   topology,
		title:      title,
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// =============================================================================
// REPORT BUILDING
// =============================================================================

// BuildReport produces the full report for a requested range and split mode.
// The only errors returned are invalid input and context cancellation; data
// faults degrade the report per the fail-open policy.
func (e *Engine) BuildReport(ctx context.Context, start, end string, mode SplitMode) (*Report, error) {
	r, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, &RangeError{Start: start, End: end, Cause: ErrInvalidSplitMode}
	}

	// The topology is range-independent; resolve it once per report.
	zones := e.loadZones(ctx)

	report := &Report{
		Header: ReportHeader{
			Title:        e.title,
			GenerationID: e.newID(),
			GeneratedAt:  e.now(),
			StartDate:    r.Start,
			EndDate:      r.End,
			SplitMode:    mode,
		},
	}

	overall, err := e.buildSegment(ctx, Window{Label: r.String(), Range: r}, zones)
	if err != nil {
		return nil, err
	}
	report.Overall = overall

	if mode == SplitCumulative {
		return report, nil
	}

	windows, err := Segments(r, mode)
	if err != nil {
		return nil, err
	}
	report.Segments = make([]ReportSegment, 0, len(windows))
	for _, w := range windows {
		segment, err := e.buildSegment(ctx, w, zones)
		if err != nil {
			return nil, err
		}
		report.Segments = append(report.Segments, segment)
	}
	return report, nil
}

// buildSegment runs the full pipeline for one window.
func (e *Engine) buildSegment(ctx context.Context, w Window, zones []Zone) (ReportSegment, error) {
	dates := e.discoverer.ExistingDates(ctx, w.Range.Start, w.Range.End)

	summaries, details, err := e.fetcher.FetchWindow(ctx, w.Range, dates)
	if err != nil {
		return ReportSegment{}, err
	}

	metrics := e.aggregator.Aggregate(w.Range, summaries, details)
	metrics.Members = e.grouper.AssignAssemblies(
		e.resolver.EnrichRollups(ctx, metrics.Members))

	assemblies := e.grouper.GroupByAssembly(metrics.Members)
	zoneGroups := e.grouper.GroupByZone(assemblies, zones)

	summary := e.buildSummary(w, summaries, details, metrics)

	return ReportSegment{
		Label:     w.Label,
		StartDate: w.Range.Start,
		EndDate:   w.Range.End,
		Metrics:   metrics,
		Summary:   summary,
		Assembly:  assemblies,
		Zones:     zoneGroups,
	}, nil
}

// =============================================================================
// REPORT SUMMARY
// =============================================================================

// optionalField describes one optional DailySummary field for summing and
// missing-field tracking.
type optionalField struct {
	name string
	get  func(*DailySummary) *int
	add  func(*ReportSummary, int)
}

var optionalFields = []optionalField{
	{"total_punches",
		func(s *DailySummary) *int { return s.TotalPunches },
		func(rs *ReportSummary, v int) { rs.TotalPunches += v }},
	{"unique_entries",
		func(s *DailySummary) *int { return s.UniqueEntries },
		func(rs *ReportSummary, v int) { rs.UniqueEntries += v }},
	{"double_entries",
		func(s *DailySummary) *int { return s.DoubleEntries },
		func(rs *ReportSummary, v int) { rs.DoubleEntries += v }},
	{"triple_and_more_entries",
		func(s *DailySummary) *int { return s.TripleAndMoreEntries },
		func(rs *ReportSummary, v int) { rs.TripleAndMoreEntries += v }},
	{"matched_total_punches",
		func(s *DailySummary) *int { return s.MatchedTotalPunches },
		func(rs *ReportSummary, v int) { rs.MatchedTotalPunches += v }},
	{"matched_unique_entries",
		func(s *DailySummary) *int { return s.MatchedUniqueEntries },
		func(rs *ReportSummary, v int) { rs.MatchedUniqueEntries += v }},
	{"matched_double_entries",
		func(s *DailySummary) *int { return s.MatchedDoubleEntries },
		func(rs *ReportSummary, v int) { rs.MatchedDoubleEntries += v }},
	{"matched_triple_and_more_entries",
		func(s *DailySummary) *int { return s.MatchedTripleAndMoreEntries },
		func(rs *ReportSummary, v int) { rs.MatchedTripleAndMoreEntries += v }},
}

// buildSummary sums the optional summary fields across the window, derives
// the reconciliation figures, and counts the window's data-quality gaps.
func (e *Engine) buildSummary(w Window, summaries map[DateKey]DailySummary, details []MemberDailyRecord, metrics AggregatedMetrics) ReportSummary {
	rs := ReportSummary{MissingFields: []string{}}

	present := make(map[string]bool, len(optionalFields))
	authoritativePresent := false
	for _, date := range sortedDates(summaries) {
		s := summaries[date]
		for _, f := range optionalFields {
			if v := f.get(&s); v != nil {
				f.add(&rs, *v)
				present[f.name] = true
			}
		}
		if s.TotalPunches != nil {
			authoritativePresent = true
		}
	}

	// A field is "missing" when absent from every summary in the window.
	// Empty windows have nothing to reconcile and list no missing fields.
	if len(summaries) > 0 {
		for _, f := range optionalFields {
			if !present[f.name] {
				rs.MissingFields = append(rs.MissingFields, f.name)
			}
		}
	}

	rs.DuplicateCalls = rs.DoubleEntries + rs.TripleAndMoreEntries
	rs.TotalCallsFromParts = rs.UniqueEntries + rs.DuplicateCalls
	rs.MatchedPercentage = percentage(metrics.MatchedCount, metrics.TotalParam2Values)

	if authoritativePresent && rs.TotalPunches != rs.TotalCallsFromParts {
		rs.HasDiscrepancy = true
		rs.Discrepancy = rs.TotalPunches - rs.TotalCallsFromParts
		e.logger.Warn("authoritative total disagrees with parts-sum",
			zap.String("window", w.Label),
			zap.Int("total_punches", rs.TotalPunches),
			zap.Int("total_calls_from_parts", rs.TotalCallsFromParts),
			zap.Int("discrepancy", rs.Discrepancy))
	}

	for _, rec := range details {
		if NormalizePhone(rec.Phone) == "" {
			rs.RecordsMissingPhone++
		}
		if rec.Assembly == "" {
			rs.RecordsMissingAssembly++
		}
	}
	return rs
}

// percentage rounds num/den*100 to one decimal place; 0 when den is 0.
func percentage(num, den int) float64 {
	if den == 0 {
		return 0
	}
	p := decimal.NewFromInt(int64(num)).
		Div(decimal.NewFromInt(int64(den))).
		Mul(decimal.NewFromInt(100)).
		Round(1)
	f, _ := p.Float64()
	return f
}

// =============================================================================
// MEMBER DRILL-DOWN
// =============================================================================

// MemberReport is the per-member drill-down over a range.
type MemberReport struct {
	Identity MemberIdentity      `json:"identity"`
	Range    DateRange           `json:"range"`
	Rollup   MemberRollup        `json:"rollup"`
	Days     []MemberDailyRecord `json:"days"`
}

// MemberDrilldown reports one member's activity across a range. A member
// known to the directory but inactive in the window gets a zero-valued
// rollup; an id unknown to both directory and window activity is
// ErrMemberNotFound.
func (e *Engine) MemberDrilldown(ctx context.Context, memberID, start, end string) (*MemberReport, error) {
	r, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}

	dates := e.discoverer.ExistingDates(ctx, r.Start, r.End)
	summaries, details, err := e.fetcher.FetchWindow(ctx, r, dates)
	if err != nil {
		return nil, err
	}

	metrics := e.aggregator.Aggregate(r, summaries, details)
	rollups := e.grouper.AssignAssemblies(
		e.resolver.EnrichRollups(ctx, metrics.Members))

	var days []MemberDailyRecord
	for _, rec := range details {
		if rec.MemberID == memberID {
			days = append(days, rec)
		}
	}

	for _, ru := range rollups {
		if ru.MemberID == memberID {
			identity := MemberIdentity{
				ID:       ru.MemberID,
				Name:     ru.Name,
				Assembly: ru.Assembly,
				Phone:    ru.Phone,
			}
			return &MemberReport{Identity: identity, Range: r, Rollup: ru, Days: days}, nil
		}
	}

	// No activity in the window; fall back to the directory.
	identity, dirErr := e.resolver.Directory.GetMember(ctx, memberID)
	if dirErr != nil || identity == nil {
		return nil, ErrMemberNotFound
	}
	return &MemberReport{
		Identity: *identity,
		Range:    r,
		Rollup: MemberRollup{
			MemberID: identity.ID,
			Name:     identity.Name,
			Assembly: identity.Assembly,
			Phone:    identity.Phone,
		},
	}, nil
}

// RosterCoverage maps the full roster onto a window's activity. Inactive
// members appear with zero-valued rollups so coverage gaps are visible.
func (e *Engine) RosterCoverage(ctx context.Context, start, end string) ([]RosterActivity, error) {
	r, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}

	dates := e.discoverer.ExistingDates(ctx, r.Start, r.End)
	summaries, details, err := e.fetcher.FetchWindow(ctx, r, dates)
	if err != nil {
		return nil, err
	}

	metrics := e.aggregator.Aggregate(r, summaries, details)

	// One roster scan serves both the enrichment chain and the matching pass.
	idx := e.resolver.Snapshot(ctx)
	rollups := e.grouper.AssignAssemblies(
		e.resolver.EnrichWith(ctx, idx, metrics.Members))
	return e.resolver.MatchWith(idx, rollups), nil
}

// ExistingDates exposes discovery for the dates endpoint.
func (e *Engine) ExistingDates(ctx context.Context, start, end string) ([]DateKey, error) {
	r, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	dates := e.discoverer.ExistingDates(ctx, r.Start, r.End)
	if dates == nil {
		dates = []DateKey{}
	}
	return dates, nil
}

// InvalidateRange drops the cached windows a (range, mode) report would read,
// for forced-refresh requests.
func (e *Engine) InvalidateRange(start, end string, mode SplitMode) error {
	r, err := parseRange(start, end)
	if err != nil {
		return err
	}
	e.fetcher.Invalidate(r)
	e.discoverer.Invalidate(r)
	if mode.Valid() && mode != SplitCumulative {
		windows, err := Segments(r, mode)
		if err != nil {
			return err
		}
		for _, w := range windows {
			e.fetcher.Invalidate(w.Range)
			e.discoverer.Invalidate(w.Range)
		}
	}
	return nil
}

// FlushCaches drops every cached window and returns the number of entries
// removed.
func (e *Engine) FlushCaches() int {
	return e.fetcher.Summaries.Flush() + e.fetcher.Details.Flush()
}

// CacheStats reports the live cache contents.
func (e *Engine) CacheStats() cache.Stats {
	// Both typed caches share one substrate; one view covers them.
	return e.fetcher.Summaries.GetStats()
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) loadZones(ctx context.Context) []Zone {
	zones, err := e.topology.Zones(ctx)
	if err != nil {
		e.logger.Warn("zone topology unavailable, assemblies fall to unmapped zone",
			zap.Error(err))
		return nil
	}
	return zones
}

func parseRange(start, end string) (DateRange, error) {
	s, err := ParseDateKey(start)
	if err != nil {
		return DateRange{}, &RangeError{Start: start, End: end, Cause: err}
	}
	e, err := ParseDateKey(end)
	if err != nil {
		return DateRange{}, &RangeError{Start: start, End: end, Cause: err}
	}
	return NormalizeRange(s, e), nil
}
