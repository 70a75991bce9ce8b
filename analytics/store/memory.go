// Package store provides in-memory implementations of the engine's external
// collaborator interfaces, for tests and local development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldops/outreach-analytics/analytics"
)

// =============================================================================
// MEMORY STORE - DocumentStore + IdentityDirectory + ZoneTopology in maps
// =============================================================================

// Memory holds all three data sets behind one mutex. Safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	summaries map[analytics.DateKey]analytics.DailySummary
	records   map[analytics.DateKey][]analytics.MemberDailyRecord
	roster    map[string]analytics.MemberIdentity
	rosterIDs []string
	zones     []analytics.Zone
}

// NewMemory builds an empty store.
func NewMemory() *Memory {
	return &Memory{
		summaries: make(map[analytics.DateKey]analytics.DailySummary),
		records:   make(map[analytics.DateKey][]analytics.MemberDailyRecord),
		roster:    make(map[string]analytics.MemberIdentity),
	}
}

// -----------------------------------------------------------------------------
// Seeding (test/demo surface, not part of the read interfaces)
// -----------------------------------------------------------------------------

// PutDailySummary stores one day's summary document.
func (m *Memory) PutDailySummary(_ context.Context, s analytics.DailySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[s.Date] = s
	return nil
}

// PutMemberRecords replaces one day's detail sub-collection.
func (m *Memory) PutMemberRecords(_ context.Context, date analytics.DateKey, records []analytics.MemberDailyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[date] = append([]analytics.MemberDailyRecord(nil), records...)
	return nil
}

// PutMember upserts a roster directory entry.
func (m *Memory) PutMember(_ context.Context, identity analytics.MemberIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roster[identity.ID]; !ok {
		m.rosterIDs = append(m.rosterIDs, identity.ID)
	}
	m.roster[identity.ID] = identity
	return nil
}

// PutZone appends a topology entry.
func (m *Memory) PutZone(_ context.Context, zone analytics.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones = append(m.zones, zone)
	return nil
}

// -----------------------------------------------------------------------------
// analytics.DocumentStore
// -----------------------------------------------------------------------------

func (m *Memory) ListSummaryDates(_ context.Context, from, to analytics.DateKey) ([]analytics.DateKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var dates []analytics.DateKey
	for d := range m.summaries {
		if d.AfterOrEqual(from) && d.BeforeOrEqual(to) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates, nil
}

func (m *Memory) GetDailySummary(_ context.Context, date analytics.DateKey) (*analytics.DailySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.summaries[date]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListMemberRecords(_ context.Context, date analytics.DateKey) ([]analytics.MemberDailyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]analytics.MemberDailyRecord, len(m.records[date]))
	copy(records, m.records[date])
	return records, nil
}

// -----------------------------------------------------------------------------
// analytics.IdentityDirectory
// -----------------------------------------------------------------------------

func (m *Memory) GetMember(_ context.Context, memberID string) (*analytics.MemberIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	identity, ok := m.roster[memberID]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

func (m *Memory) ListRoster(_ context.Context) ([]analytics.MemberIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	roster := make([]analytics.MemberIdentity, 0, len(m.rosterIDs))
	for _, id := range m.rosterIDs {
		roster = append(roster, m.roster[id])
	}
	return roster, nil
}

// -----------------------------------------------------------------------------
// analytics.ZoneTopology
// -----------------------------------------------------------------------------

func (m *Memory) Zones(_ context.Context) ([]analytics.Zone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zones := make([]analytics.Zone, len(m.zones))
	copy(zones, m.zones)
	return zones, nil
}

// =============================================================================
// FAULT-INJECTING WRAPPERS - For fail-open path tests
// =============================================================================

// Faulty wraps a Memory store and fails the selected operations. Tests use it
// to exercise the fail-open policies.
type Faulty struct {
	*Memory
	FailRangeQuery bool
	FailSummaries  map[analytics.DateKey]error
	FailDetails    map[analytics.DateKey]error
	FailRoster     error
	FailZones      error
}

func (f *Faulty) ListSummaryDates(ctx context.Context, from, to analytics.DateKey) ([]analytics.DateKey, error) {
	if f.FailRangeQuery {
		return nil, analytics.ErrStoreUnavailable
	}
	return f.Memory.ListSummaryDates(ctx, from, to)
}

func (f *Faulty) GetDailySummary(ctx context.Context, date analytics.DateKey) (*analytics.DailySummary, error) {
	if err := f.FailSummaries[date]; err != nil {
		return nil, err
	}
	return f.Memory.GetDailySummary(ctx, date)
}

func (f *Faulty) ListMemberRecords(ctx context.Context, date analytics.DateKey) ([]analytics.MemberDailyRecord, error) {
	if err := f.FailDetails[date]; err != nil {
		return nil, err
	}
	return f.Memory.ListMemberRecords(ctx, date)
}

func (f *Faulty) ListRoster(ctx context.Context) ([]analytics.MemberIdentity, error) {
	if f.FailRoster != nil {
		return nil, f.FailRoster
	}
	return f.Memory.ListRoster(ctx)
}

func (f *Faulty) Zones(ctx context.Context) ([]analytics.Zone, error) {
	if f.FailZones != nil {
		return nil, f.FailZones
	}
	return f.Memory.Zones(ctx)
}
