/*
store.go - External collaborator interfaces

PURPOSE:
  Defines the read interfaces the engine consumes. The document store, the
  member-identity directory, and the zone topology resolver are owned by other
  processes; this engine only reads them.

KEY INTERFACES:
  DocumentStore:     Date-keyed daily summaries + per-day member detail rows
  IdentityDirectory: Member id -> display metadata
  ZoneTopology:      Zone -> assembly-set map

READ-ONLY CONTRACT:
  No interface here has a write method. Daily records are finalized before
  they are queried, so there are no read-after-write ordering concerns and
  cached window results may be overwritten idempotently.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:    Production store (also carries seed helpers,
                               which live outside these interfaces)
  - analytics/store/memory.go: In-memory store for tests

SEE ALSO:
  - discover.go: Range queries over DocumentStore keys
  - fetch.go:    Chunked point-reads
*/
package analytics

import "context"

// =============================================================================
// DOCUMENT STORE - Date-keyed read interface
// =============================================================================

// DocumentStore reads the sparse date-keyed record store.
type DocumentStore interface {
	// ListSummaryDates returns, in ascending order, every date key in
	// [from, to] that has a stored DailySummary. Callers must never assume
	// every day in a nominal range has one.
	ListSummaryDates(ctx context.Context, from, to DateKey) ([]DateKey, error)

	// GetDailySummary point-reads one day's summary.
	// Returns (nil, nil) when the day has no record.
	GetDailySummary(ctx context.Context, date DateKey) (*DailySummary, error)

	// ListMemberRecords scans one day's per-member detail sub-collection in
	// full. Records come back without the Date field set; the fetcher
	// annotates them with their source date.
	ListMemberRecords(ctx context.Context, date DateKey) ([]MemberDailyRecord, error)
}

// =============================================================================
// IDENTITY DIRECTORY - Roster read interface
// =============================================================================

// IdentityDirectory reads the roster-management process's member directory.
type IdentityDirectory interface {
	// GetMember point-reads one directory entry.
	// Returns (nil, nil) when the id is unknown.
	GetMember(ctx context.Context, memberID string) (*MemberIdentity, error)

	// ListRoster returns the full roster. Used to build the phone-number and
	// legacy-id indexes for the resolution chain, one scan per report window.
	ListRoster(ctx context.Context) ([]MemberIdentity, error)
}

// =============================================================================
// ZONE TOPOLOGY - Assembly grouping resolver
// =============================================================================

// ZoneTopology resolves the zone -> assembly-set map.
type ZoneTopology interface {
	Zones(ctx context.Context) ([]Zone, error)
}
