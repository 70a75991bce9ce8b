/*
Package sqlite provides a SQLite-backed implementation of the engine's
external collaborator interfaces.

PURPOSE:
  Implements the document store (daily summaries + per-day member detail
  rows), the member-identity directory, the zone topology map, and the cache
  substrate in one database. In production, the same shapes apply to any
  document store with lexicographic key-range queries.

INTERFACES IMPLEMENTED:
  analytics.DocumentStore:     Date-keyed reads, lexicographic range query
  analytics.IdentityDirectory: Roster point-reads + full scan
  analytics.ZoneTopology:      Zone -> assembly-set map
  cache.Substrate:             Raw key -> JSON-bytes cache storage

KEY ORDERING:
  date columns store "YYYY-MM-DD" TEXT, so SQLite's string comparison is
  chronological comparison and BETWEEN implements the range query directly.

SEEDING:
  The engine itself never writes daily data; the Put* helpers exist so demos
  and tests can populate the store the way the (out-of-scope) ingestion
  process would.

CACHE SUBSTRATE:
  Substrate errors are swallowed and reported as absence. A cache fault must
  never fail a report; TTL/corruption semantics live in the cache package.

WAL MODE:
  Opened with WAL so the report path's concurrent reads never block each
  other.

SEE ALSO:
  - analytics/store.go: Interface contracts
  - analytics/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fieldops/outreach-analytics/analytics"
)

// Store implements the read interfaces and the cache substrate over SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at path. Use ":memory:" for an
// in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Daily summary documents, one per calendar day. Optional punch totals
	-- are nullable; older data predates them.
	CREATE TABLE IF NOT EXISTS daily_summaries (
		date TEXT PRIMARY KEY,
		total_param2_values INTEGER NOT NULL DEFAULT 0,
		matched_count INTEGER NOT NULL DEFAULT 0,
		unidentifiable_count INTEGER NOT NULL DEFAULT 0,
		incorrect_count INTEGER NOT NULL DEFAULT 0,
		no_match_count INTEGER NOT NULL DEFAULT 0,
		total_punches INTEGER,
		unique_entries INTEGER,
		double_entries INTEGER,
		triple_and_more_entries INTEGER,
		matched_total_punches INTEGER,
		matched_unique_entries INTEGER,
		matched_double_entries INTEGER,
		matched_triple_and_more_entries INTEGER
	);

	-- Per-day member detail rows (the per-date sub-collection).
	CREATE TABLE IF NOT EXISTS member_day_records (
		date TEXT NOT NULL,
		member_id TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		assembly TEXT NOT NULL DEFAULT '',
		total_punches INTEGER NOT NULL DEFAULT 0,
		unique_entries INTEGER NOT NULL DEFAULT 0,
		double_entries INTEGER NOT NULL DEFAULT 0,
		triple_and_more_entries INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, member_id)
	);

	CREATE INDEX IF NOT EXISTS idx_member_day_records_date
		ON member_day_records(date);
	CREATE INDEX IF NOT EXISTS idx_member_day_records_member
		ON member_day_records(member_id, date);

	-- Roster directory (owned by the roster-management process).
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		assembly TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		legacy_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_members_legacy
		ON members(legacy_id) WHERE legacy_id != '';

	-- Zone topology.
	CREATE TABLE IF NOT EXISTS zones (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS zone_assemblies (
		zone_id TEXT NOT NULL REFERENCES zones(id),
		assembly TEXT NOT NULL,
		PRIMARY KEY (zone_id, assembly)
	);

	-- Cache substrate: raw envelope bytes, expiry handled by the cache layer.
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		raw BLOB NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

func (s *Store) ListSummaryDates(ctx context.Context, from, to analytics.DateKey) ([]analytics.DateKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date FROM daily_summaries WHERE date BETWEEN ? AND ? ORDER BY date`,
		string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("list summary dates: %w", err)
	}
	defer rows.Close()

	var dates []analytics.DateKey
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, analytics.DateKey(d))
	}
	return dates, rows.Err()
}

func (s *Store) GetDailySummary(ctx context.Context, date analytics.DateKey) (*analytics.DailySummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date, total_param2_values, matched_count, unidentifiable_count,
		       incorrect_count, no_match_count,
		       total_punches, unique_entries, double_entries, triple_and_more_entries,
		       matched_total_punches, matched_unique_entries,
		       matched_double_entries, matched_triple_and_more_entries
		FROM daily_summaries WHERE date = ?`, string(date))

	var (
		d       string
		summary analytics.DailySummary
		opt     [8]sql.NullInt64
	)
	err := row.Scan(&d,
		&summary.TotalParam2Values, &summary.MatchedCount, &summary.UnidentifiableCount,
		&summary.IncorrectCount, &summary.NoMatchCount,
		&opt[0], &opt[1], &opt[2], &opt[3], &opt[4], &opt[5], &opt[6], &opt[7])
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily summary %s: %w", date, err)
	}

	summary.Date = analytics.DateKey(d)
	summary.TotalPunches = optInt(opt[0])
	summary.UniqueEntries = optInt(opt[1])
	summary.DoubleEntries = optInt(opt[2])
	summary.TripleAndMoreEntries = optInt(opt[3])
	summary.MatchedTotalPunches = optInt(opt[4])
	summary.MatchedUniqueEntries = optInt(opt[5])
	summary.MatchedDoubleEntries = optInt(opt[6])
	summary.MatchedTripleAndMoreEntries = optInt(opt[7])
	return &summary, nil
}

func (s *Store) ListMemberRecords(ctx context.Context, date analytics.DateKey) ([]analytics.MemberDailyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, phone, assembly,
		       total_punches, unique_entries, double_entries, triple_and_more_entries
		FROM member_day_records WHERE date = ?`, string(date))
	if err != nil {
		return nil, fmt.Errorf("list member records %s: %w", date, err)
	}
	defer rows.Close()

	var records []analytics.MemberDailyRecord
	for rows.Next() {
		var rec analytics.MemberDailyRecord
		if err := rows.Scan(&rec.MemberID, &rec.Phone, &rec.Assembly,
			&rec.TotalPunches, &rec.UniqueEntries, &rec.DoubleEntries,
			&rec.TripleAndMoreEntries); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// IDENTITY DIRECTORY
// =============================================================================

func (s *Store) GetMember(ctx context.Context, memberID string) (*analytics.MemberIdentity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, assembly, phone, legacy_id FROM members WHERE id = ?`,
		memberID)

	var identity analytics.MemberIdentity
	err := row.Scan(&identity.ID, &identity.Name, &identity.Assembly,
		&identity.Phone, &identity.LegacyID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member %s: %w", memberID, err)
	}
	return &identity, nil
}

func (s *Store) ListRoster(ctx context.Context) ([]analytics.MemberIdentity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, assembly, phone, legacy_id FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var roster []analytics.MemberIdentity
	for rows.Next() {
		var identity analytics.MemberIdentity
		if err := rows.Scan(&identity.ID, &identity.Name, &identity.Assembly,
			&identity.Phone, &identity.LegacyID); err != nil {
			return nil, err
		}
		roster = append(roster, identity)
	}
	return roster, rows.Err()
}

// =============================================================================
// ZONE TOPOLOGY
// =============================================================================

func (s *Store) Zones(ctx context.Context) ([]analytics.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT z.id, z.name, za.assembly
		FROM zones z LEFT JOIN zone_assemblies za ON za.zone_id = z.id
		ORDER BY z.id, za.assembly`)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	var zones []analytics.Zone
	index := make(map[string]int)
	for rows.Next() {
		var (
			id, name string
			assembly sql.NullString
		)
		if err := rows.Scan(&id, &name, &assembly); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			i = len(zones)
			index[id] = i
			zones = append(zones, analytics.Zone{ID: id, Name: name})
		}
		if assembly.Valid {
			zones[i].Assemblies = append(zones[i].Assemblies, assembly.String)
		}
	}
	return zones, rows.Err()
}

// =============================================================================
// CACHE SUBSTRATE
// =============================================================================
// Errors are deliberately swallowed: a cache fault reads as a miss.

func (s *Store) Get(key string) ([]byte, bool) {
	var raw []byte
	err := s.db.QueryRow(`SELECT raw FROM cache_entries WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (s *Store) Set(key string, raw []byte) {
	s.db.Exec(`INSERT INTO cache_entries (key, raw) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET raw = excluded.raw`, key, raw)
}

func (s *Store) Delete(key string) {
	s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
}

func (s *Store) Keys() []string {
	rows, err := s.db.Query(`SELECT key FROM cache_entries`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return keys
		}
		keys = append(keys, k)
	}
	return keys
}

// =============================================================================
// SEED HELPERS - Populate the store the way the ingestion process would
// =============================================================================

// PutDailySummary upserts one day's summary document.
func (s *Store) PutDailySummary(ctx context.Context, summary analytics.DailySummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_summaries (
			date, total_param2_values, matched_count, unidentifiable_count,
			incorrect_count, no_match_count,
			total_punches, unique_entries, double_entries, triple_and_more_entries,
			matched_total_punches, matched_unique_entries,
			matched_double_entries, matched_triple_and_more_entries
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_param2_values = excluded.total_param2_values,
			matched_count = excluded.matched_count,
			unidentifiable_count = excluded.unidentifiable_count,
			incorrect_count = excluded.incorrect_count,
			no_match_count = excluded.no_match_count,
			total_punches = excluded.total_punches,
			unique_entries = excluded.unique_entries,
			double_entries = excluded.double_entries,
			triple_and_more_entries = excluded.triple_and_more_entries,
			matched_total_punches = excluded.matched_total_punches,
			matched_unique_entries = excluded.matched_unique_entries,
			matched_double_entries = excluded.matched_double_entries,
			matched_triple_and_more_entries = excluded.matched_triple_and_more_entries`,
		string(summary.Date),
		summary.TotalParam2Values, summary.MatchedCount, summary.UnidentifiableCount,
		summary.IncorrectCount, summary.NoMatchCount,
		intArg(summary.TotalPunches), intArg(summary.UniqueEntries),
		intArg(summary.DoubleEntries), intArg(summary.TripleAndMoreEntries),
		intArg(summary.MatchedTotalPunches), intArg(summary.MatchedUniqueEntries),
		intArg(summary.MatchedDoubleEntries), intArg(summary.MatchedTripleAndMoreEntries))
	if err != nil {
		return fmt.Errorf("put daily summary %s: %w", summary.Date, err)
	}
	return nil
}

// PutMemberRecords replaces one day's detail sub-collection.
func (s *Store) PutMemberRecords(ctx context.Context, date analytics.DateKey, records []analytics.MemberDailyRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM member_day_records WHERE date = ?`, string(date)); err != nil {
		return err
	}
	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO member_day_records (
				date, member_id, phone, assembly,
				total_punches, unique_entries, double_entries, triple_and_more_entries
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(date), rec.MemberID, rec.Phone, rec.Assembly,
			rec.TotalPunches, rec.UniqueEntries, rec.DoubleEntries,
			rec.TripleAndMoreEntries); err != nil {
			return fmt.Errorf("put member record %s/%s: %w", date, rec.MemberID, err)
		}
	}
	return tx.Commit()
}

// PutMember upserts a roster directory entry.
func (s *Store) PutMember(ctx context.Context, identity analytics.MemberIdentity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, name, assembly, phone, legacy_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			assembly = excluded.assembly,
			phone = excluded.phone,
			legacy_id = excluded.legacy_id`,
		identity.ID, identity.Name, identity.Assembly, identity.Phone, identity.LegacyID)
	if err != nil {
		return fmt.Errorf("put member %s: %w", identity.ID, err)
	}
	return nil
}

// PutZone upserts a zone and its assembly set.
func (s *Store) PutZone(ctx context.Context, zone analytics.Zone) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO zones (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		zone.ID, zone.Name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM zone_assemblies WHERE zone_id = ?`, zone.ID); err != nil {
		return err
	}
	for _, assembly := range zone.Assemblies {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO zone_assemblies (zone_id, assembly) VALUES (?, ?)`,
			zone.ID, assembly); err != nil {
			return fmt.Errorf("put zone %s: %w", zone.ID, err)
		}
	}
	return tx.Commit()
}

// Ping verifies the database is reachable, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", analytics.ErrStoreUnavailable, err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func optInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
