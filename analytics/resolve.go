/*
resolve.go - Member identity resolution

PURPOSE:
  Maps activity back to roster identities and roster entries back to
  activity. Resolution is an ordered chain of strategies with early exit:

    1. normalized phone number (strip non-digits, keep the last 10)
    2. the record's member id as a direct directory key
    3. the roster entry's secondary/legacy id

  First match wins. A total miss is not an error: the rollup keeps a
  deterministic placeholder identity ("Member-<shortid>" / "Unknown Assembly"
  / "N/A"), and a roster entry with no activity gets a zero-valued rollup
  rather than being omitted.

LOOKUP DISCIPLINE:
  One roster scan per report window builds the phone and legacy-id indexes;
  direct-key lookups are memoized so the directory sees at most one
  point-read per distinct member id, never one query per record.
*/
package analytics

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver attaches display identities to member rollups.
type Resolver struct {
	Directory IdentityDirectory
	Logger    *zap.Logger
}

// resolveStrategy is one step of the resolution chain. A nil identity with a
// nil error means "no match here, try the next strategy".
type resolveStrategy struct {
	name string
	fn   func(ctx context.Context, ru MemberRollup) (*MemberIdentity, error)
}

// EnrichRollups fills Name/Assembly/Phone on each rollup from the directory,
// falling back to the placeholder identity when no strategy matches. The
// rollup's punch figures are never touched. Directory failures degrade to
// placeholders; they never fail the report.
func (r *Resolver) EnrichRollups(ctx context.Context, rollups []MemberRollup) []MemberRollup {
	return r.EnrichWith(ctx, r.Snapshot(ctx), rollups)
}

// EnrichWith is EnrichRollups over a pre-built roster snapshot, for callers
// that also need the snapshot elsewhere in the same request.
func (r *Resolver) EnrichWith(ctx context.Context, idx *RosterIndex, rollups []MemberRollup) []MemberRollup {
	strategies := r.strategies(idx)

	out := make([]MemberRollup, len(rollups))
	for i, ru := range rollups {
		identity := r.resolve(ctx, ru, strategies)
		out[i] = ru
		out[i].Name = identity.Name
		out[i].Phone = preferNonEmpty(ru.Phone, identity.Phone)
		// Assembly stays record-derived when present; the grouper assigns
		// the modal label. Directory assembly only backfills label-less
		// members.
		if len(ru.assemblyVotes) == 0 && identity.Assembly != "" && identity.Assembly != UnknownAssembly {
			out[i].assemblyVotes = []assemblyVote{{assembly: identity.Assembly, count: 1}}
		}
	}
	return out
}

func (r *Resolver) resolve(ctx context.Context, ru MemberRollup, strategies []resolveStrategy) MemberIdentity {
	for _, s := range strategies {
		identity, err := s.fn(ctx, ru)
		if err != nil {
			r.logger().Warn("identity strategy failed, continuing chain",
				zap.String("strategy", s.name),
				zap.String("member_id", ru.MemberID),
				zap.Error(err))
			continue
		}
		if identity != nil {
			return *identity
		}
	}
	return PlaceholderIdentity(ru.MemberID)
}

// strategies returns the ordered chain. Adding a resolution source is a pure
// addition here.
func (r *Resolver) strategies(idx *RosterIndex) []resolveStrategy {
	memo := make(map[string]*MemberIdentity)

	return []resolveStrategy{
		{
			name: "phone",
			fn: func(_ context.Context, ru MemberRollup) (*MemberIdentity, error) {
				if p := NormalizePhone(ru.Phone); p != "" {
					if id, ok := idx.byPhone[p]; ok {
						return &id, nil
					}
				}
				return nil, nil
			},
		},
		{
			name: "primary-id",
			fn: func(ctx context.Context, ru MemberRollup) (*MemberIdentity, error) {
				if cached, ok := memo[ru.MemberID]; ok {
					return cached, nil
				}
				identity, err := r.Directory.GetMember(ctx, ru.MemberID)
				if err != nil {
					return nil, err
				}
				memo[ru.MemberID] = identity
				return identity, nil
			},
		},
		{
			name: "legacy-id",
			fn: func(_ context.Context, ru MemberRollup) (*MemberIdentity, error) {
				if id, ok := idx.byLegacy[ru.MemberID]; ok {
					return &id, nil
				}
				return nil, nil
			},
		},
	}
}

// =============================================================================
// ROSTER -> ACTIVITY MATCHING
// =============================================================================

// RosterActivity pairs a roster entry with its window activity.
type RosterActivity struct {
	Identity MemberIdentity `json:"identity"`
	Rollup   MemberRollup   `json:"rollup"`
	Active   bool           `json:"active"`
}

// MatchRoster maps every roster entry to its activity in the window. Entries
// with no matching rollup get a zero-valued rollup attached rather than being
// omitted, so roster coverage views see the full roster.
func (r *Resolver) MatchRoster(ctx context.Context, rollups []MemberRollup) []RosterActivity {
	return r.MatchWith(r.Snapshot(ctx), rollups)
}

// MatchWith is MatchRoster over a pre-built roster snapshot.
func (r *Resolver) MatchWith(idx *RosterIndex, rollups []MemberRollup) []RosterActivity {
	byPhone := make(map[string]*MemberRollup)
	byID := make(map[string]*MemberRollup)
	for i := range rollups {
		ru := &rollups[i]
		byID[ru.MemberID] = ru
		if p := NormalizePhone(ru.Phone); p != "" {
			byPhone[p] = ru
		}
	}

	out := make([]RosterActivity, 0, len(idx.roster))
	for _, entry := range idx.roster {
		var matched *MemberRollup
		if p := NormalizePhone(entry.Phone); p != "" {
			matched = byPhone[p]
		}
		if matched == nil {
			matched = byID[entry.ID]
		}
		if matched == nil && entry.LegacyID != "" {
			matched = byID[entry.LegacyID]
		}

		activity := RosterActivity{Identity: entry}
		if matched != nil {
			activity.Rollup = *matched
			activity.Active = true
		} else {
			activity.Rollup = MemberRollup{
				MemberID: entry.ID,
				Name:     entry.Name,
				Assembly: entry.Assembly,
				Phone:    entry.Phone,
			}
		}
		out = append(out, activity)
	}
	return out
}

// =============================================================================
// ROSTER INDEX
// =============================================================================

// RosterIndex is a one-scan snapshot of the directory: the roster plus its
// phone and legacy-id lookup indexes. Built once per request window.
type RosterIndex struct {
	roster   []MemberIdentity
	byPhone  map[string]MemberIdentity
	byLegacy map[string]MemberIdentity
}

// Snapshot scans the roster once and builds the lookup indexes. On a failed
// scan the snapshot is empty; phone and legacy-id resolution degrade, the
// request does not fail.
func (r *Resolver) Snapshot(ctx context.Context) *RosterIndex {
	idx := &RosterIndex{
		byPhone:  make(map[string]MemberIdentity),
		byLegacy: make(map[string]MemberIdentity),
	}

	roster, err := r.Directory.ListRoster(ctx)
	if err != nil {
		r.logger().Warn("roster scan failed, phone and legacy-id strategies disabled",
			zap.Error(err))
		return idx
	}

	idx.roster = roster
	for _, entry := range roster {
		if p := NormalizePhone(entry.Phone); p != "" {
			if _, taken := idx.byPhone[p]; !taken {
				idx.byPhone[p] = entry
			}
		}
		if entry.LegacyID != "" {
			if _, taken := idx.byLegacy[entry.LegacyID]; !taken {
				idx.byLegacy[entry.LegacyID] = entry
			}
		}
	}
	return idx
}

// NormalizePhone strips non-digits and keeps the last 10 digits. Numbers with
// fewer than 10 digits are kept whole; empty input normalizes to empty.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

func preferNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	if b != "" {
		return b
	}
	return UnknownPhone
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
