/*
group.go - Hierarchical grouping: member -> assembly -> zone

PURPOSE:
  Rolls per-member aggregates up into assembly groups and assembly groups
  into zone groups. A member's entire aggregated row is filed under the
  single assembly with the highest tally across the member's records in the
  window (ties by first-encounter, no label means "Unknown Assembly").
  Zones come from the external topology map; assemblies with no mapping fall
  into the synthetic unmapped zone. Within each zone, assemblies split into
  performing / underperforming at an inclusive punch-count threshold.

ORDERING:
  Members within an assembly, and assemblies within each bucket, sort
  descending by total punches. Zones sort alphabetically by display name so
  report ordering is stable.

INVARIANT:
  Assembly groups partition the window's distinct active members: no member
  is dropped or filed twice.
*/
package analytics

import "sort"

// DefaultPerformingThreshold is the assembly punch total at or above which an
// assembly counts as performing.
const DefaultPerformingThreshold = 10

// =============================================================================
// GROUPER
// =============================================================================

// Grouper builds the assembly and zone levels of a segment. The zero value
// uses the default performing threshold.
type Grouper struct {
	PerformingThreshold int
}

// AssignAssemblies sets each rollup's Assembly to its modal label. Ties break
// toward the label encountered first in the member's records; members with no
// labeled record anywhere in the window get UnknownAssembly.
func (g Grouper) AssignAssemblies(rollups []MemberRollup) []MemberRollup {
	out := make([]MemberRollup, len(rollups))
	for i, ru := range rollups {
		out[i] = ru
		out[i].Assembly = modalAssembly(ru.assemblyVotes)
	}
	return out
}

func modalAssembly(votes []assemblyVote) string {
	if len(votes) == 0 {
		return UnknownAssembly
	}
	best := votes[0]
	for _, v := range votes[1:] {
		// Strictly greater keeps first-encounter order on ties.
		if v.count > best.count {
			best = v
		}
	}
	return best.assembly
}

// GroupByAssembly partitions assembly-assigned rollups into assembly groups.
// Group order follows total punches descending; members within a group
// likewise.
func (g Grouper) GroupByAssembly(rollups []MemberRollup) []AssemblyGroup {
	byName := make(map[string]*AssemblyGroup)
	var order []string

	for _, ru := range rollups {
		grp, ok := byName[ru.Assembly]
		if !ok {
			grp = &AssemblyGroup{Assembly: ru.Assembly}
			byName[ru.Assembly] = grp
			order = append(order, ru.Assembly)
		}
		grp.Members = append(grp.Members, ru)
		grp.TotalPunches += ru.TotalPunches
	}

	groups := make([]AssemblyGroup, 0, len(order))
	for _, name := range order {
		grp := *byName[name]
		sort.SliceStable(grp.Members, func(i, j int) bool {
			return grp.Members[i].TotalPunches > grp.Members[j].TotalPunches
		})
		groups = append(groups, grp)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].TotalPunches > groups[j].TotalPunches
	})
	return groups
}

// GroupByZone maps assembly groups into zones and splits each zone's
// assemblies into performing / underperforming buckets. An assembly whose
// total equals the threshold is performing (inclusive lower bound).
func (g Grouper) GroupByZone(groups []AssemblyGroup, zones []Zone) []ZoneGroup {
	threshold := g.PerformingThreshold
	if threshold <= 0 {
		threshold = DefaultPerformingThreshold
	}

	assemblyToZone := make(map[string]*ZoneGroup)
	byID := make(map[string]*ZoneGroup)
	var order []string

	newZone := func(id, name string) *ZoneGroup {
		z := &ZoneGroup{ZoneID: id, ZoneName: name, Threshold: threshold}
		byID[id] = z
		order = append(order, id)
		return z
	}

	for _, zone := range zones {
		z, ok := byID[zone.ID]
		if !ok {
			z = newZone(zone.ID, zone.Name)
		}
		for _, assembly := range zone.Assemblies {
			// First mapping wins when the topology lists an assembly twice.
			if _, taken := assemblyToZone[assembly]; !taken {
				assemblyToZone[assembly] = z
			}
		}
	}

	for _, grp := range groups {
		z, ok := assemblyToZone[grp.Assembly]
		if !ok {
			z = byID[UnmappedZoneID]
			if z == nil {
				z = newZone(UnmappedZoneID, UnmappedZoneName)
			}
		}
		if grp.TotalPunches >= threshold {
			z.Performing = append(z.Performing, grp)
		} else {
			z.Underperforming = append(z.Underperforming, grp)
		}
	}

	out := make([]ZoneGroup, 0, len(order))
	for _, id := range order {
		z := *byID[id]
		// Empty zones are dropped; the report only shows zones with activity.
		if len(z.Performing) == 0 && len(z.Underperforming) == 0 {
			continue
		}
		sort.SliceStable(z.Performing, func(i, j int) bool {
			return z.Performing[i].TotalPunches > z.Performing[j].TotalPunches
		})
		sort.SliceStable(z.Underperforming, func(i, j int) bool {
			return z.Underperforming[i].TotalPunches > z.Underperforming[j].TotalPunches
		})
		out = append(out, z)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZoneName < out[j].ZoneName
	})
	return out
}
