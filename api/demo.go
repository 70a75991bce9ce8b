/*
demo.go - Deterministic demo dataset

PURPOSE:
  Seeds a small, fully deterministic dataset so a fresh server has something
  to report on immediately. The data deliberately exercises the engine's
  edge paths:

  - sparse dates (no records on Sundays)
  - newer days carry pre-computed totals, older days do not (fallback path)
  - one day with a deliberate authoritative-vs-parts discrepancy
  - a member whose assembly label flips between days (modal assignment)
  - a member resolvable only by normalized phone, one only by legacy id,
    and one unknown to the directory entirely (placeholder path)
  - a roster member with zero activity (zero-valued coverage row)
  - an assembly absent from the zone topology (unmapped zone)
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldops/outreach-analytics/analytics"
)

// demoStart anchors the dataset. Three weeks of data, Sundays skipped.
const (
	demoStartDate = "2025-05-05"
	demoDays      = 21
)

type demoMember struct {
	id       string
	name     string
	assembly string
	phone    string
	legacyID string
	punches  int // per active day
}

var demoMembers = []demoMember{
	{id: "m-1001", name: "Asha Verma", assembly: "Central East", phone: "+91 98765 10001", punches: 14},
	{id: "m-1002", name: "Ravi Kumar", assembly: "Central East", phone: "9876510002", punches: 9},
	{id: "m-1003", name: "Meena Joshi", assembly: "Central West", phone: "9876510003", punches: 12},
	// Directory knows this member only under the legacy id.
	{id: "m-1004", name: "Sunil Rao", assembly: "Riverside", phone: "", legacyID: "legacy-44", punches: 6},
	// Phone-only resolution: activity rows carry a different member id.
	{id: "m-1005", name: "Pooja Nair", assembly: "Riverside", phone: "(987) 651-0005", punches: 11},
	// Assembly missing from the topology; lands in the unmapped zone.
	{id: "m-1006", name: "Vikram Singh", assembly: "Hilltop", phone: "9876510006", punches: 4},
}

var demoZones = []analytics.Zone{
	{ID: "z-north", Name: "North Zone", Assemblies: []string{"Central East", "Central West"}},
	{ID: "z-south", Name: "South Zone", Assemblies: []string{"Riverside"}},
}

// LoadDemoData seeds the deterministic demo dataset into the store.
func LoadDemoData(ctx context.Context, seed SeedStore) (DemoLoadResponse, error) {
	var resp DemoLoadResponse

	for _, zone := range demoZones {
		if err := seed.PutZone(ctx, zone); err != nil {
			return resp, err
		}
		resp.Zones++
	}

	for _, m := range demoMembers {
		if err := seed.PutMember(ctx, analytics.MemberIdentity{
			ID:       m.id,
			Name:     m.name,
			Assembly: m.assembly,
			Phone:    m.phone,
			LegacyID: m.legacyID,
		}); err != nil {
			return resp, err
		}
		resp.Members++
	}
	// Roster member with no activity in the dataset.
	if err := seed.PutMember(ctx, analytics.MemberIdentity{
		ID:       "m-1099",
		Name:     "Kiran Das",
		Assembly: "Central West",
		Phone:    "9876510099",
	}); err != nil {
		return resp, err
	}
	resp.Members++

	start, err := analytics.ParseDateKey(demoStartDate)
	if err != nil {
		return resp, err
	}

	for i := 0; i < demoDays; i++ {
		date := start.AddDays(i)
		if date.Time().Weekday() == time.Sunday {
			continue // sparse data
		}

		records := demoRecords(date, i)
		if err := seed.PutMemberRecords(ctx, date, records); err != nil {
			return resp, err
		}
		if err := seed.PutDailySummary(ctx, demoSummary(date, i, records)); err != nil {
			return resp, err
		}
		resp.Days++
	}
	return resp, nil
}

func demoRecords(date analytics.DateKey, day int) []analytics.MemberDailyRecord {
	var records []analytics.MemberDailyRecord
	for j, m := range demoMembers {
		// Each member skips every (j+3)th day so activity is uneven.
		if (day+j)%(j+3) == 0 {
			continue
		}

		memberID := m.id
		if m.id == "m-1005" {
			// Phone-only member logs under a device-generated id.
			memberID = fmt.Sprintf("device-%d", 5000+j)
		}

		assembly := m.assembly
		if m.id == "m-1003" && day%3 == 0 {
			// Occasional mislabel; modal assignment keeps Central West.
			assembly = "Central East"
		}
		if day < 5 {
			assembly = "" // oldest rows predate the assembly column
		}

		total := m.punches + (day % 3)
		double := total / 5
		triple := total / 10
		unique := total - double - triple

		records = append(records, analytics.MemberDailyRecord{
			MemberID:             memberID,
			Phone:                m.phone,
			Assembly:             assembly,
			TotalPunches:         total,
			UniqueEntries:        unique,
			DoubleEntries:        double,
			TripleAndMoreEntries: triple,
		})
	}
	return records
}

func demoSummary(date analytics.DateKey, day int, records []analytics.MemberDailyRecord) analytics.DailySummary {
	var total, unique, double, triple int
	for _, rec := range records {
		total += rec.TotalPunches
		unique += rec.UniqueEntries
		double += rec.DoubleEntries
		triple += rec.TripleAndMoreEntries
	}

	s := analytics.DailySummary{
		Date:                date,
		TotalParam2Values:   total + 10,
		MatchedCount:        total,
		UnidentifiableCount: 4,
		IncorrectCount:      3,
		NoMatchCount:        3,
	}

	// Older days predate pre-computed totals; the aggregator recomputes them
	// from the detail rows above.
	if day >= 5 {
		if day == 12 {
			total += 7 // deliberate discrepancy, surfaced not corrected
		}
		s.TotalPunches = &total
		s.UniqueEntries = &unique
		s.DoubleEntries = &double
		s.TripleAndMoreEntries = &triple
	}
	return s
}
