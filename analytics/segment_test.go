package analytics_test

import (
	"errors"
	"testing"

	"github.com/fieldops/outreach-analytics/analytics"
)

func TestSegments_Cumulative_SingleWindow(t *testing.T) {
	// GIVEN: A 31-day range
	// WHEN: Split cumulatively
	// THEN: One window spanning the full range, labeled "<start> to <end>"

	r := analytics.DateRange{Start: "2025-01-01", End: "2025-01-31"}
	windows, err := analytics.Segments(r, analytics.SplitCumulative)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if windows[0].Label != "2025-01-01 to 2025-01-31" {
		t.Errorf("label = %q", windows[0].Label)
	}
	if windows[0].Range != r {
		t.Errorf("range = %+v", windows[0].Range)
	}
}

func TestSegments_Day_OneWindowPerDay(t *testing.T) {
	// GIVEN: A 5-day range
	// WHEN: Split by day
	// THEN: Five single-day windows in order, each labeled by its date

	r := analytics.DateRange{Start: "2025-03-29", End: "2025-04-02"}
	windows, err := analytics.Segments(r, analytics.SplitDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 5 {
		t.Fatalf("expected 5 windows, got %d", len(windows))
	}
	for i, want := range []analytics.DateKey{"2025-03-29", "2025-03-30", "2025-03-31", "2025-04-01", "2025-04-02"} {
		w := windows[i]
		if w.Label != string(want) || w.Range.Start != want || w.Range.End != want {
			t.Errorf("window %d: %+v, want single day %q", i, w, want)
		}
	}
}

func TestSegments_Month_ClipsPartialMonths(t *testing.T) {
	// GIVEN: A 45-day range starting mid-month (Jan 20 .. Mar 5)
	// WHEN: Split by month
	// THEN: Three windows, first and last clipped to the requested bounds

	r := analytics.DateRange{Start: "2025-01-20", End: "2025-03-05"}
	windows, err := analytics.Segments(r, analytics.SplitMonth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}

	want := []struct {
		label      string
		start, end analytics.DateKey
	}{
		{"January 2025", "2025-01-20", "2025-01-31"},
		{"February 2025", "2025-02-01", "2025-02-28"},
		{"March 2025", "2025-03-01", "2025-03-05"},
	}
	for i, w := range want {
		got := windows[i]
		if got.Label != w.label || got.Range.Start != w.start || got.Range.End != w.end {
			t.Errorf("window %d: %+v, want %+v", i, got, w)
		}
	}
}

func TestSegments_Month_SingleMonthWithinBounds(t *testing.T) {
	// A range inside one month yields exactly one clipped window.
	r := analytics.DateRange{Start: "2025-06-10", End: "2025-06-20"}
	windows, err := analytics.Segments(r, analytics.SplitMonth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if windows[0].Range.Start != "2025-06-10" || windows[0].Range.End != "2025-06-20" {
		t.Errorf("window not clipped to bounds: %+v", windows[0].Range)
	}
}

func TestSegments_UnknownMode(t *testing.T) {
	r := analytics.DateRange{Start: "2025-01-01", End: "2025-01-02"}
	_, err := analytics.Segments(r, analytics.SplitMode("weekly"))
	if !errors.Is(err, analytics.ErrInvalidSplitMode) {
		t.Errorf("expected ErrInvalidSplitMode, got %v", err)
	}
}

func TestSegments_WindowsCoverRangeExactly(t *testing.T) {
	// Month windows must partition the range: contiguous, no overlap, no gap.
	r := analytics.DateRange{Start: "2024-11-15", End: "2025-02-10"}
	windows, err := analytics.Segments(r, analytics.SplitMonth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if windows[0].Range.Start != r.Start {
		t.Errorf("first window starts at %q, want %q", windows[0].Range.Start, r.Start)
	}
	if windows[len(windows)-1].Range.End != r.End {
		t.Errorf("last window ends at %q, want %q", windows[len(windows)-1].Range.End, r.End)
	}
	for i := 1; i < len(windows); i++ {
		if windows[i].Range.Start != windows[i-1].Range.End.AddDays(1) {
			t.Errorf("gap or overlap between window %d and %d", i-1, i)
		}
	}
}
