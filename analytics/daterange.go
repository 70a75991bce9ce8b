package analytics

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE KEY - Calendar-day identifier, sorts lexicographically == chronologically
// =============================================================================

// DateKey identifies a calendar day as "2006-01-02". Because the format is
// zero-padded ISO, string comparison and chronological comparison agree, which
// is what makes lexicographic range queries over the document store correct.
type DateKey string

const dateKeyLayout = "2006-01-02"

// NewDateKey builds a DateKey from calendar components.
func NewDateKey(year int, month time.Month, day int) DateKey {
	return DateKeyOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateKeyOf truncates a time to its UTC calendar day.
func DateKeyOf(t time.Time) DateKey {
	return DateKey(t.UTC().Format(dateKeyLayout))
}

// ParseDateKey validates and normalizes a date string.
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(dateKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateKey, s)
	}
	return DateKeyOf(t), nil
}

// Time returns the midnight-UTC instant for the day. A zero time is returned
// for malformed keys; validated keys never hit that path.
func (d DateKey) Time() time.Time {
	t, err := time.Parse(dateKeyLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Comparison. DateKey ordering is plain string ordering.
func (d DateKey) Before(other DateKey) bool        { return d < other }
func (d DateKey) After(other DateKey) bool         { return d > other }
func (d DateKey) BeforeOrEqual(other DateKey) bool { return d <= other }
func (d DateKey) AfterOrEqual(other DateKey) bool  { return d >= other }

// AddDays returns the key n days later (or earlier for negative n).
func (d DateKey) AddDays(n int) DateKey {
	return DateKeyOf(d.Time().AddDate(0, 0, n))
}

// StartOfMonth returns the first day of the key's month.
func (d DateKey) StartOfMonth() DateKey {
	t := d.Time()
	return NewDateKey(t.Year(), t.Month(), 1)
}

// EndOfMonth returns the last day of the key's month.
func (d DateKey) EndOfMonth() DateKey {
	t := d.Time()
	return DateKeyOf(time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}

// MonthLabel returns the human-readable month+year string ("January 2025").
func (d DateKey) MonthLabel() string {
	return d.Time().Format("January 2006")
}

// =============================================================================
// DATE RANGE - Inclusive [Start, End] window
// =============================================================================

// DateRange is an inclusive calendar-day window.
type DateRange struct {
	Start DateKey `json:"start"`
	End   DateKey `json:"end"`
}

// NormalizeRange orders a pair of keys so Start <= End. Callers may pass the
// bounds in either order; every downstream component assumes ordered bounds.
func NormalizeRange(a, b DateKey) DateRange {
	if b.Before(a) {
		a, b = b, a
	}
	return DateRange{Start: a, End: b}
}

// Contains reports whether the day falls inside the window.
func (r DateRange) Contains(d DateKey) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Days returns every calendar day in the window, in order.
func (r DateRange) Days() []DateKey {
	var days []DateKey
	for d := r.Start; d.BeforeOrEqual(r.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Len returns the number of calendar days in the window.
func (r DateRange) Len() int {
	return DaysBetween(r.Start, r.End) + 1
}

// String returns "<start> to <end>", the cumulative segment label.
func (r DateRange) String() string {
	return string(r.Start) + " to " + string(r.End)
}

// DaysBetween returns the signed day distance from one key to another.
func DaysBetween(from, to DateKey) int {
	return int(to.Time().Sub(from.Time()).Hours() / 24)
}
