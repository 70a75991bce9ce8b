package analytics

import "fmt"

// =============================================================================
// SEGMENTER - Pure splitting of a range into report windows
// =============================================================================

// Window is one segmentation output: a labeled sub-range clipped to the
// requested boundaries.
type Window struct {
	Label string
	Range DateRange
}

// Segments splits an ordered range by mode. Pure, no I/O.
//
//	cumulative: one window spanning the whole range, labeled "<start> to <end>"
//	day:        one window per calendar day, labeled by the date
//	month:      one window per calendar month touched by the range; the first
//	            and last windows may be partial months, labels like "May 2025"
func Segments(r DateRange, mode SplitMode) ([]Window, error) {
	switch mode {
	case SplitCumulative:
		return []Window{{Label: r.String(), Range: r}}, nil

	case SplitDay:
		var windows []Window
		for _, d := range r.Days() {
			windows = append(windows, Window{
				Label: string(d),
				Range: DateRange{Start: d, End: d},
			})
		}
		return windows, nil

	case SplitMonth:
		var windows []Window
		for start := r.Start; start.BeforeOrEqual(r.End); {
			end := start.EndOfMonth()
			if end.After(r.End) {
				end = r.End
			}
			windows = append(windows, Window{
				Label: start.MonthLabel(),
				Range: DateRange{Start: start, End: end},
			})
			start = end.AddDays(1)
		}
		return windows, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSplitMode, mode)
	}
}
