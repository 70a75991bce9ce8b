/*
errors.go - Centralized error types for the analytics engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR POLICY:
  No error in this engine propagates as a hard failure of a whole report.
  Range-query failures fail open (empty existing-dates list), individual
  point-read failures are skipped, identity misses resolve to placeholders,
  and corrupt cache entries read as misses. The errors below therefore mark
  caller mistakes (bad input) and infrastructure faults surfaced to logs,
  not report-fatal conditions.

USAGE:
  if errors.Is(err, analytics.ErrInvalidDateKey) { ... }
*/
package analytics

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateKey marks a date string that is not a valid YYYY-MM-DD day.
	ErrInvalidDateKey = errors.New("invalid date key")

	// ErrInvalidSplitMode marks a split mode outside {cumulative, day, month}.
	ErrInvalidSplitMode = errors.New("invalid split mode")

	// ErrMemberNotFound marks a member id absent from both the directory and
	// the window's activity. Handlers map it to 404.
	ErrMemberNotFound = errors.New("member not found")

	// ErrStoreUnavailable wraps document-store faults where they are surfaced
	// (health checks); report paths swallow them fail-open instead.
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// RangeError reports a malformed requested range.
type RangeError struct {
	Start, End string
	Cause      error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range [%s, %s]: %v", e.Start, e.End, e.Cause)
}

func (e *RangeError) Unwrap() error { return e.Cause }

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	var re *RangeError
	return errors.Is(err, ErrInvalidDateKey) ||
		errors.Is(err, ErrInvalidSplitMode) ||
		errors.As(err, &re)
}
