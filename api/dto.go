/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication. The Report object itself is already
  a pure JSON-serializable contract (external PDF/Excel renderers consume it
  by field name), so report endpoints return the analytics types directly;
  the DTOs here cover the surrounding operational endpoints.

SEE ALSO:
  - handlers.go: Uses these types
  - analytics/types.go: The Report contract
*/
package api

import (
	"github.com/fieldops/outreach-analytics/analytics"
	"github.com/fieldops/outreach-analytics/cache"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// DatesResponse lists the dates in a range that actually have data.
type DatesResponse struct {
	StartDate string              `json:"start_date"`
	EndDate   string              `json:"end_date"`
	Dates     []analytics.DateKey `json:"dates"`
	Count     int                 `json:"count"`
}

// CacheStatsResponse reports the live cache contents.
type CacheStatsResponse struct {
	Stats cache.Stats `json:"stats"`
}

// CacheFlushResponse reports how many entries a flush removed.
type CacheFlushResponse struct {
	Removed int `json:"removed"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// DemoLoadResponse summarizes what the demo loader seeded.
type DemoLoadResponse struct {
	Days    int `json:"days"`
	Members int `json:"members"`
	Zones   int `json:"zones"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
