/*
Package cache provides a read-through TTL cache over a plain key-value
substrate.

PURPOSE:
  The report engine caches fetched window data so repeated requests for the
  same (kind, start, end) window within the TTL cost zero document-store
  reads. The substrate is a dumb JSON-bytes store (an in-memory map in tests,
  a sqlite table in production); TTL bookkeeping lives entirely here.

SELF-HEALING CONTRACT:
  Get treats a stored-but-expired entry as a miss and eagerly removes it.
  A corrupt stored value (unparsable envelope or payload) is also a miss,
  with removal, never an error.

LAST-WRITE-WINS:
  Two concurrent requests that both miss and both fetch will both write.
  That is fine: cached values are pure functions of immutable historical
  data, so overwrites are idempotent.

USAGE:
  c := cache.New[[]Record](substrate, 10*time.Minute)
  key := cache.Key("details", "2025-01-01", "2025-01-31")
  if v, ok := c.Get(key); ok { ... }
  c.Set(key, fetched)
*/
package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTTL is the engine-wide default for range caches.
const DefaultTTL = 10 * time.Minute

// =============================================================================
// SUBSTRATE - Plain key -> JSON-bytes store
// =============================================================================

// Substrate is the raw store the cache sits on. Implementations swallow their
// own I/O errors and report them as absence; a cache failure must never fail
// a report.
type Substrate interface {
	Get(key string) ([]byte, bool)
	Set(key string, raw []byte)
	Delete(key string)
	Keys() []string
}

// =============================================================================
// ENTRY ENVELOPE
// =============================================================================

// envelope is the stored form of a cache entry: payload plus expiry metadata.
// TTL is stored at nanosecond precision so sub-second TTLs survive the round
// trip instead of truncating to an already-expired entry.
type envelope struct {
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	TTL       time.Duration   `json:"ttl_ns"`
}

func (e envelope) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// =============================================================================
// CACHE - Typed TTL view over a substrate
// =============================================================================

// Cache is a typed TTL cache over a Substrate. The zero value is not usable;
// construct with New.
type Cache[V any] struct {
	sub Substrate
	ttl time.Duration
	now func() time.Time
}

// New builds a cache with the given default TTL (DefaultTTL when ttl <= 0).
func New[V any](sub Substrate, ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{sub: sub, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Tests use this to elapse TTLs without
// sleeping.
func (c *Cache[V]) WithClock(now func() time.Time) *Cache[V] {
	c.now = now
	return c
}

// Get returns the cached value for key, or a miss. Expired and corrupt
// entries are removed on the way out.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.sub.Get(key)
	if !ok {
		return zero, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sub.Delete(key)
		return zero, false
	}
	if env.expired(c.now()) {
		c.sub.Delete(key)
		return zero, false
	}

	var v V
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		c.sub.Delete(key)
		return zero, false
	}
	return v, true
}

// Set stores a value under the default TTL.
func (c *Cache[V]) Set(key string, v V) {
	c.SetTTL(key, v, c.ttl)
}

// SetTTL stores a value with an explicit TTL. Marshal failures drop the
// write; the next Get simply misses.
func (c *Cache[V]) SetTTL(key string, v V, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	raw, err := json.Marshal(envelope{
		Payload:   payload,
		CreatedAt: c.now(),
		TTL:       ttl,
	})
	if err != nil {
		return
	}
	c.sub.Set(key, raw)
}

// Delete removes a key. Used for forced-refresh requests.
func (c *Cache[V]) Delete(key string) {
	c.sub.Delete(key)
}

// Cleanup removes every expired or corrupt entry and returns how many were
// removed.
func (c *Cache[V]) Cleanup() int {
	removed := 0
	now := c.now()
	for _, key := range c.sub.Keys() {
		raw, ok := c.sub.Get(key)
		if !ok {
			continue
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.expired(now) {
			c.sub.Delete(key)
			removed++
		}
	}
	return removed
}

// Stats describes the live contents of the cache.
type Stats struct {
	Entries int `json:"entries"`
	Expired int `json:"expired"`
}

// GetStats counts live and expired entries without removing anything.
func (c *Cache[V]) GetStats() Stats {
	var s Stats
	now := c.now()
	for _, key := range c.sub.Keys() {
		raw, ok := c.sub.Get(key)
		if !ok {
			continue
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.expired(now) {
			s.Expired++
			continue
		}
		s.Entries++
	}
	return s
}

// Flush removes every entry regardless of expiry.
func (c *Cache[V]) Flush() int {
	keys := c.sub.Keys()
	for _, key := range keys {
		c.sub.Delete(key)
	}
	return len(keys)
}

// =============================================================================
// KEY BUILDER
// =============================================================================

// Key builds the deterministic cache key for a (kind, start, end) window.
// Central so key construction is testable and consistent across callers.
func Key(kind, start, end string) string {
	return fmt.Sprintf("%s:%s:%s", kind, start, end)
}
