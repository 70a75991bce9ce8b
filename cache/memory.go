package cache

import "sync"

// =============================================================================
// MEMORY SUBSTRATE - In-process map store
// =============================================================================

// Memory is the in-process Substrate. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory builds an empty in-memory substrate.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.entries[key]
	return raw, ok
}

func (m *Memory) Set(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}
