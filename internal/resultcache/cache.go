// Package resultcache keeps the most recent successful result of every task
// identity (base key) for the lifetime of a scheduler.
//
// # Characteristics
//
//   - **Single slot:** at most one entry per base key, last write wins
//   - **Successes only:** failed results are never stored
//   - **Version checked:** Get only answers for the exact version string
//   - **Ephemeral:** nothing is evicted and nothing is persisted
package resultcache

import (
	"sync"

	"github.com/vk/taskgraph/internal/task"
)

type entry struct {
	result  *task.Result
	version string
}

// Cache maps base keys to the newest cached result.
//
// The scheduler serializes all access, the lock only protects readers such as
// debugging endpoints that run outside the coordinator.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Put stores result for baseKey, replacing any previous entry. Failed
// results are dropped.
func (c *Cache) Put(baseKey, version string, result *task.Result) {
	if result == nil || result.Failed() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[baseKey] = entry{result: result, version: version}
}

// Get returns the cached result for baseKey if it was stored for exactly
// this version.
func (c *Cache) Get(baseKey, version string) (*task.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[baseKey]
	if !ok || e.version != version || e.result.Failed() {
		return nil, false
	}
	return e.result, true
}

// GetNewest returns the cached result for baseKey regardless of version.
func (c *Cache) GetNewest(baseKey string) (*task.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[baseKey]
	if !ok || e.result.Failed() {
		return nil, false
	}
	return e.result, true
}

// Pick returns the newest cached results for the given base keys. Keys
// without an entry are left out.
func (c *Cache) Pick(baseKeys []string) task.Results {
	results := make(task.Results)
	for _, baseKey := range baseKeys {
		if res, ok := c.GetNewest(baseKey); ok {
			results[baseKey] = res
		}
	}
	return results
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
