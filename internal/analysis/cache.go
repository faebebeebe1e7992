package analysis

import (
	"sync"

	"github.com/tpotops/threatbrief/pkg/models"
)

// Cache is the single shared slot holding the latest validated briefing.
// One writer (the refresh orchestrator), arbitrarily many concurrent
// readers (HTTP handlers). The slot is seeded with the placeholder
// briefing and replaced wholesale under the lock, so a reader always
// observes one complete briefing — never an empty or half-written one.
type Cache struct {
	mu      sync.RWMutex
	current models.Briefing
}

// NewCache returns a cache pre-populated with the placeholder briefing.
func NewCache() *Cache {
	return &Cache{current: models.PlaceholderBriefing()}
}

// Get returns the current briefing. Never blocks beyond the read lock and
// never fails. The returned value shares its recommendations slice with
// the stored briefing; published briefings are immutable, so that is safe.
func (c *Cache) Get() models.Briefing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set replaces the slot contents wholesale. No field-level updates ever
// happen on this structure.
func (c *Cache) Set(b models.Briefing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = b
}
