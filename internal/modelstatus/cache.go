// Package modelstatus keeps the result of the last model health sweep.
// Menus and model selection read it; only an administrator-triggered sweep
// writes it, replacing the whole table at once.
package modelstatus

import (
	"sync"
	"time"
)

type Result struct {
	Model  string
	OK     bool
	Status string
}

type Cache struct {
	mu        sync.RWMutex
	status    map[string]bool
	checkedAt time.Time
}

func NewCache() *Cache {
	return &Cache{status: make(map[string]bool)}
}

func (c *Cache) Replace(results []Result) {
	next := make(map[string]bool, len(results))
	for _, r := range results {
		next[r.Model] = r.OK
	}

	c.mu.Lock()
	c.status = next
	c.checkedAt = time.Now()
	c.mu.Unlock()
}

// Available is true for models that passed the last sweep or were never tested.
func (c *Cache) Available(model string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ok, tested := c.status[model]
	return !tested || ok
}

func (c *Cache) Disabled() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]struct{})
	for m, ok := range c.status {
		if !ok {
			out[m] = struct{}{}
		}
	}
	return out
}

func (c *Cache) CheckedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.checkedAt
}
