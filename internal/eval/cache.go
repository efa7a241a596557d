package eval

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// RawOutput is one cached network result.
type RawOutput struct {
	Value      int
	Complexity int
}

// Cache shares raw network outputs between search threads, keyed by the
// position hash. It must be cleared whenever the active network changes.
type Cache struct {
	c *ristretto.Cache[uint64, RawOutput]
}

// NewCache creates a cache holding up to maxEntries outputs.
func NewCache(maxEntries int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[uint64, RawOutput]{
		NumCounters: 10 * maxEntries,
		MaxCost:     maxEntries,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create eval cache: %w", err)
	}
	return &Cache{c: c}, nil
}

// Get returns the cached output for key.
func (c *Cache) Get(key uint64) (RawOutput, bool) {
	return c.c.Get(key)
}

// Set stores an output. Admission is best-effort.
func (c *Cache) Set(key uint64, out RawOutput) {
	c.c.Set(key, out, 1)
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.c.Clear()
}

// Close releases the cache's goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
