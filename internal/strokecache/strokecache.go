// Package strokecache holds extracted world-space stroke geometry per frame
// in a bounded FIFO, so neighbor frames shown as onion skins are not
// re-extracted on every redraw.
package strokecache

import "github.com/Faultbox/worldonion/internal/extract"

// DefaultCapacity bounds the cache for long shots with many keyframes.
const DefaultCapacity = 2000

// Cache maps frame numbers to extracted strokes with FIFO eviction. At most
// one entry exists per frame. Not safe for concurrent use.
type Cache struct {
	capacity int
	entries  map[int][]extract.StrokeRecord
	order    []int
}

// New creates a cache bounded to capacity entries. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[int][]extract.StrokeRecord),
	}
}

// Get returns the cached strokes for frame, if present.
func (c *Cache) Get(frame int) ([]extract.StrokeRecord, bool) {
	recs, ok := c.entries[frame]
	return recs, ok
}

// Put stores strokes for frame. Re-putting an existing frame replaces its
// strokes without changing its eviction position. When the cache is full the
// oldest frame is evicted first.
func (c *Cache) Put(frame int, strokes []extract.StrokeRecord) {
	if _, ok := c.entries[frame]; ok {
		c.entries[frame] = strokes
		return
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[frame] = strokes
	c.order = append(c.order, frame)
}

// Remove drops the entry for frame, if present.
func (c *Cache) Remove(frame int) {
	if _, ok := c.entries[frame]; !ok {
		return
	}
	delete(c.entries, frame)
	for i, f := range c.order {
		if f == frame {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.entries = make(map[int][]extract.StrokeRecord)
	c.order = c.order[:0]
}

// Len returns the number of cached frames.
func (c *Cache) Len() int {
	return len(c.entries)
}
