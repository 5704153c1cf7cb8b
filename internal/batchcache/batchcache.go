// Package batchcache keeps GPU-resident draw batches derived from extracted
// strokes, keyed by frame and resolved vertical offset. It is a pure derived
// cache: it never watches the source geometry, callers invalidate it at every
// geometry-mutating site.
package batchcache

import gomath "math"

// DefaultCapacity bounds the GPU memory held by batch entries.
const DefaultCapacity = 100

// Batch is a backend-owned draw batch. The cache only needs to release it on
// eviction; drawing stays with the backend.
type Batch interface {
	Release()
}

// Entry is the built geometry for one cache key.
type Entry struct {
	Fills   []Batch
	Strokes []Batch
}

func (e *Entry) release() {
	for _, b := range e.Fills {
		b.Release()
	}
	for _, b := range e.Strokes {
		b.Release()
	}
}

// Key identifies a batch entry. ZOffset is quantized so float noise from the
// offset table does not fragment the cache.
type Key struct {
	Frame   int
	ZOffset float32
}

// NewKey builds a key with ZOffset rounded to 1e-4.
func NewKey(frame int, zOffset float32) Key {
	return Key{
		Frame:   frame,
		ZOffset: float32(gomath.Round(float64(zOffset)*1e4) / 1e4),
	}
}

// Cache is a bounded FIFO of batch entries. Not safe for concurrent use.
type Cache struct {
	capacity int
	entries  map[Key]*Entry
	order    []Key
}

// New creates a cache bounded to capacity entries. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[Key]*Entry),
	}
}

// GetOrBuild returns the entry for key, calling build on a miss and storing
// the result. A nil built entry is not cached. Eviction releases the evicted
// entry's batches.
func (c *Cache) GetOrBuild(key Key, build func() *Entry) *Entry {
	if e, ok := c.entries[key]; ok {
		return e
	}
	e := build()
	if e == nil {
		return nil
	}
	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		if old, ok := c.entries[oldest]; ok {
			old.release()
			delete(c.entries, oldest)
		}
	}
	c.entries[key] = e
	c.order = append(c.order, key)
	return e
}

// Invalidate releases every batch and empties the cache.
func (c *Cache) Invalidate() {
	for _, e := range c.entries {
		e.release()
	}
	c.entries = make(map[Key]*Entry)
	c.order = c.order[:0]
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}
