// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shadercache keeps compiled SPIR-V for WGSL sources so programs
// that share a shader compile it once.
package shadercache

import "sync"

// DefaultLimit is the soft limit used by backends.
const DefaultLimit = 64

// Compiler turns WGSL source into SPIR-V words.
type Compiler func(source string) ([]uint32, error)

// Cache maps WGSL source text to SPIR-V with a soft size limit. When the
// limit is exceeded the least recently used quarter of the entries is
// dropped.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   int
	tick    int64

	hits      uint64
	misses    uint64
	evictions uint64
}

type entry struct {
	code  []uint32
	atime int64
}

// Stats contains cache counters.
type Stats struct {
	Len       int
	Limit     int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// New creates a cache holding about limit sources. A limit of 0 means
// unlimited.
func New(limit int) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		limit:   limit,
	}
}

// Compile returns the cached SPIR-V for source, calling compile on a miss.
// Failed compilations are not cached. The returned slice is shared and must
// not be modified.
func (c *Cache) Compile(source string, compile Compiler) ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if e, ok := c.entries[source]; ok {
		e.atime = c.tick
		c.hits++
		return e.code, nil
	}

	code, err := compile(source)
	if err != nil {
		return nil, err
	}
	c.misses++
	c.entries[source] = &entry{code: code, atime: c.tick}
	if c.limit > 0 && len(c.entries) > c.limit {
		c.trim()
	}
	return code, nil
}

// trim drops the oldest entries until a quarter of the limit is free.
// Caller must hold c.mu.
func (c *Cache) trim() {
	target := max(c.limit*3/4, 1)
	for len(c.entries) > target {
		var (
			oldest string
			atime  int64 = -1
		)
		for src, e := range c.entries {
			if atime < 0 || e.atime < atime {
				oldest, atime = src, e.atime
			}
		}
		delete(c.entries, oldest)
		c.evictions++
	}
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:       len(c.entries),
		Limit:     c.limit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
