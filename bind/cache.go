// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bind

import (
	"errors"
	"fmt"
)

// Stats counts binding activity. Switches are binds that reached the
// device; hits are requests answered from the cache.
type Stats struct {
	ProgramSwitches uint32
	BufferSwitches  uint32
	TextureSwitches uint32
	ProgramHits     uint32
	BufferHits      uint32
	TextureHits     uint32

	// DeadReclaims counts texture units reused because their texture was
	// freed by its owner.
	DeadReclaims uint32

	// Evictions counts live textures pushed out to make room.
	Evictions uint32

	// BindFailures counts bind callbacks that returned an error.
	BindFailures uint32
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		ProgramSwitches: s.ProgramSwitches + o.ProgramSwitches,
		BufferSwitches:  s.BufferSwitches + o.BufferSwitches,
		TextureSwitches: s.TextureSwitches + o.TextureSwitches,
		ProgramHits:     s.ProgramHits + o.ProgramHits,
		BufferHits:      s.BufferHits + o.BufferHits,
		TextureHits:     s.TextureHits + o.TextureHits,
		DeadReclaims:    s.DeadReclaims + o.DeadReclaims,
		Evictions:       s.Evictions + o.Evictions,
		BindFailures:    s.BindFailures + o.BindFailures,
	}
}

// Cache is the resource binding cache of one rendering context.
//
// P, B and T are the program, buffer and texture types of the graphics
// backend. The cache never owns them: it only remembers, through weak
// pointers, which ones were bound last, and calls the supplied bind
// functions when that changes.
//
// Cache is not safe for concurrent use.
type Cache[P, B, T any] struct {
	program  Slot[P]
	buffer   Slot[B]
	textures *Units[T]
	stats    Stats
}

// NewCache creates a binding cache with maxTextureUnits texture units.
// A value below 1 selects DefaultMaxTextureUnits.
func NewCache[P, B, T any](maxTextureUnits int) *Cache[P, B, T] {
	return &Cache[P, B, T]{
		textures: NewUnits[T](maxTextureUnits),
	}
}

// EnsureProgram binds p through bind unless it is already the bound program.
func (c *Cache[P, B, T]) EnsureProgram(p *P, bind func() error) error {
	switched, err := c.program.Ensure(p, bind)
	switch {
	case err != nil:
		return c.failed("program", err)
	case switched:
		c.stats.ProgramSwitches++
	default:
		c.stats.ProgramHits++
	}
	return nil
}

// EnsureBuffer binds b through bind unless it is already the bound buffer.
func (c *Cache[P, B, T]) EnsureBuffer(b *B, bind func() error) error {
	switched, err := c.buffer.Ensure(b, bind)
	switch {
	case err != nil:
		return c.failed("buffer", err)
	case switched:
		c.stats.BufferSwitches++
	default:
		c.stats.BufferHits++
	}
	return nil
}

// EnsureTexture returns the texture unit holding t, binding it through
// bind first if t is not resident. See Units.Ensure for the allocation
// policy. The caller passes the returned unit on to the shader.
func (c *Cache[P, B, T]) EnsureTexture(t *T, bind func(unit uint32) error) (uint32, error) {
	unit, how, err := c.textures.ensure(t, bind)
	if errors.Is(err, ErrNilResource) {
		return 0, c.failed("texture", err)
	}
	switch how {
	case allocReclaimed:
		c.stats.DeadReclaims++
		slogger().Debug("bind: reclaimed dead texture unit", "unit", unit)
	case allocEvicted:
		c.stats.Evictions++
		slogger().Debug("bind: evicted least recently used texture", "unit", unit)
	}
	if err != nil {
		c.stats.BindFailures++
		slogger().Warn("bind: texture bind failed", "unit", unit, "err", err)
		return unit, err
	}
	if how == allocHit {
		c.stats.TextureHits++
	} else {
		c.stats.TextureSwitches++
	}
	return unit, nil
}

func (c *Cache[P, B, T]) failed(kind string, err error) error {
	if !errors.Is(err, ErrNilResource) {
		c.stats.BindFailures++
		slogger().Warn("bind: bind failed", "kind", kind, "err", err)
	}
	return fmt.Errorf("bind %s: %w", kind, err)
}

// Program returns the bound program, or nil.
func (c *Cache[P, B, T]) Program() *P { return c.program.Current() }

// Buffer returns the bound buffer, or nil.
func (c *Cache[P, B, T]) Buffer() *B { return c.buffer.Current() }

// Textures returns the texture unit table.
func (c *Cache[P, B, T]) Textures() *Units[T] { return c.textures }

// Stats returns the counters accumulated since the last ResetStats.
func (c *Cache[P, B, T]) Stats() Stats { return c.stats }

// ResetStats zeroes the counters.
func (c *Cache[P, B, T]) ResetStats() { c.stats = Stats{} }

// Invalidate forgets every binding. Use it when the device state was
// changed outside the cache.
func (c *Cache[P, B, T]) Invalidate() {
	c.program.Reset()
	c.buffer.Reset()
	c.textures.Reset()
}
