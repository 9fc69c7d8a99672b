// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bind

import (
	"fmt"
	"slices"
	"weak"
)

// DefaultMaxTextureUnits is the texture unit capacity used when none is
// configured. Devices commonly guarantee at least this many units per
// shader stage.
const DefaultMaxTextureUnits = 8

// unitEntry is one row of the texture unit table.
type unitEntry[T any] struct {
	unit uint32
	ref  weak.Pointer[T]
}

// Entry describes one texture unit in the table.
type Entry struct {
	// Unit is the texture unit index.
	Unit uint32

	// Alive reports whether the texture bound at Unit is still reachable.
	// A dead unit can be reused without evicting anything.
	Alive bool
}

// Ensure outcome, used for stats and logging.
type allocation uint8

const (
	allocHit allocation = iota
	allocFresh
	allocReclaimed
	allocEvicted
)

// Units allocates texture units to textures.
//
// Entries are kept in recency order: the head is the least recently used
// unit, the tail the most recently used. Each entry holds a weak pointer to
// its texture so that textures freed by their owner show up as dead units
// that are reclaimed before any live texture is evicted.
//
// Unit indices in the table are pairwise distinct and the table never holds
// more than Cap entries.
type Units[T any] struct {
	entries []unitEntry[T]
	max     int
}

// NewUnits creates a table with room for max units. A max below 1 selects
// DefaultMaxTextureUnits.
func NewUnits[T any](max int) *Units[T] {
	if max < 1 {
		max = DefaultMaxTextureUnits
	}
	return &Units[T]{
		entries: make([]unitEntry[T], 0, max),
		max:     max,
	}
}

// Len returns the number of units in use, dead or alive.
func (u *Units[T]) Len() int { return len(u.entries) }

// Cap returns the unit capacity.
func (u *Units[T]) Cap() int { return u.max }

// Entries returns the table from least to most recently used.
func (u *Units[T]) Entries() []Entry {
	out := make([]Entry, len(u.entries))
	for i, e := range u.entries {
		out[i] = Entry{Unit: e.unit, Alive: e.ref.Value() != nil}
	}
	return out
}

// Resident returns the texture bound at unit, or nil if the unit is free,
// dead or unknown.
func (u *Units[T]) Resident(unit uint32) *T {
	if i := u.indexOfUnit(unit); i >= 0 {
		return u.entries[i].ref.Value()
	}
	return nil
}

// Find returns the table position and unit of tex. Dead entries never
// match, even if a new texture happens to reuse the old memory.
func (u *Units[T]) Find(tex *T) (pos int, unit uint32, ok bool) {
	if tex == nil {
		return -1, 0, false
	}
	for i, e := range u.entries {
		if p := e.ref.Value(); p != nil && p == tex {
			return i, e.unit, true
		}
	}
	return -1, 0, false
}

// Ensure returns the unit tex is bound to, binding it first if needed.
//
// If tex is already resident its entry becomes the most recently used and
// bind is not called. Otherwise a unit is chosen: the next unused index
// while the table is below capacity, then the first dead unit, and finally
// the least recently used live unit. bind is called with that unit; on
// success tex is recorded at the tail. On failure the unit is recorded as
// dead at the head and the bind error is returned. Once the table is full,
// that dead unit is the first one reused.
func (u *Units[T]) Ensure(tex *T, bind func(unit uint32) error) (uint32, error) {
	unit, _, err := u.ensure(tex, bind)
	return unit, err
}

func (u *Units[T]) ensure(tex *T, bind func(unit uint32) error) (uint32, allocation, error) {
	if tex == nil {
		return 0, allocHit, ErrNilResource
	}
	if pos, unit, ok := u.Find(tex); ok {
		e := u.entries[pos]
		u.remove(pos)
		u.entries = append(u.entries, e)
		return unit, allocHit, nil
	}

	unit, how := u.pick()
	if i := u.indexOfUnit(unit); i >= 0 {
		duplicateUnit(unit, u.Entries())
		// The bind below replaces whatever the unit held.
		u.remove(i)
	}

	if err := bind(unit); err != nil {
		u.entries = slices.Insert(u.entries, 0, unitEntry[T]{unit: unit})
		return unit, how, fmt.Errorf("bind texture unit %d: %w", unit, err)
	}
	u.entries = append(u.entries, unitEntry[T]{unit: unit, ref: weak.Make(tex)})
	return unit, how, nil
}

// pick chooses the unit for a texture that is not resident and removes the
// entry previously holding it, if any.
func (u *Units[T]) pick() (uint32, allocation) {
	if len(u.entries) < u.max {
		return uint32(len(u.entries)), allocFresh
	}
	for i, e := range u.entries {
		if e.ref.Value() == nil {
			u.remove(i)
			return e.unit, allocReclaimed
		}
	}
	head := u.entries[0]
	u.remove(0)
	return head.unit, allocEvicted
}

// Reset empties the table.
func (u *Units[T]) Reset() {
	clear(u.entries)
	u.entries = u.entries[:0]
}

func (u *Units[T]) remove(i int) {
	u.entries = slices.Delete(u.entries, i, i+1)
}

func (u *Units[T]) indexOfUnit(unit uint32) int {
	for i, e := range u.entries {
		if e.unit == unit {
			return i
		}
	}
	return -1
}

// duplicateUnit reports a unit that is about to be handed out twice. It
// panics in rcdebug builds; otherwise the caller drops the stale entry.
func duplicateUnit(unit uint32, table []Entry) {
	if debugChecks {
		panic(fmt.Sprintf("bind: texture unit %d already in table %v", unit, table))
	}
	slogger().Error("bind: texture unit already in table", "unit", unit, "table", table)
}
