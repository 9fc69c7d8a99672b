// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendercache

import (
	"github.com/gogpu/rendercache/bind"
	"github.com/gogpu/rendercache/state"
)

// FrameStats counts the cache activity of one frame.
type FrameStats struct {
	bind.Stats

	// StateChanges is the number of render state fields sent to the device.
	StateChanges uint32

	// Commits is the number of Commit calls.
	Commits uint32
}

// Add returns the field-wise sum of s and o.
func (s FrameStats) Add(o FrameStats) FrameStats {
	return FrameStats{
		Stats:        s.Stats.Add(o.Stats),
		StateChanges: s.StateChanges + o.StateChanges,
		Commits:      s.Commits + o.Commits,
	}
}

// Context is the state and binding cache of one rendering context.
//
// P, B and T are the backend's program, buffer and texture types. The
// Context never owns them; it tracks through weak pointers which ones are
// bound and asks the caller's bind functions to change that.
//
// A typical frame:
//
//	rc.BeginFrame()
//	for _, d := range draws {
//	    rc.Apply(d.Material.State)
//	    rc.Commit(dev)
//	    if err := rc.EnsureProgram(d.Program, func() error { return dev.BindProgram(d.Program) }); err != nil {
//	        continue
//	    }
//	    ...
//	}
//
// Context is not safe for concurrent use.
type Context[P, B, T any] struct {
	states   *state.Cache
	bindings *bind.Cache[P, B, T]

	stateChanges uint32
	commits      uint32
	total        FrameStats
	frames       uint64
}

// New creates the cache for one rendering context.
func New[P, B, T any](opts ...Option) *Context[P, B, T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Context[P, B, T]{
		states:   state.NewCache(state.WithDefaults(o.defaults)),
		bindings: bind.NewCache[P, B, T](o.maxTextureUnits),
	}
}

// States returns the render state cache.
func (c *Context[P, B, T]) States() *state.Cache { return c.states }

// Bindings returns the resource binding cache.
func (c *Context[P, B, T]) Bindings() *bind.Cache[P, B, T] { return c.bindings }

// BeginFrame folds the current frame's counters into the totals, resets
// them, and installs the baseline render state as pending.
func (c *Context[P, B, T]) BeginFrame() {
	c.total = c.total.Add(c.Frame())
	c.bindings.ResetStats()
	c.stateChanges = 0
	c.commits = 0
	c.frames++
	c.states.ApplyDefaults()
}

// Frames returns the number of BeginFrame calls.
func (c *Context[P, B, T]) Frames() uint64 { return c.frames }

// Apply merges a render state overlay into the pending state.
func (c *Context[P, B, T]) Apply(overlay state.RenderState) {
	c.states.Apply(overlay)
}

// Commit sends the pending render state to dev and returns the number of
// fields that changed.
func (c *Context[P, B, T]) Commit(dev state.Device) int {
	n := c.states.Commit(dev)
	c.stateChanges += uint32(n)
	c.commits++
	return n
}

// EnsureProgram binds p unless it is already bound. See bind.Cache.
func (c *Context[P, B, T]) EnsureProgram(p *P, bindFn func() error) error {
	return c.bindings.EnsureProgram(p, bindFn)
}

// EnsureBuffer binds b unless it is already bound. See bind.Cache.
func (c *Context[P, B, T]) EnsureBuffer(b *B, bindFn func() error) error {
	return c.bindings.EnsureBuffer(b, bindFn)
}

// EnsureTexture returns the texture unit holding t, binding it if needed.
// See bind.Units for the allocation policy.
func (c *Context[P, B, T]) EnsureTexture(t *T, bindFn func(unit uint32) error) (uint32, error) {
	return c.bindings.EnsureTexture(t, bindFn)
}

// Invalidate forgets everything the context believes is on the device.
// The next commit and binds reissue all state.
func (c *Context[P, B, T]) Invalidate() {
	c.states.Invalidate()
	c.bindings.Invalidate()
	Logger().Debug("rendercache: context invalidated")
}

// Frame returns the counters of the current frame.
func (c *Context[P, B, T]) Frame() FrameStats {
	return FrameStats{
		Stats:        c.bindings.Stats(),
		StateChanges: c.stateChanges,
		Commits:      c.commits,
	}
}

// Totals returns the counters accumulated over all frames, including the
// current one.
func (c *Context[P, B, T]) Totals() FrameStats {
	return c.total.Add(c.Frame())
}
