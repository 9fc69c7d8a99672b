// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package state

// Capability is a device feature that can be switched on or off.
type Capability uint8

// Device capabilities touched by the render state cache.
const (
	CapCullFace Capability = iota + 1
	CapDepthTest
	CapBlend
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case CapCullFace:
		return "cull_face"
	case CapDepthTest:
		return "depth_test"
	case CapBlend:
		return "blend"
	default:
		return "unknown"
	}
}

// Device is the part of the graphics API the render state cache drives.
//
// CullFace is only called with CullFront, CullBack or CullFrontAndBack;
// CullOff is expressed by disabling CapCullFace. DepthFunc is never called
// with DepthNever; that value is expressed by disabling CapDepthTest.
type Device interface {
	Enable(c Capability)
	Disable(c Capability)
	CullFace(m CullMode)
	DepthFunc(d DepthTest)
	DepthMask(on bool)
}

// Cache buffers render state between producers and the device.
//
// pending accumulates overlays for the next commit. applied is the state
// the device is known to have, as confirmed by previous commits; it is only
// modified by Commit, one field at a time, when the field changes.
type Cache struct {
	defaults RenderState
	pending  RenderState
	applied  RenderState
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithDefaults sets the baseline installed by ApplyDefaults.
// Fields absent from rs are left out of the baseline.
func WithDefaults(rs RenderState) CacheOption {
	return func(c *Cache) {
		c.defaults = rs
	}
}

// NewCache creates a cache with nothing pending and nothing applied.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{defaults: DefaultState()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Defaults returns the baseline installed by ApplyDefaults.
func (c *Cache) Defaults() RenderState { return c.defaults }

// Pending returns the merged state waiting for the next commit.
func (c *Cache) Pending() RenderState { return c.pending }

// Applied returns the state last pushed to the device.
func (c *Cache) Applied() RenderState { return c.applied }

// Apply merges overlay into the pending state. Fields present in overlay
// replace the pending value; absent fields are untouched. The device is
// not touched.
func (c *Cache) Apply(overlay RenderState) {
	c.pending = c.pending.Merge(overlay)
}

// ApplyDefaults resets the pending state to the baseline. Call it at the
// start of a frame or pass, before any material overlay, so leftovers from
// the previous pass do not leak in.
func (c *Cache) ApplyDefaults() {
	c.pending = c.defaults
}

// Invalidate forgets the applied state, so the next Commit reissues every
// pending field. Use it when something outside the cache changed device
// state, for example after the context was lost and restored.
func (c *Cache) Invalidate() {
	c.applied = RenderState{}
}

// Commit pushes the pending state to dev and returns the number of fields
// that changed. A field is sent when it is pending and either differs from
// the applied value or was never applied. Fields that are not pending keep
// whatever was applied last.
func (c *Cache) Commit(dev Device) int {
	changed := 0
	if v, ok := c.pending.Cull(); ok {
		if cur, set := c.applied.Cull(); !set || cur != v {
			commitCull(dev, v)
			c.applied = c.applied.WithCull(v)
			changed++
		}
	}
	if v, ok := c.pending.DepthTest(); ok {
		if cur, set := c.applied.DepthTest(); !set || cur != v {
			commitDepthTest(dev, v)
			c.applied = c.applied.WithDepthTest(v)
			changed++
		}
	}
	if v, ok := c.pending.DepthWrite(); ok {
		if cur, set := c.applied.DepthWrite(); !set || cur != v {
			dev.DepthMask(v)
			c.applied = c.applied.WithDepthWrite(v)
			changed++
		}
	}
	if v, ok := c.pending.AlphaBlending(); ok {
		if cur, set := c.applied.AlphaBlending(); !set || cur != v {
			setCapability(dev, CapBlend, v)
			c.applied = c.applied.WithAlphaBlending(v)
			changed++
		}
	}
	if changed > 0 {
		slogger().Debug("state: committed",
			"changed", changed,
			"applied", c.applied.String())
	}
	return changed
}

func commitCull(dev Device, m CullMode) {
	if m == CullOff {
		dev.Disable(CapCullFace)
		return
	}
	dev.Enable(CapCullFace)
	dev.CullFace(m)
}

func commitDepthTest(dev Device, d DepthTest) {
	if d == DepthNever {
		dev.Disable(CapDepthTest)
		return
	}
	dev.Enable(CapDepthTest)
	dev.DepthFunc(d)
}

func setCapability(dev Device, c Capability, on bool) {
	if on {
		dev.Enable(c)
	} else {
		dev.Disable(c)
	}
}
