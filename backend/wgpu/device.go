// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercache/state"
)

// DeviceOptions configures the render targets a Device draws into.
type DeviceOptions struct {
	// ColorFormat is the format of the color attachment.
	// Zero selects gputypes.TextureFormatBGRA8Unorm.
	ColorFormat gputypes.TextureFormat

	// DepthFormat is the format of the depth attachment. Zero means the
	// passes have no depth attachment and depth state is ignored.
	DepthFormat gputypes.TextureFormat

	// SampleCount is the MSAA sample count. Zero selects 1.
	SampleCount uint32
}

func (o DeviceOptions) withDefaults() DeviceOptions {
	if o.ColorFormat == gputypes.TextureFormatUndefined {
		o.ColorFormat = gputypes.TextureFormatBGRA8Unorm
	}
	if o.SampleCount == 0 {
		o.SampleCount = 1
	}
	return o
}

// Stats counts device activity.
type Stats struct {
	Draws            uint64
	SkippedDraws     uint64
	PipelineSwitches uint64
	PipelineHits     uint64
	PipelineMisses   uint64
	Pipelines        int

	// Shader counters are process-wide; the compile cache is shared by
	// all devices.
	ShaderHits   uint64
	ShaderMisses uint64
}

// Device adapts a HAL device to the rendercache binding and state model.
//
// Device is not safe for concurrent use.
type Device struct {
	device hal.Device
	queue  hal.Queue
	opts   DeviceOptions

	pipelines *pipelineCache

	// Render state as last committed through state.Device.
	cullEnabled  bool
	cull         state.CullMode
	depthEnabled bool
	depthFunc    state.DepthTest
	depthWrite   bool
	blend        bool

	pass    hal.RenderPassEncoder
	frame   *frame
	program *Program
	mesh    *Mesh

	// Pipeline set on the pass, identified by key. HAL handles are not
	// reliably comparable.
	currentKey   pipelineKey
	havePipeline bool

	draws            uint64
	skippedDraws     uint64
	pipelineSwitches uint64
}

// NewDevice creates a Device on a HAL device and queue.
func NewDevice(device hal.Device, queue hal.Queue, opts DeviceOptions) (*Device, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &Device{
		device:     device,
		queue:      queue,
		opts:       opts.withDefaults(),
		pipelines:  newPipelineCache(),
		depthWrite: true,
	}, nil
}

// NewDeviceFromProvider creates a Device on the device shared by an
// external provider such as a gogpu window. The provider must also expose
// HalDevice() and HalQueue(). When opts.ColorFormat is zero the provider's
// surface format is used.
func NewDeviceFromProvider(provider gpucontext.DeviceProvider, opts DeviceOptions) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	if opts.ColorFormat == gputypes.TextureFormatUndefined {
		opts.ColorFormat = provider.SurfaceFormat()
	}
	return NewDevice(device, queue, opts)
}

// MaxTextureUnits returns the number of bind groups a pipeline may use,
// which bounds the texture units.
func (d *Device) MaxTextureUnits() int {
	return int(gputypes.DefaultLimits().MaxBindGroups)
}

// Options returns the device options with defaults applied.
func (d *Device) Options() DeviceOptions { return d.opts }

// Enable implements state.Device.
func (d *Device) Enable(c state.Capability) { d.setCapability(c, true) }

// Disable implements state.Device.
func (d *Device) Disable(c state.Capability) { d.setCapability(c, false) }

func (d *Device) setCapability(c state.Capability, on bool) {
	switch c {
	case state.CapCullFace:
		d.cullEnabled = on
	case state.CapDepthTest:
		d.depthEnabled = on
	case state.CapBlend:
		d.blend = on
	}
}

// CullFace implements state.Device.
func (d *Device) CullFace(m state.CullMode) { d.cull = m }

// DepthFunc implements state.Device.
func (d *Device) DepthFunc(t state.DepthTest) { d.depthFunc = t }

// DepthMask implements state.Device.
func (d *Device) DepthMask(on bool) { d.depthWrite = on }

// rasterState returns the pipeline state for the committed render state. ok is
// false when nothing can be drawn in it.
func (d *Device) rasterState() (r raster, ok bool) {
	cull, ok := cullMode(d.cullEnabled, d.cull)
	return raster{
		cull:         cull,
		depthCompare: compareFunction(d.depthEnabled, d.depthFunc),
		depthWrite:   d.depthEnabled && d.depthWrite,
		blend:        d.blend,
	}, ok
}

// Begin makes pass the target of binds and draws. A new pass starts with
// no pipeline, buffers or bind groups set, so callers invalidate their
// binding cache after Begin.
func (d *Device) Begin(pass hal.RenderPassEncoder) {
	d.pass = pass
	d.program = nil
	d.mesh = nil
	d.havePipeline = false
}

// End ends the active render pass.
func (d *Device) End() {
	if d.pass == nil {
		return
	}
	d.pass.End()
	d.pass = nil
	d.havePipeline = false
}

// BindProgram selects the program for following draws. The pipeline is
// resolved at draw time, when the render state is known.
func (d *Device) BindProgram(p *Program) error {
	if p == nil {
		return ErrNilResource
	}
	if d.pass == nil {
		return ErrNoPass
	}
	d.program = p
	return nil
}

// BindMesh sets the vertex buffer, and index buffer if any, of m.
func (d *Device) BindMesh(m *Mesh) error {
	if m == nil {
		return ErrNilResource
	}
	if d.pass == nil {
		return ErrNoPass
	}
	d.pass.SetVertexBuffer(0, m.vertex, 0)
	if m.index != nil {
		d.pass.SetIndexBuffer(m.index, m.indexFormat, 0)
	}
	d.mesh = m
	return nil
}

// BindTexture sets the bind group of t at index unit.
func (d *Device) BindTexture(unit uint32, t *Texture) error {
	if t == nil {
		return ErrNilResource
	}
	if d.pass == nil {
		return ErrNoPass
	}
	if limit := d.MaxTextureUnits(); int(unit) >= limit {
		return fmt.Errorf("wgpu: texture unit %d out of range [0,%d)", unit, limit)
	}
	d.pass.SetBindGroup(unit, t.group, nil)
	return nil
}

// prepare sets the pipeline for the bound program and committed state.
// It reports false when the draw must be skipped.
func (d *Device) prepare() (bool, error) {
	if d.pass == nil {
		return false, ErrNoPass
	}
	if d.program == nil {
		return false, ErrNoProgram
	}
	if d.mesh == nil {
		return false, ErrNoMesh
	}
	r, ok := d.rasterState()
	if !ok {
		d.skippedDraws++
		return false, nil
	}

	p := d.program
	key := pipelineKey{program: p.id, raster: r}
	if d.havePipeline && d.currentKey == key {
		d.pipelines.hit()
		return true, nil
	}
	pipeline, err := d.pipelines.getOrCreate(key, func() (hal.RenderPipeline, error) {
		pl, err := d.device.CreateRenderPipeline(d.pipelineDescriptor(p, r))
		if err != nil {
			return nil, fmt.Errorf("wgpu: create pipeline %s %s: %w", p.label, r, err)
		}
		slogger().Debug("wgpu: pipeline created", "program", p.label, "state", r.String())
		return pl, nil
	})
	if err != nil {
		return false, err
	}
	d.pass.SetPipeline(pipeline)
	d.currentKey = key
	d.havePipeline = true
	d.pipelineSwitches++
	return true, nil
}

// Draw draws every vertex of the bound mesh.
func (d *Device) Draw() error {
	ok, err := d.prepare()
	if !ok {
		return err
	}
	d.pass.Draw(d.mesh.vertexCount, 1, 0, 0)
	d.draws++
	return nil
}

// DrawIndexed draws every index of the bound mesh.
func (d *Device) DrawIndexed() error {
	if d.mesh != nil && d.mesh.index == nil {
		return ErrNotIndexed
	}
	ok, err := d.prepare()
	if !ok {
		return err
	}
	d.pass.DrawIndexed(d.mesh.indexCount, 1, 0, 0, 0)
	d.draws++
	return nil
}

// Stats returns the device counters.
func (d *Device) Stats() Stats {
	hits, misses := d.pipelines.stats()
	sc := shaders.Stats()
	return Stats{
		ShaderHits:       sc.Hits,
		ShaderMisses:     sc.Misses,
		Draws:            d.draws,
		SkippedDraws:     d.skippedDraws,
		PipelineSwitches: d.pipelineSwitches,
		PipelineHits:     hits,
		PipelineMisses:   misses,
		Pipelines:        d.pipelines.size(),
	}
}

// Destroy ends any active pass and destroys every cached pipeline. Programs
// and meshes stay with their owners.
func (d *Device) Destroy() {
	if d.frame != nil {
		d.abortFrame()
	}
	d.End()
	d.pipelines.destroyAll(d.device.DestroyRenderPipeline)
	d.program = nil
	d.mesh = nil
}
