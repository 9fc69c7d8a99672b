// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rendercache"
	"github.com/gogpu/rendercache/state"
)

// Compile-time interface check.
var _ state.Device = (*Device)(nil)

const testShader = `
@vertex
fn vs_main(@location(0) pos: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func triangleVertices() []byte {
	pts := []float32{0, 0.5, -0.5, -0.5, 0.5, -0.5}
	buf := make([]byte, len(pts)*4)
	for i, v := range pts {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func vertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{{
		ArrayStride: 8,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		},
	}}
}

// fixture is a Device on the noop backend with one program, one mesh and
// an open frame.
type fixture struct {
	dev    *Device
	prog   *Program
	mesh   *Mesh
	target *Target
	rc     *rendercache.Context[Program, Mesh, Texture]
}

func newFixture(t *testing.T, opts DeviceOptions) *fixture {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)

	dev, err := NewDevice(device, queue, opts)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	t.Cleanup(dev.Destroy)

	prog, err := dev.NewProgram(ProgramDescriptor{
		Label:   "triangle",
		WGSL:    testShader,
		Buffers: vertexLayout(),
	})
	if err != nil {
		t.Fatalf("NewProgram() error = %v", err)
	}
	t.Cleanup(func() { dev.ReleaseProgram(prog) })

	mesh, err := dev.CreateMesh("triangle", triangleVertices(), 3, []uint16{0, 1, 2})
	if err != nil {
		t.Fatalf("CreateMesh() error = %v", err)
	}
	t.Cleanup(func() { dev.DestroyMesh(mesh) })

	target, err := dev.CreateTarget(64, 64)
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	t.Cleanup(func() { dev.DestroyTarget(target) })

	return &fixture{
		dev:    dev,
		prog:   prog,
		mesh:   mesh,
		target: target,
		rc: rendercache.New[Program, Mesh, Texture](
			rendercache.WithMaxTextureUnits(dev.MaxTextureUnits()),
		),
	}
}

func (f *fixture) begin(t *testing.T) {
	t.Helper()
	if err := f.dev.BeginFrame(f.target, gputypes.Color{}); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	f.rc.BeginFrame()
	f.rc.Bindings().Invalidate()
}

func (f *fixture) draw(t *testing.T, rs state.RenderState) {
	t.Helper()
	f.rc.Apply(rs)
	f.rc.Commit(f.dev)
	if err := f.rc.EnsureProgram(f.prog, func() error { return f.dev.BindProgram(f.prog) }); err != nil {
		t.Fatalf("EnsureProgram() error = %v", err)
	}
	if err := f.rc.EnsureBuffer(f.mesh, func() error { return f.dev.BindMesh(f.mesh) }); err != nil {
		t.Fatalf("EnsureBuffer() error = %v", err)
	}
	if err := f.dev.DrawIndexed(); err != nil {
		t.Fatalf("DrawIndexed() error = %v", err)
	}
}

func (f *fixture) end(t *testing.T) {
	t.Helper()
	if err := f.dev.EndFrame(); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}
}

func TestNewDeviceNil(t *testing.T) {
	if _, err := NewDevice(nil, nil, DeviceOptions{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewDevice(nil) error = %v, want ErrNilDevice", err)
	}
}

func TestDeviceOptionsDefaults(t *testing.T) {
	o := DeviceOptions{}.withDefaults()
	if o.ColorFormat != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("ColorFormat = %v, want BGRA8Unorm", o.ColorFormat)
	}
	if o.SampleCount != 1 {
		t.Errorf("SampleCount = %d, want 1", o.SampleCount)
	}
	if o.DepthFormat != gputypes.TextureFormatUndefined {
		t.Errorf("DepthFormat = %v, want undefined", o.DepthFormat)
	}
}

func TestNewProgramEmptySource(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()
	dev, err := NewDevice(device, queue, DeviceOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.NewProgram(ProgramDescriptor{Label: "empty"}); !errors.Is(err, ErrEmptyShader) {
		t.Errorf("NewProgram(empty) error = %v, want ErrEmptyShader", err)
	}
}

func TestDevicePipelinePerState(t *testing.T) {
	f := newFixture(t, DeviceOptions{DepthFormat: gputypes.TextureFormatDepth24PlusStencil8})

	f.begin(t)
	f.draw(t, state.RenderState{})
	f.draw(t, state.RenderState{})
	f.draw(t, state.RenderState{}.WithAlphaBlending(true))
	f.draw(t, state.RenderState{}.WithAlphaBlending(false))
	f.end(t)

	s := f.dev.Stats()
	if s.Draws != 4 {
		t.Errorf("Draws = %d, want 4", s.Draws)
	}
	if s.PipelineMisses != 2 || s.Pipelines != 2 {
		t.Errorf("misses = %d, pipelines = %d; want 2, 2", s.PipelineMisses, s.Pipelines)
	}
	if s.PipelineHits != 2 {
		t.Errorf("hits = %d, want 2", s.PipelineHits)
	}
	// opaque, opaque (same pipeline), blended, opaque
	if s.PipelineSwitches != 3 {
		t.Errorf("PipelineSwitches = %d, want 3", s.PipelineSwitches)
	}

	// Binds went through the cache once.
	if b := f.rc.Frame(); b.ProgramSwitches != 1 || b.BufferSwitches != 1 {
		t.Errorf("program/buffer switches = %d/%d, want 1/1", b.ProgramSwitches, b.BufferSwitches)
	}
}

// labeledDevice hands out pipelines that carry their descriptor label. The
// slice field makes them non-comparable.
type labeledDevice struct {
	hal.Device
}

type labeledPipeline struct {
	label string
	tags  []string
}

func (labeledPipeline) Destroy() {}

func (d labeledDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	return labeledPipeline{label: desc.Label, tags: []string{desc.Label}}, nil
}

// pipelineRecorder records the pipelines set on a pass.
type pipelineRecorder struct {
	hal.RenderPassEncoder
	set []string
}

func (r *pipelineRecorder) SetPipeline(p hal.RenderPipeline) {
	r.set = append(r.set, p.(labeledPipeline).label)
	r.RenderPassEncoder.SetPipeline(nil)
}

func TestDeviceSetsPipelinePerStateChange(t *testing.T) {
	f := newFixture(t, DeviceOptions{})
	f.dev.device = labeledDevice{Device: f.dev.device}

	f.begin(t)
	rec := &pipelineRecorder{RenderPassEncoder: f.dev.pass}
	f.dev.pass = rec

	f.draw(t, state.RenderState{})
	f.draw(t, state.RenderState{}.WithAlphaBlending(true))
	f.draw(t, state.RenderState{}.WithAlphaBlending(true))
	f.draw(t, state.RenderState{}.WithAlphaBlending(false))
	f.end(t)

	if len(rec.set) != 3 {
		t.Fatalf("SetPipeline calls = %v, want 3", rec.set)
	}
	if !strings.HasSuffix(rec.set[0], "blendfalse") || !strings.HasSuffix(rec.set[1], "blendtrue") {
		t.Errorf("pipelines = %v, want opaque then blended", rec.set)
	}
	if rec.set[2] != rec.set[0] {
		t.Errorf("last pipeline = %s, want %s", rec.set[2], rec.set[0])
	}
	if s := f.dev.Stats(); s.PipelineSwitches != 3 || s.PipelineHits != 2 {
		t.Errorf("switches/hits = %d/%d, want 3/2", s.PipelineSwitches, s.PipelineHits)
	}
}

func TestDeviceFramesReusePipelines(t *testing.T) {
	f := newFixture(t, DeviceOptions{})
	for range 3 {
		f.begin(t)
		f.draw(t, state.RenderState{})
		f.end(t)
	}
	s := f.dev.Stats()
	if s.PipelineMisses != 1 {
		t.Errorf("PipelineMisses = %d, want 1", s.PipelineMisses)
	}
	// Each pass starts without a pipeline.
	if s.PipelineSwitches != 3 {
		t.Errorf("PipelineSwitches = %d, want 3", s.PipelineSwitches)
	}
}

func TestDeviceSkipsFrontAndBackCulling(t *testing.T) {
	f := newFixture(t, DeviceOptions{})
	f.begin(t)
	f.draw(t, state.RenderState{}.WithCull(state.CullFrontAndBack))
	f.draw(t, state.RenderState{}.WithCull(state.CullBack))
	f.end(t)

	s := f.dev.Stats()
	if s.SkippedDraws != 1 || s.Draws != 1 {
		t.Errorf("skipped/draws = %d/%d, want 1/1", s.SkippedDraws, s.Draws)
	}
}

func TestDeviceDepthDisabledIgnoresWrites(t *testing.T) {
	f := newFixture(t, DeviceOptions{DepthFormat: gputypes.TextureFormatDepth24PlusStencil8})
	f.rc.Apply(state.RenderState{}.WithDepthTest(state.DepthNever).WithDepthWrite(true))
	f.rc.Commit(f.dev)

	r, ok := f.dev.rasterState()
	if !ok {
		t.Fatal("rasterState() not drawable")
	}
	if r.depthCompare != gputypes.CompareFunctionAlways || r.depthWrite {
		t.Errorf("raster = %+v, want compare always without writes", r)
	}

	desc := f.dev.pipelineDescriptor(f.prog, r)
	if desc.DepthStencil == nil {
		t.Fatal("DepthStencil = nil with a depth format")
	}
	if desc.DepthStencil.DepthWriteEnabled {
		t.Error("depth writes enabled with the depth test off")
	}
}

func TestPipelineDescriptorWithoutDepth(t *testing.T) {
	f := newFixture(t, DeviceOptions{})
	desc := f.dev.pipelineDescriptor(f.prog, raster{blend: true})
	if desc.DepthStencil != nil {
		t.Error("DepthStencil set without a depth format")
	}
	if desc.Fragment == nil || desc.Fragment.Targets[0].Blend == nil {
		t.Error("blend state missing for a blended raster")
	}
	if desc.Vertex.EntryPoint != "vs_main" || desc.Fragment.EntryPoint != "fs_main" {
		t.Errorf("entry points = %q, %q", desc.Vertex.EntryPoint, desc.Fragment.EntryPoint)
	}
}

func TestDeviceRequiresPass(t *testing.T) {
	f := newFixture(t, DeviceOptions{})
	if err := f.dev.BindProgram(f.prog); !errors.Is(err, ErrNoPass) {
		t.Errorf("BindProgram() error = %v, want ErrNoPass", err)
	}
	if err := f.dev.BindMesh(f.mesh); !errors.Is(err, ErrNoPass) {
		t.Errorf("BindMesh() error = %v, want ErrNoPass", err)
	}
	if err := f.dev.Draw(); !errors.Is(err, ErrNoPass) {
		t.Errorf("Draw() error = %v, want ErrNoPass", err)
	}
	if err := f.dev.EndFrame(); err == nil {
		t.Error("EndFrame() without a frame succeeded")
	}
}

func TestDeviceDrawRequiresBindings(t *testing.T) {
	f := newFixture(t, DeviceOptions{})
	f.begin(t)
	defer f.end(t)

	if err := f.dev.Draw(); !errors.Is(err, ErrNoProgram) {
		t.Errorf("Draw() error = %v, want ErrNoProgram", err)
	}
	if err := f.dev.BindProgram(f.prog); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.Draw(); !errors.Is(err, ErrNoMesh) {
		t.Errorf("Draw() error = %v, want ErrNoMesh", err)
	}
	if err := f.dev.BindProgram(nil); !errors.Is(err, ErrNilResource) {
		t.Errorf("BindProgram(nil) error = %v, want ErrNilResource", err)
	}
}

func TestDeviceDrawIndexedNeedsIndices(t *testing.T) {
	f := newFixture(t, DeviceOptions{})
	flat, err := f.dev.CreateMesh("flat", triangleVertices(), 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer f.dev.DestroyMesh(flat)
	if flat.Indexed() {
		t.Fatal("mesh without indices reports Indexed")
	}

	f.begin(t)
	defer f.end(t)
	if err := f.dev.BindProgram(f.prog); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.BindMesh(flat); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.DrawIndexed(); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("DrawIndexed() error = %v, want ErrNotIndexed", err)
	}
	if err := f.dev.Draw(); err != nil {
		t.Errorf("Draw() error = %v", err)
	}
}

func TestDeviceBindTextureRange(t *testing.T) {
	f := newFixture(t, DeviceOptions{})
	f.begin(t)
	defer f.end(t)

	tex := NewTexture("albedo", nil)
	limit := uint32(f.dev.MaxTextureUnits())
	if err := f.dev.BindTexture(limit, tex); err == nil {
		t.Errorf("BindTexture(%d) succeeded beyond the unit limit", limit)
	}
	if err := f.dev.BindTexture(0, nil); !errors.Is(err, ErrNilResource) {
		t.Errorf("BindTexture(nil) error = %v, want ErrNilResource", err)
	}
}

func TestReleaseProgramDropsPipelines(t *testing.T) {
	f := newFixture(t, DeviceOptions{})
	f.begin(t)
	f.draw(t, state.RenderState{})
	f.draw(t, state.RenderState{}.WithCull(state.CullFront))
	f.end(t)

	if got := f.dev.Stats().Pipelines; got != 2 {
		t.Fatalf("Pipelines = %d, want 2", got)
	}
	f.dev.ReleaseProgram(f.prog)
	if got := f.dev.Stats().Pipelines; got != 0 {
		t.Errorf("Pipelines after release = %d, want 0", got)
	}
}

func TestDeviceLogsThroughRendercache(t *testing.T) {
	orig := rendercache.Logger()
	t.Cleanup(func() { rendercache.SetLogger(orig) })

	var buf bytes.Buffer
	rendercache.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	f := newFixture(t, DeviceOptions{})
	f.begin(t)
	f.draw(t, state.RenderState{})
	f.end(t)

	if !strings.Contains(buf.String(), "wgpu: pipeline created") {
		t.Errorf("pipeline creation not logged:\n%s", buf.String())
	}
}

// nullProvider satisfies gpucontext.DeviceProvider without HAL access.
type nullProvider struct{}

func (nullProvider) Device() gpucontext.Device   { return nil }
func (nullProvider) Queue() gpucontext.Queue     { return nil }
func (nullProvider) Adapter() gpucontext.Adapter { return nil }
func (nullProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{}
}
func (nullProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// halProvider adds HAL access to nullProvider.
type halProvider struct {
	nullProvider
	device hal.Device
	queue  hal.Queue
}

func (p halProvider) HalDevice() any { return p.device }
func (p halProvider) HalQueue() any  { return p.queue }

func TestNewDeviceFromProvider(t *testing.T) {
	if _, err := NewDeviceFromProvider(nullProvider{}, DeviceOptions{}); !errors.Is(err, ErrNoHALProvider) {
		t.Errorf("NewDeviceFromProvider(no HAL) error = %v, want ErrNoHALProvider", err)
	}
	if _, err := NewDeviceFromProvider(halProvider{}, DeviceOptions{}); !errors.Is(err, ErrNoHALProvider) {
		t.Errorf("NewDeviceFromProvider(nil HAL) error = %v, want ErrNoHALProvider", err)
	}

	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	dev, err := NewDeviceFromProvider(halProvider{device: device, queue: queue}, DeviceOptions{})
	if err != nil {
		t.Fatalf("NewDeviceFromProvider() error = %v", err)
	}
	if got := dev.Options().ColorFormat; got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("ColorFormat = %v, want the surface format", got)
	}

	dev, err = NewDeviceFromProvider(halProvider{device: device, queue: queue},
		DeviceOptions{ColorFormat: gputypes.TextureFormatBGRA8Unorm})
	if err != nil {
		t.Fatal(err)
	}
	if got := dev.Options().ColorFormat; got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("explicit ColorFormat overridden: %v", got)
	}
}

// stalledQueue never completes a submission.
type stalledQueue struct {
	hal.Queue
}

func (stalledQueue) PollCompleted() uint64 { return 0 }

func TestWaitSubmittedTimeout(t *testing.T) {
	err := waitSubmitted(stalledQueue{}, 1, time.Millisecond)
	if !errors.Is(err, ErrGPUTimeout) {
		t.Fatalf("waitSubmitted() error = %v, want ErrGPUTimeout", err)
	}
	if strings.Contains(err.Error(), "%!") {
		t.Errorf("malformed error message: %q", err)
	}
}

func TestWaitSubmittedCompleted(t *testing.T) {
	_, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	index, err := queue.Submit(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := waitSubmitted(queue, index, time.Millisecond); err != nil {
		t.Errorf("waitSubmitted() error = %v", err)
	}
}

// failingEncoder fails BeginEncoding and records whether it was discarded.
type failingEncoder struct {
	hal.CommandEncoder
	discarded *bool
}

func (failingEncoder) BeginEncoding(string) error { return errors.New("encoder lost") }
func (e failingEncoder) DiscardEncoding()          { *e.discarded = true }

type failingEncoderDevice struct {
	hal.Device
	discarded *bool
}

func (d failingEncoderDevice) CreateCommandEncoder(*hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	return failingEncoder{discarded: d.discarded}, nil
}

func TestBeginFrameErrors(t *testing.T) {
	f := newFixture(t, DeviceOptions{})

	if err := f.dev.BeginFrame(nil, gputypes.Color{}); !errors.Is(err, ErrNilTarget) {
		t.Errorf("BeginFrame(nil) error = %v, want ErrNilTarget", err)
	}
	if err := f.dev.EndFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("EndFrame() error = %v, want ErrNoFrame", err)
	}

	f.begin(t)
	if err := f.dev.BeginFrame(f.target, gputypes.Color{}); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("nested BeginFrame() error = %v, want ErrFrameInProgress", err)
	}
	f.end(t)

	discarded := false
	orig := f.dev.device
	f.dev.device = failingEncoderDevice{Device: orig, discarded: &discarded}
	defer func() { f.dev.device = orig }()

	if err := f.dev.BeginFrame(f.target, gputypes.Color{}); err == nil {
		t.Fatal("BeginFrame() succeeded with a failing encoder")
	}
	if !discarded {
		t.Error("encoder not discarded after BeginEncoding failed")
	}
	if f.dev.frame != nil || f.dev.pass != nil {
		t.Error("failed BeginFrame left a frame open")
	}
}

func TestCompileWGSL(t *testing.T) {
	code, err := compileWGSL(testShader)
	if err != nil {
		t.Fatalf("compileWGSL() error = %v", err)
	}
	// SPIR-V magic number.
	if len(code) == 0 || code[0] != 0x07230203 {
		t.Errorf("not SPIR-V: %d words", len(code))
	}
}

func TestCompileWGSLUsesShaderCache(t *testing.T) {
	before := shaders.Stats()
	a, err := compileWGSL(testShader)
	if err != nil {
		t.Fatal(err)
	}
	b, err := compileWGSL(testShader)
	if err != nil {
		t.Fatal(err)
	}
	if &a[0] != &b[0] {
		t.Error("second compile did not reuse the cached SPIR-V")
	}
	if after := shaders.Stats(); after.Hits < before.Hits+1 {
		t.Errorf("shader hits = %d, want at least %d", after.Hits, before.Hits+1)
	}
}

func TestAlignCopy(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 4, 4: 4, 6: 8, 8: 8} {
		if got := alignCopy(n); got != want {
			t.Errorf("alignCopy(%d) = %d, want %d", n, got, want)
		}
	}
}
