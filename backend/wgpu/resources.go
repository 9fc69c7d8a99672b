// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercache/internal/shadercache"
)

// Program is a compiled shader program together with its pipeline layout.
// The render pipelines built from it are owned by the Device that created
// it and released with Device.ReleaseProgram.
type Program struct {
	id            uint64
	label         string
	module        hal.ShaderModule
	layout        hal.PipelineLayout
	vertexEntry   string
	fragmentEntry string
	buffers       []gputypes.VertexBufferLayout
}

// Label returns the program's debug label.
func (p *Program) Label() string { return p.label }

// ProgramDescriptor describes a shader program.
type ProgramDescriptor struct {
	Label string

	// WGSL is the shader source holding both entry points.
	WGSL string

	// VertexEntry and FragmentEntry default to "vs_main" and "fs_main".
	VertexEntry   string
	FragmentEntry string

	// BindGroupLayouts are indexed by texture unit.
	BindGroupLayouts []hal.BindGroupLayout

	// Buffers describes the vertex buffer at slot 0.
	Buffers []gputypes.VertexBufferLayout
}

var programIDs atomic.Uint64

// shaders is shared by every Device; programs built from the same source
// reuse one compilation.
var shaders = shadercache.New(shadercache.DefaultLimit)

// compileWGSL compiles WGSL source to SPIR-V words through the shader cache.
func compileWGSL(source string) ([]uint32, error) {
	if source == "" {
		return nil, ErrEmptyShader
	}
	return shaders.Compile(source, compileSPIRV)
}

func compileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	// SPIR-V is a stream of little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return code, nil
}

// NewProgram compiles desc.WGSL with naga and creates the shader module and
// pipeline layout.
func (d *Device) NewProgram(desc ProgramDescriptor) (*Program, error) {
	code, err := compileWGSL(desc.WGSL)
	if err != nil {
		return nil, fmt.Errorf("wgpu: program %s: %w", desc.Label, err)
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label + "_shader",
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %s: %w", desc.Label, err)
	}

	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label + "_layout",
		BindGroupLayouts: desc.BindGroupLayouts,
	})
	if err != nil {
		d.device.DestroyShaderModule(module)
		return nil, fmt.Errorf("wgpu: create pipeline layout %s: %w", desc.Label, err)
	}

	p := &Program{
		id:            programIDs.Add(1),
		label:         desc.Label,
		module:        module,
		layout:        layout,
		vertexEntry:   desc.VertexEntry,
		fragmentEntry: desc.FragmentEntry,
		buffers:       desc.Buffers,
	}
	if p.vertexEntry == "" {
		p.vertexEntry = "vs_main"
	}
	if p.fragmentEntry == "" {
		p.fragmentEntry = "fs_main"
	}
	slogger().Debug("wgpu: program created", "label", p.label, "spirv_words", len(code))
	return p, nil
}

// ReleaseProgram destroys the program's pipelines, shader module and
// layout. The program must not be bound or used afterwards.
func (d *Device) ReleaseProgram(p *Program) {
	if p == nil {
		return
	}
	n := d.pipelines.release(p.id, d.device.DestroyRenderPipeline)
	if d.program == p {
		d.program = nil
	}
	if d.havePipeline && d.currentKey.program == p.id {
		d.havePipeline = false
	}
	if p.layout != nil {
		d.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.module != nil {
		d.device.DestroyShaderModule(p.module)
		p.module = nil
	}
	slogger().Debug("wgpu: program released", "label", p.label, "pipelines", n)
}

// Mesh is a vertex buffer with an optional index buffer.
type Mesh struct {
	label       string
	vertex      hal.Buffer
	vertexCount uint32
	index       hal.Buffer
	indexFormat gputypes.IndexFormat
	indexCount  uint32
	owned       bool
}

// MeshDescriptor describes buffers the caller already created.
type MeshDescriptor struct {
	Label       string
	Vertex      hal.Buffer
	VertexCount uint32

	// Index is optional.
	Index       hal.Buffer
	IndexFormat gputypes.IndexFormat
	IndexCount  uint32
}

// NewMesh wraps existing buffers. The mesh does not own them.
func NewMesh(desc MeshDescriptor) *Mesh {
	return &Mesh{
		label:       desc.Label,
		vertex:      desc.Vertex,
		vertexCount: desc.VertexCount,
		index:       desc.Index,
		indexFormat: desc.IndexFormat,
		indexCount:  desc.IndexCount,
	}
}

// Label returns the mesh's debug label.
func (m *Mesh) Label() string { return m.label }

// Indexed reports whether the mesh has an index buffer.
func (m *Mesh) Indexed() bool { return m.index != nil }

// CreateMesh uploads vertex data and optional 16-bit indices into new
// buffers owned by the mesh. Release them with DestroyMesh.
func (d *Device) CreateMesh(label string, vertices []byte, vertexCount uint32, indices []uint16) (*Mesh, error) {
	vb, err := d.createBuffer(label+"_vertices", vertices, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	m := &Mesh{label: label, vertex: vb, vertexCount: vertexCount, owned: true}
	if len(indices) == 0 {
		return m, nil
	}

	data := make([]byte, alignCopy(len(indices)*2))
	for i, v := range indices {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	ib, err := d.createBuffer(label+"_indices", data, gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		d.device.DestroyBuffer(vb)
		return nil, err
	}
	m.index = ib
	m.indexFormat = gputypes.IndexFormatUint16
	m.indexCount = uint32(len(indices)) //nolint:gosec // index count fits uint32
	return m, nil
}

// DestroyMesh destroys the buffers of a mesh made by CreateMesh. Meshes
// from NewMesh are left alone.
func (d *Device) DestroyMesh(m *Mesh) {
	if m == nil || !m.owned {
		return
	}
	if d.mesh == m {
		d.mesh = nil
	}
	if m.index != nil {
		d.device.DestroyBuffer(m.index)
		m.index = nil
	}
	if m.vertex != nil {
		d.device.DestroyBuffer(m.vertex)
		m.vertex = nil
	}
}

// createBuffer creates a buffer and uploads data into it.
func (d *Device) createBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	if err := d.queue.WriteBuffer(buf, 0, data); err != nil {
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: upload %s: %w", label, err)
	}
	return buf, nil
}

// alignCopy rounds n up to the 4-byte copy alignment WebGPU requires.
func alignCopy(n int) int { return (n + 3) &^ 3 }

// Texture is a bind group holding a texture view and its sampler, built by
// the caller against the program's bind group layout for the unit it will
// occupy.
type Texture struct {
	label string
	group hal.BindGroup
}

// NewTexture wraps a bind group. The texture does not own it.
func NewTexture(label string, group hal.BindGroup) *Texture {
	return &Texture{label: label, group: group}
}

// Label returns the texture's debug label.
func (t *Texture) Label() string { return t.label }
