// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercache/state"
)

// raster is the render state a pipeline is built for.
type raster struct {
	cull         gputypes.CullMode
	depthCompare gputypes.CompareFunction
	depthWrite   bool
	blend        bool
}

func (r raster) String() string {
	return fmt.Sprintf("cull%d_depth%d_write%t_blend%t", r.cull, r.depthCompare, r.depthWrite, r.blend)
}

// pipelineKey identifies a cached pipeline.
type pipelineKey struct {
	program uint64
	raster
}

// cullMode maps a culling mode to WebGPU. ok is false for front-and-back
// culling, which WebGPU cannot express.
func cullMode(enabled bool, m state.CullMode) (mode gputypes.CullMode, ok bool) {
	if !enabled {
		return gputypes.CullModeNone, true
	}
	switch m {
	case state.CullFront:
		return gputypes.CullModeFront, true
	case state.CullBack:
		return gputypes.CullModeBack, true
	case state.CullFrontAndBack:
		return gputypes.CullModeNone, false
	}
	return gputypes.CullModeNone, true
}

// compareFunction maps a depth test to WebGPU. A disabled test passes every
// fragment.
func compareFunction(enabled bool, d state.DepthTest) gputypes.CompareFunction {
	if !enabled {
		return gputypes.CompareFunctionAlways
	}
	switch d {
	case state.DepthNever:
		return gputypes.CompareFunctionNever
	case state.DepthLess:
		return gputypes.CompareFunctionLess
	case state.DepthLessEqual:
		return gputypes.CompareFunctionLessEqual
	case state.DepthGreater:
		return gputypes.CompareFunctionGreater
	case state.DepthNotEqual:
		return gputypes.CompareFunctionNotEqual
	case state.DepthGreaterEqual:
		return gputypes.CompareFunctionGreaterEqual
	case state.DepthEqual:
		return gputypes.CompareFunctionEqual
	}
	return gputypes.CompareFunctionAlways
}

// pipelineCache caches render pipelines per program and raster state.
//
// Pipeline creation involves shader translation and validation on the
// driver, so pipelines are created once and reused for the lifetime of the
// program.
//
// pipelineCache is safe for concurrent use. It uses RWMutex with
// double-check locking for reads and atomic hit/miss counters.
type pipelineCache struct {
	mu        sync.RWMutex
	pipelines map[pipelineKey]hal.RenderPipeline

	hits   uint64
	misses uint64
}

func newPipelineCache() *pipelineCache {
	return &pipelineCache{
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}
}

// getOrCreate returns the cached pipeline for key, calling create on a miss.
func (c *pipelineCache) getOrCreate(key pipelineKey, create func() (hal.RenderPipeline, error)) (hal.RenderPipeline, error) {
	c.mu.RLock()
	if p, ok := c.pipelines[key]; ok {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pipelines[key]; ok {
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}

	p, err := create()
	if err != nil {
		return nil, err
	}
	c.pipelines[key] = p
	atomic.AddUint64(&c.misses, 1)
	return p, nil
}

// hit counts a draw that reused the pipeline already set on the pass.
func (c *pipelineCache) hit() { atomic.AddUint64(&c.hits, 1) }

// release removes every pipeline of the program, handing each to destroy.
func (c *pipelineCache) release(program uint64, destroy func(hal.RenderPipeline)) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, p := range c.pipelines {
		if key.program != program {
			continue
		}
		destroy(p)
		delete(c.pipelines, key)
		n++
	}
	return n
}

// destroyAll destroys every pipeline and empties the cache.
func (c *pipelineCache) destroyAll(destroy func(hal.RenderPipeline)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, p := range c.pipelines {
		destroy(p)
		delete(c.pipelines, key)
	}
}

// stats returns the number of cache hits and misses.
func (c *pipelineCache) stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// size returns the number of cached pipelines.
func (c *pipelineCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

// pipelineDescriptor builds the descriptor of the pipeline for p in the
// given raster state.
func (d *Device) pipelineDescriptor(p *Program, r raster) *hal.RenderPipelineDescriptor {
	var blend *gputypes.BlendState
	if r.blend {
		premul := gputypes.BlendStatePremultiplied()
		blend = &premul
	}
	desc := &hal.RenderPipelineDescriptor{
		Label:  p.label + "_" + r.String(),
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: p.vertexEntry,
			Buffers:    p.buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: p.fragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    d.opts.ColorFormat,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: r.cull,
		},
		Multisample: gputypes.MultisampleState{
			Count: d.opts.SampleCount,
			Mask:  0xFFFFFFFF,
		},
	}
	if d.opts.DepthFormat != gputypes.TextureFormatUndefined {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            d.opts.DepthFormat,
			DepthWriteEnabled: r.depthWrite,
			DepthCompare:      r.depthCompare,
			StencilFront:      keep,
			StencilBack:       keep,
			StencilReadMask:   0x00,
			StencilWriteMask:  0x00,
		}
	}
	return desc
}
