// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu drives a gogpu/wgpu HAL device from a rendercache.Context.
//
// WebGPU has no mutable rasterizer state: culling, depth test, depth writes
// and blending are baked into a render pipeline. [Device] therefore
// implements state.Device by recording the committed state, and resolves a
// cached hal.RenderPipeline for the bound program and that state at draw
// time. Programs, meshes and textures are bound on the active render pass.
//
// # Usage
//
//	dev, err := wgpu.NewDevice(halDevice, halQueue, wgpu.DeviceOptions{})
//	rc := rendercache.New[wgpu.Program, wgpu.Mesh, wgpu.Texture](
//	    rendercache.WithMaxTextureUnits(dev.MaxTextureUnits()),
//	)
//
//	dev.Begin(pass)
//	rc.Bindings().Invalidate() // a new pass starts with nothing bound
//	rc.Apply(material)
//	rc.Commit(dev)
//	rc.EnsureProgram(prog, func() error { return dev.BindProgram(prog) })
//	rc.EnsureBuffer(mesh, func() error { return dev.BindMesh(mesh) })
//	rc.EnsureTexture(albedo, func(unit uint32) error { return dev.BindTexture(unit, albedo) })
//	dev.DrawIndexed()
//	dev.End()
//
// Texture units map to bind group indices. A Texture wraps a bind group the
// caller built against the program's layout.
//
// Programs are written in WGSL and compiled to SPIR-V with naga. Compiled
// code is cached per source for the whole process.
//
// # State mapping
//
//   - cull off, front, back map to gputypes.CullModeNone, Front, Back.
//     Front-and-back culling has no WebGPU equivalent; draws are skipped
//     while it is active.
//   - a disabled depth test compares Always and does not write depth.
//   - alpha blending uses gputypes.BlendStatePremultiplied.
package wgpu
