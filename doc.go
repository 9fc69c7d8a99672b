// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package rendercache keeps graphics driver calls to a minimum by tracking
// what is currently bound on a device and only issuing calls when the
// desired state differs.
//
// # Overview
//
// A [Context] combines two caches for one rendering context:
//
//   - the render state cache ([state.Cache]): materials and passes merge
//     partial overlays of culling, depth test, depth write and blending
//     into a pending state; a commit sends only the fields that changed.
//   - the resource binding cache ([bind.Cache]): the bound program and
//     buffer are remembered by identity, and textures are spread over a
//     bounded set of texture units with least-recently-used eviction that
//     prefers units whose texture has already been freed.
//
// Resources are never owned by the cache. It holds weak pointers and
// notices passively when their owner frees them.
//
// # Quick Start
//
//	rc := rendercache.New[trace.Program, trace.Buffer, trace.Texture]()
//	dev := trace.NewDevice()
//
//	rc.BeginFrame()
//	rc.Apply(material.State)
//	rc.Commit(dev)
//	if err := rc.EnsureProgram(prog, func() error { return dev.BindProgram(prog) }); err != nil {
//	    return err
//	}
//	unit, err := rc.EnsureTexture(albedo, func(unit uint32) error {
//	    return dev.BindTexture(unit, albedo)
//	})
//
// # Backends
//
// The cache does not talk to a graphics API itself. Device calls go through
// [state.Device] and the bind callbacks supplied by the caller:
//
//   - backend/trace records calls; used by tests and cmd/rcreplay.
//   - backend/wgpu drives a gogpu/wgpu HAL device, folding committed render
//     state into cached render pipelines.
//
// # Configuration
//
// The texture unit capacity and the per-frame baseline state are set with
// [WithMaxTextureUnits] and [WithDefaults], or loaded from TOML with
// [LoadConfig].
//
// # Logging
//
// Logging is silent by default; see [SetLogger].
//
// # Thread Safety
//
// A Context belongs to the rendering thread. None of its methods are safe
// for concurrent use. SetLogger and Logger are.
package rendercache
