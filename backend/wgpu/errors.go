// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import "errors"

var (
	// ErrNilDevice is returned when a device is created without a HAL device.
	ErrNilDevice = errors.New("wgpu: device is nil")

	// ErrNoPass is returned by bind and draw calls outside Begin/End.
	ErrNoPass = errors.New("wgpu: no active render pass")

	// ErrNoProgram is returned by draws before a program is bound.
	ErrNoProgram = errors.New("wgpu: no program bound")

	// ErrNoMesh is returned by draws before a mesh is bound.
	ErrNoMesh = errors.New("wgpu: no mesh bound")

	// ErrNotIndexed is returned by DrawIndexed when the bound mesh has no
	// index buffer.
	ErrNotIndexed = errors.New("wgpu: mesh has no index buffer")

	// ErrNilResource is returned when binding a nil program, mesh or texture.
	ErrNilResource = errors.New("wgpu: nil resource")

	// ErrEmptyShader is returned by NewProgram for empty WGSL source.
	ErrEmptyShader = errors.New("wgpu: shader source is empty")

	// ErrNilTarget is returned by BeginFrame without a render target.
	ErrNilTarget = errors.New("wgpu: render target is nil")

	// ErrFrameInProgress is returned by BeginFrame while a frame is open.
	ErrFrameInProgress = errors.New("wgpu: frame already in progress")

	// ErrNoFrame is returned by EndFrame without a matching BeginFrame.
	ErrNoFrame = errors.New("wgpu: no frame in progress")

	// ErrGPUTimeout is returned when submitted work does not complete in
	// time.
	ErrGPUTimeout = errors.New("wgpu: timed out waiting for GPU")

	// ErrNoHALProvider is returned when a device provider does not expose
	// HAL types.
	ErrNoHALProvider = errors.New("wgpu: provider does not expose HAL types")
)
