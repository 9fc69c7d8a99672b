// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// submitTimeout bounds the wait for the GPU at the end of a frame.
const submitTimeout = 5 * time.Second

// pollInterval is the sleep between completion polls.
const pollInterval = 100 * time.Microsecond

// Target is an offscreen color attachment with an optional depth
// attachment, sized for one Device.
type Target struct {
	width, height uint32

	color     hal.Texture
	colorView hal.TextureView
	depth     hal.Texture
	depthView hal.TextureView
}

// Size returns the target dimensions.
func (t *Target) Size() (width, height uint32) { return t.width, t.height }

// ColorView returns the color attachment view.
func (t *Target) ColorView() hal.TextureView { return t.colorView }

// CreateTarget creates an offscreen target in the device's color format,
// with a depth attachment when the device has a depth format.
func (d *Device) CreateTarget(width, height uint32) (*Target, error) {
	size := hal.Extent3D{
		Width:              width,
		Height:             height,
		DepthOrArrayLayers: 1,
	}
	t := &Target{width: width, height: height}

	color, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "rendercache_target_color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   d.opts.SampleCount,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.opts.ColorFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create color target: %w", err)
	}
	t.color = color

	t.colorView, err = d.device.CreateTextureView(color, &hal.TextureViewDescriptor{
		Label: "rendercache_target_color_view",
	})
	if err != nil {
		d.DestroyTarget(t)
		return nil, fmt.Errorf("wgpu: create color target view: %w", err)
	}

	if d.opts.DepthFormat == gputypes.TextureFormatUndefined {
		return t, nil
	}

	depth, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "rendercache_target_depth",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   d.opts.SampleCount,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.opts.DepthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		d.DestroyTarget(t)
		return nil, fmt.Errorf("wgpu: create depth target: %w", err)
	}
	t.depth = depth

	t.depthView, err = d.device.CreateTextureView(depth, &hal.TextureViewDescriptor{
		Label: "rendercache_target_depth_view",
	})
	if err != nil {
		d.DestroyTarget(t)
		return nil, fmt.Errorf("wgpu: create depth target view: %w", err)
	}
	return t, nil
}

// DestroyTarget releases the target's textures in reverse creation order.
func (d *Device) DestroyTarget(t *Target) {
	if t == nil {
		return
	}
	if t.depthView != nil {
		d.device.DestroyTextureView(t.depthView)
		t.depthView = nil
	}
	if t.depth != nil {
		d.device.DestroyTexture(t.depth)
		t.depth = nil
	}
	if t.colorView != nil {
		d.device.DestroyTextureView(t.colorView)
		t.colorView = nil
	}
	if t.color != nil {
		d.device.DestroyTexture(t.color)
		t.color = nil
	}
}

// frame is the command encoder of a frame started with BeginFrame.
type frame struct {
	encoder hal.CommandEncoder
}

// BeginFrame starts a command encoder and a render pass that clears t to
// clear, then calls Begin on it. Finish it with EndFrame.
func (d *Device) BeginFrame(t *Target, clear gputypes.Color) error {
	if t == nil {
		return ErrNilTarget
	}
	if d.frame != nil {
		return ErrFrameInProgress
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "rendercache_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("rendercache_frame"); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	desc := &hal.RenderPassDescriptor{
		Label: "rendercache_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       t.colorView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clear,
		}},
	}
	if t.depthView != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            t.depthView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	d.frame = &frame{encoder: encoder}
	d.Begin(encoder.BeginRenderPass(desc))
	return nil
}

// EndFrame ends the render pass, submits the frame and waits for the GPU.
func (d *Device) EndFrame() error {
	f := d.frame
	if f == nil {
		return ErrNoFrame
	}
	d.frame = nil
	d.End()

	cmdBuf, err := f.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	index, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	return waitSubmitted(d.queue, index, submitTimeout)
}

// waitSubmitted polls q until submission index has completed or timeout
// has passed.
func waitSubmitted(q hal.Queue, index uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for q.PollCompleted() < index {
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: submission %d after %v", ErrGPUTimeout, index, timeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// abortFrame ends the pass and drops the encoder of an unfinished frame.
func (d *Device) abortFrame() {
	f := d.frame
	d.frame = nil
	d.End()
	f.encoder.DiscardEncoding()
}
