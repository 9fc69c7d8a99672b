// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendercache

import (
	"github.com/gogpu/rendercache/bind"
	"github.com/gogpu/rendercache/state"
)

// Option configures a Context during creation.
//
// Example:
//
//	// Defaults: 8 texture units, standard baseline state.
//	rc := rendercache.New[Program, Mesh, Texture]()
//
//	// Match the device's reported limit.
//	rc := rendercache.New[Program, Mesh, Texture](
//	    rendercache.WithMaxTextureUnits(int(limits.MaxBindGroups)),
//	)
type Option func(*contextOptions)

// contextOptions holds optional configuration for Context creation.
type contextOptions struct {
	maxTextureUnits int
	defaults        state.RenderState
}

// defaultOptions returns the default context options.
func defaultOptions() contextOptions {
	return contextOptions{
		maxTextureUnits: bind.DefaultMaxTextureUnits,
		defaults:        state.DefaultState(),
	}
}

// WithMaxTextureUnits sets the number of texture units the binding cache
// may hand out. Values below 1 keep the default of
// bind.DefaultMaxTextureUnits.
func WithMaxTextureUnits(n int) Option {
	return func(o *contextOptions) {
		if n >= 1 {
			o.maxTextureUnits = n
		}
	}
}

// WithDefaults replaces the baseline render state installed at the start
// of every frame. Fields absent from rs are not part of the baseline; unless
// an overlay sets them they stay as last applied on the device.
func WithDefaults(rs state.RenderState) Option {
	return func(o *contextOptions) {
		o.defaults = rs
	}
}
