// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package state implements the render state cache: a two-stage buffer of
// fixed-function device toggles (face culling, depth test, depth writes,
// alpha blending).
//
// Producers such as materials or passes merge partial overlays into the
// pending state with [Cache.Apply]. Nothing reaches the device until
// [Cache.Commit], which compares the pending state field by field against
// what it last applied and only issues calls for the fields that changed.
//
//	cache := state.NewCache()
//	cache.ApplyDefaults()
//	cache.Apply(material.State)
//	cache.Apply(pass.State)
//	cache.Commit(device)
//
// The cache is not safe for concurrent use. It is meant to live on the
// rendering thread for the lifetime of one graphics context.
package state
