// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bind implements the resource binding cache: it remembers which
// program, buffer and textures are bound on a graphics device so that
// redundant driver binds can be skipped.
//
// # Non-owning references
//
// Resources are owned by the asset and material code, never by this
// package. Every cached reference is a [weak.Pointer]: it identifies the
// resource without keeping it alive, and stops resolving once the owner
// lets go of it. Staleness is detected passively, there is no invalidation
// callback to wire up.
//
// Identity is pointer identity. Two distinct resources with the same
// contents are still two resources and both get bound.
//
// # Single-slot caches
//
// [Slot] caches one resource of one kind. [Slot.Ensure] is a no-op when the
// requested resource is already bound; otherwise it calls the supplied bind
// function and records the resource only if the bind succeeded.
//
// # Texture units
//
// [Units] hands out a bounded set of texture units (8 by default). Resident
// textures are found by identity and marked most recently used. New
// textures take the next unused unit, then a unit whose texture has been
// freed, and only then evict the least recently used live texture:
//
//	unit, err := units.Ensure(tex, func(unit uint32) error {
//	    return device.BindTexture(unit, tex)
//	})
//	if err != nil {
//	    return err // skip the draw or substitute a fallback
//	}
//	program.SetSampler("albedo", unit)
//
// A failed bind is never retried. Its unit is parked at the head of the
// table as a dead unit. While the table has free units they are used
// first; once it is full, the parked unit is the first one reused.
//
// # Debug checks
//
// Building with -tags rcdebug turns internal bookkeeping violations into
// panics. Otherwise they are logged at error level.
//
// Nothing in this package is safe for concurrent use; all of it is meant
// to run on the rendering thread.
package bind
