// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bind

import (
	"errors"
	"weak"
)

// Package errors.
var (
	// ErrNilResource is returned when a nil resource is passed for binding.
	ErrNilResource = errors.New("bind: nil resource")
)

// Slot caches the single resource of one kind (a program, a mesh buffer)
// that is currently bound on the device.
//
// The slot holds a weak pointer: it records which object was bound without
// keeping it alive. Once the owner drops the object, the slot stops
// resolving and the next Ensure rebinds whatever is requested.
//
// The zero value is an empty slot.
type Slot[T any] struct {
	ref weak.Pointer[T]
}

// Current returns the bound resource, or nil if nothing is bound or the
// bound resource has been collected.
func (s *Slot[T]) Current() *T {
	return s.ref.Value()
}

// Holds reports whether r is the resource currently bound.
// Identity is pointer identity; two distinct objects with equal contents
// are different resources.
func (s *Slot[T]) Holds(r *T) bool {
	cur := s.ref.Value()
	return cur != nil && cur == r
}

// Ensure makes r the bound resource. If r is already bound it returns
// (false, nil) without calling bind. Otherwise it calls bind, and only if
// bind succeeds records r and returns (true, nil). A failed bind leaves the
// slot as it was and its error is returned unchanged.
func (s *Slot[T]) Ensure(r *T, bind func() error) (bool, error) {
	if r == nil {
		return false, ErrNilResource
	}
	if s.Holds(r) {
		return false, nil
	}
	if err := bind(); err != nil {
		return false, err
	}
	s.ref = weak.Make(r)
	return true, nil
}

// Reset forgets the bound resource.
func (s *Slot[T]) Reset() {
	s.ref = weak.Pointer[T]{}
}
