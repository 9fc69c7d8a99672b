// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package state

import (
	"fmt"
	"strings"
)

// CullMode selects which triangle faces are discarded by the rasterizer.
type CullMode uint8

// Face culling modes.
const (
	CullOff CullMode = iota
	CullFront
	CullBack
	CullFrontAndBack
)

var cullModeNames = [...]string{
	CullOff:          "off",
	CullFront:        "front",
	CullBack:         "back",
	CullFrontAndBack: "front_and_back",
}

// String returns the lower-case name of the mode.
func (m CullMode) String() string {
	if int(m) < len(cullModeNames) {
		return cullModeNames[m]
	}
	return fmt.Sprintf("CullMode(%d)", m)
}

// ParseCullMode parses a name produced by CullMode.String.
// Matching is case-insensitive and accepts "-" in place of "_".
func ParseCullMode(s string) (CullMode, error) {
	s = normalizeName(s)
	for i, name := range cullModeNames {
		if name == s {
			return CullMode(i), nil
		}
	}
	return 0, fmt.Errorf("state: unknown cull mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m CullMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *CullMode) UnmarshalText(text []byte) error {
	v, err := ParseCullMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DepthTest is the depth comparison applied to incoming fragments.
//
// DepthNever is special: committing it disables the depth test capability
// instead of installing a comparison that rejects every fragment.
type DepthTest uint8

// Depth comparison functions.
const (
	DepthNever DepthTest = iota
	DepthAlways
	DepthLess
	DepthLessEqual
	DepthGreater
	DepthNotEqual
	DepthGreaterEqual
	DepthEqual
)

var depthTestNames = [...]string{
	DepthNever:        "never",
	DepthAlways:       "always",
	DepthLess:         "less",
	DepthLessEqual:    "less_equal",
	DepthGreater:      "greater",
	DepthNotEqual:     "not_equal",
	DepthGreaterEqual: "greater_equal",
	DepthEqual:        "equal",
}

// String returns the lower-case name of the comparison.
func (d DepthTest) String() string {
	if int(d) < len(depthTestNames) {
		return depthTestNames[d]
	}
	return fmt.Sprintf("DepthTest(%d)", d)
}

// ParseDepthTest parses a name produced by DepthTest.String.
func ParseDepthTest(s string) (DepthTest, error) {
	s = normalizeName(s)
	for i, name := range depthTestNames {
		if name == s {
			return DepthTest(i), nil
		}
	}
	return 0, fmt.Errorf("state: unknown depth test %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d DepthTest) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DepthTest) UnmarshalText(text []byte) error {
	v, err := ParseDepthTest(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// Field identifies one render state field.
type Field uint8

// Render state fields. A RenderState carries a set of these.
const (
	FieldCull Field = 1 << iota
	FieldDepthTest
	FieldDepthWrite
	FieldAlphaBlending

	AllFields = FieldCull | FieldDepthTest | FieldDepthWrite | FieldAlphaBlending
)

// RenderState is a sparse overlay of fixed-function device toggles.
//
// Each field is either present or absent. An absent field means the overlay
// says nothing about it; it never means "disable". The zero value is an
// empty overlay.
//
// RenderState is a small value type, build it with the With* methods:
//
//	rs := state.RenderState{}.WithCull(state.CullOff).WithAlphaBlending(true)
type RenderState struct {
	fields        Field
	cull          CullMode
	depthTest     DepthTest
	depthWrite    bool
	alphaBlending bool
}

// DefaultState returns the baseline used by Cache.ApplyDefaults unless the
// cache was configured otherwise: back-face culling, depth test Less,
// depth writes on, blending off.
func DefaultState() RenderState {
	return RenderState{}.
		WithCull(CullBack).
		WithDepthTest(DepthLess).
		WithDepthWrite(true).
		WithAlphaBlending(false)
}

// WithCull returns a copy of s with the cull mode set.
func (s RenderState) WithCull(m CullMode) RenderState {
	s.cull = m
	s.fields |= FieldCull
	return s
}

// WithDepthTest returns a copy of s with the depth test set.
func (s RenderState) WithDepthTest(d DepthTest) RenderState {
	s.depthTest = d
	s.fields |= FieldDepthTest
	return s
}

// WithDepthWrite returns a copy of s with the depth write mask set.
func (s RenderState) WithDepthWrite(on bool) RenderState {
	s.depthWrite = on
	s.fields |= FieldDepthWrite
	return s
}

// WithAlphaBlending returns a copy of s with alpha blending set.
func (s RenderState) WithAlphaBlending(on bool) RenderState {
	s.alphaBlending = on
	s.fields |= FieldAlphaBlending
	return s
}

// Without returns a copy of s with the given fields removed.
func (s RenderState) Without(f Field) RenderState {
	s.fields &^= f
	return s
}

// Fields reports which fields are present.
func (s RenderState) Fields() Field { return s.fields }

// Has reports whether every field in f is present.
func (s RenderState) Has(f Field) bool { return s.fields&f == f }

// IsEmpty reports whether no field is present.
func (s RenderState) IsEmpty() bool { return s.fields == 0 }

// Cull returns the cull mode and whether it is present.
func (s RenderState) Cull() (CullMode, bool) { return s.cull, s.Has(FieldCull) }

// DepthTest returns the depth test and whether it is present.
func (s RenderState) DepthTest() (DepthTest, bool) { return s.depthTest, s.Has(FieldDepthTest) }

// DepthWrite returns the depth write mask and whether it is present.
func (s RenderState) DepthWrite() (bool, bool) { return s.depthWrite, s.Has(FieldDepthWrite) }

// AlphaBlending returns the blending flag and whether it is present.
func (s RenderState) AlphaBlending() (bool, bool) { return s.alphaBlending, s.Has(FieldAlphaBlending) }

// Merge returns s with every field present in overlay overwritten.
// Fields absent from overlay keep their value in s.
func (s RenderState) Merge(overlay RenderState) RenderState {
	if v, ok := overlay.Cull(); ok {
		s = s.WithCull(v)
	}
	if v, ok := overlay.DepthTest(); ok {
		s = s.WithDepthTest(v)
	}
	if v, ok := overlay.DepthWrite(); ok {
		s = s.WithDepthWrite(v)
	}
	if v, ok := overlay.AlphaBlending(); ok {
		s = s.WithAlphaBlending(v)
	}
	return s
}

// String formats the present fields, e.g. "{cull=back depth=less}".
func (s RenderState) String() string {
	var b strings.Builder
	b.WriteByte('{')
	add := func(k, v string) {
		if b.Len() > 1 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	if v, ok := s.Cull(); ok {
		add("cull", v.String())
	}
	if v, ok := s.DepthTest(); ok {
		add("depth", v.String())
	}
	if v, ok := s.DepthWrite(); ok {
		add("depth_write", fmt.Sprint(v))
	}
	if v, ok := s.AlphaBlending(); ok {
		add("blend", fmt.Sprint(v))
	}
	b.WriteByte('}')
	return b.String()
}
