// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package trace provides a graphics device that records every call it
// receives instead of talking to a driver.
//
// It implements state.Device and offers bind methods for programs, buffers
// and textures, so a rendercache.Context can drive it exactly like a real
// backend. Tests count its calls to verify redundant ones were elided, and
// cmd/rcreplay prints them.
package trace

import (
	"errors"
	"fmt"
	"strings"
	"weak"

	"github.com/gogpu/rendercache/state"
)

// Op names a recorded device call.
type Op string

// Recorded operations.
const (
	OpEnable      Op = "enable"
	OpDisable     Op = "disable"
	OpCullFace    Op = "cull_face"
	OpDepthFunc   Op = "depth_func"
	OpDepthMask   Op = "depth_mask"
	OpBindProgram Op = "bind_program"
	OpBindBuffer  Op = "bind_buffer"
	OpBindTexture Op = "bind_texture"
	OpDraw        Op = "draw"
)

// IsState reports whether op changes render state rather than a binding.
func (op Op) IsState() bool {
	switch op {
	case OpEnable, OpDisable, OpCullFace, OpDepthFunc, OpDepthMask:
		return true
	}
	return false
}

// Call is one recorded device call.
type Call struct {
	Op  Op
	Arg string
}

func (c Call) String() string {
	if c.Arg == "" {
		return string(c.Op)
	}
	return string(c.Op) + "(" + c.Arg + ")"
}

// Program is a named shader program.
type Program struct{ Name string }

// Buffer is a named vertex buffer.
type Buffer struct{ Name string }

// Texture is a named texture.
type Texture struct{ Name string }

func (p *Program) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.Name
}

func (b *Buffer) String() string {
	if b == nil {
		return "<nil>"
	}
	return b.Name
}

func (t *Texture) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// NewProgram returns a program with the given name.
func NewProgram(name string) *Program { return &Program{Name: name} }

// NewBuffer returns a buffer with the given name.
func NewBuffer(name string) *Buffer { return &Buffer{Name: name} }

// NewTexture returns a texture with the given name.
func NewTexture(name string) *Texture { return &Texture{Name: name} }

// ErrInjected is returned by binds that were set to fail with FailOn.
var ErrInjected = errors.New("trace: injected bind failure")

// Device records calls and mirrors the state a real device would hold.
//
// Device is not safe for concurrent use.
type Device struct {
	calls  []Call
	failOn map[Op]map[string]bool

	enabled   map[state.Capability]bool
	cullFace  state.CullMode
	depthFunc state.DepthTest
	depthMask bool

	// Bound resources are held weakly, like a driver that does not keep
	// the application's objects alive.
	program  weak.Pointer[Program]
	buffer   weak.Pointer[Buffer]
	textures map[uint32]weak.Pointer[Texture]
}

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{
		failOn:   make(map[Op]map[string]bool),
		enabled:  make(map[state.Capability]bool),
		textures: make(map[uint32]weak.Pointer[Texture]),
	}
}

// FailOn makes binds of the named resource through op return ErrInjected
// until Recover is called.
func (d *Device) FailOn(op Op, name string) {
	if d.failOn[op] == nil {
		d.failOn[op] = make(map[string]bool)
	}
	d.failOn[op][name] = true
}

// Recover clears every injected failure.
func (d *Device) Recover() {
	clear(d.failOn)
}

func (d *Device) fails(op Op, name string) bool {
	return d.failOn[op][name]
}

func (d *Device) record(op Op, arg string) {
	d.calls = append(d.calls, Call{Op: op, Arg: arg})
}

// Enable implements state.Device.
func (d *Device) Enable(c state.Capability) {
	d.record(OpEnable, c.String())
	d.enabled[c] = true
}

// Disable implements state.Device.
func (d *Device) Disable(c state.Capability) {
	d.record(OpDisable, c.String())
	d.enabled[c] = false
}

// CullFace implements state.Device.
func (d *Device) CullFace(m state.CullMode) {
	d.record(OpCullFace, m.String())
	d.cullFace = m
}

// DepthFunc implements state.Device.
func (d *Device) DepthFunc(t state.DepthTest) {
	d.record(OpDepthFunc, t.String())
	d.depthFunc = t
}

// DepthMask implements state.Device.
func (d *Device) DepthMask(on bool) {
	d.record(OpDepthMask, fmt.Sprint(on))
	d.depthMask = on
}

// BindProgram binds p. A nil program unbinds.
func (d *Device) BindProgram(p *Program) error {
	name := p.String()
	if d.fails(OpBindProgram, name) {
		return fmt.Errorf("%w: program %s", ErrInjected, name)
	}
	d.record(OpBindProgram, name)
	d.program = weak.Make(p)
	return nil
}

// BindBuffer binds b. A nil buffer unbinds.
func (d *Device) BindBuffer(b *Buffer) error {
	name := b.String()
	if d.fails(OpBindBuffer, name) {
		return fmt.Errorf("%w: buffer %s", ErrInjected, name)
	}
	d.record(OpBindBuffer, name)
	d.buffer = weak.Make(b)
	return nil
}

// BindTexture binds t to the texture unit.
func (d *Device) BindTexture(unit uint32, t *Texture) error {
	name := t.String()
	if d.fails(OpBindTexture, name) {
		return fmt.Errorf("%w: texture %s", ErrInjected, name)
	}
	d.record(OpBindTexture, fmt.Sprintf("%d,%s", unit, name))
	d.textures[unit] = weak.Make(t)
	return nil
}

// Draw records a draw of n vertices.
func (d *Device) Draw(n int) {
	d.record(OpDraw, fmt.Sprint(n))
}

// Calls returns the recorded calls in order.
func (d *Device) Calls() []Call { return d.calls }

// Count returns the number of recorded calls of the given op.
func (d *Device) Count(op Op) int {
	n := 0
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// StateCalls returns the number of recorded render state calls.
func (d *Device) StateCalls() int {
	n := 0
	for _, c := range d.calls {
		if c.Op.IsState() {
			n++
		}
	}
	return n
}

// ResetCalls drops the recorded calls. Device state is kept.
func (d *Device) ResetCalls() { d.calls = d.calls[:0] }

// Enabled reports whether the capability is enabled on the device.
func (d *Device) Enabled(c state.Capability) bool { return d.enabled[c] }

// CullFaceMode returns the last face culling mode set.
func (d *Device) CullFaceMode() state.CullMode { return d.cullFace }

// DepthFuncValue returns the last depth comparison set.
func (d *Device) DepthFuncValue() state.DepthTest { return d.depthFunc }

// DepthMaskValue returns the last depth write mask set.
func (d *Device) DepthMaskValue() bool { return d.depthMask }

// Program returns the bound program, or nil once it was freed.
func (d *Device) Program() *Program { return d.program.Value() }

// Buffer returns the bound buffer, or nil once it was freed.
func (d *Device) Buffer() *Buffer { return d.buffer.Value() }

// Texture returns the texture bound to unit, or nil.
func (d *Device) Texture(unit uint32) *Texture { return d.textures[unit].Value() }

// Effective returns the render state the device currently applies.
// Culling reads as CullOff and the depth test as DepthNever while the
// corresponding capability is disabled.
func (d *Device) Effective() state.RenderState {
	cull := state.CullOff
	if d.enabled[state.CapCullFace] {
		cull = d.cullFace
	}
	depth := state.DepthNever
	if d.enabled[state.CapDepthTest] {
		depth = d.depthFunc
	}
	return state.RenderState{}.
		WithCull(cull).
		WithDepthTest(depth).
		WithDepthWrite(d.depthMask).
		WithAlphaBlending(d.enabled[state.CapBlend])
}

// String formats the recorded calls one per line.
func (d *Device) String() string {
	var sb strings.Builder
	for i, c := range d.calls {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}
