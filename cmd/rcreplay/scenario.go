// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/rendercache"
	"github.com/gogpu/rendercache/backend/trace"
	"github.com/gogpu/rendercache/state"
)

// scenario is a replay script: the context configuration followed by the
// frames to render.
type scenario struct {
	rendercache.Config

	Frames []frameSpec `toml:"frame"`
}

type frameSpec struct {
	// Release drops the named textures before the frame starts, as if
	// their owner freed them.
	Release []string   `toml:"release"`
	Draws   []drawSpec `toml:"draw"`
}

type drawSpec struct {
	Program  string                   `toml:"program"`
	Buffer   string                   `toml:"buffer"`
	Textures []string                 `toml:"textures"`
	Vertices int                      `toml:"vertices"`
	State    *rendercache.StateConfig `toml:"state"`
}

func loadScenario(path string) (*scenario, error) {
	var s scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

func parseScenario(doc string) (*scenario, error) {
	var s scenario
	if _, err := toml.Decode(doc, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *scenario) validate() error {
	if err := s.Config.Validate(); err != nil {
		return err
	}
	for i, f := range s.Frames {
		for j, d := range f.Draws {
			if d.Program == "" {
				return fmt.Errorf("frame %d draw %d: program is required", i, j)
			}
			if d.Buffer == "" {
				return fmt.Errorf("frame %d draw %d: buffer is required", i, j)
			}
		}
	}
	return nil
}

// frameReport is the outcome of one replayed frame.
type frameReport struct {
	Index int
	Stats rendercache.FrameStats
	Calls []trace.Call
	Units []uint32
}

// replayer owns the named resources of a scenario. It holds the only
// strong references to them, so releasing a name lets the collector free
// the resource.
type replayer struct {
	rc  *rendercache.Context[trace.Program, trace.Buffer, trace.Texture]
	dev *trace.Device

	programs map[string]*trace.Program
	buffers  map[string]*trace.Buffer
	textures map[string]*trace.Texture
}

func newReplayer(s *scenario) *replayer {
	return &replayer{
		rc:       rendercache.New[trace.Program, trace.Buffer, trace.Texture](s.Options()...),
		dev:      trace.NewDevice(),
		programs: make(map[string]*trace.Program),
		buffers:  make(map[string]*trace.Buffer),
		textures: make(map[string]*trace.Texture),
	}
}

func lookup[R any](m map[string]*R, name string, create func(string) *R) *R {
	r, ok := m[name]
	if !ok {
		r = create(name)
		m[name] = r
	}
	return r
}

// run replays every frame of s.
func (r *replayer) run(s *scenario) ([]frameReport, error) {
	reports := make([]frameReport, 0, len(s.Frames))
	for i, f := range s.Frames {
		rep, err := r.frame(i, f)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (r *replayer) frame(index int, f frameSpec) (frameReport, error) {
	if len(f.Release) > 0 {
		for _, name := range f.Release {
			delete(r.textures, name)
		}
		runtime.GC()
		runtime.GC()
	}

	r.dev.ResetCalls()
	r.rc.BeginFrame()

	var units []uint32
	for j, d := range f.Draws {
		overlay := state.RenderState{}
		if d.State != nil {
			overlay = d.State.RenderState()
		}
		r.rc.Apply(overlay)
		r.rc.Commit(r.dev)

		p := lookup(r.programs, d.Program, trace.NewProgram)
		if err := r.rc.EnsureProgram(p, func() error { return r.dev.BindProgram(p) }); err != nil {
			return frameReport{}, fmt.Errorf("frame %d draw %d: %w", index, j, err)
		}
		b := lookup(r.buffers, d.Buffer, trace.NewBuffer)
		if err := r.rc.EnsureBuffer(b, func() error { return r.dev.BindBuffer(b) }); err != nil {
			return frameReport{}, fmt.Errorf("frame %d draw %d: %w", index, j, err)
		}
		for _, name := range d.Textures {
			t := lookup(r.textures, name, trace.NewTexture)
			unit, err := r.rc.EnsureTexture(t, func(unit uint32) error { return r.dev.BindTexture(unit, t) })
			if err != nil {
				return frameReport{}, fmt.Errorf("frame %d draw %d: %w", index, j, err)
			}
			units = append(units, unit)
		}

		n := d.Vertices
		if n == 0 {
			n = 3
		}
		r.dev.Draw(n)
	}

	return frameReport{
		Index: index,
		Stats: r.rc.Frame(),
		Calls: append([]trace.Call(nil), r.dev.Calls()...),
		Units: units,
	}, nil
}
