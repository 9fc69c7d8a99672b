// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendercache

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/rendercache/state"
)

// Config is the file form of the Context options.
//
//	max_texture_units = 4
//
//	[defaults]
//	cull = "back"
//	depth_test = "less_equal"
//	depth_write = true
//	alpha_blending = false
type Config struct {
	// MaxTextureUnits is the texture unit capacity. Zero keeps the default.
	MaxTextureUnits int `toml:"max_texture_units"`

	// Defaults replaces the per-frame baseline state when set.
	Defaults *StateConfig `toml:"defaults"`
}

// StateConfig is the file form of a state.RenderState. Omitted keys are
// absent fields.
type StateConfig struct {
	Cull          *state.CullMode  `toml:"cull"`
	DepthTest     *state.DepthTest `toml:"depth_test"`
	DepthWrite    *bool            `toml:"depth_write"`
	AlphaBlending *bool            `toml:"alpha_blending"`
}

// RenderState converts the config into a render state overlay.
func (s StateConfig) RenderState() state.RenderState {
	var rs state.RenderState
	if s.Cull != nil {
		rs = rs.WithCull(*s.Cull)
	}
	if s.DepthTest != nil {
		rs = rs.WithDepthTest(*s.DepthTest)
	}
	if s.DepthWrite != nil {
		rs = rs.WithDepthWrite(*s.DepthWrite)
	}
	if s.AlphaBlending != nil {
		rs = rs.WithAlphaBlending(*s.AlphaBlending)
	}
	return rs
}

// Options converts the config into Context options.
func (c Config) Options() []Option {
	var opts []Option
	if c.MaxTextureUnits != 0 {
		opts = append(opts, WithMaxTextureUnits(c.MaxTextureUnits))
	}
	if c.Defaults != nil {
		opts = append(opts, WithDefaults(c.Defaults.RenderState()))
	}
	return opts
}

// Validate reports configuration values that cannot be honored.
func (c Config) Validate() error {
	if c.MaxTextureUnits < 0 {
		return fmt.Errorf("rendercache: max_texture_units must not be negative, got %d", c.MaxTextureUnits)
	}
	return nil
}

// LoadConfig reads a TOML config file.
func LoadConfig(path string) (Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("rendercache: read config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ParseConfig decodes a TOML config document.
func ParseConfig(data string) (Config, error) {
	var c Config
	if _, err := toml.Decode(data, &c); err != nil {
		return Config{}, fmt.Errorf("rendercache: parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
