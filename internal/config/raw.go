package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawCaptureConfig struct {
	TimeoutMS      *int    `yaml:"timeout_ms"`
	SettleMS       *int    `yaml:"settle_ms"`
	Format         *string `yaml:"format"`
	Quality        *int    `yaml:"quality"`
	DiagnosticsDir *string `yaml:"diagnostics_dir"`
}

type RawRestoreConfig struct {
	Enabled            *bool    `yaml:"enabled"`
	HardReattach       *bool    `yaml:"hard_reattach"`
	SpaceNudge         *bool    `yaml:"space_nudge"`
	VerifyAttempts     *int     `yaml:"verify_attempts"`
	VerifyDelayMS      *int     `yaml:"verify_delay_ms"`
	TransitionMaxSteps *int     `yaml:"transition_max_steps"`
	NudgeCommand       []string `yaml:"nudge_command"`
}

type RawParityConfig struct {
	Threshold *float64 `yaml:"threshold"`
	MaxEdge   *int     `yaml:"max_edge"`
}

type RawHelperConfig struct {
	TimeoutMS *int `yaml:"timeout_ms"`
}

type RawLoggingConfig struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

// RawConfig mirrors the YAML file. Nil fields were not set and keep the
// value from earlier files or the defaults.
type RawConfig struct {
	Include IncludeList `yaml:"include"`

	Display    *string `yaml:"display"`
	XAuthority *string `yaml:"xauthority"`

	Capture  *RawCaptureConfig        `yaml:"capture"`
	Restore  *RawRestoreConfig        `yaml:"restore"`
	Parity   *RawParityConfig         `yaml:"parity"`
	Helper   *RawHelperConfig         `yaml:"helper"`
	Logging  *RawLoggingConfig        `yaml:"logging"`
	Browsers map[string]BrowserConfig `yaml:"browsers"`
}

func pick[T any](base, overlay *T) *T {
	if overlay != nil {
		return overlay
	}
	return base
}

// merge applies overlay on top of r. Browsers merge per app.
func (r RawConfig) merge(overlay RawConfig) RawConfig {
	out := r
	out.Include = nil
	out.Display = pick(r.Display, overlay.Display)
	out.XAuthority = pick(r.XAuthority, overlay.XAuthority)

	if overlay.Capture != nil {
		c := RawCaptureConfig{}
		if r.Capture != nil {
			c = *r.Capture
		}
		c.TimeoutMS = pick(c.TimeoutMS, overlay.Capture.TimeoutMS)
		c.SettleMS = pick(c.SettleMS, overlay.Capture.SettleMS)
		c.Format = pick(c.Format, overlay.Capture.Format)
		c.Quality = pick(c.Quality, overlay.Capture.Quality)
		c.DiagnosticsDir = pick(c.DiagnosticsDir, overlay.Capture.DiagnosticsDir)
		out.Capture = &c
	}
	if overlay.Restore != nil {
		c := RawRestoreConfig{}
		if r.Restore != nil {
			c = *r.Restore
		}
		c.Enabled = pick(c.Enabled, overlay.Restore.Enabled)
		c.HardReattach = pick(c.HardReattach, overlay.Restore.HardReattach)
		c.SpaceNudge = pick(c.SpaceNudge, overlay.Restore.SpaceNudge)
		c.VerifyAttempts = pick(c.VerifyAttempts, overlay.Restore.VerifyAttempts)
		c.VerifyDelayMS = pick(c.VerifyDelayMS, overlay.Restore.VerifyDelayMS)
		c.TransitionMaxSteps = pick(c.TransitionMaxSteps, overlay.Restore.TransitionMaxSteps)
		if overlay.Restore.NudgeCommand != nil {
			c.NudgeCommand = overlay.Restore.NudgeCommand
		}
		out.Restore = &c
	}
	if overlay.Parity != nil {
		c := RawParityConfig{}
		if r.Parity != nil {
			c = *r.Parity
		}
		c.Threshold = pick(c.Threshold, overlay.Parity.Threshold)
		c.MaxEdge = pick(c.MaxEdge, overlay.Parity.MaxEdge)
		out.Parity = &c
	}
	if overlay.Helper != nil {
		c := RawHelperConfig{}
		if r.Helper != nil {
			c = *r.Helper
		}
		c.TimeoutMS = pick(c.TimeoutMS, overlay.Helper.TimeoutMS)
		out.Helper = &c
	}
	if overlay.Logging != nil {
		c := RawLoggingConfig{}
		if r.Logging != nil {
			c = *r.Logging
		}
		c.Level = pick(c.Level, overlay.Logging.Level)
		c.Format = pick(c.Format, overlay.Logging.Format)
		out.Logging = &c
	}
	if len(overlay.Browsers) > 0 {
		browsers := make(map[string]BrowserConfig, len(r.Browsers)+len(overlay.Browsers))
		for name, b := range r.Browsers {
			browsers[name] = b
		}
		for name, b := range overlay.Browsers {
			browsers[name] = b
		}
		out.Browsers = browsers
	}
	return out
}
