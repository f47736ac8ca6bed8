package config

import (
	"fmt"
	"sort"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig fills the defaults with every value raw sets.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	setIf(&cfg.Display, raw.Display)
	setIf(&cfg.XAuthority, raw.XAuthority)

	if c := raw.Capture; c != nil {
		setIf(&cfg.Capture.TimeoutMS, c.TimeoutMS)
		setIf(&cfg.Capture.SettleMS, c.SettleMS)
		setIf(&cfg.Capture.Format, c.Format)
		setIf(&cfg.Capture.Quality, c.Quality)
		setIf(&cfg.Capture.DiagnosticsDir, c.DiagnosticsDir)
		cfg.Capture.Format = strings.ToLower(strings.TrimSpace(cfg.Capture.Format))
	}
	if r := raw.Restore; r != nil {
		setIf(&cfg.Restore.Enabled, r.Enabled)
		setIf(&cfg.Restore.HardReattach, r.HardReattach)
		setIf(&cfg.Restore.SpaceNudge, r.SpaceNudge)
		setIf(&cfg.Restore.VerifyAttempts, r.VerifyAttempts)
		setIf(&cfg.Restore.VerifyDelayMS, r.VerifyDelayMS)
		setIf(&cfg.Restore.TransitionMaxSteps, r.TransitionMaxSteps)
		if r.NudgeCommand != nil {
			cfg.Restore.NudgeCommand = append([]string(nil), r.NudgeCommand...)
		}
	}
	if p := raw.Parity; p != nil {
		setIf(&cfg.Parity.Threshold, p.Threshold)
		setIf(&cfg.Parity.MaxEdge, p.MaxEdge)
	}
	if h := raw.Helper; h != nil {
		setIf(&cfg.Helper.TimeoutMS, h.TimeoutMS)
	}
	if l := raw.Logging; l != nil {
		setIf(&cfg.Logging.Level, l.Level)
		setIf(&cfg.Logging.Format, l.Format)
	}
	for name, b := range raw.Browsers {
		cfg.Browsers[name] = b
	}
	return cfg
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
