package config

import (
	"fmt"
	"strings"
)

// settings maps every scalar YAML path to its effective value.
var settings = map[string]func(*Config) any{
	"display":                      func(c *Config) any { return c.Display },
	"xauthority":                   func(c *Config) any { return c.XAuthority },
	"capture.timeout_ms":           func(c *Config) any { return c.Capture.TimeoutMS },
	"capture.settle_ms":            func(c *Config) any { return c.Capture.SettleMS },
	"capture.format":               func(c *Config) any { return c.Capture.Format },
	"capture.quality":              func(c *Config) any { return c.Capture.Quality },
	"capture.diagnostics_dir":      func(c *Config) any { return c.Capture.DiagnosticsDir },
	"restore.enabled":              func(c *Config) any { return c.Restore.Enabled },
	"restore.hard_reattach":        func(c *Config) any { return c.Restore.HardReattach },
	"restore.space_nudge":          func(c *Config) any { return c.Restore.SpaceNudge },
	"restore.verify_attempts":      func(c *Config) any { return c.Restore.VerifyAttempts },
	"restore.verify_delay_ms":      func(c *Config) any { return c.Restore.VerifyDelayMS },
	"restore.transition_max_steps": func(c *Config) any { return c.Restore.TransitionMaxSteps },
	"restore.nudge_command":        func(c *Config) any { return c.Restore.NudgeCommand },
	"parity.threshold":             func(c *Config) any { return c.Parity.Threshold },
	"parity.max_edge":              func(c *Config) any { return c.Parity.MaxEdge },
	"helper.timeout_ms":            func(c *Config) any { return c.Helper.TimeoutMS },
	"logging.level":                func(c *Config) any { return c.Logging.Level },
	"logging.format":               func(c *Config) any { return c.Logging.Format },
}

// Paths lists every path Explain accepts, browsers excluded.
func Paths() []string {
	return sortedKeys(settings)
}

// Explain returns the effective value at the given YAML path and where it
// came from. Browser entries are addressed as browsers.<app>.debugger_url
// and browsers.<app>.profiles.<name>.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	if get, ok := settings[path]; ok {
		return get(cfg), nil
	}
	parts := strings.Split(path, ".")
	if parts[0] != "browsers" || len(parts) < 3 {
		return nil, fmt.Errorf("unknown path: %s", path)
	}
	b, ok := cfg.Browsers[parts[1]]
	if !ok {
		return nil, fmt.Errorf("unknown browser: %s", parts[1])
	}
	switch {
	case len(parts) == 3 && parts[2] == "debugger_url":
		return b.DebuggerURL, nil
	case len(parts) == 4 && parts[2] == "profiles":
		u, ok := b.Profiles[parts[3]]
		if !ok {
			return nil, fmt.Errorf("unknown profile: %s", parts[3])
		}
		return u, nil
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
