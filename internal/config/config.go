package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CaptureConfig tunes the capture chain.
type CaptureConfig struct {
	TimeoutMS int    `yaml:"timeout_ms"`
	SettleMS  int    `yaml:"settle_ms"`
	Format    string `yaml:"format"`
	Quality   int    `yaml:"quality"`
	// DiagnosticsDir overrides where parity screenshots are written
	// (default: $XDG_RUNTIME_DIR/quietwin/diagnostics).
	DiagnosticsDir string `yaml:"diagnostics_dir,omitempty"`
}

// RestoreConfig tunes the restore protocol.
type RestoreConfig struct {
	Enabled            bool     `yaml:"enabled"`
	HardReattach       bool     `yaml:"hard_reattach"`
	SpaceNudge         bool     `yaml:"space_nudge"`
	VerifyAttempts     int      `yaml:"verify_attempts"`
	VerifyDelayMS      int      `yaml:"verify_delay_ms"`
	TransitionMaxSteps int      `yaml:"transition_max_steps"`
	NudgeCommand       []string `yaml:"nudge_command,omitempty"`
}

type ParityConfig struct {
	Threshold float64 `yaml:"threshold"`
	MaxEdge   int     `yaml:"max_edge"`
}

type HelperConfig struct {
	TimeoutMS int `yaml:"timeout_ms"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`
	// Format: console or json
	Format string `yaml:"format"`
}

// BrowserConfig points at a browser's DevTools endpoint, optionally per
// profile.
type BrowserConfig struct {
	DebuggerURL string            `yaml:"debugger_url,omitempty"`
	Profiles    map[string]string `yaml:"profiles,omitempty"`
}

// Config is the effective configuration.
type Config struct {
	// Display and XAuthority override the X11 environment.
	Display    string `yaml:"display,omitempty"`
	XAuthority string `yaml:"xauthority,omitempty"`

	Capture  CaptureConfig            `yaml:"capture"`
	Restore  RestoreConfig            `yaml:"restore"`
	Parity   ParityConfig             `yaml:"parity"`
	Helper   HelperConfig             `yaml:"helper"`
	Logging  LoggingConfig            `yaml:"logging"`
	Browsers map[string]BrowserConfig `yaml:"browsers,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			TimeoutMS: 800,
			SettleMS:  350,
			Format:    "png",
			Quality:   90,
		},
		Restore: RestoreConfig{
			Enabled:            true,
			HardReattach:       true,
			VerifyAttempts:     5,
			VerifyDelayMS:      120,
			TransitionMaxSteps: 8,
		},
		Parity: ParityConfig{
			Threshold: 0.05,
			MaxEdge:   320,
		},
		Helper:   HelperConfig{TimeoutMS: 3000},
		Logging:  LoggingConfig{Level: "warn", Format: "console"},
		Browsers: map[string]BrowserConfig{},
	}
}

func DefaultConfigPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return filepath.Join(dir, "quietwin", "config.yaml"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "quietwin", "config.yaml"), nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c CaptureConfig) Timeout() time.Duration     { return ms(c.TimeoutMS) }
func (c CaptureConfig) Settle() time.Duration      { return ms(c.SettleMS) }
func (c RestoreConfig) VerifyDelay() time.Duration { return ms(c.VerifyDelayMS) }
func (c HelperConfig) Timeout() time.Duration      { return ms(c.TimeoutMS) }

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Capture.Format) {
	case "png", "jpeg", "jpg":
	default:
		return &ValidationError{Path: "capture.format", Err: fmt.Errorf("format must be one of: png, jpeg")}
	}
	if c.Capture.TimeoutMS <= 0 {
		return &ValidationError{Path: "capture.timeout_ms", Err: fmt.Errorf("timeout_ms must be > 0")}
	}
	if c.Capture.SettleMS < 0 {
		return &ValidationError{Path: "capture.settle_ms", Err: fmt.Errorf("settle_ms must be >= 0")}
	}
	if c.Capture.Quality < 1 || c.Capture.Quality > 100 {
		return &ValidationError{Path: "capture.quality", Err: fmt.Errorf("quality must be between 1 and 100")}
	}
	if c.Restore.VerifyAttempts < 1 {
		return &ValidationError{Path: "restore.verify_attempts", Err: fmt.Errorf("verify_attempts must be >= 1")}
	}
	if c.Restore.VerifyDelayMS < 0 {
		return &ValidationError{Path: "restore.verify_delay_ms", Err: fmt.Errorf("verify_delay_ms must be >= 0")}
	}
	if c.Restore.TransitionMaxSteps < 1 {
		return &ValidationError{Path: "restore.transition_max_steps", Err: fmt.Errorf("transition_max_steps must be >= 1")}
	}
	for i, arg := range c.Restore.NudgeCommand {
		if strings.TrimSpace(arg) == "" {
			return &ValidationError{Path: "restore.nudge_command", Err: fmt.Errorf("argument %d is empty", i)}
		}
	}
	if c.Parity.Threshold <= 0 || c.Parity.Threshold > 1 {
		return &ValidationError{Path: "parity.threshold", Err: fmt.Errorf("threshold must be in (0, 1]")}
	}
	if c.Parity.MaxEdge < 16 {
		return &ValidationError{Path: "parity.max_edge", Err: fmt.Errorf("max_edge must be >= 16")}
	}
	if c.Helper.TimeoutMS <= 0 {
		return &ValidationError{Path: "helper.timeout_ms", Err: fmt.Errorf("timeout_ms must be > 0")}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("format must be one of: console, json")}
	}
	for _, name := range sortedKeys(c.Browsers) {
		b := c.Browsers[name]
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Path: "browsers", Err: fmt.Errorf("browsers contains an empty app name")}
		}
		if b.DebuggerURL == "" && len(b.Profiles) == 0 {
			return &ValidationError{Path: "browsers." + name, Err: fmt.Errorf("debugger_url or profiles is required")}
		}
		if b.DebuggerURL != "" {
			if err := validateDebuggerURL(b.DebuggerURL); err != nil {
				return &ValidationError{Path: "browsers." + name + ".debugger_url", Err: err}
			}
		}
		for _, profile := range sortedKeys(b.Profiles) {
			if err := validateDebuggerURL(b.Profiles[profile]); err != nil {
				return &ValidationError{Path: "browsers." + name + ".profiles." + profile, Err: err}
			}
		}
	}
	return nil
}

func validateDebuggerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("url scheme must be http, https, ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
