package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Capture.Timeout() != 800*time.Millisecond {
		t.Fatalf("expected 800ms capture timeout, got %s", cfg.Capture.Timeout())
	}
	if cfg.Restore.SpaceNudge {
		t.Fatalf("expected space nudge off by default")
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Parity.Threshold != 0.05 {
		t.Fatalf("expected default threshold, got %v", res.Config.Parity.Threshold)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Logging.Level != "warn" {
		t.Fatalf("expected default level warn, got %q", res.Config.Logging.Level)
	}
}

func TestLoadFromPath_Overrides(t *testing.T) {
	data := strings.Join([]string{
		`display: ":1"`,
		"capture:",
		"  format: JPEG",
		"  quality: 75",
		"restore:",
		"  space_nudge: true",
		"  nudge_command: [xdotool, key, \"ctrl+alt+{direction}\"]",
		"parity:",
		"  threshold: 0.1",
		"browsers:",
		"  Chromium:",
		"    debugger_url: http://127.0.0.1:9222",
		"    profiles:",
		"      work: http://127.0.0.1:9333",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Display != ":1" {
		t.Fatalf("expected display :1, got %q", cfg.Display)
	}
	if cfg.Capture.Format != "jpeg" || cfg.Capture.Quality != 75 {
		t.Fatalf("unexpected capture config: %+v", cfg.Capture)
	}
	if cfg.Capture.TimeoutMS != 800 {
		t.Fatalf("expected untouched timeout to keep default, got %d", cfg.Capture.TimeoutMS)
	}
	if !cfg.Restore.SpaceNudge || !cfg.Restore.Enabled {
		t.Fatalf("unexpected restore config: %+v", cfg.Restore)
	}
	if got := strings.Join(cfg.Restore.NudgeCommand, " "); got != "xdotool key ctrl+alt+{direction}" {
		t.Fatalf("unexpected nudge command %q", got)
	}
	if cfg.Browsers["Chromium"].Profiles["work"] != "http://127.0.0.1:9333" {
		t.Fatalf("unexpected browsers: %+v", cfg.Browsers)
	}

	val, src, err := Explain(res, "parity.threshold")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val.(float64) != 0.1 {
		t.Fatalf("expected 0.1, got %v", val)
	}
	if src.Kind != SourceFile || src.Line != 9 {
		t.Fatalf("expected file source at line 9, got %+v", src)
	}

	_, src, err = Explain(res, "helper.timeout_ms")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if src.Kind != SourceDefault {
		t.Fatalf("expected default source, got %+v", src)
	}

	val, _, err = Explain(res, "browsers.Chromium.profiles.work")
	if err != nil || val.(string) != "http://127.0.0.1:9333" {
		t.Fatalf("explain browser profile: %v %v", val, err)
	}
	if _, _, err := Explain(res, "capture.nope"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}

func TestLoadFromPath_UnknownKeyRejectedWithLine(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "capture:\n  format: png\n  colour: red\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
	if !strings.Contains(err.Error(), "line 3") || !strings.Contains(err.Error(), "colour") {
		t.Fatalf("expected error naming line 3 and the key, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorCarriesSource(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "logging:\n  level: loud\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "logging.level" || verr.Source.Line != 2 {
		t.Fatalf("unexpected validation error %+v", verr)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected file name in %q", err.Error())
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"format", func(c *Config) { c.Capture.Format = "gif" }, "capture.format"},
		{"quality", func(c *Config) { c.Capture.Quality = 0 }, "capture.quality"},
		{"timeout", func(c *Config) { c.Capture.TimeoutMS = 0 }, "capture.timeout_ms"},
		{"attempts", func(c *Config) { c.Restore.VerifyAttempts = 0 }, "restore.verify_attempts"},
		{"steps", func(c *Config) { c.Restore.TransitionMaxSteps = 0 }, "restore.transition_max_steps"},
		{"nudge", func(c *Config) { c.Restore.NudgeCommand = []string{"xdotool", " "} }, "restore.nudge_command"},
		{"threshold", func(c *Config) { c.Parity.Threshold = 1.5 }, "parity.threshold"},
		{"max edge", func(c *Config) { c.Parity.MaxEdge = 4 }, "parity.max_edge"},
		{"helper", func(c *Config) { c.Helper.TimeoutMS = -1 }, "helper.timeout_ms"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"browser empty", func(c *Config) { c.Browsers["x"] = BrowserConfig{} }, "browsers.x"},
		{"browser scheme", func(c *Config) { c.Browsers["x"] = BrowserConfig{DebuggerURL: "ftp://h"} }, "browsers.x.debugger_url"},
		{"profile host", func(c *Config) {
			c.Browsers["x"] = BrowserConfig{Profiles: map[string]string{"p": "http://"}}
		}, "browsers.x.profiles.p"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tc.path {
				t.Fatalf("expected path %q, got %q", tc.path, verr.Path)
			}
		})
	}
}

func TestLoadFromPath_Includes(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "conf.d"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, filepath.Join(dir, "conf.d"), "10-browsers.yaml", "browsers:\n  firefox:\n    debugger_url: ws://127.0.0.1:6000\n")
	writeConfig(t, filepath.Join(dir, "conf.d"), "20-capture.yaml", "capture:\n  quality: 50\n  settle_ms: 100\n")
	path := writeConfig(t, dir, "config.yaml", "include: conf.d\ncapture:\n  quality: 60\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Capture.Quality != 60 {
		t.Fatalf("expected the including file to win, got %d", res.Config.Capture.Quality)
	}
	if res.Config.Capture.SettleMS != 100 {
		t.Fatalf("expected included settle_ms, got %d", res.Config.Capture.SettleMS)
	}
	if _, ok := res.Config.Browsers["firefox"]; !ok {
		t.Fatalf("expected included browser")
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "capture:\n  quality: 80\n")

	got := make(chan *LoadResult, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := Watch(ctx, path, nil, func(res *LoadResult) { got <- res })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	writeConfig(t, dir, "other.yaml", "capture:\n  quality: 10\n")
	writeConfig(t, dir, "config.yaml", "capture:\n  quality: 42\n")

	select {
	case res := <-got:
		if res.Config.Capture.Quality != 42 {
			t.Fatalf("expected reloaded quality 42, got %d", res.Config.Capture.Quality)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload observed")
	}
}

func TestWatch_InvalidFileKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "capture:\n  quality: 80\n")

	got := make(chan *LoadResult, 4)
	w, err := Watch(context.Background(), path, nil, func(res *LoadResult) { got <- res })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	writeConfig(t, dir, "config.yaml", "capture:\n  quality: 500\n")
	select {
	case res := <-got:
		t.Fatalf("unexpected reload: %+v", res.Config.Capture)
	case <-time.After(3 * reloadDebounce):
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
