package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/automation"
	"github.com/1broseidon/quietwin/internal/config"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/platform/platformtest"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func fixture() *platformtest.Fake {
	f := platformtest.New()
	f.AddWindow(platform.Window{ID: 1, PID: 10, OwnerName: "Editor", Title: "main.go",
		Bounds: platform.Rect{Width: 640, Height: 480}, Alpha: 1, OnScreen: true})
	f.AddWindow(platform.Window{ID: 41, PID: 20, OwnerName: "Firefox", Title: "Docs",
		Bounds: platform.Rect{Width: 320, Height: 200}, Alpha: 1, OnScreen: true})
	f.Focus(1)
	return f
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "capture:\n  settle_ms: 0\n  diagnostics_dir: " + filepath.Join(dir, "diag") + "\nrestore:\n  verify_delay_ms: 0\nlogging:\n  level: error\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

type invocation struct {
	code   int
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func invoke(t *testing.T, f *platformtest.Fake, args ...string) invocation {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.open = func(_ context.Context, cfg *config.Config, log *zap.Logger) (*automation.Service, error) {
		return automation.New(f, cfg, log), nil
	}
	args = append([]string{"--config", writeTestConfig(t)}, args...)
	code := run(a, args)
	return invocation{code: code, stdout: &stdout, stderr: &stderr}
}

func TestWindowsJSON(t *testing.T) {
	inv := invoke(t, fixture(), "windows")
	if inv.code != 0 {
		t.Fatalf("exit %d: %s", inv.code, inv.stdout)
	}
	var windows []platform.Window
	if err := json.Unmarshal(inv.stdout.Bytes(), &windows); err != nil {
		t.Fatalf("decode: %v\n%s", err, inv.stdout)
	}
	if len(windows) != 2 || windows[0].ID != 1 {
		t.Fatalf("windows = %+v", windows)
	}
}

func TestCaptureToStdout(t *testing.T) {
	f := fixture()
	inv := invoke(t, f, "capture", "--app", "firefox")
	if inv.code != 0 {
		t.Fatalf("exit %d: %s", inv.code, inv.stdout)
	}
	if !bytes.HasPrefix(inv.stdout.Bytes(), pngMagic) {
		t.Fatalf("stdout is not a PNG (%d bytes)", inv.stdout.Len())
	}
	if f.Focused != 1 {
		t.Fatalf("focus moved to %d", f.Focused)
	}
}

func TestCaptureToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "shot.png")
	inv := invoke(t, fixture(), "capture", "--id", "41", "--crop", "0,0,10,10", "-o", out)
	if inv.code != 0 {
		t.Fatalf("exit %d: %s", inv.code, inv.stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Fatal("output file is not a PNG")
	}

	var report struct {
		Path   string          `json:"path"`
		Window platform.Window `json:"window"`
		Width  int             `json:"width"`
		Method string          `json:"method"`
	}
	if err := json.Unmarshal(inv.stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, inv.stdout)
	}
	if report.Path != out || report.Window.ID != 41 || report.Width != 10 || report.Method == "" {
		t.Fatalf("report = %+v", report)
	}
}

func TestCaptureWithAction(t *testing.T) {
	f := fixture()
	inv := invoke(t, f, "capture", "--title", "docs", "--action", "key:ctrl+l")
	if inv.code != 0 {
		t.Fatalf("exit %d: %s", inv.code, inv.stdout)
	}
	if len(f.Injected) != 1 || f.Injected[0].Keys != "ctrl+l" {
		t.Fatalf("injected = %+v", f.Injected)
	}
}

func TestInputType(t *testing.T) {
	f := fixture()
	inv := invoke(t, f, "input", "type", "hello", "--app", "firefox")
	if inv.code != 0 {
		t.Fatalf("exit %d: %s", inv.code, inv.stdout)
	}
	var res struct {
		Window          platform.Window `json:"window"`
		Action          string          `json:"action"`
		RestoreVerified bool            `json:"restore_verified"`
	}
	if err := json.Unmarshal(inv.stdout.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, inv.stdout)
	}
	if res.Window.ID != 41 || res.Action != "type(5 chars)" || !res.RestoreVerified {
		t.Fatalf("result = %+v", res)
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		kind string
	}{
		{"no selector", []string{"capture"}, 2, "usage"},
		{"unknown flag", []string{"capture", "--bogus"}, 2, "usage"},
		{"bad crop", []string{"capture", "--app", "firefox", "--crop", "1,2"}, 2, "usage"},
		{"bad action", []string{"capture", "--app", "firefox", "--action", "wiggle:1"}, 2, "usage"},
		{"missing args", []string{"input", "click", "1", "--app", "firefox"}, 2, "usage"},
		{"non-numeric", []string{"input", "scroll", "a", "b", "--app", "firefox"}, 2, "usage"},
		{"unknown command", []string{"frobnicate"}, 2, "usage"},
		{"not found", []string{"capture", "--title", "absent"}, 4, "not_found"},
		{"negative tab index", []string{"capture", "--app", "firefox", "--tab-index", "-1"}, 2, "usage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := invoke(t, fixture(), tt.args...)
			if inv.code != tt.code {
				t.Fatalf("exit %d, want %d: %s", inv.code, tt.code, inv.stdout)
			}
			var body map[string]string
			if err := json.Unmarshal(inv.stdout.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v\n%s", err, inv.stdout)
			}
			if body["status"] != "error" || body["kind"] != tt.kind {
				t.Fatalf("body = %v", body)
			}
		})
	}
}

func TestCapturePermissionExitCode(t *testing.T) {
	f := fixture()
	f.CaptureErr = errors.New("GetImage refused")
	inv := invoke(t, f, "capture", "--app", "firefox")
	if inv.code != 3 {
		t.Fatalf("exit %d, want 3: %s", inv.code, inv.stdout)
	}
	if !strings.Contains(inv.stdout.String(), "screen-capture") {
		t.Fatalf("error should name the capability: %s", inv.stdout)
	}
}

func TestPermissionsWithoutDisplay(t *testing.T) {
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.open = func(context.Context, *config.Config, *zap.Logger) (*automation.Service, error) {
		return nil, errors.New("no X display found")
	}
	code := run(a, []string{"--config", writeTestConfig(t), "permissions"})
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stdout.String())
	}
	var perms automation.Permissions
	if err := json.Unmarshal(stdout.Bytes(), &perms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if perms.All() || perms.Input.Granted {
		t.Fatalf("expected nothing granted: %+v", perms)
	}
}

func TestConfigCommands(t *testing.T) {
	path := writeTestConfig(t)

	var stdout, stderr bytes.Buffer
	if code := run(newApp(&stdout, &stderr), []string{"--config", path, "config", "path"}); code != 0 {
		t.Fatalf("config path exit %d", code)
	}
	if strings.TrimSpace(stdout.String()) != path {
		t.Fatalf("config path = %q, want %q", stdout.String(), path)
	}

	stdout.Reset()
	if code := run(newApp(&stdout, &stderr), []string{"--config", path, "config", "explain", "capture.settle_ms"}); code != 0 {
		t.Fatalf("config explain exit %d", code)
	}
	if !strings.Contains(stdout.String(), "source: file:"+path+":2:") {
		t.Fatalf("explain output:\n%s", stdout.String())
	}

	stdout.Reset()
	if code := run(newApp(&stdout, &stderr), []string{"--config", path, "config", "explain", "capture.nope"}); code != 2 {
		t.Fatalf("unknown path exit %d, want 2", code)
	}
}

func TestConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("capture:\n  colour: red\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	code := run(newApp(&stdout, &stderr), []string{"--config", path, "config", "validate"})
	if code != 2 {
		t.Fatalf("exit %d, want 2", code)
	}
	if !strings.Contains(stdout.String(), "colour") {
		t.Fatalf("error should name the key: %s", stdout.String())
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    platform.Action
		wantErr bool
	}{
		{in: "click:10,20", want: platform.Action{Kind: platform.ActionClick, X: 10, Y: 20}},
		{in: "click:1,2,3,2", want: platform.Action{Kind: platform.ActionClick, X: 1, Y: 2, Button: 3, Count: 2}},
		{in: "move:5,6", want: platform.Action{Kind: platform.ActionMove, X: 5, Y: 6}},
		{in: "type:a:b", want: platform.Action{Kind: platform.ActionType, Text: "a:b"}},
		{in: "KEY:ctrl+t", want: platform.Action{Kind: platform.ActionKey, Keys: "ctrl+t"}},
		{in: "scroll:0,-3", want: platform.Action{Kind: platform.ActionScroll, DY: -3}},
		{in: "click", wantErr: true},
		{in: "click:1", wantErr: true},
		{in: "click:1,2,3,4,5", wantErr: true},
		{in: "scroll:0,0", wantErr: true},
		{in: "type:", wantErr: true},
		{in: "hover:1,2", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAction(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseAction(%q) = %+v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAction(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAction(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseCrop(t *testing.T) {
	c, err := parseCrop("1, 2, 30, 40")
	if err != nil {
		t.Fatalf("parseCrop: %v", err)
	}
	if c.X != 1 || c.Y != 2 || c.Width != 30 || c.Height != 40 {
		t.Fatalf("crop = %+v", c)
	}
	if _, err := parseCrop("1,2,3"); err == nil {
		t.Fatal("expected error for three values")
	}
}
