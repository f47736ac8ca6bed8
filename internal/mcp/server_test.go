package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/1broseidon/quietwin/internal/automation"
	"github.com/1broseidon/quietwin/internal/config"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/platform/platformtest"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Capture.SettleMS = 0
	cfg.Restore.VerifyDelayMS = 0
	cfg.Capture.DiagnosticsDir = t.TempDir()
	return cfg
}

func fixture() *platformtest.Fake {
	f := platformtest.New()
	f.AddWindow(platform.Window{ID: 1, PID: 10, OwnerName: "Editor", Title: "main.go",
		Bounds: platform.Rect{Width: 640, Height: 480}, Alpha: 1, OnScreen: true})
	f.AddWindow(platform.Window{ID: 41, PID: 20, OwnerName: "Firefox", Title: "Docs",
		Bounds: platform.Rect{Width: 320, Height: 200}, Alpha: 1, OnScreen: true})
	f.Focus(1)
	return f
}

// newTestServer returns a server over f and a counter of Open calls.
func newTestServer(t *testing.T, f *platformtest.Fake) (*Server, *int) {
	t.Helper()
	opens := 0
	s := NewServer(testConfig(t), zap.NewNop(), Options{
		Open: func(_ context.Context, cfg *config.Config, log *zap.Logger) (*automation.Service, error) {
			opens++
			return automation.New(f, cfg, log), nil
		},
	})
	t.Cleanup(func() { s.Close() })
	return s, &opens
}

func TestCaptureWindow(t *testing.T) {
	f := fixture()
	s, _ := newTestServer(t, f)

	res, out, err := s.handleCaptureWindow(context.Background(), nil, CaptureWindowInput{
		Target: TargetInput{App: "firefox"},
		Crop:   &CropInput{Width: 100, Height: 50},
	})
	if err != nil {
		t.Fatalf("capture_window: %v", err)
	}
	if out.Window.ID != 41 || out.Width != 100 || out.Height != 50 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Format != "png" || !out.RestoreVerified {
		t.Fatalf("format=%q restore_verified=%t", out.Format, out.RestoreVerified)
	}
	if len(res.Content) != 2 {
		t.Fatalf("content len = %d, want 2", len(res.Content))
	}
	img, ok := res.Content[0].(*mcpsdk.ImageContent)
	if !ok {
		t.Fatalf("first content is %T, want *ImageContent", res.Content[0])
	}
	if img.MIMEType != "image/png" || len(img.Data) != out.Bytes || out.Bytes == 0 {
		t.Fatalf("image content mime=%q len=%d bytes=%d", img.MIMEType, len(img.Data), out.Bytes)
	}
	if f.Focused != 1 {
		t.Fatalf("focus moved to %d", f.Focused)
	}
}

func TestCaptureWindow_WithActionAndStrict(t *testing.T) {
	f := fixture()
	s, _ := newTestServer(t, f)

	_, out, err := s.handleCaptureWindow(context.Background(), nil, CaptureWindowInput{
		Target: TargetInput{WindowID: "0x29"},
		Format: "jpeg",
		Action: &ActionInput{Kind: "click", X: 5, Y: 5},
		Strict: true,
	})
	if err != nil {
		t.Fatalf("capture_window: %v", err)
	}
	if out.Window.ID != 41 || out.Format != "jpeg" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Action == "" {
		t.Fatal("action echo missing")
	}
	if out.Parity == nil {
		t.Fatal("strict capture should carry a parity report")
	}
	if len(f.Injected) != 1 {
		t.Fatalf("injected %d actions, want 1", len(f.Injected))
	}
}

func TestCaptureWindow_Errors(t *testing.T) {
	s, _ := newTestServer(t, fixture())
	ctx := context.Background()

	tests := []struct {
		name string
		in   CaptureWindowInput
		kind automation.Kind
	}{
		{"no selector", CaptureWindowInput{}, automation.KindUsage},
		{"bad window id", CaptureWindowInput{Target: TargetInput{WindowID: "zz"}}, automation.KindUsage},
		{"negative wait", CaptureWindowInput{Target: TargetInput{App: "firefox", WaitMS: -1}}, automation.KindUsage},
		{"bad format", CaptureWindowInput{Target: TargetInput{App: "firefox"}, Format: "gif"}, automation.KindUsage},
		{"not found", CaptureWindowInput{Target: TargetInput{Title: "absent"}}, automation.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.handleCaptureWindow(ctx, nil, tt.in)
			if got := automation.KindOf(err); got != tt.kind {
				t.Fatalf("kind = %q, want %q (err: %v)", got, tt.kind, err)
			}
		})
	}
}

func TestSendInput(t *testing.T) {
	f := fixture()
	s, _ := newTestServer(t, f)

	disabled := false
	_, out, err := s.handleSendInput(context.Background(), nil, SendInputInput{
		Target:  TargetInput{Title: "docs"},
		Action:  ActionInput{Kind: "type", Text: "hello"},
		Restore: &RestoreInput{HardReattach: &disabled},
	})
	if err != nil {
		t.Fatalf("send_input: %v", err)
	}
	if out.Window.ID != 41 || !out.RestoreAttempted || !out.RestoreVerified {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(f.Injected) != 1 || f.Injected[0].Text != "hello" {
		t.Fatalf("injected = %+v", f.Injected)
	}
	if f.Focused != 1 {
		t.Fatalf("focus moved to %d", f.Focused)
	}
}

func TestSendInput_InvalidAction(t *testing.T) {
	s, _ := newTestServer(t, fixture())
	_, _, err := s.handleSendInput(context.Background(), nil, SendInputInput{
		Target: TargetInput{App: "firefox"},
		Action: ActionInput{Kind: "wiggle"},
	})
	if automation.KindOf(err) != automation.KindUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestCheckPermissions(t *testing.T) {
	f := fixture()
	f.Desk = platformtest.NewDesktops(2, "DP-1")
	s, _ := newTestServer(t, f)

	_, out, err := s.handleCheckPermissions(context.Background(), nil, CheckPermissionsInput{})
	if err != nil {
		t.Fatalf("check_permissions: %v", err)
	}
	if !out.AllGranted {
		t.Fatalf("expected all granted: %+v", out.Permissions)
	}
}

func TestCheckPermissions_OpenFailure(t *testing.T) {
	s := NewServer(testConfig(t), zap.NewNop(), Options{
		Open: func(context.Context, *config.Config, *zap.Logger) (*automation.Service, error) {
			return nil, errors.New("no X display found")
		},
	})

	_, out, err := s.handleCheckPermissions(context.Background(), nil, CheckPermissionsInput{})
	if err != nil {
		t.Fatalf("check_permissions should not fail: %v", err)
	}
	if out.AllGranted || out.Permissions.Accessibility.Granted {
		t.Fatalf("expected nothing granted: %+v", out)
	}
	if !strings.Contains(out.Permissions.ScreenCapture.Error, "no X display") {
		t.Fatalf("error not carried: %+v", out.Permissions.ScreenCapture)
	}
}

func TestListWindows(t *testing.T) {
	s, opens := newTestServer(t, fixture())
	ctx := context.Background()

	_, out, err := s.handleListWindows(ctx, nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	if len(out.Windows) != 2 || out.Windows[0].ID != 1 {
		t.Fatalf("windows = %+v", out.Windows)
	}

	_, out, err = s.handleListWindows(ctx, nil, ListWindowsInput{App: "fire"})
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	if len(out.Windows) != 1 || out.Windows[0].ID != 41 {
		t.Fatalf("filtered windows = %+v", out.Windows)
	}
	if *opens != 1 {
		t.Fatalf("service opened %d times, want 1", *opens)
	}
}

func TestReload_RebuildsServiceAndLevel(t *testing.T) {
	f := fixture()
	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	opens := 0
	s := NewServer(testConfig(t), zap.NewNop(), Options{
		Level: &level,
		Open: func(_ context.Context, cfg *config.Config, log *zap.Logger) (*automation.Service, error) {
			opens++
			return automation.New(f, cfg, log), nil
		},
	})
	defer s.Close()
	ctx := context.Background()

	if _, out, err := s.handleCaptureWindow(ctx, nil, CaptureWindowInput{Target: TargetInput{App: "firefox"}}); err != nil || out.Format != "png" {
		t.Fatalf("first capture: format=%q err=%v", out.Format, err)
	}

	next := testConfig(t)
	next.Capture.Format = "jpeg"
	next.Logging.Level = "debug"
	s.reload(&config.LoadResult{Config: next})

	if level.Level() != zapcore.DebugLevel {
		t.Fatalf("level = %v, want debug", level.Level())
	}
	_, out, err := s.handleCaptureWindow(ctx, nil, CaptureWindowInput{Target: TargetInput{App: "firefox"}})
	if err != nil {
		t.Fatalf("capture after reload: %v", err)
	}
	if out.Format != "jpeg" {
		t.Fatalf("format after reload = %q, want jpeg", out.Format)
	}
	if opens != 2 {
		t.Fatalf("service opened %d times, want 2", opens)
	}
}
