package automation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/quietwin/internal/capture"
	"github.com/1broseidon/quietwin/internal/config"
	"github.com/1broseidon/quietwin/internal/match"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/platform/platformtest"
	"github.com/1broseidon/quietwin/internal/tabs"
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

func wid(id platform.WindowID) *platform.WindowID { return &id }

func TestCapture_DefaultsFromConfig(t *testing.T) {
	f := fixture()
	cfg := testConfig(t)
	cfg.Capture.Format = "jpeg"

	res, err := New(f, cfg, nil).Capture(context.Background(), CaptureRequest{
		Selectors: match.Selectors{WindowID: wid(41)},
	})
	require.NoError(t, err)
	assert.Equal(t, "jpeg", res.Format)
	assert.Equal(t, platform.WindowID(41), res.Window.ID)
	assert.Equal(t, 320, res.Width)
	assert.True(t, res.RestoreVerified)
}

func TestCapture_UsageErrors(t *testing.T) {
	svc := New(fixture(), testConfig(t), nil)
	ctx := context.Background()
	neg := -1

	cases := []CaptureRequest{
		{},
		{Selectors: match.Selectors{App: "firefox"}, Format: "bmp"},
		{Selectors: match.Selectors{App: "firefox"}, Quality: 101},
		{Selectors: match.Selectors{App: "firefox"}, Crop: &capture.Crop{Width: -1}},
		{Selectors: match.Selectors{App: "firefox"}, Threshold: 2},
		{Selectors: match.Selectors{PID: &neg}},
		{Selectors: match.Selectors{App: "firefox"}, Wait: -1},
		{Selectors: match.Selectors{App: "firefox"}, Tab: &tabs.Selection{}},
		{Selectors: match.Selectors{App: "firefox"}, Action: &platform.Action{Kind: platform.ActionType}},
	}
	for i, req := range cases {
		_, err := svc.Capture(ctx, req)
		assert.Equal(t, KindUsage, KindOf(err), "case %d: %v", i, err)
		assert.Equal(t, 2, ExitCode(err), "case %d", i)
	}
}

func TestCapture_TabWithoutEndpointIsUsage(t *testing.T) {
	_, err := New(fixture(), testConfig(t), nil).Capture(context.Background(), CaptureRequest{
		Selectors: match.Selectors{App: "firefox"},
		Tab:       &tabs.Selection{Title: "docs"},
	})
	assert.Equal(t, KindUsage, KindOf(err))
	assert.ErrorIs(t, err, tabs.ErrNoEndpoint)
}

func TestCapture_NotFound(t *testing.T) {
	_, err := New(fixture(), testConfig(t), nil).Capture(context.Background(), CaptureRequest{
		Selectors: match.Selectors{App: "safari", Title: "inbox"},
	})
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, 4, ExitCode(err))
	assert.Contains(t, err.Error(), `app="safari"`)
	assert.Contains(t, err.Error(), `title~"inbox"`)
}

func TestCapture_Permission(t *testing.T) {
	f := fixture()
	f.CaptureErr = errors.New("GetImage denied")

	_, err := New(f, testConfig(t), nil).Capture(context.Background(), CaptureRequest{
		Selectors: match.Selectors{App: "firefox"},
	})
	assert.Equal(t, KindPermission, KindOf(err))
	assert.Equal(t, 3, ExitCode(err))
	assert.Contains(t, err.Error(), "screen-capture permission required")
}

type brokenCapture struct{ *platformtest.Fake }

func (brokenCapture) CaptureWindow(context.Context, platform.WindowID) (image.Image, error) {
	return nil, errors.New("BadMatch")
}

func TestCapture_Failed(t *testing.T) {
	_, err := New(brokenCapture{fixture()}, testConfig(t), nil).Capture(context.Background(), CaptureRequest{
		Selectors: match.Selectors{App: "firefox"},
	})
	assert.Equal(t, KindCaptureFailed, KindOf(err))
	assert.Equal(t, 5, ExitCode(err))
	assert.Contains(t, err.Error(), "window 41")
}

func TestInjectFailureIsIO(t *testing.T) {
	f := fixture()
	f.InjectErr = errors.New("XTEST request failed")
	svc := New(f, testConfig(t), nil)
	ctx := context.Background()

	_, err := svc.Capture(ctx, CaptureRequest{
		Selectors: match.Selectors{App: "firefox"},
		Action:    &platform.Action{Kind: platform.ActionKey, Keys: "ctrl+l"},
	})
	assert.Equal(t, KindIO, KindOf(err), "capture: %v", err)
	assert.Equal(t, 6, ExitCode(err))
	assert.Contains(t, err.Error(), "XTEST request failed")

	_, err = svc.Input(ctx, InputRequest{
		Selectors: match.Selectors{App: "firefox"},
		Action:    platform.Action{Kind: platform.ActionType, Text: "x"},
	})
	assert.Equal(t, KindIO, KindOf(err), "input: %v", err)
	assert.Equal(t, platform.WindowID(1), f.Focused)
}

func TestInput(t *testing.T) {
	f := fixture()
	svc := New(f, testConfig(t), nil)

	res, err := svc.Input(context.Background(), InputRequest{
		Selectors: match.Selectors{App: "firefox"},
		Action:    platform.Action{Kind: platform.ActionScroll, DY: -2},
	})
	require.NoError(t, err)
	assert.Equal(t, "scroll(dx=0,dy=-2)", res.Action)
	assert.True(t, res.RestoreAttempted)
	assert.True(t, res.RestoreVerified)

	_, err = svc.Input(context.Background(), InputRequest{
		Selectors: match.Selectors{App: "firefox"},
		Action:    platform.Action{Kind: platform.ActionClick, X: -3},
	})
	assert.Equal(t, KindUsage, KindOf(err))

	f.InputErr = errors.New("no XTEST")
	_, err = svc.Input(context.Background(), InputRequest{
		Selectors: match.Selectors{App: "firefox"},
		Action:    platform.Action{Kind: platform.ActionMove},
	})
	assert.Equal(t, KindPermission, KindOf(err))
	assert.Contains(t, err.Error(), "input permission required")
}

func TestPermissions(t *testing.T) {
	f := fixture()
	f.InputErr = errors.New("no XTEST")

	p := New(f, testConfig(t), nil).Permissions(context.Background())
	assert.True(t, p.Accessibility.Granted)
	assert.True(t, p.ScreenCapture.Granted)
	assert.False(t, p.Input.Granted)
	assert.Equal(t, "no XTEST", p.Input.Error)
	assert.NotEmpty(t, p.Input.Hint)
	assert.False(t, p.Desktops.Granted)
	assert.False(t, p.All())

	f.InputErr = nil
	f.Desk = platformtest.NewDesktops(2, "DP-1")
	p = New(f, testConfig(t), nil).Permissions(context.Background())
	assert.True(t, p.All())
}

func TestWindows(t *testing.T) {
	f := fixture()
	f.AddWindow(platform.Window{ID: 90, PID: 30, OwnerName: "Panel", Layer: platform.LayerMenuBar,
		Bounds: platform.Rect{Width: 1920, Height: 24}, Alpha: 1, OnScreen: true})
	svc := New(f, testConfig(t), nil)
	ctx := context.Background()

	user, err := svc.Windows(ctx, WindowFilter{})
	require.NoError(t, err)
	assert.Len(t, user, 2)

	all, err := svc.Windows(ctx, WindowFilter{All: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ff, err := svc.Windows(ctx, WindowFilter{App: "FIRE"})
	require.NoError(t, err)
	require.Len(t, ff, 1)
	assert.Equal(t, platform.WindowID(41), ff[0].ID)

	none, err := svc.Windows(ctx, WindowFilter{Title: "nothing like this"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestResolve(t *testing.T) {
	svc := New(fixture(), testConfig(t), nil)
	ctx := context.Background()

	w, err := svc.Resolve(ctx, match.Selectors{App: "firefox"})
	require.NoError(t, err)
	assert.Equal(t, platform.WindowID(41), w.ID)

	_, err = svc.Resolve(ctx, match.Selectors{})
	assert.Equal(t, KindUsage, KindOf(err))

	_, err = svc.Resolve(ctx, match.Selectors{Title: "absent"})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestError_DistinctMessages(t *testing.T) {
	base := errors.New("x")
	seen := map[string]Kind{}
	for _, k := range []Kind{KindUsage, KindPermission, KindNotFound, KindCaptureFailed, KindIO} {
		msg := (&Error{Kind: k, Op: OpCapture, Err: base}).Error()
		prev, dup := seen[msg]
		assert.False(t, dup, "%s renders like %s", k, prev)
		seen[msg] = k
	}
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 6, ExitCode(fmt.Errorf("wrapped: %w", &Error{Kind: KindIO, Op: OpInput, Err: base})))
}

func TestParseWindowID(t *testing.T) {
	id, err := ParseWindowID("0x3c00007")
	require.NoError(t, err)
	assert.Equal(t, platform.WindowID(0x3c00007), id)

	id, err = ParseWindowID("41")
	require.NoError(t, err)
	assert.Equal(t, platform.WindowID(41), id)

	for _, bad := range []string{"", "0", "abc", "0xzz", "99999999999"} {
		_, err := ParseWindowID(bad)
		assert.Error(t, err, bad)
	}
}
