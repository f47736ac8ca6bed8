package input

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/quietwin/internal/match"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/platform/platformtest"
	"github.com/1broseidon/quietwin/internal/restore"
	"github.com/1broseidon/quietwin/internal/snapshot"
	"github.com/1broseidon/quietwin/internal/spaces"
	"github.com/1broseidon/quietwin/internal/tabs"
)

var tabsSelection = tabs.Selection{Title: "docs"}

func window(id platform.WindowID, pid int, owner, title string) platform.Window {
	return platform.Window{
		ID: id, PID: pid, OwnerName: owner, Title: title,
		Bounds: platform.Rect{Width: 800, Height: 600}, Alpha: 1, OnScreen: true,
	}
}

func newInjector(f *platformtest.Fake) *Injector {
	space := spaces.New(f.Desktops(), spaces.Options{}, nil)
	opts := restore.DefaultOptions()
	opts.Settle = 0
	opts.VerifyDelay = 0
	return NewInjector(f, snapshot.NewEngine(f, space, snapshot.Options{}, nil), nil, opts, nil)
}

func fixture() *platformtest.Fake {
	f := platformtest.New()
	f.AddWindow(window(1, 10, "Editor", "main.go"))
	f.AddWindow(window(2, 20, "Chat", "general"))
	f.Focus(1)
	return f
}

func TestRun_BackgroundWindow(t *testing.T) {
	ctx := context.Background()
	f := fixture()

	res, err := newInjector(f).Run(ctx, Request{
		Selectors: match.Selectors{App: "chat"},
		Action:    platform.Action{Kind: platform.ActionClick, X: 10, Y: 20},
	})
	require.NoError(t, err)

	assert.Equal(t, platform.WindowID(2), res.Window.ID)
	assert.Equal(t, "click(10,20 button=1 count=1)", res.Action)
	assert.True(t, res.RestoreAttempted)
	assert.True(t, res.RestoreVerified)
	require.Len(t, f.Injected, 1)
	assert.Equal(t, 1, f.Injected[0].Button)

	focused, _ := f.FocusedWindow(ctx)
	assert.Equal(t, platform.WindowID(1), focused)
	assert.Contains(t, f.CallLog(), "activate-window 20 2")
}

func TestRun_FocusedTargetSkipsPrepare(t *testing.T) {
	f := fixture()
	off := false

	res, err := newInjector(f).Run(context.Background(), Request{
		Selectors: match.Selectors{App: "editor"},
		Action:    platform.Action{Kind: platform.ActionType, Text: "hi"},
		Restore:   restore.Flags{Restore: &off},
	})
	require.NoError(t, err)
	assert.Equal(t, platform.WindowID(1), res.Window.ID)
	assert.False(t, res.RestoreAttempted)
	assert.Equal(t, []string{"inject 1 type(2 chars)"}, f.CallLog())
}

func TestRun_MinimizedTargetIsReminimized(t *testing.T) {
	ctx := context.Background()
	f := fixture()
	f.Minimized[2] = true

	res, err := newInjector(f).Run(ctx, Request{
		Selectors: match.Selectors{Title: "general"},
		Action:    platform.Action{Kind: platform.ActionKey, Keys: "ctrl+k"},
	})
	require.NoError(t, err)
	assert.True(t, res.RestoreVerified)
	minimized, _ := f.IsMinimized(ctx, 2)
	assert.True(t, minimized)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newInjector(fixture()).Run(ctx, Request{
		Selectors: match.Selectors{App: "chat"},
		Action:    platform.Action{Kind: "wiggle"},
	})
	assert.ErrorContains(t, err, "unknown action kind")

	f := fixture()
	f.InputErr = errors.New("XTEST missing")
	_, err = newInjector(f).Run(ctx, Request{
		Selectors: match.Selectors{App: "chat"},
		Action:    platform.Action{Kind: platform.ActionMove},
	})
	var perm *platform.PermissionError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, platform.CapabilityInput, perm.Capability)

	_, err = newInjector(fixture()).Run(ctx, Request{
		Selectors: match.Selectors{App: "nothing"},
		Action:    platform.Action{Kind: platform.ActionMove},
	})
	var nf *match.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRun_InjectFailureStillRestores(t *testing.T) {
	ctx := context.Background()
	f := fixture()
	inj := newInjector(f)

	// Fail only the injection itself.
	failing := &failInject{Fake: f}
	inj.sys = failing

	_, err := inj.Run(ctx, Request{
		Selectors: match.Selectors{App: "chat"},
		Action:    platform.Action{Kind: platform.ActionScroll, DY: 3},
	})
	assert.ErrorContains(t, err, "device busy")

	focused, _ := f.FocusedWindow(ctx)
	assert.Equal(t, platform.WindowID(1), focused)
}

func TestRun_TabWithoutBridge(t *testing.T) {
	_, err := newInjector(fixture()).Run(context.Background(), Request{
		Selectors: match.Selectors{App: "chat"},
		Action:    platform.Action{Kind: platform.ActionMove},
		Tab:       &tabsSelection,
	})
	assert.Error(t, err)
}

type failInject struct {
	*platformtest.Fake
}

func (f *failInject) Inject(context.Context, platform.Window, platform.Action) error {
	return errors.New("device busy")
}
