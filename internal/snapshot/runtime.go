package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/raster"
	"github.com/1broseidon/quietwin/internal/runtimepath"
	"github.com/1broseidon/quietwin/internal/spaces"
)

// maxMenuBarHeight bounds the height of a window recognised as the menu bar.
const maxMenuBarHeight = 64

// Runtime is a diagnostic snapshot used for before/after comparison.
type Runtime struct {
	Label           string                         `json:"label"`
	Token           string                         `json:"token"`
	TakenAt         time.Time                      `json:"taken_at"`
	FrontmostPID    int                            `json:"frontmost_pid,omitempty"`
	FocusedWindow   platform.WindowID              `json:"focused_window,omitempty"`
	MenuBarOwnerPID *int                           `json:"menu_bar_owner_pid,omitempty"`
	Stacks          map[string][]platform.WindowID `json:"stacks,omitempty"`
	TopWindow       *platform.WindowID             `json:"top_window,omitempty"`
	Desktops        spaces.Mapping                 `json:"desktops,omitempty"`
	ScreenshotPath  string                         `json:"screenshot_path,omitempty"`
}

// RuntimeOptions select optional samples.
type RuntimeOptions struct {
	Token      string
	Label      string
	Screenshot bool
}

// CaptureRuntime samples the menu-bar owner, desktop stacks and, when
// requested, a down-scaled desktop screenshot. Samples run concurrently and
// a failed sample is simply left empty.
func (e *Engine) CaptureRuntime(ctx context.Context, opts RuntimeOptions) *Runtime {
	rt := &Runtime{Label: opts.Label, Token: opts.Token, TakenAt: time.Now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if app, ok := e.sys.FrontmostApp(gctx); ok {
			rt.FrontmostPID = app.PID
		}
		if id, ok := e.sys.FocusedWindow(gctx); ok {
			rt.FocusedWindow = id
		}
		return nil
	})
	g.Go(func() error {
		rt.MenuBarOwnerPID = e.menuBarOwner(gctx)
		return nil
	})
	g.Go(func() error {
		if !e.space.Available() {
			return nil
		}
		rt.Stacks = e.space.ActiveWindowStacksRaw(gctx)
		if top, ok := topOfStacks(rt.Stacks, nil); ok {
			rt.TopWindow = &top
		}
		if mapping, ok := e.space.CaptureSnapshot(gctx); ok {
			rt.Desktops = mapping
		}
		return nil
	})
	if opts.Screenshot {
		g.Go(func() error {
			rt.ScreenshotPath = e.saveScreenshot(gctx, opts.Token, opts.Label)
			return nil
		})
	}
	_ = g.Wait()
	return rt
}

// menuBarOwner scans on-screen windows for the menu-bar signature: the
// menu-bar layer, pinned to a display's top-left corner, spanning its full
// width, and short.
func (e *Engine) menuBarOwner(ctx context.Context) *int {
	windows, err := e.sys.Windows(ctx)
	if err != nil {
		return nil
	}
	displays, err := e.sys.Displays(ctx)
	if err != nil {
		return nil
	}
	if pid, ok := FindMenuBarOwner(windows, displays); ok {
		return &pid
	}
	return nil
}

// FindMenuBarOwner returns the pid owning the menu bar.
func FindMenuBarOwner(windows []platform.Window, displays []platform.Display) (int, bool) {
	for _, d := range displays {
		for _, w := range windows {
			if !w.OnScreen || w.Layer != platform.LayerMenuBar {
				continue
			}
			b := w.Bounds
			if b.X == d.Bounds.X && b.Y == d.Bounds.Y && b.Width == d.Bounds.Width &&
				b.Height > 0 && b.Height <= maxMenuBarHeight {
				return w.PID, true
			}
		}
	}
	return 0, false
}

func (e *Engine) saveScreenshot(ctx context.Context, token, label string) string {
	img, err := e.sys.CaptureScreen(ctx)
	if err != nil {
		e.log.Debug("desktop screenshot failed", zap.String("label", label), zap.Error(err))
		return ""
	}
	dir := e.opts.DiagnosticsDir
	if dir == "" {
		if dir, err = runtimepath.DiagnosticsDir(); err != nil {
			e.log.Debug("no diagnostics dir", zap.Error(err))
			return ""
		}
	}
	path := runtimepath.ScreenshotPath(dir, token, label)
	if err := raster.SavePNG(path, raster.Downscale(img, e.opts.MaxEdge)); err != nil {
		e.log.Debug("failed to save desktop screenshot", zap.String("path", path), zap.Error(err))
		return ""
	}
	return path
}
