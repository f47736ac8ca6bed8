package snapshot

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/spaces"
)

// Foreground inference sources, in cascade order.
const (
	SourceForced      = "forced"
	SourceAXGlobal    = "ax_focused"
	SourceAXAppID     = "ax_app_focused_id"
	SourceAXAppTitle  = "ax_app_focused_title"
	SourceActiveStack = "active_desktop_top"
	SourceScored      = "scored_visible"
	SourceAnyVisible  = "any_visible"
)

// Minimum size for a window to count as holding content.
const (
	minContentWidth  = 200
	minContentHeight = 120
)

// RestoreOutcome is the cached result of restoring a Focus.
type RestoreOutcome struct {
	Attempted        bool   `json:"attempted"`
	Verified         bool   `json:"verified"`
	Strategy         string `json:"strategy,omitempty"`
	DesktopsRestored bool   `json:"desktops_restored"`
}

// Focus is the pre-operation foreground state. It is consumed by exactly one
// restore.
type Focus struct {
	Token  string            `json:"token"`
	App    *platform.App     `json:"app,omitempty"`
	Window platform.WindowID `json:"window,omitempty"`
	// WindowPID owns Window; it can differ from App when focus inference
	// fell through to a stack signal.
	WindowPID               int                `json:"window_pid,omitempty"`
	WindowTitle             string             `json:"window_title,omitempty"`
	Source                  string             `json:"source,omitempty"`
	FullScreen              bool               `json:"full_screen"`
	PreferFullScreenRestore bool               `json:"prefer_full_screen_restore"`
	Location                *platform.Location `json:"location,omitempty"`
	Desktops                spaces.Mapping     `json:"desktops,omitempty"`

	once    sync.Once
	outcome RestoreOutcome
}

// FocusObserved reports whether the window came from a direct focus id.
func (f *Focus) FocusObserved() bool {
	switch f.Source {
	case SourceForced, SourceAXGlobal, SourceAXAppID:
		return true
	}
	return false
}

// Consume runs restore the first time it is called and returns the cached
// outcome on every later call.
func (f *Focus) Consume(restore func() RestoreOutcome) RestoreOutcome {
	f.once.Do(func() {
		f.outcome = restore()
	})
	return f.outcome
}

// FocusOptions adjust focus capture.
type FocusOptions struct {
	// ForcedWindow skips inference.
	ForcedWindow *platform.WindowID
}

// focusEnv carries lazily loaded state through the cascade.
type focusEnv struct {
	e   *Engine
	app *platform.App

	windowsOnce sync.Once
	windows     []platform.Window

	appTitle string
}

func (env *focusEnv) inventory(ctx context.Context) []platform.Window {
	env.windowsOnce.Do(func() {
		ws, err := env.e.sys.Windows(ctx)
		if err != nil {
			env.e.log.Debug("inventory unavailable during focus capture", zap.Error(err))
		}
		env.windows = ws
	})
	return env.windows
}

func (env *focusEnv) appWindows(ctx context.Context) []platform.Window {
	if env.app == nil {
		return nil
	}
	var out []platform.Window
	for _, w := range env.inventory(ctx) {
		if w.PID == env.app.PID {
			out = append(out, w)
		}
	}
	return out
}

type focusLookup struct {
	source string
	find   func(ctx context.Context, env *focusEnv, opts FocusOptions) (platform.WindowID, bool)
}

// focusCascade is evaluated in order; the first lookup that yields a window
// wins.
var focusCascade = []focusLookup{
	{SourceForced, func(_ context.Context, _ *focusEnv, opts FocusOptions) (platform.WindowID, bool) {
		if opts.ForcedWindow == nil {
			return 0, false
		}
		return *opts.ForcedWindow, true
	}},
	{SourceAXGlobal, func(ctx context.Context, env *focusEnv, _ FocusOptions) (platform.WindowID, bool) {
		if env.e.sys.Trusted() != nil {
			return 0, false
		}
		return env.e.sys.FocusedWindow(ctx)
	}},
	{SourceAXAppID, func(ctx context.Context, env *focusEnv, _ FocusOptions) (platform.WindowID, bool) {
		if env.app == nil || env.e.sys.Trusted() != nil {
			return 0, false
		}
		id, title, ok := env.e.sys.AppFocusedWindow(ctx, env.app.PID)
		env.appTitle = title
		return id, ok && id != 0
	}},
	{SourceAXAppTitle, func(ctx context.Context, env *focusEnv, _ FocusOptions) (platform.WindowID, bool) {
		if env.appTitle == "" {
			return 0, false
		}
		for _, w := range env.appWindows(ctx) {
			if w.Title == env.appTitle {
				return w.ID, true
			}
		}
		return 0, false
	}},
	{SourceActiveStack, func(ctx context.Context, env *focusEnv, _ FocusOptions) (platform.WindowID, bool) {
		if !env.e.space.Available() {
			return 0, false
		}
		return topOfStacks(env.e.space.ActiveWindowStacksRaw(ctx), env.ownedBy(ctx))
	}},
	{SourceScored, func(ctx context.Context, env *focusEnv, _ FocusOptions) (platform.WindowID, bool) {
		best, bestScore, bestArea := platform.WindowID(0), -1, -1
		for _, w := range env.appWindows(ctx) {
			if w.Layer != platform.LayerNormal || !w.OnScreen {
				continue
			}
			score := visibilityScore(w)
			if score > bestScore || (score == bestScore && w.Area() > bestArea) {
				best, bestScore, bestArea = w.ID, score, w.Area()
			}
		}
		return best, bestScore >= 0
	}},
	{SourceAnyVisible, func(ctx context.Context, env *focusEnv, _ FocusOptions) (platform.WindowID, bool) {
		for _, w := range env.appWindows(ctx) {
			if w.OnScreen && w.Alpha > 0 {
				return w.ID, true
			}
		}
		return 0, false
	}},
}

// ownedBy returns a predicate for windows of the frontmost app, or nil when
// there is no frontmost app.
func (env *focusEnv) ownedBy(ctx context.Context) func(platform.WindowID) bool {
	if env.app == nil {
		return nil
	}
	owned := make(map[platform.WindowID]bool)
	for _, w := range env.appWindows(ctx) {
		owned[w.ID] = true
	}
	return func(id platform.WindowID) bool { return owned[id] }
}

// topOfStacks returns the first window of the first non-empty stack (by
// display id) that satisfies keep.
func topOfStacks(stacks map[string][]platform.WindowID, keep func(platform.WindowID) bool) (platform.WindowID, bool) {
	displays := make([]string, 0, len(stacks))
	for id := range stacks {
		displays = append(displays, id)
	}
	sort.Strings(displays)
	for _, d := range displays {
		for _, id := range stacks[d] {
			if keep == nil || keep(id) {
				return id, true
			}
		}
	}
	return 0, false
}

// visibilityScore ranks candidate foreground windows.
func visibilityScore(w platform.Window) int {
	score := 0
	if w.OnScreen {
		score += 100
	}
	if w.Alpha > 0 {
		score += 40
	}
	if w.Title != "" {
		score += 20
	}
	if w.Bounds.Width >= minContentWidth && w.Bounds.Height >= minContentHeight {
		score += 10
	}
	return score
}

// CaptureFocus records the frontmost app, the inferred foreground window,
// its full-screen state and desktop placement, and the desktop mapping.
func (e *Engine) CaptureFocus(ctx context.Context, opts FocusOptions) *Focus {
	f := &Focus{Token: uuid.NewString()}
	env := &focusEnv{e: e}

	if app, ok := e.sys.FrontmostApp(ctx); ok {
		f.App = &app
		env.app = &app
	}

	for _, lookup := range focusCascade {
		id, ok := lookup.find(ctx, env, opts)
		if ok && id != 0 {
			f.Window, f.Source = id, lookup.source
			break
		}
	}

	if f.Window != 0 {
		for _, w := range env.inventory(ctx) {
			if w.ID == f.Window {
				f.WindowPID, f.WindowTitle = w.PID, w.Title
				break
			}
		}
	}
	if f.WindowPID == 0 && f.App != nil {
		f.WindowPID = f.App.PID
	}

	e.detectFullScreen(ctx, f)

	if mapping, ok := e.space.CaptureSnapshot(ctx); ok {
		f.Desktops = mapping
		if f.Window != 0 {
			if loc, ok := e.space.WindowSpaceMap(ctx)[f.Window]; ok {
				f.Location = &loc
			}
		}
	}

	e.log.Debug("captured focus snapshot",
		zap.String("token", f.Token),
		zap.Uint32("window", uint32(f.Window)),
		zap.String("source", f.Source),
		zap.Bool("full_screen", f.FullScreen),
		zap.Bool("prefer_full_screen", f.PreferFullScreenRestore),
	)
	return f
}

// detectFullScreen sets FullScreen and the low-confidence
// PreferFullScreenRestore flag.
func (e *Engine) detectFullScreen(ctx context.Context, f *Focus) {
	if e.sys.Trusted() != nil {
		return
	}
	if f.Window != 0 {
		if on, err := e.sys.IsFullScreen(ctx, f.Window); err == nil {
			f.FullScreen = on
		}
	}
	if !f.FullScreen && f.Window == 0 && f.App != nil {
		f.FullScreen = len(e.sys.FullScreenWindows(ctx, f.App.PID)) > 0
	}
	if !f.FullScreen {
		return
	}
	hasElement := f.Window != 0 && e.sys.HasElement(ctx, f.Window)
	f.PreferFullScreenRestore = !hasElement || !f.FocusObserved()
}
