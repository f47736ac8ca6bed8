// Package restore puts the operator's foreground app, window and virtual
// desktops back after a disruptive operation.
package restore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/snapshot"
	"github.com/1broseidon/quietwin/internal/spaces"
	"github.com/1broseidon/quietwin/internal/timeout"
)

// Strategy names reported in snapshot.RestoreOutcome.
const (
	StrategyPrimary      = "primary"
	StrategyDesktopOnly  = "desktop_only"
	StrategyHardReattach = "hard_reattach"
	StrategySpaceNudge   = "space_nudge"
)

// Options control the restore protocol.
type Options struct {
	Enabled            bool
	HardReattach       bool
	SpaceNudge         bool
	VerifyAttempts     int
	VerifyDelay        time.Duration
	Settle             time.Duration
	TransitionMaxSteps int
}

// DefaultOptions mirror the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Enabled:            true,
		HardReattach:       true,
		VerifyAttempts:     5,
		VerifyDelay:        120 * time.Millisecond,
		Settle:             350 * time.Millisecond,
		TransitionMaxSteps: 8,
	}
}

// Coordinator drives the restore state machine.
type Coordinator struct {
	sys   platform.System
	space *spaces.Space
	opts  Options
	log   *zap.Logger
}

// New returns a Coordinator.
func New(sys platform.System, space *spaces.Space, opts Options, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.VerifyAttempts <= 0 {
		opts.VerifyAttempts = 5
	}
	if opts.TransitionMaxSteps <= 0 {
		opts.TransitionMaxSteps = 8
	}
	return &Coordinator{sys: sys, space: space, opts: opts, log: log.Named("restore")}
}

// run carries per-restore state between strategies.
type run struct {
	focus            *snapshot.Focus
	desktopsRestored bool
	app              *platform.App
}

type strategy struct {
	name    string
	enabled func(c *Coordinator, r *run) bool
	try     func(c *Coordinator, ctx context.Context, r *run) bool
}

// strategies are tried in order until one verifies.
var strategies = []strategy{
	{
		name:    StrategyPrimary,
		enabled: func(*Coordinator, *run) bool { return true },
		try:     (*Coordinator).primary,
	},
	{
		name: StrategyHardReattach,
		enabled: func(c *Coordinator, r *run) bool {
			return c.opts.HardReattach && r.focus.Window != 0
		},
		try: (*Coordinator).hardReattach,
	},
	{
		name: StrategySpaceNudge,
		enabled: func(c *Coordinator, r *run) bool {
			return c.opts.SpaceNudge && len(r.focus.Desktops) > 0 && c.space.Available()
		},
		try: (*Coordinator).spaceNudge,
	},
}

// Restore restores f. Only the first call for a given snapshot does any
// work; later calls return the first outcome. Restore never fails: an
// unsuccessful restore is reported as Verified=false.
func (c *Coordinator) Restore(ctx context.Context, f *snapshot.Focus) snapshot.RestoreOutcome {
	if f == nil {
		return snapshot.RestoreOutcome{}
	}
	return f.Consume(func() snapshot.RestoreOutcome {
		if !c.opts.Enabled {
			c.log.Debug("restore disabled", zap.String("token", f.Token))
			return snapshot.RestoreOutcome{}
		}
		return c.restore(ctx, f)
	})
}

func (c *Coordinator) restore(ctx context.Context, f *snapshot.Focus) snapshot.RestoreOutcome {
	r := &run{focus: f}
	out := snapshot.RestoreOutcome{Attempted: true}

	for _, s := range strategies {
		if !s.enabled(c, r) {
			continue
		}
		c.log.Debug("restore strategy", zap.String("token", f.Token), zap.String("strategy", s.name))
		out.Strategy = s.name
		ok := s.try(c, ctx, r)
		if s.name == StrategyPrimary && r.app == nil {
			// No app to reactivate: the desktop signal is all there is.
			out.Strategy, out.Verified = StrategyDesktopOnly, ok
			break
		}
		if ok {
			out.Verified = true
			break
		}
		c.log.Info("restore strategy not verified", zap.String("token", f.Token), zap.String("strategy", s.name))
	}
	out.DesktopsRestored = r.desktopsRestored
	if !out.Verified {
		c.log.Warn("restore not verified",
			zap.String("token", f.Token),
			zap.Uint32("window", uint32(f.Window)),
			zap.String("last_strategy", out.Strategy),
		)
	}
	return out
}

// primary runs desktop restore, app reactivation, window activation and the
// verify loop.
func (c *Coordinator) primary(ctx context.Context, r *run) bool {
	f := r.focus
	r.desktopsRestored = c.restoreDesktops(ctx, f)
	c.log.Debug("restore stage", zap.String("stage", "desktop_restore_attempted"), zap.Bool("ok", r.desktopsRestored))

	app, ok := c.resolveApp(ctx, f.App)
	if !ok {
		c.log.Debug("recorded app did not resolve; using desktop signal only")
		return c.desktopSignal(ctx, f)
	}
	r.app = &app
	if err := c.sys.ActivateApp(ctx, app); err != nil {
		c.log.Debug("app reactivation failed", zap.Int("pid", app.PID), zap.Error(err))
	}
	c.log.Debug("restore stage", zap.String("stage", "app_reactivated"), zap.Int("pid", app.PID))

	return c.verifyLoop(ctx, f, app)
}

// hardReattach re-derives the app from the recorded window itself.
func (c *Coordinator) hardReattach(ctx context.Context, r *run) bool {
	f := r.focus
	owner, ok := c.windowOwner(ctx, f.Window)
	if !ok {
		c.log.Debug("hard reattach: recorded window is gone", zap.Uint32("window", uint32(f.Window)))
		return false
	}
	app, ok := c.sys.ResolvePID(ctx, owner)
	if !ok {
		return false
	}
	if loc, ok := c.space.WindowSpaceMap(ctx)[f.Window]; ok {
		c.space.RestoreWindowDesktop(ctx, loc)
	} else if f.Location != nil {
		c.space.RestoreWindowDesktop(ctx, *f.Location)
	}
	if err := c.sys.ActivateApp(ctx, app); err != nil {
		c.log.Debug("hard reattach activation failed", zap.Int("pid", app.PID), zap.Error(err))
	}
	r.app = &app
	return c.verifyLoop(ctx, f, app)
}

// spaceNudge steps every display away and back to unstick a compositor
// wedged mid-transition, then reruns the primary path.
func (c *Coordinator) spaceNudge(ctx context.Context, r *run) bool {
	if matches, performed := c.space.MatchesSnapshot(ctx, r.focus.Desktops); !performed || matches {
		return false
	}
	c.space.MoveActiveDisplaysToNeighbor(ctx, -1)
	c.space.MoveActiveDisplaysToNeighbor(ctx, 1)
	return c.primary(ctx, r)
}

// restoreDesktops restores every display's desktop, walks any display that
// refused a direct switch, then restores the foreground window's own
// desktop.
func (c *Coordinator) restoreDesktops(ctx context.Context, f *snapshot.Focus) bool {
	if len(f.Desktops) == 0 || !c.space.Available() {
		return false
	}
	res := c.space.RestoreSnapshot(ctx, f.Desktops)
	if len(res.Failed) > 0 {
		pending := make(spaces.Mapping, len(res.Failed))
		for _, id := range res.Failed {
			pending[id] = f.Desktops[id]
		}
		steps := c.space.WalkToSnapshot(ctx, pending, c.opts.TransitionMaxSteps)
		c.log.Debug("walked desktops for failed displays", zap.Strings("displays", res.Failed), zap.Int("steps", steps))
	}
	if f.Location != nil {
		c.space.RestoreWindowDesktop(ctx, *f.Location)
	}
	matches, performed := c.space.MatchesSnapshot(ctx, f.Desktops)
	return performed && matches
}

// desktopSignal is the verification used when no app can be reactivated.
func (c *Coordinator) desktopSignal(ctx context.Context, f *snapshot.Focus) bool {
	if len(f.Desktops) == 0 {
		return f.App == nil
	}
	matches, performed := c.space.MatchesSnapshot(ctx, f.Desktops)
	if !performed {
		return f.App == nil
	}
	return matches
}

func (c *Coordinator) resolveApp(ctx context.Context, recorded *platform.App) (platform.App, bool) {
	if recorded == nil {
		return platform.App{}, false
	}
	if app, ok := c.sys.ResolvePID(ctx, recorded.PID); ok {
		return app, true
	}
	if recorded.BundleID != "" {
		if app, ok := c.sys.ResolveBundle(ctx, recorded.BundleID); ok {
			return app, true
		}
	}
	return platform.App{}, false
}

func (c *Coordinator) windowOwner(ctx context.Context, id platform.WindowID) (int, bool) {
	windows, err := c.sys.Windows(ctx)
	if err != nil {
		return 0, false
	}
	for _, w := range windows {
		if w.ID == id && w.PID > 0 {
			return w.PID, true
		}
	}
	return 0, false
}

// verifyLoop checks the restored state, re-issuing window activation between
// short delays.
func (c *Coordinator) verifyLoop(ctx context.Context, f *snapshot.Focus, app platform.App) bool {
	c.bringForward(ctx, f, app)
	for attempt := 1; attempt <= c.opts.VerifyAttempts; attempt++ {
		if c.verified(ctx, f, app) {
			c.log.Debug("restore stage", zap.String("stage", "verified"), zap.Int("attempt", attempt))
			return true
		}
		if attempt == c.opts.VerifyAttempts {
			break
		}
		c.bringForward(ctx, f, app)
		if err := timeout.Sleep(ctx, c.opts.VerifyDelay); err != nil {
			return false
		}
	}
	return false
}

// bringForward activates exactly the recorded window, or the app's
// full-screen window when the focus id is not trusted.
func (c *Coordinator) bringForward(ctx context.Context, f *snapshot.Focus, app platform.App) {
	if f.PreferFullScreenRestore {
		if ids := c.sys.FullScreenWindows(ctx, app.PID); len(ids) > 0 {
			c.activate(ctx, app.PID, ids[0])
			return
		}
		if f.Window != 0 {
			c.activate(ctx, app.PID, f.Window)
			if err := c.sys.SetFullScreen(ctx, f.Window, true); err != nil {
				c.log.Debug("failed to reassert full-screen", zap.Error(err))
			}
		}
		return
	}
	if f.Window == 0 {
		return
	}
	pid := f.WindowPID
	if pid == 0 {
		pid = app.PID
	}
	c.activate(ctx, pid, f.Window)
}

func (c *Coordinator) activate(ctx context.Context, pid int, id platform.WindowID) {
	if err := c.sys.ActivateWindow(ctx, pid, id); err != nil {
		c.log.Debug("window activation failed", zap.Uint32("window", uint32(id)), zap.Error(err))
	}
	if err := c.sys.Raise(ctx, id); err != nil {
		c.log.Debug("window raise failed", zap.Uint32("window", uint32(id)), zap.Error(err))
	}
}

// verified reports whether app is frontmost and the recorded window (or,
// for full-screen restores, some full-screen window of app) is focused.
func (c *Coordinator) verified(ctx context.Context, f *snapshot.Focus, app platform.App) bool {
	front, ok := c.sys.FrontmostApp(ctx)
	if !ok || front.PID != app.PID {
		return false
	}
	if f.PreferFullScreenRestore {
		return len(c.sys.FullScreenWindows(ctx, app.PID)) > 0
	}
	if f.Window == 0 {
		return true
	}
	focused, ok := c.sys.FocusedWindow(ctx)
	return ok && focused == f.Window
}
