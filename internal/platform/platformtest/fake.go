// Package platformtest provides an in-memory platform.System for tests.
package platformtest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/quietwin/internal/platform"
)

// Fake simulates a small desktop. Windows is kept top-of-stack first.
// Exported fields may be set directly before use; call methods afterwards.
type Fake struct {
	mu sync.Mutex

	WindowList  []platform.Window
	DisplayList []platform.Display
	Apps        map[int]platform.App

	Focused   platform.WindowID
	Frontmost platform.App

	FullScreen map[platform.WindowID]bool
	Minimized  map[platform.WindowID]bool
	Hidden     map[int]bool
	// NoElement lists windows the accessibility bridge cannot see.
	NoElement map[platform.WindowID]bool

	TrustErr   error
	CaptureErr error
	InputErr   error
	// InjectErr fails Inject while InputAvailable still succeeds.
	InjectErr error

	// Images holds per-window pixels; windows without an entry render a
	// solid fill.
	Images map[platform.WindowID]image.Image
	Screen image.Image
	// CaptureDelay stalls CaptureWindow (honouring ctx).
	CaptureDelay time.Duration
	// CaptureNeedsFront makes capture fail unless the window is renderable.
	CaptureNeedsFront bool

	// IgnoreActivation makes activation calls succeed without effect.
	IgnoreActivation bool
	// ActivationsToIgnore drops the first N window activations.
	ActivationsToIgnore int

	Injected []platform.Action
	Calls    []string

	Desk *Desktops
}

// New returns a Fake with initialised maps and one 1920x1080 display.
func New() *Fake {
	return &Fake{
		DisplayList: []platform.Display{{ID: 0, Name: "DP-1", Bounds: platform.Rect{Width: 1920, Height: 1080}}},
		Apps:        make(map[int]platform.App),
		FullScreen:  make(map[platform.WindowID]bool),
		Minimized:   make(map[platform.WindowID]bool),
		Hidden:      make(map[int]bool),
		NoElement:   make(map[platform.WindowID]bool),
		Images:      make(map[platform.WindowID]image.Image),
	}
}

var _ platform.System = (*Fake)(nil)

// AddWindow appends w below the existing windows and registers its app.
func (f *Fake) AddWindow(w platform.Window) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WindowList = append(f.WindowList, w)
	if _, ok := f.Apps[w.PID]; !ok && w.PID > 0 {
		f.Apps[w.PID] = platform.App{PID: w.PID, BundleID: w.BundleID, Name: w.OwnerName}
	}
}

// Focus makes id the focused window and its app frontmost.
func (f *Fake) Focus(id platform.WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focusLocked(id)
}

func (f *Fake) focusLocked(id platform.WindowID) {
	idx := f.indexLocked(id)
	if idx < 0 {
		return
	}
	w := f.WindowList[idx]
	f.Focused = id
	f.Frontmost = f.Apps[w.PID]
	f.Minimized[id] = false
	f.Hidden[w.PID] = false
	f.raiseLocked(idx)
	if f.Desk != nil {
		if loc, ok := f.Desk.location(id); ok {
			f.Desk.SetCurrent(loc.DisplayID, loc.DesktopID)
		}
	}
}

func (f *Fake) raiseLocked(idx int) {
	w := f.WindowList[idx]
	copy(f.WindowList[1:idx+1], f.WindowList[:idx])
	f.WindowList[0] = w
	if f.Desk != nil {
		f.Desk.raise(w.ID)
	}
}

func (f *Fake) indexLocked(id platform.WindowID) int {
	for i, w := range f.WindowList {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// CallLog returns a copy of the recorded calls.
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *Fake) Close() {}

func (f *Fake) Desktops() platform.DesktopEntrypoints {
	if f.Desk == nil {
		return nil
	}
	return f.Desk
}

// Windows reports the windows with live visibility flags applied.
func (f *Fake) Windows(context.Context) ([]platform.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]platform.Window, 0, len(f.WindowList))
	for _, w := range f.WindowList {
		w.OnScreen = w.OnScreen && !f.Minimized[w.ID] && !f.Hidden[w.PID] && f.onCurrentDesktopLocked(w.ID)
		out = append(out, w)
	}
	return out, nil
}

func (f *Fake) onCurrentDesktopLocked(id platform.WindowID) bool {
	if f.Desk == nil {
		return true
	}
	loc, ok := f.Desk.location(id)
	if !ok {
		return true
	}
	return f.Desk.CurrentOf(loc.DisplayID) == loc.DesktopID
}

func (f *Fake) Displays(context.Context) ([]platform.Display, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Display(nil), f.DisplayList...), nil
}

func (f *Fake) Trusted() error { return f.TrustErr }

func (f *Fake) FocusedWindow(context.Context) (platform.WindowID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Focused, f.Focused != 0
}

func (f *Fake) AppFocusedWindow(_ context.Context, pid int) (platform.WindowID, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.WindowList {
		if w.PID == pid && !f.Minimized[w.ID] && !f.NoElement[w.ID] && w.Layer == platform.LayerNormal {
			return w.ID, w.Title, true
		}
	}
	return 0, "", false
}

func (f *Fake) HasElement(_ context.Context, id platform.WindowID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexLocked(id) >= 0 && !f.NoElement[id]
}

func (f *Fake) IsFullScreen(_ context.Context, id platform.WindowID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FullScreen[id], nil
}

func (f *Fake) SetFullScreen(_ context.Context, id platform.WindowID, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fullscreen %d %t", id, on)
	f.FullScreen[id] = on
	return nil
}

func (f *Fake) FullScreenWindows(_ context.Context, pid int) []platform.WindowID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []platform.WindowID
	for _, w := range f.WindowList {
		if w.PID == pid && f.FullScreen[w.ID] && !f.Minimized[w.ID] {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

func (f *Fake) IsMinimized(_ context.Context, id platform.WindowID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Minimized[id], nil
}

func (f *Fake) SetMinimized(_ context.Context, id platform.WindowID, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("minimize %d %t", id, on)
	f.Minimized[id] = on
	if on && f.Focused == id {
		f.Focused = 0
	}
	return nil
}

func (f *Fake) IsAppHidden(_ context.Context, pid int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Hidden[pid], nil
}

func (f *Fake) SetAppHidden(_ context.Context, pid int, hidden bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("hide %d %t", pid, hidden)
	f.Hidden[pid] = hidden
	if hidden && f.Frontmost.PID == pid {
		f.Frontmost = platform.App{}
		f.Focused = 0
	}
	return nil
}

func (f *Fake) Raise(_ context.Context, id platform.WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("raise %d", id)
	idx := f.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("window %d not found", id)
	}
	f.raiseLocked(idx)
	return nil
}

func (f *Fake) FrontmostApp(context.Context) (platform.App, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Frontmost, f.Frontmost.PID != 0
}

func (f *Fake) ResolvePID(_ context.Context, pid int) (platform.App, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.Apps[pid]
	return app, ok
}

func (f *Fake) ResolveBundle(_ context.Context, bundleID string) (platform.App, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pids := make([]int, 0, len(f.Apps))
	for pid := range f.Apps {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	for _, pid := range pids {
		if app := f.Apps[pid]; app.BundleID != "" && app.BundleID == bundleID {
			return app, true
		}
	}
	return platform.App{}, false
}

// ActivateApp focuses the app's top-most window, like ordinary activation.
func (f *Fake) ActivateApp(_ context.Context, app platform.App) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("activate-app %d", app.PID)
	if f.IgnoreActivation {
		return nil
	}
	for _, w := range f.WindowList {
		if w.PID == app.PID && w.Layer == platform.LayerNormal {
			f.focusLocked(w.ID)
			return nil
		}
	}
	f.Frontmost = f.Apps[app.PID]
	return nil
}

func (f *Fake) ActivateWindow(_ context.Context, pid int, id platform.WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("activate-window %d %d", pid, id)
	if f.IgnoreActivation {
		return nil
	}
	if f.ActivationsToIgnore > 0 {
		f.ActivationsToIgnore--
		return nil
	}
	if f.indexLocked(id) < 0 {
		return fmt.Errorf("window %d not found", id)
	}
	f.focusLocked(id)
	return nil
}

func (f *Fake) CaptureAvailable() error { return f.CaptureErr }

// ErrNotRenderable is returned by CaptureWindow when CaptureNeedsFront is
// set and the window is not visible.
var ErrNotRenderable = errors.New("window is not renderable")

func (f *Fake) CaptureWindow(ctx context.Context, id platform.WindowID) (image.Image, error) {
	if f.CaptureDelay > 0 {
		t := time.NewTimer(f.CaptureDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("capture %d", id)
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	idx := f.indexLocked(id)
	if idx < 0 {
		return nil, fmt.Errorf("window %d not found", id)
	}
	w := f.WindowList[idx]
	if f.CaptureNeedsFront {
		visible := w.OnScreen && !f.Minimized[w.ID] && !f.Hidden[w.PID] && f.onCurrentDesktopLocked(w.ID)
		if !visible {
			return nil, ErrNotRenderable
		}
	}
	if img, ok := f.Images[id]; ok {
		return img, nil
	}
	return Solid(w.Bounds.Width, w.Bounds.Height, color.RGBA{R: 40, G: 80, B: 120, A: 255}), nil
}

func (f *Fake) CaptureScreen(context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	if f.Screen != nil {
		return f.Screen, nil
	}
	return Solid(640, 360, color.RGBA{R: 20, G: 20, B: 20, A: 255}), nil
}

func (f *Fake) InputAvailable() error { return f.InputErr }

func (f *Fake) Inject(_ context.Context, target platform.Window, action platform.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("inject %d %s", target.ID, action)
	if f.InputErr != nil {
		return f.InputErr
	}
	if f.InjectErr != nil {
		return f.InjectErr
	}
	f.Injected = append(f.Injected, action)
	return nil
}

// Solid returns a w x h image filled with c.
func Solid(w, h int, c color.RGBA) *image.RGBA {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}
