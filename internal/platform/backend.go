package platform

import (
	"context"
	"image"
)

// WindowID is a platform-neutral window identifier. It is only valid for the
// lifetime of the window and must never be cached across invocations.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns Width*Height, or 0 for degenerate rectangles.
func (r Rect) Area() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Stacking layers. User-level windows sit on LayerNormal; the menu bar
// (top panel) is recognised by LayerMenuBar plus its bounding box.
const (
	LayerDesktop      = -2147483623
	LayerNormal       = 0
	LayerFloating     = 3
	LayerMenuBar      = 24
	LayerNotification = 101
)

// Display describes a physical display.
type Display struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Bounds Rect   `json:"bounds"`
}

// Window is a window descriptor: the observable attributes of one window at
// one instant.
type Window struct {
	ID        WindowID `json:"id"`
	PID       int      `json:"pid"`
	OwnerName string   `json:"owner_name"`
	Title     string   `json:"title"`
	Bounds    Rect     `json:"bounds"`
	Layer     int      `json:"layer"`
	Alpha     float64  `json:"alpha"`
	OnScreen  bool     `json:"on_screen"`
	BundleID  string   `json:"bundle_id,omitempty"`
}

// Area returns the window's bounding-box area.
func (w Window) Area() int {
	return w.Bounds.Area()
}

// RenderableWithoutActivation reports whether the compositor can produce the
// window's pixels without it first being brought to front.
func (w Window) RenderableWithoutActivation() bool {
	return w.OnScreen && w.Alpha > 0 && w.Bounds.Area() > 0
}

// Location is a (display, virtual desktop) pair.
type Location struct {
	DisplayID string `json:"display_id"`
	DesktopID int    `json:"desktop_id"`
}

// App identifies a running application.
type App struct {
	PID      int    `json:"pid"`
	BundleID string `json:"bundle_id,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Inventory lists windows and displays from the window server.
type Inventory interface {
	Windows(ctx context.Context) ([]Window, error)
	Displays(ctx context.Context) ([]Display, error)
}

// Accessibility is the per-window attribute bridge. Trusted returns nil when
// the bridge is usable.
type Accessibility interface {
	Trusted() error
	FocusedWindow(ctx context.Context) (WindowID, bool)
	// AppFocusedWindow returns the window an application considers focused,
	// which can differ from the OS-wide focus.
	AppFocusedWindow(ctx context.Context, pid int) (WindowID, string, bool)
	HasElement(ctx context.Context, id WindowID) bool
	IsFullScreen(ctx context.Context, id WindowID) (bool, error)
	SetFullScreen(ctx context.Context, id WindowID, on bool) error
	FullScreenWindows(ctx context.Context, pid int) []WindowID
	IsMinimized(ctx context.Context, id WindowID) (bool, error)
	SetMinimized(ctx context.Context, id WindowID, on bool) error
	IsAppHidden(ctx context.Context, pid int) (bool, error)
	SetAppHidden(ctx context.Context, pid int, hidden bool) error
	Raise(ctx context.Context, id WindowID) error
}

// Apps resolves and activates applications.
type Apps interface {
	FrontmostApp(ctx context.Context) (App, bool)
	ResolvePID(ctx context.Context, pid int) (App, bool)
	ResolveBundle(ctx context.Context, bundleID string) (App, bool)
	ActivateApp(ctx context.Context, app App) error
}

// Activator is the lowest-level activation interface: it brings one specific
// window of an application forward.
type Activator interface {
	ActivateWindow(ctx context.Context, pid int, id WindowID) error
}

// DesktopEntrypoints are the low-level virtual-desktop calls. Payloads are
// raw and loosely structured; callers must parse them defensively.
type DesktopEntrypoints interface {
	// Probe returns an error naming the first missing entry point.
	Probe() error
	DisplaySpaces(ctx context.Context) ([]map[string]any, error)
	SetDisplayDesktop(ctx context.Context, displayID string, desktop int) error
	OrderWindowAbove(ctx context.Context, id WindowID) error
	StepDesktop(ctx context.Context, direction int) error
}

// Capturer grabs window and full-desktop pixels.
type Capturer interface {
	CaptureAvailable() error
	CaptureWindow(ctx context.Context, id WindowID) (image.Image, error)
	CaptureScreen(ctx context.Context) (image.Image, error)
}

// Inputter injects synthetic input into a window.
type Inputter interface {
	InputAvailable() error
	Inject(ctx context.Context, target Window, action Action) error
}

// System bundles every platform collaborator behind one handle.
type System interface {
	Inventory
	Accessibility
	Apps
	Activator
	Capturer
	Inputter
	Desktops() DesktopEntrypoints
	Close()
}
