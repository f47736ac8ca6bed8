//go:build linux

package platform

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/1broseidon/quietwin/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// LinuxBackend implements System over an X11 connection driven by an
// EWMH-compliant window manager.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ System = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Close closes the underlying X11 connection.
func (b *LinuxBackend) Close() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// Desktops returns the virtual-desktop entry points.
func (b *LinuxBackend) Desktops() DesktopEntrypoints {
	return &linuxDesktops{conn: b.conn}
}

// Displays returns all active displays.
func (b *LinuxBackend) Displays(_ context.Context) ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, Display{
			ID:     m.ID,
			Name:   m.Name,
			Bounds: Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		})
	}
	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})
	return displays, nil
}

// Windows lists every managed client window, top of the stack first.
func (b *LinuxBackend) Windows(ctx context.Context) ([]Window, error) {
	props, err := b.clientProps(ctx)
	if err != nil {
		return nil, err
	}
	current, desktopErr := b.conn.GetCurrentDesktop()

	windows := make([]Window, 0, len(props))
	for _, p := range props {
		onDesktop := desktopErr != nil || p.Desktop < 0 || p.Desktop == current
		windows = append(windows, Window{
			ID:        WindowID(p.ID),
			PID:       p.PID,
			OwnerName: ownerName(p),
			Title:     p.Title,
			Bounds:    Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height},
			Layer:     layerFor(p),
			Alpha:     p.Opacity,
			OnScreen:  p.Viewable && !p.Minimized() && onDesktop,
			BundleID:  bundleID(p),
		})
	}
	return windows, nil
}

// clientProps reads all managed clients top-to-bottom.
func (b *LinuxBackend) clientProps(ctx context.Context) ([]x11.WindowProps, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	clients, err := conn.ClientListStacking()
	if err != nil {
		return nil, err
	}

	props := make([]x11.WindowProps, 0, len(clients))
	for i := len(clients) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := conn.ReadWindow(clients[i])
		if err != nil {
			// Windows can disappear between listing and reading.
			continue
		}
		props = append(props, p)
	}
	return props, nil
}

func (b *LinuxBackend) props(id WindowID) (x11.WindowProps, error) {
	conn, err := b.connection()
	if err != nil {
		return x11.WindowProps{}, err
	}
	return conn.ReadWindow(xproto.Window(id))
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

// FrontmostApp returns the application owning the active window.
func (b *LinuxBackend) FrontmostApp(_ context.Context) (App, bool) {
	conn, err := b.connection()
	if err != nil {
		return App{}, false
	}
	active, err := conn.GetActiveWindow()
	if err != nil || active == 0 {
		return App{}, false
	}
	p, err := conn.ReadWindow(active)
	if err != nil || p.PID <= 0 {
		return App{}, false
	}
	return appFromProps(p), true
}

// ResolvePID returns the application for a live process that still owns a
// managed window.
func (b *LinuxBackend) ResolvePID(ctx context.Context, pid int) (App, bool) {
	if pid <= 0 {
		return App{}, false
	}
	if _, err := os.Stat("/proc/" + strconv.Itoa(pid)); err != nil {
		return App{}, false
	}
	props, err := b.clientProps(ctx)
	if err != nil {
		return App{}, false
	}
	for _, p := range props {
		if p.PID == pid {
			return appFromProps(p), true
		}
	}
	return App{}, false
}

// ResolveBundle finds a running application by bundle identifier.
func (b *LinuxBackend) ResolveBundle(ctx context.Context, id string) (App, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return App{}, false
	}
	props, err := b.clientProps(ctx)
	if err != nil {
		return App{}, false
	}
	for _, p := range props {
		if p.PID > 0 && strings.EqualFold(bundleID(p), id) {
			return appFromProps(p), true
		}
	}
	return App{}, false
}

// ActivateApp performs ordinary application activation: the app's top-most
// window is brought forward.
func (b *LinuxBackend) ActivateApp(ctx context.Context, app App) error {
	id, _, ok := b.AppFocusedWindow(ctx, app.PID)
	if !ok {
		return fmt.Errorf("application pid %d has no activatable window", app.PID)
	}
	return b.conn.FocusWindow(uint32(id))
}

// ActivateWindow brings exactly one window forward. Without
// _NET_ACTIVE_WINDOW support it restacks and sets input focus directly.
func (b *LinuxBackend) ActivateWindow(_ context.Context, _ int, id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	if conn.Supports("_NET_ACTIVE_WINDOW") {
		return conn.FocusWindow(uint32(id))
	}
	if err := conn.RestackAbove(uint32(id)); err != nil {
		return err
	}
	return xproto.SetInputFocusChecked(conn.XUtil.Conn(), xproto.InputFocusPointerRoot, xproto.Window(id), xproto.TimeCurrentTime).Check()
}

func appFromProps(p x11.WindowProps) App {
	return App{PID: p.PID, BundleID: bundleID(p), Name: ownerName(p)}
}

func ownerName(p x11.WindowProps) string {
	if p.Class != "" {
		return p.Class
	}
	return p.Instance
}

func bundleID(p x11.WindowProps) string {
	if p.AppID != "" {
		return p.AppID
	}
	return p.Instance
}

func layerFor(p x11.WindowProps) int {
	switch {
	case p.HasType("_NET_WM_WINDOW_TYPE_DESKTOP"):
		return LayerDesktop
	case p.HasType("_NET_WM_WINDOW_TYPE_DOCK"):
		return LayerMenuBar
	case p.HasType("_NET_WM_WINDOW_TYPE_NOTIFICATION"):
		return LayerNotification
	case p.IsNormal():
		return LayerNormal
	}
	return LayerFloating
}
