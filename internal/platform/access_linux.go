//go:build linux

package platform

import (
	"context"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// Trusted reports whether window attributes can be read and written, which
// on X11 requires a running EWMH window manager.
func (b *LinuxBackend) Trusted() error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	if !conn.HasWindowManager() {
		return fmt.Errorf("no EWMH-compliant window manager is running")
	}
	return nil
}

// FocusedWindow returns the OS-wide focused window.
func (b *LinuxBackend) FocusedWindow(_ context.Context) (WindowID, bool) {
	conn, err := b.connection()
	if err != nil {
		return 0, false
	}
	active, err := conn.GetActiveWindow()
	if err != nil || active == 0 {
		return 0, false
	}
	return WindowID(active), true
}

// AppFocusedWindow returns the top-most non-minimized window of pid, which
// is the window the application last had focused.
func (b *LinuxBackend) AppFocusedWindow(ctx context.Context, pid int) (WindowID, string, bool) {
	if pid <= 0 {
		return 0, "", false
	}
	props, err := b.clientProps(ctx)
	if err != nil {
		return 0, "", false
	}
	for _, p := range props {
		if p.PID == pid && !p.Minimized() && layerFor(p) == LayerNormal {
			return WindowID(p.ID), p.Title, true
		}
	}
	return 0, "", false
}

// HasElement reports whether id is a managed client window.
func (b *LinuxBackend) HasElement(_ context.Context, id WindowID) bool {
	conn, err := b.connection()
	if err != nil {
		return false
	}
	clients, err := conn.ClientListStacking()
	if err != nil {
		return false
	}
	for _, c := range clients {
		if c == xproto.Window(id) {
			return true
		}
	}
	return false
}

// IsFullScreen reads _NET_WM_STATE_FULLSCREEN.
func (b *LinuxBackend) IsFullScreen(_ context.Context, id WindowID) (bool, error) {
	p, err := b.props(id)
	if err != nil {
		return false, err
	}
	return p.Fullscreen(), nil
}

// SetFullScreen asks the window manager to enter or leave full-screen.
func (b *LinuxBackend) SetFullScreen(_ context.Context, id WindowID, on bool) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SetFullscreen(uint32(id), on)
}

// FullScreenWindows lists the visible full-screen windows of pid.
func (b *LinuxBackend) FullScreenWindows(ctx context.Context, pid int) []WindowID {
	props, err := b.clientProps(ctx)
	if err != nil {
		return nil
	}
	var ids []WindowID
	for _, p := range props {
		if p.PID == pid && p.Fullscreen() && !p.Minimized() {
			ids = append(ids, WindowID(p.ID))
		}
	}
	return ids
}

// IsMinimized reports iconified windows.
func (b *LinuxBackend) IsMinimized(_ context.Context, id WindowID) (bool, error) {
	p, err := b.props(id)
	if err != nil {
		return false, err
	}
	return p.Minimized(), nil
}

// SetMinimized iconifies or restores one window.
func (b *LinuxBackend) SetMinimized(_ context.Context, id WindowID, on bool) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	if on {
		return conn.Iconify(uint32(id))
	}
	return conn.Deiconify(uint32(id))
}

// IsAppHidden reports whether every user-level window of pid is minimized.
func (b *LinuxBackend) IsAppHidden(ctx context.Context, pid int) (bool, error) {
	props, err := b.clientProps(ctx)
	if err != nil {
		return false, err
	}
	seen := false
	for _, p := range props {
		if p.PID != pid || layerFor(p) != LayerNormal {
			continue
		}
		seen = true
		if !p.Minimized() {
			return false, nil
		}
	}
	return seen, nil
}

// SetAppHidden minimizes or restores every user-level window of pid.
func (b *LinuxBackend) SetAppHidden(ctx context.Context, pid int, hidden bool) error {
	props, err := b.clientProps(ctx)
	if err != nil {
		return err
	}
	var firstErr error
	for _, p := range props {
		if p.PID != pid || layerFor(p) != LayerNormal || p.Minimized() == hidden {
			continue
		}
		if err := b.SetMinimized(ctx, WindowID(p.ID), hidden); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Raise restacks a window to the top of its desktop.
func (b *LinuxBackend) Raise(_ context.Context, id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.RestackAbove(uint32(id))
}
