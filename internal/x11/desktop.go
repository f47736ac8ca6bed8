package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

const (
	// sourcePager marks client messages as direct user/pager actions so
	// focus-stealing prevention does not drop them.
	sourcePager   = 2
	stickyDesktop = 0xFFFFFFFF
)

// GetCurrentDesktop returns the current virtual desktop number (0-indexed).
// Uses _NET_CURRENT_DESKTOP atom.
func (c *Connection) GetCurrentDesktop() (int, error) {
	desktop, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get current desktop: %w", err)
	}
	return int(desktop), nil
}

// GetWindowDesktop returns the desktop number a window is on.
// Uses _NET_WM_DESKTOP atom. Returns -1 for "sticky" windows (visible on all desktops).
func (c *Connection) GetWindowDesktop(windowID uint32) (int, error) {
	desktop, err := ewmh.WmDesktopGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return 0, fmt.Errorf("failed to get window desktop: %w", err)
	}
	if desktop == stickyDesktop {
		return -1, nil
	}
	return int(desktop), nil
}

// GetDesktopCount returns the number of virtual desktops.
func (c *Connection) GetDesktopCount() (int, error) {
	count, err := ewmh.NumberOfDesktopsGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get desktop count: %w", err)
	}
	return int(count), nil
}

// SetCurrentDesktop switches the visible virtual desktop.
func (c *Connection) SetCurrentDesktop(desktop int) error {
	if desktop < 0 {
		return fmt.Errorf("invalid desktop %d", desktop)
	}
	return c.sendRootMessage(c.Root, "_NET_CURRENT_DESKTOP", uint32(desktop), uint32(xproto.TimeCurrentTime))
}

// FocusWindow activates and raises exactly this window using
// _NET_ACTIVE_WINDOW, bypassing application-level activation.
func (c *Connection) FocusWindow(windowID uint32) error {
	return c.sendRootMessage(xproto.Window(windowID), "_NET_ACTIVE_WINDOW", sourcePager, uint32(xproto.TimeCurrentTime), 0)
}

// RestackAbove raises a window to the top of its stack without giving it
// input focus. Falls back to a plain ConfigureWindow when the window manager
// does not support _NET_RESTACK_WINDOW.
func (c *Connection) RestackAbove(windowID uint32) error {
	if c.Supports("_NET_RESTACK_WINDOW") {
		err := c.sendRootMessage(xproto.Window(windowID), "_NET_RESTACK_WINDOW", sourcePager, 0, uint32(xproto.StackModeAbove))
		if err == nil {
			return nil
		}
	}
	return xproto.ConfigureWindowChecked(
		c.XUtil.Conn(),
		xproto.Window(windowID),
		xproto.ConfigWindowStackMode,
		[]uint32{uint32(xproto.StackModeAbove)},
	).Check()
}

// sendRootMessage builds an EWMH client message by hand. The xgbutil ewmh
// request helpers type-assert every datum to int and panic on anything else.
func (c *Connection) sendRootMessage(window xproto.Window, atom string, data ...uint32) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(atom)), atom).Reply()
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", atom, err)
	}

	payload := make([]uint32, 5)
	copy(payload, data)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: window,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
