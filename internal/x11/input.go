package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil/keybind"
)

// KeyCode resolves a keysym name ("Return", "a", "Control_L") to its first
// keycode.
func (c *Connection) KeyCode(name string) (xproto.Keycode, error) {
	codes := keybind.StrToKeycodes(c.XUtil, name)
	if len(codes) == 0 {
		return 0, fmt.Errorf("no keycode for key %q", name)
	}
	return codes[0], nil
}

// FakeKey presses or releases a key through XTEST.
func (c *Connection) FakeKey(code xproto.Keycode, press bool) error {
	if err := c.XTestErr(); err != nil {
		return fmt.Errorf("xtest extension unavailable: %w", err)
	}
	evType := byte(xproto.KeyRelease)
	if press {
		evType = xproto.KeyPress
	}
	return xtest.FakeInputChecked(c.XUtil.Conn(), evType, byte(code), 0, c.Root, 0, 0, 0).Check()
}

// FakeButton presses or releases a pointer button through XTEST.
func (c *Connection) FakeButton(button byte, press bool) error {
	if err := c.XTestErr(); err != nil {
		return fmt.Errorf("xtest extension unavailable: %w", err)
	}
	evType := byte(xproto.ButtonRelease)
	if press {
		evType = xproto.ButtonPress
	}
	return xtest.FakeInputChecked(c.XUtil.Conn(), evType, button, 0, c.Root, 0, 0, 0).Check()
}

// FakeMotion moves the pointer to absolute root coordinates.
func (c *Connection) FakeMotion(x, y int) error {
	if err := c.XTestErr(); err != nil {
		return fmt.Errorf("xtest extension unavailable: %w", err)
	}
	return xtest.FakeInputChecked(c.XUtil.Conn(), xproto.MotionNotify, 0, 0, c.Root, int16(x), int16(y), 0).Check()
}
