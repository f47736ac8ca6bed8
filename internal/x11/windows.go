package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

const (
	stateHidden     = "_NET_WM_STATE_HIDDEN"
	stateFullscreen = "_NET_WM_STATE_FULLSCREEN"

	wmStateRemove = 0
	wmStateAdd    = 1
)

// WindowProps is the raw property set read for one managed client window.
type WindowProps struct {
	ID       xproto.Window
	PID      int
	Class    string
	Instance string
	AppID    string
	Title    string
	Types    []string
	States   []string
	Opacity  float64
	Desktop  int
	Viewable bool
	Iconic   bool
	X        int
	Y        int
	Width    int
	Height   int
}

// HasState reports whether the _NET_WM_STATE list contains state.
func (p WindowProps) HasState(state string) bool {
	for _, s := range p.States {
		if s == state {
			return true
		}
	}
	return false
}

// HasType reports whether the _NET_WM_WINDOW_TYPE list contains t.
func (p WindowProps) HasType(t string) bool {
	for _, s := range p.Types {
		if s == t {
			return true
		}
	}
	return false
}

// Minimized reports iconified windows by either EWMH or ICCCM state.
func (p WindowProps) Minimized() bool {
	return p.Iconic || p.HasState(stateHidden)
}

// Fullscreen reports _NET_WM_STATE_FULLSCREEN.
func (p WindowProps) Fullscreen() bool {
	return p.HasState(stateFullscreen)
}

// ClientListStacking returns managed windows bottom-to-top.
func (c *Connection) ClientListStacking() ([]xproto.Window, error) {
	clients, err := ewmh.ClientListStackingGet(c.XUtil)
	if err == nil {
		return clients, nil
	}
	// Some window managers only maintain the mapping-order list.
	clients, err2 := ewmh.ClientListGet(c.XUtil)
	if err2 != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	return clients, nil
}

// ReadWindow reads every property needed to describe a client window.
// Missing optional properties degrade to zero values.
func (c *Connection) ReadWindow(win xproto.Window) (WindowProps, error) {
	props := WindowProps{ID: win, Opacity: 1, Desktop: -1}

	x, y, w, h, err := c.windowRect(win)
	if err != nil {
		return props, err
	}
	props.X, props.Y, props.Width, props.Height = x, y, w, h

	if attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply(); err == nil {
		props.Viewable = attrs.MapState == xproto.MapStateViewable
	}
	if pid, err := ewmh.WmPidGet(c.XUtil, win); err == nil {
		props.PID = int(pid)
	}
	if cls, err := icccm.WmClassGet(c.XUtil, win); err == nil {
		props.Class = strings.TrimSpace(cls.Class)
		props.Instance = strings.TrimSpace(cls.Instance)
	}
	if appID, err := xprop.PropValStr(xprop.GetProperty(c.XUtil, win, "_GTK_APPLICATION_ID")); err == nil {
		props.AppID = strings.TrimSpace(appID)
	}
	props.Title = c.windowTitle(win)
	if types, err := ewmh.WmWindowTypeGet(c.XUtil, win); err == nil {
		props.Types = types
	}
	if states, err := ewmh.WmStateGet(c.XUtil, win); err == nil {
		props.States = states
	}
	if opacity, err := ewmh.WmWindowOpacityGet(c.XUtil, win); err == nil {
		props.Opacity = opacity
	}
	if desktop, err := c.GetWindowDesktop(uint32(win)); err == nil {
		props.Desktop = desktop
	}
	if st, err := icccm.WmStateGet(c.XUtil, win); err == nil {
		props.Iconic = st.State == icccm.StateIconic
	}
	return props, nil
}

// SetWindowState adds or removes one _NET_WM_STATE atom.
func (c *Connection) SetWindowState(windowID uint32, state string, on bool) error {
	stateAtom, err := xprop.Atm(c.XUtil, state)
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", state, err)
	}
	action := uint32(wmStateRemove)
	if on {
		action = wmStateAdd
	}
	return c.sendRootMessage(xproto.Window(windowID), "_NET_WM_STATE", action, uint32(stateAtom), 0, sourcePager)
}

// SetFullscreen toggles _NET_WM_STATE_FULLSCREEN.
func (c *Connection) SetFullscreen(windowID uint32, on bool) error {
	return c.SetWindowState(windowID, stateFullscreen, on)
}

// Iconify minimizes a window via WM_CHANGE_STATE.
func (c *Connection) Iconify(windowID uint32) error {
	return c.sendRootMessage(xproto.Window(windowID), "WM_CHANGE_STATE", icccm.StateIconic)
}

// Deiconify maps a minimized window back without activating it.
func (c *Connection) Deiconify(windowID uint32) error {
	xwindow.New(c.XUtil, xproto.Window(windowID)).Map()
	if err := c.SetWindowState(windowID, stateHidden, false); err != nil {
		return err
	}
	return nil
}

// TopLevel walks up the window tree to the direct child of the root, which
// is the frame window under reparenting window managers.
func (c *Connection) TopLevel(win xproto.Window) xproto.Window {
	current := win
	for i := 0; i < 16; i++ {
		tree, err := xproto.QueryTree(c.XUtil.Conn(), current).Reply()
		if err != nil || tree.Parent == 0 || tree.Parent == c.Root {
			return current
		}
		current = tree.Parent
	}
	return current
}

// IsNormal reports whether the window is an ordinary application window:
// typed normal or dialog, or carrying no type at all.
func (p WindowProps) IsNormal() bool {
	return len(p.Types) == 0 ||
		p.HasType("_NET_WM_WINDOW_TYPE_NORMAL") ||
		p.HasType("_NET_WM_WINDOW_TYPE_DIALOG")
}

// GetActiveWindow returns _NET_ACTIVE_WINDOW.
func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

func (c *Connection) windowRect(windowID xproto.Window) (x, y, w, h int, err error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), nil
}

func (c *Connection) windowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}
