package x11

import (
	"sync"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	supportedOnce sync.Once
	supported     map[string]bool

	compositeOnce sync.Once
	compositeErr  error

	xtestOnce sync.Once
	xtestErr  error
}

// NewConnection establishes a connection to the X11 server and initializes required extensions
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	// Keysym tables are needed to translate key names for synthetic input.
	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// Supports reports whether the running window manager lists atom in
// _NET_SUPPORTED. The list is read once per connection.
func (c *Connection) Supports(atom string) bool {
	c.supportedOnce.Do(func() {
		c.supported = make(map[string]bool)
		names, err := ewmh.SupportedGet(c.XUtil)
		if err != nil {
			return
		}
		for _, name := range names {
			c.supported[name] = true
		}
	})
	return c.supported[atom]
}

// HasWindowManager reports whether an EWMH window manager is running.
func (c *Connection) HasWindowManager() bool {
	win, err := ewmh.SupportingWmCheckGet(c.XUtil, c.Root)
	return err == nil && win != 0
}

// CompositeErr initializes the Composite extension once and returns the
// initialization error, if any.
func (c *Connection) CompositeErr() error {
	c.compositeOnce.Do(func() {
		c.compositeErr = composite.Init(c.XUtil.Conn())
	})
	return c.compositeErr
}

// XTestErr initializes the XTEST extension once and returns the
// initialization error, if any.
func (c *Connection) XTestErr() error {
	c.xtestOnce.Do(func() {
		c.xtestErr = xtest.Init(c.XUtil.Conn())
	})
	return c.xtestErr
}
