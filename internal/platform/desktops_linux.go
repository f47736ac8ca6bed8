//go:build linux

package platform

import (
	"context"
	"fmt"

	"github.com/1broseidon/quietwin/internal/x11"
)

// requiredDesktopAtoms are the window-manager hints the desktop layer needs.
var requiredDesktopAtoms = []string{
	"_NET_CURRENT_DESKTOP",
	"_NET_NUMBER_OF_DESKTOPS",
	"_NET_WM_DESKTOP",
	"_NET_CLIENT_LIST_STACKING",
}

type linuxDesktops struct {
	conn *x11.Connection
}

func (d *linuxDesktops) Probe() error {
	if d.conn == nil {
		return fmt.Errorf("x11 backend connection is nil")
	}
	for _, atom := range requiredDesktopAtoms {
		if !d.conn.Supports(atom) {
			return fmt.Errorf("window manager does not support %s", atom)
		}
	}
	return nil
}

// DisplaySpaces reports one entry per monitor. EWMH desktops span every
// monitor, so each entry carries the same current desktop and the window
// stacks of the windows whose centre falls on that monitor.
func (d *linuxDesktops) DisplaySpaces(_ context.Context) ([]map[string]any, error) {
	current, err := d.conn.GetCurrentDesktop()
	if err != nil {
		return nil, err
	}
	count, err := d.conn.GetDesktopCount()
	if err != nil {
		return nil, err
	}
	monitors, err := d.conn.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 || count <= 0 {
		return nil, nil
	}
	clients, err := d.conn.ClientListStacking()
	if err != nil {
		return nil, err
	}

	// stacks[monitor][desktop] holds window ids top-first.
	stacks := make([][][]any, len(monitors))
	for i := range stacks {
		stacks[i] = make([][]any, count)
	}
	for i := len(clients) - 1; i >= 0; i-- {
		p, err := d.conn.ReadWindow(clients[i])
		if err != nil || layerFor(p) != LayerNormal || p.Minimized() {
			continue
		}
		m := monitorFor(monitors, p.X+p.Width/2, p.Y+p.Height/2)
		if p.Desktop < 0 {
			for desk := range stacks[m] {
				stacks[m][desk] = append(stacks[m][desk], int(p.ID))
			}
			continue
		}
		if p.Desktop < count {
			stacks[m][p.Desktop] = append(stacks[m][p.Desktop], int(p.ID))
		}
	}

	payload := make([]map[string]any, 0, len(monitors))
	for i, m := range monitors {
		spaces := make([]any, 0, count)
		for desk := 0; desk < count; desk++ {
			spaces = append(spaces, map[string]any{
				"ManagedSpaceID": desk,
				"windows":        stacks[i][desk],
			})
		}
		payload = append(payload, map[string]any{
			"Display Identifier": m.Name,
			"Current Space":      map[string]any{"ManagedSpaceID": current},
			"Spaces":             spaces,
		})
	}
	return payload, nil
}

// SetDisplayDesktop switches the current desktop. EWMH has no per-monitor
// desktops so displayID only needs to name a known monitor.
func (d *linuxDesktops) SetDisplayDesktop(_ context.Context, displayID string, desktop int) error {
	monitors, err := d.conn.GetMonitors()
	if err != nil {
		return err
	}
	known := false
	for _, m := range monitors {
		if m.Name == displayID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown display %q", displayID)
	}
	return d.conn.SetCurrentDesktop(desktop)
}

func (d *linuxDesktops) OrderWindowAbove(_ context.Context, id WindowID) error {
	return d.conn.RestackAbove(uint32(id))
}

// StepDesktop moves to the neighbouring desktop, wrapping at either end.
func (d *linuxDesktops) StepDesktop(_ context.Context, direction int) error {
	current, err := d.conn.GetCurrentDesktop()
	if err != nil {
		return err
	}
	count, err := d.conn.GetDesktopCount()
	if err != nil {
		return err
	}
	if count <= 1 {
		return fmt.Errorf("only %d desktop available", count)
	}
	next := ((current+direction)%count + count) % count
	return d.conn.SetCurrentDesktop(next)
}

func monitorFor(monitors []x11.Monitor, x, y int) int {
	for i, m := range monitors {
		if x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height {
			return i
		}
	}
	return 0
}
