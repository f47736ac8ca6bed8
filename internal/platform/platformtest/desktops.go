package platformtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/quietwin/internal/platform"
)

// Desktops is an in-memory platform.DesktopEntrypoints. Desktop ids run
// from 1 to Count on every display.
type Desktops struct {
	mu sync.Mutex

	Count     int
	Current   map[string]int
	Locations map[platform.WindowID]platform.Location
	// Order is the global stacking order, top first.
	Order []platform.WindowID

	ProbeErr     error
	FailDisplays map[string]bool
	// Payload, when set, is returned verbatim by DisplaySpaces.
	Payload []map[string]any
	// Frozen makes desktop switches succeed without effect.
	Frozen bool

	Steps []int
	Sets  []platform.Location
}

// NewDesktops returns count desktops on each display, all on desktop 1.
func NewDesktops(count int, displays ...string) *Desktops {
	d := &Desktops{
		Count:        count,
		Current:      make(map[string]int),
		Locations:    make(map[platform.WindowID]platform.Location),
		FailDisplays: make(map[string]bool),
	}
	for _, id := range displays {
		d.Current[id] = 1
	}
	return d
}

// Place assigns a window to a display desktop, below existing windows.
func (d *Desktops) Place(id platform.WindowID, display string, desktop int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Locations[id] = platform.Location{DisplayID: display, DesktopID: desktop}
	d.Order = append(d.Order, id)
}

// SetCurrent switches display to desktop.
func (d *Desktops) SetCurrent(display string, desktop int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Current[display] = desktop
}

// CurrentOf returns display's current desktop.
func (d *Desktops) CurrentOf(display string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Current[display]
}

func (d *Desktops) location(id platform.WindowID) (platform.Location, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	loc, ok := d.Locations[id]
	return loc, ok
}

func (d *Desktops) raise(id platform.WindowID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.Order {
		if w == id {
			copy(d.Order[1:i+1], d.Order[:i])
			d.Order[0] = id
			return
		}
	}
}

func (d *Desktops) Probe() error { return d.ProbeErr }

func (d *Desktops) DisplaySpaces(context.Context) ([]map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Payload != nil {
		return d.Payload, nil
	}

	names := make([]string, 0, len(d.Current))
	for name := range d.Current {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		spaces := make([]any, 0, d.Count)
		for desk := 1; desk <= d.Count; desk++ {
			var windows []any
			for _, id := range d.Order {
				if loc := d.Locations[id]; loc.DisplayID == name && loc.DesktopID == desk {
					windows = append(windows, int(id))
				}
			}
			spaces = append(spaces, map[string]any{"ManagedSpaceID": desk, "windows": windows})
		}
		out = append(out, map[string]any{
			"Display Identifier": name,
			"Current Space":      map[string]any{"ManagedSpaceID": d.Current[name]},
			"Spaces":             spaces,
		})
	}
	return out, nil
}

func (d *Desktops) SetDisplayDesktop(_ context.Context, display string, desktop int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Sets = append(d.Sets, platform.Location{DisplayID: display, DesktopID: desktop})
	if d.FailDisplays[display] {
		return fmt.Errorf("display %s refused desktop switch", display)
	}
	if _, ok := d.Current[display]; !ok {
		return fmt.Errorf("unknown display %q", display)
	}
	if !d.Frozen {
		d.Current[display] = desktop
	}
	return nil
}

func (d *Desktops) OrderWindowAbove(_ context.Context, id platform.WindowID) error {
	d.mu.Lock()
	found := false
	for _, w := range d.Order {
		if w == id {
			found = true
			break
		}
	}
	d.mu.Unlock()
	if !found {
		return fmt.Errorf("window %d not on any desktop", id)
	}
	d.raise(id)
	return nil
}

func (d *Desktops) StepDesktop(_ context.Context, direction int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Steps = append(d.Steps, direction)
	if d.Frozen {
		return nil
	}
	for name, cur := range d.Current {
		next := cur + direction
		if next < 1 {
			next = d.Count
		}
		if next > d.Count {
			next = 1
		}
		d.Current[name] = next
	}
	return nil
}
