package spaces

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/1broseidon/quietwin/internal/platform"
)

// Key aliases seen in desktop payloads.
var (
	displayKeys = []string{"Display Identifier", "display", "uuid"}
	currentKeys = []string{"Current Space", "currentSpace", "current"}
	spacesKeys  = []string{"Spaces", "spaces"}
	idKeys      = []string{"ManagedSpaceID", "id64", "id"}
	windowKeys  = []string{"windows", "WindowIDs", "wids"}
)

// desktop is one parsed virtual desktop with its window stack, top first.
type desktop struct {
	ID      int
	Windows []platform.WindowID
}

// display is one parsed display entry.
type display struct {
	ID       string
	Current  int
	Desktops []desktop
}

// index returns the position of desktop id in the display's ordering.
func (d display) index(id int) int {
	for i, desk := range d.Desktops {
		if desk.ID == id {
			return i
		}
	}
	return -1
}

// activeStack returns the window stack of the current desktop.
func (d display) activeStack() []platform.WindowID {
	for _, desk := range d.Desktops {
		if desk.ID == d.Current {
			return desk.Windows
		}
	}
	return nil
}

// parsePayload extracts displays from a raw payload. Entries it cannot
// make sense of are dropped.
func parsePayload(raw []map[string]any) []display {
	var out []display
	for _, entry := range raw {
		d, ok := parseDisplay(entry)
		if ok {
			out = append(out, d)
		}
	}
	return out
}

func parseDisplay(entry map[string]any) (display, bool) {
	if entry == nil {
		return display{}, false
	}
	id, ok := lookupString(entry, displayKeys)
	if !ok || id == "" {
		return display{}, false
	}
	current, ok := lookupID(entry, currentKeys)
	if !ok {
		return display{}, false
	}

	d := display{ID: id, Current: current}
	if list, ok := lookup(entry, spacesKeys); ok {
		items, _ := list.([]any)
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			deskID, ok := lookupID(m, idKeys)
			if !ok {
				continue
			}
			d.Desktops = append(d.Desktops, desktop{ID: deskID, Windows: windowList(m)})
		}
	}
	return d, true
}

// lookup finds the first alias present in m or in a nested "layout" map.
func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	if layout, ok := m["layout"].(map[string]any); ok {
		return lookup(layout, keys)
	}
	return nil, false
}

func lookupString(m map[string]any, keys []string) (string, bool) {
	v, ok := lookup(m, keys)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case fmt.Stringer:
		return s.String(), true
	}
	if n, ok := toInt(v); ok {
		return strconv.Itoa(n), true
	}
	return "", false
}

// lookupID resolves a desktop id that is either a bare number or a map
// holding one of the id aliases.
func lookupID(m map[string]any, keys []string) (int, bool) {
	v, ok := lookup(m, keys)
	if !ok {
		return 0, false
	}
	if nested, ok := v.(map[string]any); ok {
		return lookupID(nested, idKeys)
	}
	return toInt(v)
}

func windowList(m map[string]any) []platform.WindowID {
	v, ok := lookup(m, windowKeys)
	if !ok {
		return nil
	}
	var ids []platform.WindowID
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if n, ok := toInt(item); ok && n > 0 {
				ids = append(ids, platform.WindowID(n))
			}
		}
	case []int:
		for _, n := range list {
			if n > 0 {
				ids = append(ids, platform.WindowID(n))
			}
		}
	case []platform.WindowID:
		ids = append(ids, list...)
	}
	return ids
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
