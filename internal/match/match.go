// Package match selects one target window from an inventory snapshot.
package match

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/1broseidon/quietwin/internal/platform"
)

// Selectors narrow the inventory. Zero-valued fields are skipped.
type Selectors struct {
	WindowID *platform.WindowID
	PID      *int
	BundleID string
	App      string
	Title    string
}

// Empty reports whether no selector was given.
func (s Selectors) Empty() bool {
	return s.WindowID == nil && s.PID == nil &&
		strings.TrimSpace(s.BundleID) == "" &&
		strings.TrimSpace(s.App) == "" &&
		strings.TrimSpace(s.Title) == ""
}

// Describe renders the applied filters, e.g. `app="Firefox" title~"docs"`.
func (s Selectors) Describe() string {
	var parts []string
	if s.WindowID != nil {
		parts = append(parts, "id="+strconv.FormatUint(uint64(*s.WindowID), 10))
	}
	if s.PID != nil {
		parts = append(parts, "pid="+strconv.Itoa(*s.PID))
	}
	if v := strings.TrimSpace(s.BundleID); v != "" {
		parts = append(parts, fmt.Sprintf("bundle=%q", v))
	}
	if v := strings.TrimSpace(s.App); v != "" {
		parts = append(parts, fmt.Sprintf("app~%q", v))
	}
	if v := strings.TrimSpace(s.Title); v != "" {
		parts = append(parts, fmt.Sprintf("title~%q", v))
	}
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, " ")
}

// NotFoundError is returned when no window survives the filters.
type NotFoundError struct {
	Selectors Selectors
}

func (e *NotFoundError) Error() string {
	return "no window matches " + e.Selectors.Describe()
}

// Resolve picks the window a human would call "the app's window" for the
// given selectors.
func Resolve(windows []platform.Window, sel Selectors) (platform.Window, error) {
	if sel.WindowID != nil {
		for _, w := range windows {
			if w.ID == *sel.WindowID {
				return w, nil
			}
		}
		return platform.Window{}, &NotFoundError{Selectors: sel}
	}

	candidates := make([]platform.Window, 0, len(windows))
	for _, w := range windows {
		if w.Layer == platform.LayerNormal {
			candidates = append(candidates, w)
		}
	}
	if sel.PID != nil {
		candidates = filter(candidates, func(w platform.Window) bool { return w.PID == *sel.PID })
	}
	if bundle := strings.TrimSpace(sel.BundleID); bundle != "" {
		candidates = filter(candidates, func(w platform.Window) bool { return strings.EqualFold(w.BundleID, bundle) })
	}
	app := strings.ToLower(strings.TrimSpace(sel.App))
	if app != "" {
		candidates = filter(candidates, func(w platform.Window) bool {
			return strings.Contains(strings.ToLower(w.OwnerName), app)
		})
	}
	if title := strings.ToLower(strings.TrimSpace(sel.Title)); title != "" {
		candidates = filter(candidates, func(w platform.Window) bool {
			return strings.Contains(strings.ToLower(w.Title), title)
		})
	}
	if len(candidates) == 0 {
		return platform.Window{}, &NotFoundError{Selectors: sel}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if sa, sb := ownerStrength(a.OwnerName, app), ownerStrength(b.OwnerName, app); sa != sb {
			return sa > sb
		}
		if ra, rb := a.RenderableWithoutActivation(), b.RenderableWithoutActivation(); ra != rb {
			return ra
		}
		if qa, qb := TitleQuality(a.Title), TitleQuality(b.Title); qa != qb {
			return qa > qb
		}
		return lessByAreaThenID(a, b)
	})
	return candidates[0], nil
}

// ResolveAfterSelection re-resolves a target after an external selection
// change such as a browser tab switch. Only windows whose owner and title
// both match are considered.
func ResolveAfterSelection(windows []platform.Window, owner, title string) (platform.Window, error) {
	owner = strings.ToLower(strings.TrimSpace(owner))
	title = strings.ToLower(strings.TrimSpace(title))

	var candidates []platform.Window
	for _, w := range windows {
		if w.Layer != platform.LayerNormal {
			continue
		}
		if owner != "" && !strings.Contains(strings.ToLower(w.OwnerName), owner) {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(w.Title), title) {
			continue
		}
		candidates = append(candidates, w)
	}
	if len(candidates) == 0 {
		return platform.Window{}, &NotFoundError{Selectors: Selectors{App: owner, Title: title}}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := a.RenderableWithoutActivation(), b.RenderableWithoutActivation(); ra != rb {
			return ra
		}
		return lessByAreaThenID(a, b)
	})
	return candidates[0], nil
}

func lessByAreaThenID(a, b platform.Window) bool {
	if a.Area() != b.Area() {
		return a.Area() > b.Area()
	}
	return a.ID < b.ID
}

func filter(windows []platform.Window, keep func(platform.Window) bool) []platform.Window {
	out := windows[:0:0]
	for _, w := range windows {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

func ownerStrength(owner, app string) int {
	if app == "" {
		return 0
	}
	owner = strings.ToLower(strings.TrimSpace(owner))
	switch {
	case owner == app:
		return 2
	case strings.Contains(owner, app):
		return 1
	}
	return 0
}

var placeholderTitles = map[string]bool{
	"untitled": true,
	"(null)":   true,
	"-":        true,
}

var genericTitleWords = []string{"window", "panel", "service", "helper", "popup", "menu", "tooltip"}

// TitleQuality scores a title: 0 for empty or placeholder, 1 for generic
// auxiliary names, 2 otherwise.
func TitleQuality(title string) int {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" || placeholderTitles[t] {
		return 0
	}
	for _, word := range genericTitleWords {
		if t == word || strings.HasPrefix(t, word+" ") || strings.HasSuffix(t, " "+word) {
			return 1
		}
	}
	return 2
}
