package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/1broseidon/quietwin/internal/automation"
	"github.com/1broseidon/quietwin/internal/capture"
	"github.com/1broseidon/quietwin/internal/match"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/restore"
	"github.com/1broseidon/quietwin/internal/tabs"
)

// targetFlags select the window an operation acts on.
type targetFlags struct {
	id     string
	pid    int
	bundle string
	app    string
	title  string
	wait   time.Duration

	tabTitle   string
	tabURL     string
	tabProfile string
	tabIndex   int
}

func (f *targetFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.id, "id", "", "window id (decimal or 0x hex, as printed by 'quietwin windows')")
	fs.IntVar(&f.pid, "pid", 0, "owning process id")
	fs.StringVar(&f.bundle, "bundle", "", "exact application id (GTK application id or WM_CLASS instance)")
	fs.StringVar(&f.app, "app", "", "application name substring")
	fs.StringVar(&f.title, "title", "", "window title substring")
	fs.DurationVar(&f.wait, "wait", 0, "keep looking for a matching window this long (e.g. 5s)")
	fs.StringVar(&f.tabTitle, "tab-title", "", "switch the browser to the tab whose title contains this first")
	fs.StringVar(&f.tabURL, "tab-url", "", "switch the browser to the tab whose URL contains this first")
	fs.IntVar(&f.tabIndex, "tab-index", 0, "switch the browser to this zero-based tab first")
	fs.StringVar(&f.tabProfile, "tab-profile", "", "browser profile from the config")
}

func (f *targetFlags) selectors(cmd *cobra.Command) (match.Selectors, *tabs.Selection, error) {
	var sel match.Selectors
	if f.id != "" {
		id, err := automation.ParseWindowID(f.id)
		if err != nil {
			return sel, nil, usageError(cmd.Name(), err)
		}
		sel.WindowID = &id
	}
	if cmd.Flags().Changed("pid") {
		pid := f.pid
		sel.PID = &pid
	}
	sel.BundleID = f.bundle
	sel.App = f.app
	sel.Title = f.title

	fs := cmd.Flags()
	if !fs.Changed("tab-title") && !fs.Changed("tab-url") && !fs.Changed("tab-index") && !fs.Changed("tab-profile") {
		return sel, nil, nil
	}
	tab := &tabs.Selection{Profile: f.tabProfile, Title: f.tabTitle, URL: f.tabURL}
	if fs.Changed("tab-index") {
		if f.tabIndex < 0 {
			return sel, nil, usageError(cmd.Name(), fmt.Errorf("tab-index must be non-negative, got %d", f.tabIndex))
		}
		idx := f.tabIndex
		tab.Index = &idx
	}
	return sel, tab, nil
}

// restoreFlags override the configured restore behaviour; only flags given
// on the command line take effect.
type restoreFlags struct {
	restore      bool
	hardReattach bool
	spaceNudge   bool
}

func (f *restoreFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.restore, "restore", true, "restore the previous focus, window and desktop afterwards")
	fs.BoolVar(&f.hardReattach, "hard-reattach", true, "allow the forced re-activation fallback")
	fs.BoolVar(&f.spaceNudge, "space-nudge", false, "allow the neighbor-desktop gesture fallback")
}

func (f *restoreFlags) flags(cmd *cobra.Command) restore.Flags {
	var out restore.Flags
	fs := cmd.Flags()
	if fs.Changed("restore") {
		v := f.restore
		out.Restore = &v
	}
	if fs.Changed("hard-reattach") {
		v := f.hardReattach
		out.HardReattach = &v
	}
	if fs.Changed("space-nudge") {
		v := f.spaceNudge
		out.SpaceNudge = &v
	}
	return out
}

// parseAction reads the compact action form used by capture --action:
//
//	click:X,Y[,BUTTON[,COUNT]]  move:X,Y  type:TEXT  key:COMBO  scroll:DX,DY
func parseAction(s string) (platform.Action, error) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok {
		return platform.Action{}, fmt.Errorf("action %q must look like kind:arguments (e.g. click:10,20)", s)
	}
	a := platform.Action{Kind: platform.ActionKind(strings.ToLower(strings.TrimSpace(kind)))}
	switch a.Kind {
	case platform.ActionClick:
		n, err := ints(rest, 2, 4)
		if err != nil {
			return a, fmt.Errorf("click: %w", err)
		}
		a.X, a.Y = n[0], n[1]
		if len(n) > 2 {
			a.Button = n[2]
		}
		if len(n) > 3 {
			a.Count = n[3]
		}
	case platform.ActionMove:
		n, err := ints(rest, 2, 2)
		if err != nil {
			return a, fmt.Errorf("move: %w", err)
		}
		a.X, a.Y = n[0], n[1]
	case platform.ActionScroll:
		n, err := ints(rest, 2, 2)
		if err != nil {
			return a, fmt.Errorf("scroll: %w", err)
		}
		a.DX, a.DY = n[0], n[1]
	case platform.ActionType:
		a.Text = rest
	case platform.ActionKey:
		a.Keys = rest
	}
	return a, a.Validate()
}

// parseCrop reads X,Y,WIDTH,HEIGHT.
func parseCrop(s string) (*capture.Crop, error) {
	n, err := ints(s, 4, 4)
	if err != nil {
		return nil, fmt.Errorf("crop: %w", err)
	}
	return &capture.Crop{X: n[0], Y: n[1], Width: n[2], Height: n[3]}, nil
}

func ints(s string, lo, hi int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) < lo || len(parts) > hi {
		if lo == hi {
			return nil, fmt.Errorf("expected %d comma-separated integers, got %q", lo, s)
		}
		return nil, fmt.Errorf("expected %d to %d comma-separated integers, got %q", lo, hi, s)
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", p)
		}
		out[i] = n
	}
	return out, nil
}
