package mcp

import (
	"github.com/1broseidon/quietwin/internal/automation"
	"github.com/1broseidon/quietwin/internal/parity"
	"github.com/1broseidon/quietwin/internal/platform"
)

// TargetInput selects the window a tool acts on. At least one selector is
// required.
type TargetInput struct {
	WindowID string    `json:"window_id,omitempty" jsonschema:"Window id as printed by list_windows (decimal or 0x hex). Ids are only valid while the window exists."`
	PID      *int      `json:"pid,omitempty" jsonschema:"Owning process id"`
	BundleID string    `json:"bundle_id,omitempty" jsonschema:"Exact application id (GTK application id or WM_CLASS instance)"`
	App      string    `json:"app,omitempty" jsonschema:"Case-insensitive substring of the application name (WM_CLASS class)"`
	Title    string    `json:"title,omitempty" jsonschema:"Case-insensitive substring of the window title"`
	WaitMS   int       `json:"wait_ms,omitempty" jsonschema:"Keep polling for a matching window for up to this many milliseconds (default: fail immediately)"`
	Tab      *TabInput `json:"tab,omitempty" jsonschema:"Browser tab to switch to before acting. Requires a browsers entry in the config."`
}

// TabInput selects a browser tab through the DevTools endpoint.
type TabInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"Browser profile name from the config"`
	Title   string `json:"title,omitempty" jsonschema:"Case-insensitive substring of the tab title"`
	URL     string `json:"url,omitempty" jsonschema:"Case-insensitive substring of the tab URL"`
	Index   *int   `json:"index,omitempty" jsonschema:"Zero-based tab index in DevTools order"`
}

// ActionInput is one synthetic input action. Coordinates are relative to the
// window's top-left corner.
type ActionInput struct {
	Kind   string `json:"kind" jsonschema:"One of click, move, type, key, scroll"`
	X      int    `json:"x,omitempty" jsonschema:"Horizontal position for click and move"`
	Y      int    `json:"y,omitempty" jsonschema:"Vertical position for click and move"`
	Button int    `json:"button,omitempty" jsonschema:"Mouse button 1-3 for click (default: 1)"`
	Count  int    `json:"count,omitempty" jsonschema:"Click count 1-3 (default: 1)"`
	Text   string `json:"text,omitempty" jsonschema:"Text to type"`
	Keys   string `json:"keys,omitempty" jsonschema:"Key combination such as ctrl+shift+t"`
	DX     int    `json:"dx,omitempty" jsonschema:"Horizontal scroll steps"`
	DY     int    `json:"dy,omitempty" jsonschema:"Vertical scroll steps, positive scrolls down"`
}

func (a ActionInput) action() platform.Action {
	return platform.Action{
		Kind:   platform.ActionKind(a.Kind),
		X:      a.X,
		Y:      a.Y,
		Button: a.Button,
		Count:  a.Count,
		Text:   a.Text,
		Keys:   a.Keys,
		DX:     a.DX,
		DY:     a.DY,
	}
}

// RestoreInput overrides the configured restore behaviour for one call.
type RestoreInput struct {
	Enabled      *bool `json:"enabled,omitempty" jsonschema:"Restore the previous focus, window and desktop afterwards (default: config)"`
	HardReattach *bool `json:"hard_reattach,omitempty" jsonschema:"Allow the forced re-activation fallback (default: config)"`
	SpaceNudge   *bool `json:"space_nudge,omitempty" jsonschema:"Allow the neighbor-desktop gesture fallback (default: config)"`
}

// CropInput is a window-relative crop rectangle; it is clamped to the image.
type CropInput struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CaptureWindowInput is the input for the capture_window tool.
type CaptureWindowInput struct {
	Target    TargetInput   `json:"target" jsonschema:"Window to capture"`
	Format    string        `json:"format,omitempty" jsonschema:"png or jpeg (default: config, png)"`
	Quality   int           `json:"quality,omitempty" jsonschema:"JPEG quality 1-100 (default: config, 90)"`
	Crop      *CropInput    `json:"crop,omitempty" jsonschema:"Optional crop rectangle"`
	Action    *ActionInput  `json:"action,omitempty" jsonschema:"Optional input action performed just before the capture"`
	Restore   *RestoreInput `json:"restore,omitempty"`
	Strict    bool          `json:"strict,omitempty" jsonschema:"Verify the desktop looks the same afterwards and report parity diagnostics"`
	Threshold float64       `json:"threshold,omitempty" jsonschema:"Strict-mode screenshot difference threshold 0-1 (default: config, 0.05)"`
}

// CaptureWindowOutput describes a capture; the image travels as content.
type CaptureWindowOutput struct {
	Window           platform.Window `json:"window"`
	Format           string          `json:"format"`
	Width            int             `json:"width"`
	Height           int             `json:"height"`
	Bytes            int             `json:"bytes"`
	Method           string          `json:"method"`
	Action           string          `json:"action,omitempty"`
	RestoreAttempted bool            `json:"restore_attempted"`
	RestoreVerified  bool            `json:"restore_verified"`
	RestoreStrategy  string          `json:"restore_strategy,omitempty"`
	Parity           *parity.Report  `json:"parity,omitempty"`
}

// SendInputInput is the input for the send_input tool.
type SendInputInput struct {
	Target  TargetInput   `json:"target" jsonschema:"Window to send input to"`
	Action  ActionInput   `json:"action" jsonschema:"The input action"`
	Restore *RestoreInput `json:"restore,omitempty"`
}

// SendInputOutput is the output for the send_input tool.
type SendInputOutput struct {
	Window           platform.Window `json:"window"`
	Action           string          `json:"action"`
	RestoreAttempted bool            `json:"restore_attempted"`
	RestoreVerified  bool            `json:"restore_verified"`
	RestoreStrategy  string          `json:"restore_strategy,omitempty"`
}

// CheckPermissionsInput is the (empty) input for the check_permissions tool.
type CheckPermissionsInput struct{}

// CheckPermissionsOutput is the output for the check_permissions tool.
type CheckPermissionsOutput struct {
	AllGranted  bool                   `json:"all_granted"`
	Permissions automation.Permissions `json:"permissions"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	App   string `json:"app,omitempty" jsonschema:"Only windows whose application name contains this"`
	Title string `json:"title,omitempty" jsonschema:"Only windows whose title contains this"`
	All   bool   `json:"all,omitempty" jsonschema:"Include docks, panels and other non-user-level windows"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []platform.Window `json:"windows"`
}
