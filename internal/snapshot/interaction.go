package snapshot

import (
	"context"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/platform"
)

// TargetInteraction is the window-level state around the target of an
// input action.
type TargetInteraction struct {
	Target             platform.Window    `json:"target"`
	AppWasHidden       bool               `json:"app_was_hidden"`
	TargetWasMinimized bool               `json:"target_was_minimized"`
	AppFocusedID       platform.WindowID  `json:"app_focused_id,omitempty"`
	AppFocusedTitle    string             `json:"app_focused_title,omitempty"`
	PriorTopWindow     *platform.WindowID `json:"prior_top_window,omitempty"`
	TargetLocation     *platform.Location `json:"target_location,omitempty"`
}

// CaptureTargetInteraction records what Prepare is about to change.
func (e *Engine) CaptureTargetInteraction(ctx context.Context, target platform.Window) *TargetInteraction {
	ti := &TargetInteraction{Target: target}

	if e.sys.Trusted() == nil {
		if hidden, err := e.sys.IsAppHidden(ctx, target.PID); err == nil {
			ti.AppWasHidden = hidden
		}
		if minimized, err := e.sys.IsMinimized(ctx, target.ID); err == nil {
			ti.TargetWasMinimized = minimized
		}
		if id, title, ok := e.sys.AppFocusedWindow(ctx, target.PID); ok {
			ti.AppFocusedID, ti.AppFocusedTitle = id, title
		}
	}

	if loc, ok := e.space.WindowSpaceMap(ctx)[target.ID]; ok {
		ti.TargetLocation = &loc
		stack := e.space.StackOf(ctx, loc)
		if len(stack) > 1 && stack[0] != target.ID {
			top := stack[0]
			ti.PriorTopWindow = &top
		}
	}

	e.log.Debug("captured target interaction",
		zap.Uint32("target", uint32(target.ID)),
		zap.Bool("app_hidden", ti.AppWasHidden),
		zap.Bool("minimized", ti.TargetWasMinimized),
		zap.Uint32("app_focused", uint32(ti.AppFocusedID)),
	)
	return ti
}
