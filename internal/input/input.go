// Package input injects one synthetic input action into a target window and
// puts the desktop back afterwards.
package input

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/match"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/restore"
	"github.com/1broseidon/quietwin/internal/snapshot"
	"github.com/1broseidon/quietwin/internal/tabs"
)

// Request is one input operation.
type Request struct {
	Selectors match.Selectors
	Wait      time.Duration
	Tab       *tabs.Selection
	Action    platform.Action
	Restore   restore.Flags
}

// Result reports the resolved window and how the restore went.
type Result struct {
	Window           platform.Window         `json:"window"`
	Action           string                  `json:"action"`
	RestoreAttempted bool                    `json:"restore_attempted"`
	RestoreVerified  bool                    `json:"restore_verified"`
	Restore          snapshot.RestoreOutcome `json:"restore"`
}

// InjectError reports an action the platform refused to deliver.
type InjectError struct {
	Action platform.Action
	Window platform.WindowID
	Err    error
}

func (e *InjectError) Error() string {
	return fmt.Sprintf("inject %s into window %d: %v", e.Action, e.Window, e.Err)
}

func (e *InjectError) Unwrap() error { return e.Err }

// Inject delivers action to target, wrapping failures in *InjectError.
func Inject(ctx context.Context, sys platform.System, target platform.Window, action platform.Action) error {
	if err := sys.Inject(ctx, target, action); err != nil {
		return &InjectError{Action: action, Window: target.ID, Err: err}
	}
	return nil
}

// Injector runs input operations.
type Injector struct {
	sys     platform.System
	engine  *snapshot.Engine
	bridge  *tabs.Bridge
	restore restore.Options
	log     *zap.Logger
}

// NewInjector returns an Injector. bridge may be nil when no tab selection
// will be requested.
func NewInjector(sys platform.System, engine *snapshot.Engine, bridge *tabs.Bridge, opts restore.Options, log *zap.Logger) *Injector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Injector{sys: sys, engine: engine, bridge: bridge, restore: opts, log: log.Named("input")}
}

// Run resolves the target, injects the action and restores focus, window
// and desktop state. Restore runs on every path once state was recorded.
func (in *Injector) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Action.Validate(); err != nil {
		return nil, err
	}
	action := req.Action.Normalized()
	if err := platform.RequireInput(in.sys); err != nil {
		return nil, err
	}
	if err := platform.RequireAccessibility(in.sys); err != nil {
		return nil, err
	}

	target, err := match.Await(ctx, in.sys, req.Selectors, req.Wait)
	if err != nil {
		return nil, err
	}

	coord := restore.New(in.sys, in.engine.Space(), req.Restore.Apply(in.restore), in.log)
	focus := in.engine.CaptureFocus(ctx, snapshot.FocusOptions{})
	res := &Result{Action: action.String()}
	var switched *tabs.Switched
	interactionOK := true

	defer func() {
		if err := switched.Restore(ctx); err != nil {
			in.log.Warn("failed to restore browser tab", zap.Error(err))
		}
		res.Restore = coord.Restore(ctx, focus)
		res.RestoreAttempted = res.Restore.Attempted
		res.RestoreVerified = res.Restore.Verified && interactionOK
	}()

	if req.Tab != nil {
		if in.bridge == nil {
			return nil, tabs.ErrNoEndpoint
		}
		target, switched, err = in.bridge.Retarget(ctx, *req.Tab, in.sys, target)
		if err != nil {
			return nil, err
		}
	}
	res.Window = target

	interactionOK, err = Interact(ctx, in.sys, in.engine, coord, target, action)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Prepare makes target reachable for input when it is not already the
// focused window. The returned interaction, nil when nothing was changed,
// must be handed to RestoreInteraction afterwards, also on error.
func Prepare(ctx context.Context, sys platform.System, engine *snapshot.Engine, coord *restore.Coordinator, target platform.Window) (*snapshot.TargetInteraction, error) {
	if focused, ok := sys.FocusedWindow(ctx); ok && focused == target.ID {
		return nil, nil
	}
	ti := engine.CaptureTargetInteraction(ctx, target)
	if err := coord.PrepareInteraction(ctx, ti); err != nil {
		return ti, fmt.Errorf("prepare window %d for input: %w", target.ID, err)
	}
	return ti, nil
}

// Interact injects action into target, preparing it first, and restores its
// window-level state afterwards. The returned bool reports whether that
// window-level restore verified.
func Interact(ctx context.Context, sys platform.System, engine *snapshot.Engine, coord *restore.Coordinator, target platform.Window, action platform.Action) (bool, error) {
	ti, err := Prepare(ctx, sys, engine, coord, target)
	if err != nil {
		return coord.RestoreInteraction(ctx, ti), err
	}
	injectErr := Inject(ctx, sys, target, action)
	return coord.RestoreInteraction(ctx, ti), injectErr
}
