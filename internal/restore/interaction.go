package restore

import (
	"context"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/snapshot"
	"github.com/1broseidon/quietwin/internal/timeout"
)

// PrepareInteraction makes the target window of an input action reachable:
// its app is unhidden, the window un-minimized, its desktop shown, and the
// window alone is raised and focused.
func (c *Coordinator) PrepareInteraction(ctx context.Context, ti *snapshot.TargetInteraction) error {
	target := ti.Target
	if ti.AppWasHidden {
		if err := c.sys.SetAppHidden(ctx, target.PID, false); err != nil {
			return err
		}
	}
	if ti.TargetWasMinimized {
		if err := c.sys.SetMinimized(ctx, target.ID, false); err != nil {
			return err
		}
	}
	if ti.TargetLocation != nil {
		c.space.RestoreWindowDesktop(ctx, *ti.TargetLocation)
	}
	if err := c.sys.ActivateWindow(ctx, target.PID, target.ID); err != nil {
		return err
	}
	if err := c.sys.Raise(ctx, target.ID); err != nil {
		c.log.Debug("target raise failed", zap.Uint32("window", uint32(target.ID)), zap.Error(err))
	}
	return timeout.Sleep(ctx, c.opts.Settle)
}

// RestoreInteraction undoes PrepareInteraction at window level: the prior
// top window of the target's desktop is reordered back, the target
// re-minimized, the app's internal focus re-raised and the app re-hidden.
// Failures are logged and reported as false.
func (c *Coordinator) RestoreInteraction(ctx context.Context, ti *snapshot.TargetInteraction) bool {
	if ti == nil {
		return true
	}
	ok := true
	target := ti.Target

	if ti.PriorTopWindow != nil {
		if ti.TargetLocation != nil {
			c.space.RestoreWindowDesktop(ctx, *ti.TargetLocation)
		}
		if !c.space.OrderWindowToFront(ctx, *ti.PriorTopWindow) {
			if err := c.sys.Raise(ctx, *ti.PriorTopWindow); err != nil {
				c.log.Debug("failed to reorder prior top window", zap.Uint32("window", uint32(*ti.PriorTopWindow)), zap.Error(err))
				ok = false
			}
		}
	}
	if ti.TargetWasMinimized {
		if err := c.sys.SetMinimized(ctx, target.ID, true); err != nil {
			c.log.Debug("failed to re-minimize target", zap.Error(err))
			ok = false
		}
	}
	if !ti.AppWasHidden && ti.AppFocusedID != 0 && ti.AppFocusedID != target.ID {
		if err := c.sys.Raise(ctx, ti.AppFocusedID); err != nil {
			c.log.Debug("failed to re-raise app focus", zap.Uint32("window", uint32(ti.AppFocusedID)), zap.Error(err))
			ok = false
		}
	}
	if ti.AppWasHidden {
		if err := c.sys.SetAppHidden(ctx, target.PID, true); err != nil {
			c.log.Debug("failed to re-hide app", zap.Int("pid", target.PID), zap.Error(err))
			ok = false
		}
	}
	return ok
}
