// Package parity scores whether a restore really returned the desktop to
// its pre-operation state.
package parity

import (
	"context"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/raster"
	"github.com/1broseidon/quietwin/internal/snapshot"
	"github.com/1broseidon/quietwin/internal/spaces"
)

// DefaultThreshold is the highest screenshot diff score that still passes.
const DefaultThreshold = 0.05

// Report is the strict before/after comparison.
type Report struct {
	Passed                  bool     `json:"passed"`
	MenuBarCompared         bool     `json:"menu_bar_compared"`
	MenuBarMatches          bool     `json:"menu_bar_matches"`
	BeforeMenuBarOwner      *int     `json:"before_menu_bar_owner,omitempty"`
	AfterMenuBarOwner       *int     `json:"after_menu_bar_owner,omitempty"`
	ScreenshotCompared      bool     `json:"screenshot_compared"`
	ScreenshotDiffScore     *float64 `json:"screenshot_diff_score"`
	ScreenshotDiffThreshold float64  `json:"screenshot_diff_threshold"`
	RecoveryAttempted       bool     `json:"recovery_attempted,omitempty"`
}

// Compare scores two runtime snapshots. The screenshot score is nil when
// either screenshot is missing or unreadable, and a nil score never passes.
func Compare(before, after *snapshot.Runtime, threshold float64, maxEdge int) Report {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	r := Report{ScreenshotDiffThreshold: threshold, MenuBarMatches: true}

	if before != nil {
		r.BeforeMenuBarOwner = before.MenuBarOwnerPID
	}
	if after != nil {
		r.AfterMenuBarOwner = after.MenuBarOwnerPID
	}
	if r.BeforeMenuBarOwner != nil {
		r.MenuBarCompared = true
		r.MenuBarMatches = r.AfterMenuBarOwner != nil && *r.AfterMenuBarOwner == *r.BeforeMenuBarOwner
	}

	if before != nil && after != nil {
		r.ScreenshotDiffScore = screenshotScore(before.ScreenshotPath, after.ScreenshotPath, maxEdge)
		r.ScreenshotCompared = r.ScreenshotDiffScore != nil
	}

	r.Passed = r.MenuBarMatches && r.ScreenshotDiffScore != nil && *r.ScreenshotDiffScore <= threshold
	return r
}

func screenshotScore(beforePath, afterPath string, maxEdge int) *float64 {
	if beforePath == "" || afterPath == "" {
		return nil
	}
	a, err := raster.LoadPNG(beforePath)
	if err != nil {
		return nil
	}
	b, err := raster.LoadPNG(afterPath)
	if err != nil {
		return nil
	}
	score := raster.DiffScore(raster.Downscale(a, maxEdge), raster.Downscale(b, maxEdge))
	return &score
}

// Verifier samples the after state and runs the single bounded recovery
// pass.
type Verifier struct {
	engine    *snapshot.Engine
	threshold float64
	maxEdge   int
	log       *zap.Logger
}

// NewVerifier returns a Verifier.
func NewVerifier(engine *snapshot.Engine, threshold float64, maxEdge int, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	if maxEdge <= 0 {
		maxEdge = 320
	}
	return &Verifier{engine: engine, threshold: threshold, maxEdge: maxEdge, log: log.Named("parity")}
}

// Verify compares before with a fresh after snapshot. When parity fails
// and only the desktop mapping diverges from focus, it takes one desktop
// step towards the recorded mapping and scores again.
func (v *Verifier) Verify(ctx context.Context, focus *snapshot.Focus, before *snapshot.Runtime) (Report, *snapshot.Runtime) {
	token := ""
	if before != nil {
		token = before.Token
	}
	after := v.engine.CaptureRuntime(ctx, snapshot.RuntimeOptions{Token: token, Label: "after", Screenshot: true})
	report := Compare(before, after, v.threshold, v.maxEdge)
	if report.Passed || !report.MenuBarMatches || focus == nil || len(focus.Desktops) == 0 {
		return report, after
	}

	space := v.engine.Space()
	if !DesktopsDiverge(ctx, space, focus.Desktops) {
		return report, after
	}
	steps := space.WalkToSnapshot(ctx, focus.Desktops, 1)
	v.log.Info("parity recovery pass", zap.Int("steps", steps))

	after = v.engine.CaptureRuntime(ctx, snapshot.RuntimeOptions{Token: token, Label: "after-recovery", Screenshot: true})
	report = Compare(before, after, v.threshold, v.maxEdge)
	report.RecoveryAttempted = true
	return report, after
}

// DesktopsDiverge reports whether the live mapping differs from m.
func DesktopsDiverge(ctx context.Context, space *spaces.Space, m spaces.Mapping) bool {
	matches, performed := space.MatchesSnapshot(ctx, m)
	return performed && !matches
}
