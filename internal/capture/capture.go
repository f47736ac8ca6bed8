// Package capture grabs a target window's pixels without leaving the
// operator's desktop disturbed.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/input"
	"github.com/1broseidon/quietwin/internal/match"
	"github.com/1broseidon/quietwin/internal/parity"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/raster"
	"github.com/1broseidon/quietwin/internal/restore"
	"github.com/1broseidon/quietwin/internal/snapshot"
	"github.com/1broseidon/quietwin/internal/tabs"
	"github.com/1broseidon/quietwin/internal/timeout"
)

// Capture methods reported in Result.Method.
const (
	MethodDirect    = "direct"
	MethodActivated = "activated"
)

// ErrEncode wraps raster encoding failures.
var ErrEncode = errors.New("encode failed")

// FailedError is returned when every capture method failed.
type FailedError struct {
	Window platform.WindowID
	Cause  string
	Err    error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("capture of window %d failed (%s): %v", e.Window, e.Cause, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Crop is a caller rectangle in window-relative pixels.
type Crop struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Request is one capture operation.
type Request struct {
	Selectors match.Selectors
	Wait      time.Duration
	Tab       *tabs.Selection
	Format    string
	Quality   int
	Crop      *Crop
	// Action, when set, is injected before the capture under the same focus
	// snapshot, so both share one restore cycle.
	Action    *platform.Action
	Restore   restore.Flags
	Strict    bool
	Threshold float64
}

// Diagnostics accompany strict captures.
type Diagnostics struct {
	Parity parity.Report     `json:"parity"`
	Before *snapshot.Runtime `json:"before,omitempty"`
	After  *snapshot.Runtime `json:"after,omitempty"`
	Focus  *snapshot.Focus   `json:"focus,omitempty"`
}

// Result is a successful capture.
type Result struct {
	Data             []byte                  `json:"-"`
	Format           string                  `json:"format"`
	Window           platform.Window         `json:"window"`
	Width            int                     `json:"width"`
	Height           int                     `json:"height"`
	Method           string                  `json:"method"`
	Action           string                  `json:"action,omitempty"`
	RestoreAttempted bool                    `json:"restore_attempted"`
	RestoreVerified  bool                    `json:"restore_verified"`
	Restore          snapshot.RestoreOutcome `json:"restore"`
	Diagnostics      *Diagnostics            `json:"diagnostics,omitempty"`
}

// Options tune the capture chain.
type Options struct {
	// Timeout bounds each low-level capture attempt.
	Timeout time.Duration
	// Settle is waited after activating a window before the retry.
	Settle    time.Duration
	Threshold float64
	MaxEdge   int
}

// Pipeline runs capture operations.
type Pipeline struct {
	sys     platform.System
	engine  *snapshot.Engine
	bridge  *tabs.Bridge
	restore restore.Options
	opts    Options
	log     *zap.Logger
}

// NewPipeline returns a Pipeline.
func NewPipeline(sys platform.System, engine *snapshot.Engine, bridge *tabs.Bridge, ropts restore.Options, opts Options, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 800 * time.Millisecond
	}
	if opts.Threshold <= 0 {
		opts.Threshold = parity.DefaultThreshold
	}
	return &Pipeline{sys: sys, engine: engine, bridge: bridge, restore: ropts, opts: opts, log: log.Named("capture")}
}

// Run resolves the target, optionally injects the pre-action, captures,
// crops and encodes, then restores. Restore runs on every path once state
// was recorded; a failed strict parity check only clears RestoreVerified.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	format, err := raster.NormalizeFormat(req.Format)
	if err != nil {
		return nil, err
	}
	var action platform.Action
	if req.Action != nil {
		if err := req.Action.Validate(); err != nil {
			return nil, err
		}
		action = req.Action.Normalized()
		if err := platform.RequireInput(p.sys); err != nil {
			return nil, err
		}
	}
	if err := platform.RequireCapture(p.sys); err != nil {
		return nil, err
	}
	if err := platform.RequireAccessibility(p.sys); err != nil {
		return nil, err
	}

	target, err := match.Await(ctx, p.sys, req.Selectors, req.Wait)
	if err != nil {
		return nil, err
	}

	coord := restore.New(p.sys, p.engine.Space(), req.Restore.Apply(p.restore), p.log)
	focus := p.engine.CaptureFocus(ctx, snapshot.FocusOptions{})
	res := &Result{Format: format}

	var before *snapshot.Runtime
	if req.Strict {
		before = p.engine.CaptureRuntime(ctx, snapshot.RuntimeOptions{Token: focus.Token, Label: "before", Screenshot: true})
	}

	var switched *tabs.Switched
	var ti *snapshot.TargetInteraction
	windowOK := true

	defer func() {
		if ti != nil && !coord.RestoreInteraction(ctx, ti) {
			windowOK = false
		}
		if err := switched.Restore(ctx); err != nil {
			p.log.Warn("failed to restore browser tab", zap.Error(err))
		}
		res.Restore = coord.Restore(ctx, focus)
		res.RestoreAttempted = res.Restore.Attempted
		res.RestoreVerified = res.Restore.Verified && windowOK
		if req.Strict {
			p.verify(ctx, req, focus, before, res)
		}
	}()

	if req.Tab != nil {
		if p.bridge == nil {
			return nil, tabs.ErrNoEndpoint
		}
		target, switched, err = p.bridge.Retarget(ctx, *req.Tab, p.sys, target)
		if err != nil {
			return nil, err
		}
	}
	res.Window = target

	if req.Action != nil {
		if ti, err = input.Prepare(ctx, p.sys, p.engine, coord, target); err != nil {
			return nil, err
		}
		if err := input.Inject(ctx, p.sys, target, action); err != nil {
			return nil, err
		}
		res.Action = action.String()
		if err := timeout.Sleep(ctx, p.opts.Settle); err != nil {
			return nil, err
		}
	}

	img, method, err := p.grab(ctx, coord, target, &ti)
	if err != nil {
		return nil, err
	}
	res.Method = method

	if req.Crop != nil {
		img = raster.Crop(img, raster.ClampCrop(img.Bounds(), req.Crop.X, req.Crop.Y, req.Crop.Width, req.Crop.Height))
	}
	data, err := raster.Encode(img, format, req.Quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	res.Data = data
	res.Width, res.Height = img.Bounds().Dx(), img.Bounds().Dy()
	return res, nil
}

// grab runs the capture chain. The direct attempt is raced against the
// timeout; a window that could not render in place and was not already
// prepared is brought forward once and retried after the settle delay. *ti
// records what was disturbed so the caller can put it back.
func (p *Pipeline) grab(ctx context.Context, coord *restore.Coordinator, target platform.Window, ti **snapshot.TargetInteraction) (image.Image, string, error) {
	img, err := p.attempt(ctx, target.ID)
	if err == nil {
		return img, MethodDirect, nil
	}
	p.log.Debug("direct capture failed", zap.Uint32("window", uint32(target.ID)), zap.Error(err))

	live := p.live(ctx, target)
	if *ti != nil || live.RenderableWithoutActivation() {
		return nil, "", &FailedError{Window: target.ID, Cause: p.cause(ctx, live, err), Err: err}
	}

	*ti = p.engine.CaptureTargetInteraction(ctx, live)
	if perr := coord.PrepareInteraction(ctx, *ti); perr != nil {
		p.log.Debug("activation for capture failed", zap.Uint32("window", uint32(target.ID)), zap.Error(perr))
	}
	if serr := timeout.Sleep(ctx, p.opts.Settle); serr != nil {
		return nil, "", &FailedError{Window: target.ID, Cause: "interrupted", Err: serr}
	}
	img, rerr := p.attempt(ctx, target.ID)
	if rerr != nil {
		return nil, "", &FailedError{Window: target.ID, Cause: p.cause(ctx, live, rerr), Err: errors.Join(err, rerr)}
	}
	return img, MethodActivated, nil
}

func (p *Pipeline) attempt(ctx context.Context, id platform.WindowID) (image.Image, error) {
	return timeout.Race(ctx, p.opts.Timeout, func(ctx context.Context) (image.Image, error) {
		return p.sys.CaptureWindow(ctx, id)
	})
}

// live returns the current descriptor of target, or target itself.
func (p *Pipeline) live(ctx context.Context, target platform.Window) platform.Window {
	windows, err := p.sys.Windows(ctx)
	if err != nil {
		return target
	}
	for _, w := range windows {
		if w.ID == target.ID {
			return w
		}
	}
	return target
}

func (p *Pipeline) cause(ctx context.Context, w platform.Window, err error) string {
	if minimized, merr := p.sys.IsMinimized(ctx, w.ID); merr == nil && minimized {
		return "minimized"
	}
	if errors.Is(err, timeout.ErrTimedOut) {
		return "timed out, possibly protected"
	}
	if w.Bounds.Area() == 0 {
		return "unavailable"
	}
	return "protected or unavailable"
}

func (p *Pipeline) verify(ctx context.Context, req Request, focus *snapshot.Focus, before *snapshot.Runtime, res *Result) {
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = p.opts.Threshold
	}
	report, after := parity.NewVerifier(p.engine, threshold, p.opts.MaxEdge, p.log).Verify(ctx, focus, before)
	res.Diagnostics = &Diagnostics{Parity: report, Before: before, After: after, Focus: focus}
	if !report.Passed {
		res.RestoreVerified = false
		p.log.Info("strict parity failed", zap.String("token", focus.Token))
	}
}
