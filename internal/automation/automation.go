// Package automation exposes the capture, input and permission operations
// and wires every component behind them from configuration.
package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/capture"
	"github.com/1broseidon/quietwin/internal/config"
	"github.com/1broseidon/quietwin/internal/input"
	"github.com/1broseidon/quietwin/internal/match"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/raster"
	"github.com/1broseidon/quietwin/internal/restore"
	"github.com/1broseidon/quietwin/internal/snapshot"
	"github.com/1broseidon/quietwin/internal/spaces"
	"github.com/1broseidon/quietwin/internal/tabs"
)

// Operation names used in errors.
const (
	OpCapture     = "capture"
	OpInput       = "input"
	OpPermissions = "permissions"
	OpWindows     = "windows"
)

type (
	CaptureRequest = capture.Request
	CaptureResult  = capture.Result
	InputRequest   = input.Request
	InputResult    = input.Result
)

// Service is the operation surface shared by the CLI and the MCP server.
type Service struct {
	sys   platform.System
	cfg   *config.Config
	log   *zap.Logger
	space *spaces.Space

	engine   *snapshot.Engine
	capture  *capture.Pipeline
	injector *input.Injector
}

// New wires a Service over sys. A nil cfg uses the defaults.
func New(sys platform.System, cfg *config.Config, log *zap.Logger) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	space := spaces.New(sys.Desktops(), spaces.Options{
		NudgeCommand:  cfg.Restore.NudgeCommand,
		HelperTimeout: cfg.Helper.Timeout(),
		Settle:        cfg.Capture.Settle(),
	}, log)
	engine := snapshot.NewEngine(sys, space, snapshot.Options{
		DiagnosticsDir: cfg.Capture.DiagnosticsDir,
		MaxEdge:        cfg.Parity.MaxEdge,
	}, log)
	bridge := tabs.NewBridge(endpoints(cfg.Browsers), nil, log)
	ropts := RestoreOptions(cfg)

	return &Service{
		sys:    sys,
		cfg:    cfg,
		log:    log,
		space:  space,
		engine: engine,
		capture: capture.NewPipeline(sys, engine, bridge, ropts, capture.Options{
			Timeout:   cfg.Capture.Timeout(),
			Settle:    cfg.Capture.Settle(),
			Threshold: cfg.Parity.Threshold,
			MaxEdge:   cfg.Parity.MaxEdge,
		}, log),
		injector: input.NewInjector(sys, engine, bridge, ropts, log),
	}
}

// RestoreOptions derives restore options from configuration.
func RestoreOptions(cfg *config.Config) restore.Options {
	return restore.Options{
		Enabled:            cfg.Restore.Enabled,
		HardReattach:       cfg.Restore.HardReattach,
		SpaceNudge:         cfg.Restore.SpaceNudge,
		VerifyAttempts:     cfg.Restore.VerifyAttempts,
		VerifyDelay:        cfg.Restore.VerifyDelay(),
		Settle:             cfg.Capture.Settle(),
		TransitionMaxSteps: cfg.Restore.TransitionMaxSteps,
	}
}

func endpoints(browsers map[string]config.BrowserConfig) map[string]tabs.Endpoint {
	out := make(map[string]tabs.Endpoint, len(browsers))
	for name, b := range browsers {
		out[name] = tabs.Endpoint{DebuggerURL: b.DebuggerURL, Profiles: b.Profiles}
	}
	return out
}

// Close releases the platform connection.
func (s *Service) Close() {
	s.sys.Close()
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Capture runs a capture operation.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	if req.Format == "" {
		req.Format = s.cfg.Capture.Format
	}
	if req.Quality == 0 {
		req.Quality = s.cfg.Capture.Quality
	}
	if err := validateCapture(req); err != nil {
		return nil, err
	}
	res, err := s.capture.Run(ctx, req)
	if err != nil {
		return nil, classify(OpCapture, err, KindCaptureFailed)
	}
	return res, nil
}

// Input runs an input operation.
func (s *Service) Input(ctx context.Context, req InputRequest) (*InputResult, error) {
	if err := validateTarget(OpInput, req.Selectors, req.Wait, req.Tab); err != nil {
		return nil, err
	}
	if err := req.Action.Validate(); err != nil {
		return nil, &Error{Kind: KindUsage, Op: OpInput, Err: err}
	}
	res, err := s.injector.Run(ctx, req)
	if err != nil {
		return nil, classify(OpInput, err, KindIO)
	}
	return res, nil
}

// WindowFilter narrows a window listing. Unlike selectors it keeps every
// match.
type WindowFilter struct {
	App   string
	Title string
	// All keeps docks, panels and other windows off the user-level layer.
	All bool
}

func (f WindowFilter) keep(w platform.Window) bool {
	if !f.All && w.Layer != platform.LayerNormal {
		return false
	}
	if app := strings.TrimSpace(f.App); app != "" &&
		!strings.Contains(strings.ToLower(w.OwnerName), strings.ToLower(app)) &&
		!strings.EqualFold(w.BundleID, app) {
		return false
	}
	if title := strings.TrimSpace(f.Title); title != "" &&
		!strings.Contains(strings.ToLower(w.Title), strings.ToLower(title)) {
		return false
	}
	return true
}

// Windows lists the current inventory, top of stack first.
func (s *Service) Windows(ctx context.Context, f WindowFilter) ([]platform.Window, error) {
	if err := platform.RequireAccessibility(s.sys); err != nil {
		return nil, classify(OpWindows, err, KindIO)
	}
	windows, err := s.sys.Windows(ctx)
	if err != nil {
		return nil, &Error{Kind: KindIO, Op: OpWindows, Err: err}
	}
	out := make([]platform.Window, 0, len(windows))
	for _, w := range windows {
		if f.keep(w) {
			out = append(out, w)
		}
	}
	return out, nil
}

// Resolve reports the window sel would target right now.
func (s *Service) Resolve(ctx context.Context, sel match.Selectors) (platform.Window, error) {
	if err := validateTarget(OpWindows, sel, 0, nil); err != nil {
		return platform.Window{}, err
	}
	if err := platform.RequireAccessibility(s.sys); err != nil {
		return platform.Window{}, classify(OpWindows, err, KindIO)
	}
	windows, err := s.sys.Windows(ctx)
	if err != nil {
		return platform.Window{}, &Error{Kind: KindIO, Op: OpWindows, Err: err}
	}
	w, err := match.Resolve(windows, sel)
	if err != nil {
		return platform.Window{}, classify(OpWindows, err, KindIO)
	}
	return w, nil
}

func validateCapture(req CaptureRequest) error {
	if err := validateTarget(OpCapture, req.Selectors, req.Wait, req.Tab); err != nil {
		return err
	}
	if _, err := raster.NormalizeFormat(req.Format); err != nil {
		return &Error{Kind: KindUsage, Op: OpCapture, Err: err}
	}
	if req.Quality < 1 || req.Quality > 100 {
		return usage(OpCapture, "quality must be between 1 and 100, got %d", req.Quality)
	}
	if c := req.Crop; c != nil && (c.Width < 0 || c.Height < 0) {
		return usage(OpCapture, "crop width and height must be non-negative, got %dx%d", c.Width, c.Height)
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return usage(OpCapture, "threshold must be between 0 and 1, got %v", req.Threshold)
	}
	if req.Action != nil {
		if err := req.Action.Validate(); err != nil {
			return &Error{Kind: KindUsage, Op: OpCapture, Err: err}
		}
	}
	return nil
}

func validateTarget(op string, sel match.Selectors, wait time.Duration, tab *tabs.Selection) error {
	if sel.Empty() {
		return usage(op, "at least one selector (window id, pid, bundle id, app or title) is required")
	}
	if sel.PID != nil && *sel.PID <= 0 {
		return usage(op, "pid must be positive, got %d", *sel.PID)
	}
	if wait < 0 {
		return usage(op, "wait must be non-negative")
	}
	if tab != nil && tab.Empty() {
		return usage(op, "tab selection requires a title, url or index")
	}
	return nil
}

// ParseWindowID accepts decimal or 0x-prefixed hexadecimal ids, the forms
// xprop and wmctrl print.
func ParseWindowID(s string) (platform.WindowID, error) {
	s = strings.TrimSpace(s)
	var id uint64
	var err error
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		_, err = fmt.Sscanf(s[2:], "%x", &id)
	} else {
		_, err = fmt.Sscanf(s, "%d", &id)
	}
	if err != nil || id == 0 || id > 0xffffffff {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return platform.WindowID(id), nil
}
