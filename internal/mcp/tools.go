package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/automation"
	"github.com/1broseidon/quietwin/internal/capture"
	"github.com/1broseidon/quietwin/internal/match"
	"github.com/1broseidon/quietwin/internal/restore"
	"github.com/1broseidon/quietwin/internal/tabs"
)

type target struct {
	sel  match.Selectors
	wait time.Duration
	tab  *tabs.Selection
}

func (in TargetInput) resolve(op string) (target, error) {
	var t target
	if in.WindowID != "" {
		id, err := automation.ParseWindowID(in.WindowID)
		if err != nil {
			return t, &automation.Error{Kind: automation.KindUsage, Op: op, Err: err}
		}
		t.sel.WindowID = &id
	}
	t.sel.PID = in.PID
	t.sel.BundleID = in.BundleID
	t.sel.App = in.App
	t.sel.Title = in.Title
	if in.WaitMS < 0 {
		return t, &automation.Error{Kind: automation.KindUsage, Op: op, Err: fmt.Errorf("wait_ms must be non-negative, got %d", in.WaitMS)}
	}
	t.wait = time.Duration(in.WaitMS) * time.Millisecond
	if in.Tab != nil {
		t.tab = &tabs.Selection{
			Profile: in.Tab.Profile,
			Title:   in.Tab.Title,
			URL:     in.Tab.URL,
			Index:   in.Tab.Index,
		}
	}
	return t, nil
}

func (r *RestoreInput) flags() restore.Flags {
	if r == nil {
		return restore.Flags{}
	}
	return restore.Flags{Restore: r.Enabled, HardReattach: r.HardReattach, SpaceNudge: r.SpaceNudge}
}

func mimeType(format string) string {
	if format == "jpeg" {
		return "image/jpeg"
	}
	return "image/png"
}

func (s *Server) handleCaptureWindow(ctx context.Context, _ *mcpsdk.CallToolRequest, args CaptureWindowInput) (*mcpsdk.CallToolResult, CaptureWindowOutput, error) {
	t, err := args.Target.resolve(automation.OpCapture)
	if err != nil {
		return nil, CaptureWindowOutput{}, err
	}
	req := automation.CaptureRequest{
		Selectors: t.sel,
		Wait:      t.wait,
		Tab:       t.tab,
		Format:    args.Format,
		Quality:   args.Quality,
		Restore:   args.Restore.flags(),
		Strict:    args.Strict,
		Threshold: args.Threshold,
	}
	if args.Crop != nil {
		req.Crop = &capture.Crop{X: args.Crop.X, Y: args.Crop.Y, Width: args.Crop.Width, Height: args.Crop.Height}
	}
	if args.Action != nil {
		a := args.Action.action()
		req.Action = &a
	}

	var res *automation.CaptureResult
	if err := s.with(ctx, func(svc *automation.Service) error {
		var err error
		res, err = svc.Capture(ctx, req)
		return err
	}); err != nil {
		return nil, CaptureWindowOutput{}, err
	}

	out := CaptureWindowOutput{
		Window:           res.Window,
		Format:           res.Format,
		Width:            res.Width,
		Height:           res.Height,
		Bytes:            len(res.Data),
		Method:           res.Method,
		Action:           res.Action,
		RestoreAttempted: res.RestoreAttempted,
		RestoreVerified:  res.RestoreVerified,
		RestoreStrategy:  res.Restore.Strategy,
	}
	if res.Diagnostics != nil {
		p := res.Diagnostics.Parity
		out.Parity = &p
	}
	s.log.Debug("capture_window",
		zap.Uint32("window", uint32(res.Window.ID)),
		zap.String("method", res.Method),
		zap.Bool("restore_verified", res.RestoreVerified))

	summary := fmt.Sprintf("Captured window %d (%s %q) %dx%d %s via %s; restore verified: %t",
		res.Window.ID, res.Window.OwnerName, res.Window.Title, res.Width, res.Height, res.Format, res.Method, res.RestoreVerified)
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.ImageContent{Data: res.Data, MIMEType: mimeType(res.Format)},
			&mcpsdk.TextContent{Text: summary},
		},
	}, out, nil
}

func (s *Server) handleSendInput(ctx context.Context, _ *mcpsdk.CallToolRequest, args SendInputInput) (*mcpsdk.CallToolResult, SendInputOutput, error) {
	t, err := args.Target.resolve(automation.OpInput)
	if err != nil {
		return nil, SendInputOutput{}, err
	}
	req := automation.InputRequest{
		Selectors: t.sel,
		Wait:      t.wait,
		Tab:       t.tab,
		Action:    args.Action.action(),
		Restore:   args.Restore.flags(),
	}

	var res *automation.InputResult
	if err := s.with(ctx, func(svc *automation.Service) error {
		var err error
		res, err = svc.Input(ctx, req)
		return err
	}); err != nil {
		return nil, SendInputOutput{}, err
	}

	return nil, SendInputOutput{
		Window:           res.Window,
		Action:           res.Action,
		RestoreAttempted: res.RestoreAttempted,
		RestoreVerified:  res.RestoreVerified,
		RestoreStrategy:  res.Restore.Strategy,
	}, nil
}

func (s *Server) handleCheckPermissions(ctx context.Context, _ *mcpsdk.CallToolRequest, _ CheckPermissionsInput) (*mcpsdk.CallToolResult, CheckPermissionsOutput, error) {
	var perms automation.Permissions
	err := s.with(ctx, func(svc *automation.Service) error {
		perms = svc.Permissions(ctx)
		return nil
	})
	if err != nil {
		perms = automation.Unavailable(err)
	}
	return nil, CheckPermissionsOutput{AllGranted: perms.All(), Permissions: perms}, nil
}

func (s *Server) handleListWindows(ctx context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	var out ListWindowsOutput
	err := s.with(ctx, func(svc *automation.Service) error {
		windows, err := svc.Windows(ctx, automation.WindowFilter{App: args.App, Title: args.Title, All: args.All})
		out.Windows = windows
		return err
	})
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	return nil, out, nil
}
