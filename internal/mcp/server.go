// Package mcp exposes quietwin's operations as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/automation"
	"github.com/1broseidon/quietwin/internal/config"
	"github.com/1broseidon/quietwin/internal/logging"
)

const (
	ServerName    = "quietwin"
	ServerVersion = "0.1.0"
)

// Opener connects a Service for cfg.
type Opener func(ctx context.Context, cfg *config.Config, log *zap.Logger) (*automation.Service, error)

// Options configure a Server.
type Options struct {
	// ConfigPath is watched for changes when non-empty.
	ConfigPath string
	// Level, when set, follows logging.level across reloads.
	Level *zap.AtomicLevel
	// Open defaults to automation.Open.
	Open Opener
}

// Server is the MCP server. Tool calls are serialized: each one drives the
// shared desktop and restores it before the next starts.
type Server struct {
	mcpServer *mcpsdk.Server
	open      Opener
	log       *zap.Logger
	level     *zap.AtomicLevel
	path      string

	mu      sync.Mutex
	cfg     *config.Config
	svc     *automation.Service
	watcher *config.Watcher
}

// NewServer creates a server for cfg. The display connection is opened on
// the first tool call so that check_permissions can explain a missing one.
func NewServer(cfg *config.Config, log *zap.Logger, opts Options) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Open == nil {
		opts.Open = automation.Open
	}

	s := &Server{
		open:  opts.Open,
		log:   log.Named("mcp"),
		level: opts.Level,
		path:  opts.ConfigPath,
		cfg:   cfg,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run watches the config file, if any, and serves on stdio until ctx ends
// or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if s.path != "" {
		w, err := config.Watch(ctx, s.path, s.log, s.reload)
		if err != nil {
			s.log.Warn("config reload disabled", zap.String("path", s.path), zap.Error(err))
		} else {
			s.mu.Lock()
			s.watcher = w
			s.mu.Unlock()
		}
	}
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the watcher and the display connection.
func (s *Server) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	// The watcher callback takes s.mu, so it is stopped unlocked.
	var err error
	if w != nil {
		err = w.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc != nil {
		s.svc.Close()
		s.svc = nil
	}
	return err
}

// reload swaps in a new configuration. The service is rebuilt lazily on
// the next call, after any in-flight call has finished.
func (s *Server) reload(res *config.LoadResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = res.Config
	if s.svc != nil {
		s.svc.Close()
		s.svc = nil
	}
	if s.level != nil {
		if lvl, err := logging.ParseLevel(res.Config.Logging.Level); err == nil {
			s.level.SetLevel(lvl)
		}
	}
	s.log.Info("configuration reloaded", zap.Strings("files", res.Files))
}

// with runs fn holding the operation lock and a connected service.
func (s *Server) with(ctx context.Context, fn func(*automation.Service) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svc == nil {
		svc, err := s.open(ctx, s.cfg, s.log)
		if err != nil {
			return err
		}
		s.svc = svc
	}
	return fn(s.svc)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "capture_window",
		Description: "Capture a screenshot of one window, even if it is covered, minimized or on another virtual desktop, without leaving the user's focus, window or desktop changed. Optionally performs one input action first and crops the result. Returns the image plus metadata; with strict=true also verifies the desktop looks as it did before.",
	}, s.handleCaptureWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "send_input",
		Description: "Send one click, move, type, key or scroll action to a window and then restore the user's previous focus, window and virtual desktop. Coordinates are relative to the window.",
	}, s.handleSendInput)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "check_permissions",
		Description: "Report whether window inspection, screen capture, input injection and virtual-desktop control are available, with a hint for each missing one.",
	}, s.handleCheckPermissions)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List windows top of stack first, with the ids, applications and titles other tools accept as targets.",
	}, s.handleListWindows)
}
