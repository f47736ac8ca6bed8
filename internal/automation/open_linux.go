//go:build linux

package automation

import (
	"context"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/config"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/x11"
)

// OpConnect names display connection failures.
const OpConnect = "connect"

// Open connects to the X display named by the environment or cfg and wires
// a Service over it. The caller must Close the service.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	de, err := x11.ApplyDisplayEnv(ctx, cfg.Display, cfg.XAuthority)
	if err != nil {
		return nil, connectError(err)
	}
	log.Debug("connecting to X display",
		zap.String("display", de.Display),
		zap.String("xauthority", de.XAuthority))

	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		return nil, connectError(err)
	}
	return New(backend, cfg, log), nil
}
