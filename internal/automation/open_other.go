//go:build !linux

package automation

import (
	"context"
	"errors"
	"runtime"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/config"
)

// OpConnect names display connection failures.
const OpConnect = "connect"

// Open always fails off Linux: only X11 with an EWMH window manager is
// supported.
func Open(_ context.Context, _ *config.Config, _ *zap.Logger) (*Service, error) {
	return nil, connectError(errors.New("unsupported platform " + runtime.GOOS))
}
