// Package snapshot records the operator's environment before a disruptive
// operation so it can be restored and compared afterwards.
package snapshot

import (
	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/spaces"
)

// Options tune runtime sampling.
type Options struct {
	// DiagnosticsDir receives down-scaled desktop screenshots.
	DiagnosticsDir string
	// MaxEdge bounds the longest screenshot edge.
	MaxEdge int
}

// Engine builds snapshots from live platform state.
type Engine struct {
	sys   platform.System
	space *spaces.Space
	opts  Options
	log   *zap.Logger
}

// NewEngine returns an Engine. space may be unavailable.
func NewEngine(sys platform.System, space *spaces.Space, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxEdge <= 0 {
		opts.MaxEdge = 320
	}
	return &Engine{sys: sys, space: space, opts: opts, log: log.Named("snapshot")}
}

// Space exposes the desktop capability the engine samples.
func (e *Engine) Space() *spaces.Space {
	return e.space
}
