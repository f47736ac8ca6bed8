package automation

import (
	"errors"
	"fmt"

	"github.com/1broseidon/quietwin/internal/capture"
	"github.com/1broseidon/quietwin/internal/input"
	"github.com/1broseidon/quietwin/internal/match"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/tabs"
)

// Kind classifies operation failures.
type Kind string

const (
	KindUsage         Kind = "usage"
	KindPermission    Kind = "permission"
	KindNotFound      Kind = "not_found"
	KindCaptureFailed Kind = "capture_failed"
	KindIO            Kind = "io"
)

// Error is the error every exposed operation returns.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUsage:
		return fmt.Sprintf("%s: invalid request: %v", e.Op, e.Err)
	case KindPermission:
		var perm *platform.PermissionError
		if errors.As(e.Err, &perm) {
			return fmt.Sprintf("%s: %s permission required: %v (%s)", e.Op, perm.Capability, perm.Err, Guidance(perm.Capability))
		}
		return fmt.Sprintf("%s: permission required: %v", e.Op, e.Err)
	case KindNotFound:
		return fmt.Sprintf("%s: target not found: %v", e.Op, e.Err)
	case KindCaptureFailed:
		return fmt.Sprintf("%s: capture failed: %v", e.Op, e.Err)
	case KindIO:
		return fmt.Sprintf("%s: i/o error: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Guidance tells the operator how to make a capability available.
func Guidance(capability string) string {
	switch capability {
	case platform.CapabilityAccessibility:
		return "run an EWMH-compliant window manager and check DISPLAY and XAUTHORITY"
	case platform.CapabilityScreenCapture:
		return "the X server must allow GetImage; enable a compositor for obscured windows"
	case platform.CapabilityInput:
		return "the X server must offer the XTEST extension"
	case platform.CapabilityDesktops:
		return "the window manager must advertise _NET_CURRENT_DESKTOP, _NET_NUMBER_OF_DESKTOPS, _NET_WM_DESKTOP and _NET_CLIENT_LIST_STACKING"
	}
	return "unknown capability"
}

// Exit codes per kind, for the CLI.
var exitCodes = map[Kind]int{
	KindUsage:         2,
	KindPermission:    3,
	KindNotFound:      4,
	KindCaptureFailed: 5,
	KindIO:            6,
}

// ExitCode maps err to a process exit code: 0 for nil, 1 for unclassified
// errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		if code, ok := exitCodes[e.Kind]; ok {
			return code
		}
	}
	return 1
}

// KindOf returns the kind of err, or "" when it is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func usage(op string, format string, args ...any) *Error {
	return &Error{Kind: KindUsage, Op: op, Err: fmt.Errorf(format, args...)}
}

// classify wraps an error returned by a pipeline. fallback is used for
// errors no rule recognises.
func classify(op string, err error, fallback Kind) error {
	if err == nil {
		return nil
	}
	var (
		e      *Error
		perm   *platform.PermissionError
		nf     *match.NotFoundError
		failed *capture.FailedError
		inject *input.InjectError
	)
	switch {
	case errors.As(err, &e):
		return err
	case errors.As(err, &perm):
		return &Error{Kind: KindPermission, Op: op, Err: err}
	case errors.As(err, &nf):
		return &Error{Kind: KindNotFound, Op: op, Err: err}
	case errors.As(err, &failed):
		return &Error{Kind: KindCaptureFailed, Op: op, Err: err}
	case errors.As(err, &inject):
		return &Error{Kind: KindIO, Op: op, Err: err}
	case errors.Is(err, capture.ErrEncode):
		return &Error{Kind: KindIO, Op: op, Err: err}
	case errors.Is(err, tabs.ErrNoEndpoint):
		return &Error{Kind: KindUsage, Op: op, Err: err}
	}
	return &Error{Kind: fallback, Op: op, Err: err}
}
