package automation

import (
	"context"

	"github.com/1broseidon/quietwin/internal/platform"
)

// Capability is one permission probe result.
type Capability struct {
	Granted bool   `json:"granted"`
	Error   string `json:"error,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// Permissions reports the four independently probed capabilities.
type Permissions struct {
	Accessibility Capability `json:"accessibility"`
	ScreenCapture Capability `json:"screen_capture"`
	Input         Capability `json:"input"`
	Desktops      Capability `json:"desktops"`
}

// All reports whether every capability is granted.
func (p Permissions) All() bool {
	return p.Accessibility.Granted && p.ScreenCapture.Granted && p.Input.Granted && p.Desktops.Granted
}

// Permissions probes each capability. It never fails.
func (s *Service) Permissions(_ context.Context) Permissions {
	return Permissions{
		Accessibility: capability(platform.CapabilityAccessibility, s.sys.Trusted()),
		ScreenCapture: capability(platform.CapabilityScreenCapture, s.sys.CaptureAvailable()),
		Input:         capability(platform.CapabilityInput, s.sys.InputAvailable()),
		Desktops:      capability(platform.CapabilityDesktops, s.space.Err()),
	}
}

func capability(name string, err error) Capability {
	if err == nil {
		return Capability{Granted: true}
	}
	return Capability{Error: err.Error(), Hint: Guidance(name)}
}

// Unavailable reports every capability as missing because the display
// could not be reached at all.
func Unavailable(err error) Permissions {
	c := Capability{Error: err.Error(), Hint: Guidance(platform.CapabilityAccessibility)}
	return Permissions{Accessibility: c, ScreenCapture: c, Input: c, Desktops: c}
}

func connectError(err error) error {
	return &Error{
		Kind: KindPermission,
		Op:   OpConnect,
		Err:  &platform.PermissionError{Capability: platform.CapabilityAccessibility, Err: err},
	}
}
