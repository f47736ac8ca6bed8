package platform

import "fmt"

// Capability names used in permission errors.
const (
	CapabilityAccessibility = "accessibility"
	CapabilityScreenCapture = "screen-capture"
	CapabilityInput         = "input"
	CapabilityDesktops      = "desktops"
)

// PermissionError reports an unavailable platform capability.
type PermissionError struct {
	Capability string
	Err        error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s capability unavailable: %v", e.Capability, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// RequireAccessibility checks the accessibility bridge.
func RequireAccessibility(a Accessibility) error {
	if err := a.Trusted(); err != nil {
		return &PermissionError{Capability: CapabilityAccessibility, Err: err}
	}
	return nil
}

// RequireCapture checks the screen-capture bridge.
func RequireCapture(c Capturer) error {
	if err := c.CaptureAvailable(); err != nil {
		return &PermissionError{Capability: CapabilityScreenCapture, Err: err}
	}
	return nil
}

// RequireInput checks synthetic input.
func RequireInput(i Inputter) error {
	if err := i.InputAvailable(); err != nil {
		return &PermissionError{Capability: CapabilityInput, Err: err}
	}
	return nil
}
