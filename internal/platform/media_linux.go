//go:build linux

package platform

import (
	"context"
	"fmt"
	"image"
)

// CaptureAvailable grabs a single root pixel to confirm the server permits
// GetImage.
func (b *LinuxBackend) CaptureAvailable() error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.ProbeCapture()
}

// CaptureWindow reads the window's composite pixmap, falling back to the
// window's own drawable when compositing is unavailable.
func (b *LinuxBackend) CaptureWindow(ctx context.Context, id WindowID) (image.Image, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	img, compErr := conn.CaptureComposite(uint32(id))
	if compErr == nil {
		return img, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err = conn.CaptureDirect(uint32(id))
	if err != nil {
		return nil, fmt.Errorf("composite: %v; direct: %w", compErr, err)
	}
	return img, nil
}

// CaptureScreen reads the full root window.
func (b *LinuxBackend) CaptureScreen(_ context.Context) (image.Image, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	return conn.CaptureRoot()
}

// InputAvailable reports whether XTEST can be used.
func (b *LinuxBackend) InputAvailable() error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.XTestErr()
}

// Pointer buttons for wheel scrolling.
const (
	buttonWheelUp    = 4
	buttonWheelDown  = 5
	buttonWheelLeft  = 6
	buttonWheelRight = 7
)

// Inject performs one action against target. Coordinates are translated
// from window-relative to root coordinates.
func (b *LinuxBackend) Inject(ctx context.Context, target Window, action Action) error {
	if err := action.Validate(); err != nil {
		return err
	}
	action = action.Normalized()
	conn, err := b.connection()
	if err != nil {
		return err
	}

	switch action.Kind {
	case ActionMove:
		return conn.FakeMotion(target.Bounds.X+action.X, target.Bounds.Y+action.Y)
	case ActionClick:
		if err := conn.FakeMotion(target.Bounds.X+action.X, target.Bounds.Y+action.Y); err != nil {
			return err
		}
		for i := 0; i < action.Count; i++ {
			if err := b.pressButton(byte(action.Button)); err != nil {
				return err
			}
		}
		return nil
	case ActionScroll:
		center := func() error {
			return conn.FakeMotion(target.Bounds.X+target.Bounds.Width/2, target.Bounds.Y+target.Bounds.Height/2)
		}
		if err := center(); err != nil {
			return err
		}
		if err := b.wheel(action.DY, buttonWheelDown, buttonWheelUp); err != nil {
			return err
		}
		return b.wheel(action.DX, buttonWheelRight, buttonWheelLeft)
	case ActionType:
		for _, r := range action.Text {
			if err := ctx.Err(); err != nil {
				return err
			}
			name, shift, ok := keysymForRune(r)
			if !ok {
				return fmt.Errorf("cannot type character %q", r)
			}
			keys := []string{name}
			if shift {
				keys = []string{"Shift_L", name}
			}
			if err := b.chord(keys); err != nil {
				return err
			}
		}
		return nil
	case ActionKey:
		keys, err := ParseKeyCombo(action.Keys)
		if err != nil {
			return err
		}
		return b.chord(keys)
	}
	return fmt.Errorf("unknown action kind %q", action.Kind)
}

func (b *LinuxBackend) pressButton(button byte) error {
	if err := b.conn.FakeButton(button, true); err != nil {
		return err
	}
	return b.conn.FakeButton(button, false)
}

func (b *LinuxBackend) wheel(delta int, positive, negative byte) error {
	button := positive
	if delta < 0 {
		button, delta = negative, -delta
	}
	for i := 0; i < delta; i++ {
		if err := b.pressButton(button); err != nil {
			return err
		}
	}
	return nil
}

// chord presses keys in order and releases them in reverse.
func (b *LinuxBackend) chord(keys []string) error {
	pressed := make([]string, 0, len(keys))
	var firstErr error
	for _, k := range keys {
		code, err := b.conn.KeyCode(k)
		if err != nil {
			firstErr = err
			break
		}
		if err := b.conn.FakeKey(code, true); err != nil {
			firstErr = err
			break
		}
		pressed = append(pressed, k)
	}
	for i := len(pressed) - 1; i >= 0; i-- {
		code, err := b.conn.KeyCode(pressed[i])
		if err != nil {
			continue
		}
		if err := b.conn.FakeKey(code, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
