package platform

import (
	"fmt"
	"strings"
)

// ActionKind names one synthetic input verb.
type ActionKind string

const (
	ActionClick  ActionKind = "click"
	ActionMove   ActionKind = "move"
	ActionType   ActionKind = "type"
	ActionKey    ActionKind = "key"
	ActionScroll ActionKind = "scroll"
)

// Action is a single input action. Coordinates are relative to the target
// window's top-left corner.
type Action struct {
	Kind   ActionKind `json:"kind"`
	X      int        `json:"x,omitempty"`
	Y      int        `json:"y,omitempty"`
	Button int        `json:"button,omitempty"`
	Count  int        `json:"count,omitempty"`
	Text   string     `json:"text,omitempty"`
	Keys   string     `json:"keys,omitempty"`
	DX     int        `json:"dx,omitempty"`
	DY     int        `json:"dy,omitempty"`
}

// Validate reports malformed actions.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionClick:
		if a.X < 0 || a.Y < 0 {
			return fmt.Errorf("click coordinates must be non-negative, got x=%d, y=%d", a.X, a.Y)
		}
		if a.Button < 0 || a.Button > 3 {
			return fmt.Errorf("click button must be 1-3, got %d", a.Button)
		}
		if a.Count < 0 || a.Count > 3 {
			return fmt.Errorf("click count must be 1-3, got %d", a.Count)
		}
	case ActionMove:
		if a.X < 0 || a.Y < 0 {
			return fmt.Errorf("move coordinates must be non-negative, got x=%d, y=%d", a.X, a.Y)
		}
	case ActionType:
		if a.Text == "" {
			return fmt.Errorf("type action requires text")
		}
	case ActionKey:
		if strings.TrimSpace(a.Keys) == "" {
			return fmt.Errorf("key action requires keys (e.g. ctrl+shift+t)")
		}
	case ActionScroll:
		if a.DX == 0 && a.DY == 0 {
			return fmt.Errorf("scroll action requires dx or dy")
		}
	case "":
		return fmt.Errorf("action kind is required")
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

// Normalized fills defaults: left button, single click.
func (a Action) Normalized() Action {
	if a.Kind == ActionClick {
		if a.Button == 0 {
			a.Button = 1
		}
		if a.Count == 0 {
			a.Count = 1
		}
	}
	return a
}

// String renders the action for logs and action echoes.
func (a Action) String() string {
	switch a.Kind {
	case ActionClick:
		return fmt.Sprintf("click(%d,%d button=%d count=%d)", a.X, a.Y, a.Button, a.Count)
	case ActionMove:
		return fmt.Sprintf("move(%d,%d)", a.X, a.Y)
	case ActionType:
		return fmt.Sprintf("type(%d chars)", len([]rune(a.Text)))
	case ActionKey:
		return fmt.Sprintf("key(%s)", a.Keys)
	case ActionScroll:
		return fmt.Sprintf("scroll(dx=%d,dy=%d)", a.DX, a.DY)
	}
	return string(a.Kind)
}
