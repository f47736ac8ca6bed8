// Package tabs switches browser tabs through the Chrome DevTools protocol
// and switches them back afterwards.
package tabs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/match"
	"github.com/1broseidon/quietwin/internal/platform"
)

// ErrNoEndpoint is returned when no debugger URL is configured for an app.
var ErrNoEndpoint = errors.New("no DevTools endpoint configured")

// Endpoint is the DevTools configuration for one browser app.
type Endpoint struct {
	DebuggerURL string            `yaml:"debugger_url" json:"debugger_url"`
	Profiles    map[string]string `yaml:"profiles,omitempty" json:"profiles,omitempty"`
}

// Selection picks one tab. Index is zero-based over page targets.
type Selection struct {
	App     string
	Profile string
	Title   string
	URL     string
	Index   *int
}

// Empty reports whether the selection names no tab.
func (s Selection) Empty() bool {
	return strings.TrimSpace(s.Title) == "" && strings.TrimSpace(s.URL) == "" && s.Index == nil
}

// Tab is one page target.
type Tab struct {
	ID     string
	Title  string
	URL    string
	Active bool
}

// Session is an open DevTools connection.
type Session interface {
	Tabs(ctx context.Context) ([]Tab, error)
	Activate(ctx context.Context, id string) error
	Close()
}

// Dialer opens a Session to a DevTools endpoint.
type Dialer func(ctx context.Context, controlURL string) (Session, error)

// Switched describes an activated tab. Restore puts the previously active
// tab back and closes the session.
type Switched struct {
	Tab      Tab
	Previous *Tab

	session Session
}

// Restore re-activates the previously active tab. It is safe to call on a
// nil receiver and more than once.
func (s *Switched) Restore(ctx context.Context) error {
	if s == nil || s.session == nil {
		return nil
	}
	defer func() {
		s.session.Close()
		s.session = nil
	}()
	if s.Previous == nil || s.Previous.ID == s.Tab.ID {
		return nil
	}
	return s.session.Activate(ctx, s.Previous.ID)
}

// Bridge resolves endpoints from configuration and performs tab switches.
type Bridge struct {
	endpoints map[string]Endpoint
	dial      Dialer
	log       *zap.Logger
}

// NewBridge returns a Bridge. A nil dial uses go-rod.
func NewBridge(endpoints map[string]Endpoint, dial Dialer, log *zap.Logger) *Bridge {
	if dial == nil {
		dial = DialRod
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{endpoints: endpoints, dial: dial, log: log.Named("tabs")}
}

// Endpoint returns the control URL configured for app and profile.
func (b *Bridge) Endpoint(app, profile string) (string, error) {
	for name, ep := range b.endpoints {
		if !strings.EqualFold(name, strings.TrimSpace(app)) {
			continue
		}
		if profile != "" {
			for p, u := range ep.Profiles {
				if strings.EqualFold(p, profile) && u != "" {
					return u, nil
				}
			}
			return "", fmt.Errorf("%w for %s profile %q", ErrNoEndpoint, app, profile)
		}
		if ep.DebuggerURL != "" {
			return ep.DebuggerURL, nil
		}
	}
	return "", fmt.Errorf("%w for %q", ErrNoEndpoint, app)
}

// Activate switches app's browser to the selected tab and records the tab
// that was active before.
func (b *Bridge) Activate(ctx context.Context, sel Selection) (*Switched, error) {
	if sel.Empty() {
		return nil, errors.New("tab selection requires a title, url or index")
	}
	controlURL, err := b.Endpoint(sel.App, sel.Profile)
	if err != nil {
		return nil, err
	}
	session, err := b.dial(ctx, controlURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s DevTools: %w", sel.App, err)
	}

	tabs, err := session.Tabs(ctx)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	target, ok := pick(tabs, sel)
	if !ok {
		session.Close()
		return nil, fmt.Errorf("no tab matches title=%q url=%q", sel.Title, sel.URL)
	}

	sw := &Switched{Tab: target, session: session}
	for i := range tabs {
		if tabs[i].Active {
			prev := tabs[i]
			sw.Previous = &prev
			break
		}
	}
	if sw.Previous == nil || sw.Previous.ID != target.ID {
		if err := session.Activate(ctx, target.ID); err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to activate tab: %w", err)
		}
	}
	b.log.Debug("tab activated", zap.String("app", sel.App), zap.String("title", target.Title))
	return sw, nil
}

func pick(tabs []Tab, sel Selection) (Tab, bool) {
	if sel.Index != nil {
		if *sel.Index < 0 || *sel.Index >= len(tabs) {
			return Tab{}, false
		}
		return tabs[*sel.Index], true
	}
	title := strings.ToLower(strings.TrimSpace(sel.Title))
	url := strings.ToLower(strings.TrimSpace(sel.URL))
	for _, t := range tabs {
		if title != "" && !strings.Contains(strings.ToLower(t.Title), title) {
			continue
		}
		if url != "" && !strings.Contains(strings.ToLower(t.URL), url) {
			continue
		}
		return t, true
	}
	return Tab{}, false
}

// Retarget switches tabs for sel and re-resolves the browser window that now
// shows the selected tab. When the re-resolve finds nothing the original
// target is kept.
func (b *Bridge) Retarget(ctx context.Context, sel Selection, inv platform.Inventory, target platform.Window) (platform.Window, *Switched, error) {
	if strings.TrimSpace(sel.App) == "" {
		sel.App = target.OwnerName
	}
	sw, err := b.Activate(ctx, sel)
	if err != nil {
		return target, nil, err
	}
	windows, err := inv.Windows(ctx)
	if err != nil {
		return target, sw, nil
	}
	w, err := match.ResolveAfterSelection(windows, target.OwnerName, sw.Tab.Title)
	if err != nil {
		b.log.Debug("tab window not re-resolved, keeping target", zap.Uint32("window", uint32(target.ID)))
		return target, sw, nil
	}
	return w, sw, nil
}
