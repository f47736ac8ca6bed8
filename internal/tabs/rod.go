package tabs

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type rodSession struct {
	browser *rod.Browser
	cancel  context.CancelFunc
	pages   map[string]*rod.Page
}

// DialRod connects to a running browser's DevTools endpoint. The browser is
// left running when the session closes.
func DialRod(ctx context.Context, controlURL string) (Session, error) {
	wsURL, err := launcher.ResolveURL(controlURL)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", controlURL, err)
	}
	sessCtx, cancel := context.WithCancel(context.Background())
	browser := rod.New().ControlURL(wsURL).Context(sessCtx)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sessCtx.Done():
		}
	}()
	return &rodSession{browser: browser, cancel: cancel, pages: make(map[string]*rod.Page)}, nil
}

func (s *rodSession) Tabs(ctx context.Context) ([]Tab, error) {
	pages, err := s.browser.Context(ctx).Pages()
	if err != nil {
		return nil, err
	}
	var tabs []Tab
	for _, page := range pages {
		info, err := page.Info()
		if err != nil || info.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		id := string(info.TargetID)
		s.pages[id] = page
		tabs = append(tabs, Tab{
			ID:     id,
			Title:  info.Title,
			URL:    info.URL,
			Active: visible(ctx, page),
		})
	}
	return tabs, nil
}

func visible(ctx context.Context, page *rod.Page) bool {
	res, err := page.Context(ctx).Eval(`() => document.visibilityState`)
	if err != nil {
		return false
	}
	return res.Value.Str() == "visible"
}

func (s *rodSession) Activate(ctx context.Context, id string) error {
	page, ok := s.pages[id]
	if !ok {
		var err error
		page, err = s.browser.Context(ctx).PageFromTarget(proto.TargetTargetID(id))
		if err != nil {
			return err
		}
	}
	_, err := page.Context(ctx).Activate()
	return err
}

func (s *rodSession) Close() {
	s.cancel()
}
