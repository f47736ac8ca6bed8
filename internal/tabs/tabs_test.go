package tabs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/platform/platformtest"
)

type fakeSession struct {
	tabs      []Tab
	activated []string
	closed    int
	listErr   error
}

func (s *fakeSession) Tabs(context.Context) ([]Tab, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]Tab(nil), s.tabs...), nil
}

func (s *fakeSession) Activate(_ context.Context, id string) error {
	s.activated = append(s.activated, id)
	for i := range s.tabs {
		s.tabs[i].Active = s.tabs[i].ID == id
	}
	return nil
}

func (s *fakeSession) Close() { s.closed++ }

func newFixture() (*Bridge, *fakeSession, *string) {
	sess := &fakeSession{tabs: []Tab{
		{ID: "a", Title: "Inbox", URL: "https://mail.example.com", Active: true},
		{ID: "b", Title: "Docs - Design", URL: "https://docs.example.com/design"},
		{ID: "c", Title: "Tracker", URL: "https://issues.example.com"},
	}}
	dialed := new(string)
	dial := func(_ context.Context, u string) (Session, error) {
		*dialed = u
		return sess, nil
	}
	endpoints := map[string]Endpoint{
		"Chromium": {
			DebuggerURL: "http://127.0.0.1:9222",
			Profiles:    map[string]string{"work": "http://127.0.0.1:9333"},
		},
	}
	return NewBridge(endpoints, dial, nil), sess, dialed
}

func TestEndpoint(t *testing.T) {
	b, _, _ := newFixture()

	u, err := b.Endpoint("chromium", "")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9222", u)

	u, err = b.Endpoint("Chromium", "WORK")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9333", u)

	_, err = b.Endpoint("Chromium", "home")
	assert.ErrorIs(t, err, ErrNoEndpoint)

	_, err = b.Endpoint("firefox", "")
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestActivate_ByTitleThenRestore(t *testing.T) {
	ctx := context.Background()
	b, sess, dialed := newFixture()

	sw, err := b.Activate(ctx, Selection{App: "chromium", Title: "docs"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9222", *dialed)
	assert.Equal(t, "b", sw.Tab.ID)
	require.NotNil(t, sw.Previous)
	assert.Equal(t, "a", sw.Previous.ID)

	require.NoError(t, sw.Restore(ctx))
	assert.Equal(t, []string{"b", "a"}, sess.activated)
	assert.Equal(t, 1, sess.closed)

	require.NoError(t, sw.Restore(ctx))
	assert.Equal(t, 1, sess.closed)
}

func TestActivate_ByURLAndIndex(t *testing.T) {
	ctx := context.Background()

	b, _, _ := newFixture()
	sw, err := b.Activate(ctx, Selection{App: "Chromium", URL: "issues."})
	require.NoError(t, err)
	assert.Equal(t, "c", sw.Tab.ID)

	b, _, _ = newFixture()
	idx := 1
	sw, err = b.Activate(ctx, Selection{App: "Chromium", Index: &idx})
	require.NoError(t, err)
	assert.Equal(t, "b", sw.Tab.ID)
}

func TestActivate_AlreadyActiveSkipsSwitch(t *testing.T) {
	ctx := context.Background()
	b, sess, _ := newFixture()

	sw, err := b.Activate(ctx, Selection{App: "Chromium", Title: "inbox"})
	require.NoError(t, err)
	assert.Empty(t, sess.activated)
	require.NoError(t, sw.Restore(ctx))
	assert.Empty(t, sess.activated)
}

func TestActivate_Failures(t *testing.T) {
	ctx := context.Background()

	b, _, _ := newFixture()
	_, err := b.Activate(ctx, Selection{App: "Chromium"})
	assert.Error(t, err)

	b, sess, _ := newFixture()
	_, err = b.Activate(ctx, Selection{App: "Chromium", Title: "nothing like this"})
	assert.Error(t, err)
	assert.Equal(t, 1, sess.closed)

	b, sess, _ = newFixture()
	idx := 7
	_, err = b.Activate(ctx, Selection{App: "Chromium", Index: &idx})
	assert.Error(t, err)
	assert.Equal(t, 1, sess.closed)

	b, sess, _ = newFixture()
	sess.listErr = errors.New("boom")
	_, err = b.Activate(ctx, Selection{App: "Chromium", Title: "docs"})
	assert.ErrorContains(t, err, "boom")
}

func TestRetarget(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newFixture()

	f := platformtest.New()
	inbox := platform.Window{ID: 5, PID: 50, OwnerName: "Chromium", Title: "Inbox - Chromium",
		Bounds: platform.Rect{Width: 1200, Height: 800}, Alpha: 1, OnScreen: true}
	docs := platform.Window{ID: 6, PID: 50, OwnerName: "Chromium", Title: "Docs - Design - Chromium",
		Bounds: platform.Rect{Width: 1200, Height: 800}, Alpha: 1, OnScreen: true}
	f.AddWindow(inbox)
	f.AddWindow(docs)

	w, sw, err := b.Retarget(ctx, Selection{Title: "design"}, f, inbox)
	require.NoError(t, err)
	assert.Equal(t, platform.WindowID(6), w.ID)
	assert.Equal(t, "b", sw.Tab.ID)

	b, _, _ = newFixture()
	w, _, err = b.Retarget(ctx, Selection{Title: "tracker"}, f, inbox)
	require.NoError(t, err)
	assert.Equal(t, platform.WindowID(5), w.ID)
}

func TestSwitched_NilRestore(t *testing.T) {
	var sw *Switched
	assert.NoError(t, sw.Restore(context.Background()))
}
