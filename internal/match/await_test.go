package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/platform/platformtest"
)

func TestAwait_NoWaitFailsImmediately(t *testing.T) {
	f := platformtest.New()
	start := time.Now()
	_, err := Await(context.Background(), f, Selectors{App: "xterm"}, 0)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Less(t, time.Since(start), PollInterval)
}

func TestAwait_PollsUntilWindowAppears(t *testing.T) {
	f := platformtest.New()
	go func() {
		time.Sleep(50 * time.Millisecond)
		f.AddWindow(platform.Window{ID: 3, PID: 30, OwnerName: "XTerm", Title: "shell",
			Bounds: platform.Rect{Width: 400, Height: 300}, Alpha: 1, OnScreen: true})
	}()

	w, err := Await(context.Background(), f, Selectors{App: "xterm"}, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, platform.WindowID(3), w.ID)
}

func TestAwait_BudgetExhausted(t *testing.T) {
	f := platformtest.New()
	_, err := Await(context.Background(), f, Selectors{Title: "never"}, 250*time.Millisecond)
	assert.ErrorContains(t, err, `title~"never"`)
}
