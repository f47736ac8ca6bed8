package match

import (
	"context"
	"errors"
	"time"

	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/timeout"
)

// PollInterval is the inventory polling period while waiting for a target.
const PollInterval = 200 * time.Millisecond

// Await resolves sel against the live inventory. When wait is positive and no
// window matches yet, the inventory is polled until one appears or the
// budget runs out. Inventory errors are returned immediately.
func Await(ctx context.Context, inv platform.Inventory, sel Selectors, wait time.Duration) (platform.Window, error) {
	deadline := time.Now().Add(wait)
	for {
		windows, err := inv.Windows(ctx)
		if err != nil {
			return platform.Window{}, err
		}
		w, err := Resolve(windows, sel)
		var nf *NotFoundError
		if err == nil || !errors.As(err, &nf) || wait <= 0 {
			return w, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return w, err
		}
		if serr := timeout.Sleep(ctx, min(PollInterval, remaining)); serr != nil {
			return w, err
		}
	}
}
