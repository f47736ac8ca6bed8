// Package spaces wraps the optional virtual-desktop entry points behind a
// capability probed once. When the capability is absent every call is a
// no-op that reports it did nothing.
package spaces

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/helper"
	"github.com/1broseidon/quietwin/internal/platform"
	"github.com/1broseidon/quietwin/internal/timeout"
)

var errUnavailable = errors.New("virtual desktop entry points unavailable")

// Mapping records the current desktop of each display.
type Mapping map[string]int

// Equal reports whether m and other name the same desktops.
func (m Mapping) Equal(other Mapping) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Displays returns the mapping's display ids in sorted order.
func (m Mapping) Displays() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RestoreResult reports a per-display restore.
type RestoreResult struct {
	Performed bool     `json:"performed"`
	Restored  []string `json:"restored,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// Step is a bounded walk from one display's current desktop towards a
// target: Count steps in Direction (+1 or -1).
type Step struct {
	DisplayID string `json:"display_id"`
	Count     int    `json:"count"`
	Direction int    `json:"direction"`
}

// Options tune the capability.
type Options struct {
	// NudgeCommand replaces the built-in neighbour step. The token
	// "{direction}" is substituted with "left" or "right".
	NudgeCommand  []string
	HelperTimeout time.Duration
	Settle        time.Duration
}

// Space is the process-wide desktop capability handle.
type Space struct {
	entry platform.DesktopEntrypoints
	opts  Options
	log   *zap.Logger

	once     sync.Once
	probeErr error
}

// New wraps entry. A nil entry yields a permanently unavailable capability.
func New(entry platform.DesktopEntrypoints, opts Options, log *zap.Logger) *Space {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HelperTimeout <= 0 {
		opts.HelperTimeout = 3 * time.Second
	}
	return &Space{entry: entry, opts: opts, log: log.Named("spaces")}
}

// Available probes the entry points on first use.
func (s *Space) Available() bool {
	return s.Err() == nil
}

// Err returns why the capability is unavailable, or nil.
func (s *Space) Err() error {
	if s == nil {
		return errUnavailable
	}
	s.once.Do(func() {
		if s.entry == nil {
			s.probeErr = errUnavailable
			return
		}
		if err := s.entry.Probe(); err != nil {
			s.probeErr = err
			s.log.Debug("desktop capability unavailable", zap.Error(err))
		}
	})
	return s.probeErr
}

func (s *Space) displays(ctx context.Context) []display {
	if !s.Available() {
		return nil
	}
	raw, err := s.entry.DisplaySpaces(ctx)
	if err != nil {
		s.log.Debug("failed to read display spaces", zap.Error(err))
		return nil
	}
	return parsePayload(raw)
}

// CaptureSnapshot records each display's current desktop. ok is false when
// the capability is absent or the payload was unrecognisable.
func (s *Space) CaptureSnapshot(ctx context.Context) (Mapping, bool) {
	displays := s.displays(ctx)
	if len(displays) == 0 {
		return nil, false
	}
	m := make(Mapping, len(displays))
	for _, d := range displays {
		m[d.ID] = d.Current
	}
	return m, true
}

// RestoreSnapshot re-activates each display's recorded desktop. Failure on
// one display does not stop the others.
func (s *Space) RestoreSnapshot(ctx context.Context, m Mapping) RestoreResult {
	if len(m) == 0 || !s.Available() {
		return RestoreResult{}
	}
	current, _ := s.CaptureSnapshot(ctx)

	res := RestoreResult{Performed: true}
	for _, id := range m.Displays() {
		want := m[id]
		if cur, ok := current[id]; ok && cur == want {
			res.Restored = append(res.Restored, id)
			continue
		}
		if err := s.entry.SetDisplayDesktop(ctx, id, want); err != nil {
			s.log.Debug("display desktop restore failed",
				zap.String("display", id), zap.Int("desktop", want), zap.Error(err))
			res.Failed = append(res.Failed, id)
			continue
		}
		res.Restored = append(res.Restored, id)
	}
	return res
}

// MatchesSnapshot compares the live mapping against m. performed is false
// when no comparison could be made.
func (s *Space) MatchesSnapshot(ctx context.Context, m Mapping) (matches, performed bool) {
	if len(m) == 0 {
		return false, false
	}
	current, ok := s.CaptureSnapshot(ctx)
	if !ok {
		return false, false
	}
	for id, want := range m {
		if cur, ok := current[id]; !ok || cur != want {
			return false, true
		}
	}
	return true, true
}

// WindowSpaceMap locates every window listed in the payload.
func (s *Space) WindowSpaceMap(ctx context.Context) map[platform.WindowID]platform.Location {
	out := make(map[platform.WindowID]platform.Location)
	for _, d := range s.displays(ctx) {
		for _, desk := range d.Desktops {
			for _, id := range desk.Windows {
				if _, seen := out[id]; !seen {
					out[id] = platform.Location{DisplayID: d.ID, DesktopID: desk.ID}
				}
			}
		}
	}
	return out
}

// ActiveWindowStacksRaw returns each display's active-desktop stack, top
// first.
func (s *Space) ActiveWindowStacksRaw(ctx context.Context) map[string][]platform.WindowID {
	out := make(map[string][]platform.WindowID)
	for _, d := range s.displays(ctx) {
		out[d.ID] = append([]platform.WindowID(nil), d.activeStack()...)
	}
	return out
}

// StackOf returns the window stack of loc's desktop, top first.
func (s *Space) StackOf(ctx context.Context, loc platform.Location) []platform.WindowID {
	for _, d := range s.displays(ctx) {
		if d.ID != loc.DisplayID {
			continue
		}
		for _, desk := range d.Desktops {
			if desk.ID == loc.DesktopID {
				return append([]platform.WindowID(nil), desk.Windows...)
			}
		}
	}
	return nil
}

// OrderWindowToFront restacks id without activating its application.
func (s *Space) OrderWindowToFront(ctx context.Context, id platform.WindowID) bool {
	if !s.Available() {
		return false
	}
	if err := s.entry.OrderWindowAbove(ctx, id); err != nil {
		s.log.Debug("failed to order window", zap.Uint32("window", uint32(id)), zap.Error(err))
		return false
	}
	return true
}

// RestoreWindowDesktop switches loc's display to loc's desktop.
func (s *Space) RestoreWindowDesktop(ctx context.Context, loc platform.Location) bool {
	if loc.DisplayID == "" || !s.Available() {
		return false
	}
	if err := s.entry.SetDisplayDesktop(ctx, loc.DisplayID, loc.DesktopID); err != nil {
		s.log.Debug("window desktop restore failed",
			zap.String("display", loc.DisplayID), zap.Int("desktop", loc.DesktopID), zap.Error(err))
		return false
	}
	return true
}

// TransitionPlanToSnapshot computes, per display, how many neighbour steps
// lead from the current desktop to target. Counts are capped at maxSteps.
func (s *Space) TransitionPlanToSnapshot(ctx context.Context, target Mapping, maxSteps int) []Step {
	var plan []Step
	for _, d := range s.displays(ctx) {
		want, ok := target[d.ID]
		if !ok || want == d.Current {
			continue
		}
		from, to := d.index(d.Current), d.index(want)
		if from < 0 || to < 0 {
			continue
		}
		count, dir := to-from, 1
		if count < 0 {
			count, dir = -count, -1
		}
		if maxSteps > 0 && count > maxSteps {
			count = maxSteps
		}
		plan = append(plan, Step{DisplayID: d.ID, Count: count, Direction: dir})
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].DisplayID < plan[j].DisplayID })
	return plan
}

// WalkToSnapshot walks towards target with neighbour steps, taking at most
// maxSteps in total. The neighbour gesture moves every display at once, so
// the plan is recomputed after each step and a single step serves all
// displays that still need it. It returns the number of steps taken.
func (s *Space) WalkToSnapshot(ctx context.Context, target Mapping, maxSteps int) int {
	taken := 0
	for taken < maxSteps {
		plan := s.TransitionPlanToSnapshot(ctx, target, 0)
		if len(plan) == 0 {
			break
		}
		if !s.MoveActiveDisplaysToNeighbor(ctx, leadDirection(plan)) {
			break
		}
		taken++
	}
	return taken
}

// leadDirection is the direction of the longest step in plan. Ties go to
// the first display in plan order.
func leadDirection(plan []Step) int {
	lead := plan[0]
	for _, step := range plan[1:] {
		if step.Count > lead.Count {
			lead = step
		}
	}
	return lead.Direction
}

// MoveActiveDisplaysToNeighbor steps every display one desktop in
// direction. It is a last-resort recovery gesture.
func (s *Space) MoveActiveDisplaysToNeighbor(ctx context.Context, direction int) bool {
	if !s.Available() || direction == 0 {
		return false
	}
	if direction > 0 {
		direction = 1
	} else {
		direction = -1
	}

	var ok bool
	if len(s.opts.NudgeCommand) > 0 {
		ok = s.runNudgeCommand(ctx, direction)
	} else if err := s.entry.StepDesktop(ctx, direction); err != nil {
		s.log.Debug("desktop step failed", zap.Int("direction", direction), zap.Error(err))
	} else {
		ok = true
	}
	if ok {
		_ = timeout.Sleep(ctx, s.opts.Settle)
	}
	return ok
}

func (s *Space) runNudgeCommand(ctx context.Context, direction int) bool {
	name := "right"
	if direction < 0 {
		name = "left"
	}
	argv := make([]string, len(s.opts.NudgeCommand))
	for i, arg := range s.opts.NudgeCommand {
		argv[i] = strings.ReplaceAll(arg, "{direction}", name)
	}
	res, err := helper.Run(ctx, s.opts.HelperTimeout, argv)
	if err != nil {
		s.log.Debug("nudge command failed", zap.Strings("argv", argv), zap.Error(err))
		return false
	}
	if res.TimedOut {
		s.log.Warn("nudge command timed out",
			zap.Strings("argv", argv), zap.String("termination", res.Termination))
		return false
	}
	return res.ExitCode == 0
}
