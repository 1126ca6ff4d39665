// Package session drives the per-frame pipeline: read the pose once,
// recompute the transforms, gather effect parameters and hand everything to
// a rendering backend.
package session

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/effects"
	"vr-hmd-renderer/internal/logging"
	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/pose"
	"vr-hmd-renderer/internal/transform"
)

// DefaultInterval is one frame at 60Hz.
const DefaultInterval = time.Second / 60

// FrameInput is everything a backend needs to draw one frame.
type FrameInput struct {
	Index uint64
	Mode  transform.Mode
	Set   transform.Set
	// Stale is set when this frame's pose was degenerate and Set is the last
	// valid one.
	Stale bool

	Lights      pose.Lights
	Material    pose.Material
	Attenuation mathutil.Vec3
	Effects     effects.Frame
}

// Backend draws frames. Draw is called from a single goroutine.
type Backend interface {
	Draw(FrameInput) error
}

// StateSource is read once per frame.
type StateSource interface {
	Snapshot() pose.State
}

// ModeSource reports the active mode.
type ModeSource interface {
	Current() transform.Mode
}

// FixedMode is a ModeSource that never changes.
type FixedMode transform.Mode

func (m FixedMode) Current() transform.Mode { return transform.Mode(m) }

// Loop renders frames on a fixed interval.
type Loop struct {
	State   StateSource
	Modes   ModeSource
	Params  *display.Params
	Backend Backend

	Interval time.Duration
	// MaxFrames stops the loop after that many drawn frames; 0 runs until
	// the context is done.
	MaxFrames uint64

	engine transform.Engine
	index  uint64
}

// Step builds the next frame. ok is false when no valid transforms exist yet.
func (l *Loop) Step() (in FrameInput, ok bool) {
	s := l.State.Snapshot()
	mode := l.Modes.Current()

	set, err := l.engine.Update(mode, s.Geometry(), l.Params)
	stale := err != nil
	if stale {
		if _, valid := l.engine.Last(mode); !valid {
			logging.Logger().Warn("session: no valid transforms for mode", "mode", mode, "err", err)
			return FrameInput{}, false
		}
		logging.Logger().Debug("session: reusing previous transforms", "mode", mode, "err", err)
	}

	l.index++
	return FrameInput{
		Index:       l.index,
		Mode:        mode,
		Set:         set,
		Stale:       stale,
		Lights:      s.Lights,
		Material:    s.Material,
		Attenuation: s.Attenuation,
		Effects:     effects.NewFrame(mode, s.Gaze, s.LensDistortion, l.Params),
	}, true
}

// Run draws until ctx is done or MaxFrames frames were drawn. A backend
// error ends the loop.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var drawn uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		in, ok := l.Step()
		if !ok {
			continue
		}
		if err := l.Backend.Draw(in); err != nil {
			return fmt.Errorf("session: draw frame %d: %w", in.Index, err)
		}
		drawn++
		if l.MaxFrames > 0 && drawn >= l.MaxFrames {
			return nil
		}
	}
}

// Runner is a background task bound to a session, such as a telemetry pump.
type Runner interface {
	Run(ctx context.Context) error
}

// Run runs the loop alongside the given tasks. When the loop finishes the
// tasks are cancelled; when a task fails the loop is cancelled.
func Run(ctx context.Context, loop *Loop, tasks ...Runner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return loop.Run(gctx)
	})
	for _, t := range tasks {
		g.Go(func() error { return t.Run(gctx) })
	}
	return g.Wait()
}

// Cycle wraps a backend and advances Selector through Modes after every
// Every drawn frames. It scripts mode switches for runs without a keyboard.
type Cycle struct {
	Selector *transform.Selector
	Modes    []transform.Mode
	Every    uint64
	Backend  Backend

	pos int
}

func (c *Cycle) Draw(in FrameInput) error {
	if err := c.Backend.Draw(in); err != nil {
		return err
	}
	if c.Every == 0 || len(c.Modes) < 2 || in.Index%c.Every != 0 {
		return nil
	}
	c.pos = (c.pos + 1) % len(c.Modes)
	c.Selector.Switch(c.Modes[c.pos])
	return nil
}
