package pose

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/logging"
	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/telemetry"
	"vr-hmd-renderer/internal/transform"
)

// ErrRejected is returned when an update would leave the state degenerate.
// The state is left unchanged.
var ErrRejected = errors.New("pose: update rejected")

// DragTarget is the state a mouse drag edits.
type DragTarget int

const (
	DragModel DragTarget = iota
	DragViewerPosition
	DragViewerTarget
	DragClipNear
)

// Modifiers are the keys held during a drag.
type Modifiers struct {
	Shift bool
	Ctrl  bool
}

const (
	modelZStep         = 3.0
	lensStep           = 0.01
	positionFilterStep = 0.01
)

// Controller owns a State. Writers replace whole fields under the lock and
// the render loop reads one Snapshot per frame.
type Controller struct {
	mu    sync.RWMutex
	state State
	// canvasHeight maps window y to GL y. It is copied from the display
	// parameters so input never reads them while the render loop resizes.
	canvasHeight int

	// mouse is only touched by the input goroutine.
	mouse   mathutil.Vec2
	pressed bool
}

func NewController(initial State, p *display.Params) *Controller {
	return &Controller{state: initial.Clone(), canvasHeight: p.CanvasHeight}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Press starts a drag at window coordinates (x, y).
func (c *Controller) Press(x, y float64) {
	c.mouse = mathutil.Vec2{x, y}
	c.pressed = true
}

func (c *Controller) Release() { c.pressed = false }

// Movement returns the cursor delta since the previous call with y pointing
// up, and remembers (x, y).
func (c *Controller) Movement(x, y float64) mathutil.Vec2 {
	d := mathutil.Vec2{x - c.mouse[0], c.mouse[1] - y}
	c.mouse = mathutil.Vec2{x, y}
	return d
}

// Move handles a cursor move while a button may be held.
func (c *Controller) Move(target DragTarget, x, y float64, mod Modifiers) error {
	if !c.pressed {
		return nil
	}
	return c.Drag(target, c.Movement(x, y), mod)
}

// Drag applies a y-up cursor delta to target.
//
//	model:   rotate (pitch += dy, yaw += dx); Shift moves in XY; Ctrl moves in Z
//	viewer:  position or target moves in XY; Ctrl moves in Z
//	clip:    near plane follows dy, clamped to [MinClipNear, far)
func (c *Controller) Drag(target DragTarget, d mathutil.Vec2, mod Modifiers) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.state
	switch target {
	case DragModel:
		switch {
		case mod.Shift && !mod.Ctrl:
			s.ModelTranslation = s.ModelTranslation.Add(mathutil.Vec3{d[0], d[1], 0})
		case mod.Ctrl:
			s.ModelTranslation = s.ModelTranslation.Add(mathutil.Vec3{0, 0, d[1]})
		default:
			s.ModelRotation = s.ModelRotation.Add(mathutil.Vec2{d[1], d[0]})
		}
	case DragViewerPosition:
		pos := moveXYZ(s.ViewerPosition, d, mod)
		if err := checkView(pos, s.ViewerTarget); err != nil {
			return err
		}
		s.ViewerPosition = pos
	case DragViewerTarget:
		tgt := moveXYZ(s.ViewerTarget, d, mod)
		if err := checkView(s.ViewerPosition, tgt); err != nil {
			return err
		}
		s.ViewerTarget = tgt
	case DragClipNear:
		near := s.ClipNear + d[1]
		if near >= s.ClipFar {
			near = s.ClipFar - transform.MinClipNear
		}
		s.ClipNear, s.ClipFar = transform.ClampClip(near, s.ClipFar)
	default:
		return fmt.Errorf("pose: unknown drag target %d", target)
	}
	return nil
}

func moveXYZ(v mathutil.Vec3, d mathutil.Vec2, mod Modifiers) mathutil.Vec3 {
	if mod.Ctrl {
		return v.Add(mathutil.Vec3{0, 0, d[1]})
	}
	return v.Add(mathutil.Vec3{d[0], d[1], 0})
}

func checkView(position, target mathutil.Vec3) error {
	if !position.IsFinite() || !target.IsFinite() {
		return fmt.Errorf("%w: non-finite viewer", ErrRejected)
	}
	if _, _, _, err := transform.Basis(position, target, transform.WorldUp); err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return nil
}

// SetViewer replaces the viewer position and target together.
func (c *Controller) SetViewer(position, target mathutil.Vec3) error {
	if err := checkView(position, target); err != nil {
		return err
	}
	c.mu.Lock()
	c.state.ViewerPosition, c.state.ViewerTarget = position, target
	c.mu.Unlock()
	return nil
}

// SetClip stores clip planes after clamping them to a valid range.
func (c *Controller) SetClip(near, far float64) {
	near, far = transform.ClampClip(near, far)
	c.mu.Lock()
	c.state.ClipNear, c.state.ClipFar = near, far
	c.mu.Unlock()
}

func (c *Controller) SetTopView(on bool) {
	c.mu.Lock()
	c.state.TopView = on
	c.mu.Unlock()
}

func (c *Controller) SetOrthographic(on bool) {
	c.mu.Lock()
	c.state.Orthographic = on
	c.mu.Unlock()
}

func (c *Controller) SetTracked(on bool) {
	c.mu.Lock()
	c.state.Tracked = on
	c.mu.Unlock()
}

// StepModelZ moves the model along z by steps of 3mm.
func (c *Controller) StepModelZ(steps int) {
	c.mu.Lock()
	c.state.ModelTranslation[2] += float64(steps) * modelZStep
	c.mu.Unlock()
}

// HandleKey applies the keyboard bindings: W/S push the model away or pull
// it closer, 2..5 tune K1/K2 of the lens, and +/- tune the position filter.
func (c *Controller) HandleKey(key rune) bool {
	switch key {
	case 'w', 'W':
		c.StepModelZ(1)
	case 's', 'S':
		c.StepModelZ(-1)
	case '2':
		c.AdjustLensDistortion(lensStep, 0)
	case '3':
		c.AdjustLensDistortion(-lensStep, 0)
	case '4':
		c.AdjustLensDistortion(0, lensStep)
	case '5':
		c.AdjustLensDistortion(0, -lensStep)
	case '+', '=':
		c.AdjustPositionFilter(positionFilterStep)
	case '-':
		c.AdjustPositionFilter(-positionFilterStep)
	default:
		return false
	}
	return true
}

func (c *Controller) AdjustLensDistortion(dK1, dK2 float64) {
	c.mu.Lock()
	c.state.LensDistortion = c.state.LensDistortion.Add(mathutil.Vec2{dK1, dK2})
	c.mu.Unlock()
}

// AdjustPositionFilter changes the position alpha, clamped to [0, 1].
func (c *Controller) AdjustPositionFilter(delta float64) {
	c.mu.Lock()
	a := c.state.Tracker.PositionAlpha + delta
	c.state.Tracker.PositionAlpha = math.Max(0, math.Min(1, a))
	c.mu.Unlock()
}

// SetGaze records the gaze point from window coordinates, whose y axis
// points down.
func (c *Controller) SetGaze(x, y float64) {
	c.mu.Lock()
	c.state.Gaze = mathutil.Vec2{x, float64(c.canvasHeight) - y}
	c.mu.Unlock()
}

// Resize records the window size gaze input is measured against.
func (c *Controller) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	c.canvasHeight = height
	c.mu.Unlock()
}

// trackerToWorld turns the tracker frame (facing the base station) into the
// viewer frame: a half turn about Y.
var trackerToWorld = mathutil.NewQuat(0, 0, 1, 0)

func alignTracker(q mathutil.Quat) mathutil.Quat {
	return trackerToWorld.Inverse().Mul(q).Mul(trackerToWorld)
}

// Apply folds one telemetry sample into the state. Unknown kinds are
// ignored. A sample that cannot be used leaves the state untouched.
func (c *Controller) Apply(m telemetry.Message) error {
	if m.Kind != telemetry.Unknown && len(m.Values) < m.Kind.Arity() {
		return fmt.Errorf("%w: %s with %d values", telemetry.ErrMalformed, m.Kind, len(m.Values))
	}

	switch m.Kind {
	case telemetry.Quaternion:
		q, ok := mathutil.NewQuat(m.Values[0], m.Values[1], m.Values[2], m.Values[3]).Normalize()
		if !ok {
			return fmt.Errorf("%w: zero quaternion", telemetry.ErrMalformed)
		}
		c.setOrientation(alignTracker(q))
	case telemetry.Euler:
		c.setOrientation(alignTracker(mathutil.QuatFromEulerDeg(m.Values[0], m.Values[1], m.Values[2])))
	case telemetry.Position:
		return c.applyPosition(mathutil.Vec3{m.Values[0], m.Values[1], m.Values[2]})
	case telemetry.BaseStation:
		c.mu.Lock()
		c.state.Tracker.BaseStationPitch = mathutil.Deg2Rad(m.Values[0])
		c.state.Tracker.BaseStationRoll = mathutil.Deg2Rad(m.Values[1])
		c.mu.Unlock()
	case telemetry.Flatland:
		c.mu.Lock()
		c.state.Tracker.Flatland = mathutil.Vec3{m.Values[0], m.Values[1], m.Values[2]}
		c.mu.Unlock()
	default:
		logging.Logger().Debug("pose: ignoring telemetry", "tag", m.Tag)
	}
	return nil
}

func (c *Controller) setOrientation(q mathutil.Quat) {
	c.mu.Lock()
	c.state.ViewerOrientation = q
	c.state.Tracked = true
	c.mu.Unlock()
}

// applyPosition corrects a base station measurement for the station's tilt,
// turns it to face the viewer and moves the viewer by the alpha-scaled change
// since the previous measurement. The first measurement only primes the
// filter. A move onto the view target is rejected and changes nothing, since
// the look-at views of anaglyph and untracked stereo need a direction.
func (c *Controller) applyPosition(p mathutil.Vec3) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &c.state.Tracker
	rot := mathutil.RotY(math.Pi).Mul(mathutil.RotX(t.BaseStationPitch)).Mul(mathutil.RotZ(t.BaseStationRoll))
	world := rot.MulVec(p)

	if !t.hasPrev {
		t.prevPosition, t.hasPrev = world, true
		return nil
	}
	next := c.state.ViewerPosition.Add(world.Sub(t.prevPosition).Scale(t.PositionAlpha))
	if err := checkView(next, c.state.ViewerTarget); err != nil {
		return err
	}
	t.prevPosition = world
	c.state.ViewerPosition = next
	return nil
}
