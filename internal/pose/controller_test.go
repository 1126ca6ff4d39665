package pose

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/telemetry"
	"vr-hmd-renderer/internal/transform"
)

func newController(t *testing.T) (*Controller, *display.Params) {
	t.Helper()
	p, err := display.New(display.HMDConstants(), 1920, 1080)
	require.NoError(t, err)
	return NewController(Default(p), p), p
}

func apply(t *testing.T, c *Controller, line string) {
	t.Helper()
	m, err := telemetry.Parse(line)
	require.NoError(t, err)
	require.NoError(t, c.Apply(m))
}

func TestDefaultState(t *testing.T) {
	c, p := newController(t)
	s := c.Snapshot()

	assert.Equal(t, 100.0, s.ClipNear)
	assert.Equal(t, 100000.0, s.ClipFar)
	assert.Equal(t, mathutil.Vec3{0, 0, p.DistanceScreenViewer}, s.ViewerPosition)
	assert.Equal(t, mathutil.Vec2{960, 540}, s.Gaze)
	assert.Equal(t, 1.0, s.Tracker.PositionAlpha)
	require.Len(t, s.Lights.Point, 1)
	assert.InDelta(t, 238.0/255*1.3, s.Lights.Point[0].Color[1], 1e-12)
	assert.Equal(t, 120.0, s.Material.Shininess)
	assert.False(t, s.Tracked)

	_, err := transform.Compute(transform.Standard, s.Geometry(), p)
	assert.NoError(t, err)
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	c, _ := newController(t)
	s := c.Snapshot()
	s.Lights.Point[0].Position = mathutil.Vec3{-1, -1, -1}
	s.ModelTranslation = mathutil.Vec3{5, 5, 5}

	again := c.Snapshot()
	assert.Equal(t, mathutil.Vec3{100, 1000, 1000}, again.Lights.Point[0].Position)
	assert.Equal(t, mathutil.Vec3{}, again.ModelTranslation)
}

func TestMovementFlipsY(t *testing.T) {
	c, _ := newController(t)
	c.Press(100, 100)
	assert.Equal(t, mathutil.Vec2{10, 5}, c.Movement(110, 95))
	assert.Equal(t, mathutil.Vec2{-10, -5}, c.Movement(100, 100))
}

func TestDragModel(t *testing.T) {
	c, _ := newController(t)
	d := mathutil.Vec2{4, -2}

	require.NoError(t, c.Drag(DragModel, d, Modifiers{}))
	assert.Equal(t, mathutil.Vec2{-2, 4}, c.Snapshot().ModelRotation)

	require.NoError(t, c.Drag(DragModel, d, Modifiers{Shift: true}))
	assert.Equal(t, mathutil.Vec3{4, -2, 0}, c.Snapshot().ModelTranslation)

	require.NoError(t, c.Drag(DragModel, d, Modifiers{Ctrl: true}))
	assert.Equal(t, mathutil.Vec3{4, -2, -2}, c.Snapshot().ModelTranslation)
}

func TestMoveIgnoredWithoutPress(t *testing.T) {
	c, _ := newController(t)
	require.NoError(t, c.Move(DragModel, 50, 50, Modifiers{}))
	assert.Equal(t, mathutil.Vec2{}, c.Snapshot().ModelRotation)

	c.Press(0, 0)
	require.NoError(t, c.Move(DragModel, 3, 0, Modifiers{}))
	assert.Equal(t, mathutil.Vec2{0, 3}, c.Snapshot().ModelRotation)
	c.Release()
	require.NoError(t, c.Move(DragModel, 30, 0, Modifiers{}))
	assert.Equal(t, mathutil.Vec2{0, 3}, c.Snapshot().ModelRotation)
}

func TestDragViewerRejectsDegenerate(t *testing.T) {
	c, _ := newController(t)
	require.NoError(t, c.SetViewer(mathutil.Vec3{0, 0, 10}, mathutil.Vec3{}))

	err := c.Drag(DragViewerPosition, mathutil.Vec2{0, -10}, Modifiers{Ctrl: true})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, mathutil.Vec3{0, 0, 10}, c.Snapshot().ViewerPosition)

	err = c.Drag(DragViewerTarget, mathutil.Vec2{0, 10}, Modifiers{Ctrl: true})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, mathutil.Vec3{}, c.Snapshot().ViewerTarget)

	require.NoError(t, c.Drag(DragViewerTarget, mathutil.Vec2{7, 3}, Modifiers{}))
	assert.Equal(t, mathutil.Vec3{7, 3, 0}, c.Snapshot().ViewerTarget)

	assert.ErrorIs(t, c.SetViewer(mathutil.Vec3{1, 1, 1}, mathutil.Vec3{1, 1, 1}), ErrRejected)
	assert.ErrorIs(t, c.SetViewer(mathutil.Vec3{math.NaN(), 0, 0}, mathutil.Vec3{}), ErrRejected)
}

func TestClipNearStaysPositive(t *testing.T) {
	c, _ := newController(t)
	require.NoError(t, c.Drag(DragClipNear, mathutil.Vec2{0, -500}, Modifiers{}))
	s := c.Snapshot()
	assert.Equal(t, transform.MinClipNear, s.ClipNear)
	assert.Greater(t, s.ClipFar, s.ClipNear)

	require.NoError(t, c.Drag(DragClipNear, mathutil.Vec2{0, 1e6}, Modifiers{}))
	s = c.Snapshot()
	assert.Less(t, s.ClipNear, s.ClipFar)

	c.SetClip(0, -3)
	s = c.Snapshot()
	assert.Equal(t, transform.MinClipNear, s.ClipNear)
	assert.Greater(t, s.ClipFar, s.ClipNear)
}

func TestHandleKey(t *testing.T) {
	c, _ := newController(t)
	assert.True(t, c.HandleKey('w'))
	assert.True(t, c.HandleKey('W'))
	assert.True(t, c.HandleKey('s'))
	assert.InDelta(t, 3, c.Snapshot().ModelTranslation[2], 1e-12)

	assert.True(t, c.HandleKey('2'))
	assert.True(t, c.HandleKey('5'))
	k := c.Snapshot().LensDistortion
	assert.InDelta(t, 0.35, k[0], 1e-12)
	assert.InDelta(t, 0.54, k[1], 1e-12)

	assert.False(t, c.HandleKey('x'))
}

func TestPositionFilterClamped(t *testing.T) {
	c, _ := newController(t)
	c.AdjustPositionFilter(0.5)
	assert.Equal(t, 1.0, c.Snapshot().Tracker.PositionAlpha)
	for i := 0; i < 150; i++ {
		c.HandleKey('-')
	}
	assert.Equal(t, 0.0, c.Snapshot().Tracker.PositionAlpha)
}

func TestSetGazeFlipsY(t *testing.T) {
	c, _ := newController(t)
	c.SetGaze(100, 80)
	assert.Equal(t, mathutil.Vec2{100, 1000}, c.Snapshot().Gaze)
}

func TestSetGazeFollowsResize(t *testing.T) {
	c, p := newController(t)
	c.Resize(800, 600)
	c.SetGaze(100, 80)
	assert.Equal(t, mathutil.Vec2{100, 520}, c.Snapshot().Gaze)
	assert.Equal(t, 1080, p.CanvasHeight, "display parameters belong to the render loop")

	c.Resize(0, 100)
	c.SetGaze(0, 0)
	assert.Equal(t, mathutil.Vec2{0, 600}, c.Snapshot().Gaze)
}

func TestResizeWhileSettingGaze(t *testing.T) {
	c, _ := newController(t)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			c.Resize(1920, 1000+i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.SetGaze(10, 0)
		}
	}()
	wg.Wait()
	g := c.Snapshot().Gaze
	assert.GreaterOrEqual(t, g[1], 1001.0)
	assert.LessOrEqual(t, g[1], 1200.0)
}

func TestApplyQuaternion(t *testing.T) {
	c, _ := newController(t)
	apply(t, c, `"QC 2 0 0 0"`)
	s := c.Snapshot()
	assert.True(t, s.Tracked)
	assert.True(t, s.ViewerOrientation.ApproxEqual(mathutil.QuatIdentity(), 1e-12))

	// A yaw commutes with the half turn about Y.
	yaw := mathutil.QuatFromAxisAngle(mathutil.Vec3{0, 1, 0}, 0.4)
	apply(t, c, telemetry.Format(telemetry.Quaternion, yaw.Real, yaw.Imag, yaw.Jmag, yaw.Kmag))
	assert.True(t, c.Snapshot().ViewerOrientation.ApproxEqual(yaw, 1e-9))

	// A pitch is mirrored.
	pitch := mathutil.QuatFromAxisAngle(mathutil.Vec3{1, 0, 0}, 0.4)
	apply(t, c, telemetry.Format(telemetry.Quaternion, pitch.Real, pitch.Imag, pitch.Jmag, pitch.Kmag))
	want := mathutil.QuatFromAxisAngle(mathutil.Vec3{1, 0, 0}, -0.4)
	assert.True(t, c.Snapshot().ViewerOrientation.ApproxEqual(want, 1e-9))
}

func TestApplyRejectsZeroQuaternion(t *testing.T) {
	c, _ := newController(t)
	m, err := telemetry.Parse("QC 0 0 0 0")
	require.NoError(t, err)
	assert.ErrorIs(t, c.Apply(m), telemetry.ErrMalformed)
	assert.False(t, c.Snapshot().Tracked)

	assert.ErrorIs(t, c.Apply(telemetry.Message{Kind: telemetry.Position, Values: []float64{1}}), telemetry.ErrMalformed)
}

func TestApplyPositionDeltas(t *testing.T) {
	c, p := newController(t)
	start := mathutil.Vec3{0, 0, p.DistanceScreenViewer}

	apply(t, c, "PS 100 200 300")
	assert.Equal(t, start, c.Snapshot().ViewerPosition, "first sample only primes the filter")

	apply(t, c, "PS 110 220 330")
	got := c.Snapshot().ViewerPosition
	want := start.Add(mathutil.Vec3{-10, 20, -30})
	assert.InDeltaSlice(t, want[:], got[:], 1e-9)

	c.AdjustPositionFilter(-0.5)
	apply(t, c, "PS 120 240 360")
	got = c.Snapshot().ViewerPosition
	want = want.Add(mathutil.Vec3{-5, 10, -15})
	assert.InDeltaSlice(t, want[:], got[:], 1e-9)
}

func TestApplyPositionRejectsDegenerateView(t *testing.T) {
	c, p := newController(t)
	start := c.Snapshot().ViewerPosition

	apply(t, c, "PS 0 0 0")
	// Moving the viewer by its full distance would put it on the target.
	m, err := telemetry.Parse(telemetry.Format(telemetry.Position, 0, 0, p.DistanceScreenViewer))
	require.NoError(t, err)
	assert.ErrorIs(t, c.Apply(m), ErrRejected)
	assert.Equal(t, start, c.Snapshot().ViewerPosition)

	s := c.Snapshot()
	_, err = transform.Compute(transform.Anaglyph, s.Geometry(), p)
	require.NoError(t, err)

	// The filter still measures from the last accepted sample.
	apply(t, c, "PS 0 0 10")
	got := c.Snapshot().ViewerPosition
	want := start.Add(mathutil.Vec3{0, 0, -10})
	assert.InDeltaSlice(t, want[:], got[:], 1e-9)
}

func TestApplyBaseStationTilt(t *testing.T) {
	c, p := newController(t)
	apply(t, c, "BS 90 0")
	s := c.Snapshot()
	assert.InDelta(t, math.Pi/2, s.Tracker.BaseStationPitch, 1e-12)

	apply(t, c, "PS 0 0 0")
	apply(t, c, "PS 0 10 0")
	got := c.Snapshot().ViewerPosition
	want := mathutil.Vec3{0, 0, p.DistanceScreenViewer - 10}
	assert.InDeltaSlice(t, want[:], got[:], 1e-9)
}

func TestApplyEulerAndFlatland(t *testing.T) {
	c, _ := newController(t)
	apply(t, c, "EA 30 0 0")
	want := mathutil.QuatFromEulerDeg(30, 0, 0)
	assert.True(t, c.Snapshot().ViewerOrientation.ApproxEqual(want, 1e-9))

	apply(t, c, "FLAT 1.5 2.5 2")
	assert.Equal(t, mathutil.Vec3{1.5, 2.5, 2}, c.Snapshot().Tracker.Flatland)

	before := c.Snapshot()
	apply(t, c, "XX 1 2 3")
	assert.Equal(t, before, c.Snapshot())
}

func TestModeSwitchKeepsPose(t *testing.T) {
	c, p := newController(t)
	sel := transform.NewSelector(transform.Standard, nil)
	apply(t, c, "EA 10 5 0")
	require.NoError(t, c.Drag(DragModel, mathutil.Vec2{3, 4}, Modifiers{}))
	before := c.Snapshot()

	for _, key := range "123456" {
		sel.HandleKey(key)
		s := c.Snapshot()
		assert.Equal(t, before, s)
		_, err := transform.Compute(sel.Current(), s.Geometry(), p)
		assert.NoError(t, err, sel.Current().String())
	}
}

func TestConcurrentWritersAndSnapshots(t *testing.T) {
	c, p := newController(t)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			m, _ := telemetry.Parse(telemetry.Format(telemetry.Position, float64(i), 0, 0))
			_ = c.Apply(m)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = c.Drag(DragModel, mathutil.Vec2{1, 1}, Modifiers{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s := c.Snapshot()
			_, err := transform.Compute(transform.Stereo, s.Geometry(), p)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()
	assert.Equal(t, mathutil.Vec2{500, 500}, c.Snapshot().ModelRotation)
}
