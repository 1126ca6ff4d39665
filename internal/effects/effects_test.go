package effects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/transform"
)

func params(t *testing.T, c display.Constants, w, h int) *display.Params {
	t.Helper()
	p, err := display.New(c, w, h)
	require.NoError(t, err)
	return p
}

func TestEccentricityBaseline(t *testing.T) {
	assert.Equal(t, 0.0, Eccentricity(W0))
	assert.InDelta(t, 1, Eccentricity(W0+MARSlope), 1e-12)
}

func TestPixelVisualAngle(t *testing.T) {
	// One mm seen from 57.3mm is about one degree.
	assert.InDelta(t, 1, PixelVisualAngle(1, 180/math.Pi), 1e-4)
	assert.InDelta(t, 2*math.Atan(0.5)*180/math.Pi, PixelVisualAngle(1, 1), 1e-12)
}

func TestFoveationThresholds(t *testing.T) {
	p := params(t, display.MonitorConstants(), 2560, 1440)
	th := FoveationThresholds(p, 0, 0)
	va := PixelVisualAngle(p.PixelPitch, p.DistanceScreenViewer)

	assert.Equal(t, va, th.PixelVA)
	assert.InDelta(t, (8*va-W0)/MARSlope, th.E1, 1e-12)
	assert.InDelta(t, (16*va-W0)/MARSlope, th.E2, 1e-12)
	assert.Less(t, th.E1, th.E2)
	assert.Greater(t, th.E1, 0.0)

	custom := FoveationThresholds(p, 2, 3)
	assert.InDelta(t, (4*va-W0)/MARSlope, custom.E1, 1e-12)

	assert.Equal(t, 0, th.Tier(th.E1/2))
	assert.Equal(t, 1, th.Tier((th.E1+th.E2)/2))
	assert.Equal(t, 2, th.Tier(th.E2+1))
}

func TestKernelsAreNormalized(t *testing.T) {
	for _, k := range [][]float64{KernelMiddle, KernelOuter} {
		var sum float64
		for i, w := range k {
			sum += w
			assert.InDelta(t, w, k[len(k)-1-i], 1e-12, "symmetric")
		}
		assert.InDelta(t, 1, sum, 1e-3)
	}
}

func TestEccentricityAt(t *testing.T) {
	p := params(t, display.MonitorConstants(), 2560, 1440)
	g := mathutil.Vec2{1280, 720}
	assert.Equal(t, 0.0, EccentricityAt(g, g, p))

	px := 100.0
	want := math.Atan(px*p.PixelPitch/p.DistanceScreenViewer) * 180 / math.Pi
	assert.InDelta(t, want, EccentricityAt(mathutil.Vec2{1280, 820}, g, p), 1e-12)
}

func TestCircleOfConfusion(t *testing.T) {
	assert.InDelta(t, 1.5, CircleOfConfusion(1000, 500, 3), 1e-12)
	assert.Equal(t, 0.0, CircleOfConfusion(700, 700, 3))
	assert.Equal(t, 0.0, CircleOfConfusion(0, 500, 3))
	assert.Equal(t, 0.0, CircleOfConfusion(-10, 500, 3))
	assert.Equal(t, 0.0, CircleOfConfusion(math.NaN(), 500, 3))

	assert.InDelta(t, 10, BlurRadiusPixels(1.5, 0.075), 1e-12)
	assert.Equal(t, 0.0, BlurRadiusPixels(1.5, 0))
}

func TestViewDistanceFromDepth(t *testing.T) {
	proj, err := transform.PerspectiveTransform(transform.Frustum{Left: -40, Right: 40, Top: 22.5, Bottom: -22.5}, 100, 100000)
	require.NoError(t, err)
	inv, err := proj.Inverse()
	require.NoError(t, err)

	for _, view := range []mathutil.Vec3{{30, -20, -700}, {0, 0, -100}, {-500, 300, -5000}} {
		ndc, ok := proj.MulVec4(mathutil.Point(view)).PerspectiveDivide()
		require.True(t, ok)
		uv := mathutil.Vec2{(ndc[0] + 1) / 2, (ndc[1] + 1) / 2}
		depth := (ndc[2] + 1) / 2

		d, ok := ViewDistanceFromDepth(uv, depth, proj, inv)
		require.True(t, ok)
		assert.InDelta(t, view.Len(), d, view.Len()*1e-6)
	}
}

func TestDistortionIdentityAtCenter(t *testing.T) {
	for _, k := range []mathutil.Vec2{{0, 0}, {0.34, 0.55}, {-3, 12}, {1e6, -1e6}} {
		assert.Equal(t, 1.0, DistortionFactor(0, k))
	}
	assert.InDelta(t, 1+0.34*0.25+0.55*0.0625, DistortionFactor(0.5, mathutil.Vec2{0.34, 0.55}), 1e-12)
}

func TestUndistort(t *testing.T) {
	p := params(t, display.HMDConstants(), 1920, 1080)
	l, _ := LensCenters(p)
	w, h := p.EyeViewportMM()
	vp := mathutil.Vec2{w, h}
	k := mathutil.Vec2{0.34, 0.55}

	s, ok := Undistort(l, l, vp, k, p.DistLensScreen)
	require.True(t, ok)
	assert.Equal(t, l, s)

	// Points move away from the center by the distortion factor.
	uv := mathutil.Vec2{l[0] - 0.1, 0.6}
	s, ok = Undistort(uv, l, vp, k, p.DistLensScreen)
	require.True(t, ok)
	assert.Greater(t, s.Sub(l).Len(), uv.Sub(l).Len())

	// Corners land outside the texture.
	_, ok = Undistort(mathutil.Vec2{0, 0}, l, vp, mathutil.Vec2{5, 5}, p.DistLensScreen)
	assert.False(t, ok)
}

func TestLensCentersMirror(t *testing.T) {
	p := params(t, display.HMDConstants(), 1920, 1080)
	l, r := LensCenters(p)
	assert.InDelta(t, 1-64/132.5, l[0], 1e-9)
	assert.InDelta(t, 1, l[0]+r[0], 1e-12)
	assert.Equal(t, 0.5, l[1])
	assert.Equal(t, 0.5, r[1])
}

func TestAnaglyph(t *testing.T) {
	assert.InDelta(t, 1, AnaglyphLuma(mathutil.Vec3{1, 1, 1}), 1e-3)
	got := Anaglyph(mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 0, 1})
	assert.InDeltaSlice(t, []float64{0.2989, 0.1140, 0.1140}, got[:], 1e-12)
}

func TestNewFrame(t *testing.T) {
	p := params(t, display.HMDConstants(), 1920, 1080)
	f := NewFrame(transform.StereoUnwarp, mathutil.Vec2{1, 2}, mathutil.Vec2{0.39, 0.14}, p)
	assert.Equal(t, transform.StereoUnwarp, f.Mode)
	assert.InDelta(t, 66.25, f.ViewportMM[0], 1e-9)
	assert.InDelta(t, 74.5, f.ViewportMM[1], 1e-9)
	assert.Equal(t, 39.0, f.DistLensScreen)
	assert.Equal(t, 3.0, f.PupilDiameter)
	assert.InDelta(t, 1, f.LensCenterL[0]+f.LensCenterR[0], 1e-12)
}
