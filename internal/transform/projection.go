package transform

import (
	"errors"
	"fmt"
	"math"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/mathutil"
)

// MinClipNear is the smallest near plane distance (mm) a projection accepts.
const MinClipNear = 1.0

// ErrDegenerateFrustum is returned for zero-width, zero-height or zero-depth
// viewing volumes.
var ErrDegenerateFrustum = errors.New("transform: degenerate frustum")

// ClampClip enforces near >= MinClipNear and far > near.
func ClampClip(near, far float64) (float64, float64) {
	if !(near >= MinClipNear) { // also catches NaN
		near = MinClipNear
	}
	if !(far > near) {
		far = near + MinClipNear
	}
	return near, far
}

// Frustum holds the extents of a viewing volume on the near plane.
type Frustum struct {
	Left, Right, Top, Bottom float64
}

// StereoFrustum is one frustum per eye.
type StereoFrustum struct {
	L, R Frustum
}

func (f Frustum) validate(near, far float64) error {
	if f.Right == f.Left || f.Top == f.Bottom || far == near {
		return fmt.Errorf("%w: l=%v r=%v t=%v b=%v n=%v f=%v",
			ErrDegenerateFrustum, f.Left, f.Right, f.Top, f.Bottom, near, far)
	}
	for _, v := range []float64{f.Left, f.Right, f.Top, f.Bottom, near, far} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite extent", ErrDegenerateFrustum)
		}
	}
	return nil
}

// PerspectiveTransform is the OpenGL off-axis perspective projection. The
// near plane maps to NDC z=-1 and the far plane to z=+1; left/right and
// top/bottom need not be symmetric.
func PerspectiveTransform(f Frustum, near, far float64) (mathutil.Mat4, error) {
	if near <= 0 {
		return mathutil.Mat4Identity(), fmt.Errorf("%w: near %v", ErrDegenerateFrustum, near)
	}
	if err := f.validate(near, far); err != nil {
		return mathutil.Mat4Identity(), err
	}
	l, r, t, b := f.Left, f.Right, f.Top, f.Bottom
	return mathutil.Mat4{
		2 * near / (r - l), 0, (r + l) / (r - l), 0,
		0, 2 * near / (t - b), (t + b) / (t - b), 0,
		0, 0, -(far + near) / (far - near), -2 * far * near / (far - near),
		0, 0, -1, 0,
	}, nil
}

// OrthographicTransform maps the box [l,r]×[b,t]×[-near,-far] to the NDC cube.
func OrthographicTransform(f Frustum, near, far float64) (mathutil.Mat4, error) {
	if err := f.validate(near, far); err != nil {
		return mathutil.Mat4Identity(), err
	}
	l, r, t, b := f.Left, f.Right, f.Top, f.Bottom
	return mathutil.Mat4{
		2 / (r - l), 0, 0, -(r + l) / (r - l),
		0, 2 / (t - b), 0, -(t + b) / (t - b),
		0, 0, -2 / (far - near), -(far + near) / (far - near),
		0, 0, 0, 1,
	}, nil
}

// MonoFrustum is the symmetric frustum through the canvas edges, scaled onto
// the near plane. With a lens the virtual image is magnified.
func MonoFrustum(near float64, p *display.Params) Frustum {
	w, h := p.CanvasSizeMM()
	k := near * p.LensMagnification / p.DistanceScreenViewer
	return Frustum{Left: -w / 2 * k, Right: w / 2 * k, Top: h / 2 * k, Bottom: -h / 2 * k}
}

// OrthoExtents is the canvas size in mm centered on the axis.
func OrthoExtents(p *display.Params) Frustum {
	w, h := p.CanvasSizeMM()
	return Frustum{Left: -w / 2, Right: w / 2, Top: h / 2, Bottom: -h / 2}
}

// StereoLayout says how the two eyes share the physical screen.
type StereoLayout int

const (
	// SharedScreen: both eyes look at the whole canvas (anaglyph on a monitor).
	SharedScreen StereoLayout = iota
	// SplitScreen: each eye sees its own half through a lens (HMD).
	SplitScreen
)

// SplitStereoFrustum computes per-eye frustums for either layout. Left and
// right frustums are horizontal mirror images about the IPD centerline:
// L.Left == -R.Right and L.Right == -R.Left, with identical top and bottom.
//
// SplitScreen: the lens centers sit ipd/2 either side of the screen center, so
// each eye's inner (nasal) extent spans ipd/2 and its outer extent spans
// (width - ipd)/2, both magnified by the lens.
//
// SharedScreen: the eye at -ipd/2 sees the canvas [-w/2, w/2] shifted by
// +ipd/2, giving [-(w-ipd)/2, (w+ipd)/2] for the left eye.
func SplitStereoFrustum(near float64, p *display.Params, layout StereoLayout) StereoFrustum {
	w, h := p.CanvasSizeMM()
	ipd := p.IPD
	k := near * p.LensMagnification / p.DistanceScreenViewer

	top := h / 2 * k
	var left Frustum
	switch layout {
	case SplitScreen:
		left = Frustum{Left: -(w - ipd) / 2 * k, Right: ipd / 2 * k}
	default:
		left = Frustum{Left: -(w - ipd) / 2 * k, Right: (w + ipd) / 2 * k}
	}
	left.Top, left.Bottom = top, -top
	right := Frustum{Left: -left.Right, Right: -left.Left, Top: top, Bottom: -top}
	return StereoFrustum{L: left, R: right}
}
