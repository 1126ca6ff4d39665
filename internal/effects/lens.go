package effects

import (
	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/mathutil"
)

// DistortionFactor is the radial scale 1 + K1·r² + K2·r⁴ of the lens model.
func DistortionFactor(r float64, k mathutil.Vec2) float64 {
	r2 := r * r
	return 1 + k[0]*r2 + k[1]*r2*r2
}

// Undistort maps an output texture coordinate to the coordinate to sample in
// the rendered eye image. The radius is measured in mm on the screen and
// normalized by the lens-screen distance. ok is false when the sample falls
// outside [0,1]²; the caller shows black there.
func Undistort(uv, center, viewportMM, k mathutil.Vec2, distLensScreen float64) (mathutil.Vec2, bool) {
	d := uv.Sub(center)
	var r float64
	if distLensScreen > 0 {
		r = d.Mul(viewportMM).Len() / distLensScreen
	}
	s := center.Add(d.Scale(DistortionFactor(r, k)))
	if s[0] < 0 || s[0] > 1 || s[1] < 0 || s[1] > 1 {
		return s, false
	}
	return s, true
}

// LensCenters returns the optical centers of both lenses in each eye's own
// texture coordinates. The lenses sit ipd/2 either side of the canvas middle,
// so the centers lie toward the nose.
func LensCenters(p *display.Params) (left, right mathutil.Vec2) {
	w := p.PixelPitch * float64(p.CanvasWidth)
	if w <= 0 {
		return mathutil.Vec2{0.5, 0.5}, mathutil.Vec2{0.5, 0.5}
	}
	return mathutil.Vec2{1 - p.IPD/w, 0.5}, mathutil.Vec2{p.IPD / w, 0.5}
}

// Luma weights for the anaglyph mix.
var lumaWeights = mathutil.Vec3{0.2989, 0.5870, 0.1140}

func AnaglyphLuma(rgb mathutil.Vec3) float64 {
	return rgb.Dot(lumaWeights)
}

// Anaglyph combines the eye colors for red/cyan glasses: the left luma in
// red, the right luma in green and blue.
func Anaglyph(left, right mathutil.Vec3) mathutil.Vec3 {
	l, r := AnaglyphLuma(left), AnaglyphLuma(right)
	return mathutil.Vec3{l, r, r}
}
