package effects

import (
	"math"

	"vr-hmd-renderer/internal/mathutil"
)

// MaxBlurRadius caps the depth-of-field search window in pixels.
const MaxBlurRadius = 11

// CircleOfConfusion is the thin-lens blur diameter in mm on the retina side
// for a fragment at fragDist when the eye focuses at focusDist. Fragments at
// or behind the eye (fragDist <= 0) are not blurred.
func CircleOfConfusion(fragDist, focusDist, pupilDiameter float64) float64 {
	if !(fragDist > 0) {
		return 0
	}
	return math.Abs(fragDist-focusDist) * pupilDiameter / fragDist
}

// BlurRadiusPixels converts a circle of confusion to a radius in pixels.
func BlurRadiusPixels(coc, pixelPitch float64) float64 {
	if pixelPitch <= 0 {
		return 0
	}
	return 0.5 * coc / pixelPitch
}

// ViewDistanceFromDepth reconstructs the eye-space distance of a depth buffer
// sample. uv is the texture coordinate in [0,1]², depth the stored window
// depth in [0,1], proj the projection that rendered it and invProj its
// inverse. ok is false when the sample cannot be unprojected.
func ViewDistanceFromDepth(uv mathutil.Vec2, depth float64, proj, invProj mathutil.Mat4) (float64, bool) {
	ndc := mathutil.Vec3{2*uv[0] - 1, 2*uv[1] - 1, 2*depth - 1}
	den := ndc[2] + proj.At(2, 2)
	if den == 0 {
		return 0, false
	}
	w := proj.At(2, 3) / den
	clip := mathutil.Vec4{ndc[0] * w, ndc[1] * w, ndc[2] * w, w}
	view := invProj.MulVec4(clip).XYZ()
	if !view.IsFinite() {
		return 0, false
	}
	return view.Len(), true
}
