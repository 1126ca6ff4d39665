// Package effects computes the per-frame parameters of the post effects. It
// does not touch pixels; postprocess and any GPU backend consume the values.
package effects

import (
	"math"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/mathutil"
)

// Minimum angle of resolution model: mar = W0 + MARSlope·eccentricity,
// in degrees per cycle.
const (
	W0       = 1.0 / 48
	MARSlope = 0.0275
)

// Default resolution loss factors for the middle and outer blur tiers.
const (
	DefaultMiddleFactor = 4
	DefaultOuterFactor  = 8
)

// Blur kernels for the middle and outer tiers (binomial weights).
var (
	KernelMiddle = []float64{0.0625, 0.25, 0.375, 0.25, 0.0625}
	KernelOuter  = []float64{0.0039, 0.0312, 0.1094, 0.2188, 0.2734, 0.2188, 0.1094, 0.0312, 0.0039}
)

// PixelVisualAngle is the angle in degrees one pixel subtends from distance.
func PixelVisualAngle(pixelPitch, distance float64) float64 {
	return mathutil.Rad2Deg(2 * math.Atan(pixelPitch/(2*distance)))
}

// Eccentricity returns the eccentricity in degrees at which mar is just
// resolvable. Eccentricity(W0) == 0.
func Eccentricity(mar float64) float64 {
	return (mar - W0) / MARSlope
}

// Thresholds split the image into three foveation tiers: full resolution
// inside E1, the middle kernel between E1 and E2, the outer kernel beyond.
type Thresholds struct {
	PixelVA float64 // degrees per pixel
	E1, E2  float64 // degrees
}

// FoveationThresholds derives the tier boundaries. A pixel blurred by factor
// k has mar = k·2·PixelVA (one cycle is two pixels). Non-positive factors use
// the defaults.
func FoveationThresholds(p *display.Params, middleFactor, outerFactor float64) Thresholds {
	if middleFactor <= 0 {
		middleFactor = DefaultMiddleFactor
	}
	if outerFactor <= 0 {
		outerFactor = DefaultOuterFactor
	}
	va := PixelVisualAngle(p.PixelPitch, p.DistanceScreenViewer)
	return Thresholds{
		PixelVA: va,
		E1:      Eccentricity(middleFactor * 2 * va),
		E2:      Eccentricity(outerFactor * 2 * va),
	}
}

// Tier is 0 inside E1, 1 up to E2 and 2 beyond.
func (t Thresholds) Tier(ecc float64) int {
	switch {
	case ecc < t.E1:
		return 0
	case ecc < t.E2:
		return 1
	default:
		return 2
	}
}

// EccentricityAt is the visual angle in degrees between a pixel and the gaze
// point, both in pixels.
func EccentricityAt(pixel, gaze mathutil.Vec2, p *display.Params) float64 {
	mm := pixel.Sub(gaze).Len() * p.PixelPitch
	return mathutil.Rad2Deg(math.Atan(mm / p.DistanceScreenViewer))
}
