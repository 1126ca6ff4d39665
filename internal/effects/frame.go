package effects

import (
	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/transform"
)

// Frame carries every post-effect parameter of one frame.
type Frame struct {
	Mode transform.Mode

	Gaze       mathutil.Vec2 // pixels, origin bottom-left
	Thresholds Thresholds

	PupilDiameter float64
	PixelPitch    float64

	LensDistortion mathutil.Vec2
	LensCenterL    mathutil.Vec2
	LensCenterR    mathutil.Vec2
	ViewportMM     mathutil.Vec2 // one eye's half of the canvas
	DistLensScreen float64
}

// NewFrame gathers the parameters for mode. Fields a mode does not use are
// still filled so a backend may switch effects without recomputing.
func NewFrame(mode transform.Mode, gaze, lensDistortion mathutil.Vec2, p *display.Params) Frame {
	l, r := LensCenters(p)
	w, h := p.EyeViewportMM()
	return Frame{
		Mode:           mode,
		Gaze:           gaze,
		Thresholds:     FoveationThresholds(p, DefaultMiddleFactor, DefaultOuterFactor),
		PupilDiameter:  p.PupilDiameter,
		PixelPitch:     p.PixelPitch,
		LensDistortion: lensDistortion,
		LensCenterL:    l,
		LensCenterR:    r,
		ViewportMM:     mathutil.Vec2{w, h},
		DistLensScreen: p.DistLensScreen,
	}
}
