package postprocess

import (
	"image"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/effects"
	"vr-hmd-renderer/internal/mathutil"
)

// Foveate keeps full resolution around gaze and blends in the middle and
// outer blur tiers by eccentricity. gaze is in canvas pixels, origin
// bottom-left.
func Foveate(img *image.NRGBA, gaze mathutil.Vec2, th effects.Thresholds, p *display.Params) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	tiers := [3]*image.NRGBA{img, Convolve(img, effects.KernelMiddle), Convolve(img, effects.KernelOuter)}
	s := canvasScale(p, w, h)

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ecc := effects.EccentricityAt(canvasPixel(x, y, h, s), gaze, p)
			src := tiers[th.Tier(ecc)]
			si := src.PixOffset(src.Bounds().Min.X+x, src.Bounds().Min.Y+y)
			copy(out.Pix[out.PixOffset(x, y):], src.Pix[si:si+4])
		}
	}
	return out
}
