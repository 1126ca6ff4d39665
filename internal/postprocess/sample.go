package postprocess

import (
	"image"
	"math"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/mathutil"
)

// samplePix reads pixel (x, y) as floats, clamping coordinates to the edge.
func samplePix(img *image.NRGBA, x, y int) [4]float64 {
	b := img.Bounds()
	x = min(max(x, b.Min.X), b.Max.X-1)
	y = min(max(y, b.Min.Y), b.Max.Y-1)
	i := img.PixOffset(x, y)
	return [4]float64{float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2]), float64(img.Pix[i+3])}
}

func lerp4(a, b [4]float64, t float64) [4]float64 {
	return [4]float64{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
		a[3] + (b[3]-a[3])*t,
	}
}

// sampleUV filters img bilinearly at texture coordinate uv, with v pointing
// up as in GL.
func sampleUV(img *image.NRGBA, uv mathutil.Vec2) [4]float64 {
	b := img.Bounds()
	fx := uv[0]*float64(b.Dx()) - 0.5
	fy := (1-uv[1])*float64(b.Dy()) - 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	tx, ty := fx-x0, fy-y0
	ix, iy := b.Min.X+int(x0), b.Min.Y+int(y0)

	top := lerp4(samplePix(img, ix, iy), samplePix(img, ix+1, iy), tx)
	bot := lerp4(samplePix(img, ix, iy+1), samplePix(img, ix+1, iy+1), tx)
	return lerp4(top, bot, ty)
}

func setPix(img *image.NRGBA, x, y int, c [4]float64) {
	i := img.PixOffset(x, y)
	img.Pix[i] = clamp8(c[0])
	img.Pix[i+1] = clamp8(c[1])
	img.Pix[i+2] = clamp8(c[2])
	img.Pix[i+3] = clamp8(c[3])
}

// canvasScale converts image pixels to canvas pixels, so gaze positions given
// on the canvas work for supersampled or single-eye images too.
func canvasScale(p *display.Params, w, h int) mathutil.Vec2 {
	if w <= 0 || h <= 0 || p.CanvasWidth <= 0 || p.CanvasHeight <= 0 {
		return mathutil.Vec2{1, 1}
	}
	return mathutil.Vec2{float64(p.CanvasWidth) / float64(w), float64(p.CanvasHeight) / float64(h)}
}

// canvasPixel is the center of image pixel (x, y) in canvas pixels with the
// origin at the bottom-left.
func canvasPixel(x, y, h int, s mathutil.Vec2) mathutil.Vec2 {
	return mathutil.Vec2{(float64(x) + 0.5) * s[0], (float64(h-y) - 0.5) * s[1]}
}

// imagePixel is the inverse of canvasPixel, clamped to the image.
func imagePixel(c mathutil.Vec2, w, h int, s mathutil.Vec2) (int, int) {
	x := int(math.Floor(c[0] / s[0]))
	y := h - 1 - int(math.Floor(c[1]/s[1]))
	return min(max(x, 0), w-1), min(max(y, 0), h-1)
}
