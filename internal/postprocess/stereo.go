package postprocess

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"vr-hmd-renderer/internal/effects"
	"vr-hmd-renderer/internal/mathutil"
)

// Anaglyph merges two equally sized eye images for red/cyan glasses.
func Anaglyph(left, right *image.NRGBA) (*image.NRGBA, error) {
	lb, rb := left.Bounds(), right.Bounds()
	if lb.Size() != rb.Size() {
		return nil, fmt.Errorf("postprocess: anaglyph eyes differ: %v vs %v", lb.Size(), rb.Size())
	}
	w, h := lb.Dx(), lb.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := samplePix(left, lb.Min.X+x, lb.Min.Y+y)
			r := samplePix(right, rb.Min.X+x, rb.Min.Y+y)
			c := effects.Anaglyph(
				mathutil.Vec3{l[0], l[1], l[2]}.Scale(1.0/255),
				mathutil.Vec3{r[0], r[1], r[2]}.Scale(1.0/255),
			)
			setPix(out, x, y, [4]float64{c[0] * 255, c[1] * 255, c[2] * 255, 255})
		}
	}
	return out, nil
}

// SideBySide places left and right next to each other.
func SideBySide(left, right *image.NRGBA) *image.NRGBA {
	lb, rb := left.Bounds(), right.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, lb.Dx()+rb.Dx(), max(lb.Dy(), rb.Dy())))
	draw.Copy(out, image.Point{}, left, lb, draw.Src, nil)
	draw.Copy(out, image.Pt(lb.Dx(), 0), right, rb, draw.Src, nil)
	return out
}

// Unwarp pre-distorts one eye image so the lens distortion cancels it.
// Samples that land outside the eye image are black.
func Unwarp(eye *image.NRGBA, center mathutil.Vec2, fr effects.Frame) *image.NRGBA {
	b := eye.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			uv := mathutil.Vec2{(float64(x) + 0.5) / float64(w), 1 - (float64(y)+0.5)/float64(h)}
			s, ok := effects.Undistort(uv, center, fr.ViewportMM, fr.LensDistortion, fr.DistLensScreen)
			if !ok {
				setPix(out, x, y, [4]float64{0, 0, 0, 255})
				continue
			}
			setPix(out, x, y, sampleUV(eye, s))
		}
	}
	return out
}
