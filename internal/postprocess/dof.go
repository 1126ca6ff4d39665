package postprocess

import (
	"fmt"
	"image"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/effects"
	"vr-hmd-renderer/internal/mathutil"
)

// DepthOfField blurs img by each pixel's circle of confusion relative to the
// distance under the gaze point. depth holds window depths row by row from
// the top, as written with proj.
func DepthOfField(img *image.NRGBA, depth []float64, proj mathutil.Mat4, gaze mathutil.Vec2, p *display.Params) (*image.NRGBA, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if len(depth) != w*h {
		return nil, fmt.Errorf("postprocess: depth has %d samples for a %dx%d image", len(depth), w, h)
	}
	inv, err := proj.Inverse()
	if err != nil {
		return nil, fmt.Errorf("postprocess: depth of field: %w", err)
	}

	dist := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			uv := mathutil.Vec2{(float64(x) + 0.5) / float64(w), 1 - (float64(y)+0.5)/float64(h)}
			if d, ok := effects.ViewDistanceFromDepth(uv, depth[y*w+x], proj, inv); ok {
				dist[y*w+x] = d
			}
		}
	}

	s := canvasScale(p, w, h)
	gx, gy := imagePixel(gaze, w, h, s)
	focus := dist[gy*w+gx]
	pitch := p.PixelPitch * s[0]

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			coc := effects.CircleOfConfusion(dist[y*w+x], focus, p.PupilDiameter)
			r := min(effects.BlurRadiusPixels(coc, pitch), effects.MaxBlurRadius)
			setPix(out, x, y, diskAverage(img, b.Min.X+x, b.Min.Y+y, r))
		}
	}
	return out, nil
}

// diskAverage is the mean color of the pixels within r of (cx, cy). The
// center pixel is always included.
func diskAverage(img *image.NRGBA, cx, cy int, r float64) [4]float64 {
	if r < 1 {
		return samplePix(img, cx, cy)
	}
	ri := int(r)
	r2 := r * r
	var acc [4]float64
	var n float64
	for j := -ri; j <= ri; j++ {
		for i := -ri; i <= ri; i++ {
			if float64(i*i+j*j) > r2 {
				continue
			}
			c := samplePix(img, cx+i, cy+j)
			for k := range acc {
				acc[k] += c[k]
			}
			n++
		}
	}
	for k := range acc {
		acc[k] /= n
	}
	return acc
}
