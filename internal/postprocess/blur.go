package postprocess

import "image"

// Convolve applies a normalized symmetric kernel horizontally and then
// vertically. Edges clamp.
func Convolve(img *image.NRGBA, kernel []float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	half := len(kernel) / 2
	var sum float64
	for _, k := range kernel {
		sum += k
	}
	if sum == 0 {
		sum = 1
	}

	tmp := make([][4]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float64
			for i, k := range kernel {
				c := samplePix(img, b.Min.X+x+i-half, b.Min.Y+y)
				for j := range acc {
					acc[j] += c[j] * k
				}
			}
			tmp[y*w+x] = acc
		}
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float64
			for i, k := range kernel {
				yy := min(max(y+i-half, 0), h-1)
				c := tmp[yy*w+x]
				for j := range acc {
					acc[j] += c[j] * k
				}
			}
			for j := range acc {
				acc[j] /= sum * sum
			}
			setPix(out, x, y, acc)
		}
	}
	return out
}
