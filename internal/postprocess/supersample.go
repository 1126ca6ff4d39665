package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample reduces a supersampled frame to w×h. Filtering runs on
// premultiplied colors so the black background does not bleed into
// partially covered edge pixels. Frames already within w×h are returned
// unchanged.
func Downsample(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(small, small.Bounds(), premultiply(img), b, draw.Src, nil)
	return unpremultiply(small)
}

func premultiply(img *image.NRGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, y):]
		dst := out.Pix[out.PixOffset(b.Min.X, y):]
		for i := 0; i < b.Dx()*4; i += 4 {
			a := float64(src[i+3]) / 255
			dst[i] = clamp8(float64(src[i]) * a)
			dst[i+1] = clamp8(float64(src[i+1]) * a)
			dst[i+2] = clamp8(float64(src[i+2]) * a)
			dst[i+3] = src[i+3]
		}
	}
	return out
}

// unpremultiply leaves fully transparent pixels black.
func unpremultiply(img *image.RGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, y):]
		dst := out.Pix[out.PixOffset(b.Min.X, y):]
		for i := 0; i < b.Dx()*4; i += 4 {
			a := src[i+3]
			dst[i+3] = a
			if a == 0 {
				continue
			}
			k := 255 / float64(a)
			dst[i] = clamp8(float64(src[i]) * k)
			dst[i+1] = clamp8(float64(src[i+1]) * k)
			dst[i+2] = clamp8(float64(src[i+2]) * k)
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
