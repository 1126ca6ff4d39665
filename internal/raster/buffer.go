package raster

import (
	"image"
	"image/color"
)

// FrameBuffer holds one render target as flat slices for cache locality.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4, row 0 at the top
	Depth  []float64 // window depth in [0,1] per pixel, 1 is the far plane
}

// NewFrameBuffer allocates a buffer cleared to opaque black and the far plane.
func NewFrameBuffer(w, h int) *FrameBuffer {
	fb := &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, w*h*4),
		Depth:  make([]float64, w*h),
	}
	fb.Clear(color.NRGBA{A: 255})
	return fb
}

// Clear fills the color buffer with bg and resets depth to the far plane.
func (fb *FrameBuffer) Clear(bg color.NRGBA) {
	for i := 0; i < len(fb.Color); i += 4 {
		fb.Color[i] = bg.R
		fb.Color[i+1] = bg.G
		fb.Color[i+2] = bg.B
		fb.Color[i+3] = bg.A
	}
	for i := range fb.Depth {
		fb.Depth[i] = 1
	}
}

// DepthAt returns the stored depth of pixel (x, y), or 1 outside the buffer.
func (fb *FrameBuffer) DepthAt(x, y int) float64 {
	if x < 0 || y < 0 || x >= fb.Width || y >= fb.Height {
		return 1
	}
	return fb.Depth[y*fb.Width+x]
}

// Image wraps the color buffer without copying.
func (fb *FrameBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    fb.Color,
		Stride: fb.Width * 4,
		Rect:   image.Rect(0, 0, fb.Width, fb.Height),
	}
}
