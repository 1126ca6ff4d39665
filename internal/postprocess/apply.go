// Package postprocess runs the post effects on the CPU over rendered frames:
// foveation, depth of field, anaglyph, side-by-side stereo with optional lens
// unwarp, and supersample reduction.
package postprocess

import (
	"errors"
	"fmt"
	"image"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/raster"
	"vr-hmd-renderer/internal/transform"
)

var ErrNoEyes = errors.New("postprocess: frame has no eye buffers")

// Apply composes the final canvas of f according to its mode.
func Apply(f *raster.Frame, p *display.Params) (*image.NRGBA, error) {
	in := f.Input
	fr := in.Effects
	if in.Set.Mode != in.Mode {
		return nil, fmt.Errorf("postprocess: %s frame carries %s transforms", in.Mode, in.Set.Mode)
	}
	want := 1
	if in.Mode.IsStereo() {
		want = 2
	}
	if len(f.Eyes) < want {
		return nil, fmt.Errorf("%w: %s needs %d, got %d", ErrNoEyes, in.Mode, want, len(f.Eyes))
	}

	switch in.Mode {
	case transform.Standard:
		return f.Eyes[0].Image(), nil
	case transform.Foveated:
		return Foveate(f.Eyes[0].Image(), fr.Gaze, fr.Thresholds, p), nil
	case transform.DepthOfField:
		return DepthOfField(f.Eyes[0].Image(), f.Eyes[0].Depth, f.Projection(0), fr.Gaze, p)
	case transform.Anaglyph:
		return Anaglyph(f.Eyes[0].Image(), f.Eyes[1].Image())
	case transform.Stereo:
		return SideBySide(f.Eyes[0].Image(), f.Eyes[1].Image()), nil
	case transform.StereoUnwarp:
		return SideBySide(
			Unwarp(f.Eyes[0].Image(), fr.LensCenterL, fr),
			Unwarp(f.Eyes[1].Image(), fr.LensCenterR, fr),
		), nil
	}
	return nil, fmt.Errorf("postprocess: unsupported mode %s", in.Mode)
}
