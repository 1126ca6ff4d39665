package transform

import (
	"fmt"

	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/mathutil"
)

// Pose is the geometric part of the scene state read once per frame.
type Pose struct {
	ClipNear, ClipFar float64

	ModelTranslation mathutil.Vec3
	ModelRotation    mathutil.Vec2 // degrees: pitch, yaw

	ViewerPosition    mathutil.Vec3
	ViewerTarget      mathutil.Vec3
	ViewerOrientation mathutil.Quat

	// Tracked makes ViewerOrientation authoritative for stereo views in place
	// of ViewerTarget.
	Tracked      bool
	TopView      bool
	Orthographic bool
}

// Set is one frame's matrices. Mono modes fill View and Projection; stereo
// modes fill the per-eye fields and copy the left eye into View/Projection.
type Set struct {
	Mode   Mode
	Stereo bool

	Model      mathutil.Mat4
	View       mathutil.Mat4
	Projection mathutil.Mat4

	ViewL, ViewR             mathutil.Mat4
	ProjectionL, ProjectionR mathutil.Mat4

	ClipNear, ClipFar float64
	Frustum           StereoFrustum
}

// Eye returns the view and projection for one side. Mono sets return the
// shared matrices for either eye.
func (s Set) Eye(e Eye) (view, projection mathutil.Mat4) {
	if !s.Stereo {
		return s.View, s.Projection
	}
	if e == LeftEye {
		return s.ViewL, s.ProjectionL
	}
	return s.ViewR, s.ProjectionR
}

// Compute builds the frame's matrices for mode from scratch.
func Compute(mode Mode, pose Pose, p *display.Params) (Set, error) {
	near, far := ClampClip(pose.ClipNear, pose.ClipFar)
	set := Set{
		Mode:     mode,
		Stereo:   mode.IsStereo(),
		Model:    ModelTransform(pose.ModelTranslation, pose.ModelRotation),
		ClipNear: near,
		ClipFar:  far,
	}

	if !set.Stereo {
		return computeMono(set, pose, p)
	}

	set.Frustum = SplitStereoFrustum(near, p, mode.Layout())
	for _, eye := range []Eye{LeftEye, RightEye} {
		shift := HalfIPDShift(p.IPD, eye)

		var view mathutil.Mat4
		if pose.Tracked && mode != Anaglyph {
			view = HeadNeckViewTransform(pose.ViewerOrientation, pose.ViewerPosition, shift, p.NeckLength, p.HeadLength)
		} else {
			v, err := StereoViewTransform(pose.ViewerPosition, pose.ViewerTarget, WorldUp, shift)
			if err != nil {
				return Set{}, fmt.Errorf("transform: %s view %s: %w", mode, eye, err)
			}
			view = v
		}

		fr := set.Frustum.L
		if eye == RightEye {
			fr = set.Frustum.R
		}
		proj, err := PerspectiveTransform(fr, near, far)
		if err != nil {
			return Set{}, fmt.Errorf("transform: %s projection %s: %w", mode, eye, err)
		}

		if eye == LeftEye {
			set.ViewL, set.ProjectionL = view, proj
		} else {
			set.ViewR, set.ProjectionR = view, proj
		}
	}
	set.View, set.Projection = set.ViewL, set.ProjectionL
	return set, nil
}

// Engine recomputes a Set every frame. When a frame's state is degenerate the
// last valid Set of the same mode is returned along with the error, so a
// fallback never carries another mode's eye layout. Not safe for concurrent
// use.
type Engine struct {
	last map[Mode]Set
}

func (e *Engine) Update(mode Mode, pose Pose, p *display.Params) (Set, error) {
	s, err := Compute(mode, pose, p)
	if err != nil {
		if last, ok := e.last[mode]; ok {
			return last, err
		}
		return Set{}, err
	}
	if e.last == nil {
		e.last = make(map[Mode]Set, len(Modes))
	}
	e.last[mode] = s
	return s, nil
}

// Last returns the most recent valid Set computed for mode.
func (e *Engine) Last(mode Mode) (Set, bool) {
	s, ok := e.last[mode]
	return s, ok
}

func computeMono(set Set, pose Pose, p *display.Params) (Set, error) {
	var err error
	if pose.TopView {
		set.View = TopViewMatrix()
		// Top view always uses a fixed perspective volume.
		set.ClipNear, set.ClipFar = 1, 10000
		fr := MonoFrustum(set.ClipNear, p)
		set.Frustum = StereoFrustum{L: fr, R: fr}
		set.Projection, err = PerspectiveTransform(fr, set.ClipNear, set.ClipFar)
		if err != nil {
			return Set{}, fmt.Errorf("transform: top view: %w", err)
		}
		return set, nil
	}

	set.View, err = ViewTransform(pose.ViewerPosition, pose.ViewerTarget, WorldUp)
	if err != nil {
		return Set{}, fmt.Errorf("transform: %s view: %w", set.Mode, err)
	}

	var fr Frustum
	if pose.Orthographic {
		fr = OrthoExtents(p)
		set.Projection, err = OrthographicTransform(fr, set.ClipNear, set.ClipFar)
	} else {
		fr = MonoFrustum(set.ClipNear, p)
		set.Projection, err = PerspectiveTransform(fr, set.ClipNear, set.ClipFar)
	}
	if err != nil {
		return Set{}, fmt.Errorf("transform: %s projection: %w", set.Mode, err)
	}
	set.Frustum = StereoFrustum{L: fr, R: fr}
	set.ViewL, set.ViewR = set.View, set.View
	set.ProjectionL, set.ProjectionR = set.Projection, set.Projection
	return set, nil
}
