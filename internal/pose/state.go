// Package pose holds the mutable scene state of a session and the controller
// that applies input deltas and tracker telemetry to it.
package pose

import (
	"vr-hmd-renderer/internal/display"
	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/transform"
)

type PointLight struct {
	Position mathutil.Vec3
	Color    mathutil.Vec3
}

type DirectionalLight struct {
	Direction mathutil.Vec3
	Color     mathutil.Vec3
}

type Lights struct {
	Point       []PointLight
	Directional []DirectionalLight
	Ambient     mathutil.Vec3
}

// Material holds Phong reflectances. Shininess is never negative.
type Material struct {
	Ambient   mathutil.Vec3
	Diffuse   mathutil.Vec3
	Specular  mathutil.Vec3
	Shininess float64
}

// Tracker is the bookkeeping needed to turn position telemetry into viewer
// motion.
type Tracker struct {
	BaseStationPitch float64 // radians
	BaseStationRoll  float64 // radians
	// PositionAlpha scales each tracked position delta: 1 follows the
	// measurement, 0 freezes the viewer.
	PositionAlpha float64

	prevPosition mathutil.Vec3
	hasPrev      bool

	// Flatland is the last FLAT triple: gyro, accelerometer and filtered roll.
	Flatland mathutil.Vec3
}

// State is one session's scene configuration. All lengths are in mm and all
// angles in degrees unless noted.
type State struct {
	ClipNear, ClipFar float64

	ModelTranslation mathutil.Vec3
	ModelRotation    mathutil.Vec2

	ViewerPosition    mathutil.Vec3
	ViewerTarget      mathutil.Vec3
	ViewerOrientation mathutil.Quat
	// Tracked selects ViewerOrientation over ViewerTarget for head-tracked
	// stereo. Only one of them drives the view at a time.
	Tracked bool

	Lights      Lights
	Material    Material
	Attenuation mathutil.Vec3 // constant, linear, quadratic

	LensDistortion mathutil.Vec2 // K1, K2
	Gaze           mathutil.Vec2 // pixels, origin bottom-left

	TopView      bool
	Orthographic bool

	Tracker Tracker
}

// Lightgreen is CSS lightgreen in linear [0,1] components.
var Lightgreen = mathutil.Vec3{144.0 / 255, 238.0 / 255, 144.0 / 255}

// Default returns the session start state for the given display: the viewer
// sits on the +z axis at the virtual screen distance, looking at the origin.
func Default(p *display.Params) State {
	return State{
		ClipNear:          100,
		ClipFar:           100000,
		ViewerPosition:    mathutil.Vec3{0, 0, p.DistanceScreenViewer},
		ViewerOrientation: mathutil.QuatIdentity(),
		Lights: Lights{
			Point: []PointLight{{
				Position: mathutil.Vec3{100, 1000, 1000},
				Color:    Lightgreen.Scale(1.3),
			}},
			Ambient: mathutil.Vec3{1, 1, 1},
		},
		Material: Material{
			Ambient:   mathutil.Vec3{0.3, 0.3, 0.3},
			Diffuse:   mathutil.Vec3{1, 1, 1},
			Specular:  mathutil.Vec3{1, 1, 1},
			Shininess: 120,
		},
		Attenuation:    mathutil.Vec3{2, 0, 0},
		LensDistortion: mathutil.Vec2{0.34, 0.55},
		Gaze:           mathutil.Vec2{float64(p.CanvasWidth) / 2, float64(p.CanvasHeight) / 2},
		Tracker:        Tracker{PositionAlpha: 1},
	}
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	out := s
	out.Lights.Point = append([]PointLight(nil), s.Lights.Point...)
	out.Lights.Directional = append([]DirectionalLight(nil), s.Lights.Directional...)
	return out
}

// Geometry extracts the fields the transform engine reads.
func (s State) Geometry() transform.Pose {
	return transform.Pose{
		ClipNear:          s.ClipNear,
		ClipFar:           s.ClipFar,
		ModelTranslation:  s.ModelTranslation,
		ModelRotation:     s.ModelRotation,
		ViewerPosition:    s.ViewerPosition,
		ViewerTarget:      s.ViewerTarget,
		ViewerOrientation: s.ViewerOrientation,
		Tracked:           s.Tracked,
		TopView:           s.TopView,
		Orthographic:      s.Orthographic,
	}
}
