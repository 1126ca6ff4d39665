package transform

import (
	"errors"
	"math"

	"vr-hmd-renderer/internal/mathutil"
)

// ErrDegenerateView is returned when the viewer stands on its own target.
var ErrDegenerateView = errors.New("transform: viewer position equals target")

// WorldUp is the default up direction of the viewer.
var WorldUp = mathutil.Vec3{0, 1, 0}

// MinViewDistance is the shortest viewer to target distance (mm) that still
// defines a look direction.
const MinViewDistance = MinClipNear

// Basis returns the camera axes for a viewer at position looking at target:
// right, up and forward, where the camera looks down -forward.
// When up is parallel to the view direction another world axis is used.
func Basis(position, target, up mathutil.Vec3) (right, trueUp, forward mathutil.Vec3, err error) {
	d := position.Sub(target)
	n := d.Len()
	if !(n >= MinViewDistance) {
		return right, trueUp, forward, ErrDegenerateView
	}
	forward = d.Scale(1 / n)
	right, ok := up.Cross(forward).TryNormalize()
	if !ok {
		right, ok = fallbackUp(forward).Cross(forward).TryNormalize()
		if !ok {
			return right, trueUp, forward, ErrDegenerateView
		}
	}
	trueUp = forward.Cross(right)
	return right, trueUp, forward, nil
}

func fallbackUp(forward mathutil.Vec3) mathutil.Vec3 {
	if math.Abs(forward[2]) < 0.9 {
		return mathutil.Vec3{0, 0, 1}
	}
	return mathutil.Vec3{1, 0, 0}
}

// ViewTransform is a look-at view matrix: the rows of the rotation are the
// camera axes, applied after moving the viewer to the origin (R · T(-position)).
func ViewTransform(position, target, up mathutil.Vec3) (mathutil.Mat4, error) {
	right, u, forward, err := Basis(position, target, up)
	if err != nil {
		return mathutil.Mat4Identity(), err
	}
	rot := mathutil.FromMat3(mathutil.Mat3FromRows(right, u, forward))
	return rot.Mul(mathutil.Translation(position.Scale(-1))), nil
}

// StereoViewTransform shifts a look-at view by halfIpdShift along the camera
// x axis. The shift is positive for the left eye, negative for the right eye
// and zero for a single centered view.
func StereoViewTransform(position, target, up mathutil.Vec3, halfIpdShift float64) (mathutil.Mat4, error) {
	v, err := ViewTransform(position, target, up)
	if err != nil {
		return v, err
	}
	return mathutil.Translation(mathutil.Vec3{halfIpdShift, 0, 0}).Mul(v), nil
}

// HeadNeckViewTransform is the view of one eye of a tracked head whose
// orientation is q. The eye sits neckLength above and headLength in front of
// a neck pivot, so rotating the head swings the eye around the pivot:
//
//	V = T(halfIpd,0,0) · T(0,-neck,-head) · R(q⁻¹) · T(0,neck,head) · T(-position)
//
// With q = identity the offsets cancel and V = T(halfIpd,0,0) · T(-position).
func HeadNeckViewTransform(q mathutil.Quat, position mathutil.Vec3, halfIpdShift, neckLength, headLength float64) mathutil.Mat4 {
	q, _ = q.Normalize()
	offset := mathutil.Vec3{0, neckLength, headLength}
	return mathutil.Chain(
		mathutil.Translation(mathutil.Vec3{halfIpdShift, 0, 0}),
		mathutil.Translation(offset.Scale(-1)),
		q.Inverse().Mat4(),
		mathutil.Translation(offset),
		mathutil.Translation(position.Scale(-1)),
	)
}

// EyePosition recovers the world-space eye position of a view matrix.
func EyePosition(view mathutil.Mat4) (mathutil.Vec3, error) {
	inv, err := view.Inverse()
	if err != nil {
		return mathutil.Vec3{}, err
	}
	return inv.MulPoint(mathutil.Vec3{}), nil
}

// TopViewMatrix looks straight down at the scene from 1500mm above it.
func TopViewMatrix() mathutil.Mat4 {
	return mathutil.Mat4{
		1, 0, 0, 0,
		0, 0, -1, 0,
		0, 1, 0, -1500,
		0, 0, 0, 1,
	}
}

// Eye selects one side of a stereo pair.
type Eye int

const (
	LeftEye Eye = iota
	RightEye
)

func (e Eye) String() string {
	if e == LeftEye {
		return "L"
	}
	return "R"
}

// HalfIPDShift returns the signed view shift for the eye: +ipd/2 for the left
// eye, -ipd/2 for the right.
func HalfIPDShift(ipd float64, e Eye) float64 {
	if e == LeftEye {
		return ipd / 2
	}
	return -ipd / 2
}
