package mathutil

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Quat is a rotation quaternion w + xi + yj + zk. It shares gonum's
// representation so the algebra (Mul, Conj, Inv, Abs) is gonum's.
type Quat quat.Number

func QuatIdentity() Quat { return Quat{Real: 1} }

// NewQuat builds a quaternion from scalar-first components.
func NewQuat(w, x, y, z float64) Quat {
	return Quat{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// QuatFromAxisAngle returns the rotation of angle radians about axis.
// A zero axis yields the identity.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	n, ok := axis.TryNormalize()
	if !ok {
		return QuatIdentity()
	}
	s := math.Sin(angle / 2)
	return Quat{Real: math.Cos(angle / 2), Imag: n[0] * s, Jmag: n[1] * s, Kmag: n[2] * s}
}

// QuatFromEulerDeg composes a head orientation from yaw (about Y), pitch
// (about X) and roll (about Z), applied roll first: q = qYaw·qPitch·qRoll.
func QuatFromEulerDeg(yaw, pitch, roll float64) Quat {
	qy := QuatFromAxisAngle(Vec3{0, 1, 0}, Deg2Rad(yaw))
	qx := QuatFromAxisAngle(Vec3{1, 0, 0}, Deg2Rad(pitch))
	qz := QuatFromAxisAngle(Vec3{0, 0, 1}, Deg2Rad(roll))
	return qy.Mul(qx).Mul(qz)
}

func (q Quat) number() quat.Number { return quat.Number(q) }

// Mul returns q·b (b is applied first when rotating vectors).
func (q Quat) Mul(b Quat) Quat { return Quat(quat.Mul(q.number(), b.number())) }

func (q Quat) Conj() Quat { return Quat(quat.Conj(q.number())) }

func (q Quat) Len() float64 { return quat.Abs(q.number()) }

// Inverse returns q⁻¹. The zero quaternion has no inverse; identity is returned.
func (q Quat) Inverse() Quat {
	if q.Len() < Epsilon {
		return QuatIdentity()
	}
	return Quat(quat.Inv(q.number()))
}

// Normalize returns the unit quaternion. ok is false for a zero or non-finite
// input, in which case the identity is returned.
func (q Quat) Normalize() (Quat, bool) {
	l := q.Len()
	if l < Epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return QuatIdentity(), false
	}
	return Quat(quat.Scale(1/l, q.number())), true
}

// Rotate applies the rotation to v (q·v·q⁻¹).
func (q Quat) Rotate(v Vec3) Vec3 {
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	r := quat.Mul(quat.Mul(q.number(), p), quat.Inv(q.number()))
	return Vec3{r.Imag, r.Jmag, r.Kmag}
}

// Mat3 converts a unit quaternion to a 3×3 rotation matrix.
func (q Quat) Mat3() Mat3 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat3{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}

// Mat4 is Mat3 embedded in a homogeneous matrix.
func (q Quat) Mat4() Mat4 { return FromMat3(q.Mat3()) }

// QuatFromMat3 converts a rotation matrix to a unit quaternion, branching on
// the largest diagonal term so the square root never sees a negative value.
func QuatFromMat3(m Mat3) Quat {
	tr := m[0] + m[4] + m[8]
	var q Quat
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = Quat{Real: s / 4, Imag: (m[7] - m[5]) / s, Jmag: (m[2] - m[6]) / s, Kmag: (m[3] - m[1]) / s}
	case m[0] > m[4] && m[0] > m[8]:
		s := math.Sqrt(1+m[0]-m[4]-m[8]) * 2
		q = Quat{Real: (m[7] - m[5]) / s, Imag: s / 4, Jmag: (m[1] + m[3]) / s, Kmag: (m[2] + m[6]) / s}
	case m[4] > m[8]:
		s := math.Sqrt(1+m[4]-m[0]-m[8]) * 2
		q = Quat{Real: (m[2] - m[6]) / s, Imag: (m[1] + m[3]) / s, Jmag: s / 4, Kmag: (m[5] + m[7]) / s}
	default:
		s := math.Sqrt(1+m[8]-m[0]-m[4]) * 2
		q = Quat{Real: (m[3] - m[1]) / s, Imag: (m[2] + m[6]) / s, Jmag: (m[5] + m[7]) / s, Kmag: s / 4}
	}
	n, _ := q.Normalize()
	return n
}

// ApproxEqual compares two quaternions as rotations (q and -q are equal).
func (q Quat) ApproxEqual(b Quat, tol float64) bool {
	d := q.Real*b.Real + q.Imag*b.Imag + q.Jmag*b.Jmag + q.Kmag*b.Kmag
	return math.Abs(math.Abs(d)-q.Len()*b.Len()) <= tol
}
