package mathutil

import "math"

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-12

// Vec2 is a 2-component vector (value type).
type Vec2 [2]float64

func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a[0] + b[0], a[1] + b[1]} }

func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a[0] - b[0], a[1] - b[1]} }

func (v Vec2) Scale(s float64) Vec2 { return Vec2{v[0] * s, v[1] * s} }

// Mul returns the component-wise product.
func (a Vec2) Mul(b Vec2) Vec2 { return Vec2{a[0] * b[0], a[1] * b[1]} }

func (v Vec2) Len() float64 { return math.Hypot(v[0], v[1]) }

// Vec3 is a 3-component vector (value type, stack-allocated).
type Vec3 [3]float64

func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Mul returns the component-wise product (used for color * reflectance).
func (a Vec3) Mul(b Vec3) Vec3 {
	return Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func (a Vec3) Dot(b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns v/|v|, or the zero vector when |v| is below Epsilon.
func (v Vec3) Normalize() Vec3 {
	n, _ := v.TryNormalize()
	return n
}

// TryNormalize is Normalize with an explicit ok flag, for callers that must not
// continue with a zero direction.
func (v Vec3) TryNormalize() (Vec3, bool) {
	l := v.Len()
	if l < Epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec3{}, false
	}
	return Vec3{v[0] / l, v[1] / l, v[2] / l}, true
}

// Reflect reflects the incident vector v about the unit normal n.
func (v Vec3) Reflect(n Vec3) Vec3 {
	return v.Sub(n.Scale(2 * n.Dot(v)))
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Vec4 is a homogeneous 4-component vector.
type Vec4 [4]float64

// Point lifts a 3D point to homogeneous coordinates (w=1).
func Point(v Vec3) Vec4 { return Vec4{v[0], v[1], v[2], 1} }

func (v Vec4) XYZ() Vec3 { return Vec3{v[0], v[1], v[2]} }

// PerspectiveDivide returns xyz/w. ok is false when w is zero.
func (v Vec4) PerspectiveDivide() (Vec3, bool) {
	if v[3] == 0 {
		return Vec3{}, false
	}
	inv := 1 / v[3]
	return Vec3{v[0] * inv, v[1] * inv, v[2] * inv}, true
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(r float64) float64 {
	return r * 180 / math.Pi
}

// ApproxEqual compares two scalars with an absolute tolerance.
func ApproxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
