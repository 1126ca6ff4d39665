package mathutil

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a matrix has no inverse.
var ErrSingular = errors.New("mathutil: singular matrix")

// Mat4 is a 4×4 matrix stored row-major. Vectors are columns: M.MulVec4(v)
// applies M to v, and A.Mul(B) applies B first.
type Mat4 [16]float64

func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns the affine translation by t.
func Translation(t Vec3) Mat4 {
	return Mat4{
		1, 0, 0, t[0],
		0, 1, 0, t[1],
		0, 0, 1, t[2],
		0, 0, 0, 1,
	}
}

// FromMat3Translation builds a 4×4 affine matrix from a 3×3 rotation and translation.
func FromMat3Translation(r Mat3, t Vec3) Mat4 {
	return Mat4{
		r[0], r[1], r[2], t[0],
		r[3], r[4], r[5], t[1],
		r[6], r[7], r[8], t[2],
		0, 0, 0, 1,
	}
}

// FromMat3 embeds a 3×3 linear map with no translation.
func FromMat3(r Mat3) Mat4 {
	return FromMat3Translation(r, Vec3{})
}

func (m Mat4) At(r, c int) float64 { return m[r*4+c] }

func (m Mat4) Row(i int) Vec4 { return Vec4{m[i*4], m[i*4+1], m[i*4+2], m[i*4+3]} }

// Mat3 returns the upper-left 3×3 block.
func (m Mat4) Mat3() Mat3 {
	return Mat3{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
}

// Mul returns m × b.
func (m Mat4) Mul(b Mat4) Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m[r*4]*b[c] + m[r*4+1]*b[4+c] +
				m[r*4+2]*b[8+c] + m[r*4+3]*b[12+c]
		}
	}
	return out
}

// Chain multiplies left to right: Chain(A, B, C) = A·B·C, so C is applied first.
func Chain(ms ...Mat4) Mat4 {
	out := Mat4Identity()
	for _, m := range ms {
		out = out.Mul(m)
	}
	return out
}

// MulVec4 returns m × v.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	var out Vec4
	for r := 0; r < 4; r++ {
		out[r] = m[r*4]*v[0] + m[r*4+1]*v[1] + m[r*4+2]*v[2] + m[r*4+3]*v[3]
	}
	return out
}

// MulPoint transforms a 3D point (w=1) by the affine part of the matrix.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[3],
		m[4]*v[0] + m[5]*v[1] + m[6]*v[2] + m[7],
		m[8]*v[0] + m[9]*v[1] + m[10]*v[2] + m[11],
	}
}

// MulDir transforms a direction (w=0).
func (m Mat4) MulDir(v Vec3) Vec3 {
	return m.Mat3().MulVec(v)
}

func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = m[r*4+c]
		}
	}
	return out
}

// Inverse returns the general inverse computed with gonum's LU factorization.
func (m Mat4) Inverse() (Mat4, error) {
	src := mat.NewDense(4, 4, append([]float64(nil), m[:]...))
	var inv mat.Dense
	if err := inv.Inverse(src); err != nil {
		return Mat4Identity(), ErrSingular
	}
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = inv.At(r, c)
		}
	}
	if !out.IsFinite() {
		return Mat4Identity(), ErrSingular
	}
	return out, nil
}

// ColumnMajor32 flattens the matrix in the column-major float32 layout GPU
// uniform uploads expect.
func (m Mat4) ColumnMajor32() [16]float32 {
	var out [16]float32
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = float32(m[r*4+c])
		}
	}
	return out
}

func (m Mat4) IsFinite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ApproxEqual compares element-wise with an absolute tolerance.
func (m Mat4) ApproxEqual(b Mat4, tol float64) bool {
	for i := range m {
		if math.Abs(m[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// IsIdentity checks if the matrix is approximately identity.
func (m Mat4) IsIdentity() bool {
	return m.ApproxEqual(Mat4Identity(), 1e-8)
}
