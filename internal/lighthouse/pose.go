// Package lighthouse recovers the tracker's pose from base-station sweep
// timings. Four photodiodes at known board positions give four 2D
// projections; the homography between board and projection plane yields the
// rotation and translation.
package lighthouse

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/telemetry"
)

// DefaultClockHz is the tick rate of the timing capture.
const DefaultClockHz = 48e6

// sweepDegPerSecond is one rotor turn per 1/60 s.
const sweepDegPerSecond = 360 * 60

// ReferencePositions are the photodiode positions on the board in mm, as
// x,y pairs in the order of the timing channels.
var ReferencePositions = [8]float64{-42, 25, 42, 25, 42, -25, -42, -25}

var ErrSingular = errors.New("lighthouse: homography system is singular")

// Ticks holds a horizontal and a vertical sweep timing per diode.
type Ticks [8]uint32

// TicksTo2D converts sweep timings into positions on the normalized
// projection plane one unit in front of the base station.
func TicksTo2D(ticks Ticks, clockHz float64) [8]float64 {
	var out [8]float64
	for i := 0; i < 8; i += 2 {
		h := float64(ticks[i]) / clockHz
		v := float64(ticks[i+1]) / clockHz
		out[i] = math.Tan(mathutil.Deg2Rad(90 - h*sweepDegPerSecond))
		out[i+1] = math.Tan(mathutil.Deg2Rad(v*sweepDegPerSecond - 90))
	}
	return out
}

// Homography solves the 8x8 system that maps ref onto pos2D, with the last
// homography entry fixed at 1.
func Homography(pos2D, ref [8]float64) ([8]float64, error) {
	a := mat.NewDense(8, 8, nil)
	for i := 0; i < 8; i += 2 {
		x, y := ref[i], ref[i+1]
		u, v := pos2D[i], pos2D[i+1]
		a.SetRow(i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		a.SetRow(i+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
	}

	var h mat.VecDense
	if err := h.SolveVec(a, mat.NewVecDense(8, pos2D[:])); err != nil {
		return [8]float64{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	var out [8]float64
	for i := range out {
		out[i] = h.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return [8]float64{}, ErrSingular
		}
	}
	return out, nil
}

// Pose is the board's pose in the base station frame. The base station looks
// down -z, so a board in front of it has a negative z.
type Pose struct {
	Rotation mathutil.Mat3
	Position mathutil.Vec3 // mm
}

// FromHomography extracts rotation and translation. The first two rotation
// columns come from the homography columns; the second is re-orthogonalized
// against the first and the third is their cross product.
func FromHomography(h [8]float64) Pose {
	c1 := mathutil.Vec3{h[0], h[3], -h[6]}
	c2 := mathutil.Vec3{h[1], h[4], -h[7]}
	n1, n2 := c1.Len(), c2.Len()
	s := 2 / (n1 + n2)

	r1 := c1.Scale(1 / n1)
	r2 := c2.Sub(r1.Scale(r1.Dot(c2))).Normalize()
	r3 := r1.Cross(r2)

	return Pose{
		Rotation: mathutil.Mat3FromCols(r1, r2, r3),
		Position: mathutil.Vec3{s * h[2], s * h[5], -s},
	}
}

// Quat is the rotation as a unit quaternion.
func (p Pose) Quat() mathutil.Quat { return mathutil.QuatFromMat3(p.Rotation) }

// Lines renders the pose as PS and QC telemetry.
func (p Pose) Lines() []string {
	q := p.Quat()
	return []string{
		telemetry.Format(telemetry.Position, p.Position[0], p.Position[1], p.Position[2]),
		telemetry.Format(telemetry.Quaternion, q.Real, q.Imag, q.Jmag, q.Kmag),
	}
}

// Solve runs the whole chain for one set of timings.
func Solve(ticks Ticks, clockHz float64) (Pose, error) {
	h, err := Homography(TicksTo2D(ticks, clockHz), ReferencePositions)
	if err != nil {
		return Pose{}, err
	}
	p := FromHomography(h)
	if !p.Position.IsFinite() {
		return Pose{}, ErrSingular
	}
	return p, nil
}
