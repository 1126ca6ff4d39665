// Package mesh builds the procedural geometry the reference renderer draws.
// Positions are in mm in model space; every mesh is centered on its origin.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"vr-hmd-renderer/internal/mathutil"
)

var ErrInvalidMesh = errors.New("mesh: invalid mesh")

// Mesh is an indexed triangle list with per-vertex normals.
type Mesh struct {
	Name      string
	Positions []mathutil.Vec3
	Normals   []mathutil.Vec3
	Tris      [][3]int32
}

// Validate checks that normals match positions and every index is in range.
func (m *Mesh) Validate() error {
	if len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("%w: %s has %d normals for %d positions", ErrInvalidMesh, m.Name, len(m.Normals), len(m.Positions))
	}
	n := int32(len(m.Positions))
	for i, t := range m.Tris {
		for _, v := range t {
			if v < 0 || v >= n {
				return fmt.Errorf("%w: %s triangle %d index %d out of range", ErrInvalidMesh, m.Name, i, v)
			}
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box.
func (m *Mesh) Bounds() (lo, hi mathutil.Vec3) {
	if len(m.Positions) == 0 {
		return
	}
	lo, hi = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	return lo, hi
}

// Sphere is a UV sphere.
func Sphere(radius float64, slices, stacks int) *Mesh {
	slices, stacks = max(slices, 3), max(stacks, 2)
	m := &Mesh{Name: "sphere"}
	for i := 0; i <= stacks; i++ {
		phi := math.Pi * float64(i) / float64(stacks)
		for j := 0; j <= slices; j++ {
			theta := 2 * math.Pi * float64(j) / float64(slices)
			n := mathutil.Vec3{math.Sin(phi) * math.Cos(theta), math.Cos(phi), math.Sin(phi) * math.Sin(theta)}
			m.Positions = append(m.Positions, n.Scale(radius))
			m.Normals = append(m.Normals, n)
		}
	}
	m.grid(stacks, slices)
	return m
}

// Torus lies in the xz plane around the y axis.
func Torus(major, minor float64, segments, sides int) *Mesh {
	segments, sides = max(segments, 3), max(sides, 3)
	m := &Mesh{Name: "torus"}
	for i := 0; i <= segments; i++ {
		u := 2 * math.Pi * float64(i) / float64(segments)
		ring := mathutil.Vec3{math.Cos(u), 0, math.Sin(u)}
		for j := 0; j <= sides; j++ {
			v := 2 * math.Pi * float64(j) / float64(sides)
			n := ring.Scale(math.Cos(v)).Add(mathutil.Vec3{0, math.Sin(v), 0})
			m.Positions = append(m.Positions, ring.Scale(major).Add(n.Scale(minor)))
			m.Normals = append(m.Normals, n)
		}
	}
	m.grid(segments, sides)
	return m
}

// grid emits two triangles per cell of a (rows+1)×(cols+1) vertex grid.
func (m *Mesh) grid(rows, cols int) {
	stride := int32(cols + 1)
	for i := int32(0); i < int32(rows); i++ {
		for j := int32(0); j < int32(cols); j++ {
			a := i*stride + j
			b := a + stride
			m.Tris = append(m.Tris, [3]int32{a, b, a + 1}, [3]int32{a + 1, b, b + 1})
		}
	}
}

var cubeFaces = []struct {
	n, u, v mathutil.Vec3
}{
	{mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 0, -1}, mathutil.Vec3{0, 1, 0}},
	{mathutil.Vec3{-1, 0, 0}, mathutil.Vec3{0, 0, 1}, mathutil.Vec3{0, 1, 0}},
	{mathutil.Vec3{0, 1, 0}, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 0, -1}},
	{mathutil.Vec3{0, -1, 0}, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 0, 1}},
	{mathutil.Vec3{0, 0, 1}, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, 1, 0}},
	{mathutil.Vec3{0, 0, -1}, mathutil.Vec3{-1, 0, 0}, mathutil.Vec3{0, 1, 0}},
}

// Cube has flat faces: four vertices per face so normals stay sharp.
func Cube(size float64) *Mesh {
	h := size / 2
	m := &Mesh{Name: "cube"}
	for _, f := range cubeFaces {
		base := int32(len(m.Positions))
		c := f.n.Scale(h)
		for _, s := range [][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := c.Add(f.u.Scale(s[0] * h)).Add(f.v.Scale(s[1] * h))
			m.Positions = append(m.Positions, p)
			m.Normals = append(m.Normals, f.n)
		}
		m.Tris = append(m.Tris, [3]int32{base, base + 1, base + 2}, [3]int32{base, base + 2, base + 3})
	}
	return m
}

// Instance places a mesh in the world before the model transform.
type Instance struct {
	Mesh   *Mesh
	Offset mathutil.Vec3
}

// DefaultScene spreads three objects over depth so depth of field and
// stereo disparity have something to show.
func DefaultScene() []Instance {
	return []Instance{
		{Mesh: Sphere(120, 32, 16)},
		{Mesh: Torus(110, 40, 32, 16), Offset: mathutil.Vec3{-300, 0, -400}},
		{Mesh: Cube(180), Offset: mathutil.Vec3{300, 0, -900}},
	}
}
