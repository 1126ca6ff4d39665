package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vr-hmd-renderer/internal/mathutil"
)

func TestSphere(t *testing.T) {
	m := Sphere(50, 8, 4)
	require.NoError(t, m.Validate())
	assert.Len(t, m.Positions, 9*5)
	assert.Len(t, m.Tris, 2*8*4)
	for i, p := range m.Positions {
		assert.InDelta(t, 50, p.Len(), 1e-9)
		assert.InDelta(t, 1, m.Normals[i].Len(), 1e-9)
	}

	lo, hi := m.Bounds()
	assert.InDelta(t, -50, lo[1], 1e-9)
	assert.InDelta(t, 50, hi[1], 1e-9)

	// Degenerate tessellation is raised to the minimum.
	assert.NoError(t, Sphere(1, 0, 0).Validate())
}

func TestTorus(t *testing.T) {
	m := Torus(100, 20, 12, 8)
	require.NoError(t, m.Validate())
	for i, p := range m.Positions {
		ring := mathutil.Vec3{p[0], 0, p[2]}.Normalize().Scale(100)
		assert.InDelta(t, 20, p.Sub(ring).Len(), 1e-9)
		assert.InDelta(t, 1, m.Normals[i].Len(), 1e-9)
	}
	lo, hi := m.Bounds()
	assert.InDelta(t, 120, hi[0], 1e-9)
	assert.InDelta(t, -20, lo[1], 1e-9)
}

func TestCubeFacesPointOutward(t *testing.T) {
	m := Cube(2)
	require.NoError(t, m.Validate())
	assert.Len(t, m.Positions, 24)
	assert.Len(t, m.Tris, 12)

	for _, tri := range m.Tris {
		a, b, c := m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		assert.Greater(t, n.Dot(m.Normals[tri[0]]), 0.0)
		// The face normal points away from the center.
		assert.Greater(t, a.Dot(m.Normals[tri[0]]), 0.0)
	}
	lo, hi := m.Bounds()
	assert.Equal(t, mathutil.Vec3{-1, -1, -1}, lo)
	assert.Equal(t, mathutil.Vec3{1, 1, 1}, hi)
}

func TestValidate(t *testing.T) {
	m := &Mesh{Name: "tri", Positions: make([]mathutil.Vec3, 3), Normals: make([]mathutil.Vec3, 3), Tris: [][3]int32{{0, 1, 2}}}
	assert.NoError(t, m.Validate())

	m.Tris = append(m.Tris, [3]int32{0, 1, 3})
	assert.ErrorIs(t, m.Validate(), ErrInvalidMesh)

	m.Tris = [][3]int32{{-1, 0, 1}}
	assert.ErrorIs(t, m.Validate(), ErrInvalidMesh)

	m.Tris = nil
	m.Normals = m.Normals[:2]
	assert.ErrorIs(t, m.Validate(), ErrInvalidMesh)

	lo, hi := (&Mesh{}).Bounds()
	assert.Equal(t, lo, hi)
}

func TestDefaultScene(t *testing.T) {
	scene := DefaultScene()
	require.Len(t, scene, 3)
	for _, inst := range scene {
		require.NoError(t, inst.Mesh.Validate())
	}
	assert.True(t, math.Abs(scene[2].Offset[2]) > math.Abs(scene[1].Offset[2]))
}
