package raster

import (
	"math"

	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/pose"
)

type pointLight struct {
	pos, color mathutil.Vec3
}

type dirLight struct {
	toLight, color mathutil.Vec3
}

// Lighting is the scene's lights moved into one eye's view space, ready for
// per-fragment Phong shading.
type Lighting struct {
	ambient     mathutil.Vec3
	points      []pointLight
	dirs        []dirLight
	material    pose.Material
	attenuation mathutil.Vec3
}

// NewLighting transforms every light by view. Directional lights are given
// as the direction the light travels.
func NewLighting(l pose.Lights, m pose.Material, attenuation mathutil.Vec3, view mathutil.Mat4) *Lighting {
	lt := &Lighting{
		ambient:     m.Ambient.Mul(l.Ambient),
		material:    m,
		attenuation: attenuation,
	}
	for _, p := range l.Point {
		lt.points = append(lt.points, pointLight{pos: view.MulPoint(p.Position), color: p.Color})
	}
	for _, d := range l.Directional {
		dir, ok := view.MulDir(d.Direction).Scale(-1).TryNormalize()
		if !ok {
			continue
		}
		lt.dirs = append(lt.dirs, dirLight{toLight: dir, color: d.Color})
	}
	return lt
}

// Shade returns the linear color of a fragment at view-space position pos
// with unit normal n. Point lights fall off with the attenuation polynomial;
// directional lights do not.
func (lt *Lighting) Shade(pos, n mathutil.Vec3) mathutil.Vec3 {
	c := lt.ambient
	v, ok := pos.Scale(-1).TryNormalize()
	if !ok {
		v = mathutil.Vec3{0, 0, 1}
	}
	for _, p := range lt.points {
		toLight := p.pos.Sub(pos)
		d := toLight.Len()
		if d == 0 {
			continue
		}
		c = c.Add(lt.phong(toLight.Scale(1/d), n, v, p.color).Scale(lt.attenuate(d)))
	}
	for _, dl := range lt.dirs {
		c = c.Add(lt.phong(dl.toLight, n, v, dl.color))
	}
	return c
}

func (lt *Lighting) phong(l, n, v, color mathutil.Vec3) mathutil.Vec3 {
	ndl := l.Dot(n)
	if ndl <= 0 {
		return mathutil.Vec3{}
	}
	diffuse := lt.material.Diffuse.Mul(color).Scale(ndl)
	r := l.Scale(-1).Reflect(n)
	rv := math.Max(r.Dot(v), 0)
	spec := lt.material.Specular.Mul(color).Scale(math.Pow(rv, math.Max(lt.material.Shininess, 0)))
	return diffuse.Add(spec)
}

func (lt *Lighting) attenuate(d float64) float64 {
	k := lt.attenuation
	den := k[0] + k[1]*d + k[2]*d*d
	if !(den > 0) {
		return 1
	}
	return 1 / den
}

func clamp255(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
