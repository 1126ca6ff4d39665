package raster

import (
	"math"

	"vr-hmd-renderer/internal/mathutil"
)

// vertex is one triangle corner after the vertex stage.
type vertex struct {
	clip   mathutil.Vec4
	view   mathutil.Vec3 // view-space position
	normal mathutil.Vec3 // view-space normal
}

func lerpVertex(a, b vertex, t float64) vertex {
	var out vertex
	for k := 0; k < 4; k++ {
		out.clip[k] = a.clip[k] + t*(b.clip[k]-a.clip[k])
	}
	out.view = a.view.Add(b.view.Sub(a.view).Scale(t))
	out.normal = a.normal.Add(b.normal.Sub(a.normal).Scale(t))
	return out
}

// clipNear clips a convex polygon against the near plane z >= -w in clip
// space, appending the result to out.
func clipNear(in []vertex, out []vertex) []vertex {
	out = out[:0]
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := a.clip[2]+a.clip[3], b.clip[2]+b.clip[3]
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, lerpVertex(a, b, da/(da-db)))
		}
	}
	return out
}

// screenVertex is a vertex after the perspective divide and viewport
// transform. Attributes are pre-divided by w for perspective-correct
// interpolation.
type screenVertex struct {
	x, y, z float64
	invW    float64
	view    mathutil.Vec3
	normal  mathutil.Vec3
}

func toScreen(v vertex, w, h int) (screenVertex, bool) {
	if !(v.clip[3] > 0) {
		return screenVertex{}, false
	}
	inv := 1 / v.clip[3]
	return screenVertex{
		x:      (v.clip[0]*inv + 1) / 2 * float64(w),
		y:      (1 - v.clip[1]*inv) / 2 * float64(h),
		z:      (v.clip[2]*inv + 1) / 2,
		invW:   inv,
		view:   v.view.Scale(inv),
		normal: v.normal.Scale(inv),
	}, true
}

// drawTriangle clips, projects and rasterizes one triangle into fb with a
// depth test. Both windings are drawn.
func drawTriangle(fb *FrameBuffer, lt *Lighting, tri [3]vertex, scratch []vertex) []vertex {
	poly := clipNear(tri[:], scratch)
	if len(poly) < 3 {
		return poly
	}
	s0, ok := toScreen(poly[0], fb.Width, fb.Height)
	if !ok {
		return poly
	}
	for i := 1; i+1 < len(poly); i++ {
		s1, ok1 := toScreen(poly[i], fb.Width, fb.Height)
		s2, ok2 := toScreen(poly[i+1], fb.Width, fb.Height)
		if ok1 && ok2 {
			fillTriangle(fb, lt, s0, s1, s2)
		}
	}
	return poly
}

func fillTriangle(fb *FrameBuffer, lt *Lighting, a, b, c screenVertex) {
	area := (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
	if math.Abs(area) < 1e-12 || math.IsNaN(area) {
		return
	}
	invArea := 1 / area

	minX := max(int(math.Floor(math.Min(a.x, math.Min(b.x, c.x)))), 0)
	maxX := min(int(math.Ceil(math.Max(a.x, math.Max(b.x, c.x)))), fb.Width-1)
	minY := max(int(math.Floor(math.Min(a.y, math.Min(b.y, c.y)))), 0)
	maxY := min(int(math.Ceil(math.Max(a.y, math.Max(b.y, c.y)))), fb.Height-1)
	if minX > maxX || minY > maxY {
		return
	}

	for py := minY; py <= maxY; py++ {
		y := float64(py) + 0.5
		rowOff := py * fb.Width
		for px := minX; px <= maxX; px++ {
			x := float64(px) + 0.5
			w0 := ((b.x-x)*(c.y-y) - (b.y-y)*(c.x-x)) * invArea
			w1 := ((c.x-x)*(a.y-y) - (c.y-y)*(a.x-x)) * invArea
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*a.z + w1*b.z + w2*c.z
			idx := rowOff + px
			if z < 0 || z > 1 || z >= fb.Depth[idx] {
				continue
			}

			invW := w0*a.invW + w1*b.invW + w2*c.invW
			if invW <= 0 {
				continue
			}
			persp := 1 / invW
			pos := a.view.Scale(w0).Add(b.view.Scale(w1)).Add(c.view.Scale(w2)).Scale(persp)
			n := a.normal.Scale(w0).Add(b.normal.Scale(w1)).Add(c.normal.Scale(w2))
			n, ok := n.TryNormalize()
			if !ok {
				continue
			}
			// Two-sided: light the face that points at the eye.
			if n.Dot(pos) > 0 {
				n = n.Scale(-1)
			}

			fb.Depth[idx] = z
			col := lt.Shade(pos, n)
			o := idx * 4
			fb.Color[o] = clamp255(col[0] * 255)
			fb.Color[o+1] = clamp255(col[1] * 255)
			fb.Color[o+2] = clamp255(col[2] * 255)
			fb.Color[o+3] = 255
		}
	}
}
