// Package raster is the CPU reference backend: it draws the scene with the
// frame's model, view and projection matrices and keeps the depth buffer for
// the depth-of-field pass.
package raster

import (
	"fmt"
	"image/color"

	"vr-hmd-renderer/internal/mathutil"
	"vr-hmd-renderer/internal/mesh"
	"vr-hmd-renderer/internal/session"
	"vr-hmd-renderer/internal/transform"
)

// Frame is one rendered frame before post effects. Mono modes produce one
// buffer; stereo modes produce the left and then the right eye.
type Frame struct {
	Input session.FrameInput
	Eyes  []*FrameBuffer
}

// Projection returns the projection eye i was rendered with.
func (f *Frame) Projection(i int) mathutil.Mat4 {
	_, p := f.Input.Set.Eye(transform.Eye(i))
	return p
}

// Renderer draws a fixed scene.
type Renderer struct {
	Scene      []mesh.Instance
	Background color.NRGBA
}

// NewRenderer validates every mesh of scene up front so drawing never
// indexes out of range.
func NewRenderer(scene []mesh.Instance, bg color.NRGBA) (*Renderer, error) {
	for i, inst := range scene {
		if inst.Mesh == nil {
			return nil, fmt.Errorf("raster: scene instance %d has no mesh", i)
		}
		if err := inst.Mesh.Validate(); err != nil {
			return nil, fmt.Errorf("raster: scene instance %d: %w", i, err)
		}
	}
	return &Renderer{Scene: scene, Background: bg}, nil
}

// Render draws in at width×height. Split-screen stereo gives each eye half
// the width; anaglyph renders both eyes at full size.
func (r *Renderer) Render(in session.FrameInput, width, height int) *Frame {
	f := &Frame{Input: in}
	if !in.Set.Stereo {
		f.Eyes = []*FrameBuffer{r.renderEye(in, transform.LeftEye, width, height)}
		return f
	}
	eyeW := width
	if in.Set.Mode.Layout() == transform.SplitScreen {
		eyeW = width / 2
	}
	f.Eyes = []*FrameBuffer{
		r.renderEye(in, transform.LeftEye, eyeW, height),
		r.renderEye(in, transform.RightEye, eyeW, height),
	}
	return f
}

func (r *Renderer) renderEye(in session.FrameInput, e transform.Eye, w, h int) *FrameBuffer {
	fb := NewFrameBuffer(w, h)
	fb.Clear(r.Background)

	view, proj := in.Set.Eye(e)
	lt := NewLighting(in.Lights, in.Material, in.Attenuation, view)
	scratch := make([]vertex, 0, 4)

	for _, inst := range r.Scene {
		m := inst.Mesh
		modelView := view.Mul(in.Set.Model).Mul(mathutil.Translation(inst.Offset))
		normalMat := normalMatrix(modelView)
		mvp := proj.Mul(modelView)

		verts := make([]vertex, len(m.Positions))
		for i, p := range m.Positions {
			verts[i] = vertex{
				clip:   mvp.MulVec4(mathutil.Point(p)),
				view:   modelView.MulPoint(p),
				normal: normalMat.MulVec(m.Normals[i]),
			}
		}
		for _, t := range m.Tris {
			tri := [3]vertex{verts[t[0]], verts[t[1]], verts[t[2]]}
			scratch = drawTriangle(fb, lt, tri, scratch)
		}
	}
	return fb
}

// normalMatrix is the inverse transpose of the upper 3x3, falling back to the
// matrix itself when it is singular.
func normalMatrix(m mathutil.Mat4) mathutil.Mat3 {
	m3 := m.Mat3()
	inv, ok := m3.Inverse()
	if !ok {
		return m3
	}
	return inv.Transpose()
}
