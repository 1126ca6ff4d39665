// Package transform derives model, view and projection matrices from a pose
// and display parameters.
//
// Matrices are row-major with column vectors (p' = M·p), composed right to
// left: in A·B the transform B is applied first. Every function here is pure.
package transform

import "vr-hmd-renderer/internal/mathutil"

// ModelTransform returns T · Rx(pitch) · Ry(yaw). The object turns about its
// own origin and is then placed at translation.
func ModelTransform(translation mathutil.Vec3, rotationDeg mathutil.Vec2) mathutil.Mat4 {
	rot := mathutil.RotX(mathutil.Deg2Rad(rotationDeg[0])).Mul(mathutil.RotY(mathutil.Deg2Rad(rotationDeg[1])))
	return mathutil.FromMat3Translation(rot, translation)
}
