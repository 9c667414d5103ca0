package lighting

import "github.com/go-gl/mathgl/mgl32"

// Frustum is six inward-facing planes extracted from a view-projection
// matrix.
type Frustum struct {
	planes [6]mgl32.Vec4
}

// NewFrustum extracts the clip planes of viewProj.
func NewFrustum(viewProj mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)
	f := Frustum{planes: [6]mgl32.Vec4{
		r3.Add(r0), r3.Sub(r0),
		r3.Add(r1), r3.Sub(r1),
		r3.Add(r2), r3.Sub(r2),
	}}
	for i, p := range f.planes {
		if l := p.Vec3().Len(); l > 0 {
			f.planes[i] = p.Mul(1 / l)
		}
	}
	return f
}

// IntersectsSphere reports whether any part of the sphere may be inside.
func (f Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for _, p := range f.planes {
		if p.Vec3().Dot(center)+p[3] < -radius {
			return false
		}
	}
	return true
}
