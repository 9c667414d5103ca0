// Package lighting implements stencil-culled light accumulation.
package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/scene"
)

// Strength is the reciprocal-radius term the light shader receives as
// lightStrength.
func Strength(radius float32) float32 {
	return -1 / radius
}

// Attenuation is max(0, 1 - distance/radius).
func Attenuation(distance, radius float32) float32 {
	if distance >= radius {
		return 0
	}
	return float32(math.Max(0, float64(1+Strength(radius)*distance)))
}

// Surface is one shaded sample of the G-buffer. The viewer sits at Eye.
type Surface struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Eye      mgl32.Vec3
	Diffuse  mgl32.Vec3
	Specular float32
}

const shininess = 32

// Contribution mirrors the light shader for one light and one surface.
func Contribution(l scene.Light, s Surface) mgl32.Vec3 {
	toLight := l.Position.Sub(s.Position)
	d := toLight.Len()
	att := Attenuation(d, l.Radius)
	if att == 0 {
		return mgl32.Vec3{}
	}
	n := s.Normal.Normalize()
	dir := n
	if d > 0 {
		dir = toLight.Mul(1 / d)
	}
	lambert := float32(math.Max(0, float64(n.Dot(dir))))

	var spec float32
	if view := s.Eye.Sub(s.Position); view.Len() > 0 {
		h := dir.Add(view.Normalize())
		if h.Len() > 0 {
			nh := math.Max(0, float64(n.Dot(h.Normalize())))
			spec = s.Specular * float32(math.Pow(nh, shininess))
		}
	}
	c := s.Diffuse.Mul(lambert).Add(mgl32.Vec3{spec, spec, spec})
	return mgl32.Vec3{c[0] * l.Color[0], c[1] * l.Color[1], c[2] * l.Color[2]}.Mul(att)
}

// Accumulate adds the contributions of every light, as additive blending
// into the light target does.
func Accumulate(lights []scene.Light, s Surface) mgl32.Vec3 {
	var sum mgl32.Vec3
	for _, l := range lights {
		sum = sum.Add(Contribution(l, s))
	}
	return sum
}
