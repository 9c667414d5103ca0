package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/gpu"
)

var papayaWhip = mgl32.Vec3{1.0, 0.937, 0.835}

// DefaultLights is the light set the demo starts with.
func DefaultLights() []Light {
	return []Light{
		{Position: mgl32.Vec3{0, 6, 0}, Radius: 40, Color: papayaWhip.Mul(0.3)},
		{Position: mgl32.Vec3{-6, 1.5, -4}, Radius: 6, Color: mgl32.Vec3{1, 0.1, 0.1}},
		{Position: mgl32.Vec3{6, 1.5, -4}, Radius: 6, Color: mgl32.Vec3{0.1, 0.2, 1}},
		{Position: mgl32.Vec3{0, 1, 6}, Radius: 5, Color: mgl32.Vec3{0.2, 1, 0.3}},
		{Position: mgl32.Vec3{-10, 3, 8}, Radius: 8, Color: mgl32.Vec3{1, 0.6, 0.1}},
		{Position: mgl32.Vec3{10, 3, 8}, Radius: 8, Color: mgl32.Vec3{0.8, 0.2, 1}},
		{Position: mgl32.Vec3{0, 0.5, -12}, Radius: 4, Color: mgl32.Vec3{1, 1, 0.2}},
		{Position: mgl32.Vec3{-14, 2, -14}, Radius: 10, Color: mgl32.Vec3{0.3, 0.9, 1}},
		{Position: mgl32.Vec3{14, 2, -14}, Radius: 10, Color: mgl32.Vec3{1, 0.4, 0.6}},
		{Position: mgl32.Vec3{0, 12, 20}, Radius: 25, Color: papayaWhip.Mul(0.2)},
	}
}

// NewDefault builds the demo scene: a floor, rows of cubes and spheres,
// and the default lights.
func NewDefault(dev gpu.Device) (*Scene, error) {
	s := &Scene{Lights: NewLights(DefaultLights()...)}
	add := func(name string, vertices []float32, indices []uint32, mat Material) (*Model, error) {
		m, err := NewModel(dev, name, vertices, indices, mat)
		if err != nil {
			s.Release()
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		s.Models = append(s.Models, m)
		return m, nil
	}

	v, i := Plane(60)
	floor, err := add("floor", v, i, Material{Diffuse: mgl32.Vec3{0.6, 0.6, 0.6}, Specular: 0.2, Reflectiveness: 0.5, TexRepeat: 20})
	if err != nil {
		return nil, err
	}
	v, i = Cube()
	cube, err := add("cube", v, i, Material{Diffuse: mgl32.Vec3{0.8, 0.4, 0.3}, Specular: 0.5, TexRepeat: 1})
	if err != nil {
		return nil, err
	}
	v, i = Sphere(16, 24, 0.5)
	ball, err := add("sphere", v, i, Material{Diffuse: mgl32.Vec3{0.9, 0.9, 0.95}, Specular: 1, Reflectiveness: 0.8, TexRepeat: 1})
	if err != nil {
		return nil, err
	}
	v, i = Sphere(6, 8, 1)
	marker, err := NewModel(dev, "marker", v, i, Material{Specular: 0, TexRepeat: 1})
	if err != nil {
		s.Release()
		return nil, err
	}
	s.Marker = marker

	s.Entities = append(s.Entities, Entity{Model: floor, Transform: mgl32.Ident4()})
	for x := -2; x <= 2; x++ {
		fx := float32(x) * 4
		s.Entities = append(s.Entities,
			Entity{Model: cube, Transform: mgl32.Translate3D(fx, 0.75, -4).Mul4(mgl32.Scale3D(1.5, 1.5, 1.5))},
			Entity{Model: ball, Transform: mgl32.Translate3D(fx, 1, 2).Mul4(mgl32.Scale3D(2, 2, 2))},
		)
	}
	return s, nil
}
