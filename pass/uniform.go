package pass

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/gpu"
)

// Value is a uniform value a pass can upload.
type Value interface {
	upload(dev gpu.Device, loc int32)
}

type (
	Int    int32
	Float  float32
	Bool   bool
	Vec3   mgl32.Vec3
	Vec3s  []mgl32.Vec3
	Floats []float32
	Mat4   mgl32.Mat4
)

func (v Int) upload(dev gpu.Device, loc int32)   { dev.Uniform1i(loc, int32(v)) }
func (v Float) upload(dev gpu.Device, loc int32) { dev.Uniform1f(loc, float32(v)) }

func (v Bool) upload(dev gpu.Device, loc int32) {
	var i int32
	if v {
		i = 1
	}
	dev.Uniform1i(loc, i)
}

func (v Vec3) upload(dev gpu.Device, loc int32)   { dev.Uniform3f(loc, mgl32.Vec3(v)) }
func (v Vec3s) upload(dev gpu.Device, loc int32)  { dev.Uniform3fv(loc, []mgl32.Vec3(v)) }
func (v Floats) upload(dev gpu.Device, loc int32) { dev.Uniform1fv(loc, []float32(v)) }
func (v Mat4) upload(dev gpu.Device, loc int32)   { dev.UniformMatrix4(loc, mgl32.Mat4(v)) }

// Uniform is a named parameter for one Execute call.
type Uniform struct {
	Name  string
	Value Value
}

// U is shorthand for a Uniform literal.
func U(name string, v Value) Uniform {
	return Uniform{Name: name, Value: v}
}

// Upload sets each uniform the program declares and skips the rest.
func Upload(dev gpu.Device, prog gpu.Program, uniforms ...Uniform) {
	for _, u := range uniforms {
		loc := prog.Location(u.Name)
		if loc < 0 {
			continue
		}
		u.Value.upload(dev, loc)
	}
}
