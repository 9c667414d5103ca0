package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/gpu"
)

// Material holds the per-model surface parameters the geometry shaders read.
type Material struct {
	Diffuse        mgl32.Vec3
	Specular       float32
	Reflectiveness float32
	TexRepeat      float32
}

// Model is uploaded geometry plus its material. Models are shared by the
// entities that reference them.
type Model struct {
	Name     string
	Mesh     *gpu.Mesh
	Material Material
}

// NewModel uploads vertices laid out as VertexLayout.
func NewModel(dev gpu.Device, name string, vertices []float32, indices []uint32, mat Material) (*Model, error) {
	m, err := gpu.NewMesh(dev, vertices, indices, VertexLayout)
	if err != nil {
		return nil, err
	}
	return &Model{Name: name, Mesh: m, Material: mat}, nil
}

func (m *Model) Release() { m.Mesh.Release() }

// Entity places a model in the world.
type Entity struct {
	Model     *Model
	Transform mgl32.Mat4
}

// Scene is what the pipeline renders.
type Scene struct {
	Models   []*Model
	Entities []Entity
	Lights   *Lights
	// Marker is drawn at each light position when light markers are on.
	Marker *Model
}

// Draw uploads each entity's transform and material, then draws it.
func (s *Scene) Draw(dev gpu.Device, prog gpu.Program) {
	for _, e := range s.Entities {
		drawModel(dev, prog, e.Model, e.Transform)
	}
}

// DrawLightMarkers draws a small emissive sphere at every light.
func (s *Scene) DrawLightMarkers(dev gpu.Device, prog gpu.Program, lights []Light) {
	if s.Marker == nil {
		return
	}
	for _, l := range lights {
		mat := s.Marker.Material
		mat.Diffuse = l.Color
		model := &Model{Mesh: s.Marker.Mesh, Material: mat}
		drawModel(dev, prog, model, mgl32.Translate3D(l.Position[0], l.Position[1], l.Position[2]).Mul4(mgl32.Scale3D(0.1, 0.1, 0.1)))
	}
}

func drawModel(dev gpu.Device, prog gpu.Program, m *Model, transform mgl32.Mat4) {
	set := func(name string, f func(loc int32)) {
		if loc := prog.Location(name); loc >= 0 {
			f(loc)
		}
	}
	normal := transform.Mat3().Inv().Transpose()
	set("modelMatrix", func(loc int32) { dev.UniformMatrix4(loc, transform) })
	set("normalMatrix", func(loc int32) { dev.UniformMatrix4(loc, normal.Mat4()) })
	set("colorDiffuse", func(loc int32) { dev.Uniform3f(loc, m.Material.Diffuse) })
	set("specular", func(loc int32) { dev.Uniform1f(loc, m.Material.Specular) })
	set("reflectiveness", func(loc int32) { dev.Uniform1f(loc, m.Material.Reflectiveness) })
	set("texRepeatFactor", func(loc int32) { dev.Uniform1f(loc, m.Material.TexRepeat) })
	m.Mesh.Draw(dev)
}

// Release frees every model's buffers.
func (s *Scene) Release() {
	for _, m := range s.Models {
		m.Release()
	}
	if s.Marker != nil {
		s.Marker.Release()
	}
}
