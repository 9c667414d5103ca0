package pass

import "github.com/richinsley/godeferred/gpu"

var quadVertices = []float32{
	// position, uv
	-1, -1, 0, 0,
	1, -1, 1, 0,
	-1, 1, 0, 1,
	1, 1, 1, 1,
}

// Quad is a full-screen triangle strip.
type Quad struct {
	mesh *gpu.Mesh
}

func NewQuad(dev gpu.Device) (*Quad, error) {
	m, err := gpu.NewMesh(dev, quadVertices, nil, []int{2, 2})
	if err != nil {
		return nil, err
	}
	return &Quad{mesh: m}, nil
}

func (q *Quad) Draw(dev gpu.Device, _ gpu.Program) { q.mesh.Draw(dev) }

func (q *Quad) Release() { q.mesh.Release() }
