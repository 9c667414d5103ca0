package gpu

import "fmt"

// Mesh is an uploaded vertex array with its buffers.
// Meshes without indices are drawn as triangle strips.
type Mesh struct {
	vao, vbo, ebo *Handle
	count         int
	indexed       bool
}

// NewMesh uploads vertices (and optional indices) using the given
// per-attribute component layout.
func NewMesh(dev Device, vertices []float32, indices []uint32, layout []int) (*Mesh, error) {
	stride := 0
	for _, n := range layout {
		stride += n
	}
	if stride == 0 || len(vertices)%stride != 0 {
		return nil, fmt.Errorf("mesh: %d floats do not fit layout %v", len(vertices), layout)
	}
	m := &Mesh{
		vao: NewHandle(dev, KindVertexArray),
		vbo: NewHandle(dev, KindBuffer),
		ebo: NewHandle(dev, KindBuffer),
	}
	if err := m.vao.Generate(); err != nil {
		return nil, err
	}
	if err := m.vbo.Generate(); err != nil {
		m.Release()
		return nil, err
	}
	if len(indices) > 0 {
		if err := m.ebo.Generate(); err != nil {
			m.Release()
			return nil, err
		}
		m.indexed = true
		m.count = len(indices)
	} else {
		m.count = len(vertices) / stride
	}
	dev.UploadMesh(m.vao.ID(), m.vbo.ID(), m.ebo.ID(), vertices, indices, layout)
	return m, nil
}

func (m *Mesh) Draw(dev Device) {
	if m.indexed {
		dev.DrawIndexed(m.vao.ID(), m.count)
		return
	}
	dev.DrawStrip(m.vao.ID(), m.count)
}

// Count is the number of indices, or vertices for strips.
func (m *Mesh) Count() int { return m.count }

func (m *Mesh) Release() {
	m.ebo.Release()
	m.vbo.Release()
	m.vao.Release()
}
