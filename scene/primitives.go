package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexLayout is position, normal, tangent, uv.
var VertexLayout = []int{3, 3, 3, 2}

// VertexStride is the float count of one vertex.
const VertexStride = 11

func appendVertex(dst []float32, p, n, t mgl32.Vec3, u, v float32) []float32 {
	return append(dst, p[0], p[1], p[2], n[0], n[1], n[2], t[0], t[1], t[2], u, v)
}

// Sphere builds a UV sphere. Vertices lie at radius; faces sit inside it.
func Sphere(stacks, slices int, radius float32) ([]float32, []uint32) {
	var vertices []float32
	for i := 0; i <= stacks; i++ {
		theta := math.Pi * float64(i) / float64(stacks)
		for j := 0; j <= slices; j++ {
			phi := 2 * math.Pi * float64(j) / float64(slices)
			n := mgl32.Vec3{
				float32(math.Sin(theta) * math.Cos(phi)),
				float32(math.Cos(theta)),
				float32(math.Sin(theta) * math.Sin(phi)),
			}
			tangent := mgl32.Vec3{float32(-math.Sin(phi)), 0, float32(math.Cos(phi))}
			vertices = appendVertex(vertices, n.Mul(radius), n, tangent,
				float32(j)/float32(slices), float32(i)/float32(stacks))
		}
	}
	var indices []uint32
	row := uint32(slices + 1)
	for i := 0; i < stacks; i++ {
		for j := 0; j < slices; j++ {
			a := uint32(i)*row + uint32(j)
			b := a + row
			indices = append(indices, a, a+1, b, b, a+1, b+1)
		}
	}
	return vertices, indices
}

// EnclosingSphere builds a sphere whose faces enclose the given radius, so
// a volume drawn with it covers everything within radius.
func EnclosingSphere(stacks, slices int, radius float32) ([]float32, []uint32) {
	return Sphere(stacks, slices, radius*EnclosingScale(stacks, slices))
}

// EnclosingScale is the vertex radius factor used by EnclosingSphere.
func EnclosingScale(stacks, slices int) float32 {
	a := math.Cos(math.Pi / float64(stacks))
	b := math.Cos(math.Pi / float64(slices))
	return float32(1 / (a * b))
}

var cubeFaces = [6]struct{ n, t, b mgl32.Vec3 }{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
}

// Cube builds a unit cube centred on the origin.
func Cube() ([]float32, []uint32) {
	var vertices []float32
	var indices []uint32
	for f, face := range cubeFaces {
		c := face.n.Mul(0.5)
		corners := [4][2]float32{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}}
		for _, k := range corners {
			p := c.Add(face.t.Mul(k[0])).Add(face.b.Mul(k[1]))
			vertices = appendVertex(vertices, p, face.n, face.t, k[0]+0.5, k[1]+0.5)
		}
		base := uint32(f * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// Plane builds a square in the XZ plane facing +Y.
func Plane(size float32) ([]float32, []uint32) {
	h := size / 2
	n := mgl32.Vec3{0, 1, 0}
	t := mgl32.Vec3{1, 0, 0}
	var vertices []float32
	vertices = appendVertex(vertices, mgl32.Vec3{-h, 0, h}, n, t, 0, 0)
	vertices = appendVertex(vertices, mgl32.Vec3{h, 0, h}, n, t, 1, 0)
	vertices = appendVertex(vertices, mgl32.Vec3{h, 0, -h}, n, t, 1, 1)
	vertices = appendVertex(vertices, mgl32.Vec3{-h, 0, -h}, n, t, 0, 1)
	return vertices, []uint32{0, 1, 2, 0, 2, 3}
}
