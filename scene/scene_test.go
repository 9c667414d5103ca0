package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/gpu/gputest"
)

func TestSphere(t *testing.T) {
	v, i := Sphere(4, 6, 2)
	if got, want := len(v)/VertexStride, 5*7; got != want {
		t.Errorf("vertices = %d, want %d", got, want)
	}
	if got, want := len(i), 4*6*6; got != want {
		t.Errorf("indices = %d, want %d", got, want)
	}
	for k := 0; k < len(v); k += VertexStride {
		p := mgl32.Vec3{v[k], v[k+1], v[k+2]}
		if math.Abs(float64(p.Len()-2)) > 1e-5 {
			t.Fatalf("vertex %d at radius %g, want 2", k/VertexStride, p.Len())
		}
	}
	if EnclosingScale(8, 12) <= 1 {
		t.Errorf("EnclosingScale(8, 12) = %g, want > 1", EnclosingScale(8, 12))
	}
}

func TestCubeAndPlane(t *testing.T) {
	v, i := Cube()
	if len(v)/VertexStride != 24 || len(i) != 36 {
		t.Errorf("Cube() = %d vertices %d indices, want 24 and 36", len(v)/VertexStride, len(i))
	}
	v, i = Plane(10)
	if len(v)/VertexStride != 4 || len(i) != 6 {
		t.Errorf("Plane() = %d vertices %d indices, want 4 and 6", len(v)/VertexStride, len(i))
	}
}

func TestCameraPitchClamp(t *testing.T) {
	c := NewCamera()
	c.Update(0.016, Movement{LookY: 10})
	if c.Pitch > maxPitch {
		t.Errorf("Pitch = %g, above %g", c.Pitch, maxPitch)
	}
	c.Update(0.016, Movement{LookY: -20})
	if c.Pitch < minPitch {
		t.Errorf("Pitch = %g, below %g", c.Pitch, minPitch)
	}
}

func TestCameraMovement(t *testing.T) {
	tests := []struct {
		name string
		m    Movement
		dist float32
	}{
		{"walk", Movement{Forward: true}, moveSpeed},
		{"boost", Movement{Forward: true, Boost: true}, moveSpeed * boostFactor},
		{"slow", Movement{Back: true, Slow: true}, moveSpeed * slowFactor},
		{"idle", Movement{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera()
			start := c.Position
			c.Update(1, tt.m)
			if got := c.Position.Sub(start).Len(); math.Abs(float64(got-tt.dist)) > 1e-4 {
				t.Errorf("moved %g, want %g", got, tt.dist)
			}
		})
	}
}

func TestLightAhead(t *testing.T) {
	c := NewCamera()
	l := c.LightAhead()
	if !l.Position.ApproxEqualThreshold(c.Position.Add(c.Direction().Mul(2)), 1e-5) {
		t.Errorf("LightAhead().Position = %v", l.Position)
	}
	if l.Radius != 2 || l.Color != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("LightAhead() = %+v, want radius 2 white", l)
	}
}

func TestDefaultSceneUploadsAndReleases(t *testing.T) {
	dev := gputest.New()
	s, err := NewDefault(dev)
	if err != nil {
		t.Fatal(err)
	}
	if s.Lights.Len() != 10 {
		t.Errorf("default lights = %d, want 10", s.Lights.Len())
	}
	prog := gputest.NewProgram(dev)
	dev.UseProgram(prog.ID())
	s.Draw(dev, prog)
	if len(dev.Draws) != len(s.Entities) {
		t.Errorf("draws = %d, want %d", len(dev.Draws), len(s.Entities))
	}
	s.DrawLightMarkers(dev, prog, s.Lights.All())
	if got, want := len(dev.Draws), len(s.Entities)+10; got != want {
		t.Errorf("draws with markers = %d, want %d", got, want)
	}

	s.Release()
	if got := dev.Live(gpu.KindBuffer) + dev.Live(gpu.KindVertexArray); got != 0 {
		t.Errorf("mesh objects live after Release = %d", got)
	}
}
