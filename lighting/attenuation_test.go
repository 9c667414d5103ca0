package lighting

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/scene"
)

func TestAttenuation(t *testing.T) {
	tests := []struct {
		d, r float32
		want float32
	}{
		{0, 4, 1},
		{2, 4, 0.5},
		{3, 4, 0.25},
		{4, 4, 0},
		{3, 3, 0},
		{7, 3, 0},
		{100, 0.5, 0},
	}
	for _, tt := range tests {
		if got := Attenuation(tt.d, tt.r); got != tt.want {
			t.Errorf("Attenuation(%g, %g) = %g, want %g", tt.d, tt.r, got, tt.want)
		}
	}
}

func TestAttenuationNeverNegative(t *testing.T) {
	for r := float32(0.25); r < 50; r *= 1.7 {
		for d := float32(0); d < 3*r; d += r / 16 {
			if got := Attenuation(d, r); got < 0 || got > 1 {
				t.Fatalf("Attenuation(%g, %g) = %g, outside [0,1]", d, r, got)
			}
		}
	}
}

func TestContributionBeyondRadiusIsZero(t *testing.T) {
	l := scene.Light{Position: mgl32.Vec3{0, 5, 0}, Radius: 5, Color: mgl32.Vec3{1, 1, 1}}
	for _, y := range []float32{0, -1, -20} {
		s := Surface{
			Position: mgl32.Vec3{0, y, 0},
			Normal:   mgl32.Vec3{0, 1, 0},
			Eye:      mgl32.Vec3{0, 2, 10},
			Diffuse:  mgl32.Vec3{1, 1, 1},
			Specular: 1,
		}
		if got := Contribution(l, s); got != (mgl32.Vec3{}) {
			t.Errorf("Contribution at distance %g = %v, want zero", 5-y, got)
		}
	}
}

func TestContributionAtLightPositionIsFull(t *testing.T) {
	l := scene.Light{Position: mgl32.Vec3{1, 2, 3}, Radius: 4, Color: mgl32.Vec3{0.5, 0.25, 1}}
	s := Surface{
		Position: l.Position,
		Normal:   mgl32.Vec3{0, 1, 0},
		Diffuse:  mgl32.Vec3{1, 1, 1},
	}
	got := Contribution(l, s)
	if !got.ApproxEqual(l.Color) {
		t.Errorf("Contribution at d=0 = %v, want %v", got, l.Color)
	}
}

func TestTwoIdenticalLightsDoubleContribution(t *testing.T) {
	l := scene.Light{Position: mgl32.Vec3{0, 2, 0}, Radius: 6, Color: mgl32.Vec3{0.9, 0.7, 0.3}}
	samples := []Surface{
		{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 1, 0}, Eye: mgl32.Vec3{0, 3, 6}, Diffuse: mgl32.Vec3{1, 1, 1}, Specular: 0.5},
		{Position: mgl32.Vec3{1.5, 0, -1}, Normal: mgl32.Vec3{0, 1, 0}, Eye: mgl32.Vec3{0, 3, 6}, Diffuse: mgl32.Vec3{0.2, 0.8, 0.4}, Specular: 1},
		{Position: mgl32.Vec3{-2, 1, 0.5}, Normal: mgl32.Vec3{1, 0, 0}, Eye: mgl32.Vec3{4, 1, 0}, Diffuse: mgl32.Vec3{0.6, 0.6, 0.6}},
	}
	for i, s := range samples {
		single := Accumulate([]scene.Light{l}, s)
		double := Accumulate([]scene.Light{l, l}, s)
		if double != single.Mul(2) {
			t.Errorf("sample %d: two lights = %v, want exactly %v", i, double, single.Mul(2))
		}
		if single == (mgl32.Vec3{}) {
			t.Errorf("sample %d: single light contributes nothing", i)
		}
	}
}

func TestStrength(t *testing.T) {
	if got := Strength(4); got != -0.25 {
		t.Errorf("Strength(4) = %g, want -0.25", got)
	}
}
