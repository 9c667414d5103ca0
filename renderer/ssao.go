package renderer

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mjibson/go-dsp/window"
)

const (
	kernelSize = 64
	noiseSize  = 4
)

// SSAOKernel returns n hemisphere samples around +Z, denser near the origin.
func SSAOKernel(rng *rand.Rand, n int) []mgl32.Vec3 {
	kernel := make([]mgl32.Vec3, n)
	for i := range kernel {
		s := mgl32.Vec3{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32(),
		}
		if s.Len() == 0 {
			s = mgl32.Vec3{0, 0, 1}
		}
		s = s.Normalize().Mul(rng.Float32())
		scale := float32(i) / float32(n)
		scale = 0.1 + 0.9*scale*scale
		kernel[i] = s.Mul(scale)
	}
	return kernel
}

// SSAONoise returns a noiseSize x noiseSize RGB rotation texture.
func SSAONoise(rng *rand.Rand) []float32 {
	data := make([]float32, 0, noiseSize*noiseSize*3)
	for i := 0; i < noiseSize*noiseSize; i++ {
		data = append(data, rng.Float32()*2-1, rng.Float32()*2-1, 0)
	}
	return data
}

// BlurWeights returns a normalized Hann window of the given odd length.
func BlurWeights(taps int) []float32 {
	// The Hann window's end points are zero; pad by one on each side.
	w := window.Hann(taps + 2)[1 : taps+1]
	var sum float64
	for _, v := range w {
		sum += v
	}
	out := make([]float32, taps)
	for i, v := range w {
		out[i] = float32(v / sum)
	}
	return out
}
