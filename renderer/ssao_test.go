package renderer

import (
	"math"
	"math/rand"
	"testing"
)

func TestSSAOKernel(t *testing.T) {
	k := SSAOKernel(rand.New(rand.NewSource(7)), kernelSize)
	if len(k) != kernelSize {
		t.Fatalf("len(kernel) = %d, want %d", len(k), kernelSize)
	}
	for i, s := range k {
		if s[2] < 0 {
			t.Errorf("sample %d = %v below the hemisphere", i, s)
		}
		if s.Len() > 1 {
			t.Errorf("sample %d length %g > 1", i, s.Len())
		}
	}
}

func TestSSAONoise(t *testing.T) {
	n := SSAONoise(rand.New(rand.NewSource(7)))
	if len(n) != noiseSize*noiseSize*3 {
		t.Fatalf("len(noise) = %d", len(n))
	}
	for i := 2; i < len(n); i += 3 {
		if n[i] != 0 {
			t.Errorf("noise z[%d] = %g, want 0", i/3, n[i])
		}
	}
}

func TestBlurWeights(t *testing.T) {
	for taps := 1; taps <= MaxBlurTaps; taps += 2 {
		w := BlurWeights(taps)
		if len(w) != taps {
			t.Fatalf("BlurWeights(%d) has %d weights", taps, len(w))
		}
		var sum float64
		for i, v := range w {
			if v <= 0 {
				t.Errorf("BlurWeights(%d)[%d] = %g, want > 0", taps, i, v)
			}
			if math.Abs(float64(v-w[taps-1-i])) > 1e-7 {
				t.Errorf("BlurWeights(%d) not symmetric at %d", taps, i)
			}
			sum += float64(v)
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("BlurWeights(%d) sums to %g, want 1", taps, sum)
		}
	}
}
