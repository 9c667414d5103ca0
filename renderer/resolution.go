package renderer

import "math"

// Size is a width and height in pixels.
type Size struct {
	Width, Height int
}

// Resolutions are the render sizes derived from the window.
type Resolutions struct {
	Internal   Size
	AO         Size
	Reflection Size
}

// ScaleDim returns max(1, round(scale*dim)).
func ScaleDim(scale float64, dim int) int {
	v := int(math.Round(scale * float64(dim)))
	if v < 1 {
		return 1
	}
	return v
}

func scaleSize(scale float64, s Size) Size {
	return Size{Width: ScaleDim(scale, s.Width), Height: ScaleDim(scale, s.Height)}
}

// ComputeResolutions applies the three independent scale factors to the
// window size.
func ComputeResolutions(window Size, s Settings) Resolutions {
	return Resolutions{
		Internal:   scaleSize(s.InternalScale, window),
		AO:         scaleSize(s.AOScale, window),
		Reflection: scaleSize(s.ReflectionScale, window),
	}
}
