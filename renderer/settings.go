package renderer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxScale bounds every resolution scale factor.
const MaxScale = 5

// MaxBlurTaps is the largest AO blur kernel the blur shader accepts.
const MaxBlurTaps = 9

var ErrInvalidSettings = errors.New("renderer: invalid settings")

// Settings are the runtime-mutable pipeline options.
type Settings struct {
	InternalScale   float64 `json:"internal_scale"`
	AOScale         float64 `json:"ao_scale"`
	ReflectionScale float64 `json:"reflection_scale"`

	AO         bool `json:"ao"`
	Reflection bool `json:"reflection"`
	Forward    bool `json:"forward"`

	LightMarkers bool `json:"light_markers"`
	DebugBar     bool `json:"debug_bar"`
	BlurTaps     int  `json:"blur_taps"`
}

func DefaultSettings() Settings {
	return Settings{
		InternalScale:   1,
		AOScale:         1,
		ReflectionScale: 1,
		AO:              true,
		Reflection:      true,
		BlurTaps:        5,
	}
}

func (s Settings) Validate() error {
	for _, sc := range []struct {
		name  string
		value float64
	}{
		{"internal_scale", s.InternalScale},
		{"ao_scale", s.AOScale},
		{"reflection_scale", s.ReflectionScale},
	} {
		if !(sc.value > 0 && sc.value <= MaxScale) {
			return fmt.Errorf("%w: %s = %g, want (0, %d]", ErrInvalidSettings, sc.name, sc.value, MaxScale)
		}
	}
	if s.BlurTaps < 1 || s.BlurTaps > MaxBlurTaps || s.BlurTaps%2 == 0 {
		return fmt.Errorf("%w: blur_taps = %d, want odd in [1, %d]", ErrInvalidSettings, s.BlurTaps, MaxBlurTaps)
	}
	return nil
}

// scalesEqual reports whether two settings produce the same targets.
func (s Settings) scalesEqual(o Settings) bool {
	return s.InternalScale == o.InternalScale && s.AOScale == o.AOScale && s.ReflectionScale == o.ReflectionScale
}

// LoadSettings decodes JSON over the defaults, so omitted fields keep their
// default values.
func LoadSettings(r io.Reader) (Settings, error) {
	s := DefaultSettings()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	return s, s.Validate()
}
