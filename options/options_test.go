package options

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/richinsley/godeferred/renderer"
)

func TestParseDefaults(t *testing.T) {
	o, _, err := Parse("test", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if *o.Width != 1280 || *o.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", *o.Width, *o.Height)
	}
	s, err := o.Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if s != renderer.DefaultSettings() {
		t.Errorf("Settings() = %+v, want defaults", s)
	}
}

func TestSettingsLayering(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(cfg, []byte(`{"ao_scale": 0.5, "internal_scale": 0.75}`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		args  []string
		check func(renderer.Settings) bool
	}{
		{"file", []string{"-config", cfg}, func(s renderer.Settings) bool {
			return s.AOScale == 0.5 && s.InternalScale == 0.75
		}},
		{"flag over file", []string{"-config", cfg, "-ao-scale", "0.25"}, func(s renderer.Settings) bool {
			return s.AOScale == 0.25 && s.InternalScale == 0.75
		}},
		{"toggles", []string{"-no-ao", "-no-ssr", "-forward", "-markers"}, func(s renderer.Settings) bool {
			return !s.AO && !s.Reflection && s.Forward && s.LightMarkers
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _, err := Parse("test", tt.args)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			s, err := o.Settings()
			if err != nil {
				t.Fatalf("Settings() error = %v", err)
			}
			if !tt.check(s) {
				t.Errorf("Settings() = %+v", s)
			}
		})
	}
}

func TestSettingsErrors(t *testing.T) {
	o, _, err := Parse("test", []string{"-config", filepath.Join(t.TempDir(), "missing.json")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Settings(); err == nil {
		t.Errorf("Settings() with missing file succeeded")
	}

	o, _, err = Parse("test", []string{"-scale", "9"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Settings(); !errors.Is(err, renderer.ErrInvalidSettings) {
		t.Errorf("Settings() error = %v, want ErrInvalidSettings", err)
	}
}

func TestParseRejectsBadSize(t *testing.T) {
	if _, _, err := Parse("test", []string{"-width", "0"}); err == nil {
		t.Errorf("Parse() accepted zero width")
	}
}
