package options

import (
	"flag"
	"fmt"
	"os"

	"github.com/richinsley/godeferred/renderer"
)

// Options are the command-line settings of the viewer.
type Options struct {
	Help       *bool
	Width      *int
	Height     *int
	Config     *string // JSON file of renderer.Settings overrides
	ShaderDir  *string // Directory overriding the embedded shaders
	Record     *string // Output video file; empty disables recording
	FPS        *int    // Recording frame rate
	Codec      *string
	HWAccel    *bool
	FFMPEGPath *string
	Debug      *bool
	VSync      *bool
	Fullscreen *bool
	FrameCap   *bool
	TargetFPS  *int

	// Settings flags; see renderer.Settings.
	InternalScale   *float64
	AOScale         *float64
	ReflectionScale *float64
	NoAO            *bool
	NoReflection    *bool
	Forward         *bool
	LightMarkers    *bool
}

// Register defines every flag on fs.
func Register(fs *flag.FlagSet) *Options {
	return &Options{
		Help:       fs.Bool("help", false, "Show help message"),
		Width:      fs.Int("width", 1280, "Window width"),
		Height:     fs.Int("height", 720, "Window height"),
		Config:     fs.String("config", "", "JSON settings file"),
		ShaderDir:  fs.String("shaders", "", "Load shaders from this directory instead of the built-in set"),
		Record:     fs.String("record", "", "Record the presented frames to this video file"),
		FPS:        fs.Int("fps", 60, "Frames per second for recording"),
		Codec:      fs.String("codec", "h264", "Recording codec (h264 or hevc)"),
		HWAccel:    fs.Bool("hwaccel", false, "Use the platform hardware encoder when recording"),
		FFMPEGPath: fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		Debug:      fs.Bool("debug", false, "Development logging"),
		VSync:      fs.Bool("vsync", true, "Wait for vertical sync"),
		Fullscreen: fs.Bool("fullscreen", false, "Start fullscreen"),
		FrameCap:   fs.Bool("framecap", false, "Limit the frame rate to -target-fps"),
		TargetFPS:  fs.Int("target-fps", 60, "Frame rate limit when -framecap is set"),

		InternalScale:   fs.Float64("scale", 0, "Internal resolution scale (0 keeps the configured value)"),
		AOScale:         fs.Float64("ao-scale", 0, "Ambient occlusion resolution scale"),
		ReflectionScale: fs.Float64("ssr-scale", 0, "Reflection resolution scale"),
		NoAO:            fs.Bool("no-ao", false, "Disable ambient occlusion"),
		NoReflection:    fs.Bool("no-ssr", false, "Disable screen-space reflections"),
		Forward:         fs.Bool("forward", false, "Start with the forward renderer"),
		LightMarkers:    fs.Bool("markers", false, "Draw a sphere at every light"),
	}
}

// Parse registers the flags on a new set and parses args.
func Parse(name string, args []string) (*Options, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	o := Register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if *o.Width <= 0 || *o.Height <= 0 {
		return nil, fs, fmt.Errorf("invalid window size %dx%d", *o.Width, *o.Height)
	}
	return o, fs, nil
}

// Settings loads the config file, if any, over the defaults and applies
// the flag overrides on top.
func (o *Options) Settings() (renderer.Settings, error) {
	s := renderer.DefaultSettings()
	if *o.Config != "" {
		f, err := os.Open(*o.Config)
		if err != nil {
			return s, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if s, err = renderer.LoadSettings(f); err != nil {
			return s, fmt.Errorf("%s: %w", *o.Config, err)
		}
	}
	if *o.InternalScale != 0 {
		s.InternalScale = *o.InternalScale
	}
	if *o.AOScale != 0 {
		s.AOScale = *o.AOScale
	}
	if *o.ReflectionScale != 0 {
		s.ReflectionScale = *o.ReflectionScale
	}
	if *o.NoAO {
		s.AO = false
	}
	if *o.NoReflection {
		s.Reflection = false
	}
	if *o.Forward {
		s.Forward = true
	}
	if *o.LightMarkers {
		s.LightMarkers = true
	}
	return s, s.Validate()
}
