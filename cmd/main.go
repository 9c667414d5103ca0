package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/richinsley/godeferred/app"
	"github.com/richinsley/godeferred/capture"
	"github.com/richinsley/godeferred/glfwcontext"
	"github.com/richinsley/godeferred/gpu/gldevice"
	"github.com/richinsley/godeferred/logger"
	"github.com/richinsley/godeferred/options"
	"github.com/richinsley/godeferred/renderer"
	"github.com/richinsley/godeferred/scene"
	"github.com/richinsley/godeferred/shader"
	"github.com/richinsley/godeferred/translator"
)

func run(opts *options.Options, settings renderer.Settings) error {
	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	recording := *opts.Record != ""
	win, err := glfwcontext.New(*opts.Width, *opts.Height, "godeferred", !recording)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer win.Shutdown()
	win.MakeCurrent()

	dev, err := gldevice.New()
	if err != nil {
		return err
	}

	tr, err := translator.New(context.Background())
	if err != nil {
		return err
	}
	var sources fs.FS = shader.Builtin()
	if *opts.ShaderDir != "" {
		sources = os.DirFS(*opts.ShaderDir)
		logger.Log.Info("loading shaders from directory", zap.String("dir", *opts.ShaderDir))
	}
	lib := shader.NewLibrary(dev, sources, tr)
	defer lib.Release()
	progs, err := renderer.LoadPrograms(lib)
	if err != nil {
		return err
	}

	sc, err := scene.NewDefault(dev)
	if err != nil {
		return err
	}
	defer sc.Release()

	w, h := win.GetFramebufferSize()
	pipeline, err := renderer.New(dev, progs, sc, settings, w, h)
	if err != nil {
		return err
	}
	defer pipeline.Release()
	pipeline.CheckErrors = *opts.Debug

	var rec *capture.Recorder
	if recording {
		rec, err = capture.Start(capture.Config{
			Output:     *opts.Record,
			Width:      w,
			Height:     h,
			FPS:        *opts.FPS,
			Codec:      *opts.Codec,
			HWAccel:    *opts.HWAccel,
			FFmpegPath: *opts.FFMPEGPath,
		})
		if err != nil {
			return err
		}
	}

	a := app.New(win, dev, pipeline, sc, lib, rec, app.Config{
		VSync:      *opts.VSync,
		Fullscreen: *opts.Fullscreen && !recording,
		FrameCap:   *opts.FrameCap,
		TargetFPS:  *opts.TargetFPS,
	})
	logger.Log.Info("starting render loop", zap.Int("width", w), zap.Int("height", h))
	runErr := a.Run()
	if rec != nil {
		return errors.Join(runErr, rec.Close())
	}
	return runErr
}

func init() {
	runtime.LockOSThread()
}

func main() {
	opts, fset, err := options.Parse(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *opts.Help {
		fmt.Println("Deferred renderer")
		fset.PrintDefaults()
		return
	}

	if err := logger.Init(*opts.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	settings, err := opts.Settings()
	if err != nil {
		logger.Log.Fatal("invalid settings", zap.Error(err))
	}

	if err := run(opts, settings); err != nil {
		logger.Log.Fatal("renderer stopped", zap.Error(err))
	}
}
