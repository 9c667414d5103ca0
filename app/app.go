// Package app runs the interactive frame loop around the pipeline.
package app

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/richinsley/godeferred/capture"
	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/graphics"
	"github.com/richinsley/godeferred/logger"
	"github.com/richinsley/godeferred/renderer"
	"github.com/richinsley/godeferred/scene"
	"github.com/richinsley/godeferred/stats"
)

const (
	reloadInterval = time.Second
	rotateSpeed    = 2.0
	mouseFactor    = 0.05
	scaleStep      = 0.25
)

// Reloader rebuilds changed shader programs.
type Reloader interface {
	ReloadChanged() (int, error)
	ReloadAll() (int, error)
}

// Config holds the loop options that are not pipeline settings.
type Config struct {
	VSync      bool
	Fullscreen bool
	FrameCap   bool
	TargetFPS  int
}

// App owns the camera and the edit phase. All methods run on the thread
// that owns the GL context.
type App struct {
	ctx      graphics.Context
	dev      gpu.Device
	pipeline *renderer.Pipeline
	scene    *scene.Scene
	camera   *scene.Camera
	shaders  Reloader
	recorder *capture.Recorder
	stats    *stats.Collector
	cfg      Config

	// Settings edits made by key callbacks, applied in the edit phase.
	next     renderer.Settings
	dirty    bool
	reload   bool
	vsync    bool
	lastPoll time.Time

	lastFrame time.Time
	last      renderer.FrameStats

	now   func() time.Time
	sleep func(time.Duration)
}

// New wires the loop. recorder may be nil.
func New(ctx graphics.Context, dev gpu.Device, p *renderer.Pipeline, sc *scene.Scene, shaders Reloader, recorder *capture.Recorder, cfg Config) *App {
	a := &App{
		ctx:      ctx,
		dev:      dev,
		pipeline: p,
		scene:    sc,
		camera:   scene.NewCamera(),
		shaders:  shaders,
		recorder: recorder,
		cfg:      cfg,
		next:     p.Settings(),
		vsync:    cfg.VSync,
		now:      time.Now,
		sleep:    time.Sleep,
	}
	start := a.now()
	a.lastFrame, a.lastPoll = start, start
	a.stats = stats.NewCollector(time.Second, start)
	ctx.SetVSync(cfg.VSync)
	if cfg.Fullscreen && recorder == nil {
		ctx.SetFullscreen(true)
	}
	a.bindKeys()
	return a
}

func (a *App) Camera() *scene.Camera { return a.camera }

// LastStats is what the pipeline reported for the most recent frame.
func (a *App) LastStats() renderer.FrameStats { return a.last }

func (a *App) edit(f func(s *renderer.Settings)) func() {
	return func() {
		f(&a.next)
		a.dirty = true
	}
}

func (a *App) bindKeys() {
	bind := a.ctx.RegisterKeyCallback
	bind(graphics.KeyEscape, a.ctx.SetShouldClose)
	bind(graphics.KeyV, func() {
		a.vsync = !a.vsync
		a.ctx.SetVSync(a.vsync)
		logger.Log.Info("vsync", zap.Bool("on", a.vsync))
	})
	// The stream size is fixed while recording.
	if a.recorder == nil {
		bind(graphics.KeyF11, func() { a.ctx.SetFullscreen(!a.ctx.Fullscreen()) })
	}
	bind(graphics.KeyT, func() { a.ctx.SetCursorCaptured(!a.ctx.CursorCaptured()) })
	bind(graphics.KeyC, func() { a.cfg.FrameCap = !a.cfg.FrameCap })
	bind(graphics.KeyR, func() { a.reload = true })
	bind(graphics.KeyL, func() { a.scene.Lights.Add(a.camera.LightAhead()) })
	bind(graphics.KeyK, a.scene.Lights.RemoveLast)

	bind(graphics.KeyF, a.edit(func(s *renderer.Settings) { s.Forward = !s.Forward }))
	bind(graphics.KeyO, a.edit(func(s *renderer.Settings) { s.AO = !s.AO }))
	bind(graphics.KeyP, a.edit(func(s *renderer.Settings) { s.Reflection = !s.Reflection }))
	bind(graphics.KeyM, a.edit(func(s *renderer.Settings) { s.LightMarkers = !s.LightMarkers }))
	bind(graphics.KeyB, a.edit(func(s *renderer.Settings) { s.DebugBar = !s.DebugBar }))
	bind(graphics.KeyEqual, a.edit(func(s *renderer.Settings) {
		s.InternalScale = min(s.InternalScale+scaleStep, renderer.MaxScale)
	}))
	bind(graphics.KeyMinus, a.edit(func(s *renderer.Settings) {
		s.InternalScale = max(s.InternalScale-scaleStep, scaleStep)
	}))
}

// Run steps frames until the window is asked to close.
func (a *App) Run() error {
	for !a.ctx.ShouldClose() {
		if err := a.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one edit phase and one render phase. Errors are fatal.
func (a *App) Step() error {
	dt, now := a.waitFrame()

	if err := a.update(dt, now); err != nil {
		return err
	}
	if err := a.render(); err != nil {
		return err
	}
	a.ctx.EndFrame()

	if r, ok := a.stats.Add(dt, now); ok {
		logger.Log.Info("frame stats",
			zap.Float64("frametime_ms", float64(r.FrameTime)/float64(time.Millisecond)),
			zap.Float64("fps", r.FPS),
			zap.Duration("mean_deviation", r.MeanDeviation),
			zap.Duration("max_deviation", r.MaxDeviation),
			zap.Int("lights", a.scene.Lights.Len()),
			zap.Int("lights_culled", a.last.LightsCulled))
	}
	return nil
}

// waitFrame blocks until the frame cap allows another frame.
func (a *App) waitFrame() (time.Duration, time.Time) {
	for {
		now := a.now()
		dt := now.Sub(a.lastFrame)
		if !a.cfg.FrameCap || a.cfg.TargetFPS <= 0 || dt >= time.Second/time.Duration(a.cfg.TargetFPS) {
			a.lastFrame = now
			return dt, now
		}
		a.sleep(time.Millisecond)
	}
}

// update is the edit phase: everything that mutates the scene, the
// settings or the programs happens here, before rendering reads them.
func (a *App) update(dt time.Duration, now time.Time) error {
	a.camera.Update(float32(dt.Seconds()), a.movement(float32(dt.Seconds())))

	if err := a.scene.Lights.Apply(); err != nil {
		logger.Log.Warn("light edit rejected", zap.Error(err))
	}

	if a.dirty {
		a.dirty = false
		if err := a.pipeline.SetSettings(a.next); err != nil {
			if errors.Is(err, renderer.ErrInvalidSettings) {
				logger.Log.Warn("settings rejected", zap.Error(err))
				a.next = a.pipeline.Settings()
			} else {
				return err
			}
		}
	}

	if a.ctx.Resized() {
		w, h := a.ctx.GetFramebufferSize()
		// A minimized window reports zero; keep the old targets.
		if w > 0 && h > 0 {
			if err := a.pipeline.Resize(w, h); err != nil {
				return err
			}
		}
	}

	if a.reload {
		a.reload = false
		a.lastPoll = now
		n, err := a.shaders.ReloadAll()
		logger.Log.Info("shaders reloaded", zap.Int("programs", n), zap.Error(err))
	} else if now.Sub(a.lastPoll) >= reloadInterval {
		a.lastPoll = now
		// Failures are logged by the library; the old programs stay.
		_, _ = a.shaders.ReloadChanged()
	}
	return nil
}

func (a *App) movement(dt float32) scene.Movement {
	k := a.ctx.KeyDown
	m := scene.Movement{
		Forward: k(graphics.KeyW),
		Back:    k(graphics.KeyS),
		Left:    k(graphics.KeyA),
		Right:   k(graphics.KeyD),
		Up:      k(graphics.KeyE),
		Down:    k(graphics.KeyQ),
		Boost:   k(graphics.KeyLeftShift),
		Slow:    k(graphics.KeyZ),
	}
	rot := float32(rotateSpeed)
	if m.Slow {
		rot *= 0.45
	}
	var yaw, pitch float32
	if k(graphics.KeyLeft) {
		yaw -= rot
	}
	if k(graphics.KeyRight) {
		yaw += rot
	}
	if k(graphics.KeyUp) {
		pitch -= rot
	}
	if k(graphics.KeyDown) {
		pitch += rot
	}
	dx, dy := a.ctx.CursorDelta()
	yaw += mouseFactor * rot * float32(dx)
	pitch += mouseFactor * rot * float32(dy)
	m.LookX, m.LookY = yaw*dt, pitch*dt
	return m
}

func (a *App) render() error {
	w, h := a.ctx.GetFramebufferSize()
	if w <= 0 || h <= 0 {
		return nil
	}
	frame := renderer.Frame{
		View:       a.camera.View(),
		Projection: a.camera.Projection(float32(w) / float32(h)),
		Lights:     a.scene.Lights.All(),
	}
	st, err := a.pipeline.Render(frame)
	if err != nil {
		return err
	}
	a.last = st

	if a.recorder != nil {
		rw, rh := a.recorder.Size()
		buf := make([]byte, a.recorder.FrameSize())
		a.dev.ReadPixels(rw, rh, buf)
		if ok, err := a.recorder.Add(buf); err != nil {
			return err
		} else if !ok {
			logger.Log.Debug("recorder queue full, frame dropped")
		}
	}
	return nil
}
