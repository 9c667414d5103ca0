package renderer

import (
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/gpu/gputest"
	"github.com/richinsley/godeferred/logger"
	"github.com/richinsley/godeferred/scene"
	"github.com/richinsley/godeferred/target"
)

type fixture struct {
	dev   *gputest.Device
	progs Programs
	scene *scene.Scene
	p     *Pipeline
}

func testPrograms(dev *gputest.Device) Programs {
	return Programs{
		Geometry: gputest.NewProgram(dev),
		Mark:     gputest.NewProgram(dev),
		Light:    gputest.NewProgram(dev),
		SSAO:     gputest.NewProgram(dev),
		Blur:     gputest.NewProgram(dev),
		SSR:      gputest.NewProgram(dev),
		Combine:  gputest.NewProgram(dev),
		Present:  gputest.NewProgram(dev),
		Forward:  gputest.NewProgram(dev),
	}
}

func newFixture(t *testing.T, s Settings, width, height int) *fixture {
	t.Helper()
	dev := gputest.New()
	sc, err := scene.NewDefault(dev)
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}
	progs := testPrograms(dev)
	p, err := New(dev, progs, sc, s, width, height)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{dev: dev, progs: progs, scene: sc, p: p}
}

func testFrame() Frame {
	cam := scene.NewCamera()
	return Frame{
		View:       cam.View(),
		Projection: cam.Projection(16.0 / 9.0),
		Lights:     scene.DefaultLights(),
	}
}

func setSize(t *testing.T, dev *gputest.Device, s *target.Set) Size {
	t.Helper()
	w, h := s.Size()
	for slot := range s.Attachments() {
		desc, ok := dev.Texture(s.TextureAt(slot))
		if !ok {
			t.Fatalf("%s slot %d: texture not allocated", s.Name(), slot)
		}
		if desc.Width != w || desc.Height != h {
			t.Errorf("%s slot %d = %dx%d, set reports %dx%d", s.Name(), slot, desc.Width, desc.Height, w, h)
		}
	}
	return Size{w, h}
}

func TestResizeRebuildsAtScaledSizes(t *testing.T) {
	s := DefaultSettings()
	s.AOScale = 0.5
	f := newFixture(t, s, 1280, 720)
	live := f.dev.LiveTotal()

	if err := f.p.Resize(640, 360); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	res := f.p.Resolutions()
	if res.Internal != (Size{640, 360}) {
		t.Errorf("Internal = %v, want 640x360", res.Internal)
	}
	if res.AO != (Size{320, 180}) {
		t.Errorf("AO = %v, want 320x180", res.AO)
	}

	want := []Size{res.Internal, res.Internal, res.Internal, res.Internal, res.AO, res.AO, res.Reflection}
	for i, set := range f.p.Targets() {
		if !set.Complete() {
			t.Errorf("%s incomplete after resize", set.Name())
		}
		if got := setSize(t, f.dev, set); got != want[i] {
			t.Errorf("%s = %v, want %v", set.Name(), got, want[i])
		}
	}
	if got := f.dev.LiveTotal(); got != live {
		t.Errorf("LiveTotal() = %d after resize, want %d", got, live)
	}
	if f.dev.DoubleDeletes != 0 {
		t.Errorf("DoubleDeletes = %d", f.dev.DoubleDeletes)
	}
}

func TestRebuildOrder(t *testing.T) {
	f := newFixture(t, DefaultSettings(), 320, 200)
	if err := f.p.Resize(300, 200); err != nil {
		t.Fatal(err)
	}
	// Framebuffer names are never reused, so creation order shows in them.
	var last uint32
	for _, set := range f.p.Targets() {
		fb := set.Framebuffer()
		if fb <= last {
			t.Errorf("%s framebuffer %d created before previous %d", set.Name(), fb, last)
		}
		last = fb
	}
}

func TestRenderStageOrder(t *testing.T) {
	tests := []struct {
		name    string
		ao      bool
		refl    bool
		forward bool
		want    []Stage
	}{
		{"all effects", true, true, false, []Stage{StageGeometry, StageAmbientOcclusion, StageReflection, StageLightAccumulation, StageComposite, StagePresent, StageSwap}},
		{"no ao", false, true, false, []Stage{StageGeometry, StageReflection, StageLightAccumulation, StageComposite, StagePresent, StageSwap}},
		{"no reflection", true, false, false, []Stage{StageGeometry, StageAmbientOcclusion, StageLightAccumulation, StageComposite, StagePresent, StageSwap}},
		{"minimal", false, false, false, []Stage{StageGeometry, StageLightAccumulation, StageComposite, StagePresent, StageSwap}},
		{"forward", true, true, true, []Stage{StageForward}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.AO, s.Reflection, s.Forward = tt.ao, tt.refl, tt.forward
			f := newFixture(t, s, 320, 180)
			var got []Stage
			f.p.Trace = func(st Stage) { got = append(got, st) }
			if _, err := f.p.Render(testFrame()); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("stages = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompositeReadsPreviousWritesCurrent(t *testing.T) {
	f := newFixture(t, DefaultSettings(), 320, 180)
	h := f.p.History()
	combine := f.progs.Combine.ID()
	present := f.progs.Present.ID()

	for frame := 0; frame < 4; frame++ {
		cur, prev := h.Current(), h.Previous()
		f.dev.ResetCalls()
		if _, err := f.p.Render(testFrame()); err != nil {
			t.Fatalf("frame %d: Render() error = %v", frame, err)
		}
		if h.Index() != (frame+1)%2 {
			t.Errorf("frame %d: history index = %d, want %d", frame, h.Index(), (frame+1)%2)
		}

		var sawCombine, sawPresent bool
		for _, d := range f.dev.Draws {
			switch d.Program {
			case combine:
				sawCombine = true
				if d.Framebuffer != cur.Framebuffer() {
					t.Errorf("frame %d: composite wrote fb %d, want current %d", frame, d.Framebuffer, cur.Framebuffer())
				}
				// lastFrame is the fourth combine input.
				if d.Units[3] != prev.TextureAt(0) {
					t.Errorf("frame %d: composite read %d, want previous %d", frame, d.Units[3], prev.TextureAt(0))
				}
			case present:
				sawPresent = true
				if d.Framebuffer != 0 {
					t.Errorf("frame %d: present wrote fb %d, want default", frame, d.Framebuffer)
				}
				if d.Units[0] != cur.TextureAt(0) {
					t.Errorf("frame %d: present read %d, want %d", frame, d.Units[0], cur.TextureAt(0))
				}
				if d.Viewport != [2]int{320, 180} {
					t.Errorf("frame %d: present viewport = %v", frame, d.Viewport)
				}
			}
		}
		if !sawCombine || !sawPresent {
			t.Fatalf("frame %d: combine=%t present=%t", frame, sawCombine, sawPresent)
		}
	}
}

func TestForwardRendersToDefaultFramebuffer(t *testing.T) {
	s := DefaultSettings()
	s.Forward = true
	f := newFixture(t, s, 320, 180)
	f.dev.ResetCalls()

	stats, err := f.p.Render(testFrame())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats != (FrameStats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
	if len(f.dev.Draws) != len(f.scene.Entities) {
		t.Errorf("draws = %d, want %d", len(f.dev.Draws), len(f.scene.Entities))
	}
	for i, d := range f.dev.Draws {
		if d.Framebuffer != 0 {
			t.Errorf("draw %d wrote fb %d, want default", i, d.Framebuffer)
		}
		if d.Program != f.progs.Forward.ID() {
			t.Errorf("draw %d used program %d", i, d.Program)
		}
	}
	if f.p.History().Index() != 0 {
		t.Errorf("forward frame swapped history")
	}
	if v, _ := f.dev.UniformValue(f.progs.Forward.ID(), "lightCount"); v != int32(len(scene.DefaultLights())) {
		t.Errorf("lightCount = %v, want %d", v, len(scene.DefaultLights()))
	}
}

func TestForwardCapsLights(t *testing.T) {
	s := DefaultSettings()
	s.Forward = true
	f := newFixture(t, s, 64, 64)
	fr := testFrame()
	for len(fr.Lights) < ForwardMaxLights+5 {
		fr.Lights = append(fr.Lights, fr.Lights[0])
	}
	if _, err := f.p.Render(fr); err != nil {
		t.Fatal(err)
	}
	v, _ := f.dev.UniformValue(f.progs.Forward.ID(), "lightCount")
	if v != int32(ForwardMaxLights) {
		t.Errorf("lightCount = %v, want %d", v, ForwardMaxLights)
	}
}

func TestLightStatsCoverEveryLight(t *testing.T) {
	f := newFixture(t, DefaultSettings(), 320, 180)
	fr := testFrame()
	stats, err := f.p.Render(fr)
	if err != nil {
		t.Fatal(err)
	}
	if stats.LightsShaded+stats.LightsCulled != len(fr.Lights) {
		t.Errorf("shaded %d + culled %d != %d lights", stats.LightsShaded, stats.LightsCulled, len(fr.Lights))
	}
	if stats.LightsShaded == 0 {
		t.Errorf("no lights shaded")
	}
}

func TestSetSettingsRebuildsOnlyOnScaleChange(t *testing.T) {
	f := newFixture(t, DefaultSettings(), 320, 180)
	allocs := f.dev.Allocations

	s := f.p.Settings()
	s.AO = false
	s.Reflection = false
	s.LightMarkers = true
	s.BlurTaps = 7
	if err := f.p.SetSettings(s); err != nil {
		t.Fatal(err)
	}
	if f.dev.Allocations != allocs {
		t.Errorf("toggles allocated %d objects", f.dev.Allocations-allocs)
	}

	s.ReflectionScale = 0.5
	if err := f.p.SetSettings(s); err != nil {
		t.Fatal(err)
	}
	if f.dev.Allocations == allocs {
		t.Errorf("scale change did not rebuild")
	}
	if got := f.p.Resolutions().Reflection; got != (Size{160, 90}) {
		t.Errorf("Reflection = %v, want 160x90", got)
	}

	s.AOScale = 0
	if err := f.p.SetSettings(s); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("SetSettings(invalid) error = %v", err)
	}
	if f.p.Settings().AOScale != 1 {
		t.Errorf("invalid settings were applied")
	}
}

func TestLightMarkersDrawnInGeometryPass(t *testing.T) {
	s := DefaultSettings()
	s.LightMarkers = true
	f := newFixture(t, s, 64, 64)
	f.dev.ResetCalls()
	fr := testFrame()
	if _, err := f.p.Render(fr); err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, d := range f.dev.Draws {
		if d.Program == f.progs.Geometry.ID() {
			n++
		}
	}
	if want := len(f.scene.Entities) + len(fr.Lights); n != want {
		t.Errorf("geometry draws = %d, want %d", n, want)
	}
}

func TestRebuildFailureBlocksRendering(t *testing.T) {
	f := newFixture(t, DefaultSettings(), 320, 180)
	live := f.dev.LiveTotal()

	// Fail the second history set.
	f.dev.FailStatusAt = f.dev.StatusChecks() + 3
	err := f.p.Resize(400, 300)
	var incomplete *target.IncompleteTargetError
	if !errors.As(err, &incomplete) {
		t.Fatalf("Resize() error = %v, want IncompleteTargetError", err)
	}
	if f.p.Ready() {
		t.Errorf("Ready() after failed rebuild")
	}
	if _, err := f.p.Render(testFrame()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Render() error = %v, want ErrNotReady", err)
	}

	f.dev.FailStatusAt = 0
	if err := f.p.Resize(400, 300); err != nil {
		t.Fatalf("Resize() retry error = %v", err)
	}
	if _, err := f.p.Render(testFrame()); err != nil {
		t.Errorf("Render() after recovery error = %v", err)
	}
	if got := f.dev.LiveTotal(); got != live {
		t.Errorf("LiveTotal() = %d, want %d", got, live)
	}
}

func TestGeometryClearsPositionToFar(t *testing.T) {
	f := newFixture(t, DefaultSettings(), 64, 64)
	f.dev.ResetCalls()
	if _, err := f.p.Render(testFrame()); err != nil {
		t.Fatal(err)
	}
	clears := f.dev.CallsWithPrefix("Clear")
	if len(clears) < 2 || clears[0] != "Clear color|depth|stencil" || clears[1] != "ClearAttachment 0 [0 0 -10000 0]" {
		t.Errorf("first clears = %v, want the full clear then the far position", clears)
	}
}

func TestFrameClearsAreNeverMasked(t *testing.T) {
	for _, forward := range []bool{false, true} {
		s := DefaultSettings()
		s.Forward = forward
		f := newFixture(t, s, 64, 64)
		f.dev.ResetCalls()
		if _, err := f.p.Render(testFrame()); err != nil {
			t.Fatal(err)
		}
		if len(f.dev.Clears) == 0 {
			t.Fatalf("forward=%t: no clears recorded", forward)
		}
		if masked := f.dev.MaskedClears(); len(masked) != 0 {
			t.Errorf("forward=%t: masked clears = %+v, want none", forward, masked)
		}
	}
}

func observeErrors(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.ErrorLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func TestDeviceErrorsAreDrainedAndLogged(t *testing.T) {
	logs := observeErrors(t)
	f := newFixture(t, DefaultSettings(), 64, 64)
	f.dev.Errors = []error{errors.New("gl error 0x0502"), errors.New("gl error 0x0501")}

	stats, err := f.p.Render(testFrame())
	if err != nil {
		t.Fatal(err)
	}
	if stats.DeviceErrors != 0 || len(f.dev.Errors) != 2 {
		t.Errorf("unchecked frame drained %d errors, %d left", stats.DeviceErrors, len(f.dev.Errors))
	}

	f.p.CheckErrors = true
	if stats, err = f.p.Render(testFrame()); err != nil {
		t.Fatal(err)
	}
	if stats.DeviceErrors != 2 || len(f.dev.Errors) != 0 {
		t.Errorf("DeviceErrors = %d with %d left, want 2 and 0", stats.DeviceErrors, len(f.dev.Errors))
	}
	frameLogs := logs.FilterMessage("gpu error").FilterField(zap.String("after", "frame"))
	if frameLogs.Len() != 2 {
		t.Errorf("logged %d frame errors, want 2", frameLogs.Len())
	}

	f.dev.Errors = []error{errors.New("gl error 0x0505")}
	if err := f.p.Resize(32, 32); err != nil {
		t.Fatal(err)
	}
	if n := logs.FilterField(zap.String("after", "rebuild")).Len(); n != 1 {
		t.Errorf("logged %d rebuild errors, want 1", n)
	}
}

func TestReleaseFreesTargets(t *testing.T) {
	dev := gputest.New()
	sc, err := scene.NewDefault(dev)
	if err != nil {
		t.Fatal(err)
	}
	progs := testPrograms(dev)
	before := dev.Live(gpu.KindFramebuffer)
	p, err := New(dev, progs, sc, DefaultSettings(), 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	p.Release()
	if got := dev.Live(gpu.KindFramebuffer); got != before {
		t.Errorf("live framebuffers = %d, want %d", got, before)
	}
	if got := dev.Live(gpu.KindRenderbuffer); got != 0 {
		t.Errorf("live renderbuffers = %d", got)
	}
	if _, err := p.Render(testFrame()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Render() after Release error = %v", err)
	}
	if dev.DoubleDeletes != 0 {
		t.Errorf("DoubleDeletes = %d", dev.DoubleDeletes)
	}
}
