// Package renderer sequences the deferred pipeline and owns its targets.
package renderer

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/lighting"
	"github.com/richinsley/godeferred/logger"
	"github.com/richinsley/godeferred/pass"
	"github.com/richinsley/godeferred/scene"
	"github.com/richinsley/godeferred/target"
)

// ErrNotReady is returned by Render while targets are not fully built.
var ErrNotReady = errors.New("renderer: pipeline targets not built")

// Programs are the shader programs the pipeline draws with.
type Programs struct {
	Geometry gpu.Program
	Mark     gpu.Program
	Light    gpu.Program
	SSAO     gpu.Program
	Blur     gpu.Program
	SSR      gpu.Program
	Combine  gpu.Program
	Present  gpu.Program
	Forward  gpu.Program
}

var (
	gbufferAttachments = []target.AttachmentSpec{
		{Role: target.RolePosition, Format: gpu.FormatRGBA32F, Filter: gpu.FilterNearest},
		{Role: target.RoleNormal, Format: gpu.FormatRGBA32F, Filter: gpu.FilterNearest},
		{Role: target.RoleDiffuse, Format: gpu.FormatRGBA8, Filter: gpu.FilterNearest},
		{Role: target.RoleSpecular, Format: gpu.FormatRGBA8, Filter: gpu.FilterNearest},
		{Role: target.RoleMappedNormal, Format: gpu.FormatRGBA32F, Filter: gpu.FilterNearest},
	}
	historyAttachments = []target.AttachmentSpec{
		{Role: target.RoleColor, Format: gpu.FormatRGBA8, Filter: gpu.FilterLinear},
	}
	lightAttachments = []target.AttachmentSpec{
		{Role: target.RoleLight, Format: gpu.FormatRGBA16F, Filter: gpu.FilterNearest},
	}
	aoAttachments = []target.AttachmentSpec{
		{Role: target.RoleOcclusion, Format: gpu.FormatR16F, Filter: gpu.FilterLinear},
	}
	reflectionAttachments = []target.AttachmentSpec{
		{Role: target.RoleReflection, Format: gpu.FormatRGBA16F, Filter: gpu.FilterLinear},
	}
)

// clearingOpaque is gpu.Opaque with the stencil write mask open, so the
// pass clear resets the stencil as well.
var clearingOpaque = gpu.State{
	CullFace:   true,
	DepthTest:  true,
	DepthWrite: true,
	ColorWrite: true,
	Stencil:    gpu.Stencil{WriteMask: 0xFF},
}

// farPosition is the G-buffer position of pixels no geometry covered.
// A zero w marks the background.
var farPosition = [4]float32{0, 0, -10000, 0}

// Pipeline owns every render target and the passes that read and write
// them. It is not safe for concurrent use.
type Pipeline struct {
	dev      gpu.Device
	states   *gpu.StateTracker
	settings Settings
	window   Size
	res      Resolutions
	ready    bool

	gbuffer    *target.Set
	history    *target.History
	light      *target.Set
	ao         *target.Set
	aoBlur     *target.Set
	reflection *target.Set

	noise       *gpu.Handle
	kernel      []mgl32.Vec3
	blurWeights []float32

	scene  *scene.Scene
	quad   *pass.Quad
	culler *lighting.StencilCuller

	geometry *pass.Pass
	ssao     *pass.Pass
	blur     *pass.Pass
	ssr      *pass.Pass
	combine  *pass.Pass
	present  *pass.Pass
	forward  *pass.Pass

	frameLights []scene.Light

	// Trace, when set, is called as each stage starts.
	Trace func(Stage)
	// CheckErrors drains the device error queue after every frame.
	// Rebuilds always drain it.
	CheckErrors bool
}

// maxDrainedErrors bounds one drain of the device error queue.
const maxDrainedErrors = 8

// drainErrors logs every queued device error and returns how many there
// were.
func (p *Pipeline) drainErrors(after string) int {
	n := 0
	for ; n < maxDrainedErrors; n++ {
		err := p.dev.CheckError()
		if err == nil {
			break
		}
		logger.Log.Error("gpu error", zap.String("after", after), zap.Error(err))
	}
	return n
}

// New builds the pipeline and all targets for a window of width x height.
func New(dev gpu.Device, progs Programs, sc *scene.Scene, settings Settings, width, height int) (*Pipeline, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		dev:        dev,
		states:     gpu.NewStateTracker(dev),
		settings:   settings,
		scene:      sc,
		gbuffer:    target.NewSet(dev, "gbuffer"),
		history:    target.NewHistory(dev, "final"),
		light:      target.NewSet(dev, "light"),
		ao:         target.NewSet(dev, "ssao"),
		aoBlur:     target.NewSet(dev, "ssao-blur"),
		reflection: target.NewSet(dev, "ssr"),
		noise:      gpu.NewHandle(dev, gpu.KindTexture),
	}

	rng := rand.New(rand.NewSource(1))
	p.kernel = SSAOKernel(rng, kernelSize)
	if err := p.noise.Generate(); err != nil {
		return nil, fmt.Errorf("ssao noise: %w", err)
	}
	dev.TexImage(p.noise.ID(), gpu.TextureDesc{
		Width: noiseSize, Height: noiseSize,
		Format: gpu.FormatRGB32F, Filter: gpu.FilterNearest, Wrap: gpu.WrapRepeat,
		Data: SSAONoise(rng),
	})
	p.blurWeights = BlurWeights(settings.BlurTaps)

	var err error
	if p.quad, err = pass.NewQuad(dev); err != nil {
		p.Release()
		return nil, fmt.Errorf("quad: %w", err)
	}
	p.culler, err = lighting.NewStencilCuller(dev, lighting.CullerConfig{
		MarkProgram:  progs.Mark,
		ShadeProgram: progs.Light,
		Inputs: []pass.Input{
			{Name: "gPosition", Source: p.gbuffer.Texture(target.RolePosition)},
			{Name: "gNormal", Source: p.gbuffer.Texture(target.RoleMappedNormal)},
			{Name: "gDiffuse", Source: p.gbuffer.Texture(target.RoleDiffuse)},
			{Name: "gSpecular", Source: p.gbuffer.Texture(target.RoleSpecular)},
		},
		Output: p.light,
		Quad:   p.quad,
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	p.buildPasses(progs)

	if err := p.Resize(width, height); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) buildPasses(progs Programs) {
	p.geometry = &pass.Pass{
		Name:             "geometry",
		Program:          progs.Geometry,
		Output:           p.gbuffer,
		State:            clearingOpaque,
		Clear:            gpu.ClearColor | gpu.ClearDepth | gpu.ClearStencil,
		ClearAttachments: []pass.AttachmentClear{{Slot: 0, Color: farPosition}},
		Draw:             pass.DrawFunc(p.drawGeometry),
	}
	p.ssao = &pass.Pass{
		Name:    "ssao",
		Program: progs.SSAO,
		Inputs: []pass.Input{
			{Name: "gPosition", Source: p.gbuffer.Texture(target.RolePosition)},
			{Name: "gNormal", Source: p.gbuffer.Texture(target.RoleNormal)},
			{Name: "texNoise", Source: target.SourceFunc(p.noise.ID)},
		},
		Output: p.ao,
		State:  gpu.Fullscreen,
		Draw:   p.quad,
	}
	p.blur = &pass.Pass{
		Name:    "ssao-blur",
		Program: progs.Blur,
		Inputs:  []pass.Input{{Name: "ssaoInput", Source: p.ao.Texture(target.RoleOcclusion)}},
		Output:  p.aoBlur,
		State:   gpu.Fullscreen,
		Draw:    p.quad,
	}
	p.ssr = &pass.Pass{
		Name:    "ssr",
		Program: progs.SSR,
		Inputs: []pass.Input{
			{Name: "gPosition", Source: p.gbuffer.Texture(target.RolePosition)},
			{Name: "gNormal", Source: p.gbuffer.Texture(target.RoleMappedNormal)},
			{Name: "lastFrame", Source: p.history.PreviousTexture(target.RoleColor)},
			{Name: "gSpecular", Source: p.gbuffer.Texture(target.RoleSpecular)},
		},
		Output: p.reflection,
		State:  gpu.Fullscreen,
		Clear:  gpu.ClearColor,
		Draw:   p.quad,
	}
	p.combine = &pass.Pass{
		Name:    "combine",
		Program: progs.Combine,
		Inputs: []pass.Input{
			{Name: "gPosition", Source: p.gbuffer.Texture(target.RolePosition)},
			{Name: "gNormal", Source: p.gbuffer.Texture(target.RoleNormal)},
			{Name: "gDiffuse", Source: p.gbuffer.Texture(target.RoleDiffuse)},
			{Name: "lastFrame", Source: p.history.PreviousTexture(target.RoleColor)},
			{Name: "gSpecular", Source: p.gbuffer.Texture(target.RoleSpecular)},
			{Name: "postSSAO", Source: p.aoBlur.Texture(target.RoleOcclusion)},
			{Name: "ssrTexture", Source: p.reflection.Texture(target.RoleReflection)},
			{Name: "lightTex", Source: p.light.Texture(target.RoleLight)},
		},
		// Output is the current history set, chosen per frame.
		State: gpu.Fullscreen,
		Draw:  p.quad,
	}
	p.present = &pass.Pass{
		Name:    "present",
		Program: progs.Present,
		Inputs:  []pass.Input{{Name: "screenTexture", Source: p.history.CurrentTexture(target.RoleColor)}},
		State:   gpu.Fullscreen,
		Draw:    p.quad,
	}
	p.forward = &pass.Pass{
		Name:    "forward",
		Program: progs.Forward,
		State:   clearingOpaque,
		Clear:   gpu.ClearColor | gpu.ClearDepth | gpu.ClearStencil,
		Draw:    pass.DrawFunc(p.scene.Draw),
	}
}

func (p *Pipeline) drawGeometry(dev gpu.Device, prog gpu.Program) {
	p.scene.Draw(dev, prog)
	if p.settings.LightMarkers {
		p.scene.DrawLightMarkers(dev, prog, p.frameLights)
	}
}

// Resize recomputes the resolutions and rebuilds every target in a fixed
// order. On failure the pipeline refuses to render until a later Resize
// succeeds.
func (p *Pipeline) Resize(width, height int) error {
	p.window = Size{Width: width, Height: height}
	return p.rebuild()
}

func (p *Pipeline) rebuild() error {
	p.ready = false
	p.res = ComputeResolutions(p.window, p.settings)
	in, ao, refl := p.res.Internal, p.res.AO, p.res.Reflection

	steps := []struct {
		name  string
		build func() error
	}{
		{"gbuffer", func() error {
			return p.gbuffer.Rebuild(in.Width, in.Height, target.Layout{
				Attachments:  gbufferAttachments,
				DepthStencil: target.DepthStencilOwn,
			})
		}},
		{"history", func() error {
			return p.history.Rebuild(in.Width, in.Height, target.Layout{Attachments: historyAttachments})
		}},
		{"light", func() error {
			return p.light.Rebuild(in.Width, in.Height, target.Layout{
				Attachments:  lightAttachments,
				DepthStencil: target.DepthStencilShared,
				SharedWith:   p.gbuffer,
			})
		}},
		{"ssao", func() error {
			return p.ao.Rebuild(ao.Width, ao.Height, target.Layout{Attachments: aoAttachments})
		}},
		{"ssao-blur", func() error {
			return p.aoBlur.Rebuild(ao.Width, ao.Height, target.Layout{Attachments: aoAttachments})
		}},
		{"ssr", func() error {
			return p.reflection.Rebuild(refl.Width, refl.Height, target.Layout{Attachments: reflectionAttachments})
		}},
	}
	for _, step := range steps {
		if err := step.build(); err != nil {
			p.drainErrors("rebuild " + step.name)
			return fmt.Errorf("rebuild %s: %w", step.name, err)
		}
	}
	p.drainErrors("rebuild")
	p.ready = true
	logger.Log.Info("render targets rebuilt",
		zap.Int("window_width", p.window.Width), zap.Int("window_height", p.window.Height),
		zap.Int("internal_width", in.Width), zap.Int("internal_height", in.Height),
		zap.Int("ao_width", ao.Width), zap.Int("ao_height", ao.Height),
		zap.Int("ssr_width", refl.Width), zap.Int("ssr_height", refl.Height))
	return nil
}

// SetSettings applies new settings. Targets are rebuilt only when a
// resolution scale changed; toggles take effect on the next frame.
func (p *Pipeline) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	old := p.settings
	p.settings = s
	if s.BlurTaps != old.BlurTaps {
		p.blurWeights = BlurWeights(s.BlurTaps)
	}
	if !s.scalesEqual(old) {
		return p.rebuild()
	}
	return nil
}

func (p *Pipeline) Settings() Settings { return p.settings }

func (p *Pipeline) Resolutions() Resolutions { return p.res }

// Ready reports whether every target is built.
func (p *Pipeline) Ready() bool { return p.ready }

// History exposes the ping-pong pair.
func (p *Pipeline) History() *target.History { return p.history }

// Targets returns every render target set in rebuild order.
func (p *Pipeline) Targets() []*target.Set {
	return []*target.Set{p.gbuffer, p.history.At(0), p.history.At(1), p.light, p.ao, p.aoBlur, p.reflection}
}

// Release frees every GPU object the pipeline owns.
func (p *Pipeline) Release() {
	p.ready = false
	for _, s := range p.Targets() {
		s.Release()
	}
	p.noise.Release()
	if p.culler != nil {
		p.culler.Release()
	}
	if p.quad != nil {
		p.quad.Release()
	}
}
