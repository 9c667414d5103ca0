package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/lighting"
	"github.com/richinsley/godeferred/pass"
	"github.com/richinsley/godeferred/scene"
)

// Stage is one step of a frame.
type Stage int

const (
	StageGeometry Stage = iota
	StageAmbientOcclusion
	StageReflection
	StageLightAccumulation
	StageComposite
	StagePresent
	StageSwap
	StageForward
)

func (s Stage) String() string {
	switch s {
	case StageGeometry:
		return "geometry"
	case StageAmbientOcclusion:
		return "ambient-occlusion"
	case StageReflection:
		return "reflection"
	case StageLightAccumulation:
		return "light-accumulation"
	case StageComposite:
		return "composite"
	case StagePresent:
		return "present"
	case StageSwap:
		return "swap"
	case StageForward:
		return "forward"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ForwardMaxLights is the number of lights the forward shader evaluates.
const ForwardMaxLights = 16

// Frame is the per-frame input of Render.
type Frame struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	// Lights is a snapshot; it is not read after Render returns.
	Lights []scene.Light
}

// FrameStats describes what the last Render did.
type FrameStats struct {
	LightsShaded int
	LightsCulled int
	// DeviceErrors is the number of device errors drained after the frame,
	// when the pipeline checks for them.
	DeviceErrors int
}

func (p *Pipeline) trace(s Stage) {
	if p.Trace != nil {
		p.Trace(s)
	}
}

func (p *Pipeline) passContext() *pass.Context {
	return &pass.Context{
		Device:       p.dev,
		States:       p.states,
		ScreenWidth:  p.window.Width,
		ScreenHeight: p.window.Height,
	}
}

// Render runs one frame to the default framebuffer. In deferred mode the
// history pair is swapped after presenting.
func (p *Pipeline) Render(f Frame) (FrameStats, error) {
	if !p.ready {
		return FrameStats{}, ErrNotReady
	}
	p.frameLights = f.Lights
	defer func() { p.frameLights = nil }()

	// Other code may have touched state since the last frame.
	p.states.Invalidate()
	ctx := p.passContext()

	var (
		stats FrameStats
		err   error
	)
	if p.settings.Forward {
		p.trace(StageForward)
		err = p.renderForward(ctx, f)
	} else {
		stats, err = p.renderDeferred(ctx, f)
	}
	if p.CheckErrors {
		stats.DeviceErrors = p.drainErrors("frame")
	}
	return stats, err
}

func (p *Pipeline) renderDeferred(ctx *pass.Context, f Frame) (FrameStats, error) {
	var stats FrameStats
	view, proj := pass.Mat4(f.View), pass.Mat4(f.Projection)

	p.trace(StageGeometry)
	err := p.geometry.Execute(ctx,
		pass.U("viewMatrix", view),
		pass.U("projMatrix", proj),
	)
	if err != nil {
		return stats, err
	}

	if p.settings.AO {
		p.trace(StageAmbientOcclusion)
		err := p.ssao.Execute(ctx,
			pass.U("samples", pass.Vec3s(p.kernel)),
			pass.U("width", pass.Float(p.res.AO.Width)),
			pass.U("height", pass.Float(p.res.AO.Height)),
			pass.U("projMatrix", proj),
		)
		if err != nil {
			return stats, err
		}
		err = p.blur.Execute(ctx,
			pass.U("weights", pass.Floats(p.blurWeights)),
			pass.U("taps", pass.Int(len(p.blurWeights))),
		)
		if err != nil {
			return stats, err
		}
	}

	if p.settings.Reflection {
		p.trace(StageReflection)
		if err := p.ssr.Execute(ctx, pass.U("projMatrix", proj)); err != nil {
			return stats, err
		}
	}

	p.trace(StageLightAccumulation)
	shaded, err := p.culler.Run(ctx, f.Lights, f.View, f.Projection)
	stats.LightsShaded, stats.LightsCulled = shaded, p.culler.Culled
	if err != nil {
		return stats, err
	}

	p.trace(StageComposite)
	p.combine.Output = p.history.Current()
	err = p.combine.Execute(ctx,
		pass.U("screenWidth", pass.Float(p.res.Internal.Width)),
		pass.U("screenHeight", pass.Float(p.res.Internal.Height)),
		pass.U("ssao", pass.Bool(p.settings.AO)),
		pass.U("ssr", pass.Bool(p.settings.Reflection)),
		pass.U("invProj", pass.Mat4(f.Projection.Inv())),
		pass.U("projMatrix", proj),
		pass.U("showDebugBar", pass.Bool(p.settings.DebugBar)),
	)
	if err != nil {
		return stats, err
	}

	p.trace(StagePresent)
	if err := p.present.Execute(ctx); err != nil {
		return stats, err
	}

	p.trace(StageSwap)
	p.history.Swap()
	return stats, nil
}

func (p *Pipeline) renderForward(ctx *pass.Context, f Frame) error {
	lights := f.Lights
	if len(lights) > ForwardMaxLights {
		lights = lights[:ForwardMaxLights]
	}
	positions := make([]mgl32.Vec3, len(lights))
	colors := make([]mgl32.Vec3, len(lights))
	strengths := make([]float32, len(lights))
	for i, l := range lights {
		positions[i] = f.View.Mul4x1(l.Position.Vec4(1)).Vec3()
		colors[i] = l.Color
		strengths[i] = lighting.Strength(l.Radius)
	}
	return p.forward.Execute(ctx,
		pass.U("viewMatrix", pass.Mat4(f.View)),
		pass.U("projMatrix", pass.Mat4(f.Projection)),
		pass.U("lightCount", pass.Int(len(lights))),
		pass.U("lightPositions", pass.Vec3s(positions)),
		pass.U("lightColors", pass.Vec3s(colors)),
		pass.U("lightStrengths", pass.Floats(strengths)),
	)
}
