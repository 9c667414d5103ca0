package lighting

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/pass"
	"github.com/richinsley/godeferred/scene"
	"github.com/richinsley/godeferred/target"
)

// Phase is the stencil state of the culler.
type Phase int

const (
	PhaseDisabled Phase = iota
	PhaseMarking
	PhaseShading
)

func (p Phase) String() string {
	switch p {
	case PhaseMarking:
		return "marking"
	case PhaseShading:
		return "shading"
	default:
		return "disabled"
	}
}

// MarkState counts volume crossings behind the surface: back faces that
// fail the depth test increment, front faces that fail decrement.
var MarkState = gpu.State{
	DepthTest: true,
	Stencil: gpu.Stencil{
		Enabled:   true,
		Func:      gpu.CompareAlways,
		WriteMask: 0xFF,
		Front:     gpu.StencilOps{DepthFail: gpu.StencilDecrWrap},
		Back:      gpu.StencilOps{DepthFail: gpu.StencilIncrWrap},
	},
}

// ShadeState adds the light wherever the mark left a non-zero count.
var ShadeState = gpu.State{
	ColorWrite: true,
	Blend:      gpu.BlendAdditive,
	Stencil: gpu.Stencil{
		Enabled:  true,
		Func:     gpu.CompareNotEqual,
		ReadMask: 0xFF,
	},
}

const (
	volumeStacks = 8
	volumeSlices = 12
)

// VolumeScale is the model scale of a light's volume: the sphere mesh has
// unit diameter and is scaled to twice the radius.
func VolumeScale(radius float32) float32 { return 2 * radius }

// VolumeTransform places the unit-diameter volume sphere over a light.
func VolumeTransform(l scene.Light) mgl32.Mat4 {
	s := VolumeScale(l.Radius)
	return mgl32.Translate3D(l.Position[0], l.Position[1], l.Position[2]).Mul4(mgl32.Scale3D(s, s, s))
}

// CullerConfig wires the culler to its programs and G-buffer inputs.
type CullerConfig struct {
	// MarkProgram transforms the volume; its fragment output is masked.
	MarkProgram gpu.Program
	// ShadeProgram evaluates one light over the G-buffer.
	ShadeProgram gpu.Program
	// Inputs are the G-buffer textures the shade program samples.
	Inputs []pass.Input
	// Output must carry the G-buffer's depth-stencil buffer.
	Output *target.Set
	Quad   pass.Drawer
}

// StencilCuller accumulates lights one at a time. Each light clears the
// stencil, marks its volume and shades the marked pixels before the next
// light starts.
type StencilCuller struct {
	mark   *pass.Pass
	shade  *pass.Pass
	output *target.Set
	volume *gpu.Mesh
	phase  Phase

	// Culled counts lights skipped by the frustum test during the last Run.
	Culled int
}

func NewStencilCuller(dev gpu.Device, cfg CullerConfig) (*StencilCuller, error) {
	v, i := scene.EnclosingSphere(volumeStacks, volumeSlices, 0.5)
	volume, err := gpu.NewMesh(dev, v, i, scene.VertexLayout)
	if err != nil {
		return nil, fmt.Errorf("light volume: %w", err)
	}
	c := &StencilCuller{output: cfg.Output, volume: volume}
	c.mark = &pass.Pass{
		Name:    "light-mark",
		Program: cfg.MarkProgram,
		Output:  cfg.Output,
		State:   MarkState,
		Clear:   gpu.ClearStencil,
		Draw:    pass.DrawFunc(func(dev gpu.Device, _ gpu.Program) { c.volume.Draw(dev) }),
	}
	c.shade = &pass.Pass{
		Name:    "light-shade",
		Program: cfg.ShadeProgram,
		Inputs:  cfg.Inputs,
		Output:  cfg.Output,
		State:   ShadeState,
		Draw:    cfg.Quad,
	}
	return c, nil
}

// Phase reports the current stencil phase; Disabled between Runs.
func (c *StencilCuller) Phase() Phase { return c.phase }

// VolumeRadius is the bounding radius used for frustum culling.
func VolumeRadius(radius float32) float32 {
	return VolumeScale(radius) * 0.5 * scene.EnclosingScale(volumeStacks, volumeSlices)
}

// Run clears the light target and accumulates every light in order.
// It returns the number of lights that were shaded.
func (c *StencilCuller) Run(ctx *pass.Context, lights []scene.Light, view, proj mgl32.Mat4) (int, error) {
	if !c.output.Complete() {
		return 0, fmt.Errorf("light accumulation: %w", pass.ErrTargetNotReady)
	}
	dev := ctx.Device
	ctx.States.Apply(gpu.Fullscreen)
	dev.BindFramebuffer(c.output.Framebuffer())
	dev.Viewport(c.output.Size())
	dev.Clear(gpu.ClearColor)

	frustum := NewFrustum(proj.Mul4(view))
	c.Culled = 0
	shaded := 0
	for _, l := range lights {
		if !frustum.IntersectsSphere(l.Position, VolumeRadius(l.Radius)) {
			c.Culled++
			continue
		}
		if err := c.runLight(ctx, l, view, proj); err != nil {
			c.phase = PhaseDisabled
			return shaded, err
		}
		shaded++
	}
	return shaded, nil
}

func (c *StencilCuller) runLight(ctx *pass.Context, l scene.Light, view, proj mgl32.Mat4) error {
	c.phase = PhaseMarking
	err := c.mark.Execute(ctx,
		pass.U("modelMatrix", pass.Mat4(VolumeTransform(l))),
		pass.U("viewMatrix", pass.Mat4(view)),
		pass.U("projMatrix", pass.Mat4(proj)),
	)
	if err != nil {
		return err
	}

	c.phase = PhaseShading
	viewPos := view.Mul4x1(l.Position.Vec4(1)).Vec3()
	err = c.shade.Execute(ctx,
		pass.U("lightPos", pass.Vec3(viewPos)),
		pass.U("lightColor", pass.Vec3(l.Color)),
		pass.U("lightStrength", pass.Float(Strength(l.Radius))),
	)
	if err != nil {
		return err
	}
	c.phase = PhaseDisabled
	return nil
}

func (c *StencilCuller) Release() {
	c.volume.Release()
}
