// Package pass executes one configured draw against a render target.
package pass

import (
	"errors"
	"fmt"

	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/target"
)

var (
	ErrNoProgram      = errors.New("pass: no program")
	ErrTargetNotReady = errors.New("pass: output target not built")
	ErrNoDrawer       = errors.New("pass: nothing to draw")
)

// Input binds a texture to the sampler uniform Name.
type Input struct {
	Name   string
	Source target.Source
}

// Drawer issues the geometry of a pass with the program already in use.
type Drawer interface {
	Draw(dev gpu.Device, prog gpu.Program)
}

// DrawFunc adapts a function to Drawer.
type DrawFunc func(dev gpu.Device, prog gpu.Program)

func (f DrawFunc) Draw(dev gpu.Device, prog gpu.Program) { f(dev, prog) }

// AttachmentClear clears one color slot to a fixed value.
type AttachmentClear struct {
	Slot  int
	Color [4]float32
}

// Context carries what every pass in a frame shares.
type Context struct {
	Device gpu.Device
	States *gpu.StateTracker
	// ScreenWidth and ScreenHeight size the default framebuffer.
	ScreenWidth, ScreenHeight int
}

// Pass is configured once and executed every frame.
//
// Inputs are bound to texture units 0..n-1 in declaration order. A nil
// Output draws to the default framebuffer.
type Pass struct {
	Name             string
	Program          gpu.Program
	Inputs           []Input
	Output           *target.Set
	State            gpu.State
	Clear            gpu.ClearMask
	ClearAttachments []AttachmentClear
	Draw             Drawer
}

// Execute binds inputs, applies state, uploads uniforms, binds the output
// and draws. Nothing is restored afterwards.
func (p *Pass) Execute(ctx *Context, uniforms ...Uniform) error {
	if p.Program == nil {
		return fmt.Errorf("%s: %w", p.Name, ErrNoProgram)
	}
	if p.Draw == nil {
		return fmt.Errorf("%s: %w", p.Name, ErrNoDrawer)
	}
	if p.Output != nil && !p.Output.Complete() {
		return fmt.Errorf("%s: %w (%s)", p.Name, ErrTargetNotReady, p.Output.Name())
	}
	dev := ctx.Device

	dev.UseProgram(p.Program.ID())
	for unit, in := range p.Inputs {
		dev.BindTexture(unit, in.Source.TextureID())
		if loc := p.Program.Location(in.Name); loc >= 0 {
			dev.Uniform1i(loc, int32(unit))
		}
	}

	ctx.States.Apply(p.State)
	Upload(dev, p.Program, uniforms...)

	if p.Output != nil {
		dev.BindFramebuffer(p.Output.Framebuffer())
		dev.Viewport(p.Output.Size())
	} else {
		dev.BindFramebuffer(0)
		dev.Viewport(ctx.ScreenWidth, ctx.ScreenHeight)
	}
	if p.Clear != 0 {
		dev.Clear(p.Clear)
	}
	// Per-slot clears override the shared clear color.
	for _, c := range p.ClearAttachments {
		dev.ClearAttachment(c.Slot, c.Color)
	}

	p.Draw.Draw(dev, p.Program)
	return nil
}
