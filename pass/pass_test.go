package pass_test

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/gpu/gputest"
	"github.com/richinsley/godeferred/pass"
	"github.com/richinsley/godeferred/target"
)

func newContext(dev *gputest.Device) *pass.Context {
	return &pass.Context{
		Device:       dev,
		States:       gpu.NewStateTracker(dev),
		ScreenWidth:  640,
		ScreenHeight: 480,
	}
}

func TestExecuteBindsInputsInDeclarationOrder(t *testing.T) {
	dev := gputest.New()
	ctx := newContext(dev)
	prog := gputest.NewProgram(dev)
	quad, err := pass.NewQuad(dev)
	if err != nil {
		t.Fatal(err)
	}

	out := target.NewSet(dev, "out")
	if err := out.Rebuild(100, 50, target.Layout{Attachments: []target.AttachmentSpec{{Role: target.RoleColor}}}); err != nil {
		t.Fatal(err)
	}

	texs := []uint32{41, 7, 23}
	p := &pass.Pass{
		Name:    "combine",
		Program: prog,
		Inputs: []pass.Input{
			{Name: "gPosition", Source: target.SourceFunc(func() uint32 { return texs[0] })},
			{Name: "gNormal", Source: target.SourceFunc(func() uint32 { return texs[1] })},
			{Name: "lightTex", Source: target.SourceFunc(func() uint32 { return texs[2] })},
		},
		Output: out,
		State:  gpu.Fullscreen,
		Clear:  gpu.ClearColor,
		Draw:   quad,
	}
	dev.ResetCalls()
	if err := p.Execute(ctx, pass.U("near", pass.Float(0.2)), pass.U("proj", pass.Mat4(mgl32.Ident4()))); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(dev.Draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(dev.Draws))
	}
	d := dev.Draws[0]
	for unit, want := range texs {
		if d.Units[unit] != want {
			t.Errorf("unit %d = %d, want %d", unit, d.Units[unit], want)
		}
	}
	for unit, name := range []string{"gPosition", "gNormal", "lightTex"} {
		v, ok := dev.UniformValue(prog.ID(), name)
		if !ok || v.(int32) != int32(unit) {
			t.Errorf("sampler %s = %v, want unit %d", name, v, unit)
		}
	}
	if d.Framebuffer != out.Framebuffer() {
		t.Errorf("draw framebuffer = %d, want %d", d.Framebuffer, out.Framebuffer())
	}
	if d.Viewport != [2]int{100, 50} {
		t.Errorf("viewport = %v, want [100 50]", d.Viewport)
	}
	if d.State != gpu.Fullscreen {
		t.Errorf("state = %+v, want %+v", d.State, gpu.Fullscreen)
	}
	if v, _ := dev.UniformValue(prog.ID(), "near"); v != float32(0.2) {
		t.Errorf("near = %v, want 0.2", v)
	}
	if clears := dev.CallsWithPrefix("Clear "); len(clears) != 1 || clears[0] != "Clear color" {
		t.Errorf("clears = %v, want [Clear color]", clears)
	}
}

func TestExecuteDefaultFramebuffer(t *testing.T) {
	dev := gputest.New()
	ctx := newContext(dev)
	var drawn bool
	p := &pass.Pass{
		Name:    "present",
		Program: gputest.NewProgram(dev),
		State:   gpu.Fullscreen,
		Draw: pass.DrawFunc(func(gpu.Device, gpu.Program) {
			drawn = true
		}),
	}
	if err := p.Execute(ctx); err != nil {
		t.Fatal(err)
	}
	if !drawn {
		t.Errorf("drawer not called")
	}
	if dev.Bound() != 0 {
		t.Errorf("Bound() = %d, want 0", dev.Bound())
	}
	if got := dev.CallsWithPrefix("Viewport"); len(got) != 1 || got[0] != "Viewport 640x480" {
		t.Errorf("viewport calls = %v", got)
	}
}

func TestExecuteRefusesIncompleteOutput(t *testing.T) {
	dev := gputest.New()
	ctx := newContext(dev)
	p := &pass.Pass{
		Name:    "ao",
		Program: gputest.NewProgram(dev),
		Output:  target.NewSet(dev, "ao"),
		Draw:    pass.DrawFunc(func(gpu.Device, gpu.Program) { t.Errorf("drew into unbuilt target") }),
	}
	if err := p.Execute(ctx); !errors.Is(err, pass.ErrTargetNotReady) {
		t.Errorf("Execute() error = %v, want ErrTargetNotReady", err)
	}
	if len(dev.Draws) != 0 {
		t.Errorf("draws = %d, want 0", len(dev.Draws))
	}
}

func TestUploadSkipsMissingUniforms(t *testing.T) {
	dev := gputest.New()
	dev.MissingUniforms["absent"] = true
	prog := gputest.NewProgram(dev)
	dev.UseProgram(prog.ID())

	pass.Upload(dev, prog,
		pass.U("absent", pass.Float(1)),
		pass.U("ssao", pass.Bool(true)),
		pass.U("lightColor", pass.Vec3{1, 0.5, 0}),
	)
	if _, ok := dev.UniformValue(prog.ID(), "absent"); ok {
		t.Errorf("missing uniform was uploaded")
	}
	if v, _ := dev.UniformValue(prog.ID(), "ssao"); v != int32(1) {
		t.Errorf("ssao = %v, want 1", v)
	}
	if v, _ := dev.UniformValue(prog.ID(), "lightColor"); v != (mgl32.Vec3{1, 0.5, 0}) {
		t.Errorf("lightColor = %v", v)
	}
}

func TestExecuteClearsUnderItsOwnState(t *testing.T) {
	dev := gputest.New()
	ctx := newContext(dev)
	quad, err := pass.NewQuad(dev)
	if err != nil {
		t.Fatal(err)
	}
	// A previous pass left every write mask closed.
	ctx.States.Apply(gpu.State{})

	p := &pass.Pass{
		Name:    "mark",
		Program: gputest.NewProgram(dev),
		State: gpu.State{
			DepthWrite: true,
			ColorWrite: true,
			Stencil:    gpu.Stencil{WriteMask: 0xFF},
		},
		Clear:            gpu.ClearColor | gpu.ClearDepth | gpu.ClearStencil,
		ClearAttachments: []pass.AttachmentClear{{Slot: 0, Color: [4]float32{1, 1, 1, 1}}},
		Draw:             quad,
	}
	dev.ResetCalls()
	if err := p.Execute(ctx); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(dev.Clears) != 2 {
		t.Fatalf("clears = %d, want 2", len(dev.Clears))
	}
	if masked := dev.MaskedClears(); len(masked) != 0 {
		t.Errorf("masked clears = %+v, want none", masked)
	}
}
