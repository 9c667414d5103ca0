// Package gputest provides an in-memory gpu.Device for tests.
package gputest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/godeferred/gpu"
)

// Incomplete statuses reported by FramebufferStatus.
const (
	StatusIncompleteAttachment gpu.Status = 0x8CD6
	StatusMissingAttachment    gpu.Status = 0x8CD7
	StatusIncompleteDimensions gpu.Status = 0x8CD9
	StatusUnsupported          gpu.Status = 0x8CDD
)

// Framebuffer is the attachment state of one fake framebuffer.
type Framebuffer struct {
	Colors       map[int]uint32
	DepthStencil uint32
	DrawBuffers  int
}

// Draw is one recorded draw call with the state it ran under.
type Draw struct {
	Framebuffer uint32
	Program     uint32
	VAO         uint32
	Count       int
	Indexed     bool
	State       gpu.State
	Viewport    [2]int
	// Units maps texture unit to bound texture at draw time.
	Units map[int]uint32
}

// Clear is one recorded Clear or ClearAttachment together with the state
// it was issued under.
type Clear struct {
	Framebuffer uint32
	Mask        gpu.ClearMask
	// Slot is the attachment of a ClearAttachment, or -1 for Clear.
	Slot  int
	State gpu.State
}

// Masked returns the requested buffers that the write masks left
// untouched. GL clears honor the color, depth and stencil write masks.
func (c Clear) Masked() gpu.ClearMask {
	var m gpu.ClearMask
	if c.Mask&gpu.ClearColor != 0 && !c.State.ColorWrite {
		m |= gpu.ClearColor
	}
	if c.Mask&gpu.ClearDepth != 0 && !c.State.DepthWrite {
		m |= gpu.ClearDepth
	}
	if c.Mask&gpu.ClearStencil != 0 && c.State.Stencil.WriteMask&0xFF != 0xFF {
		m |= gpu.ClearStencil
	}
	return m
}

// Device records everything issued to it and keeps allocation counts.
// The zero value is not usable; call New.
type Device struct {
	next map[gpu.Kind]uint32
	live map[gpu.Kind]map[uint32]bool

	textures      map[uint32]gpu.TextureDesc
	renderbuffers map[uint32][2]int
	framebuffers  map[uint32]*Framebuffer
	meshes        map[uint32]int

	bound    uint32
	viewport [2]int
	state    gpu.State
	program  uint32
	units    map[int]uint32

	programs    map[uint32]map[string]int32
	uniforms    map[uint32]map[int32]any
	nextProgram uint32

	statusChecks int

	// Allocations counts every successful Gen.
	Allocations int
	// DoubleDeletes counts deletes of names that were not live.
	DoubleDeletes int
	// FailGen makes Gen return zero for the listed kinds.
	FailGen map[gpu.Kind]bool
	// FailStatusAt makes the n-th FramebufferStatus call (1-based) report
	// an incomplete framebuffer. Zero disables.
	FailStatusAt int
	// FailCompile makes CompileProgram fail when a source contains a key;
	// the value is returned as the info log.
	FailCompile map[string]string
	// Errors are returned by CheckError one per call, oldest first.
	Errors []error
	// MissingUniforms are reported as -1 by UniformLocation.
	MissingUniforms map[string]bool

	Calls  []string
	Draws  []Draw
	Clears []Clear
}

func New() *Device {
	return &Device{
		next:            map[gpu.Kind]uint32{},
		live:            map[gpu.Kind]map[uint32]bool{},
		textures:        map[uint32]gpu.TextureDesc{},
		renderbuffers:   map[uint32][2]int{},
		framebuffers:    map[uint32]*Framebuffer{},
		meshes:          map[uint32]int{},
		units:           map[int]uint32{},
		programs:        map[uint32]map[string]int32{},
		uniforms:        map[uint32]map[int32]any{},
		FailGen:         map[gpu.Kind]bool{},
		FailCompile:     map[string]string{},
		MissingUniforms: map[string]bool{},
	}
}

func (d *Device) record(format string, args ...any) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

// ResetCalls clears the call and draw logs.
func (d *Device) ResetCalls() {
	d.Calls = nil
	d.Draws = nil
	d.Clears = nil
}

// MaskedClears returns the clears that left part of their target as it was.
func (d *Device) MaskedClears() []Clear {
	var out []Clear
	for _, c := range d.Clears {
		if c.Masked() != 0 {
			out = append(out, c)
		}
	}
	return out
}

// CallsWithPrefix returns the recorded calls starting with any prefix.
func (d *Device) CallsWithPrefix(prefixes ...string) []string {
	var out []string
	for _, c := range d.Calls {
		for _, p := range prefixes {
			if strings.HasPrefix(c, p) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Live returns the number of live objects of a kind.
func (d *Device) Live(kind gpu.Kind) int {
	return len(d.live[kind])
}

// LiveTotal returns the number of live objects of every kind.
func (d *Device) LiveTotal() int {
	n := 0
	for _, m := range d.live {
		n += len(m)
	}
	return n
}

func (d *Device) IsLive(kind gpu.Kind, id uint32) bool {
	return d.live[kind][id]
}

func (d *Device) Texture(id uint32) (gpu.TextureDesc, bool) {
	t, ok := d.textures[id]
	return t, ok
}

func (d *Device) Renderbuffer(id uint32) (w, h int, ok bool) {
	s, ok := d.renderbuffers[id]
	return s[0], s[1], ok
}

func (d *Device) Framebuffer(id uint32) (*Framebuffer, bool) {
	fb, ok := d.framebuffers[id]
	return fb, ok
}

// StatusChecks returns how many times FramebufferStatus was called.
func (d *Device) StatusChecks() int { return d.statusChecks }

// Bound returns the currently bound draw framebuffer.
func (d *Device) Bound() uint32 { return d.bound }

// State returns the graphics state as last set.
func (d *Device) State() gpu.State { return d.state }

// UniformValue returns the last value uploaded to a named uniform.
func (d *Device) UniformValue(program uint32, name string) (any, bool) {
	loc, ok := d.programs[program][name]
	if !ok {
		return nil, false
	}
	v, ok := d.uniforms[program][loc]
	return v, ok
}

func (d *Device) Gen(kind gpu.Kind) uint32 {
	if d.FailGen[kind] {
		d.record("Gen %s failed", kind)
		return 0
	}
	d.next[kind]++
	id := d.next[kind]
	if d.live[kind] == nil {
		d.live[kind] = map[uint32]bool{}
	}
	d.live[kind][id] = true
	d.Allocations++
	if kind == gpu.KindFramebuffer {
		d.framebuffers[id] = &Framebuffer{Colors: map[int]uint32{}}
	}
	d.record("Gen %s %d", kind, id)
	return id
}

func (d *Device) Delete(kind gpu.Kind, id uint32) {
	if !d.live[kind][id] {
		d.DoubleDeletes++
		return
	}
	delete(d.live[kind], id)
	switch kind {
	case gpu.KindTexture:
		delete(d.textures, id)
	case gpu.KindRenderbuffer:
		delete(d.renderbuffers, id)
	case gpu.KindFramebuffer:
		delete(d.framebuffers, id)
		if d.bound == id {
			d.bound = 0
		}
	case gpu.KindVertexArray:
		delete(d.meshes, id)
	case gpu.KindProgram:
		delete(d.programs, id)
		delete(d.uniforms, id)
	}
	d.record("Delete %s %d", kind, id)
}

func (d *Device) TexImage(tex uint32, desc gpu.TextureDesc) {
	d.textures[tex] = desc
	d.record("TexImage %d %dx%d %s", tex, desc.Width, desc.Height, desc.Format)
}

func (d *Device) RenderbufferStorage(rb uint32, width, height int) {
	d.renderbuffers[rb] = [2]int{width, height}
	d.record("RenderbufferStorage %d %dx%d", rb, width, height)
}

func (d *Device) BindFramebuffer(fb uint32) {
	d.bound = fb
	d.record("BindFramebuffer %d", fb)
}

func (d *Device) current() *Framebuffer {
	return d.framebuffers[d.bound]
}

func (d *Device) AttachColor(slot int, tex uint32) {
	if fb := d.current(); fb != nil {
		fb.Colors[slot] = tex
	}
	d.record("AttachColor %d %d", slot, tex)
}

func (d *Device) AttachDepthStencil(rb uint32) {
	if fb := d.current(); fb != nil {
		fb.DepthStencil = rb
	}
	d.record("AttachDepthStencil %d", rb)
}

func (d *Device) DrawBuffers(count int) {
	if fb := d.current(); fb != nil {
		fb.DrawBuffers = count
	}
	d.record("DrawBuffers %d", count)
}

// FramebufferStatus applies the completeness rules that matter here:
// every attachment is a live object and all share one size.
func (d *Device) FramebufferStatus() gpu.Status {
	d.statusChecks++
	d.record("FramebufferStatus")
	if d.FailStatusAt > 0 && d.statusChecks == d.FailStatusAt {
		return StatusUnsupported
	}
	fb := d.current()
	if fb == nil {
		return StatusUnsupported
	}
	if len(fb.Colors) == 0 && fb.DepthStencil == 0 {
		return StatusMissingAttachment
	}
	w, h := -1, -1
	same := func(sw, sh int) bool {
		if w < 0 {
			w, h = sw, sh
			return true
		}
		return sw == w && sh == h
	}
	for _, tex := range fb.Colors {
		t, ok := d.textures[tex]
		if !ok || !d.live[gpu.KindTexture][tex] {
			return StatusIncompleteAttachment
		}
		if !same(t.Width, t.Height) {
			return StatusIncompleteDimensions
		}
	}
	if fb.DepthStencil != 0 {
		s, ok := d.renderbuffers[fb.DepthStencil]
		if !ok {
			return StatusIncompleteAttachment
		}
		if !same(s[0], s[1]) {
			return StatusIncompleteDimensions
		}
	}
	if fb.DrawBuffers > len(fb.Colors) {
		return StatusIncompleteAttachment
	}
	return gpu.StatusComplete
}

func (d *Device) Viewport(width, height int) {
	d.viewport = [2]int{width, height}
	d.record("Viewport %dx%d", width, height)
}

func (d *Device) Clear(mask gpu.ClearMask) {
	var parts []string
	if mask&gpu.ClearColor != 0 {
		parts = append(parts, "color")
	}
	if mask&gpu.ClearDepth != 0 {
		parts = append(parts, "depth")
	}
	if mask&gpu.ClearStencil != 0 {
		parts = append(parts, "stencil")
	}
	d.Clears = append(d.Clears, Clear{Framebuffer: d.bound, Mask: mask, Slot: -1, State: d.state})
	d.record("Clear %s", strings.Join(parts, "|"))
}

func (d *Device) ClearAttachment(slot int, rgba [4]float32) {
	d.Clears = append(d.Clears, Clear{Framebuffer: d.bound, Mask: gpu.ClearColor, Slot: slot, State: d.state})
	d.record("ClearAttachment %d %v", slot, rgba)
}

func (d *Device) SetCullFace(enabled bool) {
	d.state.CullFace = enabled
	d.record("SetCullFace %t", enabled)
}

func (d *Device) SetDepthTest(enabled bool) {
	d.state.DepthTest = enabled
	d.record("SetDepthTest %t", enabled)
}

func (d *Device) SetDepthWrite(enabled bool) {
	d.state.DepthWrite = enabled
	d.record("SetDepthWrite %t", enabled)
}

func (d *Device) SetColorWrite(enabled bool) {
	d.state.ColorWrite = enabled
	d.record("SetColorWrite %t", enabled)
}

func (d *Device) SetBlend(mode gpu.Blend) {
	d.state.Blend = mode
	d.record("SetBlend %d", mode)
}

func (d *Device) SetStencil(s gpu.Stencil) {
	d.state.Stencil = s
	d.record("SetStencil %t", s.Enabled)
}

// ErrCompile is wrapped by CompileProgram failures.
var ErrCompile = errors.New("gputest: compile failed")

func (d *Device) CompileProgram(vertex, fragment string) (uint32, error) {
	for key, log := range d.FailCompile {
		if strings.Contains(vertex, key) || strings.Contains(fragment, key) {
			d.record("CompileProgram failed")
			return 0, fmt.Errorf("%w: %s", ErrCompile, log)
		}
	}
	id := d.Gen(gpu.KindProgram)
	if id == 0 {
		return 0, ErrCompile
	}
	d.programs[id] = map[string]int32{}
	d.uniforms[id] = map[int32]any{}
	return id, nil
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	if d.MissingUniforms[name] {
		return -1
	}
	locs, ok := d.programs[program]
	if !ok {
		return -1
	}
	if loc, ok := locs[name]; ok {
		return loc
	}
	loc := int32(len(locs))
	locs[name] = loc
	return loc
}

func (d *Device) UseProgram(program uint32) {
	d.program = program
	d.record("UseProgram %d", program)
}

func (d *Device) BindTexture(unit int, tex uint32) {
	d.units[unit] = tex
	d.record("BindTexture %d %d", unit, tex)
}

func (d *Device) setUniform(loc int32, v any) {
	if loc < 0 {
		return
	}
	if u, ok := d.uniforms[d.program]; ok {
		u[loc] = v
	}
}

func (d *Device) Uniform1i(loc int32, v int32)           { d.setUniform(loc, v) }
func (d *Device) Uniform1f(loc int32, v float32)         { d.setUniform(loc, v) }
func (d *Device) Uniform3f(loc int32, v mgl32.Vec3)      { d.setUniform(loc, v) }
func (d *Device) Uniform3fv(loc int32, v []mgl32.Vec3)   { d.setUniform(loc, v) }
func (d *Device) Uniform1fv(loc int32, v []float32)      { d.setUniform(loc, v) }
func (d *Device) UniformMatrix4(loc int32, m mgl32.Mat4) { d.setUniform(loc, m) }

func (d *Device) UploadMesh(vao, vbo, ebo uint32, vertices []float32, indices []uint32, layout []int) {
	d.meshes[vao] = len(vertices)
	d.record("UploadMesh %d", vao)
}

func (d *Device) draw(vao uint32, count int, indexed bool) {
	units := make(map[int]uint32, len(d.units))
	for k, v := range d.units {
		units[k] = v
	}
	d.Draws = append(d.Draws, Draw{
		Framebuffer: d.bound,
		Program:     d.program,
		VAO:         vao,
		Count:       count,
		Indexed:     indexed,
		State:       d.state,
		Viewport:    d.viewport,
		Units:       units,
	})
}

func (d *Device) DrawIndexed(vao uint32, count int) {
	d.draw(vao, count, true)
	d.record("DrawIndexed %d %d", vao, count)
}

func (d *Device) DrawStrip(vao uint32, count int) {
	d.draw(vao, count, false)
	d.record("DrawStrip %d %d", vao, count)
}

func (d *Device) ReadPixels(width, height int, dst []byte) {
	for i := range dst {
		dst[i] = byte(i)
	}
	d.record("ReadPixels %dx%d", width, height)
}

func (d *Device) CheckError() error {
	if len(d.Errors) == 0 {
		return nil
	}
	err := d.Errors[0]
	d.Errors = d.Errors[1:]
	return err
}

// Program is a fixed gpu.Program for tests that don't compile anything.
type Program struct {
	Dev  *Device
	Name uint32
}

// NewProgram registers a program object on dev.
func NewProgram(dev *Device) *Program {
	id, _ := dev.CompileProgram("", "")
	return &Program{Dev: dev, Name: id}
}

func (p *Program) ID() uint32 { return p.Name }

func (p *Program) Location(name string) int32 {
	return p.Dev.UniformLocation(p.Name, name)
}
