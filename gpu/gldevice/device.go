// Package gldevice implements gpu.Device on an OpenGL 4.1 core context.
package gldevice

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/logger"
)

var glInitOnce sync.Once

// Device issues commands to the GL context current on the calling thread.
type Device struct{}

// New loads the GL entry points. The context must already be current.
func New() (*Device, error) {
	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}
	logger.Log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))
	return &Device{}, nil
}

func (d *Device) Gen(kind gpu.Kind) uint32 {
	var id uint32
	switch kind {
	case gpu.KindTexture:
		gl.GenTextures(1, &id)
	case gpu.KindFramebuffer:
		gl.GenFramebuffers(1, &id)
	case gpu.KindRenderbuffer:
		gl.GenRenderbuffers(1, &id)
	case gpu.KindBuffer:
		gl.GenBuffers(1, &id)
	case gpu.KindVertexArray:
		gl.GenVertexArrays(1, &id)
	case gpu.KindProgram:
		id = gl.CreateProgram()
	}
	return id
}

func (d *Device) Delete(kind gpu.Kind, id uint32) {
	switch kind {
	case gpu.KindTexture:
		gl.DeleteTextures(1, &id)
	case gpu.KindFramebuffer:
		gl.DeleteFramebuffers(1, &id)
	case gpu.KindRenderbuffer:
		gl.DeleteRenderbuffers(1, &id)
	case gpu.KindBuffer:
		gl.DeleteBuffers(1, &id)
	case gpu.KindVertexArray:
		gl.DeleteVertexArrays(1, &id)
	case gpu.KindProgram:
		gl.DeleteProgram(id)
	}
}

func formatOf(f gpu.Format) (internal int32, format, xtype uint32) {
	switch f {
	case gpu.FormatRGBA16F:
		return gl.RGBA16F, gl.RGBA, gl.FLOAT
	case gpu.FormatRGBA32F:
		return gl.RGBA32F, gl.RGBA, gl.FLOAT
	case gpu.FormatR16F:
		return gl.R16F, gl.RED, gl.FLOAT
	case gpu.FormatRGB32F:
		return gl.RGB32F, gl.RGB, gl.FLOAT
	default:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
	}
}

func (d *Device) TexImage(tex uint32, desc gpu.TextureDesc) {
	internal, format, xtype := formatOf(desc.Format)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	var pixels unsafe.Pointer
	if len(desc.Data) > 0 {
		pixels = gl.Ptr(desc.Data)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height), 0, format, xtype, pixels)

	filter := int32(gl.NEAREST)
	if desc.Filter == gpu.FilterLinear {
		filter = gl.LINEAR
	}
	wrap := int32(gl.CLAMP_TO_EDGE)
	if desc.Wrap == gpu.WrapRepeat {
		wrap = gl.REPEAT
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *Device) RenderbufferStorage(rb uint32, width, height int) {
	gl.BindRenderbuffer(gl.RENDERBUFFER, rb)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, int32(width), int32(height))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
}

func (d *Device) BindFramebuffer(fb uint32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb)
}

func (d *Device) AttachColor(slot int, tex uint32) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(slot), gl.TEXTURE_2D, tex, 0)
}

func (d *Device) AttachDepthStencil(rb uint32) {
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, rb)
}

func (d *Device) DrawBuffers(count int) {
	if count == 0 {
		gl.DrawBuffer(gl.NONE)
		return
	}
	buffers := make([]uint32, count)
	for i := range buffers {
		buffers[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	gl.DrawBuffers(int32(count), &buffers[0])
}

func (d *Device) FramebufferStatus() gpu.Status {
	return gpu.Status(gl.CheckFramebufferStatus(gl.FRAMEBUFFER))
}

func (d *Device) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (d *Device) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ClearColor != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.ClearDepth != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if mask&gpu.ClearStencil != 0 {
		bits |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (d *Device) ClearAttachment(slot int, rgba [4]float32) {
	gl.ClearBufferfv(gl.COLOR, int32(slot), &rgba[0])
}

func toggle(capability uint32, enabled bool) {
	if enabled {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

func (d *Device) SetCullFace(enabled bool) { toggle(gl.CULL_FACE, enabled) }

func (d *Device) SetDepthTest(enabled bool) { toggle(gl.DEPTH_TEST, enabled) }

func (d *Device) SetDepthWrite(enabled bool) { gl.DepthMask(enabled) }

func (d *Device) SetColorWrite(enabled bool) {
	gl.ColorMask(enabled, enabled, enabled, enabled)
}

func (d *Device) SetBlend(mode gpu.Blend) {
	if mode == gpu.BlendNone {
		gl.Disable(gl.BLEND)
		return
	}
	gl.Enable(gl.BLEND)
	gl.BlendEquation(gl.FUNC_ADD)
	gl.BlendFunc(gl.ONE, gl.ONE)
}

func compareOf(f gpu.CompareFunc) uint32 {
	switch f {
	case gpu.CompareNotEqual:
		return gl.NOTEQUAL
	case gpu.CompareEqual:
		return gl.EQUAL
	case gpu.CompareNever:
		return gl.NEVER
	default:
		return gl.ALWAYS
	}
}

func stencilOpOf(op gpu.StencilOp) uint32 {
	switch op {
	case gpu.StencilZero:
		return gl.ZERO
	case gpu.StencilIncrWrap:
		return gl.INCR_WRAP
	case gpu.StencilDecrWrap:
		return gl.DECR_WRAP
	default:
		return gl.KEEP
	}
}

// SetStencil always applies the write mask, since it also governs stencil
// clears while the test is disabled.
func (d *Device) SetStencil(s gpu.Stencil) {
	gl.StencilMask(s.WriteMask)
	toggle(gl.STENCIL_TEST, s.Enabled)
	if !s.Enabled {
		return
	}
	gl.StencilFunc(compareOf(s.Func), s.Ref, s.ReadMask)
	gl.StencilOpSeparate(gl.FRONT, stencilOpOf(s.Front.StencilFail), stencilOpOf(s.Front.DepthFail), stencilOpOf(s.Front.DepthPass))
	gl.StencilOpSeparate(gl.BACK, stencilOpOf(s.Back.StencilFail), stencilOpOf(s.Back.DepthFail), stencilOpOf(s.Back.DepthPass))
}

func (d *Device) CompileProgram(vertex, fragment string) (uint32, error) {
	vertexShader, err := compileShader(vertex, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	defer gl.DeleteShader(vertexShader)
	fragmentShader, err := compileShader(fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment: %w", err)
	}
	defer gl.DeleteShader(fragmentShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", log)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) UseProgram(program uint32) {
	gl.UseProgram(program)
}

func (d *Device) BindTexture(unit int, tex uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, tex)
}

func (d *Device) Uniform1i(loc int32, v int32) { gl.Uniform1i(loc, v) }

func (d *Device) Uniform1f(loc int32, v float32) { gl.Uniform1f(loc, v) }

func (d *Device) Uniform3f(loc int32, v mgl32.Vec3) { gl.Uniform3f(loc, v[0], v[1], v[2]) }

func (d *Device) Uniform3fv(loc int32, v []mgl32.Vec3) {
	if len(v) == 0 {
		return
	}
	gl.Uniform3fv(loc, int32(len(v)), &v[0][0])
}

func (d *Device) Uniform1fv(loc int32, v []float32) {
	if len(v) == 0 {
		return
	}
	gl.Uniform1fv(loc, int32(len(v)), &v[0])
}

func (d *Device) UniformMatrix4(loc int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

func (d *Device) UploadMesh(vao, vbo, ebo uint32, vertices []float32, indices []uint32, layout []int) {
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	if ebo != 0 && len(indices) > 0 {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}
	stride := 0
	for _, n := range layout {
		stride += n
	}
	offset := 0
	for i, n := range layout {
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointer(uint32(i), int32(n), gl.FLOAT, false, int32(stride*4), gl.PtrOffset(offset*4))
		offset += n
	}
	gl.BindVertexArray(0)
}

func (d *Device) DrawIndexed(vao uint32, count int) {
	gl.BindVertexArray(vao)
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, gl.PtrOffset(0))
	gl.BindVertexArray(0)
}

func (d *Device) DrawStrip(vao uint32, count int) {
	gl.BindVertexArray(vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, int32(count))
	gl.BindVertexArray(0)
}

func (d *Device) ReadPixels(width, height int, dst []byte) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(dst))
}

func (d *Device) CheckError() error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%04x", code)
	}
	return nil
}
