package gpu

import "github.com/go-gl/mathgl/mgl32"

// Kind identifies the class of a GPU object.
type Kind int

const (
	KindTexture Kind = iota
	KindFramebuffer
	KindRenderbuffer
	KindBuffer
	KindVertexArray
	KindProgram
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindFramebuffer:
		return "framebuffer"
	case KindRenderbuffer:
		return "renderbuffer"
	case KindBuffer:
		return "buffer"
	case KindVertexArray:
		return "vertex array"
	case KindProgram:
		return "program"
	default:
		return "unknown"
	}
}

// Format is the pixel format of a texture attachment.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA16F
	FormatRGBA32F
	FormatR16F
	FormatRGB32F
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGBA16F:
		return "RGBA16F"
	case FormatRGBA32F:
		return "RGBA32F"
	case FormatR16F:
		return "R16F"
	case FormatRGB32F:
		return "RGB32F"
	default:
		return "unknown"
	}
}

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type Wrap int

const (
	WrapClamp Wrap = iota
	WrapRepeat
)

// ClearMask selects the buffers touched by Device.Clear.
type ClearMask uint8

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
	ClearStencil
)

// Status is a framebuffer completeness status as reported by the driver.
type Status uint32

// StatusComplete is the only status accepted by target rebuilds.
const StatusComplete Status = 0x8CD5

// TextureDesc describes the storage of a 2D texture.
type TextureDesc struct {
	Width, Height int
	Format        Format
	Filter        Filter
	Wrap          Wrap
	// Data is optional initial contents, tightly packed float components.
	Data []float32
}

// Device is the command surface the pipeline issues GPU work through.
// Implementations are not safe for concurrent use; all calls come from the
// thread that owns the graphics context.
type Device interface {
	// Gen allocates a new object of the given kind. A zero return means the
	// driver could not allocate.
	Gen(kind Kind) uint32
	Delete(kind Kind, id uint32)

	TexImage(tex uint32, desc TextureDesc)
	RenderbufferStorage(rb uint32, width, height int)

	// BindFramebuffer binds fb for drawing. Zero is the default framebuffer.
	BindFramebuffer(fb uint32)
	AttachColor(slot int, tex uint32)
	AttachDepthStencil(rb uint32)
	DrawBuffers(count int)
	FramebufferStatus() Status

	Viewport(width, height int)
	Clear(mask ClearMask)
	ClearAttachment(slot int, rgba [4]float32)

	SetCullFace(enabled bool)
	SetDepthTest(enabled bool)
	SetDepthWrite(enabled bool)
	SetColorWrite(enabled bool)
	SetBlend(mode Blend)
	SetStencil(s Stencil)

	CompileProgram(vertex, fragment string) (uint32, error)
	UniformLocation(program uint32, name string) int32
	UseProgram(program uint32)
	BindTexture(unit int, tex uint32)

	Uniform1i(loc int32, v int32)
	Uniform1f(loc int32, v float32)
	Uniform3f(loc int32, v mgl32.Vec3)
	Uniform3fv(loc int32, v []mgl32.Vec3)
	Uniform1fv(loc int32, v []float32)
	UniformMatrix4(loc int32, m mgl32.Mat4)

	// UploadMesh fills vbo/ebo and records the attribute layout in vao.
	// layout lists the component count of each consecutive float attribute.
	UploadMesh(vao, vbo, ebo uint32, vertices []float32, indices []uint32, layout []int)
	DrawIndexed(vao uint32, count int)
	DrawStrip(vao uint32, count int)

	ReadPixels(width, height int, dst []byte)
	CheckError() error
}

// Program is a linked shader program plus its uniform name lookup.
type Program interface {
	ID() uint32
	// Location returns the uniform location for name, or -1 when the program
	// has no such active uniform.
	Location(name string) int32
}
