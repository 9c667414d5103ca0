package graphics

// Key is a keyboard key, independent of the window library.
type Key int

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	KeyZ
	KeyLeftShift
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEscape
	KeyV
	KeyF
	KeyR
	KeyL
	KeyK
	KeyO
	KeyP
	KeyM
	KeyB
	KeyC
	KeyT
	KeyEqual
	KeyMinus
	KeyF11
)

// Context defines the interface for a window with an OpenGL context.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	SetShouldClose()
	// EndFrame swaps buffers and polls events.
	EndFrame()
	GetFramebufferSize() (int, int)
	Time() float64
	// Resized reports whether the framebuffer size changed since the last
	// call.
	Resized() bool
	KeyDown(k Key) bool
	// CursorDelta is the cursor movement since the last call while the
	// cursor is captured, and zero otherwise.
	CursorDelta() (dx, dy float64)
	SetCursorCaptured(captured bool)
	CursorCaptured() bool
	SetVSync(on bool)
	SetFullscreen(on bool)
	Fullscreen() bool
	// RegisterKeyCallback runs f when k is pressed.
	RegisterKeyCallback(k Key, f func())
}
