package glfwcontext

import (
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"github.com/richinsley/godeferred/graphics"
	"github.com/richinsley/godeferred/logger"
)

var keyMap = map[graphics.Key]glfw.Key{
	graphics.KeyW:         glfw.KeyW,
	graphics.KeyA:         glfw.KeyA,
	graphics.KeyS:         glfw.KeyS,
	graphics.KeyD:         glfw.KeyD,
	graphics.KeyQ:         glfw.KeyQ,
	graphics.KeyE:         glfw.KeyE,
	graphics.KeyZ:         glfw.KeyZ,
	graphics.KeyLeftShift: glfw.KeyLeftShift,
	graphics.KeyUp:        glfw.KeyUp,
	graphics.KeyDown:      glfw.KeyDown,
	graphics.KeyLeft:      glfw.KeyLeft,
	graphics.KeyRight:     glfw.KeyRight,
	graphics.KeyEscape:    glfw.KeyEscape,
	graphics.KeyV:         glfw.KeyV,
	graphics.KeyF:         glfw.KeyF,
	graphics.KeyR:         glfw.KeyR,
	graphics.KeyL:         glfw.KeyL,
	graphics.KeyK:         glfw.KeyK,
	graphics.KeyO:         glfw.KeyO,
	graphics.KeyP:         glfw.KeyP,
	graphics.KeyM:         glfw.KeyM,
	graphics.KeyB:         glfw.KeyB,
	graphics.KeyC:         glfw.KeyC,
	graphics.KeyT:         glfw.KeyT,
	graphics.KeyEqual:     glfw.KeyEqual,
	graphics.KeyMinus:     glfw.KeyMinus,
	graphics.KeyF11:       glfw.KeyF11,
}

// Context is a GLFW window with a GL 4.1 core context and a combined
// 24-bit depth and 8-bit stencil default framebuffer.
type Context struct {
	window  *glfw.Window
	resized bool

	captured     bool
	lastX, lastY float64
	firstCursor  bool

	fullscreen bool
	// windowed position and size to restore after fullscreen
	winX, winY, winW, winH int

	// A map to store functions to be called on key presses.
	keyCallbacks map[glfw.Key]func()
}

var _ graphics.Context = (*Context)(nil)

// New creates and initializes a new GLFW window and returns a Context object.
// A window that is not resizable keeps its framebuffer size for the whole
// run, as recording needs.
func New(width, height int, title string, resizable bool) (*Context, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.StencilBits, 8)

	if resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		c.resized = true
		logger.Log.Debug("framebuffer resized", zap.Int("width", w), zap.Int("height", h))
	})
	return c, nil
}

// RegisterKeyCallback allows the main application to register a function to be
// called when a specific key is pressed.
func (c *Context) RegisterKeyCallback(key graphics.Key, f func()) {
	if k, ok := keyMap[key]; ok {
		c.keyCallbacks[k] = f
	}
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	if callback, ok := c.keyCallbacks[key]; ok {
		callback()
	}
}

func (c *Context) KeyDown(key graphics.Key) bool {
	k, ok := keyMap[key]
	return ok && c.window.GetKey(k) == glfw.Press
}

func (c *Context) SetCursorCaptured(captured bool) {
	c.captured = captured
	c.firstCursor = true
	mode := glfw.CursorNormal
	if captured {
		mode = glfw.CursorDisabled
	}
	c.window.SetInputMode(glfw.CursorMode, mode)
}

func (c *Context) CursorCaptured() bool { return c.captured }

func (c *Context) CursorDelta() (dx, dy float64) {
	if !c.captured {
		return 0, 0
	}
	x, y := c.window.GetCursorPos()
	if c.firstCursor {
		c.firstCursor = false
		c.lastX, c.lastY = x, y
		return 0, 0
	}
	dx, dy = x-c.lastX, y-c.lastY
	c.lastX, c.lastY = x, y
	return dx, dy
}

func (c *Context) Resized() bool {
	r := c.resized
	c.resized = false
	return r
}

func (c *Context) SetVSync(on bool) {
	if on {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
}

func (c *Context) Fullscreen() bool { return c.fullscreen }

func (c *Context) SetFullscreen(on bool) {
	if on == c.fullscreen {
		return
	}
	c.fullscreen = on
	if on {
		c.winX, c.winY = c.window.GetPos()
		c.winW, c.winH = c.window.GetSize()
		monitor := glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()
		c.window.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
		return
	}
	c.window.SetMonitor(nil, c.winX, c.winY, c.winW, c.winH, 0)
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// Shutdown destroys the window.
func (c *Context) Shutdown() {
	c.window.Destroy()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) SetShouldClose() {
	c.window.SetShouldClose(true)
}

func (c *Context) EndFrame() {
	c.window.SwapBuffers()
	glfw.PollEvents()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) Time() float64 {
	return glfw.GetTime()
}

// InitGraphics initializes the main graphics subsystem (GLFW). Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	logger.Log.Info("GLFW initialized")
	return nil
}

// TerminateGraphics shuts down the graphics subsystem. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	logger.Log.Info("GLFW terminated")
}
