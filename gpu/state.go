package gpu

// Blend is the color blending mode of a pass.
type Blend int

const (
	BlendNone Blend = iota
	// BlendAdditive is src*ONE + dst*ONE.
	BlendAdditive
)

type CompareFunc int

const (
	CompareAlways CompareFunc = iota
	CompareNotEqual
	CompareEqual
	CompareNever
)

type StencilOp int

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilIncrWrap
	StencilDecrWrap
)

// StencilOps are the actions for stencil fail, depth fail and depth pass.
type StencilOps struct {
	StencilFail StencilOp
	DepthFail   StencilOp
	DepthPass   StencilOp
}

// Stencil is the full stencil configuration applied by a pass.
type Stencil struct {
	Enabled   bool
	Func      CompareFunc
	Ref       int32
	ReadMask  uint32
	WriteMask uint32
	Front     StencilOps
	Back      StencilOps
}

// State is the fixed graphics-state tuple of a pass.
type State struct {
	CullFace   bool
	DepthTest  bool
	DepthWrite bool
	// ColorWrite false masks all color channels.
	ColorWrite bool
	Blend      Blend
	Stencil    Stencil
}

// Opaque is the state of an ordinary depth-tested geometry pass.
var Opaque = State{CullFace: true, DepthTest: true, DepthWrite: true, ColorWrite: true}

// Fullscreen is the state of a screen-space pass drawing a quad.
var Fullscreen = State{ColorWrite: true}

// StateTracker remembers the last applied state and only forwards the
// fields that change. It belongs to whoever sequences passes; passes never
// restore state themselves.
type StateTracker struct {
	dev   Device
	cur   State
	valid bool
}

func NewStateTracker(dev Device) *StateTracker {
	return &StateTracker{dev: dev}
}

// Invalidate forgets the cached state so the next Apply issues every field.
func (t *StateTracker) Invalidate() {
	t.valid = false
}

func (t *StateTracker) Apply(s State) {
	force := !t.valid
	if force || s.CullFace != t.cur.CullFace {
		t.dev.SetCullFace(s.CullFace)
	}
	if force || s.DepthTest != t.cur.DepthTest {
		t.dev.SetDepthTest(s.DepthTest)
	}
	if force || s.DepthWrite != t.cur.DepthWrite {
		t.dev.SetDepthWrite(s.DepthWrite)
	}
	if force || s.ColorWrite != t.cur.ColorWrite {
		t.dev.SetColorWrite(s.ColorWrite)
	}
	if force || s.Blend != t.cur.Blend {
		t.dev.SetBlend(s.Blend)
	}
	if force || s.Stencil != t.cur.Stencil {
		t.dev.SetStencil(s.Stencil)
	}
	t.cur = s
	t.valid = true
}

// Current returns the last applied state.
func (t *StateTracker) Current() State {
	return t.cur
}
