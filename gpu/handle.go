package gpu

import (
	"errors"
	"fmt"
)

// ErrAllocationFailed is returned when the driver hands back a null object.
var ErrAllocationFailed = errors.New("gpu: allocation failed")

// noCopy trips `go vet` copylocks when a Handle is copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Handle exclusively owns one GPU object. The zero ID means "not allocated".
// Ownership moves with MoveTo; a Handle must not be copied.
type Handle struct {
	_    noCopy
	dev  Device
	kind Kind
	id   uint32
}

// NewHandle returns a null handle for objects of the given kind.
func NewHandle(dev Device, kind Kind) *Handle {
	return &Handle{dev: dev, kind: kind}
}

// ID returns the object name, or zero when nothing is held.
func (h *Handle) ID() uint32 {
	if h == nil {
		return 0
	}
	return h.id
}

func (h *Handle) Kind() Kind { return h.kind }

func (h *Handle) Valid() bool { return h != nil && h.id != 0 }

func (h *Handle) String() string { return fmt.Sprintf("%s(%d)", h.kind, h.id) }

// Generate allocates a new backing object, releasing any held one first.
// On failure the handle is left null.
func (h *Handle) Generate() error {
	h.Release()
	id := h.dev.Gen(h.kind)
	if id == 0 {
		return fmt.Errorf("%w: %s", ErrAllocationFailed, h.kind)
	}
	h.id = id
	return nil
}

// Release frees the held object. Releasing a null handle is a no-op.
func (h *Handle) Release() {
	if h == nil || h.id == 0 {
		return
	}
	h.dev.Delete(h.kind, h.id)
	h.id = 0
}

// Assign takes ownership of an object created outside Generate, such as a
// linked program, releasing whatever was held.
func (h *Handle) Assign(id uint32) {
	h.Release()
	h.id = id
}

// MoveTo transfers ownership to dst, releasing whatever dst held.
// h is null afterwards.
func (h *Handle) MoveTo(dst *Handle) {
	if h == dst {
		return
	}
	dst.Release()
	dst.dev, dst.kind, dst.id = h.dev, h.kind, h.id
	h.id = 0
}
