package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights bounds the light collection.
const MaxLights = 512

var (
	ErrTooManyLights = errors.New("scene: light limit reached")
	ErrNoSuchLight   = errors.New("scene: no such light")
	ErrInvalidRadius = errors.New("scene: light radius must be positive and finite")
)

// Light is a point light with linear falloff to zero at Radius.
type Light struct {
	Position mgl32.Vec3
	Radius   float32
	Color    mgl32.Vec3
}

type editKind int

const (
	editAdd editKind = iota
	editRemove
	editSet
)

type edit struct {
	kind  editKind
	index int
	light Light
}

// Lights is an ordered light collection whose edits are staged and only
// take effect on Apply. Rendering reads a snapshot from All, so editing
// never happens while the list is being iterated.
type Lights struct {
	items   []Light
	pending []edit
}

// NewLights returns a collection holding lights, in order.
func NewLights(lights ...Light) *Lights {
	return &Lights{items: append([]Light(nil), lights...)}
}

// Add stages an append.
func (l *Lights) Add(light Light) {
	l.pending = append(l.pending, edit{kind: editAdd, light: light})
}

// Remove stages removal of the light at index i.
func (l *Lights) Remove(i int) {
	l.pending = append(l.pending, edit{kind: editRemove, index: i})
}

// RemoveLast stages removal of whatever light is last when Apply runs.
func (l *Lights) RemoveLast() {
	l.pending = append(l.pending, edit{kind: editRemove, index: -1})
}

// Set stages replacement of the light at index i.
func (l *Lights) Set(i int, light Light) {
	l.pending = append(l.pending, edit{kind: editSet, index: i, light: light})
}

// ValidRadius reports whether r is a usable light radius. NaN and +Inf
// would defeat the frustum test and the falloff.
func ValidRadius(r float32) bool {
	return r > 0 && !math.IsInf(float64(r), 1)
}

// Pending reports the number of staged edits.
func (l *Lights) Pending() int { return len(l.pending) }

// Apply performs the staged edits in order. Edits that fail are dropped and
// reported together; the others still apply.
func (l *Lights) Apply() error {
	var errs []error
	for _, e := range l.pending {
		if err := l.apply(e); err != nil {
			errs = append(errs, err)
		}
	}
	l.pending = l.pending[:0]
	return errors.Join(errs...)
}

func (l *Lights) apply(e edit) error {
	switch e.kind {
	case editAdd:
		if !ValidRadius(e.light.Radius) {
			return fmt.Errorf("add: %w (%g)", ErrInvalidRadius, e.light.Radius)
		}
		if len(l.items) >= MaxLights {
			return fmt.Errorf("add: %w (%d)", ErrTooManyLights, MaxLights)
		}
		l.items = append(l.items, e.light)
	case editRemove:
		i := e.index
		if i < 0 {
			i = len(l.items) - 1
		}
		if i < 0 || i >= len(l.items) {
			return fmt.Errorf("remove %d: %w", e.index, ErrNoSuchLight)
		}
		l.items = append(l.items[:i], l.items[i+1:]...)
	case editSet:
		if e.index < 0 || e.index >= len(l.items) {
			return fmt.Errorf("set %d: %w", e.index, ErrNoSuchLight)
		}
		if !ValidRadius(e.light.Radius) {
			return fmt.Errorf("set %d: %w (%g)", e.index, ErrInvalidRadius, e.light.Radius)
		}
		l.items[e.index] = e.light
	}
	return nil
}

// All returns a copy of the applied lights in insertion order.
func (l *Lights) All() []Light {
	return append([]Light(nil), l.items...)
}

func (l *Lights) Len() int { return len(l.items) }
