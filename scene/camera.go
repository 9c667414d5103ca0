package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	moveSpeed   = 3.2
	boostFactor = 5
	slowFactor  = 0.45
	minPitch    = 0.01
	maxPitch    = math.Pi - 0.01
)

// Movement is one frame of camera input.
type Movement struct {
	Forward, Back, Left, Right, Up, Down bool

	Boost, Slow bool

	// LookX and LookY are the rotation deltas in radians.
	LookX, LookY float32
}

// Camera is a free-flying perspective camera. Pitch is the polar angle from
// +Y, kept inside (0, pi) so the view never flips.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	FOV      float32
	Near     float32
	Far      float32
}

func NewCamera() *Camera {
	return &Camera{
		Position: mgl32.Vec3{0, 2, 8},
		Yaw:      -math.Pi / 2,
		Pitch:    math.Pi / 2,
		FOV:      70,
		Near:     0.2,
		Far:      10000,
	}
}

// Direction is the unit view direction.
func (c *Camera) Direction() mgl32.Vec3 {
	sp, cp := math.Sincos(float64(c.Pitch))
	sy, cy := math.Sincos(float64(c.Yaw))
	return mgl32.Vec3{float32(sp * cy), float32(cp), float32(sp * sy)}
}

func (c *Camera) Update(dt float32, m Movement) {
	c.Yaw += m.LookX
	c.Pitch = mgl32.Clamp(c.Pitch+m.LookY, minPitch, maxPitch)

	speed := moveSpeed * dt
	if m.Boost {
		speed *= boostFactor
	}
	if m.Slow {
		speed *= slowFactor
	}

	dir := c.Direction()
	up := mgl32.Vec3{0, 1, 0}
	right := dir.Cross(up).Normalize()
	var move mgl32.Vec3
	if m.Forward {
		move = move.Add(dir)
	}
	if m.Back {
		move = move.Sub(dir)
	}
	if m.Right {
		move = move.Add(right)
	}
	if m.Left {
		move = move.Sub(right)
	}
	if m.Up {
		move = move.Add(up)
	}
	if m.Down {
		move = move.Sub(up)
	}
	if move.Len() > 0 {
		c.Position = c.Position.Add(move.Normalize().Mul(speed))
	}
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Direction()), mgl32.Vec3{0, 1, 0})
}

func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// LightAhead returns a small white light placed two units in front of the
// camera.
func (c *Camera) LightAhead() Light {
	return Light{
		Position: c.Position.Add(c.Direction().Mul(2)),
		Radius:   2,
		Color:    mgl32.Vec3{1, 1, 1},
	}
}
