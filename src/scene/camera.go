// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package scene

import (
	"github.com/chewxy/math32"
	"github.com/devblok/vkscene/src/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Camera defaults
const (
	DefaultSpeed      = 0.05
	SlowSpeed         = 0.01
	DefaultMouseSpeed = 0.005
	DefaultFov        = 70
	DefaultNear       = 0.1
	DefaultFar        = 100
)

// NewCamera creates a fly camera at (0, -5, 0) looking down +Y with +Z up.
func NewCamera() *Camera {
	return &Camera{
		Fov:        DefaultFov,
		Near:       DefaultNear,
		Far:        DefaultFar,
		MouseSpeed: DefaultMouseSpeed,
		speed:      DefaultSpeed,
		position:   glm.Vec3{0, -5, 0},
		up:         glm.Vec3{0, 0, 1},
		right:      glm.Vec3{1, 0, 0},
		direction:  glm.Vec3{0, 1, 0},
	}
}

// Camera is moved with WASD and turned by cursor movement. Input only
// accumulates, Update integrates one fixed step.
type Camera struct {
	// Fov is the vertical field of view in degrees.
	Fov        float32
	Near, Far  float32
	MouseSpeed float32

	speed    float32
	velocity glm.Vec2
	keys     map[gfx.Key]bool

	yawPitch glm.Vec2
	dxdy     glm.Vec2
	cursor   glm.Vec2
	tracking bool

	position  glm.Vec3
	up        glm.Vec3
	right     glm.Vec3
	direction glm.Vec3
}

// Position is the camera position in world space.
func (c *Camera) Position() glm.Vec3 {
	return c.position
}

// Direction is the unit view direction.
func (c *Camera) Direction() glm.Vec3 {
	return c.direction
}

// Up is the unit up vector.
func (c *Camera) Up() glm.Vec3 {
	return c.up
}

// Speed is the distance moved per update step.
func (c *Camera) Speed() float32 {
	return c.speed
}

// Key reacts to movement keys. Shift toggles between the default and
// the slow speed on press.
func (c *Camera) Key(k gfx.Key, pressed bool) {
	if c.keys == nil {
		c.keys = make(map[gfx.Key]bool)
	}
	if k == gfx.KeyShift && pressed && !c.keys[k] {
		if c.speed == DefaultSpeed {
			c.speed = SlowSpeed
		} else {
			c.speed = DefaultSpeed
		}
	}
	c.keys[k] = pressed

	c.velocity = glm.Vec2{}
	if c.keys[gfx.KeyW] {
		c.velocity[0]++
	}
	if c.keys[gfx.KeyS] {
		c.velocity[0]--
	}
	if c.keys[gfx.KeyD] {
		c.velocity[1]++
	}
	if c.keys[gfx.KeyA] {
		c.velocity[1]--
	}
}

// CursorMoved accumulates the delta from the last reported position.
func (c *Camera) CursorMoved(x, y float32) {
	pos := glm.Vec2{x, y}
	if c.tracking {
		c.dxdy = c.dxdy.Add(pos.Sub(c.cursor))
	}
	c.cursor, c.tracking = pos, true
}

// Update moves and turns the camera by one step.
func (c *Camera) Update() {
	c.position = c.position.
		Add(c.direction.Mul(c.velocity[0] * c.speed)).
		Add(c.right.Mul(c.velocity[1] * c.speed))

	c.yawPitch = c.yawPitch.Add(c.dxdy.Mul(c.MouseSpeed))
	c.dxdy = glm.Vec2{}
	c.yawPitch[1] = foldPitch(c.yawPitch[1])

	yaw, pitch := c.yawPitch[0], c.yawPitch[1]
	c.direction = glm.Vec3{
		math32.Cos(pitch) * math32.Sin(yaw),
		math32.Cos(pitch) * math32.Cos(yaw),
		math32.Sin(-pitch),
	}

	temp := c.direction
	temp[2] = temp[2]*-0.5 + 0.5
	multiplier := float32(1)
	if temp[2] < c.direction[2] {
		multiplier = -1
	}
	c.right = c.direction.Cross(temp).Normalize().Mul(multiplier)
	c.up = c.right.Cross(c.direction)
}

// foldPitch reflects pitch back into [-pi/2, pi/2].
func foldPitch(pitch float32) float32 {
	const half = math32.Pi / 2
	switch {
	case pitch < -half:
		return -half + math32.Abs(pitch+half)
	case pitch > half:
		return half - math32.Abs(pitch-half)
	}
	return pitch
}

// ViewProjection implements the renderer's camera. The projection is
// flipped on Y for Vulkan's clip space.
func (c *Camera) ViewProjection(aspect float32) (glm.Mat4, glm.Mat4) {
	view := glm.LookAtV(c.position, c.position.Add(c.direction), c.up)
	projection := glm.Perspective(glm.DegToRad(c.Fov), aspect, c.Near, c.Far)
	projection.Set(1, 1, -projection.At(1, 1))
	return view, projection
}
