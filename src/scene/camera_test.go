// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package scene

import (
	"math"
	"testing"

	"github.com/devblok/vkscene/src/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func assertVec(t *testing.T, want, got glm.Vec3) {
	t.Helper()
	for idx := range want {
		assert.InDelta(t, want[idx], got[idx], 1e-5, "component %d of %v", idx, got)
	}
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	assertVec(t, glm.Vec3{0, -5, 0}, c.Position())
	assertVec(t, glm.Vec3{0, 1, 0}, c.Direction())
	assertVec(t, glm.Vec3{0, 0, 1}, c.Up())
	assert.Equal(t, float32(DefaultSpeed), c.Speed())

	c.Update()
	assertVec(t, glm.Vec3{0, -5, 0}, c.Position())
	assertVec(t, glm.Vec3{0, 1, 0}, c.Direction())
	assertVec(t, glm.Vec3{0, 0, 1}, c.Up())
}

func TestCameraMoves(t *testing.T) {
	c := NewCamera()
	c.Key(gfx.KeyW, true)
	for i := 0; i < 10; i++ {
		c.Update()
	}
	assertVec(t, glm.Vec3{0, -4.5, 0}, c.Position())

	c.Key(gfx.KeyW, false)
	c.Key(gfx.KeyD, true)
	c.Update()
	assertVec(t, glm.Vec3{0.05, -4.5, 0}, c.Position())

	c.Key(gfx.KeyA, true)
	c.Update()
	assertVec(t, glm.Vec3{0.05, -4.5, 0}, c.Position())
}

func TestCameraShiftToggles(t *testing.T) {
	c := NewCamera()
	c.Key(gfx.KeyShift, true)
	assert.Equal(t, float32(SlowSpeed), c.Speed())
	c.Key(gfx.KeyShift, true)
	assert.Equal(t, float32(SlowSpeed), c.Speed(), "held key does not toggle again")
	c.Key(gfx.KeyShift, false)
	c.Key(gfx.KeyShift, true)
	assert.Equal(t, float32(DefaultSpeed), c.Speed())
}

func TestCameraTurns(t *testing.T) {
	c := NewCamera()
	c.CursorMoved(100, 100)
	c.Update()
	assertVec(t, glm.Vec3{0, 1, 0}, c.Direction())

	// a quarter turn of yaw
	c.CursorMoved(100+float32(math.Pi/2)/DefaultMouseSpeed, 100)
	c.Update()
	assertVec(t, glm.Vec3{1, 0, 0}, c.Direction())
}

func TestFoldPitch(t *testing.T) {
	half := float32(math.Pi / 2)
	assert.InDelta(t, 0.3, foldPitch(0.3), 1e-6)
	assert.InDelta(t, half-0.25, foldPitch(half+0.25), 1e-6)
	assert.InDelta(t, -half+0.25, foldPitch(-half-0.25), 1e-6)

	c := NewCamera()
	c.CursorMoved(0, 0)
	c.CursorMoved(0, 1000)
	c.Update()
	assert.LessOrEqual(t, float64(c.yawPitch[1]), math.Pi/2)
}

func TestCameraProjectionFlipsY(t *testing.T) {
	c := NewCamera()
	view, projection := c.ViewProjection(16.0 / 9.0)
	reference := glm.Perspective(glm.DegToRad(DefaultFov), 16.0/9.0, DefaultNear, DefaultFar)

	assert.InDelta(t, -reference.At(1, 1), projection.At(1, 1), 1e-6)
	assert.InDelta(t, reference.At(0, 0), projection.At(0, 0), 1e-6)

	// the origin sits straight ahead
	eye := view.Mul4x1(glm.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, eye[0], 1e-5)
	assert.InDelta(t, 0, eye[1], 1e-5)
	assert.InDelta(t, -5, eye[2], 1e-5)
}
