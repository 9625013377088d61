// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"

	"github.com/devblok/vkscene/src/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle() gfx.Mesh {
	return gfx.Mesh{
		Vertices: []gfx.Vertex{
			{Pos: glm.Vec3{0, 0, 0}, Color: glm.Vec3{1, 1, 1}, TexCoord: glm.Vec2{0, 0}},
			{Pos: glm.Vec3{1, 0, 0}, Color: glm.Vec3{1, 1, 1}, TexCoord: glm.Vec2{1, 0}},
			{Pos: glm.Vec3{0, 1, 0}, Color: glm.Vec3{1, 1, 1}, TexCoord: glm.Vec2{0, 1}},
		},
		Indices: []uint32{0, 1, 2},
	}
}

func checker() gfx.Pixels {
	return gfx.Pixels{Width: 2, Height: 2, Data: []byte{
		0, 0, 0, 255, 255, 255, 255, 255,
		255, 255, 255, 255, 0, 0, 0, 255,
	}}
}

func TestRegistryCapacity(t *testing.T) {
	r := newRig(t, goodGPU("gpu"))
	_, err := NewResourceRegistry(r.ctx, r.transfer, Capacity{})
	assert.Error(t, err)

	reg, err := NewResourceRegistry(r.ctx, r.transfer, Capacity{Objects: 1})
	require.NoError(t, err)
	assert.Len(t, reg.Layouts(), 2)
	assert.NotZero(t, idOf(reg.CommonSet()))

	_, err = reg.Add(ObjectSpec{Name: "a", Mesh: triangle()})
	require.NoError(t, err)
	_, err = reg.Add(ObjectSpec{Name: "b", Mesh: triangle()})
	assert.Error(t, err)
}

func TestRegistryRejectsBadObjects(t *testing.T) {
	r := newRig(t, goodGPU("gpu"))
	reg, err := NewResourceRegistry(r.ctx, r.transfer, Capacity{Objects: 4, TexturesPerObject: 1})
	require.NoError(t, err)
	buffers := r.f.liveKinds("buffer")

	_, err = reg.Add(ObjectSpec{Name: "empty"})
	assert.Error(t, err)

	_, err = reg.Add(ObjectSpec{Name: "greedy", Mesh: triangle(), Textures: []gfx.Pixels{checker(), checker()}})
	assert.Error(t, err)

	_, err = reg.Add(ObjectSpec{Name: "broken", Mesh: triangle(), Textures: []gfx.Pixels{{Width: 4, Height: 4}}})
	assert.Error(t, err)

	assert.Empty(t, reg.Objects())
	assert.Equal(t, buffers, r.f.liveKinds("buffer"))
}

func TestRegistryUploadsMesh(t *testing.T) {
	r := newRig(t, goodGPU("gpu"))
	reg, err := NewResourceRegistry(r.ctx, r.transfer, Capacity{Objects: 2, TexturesPerObject: 1})
	require.NoError(t, err)

	mesh := triangle()
	obj, err := reg.Add(ObjectSpec{Name: "tri", Mesh: mesh})
	require.NoError(t, err)

	assert.Equal(t, uint32(3), obj.IndexCount())
	vertices := asBytes(mesh.Vertices)
	indices := asBytes(mesh.Indices)
	assert.Equal(t, vertices, r.f.bufferBytes(obj.vertices.Get())[:len(vertices)])
	assert.Equal(t, indices, r.f.bufferBytes(obj.indices.Get())[:len(indices)])
}

func TestRegistryWhitePadding(t *testing.T) {
	r := newRig(t, goodGPU("gpu"))
	reg, err := NewResourceRegistry(r.ctx, r.transfer, Capacity{Objects: 3, TexturesPerObject: 2})
	require.NoError(t, err)
	images := r.f.count("CreateImage")

	_, err = reg.Add(ObjectSpec{Name: "textured", Mesh: triangle(), Textures: []gfx.Pixels{checker()}})
	require.NoError(t, err)
	assert.Equal(t, images+2, r.f.count("CreateImage"))

	_, err = reg.Add(ObjectSpec{Name: "plain", Mesh: triangle()})
	require.NoError(t, err)
	assert.Equal(t, images+2, r.f.count("CreateImage"))
}

func TestRegistryDestroy(t *testing.T) {
	r := newRig(t, goodGPU("gpu"))
	reg, err := NewResourceRegistry(r.ctx, r.transfer, Capacity{Objects: 2, TexturesPerObject: 1})
	require.NoError(t, err)
	_, err = reg.Add(ObjectSpec{Name: "a", Mesh: triangle(), Textures: []gfx.Pixels{checker()}})
	require.NoError(t, err)
	_, err = reg.Add(ObjectSpec{Name: "b", Mesh: triangle()})
	require.NoError(t, err)

	reg.Destroy()
	reg.Destroy()
	assert.Equal(t, 0, r.f.liveKinds("buffer"))
	assert.Equal(t, 0, r.f.liveKinds("image"))
	assert.Equal(t, 0, r.f.liveKinds("imageView"))
	assert.Equal(t, 0, r.f.liveKinds("memory"))
	assert.Equal(t, 0, r.f.liveKinds("sampler"))
	assert.Equal(t, 0, r.f.liveKinds("setLayout"))
	assert.Equal(t, 0, r.f.liveKinds("descriptorPool"))
}

func TestRegistryReserve(t *testing.T) {
	r := newRig(t, goodGPU("gpu"))
	reg, err := NewResourceRegistry(r.ctx, r.transfer, Capacity{Objects: 1, TexturesPerObject: 1, Frames: 2})
	require.NoError(t, err)
	obj, err := reg.Add(ObjectSpec{Name: "a", Mesh: triangle()})
	require.NoError(t, err)
	require.Len(t, obj.slots, 2)
	assert.Equal(t, 1, r.f.liveKinds("descriptorPool"))

	require.NoError(t, reg.Reserve(2))
	assert.Len(t, obj.slots, 2)

	require.NoError(t, reg.Reserve(4))
	assert.Equal(t, 4, reg.Frames())
	assert.Len(t, obj.slots, 4)
	assert.Equal(t, 2, r.f.liveKinds("descriptorPool"))
	assert.NotZero(t, idOf(obj.Set(3)))

	view := glm.Ident4()
	require.NoError(t, reg.UpdateUniforms(3, view, view))
	assert.Error(t, reg.UpdateUniforms(4, view, view))
	assert.Error(t, reg.UpdateUniforms(-1, view, view))

	reg.Destroy()
	assert.Equal(t, 0, r.f.liveKinds("descriptorPool"))
	assert.Equal(t, 0, r.f.liveKinds("buffer"))
	assert.Equal(t, 0, r.f.liveKinds("memory"))
}
