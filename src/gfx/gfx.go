// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the rendering data that renderers consume and
// the collaborators that produce it.
package gfx

import (
	"fmt"
	"strings"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Extent2D is a width and height in pixels.
type Extent2D struct {
	Width, Height uint32
}

// Zero reports whether either dimension is zero, as happens
// when a window gets minimized.
func (e Extent2D) Zero() bool {
	return e.Width == 0 || e.Height == 0
}

// Extent3D is a width, height and depth in texels.
type Extent3D struct {
	Width, Height, Depth uint32
}

// Vertex is the interleaved vertex format shared by every pipeline.
// It is comparable, so importers may use it directly as a map key.
type Vertex struct {
	Pos      glm.Vec3
	Color    glm.Vec3
	TexCoord glm.Vec2
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Pixels is a decoded texture in tightly packed RGBA8.
type Pixels struct {
	Width, Height uint32
	Data          []byte
}

// Size is the number of bytes Data is expected to hold.
func (p Pixels) Size() int {
	return int(p.Width) * int(p.Height) * 4
}

// ShaderStage is the pipeline stage a shader is compiled for.
type ShaderStage int

// Supported shader stages
const (
	StageVertex ShaderStage = iota
	StageTessellationControl
	StageTessellationEvaluation
	StageGeometry
	StageFragment
	StageCompute
)

var stageNames = [...]string{
	StageVertex:                 "vertex",
	StageTessellationControl:    "tessellation_control",
	StageTessellationEvaluation: "tessellation_evaluation",
	StageGeometry:               "geometry",
	StageFragment:               "fragment",
	StageCompute:                "compute",
}

func (s ShaderStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("ShaderStage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseShaderStage maps the names used in scene files to a stage.
func ParseShaderStage(name string) (ShaderStage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for idx, n := range stageNames {
		if n == name {
			return ShaderStage(idx), nil
		}
	}
	return 0, fmt.Errorf("unknown shader stage %q", name)
}

// MeshImporter turns a file on disk into a Mesh.
type MeshImporter interface {
	ImportMesh(path string) (Mesh, error)
}

// ImageDecoder turns an image file into RGBA8 Pixels.
type ImageDecoder interface {
	DecodeImage(path string) (Pixels, error)
}

// ShaderCompiler produces SPIR-V for a given stage and entry point.
type ShaderCompiler interface {
	Compile(source []byte, stage ShaderStage, entryPoint string) ([]byte, error)
}

// Key identifies the keys the renderer reacts to.
type Key int

// Keys reported by windowing implementations
const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyShift
	KeyEscape
)
