// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package scene reads scene descriptions and drives the camera
// looking at them.
package scene

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/devblok/vkscene/src/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/mitchellh/go-homedir"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultEntryPoint is used for shaders that do not name one.
const DefaultEntryPoint = "main"

// Vec is a 3 component vector as written in scene files.
type Vec struct {
	X float32 `json:"x" yaml:"x" toml:"x"`
	Y float32 `json:"y" yaml:"y" toml:"y"`
	Z float32 `json:"z" yaml:"z" toml:"z"`
}

// Vec3 converts v for matrix math.
func (v Vec) Vec3() glm.Vec3 {
	return glm.Vec3{v.X, v.Y, v.Z}
}

// Shader is one pipeline stage.
type Shader struct {
	Type       string `json:"type" yaml:"type" toml:"type"`
	Path       string `json:"path" yaml:"path" toml:"path"`
	EntryPoint string `json:"entryPoint,omitempty" yaml:"entryPoint,omitempty" toml:"entryPoint,omitempty"`
}

// Stage parses Type.
func (s Shader) Stage() (gfx.ShaderStage, error) {
	return gfx.ParseShaderStage(s.Type)
}

// Model is a mesh placed in the world with its textures.
type Model struct {
	Mesh     string   `json:"mesh" yaml:"mesh" toml:"mesh"`
	Textures []string `json:"textures,omitempty" yaml:"textures,omitempty" toml:"textures,omitempty"`
	Scale    Vec      `json:"scale" yaml:"scale" toml:"scale"`
	Position Vec      `json:"position" yaml:"position" toml:"position"`
}

// Transform scales first, then translates in the scaled space.
func (m Model) Transform() glm.Mat4 {
	return glm.Scale3D(m.Scale.X, m.Scale.Y, m.Scale.Z).Mul4(glm.Translate3D(m.Position.X, m.Position.Y, m.Position.Z))
}

// Scene is the root of a scene file.
type Scene struct {
	DataPath string   `json:"dataPath" yaml:"dataPath" toml:"dataPath"`
	Shaders  []Shader `json:"shaders,omitempty" yaml:"shaders,omitempty" toml:"shaders,omitempty"`
	Models   []Model  `json:"models" yaml:"models" toml:"models"`
}

// MaxTextures is the largest texture count of any model.
func (s *Scene) MaxTextures() int {
	max := 0
	for _, m := range s.Models {
		if len(m.Textures) > max {
			max = len(m.Textures)
		}
	}
	return max
}

// Load reads path as JSON, YAML or TOML depending on its extension and
// validates it. A relative data path is resolved against the directory
// of the scene file.
func Load(path string) (*Scene, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	dataPath, err := homedir.Expand(s.DataPath)
	if err != nil {
		return nil, errors.Wrap(err, "dataPath")
	}
	if dataPath == "" {
		dataPath = "."
	}
	if !filepath.IsAbs(dataPath) {
		dataPath = filepath.Join(filepath.Dir(path), dataPath)
	}
	s.DataPath = filepath.Clean(dataPath)
	return s, nil
}

// Decode parses a scene in the format named by ext, applies defaults and
// validates it.
func Decode(data []byte, ext string) (*Scene, error) {
	var s Scene
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &s); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("scene: unsupported format %q", ext)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scene) applyDefaults() {
	for idx := range s.Shaders {
		if s.Shaders[idx].EntryPoint == "" {
			s.Shaders[idx].EntryPoint = DefaultEntryPoint
		}
	}
	for idx := range s.Models {
		if s.Models[idx].Scale == (Vec{}) {
			s.Models[idx].Scale = Vec{1, 1, 1}
		}
	}
}

// Validate checks that every model has a mesh and that the shader list
// is either empty or a usable graphics pipeline.
func (s *Scene) Validate() error {
	if len(s.Models) == 0 {
		return errors.New("scene: no models")
	}
	for idx, m := range s.Models {
		if m.Mesh == "" {
			return errors.Errorf("scene: model %d has no mesh", idx)
		}
		for _, tex := range m.Textures {
			if tex == "" {
				return errors.Errorf("scene: model %d has an empty texture path", idx)
			}
		}
	}

	if len(s.Shaders) == 0 {
		return nil
	}
	seen := make(map[gfx.ShaderStage]bool)
	for _, sh := range s.Shaders {
		stage, err := sh.Stage()
		if err != nil {
			return errors.Wrap(err, "scene")
		}
		if stage == gfx.StageCompute {
			return errors.Errorf("scene: %s is not a graphics stage", stage)
		}
		if sh.Path == "" {
			return errors.Errorf("scene: %s shader has no path", stage)
		}
		if seen[stage] {
			return errors.Errorf("scene: duplicate %s shader", stage)
		}
		seen[stage] = true
	}
	if !seen[gfx.StageVertex] || !seen[gfx.StageFragment] {
		return errors.New("scene: shaders need at least a vertex and a fragment stage")
	}
	return nil
}
