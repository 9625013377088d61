// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mesh

import (
	"encoding/xml"

	"github.com/devblok/vkscene/src/gfx"
	"github.com/devblok/vkscene/src/gfx/mesh/collada"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ParseCollada merges the triangles of every geometry in the document.
// VERTEX and TEXCOORD inputs are used, COLOR when present, and texture
// v is flipped the same way as for OBJ.
func ParseCollada(data []byte) (gfx.Mesh, error) {
	var doc collada.Collada
	if err := xml.Unmarshal(data, &doc); err != nil {
		return gfx.Mesh{}, err
	}

	b := newBuilder()
	for gi := range doc.Geometries {
		geometry := &doc.Geometries[gi]
		for ti := range geometry.Mesh.Triangles {
			if err := addTriangles(b, &geometry.Mesh, &geometry.Mesh.Triangles[ti]); err != nil {
				return gfx.Mesh{}, errors.Wrapf(err, "geometry %s", geometry.ID)
			}
		}
	}
	return b.finish()
}

func positionSource(m *collada.Mesh, vertexInput collada.Input) (*collada.Source, error) {
	if src, ok := m.Source(vertexInput.Source); ok {
		return src, nil
	}
	for _, in := range m.Vertices.Inputs {
		if in.Semantic == "POSITION" {
			if src, ok := m.Source(in.Source); ok {
				return src, nil
			}
		}
	}
	return nil, errors.Errorf("no POSITION source for %s", vertexInput.Source)
}

func addTriangles(b *builder, m *collada.Mesh, tris *collada.Triangles) error {
	vertexInput, ok := tris.Input("VERTEX")
	if !ok {
		return errors.New("triangles without VERTEX input")
	}
	positions, err := positionSource(m, vertexInput)
	if err != nil {
		return err
	}

	var texcoords, colors *collada.Source
	texInput, hasTex := tris.Input("TEXCOORD")
	if hasTex {
		if texcoords, ok = m.Source(texInput.Source); !ok {
			return errors.Errorf("missing source %s", texInput.Source)
		}
	}
	colorInput, hasColor := tris.Input("COLOR")
	if hasColor {
		if colors, ok = m.Source(colorInput.Source); !ok {
			return errors.Errorf("missing source %s", colorInput.Source)
		}
	}

	stride := tris.Stride()
	if len(tris.Index)%(stride*3) != 0 {
		return errors.Errorf("index list of %d is not a multiple of %d", len(tris.Index), stride*3)
	}
	for base := 0; base < len(tris.Index); base += stride {
		corner := tris.Index[base : base+stride]

		pos := positions.Element(corner[vertexInput.Offset])
		if len(pos) < 3 {
			return errors.Errorf("position %d out of range", corner[vertexInput.Offset])
		}
		v := gfx.Vertex{
			Pos:   glm.Vec3{pos[0], pos[1], pos[2]},
			Color: glm.Vec3{1, 1, 1},
		}
		if hasTex {
			tc := texcoords.Element(corner[texInput.Offset])
			if len(tc) < 2 {
				return errors.Errorf("texcoord %d out of range", corner[texInput.Offset])
			}
			v.TexCoord = glm.Vec2{tc[0], 1 - tc[1]}
		}
		if hasColor {
			c := colors.Element(corner[colorInput.Offset])
			if len(c) < 3 {
				return errors.Errorf("color %d out of range", corner[colorInput.Offset])
			}
			v.Color = glm.Vec3{c[0], c[1], c[2]}
		}
		b.add(v)
	}
	return nil
}
