// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package mesh imports Wavefront OBJ and COLLADA files as indexed
// triangle lists.
package mesh

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/devblok/vkscene/src/asset"
	"github.com/devblok/vkscene/src/gfx"
	"github.com/pkg/errors"
)

// ErrEmpty is returned for files without a single complete triangle.
var ErrEmpty = errors.New("mesh has no triangles")

// Importer implements gfx.MeshImporter. Paths are resolved through
// Source, or read from disk when Source is nil.
type Importer struct {
	Source asset.Source
}

var _ gfx.MeshImporter = Importer{}

// ImportMesh picks the format from the file extension.
func (im Importer) ImportMesh(path string) (gfx.Mesh, error) {
	var (
		data []byte
		err  error
	)
	if im.Source == nil {
		data, err = ioutil.ReadFile(path)
	} else {
		data, err = im.Source.ReadFile(path)
	}
	if err != nil {
		return gfx.Mesh{}, err
	}

	var m gfx.Mesh
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		m, err = ParseOBJ(bytes.NewReader(data))
	case ".dae":
		m, err = ParseCollada(data)
	default:
		return gfx.Mesh{}, errors.Errorf("mesh: unsupported format %q", ext)
	}
	if err != nil {
		return gfx.Mesh{}, errors.Wrap(err, path)
	}
	return m, nil
}

// builder deduplicates vertices on the full vertex tuple.
type builder struct {
	seen map[gfx.Vertex]uint32
	mesh gfx.Mesh
}

func newBuilder() *builder {
	return &builder{seen: make(map[gfx.Vertex]uint32)}
}

func (b *builder) add(v gfx.Vertex) {
	idx, ok := b.seen[v]
	if !ok {
		idx = uint32(len(b.mesh.Vertices))
		b.seen[v] = idx
		b.mesh.Vertices = append(b.mesh.Vertices, v)
	}
	b.mesh.Indices = append(b.mesh.Indices, idx)
}

func (b *builder) finish() (gfx.Mesh, error) {
	if len(b.mesh.Indices) < 3 {
		return gfx.Mesh{}, ErrEmpty
	}
	return b.mesh, nil
}
