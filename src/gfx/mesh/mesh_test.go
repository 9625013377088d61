// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mesh

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devblok/vkscene/src/asset"
	"github.com/devblok/vkscene/src/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `# two triangles sharing an edge
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3
f 1/1 3/3 4/4
`

const cubeDAE = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="Plane-mesh" name="Plane">
      <mesh>
        <source id="Plane-mesh-positions">
          <float_array id="Plane-mesh-positions-array" count="12">0 0 0 1 0 0 1 1 0 0 1 0</float_array>
          <technique_common><accessor source="#Plane-mesh-positions-array" count="4" stride="3"/></technique_common>
        </source>
        <source id="Plane-mesh-map-0">
          <float_array id="Plane-mesh-map-0-array" count="8">0 0 1 0 1 1 0 1</float_array>
          <technique_common><accessor source="#Plane-mesh-map-0-array" count="4" stride="2"/></technique_common>
        </source>
        <vertices id="Plane-mesh-vertices">
          <input semantic="POSITION" source="#Plane-mesh-positions"/>
        </vertices>
        <triangles material="Material-material" count="2">
          <input semantic="VERTEX" source="#Plane-mesh-vertices" offset="0"/>
          <input semantic="TEXCOORD" source="#Plane-mesh-map-0" offset="1" set="0"/>
          <p>0 0 1 1 2 2 0 0 2 2 3 3</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

func TestParseOBJ(t *testing.T) {
	m, err := ParseOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)

	assert.Len(t, m.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, m.Indices)
	assert.Equal(t, glm.Vec2{1, 1}, m.Vertices[1].TexCoord, "v is flipped")
	assert.Equal(t, glm.Vec2{1, 0}, m.Vertices[2].TexCoord)
	for _, v := range m.Vertices {
		assert.Equal(t, glm.Vec3{1, 1, 1}, v.Color)
	}
}

func TestParseOBJFan(t *testing.T) {
	m, err := ParseOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, m.Indices)
}

func TestParseOBJNegativeAndNormals(t *testing.T) {
	m, err := ParseOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 1 0\nvn 0 0 1\nf -3//1 -2//1 -1//1\n"))
	require.NoError(t, err)
	require.Len(t, m.Vertices, 3)
	assert.Equal(t, glm.Vec3{1, 0, 0}, m.Vertices[1].Pos)
}

func TestParseOBJDeduplicatesFullTuple(t *testing.T) {
	// same position, different texcoord: two distinct vertices
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvt 1 1\nf 1/1 2/1 3/1\nf 1/2 2/1 3/1\n"
	m, err := ParseOBJ(strings.NewReader(src))
	require.NoError(t, err)
	assert.Len(t, m.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 3, 1, 2}, m.Indices)
}

func TestParseOBJErrors(t *testing.T) {
	for name, src := range map[string]string{
		"out of range": "v 0 0 0\nf 1 2 3\n",
		"short face":   "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad float":    "v 0 zero 0\n",
		"empty":        "# nothing here\n",
	} {
		_, err := ParseOBJ(strings.NewReader(src))
		assert.Error(t, err, name)
	}
	_, err := ParseOBJ(strings.NewReader(""))
	assert.Equal(t, ErrEmpty, errors.Cause(err))
}

func TestParseCollada(t *testing.T) {
	m, err := ParseCollada([]byte(cubeDAE))
	require.NoError(t, err)

	assert.Len(t, m.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, m.Indices)
	assert.Equal(t, glm.Vec3{1, 1, 0}, m.Vertices[2].Pos)
	assert.Equal(t, glm.Vec2{1, 0}, m.Vertices[2].TexCoord)
}

func TestParseColladaMissingVertexInput(t *testing.T) {
	doc := strings.Replace(cubeDAE, `semantic="VERTEX"`, `semantic="NORMAL"`, 1)
	_, err := ParseCollada([]byte(doc))
	assert.Error(t, err)
}

func TestImporter(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "quad.obj"), []byte(quadOBJ), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "plane.dae"), []byte(cubeDAE), 0644))

	var im gfx.MeshImporter = Importer{Source: asset.Dir(root)}
	for _, name := range []string{"quad.obj", "plane.dae"} {
		m, err := im.ImportMesh(name)
		require.NoError(t, err, name)
		assert.Len(t, m.Indices, 6, name)
	}

	m, err := Importer{}.ImportMesh(filepath.Join(root, "quad.obj"))
	require.NoError(t, err)
	assert.Len(t, m.Vertices, 4)

	_, err = im.ImportMesh("model.fbx")
	assert.Error(t, err)
}

func BenchmarkParseOBJ(b *testing.B) {
	var sb strings.Builder
	for idx := 0; idx < 1000; idx++ {
		sb.WriteString("v 0 0 0\nv 1 0 0\nv 1 1 0\n")
	}
	for idx := 0; idx < 1000; idx++ {
		sb.WriteString("f -1 -2 -3\n")
	}
	src := sb.String()
	b.ResetTimer()
	for idx := 0; idx < b.N; idx++ {
		ParseOBJ(strings.NewReader(src))
	}
}
