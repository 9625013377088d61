// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package asset

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devblok/vkscene/src/utility/kar"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, ioutil.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func writeKar(t *testing.T, files map[string]string) string {
	t.Helper()
	b, err := kar.NewBuilder(kar.Header{Author: "test", Version: 1})
	require.NoError(t, err)
	defer b.Close()
	for name, content := range files {
		require.NoError(t, b.Add(name, strings.NewReader(content)))
	}
	path := filepath.Join(t.TempDir(), "data.kar")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = b.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return path
}

func TestClean(t *testing.T) {
	for in, want := range map[string]string{
		"meshes/cube.obj":   "meshes/cube.obj",
		"./meshes/cube.obj": "meshes/cube.obj",
		"/textures/a.png":   "textures/a.png",
		"a//b":              "a/b",
	} {
		got, err := Clean(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "../secret", "a/../../b", "/"} {
		_, err := Clean(bad)
		assert.Error(t, err, bad)
	}
}

func TestDir(t *testing.T) {
	root := writeTree(t, map[string]string{"meshes/cube.obj": "v 0 0 0"})
	src, err := Open(root)
	require.NoError(t, err)

	data, err := src.ReadFile("meshes/cube.obj")
	require.NoError(t, err)
	assert.Equal(t, "v 0 0 0", string(data))

	_, err = src.ReadFile("meshes/missing.obj")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
	assert.Equal(t, filepath.Join(root, "meshes", "cube.obj"), src.(Dir).Path("meshes/cube.obj"))
	assert.NoError(t, Close(src))
}

func TestArchive(t *testing.T) {
	path := writeKar(t, map[string]string{"textures/a.png": "png bytes", "shaders/x.vert": "void main() {}"})
	src, err := Open(path)
	require.NoError(t, err)
	defer Close(src)

	data, err := src.ReadFile("./textures/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))

	_, err = src.ReadFile("textures/b.png")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
	assert.ElementsMatch(t, []string{"textures/a.png", "shaders/x.vert"}, src.(*Archive).Names())
}

func TestOpenRejectsFiles(t *testing.T) {
	root := writeTree(t, map[string]string{"scene.json": "{}"})
	_, err := Open(filepath.Join(root, "scene.json"))
	assert.Error(t, err)
	_, err = Open(filepath.Join(root, "nothing"))
	assert.Error(t, err)
	_, err = Open(filepath.Join(root, "scene.kar"))
	assert.Error(t, err)
}

func TestBuiltin(t *testing.T) {
	src := Builtin()
	for _, name := range []string{DefaultVertexShader, DefaultFragmentShader} {
		data, err := src.ReadFile(name)
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "#version 450", name)
	}
	_, err := src.ReadFile("nothing.frag")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestOverlay(t *testing.T) {
	upper := Dir(writeTree(t, map[string]string{"default.frag": "override"}))
	o := Overlay{upper, Builtin()}

	data, err := o.ReadFile(DefaultFragmentShader)
	require.NoError(t, err)
	assert.Equal(t, "override", string(data))

	data, err = o.ReadFile(DefaultVertexShader)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gl_Position")

	_, err = o.ReadFile("missing")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
	assert.NoError(t, o.Close())
}
