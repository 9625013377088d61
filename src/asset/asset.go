// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package asset resolves the slash separated names used in scene files
// to file contents, wherever those contents live.
package asset

import (
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/devblok/vkscene/src/utility/kar"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// ErrNotFound is returned by every Source for names it does not hold.
var ErrNotFound = errors.New("asset not found")

// Source reads assets by name.
type Source interface {
	ReadFile(name string) ([]byte, error)
}

// Clean normalizes an asset name to the slash separated form stored in
// archives. Names escaping the root are rejected.
func Clean(name string) (string, error) {
	slashed := filepath.ToSlash(name)
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return "", errors.Errorf("asset: invalid name %q", name)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if cleaned == "" {
		return "", errors.Errorf("asset: invalid name %q", name)
	}
	return cleaned, nil
}

// Dir is a Source rooted at a directory on disk.
type Dir string

// ReadFile implements Source.
func (d Dir) ReadFile(name string) ([]byte, error) {
	cleaned, err := Clean(name)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(filepath.Join(string(d), filepath.FromSlash(cleaned)))
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	return data, err
}

// Path resolves name to a path on disk, used for watching files.
func (d Dir) Path(name string) string {
	return filepath.Join(string(d), filepath.FromSlash(name))
}

// Archive is a Source backed by a memory mapped kar archive.
type Archive struct {
	file    *mmap.ReaderAt
	archive *kar.Archive
}

// OpenArchive maps the kar archive at path.
func OpenArchive(path string) (*Archive, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	ar, err := kar.Open(r)
	if err != nil {
		r.Close()
		return nil, errors.Wrap(err, path)
	}
	return &Archive{file: r, archive: ar}, nil
}

// ReadFile implements Source.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	cleaned, err := Clean(name)
	if err != nil {
		return nil, err
	}
	data, err := a.archive.ReadAll(cleaned)
	if errors.Cause(err) == kar.ErrNotFound {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	return data, err
}

// Names lists the archived assets.
func (a *Archive) Names() []string {
	return a.archive.Names()
}

// Close unmaps the archive.
func (a *Archive) Close() error {
	return a.file.Close()
}

// Open picks the Source for a scene data path: a kar archive when the
// path ends in .kar, a directory otherwise.
func Open(dataPath string) (Source, error) {
	if strings.EqualFold(filepath.Ext(dataPath), ".kar") {
		ar, err := OpenArchive(dataPath)
		if err != nil {
			return nil, err
		}
		return ar, nil
	}
	info, err := os.Stat(dataPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.Errorf("asset: %s is neither a directory nor a kar archive", dataPath)
	}
	return Dir(dataPath), nil
}

// Close releases src if it holds any resources.
func Close(src Source) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Built-in shader names
const (
	DefaultVertexShader   = "default.vert"
	DefaultFragmentShader = "default.frag"
)

// Builtin returns the assets compiled into the binary.
func Builtin() Source {
	return box{packr.NewBox("./builtin")}
}

type box struct {
	packr.Box
}

func (b box) ReadFile(name string) ([]byte, error) {
	cleaned, err := Clean(name)
	if err != nil {
		return nil, err
	}
	if !b.Has(cleaned) {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	return b.Find(cleaned)
}

// Overlay reads from the first source holding a name.
type Overlay []Source

// ReadFile implements Source.
func (o Overlay) ReadFile(name string) ([]byte, error) {
	for _, src := range o {
		data, err := src.ReadFile(name)
		if errors.Cause(err) == ErrNotFound {
			continue
		}
		return data, err
	}
	return nil, errors.Wrap(ErrNotFound, name)
}

// Close closes every source of the overlay.
func (o Overlay) Close() error {
	var first error
	for _, src := range o {
		if err := Close(src); err != nil && first == nil {
			first = err
		}
	}
	return first
}
