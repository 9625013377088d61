// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package texture decodes image files into RGBA8 pixels.
package texture

import (
	"bytes"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io/ioutil"

	"github.com/devblok/vkscene/src/asset"
	"github.com/devblok/vkscene/src/gfx"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
	"golang.org/x/image/draw"
)

// Supported lists the image MIME types Decode accepts.
var Supported = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

// ErrUnsupported is returned for files that are not one of Supported.
var ErrUnsupported = errors.New("unsupported image format")

// Decoder implements gfx.ImageDecoder. Paths are resolved through
// Source, or read from disk when Source is nil.
type Decoder struct {
	Source asset.Source
}

var _ gfx.ImageDecoder = Decoder{}

// DecodeImage reads and decodes the image at path.
func (d Decoder) DecodeImage(path string) (gfx.Pixels, error) {
	var (
		data []byte
		err  error
	)
	if d.Source == nil {
		data, err = ioutil.ReadFile(path)
	} else {
		data, err = d.Source.ReadFile(path)
	}
	if err != nil {
		return gfx.Pixels{}, err
	}
	px, err := Decode(data)
	if err != nil {
		return gfx.Pixels{}, errors.Wrap(err, path)
	}
	return px, nil
}

// Decode sniffs the format from the content rather than trusting the
// file name, then converts the image to tightly packed RGBA8.
func Decode(data []byte) (gfx.Pixels, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return gfx.Pixels{}, err
	}
	if !Supported[kind.MIME.Value] {
		return gfx.Pixels{}, errors.Wrapf(ErrUnsupported, "%q", kind.MIME.Value)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gfx.Pixels{}, err
	}
	return FromImage(img), nil
}

// FromImage converts any image to gfx.Pixels.
func FromImage(img image.Image) gfx.Pixels {
	b := img.Bounds()
	pix, _ := GetPixels(img, 0)
	return gfx.Pixels{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Data:   pix,
	}
}

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas. A row
// pitch smaller than a tightly packed row is ignored.
func GetPixels(img image.Image, rowPitch int) ([]uint8, error) {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if rowPitch > canvas.Stride {
		canvas.Stride = rowPitch
		canvas.Pix = make([]uint8, rowPitch*b.Dy())
	}
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)
	return canvas.Pix, nil
}
