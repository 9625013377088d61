// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/devblok/vkscene/src/asset"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func checker(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.NRGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.NRGBA{0, 0, 255, 255})
			}
		}
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeLossless(t *testing.T) {
	img := checker(3, 2)
	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, img) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, img) },
		"tiff": func(b *bytes.Buffer) error { return tiff.Encode(b, img, nil) },
	}
	for name, encode := range encoders {
		var buf bytes.Buffer
		require.NoError(t, encode(&buf), name)

		px, err := Decode(buf.Bytes())
		require.NoError(t, err, name)
		assert.Equal(t, uint32(3), px.Width, name)
		assert.Equal(t, uint32(2), px.Height, name)
		require.Len(t, px.Data, px.Size(), name)
		assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 255}, px.Data[:8], name)
	}
}

func TestDecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, checker(16, 8), nil))
	px, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(16), px.Width)
	assert.Len(t, px.Data, 16*8*4)
}

func TestDecodeUnsupported(t *testing.T) {
	_, err := Decode([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	assert.Equal(t, ErrUnsupported, errors.Cause(err))

	_, err = Decode([]byte("plain text is not an image"))
	assert.Error(t, err)
}

func TestDecoder(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "bricks.png"), encodePNG(t, checker(4, 4)), 0644))
	// the extension lies, the content decides
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "bricks.jpg"), encodePNG(t, checker(2, 2)), 0644))

	d := Decoder{Source: asset.Dir(root)}
	px, err := d.DecodeImage("bricks.png")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), px.Width)

	px, err = d.DecodeImage("bricks.jpg")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), px.Width)

	px, err = Decoder{}.DecodeImage(filepath.Join(root, "bricks.png"))
	require.NoError(t, err)
	assert.Equal(t, uint32(4), px.Height)

	_, err = d.DecodeImage("missing.png")
	assert.Error(t, err)
}

func TestGetPixelsOffsetBounds(t *testing.T) {
	full := checker(4, 4).(*image.NRGBA)
	sub := full.SubImage(image.Rect(1, 1, 3, 3))

	px := FromImage(sub)
	assert.Equal(t, uint32(2), px.Width)
	assert.Equal(t, []byte{255, 0, 0, 255}, px.Data[:4])
}

func TestGetPixelsRowPitch(t *testing.T) {
	img := checker(2, 2)
	pix, err := GetPixels(img, 16)
	require.NoError(t, err)
	assert.Len(t, pix, 32)
	assert.Equal(t, []byte{0, 0, 255, 255}, pix[16:20])

	pix, err = GetPixels(img, 4)
	require.NoError(t, err)
	assert.Len(t, pix, 16)
}

var benchImage = checker(256, 256)

func BenchmarkGetPixelsNoRowPitch(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		GetPixels(benchImage, 0)
	}
}

func BenchmarkGetPixelsSmallRowPitch(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		GetPixels(benchImage, 4)
	}
}

func BenchmarkGetPixelsBigRowPitch(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		GetPixels(benchImage, 2048)
	}
}
