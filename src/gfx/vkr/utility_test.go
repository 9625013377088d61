// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"encoding/binary"
	"strings"
	"testing"

	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSliceUint32(t *testing.T) {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:], 0x07230203)
	binary.LittleEndian.PutUint32(data[4:], 1)
	binary.LittleEndian.PutUint32(data[8:], 0xdeadbeef)

	words := SliceUint32(data)
	assert.Equal(t, []uint32{0x07230203, 1, 0xdeadbeef}, words)
	assert.Len(t, SliceUint32(data[:7]), 1)
	assert.Nil(t, SliceUint32(data[:3]))
}

func TestSafeStrings(t *testing.T) {
	assert.Equal(t, []string{"a\x00", "VK_KHR_swapchain\x00"}, SafeStrings([]string{"a", "VK_KHR_swapchain"}))
	assert.Empty(t, SafeStrings(nil))
}

func TestAsBytes(t *testing.T) {
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, asBytes([]uint32{1, 2}))
	assert.Nil(t, asBytes([]uint32(nil)))
}

func TestCallError(t *testing.T) {
	assert.NoError(t, check("QueueSubmit", vk.Success))

	err := check("QueueSubmit", vk.ErrorDeviceLost)
	ce, ok := errors.Cause(err).(*CallError)
	if assert.True(t, ok) {
		assert.Equal(t, vk.ErrorDeviceLost, ce.Result)
	}
	assert.True(t, strings.HasPrefix(err.Error(), "vk.QueueSubmit(): "), err.Error())
	assert.NotEmpty(t, Location(err))
	assert.Empty(t, Location(nil))
	assert.Empty(t, Location(ErrZeroExtent))
}

func BenchmarkSliceUint32(b *testing.B) {
	data := make([]byte, 4096)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = SliceUint32(data)
	}
}
