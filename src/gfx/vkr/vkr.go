// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the vulkan renderer.
package vkr

import (
	"github.com/devblok/vkscene/src/gfx"
	vk "github.com/devblok/vulkan"
)

// NewBuffer creates, configures, allocates and binds a new buffer.
func NewBuffer(driver Driver, dev vk.Device, size uint, usage vk.BufferUsageFlags, sharing Sharing, props vk.MemoryPropertyFlags, ma *MemoryAllocator) (Buffer, error) {
	createInfo := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  vk.DeviceSize(size),
		Usage:                 usage,
		SharingMode:           sharing.Mode,
		QueueFamilyIndexCount: uint32(len(sharing.Families)),
		PQueueFamilyIndices:   sharing.Families,
	}
	buffer, err := driver.CreateBuffer(dev, &createInfo)
	if err != nil {
		return Buffer{}, err
	}

	req := driver.BufferMemoryRequirements(dev, buffer)
	memory, err := ma.Malloc(req, props)
	if err != nil {
		driver.DestroyBuffer(dev, buffer)
		return Buffer{}, err
	}

	if err := driver.BindBufferMemory(dev, buffer, memory.Get(), vk.DeviceSize(memory.Offset())); err != nil {
		driver.DestroyBuffer(dev, buffer)
		memory.Release()
		return Buffer{}, err
	}

	return Buffer{
		driver: driver,
		device: dev,
		buffer: buffer,
		size:   size,
		memory: memory,
	}, nil
}

var _ gfx.Releasable = (*Buffer)(nil)

// Buffer implements a generic vulkan buffer.
type Buffer struct {
	driver Driver
	device vk.Device
	buffer vk.Buffer
	size   uint

	memory Memory
}

// Mem returns the Memory that the buffer is based on.
func (b *Buffer) Mem() *Memory {
	return &b.memory
}

// Get returns the vulkan Buffer handle.
func (b *Buffer) Get() vk.Buffer {
	return b.buffer
}

// Size is the requested size of the buffer, which may be smaller than
// the memory backing it.
func (b *Buffer) Size() uint {
	return b.size
}

// Release destroys the buffer and memory asociated with it.
// Releasing twice is a no-op.
func (b *Buffer) Release() {
	if b.buffer == vk.NullBuffer {
		return
	}
	b.driver.DestroyBuffer(b.device, b.buffer)
	b.buffer = vk.NullBuffer
	b.memory.Release()
}

// ImageSpec describes a 2D image to create.
type ImageSpec struct {
	Extent gfx.Extent3D
	Format vk.Format
	Tiling vk.ImageTiling
	Usage  vk.ImageUsageFlags
	Props  vk.MemoryPropertyFlags
}

// NewImage creates a new vulkan image primitive with memory bound to it.
func NewImage(driver Driver, dev vk.Device, spec ImageSpec, ma *MemoryAllocator) (Image, error) {
	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  spec.Extent.Width,
			Height: spec.Extent.Height,
			Depth:  spec.Extent.Depth,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        spec.Format,
		Tiling:        spec.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         spec.Usage,
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}

	image, err := driver.CreateImage(dev, &createInfo)
	if err != nil {
		return Image{}, err
	}

	req := driver.ImageMemoryRequirements(dev, image)
	memory, err := ma.Malloc(req, spec.Props)
	if err != nil {
		driver.DestroyImage(dev, image)
		return Image{}, err
	}

	if err := driver.BindImageMemory(dev, image, memory.Get(), vk.DeviceSize(memory.Offset())); err != nil {
		driver.DestroyImage(dev, image)
		memory.Release()
		return Image{}, err
	}

	return Image{
		driver: driver,
		device: dev,
		image:  image,
		format: spec.Format,
		extent: spec.Extent,
		memory: memory,
	}, nil
}

var _ gfx.Releasable = (*Image)(nil)

// Image implements and abstracts vulkan image primitive.
type Image struct {
	driver Driver
	device vk.Device
	image  vk.Image
	format vk.Format
	extent gfx.Extent3D
	memory Memory
}

// Get returns the vulkan Image handle.
func (i *Image) Get() vk.Image {
	return i.image
}

// Format returns the format the image was created with.
func (i *Image) Format() vk.Format {
	return i.format
}

// Extent returns the dimensions the image was created with.
func (i *Image) Extent() gfx.Extent3D {
	return i.extent
}

// Mem returns the underlying memory of the Image.
func (i *Image) Mem() *Memory {
	return &i.memory
}

// Release destroys the image and frees its memory.
func (i *Image) Release() {
	if i.image == vk.NullImage {
		return
	}
	i.driver.DestroyImage(i.device, i.image)
	i.image = vk.NullImage
	i.memory.Release()
}

// NewImageView creates a 2D view covering the single mip level and
// layer of image.
func NewImageView(driver Driver, dev vk.Device, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	return driver.CreateImageView(dev, &ivci)
}
