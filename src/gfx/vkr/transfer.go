// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/devblok/vkscene/src/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

const (
	hostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	deviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

// NewTransferEngine creates the engine moving data into device memory
// through one-shot command buffers on the graphics queue.
func NewTransferEngine(ctx *DeviceContext) *TransferEngine {
	return &TransferEngine{
		ctx:       ctx,
		allocator: NewMemoryAllocator(ctx.Driver, ctx.Device, ctx.Profile.Memory),
	}
}

// TransferEngine allocates resources and uploads data to them.
type TransferEngine struct {
	ctx       *DeviceContext
	allocator *MemoryAllocator
}

// Allocator returns the memory allocator used by the engine.
func (t *TransferEngine) Allocator() *MemoryAllocator {
	return t.allocator
}

// AllocateBuffer creates an exclusive buffer backed by memory with props.
func (t *TransferEngine) AllocateBuffer(size uint, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (Buffer, error) {
	return NewBuffer(t.ctx.Driver, t.ctx.Device, size, usage, Exclusive, props, t.allocator)
}

// AllocateImage creates an image backed by memory with props.
func (t *TransferEngine) AllocateImage(w, h, d uint32, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags, props vk.MemoryPropertyFlags) (Image, error) {
	return NewImage(t.ctx.Driver, t.ctx.Device, ImageSpec{
		Extent: gfx.Extent3D{Width: w, Height: h, Depth: d},
		Format: format,
		Tiling: tiling,
		Usage:  usage,
		Props:  props,
	}, t.allocator)
}

// staging creates a host visible buffer holding src.
func (t *TransferEngine) staging(src []byte) (Buffer, error) {
	buf, err := t.AllocateBuffer(uint(len(src)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible)
	if err != nil {
		return Buffer{}, err
	}
	if err := buf.Mem().Write(src); err != nil {
		buf.Release()
		return Buffer{}, err
	}
	return buf, nil
}

// UploadToDeviceLocal copies src into dst through a staging buffer
// that lives only for the duration of the call.
func (t *TransferEngine) UploadToDeviceLocal(src []byte, dst vk.Buffer) error {
	if len(src) == 0 {
		return nil
	}
	stage, err := t.staging(src)
	if err != nil {
		return err
	}
	defer stage.Release()
	return t.CopyBuffer(stage.Get(), dst, vk.DeviceSize(len(src)))
}

// CopyBuffer copies size bytes from src to dst and waits for completion.
func (t *TransferEngine) CopyBuffer(src, dst vk.Buffer, size vk.DeviceSize) error {
	cmd, err := t.beginSingleTimeCommands()
	if err != nil {
		return err
	}
	t.ctx.Driver.CmdCopyBuffer(cmd, src, dst, []vk.BufferCopy{{Size: size}})
	return t.endSingleTimeCommands(cmd)
}

// CopyBufferToImage copies tightly packed texels into the color aspect
// of an image in transfer destination layout.
func (t *TransferEngine) CopyBufferToImage(src vk.Buffer, dst vk.Image, width, height uint32) error {
	cmd, err := t.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	bic := vk.BufferImageCopy{
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	t.ctx.Driver.CmdCopyBufferToImage(cmd, src, dst, vk.ImageLayoutTransferDstOptimal, []vk.BufferImageCopy{bic})
	return t.endSingleTimeCommands(cmd)
}

// UploadImage stages pixels and leaves image ready for sampling.
func (t *TransferEngine) UploadImage(pixels gfx.Pixels, image *Image) error {
	if len(pixels.Data) < pixels.Size() {
		return errors.Errorf("texture holds %d bytes, %dx%d needs %d", len(pixels.Data), pixels.Width, pixels.Height, pixels.Size())
	}
	stage, err := t.staging(pixels.Data[:pixels.Size()])
	if err != nil {
		return err
	}
	defer stage.Release()

	if err := t.TransitionImageLayout(image.Get(), image.Format(), vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	if err := t.CopyBufferToImage(stage.Get(), image.Get(), pixels.Width, pixels.Height); err != nil {
		return err
	}
	return t.TransitionImageLayout(image.Get(), image.Format(), vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
}

// transition is one row of the supported layout transition table.
type transition struct {
	srcAccess, dstAccess vk.AccessFlags
	srcStage, dstStage   vk.PipelineStageFlags
	aspect               vk.ImageAspectFlags
}

func layoutTransition(old, new vk.ImageLayout, format vk.Format) (transition, error) {
	if old == vk.ImageLayoutUndefined && new == vk.ImageLayoutTransferDstOptimal {
		return transition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			aspect:    vk.ImageAspectFlags(vk.ImageAspectColorBit),
		}, nil
	} else if old == vk.ImageLayoutTransferDstOptimal && new == vk.ImageLayoutShaderReadOnlyOptimal {
		return transition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			aspect:    vk.ImageAspectFlags(vk.ImageAspectColorBit),
		}, nil
	} else if old == vk.ImageLayoutUndefined && new == vk.ImageLayoutDepthStencilAttachmentOptimal {
		aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		if hasStencil(format) {
			aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}
		return transition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
			aspect:    aspect,
		}, nil
	}
	return transition{}, errors.WithStack(ErrUnsupportedTransition)
}

func hasStencil(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}

// TransitionImageLayout moves image between two layouts of the
// supported table. Any other pair fails before touching the device.
func (t *TransferEngine) TransitionImageLayout(img vk.Image, format vk.Format, old, new vk.ImageLayout) error {
	tr, err := layoutTransition(old, new, format)
	if err != nil {
		return err
	}

	cmd, err := t.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           old,
		NewLayout:           new,
		SrcAccessMask:       tr.srcAccess,
		DstAccessMask:       tr.dstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     tr.aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	t.ctx.Driver.CmdPipelineBarrier(cmd, tr.srcStage, tr.dstStage, nil, []vk.ImageMemoryBarrier{barrier})
	return t.endSingleTimeCommands(cmd)
}

func (t *TransferEngine) beginSingleTimeCommands() (vk.CommandBuffer, error) {
	d := t.ctx.Driver
	cbs, err := d.AllocateCommandBuffers(t.ctx.Device, t.ctx.CommandPool, 1)
	if err != nil {
		return nil, err
	}
	if err := d.BeginCommandBuffer(cbs[0], vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)); err != nil {
		d.FreeCommandBuffers(t.ctx.Device, t.ctx.CommandPool, cbs)
		return nil, err
	}
	return cbs[0], nil
}

func (t *TransferEngine) endSingleTimeCommands(cmd vk.CommandBuffer) error {
	d := t.ctx.Driver
	defer d.FreeCommandBuffers(t.ctx.Device, t.ctx.CommandPool, []vk.CommandBuffer{cmd})

	if err := d.EndCommandBuffer(cmd); err != nil {
		return err
	}

	si := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if err := d.QueueSubmit(t.ctx.GraphicsQueue, []vk.SubmitInfo{si}, vk.NullFence); err != nil {
		return err
	}
	return d.QueueWaitIdle(t.ctx.GraphicsQueue)
}
