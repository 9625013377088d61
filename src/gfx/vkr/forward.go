// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Camera supplies the view and projection for a given aspect ratio.
type Camera interface {
	ViewProjection(aspect float32) (view, projection glm.Mat4)
}

// NewForwardPass records single pass color and depth draws of every
// registry object with pipeline.
func NewForwardPass(ctx *DeviceContext, rp vk.RenderPass, pipeline *Pipeline, registry *ResourceRegistry, camera Camera) *ForwardPass {
	return &ForwardPass{
		ctx:        ctx,
		renderPass: rp,
		pipeline:   pipeline,
		registry:   registry,
		camera:     camera,
		clear:      [4]float32{0, 0, 0, 1},
	}
}

// ForwardPass is the Recorder of the forward renderer.
type ForwardPass struct {
	ctx        *DeviceContext
	renderPass vk.RenderPass
	pipeline   *Pipeline
	registry   *ResourceRegistry
	camera     Camera
	clear      [4]float32
}

// SetClearColor changes the color attachment clear value. Command
// buffers pick it up on their next recording.
func (f *ForwardPass) SetClearColor(r, g, b, a float32) {
	f.clear = [4]float32{r, g, b, a}
}

// Prepare writes the uniforms of the slot read by image. The fence of
// image must have signaled.
func (f *ForwardPass) Prepare(image int, state *SwapchainState) error {
	aspect := float32(1)
	if state.Extent.Height != 0 {
		aspect = float32(state.Extent.Width) / float32(state.Extent.Height)
	}
	view, projection := f.camera.ViewProjection(aspect)
	return f.registry.UpdateUniforms(image, view, projection)
}

// Record fills cb with the draw commands for framebuffer image.
func (f *ForwardPass) Record(cb vk.CommandBuffer, image int, state *SwapchainState) error {
	d := f.ctx.Driver
	if err := f.registry.Reserve(state.Len()); err != nil {
		return err
	}
	if err := d.BeginCommandBuffer(cb, vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)); err != nil {
		return err
	}

	if err := f.registry.RecordUniformCopies(cb, image); err != nil {
		return err
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(f.clear[:])
	clearValues[1].SetDepthStencil(1, 0)

	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  f.renderPass,
		Framebuffer: state.Framebuffers[image],
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: state.Extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	d.CmdBeginRenderPass(cb, &rpbi)
	d.CmdBindPipeline(cb, f.pipeline.Get())
	d.CmdSetViewport(cb, vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(state.Extent.Width),
		Height:   float32(state.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	d.CmdSetScissor(cb, vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: state.Extent,
	})
	d.CmdBindDescriptorSets(cb, f.pipeline.Layout(), 0, []vk.DescriptorSet{f.registry.CommonSet()})

	for _, obj := range f.registry.Objects() {
		d.CmdBindVertexBuffers(cb, []vk.Buffer{obj.vertices.Get()}, []vk.DeviceSize{0})
		d.CmdBindIndexBuffer(cb, obj.indices.Get(), 0, vk.IndexTypeUint32)
		d.CmdBindDescriptorSets(cb, f.pipeline.Layout(), 1, []vk.DescriptorSet{obj.Set(image)})
		d.CmdDrawIndexed(cb, obj.indexCount, 1, 0, 0, 0)
	}

	d.CmdEndRenderPass(cb)
	return d.EndCommandBuffer(cb)
}
