// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/vkscene/src/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// NewRenderPass creates the single subpass color and depth render pass.
func NewRenderPass(ctx *DeviceContext, color, depth vk.Format) (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{
		{
			Format:         color,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         depth,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		SrcAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit |
			vk.AccessDepthStencilAttachmentWriteBit),
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRef)),
		PColorAttachments:       colorRef,
		PDepthStencilAttachment: &depthRef,
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	return ctx.Driver.CreateRenderPass(ctx.Device, &rpci)
}

// ShaderSource is a compiled SPIR-V blob for one stage.
type ShaderSource struct {
	Stage      gfx.ShaderStage
	EntryPoint string
	Code       []byte
}

func stageBit(stage gfx.ShaderStage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case gfx.StageVertex:
		return vk.ShaderStageVertexBit, nil
	case gfx.StageTessellationControl:
		return vk.ShaderStageTessellationControlBit, nil
	case gfx.StageTessellationEvaluation:
		return vk.ShaderStageTessellationEvaluationBit, nil
	case gfx.StageGeometry:
		return vk.ShaderStageGeometryBit, nil
	case gfx.StageFragment:
		return vk.ShaderStageFragmentBit, nil
	}
	return 0, errors.Errorf("shader stage %s cannot be part of a graphics pipeline", stage)
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(gfx.Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(gfx.Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(gfx.Vertex{}.Color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(gfx.Vertex{}.TexCoord)),
		},
	}
}

// Pipeline is the forward graphics pipeline with its layout and cache.
type Pipeline struct {
	ctx    *DeviceContext
	cache  vk.PipelineCache
	layout vk.PipelineLayout
	handle vk.Pipeline
}

// NewPipeline creates the pipeline layout over setLayouts and the
// graphics pipeline for the given stages. Viewport and scissor are
// dynamic, so the pipeline outlives swapchain rebuilds.
func NewPipeline(ctx *DeviceContext, rp vk.RenderPass, setLayouts []vk.DescriptorSetLayout, shaders []ShaderSource) (*Pipeline, error) {
	d, dev := ctx.Driver, ctx.Device
	cache, err := d.CreatePipelineCache(dev)
	if err != nil {
		return nil, err
	}

	plci := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	layout, err := d.CreatePipelineLayout(dev, &plci)
	if err != nil {
		d.DestroyPipelineCache(dev, cache)
		return nil, err
	}

	p := &Pipeline{ctx: ctx, cache: cache, layout: layout}
	if err := p.Rebuild(rp, shaders); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

// Layout returns the pipeline layout.
func (p *Pipeline) Layout() vk.PipelineLayout {
	return p.layout
}

// Get returns the pipeline handle.
func (p *Pipeline) Get() vk.Pipeline {
	return p.handle
}

// Rebuild replaces the graphics pipeline with one built from shaders.
// The current pipeline is kept when building fails. The caller ensures
// the device is idle.
func (p *Pipeline) Rebuild(rp vk.RenderPass, shaders []ShaderSource) error {
	d, dev := p.ctx.Driver, p.ctx.Device

	if len(shaders) == 0 {
		return errors.New("pipeline has no shader stages")
	}

	var modules []vk.ShaderModule
	defer func() {
		for _, m := range modules {
			d.DestroyShaderModule(dev, m)
		}
	}()

	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(shaders))
	for _, s := range shaders {
		bit, err := stageBit(s.Stage)
		if err != nil {
			return err
		}
		module, err := d.CreateShaderModule(dev, s.Code)
		if err != nil {
			return err
		}
		modules = append(modules, module)

		entry := s.EntryPoint
		if entry == "" {
			entry = "main"
		}
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  bit,
			Module: module,
			PName:  SafeString(entry),
		})
	}

	vertexAttributeDescriptions := VertexAttributeDescriptions()
	vertexBindingDescriptions := VertexBindingDescriptions()

	gpci := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexAttributeDescriptionCount: uint32(len(vertexAttributeDescriptions)),
			PVertexAttributeDescriptions:    vertexAttributeDescriptions,
			VertexBindingDescriptionCount:   uint32(len(vertexBindingDescriptions)),
			PVertexBindingDescriptions:      vertexBindingDescriptions,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vk.True,
			DepthWriteEnable:      vk.True,
			DepthCompareOp:        vk.CompareOpLess,
			DepthBoundsTestEnable: vk.False,
			StencilTestEnable:     vk.False,
			Back: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
			Front: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     p.layout,
		RenderPass: rp,
	}

	pipeline, err := d.CreateGraphicsPipeline(dev, p.cache, gpci)
	if err != nil {
		return err
	}
	if p.handle != vk.NullPipeline {
		d.DestroyPipeline(dev, p.handle)
	}
	p.handle = pipeline
	return nil
}

// Destroy releases the pipeline, its layout and cache.
func (p *Pipeline) Destroy() {
	d, dev := p.ctx.Driver, p.ctx.Device
	if p.handle != vk.NullPipeline {
		d.DestroyPipeline(dev, p.handle)
		p.handle = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		d.DestroyPipelineLayout(dev, p.layout)
		p.layout = vk.NullPipelineLayout
	}
	if p.cache != nil {
		d.DestroyPipelineCache(dev, p.cache)
		p.cache = nil
	}
}
