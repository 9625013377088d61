// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
)

// Driver is the set of Vulkan entry points the renderer relies on.
// Count/slice call pairs are folded into single calls, and every
// struct returned through an out pointer is already dereferenced.
type Driver interface {
	EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error)
	PhysicalDeviceName(pd vk.PhysicalDevice) string
	DeviceExtensions(pd vk.PhysicalDevice) ([]string, error)
	QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties
	SurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, error)
	SurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error)
	SurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error)
	PresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error)
	Features(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures
	MemoryProperties(pd vk.PhysicalDevice) MemoryTable
	FormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties

	CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error)
	DestroyDevice(dev vk.Device)
	DeviceQueue(dev vk.Device, family uint32) vk.Queue
	DeviceWaitIdle(dev vk.Device) error
	DestroySurface(instance vk.Instance, surface vk.Surface)

	CreateCommandPool(dev vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, error)
	DestroyCommandPool(dev vk.Device, pool vk.CommandPool)
	AllocateCommandBuffers(dev vk.Device, pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error)
	FreeCommandBuffers(dev vk.Device, pool vk.CommandPool, cbs []vk.CommandBuffer)
	BeginCommandBuffer(cb vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error
	EndCommandBuffer(cb vk.CommandBuffer) error

	CreateBuffer(dev vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error)
	DestroyBuffer(dev vk.Device, buffer vk.Buffer)
	BufferMemoryRequirements(dev vk.Device, buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(dev vk.Device, buffer vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) error
	CreateImage(dev vk.Device, info *vk.ImageCreateInfo) (vk.Image, error)
	DestroyImage(dev vk.Device, image vk.Image)
	ImageMemoryRequirements(dev vk.Device, image vk.Image) vk.MemoryRequirements
	BindImageMemory(dev vk.Device, image vk.Image, mem vk.DeviceMemory, offset vk.DeviceSize) error
	AllocateMemory(dev vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error)
	FreeMemory(dev vk.Device, mem vk.DeviceMemory)
	MapMemory(dev vk.Device, mem vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, error)
	UnmapMemory(dev vk.Device, mem vk.DeviceMemory)

	CreateImageView(dev vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(dev vk.Device, view vk.ImageView)
	CreateSampler(dev vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error)
	DestroySampler(dev vk.Device, sampler vk.Sampler)

	CreateSwapchain(dev vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	DestroySwapchain(dev vk.Device, swapchain vk.Swapchain)
	SwapchainImages(dev vk.Device, swapchain vk.Swapchain) ([]vk.Image, error)
	CreateFramebuffer(dev vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error)
	DestroyFramebuffer(dev vk.Device, fb vk.Framebuffer)
	CreateRenderPass(dev vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error)
	DestroyRenderPass(dev vk.Device, rp vk.RenderPass)

	CreateDescriptorSetLayout(dev vk.Device, info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(dev vk.Device, layout vk.DescriptorSetLayout)
	CreateDescriptorPool(dev vk.Device, info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error)
	DestroyDescriptorPool(dev vk.Device, pool vk.DescriptorPool)
	AllocateDescriptorSet(dev vk.Device, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error)
	UpdateDescriptorSets(dev vk.Device, writes []vk.WriteDescriptorSet)

	CreatePipelineLayout(dev vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(dev vk.Device, layout vk.PipelineLayout)
	CreatePipelineCache(dev vk.Device) (vk.PipelineCache, error)
	DestroyPipelineCache(dev vk.Device, cache vk.PipelineCache)
	CreateGraphicsPipeline(dev vk.Device, cache vk.PipelineCache, info vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error)
	DestroyPipeline(dev vk.Device, pipeline vk.Pipeline)
	CreateShaderModule(dev vk.Device, code []byte) (vk.ShaderModule, error)
	DestroyShaderModule(dev vk.Device, module vk.ShaderModule)

	CreateSemaphore(dev vk.Device) (vk.Semaphore, error)
	DestroySemaphore(dev vk.Device, sem vk.Semaphore)
	CreateFence(dev vk.Device, signaled bool) (vk.Fence, error)
	DestroyFence(dev vk.Device, fence vk.Fence)
	WaitForFence(dev vk.Device, fence vk.Fence, timeout uint64) error
	ResetFence(dev vk.Device, fence vk.Fence) error

	AcquireNextImage(dev vk.Device, swapchain vk.Swapchain, timeout uint64, sem vk.Semaphore) (uint32, vk.Result)
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error
	QueueWaitIdle(queue vk.Queue) error
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result

	CmdPipelineBarrier(cb vk.CommandBuffer, src, dst vk.PipelineStageFlags, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier)
	CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
	CmdCopyBufferToImage(cb vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy)
	CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo)
	CmdEndRenderPass(cb vk.CommandBuffer)
	CmdBindPipeline(cb vk.CommandBuffer, pipeline vk.Pipeline)
	CmdSetViewport(cb vk.CommandBuffer, viewport vk.Viewport)
	CmdSetScissor(cb vk.CommandBuffer, scissor vk.Rect2D)
	CmdBindDescriptorSets(cb vk.CommandBuffer, layout vk.PipelineLayout, first uint32, sets []vk.DescriptorSet)
	CmdBindVertexBuffers(cb vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}

// NewDriver returns the Driver backed by the loaded Vulkan library.
// vk.Init and vk.InitInstance must have been called beforehand.
func NewDriver() Driver {
	return vulkanDriver{}
}

type vulkanDriver struct{}

func (vulkanDriver) EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := check("EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check("EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return nil, err
	}
	return devices[:count], nil
}

func (vulkanDriver) PhysicalDeviceName(pd vk.PhysicalDevice) string {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	return vk.ToString(props.DeviceName[:])
}

func (vulkanDriver) DeviceExtensions(pd vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := check("EnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := check("EnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd, "", &count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, ext := range props[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

func (vulkanDriver) QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)
	for idx := range families {
		families[idx].Deref()
	}
	return families
}

func (vulkanDriver) SurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, error) {
	var supported vk.Bool32
	if err := check("GetPhysicalDeviceSurfaceSupport", vk.GetPhysicalDeviceSurfaceSupport(pd, family, surface, &supported)); err != nil {
		return false, err
	}
	return supported.B(), nil
}

func (vulkanDriver) SurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := check("GetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &caps)); err != nil {
		return vk.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

func (vulkanDriver) SurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := check("GetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := check("GetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, formats)); err != nil {
		return nil, err
	}
	for idx := range formats {
		formats[idx].Deref()
	}
	return formats[:count], nil
}

func (vulkanDriver) PresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	if err := check("GetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, nil)); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if err := check("GetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, modes)); err != nil {
		return nil, err
	}
	return modes[:count], nil
}

func (vulkanDriver) Features(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()
	return features
}

func (vulkanDriver) MemoryProperties(pd vk.PhysicalDevice) MemoryTable {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &props)
	props.Deref()

	var table MemoryTable
	for idx := uint32(0); idx < props.MemoryTypeCount; idx++ {
		props.MemoryTypes[idx].Deref()
		table.Types = append(table.Types, MemoryType{
			Flags: props.MemoryTypes[idx].PropertyFlags,
			Heap:  props.MemoryTypes[idx].HeapIndex,
		})
	}
	for idx := uint32(0); idx < props.MemoryHeapCount; idx++ {
		props.MemoryHeaps[idx].Deref()
		table.Heaps = append(table.Heaps, uint64(props.MemoryHeaps[idx].Size))
	}
	return table
}

func (vulkanDriver) FormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(pd, format, &props)
	props.Deref()
	return props
}

func (vulkanDriver) CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error) {
	var dev vk.Device
	if err := check("CreateDevice", vk.CreateDevice(pd, info, nil, &dev)); err != nil {
		return nil, err
	}
	return dev, nil
}

func (vulkanDriver) DestroyDevice(dev vk.Device) {
	vk.DestroyDevice(dev, nil)
}

func (vulkanDriver) DeviceQueue(dev vk.Device, family uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(dev, family, 0, &queue)
	return queue
}

func (vulkanDriver) DeviceWaitIdle(dev vk.Device) error {
	return check("DeviceWaitIdle", vk.DeviceWaitIdle(dev))
}

func (vulkanDriver) DestroySurface(instance vk.Instance, surface vk.Surface) {
	vk.DestroySurface(instance, surface, nil)
}

func (vulkanDriver) CreateCommandPool(dev vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	var pool vk.CommandPool
	if err := check("CreateCommandPool", vk.CreateCommandPool(dev, info, nil, &pool)); err != nil {
		return vk.NullCommandPool, err
	}
	return pool, nil
}

func (vulkanDriver) DestroyCommandPool(dev vk.Device, pool vk.CommandPool) {
	vk.DestroyCommandPool(dev, pool, nil)
}

func (vulkanDriver) AllocateCommandBuffers(dev vk.Device, pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	cbs := make([]vk.CommandBuffer, count)
	if err := check("AllocateCommandBuffers", vk.AllocateCommandBuffers(dev, &cbai, cbs)); err != nil {
		return nil, err
	}
	return cbs, nil
}

func (vulkanDriver) FreeCommandBuffers(dev vk.Device, pool vk.CommandPool, cbs []vk.CommandBuffer) {
	if len(cbs) == 0 {
		return
	}
	vk.FreeCommandBuffers(dev, pool, uint32(len(cbs)), cbs)
}

func (vulkanDriver) BeginCommandBuffer(cb vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error {
	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: flags,
	}
	return check("BeginCommandBuffer", vk.BeginCommandBuffer(cb, &cbbi))
}

func (vulkanDriver) EndCommandBuffer(cb vk.CommandBuffer) error {
	return check("EndCommandBuffer", vk.EndCommandBuffer(cb))
}

func (vulkanDriver) CreateBuffer(dev vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error) {
	var buffer vk.Buffer
	if err := check("CreateBuffer", vk.CreateBuffer(dev, info, nil, &buffer)); err != nil {
		return vk.NullBuffer, err
	}
	return buffer, nil
}

func (vulkanDriver) DestroyBuffer(dev vk.Device, buffer vk.Buffer) {
	vk.DestroyBuffer(dev, buffer, nil)
}

func (vulkanDriver) BufferMemoryRequirements(dev vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buffer, &req)
	req.Deref()
	return req
}

func (vulkanDriver) BindBufferMemory(dev vk.Device, buffer vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) error {
	return check("BindBufferMemory", vk.BindBufferMemory(dev, buffer, mem, offset))
}

func (vulkanDriver) CreateImage(dev vk.Device, info *vk.ImageCreateInfo) (vk.Image, error) {
	var image vk.Image
	if err := check("CreateImage", vk.CreateImage(dev, info, nil, &image)); err != nil {
		return vk.NullImage, err
	}
	return image, nil
}

func (vulkanDriver) DestroyImage(dev vk.Device, image vk.Image) {
	vk.DestroyImage(dev, image, nil)
}

func (vulkanDriver) ImageMemoryRequirements(dev vk.Device, image vk.Image) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dev, image, &req)
	req.Deref()
	return req
}

func (vulkanDriver) BindImageMemory(dev vk.Device, image vk.Image, mem vk.DeviceMemory, offset vk.DeviceSize) error {
	return check("BindImageMemory", vk.BindImageMemory(dev, image, mem, offset))
}

func (vulkanDriver) AllocateMemory(dev vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error) {
	var mem vk.DeviceMemory
	if err := check("AllocateMemory", vk.AllocateMemory(dev, info, nil, &mem)); err != nil {
		return vk.NullDeviceMemory, err
	}
	return mem, nil
}

func (vulkanDriver) FreeMemory(dev vk.Device, mem vk.DeviceMemory) {
	vk.FreeMemory(dev, mem, nil)
}

func (vulkanDriver) MapMemory(dev vk.Device, mem vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, error) {
	var mapped unsafe.Pointer
	if err := check("MapMemory", vk.MapMemory(dev, mem, offset, size, 0, &mapped)); err != nil {
		return nil, err
	}
	return mapped, nil
}

func (vulkanDriver) UnmapMemory(dev vk.Device, mem vk.DeviceMemory) {
	vk.UnmapMemory(dev, mem)
}

func (vulkanDriver) CreateImageView(dev vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	if err := check("CreateImageView", vk.CreateImageView(dev, info, nil, &view)); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

func (vulkanDriver) DestroyImageView(dev vk.Device, view vk.ImageView) {
	vk.DestroyImageView(dev, view, nil)
}

func (vulkanDriver) CreateSampler(dev vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	var sampler vk.Sampler
	if err := check("CreateSampler", vk.CreateSampler(dev, info, nil, &sampler)); err != nil {
		return nil, err
	}
	return sampler, nil
}

func (vulkanDriver) DestroySampler(dev vk.Device, sampler vk.Sampler) {
	vk.DestroySampler(dev, sampler, nil)
}

func (vulkanDriver) CreateSwapchain(dev vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	if err := check("CreateSwapchain", vk.CreateSwapchain(dev, info, nil, &swapchain)); err != nil {
		return vk.NullSwapchain, err
	}
	return swapchain, nil
}

func (vulkanDriver) DestroySwapchain(dev vk.Device, swapchain vk.Swapchain) {
	vk.DestroySwapchain(dev, swapchain, nil)
}

func (vulkanDriver) SwapchainImages(dev vk.Device, swapchain vk.Swapchain) ([]vk.Image, error) {
	var count uint32
	if err := check("GetSwapchainImages", vk.GetSwapchainImages(dev, swapchain, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := check("GetSwapchainImages", vk.GetSwapchainImages(dev, swapchain, &count, images)); err != nil {
		return nil, err
	}
	return images[:count], nil
}

func (vulkanDriver) CreateFramebuffer(dev vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var fb vk.Framebuffer
	if err := check("CreateFramebuffer", vk.CreateFramebuffer(dev, info, nil, &fb)); err != nil {
		return vk.NullFramebuffer, err
	}
	return fb, nil
}

func (vulkanDriver) DestroyFramebuffer(dev vk.Device, fb vk.Framebuffer) {
	vk.DestroyFramebuffer(dev, fb, nil)
}

func (vulkanDriver) CreateRenderPass(dev vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var rp vk.RenderPass
	if err := check("CreateRenderPass", vk.CreateRenderPass(dev, info, nil, &rp)); err != nil {
		return vk.NullRenderPass, err
	}
	return rp, nil
}

func (vulkanDriver) DestroyRenderPass(dev vk.Device, rp vk.RenderPass) {
	vk.DestroyRenderPass(dev, rp, nil)
}

func (vulkanDriver) CreateDescriptorSetLayout(dev vk.Device, info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	var layout vk.DescriptorSetLayout
	if err := check("CreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(dev, info, nil, &layout)); err != nil {
		return nil, err
	}
	return layout, nil
}

func (vulkanDriver) DestroyDescriptorSetLayout(dev vk.Device, layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(dev, layout, nil)
}

func (vulkanDriver) CreateDescriptorPool(dev vk.Device, info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	var pool vk.DescriptorPool
	if err := check("CreateDescriptorPool", vk.CreateDescriptorPool(dev, info, nil, &pool)); err != nil {
		return nil, err
	}
	return pool, nil
}

func (vulkanDriver) DestroyDescriptorPool(dev vk.Device, pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(dev, pool, nil)
}

func (vulkanDriver) AllocateDescriptorSet(dev vk.Device, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	if err := check("AllocateDescriptorSets", vk.AllocateDescriptorSets(dev, &dsai, &set)); err != nil {
		return nil, err
	}
	return set, nil
}

func (vulkanDriver) UpdateDescriptorSets(dev vk.Device, writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(dev, uint32(len(writes)), writes, 0, nil)
}

func (vulkanDriver) CreatePipelineLayout(dev vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	if err := check("CreatePipelineLayout", vk.CreatePipelineLayout(dev, info, nil, &layout)); err != nil {
		return vk.NullPipelineLayout, err
	}
	return layout, nil
}

func (vulkanDriver) DestroyPipelineLayout(dev vk.Device, layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(dev, layout, nil)
}

func (vulkanDriver) CreatePipelineCache(dev vk.Device) (vk.PipelineCache, error) {
	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var cache vk.PipelineCache
	if err := check("CreatePipelineCache", vk.CreatePipelineCache(dev, &pcci, nil, &cache)); err != nil {
		return nil, err
	}
	return cache, nil
}

func (vulkanDriver) DestroyPipelineCache(dev vk.Device, cache vk.PipelineCache) {
	vk.DestroyPipelineCache(dev, cache, nil)
}

func (vulkanDriver) CreateGraphicsPipeline(dev vk.Device, cache vk.PipelineCache, info vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	if err := check("CreateGraphicsPipelines", vk.CreateGraphicsPipelines(dev, cache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)); err != nil {
		return vk.NullPipeline, err
	}
	return pipelines[0], nil
}

func (vulkanDriver) DestroyPipeline(dev vk.Device, pipeline vk.Pipeline) {
	vk.DestroyPipeline(dev, pipeline, nil)
}

func (vulkanDriver) CreateShaderModule(dev vk.Device, code []byte) (vk.ShaderModule, error) {
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    SliceUint32(code),
	}
	var module vk.ShaderModule
	if err := check("CreateShaderModule", vk.CreateShaderModule(dev, &smci, nil, &module)); err != nil {
		return vk.NullShaderModule, err
	}
	return module, nil
}

func (vulkanDriver) DestroyShaderModule(dev vk.Device, module vk.ShaderModule) {
	vk.DestroyShaderModule(dev, module, nil)
}

func (vulkanDriver) CreateSemaphore(dev vk.Device) (vk.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var sem vk.Semaphore
	if err := check("CreateSemaphore", vk.CreateSemaphore(dev, &sci, nil, &sem)); err != nil {
		return vk.NullSemaphore, err
	}
	return sem, nil
}

func (vulkanDriver) DestroySemaphore(dev vk.Device, sem vk.Semaphore) {
	vk.DestroySemaphore(dev, sem, nil)
}

func (vulkanDriver) CreateFence(dev vk.Device, signaled bool) (vk.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := check("CreateFence", vk.CreateFence(dev, &fci, nil, &fence)); err != nil {
		return vk.NullFence, err
	}
	return fence, nil
}

func (vulkanDriver) DestroyFence(dev vk.Device, fence vk.Fence) {
	vk.DestroyFence(dev, fence, nil)
}

func (vulkanDriver) WaitForFence(dev vk.Device, fence vk.Fence, timeout uint64) error {
	return check("WaitForFences", vk.WaitForFences(dev, 1, []vk.Fence{fence}, vk.True, uint(timeout)))
}

func (vulkanDriver) ResetFence(dev vk.Device, fence vk.Fence) error {
	return check("ResetFences", vk.ResetFences(dev, 1, []vk.Fence{fence}))
}

func (vulkanDriver) AcquireNextImage(dev vk.Device, swapchain vk.Swapchain, timeout uint64, sem vk.Semaphore) (uint32, vk.Result) {
	var idx uint32
	ret := vk.AcquireNextImage(dev, swapchain, uint(timeout), sem, vk.NullFence, &idx)
	return idx, ret
}

func (vulkanDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	return check("QueueSubmit", vk.QueueSubmit(queue, uint32(len(submits)), submits, fence))
}

func (vulkanDriver) QueueWaitIdle(queue vk.Queue) error {
	return check("QueueWaitIdle", vk.QueueWaitIdle(queue))
}

func (vulkanDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (vulkanDriver) CmdPipelineBarrier(cb vk.CommandBuffer, src, dst vk.PipelineStageFlags, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cb, src, dst, 0, 0, nil, uint32(len(buffers)), buffers, uint32(len(images)), images)
}

func (vulkanDriver) CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cb, src, dst, uint32(len(regions)), regions)
}

func (vulkanDriver) CmdCopyBufferToImage(cb vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cb, src, dst, layout, uint32(len(regions)), regions)
}

func (vulkanDriver) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(cb, info, vk.SubpassContentsInline)
}

func (vulkanDriver) CmdEndRenderPass(cb vk.CommandBuffer) {
	vk.CmdEndRenderPass(cb)
}

func (vulkanDriver) CmdBindPipeline(cb vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, pipeline)
}

func (vulkanDriver) CmdSetViewport(cb vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{viewport})
}

func (vulkanDriver) CmdSetScissor(cb vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{scissor})
}

func (vulkanDriver) CmdBindDescriptorSets(cb vk.CommandBuffer, layout vk.PipelineLayout, first uint32, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, layout, first, uint32(len(sets)), sets, 0, nil)
}

func (vulkanDriver) CmdBindVertexBuffers(cb vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cb, 0, uint32(len(buffers)), buffers, offsets)
}

func (vulkanDriver) CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cb, buffer, offset, indexType)
}

func (vulkanDriver) CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cb, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
