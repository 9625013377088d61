// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"io/ioutil"
	"strings"
	"unsafe"

	vk "github.com/devblok/vulkan"
	"github.com/sirupsen/logrus"
)

// mint creates a unique non-null handle of any Vulkan handle type.
// The id is stored in the pointer bits, never dereferenced.
func mint[T any](f *fakeDriver, kind string) T {
	f.next++
	f.live[f.next] = kind
	p := unsafe.Pointer(uintptr(f.next))
	return *(*T)(unsafe.Pointer(&p))
}

// idOf returns the id a handle was minted with, 0 for null handles.
func idOf[T any](h T) uint64 {
	p := *(*unsafe.Pointer)(unsafe.Pointer(&h))
	return uint64(uintptr(p))
}

type fakeGPU struct {
	Name       string
	Extensions []string
	Families   []vk.QueueFamilyProperties
	Present    []bool
	Features   vk.PhysicalDeviceFeatures
	Formats    []vk.SurfaceFormat
	Modes      []vk.PresentMode
	Caps       vk.SurfaceCapabilities
	Memory     MemoryTable
	Depth      []vk.Format
}

func allFeatures() vk.PhysicalDeviceFeatures {
	return vk.PhysicalDeviceFeatures{
		GeometryShader:     vk.True,
		TessellationShader: vk.True,
		SamplerAnisotropy:  vk.True,
	}
}

func standardMemory() MemoryTable {
	return MemoryTable{
		Types: []MemoryType{
			{Flags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), Heap: 0},
			{Flags: hostVisible, Heap: 1},
		},
		Heaps: []uint64{256 << 20, 64 << 20},
	}
}

// goodGPU has a single family doing graphics and present, and a
// surface of fixed 1024x768 extent.
func goodGPU(name string) *fakeGPU {
	return &fakeGPU{
		Name:       name,
		Extensions: []string{vk.KhrSwapchainExtensionName},
		Families: []vk.QueueFamilyProperties{{
			QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueTransferBit),
			QueueCount: 1,
		}},
		Present:  []bool{true},
		Features: allFeatures(),
		Formats: []vk.SurfaceFormat{{
			Format:     vk.FormatB8g8r8a8Unorm,
			ColorSpace: vk.ColorSpaceSrgbNonlinear,
		}},
		Modes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		Caps: vk.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  3,
			CurrentExtent:  vk.Extent2D{Width: 1024, Height: 768},
			MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
		},
		Memory: standardMemory(),
		Depth:  []vk.Format{vk.FormatD32Sfloat},
	}
}

type fakeMemory struct {
	data   []byte
	mapped bool
}

// fakeDriver is a Driver keeping an ordered log of calls. Buffer
// copies recorded into command buffers are executed on submit, so
// uploads can be checked byte for byte.
type fakeDriver struct {
	next  uint64
	live  map[uint64]string
	calls []string

	gpus     []*fakeGPU
	physical map[uint64]*fakeGPU
	instance vk.Instance
	surface  vk.Surface

	swapchainImages int
	memory          map[uint64]*fakeMemory
	bufferSize      map[uint64]uint64
	imageSize       map[uint64]uint64
	bound           map[uint64]uint64
	recorded        map[uint64][]func()
	reads           map[uint64][]vk.Buffer
	pending         map[uint64]map[uint64][]byte
	queueInfos      []vk.DeviceQueueCreateInfo
	swapchainInfos  []vk.SwapchainCreateInfo
	renderPassBegin []vk.RenderPassBeginInfo
	draws           []uint32

	acquire     []vk.Result
	present     []vk.Result
	acquireNext uint32

	failCreatePipeline bool
	waitIdleErr        error
}

func newFakeDriver(gpus ...*fakeGPU) *fakeDriver {
	f := &fakeDriver{
		live:            make(map[uint64]string),
		physical:        make(map[uint64]*fakeGPU),
		memory:          make(map[uint64]*fakeMemory),
		bufferSize:      make(map[uint64]uint64),
		imageSize:       make(map[uint64]uint64),
		bound:           make(map[uint64]uint64),
		recorded:        make(map[uint64][]func()),
		reads:           make(map[uint64][]vk.Buffer),
		pending:         make(map[uint64]map[uint64][]byte),
		swapchainImages: 3,
		gpus:            gpus,
	}
	f.instance = mint[vk.Instance](f, "instance")
	f.surface = mint[vk.Surface](f, "surface")
	return f
}

func (f *fakeDriver) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDriver) destroy(call string, id uint64) {
	if id == 0 {
		return
	}
	delete(f.live, id)
	f.record("%s#%d", call, id)
}

// count returns how many logged calls start with prefix.
func (f *fakeDriver) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// index returns the position of the first logged call equal to call
// at or after from, or -1.
func (f *fakeDriver) index(call string, from int) int {
	for idx := from; idx < len(f.calls); idx++ {
		if f.calls[idx] == call {
			return idx
		}
	}
	return -1
}

// indexPrefix is index matching by prefix.
func (f *fakeDriver) indexPrefix(prefix string, from int) int {
	for idx := from; idx < len(f.calls); idx++ {
		if strings.HasPrefix(f.calls[idx], prefix) {
			return idx
		}
	}
	return -1
}

// liveKinds counts live objects of kind.
func (f *fakeDriver) liveKinds(kind string) int {
	n := 0
	for _, k := range f.live {
		if k == kind {
			n++
		}
	}
	return n
}

func (f *fakeDriver) gpu(pd vk.PhysicalDevice) *fakeGPU {
	return f.physical[idOf(pd)]
}

func (f *fakeDriver) EnumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var devices []vk.PhysicalDevice
	for _, g := range f.gpus {
		pd := mint[vk.PhysicalDevice](f, "physical")
		f.physical[idOf(pd)] = g
		devices = append(devices, pd)
	}
	return devices, nil
}

func (f *fakeDriver) PhysicalDeviceName(pd vk.PhysicalDevice) string {
	return f.gpu(pd).Name
}

func (f *fakeDriver) DeviceExtensions(pd vk.PhysicalDevice) ([]string, error) {
	return f.gpu(pd).Extensions, nil
}

func (f *fakeDriver) QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	return f.gpu(pd).Families
}

func (f *fakeDriver) SurfaceSupport(pd vk.PhysicalDevice, family uint32, surface vk.Surface) (bool, error) {
	return f.gpu(pd).Present[family], nil
}

func (f *fakeDriver) SurfaceCapabilities(pd vk.PhysicalDevice, surface vk.Surface) (vk.SurfaceCapabilities, error) {
	return f.gpu(pd).Caps, nil
}

func (f *fakeDriver) SurfaceFormats(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.SurfaceFormat, error) {
	return f.gpu(pd).Formats, nil
}

func (f *fakeDriver) PresentModes(pd vk.PhysicalDevice, surface vk.Surface) ([]vk.PresentMode, error) {
	return f.gpu(pd).Modes, nil
}

func (f *fakeDriver) Features(pd vk.PhysicalDevice) vk.PhysicalDeviceFeatures {
	return f.gpu(pd).Features
}

func (f *fakeDriver) MemoryProperties(pd vk.PhysicalDevice) MemoryTable {
	return f.gpu(pd).Memory
}

func (f *fakeDriver) FormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	for _, d := range f.gpu(pd).Depth {
		if d == format {
			return vk.FormatProperties{
				OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit),
			}
		}
	}
	return vk.FormatProperties{}
}

func (f *fakeDriver) CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error) {
	f.queueInfos = append([]vk.DeviceQueueCreateInfo(nil), info.PQueueCreateInfos...)
	dev := mint[vk.Device](f, "device")
	f.record("CreateDevice#%d", idOf(dev))
	return dev, nil
}

func (f *fakeDriver) DestroyDevice(dev vk.Device) {
	f.destroy("DestroyDevice", idOf(dev))
}

func (f *fakeDriver) DeviceQueue(dev vk.Device, family uint32) vk.Queue {
	return mint[vk.Queue](f, "queue")
}

func (f *fakeDriver) DeviceWaitIdle(dev vk.Device) error {
	f.pending = make(map[uint64]map[uint64][]byte)
	f.record("DeviceWaitIdle")
	return f.waitIdleErr
}

func (f *fakeDriver) DestroySurface(instance vk.Instance, surface vk.Surface) {
	f.destroy("DestroySurface", idOf(surface))
}

func (f *fakeDriver) CreateCommandPool(dev vk.Device, info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	return mint[vk.CommandPool](f, "commandPool"), nil
}

func (f *fakeDriver) DestroyCommandPool(dev vk.Device, pool vk.CommandPool) {
	f.destroy("DestroyCommandPool", idOf(pool))
}

func (f *fakeDriver) AllocateCommandBuffers(dev vk.Device, pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	cbs := make([]vk.CommandBuffer, count)
	for idx := range cbs {
		cbs[idx] = mint[vk.CommandBuffer](f, "commandBuffer")
	}
	f.record("AllocateCommandBuffers(%d)", count)
	return cbs, nil
}

func (f *fakeDriver) FreeCommandBuffers(dev vk.Device, pool vk.CommandPool, cbs []vk.CommandBuffer) {
	for _, cb := range cbs {
		delete(f.recorded, idOf(cb))
		delete(f.reads, idOf(cb))
		f.destroy("FreeCommandBuffer", idOf(cb))
	}
}

func (f *fakeDriver) BeginCommandBuffer(cb vk.CommandBuffer, flags vk.CommandBufferUsageFlags) error {
	f.recorded[idOf(cb)] = nil
	f.reads[idOf(cb)] = nil
	f.record("BeginCommandBuffer#%d", idOf(cb))
	return nil
}

func (f *fakeDriver) EndCommandBuffer(cb vk.CommandBuffer) error {
	f.record("EndCommandBuffer#%d", idOf(cb))
	return nil
}

func (f *fakeDriver) CreateBuffer(dev vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error) {
	b := mint[vk.Buffer](f, "buffer")
	f.bufferSize[idOf(b)] = uint64(info.Size)
	f.record("CreateBuffer#%d", idOf(b))
	return b, nil
}

func (f *fakeDriver) DestroyBuffer(dev vk.Device, buffer vk.Buffer) {
	f.destroy("DestroyBuffer", idOf(buffer))
}

func (f *fakeDriver) BufferMemoryRequirements(dev vk.Device, buffer vk.Buffer) vk.MemoryRequirements {
	size := f.bufferSize[idOf(buffer)]
	return vk.MemoryRequirements{
		Size:           vk.DeviceSize((size + 15) &^ 15),
		Alignment:      16,
		MemoryTypeBits: 0x3,
	}
}

func (f *fakeDriver) BindBufferMemory(dev vk.Device, buffer vk.Buffer, mem vk.DeviceMemory, offset vk.DeviceSize) error {
	f.bound[idOf(buffer)] = idOf(mem)
	return nil
}

func (f *fakeDriver) CreateImage(dev vk.Device, info *vk.ImageCreateInfo) (vk.Image, error) {
	img := mint[vk.Image](f, "image")
	f.imageSize[idOf(img)] = uint64(info.Extent.Width) * uint64(info.Extent.Height) * 4
	f.record("CreateImage#%d", idOf(img))
	return img, nil
}

func (f *fakeDriver) DestroyImage(dev vk.Device, image vk.Image) {
	f.destroy("DestroyImage", idOf(image))
}

func (f *fakeDriver) ImageMemoryRequirements(dev vk.Device, image vk.Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{
		Size:           vk.DeviceSize(f.imageSize[idOf(image)]),
		Alignment:      256,
		MemoryTypeBits: 0x1,
	}
}

func (f *fakeDriver) BindImageMemory(dev vk.Device, image vk.Image, mem vk.DeviceMemory, offset vk.DeviceSize) error {
	f.bound[idOf(image)] = idOf(mem)
	return nil
}

func (f *fakeDriver) AllocateMemory(dev vk.Device, info *vk.MemoryAllocateInfo) (vk.DeviceMemory, error) {
	mem := mint[vk.DeviceMemory](f, "memory")
	f.memory[idOf(mem)] = &fakeMemory{data: make([]byte, info.AllocationSize)}
	f.record("AllocateMemory#%d(type %d)", idOf(mem), info.MemoryTypeIndex)
	return mem, nil
}

func (f *fakeDriver) FreeMemory(dev vk.Device, mem vk.DeviceMemory) {
	f.destroy("FreeMemory", idOf(mem))
}

func (f *fakeDriver) MapMemory(dev vk.Device, mem vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, error) {
	m := f.memory[idOf(mem)]
	m.mapped = true
	f.record("MapMemory#%d", idOf(mem))
	return unsafe.Pointer(&m.data[offset]), nil
}

func (f *fakeDriver) UnmapMemory(dev vk.Device, mem vk.DeviceMemory) {
	f.memory[idOf(mem)].mapped = false
	f.record("UnmapMemory#%d", idOf(mem))
}

// bufferBytes returns the memory bound to buffer.
func (f *fakeDriver) bufferBytes(buffer vk.Buffer) []byte {
	m := f.memory[f.bound[idOf(buffer)]]
	if m == nil {
		return nil
	}
	return m.data
}

func (f *fakeDriver) CreateImageView(dev vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	return mint[vk.ImageView](f, "imageView"), nil
}

func (f *fakeDriver) DestroyImageView(dev vk.Device, view vk.ImageView) {
	f.destroy("DestroyImageView", idOf(view))
}

func (f *fakeDriver) CreateSampler(dev vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	return mint[vk.Sampler](f, "sampler"), nil
}

func (f *fakeDriver) DestroySampler(dev vk.Device, sampler vk.Sampler) {
	f.destroy("DestroySampler", idOf(sampler))
}

func (f *fakeDriver) CreateSwapchain(dev vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	f.swapchainInfos = append(f.swapchainInfos, *info)
	sc := mint[vk.Swapchain](f, "swapchain")
	f.record("CreateSwapchain#%d", idOf(sc))
	return sc, nil
}

func (f *fakeDriver) DestroySwapchain(dev vk.Device, swapchain vk.Swapchain) {
	f.destroy("DestroySwapchain", idOf(swapchain))
}

func (f *fakeDriver) SwapchainImages(dev vk.Device, swapchain vk.Swapchain) ([]vk.Image, error) {
	images := make([]vk.Image, f.swapchainImages)
	for idx := range images {
		images[idx] = mint[vk.Image](f, "swapchainImage")
	}
	return images, nil
}

func (f *fakeDriver) CreateFramebuffer(dev vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	return mint[vk.Framebuffer](f, "framebuffer"), nil
}

func (f *fakeDriver) DestroyFramebuffer(dev vk.Device, fb vk.Framebuffer) {
	f.destroy("DestroyFramebuffer", idOf(fb))
}

func (f *fakeDriver) CreateRenderPass(dev vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	return mint[vk.RenderPass](f, "renderPass"), nil
}

func (f *fakeDriver) DestroyRenderPass(dev vk.Device, rp vk.RenderPass) {
	f.destroy("DestroyRenderPass", idOf(rp))
}

func (f *fakeDriver) CreateDescriptorSetLayout(dev vk.Device, info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	return mint[vk.DescriptorSetLayout](f, "setLayout"), nil
}

func (f *fakeDriver) DestroyDescriptorSetLayout(dev vk.Device, layout vk.DescriptorSetLayout) {
	f.destroy("DestroyDescriptorSetLayout", idOf(layout))
}

func (f *fakeDriver) CreateDescriptorPool(dev vk.Device, info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	return mint[vk.DescriptorPool](f, "descriptorPool"), nil
}

func (f *fakeDriver) DestroyDescriptorPool(dev vk.Device, pool vk.DescriptorPool) {
	f.destroy("DestroyDescriptorPool", idOf(pool))
}

func (f *fakeDriver) AllocateDescriptorSet(dev vk.Device, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	set := mint[vk.DescriptorSet](f, "descriptorSet")
	delete(f.live, idOf(set))
	return set, nil
}

func (f *fakeDriver) UpdateDescriptorSets(dev vk.Device, writes []vk.WriteDescriptorSet) {
	f.record("UpdateDescriptorSets(%d)", len(writes))
}

func (f *fakeDriver) CreatePipelineLayout(dev vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	return mint[vk.PipelineLayout](f, "pipelineLayout"), nil
}

func (f *fakeDriver) DestroyPipelineLayout(dev vk.Device, layout vk.PipelineLayout) {
	f.destroy("DestroyPipelineLayout", idOf(layout))
}

func (f *fakeDriver) CreatePipelineCache(dev vk.Device) (vk.PipelineCache, error) {
	return mint[vk.PipelineCache](f, "pipelineCache"), nil
}

func (f *fakeDriver) DestroyPipelineCache(dev vk.Device, cache vk.PipelineCache) {
	f.destroy("DestroyPipelineCache", idOf(cache))
}

func (f *fakeDriver) CreateGraphicsPipeline(dev vk.Device, cache vk.PipelineCache, info vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	if f.failCreatePipeline {
		return vk.NullPipeline, check("CreateGraphicsPipelines", vk.ErrorInitializationFailed)
	}
	p := mint[vk.Pipeline](f, "pipeline")
	f.record("CreateGraphicsPipeline#%d", idOf(p))
	return p, nil
}

func (f *fakeDriver) DestroyPipeline(dev vk.Device, pipeline vk.Pipeline) {
	f.destroy("DestroyPipeline", idOf(pipeline))
}

func (f *fakeDriver) CreateShaderModule(dev vk.Device, code []byte) (vk.ShaderModule, error) {
	return mint[vk.ShaderModule](f, "shaderModule"), nil
}

func (f *fakeDriver) DestroyShaderModule(dev vk.Device, module vk.ShaderModule) {
	f.destroy("DestroyShaderModule", idOf(module))
}

func (f *fakeDriver) CreateSemaphore(dev vk.Device) (vk.Semaphore, error) {
	return mint[vk.Semaphore](f, "semaphore"), nil
}

func (f *fakeDriver) DestroySemaphore(dev vk.Device, sem vk.Semaphore) {
	f.destroy("DestroySemaphore", idOf(sem))
}

func (f *fakeDriver) CreateFence(dev vk.Device, signaled bool) (vk.Fence, error) {
	return mint[vk.Fence](f, "fence"), nil
}

func (f *fakeDriver) DestroyFence(dev vk.Device, fence vk.Fence) {
	delete(f.pending, idOf(fence))
	f.destroy("DestroyFence", idOf(fence))
}

func (f *fakeDriver) WaitForFence(dev vk.Device, fence vk.Fence, timeout uint64) error {
	delete(f.pending, idOf(fence))
	f.record("WaitForFence#%d", idOf(fence))
	return nil
}

func (f *fakeDriver) ResetFence(dev vk.Device, fence vk.Fence) error {
	f.record("ResetFence#%d", idOf(fence))
	return nil
}

func (f *fakeDriver) AcquireNextImage(dev vk.Device, swapchain vk.Swapchain, timeout uint64, sem vk.Semaphore) (uint32, vk.Result) {
	ret := vk.Success
	if len(f.acquire) > 0 {
		ret, f.acquire = f.acquire[0], f.acquire[1:]
	}
	f.record("AcquireNextImage")
	idx := f.acquireNext % uint32(f.swapchainImages)
	if ret == vk.Success || ret == vk.Suboptimal {
		f.acquireNext++
	}
	return idx, ret
}

func (f *fakeDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	for _, s := range submits {
		for _, cb := range s.PCommandBuffers {
			for _, op := range f.recorded[idOf(cb)] {
				op()
			}
			if idOf(fence) != 0 {
				f.track(fence, cb)
				f.record("SubmitFenced#%d", idOf(cb))
			} else {
				f.record("QueueSubmit#%d", idOf(cb))
			}
		}
	}
	return nil
}

func (f *fakeDriver) QueueWaitIdle(queue vk.Queue) error {
	return nil
}

// track snapshots the buffers cb copies from until fence is waited on.
func (f *fakeDriver) track(fence vk.Fence, cb vk.CommandBuffer) {
	snap := f.pending[idOf(fence)]
	if snap == nil {
		snap = make(map[uint64][]byte)
		f.pending[idOf(fence)] = snap
	}
	for _, src := range f.reads[idOf(cb)] {
		snap[idOf(src)] = append([]byte(nil), f.bufferBytes(src)...)
	}
}

// clobbered lists buffers written by the host while a submission
// reading them has not been waited on.
func (f *fakeDriver) clobbered() []uint64 {
	var ids []uint64
	for _, snap := range f.pending {
		for id, data := range snap {
			m := f.memory[f.bound[id]]
			if m != nil && string(m.data) != string(data) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (f *fakeDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	ret := vk.Success
	if len(f.present) > 0 {
		ret, f.present = f.present[0], f.present[1:]
	}
	f.record("QueuePresent")
	return ret
}

func (f *fakeDriver) CmdPipelineBarrier(cb vk.CommandBuffer, src, dst vk.PipelineStageFlags, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	for _, b := range images {
		f.record("ImageBarrier(%d->%d)", b.OldLayout, b.NewLayout)
	}
	if len(buffers) > 0 {
		f.record("BufferBarrier(%d)", len(buffers))
	}
}

func (f *fakeDriver) CmdCopyBuffer(cb vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	f.reads[idOf(cb)] = append(f.reads[idOf(cb)], src)
	f.recorded[idOf(cb)] = append(f.recorded[idOf(cb)], func() {
		from, to := f.bufferBytes(src), f.bufferBytes(dst)
		for _, r := range regions {
			copy(to[r.DstOffset:r.DstOffset+r.Size], from[r.SrcOffset:r.SrcOffset+r.Size])
		}
	})
	f.record("CmdCopyBuffer")
}

func (f *fakeDriver) CmdCopyBufferToImage(cb vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	f.record("CmdCopyBufferToImage")
}

func (f *fakeDriver) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	f.renderPassBegin = append(f.renderPassBegin, *info)
	f.record("CmdBeginRenderPass")
}

func (f *fakeDriver) CmdEndRenderPass(cb vk.CommandBuffer) {
	f.record("CmdEndRenderPass")
}

func (f *fakeDriver) CmdBindPipeline(cb vk.CommandBuffer, pipeline vk.Pipeline) {
	f.record("CmdBindPipeline#%d", idOf(pipeline))
}

func (f *fakeDriver) CmdSetViewport(cb vk.CommandBuffer, viewport vk.Viewport) {}

func (f *fakeDriver) CmdSetScissor(cb vk.CommandBuffer, scissor vk.Rect2D) {}

func (f *fakeDriver) CmdBindDescriptorSets(cb vk.CommandBuffer, layout vk.PipelineLayout, first uint32, sets []vk.DescriptorSet) {
	f.record("CmdBindDescriptorSets(%d)", first)
}

func (f *fakeDriver) CmdBindVertexBuffers(cb vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
}

func (f *fakeDriver) CmdBindIndexBuffer(cb vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
}

func (f *fakeDriver) CmdDrawIndexed(cb vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	f.draws = append(f.draws, indexCount)
	f.record("CmdDrawIndexed(%d)", indexCount)
}

var _ Driver = (*fakeDriver)(nil)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return logrus.NewEntry(l)
}

// openFake negotiates and opens the first device of f.
func openFake(f *fakeDriver) (*DeviceContext, error) {
	n := NewNegotiator(f, f.instance, f.surface, DefaultRequirements(), quietLog())
	candidates, err := n.EvaluateAll()
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if c.Suitable() {
			return n.Open(c.Profile)
		}
	}
	return nil, ErrNoSuitableDevice
}
