// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/vkscene/src/gfx"
	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

const uniformSize = uint(unsafe.Sizeof(Uniform{}))

// DefaultFrames is the number of uniform slots per object when
// Capacity.Frames is not set.
const DefaultFrames = 3

// Capacity bounds the descriptor pool of a ResourceRegistry.
type Capacity struct {
	Objects           int
	TexturesPerObject int

	// Frames is the expected swapchain image count. Every image gets
	// its own uniform slot per object; Reserve grows past it.
	Frames int
}

// ObjectSpec is a drawable in host memory.
type ObjectSpec struct {
	Name     string
	Mesh     gfx.Mesh
	Textures []gfx.Pixels
	Model    glm.Mat4
}

// Object is a drawable resident in device memory.
type Object struct {
	Name  string
	Model glm.Mat4

	vertices   Buffer
	indices    Buffer
	indexCount uint32

	slots []uniformSlot

	textures []Image
	views    []vk.ImageView
	bound    []vk.ImageView
}

// uniformSlot is the uniform data and descriptor set read by the
// command buffer of one swapchain image.
type uniformSlot struct {
	stage   Buffer
	uniform Buffer
	set     vk.DescriptorSet
}

// IndexCount is the number of indices drawn for the object.
func (o *Object) IndexCount() uint32 {
	return o.indexCount
}

func (o *Object) release(d Driver, dev vk.Device) {
	for _, v := range o.views {
		d.DestroyImageView(dev, v)
	}
	o.views = nil
	for idx := range o.textures {
		o.textures[idx].Release()
	}
	o.textures = nil
	for idx := range o.slots {
		o.slots[idx].uniform.Release()
		o.slots[idx].stage.Release()
	}
	o.slots = nil
	o.indices.Release()
	o.vertices.Release()
}

// NewResourceRegistry creates the sampler, both descriptor set layouts,
// the shared descriptor pool and the common set.
func NewResourceRegistry(ctx *DeviceContext, transfer *TransferEngine, capacity Capacity) (*ResourceRegistry, error) {
	if capacity.Objects <= 0 {
		return nil, errors.New("registry needs room for at least one object")
	}
	if capacity.TexturesPerObject <= 0 {
		capacity.TexturesPerObject = 1
	}
	if capacity.Frames <= 0 {
		capacity.Frames = DefaultFrames
	}
	r := &ResourceRegistry{
		ctx:      ctx,
		transfer: transfer,
		capacity: capacity,
		frames:   capacity.Frames,
	}
	if err := r.init(); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

// ResourceRegistry owns every per-object device resource together
// with the descriptor machinery binding them to the pipeline.
type ResourceRegistry struct {
	ctx      *DeviceContext
	transfer *TransferEngine
	capacity Capacity

	sampler      vk.Sampler
	commonLayout vk.DescriptorSetLayout
	objectLayout vk.DescriptorSetLayout
	pools        []vk.DescriptorPool
	poolRoom     int
	commonSet    vk.DescriptorSet
	frames       int

	white     Image
	whiteView vk.ImageView

	objects []*Object
}

func (r *ResourceRegistry) init() error {
	d, dev := r.ctx.Driver, r.ctx.Device

	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           16,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}
	sampler, err := d.CreateSampler(dev, &sci)
	if err != nil {
		return err
	}
	r.sampler = sampler

	common := []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}}
	if r.commonLayout, err = d.CreateDescriptorSetLayout(dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(common)),
		PBindings:    common,
	}); err != nil {
		return err
	}

	perObject := []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}}
	for idx := 0; idx < r.capacity.TexturesPerObject; idx++ {
		perObject = append(perObject, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(idx + 1),
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}
	if r.objectLayout, err = d.CreateDescriptorSetLayout(dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(perObject)),
		PBindings:    perObject,
	}); err != nil {
		return err
	}

	if err := r.addPool(r.capacity.Objects*r.frames, true); err != nil {
		return err
	}
	if r.commonSet, err = d.AllocateDescriptorSet(dev, r.pools[0], r.commonLayout); err != nil {
		return err
	}
	d.UpdateDescriptorSets(dev, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          r.commonSet,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeSampler,
		PImageInfo:      []vk.DescriptorImageInfo{{Sampler: r.sampler}},
	}})
	return nil
}

// addPool creates a descriptor pool with room for sets object sets,
// plus the common set when common is true.
func (r *ResourceRegistry) addPool(sets int, common bool) error {
	n := uint32(sets)
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: n},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: n * uint32(r.capacity.TexturesPerObject)},
	}
	maxSets := n
	if common {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{Type: vk.DescriptorTypeSampler, DescriptorCount: 1})
		maxSets++
	}
	pool, err := r.ctx.Driver.CreateDescriptorPool(r.ctx.Device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	})
	if err != nil {
		return err
	}
	r.pools = append(r.pools, pool)
	r.poolRoom = sets
	return nil
}

func (r *ResourceRegistry) allocateObjectSet() (vk.DescriptorSet, error) {
	if r.poolRoom == 0 {
		if err := r.addPool(r.capacity.Objects*r.capacity.Frames, false); err != nil {
			return vk.NullDescriptorSet, err
		}
	}
	set, err := r.ctx.Driver.AllocateDescriptorSet(r.ctx.Device, r.pools[len(r.pools)-1], r.objectLayout)
	if err != nil {
		return vk.NullDescriptorSet, err
	}
	r.poolRoom--
	return set, nil
}

// Frames returns the number of uniform slots every object holds.
func (r *ResourceRegistry) Frames() int {
	return r.frames
}

// Reserve makes sure every object has a uniform slot for each of
// frames swapchain images.
func (r *ResourceRegistry) Reserve(frames int) error {
	if frames <= r.frames {
		return nil
	}
	for _, obj := range r.objects {
		if err := r.addSlots(obj, frames); err != nil {
			return err
		}
	}
	r.frames = frames
	return nil
}

// addSlots grows obj to frames uniform slots.
func (r *ResourceRegistry) addSlots(obj *Object, frames int) error {
	d, dev := r.ctx.Driver, r.ctx.Device
	for len(obj.slots) < frames {
		var slot uniformSlot
		var err error
		if slot.stage, err = r.transfer.AllocateBuffer(uniformSize,
			vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible); err != nil {
			return err
		}
		obj.slots = append(obj.slots, slot)
		last := &obj.slots[len(obj.slots)-1]
		if _, err := last.stage.Mem().Map(); err != nil {
			return err
		}
		if last.uniform, err = r.transfer.AllocateBuffer(uniformSize,
			vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageUniformBufferBit), deviceLocal); err != nil {
			return err
		}
		if last.set, err = r.allocateObjectSet(); err != nil {
			return err
		}

		writes := []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          last.set,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: last.uniform.Get(),
				Offset: 0,
				Range:  vk.DeviceSize(uniformSize),
			}},
		}}
		for idx, view := range obj.bound {
			writes = append(writes, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          last.set,
				DstBinding:      uint32(idx + 1),
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeSampledImage,
				PImageInfo: []vk.DescriptorImageInfo{{
					ImageView:   view,
					ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				}},
			})
		}
		d.UpdateDescriptorSets(dev, writes)
	}
	return nil
}

// Layouts returns the set layouts in binding order: common, per-object.
func (r *ResourceRegistry) Layouts() []vk.DescriptorSetLayout {
	return []vk.DescriptorSetLayout{r.commonLayout, r.objectLayout}
}

// CommonSet is the set bound at slot 0 for every draw.
func (r *ResourceRegistry) CommonSet() vk.DescriptorSet {
	return r.commonSet
}

// Objects returns the resident objects in insertion order.
func (r *ResourceRegistry) Objects() []*Object {
	return r.objects
}

func (r *ResourceRegistry) whiteTexture() (vk.ImageView, error) {
	if r.whiteView != vk.NullImageView {
		return r.whiteView, nil
	}
	img, view, err := r.uploadTexture(WhitePixels())
	if err != nil {
		return vk.NullImageView, err
	}
	r.white, r.whiteView = img, view
	return view, nil
}

// WhitePixels is the 1x1 opaque white texture used for padding.
func WhitePixels() gfx.Pixels {
	return gfx.Pixels{Width: 1, Height: 1, Data: []byte{0xFF, 0xFF, 0xFF, 0xFF}}
}

func (r *ResourceRegistry) uploadTexture(px gfx.Pixels) (Image, vk.ImageView, error) {
	img, err := r.transfer.AllocateImage(px.Width, px.Height, 1, vk.FormatR8g8b8a8Unorm, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit), deviceLocal)
	if err != nil {
		return Image{}, vk.NullImageView, err
	}
	if err := r.transfer.UploadImage(px, &img); err != nil {
		img.Release()
		return Image{}, vk.NullImageView, err
	}
	view, err := NewImageView(r.ctx.Driver, r.ctx.Device, img.Get(), vk.FormatR8g8b8a8Unorm, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		img.Release()
		return Image{}, vk.NullImageView, err
	}
	return img, view, nil
}

// Add uploads spec to device memory and writes one descriptor set per
// uniform slot.
func (r *ResourceRegistry) Add(spec ObjectSpec) (*Object, error) {
	if len(r.objects) >= r.capacity.Objects {
		return nil, errors.Errorf("registry is full at %d objects", r.capacity.Objects)
	}
	if len(spec.Mesh.Vertices) == 0 || len(spec.Mesh.Indices) == 0 {
		return nil, errors.Errorf("object %q has an empty mesh", spec.Name)
	}
	if len(spec.Textures) > r.capacity.TexturesPerObject {
		return nil, errors.Errorf("object %q has %d textures, at most %d are bound", spec.Name, len(spec.Textures), r.capacity.TexturesPerObject)
	}

	d, dev := r.ctx.Driver, r.ctx.Device
	obj := &Object{
		Name:       spec.Name,
		Model:      spec.Model,
		indexCount: uint32(len(spec.Mesh.Indices)),
	}
	ok := false
	defer func() {
		if !ok {
			obj.release(d, dev)
		}
	}()

	var err error
	vertexData := asBytes(spec.Mesh.Vertices)
	if obj.vertices, err = r.transfer.AllocateBuffer(uint(len(vertexData)),
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageVertexBufferBit), deviceLocal); err != nil {
		return nil, err
	}
	if err := r.transfer.UploadToDeviceLocal(vertexData, obj.vertices.Get()); err != nil {
		return nil, err
	}

	indexData := asBytes(spec.Mesh.Indices)
	if obj.indices, err = r.transfer.AllocateBuffer(uint(len(indexData)),
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageIndexBufferBit), deviceLocal); err != nil {
		return nil, err
	}
	if err := r.transfer.UploadToDeviceLocal(indexData, obj.indices.Get()); err != nil {
		return nil, err
	}

	for _, px := range spec.Textures {
		img, view, err := r.uploadTexture(px)
		if err != nil {
			return nil, err
		}
		obj.textures = append(obj.textures, img)
		obj.views = append(obj.views, view)
		obj.bound = append(obj.bound, view)
	}
	for len(obj.bound) < r.capacity.TexturesPerObject {
		white, err := r.whiteTexture()
		if err != nil {
			return nil, err
		}
		obj.bound = append(obj.bound, white)
	}

	if err := r.addSlots(obj, r.frames); err != nil {
		return nil, err
	}

	ok = true
	r.objects = append(r.objects, obj)
	return obj, nil
}

// UpdateUniforms writes the model, view and projection of every object
// into the mapped staging buffer of the slot for image.
func (r *ResourceRegistry) UpdateUniforms(image int, view, projection glm.Mat4) error {
	if image < 0 || image >= r.frames {
		return errors.Errorf("image %d has no uniform slot, %d reserved", image, r.frames)
	}
	for _, obj := range r.objects {
		ubo := []Uniform{{
			Model:      obj.Model,
			View:       view,
			Projection: projection,
		}}
		if err := obj.slots[image].stage.Mem().Write(asBytes(ubo)); err != nil {
			return err
		}
	}
	return nil
}

// RecordUniformCopies records the staging to device uniform copies of
// the slot for image, and the barrier making them visible to vertex
// shaders. It must be recorded outside a render pass.
func (r *ResourceRegistry) RecordUniformCopies(cb vk.CommandBuffer, image int) error {
	if image < 0 || image >= r.frames {
		return errors.Errorf("image %d has no uniform slot, %d reserved", image, r.frames)
	}
	if len(r.objects) == 0 {
		return nil
	}
	d := r.ctx.Driver
	barriers := make([]vk.BufferMemoryBarrier, 0, len(r.objects))
	for _, obj := range r.objects {
		slot := &obj.slots[image]
		d.CmdCopyBuffer(cb, slot.stage.Get(), slot.uniform.Get(), []vk.BufferCopy{{Size: vk.DeviceSize(uniformSize)}})
		barriers = append(barriers, vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask:       vk.AccessFlags(vk.AccessUniformReadBit),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              slot.uniform.Get(),
			Offset:              0,
			Size:                vk.DeviceSize(uniformSize),
		})
	}
	d.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit),
		barriers, nil)
	return nil
}

// Set returns the descriptor set obj binds at slot 1 when drawn into
// image.
func (o *Object) Set(image int) vk.DescriptorSet {
	return o.slots[image].set
}

// Destroy releases every object, then the pool with the sets it holds,
// the layouts and the sampler.
func (r *ResourceRegistry) Destroy() {
	d, dev := r.ctx.Driver, r.ctx.Device
	for _, obj := range r.objects {
		obj.release(d, dev)
	}
	r.objects = nil

	if r.whiteView != vk.NullImageView {
		d.DestroyImageView(dev, r.whiteView)
		r.whiteView = vk.NullImageView
	}
	r.white.Release()

	for _, pool := range r.pools {
		d.DestroyDescriptorPool(dev, pool)
	}
	r.pools = nil
	r.poolRoom = 0
	if r.objectLayout != nil {
		d.DestroyDescriptorSetLayout(dev, r.objectLayout)
		r.objectLayout = nil
	}
	if r.commonLayout != nil {
		d.DestroyDescriptorSetLayout(dev, r.commonLayout)
		r.commonLayout = nil
	}
	if r.sampler != nil {
		d.DestroySampler(dev, r.sampler)
		r.sampler = nil
	}
}
