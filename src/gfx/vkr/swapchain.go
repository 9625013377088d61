// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// undefinedExtent is the currentExtent sentinel meaning the surface
// size is decided by the swapchain.
const undefinedExtent = 0xFFFFFFFF

var depthCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}

// SwapchainState is the presentable chain and everything sized by it.
// Images, Views and Framebuffers are always index aligned.
type SwapchainState struct {
	Handle        vk.Swapchain
	Images        []vk.Image
	Views         []vk.ImageView
	Framebuffers  []vk.Framebuffer
	Depth         Image
	DepthView     vk.ImageView
	SurfaceFormat vk.SurfaceFormat
	DepthFormat   vk.Format
	Extent        vk.Extent2D
	PresentMode   vk.PresentMode
}

// Len is the number of swapchain images.
func (s *SwapchainState) Len() int {
	return len(s.Images)
}

func (s *SwapchainState) destroyDependents(d Driver, dev vk.Device) {
	for _, fb := range s.Framebuffers {
		d.DestroyFramebuffer(dev, fb)
	}
	for _, iv := range s.Views {
		d.DestroyImageView(dev, iv)
	}
	if s.DepthView != vk.NullImageView {
		d.DestroyImageView(dev, s.DepthView)
	}
	s.Depth.Release()
	s.Framebuffers, s.Views, s.Images = nil, nil, nil
	s.DepthView = vk.NullImageView
}

// NewSwapchainManager picks the surface and depth formats once for ctx.
func NewSwapchainManager(ctx *DeviceContext, transfer *TransferEngine, log *logrus.Entry) (*SwapchainManager, error) {
	depth, err := chooseDepthFormat(ctx.Driver, ctx.Profile.Device)
	if err != nil {
		return nil, err
	}
	sm := &SwapchainManager{
		ctx:           ctx,
		transfer:      transfer,
		log:           log,
		surfaceFormat: chooseSurfaceFormat(ctx.Profile.Formats),
		presentMode:   choosePresentMode(ctx.Profile.PresentModes),
		depthFormat:   depth,
	}
	log.WithFields(logrus.Fields{
		"format":      sm.surfaceFormat.Format,
		"depth":       depth,
		"presentMode": sm.presentMode,
	}).Debug("swapchain formats chosen")
	return sm, nil
}

// SwapchainManager owns the swapchain and rebuilds it on demand.
type SwapchainManager struct {
	ctx      *DeviceContext
	transfer *TransferEngine
	log      *logrus.Entry

	surfaceFormat vk.SurfaceFormat
	presentMode   vk.PresentMode
	depthFormat   vk.Format

	renderPass vk.RenderPass
	state      *SwapchainState
}

// SurfaceFormat is the negotiated color format.
func (sm *SwapchainManager) SurfaceFormat() vk.SurfaceFormat {
	return sm.surfaceFormat
}

// DepthFormat is the negotiated depth format.
func (sm *SwapchainManager) DepthFormat() vk.Format {
	return sm.depthFormat
}

// AttachRenderPass sets the render pass framebuffers are created for.
// It must be called before the first Rebuild.
func (sm *SwapchainManager) AttachRenderPass(rp vk.RenderPass) {
	sm.renderPass = rp
}

// State returns the current swapchain, nil before the first Rebuild.
func (sm *SwapchainManager) State() *SwapchainState {
	return sm.state
}

// Rebuild creates the swapchain for the given window extent, passing
// the previous chain as the old swapchain. The previous chain and its
// dependents are destroyed only once the new chain exists.
func (sm *SwapchainManager) Rebuild(window vk.Extent2D) (*SwapchainState, error) {
	d, dev := sm.ctx.Driver, sm.ctx.Device
	if sm.renderPass == vk.NullRenderPass {
		return nil, errors.New("swapchain rebuilt without a render pass")
	}

	caps, err := d.SurfaceCapabilities(sm.ctx.Profile.Device, sm.ctx.Surface)
	if err != nil {
		return nil, err
	}
	extent := chooseExtent(caps, window)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, errors.WithStack(ErrZeroExtent)
	}

	old := vk.NullSwapchain
	if sm.state != nil {
		old = sm.state.Handle
	}

	sharing := sm.ctx.Profile.SharingMode()
	scci := vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               sm.ctx.Surface,
		MinImageCount:         chooseImageCount(caps),
		ImageFormat:           sm.surfaceFormat.Format,
		ImageColorSpace:       sm.surfaceFormat.ColorSpace,
		ImageExtent:           extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharing.Mode,
		QueueFamilyIndexCount: uint32(len(sharing.Families)),
		PQueueFamilyIndices:   sharing.Families,
		PreTransform:          caps.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           sm.presentMode,
		Clipped:               vk.True,
		OldSwapchain:          old,
	}
	handle, err := d.CreateSwapchain(dev, &scci)
	if err != nil {
		return nil, err
	}

	if sm.state != nil {
		sm.state.destroyDependents(d, dev)
		d.DestroySwapchain(dev, sm.state.Handle)
		sm.state = nil
	}

	state := &SwapchainState{
		Handle:        handle,
		SurfaceFormat: sm.surfaceFormat,
		DepthFormat:   sm.depthFormat,
		Extent:        extent,
		PresentMode:   sm.presentMode,
	}
	if err := sm.populate(state); err != nil {
		state.destroyDependents(d, dev)
		d.DestroySwapchain(dev, handle)
		return nil, err
	}
	sm.state = state

	sm.log.WithFields(logrus.Fields{
		"width":  extent.Width,
		"height": extent.Height,
		"images": len(state.Images),
	}).Info("swapchain built")
	return state, nil
}

func (sm *SwapchainManager) populate(state *SwapchainState) error {
	d, dev := sm.ctx.Driver, sm.ctx.Device

	images, err := d.SwapchainImages(dev, state.Handle)
	if err != nil {
		return err
	}
	state.Images = images

	for _, img := range images {
		view, err := NewImageView(d, dev, img, state.SurfaceFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		state.Views = append(state.Views, view)
	}

	depth, err := sm.transfer.AllocateImage(state.Extent.Width, state.Extent.Height, 1,
		state.DepthFormat, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit), deviceLocal)
	if err != nil {
		return err
	}
	state.Depth = depth

	depthView, err := NewImageView(d, dev, depth.Get(), state.DepthFormat, vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return err
	}
	state.DepthView = depthView

	if err := sm.transfer.TransitionImageLayout(depth.Get(), state.DepthFormat, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal); err != nil {
		return err
	}

	for _, view := range state.Views {
		attachments := []vk.ImageView{view, state.DepthView}
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      sm.renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           state.Extent.Width,
			Height:          state.Extent.Height,
			Layers:          1,
		}
		fb, err := d.CreateFramebuffer(dev, &fci)
		if err != nil {
			return err
		}
		state.Framebuffers = append(state.Framebuffers, fb)
	}
	return nil
}

// Destroy releases the swapchain and everything sized by it.
func (sm *SwapchainManager) Destroy() {
	if sm.state == nil {
		return
	}
	sm.state.destroyDependents(sm.ctx.Driver, sm.ctx.Device)
	sm.ctx.Driver.DestroySwapchain(sm.ctx.Device, sm.state.Handle)
	sm.state = nil
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	preferred := vk.SurfaceFormat{
		Format:     vk.FormatB8g8r8a8Unorm,
		ColorSpace: vk.ColorSpaceSrgbNonlinear,
	}
	if len(formats) == 0 || (len(formats) == 1 && formats[0].Format == vk.FormatUndefined) {
		return preferred
	}
	for _, f := range formats {
		if f.Format == preferred.Format && f.ColorSpace == preferred.ColorSpace {
			return f
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

func chooseExtent(caps vk.SurfaceCapabilities, window vk.Extent2D) vk.Extent2D {
	if caps.CurrentExtent.Width != undefinedExtent {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(window.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(window.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ImageCount is the number of images requested for a swapchain on a
// surface with caps. Drivers may create more.
func ImageCount(caps vk.SurfaceCapabilities) int {
	return int(chooseImageCount(caps))
}

func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func chooseDepthFormat(d Driver, pd vk.PhysicalDevice) (vk.Format, error) {
	for _, format := range depthCandidates {
		props := d.FormatProperties(pd, format)
		if props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0 {
			return format, nil
		}
	}
	return vk.FormatUndefined, errors.WithStack(ErrNoDepthFormat)
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
