// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"time"

	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FrameState is the presentation state of the orchestrator.
type FrameState int

// Frame states
const (
	Presenting FrameState = iota
	Rebuilding
)

func (s FrameState) String() string {
	if s == Rebuilding {
		return "rebuilding"
	}
	return "presenting"
}

// TickResult tells what a single Tick did.
type TickResult int

// Tick results
const (
	TickPresented TickResult = iota
	TickSkipped
	TickRebuilt
)

// DefaultAcquireTimeout bounds how long Tick blocks on image acquisition.
const DefaultAcquireTimeout = time.Second

// Recorder fills command buffers for swapchain images.
type Recorder interface {
	// Record records the full frame for the given image into cb.
	Record(cb vk.CommandBuffer, image int, state *SwapchainState) error

	// Prepare updates host side data read by the recorded commands,
	// right before the frame for image is submitted.
	Prepare(image int, state *SwapchainState) error
}

// FrameConfig configures a FrameOrchestrator.
type FrameConfig struct {
	// AcquireTimeout of zero blocks until an image is available.
	AcquireTimeout time.Duration
}

// NewFrameOrchestrator creates the frame synchronization primitives.
// Nothing is built until Start is called.
func NewFrameOrchestrator(ctx *DeviceContext, sm *SwapchainManager, rec Recorder, window vk.Extent2D, cfg FrameConfig, log *logrus.Entry) (*FrameOrchestrator, error) {
	d := ctx.Driver
	imageAvailable, err := d.CreateSemaphore(ctx.Device)
	if err != nil {
		return nil, err
	}
	renderFinished, err := d.CreateSemaphore(ctx.Device)
	if err != nil {
		d.DestroySemaphore(ctx.Device, imageAvailable)
		return nil, err
	}

	timeout := uint64(vk.MaxUint64)
	if cfg.AcquireTimeout > 0 {
		timeout = uint64(cfg.AcquireTimeout.Nanoseconds())
	}

	return &FrameOrchestrator{
		ctx:            ctx,
		sm:             sm,
		rec:            rec,
		log:            log,
		window:         window,
		timeout:        timeout,
		imageAvailable: imageAvailable,
		renderFinished: renderFinished,
		state:          Rebuilding,
	}, nil
}

// FrameOrchestrator drives acquire, submit and present, and rebuilds
// the swapchain whenever presentation reports it is stale.
type FrameOrchestrator struct {
	ctx *DeviceContext
	sm  *SwapchainManager
	rec Recorder
	log *logrus.Entry

	window   vk.Extent2D
	timeout  uint64
	state    FrameState
	resized  bool
	rerecord bool
	rebuilds int

	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	commandBuffers []vk.CommandBuffer
	fences         []vk.Fence
}

// State returns the current presentation state.
func (f *FrameOrchestrator) State() FrameState {
	return f.state
}

// Rebuilds counts swapchain rebuilds, the initial build included.
func (f *FrameOrchestrator) Rebuilds() int {
	return f.rebuilds
}

// Start performs the initial swapchain build and records every
// command buffer. A zero window extent defers the build to Tick.
func (f *FrameOrchestrator) Start() error {
	err := f.rebuild()
	if errors.Cause(err) == ErrZeroExtent {
		f.log.Debug("window has no area, swapchain build deferred")
		return nil
	}
	return err
}

// NotifyResize records the new window size. The swapchain is rebuilt
// at the start of the next Tick.
func (f *FrameOrchestrator) NotifyResize(width, height uint32) {
	f.window = vk.Extent2D{Width: width, Height: height}
	f.resized = true
}

// Invalidate requests every command buffer be recorded again before
// the next submit, keeping the swapchain.
func (f *FrameOrchestrator) Invalidate() {
	f.rerecord = true
}

// Tick draws and presents at most one frame.
func (f *FrameOrchestrator) Tick() (TickResult, error) {
	d, dev := f.ctx.Driver, f.ctx.Device

	if f.resized || f.state == Rebuilding {
		f.resized = false
		if err := f.rebuild(); err != nil {
			if errors.Cause(err) == ErrZeroExtent {
				f.state = Rebuilding
				return TickSkipped, nil
			}
			return TickSkipped, err
		}
	}

	if f.rerecord {
		if err := f.ctx.WaitIdle(); err != nil {
			return TickSkipped, err
		}
		if err := f.recordAll(); err != nil {
			return TickSkipped, err
		}
	}

	swapchain := f.sm.State()
	image, ret := d.AcquireNextImage(dev, swapchain.Handle, f.timeout, f.imageAvailable)
	switch ret {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		f.state = Rebuilding
		return f.rebuildNow()
	case vk.NotReady, vk.Timeout:
		return TickSkipped, nil
	default:
		return TickSkipped, check("AcquireNextImage", ret)
	}

	fence := f.fences[image]
	if err := d.WaitForFence(dev, fence, vk.MaxUint64); err != nil {
		return TickSkipped, err
	}
	if err := d.ResetFence(dev, fence); err != nil {
		return TickSkipped, err
	}

	if err := f.rec.Prepare(int(image), swapchain); err != nil {
		return TickSkipped, err
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{f.commandBuffers[image]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{f.renderFinished},
	}}
	if err := d.QueueSubmit(f.ctx.GraphicsQueue, submit, fence); err != nil {
		return TickSkipped, err
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{f.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{image},
	}
	switch ret := d.QueuePresent(f.ctx.PresentQueue, &presentInfo); ret {
	case vk.Success:
		return TickPresented, nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		f.state = Rebuilding
		return f.rebuildNow()
	default:
		return TickSkipped, check("QueuePresent", ret)
	}
}

// rebuildNow rebuilds a swapchain reported stale by acquire or present.
// A window without area defers the rebuild and skips the tick.
func (f *FrameOrchestrator) rebuildNow() (TickResult, error) {
	if err := f.rebuild(); err != nil {
		if errors.Cause(err) == ErrZeroExtent {
			return TickSkipped, nil
		}
		return TickSkipped, err
	}
	return TickRebuilt, nil
}

func (f *FrameOrchestrator) rebuild() error {
	if err := f.ctx.WaitIdle(); err != nil {
		return err
	}
	state, err := f.sm.Rebuild(f.window)
	if err != nil {
		return err
	}
	f.rebuilds++

	f.releaseFrames()
	d, dev := f.ctx.Driver, f.ctx.Device
	cbs, err := d.AllocateCommandBuffers(dev, f.ctx.CommandPool, uint32(state.Len()))
	if err != nil {
		return err
	}
	f.commandBuffers = cbs
	for range state.Images {
		fence, err := d.CreateFence(dev, true)
		if err != nil {
			return err
		}
		f.fences = append(f.fences, fence)
	}
	if err := f.recordAll(); err != nil {
		return err
	}

	f.state = Presenting
	f.log.WithField("rebuilds", f.rebuilds).Debug("frames rebuilt")
	return nil
}

func (f *FrameOrchestrator) recordAll() error {
	state := f.sm.State()
	for idx, cb := range f.commandBuffers {
		if err := f.rec.Record(cb, idx, state); err != nil {
			return err
		}
	}
	f.rerecord = false
	return nil
}

func (f *FrameOrchestrator) releaseFrames() {
	d, dev := f.ctx.Driver, f.ctx.Device
	d.FreeCommandBuffers(dev, f.ctx.CommandPool, f.commandBuffers)
	f.commandBuffers = nil
	for _, fence := range f.fences {
		d.DestroyFence(dev, fence)
	}
	f.fences = nil
}

// Destroy waits for the device and releases command buffers, fences
// and semaphores.
func (f *FrameOrchestrator) Destroy() {
	if err := f.ctx.WaitIdle(); err != nil {
		f.log.WithError(err).Warn("device did not go idle before frames were released")
	}
	f.releaseFrames()
	d, dev := f.ctx.Driver, f.ctx.Device
	if f.imageAvailable != vk.NullSemaphore {
		d.DestroySemaphore(dev, f.imageAvailable)
		f.imageAvailable = vk.NullSemaphore
	}
	if f.renderFinished != vk.NullSemaphore {
		d.DestroySemaphore(dev, f.renderFinished)
		f.renderFinished = vk.NullSemaphore
	}
}
