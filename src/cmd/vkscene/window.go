// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"unsafe"

	"github.com/devblok/vkscene/src/core"
	"github.com/devblok/vkscene/src/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/veandco/go-sdl2/sdl"
)

func newWindow(title string, width, height uint32) (*window, error) {
	w, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(width),
		int32(height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, err
	}
	return &window{sdlWindow: w}, nil
}

// window adapts an SDL window to core.VulkanWindow
type window struct {
	sdlWindow *sdl.Window
}

var _ core.VulkanWindow = &window{}

func (w *window) Extent() gfx.Extent2D {
	width, height := w.sdlWindow.VulkanGetDrawableSize()
	return gfx.Extent2D{Width: uint32(width), Height: uint32(height)}
}

func (w *window) InstanceExtensions() []string {
	return w.sdlWindow.VulkanGetInstanceExtensions()
}

func (w *window) ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

func (w *window) CreateSurface(instance vk.Instance) (unsafe.Pointer, error) {
	return w.sdlWindow.VulkanCreateSurface(instance)
}

func (w *window) PollEvents(h core.EventHandler) {
	var event sdl.Event
	for event = sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch et := event.(type) {
		case *sdl.KeyboardEvent:
			if et.Repeat != 0 {
				continue
			}
			if k := translateKey(et.Keysym.Sym); k != gfx.KeyUnknown {
				h.Key(k, et.State == sdl.PRESSED)
			}
		case *sdl.MouseMotionEvent:
			h.CursorMoved(float32(et.X), float32(et.Y))
		case *sdl.WindowEvent:
			if et.Event == sdl.WINDOWEVENT_SIZE_CHANGED || et.Event == sdl.WINDOWEVENT_MINIMIZED || et.Event == sdl.WINDOWEVENT_RESTORED {
				e := w.Extent()
				h.Resized(e.Width, e.Height)
			}
		case *sdl.QuitEvent:
			h.Quit()
		}
	}
}

func (w *window) Destroy() {
	w.sdlWindow.Destroy()
}

func translateKey(sym sdl.Keycode) gfx.Key {
	switch sym {
	case sdl.K_w:
		return gfx.KeyW
	case sdl.K_a:
		return gfx.KeyA
	case sdl.K_s:
		return gfx.KeyS
	case sdl.K_d:
		return gfx.KeyD
	case sdl.K_LSHIFT, sdl.K_RSHIFT:
		return gfx.KeyShift
	case sdl.K_ESCAPE:
		return gfx.KeyEscape
	}
	return gfx.KeyUnknown
}
