// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"runtime"
	"time"
	"unsafe"

	"github.com/devblok/vkscene/src/asset"
	"github.com/devblok/vkscene/src/gfx"
	"github.com/devblok/vkscene/src/gfx/vkr"
	"github.com/devblok/vkscene/src/scene"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// EventHandler receives the window events
type EventHandler interface {
	Resized(width, height uint32)
	Key(k gfx.Key, pressed bool)
	CursorMoved(x, y float32)
	Quit()
}

// Window is the drawable the renderer presents to
type Window interface {
	// Extent is the drawable size in pixels
	Extent() gfx.Extent2D

	// PollEvents delivers pending events to h, it's called once per frame
	PollEvents(h EventHandler)
}

// VulkanWindow is a Window able to host a Vulkan surface
type VulkanWindow interface {
	Window

	// InstanceExtensions are the extensions the surface requires
	InstanceExtensions() []string

	// ProcAddr returns the window system's vkGetInstanceProcAddr
	ProcAddr() unsafe.Pointer

	// CreateSurface creates the native surface for instance
	CreateSurface(instance vk.Instance) (unsafe.Pointer, error)
}

// FrameTicker draws frames and follows the window size
type FrameTicker interface {
	Tick() (vkr.TickResult, error)
	NotifyResize(width, height uint32)
}

// Loop drives a renderer from window events at the configured rate.
type Loop struct {
	Window Window
	Frames FrameTicker
	Camera *scene.Camera
	Time   *Time
	Log    *logrus.Entry

	// Reloads signals a changed shader file, Reload handles it
	Reloads <-chan string
	Reload  func(path string) error

	quit      bool
	presented int
}

// Resized implements EventHandler
func (l *Loop) Resized(width, height uint32) {
	l.Frames.NotifyResize(width, height)
}

// Key implements EventHandler
func (l *Loop) Key(k gfx.Key, pressed bool) {
	if k == gfx.KeyEscape {
		if pressed {
			l.quit = true
		}
		return
	}
	l.Camera.Key(k, pressed)
}

// CursorMoved implements EventHandler
func (l *Loop) CursorMoved(x, y float32) {
	l.Camera.CursorMoved(x, y)
}

// Quit implements EventHandler
func (l *Loop) Quit() {
	l.quit = true
}

// Presented is the number of frames presented so far
func (l *Loop) Presented() int {
	return l.presented
}

// Run ticks until the window asks to quit or a frame fails.
func (l *Loop) Run() error {
	report := time.Now()
	reported := 0
	for {
		<-l.Time.FpsTicker().C

		l.Window.PollEvents(l)
		if l.quit {
			return nil
		}

		for n := l.Time.Steps(time.Now()); n > 0; n-- {
			l.Camera.Update()
		}

		if l.Reloads != nil {
			select {
			case path := <-l.Reloads:
				if err := l.Reload(path); err != nil {
					l.Log.WithError(err).WithField("file", path).Warn("shader reload failed, keeping the current pipeline")
				}
			default:
			}
		}

		res, err := l.Frames.Tick()
		if err != nil {
			return err
		}
		if res == vkr.TickPresented {
			l.presented++
		}

		if since := time.Since(report); since >= time.Second {
			l.Log.WithFields(logrus.Fields{
				"fps":      float64(l.presented-reported) / since.Seconds(),
				"cgoCalls": runtime.NumCgoCall(),
			}).Debug("frames")
			report, reported = time.Now(), l.presented
		}
	}
}

// Run renders sc in window until it is closed. Setup and render
// failures are returned after everything created so far has been
// released.
func Run(cfg Configuration, sc *scene.Scene, window VulkanWindow, sel Selector, logger *logrus.Logger) error {
	var stack teardown
	defer stack.run()

	src, err := asset.Open(sc.DataPath)
	if err != nil {
		return errors.Wrap(err, "scene data")
	}
	stack.push(func() { asset.Close(src) })

	loaders, err := NewLoaders(src, cfg.Renderer)
	if err != nil {
		return err
	}
	objects, err := loaders.ObjectSpecs(sc)
	if err != nil {
		return err
	}
	shaders, err := loaders.ShaderSources(sc)
	if err != nil {
		return err
	}

	icfg := cfg.Instance
	icfg.Extensions = append(window.InstanceExtensions(), icfg.Extensions...)
	instance, err := NewVulkanInstance(DefaultVulkanApplicationInfo, window.ProcAddr(), icfg, Component(logger, "validation"))
	if err != nil {
		return err
	}
	stack.push(instance.Destroy)

	surface, err := window.CreateSurface(instance.Instance())
	if err != nil {
		return errors.Wrap(err, "window surface")
	}
	instance.SetSurface(surface)
	stack.push(instance.DestroySurface)

	negotiator := vkr.NewNegotiator(vkr.NewDriver(), instance.Instance(), instance.Surface(), vkr.DefaultRequirements(), Component(logger, "negotiator"))
	candidates, err := negotiator.EvaluateAll()
	if err != nil {
		return err
	}
	chosen, err := SelectDevice(candidates, sel, cfg.Instance.SelectionAttempts, Component(logger, "select"))
	if err != nil {
		return err
	}

	camera := scene.NewCamera()
	renderer := NewVulkanRenderer(cfg.Renderer, Component(logger, "renderer"))
	stack.push(renderer.Destroy)
	if err := renderer.Initialise(negotiator, chosen.Profile, objects, shaders, camera, window.Extent()); err != nil {
		return err
	}

	t := NewTime(cfg.Time)
	defer t.Stop()

	loop := &Loop{
		Window: window,
		Frames: renderer,
		Camera: camera,
		Time:   t,
		Log:    Component(logger, "loop"),
	}

	if cfg.Renderer.Watch {
		files := watchedShaders(sc, src)
		if len(files) == 0 {
			logger.Warn("shader watching needs scene shaders in a data directory")
		} else {
			watcher, err := NewShaderWatcher(files, Component(logger, "watcher"))
			if err != nil {
				return err
			}
			stack.push(func() { watcher.Close() })
			loop.Reloads = watcher.Changes()
			loop.Reload = func(string) error {
				shaders, err := loaders.ShaderSources(sc)
				if err != nil {
					return err
				}
				return renderer.ReloadShaders(shaders)
			}
		}
	}

	return loop.Run()
}

// watchedShaders returns the files behind the scene shaders, which
// only exist on disk when src is a directory.
func watchedShaders(sc *scene.Scene, src asset.Source) []string {
	dir, ok := src.(asset.Dir)
	if !ok {
		return nil
	}
	files := make([]string, 0, len(sc.Shaders))
	for _, s := range sc.Shaders {
		files = append(files, dir.Path(s.Path))
	}
	return files
}
