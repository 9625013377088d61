// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/vkscene/src/asset"
	"github.com/devblok/vkscene/src/gfx"
	"github.com/devblok/vkscene/src/gfx/mesh"
	"github.com/devblok/vkscene/src/gfx/shader"
	"github.com/devblok/vkscene/src/gfx/texture"
	"github.com/devblok/vkscene/src/gfx/vkr"
	"github.com/devblok/vkscene/src/scene"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// teardown releases resources in reverse order of their creation.
type teardown struct {
	steps []func()
}

func (t *teardown) push(step func()) {
	t.steps = append(t.steps, step)
}

// run releases everything pushed so far. It is safe to call again.
func (t *teardown) run() {
	for idx := len(t.steps) - 1; idx >= 0; idx-- {
		t.steps[idx]()
	}
	t.steps = nil
}

// NewLoaders creates the loaders reading from src. GLSL sources are
// compiled with the glslangValidator configured in cfg.
func NewLoaders(src asset.Source, cfg RendererConfiguration) (*Loaders, error) {
	glsl, err := shader.NewGlslang(cfg.Glslang, cfg.GlslangArgs)
	if err != nil {
		return nil, err
	}
	return &Loaders{
		Source:   src,
		Shaders:  asset.Overlay{src, asset.Builtin()},
		Meshes:   mesh.Importer{Source: src},
		Images:   texture.Decoder{Source: src},
		Compiler: shader.Auto{GLSL: glsl},
	}, nil
}

// Loaders turns the paths of a scene into meshes, pixels and SPIR-V.
// Shader names fall back to the built-in assets.
type Loaders struct {
	Source   asset.Source
	Shaders  asset.Source
	Meshes   gfx.MeshImporter
	Images   gfx.ImageDecoder
	Compiler gfx.ShaderCompiler
}

// ObjectSpecs imports the mesh and textures of every model in sc.
func (l *Loaders) ObjectSpecs(sc *scene.Scene) ([]vkr.ObjectSpec, error) {
	specs := make([]vkr.ObjectSpec, 0, len(sc.Models))
	for _, m := range sc.Models {
		meshData, err := l.Meshes.ImportMesh(m.Mesh)
		if err != nil {
			return nil, errors.Wrapf(err, "model %s", m.Mesh)
		}
		textures := make([]gfx.Pixels, 0, len(m.Textures))
		for _, path := range m.Textures {
			px, err := l.Images.DecodeImage(path)
			if err != nil {
				return nil, errors.Wrapf(err, "model %s: texture %s", m.Mesh, path)
			}
			textures = append(textures, px)
		}
		specs = append(specs, vkr.ObjectSpec{
			Name:     m.Mesh,
			Mesh:     meshData,
			Textures: textures,
			Model:    m.Transform(),
		})
	}
	return specs, nil
}

// ShaderSources compiles the stages listed by sc. A scene without
// shaders gets the built-in vertex and fragment pair.
func (l *Loaders) ShaderSources(sc *scene.Scene) ([]vkr.ShaderSource, error) {
	shaders := sc.Shaders
	if len(shaders) == 0 {
		shaders = []scene.Shader{
			{Type: gfx.StageVertex.String(), Path: asset.DefaultVertexShader, EntryPoint: "main"},
			{Type: gfx.StageFragment.String(), Path: asset.DefaultFragmentShader, EntryPoint: "main"},
		}
	}

	sources := make([]vkr.ShaderSource, 0, len(shaders))
	for _, s := range shaders {
		stage, err := s.Stage()
		if err != nil {
			return nil, err
		}
		data, err := l.Shaders.ReadFile(s.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "shader %s", s.Path)
		}
		code, err := l.Compiler.Compile(data, stage, s.EntryPoint)
		if err != nil {
			return nil, errors.Wrapf(err, "shader %s", s.Path)
		}
		sources = append(sources, vkr.ShaderSource{
			Stage:      stage,
			EntryPoint: s.EntryPoint,
			Code:       code,
		})
	}
	return sources, nil
}

// capacityFor sizes the registry for objects drawn into frames
// swapchain images.
func capacityFor(objects []vkr.ObjectSpec, frames int) vkr.Capacity {
	c := vkr.Capacity{Objects: len(objects), TexturesPerObject: 1, Frames: frames}
	for _, o := range objects {
		if len(o.Textures) > c.TexturesPerObject {
			c.TexturesPerObject = len(o.Textures)
		}
	}
	return c
}

// NewVulkanRenderer creates a not yet initialised Vulkan API renderer
func NewVulkanRenderer(cfg RendererConfiguration, log *logrus.Entry) *VulkanRenderer {
	return &VulkanRenderer{
		configuration: cfg,
		log:           log,
	}
}

// VulkanRenderer is the forward renderer over a single logical device
type VulkanRenderer struct {
	configuration RendererConfiguration
	log           *logrus.Entry

	ctx        *vkr.DeviceContext
	swapchain  *vkr.SwapchainManager
	renderPass vk.RenderPass
	registry   *vkr.ResourceRegistry
	pipeline   *vkr.Pipeline
	pass       *vkr.ForwardPass
	frames     *vkr.FrameOrchestrator

	stack teardown
}

// Initialise opens the logical device for profile, uploads objects
// and builds the pipeline from shaders. Whatever was created before
// a failure is released by Destroy.
func (v *VulkanRenderer) Initialise(negotiator *vkr.Negotiator, profile *vkr.DeviceProfile, objects []vkr.ObjectSpec, shaders []vkr.ShaderSource, camera vkr.Camera, window gfx.Extent2D) error {
	ctx, err := negotiator.Open(profile)
	if err != nil {
		return err
	}
	v.ctx = ctx
	v.stack.push(ctx.Destroy)

	transfer := vkr.NewTransferEngine(ctx)
	sm, err := vkr.NewSwapchainManager(ctx, transfer, v.log.WithField("component", "swapchain"))
	if err != nil {
		return err
	}
	v.swapchain = sm
	v.stack.push(sm.Destroy)

	rp, err := vkr.NewRenderPass(ctx, sm.SurfaceFormat().Format, sm.DepthFormat())
	if err != nil {
		return err
	}
	v.renderPass = rp
	v.stack.push(func() { ctx.Driver.DestroyRenderPass(ctx.Device, rp) })
	sm.AttachRenderPass(rp)

	registry, err := vkr.NewResourceRegistry(ctx, transfer, capacityFor(objects, vkr.ImageCount(profile.Capabilities)))
	if err != nil {
		return err
	}
	v.registry = registry
	v.stack.push(registry.Destroy)
	for _, spec := range objects {
		if _, err := registry.Add(spec); err != nil {
			return errors.Wrapf(err, "object %s", spec.Name)
		}
	}

	pipeline, err := vkr.NewPipeline(ctx, rp, registry.Layouts(), shaders)
	if err != nil {
		return err
	}
	v.pipeline = pipeline
	v.stack.push(pipeline.Destroy)

	v.pass = vkr.NewForwardPass(ctx, rp, pipeline, registry, camera)
	c := v.configuration.ClearColor
	v.pass.SetClearColor(c[0], c[1], c[2], c[3])

	frames, err := vkr.NewFrameOrchestrator(ctx, sm, v.pass,
		vk.Extent2D{Width: window.Width, Height: window.Height},
		vkr.FrameConfig{AcquireTimeout: v.configuration.AcquireTimeout},
		v.log.WithField("component", "frames"))
	if err != nil {
		return err
	}
	v.frames = frames
	v.stack.push(frames.Destroy)

	if err := frames.Start(); err != nil {
		return err
	}

	v.log.WithFields(logrus.Fields{
		"device":  profile.Name,
		"objects": len(objects),
		"stages":  len(shaders),
	}).Info("renderer initialised")
	return nil
}

// Tick draws and presents one frame
func (v *VulkanRenderer) Tick() (vkr.TickResult, error) {
	return v.frames.Tick()
}

// NotifyResize tells the renderer the window drawable changed size
func (v *VulkanRenderer) NotifyResize(width, height uint32) {
	v.frames.NotifyResize(width, height)
}

// ReloadShaders rebuilds the pipeline from shaders once the device is
// idle. The running pipeline stays in place when the rebuild fails.
func (v *VulkanRenderer) ReloadShaders(shaders []vkr.ShaderSource) error {
	if err := v.ctx.WaitIdle(); err != nil {
		return err
	}
	if err := v.pipeline.Rebuild(v.renderPass, shaders); err != nil {
		return err
	}
	v.frames.Invalidate()
	v.log.WithField("stages", len(shaders)).Info("pipeline rebuilt")
	return nil
}

// Destroy waits for the device and releases everything the renderer
// created, newest first.
func (v *VulkanRenderer) Destroy() {
	if v.ctx != nil && v.ctx.Device != nil {
		if err := v.ctx.WaitIdle(); err != nil {
			v.log.WithError(err).Warn("device did not become idle")
		}
	}
	v.stack.run()
}
