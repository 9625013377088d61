// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/devblok/vulkan"
	"github.com/sirupsen/logrus"
)

// Requirements is what a physical device must provide.
type Requirements struct {
	Extensions         []string
	GeometryShader     bool
	TessellationShader bool
	SamplerAnisotropy  bool
}

// DefaultRequirements returns the requirements of the forward renderer.
func DefaultRequirements() Requirements {
	return Requirements{
		Extensions:         []string{vk.KhrSwapchainExtensionName},
		GeometryShader:     true,
		TessellationShader: true,
		SamplerAnisotropy:  true,
	}
}

// Sharing is the sharing mode of a resource along with the queue
// families taking part in concurrent sharing.
type Sharing struct {
	Mode     vk.SharingMode
	Families []uint32
}

// Exclusive is the sharing mode of resources owned by a single queue.
var Exclusive = Sharing{Mode: vk.SharingModeExclusive}

// DeviceProfile is everything learned about a physical device that
// passed negotiation. It is never mutated after Evaluate returns it.
type DeviceProfile struct {
	Device         vk.PhysicalDevice
	Name           string
	Capabilities   vk.SurfaceCapabilities
	Formats        []vk.SurfaceFormat
	PresentModes   []vk.PresentMode
	Memory         MemoryTable
	GraphicsFamily uint32
	PresentFamily  uint32
}

// SharingMode returns the sharing swapchain images need between the
// graphics and present families.
func (p *DeviceProfile) SharingMode() Sharing {
	if p.GraphicsFamily == p.PresentFamily {
		return Exclusive
	}
	return Sharing{
		Mode:     vk.SharingModeConcurrent,
		Families: []uint32{p.GraphicsFamily, p.PresentFamily},
	}
}

// Families returns the distinct queue family indices in use.
func (p *DeviceProfile) Families() []uint32 {
	if p.GraphicsFamily == p.PresentFamily {
		return []uint32{p.GraphicsFamily}
	}
	return []uint32{p.GraphicsFamily, p.PresentFamily}
}

// Candidate is the verdict for a single physical device.
type Candidate struct {
	Device  vk.PhysicalDevice
	Name    string
	Profile *DeviceProfile
	Err     error
}

// Suitable reports whether the device passed negotiation.
func (c Candidate) Suitable() bool {
	return c.Err == nil && c.Profile != nil
}

// NewNegotiator creates a negotiator for devices able to present to surface.
func NewNegotiator(driver Driver, instance vk.Instance, surface vk.Surface, req Requirements, log *logrus.Entry) *Negotiator {
	return &Negotiator{
		driver:   driver,
		instance: instance,
		surface:  surface,
		req:      req,
		log:      log,
	}
}

// Negotiator checks physical devices against Requirements and opens
// the logical device on the chosen one.
type Negotiator struct {
	driver   Driver
	instance vk.Instance
	surface  vk.Surface
	req      Requirements
	log      *logrus.Entry
}

// EvaluateAll runs Evaluate against every physical device of the instance.
func (n *Negotiator) EvaluateAll() ([]Candidate, error) {
	devices, err := n.driver.EnumeratePhysicalDevices(n.instance)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(devices))
	for _, pd := range devices {
		profile, err := n.Evaluate(pd)
		c := Candidate{
			Device:  pd,
			Name:    n.driver.PhysicalDeviceName(pd),
			Profile: profile,
			Err:     err,
		}
		if err != nil {
			n.log.WithError(err).Debug("device rejected")
		} else {
			n.log.WithField("device", c.Name).Debug("device suitable")
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Evaluate checks pd in order: extensions, queue families, surface
// formats and present modes, then features. The first failure is
// returned as a *NegotiationError.
func (n *Negotiator) Evaluate(pd vk.PhysicalDevice) (*DeviceProfile, error) {
	name := n.driver.PhysicalDeviceName(pd)
	fail := func(reason Reason, detail ...string) error {
		return &NegotiationError{Device: name, Reason: reason, Detail: detail}
	}

	available, err := n.driver.DeviceExtensions(pd)
	if err != nil {
		return nil, err
	}
	if missing := missingExtensions(n.req.Extensions, available); len(missing) > 0 {
		return nil, fail(ReasonMissingExtension, missing...)
	}

	graphics, present, ok, err := n.findQueueFamilies(pd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fail(ReasonNoQueueFamily)
	}

	formats, err := n.driver.SurfaceFormats(pd, n.surface)
	if err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		return nil, fail(ReasonNoSurfaceFormats)
	}
	modes, err := n.driver.PresentModes(pd, n.surface)
	if err != nil {
		return nil, err
	}
	if len(modes) == 0 {
		return nil, fail(ReasonNoPresentModes)
	}

	if missing := n.missingFeatures(n.driver.Features(pd)); len(missing) > 0 {
		return nil, fail(ReasonUnsupportedFeature, missing...)
	}

	caps, err := n.driver.SurfaceCapabilities(pd, n.surface)
	if err != nil {
		return nil, err
	}

	return &DeviceProfile{
		Device:         pd,
		Name:           name,
		Capabilities:   caps,
		Formats:        formats,
		PresentModes:   modes,
		Memory:         n.driver.MemoryProperties(pd),
		GraphicsFamily: graphics,
		PresentFamily:  present,
	}, nil
}

// findQueueFamilies prefers one family doing both graphics and
// present, otherwise the first of each.
func (n *Negotiator) findQueueFamilies(pd vk.PhysicalDevice) (graphics, present uint32, ok bool, err error) {
	var graphicsFound, presentFound bool
	for idx, family := range n.driver.QueueFamilies(pd) {
		i := uint32(idx)
		isGraphics := family.QueueCount > 0 && family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		supportsPresent, err := n.driver.SurfaceSupport(pd, i, n.surface)
		if err != nil {
			return 0, 0, false, err
		}
		if isGraphics && supportsPresent {
			return i, i, true, nil
		}
		if isGraphics && !graphicsFound {
			graphics, graphicsFound = i, true
		}
		if supportsPresent && !presentFound {
			present, presentFound = i, true
		}
	}
	return graphics, present, graphicsFound && presentFound, nil
}

func (n *Negotiator) missingFeatures(f vk.PhysicalDeviceFeatures) []string {
	var missing []string
	if n.req.GeometryShader && f.GeometryShader != vk.True {
		missing = append(missing, "geometryShader")
	}
	if n.req.TessellationShader && f.TessellationShader != vk.True {
		missing = append(missing, "tessellationShader")
	}
	if n.req.SamplerAnisotropy && f.SamplerAnisotropy != vk.True {
		missing = append(missing, "samplerAnisotropy")
	}
	return missing
}

func missingExtensions(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, ext := range available {
		have[ext] = struct{}{}
	}
	var missing []string
	for _, ext := range required {
		if _, ok := have[ext]; !ok {
			missing = append(missing, ext)
		}
	}
	return missing
}

// Open creates the logical device, its queues and the shared command pool.
func (n *Negotiator) Open(profile *DeviceProfile) (*DeviceContext, error) {
	priorities := []float32{1.0}
	var queueInfos []vk.DeviceQueueCreateInfo
	for _, family := range profile.Families() {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: priorities,
		})
	}

	var features vk.PhysicalDeviceFeatures
	if n.req.GeometryShader {
		features.GeometryShader = vk.True
	}
	if n.req.TessellationShader {
		features.TessellationShader = vk.True
	}
	if n.req.SamplerAnisotropy {
		features.SamplerAnisotropy = vk.True
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(n.req.Extensions)),
		PpEnabledExtensionNames: SafeStrings(n.req.Extensions),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
	}
	device, err := n.driver.CreateDevice(profile.Device, &dci)
	if err != nil {
		return nil, err
	}

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: profile.GraphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	pool, err := n.driver.CreateCommandPool(device, &cpci)
	if err != nil {
		n.driver.DestroyDevice(device)
		return nil, err
	}

	n.log.WithFields(logrus.Fields{
		"device":   profile.Name,
		"graphics": profile.GraphicsFamily,
		"present":  profile.PresentFamily,
	}).Info("logical device created")

	return &DeviceContext{
		Driver:        n.driver,
		Profile:       profile,
		Device:        device,
		GraphicsQueue: n.driver.DeviceQueue(device, profile.GraphicsFamily),
		PresentQueue:  n.driver.DeviceQueue(device, profile.PresentFamily),
		CommandPool:   pool,
		Surface:       n.surface,
		Log:           n.log,
	}, nil
}

// DeviceContext is the opened logical device handed to every component.
type DeviceContext struct {
	Driver        Driver
	Profile       *DeviceProfile
	Device        vk.Device
	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	CommandPool   vk.CommandPool
	Surface       vk.Surface
	Log           *logrus.Entry
}

// WaitIdle blocks until the device has finished all submitted work.
func (c *DeviceContext) WaitIdle() error {
	return c.Driver.DeviceWaitIdle(c.Device)
}

// Destroy waits for the device and destroys the command pool and the
// device. Everything created from the context must be gone by now.
func (c *DeviceContext) Destroy() {
	if c.Device == nil {
		return
	}
	if err := c.WaitIdle(); err != nil && c.Log != nil {
		c.Log.WithError(err).Warn("device did not go idle before it was destroyed")
	}
	c.Driver.DestroyCommandPool(c.Device, c.CommandPool)
	c.Driver.DestroyDevice(c.Device)
	c.Device = nil
}
