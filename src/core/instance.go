// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"unsafe"

	"github.com/devblok/vkscene/src/gfx/vkr"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Names of the instance additions made in debug mode
const (
	ValidationLayer      = "VK_LAYER_KHRONOS_validation"
	DebugReportExtension = "VK_EXT_debug_report"
)

// DefaultVulkanApplicationInfo application info describes a Vulkan application
var DefaultVulkanApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   vkr.SafeString("vkscene"),
	PEngineName:        vkr.SafeString("vkscene"),
}

// PhysicalDeviceInfo describes a physical device as reported by the driver
type PhysicalDeviceInfo struct {
	ID            int      `json:"id"`
	VendorID      int      `json:"vendorId"`
	DriverVersion int      `json:"driverVersion"`
	Name          string   `json:"name"`
	Invalid       bool     `json:"invalid,omitempty"`
	Extensions    []string `json:"extensions"`
	Layers        []string `json:"layers"`
	Memory        uint     `json:"memory"`
}

// instanceLayers returns the layers and extensions to enable for cfg.
func instanceLayers(cfg InstanceConfiguration) (layers, extensions []string) {
	layers = append(layers, cfg.Layers...)
	extensions = append(extensions, cfg.Extensions...)
	if cfg.DebugMode {
		layers = appendMissing(layers, ValidationLayer)
		extensions = appendMissing(extensions, DebugReportExtension)
	}
	return layers, extensions
}

func appendMissing(list []string, name string) []string {
	for _, s := range list {
		if s == name {
			return list
		}
	}
	return append(list, name)
}

// NewVulkanInstance creates a Vulkan instance. procAddr is the
// window system's vkGetInstanceProcAddr, nil loads the system loader.
func NewVulkanInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg InstanceConfiguration, log *logrus.Entry) (*VulkanInstance, error) {
	layers, extensions := instanceLayers(cfg)

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: vkr.SafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     vkr.SafeStrings(layers),
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateInstance()")
	}
	vk.InitInstance(instance)

	v := &VulkanInstance{
		extensions: extensions,
		layers:     layers,
		instance:   instance,
		log:        log,
	}

	if cfg.DebugMode {
		dbgCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: v.debugCallback,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(instance, &dbgCreateInfo, nil, &dbg)); err != nil {
			log.WithError(err).Warn("vk.CreateDebugReportCallback(): validation messages will not be logged")
		} else {
			v.debug = dbg
		}
	}

	devices, err := enumerateDevices(instance)
	if err != nil {
		v.Destroy()
		return nil, err
	}
	v.availableDevices = devices
	return v, nil
}

// VulkanInstance describes a Vulkan API Instance
type VulkanInstance struct {
	extensions []string
	layers     []string

	availableDevices []vk.PhysicalDevice
	surface          vk.Surface
	instance         vk.Instance
	debug            vk.DebugReportCallback

	log *logrus.Entry
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumeratePhysicalDevices()")
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumeratePhysicalDevices()")
	}
	return availableDevices[:deviceCount], nil
}

func (v *VulkanInstance) debugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	logDebugReport(v.log, flags, messageCode, pLayerPrefix, pMessage)
	return vk.Bool32(vk.False)
}

func logDebugReport(log *logrus.Entry, flags vk.DebugReportFlags, code int32, layer, message string) {
	entry := log.WithFields(logrus.Fields{
		"layer": layer,
		"code":  code,
	})
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		entry.Error(message)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		entry.Warn(message)
	default:
		entry.Debug(message)
	}
}

// PhysicalDevicesInfo returns what the driver reports about every device
func (v *VulkanInstance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i, pd := range v.availableDevices {
		var numDeviceExtensions uint32
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, deviceExt)); err != nil {
			pdi[i].Invalid = true
		}
		for _, ext := range deviceExt {
			ext.Deref()
			pdi[i].Extensions = append(pdi[i].Extensions, vk.ToString(ext.ExtensionName[:]))
		}

		var numDeviceLayers uint32
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, deviceLayers)); err != nil {
			pdi[i].Invalid = true
		}
		for _, layer := range deviceLayers {
			layer.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(layer.LayerName[:]))
		}

		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
		memoryProperties.Deref()
		for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
			memoryProperties.MemoryHeaps[iMem].Deref()
			pdi[i].Memory += uint(memoryProperties.MemoryHeaps[iMem].Size)
		}

		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()
		pdi[i].ID = int(properties.DeviceID)
		pdi[i].VendorID = int(properties.VendorID)
		pdi[i].Name = vk.ToString(properties.DeviceName[:])
		pdi[i].DriverVersion = int(properties.DriverVersion)
	}
	return pdi
}

// SetSurface takes ownership of the window surface
func (v *VulkanInstance) SetSurface(pSurface unsafe.Pointer) {
	v.surface = vk.SurfaceFromPointer(uintptr(pSurface))
}

// Surface returns the window surface, vk.NullSurface when none is set
func (v *VulkanInstance) Surface() vk.Surface {
	if v.surface == nil {
		return vk.NullSurface
	}
	return v.surface
}

// Instance returns internal vk.Instance
func (v *VulkanInstance) Instance() vk.Instance {
	return v.instance
}

// Extensions returns the enabled instance extensions
func (v *VulkanInstance) Extensions() []string {
	return v.extensions
}

// Layers returns the enabled instance layers
func (v *VulkanInstance) Layers() []string {
	return v.layers
}

// AvailableDevices returns handles of the physical devices
func (v *VulkanInstance) AvailableDevices() []vk.PhysicalDevice {
	return v.availableDevices
}

// DestroySurface destroys the window surface. The device using it
// must be gone already.
func (v *VulkanInstance) DestroySurface() {
	if v.surface == nil {
		return
	}
	vk.DestroySurface(v.instance, v.surface, nil)
	v.surface = nil
}

// Destroy destroys the debug callback and the instance
func (v *VulkanInstance) Destroy() {
	if v.instance == nil {
		return
	}
	if v.debug != nil {
		vk.DestroyDebugReportCallback(v.instance, v.debug, nil)
		v.debug = nil
	}
	v.availableDevices = nil
	vk.DestroyInstance(v.instance, nil)
	v.instance = nil
}
