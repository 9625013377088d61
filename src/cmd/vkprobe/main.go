// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"io/ioutil"
	"os"
	"runtime"

	"github.com/devblok/vkscene/src/core"
	"github.com/devblok/vkscene/src/gfx/vkr"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

var (
	debug   = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	compact = flag.Bool("compact", false, "Print one JSON document per line")
	verbose = flag.Bool("v", false, "Log negotiation details to stderr")
)

// report is the probe output for one physical device
type report struct {
	core.PhysicalDeviceInfo
	Suitable bool   `json:"suitable"`
	Reason   string `json:"reason,omitempty"`
}

func main() {
	flag.Parse()

	logger := log.New()
	logger.SetOutput(os.Stderr)
	if !*verbose {
		logger.SetOutput(ioutil.Discard)
	} else {
		logger.SetLevel(log.DebugLevel)
	}

	reports, err := probe(logger)
	if err != nil {
		log.WithError(err).WithField("location", vkr.Location(err)).Fatal("probe failed")
	}

	enc := json.NewEncoder(os.Stdout)
	if !*compact {
		enc.SetIndent("", "  ")
	}
	for _, r := range reports {
		if err := enc.Encode(r); err != nil {
			log.WithError(err).Fatal("output")
		}
	}
}

func probe(logger *log.Logger) ([]report, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "sdl.Init()")
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return nil, errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := sdl.CreateWindow("vkprobe", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, 64, 64, sdl.WINDOW_VULKAN|sdl.WINDOW_HIDDEN)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	defer window.Destroy()

	cfg := core.InstanceConfiguration{
		DebugMode:  *debug,
		Extensions: window.VulkanGetInstanceExtensions(),
	}
	instance, err := core.NewVulkanInstance(core.DefaultVulkanApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), cfg, core.Component(logger, "validation"))
	if err != nil {
		return nil, err
	}
	defer instance.Destroy()

	surface, err := window.VulkanCreateSurface(instance.Instance())
	if err != nil {
		return nil, errors.Wrap(err, "window surface")
	}
	instance.SetSurface(surface)
	defer instance.DestroySurface()

	negotiator := vkr.NewNegotiator(vkr.NewDriver(), instance.Instance(), instance.Surface(), vkr.DefaultRequirements(), core.Component(logger, "negotiator"))
	candidates, err := negotiator.EvaluateAll()
	if err != nil {
		return nil, err
	}

	verdicts := make(map[vk.PhysicalDevice]vkr.Candidate, len(candidates))
	for _, c := range candidates {
		verdicts[c.Device] = c
	}

	infos := instance.PhysicalDevicesInfo()
	reports := make([]report, 0, len(infos))
	for idx, info := range infos {
		r := report{PhysicalDeviceInfo: info}
		if c, ok := verdicts[instance.AvailableDevices()[idx]]; ok {
			r.Suitable = c.Suitable()
			if c.Err != nil {
				r.Reason = c.Err.Error()
			}
		} else {
			r.Reason = "not enumerated by the negotiator"
		}
		reports = append(reports, r)
	}
	return reports, nil
}
