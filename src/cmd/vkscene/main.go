// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/devblok/vkscene/src/core"
	"github.com/devblok/vkscene/src/gfx/vkr"
	"github.com/devblok/vkscene/src/scene"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
)

var (
	debug    = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	device   = flag.Int("device", -1, "Use the device with this index instead of asking")
	auto     = flag.Bool("auto", false, "Use the first suitable device instead of asking")
	watch    = flag.Bool("watch", false, "Rebuild the pipeline when scene shaders change")
	glslang  = flag.String("glslang", "", "Path to glslangValidator")
	logLevel = flag.String("log", "", "Log level")
	envFile  = flag.String("env", ".env", "Environment file to load settings from")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] scene.{json,yaml,toml}\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		return 1
	}

	cfg := core.DefaultConfiguration()
	if err := core.LoadEnvironment(*envFile); err != nil {
		log.WithError(err).Warn("environment file ignored")
	}
	if err := core.ApplyEnvironment(&cfg); err != nil {
		log.WithError(err).Error("invalid environment")
		return 0
	}
	applyFlags(&cfg)

	logger, closeLog, err := core.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		log.WithError(err).Error("logger")
		return 0
	}
	defer closeLog()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			logger.WithError(err).Error("cpu profile")
			return 0
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.WithError(err).Error("cpu profile")
			return 0
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			logger.WithError(err).Error("trace")
			return 0
		}
		if err := trace.Start(f); err != nil {
			logger.WithError(err).Error("trace")
			return 0
		}
		defer trace.Stop()
	}

	sc, err := scene.Load(flag.Arg(0))
	if err != nil {
		logger.WithError(err).Error("scene")
		return 0
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		logger.WithError(err).Error("sdl.Init()")
		return 0
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		logger.WithError(err).Error("sdl.VulkanLoadLibrary()")
		return 0
	}
	defer sdl.VulkanUnloadLibrary()

	w, err := newWindow("vkscene", cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
	if err != nil {
		logger.WithError(err).Error("sdl.CreateWindow()")
		return 0
	}
	defer w.Destroy()

	if err := core.Run(cfg, sc, w, selector(cfg.Instance), logger); err != nil {
		logger.WithError(err).WithField("location", vkr.Location(err)).Error("vkscene stopped")
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			logger.WithError(err).Error("memory profile")
			return 0
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			logger.WithError(err).Error("memory profile")
		}
	}
	return 0
}

func applyFlags(cfg *core.Configuration) {
	if *debug {
		cfg.Instance.DebugMode = true
	}
	if *device >= 0 {
		cfg.Instance.Device = *device
	}
	if *watch {
		cfg.Renderer.Watch = true
	}
	if *glslang != "" {
		cfg.Renderer.Glslang = *glslang
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
}

func selector(cfg core.InstanceConfiguration) core.Selector {
	switch {
	case *auto:
		return core.AutoSelector{Index: -1}
	case cfg.Device >= 0:
		return core.AutoSelector{Index: cfg.Device}
	}
	return core.NewPromptSelector(os.Stdin, os.Stdout)
}
