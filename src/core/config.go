// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"os"
	"strconv"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
	Instance InstanceConfiguration
	Log      LogConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the event ticker interval in milliseconds
	EventPollDelay int

	// UpdateStep is the fixed camera integration step
	UpdateStep time.Duration
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	ScreenWidth  uint32
	ScreenHeight uint32

	// AcquireTimeout bounds swapchain image acquisition, zero blocks
	AcquireTimeout time.Duration
	ClearColor     [4]float32

	// Glslang is the GLSL compiler executable, GlslangArgs are
	// appended to each invocation
	Glslang     string
	GlslangArgs string

	// Watch recompiles shaders when their files change
	Watch bool
}

// InstanceConfiguration is used to configure the Vulkan instance
// and device selection
type InstanceConfiguration struct {
	Extensions []string
	Layers     []string
	DebugMode  bool

	// SelectionAttempts bounds how many times the user is asked
	// for a device before giving up
	SelectionAttempts int

	// Device picks a device by index without asking, negative
	// values prompt on stdin
	Device int
}

// LogConfiguration is used to configure logging
type LogConfiguration struct {
	Level string
	File  string
}

// DefaultConfiguration returns the settings used when nothing overrides them
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 144,
			EventPollDelay:  10,
			UpdateStep:      5 * time.Millisecond,
		},
		Renderer: RendererConfiguration{
			ScreenWidth:    1280,
			ScreenHeight:   720,
			AcquireTimeout: time.Second,
			ClearColor:     [4]float32{0, 0, 0, 1},
		},
		Instance: InstanceConfiguration{
			SelectionAttempts: 3,
			Device:            -1,
		},
		Log: LogConfiguration{
			Level: "info",
		},
	}
}

// LoadEnvironment loads the given .env files into the process
// environment. Files that don't exist are skipped.
func LoadEnvironment(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return errors.Wrap(err, "godotenv.Load()")
		}
	}
	envy.Reload()
	return nil
}

// ApplyEnvironment overrides cfg with the VKSCENE_* variables.
func ApplyEnvironment(cfg *Configuration) error {
	var err error
	if v := envy.Get("VKSCENE_DEBUG", ""); v != "" {
		if cfg.Instance.DebugMode, err = strconv.ParseBool(v); err != nil {
			return errors.Wrap(err, "VKSCENE_DEBUG")
		}
	}
	if err = envInt("VKSCENE_FPS", &cfg.Time.FramesPerSecond); err != nil {
		return err
	}
	if err = envUint32("VKSCENE_WIDTH", &cfg.Renderer.ScreenWidth); err != nil {
		return err
	}
	if err = envUint32("VKSCENE_HEIGHT", &cfg.Renderer.ScreenHeight); err != nil {
		return err
	}
	timeout := int(cfg.Renderer.AcquireTimeout / time.Millisecond)
	if err = envInt("VKSCENE_ACQUIRE_TIMEOUT_MS", &timeout); err != nil {
		return err
	}
	cfg.Renderer.AcquireTimeout = time.Duration(timeout) * time.Millisecond
	if err = envInt("VKSCENE_SELECT_ATTEMPTS", &cfg.Instance.SelectionAttempts); err != nil {
		return err
	}
	if err = envInt("VKSCENE_DEVICE", &cfg.Instance.Device); err != nil {
		return err
	}
	cfg.Renderer.Glslang = envy.Get("VKSCENE_GLSLANG", cfg.Renderer.Glslang)
	cfg.Log.Level = envy.Get("VKSCENE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = envy.Get("VKSCENE_LOG_FILE", cfg.Log.File)
	return nil
}

func envInt(key string, dst *int) error {
	v := envy.Get(key, "")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrap(err, key)
	}
	*dst = n
	return nil
}

func envUint32(key string, dst *uint32) error {
	v := envy.Get(key, "")
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return errors.Wrap(err, key)
	}
	*dst = uint32(n)
	return nil
}
