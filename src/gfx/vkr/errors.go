// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"strings"

	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// Fatal configuration errors, compare against errors.Cause(err).
var (
	ErrNoMemoryType          = errors.New("suitable memory type not found")
	ErrNoDepthFormat         = errors.New("no supported depth format")
	ErrUnsupportedTransition = errors.New("unsupported layout transition")
	ErrNoSuitableDevice      = errors.New("no suitable physical device")
	ErrZeroExtent            = errors.New("surface extent is zero")
)

// Reason names the negotiation check a device failed.
type Reason string

// Negotiation failure reasons
const (
	ReasonMissingExtension   Reason = "missing extension"
	ReasonNoQueueFamily      Reason = "no queue family"
	ReasonUnsupportedFeature Reason = "unsupported feature"
	ReasonNoSurfaceFormats   Reason = "no surface formats"
	ReasonNoPresentModes     Reason = "no present modes"
)

// NegotiationError is returned when a physical device cannot satisfy
// the renderer. The caller may offer another device.
type NegotiationError struct {
	Device string
	Reason Reason
	Detail []string
}

func (e *NegotiationError) Error() string {
	if len(e.Detail) == 0 {
		return fmt.Sprintf("device %q: %s", e.Device, e.Reason)
	}
	return fmt.Sprintf("device %q: %s: %s", e.Device, e.Reason, strings.Join(e.Detail, ", "))
}

// CallError is a failed Vulkan entry point.
type CallError struct {
	Call   string
	Result vk.Result
}

func (e *CallError) Error() string {
	if err := vk.Error(e.Result); err != nil {
		return fmt.Sprintf("vk.%s(): %s", e.Call, err.Error())
	}
	return fmt.Sprintf("vk.%s(): result %d", e.Call, e.Result)
}

func check(call string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return errors.WithStack(&CallError{Call: call, Result: ret})
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type causer interface {
	Cause() error
}

// Location returns file:line of the innermost stack recorded while
// wrapping err, or an empty string when err carries none. Stacks of
// sentinel errors point at their declaration and are ignored.
func Location(err error) string {
	var st errors.StackTrace
	for err != nil {
		c, ok := err.(causer)
		if !ok {
			break
		}
		if tracer, ok := err.(stackTracer); ok {
			st = tracer.StackTrace()
		}
		err = c.Cause()
	}
	if len(st) == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", st[0], st[0])
}
