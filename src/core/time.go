// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

// maxSteps caps how many fixed updates one frame may catch up on.
const maxSteps = 20

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	var interval time.Duration
	if cfg.FramesPerSecond == 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / (time.Duration)(cfg.FramesPerSecond)
	}

	eventDelay := time.Duration(cfg.EventPollDelay) * time.Millisecond
	if eventDelay <= 0 {
		eventDelay = time.Millisecond
	}

	step := cfg.UpdateStep
	if step <= 0 {
		step = 5 * time.Millisecond
	}

	return &Time{
		fps:            cfg.FramesPerSecond,
		fpsTicker:      time.NewTicker(interval),
		eventPollDelay: cfg.EventPollDelay,
		eventTicker:    time.NewTicker(eventDelay),
		step:           step,
	}
}

// Time contains all the time services and tickers
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventPollDelay int
	eventTicker    *time.Ticker

	step        time.Duration
	last        time.Time
	accumulator time.Duration
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventTicker gets the initialized event ticker for the event loop
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// Step is the fixed update interval
func (t *Time) Step() time.Duration {
	return t.step
}

// Steps returns how many fixed updates are due at now. The first
// call starts the clock and returns zero. Leftover time carries
// over to the next call.
func (t *Time) Steps(now time.Time) int {
	if t.last.IsZero() {
		t.last = now
		return 0
	}
	if now.After(t.last) {
		t.accumulator += now.Sub(t.last)
	}
	t.last = now

	n := int(t.accumulator / t.step)
	t.accumulator -= time.Duration(n) * t.step
	if n > maxSteps {
		n = maxSteps
		t.accumulator = 0
	}
	return n
}

// Stop stops the tickers
func (t *Time) Stop() {
	t.fpsTicker.Stop()
	t.eventTicker.Stop()
}
