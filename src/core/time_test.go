// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeFixedSteps(t *testing.T) {
	tm := NewTime(TimeConfiguration{FramesPerSecond: 60, UpdateStep: 5 * time.Millisecond})
	defer tm.Stop()

	start := time.Unix(100, 0)
	assert.Equal(t, 0, tm.Steps(start))
	assert.Equal(t, 2, tm.Steps(start.Add(12*time.Millisecond)))
	assert.Equal(t, 0, tm.Steps(start.Add(14*time.Millisecond)))
	assert.Equal(t, 1, tm.Steps(start.Add(15*time.Millisecond)))
	assert.Equal(t, 0, tm.Steps(start.Add(10*time.Millisecond)))
}

func TestTimeCapsCatchUp(t *testing.T) {
	tm := NewTime(TimeConfiguration{UpdateStep: time.Millisecond})
	defer tm.Stop()

	start := time.Unix(100, 0)
	tm.Steps(start)
	assert.Equal(t, maxSteps, tm.Steps(start.Add(time.Second)))
	assert.Equal(t, 1, tm.Steps(start.Add(time.Second+time.Millisecond)))
}

func TestTimeDefaults(t *testing.T) {
	tm := NewTime(TimeConfiguration{FramesPerSecond: 144})
	defer tm.Stop()

	assert.Equal(t, 144, tm.Fps())
	assert.Equal(t, 5*time.Millisecond, tm.Step())
	assert.NotNil(t, tm.FpsTicker())
	assert.NotNil(t, tm.EventTicker())

	select {
	case <-tm.FpsTicker().C:
	case <-time.After(time.Second):
		t.Fatal("fps ticker did not fire")
	}
}
