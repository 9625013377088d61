// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/devblok/vkscene/src/gfx/vkr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrSelectionAborted is returned when the user gives up choosing a device.
var ErrSelectionAborted = errors.New("device selection aborted")

// Selector chooses a physical device out of the negotiated candidates.
type Selector interface {
	// Select returns the index of the chosen candidate
	Select(candidates []vkr.Candidate) (int, error)

	// Retry is asked after a rejected choice whether to select again
	Retry(reason error) bool
}

// SelectDevice asks sel for a device until it picks a suitable one.
// It gives up after attempts rejected choices or when sel declines
// to retry, returning vkr.ErrNoSuitableDevice.
func SelectDevice(candidates []vkr.Candidate, sel Selector, attempts int, log *logrus.Entry) (vkr.Candidate, error) {
	if attempts <= 0 {
		attempts = 1
	}
	suitable := false
	for _, c := range candidates {
		if c.Suitable() {
			suitable = true
			break
		}
	}
	if !suitable {
		for _, c := range candidates {
			log.WithError(c.Err).WithField("device", c.Name).Error("device unsuitable")
		}
		return vkr.Candidate{}, errors.WithStack(vkr.ErrNoSuitableDevice)
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		idx, err := sel.Select(candidates)
		if err != nil {
			if errors.Cause(err) == ErrSelectionAborted {
				return vkr.Candidate{}, errors.Wrap(vkr.ErrNoSuitableDevice, err.Error())
			}
			return vkr.Candidate{}, err
		}

		var reason error
		switch {
		case idx < 0 || idx >= len(candidates):
			reason = errors.Errorf("no device with index %d", idx)
		case !candidates[idx].Suitable():
			reason = candidates[idx].Err
		default:
			log.WithField("device", candidates[idx].Name).Info("device selected")
			return candidates[idx], nil
		}

		log.WithError(reason).WithField("attempt", attempt).Warn("device rejected")
		if attempt == attempts || !sel.Retry(reason) {
			break
		}
	}
	return vkr.Candidate{}, errors.WithStack(vkr.ErrNoSuitableDevice)
}

// NewPromptSelector creates a selector asking on in and listing on out.
func NewPromptSelector(in io.Reader, out io.Writer) *PromptSelector {
	return &PromptSelector{in: bufio.NewReader(in), out: out}
}

// PromptSelector lets the user pick a device from a numbered list.
type PromptSelector struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *PromptSelector) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Select prints every candidate with its verdict and reads an index.
func (p *PromptSelector) Select(candidates []vkr.Candidate) (int, error) {
	for idx, c := range candidates {
		if c.Suitable() {
			fmt.Fprintf(p.out, "[%d] %s\n", idx, c.Name)
		} else {
			fmt.Fprintf(p.out, "[%d] %s (unsuitable: %v)\n", idx, c.Name, c.Err)
		}
	}
	fmt.Fprint(p.out, "Select device: ")

	line, err := p.readLine()
	if err != nil {
		return -1, errors.Wrap(ErrSelectionAborted, err.Error())
	}
	idx, err := strconv.Atoi(line)
	if err != nil {
		return -1, nil
	}
	return idx, nil
}

// Retry prints the reason and asks whether to quit.
func (p *PromptSelector) Retry(reason error) bool {
	fmt.Fprintf(p.out, "Device cannot be used: %v\n", reason)
	fmt.Fprint(p.out, "Quit [Y/n]? ")
	line, err := p.readLine()
	if err != nil {
		return false
	}
	switch strings.ToLower(line) {
	case "n", "no":
		return true
	}
	return false
}

// AutoSelector selects without asking. A negative Index picks the
// first suitable device.
type AutoSelector struct {
	Index int
}

// Select implements Selector
func (a AutoSelector) Select(candidates []vkr.Candidate) (int, error) {
	if a.Index >= 0 {
		return a.Index, nil
	}
	for idx, c := range candidates {
		if c.Suitable() {
			return idx, nil
		}
	}
	return -1, errors.WithStack(ErrSelectionAborted)
}

// Retry implements Selector
func (AutoSelector) Retry(error) bool {
	return false
}
