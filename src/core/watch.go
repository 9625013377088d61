// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewShaderWatcher watches files for changes. Their directories are
// watched so that editors replacing a file by rename are noticed.
func NewShaderWatcher(files []string, log *logrus.Entry) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "fsnotify.NewWatcher()")
	}

	sw := &ShaderWatcher{
		watcher: watcher,
		files:   make(map[string]bool),
		changes: make(chan string, 1),
		done:    make(chan struct{}),
		log:     log,
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		sw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "watch %s", dir)
		}
	}

	sw.wg.Add(1)
	go sw.watch()
	return sw, nil
}

// ShaderWatcher reports changes to a set of shader files.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	changes chan string
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	log     *logrus.Entry
}

// Changes delivers the path of a changed file. Changes arriving while
// one is pending are folded into it.
func (sw *ShaderWatcher) Changes() <-chan string {
	return sw.changes
}

func (sw *ShaderWatcher) watch() {
	defer sw.wg.Done()
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !sw.files[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			sw.log.WithField("file", event.Name).Debug("shader changed")
			select {
			case sw.changes <- event.Name:
			default:
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.log.WithError(err).Warn("shader watcher")
		}
	}
}

// Close stops watching
func (sw *ShaderWatcher) Close() error {
	var err error
	sw.once.Do(func() {
		close(sw.done)
		err = sw.watcher.Close()
		sw.wg.Wait()
	})
	return err
}
