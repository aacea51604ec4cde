package shell

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/core"
)

const watcherDebounce = 100 * time.Millisecond

// ShaderWatcher reports modified shader files so the session can rebuild the
// affected pipelines. Editors fire several write events per save, so events
// are debounced per path.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	changed chan string
	done    chan struct{}
}

func NewShaderWatcher(dir string) (*ShaderWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	sw := &ShaderWatcher{
		watcher: w,
		changed: make(chan string, 16),
		done:    make(chan struct{}),
	}
	go sw.run()
	core.LogInfo("watching %s for shader changes", dir)
	return sw, nil
}

// Changed delivers paths of modified shader files.
func (sw *ShaderWatcher) Changed() <-chan string {
	return sw.changed
}

func (sw *ShaderWatcher) run() {
	lastEvent := make(map[string]time.Time)
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isShaderFile(event.Name) {
				continue
			}
			now := time.Now()
			if now.Sub(lastEvent[event.Name]) < watcherDebounce {
				continue
			}
			lastEvent[event.Name] = now
			select {
			case sw.changed <- event.Name:
			default:
				core.LogWarn("shader change queue full, dropping %s", event.Name)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %v", err)
		}
	}
}

func isShaderFile(path string) bool {
	switch filepath.Ext(path) {
	case ".vert", ".frag", ".comp", ".glsl", ".spv", ".metal", ".hlsl":
		return true
	}
	return false
}

func (sw *ShaderWatcher) Close() {
	close(sw.done)
	sw.watcher.Close()
}
