package config

import (
	"github.com/fsnotify/fsnotify"
)

// WatchOverrides watches the tool-description and system-message override
// files for changes and invokes onReload with freshly loaded Overrides
// whenever either one is written. It starts its own watch goroutine and
// returns at once; the watcher lives for the process lifetime and is never
// closed.
func WatchOverrides(toolDescriptionsPath, systemOverridesPath string, onReload func(*Overrides, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, path := range []string{toolDescriptionsPath, systemOverridesPath} {
		// Add fails if the file doesn't exist yet; that's fine, the
		// operator simply hasn't opted into overrides for that file.
		_ = watcher.Add(path)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				overrides, err := LoadOverrides(toolDescriptionsPath, systemOverridesPath)
				onReload(overrides, err)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}
