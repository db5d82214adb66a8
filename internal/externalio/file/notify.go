package file

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Directory-level change notifications for a set of glob patterns
type Notifier struct {
	watcher  *fsnotify.Watcher
	patterns []string
	dirs     map[string]struct{}
}

// What a file system event requires from the watch set
type Action int

const (
	ActionNone      Action = iota
	ActionPoll             // content appended to an existing path
	ActionReconcile        // path created, removed or renamed
)

// Creates a notifier watching the parent directory of every pattern.
// Fails when the platform offers no notification support or no directory can be watched.
func NewNotifier(patterns []string) (new *Notifier, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		err = fmt.Errorf("file notifications unavailable: %w", err)
		return
	}

	new = &Notifier{
		watcher:  watcher,
		patterns: patterns,
		dirs:     make(map[string]struct{}),
	}

	added, err := new.Refresh()
	if err != nil {
		watcher.Close()
		new = nil
		return
	}
	if added == 0 {
		watcher.Close()
		new = nil
		err = fmt.Errorf("no existing directory to watch for patterns %q", patterns)
		return
	}
	return
}

// Adds watches for pattern directories that appeared since the last call
func (notifier *Notifier) Refresh() (added int, err error) {
	for _, pattern := range notifier.patterns {
		dirPattern := filepath.Dir(pattern)

		var dirs []string
		dirs, err = filepath.Glob(dirPattern)
		if err != nil {
			err = fmt.Errorf("invalid directory pattern '%s': %w", dirPattern, err)
			return
		}

		for _, dir := range dirs {
			if _, watched := notifier.dirs[dir]; watched {
				continue
			}
			addErr := notifier.watcher.Add(dir)
			if addErr != nil {
				continue
			}
			notifier.dirs[dir] = struct{}{}
			added++
		}
	}
	return
}

func (notifier *Notifier) Events() (events <-chan fsnotify.Event) {
	events = notifier.watcher.Events
	return
}

func (notifier *Notifier) Errors() (errs <-chan error) {
	errs = notifier.watcher.Errors
	return
}

func (notifier *Notifier) Close() (err error) {
	if notifier == nil || notifier.watcher == nil {
		return
	}
	err = notifier.watcher.Close()
	return
}

// Maps an event to the work it requires. Events for paths outside every pattern need nothing.
func (notifier *Notifier) Classify(event fsnotify.Event) (action Action) {
	matched := false
	for _, pattern := range notifier.patterns {
		ok, _ := filepath.Match(pattern, event.Name)
		if ok {
			matched = true
			break
		}
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		// Renames away from a pattern still affect tracked files
		action = ActionReconcile
	case matched && event.Has(fsnotify.Write):
		action = ActionPoll
	}
	return
}
