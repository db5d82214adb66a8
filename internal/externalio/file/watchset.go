package file

import (
	"context"
	"errors"
	"fmt"
	"logpush/internal/global"
	"logpush/internal/logctx"
	"os"
	"path/filepath"
	"slices"
)

// Creates a watch set for the glob patterns. Malformed patterns are logged and skipped.
// tailLines lines of history are returned for each file found by the first reconcile.
func NewWatchSet(ctx context.Context, patterns []string, tailLines int) (new *WatchSet, err error) {
	var valid []string
	for _, pattern := range patterns {
		_, err = filepath.Match(pattern, "")
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"skipping malformed file pattern '%s': %v\n", pattern, err)
			err = nil
			continue
		}

		var absolute string
		absolute, err = filepath.Abs(pattern)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"skipping file pattern '%s': %v\n", pattern, err)
			err = nil
			continue
		}
		valid = append(valid, absolute)
	}
	if len(valid) == 0 {
		err = fmt.Errorf("no usable file patterns in %q", patterns)
		return
	}
	if tailLines < 0 {
		tailLines = 0
	}

	new = &WatchSet{
		Namespace: append(slices.Clone(logctx.GetTagList(ctx)), global.NSWatcher),
		patterns:  valid,
		tailLines: tailLines,
		tailers:   make(map[string]*Tailer),
		Metrics:   &MetricStorage{},
	}
	return
}

// Expands patterns, then finalizes tailers whose path vanished or changed identity and
// opens tailers for newly matched files. Returned batches are in the order they must be emitted.
func (set *WatchSet) Reconcile(ctx context.Context) (batches []Batch) {
	current := set.expand(ctx)

	// Identities already being read, used to skip re-reading content that moved paths
	known := make(map[Identity]struct{}, len(set.tailers))
	for _, tailer := range set.tailers {
		known[tailer.Identity()] = struct{}{}
	}

	for _, path := range set.Tracked() {
		tailer := set.tailers[path]

		_, matched := current[path]
		id, err := IdentityOf(path)
		if matched && err == nil && id == tailer.Identity() {
			continue
		}

		batch, finalErr := set.finalize(ctx, tailer)
		if finalErr != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"error finalizing '%s': %v\n", path, finalErr)
		}
		if len(batch.Lines) > 0 {
			batches = append(batches, batch)
		}

		if !matched || err != nil {
			logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
				"stopped watching '%s' (file removed)\n", path)
			continue
		}

		// Replaced file: read from the beginning unless its content is already being read elsewhere
		startAt := int64(0)
		if _, seen := known[id]; seen {
			startAt = OffsetEnd
		}
		replacement, err := OpenTailer(path, startAt)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"unable to reopen rotated file '%s': %v\n", path, err)
			continue
		}
		set.tailers[path] = replacement
		set.Metrics.Opened.Add(1)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
			"file '%s' rotated (identity %s -> %s)\n", path, tailer.Identity(), replacement.Identity())
	}

	active := make(map[Identity]string, len(set.tailers))
	for path, tailer := range set.tailers {
		active[tailer.Identity()] = path
	}

	for _, path := range sortedKeys(current) {
		if _, tracked := set.tailers[path]; tracked {
			continue
		}

		// Back-read and tailer share one handle so both see the same file
		handle, err := os.Open(path)
		if err != nil {
			continue
		}
		id, err := IdentityOfFile(handle)
		if err != nil {
			handle.Close()
			continue
		}
		if other, dup := active[id]; dup {
			handle.Close()
			logctx.LogEvent(ctx, global.VerbosityDebug, global.InfoLog,
				"'%s' is the same file as '%s', not tailing twice\n", path, other)
			continue
		}

		startAt := OffsetEnd
		var history []string
		if !set.reconciled && set.tailLines > 0 {
			lines, offset, histErr := historyOf(handle, path, set.tailLines)
			if histErr != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "%v\n", histErr)
			} else {
				startAt = offset
				history = lines
			}
		}

		tailer, err := newTailer(handle, path, startAt)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"unable to watch '%s': %v\n", path, err)
			continue
		}
		if len(history) > 0 {
			batches = append(batches, Batch{Path: path, Lines: history})
			set.Metrics.LinesRead.Add(uint64(len(history)))
		}
		set.tailers[path] = tailer
		active[tailer.Identity()] = path
		set.Metrics.Opened.Add(1)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
			"started watching '%s' at offset %d\n", path, tailer.Offset())
	}

	set.reconciled = true
	return
}

// True when some tracked file has more unread data than one Poll returns
func (set *WatchSet) Behind() (behind bool) {
	for _, tailer := range set.tailers {
		if tailer.Behind() {
			behind = true
			return
		}
	}
	return
}

// Reads new complete lines from every tracked file
func (set *WatchSet) Poll(ctx context.Context) (batches []Batch) {
	for _, path := range set.Tracked() {
		batch, ok := set.pollOne(ctx, path)
		if ok {
			batches = append(batches, batch)
		}
	}
	return
}

// Reads new complete lines from one tracked file. Untracked paths return nothing.
func (set *WatchSet) PollPath(ctx context.Context, path string) (batches []Batch) {
	key := path
	if _, tracked := set.tailers[key]; !tracked {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return
		}
		key = resolved
	}

	batch, ok := set.pollOne(ctx, key)
	if ok {
		batches = append(batches, batch)
	}
	return
}

func (set *WatchSet) pollOne(ctx context.Context, path string) (batch Batch, ok bool) {
	tailer, tracked := set.tailers[path]
	if !tracked {
		return
	}

	truncations := tailer.truncations
	lines, err := tailer.Poll()
	if tailer.truncations > truncations {
		set.Metrics.Truncations.Add(tailer.truncations - truncations)
		logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
			"file '%s' was truncated, reading from start\n", path)
	}
	if err != nil && errors.Is(err, ErrFileGone) {
		// Deliver what was read, then drop the tailer; the next reconcile decides about the path
		batch, _ = set.finalize(ctx, tailer)
		batch.Lines = append(lines, batch.Lines...)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"source file lost: %v\n", err)
	} else if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"failed reading '%s': %v\n", path, err)
		batch = Batch{Path: path, Lines: lines}
	} else {
		batch = Batch{Path: path, Lines: lines}
	}

	if len(batch.Lines) == 0 {
		return
	}
	set.Metrics.LinesRead.Add(uint64(len(lines)))
	ok = true
	return
}

// Flushes and removes one tailer
func (set *WatchSet) finalize(ctx context.Context, tailer *Tailer) (batch Batch, err error) {
	lines, err := tailer.Finalize()
	delete(set.tailers, tailer.Path)
	set.Metrics.Finalized.Add(1)
	set.Metrics.LinesRead.Add(uint64(len(lines)))

	batch = Batch{Path: tailer.Path, Lines: lines, Final: true}
	if len(lines) > 0 {
		logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog,
			"flushed %d final line(s) from '%s'\n", len(lines), tailer.Path)
	}
	return
}

// Currently tailed paths, sorted
func (set *WatchSet) Tracked() (paths []string) {
	paths = sortedKeys(set.tailers)
	return
}

// Number of complete-line-pending bytes over all tailers
func (set *WatchSet) PendingBytes() (total int) {
	for _, tailer := range set.tailers {
		total += len(tailer.pending)
	}
	return
}

// Glob directories watched by a notifier
func (set *WatchSet) Patterns() (patterns []string) {
	patterns = slices.Clone(set.patterns)
	return
}

// Closes every tailer. Unterminated fragments are abandoned.
func (set *WatchSet) Close(ctx context.Context) {
	for _, path := range set.Tracked() {
		tailer := set.tailers[path]
		if fragment := tailer.Pending(); fragment != "" {
			logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
				"abandoning %d unterminated byte(s) from '%s'\n", len(fragment), path)
		}
		err := tailer.Close()
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"failed to close '%s': %v\n", path, err)
		}
		delete(set.tailers, path)
	}
}

// Absolute, symlink-resolved regular files currently matching any pattern
func (set *WatchSet) expand(ctx context.Context) (matches map[string]struct{}) {
	matches = make(map[string]struct{})
	for _, pattern := range set.patterns {
		paths, err := filepath.Glob(pattern)
		if err != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"failed expanding '%s': %v\n", pattern, err)
			continue
		}

		for _, path := range paths {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				continue
			}
			resolved, err = filepath.Abs(resolved)
			if err != nil {
				continue
			}

			info, err := os.Stat(resolved)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			matches[resolved] = struct{}{}
		}
	}
	return
}

func sortedKeys[V any](m map[string]V) (keys []string) {
	keys = make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return
}
