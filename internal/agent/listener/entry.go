// Watch worker loop: drives a file watch set in poll or notify mode
package listener

import (
	"context"
	"fmt"
	"logpush/internal/externalio/file"
	"logpush/internal/global"
	"logpush/internal/logctx"
	"logpush/internal/metrics"
	"logpush/internal/queue/fifo"
	"logpush/pkg/protocol"
	"runtime/debug"
	"slices"
	"time"
)

// New creates a file listener instance
func NewFileSource(ctx context.Context, conf SourceConf, inbox *fifo.Queue[protocol.Envelope], registry *metrics.Registry) (new *FileSource, err error) {
	if inbox == nil {
		err = fmt.Errorf("watch worker '%s' has no queue", conf.ID)
		return
	}
	if conf.Interval <= 0 {
		conf.Interval = global.DefaultPollInterval
	}
	if conf.Rescan <= 0 {
		conf.Rescan = global.DefaultRescanInterval
	}
	if conf.Mode == "" {
		conf.Mode = ModePoll
	}
	if conf.Template.Type == "" {
		conf.Template.Type = global.DefaultLogType
	}
	if registry == nil {
		registry = metrics.New()
	}

	watchSet, err := file.NewWatchSet(ctx, conf.Files, conf.TailLines)
	if err != nil {
		err = fmt.Errorf("watch worker '%s': %w", conf.ID, err)
		return
	}

	new = &FileSource{
		Namespace: append(slices.Clone(logctx.GetTagList(ctx)), global.NSListen),
		ID:        conf.ID,
		conf:      conf,
		watchSet:  watchSet,
		Inbox:     inbox,
		metrics:   registry,
	}

	err = registry.RegisterWatchSet(conf.ID, watchSet.Metrics)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "%v\n", err)
		err = nil
	}
	return
}

// Adds a downstream queue. Envelopes are copied to every sink in the order sinks were added.
func (source *FileSource) AddSink(id string, queue *fifo.Queue[protocol.Envelope]) {
	source.sinks = append(source.sinks, queue)
	source.sinkIDs = append(source.sinkIDs, id)
}

// Envelopes built from file lines so far
func (source *FileSource) Processed() (count uint64) {
	count = source.processed.Load()
	return
}

// Runs until cancelled. Returns nil on cancellation.
func (source *FileSource) Run(ctx context.Context) (err error) {
	defer source.watchSet.Close(ctx)

	if source.conf.Mode == ModeNotify {
		notifier, notifyErr := file.NewNotifier(source.watchSet.Patterns())
		if notifyErr == nil {
			defer notifier.Close()
			err = source.runNotify(ctx, notifier)
			return
		}
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"falling back to polling every %s: %v\n", source.conf.Interval, notifyErr)
	}

	err = source.runPoll(ctx)
	return
}

func (source *FileSource) runPoll(ctx context.Context) (err error) {
	ticker := time.NewTicker(source.conf.Interval)
	defer ticker.Stop()

	for {
		source.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (source *FileSource) runNotify(ctx context.Context, notifier *file.Notifier) (err error) {
	rescan := time.NewTicker(source.conf.Rescan)
	defer rescan.Stop()

	source.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-rescan.C:
			_, refreshErr := notifier.Refresh()
			if refreshErr != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "%v\n", refreshErr)
			}
			source.RunCycle(ctx)
		case event, ok := <-notifier.Events():
			if !ok {
				err = fmt.Errorf("file notifications stopped")
				return
			}
			switch notifier.Classify(event) {
			case file.ActionPoll:
				source.handle(ctx, source.watchSet.PollPath(ctx, event.Name))
				source.catchUp(ctx)
			case file.ActionReconcile:
				source.RunCycle(ctx)
			}
		case notifyErr, ok := <-notifier.Errors():
			if !ok {
				err = fmt.Errorf("file notifications stopped")
				return
			}
			// Overflowed event queue may have lost writes: full cycle catches up
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "file notification error: %v\n", notifyErr)
			source.RunCycle(ctx)
		}
	}
}

// One reconcile-then-read pass over every watched file
func (source *FileSource) RunCycle(ctx context.Context) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in watch worker '%s': %v\n%s", source.ID, fatalError, stack)
		}
	}()

	source.handle(ctx, source.watchSet.Reconcile(ctx))
	source.handle(ctx, source.watchSet.Poll(ctx))
	source.catchUp(ctx)
}

// Keeps reading while a file holds more backlog than one read returns
func (source *FileSource) catchUp(ctx context.Context) {
	for source.watchSet.Behind() && ctx.Err() == nil {
		source.handle(ctx, source.watchSet.Poll(ctx))
	}
}

// Wraps lines into envelopes, stages them and forwards the staged envelopes to every sink
func (source *FileSource) handle(ctx context.Context, batches []file.Batch) {
	for _, batch := range batches {
		now := time.Now()
		for _, line := range batch.Lines {
			source.Inbox.Push(ctx, source.conf.Template.Wrap(batch.Path, line, now))
		}
		source.processed.Add(uint64(len(batch.Lines)))
		source.metrics.LinesRead.WithLabelValues(source.ID).Add(float64(len(batch.Lines)))

		logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog,
			"read %d line(s) from '%s'\n", len(batch.Lines), batch.Path)
	}

	staged := source.Inbox.Drain()
	if len(staged) == 0 {
		return
	}

	if len(source.sinks) == 0 {
		if !source.warnedNoSink {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
				"watch worker '%s' has no outputs, discarding envelopes\n", source.ID)
			source.warnedNoSink = true
		}
		return
	}

	for _, envelope := range staged {
		for i, sink := range source.sinks {
			if !sink.Push(ctx, envelope) && ctx.Err() == nil {
				logctx.LogEvent(ctx, global.VerbosityProgress, global.WarnLog,
					"output '%s' refused envelope from '%s'\n", source.sinkIDs[i], envelope.SourcePath)
			}
		}
	}
}
