package listener

import (
	"logpush/internal/externalio/file"
	"logpush/internal/metrics"
	"logpush/internal/queue/fifo"
	"logpush/pkg/protocol"
	"sync/atomic"
	"time"
)

// How a watch worker learns about file changes
type Mode string

const (
	ModePoll   Mode = "poll"   // reconcile and read on a fixed interval
	ModeNotify Mode = "notify" // read on file system notifications, slow rescan as backstop
)

type SourceConf struct {
	ID        string
	Files     []string
	Template  protocol.Template
	TailLines int
	Mode      Mode
	Interval  time.Duration // poll interval
	Rescan    time.Duration // reconcile interval in notify mode
}

// Watch worker: turns appended file lines into envelopes and forwards them to sink queues
type FileSource struct {
	Namespace []string
	ID        string
	conf      SourceConf
	watchSet  *file.WatchSet
	Inbox     *fifo.Queue[protocol.Envelope]   // staging queue owned by this worker
	sinks     []*fifo.Queue[protocol.Envelope] // other workers' queues
	sinkIDs   []string
	metrics   *metrics.Registry
	processed atomic.Uint64

	warnedNoSink bool
}
