// Prometheus metric registry shared by agent and collector
package metrics

import (
	"fmt"
	"logpush/internal/externalio/file"
	"logpush/internal/global"
	"logpush/internal/queue/fifo"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace string = global.ProgBaseName

// Creates new registry with all static metrics registered
func New() (new *Registry) {
	new = &Registry{
		registry: prometheus.NewRegistry(),
		LinesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Complete lines read from watched files",
		}, []string{LabelWorker}),
		EnvelopesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_sent_total",
			Help:      "Envelopes handed to the transport without error",
		}, []string{LabelWorker, LabelAddress}),
		SendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Transport send errors",
		}, []string{LabelWorker, LabelAddress}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Transport connections re-opened after a send failure",
		}, []string{LabelWorker, LabelAddress}),
		EnvelopesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_received_total",
			Help:      "Payloads received by the collector by decode status",
		}, []string{LabelTransport, LabelStatus}),
	}

	new.registry.MustRegister(
		new.LinesRead,
		new.EnvelopesSent,
		new.SendFailures,
		new.Reconnects,
		new.EnvelopesReceived,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return
}

// Exposes depth and dropped count of one worker queue
func (reg *Registry) RegisterQueue(worker string, stats *fifo.MetricStorage) (err error) {
	labels := prometheus.Labels{LabelWorker: worker}

	depth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "queue_depth",
		Help:        "Envelopes waiting in a worker queue",
		ConstLabels: labels,
	}, func() float64 {
		return float64(stats.Depth.Load())
	})
	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "envelopes_dropped_total",
		Help:        "Envelopes evicted from a full queue or refused after close",
		ConstLabels: labels,
	}, func() float64 {
		return float64(stats.Dropped.Load())
	})

	for _, collector := range []prometheus.Collector{depth, dropped} {
		err = reg.registry.Register(collector)
		if err != nil {
			err = fmt.Errorf("failed registering queue metrics for worker '%s': %w", worker, err)
			return
		}
	}
	return
}

// Exposes tailer lifecycle counters of one watch worker
func (reg *Registry) RegisterWatchSet(worker string, stats *file.MetricStorage) (err error) {
	labels := prometheus.Labels{LabelWorker: worker}

	counters := []struct {
		name string
		help string
		read func() uint64
	}{
		{"files_opened_total", "Tailers opened for matched files", stats.Opened.Load},
		{"files_finalized_total", "Tailers flushed and closed after rotation or removal", stats.Finalized.Load},
		{"files_truncated_total", "In-place truncations detected", stats.Truncations.Load},
	}

	for _, counter := range counters {
		read := counter.read
		collector := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        counter.name,
			Help:        counter.help,
			ConstLabels: labels,
		}, func() float64 {
			return float64(read())
		})

		err = reg.registry.Register(collector)
		if err != nil {
			err = fmt.Errorf("failed registering file metrics for worker '%s': %w", worker, err)
			return
		}
	}
	return
}

// Gatherer for tests and custom exporters
func (reg *Registry) Gatherer() (gatherer prometheus.Gatherer) {
	gatherer = reg.registry
	return
}

// HTTP handler serving the Prometheus text format
func (reg *Registry) Handler() (handler http.Handler) {
	handler = promhttp.HandlerFor(reg.registry, promhttp.HandlerOpts{})
	return
}
