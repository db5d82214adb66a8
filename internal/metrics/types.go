package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Process-wide metric collection exposed in the Prometheus format
type Registry struct {
	registry *prometheus.Registry

	LinesRead         *prometheus.CounterVec // labels: worker
	EnvelopesSent     *prometheus.CounterVec // labels: worker, address
	SendFailures      *prometheus.CounterVec // labels: worker, address
	Reconnects        *prometheus.CounterVec // labels: worker, address
	EnvelopesReceived *prometheus.CounterVec // labels: transport, status
}

// Worker label values used by every per-worker metric
const (
	LabelWorker    string = "worker"
	LabelAddress   string = "address"
	LabelTransport string = "transport"
	LabelStatus    string = "status"

	StatusDecoded string = "decoded"
	StatusInvalid string = "invalid"
)
