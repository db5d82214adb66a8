package agent

import (
	"context"
	"logpush/internal/agent/workers"
	"logpush/internal/global"
	"logpush/internal/metrics"
	"net/http"
	"sync"
	"time"
)

// Agent view of the configuration file; collector keys are ignored
type JSONConfig struct {
	global.Logging `yaml:",inline"`

	Hostname string               `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Metrics  global.MetricConf    `json:"metrics" yaml:"metrics"`
	Workers  []workers.Definition `json:"workers" yaml:"workers"`
}

type Config struct {
	// Stamped into every envelope
	Hostname string
	Workers  []workers.Definition

	// Metrics
	MetricServerEnabled bool
	MetricServerAddress string

	ShutdownTimeout time.Duration
}

type Daemon struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	wg           sync.WaitGroup
	shutdownOnce sync.Once

	Workers      *workers.Manager
	Metrics      *metrics.Registry
	MetricServer *http.Server
	ConfigErrors []error // definitions skipped at startup
}
