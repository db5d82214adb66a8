package collector

import (
	"context"
	"io"
	"logpush/internal/externalio/beats"
	"logpush/internal/externalio/file"
	"logpush/internal/externalio/journald"
	"logpush/internal/global"
	"logpush/internal/metrics"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	ProtocolZMQ        string = "zmq"
	ProtocolLumberjack string = "lumberjack"
)

// Collector view of the configuration file; agent keys are ignored
type JSONConfig struct {
	global.Logging `yaml:",inline"`

	Address   string            `json:"address,omitempty" yaml:"address,omitempty"`
	Collector OutputJSON        `json:"collector" yaml:"collector"`
	Metrics   global.MetricConf `json:"metrics" yaml:"metrics"`
}

type OutputJSON struct {
	Protocol      string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Stdout        bool   `json:"stdout" yaml:"stdout"`
	FilePath      string `json:"filePath,omitempty" yaml:"filePath,omitempty"`
	Forward       string `json:"forward,omitempty" yaml:"forward,omitempty"`
	Journald      string `json:"journald,omitempty" yaml:"journald,omitempty"`
	FlushInterval string `json:"flushInterval,omitempty" yaml:"flushInterval,omitempty"`
}

type Config struct {
	// Listener
	ListenAddress string
	Protocol      string

	// Outputs
	Stdout         bool
	FilePath       string
	ForwardAddress string
	JournaldURL    string
	FlushInterval  time.Duration

	// Metrics
	MetricServerEnabled bool
	MetricServerAddress string

	ShutdownTimeout time.Duration
}

// Receiving side of a transport
type Input interface {
	Read(ctx context.Context) (payloads [][]byte, err error)
	Address() (address string)
	Shutdown() (err error)
}

type Daemon struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	wg           sync.WaitGroup
	shutdownOnce sync.Once

	input Input

	// Outputs; fileMutex guards the file buffer shared with the flusher
	Stdout    io.Writer
	fileOut   *file.OutModule
	fileMutex sync.Mutex
	forward   *beats.OutModule
	journal   *journald.OutModule

	Metrics      *metrics.Registry
	MetricServer *http.Server

	decoded atomic.Uint64
	invalid atomic.Uint64
}
