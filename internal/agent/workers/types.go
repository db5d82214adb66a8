package workers

import (
	"context"
	"logpush/internal/agent/listener"
	"logpush/internal/agent/output"
	"logpush/internal/metrics"
	"logpush/internal/queue/fifo"
	"logpush/pkg/protocol"
	"sync"
	"time"
)

type UnitType string

const (
	TypeWatch UnitType = "watch"
	TypeEmit  UnitType = "emit"
)

// Lifecycle: created -> configured -> running -> {stopped | failed}
type State string

const (
	StateCreated    State = "created"
	StateConfigured State = "configured"
	StateRunning    State = "running"
	StateStopped    State = "stopped"
	StateFailed     State = "failed"
)

// One worker entry of the configuration file
type Definition struct {
	ID     string   `json:"id" yaml:"id"`
	Type   string   `json:"type" yaml:"type"`
	Output []string `json:"output,omitempty" yaml:"output,omitempty"`

	// watch
	Files     []string       `json:"files,omitempty" yaml:"files,omitempty"`
	LogType   string         `json:"logType,omitempty" yaml:"logType,omitempty"`
	Tags      []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Fields    map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
	TailLines int            `json:"tailLines,omitempty" yaml:"tailLines,omitempty"`
	Mode      string         `json:"mode,omitempty" yaml:"mode,omitempty"`
	Interval  string         `json:"interval,omitempty" yaml:"interval,omitempty"`

	// emit
	Address      string       `json:"address,omitempty" yaml:"address,omitempty"`
	Protocol     string       `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Queue        QueueDef     `json:"queue,omitempty" yaml:"queue,omitempty"`
	Reconnect    ReconnectDef `json:"reconnect,omitempty" yaml:"reconnect,omitempty"`
	PollInterval string       `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
}

type QueueDef struct {
	Capacity int    `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Policy   string `json:"policy,omitempty" yaml:"policy,omitempty"`
}

type ReconnectDef struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	MaxAttempts  int    `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"`
	InitialDelay string `json:"initialDelay,omitempty" yaml:"initialDelay,omitempty"`
	MaxDelay     string `json:"maxDelay,omitempty" yaml:"maxDelay,omitempty"`
}

// Validated definition. Exactly one of Watch and Emit is set, matching Type.
type Spec struct {
	ID     string // lower-case
	Type   UnitType
	Output []string // lower-case sink ids
	Watch  *WatchSpec
	Emit   *EmitSpec
}

type WatchSpec struct {
	Files     []string
	LogType   string
	Tags      []string
	Fields    map[string]any
	TailLines int
	Mode      listener.Mode
	Interval  time.Duration
}

type EmitSpec struct {
	Address       string
	Protocol      string
	QueueCapacity int
	QueuePolicy   fifo.Policy
	Reconnect     output.ReconnectConf
	PollInterval  time.Duration
}

// Work a unit's goroutine performs
type Runner interface {
	Run(ctx context.Context) (err error)
	Processed() (count uint64)
}

// Runners holding a connection that must be opened before start
type Opener interface {
	Open(ctx context.Context) (err error)
	Close() (err error)
}

// Runners that forward into other units' queues
type Forwarder interface {
	AddSink(id string, queue *fifo.Queue[protocol.Envelope])
}

// Runtime instance of one definition
type Unit struct {
	spec   Spec
	Queue  *fifo.Queue[protocol.Envelope] // inbound queue owned by this unit
	sinks  []string
	runner Runner

	mutex sync.Mutex
	state State
	err   error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Owns every unit and queue of the agent
type Manager struct {
	Namespace []string
	Mu        sync.Mutex
	ctx       context.Context
	hostname  string
	metrics   *metrics.Registry
	units     map[string]*Unit
	order     []string // declaration order
	started   bool
	wg        sync.WaitGroup
}
