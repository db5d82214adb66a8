package output

import (
	"context"
	"errors"
	"logpush/internal/metrics"
	"logpush/internal/queue/fifo"
	"logpush/pkg/protocol"
	"sync/atomic"
	"time"
)

var ErrTransport = errors.New("transport failure")

// Wire protocols an emitter can speak
const (
	ProtocolZMQ        string = "zmq"
	ProtocolLumberjack string = "lumberjack"
)

// One open outbound connection
type Transport interface {
	Write(ctx context.Context, envelope protocol.Envelope) (sent int, err error)
	Shutdown() (err error)
}

// Opens a transport to address
type Dialer func(ctx context.Context, address string) (transport Transport, err error)

type ReconnectConf struct {
	Enabled      bool
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

type EmitterConf struct {
	ID           string
	Address      string
	Protocol     string
	PollInterval time.Duration // bounded dequeue wait
	Reconnect    ReconnectConf
}

// Emit worker: sends every envelope of its own queue over one connection
type Emitter struct {
	Namespace []string
	ID        string
	conf      EmitterConf
	endpoint  string
	Inbox     *fifo.Queue[protocol.Envelope]
	dial      Dialer
	transport Transport
	metrics   *metrics.Registry
	processed atomic.Uint64
}
