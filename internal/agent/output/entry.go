// Emit worker: owns one transport connection and drains its queue into it
package output

import (
	"context"
	"fmt"
	"logpush/internal/externalio/beats"
	"logpush/internal/externalio/zmq"
	"logpush/internal/global"
	"logpush/internal/logctx"
	"logpush/internal/metrics"
	"logpush/internal/queue/fifo"
	"logpush/pkg/protocol"
	"runtime/debug"
	"slices"
	"time"
)

// Creates new emitter. The connection is opened separately with Open.
func New(ctx context.Context, conf EmitterConf, inbox *fifo.Queue[protocol.Envelope], registry *metrics.Registry) (new *Emitter, err error) {
	if inbox == nil {
		err = fmt.Errorf("emit worker '%s' has no queue", conf.ID)
		return
	}

	endpoint, err := protocol.Endpoint(conf.Address)
	if err != nil {
		err = fmt.Errorf("emit worker '%s': %w", conf.ID, err)
		return
	}

	if conf.Protocol == "" {
		conf.Protocol = ProtocolZMQ
	}
	var dial Dialer
	switch conf.Protocol {
	case ProtocolZMQ:
		dial = dialZMQ
	case ProtocolLumberjack:
		dial = dialLumberjack
		endpoint, _ = protocol.NormalizeAddress(conf.Address)
	default:
		err = fmt.Errorf("emit worker '%s': unknown protocol %q", conf.ID, conf.Protocol)
		return
	}

	if conf.PollInterval <= 0 {
		conf.PollInterval = global.DefaultDequeueWait
	}
	if conf.Reconnect.Enabled {
		if conf.Reconnect.MaxAttempts <= 0 {
			conf.Reconnect.MaxAttempts = global.DefaultReconnectAttempts
		}
		if conf.Reconnect.InitialDelay <= 0 {
			conf.Reconnect.InitialDelay = global.DefaultReconnectDelay
		}
		if conf.Reconnect.MaxDelay < conf.Reconnect.InitialDelay {
			conf.Reconnect.MaxDelay = max(global.DefaultReconnectMaxDelay, conf.Reconnect.InitialDelay)
		}
	}
	if registry == nil {
		registry = metrics.New()
	}

	new = &Emitter{
		Namespace: append(slices.Clone(logctx.GetTagList(ctx)), global.NSOut),
		ID:        conf.ID,
		conf:      conf,
		endpoint:  endpoint,
		Inbox:     inbox,
		dial:      dial,
		metrics:   registry,
	}
	return
}

func dialZMQ(ctx context.Context, address string) (transport Transport, err error) {
	module, err := zmq.NewOutput(ctx, address)
	if err != nil {
		return
	}
	transport = module
	return
}

func dialLumberjack(ctx context.Context, address string) (transport Transport, err error) {
	module, err := beats.NewOutput(address)
	if err != nil {
		return
	}
	transport = module
	return
}

// Connects to the configured address
func (emitter *Emitter) Open(ctx context.Context) (err error) {
	if emitter.transport != nil {
		return
	}
	transport, err := emitter.dial(ctx, emitter.conf.Address)
	if err != nil {
		err = fmt.Errorf("%w: emit worker '%s' could not connect to %s: %w", ErrTransport, emitter.ID, emitter.endpoint, err)
		return
	}
	emitter.transport = transport

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog,
		"connected to %s using %s\n", emitter.endpoint, emitter.conf.Protocol)
	return
}

// Closes the connection if open
func (emitter *Emitter) Close() (err error) {
	if emitter.transport == nil {
		return
	}
	err = emitter.transport.Shutdown()
	emitter.transport = nil
	return
}

// Envelopes sent successfully
func (emitter *Emitter) Processed() (count uint64) {
	count = emitter.processed.Load()
	return
}

// Endpoint the emitter delivers to
func (emitter *Emitter) Endpoint() (endpoint string) {
	endpoint = emitter.endpoint
	return
}

// Dequeues and sends until cancelled (nil) or a send fails beyond recovery (ErrTransport)
func (emitter *Emitter) Run(ctx context.Context) (err error) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			err = fmt.Errorf("panic in emit worker '%s': %v\n%s", emitter.ID, fatalError, stack)
		}
	}()

	if emitter.transport == nil {
		err = emitter.Open(ctx)
		if err != nil {
			return
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}

		envelope, ok := emitter.Inbox.Pop(ctx, emitter.conf.PollInterval)
		if !ok {
			continue
		}

		err = emitter.send(ctx, envelope)
		if err != nil {
			return
		}
	}
}

// Writes one envelope, re-opening the connection with backoff when enabled
func (emitter *Emitter) send(ctx context.Context, envelope protocol.Envelope) (err error) {
	labels := []string{emitter.ID, emitter.endpoint}
	delay := emitter.conf.Reconnect.InitialDelay

	for attempt := 0; ; attempt++ {
		var sendErr error
		if emitter.transport == nil {
			var transport Transport
			transport, sendErr = emitter.dial(ctx, emitter.conf.Address)
			if sendErr == nil {
				emitter.transport = transport
				emitter.metrics.Reconnects.WithLabelValues(labels...).Inc()
				logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
					"reconnected to %s\n", emitter.endpoint)
			}
		}

		if emitter.transport != nil {
			_, sendErr = emitter.transport.Write(ctx, envelope)
			if sendErr == nil {
				emitter.processed.Add(1)
				emitter.metrics.EnvelopesSent.WithLabelValues(labels...).Inc()
				logctx.LogEvent(ctx, global.VerbosityFullData, global.InfoLog,
					"sent envelope from '%s' to %s\n", envelope.SourcePath, emitter.endpoint)
				return
			}
			emitter.metrics.SendFailures.WithLabelValues(labels...).Inc()
			emitter.Close()
		}

		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"emit worker '%s' failed sending to %s: %v\n", emitter.ID, emitter.endpoint, sendErr)

		if !emitter.conf.Reconnect.Enabled || attempt >= emitter.conf.Reconnect.MaxAttempts {
			err = fmt.Errorf("%w: emit worker '%s' to %s: %w", ErrTransport, emitter.ID, emitter.endpoint, sendErr)
			return
		}

		// Cancelled while backing off: envelope is abandoned
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, emitter.conf.Reconnect.MaxDelay)
	}
}
