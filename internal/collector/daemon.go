// Daemon receiving envelopes from agents and fanning them out to the configured outputs
package collector

import (
	"context"
	"errors"
	"fmt"
	"logpush/internal/externalio/beats"
	"logpush/internal/externalio/file"
	"logpush/internal/externalio/journald"
	"logpush/internal/externalio/server"
	"logpush/internal/externalio/zmq"
	"logpush/internal/global"
	"logpush/internal/lifecycle"
	"logpush/internal/logctx"
	"logpush/internal/metrics"
	"logpush/pkg/protocol"
	"net/http"
	"os"
	"runtime/debug"
	"time"
)

// Create new collector daemon instance
func NewDaemon(cfg Config) (new *Daemon) {
	ctx, cancel := context.WithCancel(context.Background())
	new = &Daemon{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		Stdout: os.Stdout,
	}
	return
}

// Opens outputs, binds the listener and starts the receive loop
func (daemon *Daemon) Start(globalCtx context.Context) (err error) {
	// New context for the daemon
	daemon.ctx, daemon.cancel = context.WithCancel(context.Background())
	daemon.ctx = logctx.Inherit(daemon.ctx, globalCtx)

	// Top level tag for daemon logs
	daemon.ctx = logctx.AppendCtxTag(daemon.ctx, global.NSCollector)

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Starting...\n")
	defer func() {
		if err != nil {
			daemon.closeOutputs()
			daemon.cancel()
		}
	}()

	err = daemon.cfg.setDefaults()
	if err != nil {
		return
	}
	daemon.Metrics = metrics.New()

	// Outputs first so nothing received is lost
	daemon.fileOut, err = file.NewOutput(daemon.cfg.FilePath)
	if err != nil {
		err = fmt.Errorf("failed setting up file output: %w", err)
		return
	}
	daemon.forward, err = beats.NewOutput(daemon.cfg.ForwardAddress)
	if err != nil {
		err = fmt.Errorf("failed setting up beats forward output: %w", err)
		return
	}
	daemon.journal, err = journald.NewOutput(daemon.cfg.JournaldURL)
	if err != nil {
		err = fmt.Errorf("failed setting up journald output: %w", err)
		return
	}

	err = daemon.bind()
	if err != nil {
		err = fmt.Errorf("failed binding listener: %w", err)
		return
	}
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Listening for %s envelopes on %s\n", daemon.cfg.Protocol, daemon.input.Address())

	workerCtx := logctx.AppendCtxTag(daemon.ctx, global.NSListen)
	if daemon.cfg.Protocol == ProtocolLumberjack {
		workerCtx = logctx.AppendCtxTag(workerCtx, global.NSBeats)
	} else {
		workerCtx = logctx.AppendCtxTag(workerCtx, global.NSZMQ)
	}
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		daemon.receive(workerCtx)
	}()

	if daemon.fileOut != nil {
		flushCtx := logctx.AppendCtxTag(daemon.ctx, global.NSoFile)
		daemon.wg.Add(1)
		go func() {
			defer daemon.wg.Done()
			daemon.flushPeriodically(flushCtx)
		}()
	}

	// Metric Server
	if daemon.cfg.MetricServerEnabled {
		serverCtx := daemon.ctx
		serverCtx = logctx.AppendCtxTag(serverCtx, global.NSMetric)
		serverCtx = logctx.AppendCtxTag(serverCtx, global.NSMetricSrv)

		daemon.MetricServer, err = server.SetupListener(serverCtx, daemon.cfg.MetricServerAddress, server.Routes{
			Metrics: daemon.Metrics.Handler(),
			Health:  daemon.Health,
		})
		if err != nil {
			err = fmt.Errorf("failed setting up metric server: %w", err)
			daemon.Shutdown()
			return
		}
		daemon.wg.Add(1)
		go func() {
			defer daemon.wg.Done()
			server.Start(serverCtx, daemon.MetricServer)
		}()
	}

	err = lifecycle.NotifyReady(daemon.ctx)
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify ready failed: %v\n", err)
		err = nil
	}

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Startup complete.\n")
	return
}

// Opens the input for the configured protocol
func (daemon *Daemon) bind() (err error) {
	switch daemon.cfg.Protocol {
	case ProtocolLumberjack:
		var module *beats.InModule
		module, err = beats.NewInput(daemon.cfg.ListenAddress)
		if err == nil {
			daemon.input = module
		}
	default:
		var module *zmq.InModule
		module, err = zmq.NewInput(daemon.ctx, daemon.cfg.ListenAddress)
		if err == nil {
			daemon.input = module
		}
	}
	return
}

// Bound listener address, empty before start
func (daemon *Daemon) Address() (address string) {
	if daemon.input == nil {
		return
	}
	address = daemon.input.Address()
	return
}

// Unhealthy once the receive loop has stopped
func (daemon *Daemon) Health() (err error) {
	if daemon.ctx.Err() != nil {
		err = errors.New("collector is not receiving")
	}
	return
}

// Envelopes decoded and rejected so far
func (daemon *Daemon) Counts() (decoded uint64, invalid uint64) {
	decoded = daemon.decoded.Load()
	invalid = daemon.invalid.Load()
	return
}

// Receives until cancelled. Any receive error ends the loop and stops the daemon.
func (daemon *Daemon) receive(ctx context.Context) {
	defer func() {
		if fatalError := recover(); fatalError != nil {
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in receive loop: %v\n%s", fatalError, debug.Stack())
			daemon.cancel()
		}
	}()

	for {
		payloads, err := daemon.input.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"receive loop terminated: %v\n", err)
			daemon.cancel()
			return
		}

		for _, payload := range payloads {
			daemon.handle(ctx, payload)
		}
	}
}

// Decodes one payload and writes it to every output
func (daemon *Daemon) handle(ctx context.Context, payload []byte) {
	envelope, err := protocol.Unmarshal(payload)
	if err != nil {
		daemon.invalid.Add(1)
		daemon.Metrics.EnvelopesReceived.WithLabelValues(daemon.cfg.Protocol, metrics.StatusInvalid).Inc()
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog,
			"discarding undecodable payload %q: %v\n", payload, err)
		return
	}
	daemon.decoded.Add(1)
	daemon.Metrics.EnvelopesReceived.WithLabelValues(daemon.cfg.Protocol, metrics.StatusDecoded).Inc()
	logctx.LogEvent(ctx, global.VerbosityData, global.InfoLog,
		"received envelope from %s\n", envelope.Source)

	if daemon.cfg.Stdout {
		_, err = fmt.Fprintln(daemon.Stdout, envelope.Text())
		if err != nil {
			logctx.LogEvent(logctx.AppendCtxTag(ctx, global.NSoStdout), global.VerbosityStandard, global.ErrorLog,
				"failed writing to stdout: %v\n", err)
		}
	}

	if daemon.fileOut != nil {
		daemon.fileMutex.Lock()
		_, err = daemon.fileOut.Write(ctx, envelope)
		daemon.fileMutex.Unlock()
		if err != nil {
			logctx.LogEvent(logctx.AppendCtxTag(ctx, global.NSoFile), global.VerbosityStandard, global.ErrorLog, "%v\n", err)
		}
	}

	if daemon.forward != nil {
		_, err = daemon.forward.Write(ctx, envelope)
		if err != nil {
			logctx.LogEvent(logctx.AppendCtxTag(ctx, global.NSBeats), global.VerbosityStandard, global.ErrorLog, "%v\n", err)
		}
	}

	if daemon.journal != nil {
		journalCtx := logctx.AppendCtxTag(ctx, global.NSoJournald)
		_, err = daemon.journal.Write(journalCtx, envelope)
		if err != nil {
			logctx.LogEvent(journalCtx, global.VerbosityStandard, global.ErrorLog, "%v\n", err)
		}
	}
}

// Writes buffered file lines at the flush interval
func (daemon *Daemon) flushPeriodically(ctx context.Context) {
	ticker := time.NewTicker(daemon.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			daemon.fileMutex.Lock()
			_, err := daemon.fileOut.FlushBuffer()
			daemon.fileMutex.Unlock()
			if err != nil {
				logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "%v\n", err)
			}
		}
	}
}

// Blocking daemon waiter. Returns on shutdown or when the receive loop ends.
func (daemon *Daemon) Run() {
	<-daemon.ctx.Done()
}

// Gracefully shutdown listener and outputs. Safe to call more than once.
func (daemon *Daemon) Shutdown() {
	daemon.shutdownOnce.Do(daemon.shutdown)
}

func (daemon *Daemon) shutdown() {
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Daemon shutdown started...\n")

	done := make(chan struct{})
	go func() {
		defer close(done)

		if daemon.MetricServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), daemon.cfg.ShutdownTimeout)
			err := daemon.MetricServer.Shutdown(ctx)
			cancel()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
					"metric HTTP server did not shutdown gracefully: %v\n", err)
			}
		}

		// Cancel first so the receive loop treats the closed socket as shutdown
		daemon.cancel()
		if daemon.input != nil {
			err := daemon.input.Shutdown()
			if err != nil {
				logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
					"listener did not close cleanly: %v\n", err)
			}
		}
		daemon.wg.Wait()

		daemon.closeOutputs()
	}()

	select {
	case <-done:
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
			"Daemon shutdown completed successfully\n")
	case <-time.After(daemon.cfg.ShutdownTimeout):
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"Timeout: collector daemon did not shutdown within %v seconds\n",
			daemon.cfg.ShutdownTimeout.Seconds())
	}
}

// Flushes and closes file, forward and journald outputs
func (daemon *Daemon) closeOutputs() {
	daemon.fileMutex.Lock()
	defer daemon.fileMutex.Unlock()

	if daemon.fileOut != nil {
		err := daemon.fileOut.Shutdown()
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.ErrorLog,
				"failed closing file output: %v\n", err)
		}
		daemon.fileOut = nil
	}
	if daemon.forward != nil {
		err := daemon.forward.Shutdown()
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"failed closing beats forward output: %v\n", err)
		}
		daemon.forward = nil
	}
	if daemon.journal != nil {
		daemon.journal.Shutdown()
		daemon.journal = nil
	}
}
