// Daemon running the configured watch and emit workers until shutdown
package agent

import (
	"context"
	"errors"
	"fmt"
	"logpush/internal/agent/workers"
	"logpush/internal/externalio/server"
	"logpush/internal/global"
	"logpush/internal/lifecycle"
	"logpush/internal/logctx"
	"logpush/internal/metrics"
	"net/http"
	"strings"
	"time"
)

// Create new agent daemon instance
func NewDaemon(cfg Config) (new *Daemon) {
	ctx, cancel := context.WithCancel(context.Background())
	new = &Daemon{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
	return
}

// Builds and starts every valid worker. Fails when no worker is valid or a connection cannot be opened.
func (daemon *Daemon) Start(globalCtx context.Context) (err error) {
	// New context for the daemon
	daemon.ctx, daemon.cancel = context.WithCancel(context.Background())
	daemon.ctx = logctx.Inherit(daemon.ctx, globalCtx)

	// Top level tag for daemon logs
	daemon.ctx = logctx.AppendCtxTag(daemon.ctx, global.NSAgent)

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Starting...\n")
	defer func() {
		if err != nil {
			daemon.cancel()
		}
	}()

	err = daemon.cfg.setDefaults()
	if err != nil {
		return
	}

	daemon.Metrics = metrics.New()
	daemon.Workers = workers.NewManager(daemon.ctx, daemon.cfg.Hostname, daemon.Metrics)

	daemon.ConfigErrors = daemon.Workers.Configure(daemon.cfg.Workers)
	if len(daemon.Workers.Units()) == 0 {
		err = fmt.Errorf("no valid workers configured (%d definition error(s))", len(daemon.ConfigErrors))
		return
	}

	err = daemon.Workers.Start()
	if err != nil {
		err = fmt.Errorf("failed starting workers: %w", err)
		daemon.Workers.Stop()
		return
	}

	// Stop the run loop once no worker is left
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		daemon.Workers.Wait()
		if daemon.ctx.Err() == nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"All workers exited (failed: %v)\n", daemon.Workers.InState(workers.StateFailed))
		}
		daemon.cancel()
	}()

	// Metric Server
	if daemon.cfg.MetricServerEnabled {
		// Top level tag for metric server logs (copy so return doesn't strip ns tags)
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
	err = lifecycle.NotifyStatus(daemon.ctx, fmt.Sprintf("%d worker(s) running", daemon.Workers.Running()))
	if err != nil {
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify status failed: %v\n", err)
		err = nil
	}

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Startup complete.\n")
	return
}

// Blocking daemon waiter. Returns on shutdown or once every worker has exited.
func (daemon *Daemon) Run() {
	<-daemon.ctx.Done()
}

// True when at least one worker ended in the failed state
func (daemon *Daemon) Failed() (failed bool) {
	if daemon.Workers == nil {
		return
	}
	failed = len(daemon.Workers.InState(workers.StateFailed)) > 0
	return
}

// Unhealthy once any worker failed or the daemon is stopping
func (daemon *Daemon) Health() (err error) {
	if daemon.Workers != nil {
		failed := daemon.Workers.InState(workers.StateFailed)
		if len(failed) > 0 {
			err = fmt.Errorf("failed workers: %s", strings.Join(failed, ", "))
			return
		}
	}
	if daemon.ctx.Err() != nil {
		err = errors.New("agent is stopping")
	}
	return
}

// Gracefully shutdown worker threads. Safe to call more than once.
func (daemon *Daemon) Shutdown() {
	daemon.shutdownOnce.Do(daemon.shutdown)
}

func (daemon *Daemon) shutdown() {
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Daemon shutdown started...\n")

	done := make(chan struct{})
	go func() {
		defer close(done)

		// Stop metric server
		if daemon.MetricServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), daemon.cfg.ShutdownTimeout)
			err := daemon.MetricServer.Shutdown(ctx)
			cancel()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
					"metric HTTP server did not shutdown gracefully: %v\n", err)
			}
		}

		if daemon.Workers != nil {
			daemon.Workers.Stop()
		}

		// Stop the run loop after workers are stopped
		daemon.cancel()
		daemon.wg.Wait()
	}()

	select {
	case <-done:
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
			"Daemon shutdown completed successfully\n")
	case <-time.After(daemon.cfg.ShutdownTimeout):
		daemon.cancel()
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"Timeout: agent daemon did not shutdown within %v seconds\n",
			daemon.cfg.ShutdownTimeout.Seconds())
	}
}
