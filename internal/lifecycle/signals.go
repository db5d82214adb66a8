package lifecycle

import (
	"context"
	"logpush/internal/global"
	"logpush/internal/logctx"
	"os"
	"os/signal"
	"syscall"
)

type DaemonLike interface {
	Shutdown()
}

// Handles all incoming signals from external sources.
// Any handled signal initiates daemon shutdown. Returns after shutdown or when ctx is done.
func SignalHandler(ctx context.Context, daemonManager DaemonLike) {
	// Channel for handling interrupt signals
	sigChan := make(chan os.Signal, 10)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	handleSignals(ctx, sigChan, daemonManager)
}

func handleSignals(ctx context.Context, sigChan <-chan os.Signal, daemonManager DaemonLike) {
	var sig os.Signal
	select {
	case <-ctx.Done():
		return
	case sig = <-sigChan:
	}
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Received signal: %v\n", sig)

	err := NotifyStopping(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify stopping failed: %v\n", err)
	}

	// Initiate daemon shutdown
	daemonManager.Shutdown()

	logger := logctx.GetLogger(ctx)
	if logger != nil {
		logger.Wake()
	}
}
