package cli

import (
	"context"
	"fmt"
	"logpush/internal/global"
	"logpush/internal/logctx"
)

// Starts the process logger for a daemon command.
// The stop function drains pending events and closes the log file.
func startLogger(ctx context.Context, id string, conf global.Logging) (logCtx context.Context, stop func(), err error) {
	output, closer, err := logctx.NewOutputWriter(logctx.OutputOptions{
		LogDir:     conf.LogPath,
		FileName:   global.ProgBaseName + ".log",
		Background: conf.Background,
		MaxSizeMB:  global.LogFileMaxSizeMB,
		MaxBackups: global.LogFileMaxBackups,
	})
	if err != nil {
		err = fmt.Errorf("failed setting up logging: %w", err)
		return
	}

	loggerCtx, cancel := context.WithCancel(ctx)
	logger := logctx.NewLogger(id, conf.Verbosity, loggerCtx.Done())
	logCtx = logctx.WithLogger(ctx, logger)
	logctx.StartWatcher(logger, output)

	stop = func() {
		cancel()
		logger.Wake()
		logger.Wait()
		if closer != nil {
			closer.Close()
		}
	}
	return
}
