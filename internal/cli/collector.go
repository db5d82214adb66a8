package cli

import (
	"context"
	"fmt"
	"io"
	"logpush/internal/collector"
	"logpush/internal/global"
	"logpush/internal/lifecycle"
	"logpush/internal/logctx"

	"github.com/spf13/pflag"
)

// Runs the collector daemon until a signal arrives or the receive loop fails
func CollectorMode(ctx context.Context, commandname string, args []string, stdout io.Writer, stderr io.Writer) (exitCode int) {
	var opts daemonOptions
	var listenAddress string
	commandFlags := pflag.NewFlagSet(commandname, pflag.ContinueOnError)
	commandFlags.SetOutput(stderr)
	SetGlobalArguments(commandFlags)
	setCommon(commandFlags, &opts)
	commandFlags.StringVarP(&listenAddress, "address", "a", "", "Listen address host[:port], overrides the config file")

	commandFlags.Usage = func() {
		PrintHelpMenu(stdout, commandFlags, commandname, global.CmdOpts)
	}
	exit, exitCode := parseFlags(commandFlags, args)
	if exit {
		return
	}

	jsonCfg, err := collector.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = 1
		return
	}
	jsonCfg.Logging = mergeLogging(commandFlags, jsonCfg.Logging, opts.logging)
	if commandFlags.Changed("address") {
		jsonCfg.Address = listenAddress
	}

	daemonConfig, err := jsonCfg.NewDaemonConf()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = 1
		return
	}

	ctx, stopLogging, err := startLogger(ctx, global.NSCollector, jsonCfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = 1
		return
	}
	defer stopLogging()

	collectorDaemon := collector.NewDaemon(daemonConfig)
	collectorDaemon.Stdout = stdout
	err = collectorDaemon.Start(ctx)
	if err != nil {
		logctx.LogEvent(logctx.AppendCtxTag(ctx, global.NSCLI), global.VerbosityStandard, global.ErrorLog, "Error starting collector daemon: %v\n", err)
		exitCode = 1
		return
	}

	signalCtx, cancel := context.WithCancel(logctx.AppendCtxTag(ctx, global.NSCLI))
	defer cancel()
	go lifecycle.SignalHandler(signalCtx, collectorDaemon)

	collectorDaemon.Run()
	collectorDaemon.Shutdown()
	return
}
