package cli

import (
	"context"
	"fmt"
	"io"
	"logpush/internal/agent"
	"logpush/internal/global"
	"logpush/internal/lifecycle"
	"logpush/internal/logctx"

	"github.com/spf13/pflag"
)

// Runs the agent daemon until a signal arrives or every worker has exited
func AgentMode(ctx context.Context, commandname string, args []string, stdout io.Writer, stderr io.Writer) (exitCode int) {
	var opts daemonOptions
	commandFlags := pflag.NewFlagSet(commandname, pflag.ContinueOnError)
	commandFlags.SetOutput(stderr)
	SetGlobalArguments(commandFlags)
	setCommon(commandFlags, &opts)

	commandFlags.Usage = func() {
		PrintHelpMenu(stdout, commandFlags, commandname, global.CmdOpts)
	}
	exit, exitCode := parseFlags(commandFlags, args)
	if exit {
		return
	}

	jsonCfg, err := agent.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = 1
		return
	}
	jsonCfg.Logging = mergeLogging(commandFlags, jsonCfg.Logging, opts.logging)

	daemonConfig, err := jsonCfg.NewDaemonConf()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = 1
		return
	}

	ctx, stopLogging, err := startLogger(ctx, global.NSAgent, jsonCfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitCode = 1
		return
	}
	defer stopLogging()

	agentDaemon := agent.NewDaemon(daemonConfig)
	err = agentDaemon.Start(ctx)
	if err != nil {
		logctx.LogEvent(logctx.AppendCtxTag(ctx, global.NSCLI), global.VerbosityStandard, global.ErrorLog, "Error starting agent daemon: %v\n", err)
		exitCode = 1
		return
	}

	signalCtx, cancel := context.WithCancel(logctx.AppendCtxTag(ctx, global.NSCLI))
	defer cancel()
	go lifecycle.SignalHandler(signalCtx, agentDaemon)

	agentDaemon.Run()
	agentDaemon.Shutdown()

	if agentDaemon.Failed() {
		exitCode = 1
	}
	return
}
