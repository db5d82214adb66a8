// Command line handling for the agent, collector and version commands
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"logpush/internal/global"
	"runtime"

	"github.com/spf13/pflag"
)

// Dispatches args (program name first) to the requested command and returns the exit code
func Run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) (exitCode int) {
	global.CmdOpts = DefineOptions()

	rootFlags := pflag.NewFlagSet(global.ProgBaseName, pflag.ContinueOnError)
	rootFlags.SetOutput(stderr)
	rootFlags.Usage = func() {
		PrintHelpMenu(stdout, rootFlags, RootCLICommand, global.CmdOpts)
	}
	if len(args) < 2 {
		PrintHelpMenu(stdout, rootFlags, RootCLICommand, global.CmdOpts)
		exitCode = 1
		return
	}

	// Retrieve command and args
	command := args[1]
	args = args[2:]

	switch command {
	case "agent":
		exitCode = AgentMode(ctx, command, args, stdout, stderr)
	case "collector":
		exitCode = CollectorMode(ctx, command, args, stdout, stderr)
	case "version":
		exitCode = VersionMode(command, args, stdout, stderr)
	case "-h", "--help", "help":
		PrintHelpMenu(stdout, rootFlags, RootCLICommand, global.CmdOpts)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		PrintHelpMenu(stdout, rootFlags, RootCLICommand, global.CmdOpts)
		exitCode = 1
	}
	return
}

// Prints the version, with build details when -v is given
func VersionMode(commandname string, args []string, stdout io.Writer, stderr io.Writer) (exitCode int) {
	commandFlags := pflag.NewFlagSet(commandname, pflag.ContinueOnError)
	commandFlags.SetOutput(stderr)
	SetGlobalArguments(commandFlags)
	commandFlags.Lookup("verbosity").NoOptDefVal = "2"

	commandFlags.Usage = func() {
		PrintHelpMenu(stdout, commandFlags, commandname, global.CmdOpts)
	}
	exit, exitCode := parseFlags(commandFlags, args)
	if exit {
		return
	}

	if global.Verbosity > global.VerbosityStandard {
		fmt.Fprintf(stdout, "%s %s\n", global.ProgBaseName, global.ProgVersion)
		fmt.Fprintf(stdout, "Built using %s(%s) for %s on %s\n", runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH)
	} else {
		fmt.Fprintln(stdout, global.ProgVersion)
	}
	return
}

// Parses args; exit is set when the command should stop (help requested or bad flags)
func parseFlags(fs *pflag.FlagSet, args []string) (exit bool, exitCode int) {
	err := fs.Parse(args)
	if err == nil {
		return
	}

	exit = true
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	exitCode = 2
	return
}
