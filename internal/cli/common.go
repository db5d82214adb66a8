package cli

import (
	"logpush/internal/global"

	"github.com/spf13/pflag"
)

// Options shared by the daemon commands
type daemonOptions struct {
	configPath string
	logging    global.Logging
}

func SetGlobalArguments(fs *pflag.FlagSet) {
	fs.IntVarP(&global.Verbosity, "verbosity", "v", global.VerbosityStandard, "Increase detailed progress messages (Higher is more verbose) <0...5>")
}

func setCommon(fs *pflag.FlagSet, opts *daemonOptions) {
	fs.StringVarP(&opts.configPath, "config", "c", global.DefaultConfigPath, "Path to the configuration file")
	fs.BoolVar(&opts.logging.Debug, "debug", false, "Log everything (verbosity 5)")
	fs.StringVar(&opts.logging.LogPath, "logpath", "", "Directory for the rotated log file")
	fs.BoolVar(&opts.logging.Background, "background", false, "Never echo logs to the console")
}

// Logging settings from the config file, overridden by flags given on the command line
func mergeLogging(fs *pflag.FlagSet, fromFile global.Logging, fromFlags global.Logging) (merged global.Logging) {
	merged = fromFile
	if fs.Changed("debug") {
		merged.Debug = fromFlags.Debug
	}
	if fs.Changed("logpath") {
		merged.LogPath = fromFlags.LogPath
	}
	if fs.Changed("background") {
		merged.Background = fromFlags.Background
	}
	if fs.Changed("verbosity") || merged.Verbosity == 0 {
		merged.Verbosity = global.Verbosity
	}
	if merged.Debug {
		merged.Verbosity = global.VerbosityDebug
	}
	return
}
