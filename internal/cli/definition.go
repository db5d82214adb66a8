package cli

import "logpush/internal/global"

func DefineOptions() (cmdOpts *global.CommandSet) {
	// Root level
	root := &global.CommandSet{
		Description:     "Log Push Agent (logpush)",
		FullDescription: "  Tails log files and pushes every line as a structured envelope to a remote collector",
		CommandName:     RootCLICommand,
		UsageOption:     "[options]",
		ChildCommands:   make(map[string]*global.CommandSet),
	}

	// Shipping
	root.ChildCommands["agent"] = &global.CommandSet{
		CommandName:     "agent",
		UsageOption:     "--config <path> [options]",
		Description:     "Ship Log Files",
		FullDescription: "Runs the configured watch and emit workers: reads appended lines, wraps them in envelopes and pushes them to collectors",
	}

	// Receiving
	root.ChildCommands["collector"] = &global.CommandSet{
		CommandName:     "collector",
		UsageOption:     "--config <path> [options]",
		Description:     "Receive Envelopes",
		FullDescription: "Accepts envelopes from agents and writes them to stdout, an append-only file or a beats forward address",
	}

	// Version Info
	root.ChildCommands["version"] = &global.CommandSet{
		CommandName:     "version",
		UsageOption:     "[-v]",
		Description:     "Show Version Information",
		FullDescription: "Display meta information about program",
	}

	cmdOpts = root
	return
}
