package cli

import (
	"fmt"
	"io"
	"logpush/internal/global"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

const (
	RootCLICommand  string = "root"
	helpMenuTrailer string = `
Configuration: JSON (comments allowed) or YAML (.yaml/.yml), default ` + global.DefaultConfigPath + `
`
)

// Full standardized help menu (wraps option printer as well)
func PrintHelpMenu(output io.Writer, fs *pflag.FlagSet, command string, rootCmd *global.CommandSet) {
	const baseIndentSpaces = 2

	curCmdSet := rootCmd
	if command != "" && command != RootCLICommand {
		cmd, ok := rootCmd.ChildCommands[command]
		if !ok {
			fmt.Fprintf(output, "Unknown command: %s\n", command)
			return
		}
		curCmdSet = cmd
	}

	// Build full usage path, root name is never included
	usageParts := []string{global.ProgBaseName}
	if curCmdSet != rootCmd {
		usageParts = append(usageParts, curCmdSet.CommandName)
	} else if len(curCmdSet.ChildCommands) > 0 {
		usageParts = append(usageParts, "[subcommand]")
	}
	if curCmdSet.UsageOption != "" {
		usageParts = append(usageParts, curCmdSet.UsageOption)
	}

	fmt.Fprintf(output, "Usage: %s\n\n", strings.Join(usageParts, " "))

	// Description
	if curCmdSet == rootCmd {
		fmt.Fprintln(output, curCmdSet.Description)
		fmt.Fprintln(output, curCmdSet.FullDescription)
		fmt.Fprintln(output)
	} else if curCmdSet.FullDescription != "" {
		fmt.Fprintln(output, "  Description:")
		fmt.Fprintf(output, "    %s\n\n", curCmdSet.FullDescription)
	}

	// Subcommands
	if len(curCmdSet.ChildCommands) > 0 {
		indent := strings.Repeat(" ", baseIndentSpaces)
		fmt.Fprintf(output, "%sSubcommands:\n", indent)

		// Compute max length for padding
		maxLen := 0
		subNames := make([]string, 0, len(curCmdSet.ChildCommands))
		for name := range curCmdSet.ChildCommands {
			maxLen = max(maxLen, len(name))
			subNames = append(subNames, name)
		}
		sort.Strings(subNames)

		cmdIndent := strings.Repeat(" ", baseIndentSpaces+2)
		for _, name := range subNames {
			sub := curCmdSet.ChildCommands[name]
			padding := strings.Repeat(" ", maxLen-len(name)+2)
			fmt.Fprintf(output, "%s%s%s - %s\n", cmdIndent, name, padding, sub.Description)
		}
		fmt.Fprintln(output)
	}

	// Flags
	if fs != nil && fs.HasAvailableFlags() {
		fmt.Fprintf(output, "%sOptions:\n", strings.Repeat(" ", baseIndentSpaces))
		fmt.Fprint(output, fs.FlagUsages())
	}

	// Top-level trailer
	if curCmdSet == rootCmd {
		fmt.Fprint(output, helpMenuTrailer)
	}
}
