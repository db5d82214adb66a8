package logctx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Builds the writer for the log watcher.
// Console echo is used unless backgrounded; when a log directory is set and stdout is not a
// terminal, the console copy is skipped to avoid duplicating into service manager journals.
func NewOutputWriter(opts OutputOptions) (output io.Writer, closer io.Closer, err error) {
	var writers []io.Writer

	if opts.LogDir != "" {
		var info os.FileInfo
		info, err = os.Stat(opts.LogDir)
		if err != nil {
			err = fmt.Errorf("unable to access log directory '%s': %w", opts.LogDir, err)
			return
		}
		if !info.IsDir() {
			err = fmt.Errorf("log path '%s' is not a directory", opts.LogDir)
			return
		}

		rotating := &lumberjack.Logger{
			Filename:   filepath.Join(opts.LogDir, opts.FileName),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	echo := !opts.Background && (opts.LogDir == "" || term.IsTerminal(int(os.Stdout.Fd())))
	if echo {
		writers = append(writers, os.Stdout)
	}

	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = io.MultiWriter(writers...)
	}
	return
}
