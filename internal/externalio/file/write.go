package file

import (
	"context"
	"fmt"
	"logpush/pkg/protocol"
	"os"
	"strings"
)

const writeBatchSize int = 20

// Creates new file output module. Returns nil nil if no path.
func NewOutput(filePath string) (module *OutModule, err error) {
	if filePath == "" {
		return
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		err = fmt.Errorf("failed to open output file: %w", err)
		return
	}

	module = &OutModule{
		sink:        file,
		batchBuffer: &[]string{},
	}
	return
}

// Buffers one envelope as a text line, writing in batches
func (mod *OutModule) Write(ctx context.Context, envelope protocol.Envelope) (linesWritten int, err error) {
	if mod == nil {
		return
	}

	// Always ensure outputs have only one trailing newline
	newLine := strings.TrimRight(envelope.Text(), "\n") + "\n"
	*mod.batchBuffer = append(*mod.batchBuffer, newLine)

	if len(*mod.batchBuffer) >= writeBatchSize {
		linesWritten, err = mod.FlushBuffer()
	}
	return
}

// Flushes line buffer to the file in arrival order
func (mod *OutModule) FlushBuffer() (flushedCnt int, err error) {
	if mod == nil || mod.batchBuffer == nil {
		return
	}

	for _, line := range *mod.batchBuffer {
		data := []byte(line)
		for len(data) > 0 {
			var n int
			n, err = mod.sink.Write(data)
			if err != nil {
				// Keep unwritten lines for the next attempt
				*mod.batchBuffer = (*mod.batchBuffer)[flushedCnt:]
				err = fmt.Errorf("failed writing to output file: %w", err)
				return
			}
			data = data[n:] // remove the bytes that were successfully written
		}
		flushedCnt++
	}

	// All writes succeeded, empty buffer
	*mod.batchBuffer = []string{}
	return
}
