package file

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

const historyBlockSize int64 = 1024

// Returns the last count complete lines of the file in file order, and the offset just
// past the last line terminator. Bytes after that offset are an unterminated fragment.
func ReadHistory(path string, count int) (lines []string, offset int64, err error) {
	handle, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open '%s' for back-read: %w", path, err)
		return
	}
	defer handle.Close()

	lines, offset, err = historyOf(handle, path, count)
	return
}

// Back-read on an already open handle; the handle position is not used or changed
func historyOf(handle *os.File, path string, count int) (lines []string, offset int64, err error) {
	info, err := handle.Stat()
	if err != nil {
		err = fmt.Errorf("failed to stat '%s' for back-read: %w", path, err)
		return
	}
	size := info.Size()

	if count <= 0 {
		offset = size
		return
	}

	// Walk backward until the start of the first wanted line is known
	var data []byte
	start := size
	for start > 0 && bytes.Count(data, []byte{'\n'}) <= count {
		blockStart := max(start-historyBlockSize, 0)
		block := make([]byte, start-blockStart)

		var n int
		n, err = handle.ReadAt(block, blockStart)
		if err != nil && !(err == io.EOF && n == len(block)) {
			err = fmt.Errorf("failed back-read of '%s' at %d: %w", path, blockStart, err)
			return
		}
		err = nil

		data = append(block, data...)
		start = blockStart
	}

	last := bytes.LastIndexByte(data, '\n')
	if last < 0 {
		// No complete line anywhere in the file
		offset = start
		return
	}
	offset = start + int64(last) + 1

	segments := strings.Split(string(data[:last]), "\n")
	if start > 0 {
		// First segment began before the scanned region
		segments = segments[1:]
	}
	if len(segments) > count {
		segments = segments[len(segments)-count:]
	}
	lines = segments
	return
}
