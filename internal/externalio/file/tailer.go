package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

const (
	readChunkSize int   = 65536
	readLimit     int64 = 64 * int64(readChunkSize) // per Poll; larger backlogs continue on the next Poll
)

// Opens path for tailing at offset (OffsetEnd for end of file)
func OpenTailer(path string, offset int64) (tailer *Tailer, err error) {
	handle, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrFileGone, path)
			return
		}
		err = fmt.Errorf("failed to open source file: %w", err)
		return
	}

	tailer, err = newTailer(handle, path, offset)
	return
}

// Takes ownership of handle; it is closed on error
func newTailer(handle *os.File, path string, offset int64) (tailer *Tailer, err error) {
	id, err := IdentityOfFile(handle)
	if err != nil {
		handle.Close()
		return
	}

	if offset == OffsetEnd {
		var info os.FileInfo
		info, err = handle.Stat()
		if err != nil {
			handle.Close()
			err = fmt.Errorf("failed to determine size of '%s': %w", path, err)
			return
		}
		offset = info.Size()
	} else if offset < 0 {
		handle.Close()
		err = fmt.Errorf("invalid start offset %d for '%s'", offset, path)
		return
	}

	tailer = &Tailer{
		Path:      path,
		identity:  id,
		handle:    handle,
		offset:    offset,
		readBuf:   make([]byte, readChunkSize),
		readLimit: readLimit,
	}
	return
}

// Reads what was appended since the last call, up to the read limit, and returns the complete
// lines in file order. The unterminated remainder is held back until its terminator arrives.
// Behind reports whether the limit left unread bytes.
func (tailer *Tailer) Poll() (lines []string, err error) {
	if tailer.handle == nil {
		err = fmt.Errorf("%w: %s (tailer closed)", ErrFileGone, tailer.Path)
		return
	}

	info, err := tailer.handle.Stat()
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrFileGone, tailer.Path, err)
		return
	}

	// Same identity but shorter than what was read: truncated in place
	if info.Size() < tailer.offset {
		if len(tailer.pending) > 0 {
			lines = append(lines, string(tailer.pending))
			tailer.pending = nil
		}
		tailer.offset = 0
		tailer.truncations++
	}

	var newData []byte
	tailer.behind = false
	for {
		if int64(len(newData)) >= tailer.readLimit {
			tailer.behind = true
			break
		}
		n, readErr := tailer.handle.ReadAt(tailer.readBuf, tailer.offset)
		if n > 0 {
			newData = append(newData, tailer.readBuf[:n]...)
			tailer.offset += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			err = fmt.Errorf("%w: read %s: %w", ErrFileGone, tailer.Path, readErr)
			break
		}
		if n == 0 {
			break
		}
	}

	lines = append(lines, tailer.split(newData)...)
	return
}

// Joins data onto the pending fragment and splits off complete lines
func (tailer *Tailer) split(data []byte) (lines []string) {
	if len(data) == 0 {
		return
	}

	combined := data
	if len(tailer.pending) > 0 {
		combined = append(tailer.pending, data...)
	}

	for {
		idx := bytes.IndexByte(combined, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(combined[:idx]))
		combined = combined[idx+1:]
	}

	if len(combined) > 0 {
		tailer.pending = append([]byte(nil), combined...)
	} else {
		tailer.pending = nil
	}
	return
}

// Reads any remaining bytes, flushes the pending fragment as a final line and closes the handle
func (tailer *Tailer) Finalize() (lines []string, err error) {
	for tailer.handle != nil {
		var more []string
		more, err = tailer.Poll()
		lines = append(lines, more...)
		if err != nil || !tailer.behind {
			break
		}
	}
	if len(tailer.pending) > 0 {
		lines = append(lines, string(tailer.pending))
		tailer.pending = nil
	}

	closeErr := tailer.Close()
	if err == nil {
		err = closeErr
	}
	return
}

// Releases the handle; any pending fragment is discarded
func (tailer *Tailer) Close() (err error) {
	if tailer.handle == nil {
		return
	}
	err = tailer.handle.Close()
	tailer.handle = nil
	return
}

func (tailer *Tailer) Identity() (id Identity) {
	id = tailer.identity
	return
}

func (tailer *Tailer) Offset() (offset int64) {
	offset = tailer.offset
	return
}

// True when the last Poll stopped at the read limit before end of file
func (tailer *Tailer) Behind() (behind bool) {
	behind = tailer.behind
	return
}

// Unterminated bytes waiting for a line terminator
func (tailer *Tailer) Pending() (fragment string) {
	fragment = string(tailer.pending)
	return
}
