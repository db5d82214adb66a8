package file

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

var ErrFileGone = errors.New("file no longer exists")

// Read offset meaning "start at current end of file"
const OffsetEnd int64 = -1

// On-disk identity of a file, stable across renames and changed by recreation
type Identity struct {
	Device uint64
	Inode  uint64
}

// Incremental reader for one file identity
type Tailer struct {
	Path      string
	identity  Identity
	handle    *os.File
	offset    int64
	pending   []byte // unterminated tail of the last read
	readBuf   []byte
	readLimit int64 // bytes read per Poll at most
	behind    bool

	truncations uint64
}

// Ordered lines read from one path in one step
type Batch struct {
	Path  string
	Lines []string
	Final bool // last lines of a finalized tailer (rotation or removal)
}

// Tracks every regular file matched by a set of glob patterns
type WatchSet struct {
	Namespace  []string
	patterns   []string
	tailLines  int
	tailers    map[string]*Tailer // keyed by resolved absolute path
	reconciled bool
	Metrics    *MetricStorage
}

type MetricStorage struct {
	Opened      atomic.Uint64 // tailers created
	Finalized   atomic.Uint64 // tailers flushed and removed after rotation or deletion
	Truncations atomic.Uint64 // in-place truncations detected
	LinesRead   atomic.Uint64 // complete lines returned to callers
}

// Appending line writer for collector output
type OutModule struct {
	sink        io.WriteCloser
	batchBuffer *[]string
}
