package logctx

import (
	"sync"
	"time"
)

// Log Event Structure
type Event struct {
	Timestamp time.Time
	Severity  string
	Tags      []string
	Message   string
}

// Logger Struct
type Logger struct {
	ID         string
	queue      []Event         // event buffer
	mutex      sync.Mutex      // protects buffer and PrintLevel
	cond       *sync.Cond      // signals watcher that new events are available
	Done       <-chan struct{} // closed when watcher should drain and exit
	PrintLevel int             // Highest event level that is recorded
	wg         *sync.WaitGroup // Holds main execution threads until log watchers are done handling events
}

// Where formatted log lines are written
type OutputOptions struct {
	LogDir     string // directory for <prog>.log, empty disables file output
	FileName   string
	Background bool // never echo to console when set
	MaxSizeMB  int
	MaxBackups int
}

// Deduplication state for the watcher
type dedupState struct {
	lastMsg          string
	repeatCount      int
	lastSuppressTime time.Time
}
